package filestore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"wsrestore/internal/config"
)

func TestFileSystemStore_Stats(t *testing.T) {
	root := t.TempDir()
	files := map[string]string{
		"uploads/a.png":             "12345",
		"uploads/nested/b.pdf":      "1234567890",
		"avatars/user-1/avatar.jpg": "xyz",
	}
	for name, content := range files {
		p := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	s, err := NewFileSystemStore(root)
	if err != nil {
		t.Fatalf("NewFileSystemStore() error = %v", err)
	}

	st, err := s.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if st.Count != 3 {
		t.Errorf("Count = %d, want 3", st.Count)
	}
	if st.Bytes != 18 {
		t.Errorf("Bytes = %d, want 18", st.Bytes)
	}
}

func TestNewFileSystemStore_Errors(t *testing.T) {
	if _, err := NewFileSystemStore(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Error("NewFileSystemStore() on missing root expected error")
	}

	f := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(f, nil, 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileSystemStore(f); err == nil {
		t.Error("NewFileSystemStore() on a file expected error")
	}
}

func TestMemoryStore_Stats(t *testing.T) {
	m := NewMemoryStore()
	m.Put("a", 100)
	m.Put("b", 50)
	m.Put("a", 10)

	st, err := m.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if st.Count != 2 || st.Bytes != 60 {
		t.Errorf("Stats() = %+v, want {Count:2 Bytes:60}", st)
	}
}

// fakeLister serves ListObjectsV2 from fixed pages.
type fakeLister struct {
	pages  [][]int64
	calls  int
	prefix string
	err    error
}

func (f *fakeLister) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.prefix = aws.ToString(in.Prefix)
	page := f.pages[f.calls]
	f.calls++

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(f.calls < len(f.pages))}
	for _, size := range page {
		out.Contents = append(out.Contents, types.Object{Key: aws.String("k"), Size: aws.Int64(size)})
	}
	if f.calls < len(f.pages) {
		out.NextContinuationToken = aws.String("next")
	}
	return out, nil
}

func TestS3Store_StatsPaginates(t *testing.T) {
	lister := &fakeLister{pages: [][]int64{{100, 200}, {300}, {}}}
	s := NewS3StoreFromClient(lister, "bucket", "uploads/")

	st, err := s.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if lister.calls != 3 {
		t.Errorf("ListObjectsV2 calls = %d, want 3", lister.calls)
	}
	if lister.prefix != "uploads/" {
		t.Errorf("prefix = %q, want %q", lister.prefix, "uploads/")
	}
	if st.Count != 3 || st.Bytes != 600 {
		t.Errorf("Stats() = %+v, want {Count:3 Bytes:600}", st)
	}
}

func TestS3Store_StatsError(t *testing.T) {
	s := NewS3StoreFromClient(&fakeLister{err: errors.New("access denied")}, "bucket", "")
	if _, err := s.Stats(context.Background()); err == nil {
		t.Error("Stats() expected error")
	}
}

func TestNewFileStoreFromConfig(t *testing.T) {
	ctx := context.Background()

	t.Run("none", func(t *testing.T) {
		fs, err := NewFileStoreFromConfig(ctx, config.FilesConfig{Type: "none"})
		if err != nil || fs != nil {
			t.Errorf("NewFileStoreFromConfig(none) = (%v, %v), want (nil, nil)", fs, err)
		}
	})

	t.Run("filesystem", func(t *testing.T) {
		fs, err := NewFileStoreFromConfig(ctx, config.FilesConfig{Type: "filesystem", Root: t.TempDir()})
		if err != nil || fs == nil {
			t.Errorf("NewFileStoreFromConfig(filesystem) = (%v, %v)", fs, err)
		}
	})

	t.Run("s3 with static credentials", func(t *testing.T) {
		fs, err := NewFileStoreFromConfig(ctx, config.FilesConfig{
			Type:              "s3",
			S3Bucket:          "outline",
			S3Endpoint:        "http://127.0.0.1:9000",
			S3PathStyle:       true,
			S3AccessKeyID:     "AKIA",
			S3SecretAccessKey: "SECRET",
		})
		if err != nil || fs == nil {
			t.Errorf("NewFileStoreFromConfig(s3) = (%v, %v)", fs, err)
		}
	})

	errorCases := []config.FilesConfig{
		{Type: "filesystem"},
		{Type: "s3"},
		{Type: "ftp"},
	}
	for _, cfg := range errorCases {
		t.Run("error "+cfg.Type, func(t *testing.T) {
			fs, err := NewFileStoreFromConfig(ctx, cfg)
			if err == nil {
				t.Error("NewFileStoreFromConfig() expected error")
			}
			if fs != nil {
				t.Error("NewFileStoreFromConfig() should return nil on error")
			}
		})
	}
}
