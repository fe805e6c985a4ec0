package encryption

import (
	"os"
	"path/filepath"
	"testing"

	"wsrestore/internal/config"
)

func TestSealFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "workspace.json")
	if err := os.WriteFile(src, []byte(`{"teams":[]}`), 0644); err != nil {
		t.Fatal(err)
	}

	dst, err := SealFile(NewTestEncryptor(), src)
	if err != nil {
		t.Fatalf("SealFile() error = %v", err)
	}
	if dst != src+".age" {
		t.Errorf("SealFile() = %q, want %q", dst, src+".age")
	}

	sealed, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("reading sealed file: %v", err)
	}
	if string(sealed) != string(testHeader)+`{"teams":[]}` {
		t.Errorf("sealed content = %q", sealed)
	}

	if _, err := SealFile(NewTestEncryptor(), src); err == nil {
		t.Error("SealFile() over an existing sealed file should return error")
	}
}

func TestNewEncryptorFromConfig(t *testing.T) {
	tests := []struct {
		typ     string
		wantErr bool
	}{
		{"", false},
		{"age", false},
		{"test", false},
		{"rot13", true},
	}
	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			enc, err := NewEncryptorFromConfig(config.EncryptionConfig{Type: tt.typ})
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewEncryptorFromConfig(%q) error = %v, wantErr %v", tt.typ, err, tt.wantErr)
			}
			if !tt.wantErr && enc == nil {
				t.Errorf("NewEncryptorFromConfig(%q) returned nil", tt.typ)
			}
		})
	}
}
