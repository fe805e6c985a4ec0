package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	original := &Config{
		BaseDir: "/home/user/.local/share/wsrestore",
		LogDir:  "/home/user/.local/share/wsrestore/log",
		Database: DatabaseConfig{
			Type:           "postgres",
			URL:            "postgres://outline@db:5432/outline",
			ConnectTimeout: "45s",
		},
		Files: FilesConfig{
			Type:        "s3",
			S3Bucket:    "outline-data",
			S3Prefix:    "uploads/",
			S3Region:    "eu-west-1",
			S3Endpoint:  "http://minio:9000",
			S3PathStyle: true,
		},
		Encryption: EncryptionConfig{
			PublicKeyPath:  "/home/user/.local/share/wsrestore/keys/wsrestore.pub",
			PrivateKeyPath: "/home/user/.local/share/wsrestore/keys/wsrestore.key",
		},
		Import: ImportConfig{
			SnapshotFile:            "export.json",
			ReuseDefaultCollections: true,
			PruneOrphans:            true,
		},
	}

	var buf bytes.Buffer
	m := &Manager{}

	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.BaseDir != original.BaseDir {
		t.Errorf("BaseDir = %q, want %q", got.BaseDir, original.BaseDir)
	}
	if got.LogDir != original.LogDir {
		t.Errorf("LogDir = %q, want %q", got.LogDir, original.LogDir)
	}
	if got.Database != original.Database {
		t.Errorf("Database = %+v, want %+v", got.Database, original.Database)
	}
	if got.Files != original.Files {
		t.Errorf("Files = %+v, want %+v", got.Files, original.Files)
	}
	if got.Encryption != original.Encryption {
		t.Errorf("Encryption = %+v, want %+v", got.Encryption, original.Encryption)
	}
	if got.Import != original.Import {
		t.Errorf("Import = %+v, want %+v", got.Import, original.Import)
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("/data/wsrestore")

	if cfg.BaseDir != "/data/wsrestore" {
		t.Errorf("BaseDir = %q, want %q", cfg.BaseDir, "/data/wsrestore")
	}
	if cfg.LogDir != "/data/wsrestore/log" {
		t.Errorf("LogDir = %q, want %q", cfg.LogDir, "/data/wsrestore/log")
	}
	if cfg.Database.Type != "postgres" {
		t.Errorf("Database.Type = %q, want %q", cfg.Database.Type, "postgres")
	}
	if cfg.Encryption.PrivateKeyPath != "/data/wsrestore/keys/wsrestore.key" {
		t.Errorf("Encryption.PrivateKeyPath = %q, want %q", cfg.Encryption.PrivateKeyPath, "/data/wsrestore/keys/wsrestore.key")
	}
	if cfg.Import.SnapshotFile != DefaultSnapshotFile {
		t.Errorf("Import.SnapshotFile = %q, want %q", cfg.Import.SnapshotFile, DefaultSnapshotFile)
	}
}

func TestInit(t *testing.T) {
	t.Run("creates config file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "wsrestore.toml")

		if err := Init(path, NewConfig(dir)); err != nil {
			t.Fatalf("Init() error = %v", err)
		}
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("config file not created: %v", err)
		}
	})

	t.Run("fails if file already exists", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "wsrestore.toml")
		cfg := NewConfig(dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("first Init() error = %v", err)
		}
		if err := Init(path, cfg); err == nil {
			t.Fatal("second Init() expected error")
		}
	})
}

func TestReadFromFile(t *testing.T) {
	t.Run("reads valid config", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "wsrestore.toml")
		cfg := NewConfig(dir)
		cfg.Database = DatabaseConfig{Type: "memory"}

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		got, err := ReadFromFile(path)
		if err != nil {
			t.Fatalf("ReadFromFile() error = %v", err)
		}
		if got.Database.Type != "memory" {
			t.Errorf("Database.Type = %q, want %q", got.Database.Type, "memory")
		}
	})

	t.Run("returns error for missing file", func(t *testing.T) {
		_, err := ReadFromFile("/nonexistent/path/wsrestore.toml")
		if err == nil {
			t.Fatal("ReadFromFile() expected error for missing file")
		}
	})
}

func TestLoad(t *testing.T) {
	t.Run("missing file falls back to defaults", func(t *testing.T) {
		t.Setenv(EnvDatabaseURL, "")
		t.Setenv(EnvDatabaseType, "")
		dir := t.TempDir()

		cfg, err := Load(filepath.Join(dir, "absent.toml"), dir)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.BaseDir != dir {
			t.Errorf("BaseDir = %q, want %q", cfg.BaseDir, dir)
		}
		if cfg.Files.Type != "none" {
			t.Errorf("Files.Type = %q, want %q", cfg.Files.Type, "none")
		}
	})

	t.Run("fills blanks in a sparse file", func(t *testing.T) {
		t.Setenv(EnvDatabaseURL, "")
		t.Setenv(EnvDatabaseType, "")
		dir := t.TempDir()
		path := filepath.Join(dir, "wsrestore.toml")
		if err := os.WriteFile(path, []byte("[database]\ntype = \"memory\"\n"), 0644); err != nil {
			t.Fatal(err)
		}

		cfg, err := Load(path, dir)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.LogDir != filepath.Join(dir, "log") {
			t.Errorf("LogDir = %q, want %q", cfg.LogDir, filepath.Join(dir, "log"))
		}
		if cfg.Import.SnapshotFile != DefaultSnapshotFile {
			t.Errorf("Import.SnapshotFile = %q, want %q", cfg.Import.SnapshotFile, DefaultSnapshotFile)
		}
	})

	t.Run("invalid file is an error", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "wsrestore.toml")
		if err := os.WriteFile(path, []byte("[database\n"), 0644); err != nil {
			t.Fatal(err)
		}

		if _, err := Load(path, dir); err == nil {
			t.Fatal("Load() expected error for malformed toml")
		}
	})
}

func TestApplyEnv(t *testing.T) {
	t.Run("DATABASE_URL selects postgres", func(t *testing.T) {
		t.Setenv(EnvDatabaseURL, "postgres://env@db/outline")
		t.Setenv(EnvDatabaseType, "")

		cfg := &Config{Database: DatabaseConfig{Type: "sqlite", Path: "/tmp/x.db"}}
		cfg.ApplyEnv()

		if cfg.Database.Type != "postgres" {
			t.Errorf("Database.Type = %q, want %q", cfg.Database.Type, "postgres")
		}
		if cfg.Database.URL != "postgres://env@db/outline" {
			t.Errorf("Database.URL = %q, want env value", cfg.Database.URL)
		}
	})

	t.Run("explicit type wins", func(t *testing.T) {
		t.Setenv(EnvDatabaseURL, "postgres://env@db/outline")
		t.Setenv(EnvDatabaseType, "memory")

		cfg := &Config{}
		cfg.ApplyEnv()

		if cfg.Database.Type != "memory" {
			t.Errorf("Database.Type = %q, want %q", cfg.Database.Type, "memory")
		}
	})
}

func TestLoadEnvFiles(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("WSRESTORE_TEST_VALUE=from-file\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("WSRESTORE_TEST_VALUE", "")
	os.Unsetenv("WSRESTORE_TEST_VALUE")

	n, err := LoadEnvFiles(envPath, filepath.Join(dir, ".env.local"))
	if err != nil {
		t.Fatalf("LoadEnvFiles() error = %v", err)
	}
	if n != 1 {
		t.Errorf("LoadEnvFiles() = %d, want 1", n)
	}
	if got := os.Getenv("WSRESTORE_TEST_VALUE"); got != "from-file" {
		t.Errorf("WSRESTORE_TEST_VALUE = %q, want %q", got, "from-file")
	}
}
