package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Language != "en" {
		t.Errorf("Language = %q, want en", cfg.Language)
	}
	if cfg.IncludeSQLFragment {
		t.Error("fragment inclusion must default to off")
	}
	if cfg.DefaultDialect != "" || cfg.BaseDir != "" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "language: ja\ninclude_sql_fragment: true\ndefault_dialect: oracle\nbase_dir: /srv/sql\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}
	if cfg.Language != "ja" || !cfg.IncludeSQLFragment || cfg.DefaultDialect != "oracle" || cfg.BaseDir != "/srv/sql" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadConfigPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("default_dialect: mysql\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}
	if cfg.Language != "en" {
		t.Errorf("unset keys must keep defaults, Language = %q", cfg.Language)
	}
	if cfg.DefaultDialect != "mysql" {
		t.Errorf("DefaultDialect = %q", cfg.DefaultDialect)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("missing file must error")
	}
}

func TestLoadConfigMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(":\n  - ["), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("malformed YAML must error")
	}
}
