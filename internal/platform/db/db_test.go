package db

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-sql-driver/mysql"
)

func TestLoadConfigDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
version: "1.0.0"
mode: dev
database:
  host: 127.0.0.1
  port: 3306
  user: u
  password: p
  dbname: d
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Addr != ":8443" {
		t.Fatalf("expected default addr, got %q", cfg.Addr)
	}
	if cfg.Auth.TokenTTLHours != 24 {
		t.Fatalf("expected default token ttl, got %d", cfg.Auth.TokenTTLHours)
	}
	if cfg.Sweeper.IntervalSeconds != 20 {
		t.Fatalf("expected default sweep interval, got %d", cfg.Sweeper.IntervalSeconds)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestIsDuplicateKey(t *testing.T) {
	dup := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'ABCD2345' for key 'uq_sessions_code'"}
	if !IsDuplicateKey(dup) {
		t.Fatal("expected 1062 to be a duplicate key")
	}
	if !IsDuplicateKey(fmt.Errorf("insert session: %w", dup)) {
		t.Fatal("expected wrapped 1062 to be a duplicate key")
	}
	if IsDuplicateKey(&mysql.MySQLError{Number: 1205}) {
		t.Fatal("lock timeout is not a duplicate key")
	}
	if IsDuplicateKey(errors.New("plain error")) {
		t.Fatal("plain error is not a duplicate key")
	}
}
