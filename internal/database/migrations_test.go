package database

import (
	"strings"
	"testing"
	"testing/fstest"
)

func TestReadMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"000002_add_scores.up.sql":    {Data: []byte("CREATE TABLE b();")},
		"000001_init_schema.up.sql":   {Data: []byte("CREATE TABLE a();")},
		"000001_init_schema.down.sql": {Data: []byte("DROP TABLE a;")},
		"000003_orphan.down.sql":      {Data: []byte("DROP TABLE c;")},
		"README.md":                   {Data: []byte("ignored")},
	}

	migrations, err := ReadMigrations(fsys)
	if err != nil {
		t.Fatalf("ReadMigrations() error = %v", err)
	}

	if len(migrations) != 2 {
		t.Fatalf("expected 2 migrations, got %d", len(migrations))
	}
	if migrations[0].Version != "000001" || migrations[1].Version != "000002" {
		t.Errorf("migrations not sorted: %s, %s", migrations[0].Version, migrations[1].Version)
	}
	if migrations[0].Title != "init schema" {
		t.Errorf("Title = %q, want %q", migrations[0].Title, "init schema")
	}
	if migrations[0].DownSQL != "DROP TABLE a;" {
		t.Errorf("DownSQL = %q", migrations[0].DownSQL)
	}
	if migrations[0].Checksum != calculateChecksum("CREATE TABLE a();") {
		t.Error("checksum does not match up SQL")
	}
}

func TestValidateChecksums(t *testing.T) {
	migrations := []Migration{
		{Version: "000001", Title: "init", Checksum: "aaa"},
		{Version: "000002", Title: "next", Checksum: "bbb"},
	}

	if err := validateChecksums(migrations, map[string]string{"000001": "aaa"}); err != nil {
		t.Errorf("expected no error, got %v", err)
	}

	err := validateChecksums(migrations, map[string]string{"000001": "changed"})
	if err == nil || !strings.Contains(err.Error(), "000001") {
		t.Errorf("expected mismatch error naming 000001, got %v", err)
	}
}
