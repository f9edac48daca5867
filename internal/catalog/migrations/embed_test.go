package migrations

import (
	"io/fs"
	"sort"
	"testing"
)

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := fs.ReadDir(FS, ".")
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	if len(files) < 2 {
		t.Fatalf("expected at least 2 migrations, got %v", files)
	}
	if files[0] != "001_validation_runs.sql" {
		t.Fatalf("expected first migration 001_validation_runs.sql, got %s", files[0])
	}
}
