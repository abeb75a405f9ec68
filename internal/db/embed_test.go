package db

import (
	"io/fs"
	"testing"
)

func TestEmbeddedMigrationsFS(t *testing.T) {
	ups, err := fs.Glob(MigrationsFS(), "*.up.sql")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	downs, err := fs.Glob(MigrationsFS(), "*.down.sql")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(ups) == 0 || len(ups) != len(downs) {
		t.Fatalf("got %d up and %d down migrations", len(ups), len(downs))
	}
	for _, name := range ups {
		data, err := fs.ReadFile(MigrationsFS(), name)
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if len(data) == 0 {
			t.Errorf("%s is empty", name)
		}
	}
}
