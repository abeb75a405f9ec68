package api

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/banshee-data/yardwatch/internal/db"
	"github.com/banshee-data/yardwatch/internal/monitoring"
	"github.com/banshee-data/yardwatch/internal/topology"
)

var (
	apiTestTemplatePath string
)

func TestMain(m *testing.M) {
	monitoring.SetOutput(io.Discard)
	monitoring.SetLogger(nil)
	code := runAPITestMain(m)
	os.Exit(code)
}

// runAPITestMain builds one migrated database with the stock layout and
// users; each test works on a copy.
func runAPITestMain(m *testing.M) int {
	tmpDir, err := os.MkdirTemp("", "yardwatch-api-template-*")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create API test template directory: %v\n", err)
		return 1
	}
	defer os.RemoveAll(tmpDir)

	apiTestTemplatePath = filepath.Join(tmpDir, "template.db")
	if err := buildTemplate(apiTestTemplatePath); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize API test template DB: %v\n", err)
		return 1
	}
	return m.Run()
}

func buildTemplate(path string) error {
	templateDB, err := db.NewDB(path)
	if err != nil {
		return err
	}
	l, err := topology.LoadLayout("../../config/yard.layout.yaml")
	if err != nil {
		templateDB.Close()
		return err
	}
	if _, err := templateDB.ImportLayout(l); err != nil {
		templateDB.Close()
		return err
	}
	if _, err := templateDB.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		templateDB.Close()
		return fmt.Errorf("checkpoint: %w", err)
	}
	return templateDB.Close()
}

func cloneAPITestDB(t *testing.T) string {
	t.Helper()

	if apiTestTemplatePath == "" {
		t.Fatal("API test template DB not initialized")
	}

	dbPath := filepath.Join(t.TempDir(), "test.db")
	if err := copyFile(apiTestTemplatePath, dbPath); err != nil {
		t.Fatalf("failed to clone API test DB template: %v", err)
	}

	return dbPath
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}

	return out.Close()
}
