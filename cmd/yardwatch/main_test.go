package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/yardwatch/internal/monitoring"
)

const stockLayout = "../../config/yard.layout.yaml"

func TestMain(m *testing.M) {
	monitoring.SetOutput(io.Discard)
	monitoring.SetLogger(nil)
	os.Exit(m.Run())
}

// run executes the root command with args and returns what it printed.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func tempDB(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "yard.db")
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "yardwatch", cmd.Use)

	cfg := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, cfg)
	assert.Equal(t, "c", cfg.Shorthand)
	assert.Equal(t, "config/yardwatch.defaults.json", cfg.DefValue)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, path := range [][]string{
		{"serve"}, {"migrate", "up"}, {"migrate", "down"}, {"migrate", "status"},
		{"migrate", "version"}, {"migrate", "force"}, {"layout", "import"},
		{"layout", "check"}, {"user", "add"}, {"user", "roles"},
		{"status"}, {"clear"}, {"reset"}, {"watch"}, {"version"},
	} {
		t.Run(strings.Join(path, "_"), func(t *testing.T) {
			sub, _, err := cmd.Find(path)
			require.NoError(t, err)
			assert.Equal(t, path[len(path)-1], sub.Name())
		})
	}
}

func TestMissingConfig(t *testing.T) {
	_, err := run(t, "", "--config", filepath.Join(t.TempDir(), "nope.json"), "layout", "check")
	assert.ErrorContains(t, err, "config file")
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "yardwatch dev")
}
