package serialmux

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/yardwatch/internal/config"
	"github.com/banshee-data/yardwatch/internal/timeutil"
)

func writeFixture(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "capture.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadFixture(t *testing.T) {
	path := writeFixture(t, "# bench capture\n{\"ts\":1}\n\n  {\"ts\":2}  \n")
	lines, err := LoadFixture(path)
	require.NoError(t, err)
	assert.Equal(t, []string{`{"ts":1}`, `{"ts":2}`}, lines)

	_, err = LoadFixture(writeFixture(t, "# nothing\n\n"))
	assert.ErrorContains(t, err, "no messages")

	_, err = LoadFixture(filepath.Join(t.TempDir(), "missing.jsonl"))
	assert.Error(t, err)
}

func TestFixturePort_OneLinePerTick(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(1767254400, 0))
	port := NewFixturePort([]string{"a", "b"}, clock, time.Second)
	m := NewSerialMux(port)
	_, ch := m.Subscribe()

	done := make(chan error, 1)
	go func() { done <- m.Monitor(context.Background()) }()

	select {
	case line := <-ch:
		t.Fatalf("line %q before first tick", line)
	case <-time.After(50 * time.Millisecond):
	}

	clock.Advance(time.Second)
	assert.Equal(t, "a", recv(t, ch))
	clock.Advance(time.Second)
	assert.Equal(t, "b", recv(t, ch))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Monitor did not return after the last fixture line")
	}

	require.NoError(t, m.SendCommand("ack"))
	assert.Equal(t, "ack\n", port.Written())
}

func TestFixturePort_CloseStopsPlayback(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	port := NewFixturePort([]string{"a", "b", "c"}, clock, time.Second)
	require.NoError(t, port.Close())

	buf := make([]byte, 8)
	_, err := port.Read(buf)
	assert.Error(t, err)
}

func TestOpen_PicksTransport(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))

	cfg := config.Empty().WithDatabasePath("yard.db")
	m, err := Open(cfg, clock)
	require.NoError(t, err)
	assert.IsType(t, &DisabledSerialMux{}, m)

	fixture := writeFixture(t, "{\"ts\":1}\n")
	cfg.FixturePath = &fixture
	m, err = Open(cfg, clock)
	require.NoError(t, err)
	assert.IsType(t, &SerialMux[*FixturePort]{}, m)
	require.NoError(t, m.Close())

	missing := filepath.Join(t.TempDir(), "missing.jsonl")
	cfg.FixturePath = &missing
	_, err = Open(cfg, clock)
	assert.Error(t, err)

	port := filepath.Join(t.TempDir(), "no-such-tty")
	cfg.SerialPort = &port
	m, err = Open(cfg, clock)
	assert.Error(t, err)
	assert.Nil(t, m)
}
