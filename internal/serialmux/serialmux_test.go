package serialmux

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recv(t *testing.T, ch chan string) string {
	t.Helper()
	select {
	case line, ok := <-ch:
		require.True(t, ok, "channel closed")
		return line
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for line")
	}
	return ""
}

func TestSerialMux_FansOutLines(t *testing.T) {
	port := NewTestableSerialPort()
	m := NewSerialMux(port)
	_, a := m.Subscribe()
	_, b := m.Subscribe()

	done := make(chan error, 1)
	go func() { done <- m.Monitor(context.Background()) }()

	port.AddReadData("{\"ts\":1}\r\n\n   \n{\"ts\":2}\n")
	assert.Equal(t, `{"ts":1}`, recv(t, a))
	assert.Equal(t, `{"ts":1}`, recv(t, b))
	assert.Equal(t, `{"ts":2}`, recv(t, a))
	assert.Equal(t, `{"ts":2}`, recv(t, b))

	port.EOF()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Monitor did not return at EOF")
	}
}

func TestSerialMux_MonitorStopsOnCancel(t *testing.T) {
	port := NewTestableSerialPort()
	m := NewSerialMux(port)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- m.Monitor(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Monitor did not return after cancel")
	}
	require.NoError(t, m.Close())
}

func TestSerialMux_MonitorReturnsReadError(t *testing.T) {
	port := NewTestableSerialPort()
	m := NewSerialMux(port)

	done := make(chan error, 1)
	go func() { done <- m.Monitor(context.Background()) }()
	require.NoError(t, port.Close())

	select {
	case err := <-done:
		assert.ErrorIs(t, err, errPortClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("Monitor did not return after port closed")
	}
}

func TestSerialMux_SlowSubscriberDoesNotBlock(t *testing.T) {
	port := NewTestableSerialPort()
	m := NewSerialMux(port)
	_, slow := m.Subscribe()

	var sb strings.Builder
	for i := 0; i < subscriberBuffer+10; i++ {
		sb.WriteString("{}\n")
	}
	port.AddReadData(sb.String())
	port.EOF()

	require.NoError(t, m.Monitor(context.Background()))
	assert.Len(t, slow, subscriberBuffer)
}

func TestSerialMux_SendCommand(t *testing.T) {
	port := NewTestableSerialPort()
	m := NewSerialMux(port)

	require.NoError(t, m.SendCommand("STATUS"))
	require.NoError(t, m.SendCommand("RESET\n"))
	assert.Equal(t, "STATUS\nRESET\n", port.Written())

	port.WriteError = errors.New("boom")
	assert.EqualError(t, m.SendCommand("X"), "boom")
}

func TestSerialMux_CloseClosesSubscribers(t *testing.T) {
	port := NewTestableSerialPort()
	m := NewSerialMux(port)
	id, ch := m.Subscribe()

	require.NoError(t, m.Close())
	_, ok := <-ch
	assert.False(t, ok)
	assert.True(t, port.Closed)

	// Unsubscribe after close is a no-op.
	m.Unsubscribe(id)
}
