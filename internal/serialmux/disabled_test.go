package serialmux

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestDisabledSerialMux_UnsubscribeClosesChannel(t *testing.T) {
	d := NewDisabledSerialMux()
	id, ch := d.Subscribe()

	d.Unsubscribe(id)
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected channel to be closed on unsubscribe")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for subscriber to be unblocked after Unsubscribe")
	}

	// Unknown ids are ignored.
	d.Unsubscribe("nope")
}

func TestDisabledSerialMux_CloseClosesAllChannels(t *testing.T) {
	d := NewDisabledSerialMux()
	_, ch1 := d.Subscribe()
	_, ch2 := d.Subscribe()

	if err := d.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	for i, ch := range []chan string{ch1, ch2} {
		if _, ok := <-ch; ok {
			t.Errorf("channel %d still open after Close", i)
		}
	}

	// Subscribing after Close hands back a closed channel.
	_, late := d.Subscribe()
	if _, ok := <-late; ok {
		t.Error("expected closed channel after Close")
	}
	if err := d.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestDisabledSerialMux_MonitorWaitsForContext(t *testing.T) {
	d := NewDisabledSerialMux()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- d.Monitor(ctx) }()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Monitor() = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Monitor did not return after cancel")
	}
	if err := d.SendCommand("ping"); err != nil {
		t.Errorf("SendCommand() error = %v", err)
	}
}

func TestDisabledSerialMux_AdminRoute(t *testing.T) {
	mux := http.NewServeMux()
	NewDisabledSerialMux().AttachAdminRoutes(mux)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/debug/serial-disabled", nil))
	if w.Code != http.StatusOK || w.Body.String() != "serial disabled" {
		t.Errorf("got %d %q", w.Code, w.Body.String())
	}
}
