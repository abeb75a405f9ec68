package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/yardwatch/internal/api"
)

// fakeServer answers the client endpoints with canned bodies and records
// the last request body per path.
func fakeServer(t *testing.T) (*httptest.Server, map[string]string) {
	t.Helper()
	bodies := map[string]string{}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"ts":1767254400,"sections":[`+
			`{"section_id":"S1","section_status":"cleared","direction":"none","torpedo_status":"none"},`+
			`{"section_id":"S2","section_status":"occupied","engine_axle_count":4,"torpedo_axle_count":12,"direction":"in","torpedo_status":"loaded"}]}`)
	})
	mux.HandleFunc("/api/performance", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"vehicles":1200,"in_yard":3,"unloading":1,"unloaded_rate":0.5,`+
			`"yard_dwell":{"count":4,"mean":3600,"p50":3000,"p90":5400,"max":7200},"unload_dwell":{"count":2,"mean":900}}`)
	})
	mux.HandleFunc("/api/trail-through/clear", func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		bodies[r.URL.Path] = string(b)
		var req struct {
			SectionID string `json:"section_id"`
		}
		_ = json.Unmarshal(b, &req)
		json.NewEncoder(w).Encode(map[string]interface{}{"section_id": req.SectionID, "cleared": req.SectionID == "S9"})
	})
	mux.HandleFunc("/api/sections/reset", func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		bodies[r.URL.Path] = string(b)
		var req struct {
			Username string `json:"username"`
		}
		_ = json.Unmarshal(b, &req)
		if req.Username != "shiftlead" {
			w.WriteHeader(http.StatusForbidden)
			io.WriteString(w, `{"error":"user lacks a reset role"}`)
			return
		}
		io.WriteString(w, `{"status":"ok"}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, bodies
}

func TestStatusCommand(t *testing.T) {
	srv, _ := fakeServer(t)

	out, err := run(t, "", "status", "--addr", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "Status at 2026-01-01")
	assert.Regexp(t, `S2\s+occupied\s+in\s+4\s+12\s+loaded`, out)
	assert.Regexp(t, `S1\s+cleared\s+none\s+0\s+0\s+none`, out)
	assert.NotContains(t, out, "Vehicles:")

	out, err = run(t, "", "status", "--addr", srv.URL, "--performance")
	require.NoError(t, err)
	assert.Contains(t, out, "Vehicles: 1,200  in yard: 3  unloading: 1  unloaded: 50%")
	assert.Regexp(t, `yard\s+4\s+1h0m0s\s+50m0s\s+1h30m0s\s+2h0m0s`, out)
}

func TestStatusCommand_ServerDown(t *testing.T) {
	srv, _ := fakeServer(t)
	srv.Close()

	_, err := run(t, "", "status", "--addr", srv.URL)
	assert.Error(t, err)
}

func TestClearCommand(t *testing.T) {
	srv, bodies := fakeServer(t)

	out, err := run(t, "", "clear", "S9", "--addr", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Trail-through on S9 cleared")
	assert.JSONEq(t, `{"section_id":"S9"}`, bodies["/api/trail-through/clear"])

	out, err = run(t, "", "clear", "S11", "--addr", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "No open trail-through on S11")

	_, err = run(t, "", "clear", "--addr", srv.URL)
	assert.Error(t, err)
}

func TestResetCommand(t *testing.T) {
	srv, bodies := fakeServer(t)

	out, err := run(t, "", "reset", "S5", "--user", "shiftlead", "--addr", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Reset S5")
	assert.JSONEq(t, `{"username":"shiftlead","section_id":"S5"}`, bodies["/api/sections/reset"])

	out, err = run(t, "", "reset", "-u", "shiftlead", "--addr", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Reset all sections")

	_, err = run(t, "", "reset", "S5", "--user", "operator", "--addr", srv.URL)
	var apiErr *api.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Equal(t, "user lacks a reset role", apiErr.Message)

	_, err = run(t, "", "reset", "S5", "--addr", srv.URL)
	assert.ErrorContains(t, err, `required flag(s) "user" not set`)
}
