package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWriteJSON(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusCreated, map[string]string{"section_id": "S9"})

	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusCreated)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content-type = %s, want application/json", ct)
	}
	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["section_id"] != "S9" {
		t.Errorf("section_id = %s, want S9", resp["section_id"])
	}
}

func TestErrorHelpers(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		write func(http.ResponseWriter)
		code  int
		msg   string
	}{
		{"method", MethodNotAllowed, http.StatusMethodNotAllowed, "method not allowed"},
		{"bad request", func(w http.ResponseWriter) { BadRequest(w, "missing section_id") }, http.StatusBadRequest, "missing section_id"},
		{"forbidden", func(w http.ResponseWriter) { Forbidden(w, "role required") }, http.StatusForbidden, "role required"},
		{"not found", func(w http.ResponseWriter) { NotFound(w, "no such section") }, http.StatusNotFound, "no such section"},
		{"internal", func(w http.ResponseWriter) { InternalServerError(w, "store down") }, http.StatusInternalServerError, "store down"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tc.write(rec)
			if rec.Code != tc.code {
				t.Errorf("status = %d, want %d", rec.Code, tc.code)
			}
			var resp map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp["error"] != tc.msg {
				t.Errorf("error = %q, want %q", resp["error"], tc.msg)
			}
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	type body struct {
		SectionID string `json:"section_id"`
	}
	cases := []struct {
		in      string
		wantErr bool
	}{
		{`{"section_id":"S9"}`, false},
		{``, true},
		{`{"section_id":`, true},
		{`{"section":"S9"}`, true},
		{`{"section_id":"S9"}{}`, true},
	}
	for _, tc := range cases {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.in))
		var b body
		err := DecodeJSON(httptest.NewRecorder(), r, &b)
		if (err != nil) != tc.wantErr {
			t.Errorf("DecodeJSON(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
		}
		if err == nil && b.SectionID != "S9" {
			t.Errorf("DecodeJSON(%q) = %+v", tc.in, b)
		}
	}
}
