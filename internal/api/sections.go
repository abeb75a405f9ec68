package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/banshee-data/yardwatch/internal/httputil"
	"github.com/banshee-data/yardwatch/internal/monitoring"
	"github.com/banshee-data/yardwatch/internal/topology"
	"github.com/banshee-data/yardwatch/internal/yard"
)

// writeError maps not-found to 404 and logs everything else as a 500.
func writeError(w http.ResponseWriter, err error, action string) {
	if errors.Is(err, yard.ErrNotFound) {
		httputil.NotFound(w, err.Error())
		return
	}
	monitoring.Errorf("failed to %s: %v", action, err)
	httputil.InternalServerError(w, "failed to "+action)
}

// listSections handles GET /api/sections[?zone=unloading]
func (s *Server) listSections(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	all := s.engine.Sections()
	zone := r.URL.Query().Get("zone")
	if zone == "" {
		httputil.WriteJSONOK(w, all)
		return
	}
	out := make([]yard.SectionState, 0, len(all))
	for _, st := range all {
		if s.engine.Topology().In(topology.Zone(zone), st.ID) {
			out = append(out, st)
		}
	}
	httputil.WriteJSONOK(w, out)
}

// handleSectionByID handles GET /api/sections/:id and its sub-resources:
// /dpu, /events and /playback?from=&to=
func (s *Server) handleSectionByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	parts := pathID(r, "/api/sections/")
	if len(parts) == 0 || len(parts) > 2 {
		httputil.BadRequest(w, "expected /api/sections/:id[/dpu|/events|/playback]")
		return
	}
	id := parts[0]
	if !s.engine.Topology().Has(id) {
		httputil.NotFound(w, fmt.Sprintf("section %q not found", id))
		return
	}
	if len(parts) == 1 {
		st, err := s.engine.Section(id)
		if err != nil {
			writeError(w, err, "read section")
			return
		}
		httputil.WriteJSONOK(w, st)
		return
	}

	switch parts[1] {
	case "dpu":
		dpu, err := s.db.DPUForSection(id)
		if err != nil {
			writeError(w, err, "look up dpu")
			return
		}
		httputil.WriteJSONOK(w, map[string]string{"section_id": id, "dpu_id": dpu})
	case "events":
		limit, ok := limitParam(r)
		if !ok {
			httputil.BadRequest(w, "invalid 'limit' parameter")
			return
		}
		events, err := s.db.SectionEvents(id, limit)
		if err != nil {
			writeError(w, err, "read section events")
			return
		}
		httputil.WriteJSONOK(w, nonNil(events))
	case "playback":
		from, err1 := strconv.ParseFloat(r.URL.Query().Get("from"), 64)
		to, err2 := strconv.ParseFloat(r.URL.Query().Get("to"), 64)
		if err1 != nil || err2 != nil || to < from {
			httputil.BadRequest(w, "'from' and 'to' must be epoch seconds with from <= to")
			return
		}
		snaps, err := s.db.SectionPlayback(id, from, to)
		if err != nil {
			writeError(w, err, "read playback")
			return
		}
		httputil.WriteJSONOK(w, nonNil(snaps))
	default:
		httputil.NotFound(w, "unknown section resource "+parts[1])
	}
}

type resetRequest struct {
	Username  string `json:"username"`
	SectionID string `json:"section_id,omitempty"`
}

// resetSections handles POST /api/sections/reset. Without section_id every
// section is reset. The user needs one of the configured reset roles.
func (s *Server) resetSections(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	var req resetRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" {
		httputil.BadRequest(w, "missing username")
		return
	}

	ok, err := s.db.HasRole(req.Username, s.resetRoles...)
	if err != nil {
		writeError(w, err, "check user roles")
		return
	}
	if !ok {
		monitoring.Warnf("reset refused for %q: needs one of %v", req.Username, s.resetRoles)
		httputil.Forbidden(w, fmt.Sprintf("user %q needs one of %v", req.Username, s.resetRoles))
		return
	}

	if req.SectionID == "" {
		s.engine.ResetAll()
		monitoring.Logf("all sections reset by %s", req.Username)
		httputil.WriteJSONOK(w, map[string]interface{}{"reset": "all"})
		return
	}
	if err := s.engine.Reset(req.SectionID); err != nil {
		writeError(w, err, "reset section")
		return
	}
	monitoring.WithSection(req.SectionID).Infof("section reset by %s", req.Username)
	httputil.WriteJSONOK(w, map[string]interface{}{"reset": req.SectionID})
}

// nonNil keeps empty results encoding as [] rather than null.
func nonNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}
