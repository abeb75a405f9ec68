package api

import (
	"net/http"

	"github.com/banshee-data/yardwatch/internal/httputil"
	"github.com/banshee-data/yardwatch/internal/monitoring"
)

// listTrailThrough handles GET /api/trail-through[?all=1]. By default only
// open alerts are returned.
func (s *Server) listTrailThrough(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	openOnly := r.URL.Query().Get("all") == ""
	alerts, err := s.db.TrailThroughAlerts(openOnly)
	if err != nil {
		writeError(w, err, "read trail-through alerts")
		return
	}
	httputil.WriteJSONOK(w, nonNil(alerts))
}

// listTrailThroughAudit handles GET /api/trail-through/audit[?section_id=&limit=]
func (s *Server) listTrailThroughAudit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	limit, ok := limitParam(r)
	if !ok {
		httputil.BadRequest(w, "invalid 'limit' parameter")
		return
	}
	audit, err := s.db.TrailThroughAudit(r.URL.Query().Get("section_id"), limit)
	if err != nil {
		writeError(w, err, "read trail-through audit")
		return
	}
	httputil.WriteJSONOK(w, nonNil(audit))
}

type clearRequest struct {
	SectionID string `json:"section_id"`
}

// clearTrailThrough handles POST /api/trail-through/clear {section_id}.
func (s *Server) clearTrailThrough(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	var req clearRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if req.SectionID == "" {
		httputil.BadRequest(w, "missing section_id")
		return
	}
	cleared, err := s.engine.ClearTrailThrough(req.SectionID)
	if err != nil {
		writeError(w, err, "clear trail-through")
		return
	}
	if cleared {
		monitoring.WithSection(req.SectionID).Info("trail-through cleared from the API")
	}
	httputil.WriteJSONOK(w, map[string]interface{}{"section_id": req.SectionID, "cleared": cleared})
}
