package api

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/banshee-data/yardwatch/internal/db"
	"github.com/banshee-data/yardwatch/internal/httputil"
	"github.com/banshee-data/yardwatch/internal/report"
)

// performanceWindow is how many vehicles the summary and charts cover
// unless ?limit= says otherwise.
const performanceWindow = 200

func (s *Server) listTransits(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	limit, ok := limitParam(r)
	if !ok {
		httputil.BadRequest(w, "invalid 'limit' parameter")
		return
	}
	recs, err := s.db.TransitRecords(limit)
	if err != nil {
		writeError(w, err, "read transits")
		return
	}
	httputil.WriteJSONOK(w, nonNil(recs))
}

func (s *Server) listTraces(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	limit, ok := limitParam(r)
	if !ok {
		httputil.BadRequest(w, "invalid 'limit' parameter")
		return
	}
	traces, err := s.db.TrainTraces(limit)
	if err != nil {
		writeError(w, err, "read traces")
		return
	}
	httputil.WriteJSONOK(w, nonNil(traces))
}

func (s *Server) listSystemEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	limit, ok := limitParam(r)
	if !ok {
		httputil.BadRequest(w, "invalid 'limit' parameter")
		return
	}
	events, err := s.db.SystemEvents(limit)
	if err != nil {
		writeError(w, err, "read system events")
		return
	}
	httputil.WriteJSONOK(w, nonNil(events))
}

// listDetectionPoints handles GET /api/dpus/:id[/sections]
func (s *Server) listDetectionPoints(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	parts := pathID(r, "/api/dpus/")
	if len(parts) == 0 || len(parts) > 2 || (len(parts) == 2 && parts[1] != "sections") {
		httputil.BadRequest(w, "expected /api/dpus/:id[/sections]")
		return
	}
	if len(parts) == 2 {
		ids, err := s.db.DPUSections(parts[0])
		if err != nil {
			writeError(w, err, "read dpu sections")
			return
		}
		httputil.WriteJSONOK(w, ids)
		return
	}
	limit, ok := limitParam(r)
	if !ok {
		httputil.BadRequest(w, "invalid 'limit' parameter")
		return
	}
	hist, err := s.db.DetectionPointHistory(parts[0], limit)
	if err != nil {
		writeError(w, err, "read detection points")
		return
	}
	httputil.WriteJSONOK(w, nonNil(hist))
}

func (s *Server) performanceRecords(w http.ResponseWriter, r *http.Request) ([]db.TransitRecord, bool) {
	limit, ok := limitParam(r)
	if !ok {
		httputil.BadRequest(w, "invalid 'limit' parameter")
		return nil, false
	}
	if limit == 0 {
		limit = performanceWindow
	}
	recs, err := s.db.TransitRecords(limit)
	if err != nil {
		writeError(w, err, "read transits")
		return nil, false
	}
	return recs, true
}

func (s *Server) showPerformance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	recs, ok := s.performanceRecords(w, r)
	if !ok {
		return
	}
	httputil.WriteJSONOK(w, report.Summarize(recs))
}

func (s *Server) showPerformanceChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	recs, ok := s.performanceRecords(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := report.WritePerformanceChart(&buf, recs, s.clock.Now()); err != nil {
		s.writeChartError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) showDwellHistogram(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	recs, ok := s.performanceRecords(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := report.WriteDwellHistogram(&buf, recs); err != nil {
		s.writeChartError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) writeChartError(w http.ResponseWriter, err error) {
	if errors.Is(err, report.ErrNoData) {
		httputil.NotFound(w, err.Error())
		return
	}
	writeError(w, err, "render chart")
}
