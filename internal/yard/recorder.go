package yard

import (
	"context"
	"sync/atomic"

	"github.com/banshee-data/yardwatch/internal/monitoring"
)

// EventKind names a fired edge.
type EventKind string

const (
	EventEntry       EventKind = "entry"
	EventExit        EventKind = "exit"
	EventUnloadEntry EventKind = "unload_entry"
	EventUnloadExit  EventKind = "unload_exit"
)

// SectionEvent is written once per fired edge, and once per train trace sample.
type SectionEvent struct {
	TS            float64       `json:"ts"`
	SectionID     string        `json:"section_id"`
	Kind          EventKind     `json:"kind"`
	Status        SectionStatus `json:"section_status"`
	EngineAxles   int           `json:"engine_axle_count"`
	TorpedoAxles  int           `json:"torpedo_axle_count"`
	Direction     Direction     `json:"direction"`
	Speed         float64       `json:"speed"`
	TorpedoStatus string        `json:"torpedo_status"`
	TorpedoID     string        `json:"torpedo_id"`
	EngineID      string        `json:"engine_id"`
}

// TransitMark updates the performance record of one vehicle.
type TransitMark struct {
	Kind      EventKind `json:"kind"`
	TorpedoID string    `json:"torpedo_id"`
	EngineID  string    `json:"engine_id"`
	TS        float64   `json:"ts"`
	SectionID string    `json:"section_id"`
}

// TrailThroughAlert is the single open alert of a section.
type TrailThroughAlert struct {
	TS        float64 `json:"ts"`
	SectionID string  `json:"section_id"`
	Confirmed bool    `json:"confirm_status"`
}

// AuditAction is what a trail-through audit entry records.
type AuditAction string

const (
	AuditDetected   AuditAction = "detected"
	AuditSuppressed AuditAction = "suppressed"
	AuditCleared    AuditAction = "cleared"
)

// TrailThroughAudit is an immutable trail-through history entry.
type TrailThroughAudit struct {
	ID        string      `json:"id"`
	TS        float64     `json:"ts"`
	SectionID string      `json:"section_id"`
	Action    AuditAction `json:"action"`
	Confirmed bool        `json:"confirm_status"`
}

// SystemEvent is a free-form operational log entry.
type SystemEvent struct {
	TS          float64 `json:"ts"`
	EventID     string  `json:"event_id"`
	Description string  `json:"event_desc"`
}

// Recorder is the durable store as the engine sees it. All writes are
// append or keyed update; none are read back during a tick.
type Recorder interface {
	RecordSnapshot(s Snapshot) error
	RecordSectionEvent(ev SectionEvent) error
	RecordTransit(m TransitMark) error
	RecordTrailThrough(a TrailThroughAlert) error
	RecordTrailThroughAudit(a TrailThroughAudit) error
	ConfirmTrailThrough(sectionID string, ts float64) error
	RecordTrainTrace(ev SectionEvent) error
	RecordDetectionPoints(d DetectionPoints) error
	RecordSystemEvent(ev SystemEvent) error
}

// NopRecorder discards every write.
type NopRecorder struct{}

func (NopRecorder) RecordSnapshot(Snapshot) error                   { return nil }
func (NopRecorder) RecordSectionEvent(SectionEvent) error           { return nil }
func (NopRecorder) RecordTransit(TransitMark) error                 { return nil }
func (NopRecorder) RecordTrailThrough(TrailThroughAlert) error      { return nil }
func (NopRecorder) RecordTrailThroughAudit(TrailThroughAudit) error { return nil }
func (NopRecorder) ConfirmTrailThrough(string, float64) error       { return nil }
func (NopRecorder) RecordTrainTrace(SectionEvent) error             { return nil }
func (NopRecorder) RecordDetectionPoints(DetectionPoints) error     { return nil }
func (NopRecorder) RecordSystemEvent(SystemEvent) error             { return nil }

type job struct {
	name string
	fn   func(Recorder) error
}

// AsyncRecorder queues writes for a single background writer so that a tick
// never waits on the store. Writes are at-most-once: a full queue drops the
// write and a failed write is logged, not retried.
type AsyncRecorder struct {
	next    Recorder
	jobs    chan job
	dropped atomic.Uint64
	failed  atomic.Uint64
	written atomic.Uint64
}

// NewAsyncRecorder wraps next with a queue of size entries. Run must be
// started for writes to reach next.
func NewAsyncRecorder(next Recorder, size int) *AsyncRecorder {
	if size < 1 {
		size = 1
	}
	return &AsyncRecorder{next: next, jobs: make(chan job, size)}
}

// Run writes queued jobs until ctx is cancelled, then flushes what is
// already queued and returns.
func (a *AsyncRecorder) Run(ctx context.Context) error {
	for {
		select {
		case j := <-a.jobs:
			a.do(j)
		case <-ctx.Done():
			for {
				select {
				case j := <-a.jobs:
					a.do(j)
				default:
					return nil
				}
			}
		}
	}
}

func (a *AsyncRecorder) do(j job) {
	if err := j.fn(a.next); err != nil {
		a.failed.Add(1)
		monitoring.Errorf("persistence failure: %s: %v", j.name, err)
		return
	}
	a.written.Add(1)
}

func (a *AsyncRecorder) enqueue(name string, fn func(Recorder) error) error {
	select {
	case a.jobs <- job{name: name, fn: fn}:
	default:
		a.dropped.Add(1)
		monitoring.Criticalf("persistence queue full, dropping %s", name)
	}
	return nil
}

// RecorderStats counts what happened to queued writes.
type RecorderStats struct {
	Queued  int    `json:"queued"`
	Written uint64 `json:"written"`
	Failed  uint64 `json:"failed"`
	Dropped uint64 `json:"dropped"`
}

// Stats returns current counters.
func (a *AsyncRecorder) Stats() RecorderStats {
	return RecorderStats{
		Queued:  len(a.jobs),
		Written: a.written.Load(),
		Failed:  a.failed.Load(),
		Dropped: a.dropped.Load(),
	}
}

func (a *AsyncRecorder) RecordSnapshot(s Snapshot) error {
	return a.enqueue("snapshot", func(r Recorder) error { return r.RecordSnapshot(s) })
}

func (a *AsyncRecorder) RecordSectionEvent(ev SectionEvent) error {
	return a.enqueue("section event", func(r Recorder) error { return r.RecordSectionEvent(ev) })
}

func (a *AsyncRecorder) RecordTransit(m TransitMark) error {
	return a.enqueue("transit "+string(m.Kind), func(r Recorder) error { return r.RecordTransit(m) })
}

func (a *AsyncRecorder) RecordTrailThrough(al TrailThroughAlert) error {
	return a.enqueue("trail-through alert", func(r Recorder) error { return r.RecordTrailThrough(al) })
}

func (a *AsyncRecorder) RecordTrailThroughAudit(au TrailThroughAudit) error {
	return a.enqueue("trail-through audit", func(r Recorder) error { return r.RecordTrailThroughAudit(au) })
}

func (a *AsyncRecorder) ConfirmTrailThrough(sectionID string, ts float64) error {
	return a.enqueue("trail-through confirm", func(r Recorder) error { return r.ConfirmTrailThrough(sectionID, ts) })
}

func (a *AsyncRecorder) RecordTrainTrace(ev SectionEvent) error {
	return a.enqueue("train trace", func(r Recorder) error { return r.RecordTrainTrace(ev) })
}

func (a *AsyncRecorder) RecordDetectionPoints(d DetectionPoints) error {
	return a.enqueue("detection points", func(r Recorder) error { return r.RecordDetectionPoints(d) })
}

func (a *AsyncRecorder) RecordSystemEvent(ev SystemEvent) error {
	return a.enqueue("system event", func(r Recorder) error { return r.RecordSystemEvent(ev) })
}
