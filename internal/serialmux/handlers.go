package serialmux

import (
	"errors"
	"fmt"

	"github.com/banshee-data/yardwatch/internal/monitoring"
	"github.com/banshee-data/yardwatch/internal/yard"
)

// HandleSnapshot runs one engine tick for a snapshot line.
func HandleSnapshot(e *yard.Engine, payload string) error {
	s, err := yard.ParseSnapshot([]byte(payload))
	if err != nil {
		return err
	}
	rep := e.ProcessSnapshot(s)
	for _, ev := range rep.Events {
		monitoring.WithSection(ev.SectionID).Infof("%s torpedo=%s engine=%s", ev.Kind, ev.TorpedoID, ev.EngineID)
	}
	for _, id := range rep.NewAlerts {
		monitoring.WithSection(id).Warnf("trail-through detected")
	}
	return nil
}

func HandlePoints(e *yard.Engine, payload string) error {
	updates, err := yard.ParsePoints([]byte(payload))
	if err != nil {
		return err
	}
	return e.ApplyPoints(updates...)
}

func HandleClear(e *yard.Engine, payload string) error {
	sectionID, err := yard.ParseClear([]byte(payload))
	if err != nil {
		return err
	}
	cleared, err := e.ClearTrailThrough(sectionID)
	if err != nil {
		return err
	}
	if !cleared {
		monitoring.WithSection(sectionID).Infof("clear requested with no open trail-through alert")
	}
	return nil
}

func HandleTorpedoInfo(e *yard.Engine, payload string) error {
	a, err := yard.ParseTorpedoAssignment([]byte(payload))
	if err != nil {
		return err
	}
	return e.AssignTorpedo(a)
}

// HandleDetectionPoints records a raw DPU report. It does not touch the engine.
func HandleDetectionPoints(rec yard.Recorder, payload string) error {
	d, err := yard.ParseDetectionPoints([]byte(payload))
	if err != nil {
		return err
	}
	return rec.RecordDetectionPoints(d)
}

// HandleEvent dispatches one gateway line. Malformed lines, including lines
// that are not JSON at all, are logged at critical severity and dropped whole; unknown sections and points are
// logged as warnings. The returned error is for the caller's counters only:
// nothing is reported back over the transport.
func HandleEvent(e *yard.Engine, rec yard.Recorder, payload string) error {
	kind := ClassifyPayload(payload)

	var err error
	switch kind {
	case EventTypeMalformed:
		_, err = decodeKeys(payload)
	case EventTypeSnapshot:
		err = HandleSnapshot(e, payload)
	case EventTypePoint:
		err = HandlePoints(e, payload)
	case EventTypeClear:
		err = HandleClear(e, payload)
	case EventTypeTorpedoInfo:
		err = HandleTorpedoInfo(e, payload)
	case EventTypeDetection:
		err = HandleDetectionPoints(rec, payload)
	default:
		monitoring.Warnf("unknown event type: %.200s", payload)
		return nil
	}
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, yard.ErrMalformedMessage):
		monitoring.Criticalf("dropping %s message: %v", kind, err)
	case errors.Is(err, yard.ErrNotFound):
		monitoring.Warnf("%s message: %v", kind, err)
	default:
		monitoring.Errorf("%s message: %v", kind, err)
	}
	return fmt.Errorf("failed to handle %s event: %w", kind, err)
}
