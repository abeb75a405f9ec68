package serialmux

import (
	"encoding/json"

	"github.com/banshee-data/yardwatch/internal/yard"
)

const (
	EventTypeSnapshot    = "snapshot"
	EventTypePoint       = "point"
	EventTypeClear       = "clear"
	EventTypeTorpedoInfo = "torpedo_info"
	EventTypeDetection   = "detection_points"
	EventTypeMalformed   = "malformed"
	EventTypeUnknown     = "unknown"
)

// decodeKeys splits a gateway line into its top-level JSON keys.
func decodeKeys(payload string) (map[string]json.RawMessage, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &keys); err != nil {
		return nil, &yard.MalformedMessageError{Reason: err.Error()}
	}
	if keys == nil {
		return nil, &yard.MalformedMessageError{Reason: "not a JSON object"}
	}
	return keys, nil
}

// ClassifyPayload returns the message type of a gateway line from the keys
// of its top-level JSON object. A line that is not a JSON object is
// malformed. A bare {"section_id"} is a trail-through clear, and any other
// ts-stamped object is taken for a snapshot so that validation names the
// missing field.
func ClassifyPayload(payload string) string {
	keys, err := decodeKeys(payload)
	if err != nil {
		return EventTypeMalformed
	}
	has := func(k string) bool {
		_, ok := keys[k]
		return ok
	}
	switch {
	case has("sections"):
		return EventTypeSnapshot
	case has("dps"):
		return EventTypeDetection
	case has("points"), has("point_status"):
		return EventTypePoint
	case has("clear_trail_through"):
		return EventTypeClear
	case has("section_id") && len(keys) == 1:
		return EventTypeClear
	case has("torpedo_id") && has("section_id"):
		return EventTypeTorpedoInfo
	case has("ts"):
		return EventTypeSnapshot
	}
	return EventTypeUnknown
}
