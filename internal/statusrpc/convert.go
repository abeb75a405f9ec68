package statusrpc

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/banshee-data/yardwatch/internal/yard"
)

// ToStruct converts a status to its wire message.
func ToStruct(st yard.Status) (*structpb.Struct, error) {
	raw, err := json.Marshal(st)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}

// FromStruct is the inverse of ToStruct.
func FromStruct(msg *structpb.Struct) (yard.Status, error) {
	var st yard.Status
	raw, err := json.Marshal(msg.AsMap())
	if err != nil {
		return st, err
	}
	if err := json.Unmarshal(raw, &st); err != nil {
		return st, fmt.Errorf("decode status: %w", err)
	}
	return st, nil
}
