package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Record is the persisted form of a machine snapshot. Context is kept as raw
// JSON so stores never need to know the machine's context type.
type Record struct {
	Machine string          `json:"machine"`
	State   string          `json:"state"`
	Context json.RawMessage `json:"context"`
	SavedAt time.Time       `json:"savedAt"`
}

// NewRecord encodes ctx into a record.
func NewRecord(machine, state string, ctx any, at time.Time) (*Record, error) {
	data, err := json.Marshal(ctx)
	if err != nil {
		return nil, fmt.Errorf("encode %s context: %w", machine, err)
	}
	return &Record{Machine: machine, State: state, Context: data, SavedAt: at}, nil
}

// DecodeContext unmarshals the stored context into out.
func (r *Record) DecodeContext(out any) error {
	if len(r.Context) == 0 {
		return fmt.Errorf("record %s has no context", r.Machine)
	}
	if err := json.Unmarshal(r.Context, out); err != nil {
		return fmt.Errorf("decode %s context: %w", r.Machine, err)
	}
	return nil
}

// Clone returns a copy that shares no memory with r.
func (r *Record) Clone() *Record {
	out := *r
	out.Context = append(json.RawMessage(nil), r.Context...)
	return &out
}
