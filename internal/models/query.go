package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// DefaultLimit is the page size used when a query does not set one.
const DefaultLimit = 100

// SortOrder selects timestamp ordering for query results.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// TimeRange bounds a query window. Both ends are inclusive.
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the range.
func (r TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// QueryOptions controls pagination and ordering.
type QueryOptions struct {
	Limit     int       `json:"limit,omitempty"`
	Offset    int       `json:"offset,omitempty"`
	SortOrder SortOrder `json:"sortOrder,omitempty"`
}

// WithDefaults fills unset fields: limit 100, offset 0, descending order.
func (o QueryOptions) WithDefaults() QueryOptions {
	if o.Limit <= 0 {
		o.Limit = DefaultLimit
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	if o.SortOrder != SortAsc {
		o.SortOrder = SortDesc
	}
	return o
}

// SystemQueryResult is the page of signals returned for a single system.
// Count is the number of matching signals before pagination.
type SystemQueryResult struct {
	System  string   `json:"system"`
	Signals []Signal `json:"signals"`
	Count   int      `json:"count"`
}

// SignalQuery carries the optional filters of a query-signals call.
type SignalQuery struct {
	System    string
	TimeRange *TimeRange
	Options   QueryOptions
}

// ResultKind reports which result shape the query produces.
func (q SignalQuery) ResultKind() SignalsResultKind {
	switch {
	case q.System != "":
		return ResultSystem
	case q.TimeRange != nil:
		return ResultSignals
	default:
		return ResultSystems
	}
}

// SignalsResultKind tags the active variant of SignalsResult.
type SignalsResultKind string

const (
	ResultSignals SignalsResultKind = "signals"
	ResultSystem  SignalsResultKind = "system"
	ResultSystems SignalsResultKind = "systems"
)

// SignalsResult is the answer to a query-signals call: a flat signal list,
// one system result, or one result per known system.
type SignalsResult struct {
	Kind    SignalsResultKind
	Signals []Signal
	System  *SystemQueryResult
	Systems []SystemQueryResult
}

// MarshalJSON encodes only the active variant.
func (r SignalsResult) MarshalJSON() ([]byte, error) {
	switch r.Kind {
	case ResultSignals:
		if r.Signals == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(r.Signals)
	case ResultSystem:
		if r.System == nil {
			return []byte("null"), nil
		}
		return json.Marshal(r.System)
	case ResultSystems:
		if r.Systems == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(r.Systems)
	default:
		return nil, fmt.Errorf("unknown signals result kind %q", r.Kind)
	}
}

// UnmarshalJSON decodes into the variant named by Kind. When Kind is unset it
// is inferred from the document: an object is a system result, an array whose
// elements carry "system" is a systems list, any other array is a signal list.
func (r *SignalsResult) UnmarshalJSON(data []byte) error {
	kind := r.Kind
	if kind == "" {
		kind = sniffResultKind(data)
	}
	out := SignalsResult{Kind: kind}
	switch kind {
	case ResultSignals:
		if err := json.Unmarshal(data, &out.Signals); err != nil {
			return err
		}
	case ResultSystem:
		var sys SystemQueryResult
		if err := json.Unmarshal(data, &sys); err != nil {
			return err
		}
		out.System = &sys
	case ResultSystems:
		if err := json.Unmarshal(data, &out.Systems); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown signals result kind %q", kind)
	}
	*r = out
	return nil
}

func sniffResultKind(data []byte) SignalsResultKind {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return ResultSystem
	}
	var head []map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &head); err == nil && len(head) > 0 {
		if _, ok := head[0]["system"]; ok {
			return ResultSystems
		}
	}
	return ResultSignals
}
