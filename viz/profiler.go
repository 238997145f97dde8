package viz

import "github.com/goccy/go-json"

// EventTime is one unit's profiler entry in seconds from solve start (§6
// "Profiler report"). ChildrenReturn is nil for a leaf unit, which never
// forks children.
type EventTime struct {
	Start          float64
	ChildrenReturn *float64
	End            float64
}

// ProfilerReport is the full profiler output: one EventTime per partition
// tree unit, indexed by unit index, or nil for a unit that has not yet
// started (§6 "one per unit").
type ProfilerReport struct {
	EventTimeVec []*EventTime
}

func (e EventTime) keyed() map[string]interface{} {
	out := map[string]interface{}{
		"start": e.Start,
		"end":   e.End,
	}
	if e.ChildrenReturn != nil {
		out["children_return"] = *e.ChildrenReturn
	}

	return out
}

// Marshal encodes the profiler report as JSON (§6 "event_time_vec").
func (r ProfilerReport) Marshal() ([]byte, error) {
	vec := make([]map[string]interface{}, len(r.EventTimeVec))
	for i, e := range r.EventTimeVec {
		if e == nil {
			continue
		}
		vec[i] = e.keyed()
	}

	return json.Marshal(map[string]interface{}{"event_time_vec": vec})
}
