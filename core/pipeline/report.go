package pipeline

import (
	"sort"
	"time"
)

// Report summarizes one sync batch.
type Report struct {
	RunID     string              `json:"run_id"`
	Direction string              `json:"direction"`
	Container string              `json:"container"`
	Total     int                 `json:"total"`
	Completed int                 `json:"completed"`
	Failed    map[string]string   `json:"failed"`
	Missing   map[string][]string `json:"missing"`
	Duration  time.Duration       `json:"duration"`
}

// FailedKeys returns the failed record keys, sorted.
func (r *Report) FailedKeys() []string {
	keys := make([]string, 0, len(r.Failed))
	for k := range r.Failed {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// OK reports whether every record completed.
func (r *Report) OK() bool {
	return r.Completed == r.Total && len(r.Failed) == 0
}
