package engine

import (
	"time"

	"github.com/anneal-io/anneal/internal/graph"
)

// Record is the per-node outcome of one run. Created as Pending at run
// start and owned by the single worker applying the node; once the status
// is terminal the record is never mutated again.
type Record struct {
	Identity graph.Identity
	Status   Status
	Err      error
	Outputs  map[string]any
	Duration time.Duration
}

// Report aggregates every Record of one run.
type Report struct {
	RunID    string
	Started  time.Time
	Duration time.Duration

	order     []graph.Identity
	records   map[graph.Identity]*Record
	sensitive map[graph.Identity][]string
}

func newReport(runID string, g *graph.Graph, order []graph.Identity) *Report {
	r := &Report{
		RunID:     runID,
		Started:   time.Now().UTC(),
		order:     order,
		records:   make(map[graph.Identity]*Record, len(order)),
		sensitive: make(map[graph.Identity][]string, len(order)),
	}
	for _, id := range order {
		r.records[id] = &Record{Identity: id, Status: StatusPending}
		if n, ok := g.Node(id); ok && len(n.Sensitive) > 0 {
			r.sensitive[id] = n.Sensitive
		}
	}
	return r
}

// Succeeded is true iff no node failed. Skipped and cancelled nodes do not
// count as failures on their own, but a skip always has a failed ancestor
// within the same run unless the run was cancelled.
func (r *Report) Succeeded() bool {
	for _, rec := range r.records {
		if rec.Status == StatusFailed {
			return false
		}
	}
	return true
}

// Complete is true iff every node reached Applied.
func (r *Report) Complete() bool {
	for _, rec := range r.records {
		if rec.Status != StatusApplied {
			return false
		}
	}
	return true
}

// Record looks up one node's record.
func (r *Report) Record(id graph.Identity) (*Record, bool) {
	rec, ok := r.records[id]
	return rec, ok
}

// Records returns every record in reconciliation order.
func (r *Report) Records() []*Record {
	out := make([]*Record, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.records[id])
	}
	return out
}

// OutputsOf returns the output binding of an Applied node, nil otherwise.
func (r *Report) OutputsOf(id graph.Identity) map[string]any {
	rec, ok := r.records[id]
	if !ok || rec.Status != StatusApplied {
		return nil
	}
	return rec.Outputs
}

// NodeSummary is the machine-readable outcome of one node. Sensitive
// outputs are redacted.
type NodeSummary struct {
	Status   Status         `json:"status"`
	Outputs  map[string]any `json:"outputs,omitempty"`
	Error    string         `json:"error,omitempty"`
	Duration time.Duration  `json:"duration"`
}

// Summary renders the report as identity -> outcome, with sensitive output
// values replaced by a placeholder. This is the only form intended to leave
// the process.
func (r *Report) Summary() map[string]NodeSummary {
	out := make(map[string]NodeSummary, len(r.records))
	for id, rec := range r.records {
		s := NodeSummary{
			Status:   rec.Status,
			Duration: rec.Duration,
		}
		if rec.Err != nil {
			s.Error = rec.Err.Error()
		}
		if len(rec.Outputs) > 0 {
			s.Outputs = redact(rec.Outputs, r.sensitive[id])
		}
		out[id.String()] = s
	}
	return out
}

const redacted = "(sensitive)"

func redact(outputs map[string]any, sensitive []string) map[string]any {
	out := make(map[string]any, len(outputs))
	for k, v := range outputs {
		out[k] = v
		for _, s := range sensitive {
			if k == s {
				out[k] = redacted
				break
			}
		}
	}
	return out
}
