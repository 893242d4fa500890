package engine

// Status is the reconciliation state of one node.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApplying  Status = "applying"
	StatusApplied   Status = "applied"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transition can occur.
func (s Status) Terminal() bool {
	switch s {
	case StatusApplied, StatusFailed, StatusSkipped, StatusCancelled:
		return true
	}
	return false
}
