package domain

import "leadflow_backend/platform/apperr"

// Status is a lead's legacy pipeline position. It is kept in lockstep with
// the lead's stage for consumers that still read the four-value enum.
type Status string

const (
	StatusNew                Status = "new"
	StatusInterviewScheduled Status = "interview_scheduled"
	StatusCompleted          Status = "completed"
	StatusRejected           Status = "rejected"
)

// AllStatuses lists every valid status value in pipeline order.
var AllStatuses = []Status{StatusNew, StatusInterviewScheduled, StatusCompleted, StatusRejected}

// IsValid reports whether s is one of the known status values.
func (s Status) IsValid() bool {
	switch s {
	case StatusNew, StatusInterviewScheduled, StatusCompleted, StatusRejected:
		return true
	}
	return false
}

// allowedTransitions is the legacy status graph. Completed and rejected are
// terminal. A scheduled interview can be walked back to new when it falls
// through.
var allowedTransitions = map[Status][]Status{
	StatusNew:                {StatusInterviewScheduled, StatusRejected},
	StatusInterviewScheduled: {StatusNew, StatusCompleted, StatusRejected},
	StatusCompleted:          {},
	StatusRejected:           {},
}

// AllowedNext returns the statuses reachable from current.
func AllowedNext(current Status) []Status {
	return allowedTransitions[current]
}

// CanTransition reports whether moving from current to next is allowed by
// the legacy status graph. Self-transitions are rejected.
func CanTransition(current, next Status) bool {
	for _, allowed := range allowedTransitions[current] {
		if allowed == next {
			return true
		}
	}
	return false
}

// TransitionPolicy decides whether a lead may move between pipeline
// positions. The fixed policy enforces the legacy status graph; the free
// policy allows any move between distinct stages.
type TransitionPolicy interface {
	// Name identifies the active policy in logs and config errors.
	Name() string
	// Validate returns nil when the move is allowed, or a typed
	// invalid-transition error describing the rejected move.
	Validate(current, next Status) error
}

// FixedEnumPolicy enforces the legacy four-value status graph.
type FixedEnumPolicy struct{}

func (FixedEnumPolicy) Name() string { return "fixed" }

func (FixedEnumPolicy) Validate(current, next Status) error {
	if !next.IsValid() {
		return apperr.Validation("unknown status " + string(next))
	}
	if !CanTransition(current, next) {
		return apperr.InvalidTransition(string(current), string(next))
	}
	return nil
}

// FreeStagePolicy allows any move between distinct statuses. It backs the
// board's drag-and-drop moves, where stage order carries no workflow meaning.
type FreeStagePolicy struct{}

func (FreeStagePolicy) Name() string { return "free" }

func (FreeStagePolicy) Validate(current, next Status) error {
	if !next.IsValid() {
		return apperr.Validation("unknown status " + string(next))
	}
	if current == next {
		return apperr.InvalidTransition(string(current), string(next))
	}
	return nil
}

// PolicyForMode maps the configured transition mode to its policy.
// Unknown modes fall back to the fixed policy.
func PolicyForMode(mode string) TransitionPolicy {
	if mode == "free" {
		return FreeStagePolicy{}
	}
	return FixedEnumPolicy{}
}
