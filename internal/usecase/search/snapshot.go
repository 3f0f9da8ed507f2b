package search

import (
	"github.com/kailas-cloud/pawmatch/internal/domain"
	"github.com/kailas-cloud/pawmatch/internal/domain/dog"
	"github.com/kailas-cloud/pawmatch/internal/domain/search/filter"
	"github.com/kailas-cloud/pawmatch/internal/domain/search/page"
)

// Status is the orchestrator state.
type Status string

// Orchestrator states.
const (
	Idle    Status = "idle"
	Loading Status = "loading"
	Success Status = "success"
	Failed  Status = "error"
)

// Snapshot is an immutable view of the search state.
// Page and Dogs always hold the last successful result, also while loading
// or after a failed re-query, so callers can keep showing it next to the error.
type Snapshot struct {
	Version uint64
	Status  Status
	// Filter is the query the status refers to.
	Filter filter.State
	Page   page.Page
	Dogs   []dog.Dog
	Err    error
}

// CanNext reports whether the "next page" action is available.
func (s Snapshot) CanNext() bool { return s.Status == Success && s.Page.HasNext() }

// CanPrev reports whether the "previous page" action is available.
func (s Snapshot) CanPrev() bool { return s.Status == Success && s.Page.HasPrev() }

// NoResults reports a successful query that matched nothing.
// It is distinct from the Failed state.
func (s Snapshot) NoResults() bool { return s.Status == Success && len(s.Dogs) == 0 }

// ErrorMessage returns the user-facing message for the Failed state.
func (s Snapshot) ErrorMessage() string {
	if s.Status != Failed {
		return ""
	}
	return domain.UserMessage(s.Err)
}
