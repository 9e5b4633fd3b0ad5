package sync

import "github.com/wesm/github-feedback/internal/models"

// ListKind names one of the cached issue lists
type ListKind string

const (
	ListOpen   ListKind = "open"
	ListClosed ListKind = "closed"
)

// Status is the loading state of a list
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusLoaded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusLoaded:
		return "loaded"
	case StatusFailed:
		return "failed"
	default:
		return "idle"
	}
}

// ListState is a snapshot of one cached list. Err holds the last load
// failure and is cleared by the next successful load.
type ListState struct {
	Status Status
	Issues []models.Issue
	Err    error
}

func (st ListState) clone() ListState {
	if st.Issues != nil {
		issues := make([]models.Issue, len(st.Issues))
		copy(issues, st.Issues)
		st.Issues = issues
	}
	return st
}

// Event is delivered to subscribers after a list changes. Concurrent updates
// may be delivered out of order; Seq increases with every change, so a
// subscriber should ignore an event whose Seq is not above the last one it
// applied.
type Event struct {
	Seq   uint64
	List  ListKind
	State ListState
}

// CommentsState holds the flags of the most recent comment load
type CommentsState struct {
	Number  int
	Loading bool
	Err     error
}
