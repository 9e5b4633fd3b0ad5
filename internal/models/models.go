package models

import (
	"strings"
	"time"

	"github.com/wesm/github-feedback/internal/votes"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Label names with meaning to the feedback board
const (
	LabelBug            = "bug"
	LabelFeatureRequest = "feature-request"
	LabelUserSubmitted  = "user-submitted"
)

// editGrace is how long after creation updates are still treated as server-side churn
const editGrace = 60 * time.Second

// IssueState is the open/closed state of an issue
type IssueState string

const (
	StateOpen   IssueState = "open"
	StateClosed IssueState = "closed"
)

// FeedbackType classifies a feedback submission
type FeedbackType int

const (
	FeedbackBug FeedbackType = iota
	FeedbackFeatureRequest
)

// Label returns the GitHub label carried by issues of this type
func (t FeedbackType) Label() string {
	if t == FeedbackFeatureRequest {
		return LabelFeatureRequest
	}
	return LabelBug
}

// String implements fmt.Stringer
func (t FeedbackType) String() string {
	if t == FeedbackFeatureRequest {
		return "feature"
	}
	return "bug"
}

// User represents a GitHub user
type User struct {
	ID        int64
	Login     string
	AvatarURL string
}

// Label represents a GitHub label
type Label struct {
	ID    int64
	Name  string
	Color string
}

// DisplayName is the label name title-cased with hyphens turned into spaces
func (l Label) DisplayName() string {
	// Casers carry state and are not safe to share between goroutines
	return cases.Title(language.English).String(strings.ReplaceAll(l.Name, "-", " "))
}

// Issue represents a GitHub issue used as a feedback item
type Issue struct {
	ID        int64
	Number    int
	Title     string
	Body      string
	State     IssueState
	Labels    []Label
	CreatedAt time.Time
	UpdatedAt time.Time
	ClosedAt  *time.Time
	User      *User

	// VoteCount is decoded from Body once, when the issue is converted
	VoteCount int
}

// HasLabel reports whether the issue carries a label with the raw name
func (i *Issue) HasLabel(name string) bool {
	for _, l := range i.Labels {
		if l.Name == name {
			return true
		}
	}
	return false
}

// IsBug reports whether the issue is labelled as a bug
func (i *Issue) IsBug() bool { return i.HasLabel(LabelBug) }

// IsFeatureRequest reports whether the issue is labelled as a feature request
func (i *Issue) IsFeatureRequest() bool { return i.HasLabel(LabelFeatureRequest) }

// IsFeedback reports whether the issue is a bug report or feature request
func (i *Issue) IsFeedback() bool { return i.IsBug() || i.IsFeatureRequest() }

// DisplayableBody is the body without the vote, device and legacy sections
func (i *Issue) DisplayableBody() string {
	return votes.Strip(i.Body)
}

// DisplayLabels returns every label except the internal user-submitted tag,
// with display names in Name
func (i *Issue) DisplayLabels() []Label {
	var out []Label
	for _, l := range i.Labels {
		if l.Name == LabelUserSubmitted {
			continue
		}
		out = append(out, Label{ID: l.ID, Name: l.DisplayName(), Color: l.Color})
	}
	return out
}

// NextLabel returns the first label that is not a feedback classification
// label, transformed for display, or nil when there is none
func (i *Issue) NextLabel() *Label {
	for _, l := range i.Labels {
		switch l.Name {
		case LabelBug, LabelFeatureRequest, LabelUserSubmitted:
			continue
		}
		return &Label{ID: l.ID, Name: l.DisplayName(), Color: l.Color}
	}
	return nil
}

// WasEdited reports whether the issue was updated more than a minute after creation
func (i *Issue) WasEdited() bool {
	return i.UpdatedAt.Sub(i.CreatedAt) > editGrace
}

// ClosedOn returns the day the issue was closed as YYYY-MM-DD, or "" while it is open
func (i *Issue) ClosedOn() string {
	if i.ClosedAt == nil {
		return ""
	}
	return i.ClosedAt.Format(time.DateOnly)
}

// Comment represents a GitHub issue comment
type Comment struct {
	ID        int64
	Body      string
	User      *User
	CreatedAt time.Time
	UpdatedAt time.Time
}
