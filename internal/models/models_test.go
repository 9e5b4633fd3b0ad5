package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func labels(names ...string) []Label {
	out := make([]Label, len(names))
	for i, n := range names {
		out[i] = Label{ID: int64(i + 1), Name: n, Color: "ededed"}
	}
	return out
}

func TestClassification(t *testing.T) {
	tests := []struct {
		name    string
		labels  []string
		bug     bool
		feature bool
	}{
		{"none", nil, false, false},
		{"bug", []string{"bug", "user-submitted"}, true, false},
		{"feature", []string{"feature-request"}, false, true},
		{"both", []string{"bug", "feature-request"}, true, true},
		{"display form does not match", []string{"Bug", "Feature Request"}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issue := &Issue{Labels: labels(tt.labels...)}
			assert.Equal(t, tt.bug, issue.IsBug())
			assert.Equal(t, tt.feature, issue.IsFeatureRequest())
			assert.Equal(t, tt.bug || tt.feature, issue.IsFeedback())
		})
	}
}

func TestDisplayLabels(t *testing.T) {
	issue := &Issue{Labels: labels("feature-request", "user-submitted", "needs-triage")}

	got := issue.DisplayLabels()
	require.Len(t, got, 2)
	assert.Equal(t, "Feature Request", got[0].Name)
	assert.Equal(t, "Needs Triage", got[1].Name)

	// raw names are untouched
	assert.Equal(t, "feature-request", issue.Labels[0].Name)
	assert.True(t, issue.IsFeatureRequest())
}

func TestNextLabel(t *testing.T) {
	issue := &Issue{Labels: labels("bug", "user-submitted", "high-priority", "ios")}
	next := issue.NextLabel()
	require.NotNil(t, next)
	assert.Equal(t, "High Priority", next.Name)

	issue = &Issue{Labels: labels("bug", "user-submitted")}
	assert.Nil(t, issue.NextLabel())
}

func TestDisplayableBody(t *testing.T) {
	issue := &Issue{Body: "Hello\n\n---\n**Device Information:**\nfoo\n\n---\n👍 Votes: 5"}
	assert.Equal(t, "Hello", issue.DisplayableBody())

	issue = &Issue{}
	assert.Equal(t, "", issue.DisplayableBody())
}

func TestWasEdited(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		updated time.Time
		want    bool
	}{
		{"same instant", created, false},
		{"thirty seconds", created.Add(30 * time.Second), false},
		{"exactly a minute", created.Add(60 * time.Second), false},
		{"ninety seconds", created.Add(90 * time.Second), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issue := &Issue{CreatedAt: created, UpdatedAt: tt.updated}
			assert.Equal(t, tt.want, issue.WasEdited())
		})
	}
}

func TestClosedOn(t *testing.T) {
	issue := &Issue{State: StateOpen}
	assert.Equal(t, "", issue.ClosedOn())

	closed := time.Date(2026, 3, 1, 23, 30, 0, 0, time.UTC)
	issue = &Issue{State: StateClosed, ClosedAt: &closed}
	assert.Equal(t, "2026-03-01", issue.ClosedOn())
}

func TestFeedbackTypeLabel(t *testing.T) {
	assert.Equal(t, "bug", FeedbackBug.Label())
	assert.Equal(t, "feature-request", FeedbackFeatureRequest.Label())
	assert.Equal(t, "feature", FeedbackFeatureRequest.String())
}
