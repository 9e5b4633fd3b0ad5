package sync

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/wesm/github-feedback/internal/models"
	"github.com/wesm/github-feedback/internal/votes"
)

// fakeGateway is an in-memory GitHub repository
type fakeGateway struct {
	mu         sync.Mutex
	issues     map[int]*models.Issue
	comments   map[int][]models.Comment
	nextNumber int
	calls      map[string]int
	errs       map[string]error

	// when getGate is set, GetIssue reports on getStarted and blocks until the gate closes
	getGate    chan struct{}
	getStarted chan int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		issues:     make(map[int]*models.Issue),
		comments:   make(map[int][]models.Comment),
		nextNumber: 1,
		calls:      make(map[string]int),
		errs:       make(map[string]error),
	}
}

func (f *fakeGateway) seed(title, body string, state models.IssueState, labels ...string) *models.Issue {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := time.Date(2026, 1, 1, 0, 0, f.nextNumber, 0, time.UTC)
	issue := &models.Issue{
		ID:        int64(1000 + f.nextNumber),
		Number:    f.nextNumber,
		Title:     title,
		Body:      body,
		State:     state,
		Labels:    toLabels(labels),
		CreatedAt: now,
		UpdatedAt: now,
		VoteCount: votes.Decode(body),
	}
	f.issues[issue.Number] = issue
	f.nextNumber++
	return issue
}

func toLabels(names []string) []models.Label {
	out := make([]models.Label, len(names))
	for i, n := range names {
		out[i] = models.Label{Name: n}
	}
	return out
}

// enter records a call and returns the injected error for it, with f.mu held
func (f *fakeGateway) enter(op string) error {
	f.mu.Lock()
	f.calls[op]++
	return f.errs[op]
}

func (f *fakeGateway) setErr(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[op] = err
}

func (f *fakeGateway) callCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeGateway) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeGateway) issue(number int) models.Issue {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.issues[number]
}

func (f *fakeGateway) list(state models.IssueState, keep func(*models.Issue) bool) []models.Issue {
	var out []models.Issue
	for _, issue := range f.issues {
		if issue.State == state && keep(issue) {
			out = append(out, *issue)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number > out[j].Number })
	return out
}

func (f *fakeGateway) ListOpenIssues(ctx context.Context) ([]models.Issue, error) {
	err := f.enter("ListOpenIssues")
	defer f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.list(models.StateOpen, func(*models.Issue) bool { return true }), nil
}

func (f *fakeGateway) ListClosedIssues(ctx context.Context) ([]models.Issue, error) {
	err := f.enter("ListClosedIssues")
	defer f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.list(models.StateClosed, func(i *models.Issue) bool { return i.IsFeedback() }), nil
}

func (f *fakeGateway) GetIssue(ctx context.Context, number int) (*models.Issue, error) {
	err := f.enter("GetIssue")
	gate, started := f.getGate, f.getStarted
	f.mu.Unlock()

	if gate != nil {
		started <- number
		<-gate
	}
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	issue := *f.issues[number]
	return &issue, nil
}

func (f *fakeGateway) CreateIssue(ctx context.Context, title, body string, labels []string) (*models.Issue, error) {
	err := f.enter("CreateIssue")
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	issue := f.seed(title, body, models.StateOpen, labels...)
	out := *issue
	return &out, nil
}

func (f *fakeGateway) UpdateIssueContent(ctx context.Context, number int, title, body string, labels []string) (*models.Issue, error) {
	err := f.enter("UpdateIssueContent")
	defer f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	issue := f.issues[number]
	issue.Title = title
	issue.Body = body
	issue.Labels = toLabels(labels)
	issue.VoteCount = votes.Decode(body)
	out := *issue
	return &out, nil
}

func (f *fakeGateway) UpdateIssueBody(ctx context.Context, number int, body string) (*models.Issue, error) {
	err := f.enter("UpdateIssueBody")
	defer f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	issue := f.issues[number]
	issue.Body = body
	issue.VoteCount = votes.Decode(body)
	out := *issue
	return &out, nil
}

func (f *fakeGateway) SetIssueState(ctx context.Context, number int, state models.IssueState) (*models.Issue, error) {
	err := f.enter("SetIssueState")
	defer f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	issue := f.issues[number]
	issue.State = state
	out := *issue
	return &out, nil
}

func (f *fakeGateway) ListComments(ctx context.Context, number int) ([]models.Comment, error) {
	err := f.enter("ListComments")
	defer f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return append([]models.Comment(nil), f.comments[number]...), nil
}

func (f *fakeGateway) AddComment(ctx context.Context, number int, body string) (*models.Comment, error) {
	err := f.enter("AddComment")
	defer f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	c := models.Comment{ID: int64(len(f.comments[number]) + 1), Body: body}
	f.comments[number] = append(f.comments[number], c)
	return &c, nil
}

// memStore keeps voted and owned numbers in memory
type memStore struct {
	mu      sync.Mutex
	voted   map[int]struct{}
	owned   map[int]struct{}
	markErr error
}

func newMemStore() *memStore {
	return &memStore{voted: make(map[int]struct{}), owned: make(map[int]struct{})}
}

func (m *memStore) HasVoted(number int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.voted[number]
	return ok
}

func (m *memStore) MarkVoted(number int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.markErr != nil {
		return m.markErr
	}
	m.voted[number] = struct{}{}
	return nil
}

func (m *memStore) OwnsIssue(number int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.owned[number]
	return ok
}

func (m *memStore) MarkOwned(number int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.markErr != nil {
		return m.markErr
	}
	m.owned[number] = struct{}{}
	return nil
}

func (m *memStore) AllOwned() map[int]struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int]struct{}, len(m.owned))
	for n := range m.owned {
		out[n] = struct{}{}
	}
	return out
}
