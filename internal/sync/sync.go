package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/patrickmn/go-cache"
	"github.com/wesm/github-feedback/internal/models"
	"github.com/wesm/github-feedback/internal/votes"
)

// Domain errors returned by the syncer
var (
	ErrAlreadyVoted = errors.New("already voted")
	ErrNotVoted     = errors.New("not voted")
	ErrVoteInFlight = errors.New("vote already in progress")
	ErrNotOwner     = errors.New("issue was not submitted from this device")

	// ErrRefreshFailed means the change was applied but reloading the
	// affected lists failed. The change is not rolled back.
	ErrRefreshFailed = errors.New("refresh after update failed")
)

// Gateway is the remote issue API the syncer drives
type Gateway interface {
	ListOpenIssues(ctx context.Context) ([]models.Issue, error)
	ListClosedIssues(ctx context.Context) ([]models.Issue, error)
	GetIssue(ctx context.Context, number int) (*models.Issue, error)
	CreateIssue(ctx context.Context, title, body string, labels []string) (*models.Issue, error)
	UpdateIssueContent(ctx context.Context, number int, title, body string, labels []string) (*models.Issue, error)
	UpdateIssueBody(ctx context.Context, number int, body string) (*models.Issue, error)
	SetIssueState(ctx context.Context, number int, state models.IssueState) (*models.Issue, error)
	ListComments(ctx context.Context, number int) ([]models.Comment, error)
	AddComment(ctx context.Context, number int, body string) (*models.Comment, error)
}

// VoteStore remembers which issues this device voted on
type VoteStore interface {
	HasVoted(number int) bool
	MarkVoted(number int) error
}

// OwnershipStore remembers which issues this device created
type OwnershipStore interface {
	OwnsIssue(number int) bool
	MarkOwned(number int) error
	AllOwned() map[int]struct{}
}

// Submission is the user-entered content of a feedback item
type Submission struct {
	Title        string
	Description  string
	Type         models.FeedbackType
	DeviceInfo   string
	ContactEmail string
}

func (s Submission) labels() []string {
	return []string{s.Type.Label(), models.LabelUserSubmitted}
}

func (s Submission) body(voteCount int) string {
	return votes.Compose(s.Description, s.DeviceInfo, s.ContactEmail, voteCount)
}

type subscriber struct {
	id int
	fn func(Event)
}

// Syncer owns the in-memory open and closed issue lists and applies feedback
// operations against GitHub and the local stores
type Syncer struct {
	client Gateway
	votes  VoteStore
	owned  OwnershipStore
	logger *slog.Logger

	// mu serializes list, comment-state and store mutations. It is never
	// held across a network call.
	mu          sync.Mutex
	lists       *cache.Cache
	comments    CommentsState
	voting      map[int]struct{}
	subscribers []subscriber
	nextSubID   int
	seq         uint64
}

// New creates a new syncer
func New(client Gateway, votes VoteStore, owned OwnershipStore, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{
		client: client,
		votes:  votes,
		owned:  owned,
		logger: logger,
		lists:  cache.New(cache.NoExpiration, 0),
		voting: make(map[int]struct{}),
	}
}

// Subscribe registers fn to be called after every list state change. The
// returned function removes the subscription.
func (s *Syncer) Subscribe(fn func(Event)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSubID++
	id := s.nextSubID
	s.subscribers = append(s.subscribers, subscriber{id: id, fn: fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subscribers {
			if sub.id == id {
				s.subscribers = append(s.subscribers[:i:i], s.subscribers[i+1:]...)
				return
			}
		}
	}
}

// State returns a copy of the current state of a list
func (s *Syncer) State(kind ListKind) ListState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list(kind).clone()
}

// list must be called with mu held
func (s *Syncer) list(kind ListKind) ListState {
	if v, ok := s.lists.Get(string(kind)); ok {
		return v.(ListState)
	}
	return ListState{Status: StatusIdle}
}

// update applies fn to a list under the lock, then notifies subscribers
func (s *Syncer) update(kind ListKind, fn func(*ListState)) {
	s.mu.Lock()
	st := s.list(kind)
	fn(&st)
	s.lists.Set(string(kind), st, cache.NoExpiration)
	s.seq++
	ev := Event{Seq: s.seq, List: kind}
	subs := make([]subscriber, len(s.subscribers))
	copy(subs, s.subscribers)
	s.mu.Unlock()

	for _, sub := range subs {
		ev.State = st.clone()
		sub.fn(ev)
	}
}

// LoadOpenIssues replaces the open list with the server's current open issues
func (s *Syncer) LoadOpenIssues(ctx context.Context) error {
	return s.load(ctx, ListOpen, s.client.ListOpenIssues)
}

// LoadClosedIssues replaces the closed list with the server's closed feedback issues
func (s *Syncer) LoadClosedIssues(ctx context.Context) error {
	return s.load(ctx, ListClosed, s.client.ListClosedIssues)
}

// load runs one Loading -> Loaded/Failed transition. A failure keeps the
// previously cached issues.
func (s *Syncer) load(ctx context.Context, kind ListKind, fetch func(context.Context) ([]models.Issue, error)) error {
	s.update(kind, func(st *ListState) { st.Status = StatusLoading })

	issues, err := fetch(ctx)
	if err != nil {
		s.logger.Warn("failed to load issues", "list", kind, "error", err)
		s.update(kind, func(st *ListState) {
			st.Status = StatusFailed
			st.Err = err
		})
		return fmt.Errorf("failed to load %s issues: %w", kind, err)
	}

	s.update(kind, func(st *ListState) {
		st.Status = StatusLoaded
		st.Issues = issues
		st.Err = nil
	})
	s.logger.Info("loaded issues", "list", kind, "count", len(issues))
	return nil
}

// RefreshAll reloads the open and closed lists in parallel
func (s *Syncer) RefreshAll(ctx context.Context) error {
	var wg sync.WaitGroup
	var openErr, closedErr error

	wg.Add(2)
	go func() {
		defer wg.Done()
		openErr = s.LoadOpenIssues(ctx)
	}()
	go func() {
		defer wg.Done()
		closedErr = s.LoadClosedIssues(ctx)
	}()
	wg.Wait()

	return errors.Join(openErr, closedErr)
}

// SubmitFeedback creates a feedback issue, records this device as its owner
// and prepends it to the open list without refetching
func (s *Syncer) SubmitFeedback(ctx context.Context, sub Submission) (*models.Issue, error) {
	issue, err := s.client.CreateIssue(ctx, sub.Title, sub.body(0), sub.labels())
	if err != nil {
		return nil, fmt.Errorf("failed to submit feedback: %w", err)
	}

	s.mu.Lock()
	markErr := s.owned.MarkOwned(issue.Number)
	s.mu.Unlock()
	if markErr != nil {
		s.logger.Warn("failed to record ownership", "number", issue.Number, "error", markErr)
	}

	s.update(ListOpen, func(st *ListState) {
		st.Issues = append([]models.Issue{*issue}, st.Issues...)
	})

	s.logger.Info("submitted feedback", "number", issue.Number, "type", sub.Type)
	return issue, nil
}

// EditFeedback replaces the content of an owned issue, keeping its vote count.
// Issues this device did not submit are rejected with ErrNotOwner before any
// request is made.
func (s *Syncer) EditFeedback(ctx context.Context, number int, sub Submission) error {
	if !s.ownsIssue(number) {
		return ErrNotOwner
	}

	current, err := s.client.GetIssue(ctx, number)
	if err != nil {
		return fmt.Errorf("failed to fetch issue #%d: %w", number, err)
	}

	if _, err := s.client.UpdateIssueContent(ctx, number, sub.Title, sub.body(current.VoteCount), sub.labels()); err != nil {
		return fmt.Errorf("failed to edit issue #%d: %w", number, err)
	}

	return refreshed(s.LoadOpenIssues(ctx))
}

// CloseFeedback closes an owned issue and reloads both lists. It returns
// ErrNotOwner for issues this device did not submit.
func (s *Syncer) CloseFeedback(ctx context.Context, number int) error {
	return s.setState(ctx, number, models.StateClosed)
}

// ReopenFeedback reopens an owned issue and reloads both lists. It returns
// ErrNotOwner for issues this device did not submit.
func (s *Syncer) ReopenFeedback(ctx context.Context, number int) error {
	return s.setState(ctx, number, models.StateOpen)
}

func (s *Syncer) setState(ctx context.Context, number int, state models.IssueState) error {
	if !s.ownsIssue(number) {
		return ErrNotOwner
	}

	if _, err := s.client.SetIssueState(ctx, number, state); err != nil {
		return fmt.Errorf("failed to set issue #%d %s: %w", number, state, err)
	}

	return refreshed(s.RefreshAll(ctx))
}

// Upvote adds this device's vote to an issue. A device votes at most once
// per issue and only one vote per issue number may be in progress.
//
// The count is read, incremented and written back, so votes cast at the same
// moment from different devices can overwrite each other.
func (s *Syncer) Upvote(ctx context.Context, number int) error {
	s.mu.Lock()
	if s.votes.HasVoted(number) {
		s.mu.Unlock()
		return ErrAlreadyVoted
	}
	if _, busy := s.voting[number]; busy {
		s.mu.Unlock()
		return ErrVoteInFlight
	}
	s.voting[number] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.voting, number)
		s.mu.Unlock()
	}()

	issue, err := s.client.GetIssue(ctx, number)
	if err != nil {
		return fmt.Errorf("failed to fetch issue #%d: %w", number, err)
	}

	count := issue.VoteCount + 1
	if _, err := s.client.UpdateIssueBody(ctx, number, votes.Encode(issue.Body, count)); err != nil {
		return fmt.Errorf("failed to vote on issue #%d: %w", number, err)
	}

	s.mu.Lock()
	markErr := s.votes.MarkVoted(number)
	s.mu.Unlock()
	if markErr != nil {
		return fmt.Errorf("vote on issue #%d was recorded but not saved locally: %w", number, markErr)
	}

	s.logger.Info("vote recorded", "number", number, "votes", count)
	return refreshed(s.LoadOpenIssues(ctx))
}

// HasVoted reports whether this device voted on the issue
func (s *Syncer) HasVoted(number int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.votes.HasVoted(number)
}

// OwnsIssue reports whether this device submitted the issue
func (s *Syncer) OwnsIssue(number int) bool {
	return s.ownsIssue(number)
}

func (s *Syncer) ownsIssue(number int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.owned.OwnsIssue(number)
}

// OwnedIssues returns the cached open and closed issues submitted from this device
func (s *Syncer) OwnedIssues() []models.Issue {
	s.mu.Lock()
	defer s.mu.Unlock()

	owned := s.owned.AllOwned()
	seen := make(map[int]bool)
	var out []models.Issue
	for _, kind := range []ListKind{ListOpen, ListClosed} {
		for _, issue := range s.list(kind).Issues {
			if _, ok := owned[issue.Number]; ok && !seen[issue.Number] {
				seen[issue.Number] = true
				out = append(out, issue)
			}
		}
	}
	return out
}

// LoadComments fetches the comments of an issue. Comments are not cached;
// only the loading and error flags are kept.
func (s *Syncer) LoadComments(ctx context.Context, number int) ([]models.Comment, error) {
	s.mu.Lock()
	s.comments = CommentsState{Number: number, Loading: true}
	s.mu.Unlock()

	comments, err := s.client.ListComments(ctx, number)

	s.mu.Lock()
	if s.comments.Number == number {
		s.comments.Loading = false
		s.comments.Err = err
	}
	s.mu.Unlock()

	if err != nil {
		return nil, fmt.Errorf("failed to load comments for issue #%d: %w", number, err)
	}
	return comments, nil
}

// CommentsState returns the flags of the most recent comment load
func (s *Syncer) CommentsState() CommentsState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.comments
}

// AddComment posts a comment on an issue
func (s *Syncer) AddComment(ctx context.Context, number int, body string) (*models.Comment, error) {
	comment, err := s.client.AddComment(ctx, number, body)
	if err != nil {
		return nil, fmt.Errorf("failed to comment on issue #%d: %w", number, err)
	}
	return comment, nil
}

func refreshed(err error) error {
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}
	return nil
}

// ParseRepositoryString parses a repository string in the format "owner/name"
func ParseRepositoryString(repoStr string) (string, string, error) {
	parts := strings.Split(repoStr, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository format, expected 'owner/name', got '%s'", repoStr)
	}
	return parts[0], parts[1], nil
}
