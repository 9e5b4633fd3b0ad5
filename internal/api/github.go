package api

import (
	"context"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"
	"github.com/wesm/github-feedback/internal/models"
	"github.com/wesm/github-feedback/internal/votes"
	"golang.org/x/oauth2"
)

// Option configures a GitHub client
type Option func(*options)

type options struct {
	baseURL    string
	graphqlURL string
	httpClient *http.Client
}

// WithBaseURL points the REST client at a different API root
func WithBaseURL(u string) Option {
	return func(o *options) { o.baseURL = u }
}

// WithGraphQLURL points the GraphQL client at a different endpoint
func WithGraphQLURL(u string) Option {
	return func(o *options) { o.graphqlURL = u }
}

// WithHTTPClient supplies the underlying HTTP client whose transport carries requests
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// newHTTPClient builds the authenticated client shared by the REST and GraphQL clients
func newHTTPClient(token string, o options) *http.Client {
	base := http.DefaultTransport
	if o.httpClient != nil && o.httpClient.Transport != nil {
		base = o.httpClient.Transport
	}

	hc := &http.Client{Transport: &headerTransport{base: base}}
	if o.httpClient != nil {
		hc.Timeout = o.httpClient.Timeout
	}

	if token == "" {
		return hc
	}

	// oauth2 layers "Authorization: Bearer <token>" over the client in ctx
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, hc)
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	return oauth2.NewClient(ctx, ts)
}

// GitHubClient talks to the issues of a single GitHub repository
type GitHubClient struct {
	client *github.Client
	owner  string
	repo   string
	urlErr error
}

// NewGitHubClient creates a new GitHub API client for owner/repo
func NewGitHubClient(owner, repo, token string, opts ...Option) *GitHubClient {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	c := &GitHubClient{
		client: github.NewClient(newHTTPClient(token, o)),
		owner:  owner,
		repo:   repo,
	}

	if o.baseURL != "" {
		raw := o.baseURL
		if !strings.HasSuffix(raw, "/") {
			raw += "/"
		}
		u, err := url.Parse(raw)
		if err != nil {
			c.urlErr = err
		} else {
			c.client.BaseURL = u
		}
	}

	return c
}

func (c *GitHubClient) precheck(op string) error {
	if c.urlErr != nil {
		return &Error{Op: op, Kind: ErrInvalidURL, Err: c.urlErr}
	}
	return nil
}

// ListOpenIssues returns the first page of open issues, newest first
func (c *GitHubClient) ListOpenIssues(ctx context.Context) ([]models.Issue, error) {
	const op = "list open issues"
	if err := c.precheck(op); err != nil {
		return nil, err
	}

	opts := &github.IssueListByRepoOptions{
		State:     "open",
		Sort:      "created",
		Direction: "desc",
	}
	issues, resp, err := c.client.Issues.ListByRepo(ctx, c.owner, c.repo, opts)
	if err := classify(op, opRead, resp, err); err != nil {
		return nil, err
	}

	return convertIssues(issues), nil
}

// ListClosedIssues returns the first page of closed feedback issues, most
// recently updated first. Issues without a bug or feature-request label,
// including pull requests, are dropped.
func (c *GitHubClient) ListClosedIssues(ctx context.Context) ([]models.Issue, error) {
	const op = "list closed issues"
	if err := c.precheck(op); err != nil {
		return nil, err
	}

	opts := &github.IssueListByRepoOptions{
		State:     "closed",
		Sort:      "updated",
		Direction: "desc",
	}
	issues, resp, err := c.client.Issues.ListByRepo(ctx, c.owner, c.repo, opts)
	if err := classify(op, opRead, resp, err); err != nil {
		return nil, err
	}

	all := convertIssues(issues)
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].UpdatedAt.After(all[j].UpdatedAt)
	})

	closed := make([]models.Issue, 0, len(all))
	for _, issue := range all {
		if issue.IsFeedback() {
			closed = append(closed, issue)
		}
	}
	return closed, nil
}

// GetIssue fetches a single issue by number
func (c *GitHubClient) GetIssue(ctx context.Context, number int) (*models.Issue, error) {
	const op = "get issue"
	if err := c.precheck(op); err != nil {
		return nil, err
	}

	issue, resp, err := c.client.Issues.Get(ctx, c.owner, c.repo, number)
	if err := classify(op, opRead, resp, err); err != nil {
		return nil, err
	}
	return ConvertGitHubIssue(issue), nil
}

// CreateIssue opens a new issue and returns it with its server-assigned number
func (c *GitHubClient) CreateIssue(ctx context.Context, title, body string, labels []string) (*models.Issue, error) {
	const op = "create issue"
	if err := c.precheck(op); err != nil {
		return nil, err
	}

	req := &github.IssueRequest{
		Title:  github.String(title),
		Body:   github.String(body),
		Labels: &labels,
	}
	issue, resp, err := c.client.Issues.Create(ctx, c.owner, c.repo, req)
	if err := classify(op, opCreate, resp, err); err != nil {
		return nil, err
	}
	return ConvertGitHubIssue(issue), nil
}

// UpdateIssueContent replaces the title, body and labels of an issue
func (c *GitHubClient) UpdateIssueContent(ctx context.Context, number int, title, body string, labels []string) (*models.Issue, error) {
	const op = "update issue"
	if err := c.precheck(op); err != nil {
		return nil, err
	}

	req := &github.IssueRequest{
		Title:  github.String(title),
		Body:   github.String(body),
		Labels: &labels,
	}
	issue, resp, err := c.client.Issues.Edit(ctx, c.owner, c.repo, number, req)
	if err := classify(op, opUpdate, resp, err); err != nil {
		return nil, err
	}
	return ConvertGitHubIssue(issue), nil
}

// UpdateIssueBody replaces only the body of an issue
func (c *GitHubClient) UpdateIssueBody(ctx context.Context, number int, body string) (*models.Issue, error) {
	const op = "update issue body"
	if err := c.precheck(op); err != nil {
		return nil, err
	}

	req := &github.IssueRequest{Body: github.String(body)}
	issue, resp, err := c.client.Issues.Edit(ctx, c.owner, c.repo, number, req)
	if err := classify(op, opUpdate, resp, err); err != nil {
		return nil, err
	}
	return ConvertGitHubIssue(issue), nil
}

// SetIssueState opens or closes an issue
func (c *GitHubClient) SetIssueState(ctx context.Context, number int, state models.IssueState) (*models.Issue, error) {
	const op = "set issue state"
	if err := c.precheck(op); err != nil {
		return nil, err
	}

	req := &github.IssueRequest{State: github.String(string(state))}
	issue, resp, err := c.client.Issues.Edit(ctx, c.owner, c.repo, number, req)
	if err := classify(op, opUpdate, resp, err); err != nil {
		return nil, err
	}
	return ConvertGitHubIssue(issue), nil
}

// ListComments gets comments for an issue
func (c *GitHubClient) ListComments(ctx context.Context, number int) ([]models.Comment, error) {
	const op = "list comments"
	if err := c.precheck(op); err != nil {
		return nil, err
	}

	var all []models.Comment
	opts := &github.IssueListCommentsOptions{
		ListOptions: github.ListOptions{
			PerPage: 100,
		},
	}

	for {
		comments, resp, err := c.client.Issues.ListComments(ctx, c.owner, c.repo, number, opts)
		if err := classify(op, opRead, resp, err); err != nil {
			return nil, err
		}

		for _, comment := range comments {
			all = append(all, *ConvertGitHubComment(comment))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return all, nil
}

// AddComment posts a comment on an issue
func (c *GitHubClient) AddComment(ctx context.Context, number int, body string) (*models.Comment, error) {
	const op = "add comment"
	if err := c.precheck(op); err != nil {
		return nil, err
	}

	comment, resp, err := c.client.Issues.CreateComment(ctx, c.owner, c.repo, number, &github.IssueComment{
		Body: github.String(body),
	})
	if err := classify(op, opCreate, resp, err); err != nil {
		return nil, err
	}
	return ConvertGitHubComment(comment), nil
}

func convertIssues(issues []*github.Issue) []models.Issue {
	out := make([]models.Issue, 0, len(issues))
	for _, issue := range issues {
		out = append(out, *ConvertGitHubIssue(issue))
	}
	return out
}

// ConvertGitHubUser converts a GitHub user to our model
func ConvertGitHubUser(user *github.User) *models.User {
	if user == nil {
		return nil
	}

	return &models.User{
		ID:        user.GetID(),
		Login:     user.GetLogin(),
		AvatarURL: user.GetAvatarURL(),
	}
}

// ConvertGitHubIssue converts a GitHub issue to our model, decoding its vote count
func ConvertGitHubIssue(issue *github.Issue) *models.Issue {
	var closedAt *time.Time
	if issue.ClosedAt != nil {
		t := issue.ClosedAt.Time
		closedAt = &t
	}

	labels := make([]models.Label, 0, len(issue.Labels))
	for _, label := range issue.Labels {
		labels = append(labels, ConvertGitHubLabel(label))
	}

	body := issue.GetBody()
	return &models.Issue{
		ID:        issue.GetID(),
		Number:    issue.GetNumber(),
		Title:     issue.GetTitle(),
		Body:      body,
		State:     models.IssueState(issue.GetState()),
		Labels:    labels,
		CreatedAt: issue.GetCreatedAt().Time,
		UpdatedAt: issue.GetUpdatedAt().Time,
		ClosedAt:  closedAt,
		User:      ConvertGitHubUser(issue.User),
		VoteCount: votes.Decode(body),
	}
}

// ConvertGitHubComment converts a GitHub comment to our model
func ConvertGitHubComment(comment *github.IssueComment) *models.Comment {
	return &models.Comment{
		ID:        comment.GetID(),
		Body:      comment.GetBody(),
		User:      ConvertGitHubUser(comment.User),
		CreatedAt: comment.GetCreatedAt().Time,
		UpdatedAt: comment.GetUpdatedAt().Time,
	}
}

// ConvertGitHubLabel converts a GitHub label to our model
func ConvertGitHubLabel(label *github.Label) models.Label {
	return models.Label{
		ID:    label.GetID(),
		Name:  label.GetName(),
		Color: label.GetColor(),
	}
}
