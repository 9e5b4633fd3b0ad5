package api

import (
	"context"
	"fmt"
	"time"

	"github.com/shurcooL/githubv4"
)

// GraphQLClient represents a client for the GitHub GraphQL API
type GraphQLClient struct {
	client *githubv4.Client
	owner  string
	repo   string
}

// NewGraphQLClient creates a new GraphQL client for owner/repo
func NewGraphQLClient(owner, repo, token string, opts ...Option) *GraphQLClient {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	httpClient := newHTTPClient(token, o)

	var client *githubv4.Client
	if o.graphqlURL != "" {
		client = githubv4.NewEnterpriseClient(o.graphqlURL, httpClient)
	} else {
		client = githubv4.NewClient(httpClient)
	}
	return &GraphQLClient{client: client, owner: owner, repo: repo}
}

// RepositoryStatus summarizes whether the configured token can use the feedback repository
type RepositoryStatus struct {
	Viewer             string
	FullName           string
	HasIssuesEnabled   bool
	OpenIssues         int
	RateLimitRemaining int
	RateLimitResetAt   time.Time
}

// RepositoryStatus checks the token and repository in a single query
func (c *GraphQLClient) RepositoryStatus(ctx context.Context) (*RepositoryStatus, error) {
	var query struct {
		Viewer struct {
			Login githubv4.String
		}
		RateLimit struct {
			Remaining githubv4.Int
			ResetAt   githubv4.DateTime
		}
		Repository struct {
			NameWithOwner    githubv4.String
			HasIssuesEnabled githubv4.Boolean
			Issues           struct {
				TotalCount githubv4.Int
			} `graphql:"issues(states: OPEN)"`
		} `graphql:"repository(owner: $owner, name: $name)"`
	}

	variables := map[string]interface{}{
		"owner": githubv4.String(c.owner),
		"name":  githubv4.String(c.repo),
	}

	if err := c.client.Query(ctx, &query, variables); err != nil {
		return nil, fmt.Errorf("failed to query repository status: %w", err)
	}

	return &RepositoryStatus{
		Viewer:             string(query.Viewer.Login),
		FullName:           string(query.Repository.NameWithOwner),
		HasIssuesEnabled:   bool(query.Repository.HasIssuesEnabled),
		OpenIssues:         int(query.Repository.Issues.TotalCount),
		RateLimitRemaining: int(query.RateLimit.Remaining),
		RateLimitResetAt:   query.RateLimit.ResetAt.Time,
	}, nil
}
