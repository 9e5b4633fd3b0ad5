package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/go-github/v57/github"
)

// Gateway error kinds, matched with errors.Is
var (
	ErrInvalidURL      = errors.New("invalid URL")
	ErrInvalidResponse = errors.New("invalid response")
	ErrFailedToCreate  = errors.New("failed to create")
	ErrFailedToUpdate  = errors.New("failed to update")
	ErrTransport       = errors.New("transport failure")
)

// Error is returned by every GitHubClient operation that fails
type Error struct {
	Op         string
	Kind       error
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %v (status %d)", e.Op, e.Kind, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the error's kind sentinel
func (e *Error) Is(target error) bool { return target == e.Kind }

// opKind selects which kind a non-2xx status maps to
type opKind int

const (
	opRead opKind = iota
	opCreate
	opUpdate
)

// classify maps a go-github result onto the gateway error taxonomy.
// The response body of a failed request is not inspected.
func classify(op string, kind opKind, resp *github.Response, err error) error {
	if err == nil {
		return nil
	}

	e := &Error{Op: op, Err: err}
	var urlErr *url.Error

	switch {
	case resp != nil && resp.Response != nil && !isSuccess(resp.StatusCode):
		e.StatusCode = resp.StatusCode
		switch kind {
		case opCreate:
			e.Kind = ErrFailedToCreate
		case opUpdate:
			e.Kind = ErrFailedToUpdate
		default:
			e.Kind = ErrInvalidResponse
		}
	case resp != nil && resp.Response != nil:
		// 2xx with an undecodable payload
		e.Kind = ErrInvalidResponse
	case errors.As(err, &urlErr), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		e.Kind = ErrTransport
	default:
		// request could not be built
		e.Kind = ErrInvalidURL
	}
	return e
}

func isSuccess(status int) bool {
	return status >= http.StatusOK && status <= 299
}
