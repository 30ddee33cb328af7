package mock

import (
	"context"
	"fmt"

	"github.com/bakkerme/comment-sweeper/internal/core"
	"github.com/bakkerme/comment-sweeper/internal/reddit"
)

// Client hands out Session after recording the credentials it was given.
type Client struct {
	Session *Session
	Err     error
	Calls   []core.Credentials
}

func (c *Client) Authenticate(ctx context.Context, creds core.Credentials) (reddit.Session, error) {
	_ = ctx
	c.Calls = append(c.Calls, creds)
	if c.Err != nil {
		return nil, c.Err
	}
	if c.Session == nil {
		c.Session = &Session{}
	}
	return c.Session, nil
}

// Session serves listing pages keyed by the requested cursor. Every call is
// appended to Events ("subscribed:<after>", "comments:<after>", "delete:<id>")
// so tests can assert on ordering.
type Session struct {
	SubscribedPages map[string]reddit.SubredditPage
	CommentPages    map[string]reddit.CommentPage
	SubscribedErr   error
	CommentsErr     error
	DeleteErrs      map[string]error

	Events  *[]string
	Deleted []string
}

func (s *Session) record(event string) {
	if s.Events != nil {
		*s.Events = append(*s.Events, event)
	}
}

func (s *Session) SubscribedPage(ctx context.Context, after string) (reddit.SubredditPage, error) {
	_ = ctx
	s.record("subscribed:" + after)
	if s.SubscribedErr != nil {
		return reddit.SubredditPage{}, s.SubscribedErr
	}
	page, ok := s.SubscribedPages[after]
	if !ok {
		return reddit.SubredditPage{}, fmt.Errorf("mock: no subscribed page for cursor %q", after)
	}
	return page, nil
}

func (s *Session) CommentsPage(ctx context.Context, username, after string) (reddit.CommentPage, error) {
	_ = ctx
	_ = username
	s.record("comments:" + after)
	if s.CommentsErr != nil {
		return reddit.CommentPage{}, s.CommentsErr
	}
	page, ok := s.CommentPages[after]
	if !ok {
		return reddit.CommentPage{}, fmt.Errorf("mock: no comment page for cursor %q", after)
	}
	return page, nil
}

func (s *Session) DeleteComment(ctx context.Context, fullName string) error {
	_ = ctx
	s.record("delete:" + fullName)
	if err, ok := s.DeleteErrs[fullName]; ok && err != nil {
		return err
	}
	s.Deleted = append(s.Deleted, fullName)
	return nil
}

// Record builds a wire record for tests.
func Record(id, subreddit string, createdUTC float64, body string) core.CommentRecord {
	return core.CommentRecord{
		ID:         &id,
		Subreddit:  &subreddit,
		CreatedUTC: &createdUTC,
		Body:       &body,
	}
}
