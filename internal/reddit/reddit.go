package reddit

import (
	"context"

	"github.com/bakkerme/comment-sweeper/internal/core"
)

// SubredditPage is one page of the subscribed-communities listing.
type SubredditPage struct {
	Names   []string
	Skipped int // children without a display name
	After   string
}

// CommentPage is one page of a user's comment history.
type CommentPage struct {
	Records []core.CommentRecord
	After   string
}

// Session is an authenticated connection to the Reddit API. Implementations
// issue exactly one HTTP request per call.
type Session interface {
	SubscribedPage(ctx context.Context, after string) (SubredditPage, error)
	CommentsPage(ctx context.Context, username, after string) (CommentPage, error)
	// DeleteComment deletes the comment with the given fullname ("t1_..."). A
	// refusal by the server is reported as *core.DeleteError.
	DeleteComment(ctx context.Context, fullName string) error
}

// Client exchanges credentials for a Session.
type Client interface {
	Authenticate(ctx context.Context, creds core.Credentials) (Session, error)
}
