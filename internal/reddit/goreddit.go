package reddit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	goreddit "github.com/vartanbeno/go-reddit/v2/reddit"

	"github.com/bakkerme/comment-sweeper/internal/core"
)

// GoRedditClient is a Client backed by go-reddit. go-reddit owns the token
// exchange and the listing decode; explicitAfterTransport keeps its requests
// identical to the net/http backend's.
type GoRedditClient struct {
	timeout   time.Duration
	transport http.RoundTripper
	tokenURL  string
	apiURL    string
	logger    *slog.Logger
}

func NewGoRedditClient(logger *slog.Logger, timeout time.Duration, tokenURL, apiURL string) *GoRedditClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &GoRedditClient{
		timeout:  timeout,
		tokenURL: tokenURL,
		apiURL:   apiURL,
		logger:   logger,
	}
}

// WithTransport replaces the round tripper under go-reddit's OAuth transport.
func (c *GoRedditClient) WithTransport(rt http.RoundTripper) *GoRedditClient {
	c.transport = rt
	return c
}

func (c *GoRedditClient) Authenticate(ctx context.Context, creds core.Credentials) (Session, error) {
	// go-reddit wraps the transport of the client it is given, so every
	// session gets its own http.Client.
	httpClient := &http.Client{Timeout: c.timeout, Transport: &explicitAfterTransport{base: c.transport}}
	opts := []goreddit.Opt{
		goreddit.WithHTTPClient(httpClient),
		goreddit.WithUserAgent(creds.UserAgent),
	}
	if c.tokenURL != "" {
		opts = append(opts, goreddit.WithTokenURL(c.tokenURL))
	}
	if c.apiURL != "" {
		opts = append(opts, goreddit.WithBaseURL(c.apiURL))
	}

	c.logger.Info("Using go-reddit client", slog.String("clientID", creds.ClientID))
	client, err := goreddit.NewClient(goreddit.Credentials{
		ID:       creds.ClientID,
		Secret:   creds.ClientSecret,
		Username: creds.Username,
		Password: creds.Password,
	}, opts...)
	if err != nil {
		return nil, &core.AuthError{Err: err}
	}

	// The token is fetched lazily; ask for the account so that a bad password
	// fails here and not halfway through a listing.
	if _, _, err := client.Account.Info(ctx); err != nil {
		return nil, &core.AuthError{Err: fmt.Errorf("verify account: %w", err)}
	}
	return &goRedditSession{client: client}, nil
}

type goRedditSession struct {
	client *goreddit.Client
}

func (s *goRedditSession) SubscribedPage(ctx context.Context, after string) (SubredditPage, error) {
	subs, resp, err := s.client.Subreddit.Subscribed(ctx, &goreddit.ListSubredditOptions{
		ListOptions: goreddit.ListOptions{After: after},
	})
	if err != nil {
		return SubredditPage{}, err
	}

	page := SubredditPage{Names: make([]string, 0, len(subs))}
	for _, sub := range subs {
		if sub == nil || sub.Name == "" {
			page.Skipped++
			continue
		}
		page.Names = append(page.Names, sub.Name)
	}
	if resp != nil {
		page.After = resp.After
	}
	return page, nil
}

func (s *goRedditSession) CommentsPage(ctx context.Context, username, after string) (CommentPage, error) {
	comments, resp, err := s.client.User.CommentsOf(ctx, username, &goreddit.ListUserOverviewOptions{
		ListOptions: goreddit.ListOptions{After: after},
	})
	if err != nil {
		return CommentPage{}, err
	}

	page := CommentPage{Records: make([]core.CommentRecord, 0, len(comments))}
	for _, c := range comments {
		if c == nil {
			continue
		}
		page.Records = append(page.Records, recordFromGoReddit(c))
	}
	if resp != nil {
		page.After = resp.After
	}
	return page, nil
}

func (s *goRedditSession) DeleteComment(ctx context.Context, fullName string) error {
	resp, err := s.client.Comment.Delete(ctx, fullName)
	if err == nil {
		return nil
	}
	deleteErr := &core.DeleteError{CommentID: fullName, Err: err}
	if resp != nil && resp.Response != nil {
		deleteErr.StatusCode = resp.StatusCode
	}
	var apiErr *goreddit.ErrorResponse
	if errors.As(err, &apiErr) {
		deleteErr.Body = apiErr.Message
		if apiErr.Response != nil {
			deleteErr.StatusCode = apiErr.Response.StatusCode
		}
	}
	return deleteErr
}

func recordFromGoReddit(c *goreddit.Comment) core.CommentRecord {
	var record core.CommentRecord
	if c.ID != "" {
		id := c.ID
		record.ID = &id
	}
	if c.SubredditName != "" {
		sub := c.SubredditName
		record.Subreddit = &sub
	}
	if c.Created != nil {
		created := float64(c.Created.Unix())
		record.CreatedUTC = &created
	}
	body := c.Body
	record.Body = &body
	return record
}

// explicitAfterTransport adds an empty after parameter to the first request of
// a listing. go-reddit leaves empty options out of the query string.
type explicitAfterTransport struct {
	base http.RoundTripper
}

func (t *explicitAfterTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	if req.Method != http.MethodGet || !isListingPath(req.URL.Path) {
		return base.RoundTrip(req)
	}
	query := req.URL.Query()
	if _, ok := query["after"]; ok {
		return base.RoundTrip(req)
	}
	query.Set("after", "")
	clone := req.Clone(req.Context())
	clone.URL.RawQuery = query.Encode()
	return base.RoundTrip(clone)
}

func isListingPath(path string) bool {
	if strings.HasSuffix(path, "/subreddits/mine/subscriber") {
		return true
	}
	return strings.Contains(path, "/user/") && strings.HasSuffix(path, "/comments")
}
