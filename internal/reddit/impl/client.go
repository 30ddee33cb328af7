package impl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/bakkerme/comment-sweeper/internal/core"
	"github.com/bakkerme/comment-sweeper/internal/reddit"
)

const (
	defaultTokenURL = "https://www.reddit.com/api/v1/access_token"
	defaultAPIURL   = "https://oauth.reddit.com"
)

// Client talks to the Reddit API with plain net/http. The first page of a
// listing is requested with an explicitly empty after parameter.
type Client struct {
	client      *http.Client
	tokenURL    string
	apiURL      string
	maxBodySize int64
}

func NewClient(timeout time.Duration, tokenURL, apiURL string) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if strings.TrimSpace(tokenURL) == "" {
		tokenURL = defaultTokenURL
	}
	if strings.TrimSpace(apiURL) == "" {
		apiURL = defaultAPIURL
	}
	return &Client{
		client:      &http.Client{Timeout: timeout},
		tokenURL:    tokenURL,
		apiURL:      strings.TrimRight(apiURL, "/"),
		maxBodySize: 10 << 20, // 10 MiB
	}
}

// WithTransport replaces the round tripper used for every request.
func (c *Client) WithTransport(rt http.RoundTripper) *Client {
	c.client.Transport = rt
	return c
}

// Authenticate performs the password grant and returns a Session bound to the
// resulting access token. The token is never refreshed.
func (c *Client) Authenticate(ctx context.Context, creds core.Credentials) (reddit.Session, error) {
	httpClient := &http.Client{
		Timeout:   c.client.Timeout,
		Transport: &userAgentTransport{userAgent: creds.UserAgent, base: c.client.Transport},
	}

	cfg := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  c.tokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
	tokenCtx := context.WithValue(ctx, oauth2.HTTPClient, httpClient)
	token, err := cfg.PasswordCredentialsToken(tokenCtx, creds.Username, creds.Password)
	if err != nil {
		return nil, &core.AuthError{Err: err}
	}
	if token.AccessToken == "" {
		return nil, &core.AuthError{Err: errors.New("token response has no access_token")}
	}

	return &Session{
		client:      httpClient,
		apiURL:      c.apiURL,
		token:       *token,
		maxBodySize: c.maxBodySize,
	}, nil
}

// Session is an authenticated API handle. It holds its own copy of the token.
type Session struct {
	client      *http.Client
	apiURL      string
	token       oauth2.Token
	maxBodySize int64
}

func (s *Session) SubscribedPage(ctx context.Context, after string) (reddit.SubredditPage, error) {
	var payload listing[subredditData]
	if err := s.getJSON(ctx, "/subreddits/mine/subscriber", after, &payload); err != nil {
		return reddit.SubredditPage{}, err
	}

	page := reddit.SubredditPage{
		Names: make([]string, 0, len(payload.Data.Children)),
		After: payload.after(),
	}
	for _, child := range payload.Data.Children {
		name, ok := child.Data.name()
		if !ok {
			page.Skipped++
			continue
		}
		page.Names = append(page.Names, name)
	}
	return page, nil
}

func (s *Session) CommentsPage(ctx context.Context, username, after string) (reddit.CommentPage, error) {
	var payload listing[core.CommentRecord]
	path := "/user/" + url.PathEscape(username) + "/comments"
	if err := s.getJSON(ctx, path, after, &payload); err != nil {
		return reddit.CommentPage{}, err
	}

	page := reddit.CommentPage{
		Records: make([]core.CommentRecord, 0, len(payload.Data.Children)),
		After:   payload.after(),
	}
	for _, child := range payload.Data.Children {
		page.Records = append(page.Records, child.Data)
	}
	return page, nil
}

func (s *Session) DeleteComment(ctx context.Context, fullName string) error {
	form := url.Values{}
	form.Set("id", fullName)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL+"/api/del", strings.NewReader(form.Encode()))
	if err != nil {
		return &core.DeleteError{CommentID: fullName, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	s.token.SetAuthHeader(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return &core.DeleteError{CommentID: fullName, Err: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, s.maxBodySize))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &core.DeleteError{
			CommentID:  fullName,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}
	return nil
}

func (s *Session) getJSON(ctx context.Context, path, after string, v any) error {
	query := url.Values{}
	query.Set("after", after)
	endpoint := s.apiURL + path + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	s.token.SetAuthHeader(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	limited := io.LimitReader(resp.Body, s.maxBodySize+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return err
	}
	if int64(len(body)) > s.maxBodySize {
		return fmt.Errorf("reddit: response too large")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(body))
		if msg != "" {
			msg = ": " + msg
		}
		return fmt.Errorf("reddit: status %d%s", resp.StatusCode, msg)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode reddit response: %w", err)
	}
	if c, ok := v.(interface{ check() error }); ok {
		if err := c.check(); err != nil {
			return fmt.Errorf("decode reddit response: %w", err)
		}
	}
	return nil
}

type listing[T any] struct {
	Kind string `json:"kind"`
	Data *struct {
		After    *string `json:"after"`
		Children []struct {
			Kind string `json:"kind"`
			Data T      `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// check rejects 2xx bodies that are not listings, such as {} or an error
// object. Decoding those as an empty page would look like zero subscriptions.
func (l *listing[T]) check() error {
	if l.Kind != "Listing" {
		return fmt.Errorf("expected kind Listing, got %q", l.Kind)
	}
	if l.Data == nil {
		return errors.New("listing has no data")
	}
	return nil
}

func (l listing[T]) after() string {
	if l.Data.After == nil {
		return ""
	}
	return *l.Data.After
}

type subredditData struct {
	DisplayName json.RawMessage `json:"display_name"`
}

// name returns display_name when it is a non-empty string.
func (d subredditData) name() (string, bool) {
	var name string
	if len(d.DisplayName) == 0 || json.Unmarshal(d.DisplayName, &name) != nil || name == "" {
		return "", false
	}
	return name, true
}

type userAgentTransport struct {
	userAgent string
	base      http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	clone := req.Clone(req.Context())
	clone.Header.Set("User-Agent", t.userAgent)
	return base.RoundTrip(clone)
}
