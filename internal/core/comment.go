package core

import (
	"strings"
	"time"
)

// CommentKindPrefix is the type marker Reddit prepends to comment IDs to form a fullname.
const CommentKindPrefix = "t1_"

// Credentials identify the script app and the account it acts on behalf of.
type Credentials struct {
	UserAgent    string
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
}

// Validate reports every required credential that is empty.
func (c Credentials) Validate() error {
	var missing []string
	if strings.TrimSpace(c.UserAgent) == "" {
		missing = append(missing, "USER_AGENT")
	}
	if strings.TrimSpace(c.ClientID) == "" {
		missing = append(missing, "CLIENT_ID")
	}
	if strings.TrimSpace(c.ClientSecret) == "" {
		missing = append(missing, "CLIENT_SECRET")
	}
	if strings.TrimSpace(c.Username) == "" {
		missing = append(missing, "USERNAME")
	}
	if c.Password == "" {
		missing = append(missing, "PASSWORD")
	}
	if len(missing) > 0 {
		return &ConfigError{Missing: missing}
	}
	return nil
}

// SubscribedSet is the set of community names a user is subscribed to.
// Names are compared case-sensitively.
type SubscribedSet map[string]struct{}

func NewSubscribedSet(names ...string) SubscribedSet {
	set := make(SubscribedSet, len(names))
	for _, name := range names {
		set.Add(name)
	}
	return set
}

func (s SubscribedSet) Add(name string) {
	s[name] = struct{}{}
}

func (s SubscribedSet) Contains(name string) bool {
	_, ok := s[name]
	return ok
}

func (s SubscribedSet) Len() int {
	return len(s)
}

// CommentRecord is a comment as it appears on the wire. Required fields are
// pointers so that absence can be told apart from a zero value.
type CommentRecord struct {
	ID         *string  `json:"id"`
	Subreddit  *string  `json:"subreddit"`
	CreatedUTC *float64 `json:"created_utc"`
	Body       *string  `json:"body"`
}

// Decode validates the record and returns the comment it describes.
func (r CommentRecord) Decode() (Comment, error) {
	var missing []string
	if r.ID == nil || *r.ID == "" {
		missing = append(missing, "id")
	}
	if r.Subreddit == nil || *r.Subreddit == "" {
		missing = append(missing, "subreddit")
	}
	if r.CreatedUTC == nil {
		missing = append(missing, "created_utc")
	}
	if len(missing) > 0 {
		id := ""
		if r.ID != nil {
			id = *r.ID
		}
		return Comment{}, &RecordShapeError{CommentID: id, Missing: missing}
	}

	comment := Comment{
		ID:         *r.ID,
		Subreddit:  *r.Subreddit,
		CreatedUTC: *r.CreatedUTC,
	}
	if r.Body != nil {
		comment.Body = *r.Body
	}
	return comment, nil
}

// Comment is a single comment from the user's history.
type Comment struct {
	ID         string
	Subreddit  string
	CreatedUTC float64
	Body       string
}

// FullName returns the ID with the comment type marker, as the delete endpoint expects.
func (c Comment) FullName() string {
	if strings.HasPrefix(c.ID, CommentKindPrefix) {
		return c.ID
	}
	return CommentKindPrefix + c.ID
}

func (c Comment) CreatedAt() time.Time {
	sec := int64(c.CreatedUTC)
	nsec := int64((c.CreatedUTC - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec).UTC()
}

// ArchiveRecord is what gets written to the archive before a comment is deleted.
type ArchiveRecord struct {
	CommentID string  `json:"comment_id"`
	Subreddit string  `json:"subreddit"`
	Timestamp float64 `json:"timestamp"`
	Body      string  `json:"body"`
}

func NewArchiveRecord(c Comment) ArchiveRecord {
	return ArchiveRecord{
		CommentID: c.ID,
		Subreddit: c.Subreddit,
		Timestamp: c.CreatedUTC,
		Body:      c.Body,
	}
}
