// Package archive records deleted comments in a local file.
//
// The file is a stream of pretty-printed JSON objects, one per comment,
// separated by newlines. It is not a JSON array; read it with ReadAll or any
// decoder that accepts concatenated JSON values.
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/bakkerme/comment-sweeper/internal/core"
)

// Archiver durably records a comment before it is deleted.
type Archiver interface {
	Archive(ctx context.Context, record core.ArchiveRecord) error
	Close() error
}

// Mode controls what happens to an existing archive when it is opened.
type Mode int

const (
	// ModeAppend keeps earlier records and appends to them.
	ModeAppend Mode = iota
	// ModeTruncate starts the archive from scratch.
	ModeTruncate
)

// File is an Archiver writing to a single file on disk.
type File struct {
	mu   sync.Mutex
	path string
	f    *os.File
	size int64
}

// Open creates the parent directory if needed and opens path according to mode.
func Open(path string, mode Mode) (*File, error) {
	if path == "" {
		return nil, &core.ArchiveWriteError{Err: fmt.Errorf("archive path is required")}
	}
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &core.ArchiveWriteError{Path: path, Err: fmt.Errorf("create archive directory: %w", err)}
		}
	}

	flags := os.O_CREATE | os.O_WRONLY
	if mode == ModeTruncate {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_APPEND
	}
	f, err := os.OpenFile(path, flags, 0o600)
	if err != nil {
		return nil, &core.ArchiveWriteError{Path: path, Err: err}
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, &core.ArchiveWriteError{Path: path, Err: err}
	}
	return &File{path: path, f: f, size: info.Size()}, nil
}

func (a *File) Path() string {
	return a.path
}

// Archive writes record as one whole JSON object and syncs it to disk. On a
// failed write the file is cut back to its previous length so no partial
// record is left behind.
func (a *File) Archive(ctx context.Context, record core.ArchiveRecord) error {
	_ = ctx
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return &core.ArchiveWriteError{Path: a.path, Err: fmt.Errorf("marshal record: %w", err)}
	}
	data = append(data, '\n')

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.f == nil {
		return &core.ArchiveWriteError{Path: a.path, Err: os.ErrClosed}
	}

	n, err := a.f.Write(data)
	if err == nil && n != len(data) {
		err = io.ErrShortWrite
	}
	if err == nil {
		err = a.f.Sync()
	}
	if err != nil {
		if truncErr := a.f.Truncate(a.size); truncErr != nil {
			err = errors.Join(err, fmt.Errorf("roll back partial record: %w", truncErr))
		}
		return &core.ArchiveWriteError{Path: a.path, Err: err}
	}
	a.size += int64(n)
	return nil
}

func (a *File) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.f == nil {
		return nil
	}
	err := a.f.Close()
	a.f = nil
	if err != nil {
		return &core.ArchiveWriteError{Path: a.path, Err: err}
	}
	return nil
}

// ReadAll decodes every record in an archive stream.
func ReadAll(r io.Reader) ([]core.ArchiveRecord, error) {
	dec := json.NewDecoder(r)
	var records []core.ArchiveRecord
	for {
		var record core.ArchiveRecord
		err := dec.Decode(&record)
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return records, fmt.Errorf("decode archive record %d: %w", len(records)+1, err)
		}
		records = append(records, record)
	}
}

// ReadFile decodes every record in the archive at path.
func ReadFile(path string) ([]core.ArchiveRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadAll(f)
}

// Discard is an Archiver that only logs. It backs dry runs.
type Discard struct{}

func (Discard) Archive(ctx context.Context, record core.ArchiveRecord) error {
	core.LoggerFromContext(ctx).Info("dry run: would archive comment", "comment_id", record.CommentID, "subreddit", record.Subreddit)
	return nil
}

func (Discard) Close() error { return nil }

// SubredditCount is the number of archived comments from one community.
type SubredditCount struct {
	Subreddit string
	Count     int
	Oldest    float64
	Newest    float64
}

// Summarize groups records by community, largest first. Ties are broken by
// name.
func Summarize(records []core.ArchiveRecord) []SubredditCount {
	index := map[string]int{}
	var counts []SubredditCount
	for _, r := range records {
		i, ok := index[r.Subreddit]
		if !ok {
			i = len(counts)
			index[r.Subreddit] = i
			counts = append(counts, SubredditCount{Subreddit: r.Subreddit, Oldest: r.Timestamp, Newest: r.Timestamp})
		}
		c := &counts[i]
		c.Count++
		c.Oldest = min(c.Oldest, r.Timestamp)
		c.Newest = max(c.Newest, r.Timestamp)
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Subreddit < counts[j].Subreddit
	})
	return counts
}
