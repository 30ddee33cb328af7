package archive

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bakkerme/comment-sweeper/internal/core"
)

func TestFileArchive_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "comments.json")
	a, err := Open(path, ModeAppend)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	records := []core.ArchiveRecord{
		{CommentID: "b2", Subreddit: "python", Timestamp: 1700000000, Body: "multi\nline \"quoted\""},
		{CommentID: "d4", Subreddit: "java", Timestamp: 1700000100.5, Body: ""},
	}
	for _, r := range records {
		if err := a.Archive(context.Background(), r); err != nil {
			t.Fatalf("archive %s: %v", r.CommentID, err)
		}
	}
	if err := a.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if diff := cmp.Diff(records, got); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestFileArchive_RecordShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "comments.json")
	a, err := Open(path, ModeAppend)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := a.Archive(context.Background(), core.ArchiveRecord{CommentID: "b2", Subreddit: "python", Timestamp: 1, Body: "x"}); err != nil {
		t.Fatalf("archive: %v", err)
	}
	_ = a.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := "{\n  \"comment_id\": \"b2\",\n  \"subreddit\": \"python\",\n  \"timestamp\": 1,\n  \"body\": \"x\"\n}\n"
	if string(data) != want {
		t.Fatalf("archive contents = %q, want %q", string(data), want)
	}
}

func TestFileArchive_AppendKeepsEarlierRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "comments.json")
	for _, id := range []string{"first", "second"} {
		a, err := Open(path, ModeAppend)
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		if err := a.Archive(context.Background(), core.ArchiveRecord{CommentID: id}); err != nil {
			t.Fatalf("archive: %v", err)
		}
		_ = a.Close()
	}

	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 2 || got[0].CommentID != "first" || got[1].CommentID != "second" {
		t.Fatalf("records = %+v", got)
	}
}

func TestFileArchive_TruncateStartsFresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "comments.json")
	if err := os.WriteFile(path, []byte(`{"comment_id":"old"}`+"\n"), 0o600); err != nil {
		t.Fatalf("seed: %v", err)
	}

	a, err := Open(path, ModeTruncate)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := a.Archive(context.Background(), core.ArchiveRecord{CommentID: "new"}); err != nil {
		t.Fatalf("archive: %v", err)
	}
	_ = a.Close()

	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 1 || got[0].CommentID != "new" {
		t.Fatalf("records = %+v", got)
	}
}

func TestFileArchive_WriteAfterCloseFails(t *testing.T) {
	a, err := Open(filepath.Join(t.TempDir(), "comments.json"), ModeAppend)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_ = a.Close()

	err = a.Archive(context.Background(), core.ArchiveRecord{CommentID: "late"})
	var writeErr *core.ArchiveWriteError
	if !errors.As(err, &writeErr) {
		t.Fatalf("expected ArchiveWriteError, got %v", err)
	}
	if !core.IsFatal(err) {
		t.Fatalf("archive failures must be fatal")
	}
}

func TestOpen_UnwritableLocation(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, nil, 0o600); err != nil {
		t.Fatalf("seed: %v", err)
	}
	_, err := Open(filepath.Join(blocker, "comments.json"), ModeAppend)
	var writeErr *core.ArchiveWriteError
	if !errors.As(err, &writeErr) {
		t.Fatalf("expected ArchiveWriteError, got %v", err)
	}
}

func TestReadAll_ConcatenatedWithoutNewlines(t *testing.T) {
	stream := `{"comment_id":"a","subreddit":"x","timestamp":1,"body":""}{"comment_id":"b","subreddit":"y","timestamp":2,"body":"z"}`
	got, err := ReadAll(strings.NewReader(stream))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 2 || got[1].Body != "z" {
		t.Fatalf("records = %+v", got)
	}
}

func TestReadAll_CorruptTail(t *testing.T) {
	stream := `{"comment_id":"a"}` + "\n" + `{"comment_id":`
	got, err := ReadAll(strings.NewReader(stream))
	if err == nil {
		t.Fatalf("expected error for truncated record")
	}
	if len(got) != 1 {
		t.Fatalf("expected the intact record to be returned, got %d", len(got))
	}
}

func TestSummarize(t *testing.T) {
	records := []core.ArchiveRecord{
		{CommentID: "a", Subreddit: "python", Timestamp: 30},
		{CommentID: "b", Subreddit: "java", Timestamp: 10},
		{CommentID: "c", Subreddit: "python", Timestamp: 5},
		{CommentID: "d", Subreddit: "cpp", Timestamp: 7},
	}
	want := []SubredditCount{
		{Subreddit: "python", Count: 2, Oldest: 5, Newest: 30},
		{Subreddit: "cpp", Count: 1, Oldest: 7, Newest: 7},
		{Subreddit: "java", Count: 1, Oldest: 10, Newest: 10},
	}
	if diff := cmp.Diff(want, Summarize(records)); diff != "" {
		t.Fatalf("summary mismatch (-want +got):\n%s", diff)
	}
	if got := Summarize(nil); len(got) != 0 {
		t.Fatalf("expected empty summary, got %v", got)
	}
}
