package sweeper

import "github.com/bakkerme/comment-sweeper/internal/core"

// Limits bound a single pagination loop.
type Limits struct {
	MaxPages int
}

// pager walks a listing by its after cursor. It refuses to request the same
// cursor twice and stops after MaxPages requests.
type pager struct {
	phase    string
	maxPages int
	cursor   string
	pages    int
	done     bool
	seen     map[string]struct{}
}

func newPager(phase string, limits Limits) *pager {
	return &pager{
		phase:    phase,
		maxPages: limits.MaxPages,
		seen:     map[string]struct{}{},
	}
}

// Cursor returns the cursor for the next request. The first one is "".
func (p *pager) Cursor() string { return p.cursor }

func (p *pager) Done() bool { return p.done }

func (p *pager) Pages() int { return p.pages }

// Advance records a fetched page whose response carried after.
func (p *pager) Advance(after string) error {
	p.pages++
	if after == "" {
		p.done = true
		return nil
	}
	if _, dup := p.seen[after]; dup || after == p.cursor {
		return &core.PaginationError{Phase: p.phase, Cursor: after, Pages: p.pages, Reason: "cursor repeated"}
	}
	if p.maxPages > 0 && p.pages >= p.maxPages {
		return &core.PaginationError{Phase: p.phase, Cursor: after, Pages: p.pages, Reason: "page limit reached"}
	}
	p.seen[after] = struct{}{}
	p.cursor = after
	return nil
}
