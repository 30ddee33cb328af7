package sweeper

import (
	"fmt"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/bakkerme/comment-sweeper/internal/core"
)

// Protector keeps comments that would otherwise be deleted. It is consulted
// only for comments outside the subscribed set, so it can never widen what
// gets deleted.
type Protector struct {
	subreddits core.SubscribedSet
	rule       string
	program    *vm.Program
	now        func() time.Time
}

// NewProtector compiles rule, if any. An empty rule protects nothing beyond
// the listed subreddits.
func NewProtector(subreddits []string, rule string) (*Protector, error) {
	p := &Protector{
		subreddits: core.NewSubscribedSet(),
		rule:       strings.TrimSpace(rule),
		now:        time.Now,
	}
	for _, name := range subreddits {
		if name = strings.TrimSpace(name); name != "" {
			p.subreddits.Add(name)
		}
	}
	if p.rule == "" {
		return p, nil
	}
	program, err := expr.Compile(p.rule, expr.Env(protectEnv(core.Comment{}, time.Time{})), expr.AsBool())
	if err != nil {
		return nil, &core.ConfigError{Err: fmt.Errorf("compile protect rule: %w", err)}
	}
	p.program = program
	return p, nil
}

// Protected reports whether c must be kept and, if so, why.
func (p *Protector) Protected(c core.Comment) (bool, string, error) {
	if p == nil {
		return false, "", nil
	}
	if p.subreddits.Contains(c.Subreddit) {
		return true, "protected subreddit", nil
	}
	if p.program == nil {
		return false, "", nil
	}
	result, err := expr.Run(p.program, protectEnv(c, p.now()))
	if err != nil {
		return false, "", fmt.Errorf("evaluate protect rule for %s: %w", c.ID, err)
	}
	matched, ok := result.(bool)
	if !ok {
		return false, "", fmt.Errorf("protect rule did not return bool")
	}
	if matched {
		return true, "protect rule", nil
	}
	return false, "", nil
}

func protectEnv(c core.Comment, now time.Time) map[string]interface{} {
	createdAt := c.CreatedAt()
	ageDays := 0.0
	if !now.IsZero() {
		ageDays = now.Sub(createdAt).Hours() / 24
	}
	return map[string]interface{}{
		"subreddit": c.Subreddit,
		"body": map[string]interface{}{
			"value":  c.Body,
			"length": len(c.Body),
		},
		"created_at": createdAt,
		"age_days":   ageDays,
	}
}
