// Package trigger emits run events on a cron schedule.
package trigger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/bakkerme/comment-sweeper/internal/core"
)

// Cron fires a TriggerEvent each time its schedule matches. A tick that fires
// while the consumer is busy, for example in the middle of a run, is dropped.
type Cron struct {
	schedule string
	timezone string

	mu     sync.Mutex
	cron   *cron.Cron
	events chan core.TriggerEvent
}

func NewCron(schedule, timezone string) *Cron {
	return &Cron{schedule: schedule, timezone: timezone}
}

func (c *Cron) Schedule() string { return c.schedule }

func (c *Cron) Validate() error {
	if c.schedule == "" {
		return &core.ConfigError{Err: fmt.Errorf("cron schedule is required")}
	}
	if _, err := cron.ParseStandard(c.schedule); err != nil {
		return &core.ConfigError{Err: fmt.Errorf("invalid cron schedule %q: %w", c.schedule, err)}
	}
	if _, err := c.location(); err != nil {
		return &core.ConfigError{Err: fmt.Errorf("invalid timezone: %w", err)}
	}
	return nil
}

func (c *Cron) location() (*time.Location, error) {
	if c.timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.timezone)
}

// Start begins emitting events until ctx is cancelled, at which point the
// returned channel is closed.
func (c *Cron) Start(ctx context.Context) (<-chan core.TriggerEvent, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	location, err := c.location()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cron != nil {
		return nil, fmt.Errorf("cron trigger already started")
	}

	// Unbuffered with a non-blocking send: a tick is delivered only if the
	// consumer is waiting for it.
	events := make(chan core.TriggerEvent)
	sched := cron.New(cron.WithLocation(location))
	_, err = sched.AddFunc(c.schedule, func() {
		select {
		case events <- core.TriggerEvent{
			Timestamp: time.Now().UTC(),
			Metadata:  map[string]interface{}{"schedule": c.schedule},
		}:
		default:
		}
	})
	if err != nil {
		return nil, err
	}
	c.cron = sched
	c.events = events
	sched.Start()

	go func() {
		<-ctx.Done()
		c.stop()
	}()

	return events, nil
}

func (c *Cron) stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cron == nil {
		return
	}
	<-c.cron.Stop().Done()
	close(c.events)
	c.cron = nil
	c.events = nil
}
