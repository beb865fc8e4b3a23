package schedule

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/moofone/codex-go/internal/logger"
)

// compactTimeout bounds one compact submission
const compactTimeout = 30 * time.Second

// Compacter submits a conversation compaction request
type Compacter interface {
	Compact(ctx context.Context) (string, error)
}

// Compactor periodically asks the runtime to compact the conversation so
// long-lived sessions do not grow without bound. Runs are best effort: a
// failed compact is logged and the schedule keeps going.
type Compactor struct {
	target Compacter
	sched  cron.Schedule
	expr   string

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewCompactor creates a compactor from a 5-field cron expression, for
// example "0 */4 * * *" for every four hours
func NewCompactor(target Compacter, expr string) (*Compactor, error) {
	sched, err := ParseCron(expr)
	if err != nil {
		return nil, err
	}
	return &Compactor{
		target: target,
		sched:  sched,
		expr:   expr,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}, nil
}

// NextRun returns the next scheduled compaction after the given time
func (c *Compactor) NextRun(after time.Time) time.Time {
	return c.sched.Next(after)
}

// Start launches the schedule loop
func (c *Compactor) Start() {
	go c.run()
	logger.Info("compactor started (%s), next run %s", c.expr, c.NextRun(time.Now()).Format(time.RFC3339))
}

// Stop ends the schedule loop and waits for it to exit
func (c *Compactor) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
	<-c.done
}

func (c *Compactor) run() {
	defer close(c.done)

	for {
		next := c.sched.Next(time.Now())
		timer := time.NewTimer(time.Until(next))

		select {
		case <-timer.C:
			c.compactOnce()
		case <-c.stop:
			timer.Stop()
			return
		}
	}
}

func (c *Compactor) compactOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), compactTimeout)
	defer cancel()

	if _, err := c.target.Compact(ctx); err != nil {
		logger.Error("scheduled compact failed: %v", err)
		return
	}
	logger.Info("scheduled compact submitted")
}
