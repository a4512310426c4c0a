package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/robfig/cron/v3"
)

// DefaultPublishSchedule checks for due drafts once a minute.
const DefaultPublishSchedule = "@every 1m"

// Publisher promotes scheduled drafts to published on a cron schedule.
type Publisher struct {
	posts    *PostService
	schedule string
	logger   *log.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

// NewPublisher creates a Publisher for posts. An empty schedule uses
// DefaultPublishSchedule.
func NewPublisher(posts *PostService, schedule string, logger *log.Logger) *Publisher {
	if schedule == "" {
		schedule = DefaultPublishSchedule
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Publisher{posts: posts, schedule: schedule, logger: logger.WithPrefix("publisher")}
}

// Tick publishes every due draft once.
func (p *Publisher) Tick(ctx context.Context) ([]string, error) {
	ids, err := p.posts.PublishDue(ctx)
	if err != nil {
		p.logger.Error("tick failed", "err", err)
		return nil, err
	}
	if len(ids) > 0 {
		p.logger.Info("published due posts", "count", len(ids))
	}
	return ids, nil
}

// Start schedules Tick. Calling Start again restarts the scheduler.
func (p *Publisher) Start(ctx context.Context) error {
	p.Stop()

	c := cron.New()
	_, err := c.AddFunc(p.schedule, func() {
		if _, err := p.Tick(ctx); err != nil {
			p.logger.Debug("tick returned error", "err", err)
		}
	})
	if err != nil {
		return fmt.Errorf("publisher: invalid schedule %q: %w", p.schedule, err)
	}
	c.Start()

	p.mu.Lock()
	p.cron = c
	p.mu.Unlock()
	p.logger.Info("scheduled", "schedule", p.schedule)
	return nil
}

// Stop halts the scheduler and waits for a running tick to finish.
func (p *Publisher) Stop() {
	p.mu.Lock()
	c := p.cron
	p.cron = nil
	p.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}
