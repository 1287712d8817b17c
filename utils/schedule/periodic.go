package schedule

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Task is one scheduled run. A returned error is logged and does not stop the schedule.
type Task func(ctx context.Context) error

// Periodic runs a task after an initial delay and then at a fixed interval.
// Runs never overlap; a run that overruns the interval delays the next one.
type Periodic struct {
	name     string
	delay    time.Duration
	interval time.Duration
	task     Task
	logger   *zap.Logger
}

func NewPeriodic(name string, delay, interval time.Duration, task Task, logger *zap.Logger) (*Periodic, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("%s: interval must be positive", name)
	}
	if delay < 0 {
		delay = 0
	}
	return &Periodic{
		name:     name,
		delay:    delay,
		interval: interval,
		task:     task,
		logger:   logger.With(zap.String("schedule", name)),
	}, nil
}

// Run blocks until ctx is cancelled
func (p *Periodic) Run(ctx context.Context) error {
	timer := time.NewTimer(p.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil
	case <-timer.C:
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		p.runOnce(ctx)

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (p *Periodic) runOnce(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Scheduled task panicked", zap.Any("panic", r))
		}
	}()

	start := time.Now()
	if err := p.task(ctx); err != nil {
		p.logger.Error("Scheduled task failed", zap.Error(err))
		return
	}
	p.logger.Debug("Scheduled task finished", zap.Duration("took", time.Since(start)))
}
