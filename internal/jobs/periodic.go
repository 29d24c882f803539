package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Task is one pass of a background job
type Task func(ctx context.Context) error

// Periodic runs a Task on a fixed interval until stopped
type Periodic struct {
	name     string
	task     Task
	interval time.Duration
	delay    time.Duration // before the first pass
	timeout  time.Duration // per pass
	stopCh   chan struct{}
	wg       sync.WaitGroup
	running  bool
	mu       sync.Mutex
}

// PeriodicConfig configures a Periodic job
type PeriodicConfig struct {
	Name     string
	Interval time.Duration
	Delay    time.Duration
	Timeout  time.Duration
}

// NewPeriodic creates a periodic job. Interval defaults to one minute and
// each pass is bounded by Timeout (two minutes by default).
func NewPeriodic(cfg PeriodicConfig, task Task) *Periodic {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	return &Periodic{
		name:     cfg.Name,
		task:     task,
		interval: cfg.Interval,
		delay:    cfg.Delay,
		timeout:  cfg.Timeout,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the job loop
func (p *Periodic) Start() {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.mu.Unlock()

	p.wg.Add(1)
	go p.run()
	slog.Info("job started", slog.String("job", p.name), slog.Duration("interval", p.interval))
}

// Stop gracefully stops the job, waiting for an in-flight pass
func (p *Periodic) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.mu.Unlock()

	close(p.stopCh)
	p.wg.Wait()
	slog.Info("job stopped", slog.String("job", p.name))
}

func (p *Periodic) run() {
	defer p.wg.Done()

	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-p.stopCh:
			return
		}
	}
	p.pass()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.pass()
		case <-p.stopCh:
			return
		}
	}
}

func (p *Periodic) pass() {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	if err := p.task(ctx); err != nil {
		slog.Error("job failed", slog.String("job", p.name), slog.String("error", err.Error()))
	}
}

// RunOnce runs a single pass (for testing or manual trigger)
func (p *Periodic) RunOnce(ctx context.Context) error {
	return p.task(ctx)
}

// IsRunning returns whether the job loop is running
func (p *Periodic) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Name returns the job name used in logs
func (p *Periodic) Name() string {
	return p.name
}
