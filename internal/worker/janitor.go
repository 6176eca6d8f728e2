// Package worker runs the background removal of transient invoice files. It
// is decoupled from the HTTP layer and the verification workflow: both hold a
// worker.Cleaner and never import the concrete Janitor.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/nyashahama/event-admin-backend/internal/retry"
)

// ─── CLEANER INTERFACE ────────────────────────────────────────────────────────

// Cleaner is the narrow interface callers use to dispose of temporary files.
//
// The concrete implementation is *Janitor. In tests, any struct with these
// methods satisfies the interface.
type Cleaner interface {
	// RemoveNow deletes path synchronously. A missing file is not an error.
	RemoveNow(path string) error

	// RemoveAfter schedules path for deletion after d. It never blocks.
	RemoveAfter(path string, d time.Duration)
}

// ─── JANITOR ──────────────────────────────────────────────────────────────────

// JanitorConfig holds tuning parameters. Zero fields take the defaults from
// DefaultJanitorConfig.
type JanitorConfig struct {
	// Dir is the directory swept for leftover files.
	Dir string

	// Pattern is the glob, relative to Dir, of files the sweeper may remove.
	Pattern string

	// Workers is the number of removal goroutines. Default: 2.
	Workers int

	// PollInterval is how often Dir is swept for files that outlived MaxAge,
	// e.g. after a crash between render and cleanup. Default: 1 minute.
	PollInterval time.Duration

	// MaxAge is how old a matching file must be before the sweeper removes it.
	// Default: 10 minutes.
	MaxAge time.Duration

	// MaxRetries bounds removal attempts per file. Default: 3.
	MaxRetries int
}

// DefaultJanitorConfig returns production defaults.
func DefaultJanitorConfig() JanitorConfig {
	return JanitorConfig{
		Dir:          "uploads",
		Pattern:      "invoice_*.pdf",
		Workers:      2,
		PollInterval: time.Minute,
		MaxAge:       10 * time.Minute,
		MaxRetries:   3,
	}
}

// Janitor removes files on request, after a delay, or when the sweeper finds
// them older than MaxAge.
type Janitor struct {
	cfg    JanitorConfig
	logger *slog.Logger
	remove func(string) error
	now    func() time.Time

	queue chan string
	wg    sync.WaitGroup
}

// NewJanitor constructs a Janitor. Call Start to begin processing.
func NewJanitor(cfg JanitorConfig, logger *slog.Logger) *Janitor {
	def := DefaultJanitorConfig()
	if cfg.Dir == "" {
		cfg.Dir = def.Dir
	}
	if cfg.Pattern == "" {
		cfg.Pattern = def.Pattern
	}
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = def.MaxAge
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = def.MaxRetries
	}

	return &Janitor{
		cfg:    cfg,
		logger: logger,
		remove: os.Remove,
		now:    time.Now,
		queue:  make(chan string, 64),
	}
}

// RemoveNow deletes path immediately.
func (j *Janitor) RemoveNow(path string) error {
	err := j.remove(path)
	if err == nil || errors.Is(err, os.ErrNotExist) {
		j.logger.Debug("janitor: removed", "path", path)
		return nil
	}
	return err
}

// RemoveAfter queues path for deletion once d has elapsed. If the queue is
// full when the timer fires the file is left for the sweeper.
func (j *Janitor) RemoveAfter(path string, d time.Duration) {
	time.AfterFunc(d, func() { j.enqueue(path) })
}

func (j *Janitor) enqueue(path string) {
	select {
	case j.queue <- path:
	default:
		j.logger.Warn("janitor: queue is full, file will be picked up by sweeper", "path", path)
	}
}

// Start launches the removal workers and the sweeper. It blocks until ctx is
// cancelled. Call it in a goroutine from main:
//
//	go janitor.Start(ctx)
func (j *Janitor) Start(ctx context.Context) {
	j.logger.Info("janitor: starting",
		"workers", j.cfg.Workers,
		"dir", j.cfg.Dir,
		"poll_interval", j.cfg.PollInterval,
		"max_age", j.cfg.MaxAge,
	)

	for i := 0; i < j.cfg.Workers; i++ {
		j.wg.Add(1)
		go j.work(ctx, i)
	}

	j.wg.Add(1)
	go j.poll(ctx)

	j.wg.Wait()
	j.logger.Info("janitor: stopped")
}

func (j *Janitor) work(ctx context.Context, id int) {
	defer j.wg.Done()
	log := j.logger.With("worker_id", id)

	for {
		select {
		case <-ctx.Done():
			return
		case path := <-j.queue:
			j.removeWithRetry(ctx, path, log)
		}
	}
}

// poll sweeps Dir on PollInterval. It runs once immediately so files left by
// a previous process are collected on startup.
func (j *Janitor) poll(ctx context.Context) {
	defer j.wg.Done()
	ticker := time.NewTicker(j.cfg.PollInterval)
	defer ticker.Stop()

	j.sweepOnce()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.sweepOnce()
		}
	}
}

func (j *Janitor) sweepOnce() {
	matches, err := filepath.Glob(filepath.Join(j.cfg.Dir, j.cfg.Pattern))
	if err != nil {
		j.logger.Error("janitor: sweep failed", "error", err)
		return
	}
	cutoff := j.now().Add(-j.cfg.MaxAge)
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() || info.ModTime().After(cutoff) {
			continue
		}
		select {
		case j.queue <- path:
			j.logger.Debug("janitor: sweeper enqueued stale file", "path", path, "mod_time", info.ModTime())
		default:
			// Queue full, next sweep will retry.
		}
	}
}

func (j *Janitor) removeWithRetry(ctx context.Context, path string, log *slog.Logger) {
	policy := retry.Policy{
		MaxAttempts: j.cfg.MaxRetries,
		BaseDelay:   200 * time.Millisecond,
		MaxDelay:    2 * time.Second,
	}
	attempts, err := policy.Do(ctx, nil, func(context.Context, int) error {
		return j.RemoveNow(path)
	}, nil)
	if err != nil {
		log.Error("janitor: remove failed", "path", path, "attempts", attempts, "error", err)
	}
}
