package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const defaultCleanupInterval = time.Hour

// Cleaner removes expired entries and reports how many went away
type Cleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// Janitor periodically purges expired rows, cache entries or rate limit counters
type Janitor struct {
	store    Cleaner
	interval time.Duration
	logger   *slog.Logger

	done chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

func NewJanitor(store Cleaner, interval time.Duration, logger *slog.Logger) *Janitor {
	if interval <= 0 {
		interval = defaultCleanupInterval
	}
	return &Janitor{
		store:    store,
		interval: interval,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start begins the background sweep
func (j *Janitor) Start() {
	j.wg.Add(1)
	go j.run()
	j.logger.Info("janitor started", "interval", j.interval)
}

// Stop waits for an in-flight sweep to finish. Safe to call more than once.
func (j *Janitor) Stop() {
	j.once.Do(func() {
		close(j.done)
		j.wg.Wait()
		j.logger.Info("janitor stopped")
	})
}

func (j *Janitor) run() {
	defer j.wg.Done()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.Sweep()
		}
	}
}

// Sweep runs one cleanup pass
func (j *Janitor) Sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	n, err := j.store.CleanupExpired(ctx)
	if err != nil {
		j.logger.Error("cleanup failed", "error", err)
		return
	}
	if n > 0 {
		j.logger.Debug("expired rows removed", "count", n)
	}
}
