// Package ingestion keeps the NEO query cache warm: it periodically refreshes
// the first catalogue pages from the upstream and purges expired rows.
package ingestion

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mr1hm/go-neo-watch/internal/config"
	"github.com/mr1hm/go-neo-watch/internal/worker"
)

// purgeFactor is how many TTLs a cache row outlives before it is deleted.
const purgeFactor = 4

type Refresher interface {
	Refresh(ctx context.Context, pageIndex, pageSize int) error
}

type Purger interface {
	Purge(ctx context.Context, olderThan time.Time) (int64, error)
}

// Recorder receives warmer telemetry. A nil Recorder is allowed.
type Recorder interface {
	RecordRefresh(err error)
	RecordPurge(rows int64)
}

type PageJob struct {
	PageIndex int
	PageSize  int
}

type Manager struct {
	cfg      *config.Config
	svc      Refresher
	cache    Purger
	recorder Recorder
	pool     *worker.Pool[PageJob]
	wg       sync.WaitGroup
	now      func() time.Time
}

func NewManager(cfg *config.Config, svc Refresher, cache Purger, recorder Recorder) *Manager {
	return &Manager{
		cfg:      cfg,
		svc:      svc,
		cache:    cache,
		recorder: recorder,
		now:      time.Now,
	}
}

func (m *Manager) Start(ctx context.Context) {
	processor := func(ctx context.Context, job PageJob) error {
		err := m.svc.Refresh(ctx, job.PageIndex, job.PageSize)
		if m.recorder != nil {
			m.recorder.RecordRefresh(err)
		}
		if err != nil {
			slog.Warn("cache refresh failed", "page", job.PageIndex, "size", job.PageSize, "error", err)
			return err
		}

		slog.Debug("cache page refreshed", "page", job.PageIndex, "size", job.PageSize)
		return nil
	}

	m.pool = worker.NewPool(m.cfg.Worker.Count, m.cfg.Worker.BufferSize, processor)
	m.pool.Start(ctx)

	if m.cfg.Warmer.Enabled {
		m.wg.Add(1)
		go m.runPoller(ctx, m.cfg.Warmer.Interval)
	}
}

func (m *Manager) runPoller(ctx context.Context, interval time.Duration) {
	defer m.wg.Done()
	slog.Info("starting cache warmer", "interval", interval, "pages", m.cfg.Warmer.Pages)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Initial poll
	m.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("cache warmer shutting down")
			return
		case <-ticker.C:
			m.poll(ctx)
		}
	}
}

func (m *Manager) poll(ctx context.Context) {
	slog.Debug("warming cache", "pages", m.cfg.Warmer.Pages)

	for i := 0; i < m.cfg.Warmer.Pages; i++ {
		job := PageJob{PageIndex: i, PageSize: m.cfg.Warmer.PageSize}
		if err := m.pool.Submit(ctx, job); err != nil {
			slog.Debug("stopped submitting refresh jobs", "error", err)
			return
		}
	}

	m.purge(ctx)
}

func (m *Manager) purge(ctx context.Context) {
	if m.cache == nil || m.cfg.Cache.TTL <= 0 {
		return
	}

	cutoff := m.now().Add(-purgeFactor * m.cfg.Cache.TTL)
	n, err := m.cache.Purge(ctx, cutoff)
	if err != nil {
		slog.Error("cache purge failed", "error", err)
		return
	}
	if m.recorder != nil {
		m.recorder.RecordPurge(n)
	}
	if n > 0 {
		slog.Info("purged expired cache rows", "rows", n)
	}
}

func (m *Manager) Stop() {
	m.wg.Wait()
	if m.pool != nil {
		m.pool.Stop()
	}
	slog.Info("cache warmer stopped")
}
