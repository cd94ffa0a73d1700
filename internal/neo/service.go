package neo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/mr1hm/go-neo-watch/internal/models"
	"github.com/mr1hm/go-neo-watch/internal/repository"
)

const (
	opList   = "list"
	opDetail = "detail"

	DefaultPageSize = 20
)

// Recorder receives service telemetry. A nil Recorder is allowed.
type Recorder interface {
	ObserveUpstream(op string, d time.Duration, err error)
	RecordFallback(op, reason string)
	RecordCacheLookup(op, result string)
}

type Options struct {
	Cache           repository.NEOCache
	CacheTTL        time.Duration
	UpstreamTimeout time.Duration
	Recorder        Recorder
	DefaultPageSize int
	Logger          *slog.Logger
	Now             func() time.Time
}

// Service serves NEO pages and details. Upstream failures never reach the
// caller: they are logged and answered from the fallback dataset.
type Service struct {
	upstream Upstream
	fallback *Dataset
	cache    repository.NEOCache
	ttl      time.Duration
	timeout  time.Duration
	recorder Recorder
	pageSize int
	logger   *slog.Logger
	now      func() time.Time
	flights  singleflight.Group
}

func NewService(upstream Upstream, fallback *Dataset, opts Options) *Service {
	if fallback == nil {
		fallback = DefaultDataset()
	}
	s := &Service{
		upstream: upstream,
		fallback: fallback,
		cache:    opts.Cache,
		ttl:      opts.CacheTTL,
		timeout:  opts.UpstreamTimeout,
		recorder: opts.Recorder,
		pageSize: opts.DefaultPageSize,
		logger:   opts.Logger,
		now:      opts.Now,
	}
	if s.pageSize < 1 {
		s.pageSize = DefaultPageSize
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// ListNEOs returns one page. Negative page indexes are treated as 0 and
// non-positive sizes as the default size.
func (s *Service) ListNEOs(ctx context.Context, pageIndex, pageSize int) models.Page {
	if pageIndex < 0 {
		pageIndex = 0
	}
	if pageSize < 1 {
		pageSize = s.pageSize
	}

	if page, ok := s.cachedPage(ctx, pageIndex, pageSize); ok {
		return page
	}

	return withFallback(s, opList,
		func() (models.Page, error) { return s.fetchPage(ctx, pageIndex, pageSize) },
		func() models.Page { return s.fallback.Page(pageIndex, pageSize) },
	)
}

// GetNEODetails returns the record for id, or nil when neither the upstream
// nor the fallback dataset knows it.
func (s *Service) GetNEODetails(ctx context.Context, id string) *models.NEO {
	if cached, ok := s.cachedNEO(ctx, id); ok {
		return &cached
	}

	return withFallback(s, opDetail,
		func() (*models.NEO, error) {
			n, err := s.fetchNEO(ctx, id)
			if err != nil {
				return nil, err
			}
			return &n, nil
		},
		func() *models.NEO {
			n, ok := s.fallback.Find(id)
			if !ok {
				s.logger.Debug("neo not found in fallback dataset", "id", id)
				return nil
			}
			return &n
		},
	)
}

// Refresh fetches a page from the upstream and stores it in the cache,
// bypassing any cached copy. Unlike ListNEOs it reports upstream errors.
func (s *Service) Refresh(ctx context.Context, pageIndex, pageSize int) error {
	if s.cache == nil {
		return errors.New("refresh requires a cache")
	}
	_, err := s.fetchPage(ctx, pageIndex, pageSize)
	return err
}

// FallbackSize is the number of records in the fallback dataset.
func (s *Service) FallbackSize() int {
	return s.fallback.Len()
}

// withFallback runs primary and, on any error, logs a warning and returns
// fallback instead. It is the only place upstream errors are absorbed.
func withFallback[T any](s *Service, op string, primary func() (T, error), fallback func() T) T {
	v, err := primary()
	if err == nil {
		return v
	}

	reason := fallbackReason(err)
	s.logger.Warn("NASA API failed, serving fallback data", "op", op, "reason", reason, "error", err)
	if s.recorder != nil {
		s.recorder.RecordFallback(op, reason)
	}
	return fallback()
}

func (s *Service) fetchPage(ctx context.Context, pageIndex, pageSize int) (models.Page, error) {
	key := "page:" + strconv.Itoa(pageIndex) + ":" + strconv.Itoa(pageSize)
	v, err := s.shared(ctx, key, func(ctx context.Context) (any, error) {
		start := time.Now()
		page, err := s.upstream.Browse(ctx, pageIndex, pageSize)
		s.observe(opList, start, err)
		if err != nil {
			return models.Page{}, err
		}
		s.storePage(ctx, pageIndex, pageSize, page)
		return page, nil
	})
	if err != nil {
		return models.Page{}, err
	}
	return v.(models.Page), nil
}

func (s *Service) fetchNEO(ctx context.Context, id string) (models.NEO, error) {
	v, err := s.shared(ctx, "neo:"+id, func(ctx context.Context) (any, error) {
		start := time.Now()
		n, err := s.upstream.Lookup(ctx, id)
		s.observe(opDetail, start, err)
		if err != nil {
			return models.NEO{}, err
		}
		if s.cache != nil {
			if err := s.cache.PutNEO(ctx, n, s.now()); err != nil {
				s.logger.Warn("failed to cache neo", "id", id, "error", err)
			}
		}
		return n, nil
	})
	if err != nil {
		return models.NEO{}, err
	}
	return v.(models.NEO), nil
}

// shared collapses concurrent calls for key into one upstream request. The
// request keeps running when the caller that started it goes away; each
// caller stops waiting when its own ctx ends.
func (s *Service) shared(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error) {
	flightCtx := context.WithoutCancel(ctx)
	ch := s.flights.DoChan(key, func() (any, error) {
		fctx := flightCtx
		if s.timeout > 0 {
			var cancel context.CancelFunc
			fctx, cancel = context.WithTimeout(flightCtx, s.timeout)
			defer cancel()
		}
		return fn(fctx)
	})

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, ctx.Err())
	}
}

func (s *Service) cachedPage(ctx context.Context, pageIndex, pageSize int) (models.Page, bool) {
	if s.cache == nil {
		return models.Page{}, false
	}
	cp, err := s.cache.GetPage(ctx, pageIndex, pageSize)
	if err != nil {
		s.logger.Warn("cache read failed", "op", opList, "error", err)
		s.recordCache(opList, "error")
		return models.Page{}, false
	}
	if cp == nil {
		s.recordCache(opList, "miss")
		return models.Page{}, false
	}
	if !s.fresh(cp.FetchedAt) {
		s.recordCache(opList, "stale")
		return models.Page{}, false
	}
	s.recordCache(opList, "hit")
	return cp.Page, true
}

func (s *Service) cachedNEO(ctx context.Context, id string) (models.NEO, bool) {
	if s.cache == nil {
		return models.NEO{}, false
	}
	cn, err := s.cache.GetNEO(ctx, id)
	if err != nil {
		s.logger.Warn("cache read failed", "op", opDetail, "id", id, "error", err)
		s.recordCache(opDetail, "error")
		return models.NEO{}, false
	}
	if cn == nil {
		s.recordCache(opDetail, "miss")
		return models.NEO{}, false
	}
	if !s.fresh(cn.FetchedAt) {
		s.recordCache(opDetail, "stale")
		return models.NEO{}, false
	}
	s.recordCache(opDetail, "hit")
	return cn.NEO, true
}

// storePage caches under the requested key even if the upstream echoed
// different page metadata.
func (s *Service) storePage(ctx context.Context, pageIndex, pageSize int, page models.Page) {
	if s.cache == nil {
		return
	}
	page.PageIndex, page.PageSize = pageIndex, pageSize
	if err := s.cache.PutPage(ctx, page, s.now()); err != nil {
		s.logger.Warn("failed to cache page", "page", pageIndex, "size", pageSize, "error", err)
	}
}

func (s *Service) fresh(fetchedAt time.Time) bool {
	return s.now().Sub(fetchedAt) < s.ttl
}

func (s *Service) observe(op string, start time.Time, err error) {
	if s.recorder != nil {
		s.recorder.ObserveUpstream(op, time.Since(start), err)
	}
}

func (s *Service) recordCache(op, result string) {
	if s.recorder != nil {
		s.recorder.RecordCacheLookup(op, result)
	}
}
