package repository

import (
	"context"
	"time"

	"github.com/mr1hm/go-neo-watch/internal/models"
)

type CachedPage struct {
	Page      models.Page
	FetchedAt time.Time
}

type CachedNEO struct {
	NEO       models.NEO
	FetchedAt time.Time
}

// NEOCache stores upstream results. Get methods return nil, nil on a miss;
// freshness is decided by the caller from FetchedAt.
type NEOCache interface {
	GetPage(ctx context.Context, pageIndex, pageSize int) (*CachedPage, error)
	PutPage(ctx context.Context, page models.Page, fetchedAt time.Time) error
	GetNEO(ctx context.Context, id string) (*CachedNEO, error)
	PutNEO(ctx context.Context, n models.NEO, fetchedAt time.Time) error
	Purge(ctx context.Context, olderThan time.Time) (int64, error)
}
