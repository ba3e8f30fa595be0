// Package dashboard serves the analytics view of the audit trail: the most
// recent records and their label counts, cached for a short time.
package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/xaenox/sentiment-bot/internal/models"
	"github.com/xaenox/sentiment-bot/internal/storage"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultTTL          = 30 * time.Second
	DefaultFetchTimeout = 10 * time.Second
)

type Config struct {
	TTL   time.Duration
	Limit int
	// FetchTimeout bounds one shared storage query.
	FetchTimeout time.Duration
}

// Summary counts labels over the cached window.
type Summary struct {
	Total     int       `json:"total"`
	Positive  int       `json:"positive"`
	Negative  int       `json:"negative"`
	FetchedAt time.Time `json:"fetched_at"`
}

type snapshot struct {
	records   []models.AuditRecord
	fetchedAt time.Time
}

// Reader caches the read path so repeated views do not re-query storage.
type Reader struct {
	source       storage.AuditReader
	ttl          time.Duration
	limit        int
	fetchTimeout time.Duration
	logger       *zap.Logger
	now          func() time.Time

	group singleflight.Group
	mu    sync.RWMutex
	cache *snapshot
}

func NewReader(source storage.AuditReader, cfg Config, logger *zap.Logger) *Reader {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Limit <= 0 {
		cfg.Limit = storage.DefaultRecentLimit
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	return &Reader{
		source:       source,
		ttl:          cfg.TTL,
		limit:        cfg.Limit,
		fetchTimeout: cfg.FetchTimeout,
		logger:       logger,
		now:          time.Now,
	}
}

// Recent returns the latest records, newest first.
func (r *Reader) Recent(ctx context.Context) ([]models.AuditRecord, error) {
	snap, err := r.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.AuditRecord, len(snap.records))
	copy(out, snap.records)
	return out, nil
}

func (r *Reader) Summary(ctx context.Context) (Summary, error) {
	snap, err := r.snapshot(ctx)
	if err != nil {
		return Summary{}, err
	}

	sum := Summary{Total: len(snap.records), FetchedAt: snap.fetchedAt}
	for _, rec := range snap.records {
		switch rec.Label {
		case models.Positive:
			sum.Positive++
		case models.Negative:
			sum.Negative++
		}
	}
	return sum, nil
}

// Invalidate forces the next read to hit storage.
func (r *Reader) Invalidate() {
	r.mu.Lock()
	r.cache = nil
	r.mu.Unlock()
}

func (r *Reader) snapshot(ctx context.Context) (*snapshot, error) {
	if cached := r.fresh(); cached != nil {
		return cached, nil
	}

	// Shared by every waiting caller; detached from the one that started it.
	fetchCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan("recent", func() (any, error) {
		// Another flight may have refreshed the cache while we waited.
		if cached := r.fresh(); cached != nil {
			return cached, nil
		}

		ctx, cancel := context.WithTimeout(fetchCtx, r.fetchTimeout)
		defer cancel()

		records, err := r.source.RecentAudits(ctx, r.limit)
		if err != nil {
			r.logger.Error("Failed to fetch audit records", zap.Error(err))
			return nil, err
		}
		snap := &snapshot{records: records, fetchedAt: r.now()}

		r.mu.Lock()
		r.cache = snap
		r.mu.Unlock()

		r.logger.Debug("Refreshed dashboard cache", zap.Int("records", len(records)))
		return snap, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*snapshot), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *Reader) fresh() *snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.cache != nil && r.now().Sub(r.cache.fetchedAt) < r.ttl {
		return r.cache
	}
	return nil
}
