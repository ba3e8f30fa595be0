package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xaenox/sentiment-bot/internal/models"
)

type MemoryStorage struct {
	mu     sync.RWMutex
	audits []models.AuditRecord
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (s *MemoryStorage) AppendAudit(ctx context.Context, record models.AuditRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	s.audits = append(s.audits, record)
	return nil
}

func (s *MemoryStorage) RecentAudits(ctx context.Context, limit int) ([]models.AuditRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	records := make([]models.AuditRecord, len(s.audits))
	copy(records, s.audits)
	s.mu.RUnlock()

	// Newest first; stable so records sharing a timestamp keep insertion order reversed.
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})

	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// Len returns the number of stored audit records
func (s *MemoryStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.audits)
}

func (s *MemoryStorage) Close() error {
	// Nothing to close for in-memory storage
	return nil
}
