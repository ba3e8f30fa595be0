package storage

import (
	"context"

	"github.com/xaenox/sentiment-bot/internal/models"
)

// DefaultRecentLimit is the number of rows the dashboard reads.
const DefaultRecentLimit = 1000

// AuditStore persists prediction audit records and serves the dashboard read path.
type AuditStore interface {
	AuditWriter
	AuditReader
	Close() error
}

type AuditWriter interface {
	AppendAudit(ctx context.Context, record models.AuditRecord) error
}

// AuditReader returns the newest records first, at most limit of them.
type AuditReader interface {
	RecentAudits(ctx context.Context, limit int) ([]models.AuditRecord, error)
}
