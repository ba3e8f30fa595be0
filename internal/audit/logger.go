// Package audit delivers prediction audit records to storage in the
// background. Delivery is best effort: every record is attempted at most once,
// and failures are only logged and counted.
package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/xaenox/sentiment-bot/internal/models"
	"github.com/xaenox/sentiment-bot/internal/storage"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

const (
	DefaultQueueSize    = 256
	DefaultWorkers      = 1
	DefaultWriteTimeout = 5 * time.Second
)

type Config struct {
	QueueSize    int
	Workers      int
	WriteTimeout time.Duration
}

// Stats counts what happened to submitted records.
type Stats struct {
	Submitted uint64 `json:"submitted"`
	Written   uint64 `json:"written"`
	Dropped   uint64 `json:"dropped"`
	Failed    uint64 `json:"failed"`
}

// Logger queues audit records and writes them from worker goroutines. When the
// queue is full new records are dropped rather than blocking the caller.
type Logger struct {
	sink         storage.AuditWriter
	logger       *zap.Logger
	writeTimeout time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan models.AuditRecord
	wg     sync.WaitGroup

	submitted atomic.Uint64
	written   atomic.Uint64
	dropped   atomic.Uint64
	failed    atomic.Uint64
}

func NewLogger(sink storage.AuditWriter, cfg Config, logger *zap.Logger) *Logger {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}

	l := &Logger{
		sink:         sink,
		logger:       logger,
		writeTimeout: cfg.WriteTimeout,
		queue:        make(chan models.AuditRecord, cfg.QueueSize),
	}

	l.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go l.run()
	}
	return l
}

// Submit enqueues a record without waiting for it to be written. It reports
// whether the record was accepted.
func (l *Logger) Submit(record models.AuditRecord) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		l.drop(record, "logger closed")
		return false
	}

	select {
	case l.queue <- record:
		l.submitted.Inc()
		return true
	default:
		l.drop(record, "queue full")
		return false
	}
}

// Close stops accepting records and waits for queued ones to be written or
// for ctx to expire.
func (l *Logger) Close(ctx context.Context) error {
	l.mu.Lock()
	if !l.closed {
		l.closed = true
		close(l.queue)
	}
	l.mu.Unlock()

	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("audit queue not drained: %w", ctx.Err())
	}
}

func (l *Logger) Stats() Stats {
	return Stats{
		Submitted: l.submitted.Load(),
		Written:   l.written.Load(),
		Dropped:   l.dropped.Load(),
		Failed:    l.failed.Load(),
	}
}

func (l *Logger) run() {
	defer l.wg.Done()
	for record := range l.queue {
		l.write(record)
	}
}

func (l *Logger) write(record models.AuditRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), l.writeTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			l.failed.Inc()
			l.logger.Warn("Audit sink panicked",
				zap.Any("panic", r),
				zap.String("audit_id", record.ID))
		}
	}()

	if err := l.sink.AppendAudit(ctx, record); err != nil {
		l.failed.Inc()
		l.logger.Warn("Failed to log prediction",
			zap.Error(err),
			zap.String("audit_id", record.ID),
			zap.String("prediction", string(record.Label)))
		return
	}
	l.written.Inc()
}

func (l *Logger) drop(record models.AuditRecord, reason string) {
	n := l.dropped.Inc()
	l.logger.Warn("Dropping audit record",
		zap.String("reason", reason),
		zap.String("audit_id", record.ID),
		zap.Uint64("dropped_total", n))
}
