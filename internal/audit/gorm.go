package audit

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/BaSui01/apiflow/internal/database"
)

// QueryObserver receives the duration of each database operation.
type QueryObserver func(operation string, d time.Duration)

// GormBackend stores entries in a SQL table through GORM.
type GormBackend struct {
	pool      *database.PoolManager
	batchSize int
	retries   int
	observe   QueryObserver
}

// NewGormBackend migrates the audit table and returns the backend.
func NewGormBackend(ctx context.Context, pool *database.PoolManager, observe QueryObserver) (*GormBackend, error) {
	if pool == nil {
		return nil, fmt.Errorf("audit: database pool is required")
	}
	if err := pool.DB().WithContext(ctx).AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("audit: migrate table: %w", err)
	}
	if observe == nil {
		observe = func(string, time.Duration) {}
	}
	return &GormBackend{pool: pool, batchSize: 100, retries: 3, observe: observe}, nil
}

// Write inserts entries in one transaction, retrying transient failures.
func (g *GormBackend) Write(ctx context.Context, entries []*Entry) error {
	if len(entries) == 0 {
		return nil
	}
	start := time.Now()
	err := g.pool.Transact(ctx, g.retries, func(tx *gorm.DB) error {
		return tx.CreateInBatches(entries, g.batchSize).Error
	})
	g.observe("insert", time.Since(start))
	if err != nil {
		return fmt.Errorf("audit: insert %d entries: %w", len(entries), err)
	}
	return nil
}

// Query returns matching entries ordered by timestamp.
func (g *GormBackend) Query(ctx context.Context, filter *Filter) ([]*Entry, error) {
	start := time.Now()
	defer func() { g.observe("select", time.Since(start)) }()

	q := g.pool.DB().WithContext(ctx).Model(&Entry{})
	if filter != nil {
		if filter.ToolName != "" {
			q = q.Where("tool_name = ?", filter.ToolName)
		}
		if filter.CallID != "" {
			q = q.Where("call_id = ?", filter.CallID)
		}
		if filter.EventType != "" {
			q = q.Where("event_type = ?", filter.EventType)
		}
		if filter.ErrorCode != "" {
			q = q.Where("error_code = ?", filter.ErrorCode)
		}
		if filter.StartTime != nil {
			q = q.Where("logged_at >= ?", *filter.StartTime)
		}
		if filter.EndTime != nil {
			q = q.Where("logged_at <= ?", *filter.EndTime)
		}
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
		}
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
	}

	var out []*Entry
	if err := q.Order("logged_at ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("audit: query: %w", err)
	}
	return out, nil
}

// Close closes the underlying pool.
func (g *GormBackend) Close() error {
	return g.pool.Close()
}
