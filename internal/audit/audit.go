// Package audit records one entry per tool call and stores it asynchronously.
package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventType is the kind of audit event.
type EventType string

const (
	EventToolCall     EventType = "tool_call"
	EventRateLimitHit EventType = "rate_limit_hit"
	EventCacheHit     EventType = "cache_hit"
)

// Entry is one audit record. It never carries argument values, header values
// or the query string, so secrets and user data stay out of the log.
type Entry struct {
	ID        string        `json:"id" gorm:"primaryKey;size:36"`
	Timestamp time.Time     `json:"timestamp" gorm:"column:logged_at;index"`
	EventType EventType     `json:"event_type" gorm:"size:32;index"`
	CallID    string        `json:"call_id" gorm:"size:36;index"`
	TraceID   string        `json:"trace_id,omitempty" gorm:"size:32"`
	ToolName  string        `json:"tool_name" gorm:"size:128;index"`
	Method    string        `json:"method,omitempty" gorm:"size:8"`
	Target    string        `json:"target,omitempty" gorm:"size:2048"`
	Status    int           `json:"status,omitempty"`
	ErrorCode string        `json:"error_code,omitempty" gorm:"size:32"`
	Error     string        `json:"error,omitempty" gorm:"size:1024"`
	Retryable bool          `json:"retryable,omitempty"`
	Duration  time.Duration `json:"duration"`
	BytesRead int64         `json:"bytes_read,omitempty"`
	Warnings  int           `json:"warnings,omitempty"`
}

// TableName pins the table name regardless of naming strategy.
func (Entry) TableName() string { return "apiflow_audit_entries" }

// Filter narrows Query results. Zero fields match everything.
type Filter struct {
	ToolName  string
	CallID    string
	EventType EventType
	ErrorCode string
	StartTime *time.Time
	EndTime   *time.Time
	Limit     int
	Offset    int
}

// Backend stores audit entries.
type Backend interface {
	Write(ctx context.Context, entries []*Entry) error
	Query(ctx context.Context, filter *Filter) ([]*Entry, error)
	Close() error
}

// ErrClosed is returned by Log after Close.
var ErrClosed = errors.New("audit logger is closed")

// Config tunes the asynchronous writer.
type Config struct {
	QueueSize     int
	Workers       int
	BatchSize     int
	FlushInterval time.Duration
}

// DefaultConfig returns the writer defaults.
func DefaultConfig() Config {
	return Config{
		QueueSize:     10000,
		Workers:       2,
		BatchSize:     100,
		FlushInterval: time.Second,
	}
}

// Logger fans entries out to its backends. LogAsync never blocks the caller;
// entries are dropped with a warning when the queue is full.
type Logger struct {
	backends []Backend
	queue    chan *Entry
	cfg      Config
	wg       sync.WaitGroup
	logger   *zap.Logger

	closeMu sync.RWMutex
	closed  bool

	dropped uint64
	dropMu  sync.Mutex
}

// NewLogger starts the async workers.
func NewLogger(cfg Config, logger *zap.Logger, backends ...Backend) *Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultConfig()
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = def.FlushInterval
	}

	l := &Logger{
		backends: backends,
		queue:    make(chan *Entry, cfg.QueueSize),
		cfg:      cfg,
		logger:   logger.With(zap.String("component", "audit_logger")),
	}
	for i := 0; i < cfg.Workers; i++ {
		l.wg.Add(1)
		go l.worker()
	}
	return l
}

// Log writes entry synchronously to every backend.
func (l *Logger) Log(ctx context.Context, entry *Entry) error {
	l.closeMu.RLock()
	defer l.closeMu.RUnlock()
	if l.closed {
		return ErrClosed
	}
	stamp(entry)
	return l.write(ctx, []*Entry{entry})
}

// LogAsync queues entry for the workers.
func (l *Logger) LogAsync(entry *Entry) {
	l.closeMu.RLock()
	defer l.closeMu.RUnlock()
	if l.closed {
		l.logger.Warn("audit logger is closed, dropping entry", zap.String("call_id", entry.CallID))
		return
	}
	stamp(entry)

	select {
	case l.queue <- entry:
	default:
		l.dropMu.Lock()
		l.dropped++
		l.dropMu.Unlock()
		l.logger.Warn("audit queue full, dropping entry", zap.String("call_id", entry.CallID))
	}
}

// Dropped reports how many entries were discarded because the queue was full.
func (l *Logger) Dropped() uint64 {
	l.dropMu.Lock()
	defer l.dropMu.Unlock()
	return l.dropped
}

// Query reads from the first backend.
func (l *Logger) Query(ctx context.Context, filter *Filter) ([]*Entry, error) {
	if len(l.backends) == 0 {
		return nil, fmt.Errorf("no audit backends configured")
	}
	if filter == nil {
		filter = &Filter{}
	}
	return l.backends[0].Query(ctx, filter)
}

// Close drains the queue, waits for the workers and closes the backends.
func (l *Logger) Close() error {
	l.closeMu.Lock()
	if l.closed {
		l.closeMu.Unlock()
		return nil
	}
	l.closed = true
	close(l.queue)
	l.closeMu.Unlock()

	l.wg.Wait()

	var errs []error
	for _, b := range l.backends {
		if err := b.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	l.logger.Info("audit logger closed", zap.Uint64("dropped", l.Dropped()))
	return errors.Join(errs...)
}

func (l *Logger) worker() {
	defer l.wg.Done()

	ticker := time.NewTicker(l.cfg.FlushInterval)
	defer ticker.Stop()

	batch := make([]*Entry, 0, l.cfg.BatchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := l.write(ctx, batch); err != nil {
			l.logger.Error("failed to write audit batch", zap.Int("entries", len(batch)), zap.Error(err))
		}
		cancel()
		batch = make([]*Entry, 0, l.cfg.BatchSize)
	}

	for {
		select {
		case entry, ok := <-l.queue:
			if !ok {
				flush()
				return
			}
			batch = append(batch, entry)
			if len(batch) >= l.cfg.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

func (l *Logger) write(ctx context.Context, entries []*Entry) error {
	var errs []error
	for _, b := range l.backends {
		if err := b.Write(ctx, entries); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func stamp(e *Entry) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	if e.EventType == "" {
		e.EventType = EventToolCall
	}
}
