package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrClosed 连接池已关闭
var ErrClosed = errors.New("database pool is closed")

// =============================================================================
// ⚙️ 连接池配置
// =============================================================================

// PoolConfig 连接池配置
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	// 健康检查间隔；0 关闭后台检查
	HealthCheckInterval time.Duration
}

// DefaultPoolConfig 返回默认连接池配置
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxOpenConns:        10,
		MaxIdleConns:        5,
		ConnMaxLifetime:     time.Hour,
		ConnMaxIdleTime:     10 * time.Minute,
		HealthCheckInterval: 30 * time.Second,
	}
}

// Validate 校验连接池配置
func (c PoolConfig) Validate() error {
	switch {
	case c.MaxOpenConns <= 0:
		return fmt.Errorf("max_open_conns must be positive, got %d", c.MaxOpenConns)
	case c.MaxIdleConns <= 0:
		return fmt.Errorf("max_idle_conns must be positive, got %d", c.MaxIdleConns)
	case c.MaxIdleConns > c.MaxOpenConns:
		return fmt.Errorf("max_idle_conns (%d) exceeds max_open_conns (%d)", c.MaxIdleConns, c.MaxOpenConns)
	}
	return nil
}

// =============================================================================
// 🗄️ 连接池管理器
// =============================================================================

// PoolManager 管理审计存储的 GORM 连接
type PoolManager struct {
	db     *gorm.DB
	sqlDB  *sql.DB
	cfg    PoolConfig
	logger *zap.Logger

	mu      sync.RWMutex
	closed  bool
	onStats func(sql.DBStats)
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewPoolManager 应用连接池设置并启动健康检查。
// SQLite 只允许一个写连接，MaxOpenConns 会被限制为 1。
func NewPoolManager(db *gorm.DB, cfg PoolConfig, logger *zap.Logger) (*PoolManager, error) {
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "audit_db"))

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	if db.Dialector != nil && db.Dialector.Name() == DriverSQLite && cfg.MaxOpenConns != 1 {
		logger.Debug("sqlite allows one writer, limiting open connections", zap.Int("requested", cfg.MaxOpenConns))
		cfg.MaxOpenConns = 1
		cfg.MaxIdleConns = 1
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	pm := &PoolManager{
		db:     db,
		sqlDB:  sqlDB,
		cfg:    cfg,
		logger: logger,
		done:   make(chan struct{}),
	}
	if cfg.HealthCheckInterval > 0 {
		pm.wg.Add(1)
		go pm.healthLoop()
	}

	logger.Info("audit database ready",
		zap.Int("max_open_conns", cfg.MaxOpenConns),
		zap.Duration("health_check_interval", cfg.HealthCheckInterval),
	)
	return pm, nil
}

// OnStats 注册健康检查通过后的连接池统计回调
func (pm *PoolManager) OnStats(fn func(sql.DBStats)) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.onStats = fn
}

// DB 返回 GORM 实例
func (pm *PoolManager) DB() *gorm.DB {
	return pm.db
}

// Ping 探测连接，供就绪检查使用
func (pm *PoolManager) Ping(ctx context.Context) error {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	if pm.closed {
		return ErrClosed
	}
	return pm.sqlDB.PingContext(ctx)
}

// Stats 返回连接池统计
func (pm *PoolManager) Stats() sql.DBStats {
	return pm.sqlDB.Stats()
}

// Close 停止健康检查并关闭连接
func (pm *PoolManager) Close() error {
	pm.mu.Lock()
	if pm.closed {
		pm.mu.Unlock()
		return nil
	}
	pm.closed = true
	close(pm.done)
	pm.mu.Unlock()

	pm.wg.Wait()
	pm.logger.Info("audit database closed")
	return pm.sqlDB.Close()
}

// =============================================================================
// 🔄 事务
// =============================================================================

// Transact 在事务中执行 fn，瞬时故障最多重试 retries 次，间隔指数增长
func (pm *PoolManager) Transact(ctx context.Context, retries int, fn func(tx *gorm.DB) error) error {
	backoff := 50 * time.Millisecond
	for attempt := 0; ; attempt++ {
		pm.mu.RLock()
		closed := pm.closed
		pm.mu.RUnlock()
		if closed {
			return ErrClosed
		}

		err := pm.db.WithContext(ctx).Transaction(fn)
		if err == nil || attempt >= retries || !Transient(err) {
			return err
		}
		pm.logger.Warn("transaction failed, retrying",
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

// transientMarkers 出现在各驱动的瞬时错误信息中
var transientMarkers = []string{
	"deadlock",
	"serialization failure",
	"40001",
	"40p01",
	"lock wait timeout",
	"database is locked",
	"sqlite_busy",
	"connection reset",
	"connection refused",
	"broken pipe",
	"bad connection",
}

// Transient 判断错误是否值得重试
func Transient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// =============================================================================
// 🏥 健康检查
// =============================================================================

func (pm *PoolManager) healthLoop() {
	defer pm.wg.Done()
	ticker := time.NewTicker(pm.cfg.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-pm.done:
			return
		case <-ticker.C:
		}
		pm.check()
	}
}

func (pm *PoolManager) check() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := pm.Ping(ctx); err != nil {
		if !errors.Is(err, ErrClosed) {
			pm.logger.Error("audit database health check failed", zap.Error(err))
		}
		return
	}

	pm.mu.RLock()
	fn := pm.onStats
	pm.mu.RUnlock()
	if fn != nil {
		fn(pm.Stats())
	}
}
