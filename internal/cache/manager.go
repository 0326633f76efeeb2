// Package cache provides the Redis-backed response cache.
// This package is internal and should not be imported by external projects.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/BaSui01/apiflow/internal/tlsutil"
)

var (
	// ErrCacheMiss 键不存在或已过期
	ErrCacheMiss = errors.New("cache miss")
	// ErrClosed 管理器已关闭
	ErrClosed = errors.New("cache manager is closed")
	// ErrUnavailable 最近一次健康检查失败，读写直接跳过 Redis
	ErrUnavailable = errors.New("cache is unavailable")
	// ErrValueTooLarge 序列化后的值超过 MaxValueBytes，不写入
	ErrValueTooLarge = errors.New("cache value too large")
)

// IsCacheMiss 判断是否为缓存未命中
func IsCacheMiss(err error) bool {
	return errors.Is(err, ErrCacheMiss)
}

// =============================================================================
// 💾 缓存配置
// =============================================================================

// Config 缓存配置
type Config struct {
	Addr     string
	Password string
	DB       int

	// 键前缀，隔离不同文档的缓存
	KeyPrefix string
	// SetJSON 未指定 TTL 时使用
	DefaultTTL time.Duration
	// 单个值的上限，超过则不缓存；0 表示不限制
	MaxValueBytes int

	MaxRetries   int
	PoolSize     int
	MinIdleConns int
	TLSEnabled   bool

	// 启动时连接探测的超时
	DialTimeout time.Duration
	// 健康检查间隔；0 关闭后台检查
	HealthCheckInterval time.Duration
}

// DefaultConfig 返回默认缓存配置
func DefaultConfig() Config {
	return Config{
		Addr:                "localhost:6379",
		KeyPrefix:           "apiflow:",
		DefaultTTL:          5 * time.Minute,
		MaxValueBytes:       1 << 20,
		MaxRetries:          3,
		PoolSize:            10,
		MinIdleConns:        2,
		DialTimeout:         5 * time.Second,
		HealthCheckInterval: 30 * time.Second,
	}
}

// =============================================================================
// 🗄️ 缓存管理器
// =============================================================================

// Manager 以 JSON 形式在 Redis 中缓存调用结果。
// 健康检查失败期间读写立即返回 ErrUnavailable，调用不会因缓存故障变慢。
type Manager struct {
	client  *redis.Client
	cfg     Config
	logger  *zap.Logger
	healthy atomic.Bool

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
	wg     sync.WaitGroup
}

// NewManager 连接 Redis 并启动健康检查
func NewManager(cfg Config, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}

	opts := &redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   cfg.MaxRetries,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
	}
	if cfg.TLSEnabled {
		tlsCfg, err := tlsutil.ClientTLS(tlsutil.TLSOptions{})
		if err != nil {
			return nil, err
		}
		opts.TLSConfig = tlsCfg
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	m := &Manager{
		client: client,
		cfg:    cfg,
		logger: logger.With(zap.String("component", "cache")),
		done:   make(chan struct{}),
	}
	m.healthy.Store(true)

	if cfg.HealthCheckInterval > 0 {
		m.wg.Add(1)
		go m.healthLoop()
	}

	m.logger.Info("response cache connected",
		zap.String("addr", cfg.Addr),
		zap.String("key_prefix", cfg.KeyPrefix),
		zap.Duration("default_ttl", cfg.DefaultTTL),
	)
	return m, nil
}

// Key 返回带前缀的完整键
func (m *Manager) Key(key string) string {
	return m.cfg.KeyPrefix + key
}

// Healthy 报告最近一次健康检查是否成功
func (m *Manager) Healthy() bool {
	return m.healthy.Load()
}

// GetJSON 读取 key 并解码到 dest；不存在时返回 ErrCacheMiss
func (m *Manager) GetJSON(ctx context.Context, key string, dest any) error {
	if err := m.usable(); err != nil {
		return err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrClosed
	}

	data, err := m.client.Get(ctx, m.Key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return fmt.Errorf("cache get: %w", err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		// 无法解码的旧条目按未命中处理，随后被覆盖
		m.logger.Warn("dropping undecodable cache entry", zap.String("key", key), zap.Error(err))
		return ErrCacheMiss
	}
	return nil
}

// SetJSON 编码 value 并以 ttl 写入；ttl 为 0 时使用 DefaultTTL
func (m *Manager) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	if err := m.usable(); err != nil {
		return err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	if m.cfg.MaxValueBytes > 0 && len(data) > m.cfg.MaxValueBytes {
		return fmt.Errorf("%w: %d bytes", ErrValueTooLarge, len(data))
	}
	if ttl <= 0 {
		ttl = m.cfg.DefaultTTL
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrClosed
	}
	if err := m.client.Set(ctx, m.Key(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Ping 探测 Redis，供就绪检查使用
func (m *Manager) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrClosed
	}
	return m.client.Ping(ctx).Err()
}

// Close 停止健康检查并关闭连接
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	close(m.done)
	m.mu.Unlock()

	m.wg.Wait()
	m.logger.Info("response cache closed")
	return m.client.Close()
}

func (m *Manager) usable() error {
	if !m.healthy.Load() {
		return ErrUnavailable
	}
	return nil
}

// =============================================================================
// 🏥 健康检查
// =============================================================================

func (m *Manager) healthLoop() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.cfg.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), m.cfg.DialTimeout)
		err := m.Ping(ctx)
		cancel()
		if errors.Is(err, ErrClosed) {
			return
		}
		m.setHealthy(err)
	}
}

// setHealthy 只在状态变化时记录日志
func (m *Manager) setHealthy(err error) {
	ok := err == nil
	if m.healthy.Swap(ok) == ok {
		return
	}
	if ok {
		m.logger.Info("response cache recovered")
	} else {
		m.logger.Warn("response cache unavailable, bypassing", zap.Error(err))
	}
}
