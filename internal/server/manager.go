package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrClosed 服务器已关闭
var ErrClosed = errors.New("admin server is closed")

// =============================================================================
// 🌐 管理端监听
// =============================================================================

// Config 管理端监听配置
type Config struct {
	// 监听地址；端口为 0 时由系统分配
	Addr              string
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	// Shutdown 等待进行中请求的上限
	ShutdownTimeout time.Duration
}

// DefaultConfig 返回默认配置，只监听本地回环地址
func DefaultConfig() Config {
	return Config{
		Addr:              "127.0.0.1:9464",
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
		ShutdownTimeout:   10 * time.Second,
	}
}

// Manager 在后台运行管理端 HTTP 服务（/metrics、/healthz、/readyz、/tools）
type Manager struct {
	srv    *http.Server
	cfg    Config
	logger *zap.Logger
	errCh  chan error

	mu       sync.Mutex
	listener net.Listener
	closed   bool
}

// NewManager 创建管理端服务器，handler 外层套上恢复与访问日志中间件
func NewManager(handler http.Handler, cfg Config, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "admin_server"))

	return &Manager{
		srv: &http.Server{
			Handler:           Chain(handler, Recovery(logger), AccessLog(logger)),
			ReadHeaderTimeout: cfg.ReadHeaderTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       cfg.IdleTimeout,
			ErrorLog:          zap.NewStdLog(logger),
		},
		cfg:    cfg,
		logger: logger,
		errCh:  make(chan error, 1),
	}
}

// Start 绑定端口并在后台开始服务；端口冲突等错误同步返回
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case m.closed:
		return ErrClosed
	case m.listener != nil:
		return errors.New("admin server already started")
	}

	ln, err := net.Listen("tcp", m.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", m.cfg.Addr, err)
	}
	m.listener = ln
	m.logger.Info("admin server listening", zap.String("addr", ln.Addr().String()))

	go func() {
		if err := m.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("admin server stopped unexpectedly", zap.Error(err))
			m.errCh <- err
		}
		close(m.errCh)
	}()
	return nil
}

// Errors 在服务异常退出时收到一个错误，随后关闭
func (m *Manager) Errors() <-chan error {
	return m.errCh
}

// Addr 返回实际监听地址；未启动时返回配置地址
func (m *Manager) Addr() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listener != nil {
		return m.listener.Addr().String()
	}
	return m.cfg.Addr
}

// Shutdown 停止接收新连接并等待进行中的请求，可重复调用
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	if m.listener == nil {
		close(m.errCh)
		return nil
	}

	if m.cfg.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.ShutdownTimeout)
		defer cancel()
	}
	if err := m.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("admin server shutdown: %w", err)
	}
	m.logger.Info("admin server stopped")
	return nil
}
