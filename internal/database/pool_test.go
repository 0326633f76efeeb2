package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// =============================================================================
// 🧪 PoolManager 测试
// =============================================================================

func newMockPool(t *testing.T, cfg PoolConfig) (*PoolManager, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB}), &gorm.Config{DisableAutomaticPing: true})
	require.NoError(t, err)

	pm, err := NewPoolManager(gormDB, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	return pm, mock
}

func TestNewPoolManager(t *testing.T) {
	pm, mock := newMockPool(t, PoolConfig{MaxOpenConns: 7, MaxIdleConns: 3})
	assert.Equal(t, 7, pm.Stats().MaxOpenConnections)
	assert.NotNil(t, pm.DB())

	_, err := NewPoolManager(nil, DefaultPoolConfig(), nil)
	assert.Error(t, err)

	mock.ExpectClose()
	require.NoError(t, pm.Close())
}

func TestPoolManager_Ping(t *testing.T) {
	pm, mock := newMockPool(t, PoolConfig{MaxOpenConns: 2, MaxIdleConns: 1})

	mock.ExpectPing()
	require.NoError(t, pm.Ping(context.Background()))

	mock.ExpectPing().WillReturnError(errors.New("server gone"))
	assert.ErrorContains(t, pm.Ping(context.Background()), "server gone")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPoolManager_HealthCheckReportsStats(t *testing.T) {
	pm, mock := newMockPool(t, PoolConfig{MaxOpenConns: 4, MaxIdleConns: 2, HealthCheckInterval: 20 * time.Millisecond})

	mock.MatchExpectationsInOrder(false)
	for i := 0; i < 50; i++ {
		mock.ExpectPing()
	}

	reported := make(chan sql.DBStats, 1)
	pm.OnStats(func(s sql.DBStats) {
		select {
		case reported <- s:
		default:
		}
	})

	select {
	case s := <-reported:
		assert.Equal(t, 4, s.MaxOpenConnections)
	case <-time.After(2 * time.Second):
		t.Fatal("health check did not report stats")
	}

	mock.ExpectClose()
	require.NoError(t, pm.Close())
}

func TestPoolManager_Closed(t *testing.T) {
	pm, mock := newMockPool(t, PoolConfig{MaxOpenConns: 2, MaxIdleConns: 1})

	mock.ExpectClose()
	require.NoError(t, pm.Close())
	require.NoError(t, pm.Close())

	assert.ErrorIs(t, pm.Ping(context.Background()), ErrClosed)
	err := pm.Transact(context.Background(), 3, func(*gorm.DB) error { return nil })
	assert.ErrorIs(t, err, ErrClosed)
}

func TestPoolManager_Transact(t *testing.T) {
	pm, mock := newMockPool(t, PoolConfig{MaxOpenConns: 2, MaxIdleConns: 1})
	ctx := context.Background()

	t.Run("transient failure is retried", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectRollback()
		mock.ExpectBegin()
		mock.ExpectCommit()

		attempts := 0
		err := pm.Transact(ctx, 3, func(*gorm.DB) error {
			attempts++
			if attempts == 1 {
				return errors.New("ERROR: deadlock detected (SQLSTATE 40P01)")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 2, attempts)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("permanent failure stops", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectRollback()

		attempts := 0
		err := pm.Transact(ctx, 3, func(*gorm.DB) error {
			attempts++
			return errors.New("unique constraint violated")
		})
		assert.ErrorContains(t, err, "unique constraint")
		assert.Equal(t, 1, attempts)
	})

	t.Run("retries are bounded", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			mock.ExpectBegin()
			mock.ExpectRollback()
		}

		attempts := 0
		err := pm.Transact(ctx, 1, func(*gorm.DB) error {
			attempts++
			return errors.New("database is locked")
		})
		assert.Error(t, err)
		assert.Equal(t, 2, attempts)
	})
}

func TestTransient(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("deadlock detected"), true},
		{errors.New("pq: could not serialize access (40001)"), true},
		{errors.New("dial tcp: connection refused"), true},
		{errors.New("Lock wait timeout exceeded"), true},
		{errors.New("database is locked (5) (SQLITE_BUSY)"), true},
		{fmt.Errorf("insert: %w", driver.ErrBadConn), true},
		{errors.New("syntax error"), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Transient(tt.err), "%v", tt.err)
	}
}

// =============================================================================
// 🔌 Open 测试
// =============================================================================

func TestDialector(t *testing.T) {
	for _, name := range []string{"sqlite", "postgres", "mysql", "POSTGRESQL"} {
		d, err := Dialector(name, "dsn")
		require.NoError(t, err, name)
		assert.NotNil(t, d)
	}

	_, err := Dialector("oracle", "dsn")
	assert.ErrorContains(t, err, "unsupported database driver")

	_, err = Dialector("sqlite", "")
	assert.Error(t, err)
}

func TestOpen_SQLiteSingleWriter(t *testing.T) {
	pm, err := Open(Config{
		Driver: DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "audit.db"),
		Pool:   PoolConfig{MaxOpenConns: 8, MaxIdleConns: 4},
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer pm.Close()

	require.NoError(t, pm.Ping(context.Background()))
	assert.Equal(t, 1, pm.Stats().MaxOpenConnections)

	_, err = Open(Config{Driver: DriverSQLite, DSN: "x.db"}, nil)
	assert.ErrorContains(t, err, "invalid pool config")
}

func TestPoolConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     PoolConfig
		wantErr string
	}{
		{"defaults", DefaultPoolConfig(), ""},
		{"zero open", PoolConfig{MaxIdleConns: 1}, "max_open_conns"},
		{"zero idle", PoolConfig{MaxOpenConns: 1}, "max_idle_conns must be positive"},
		{"idle above open", PoolConfig{MaxOpenConns: 1, MaxIdleConns: 2}, "exceeds"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
