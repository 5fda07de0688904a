package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/justsurfingit/Agentic-Job-Tracker/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormLogger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return sqlDB
}

func observedLogger() (*logger.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return &logger.Logger{SugaredLogger: zap.New(core).Sugar()}, logs
}

func TestPingOrClose(t *testing.T) {
	t.Run("healthy pool stays open", func(t *testing.T) {
		sqlDB := openSQLite(t)
		require.NoError(t, pingOrClose(context.Background(), sqlDB))
		assert.NoError(t, sqlDB.PingContext(context.Background()))
	})

	t.Run("failed ping closes the pool", func(t *testing.T) {
		sqlDB := openSQLite(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := pingOrClose(ctx, sqlDB)
		require.ErrorIs(t, err, context.Canceled)
		assert.ErrorContains(t, sqlDB.PingContext(context.Background()), "database is closed")
	})
}

func TestGormLogger_Trace(t *testing.T) {
	sqlFn := func() (string, int64) { return "SELECT * FROM jobs", 3 }

	t.Run("failed statement logs at error", func(t *testing.T) {
		log, logs := observedLogger()
		gl := newGormLogger(log, gormLogger.Warn, time.Second)

		gl.Trace(context.Background(), time.Now(), sqlFn, errors.New("relation does not exist"))

		entries := logs.All()
		require.Len(t, entries, 1)
		assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
		assert.Equal(t, "Query failed", entries[0].Message)
		fields := entries[0].ContextMap()
		assert.Equal(t, "SELECT * FROM jobs", fields["sql"])
		assert.Equal(t, "gorm", fields["component"])
	})

	t.Run("record not found stays quiet", func(t *testing.T) {
		log, logs := observedLogger()
		gl := newGormLogger(log, gormLogger.Warn, time.Second)

		gl.Trace(context.Background(), time.Now(), sqlFn, gorm.ErrRecordNotFound)

		assert.Zero(t, logs.Len())
	})

	t.Run("slow statement logs at warn", func(t *testing.T) {
		log, logs := observedLogger()
		gl := newGormLogger(log, gormLogger.Warn, time.Second)

		gl.Trace(context.Background(), time.Now().Add(-2*time.Second), sqlFn, nil)

		entries := logs.All()
		require.Len(t, entries, 1)
		assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
		assert.Equal(t, "Slow query", entries[0].Message)
	})

	t.Run("fast statement at warn level is dropped", func(t *testing.T) {
		log, logs := observedLogger()
		gl := newGormLogger(log, gormLogger.Warn, time.Second)

		gl.Trace(context.Background(), time.Now(), sqlFn, nil)

		assert.Zero(t, logs.Len())
	})

	t.Run("silent mode drops failures", func(t *testing.T) {
		log, logs := observedLogger()
		gl := newGormLogger(log, gormLogger.Warn, time.Second)

		gl.LogMode(gormLogger.Silent).Trace(context.Background(), time.Now(), sqlFn, errors.New("boom"))
		assert.Zero(t, logs.Len())

		gl.Trace(context.Background(), time.Now(), sqlFn, errors.New("boom"))
		assert.Equal(t, 1, logs.Len(), "LogMode returns a copy")
	})
}

func TestGormLogger_Messages(t *testing.T) {
	log, logs := observedLogger()
	gl := newGormLogger(log, gormLogger.Warn, time.Second)

	gl.Info(context.Background(), "migrated %d tables", 7)
	gl.Warn(context.Background(), "deprecated %s", "option")
	gl.Error(context.Background(), "driver said %q", "no")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "deprecated option", entries[0].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, `driver said "no"`, entries[1].Message)
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
}
