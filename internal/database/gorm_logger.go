package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/justsurfingit/Agentic-Job-Tracker/internal/logger"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// gormZapLogger sends gorm's query and driver messages through the process
// logger so they share its encoding and fields.
type gormZapLogger struct {
	log           *logger.Logger
	level         gormLogger.LogLevel
	slowThreshold time.Duration
}

func newGormLogger(log *logger.Logger, level gormLogger.LogLevel, slow time.Duration) gormLogger.Interface {
	return &gormZapLogger{log: log.With("component", "gorm"), level: level, slowThreshold: slow}
}

func (g *gormZapLogger) LogMode(level gormLogger.LogLevel) gormLogger.Interface {
	next := *g
	next.level = level
	return &next
}

func (g *gormZapLogger) Info(_ context.Context, msg string, args ...interface{}) {
	if g.level >= gormLogger.Info {
		g.log.Info(fmt.Sprintf(msg, args...))
	}
}

func (g *gormZapLogger) Warn(_ context.Context, msg string, args ...interface{}) {
	if g.level >= gormLogger.Warn {
		g.log.Warn(fmt.Sprintf(msg, args...))
	}
}

func (g *gormZapLogger) Error(_ context.Context, msg string, args ...interface{}) {
	if g.level >= gormLogger.Error {
		g.log.Error(fmt.Sprintf(msg, args...))
	}
}

// Trace logs failed statements at error and slow ones at warn. Missing rows
// are expected lookups and stay quiet.
func (g *gormZapLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.level <= gormLogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	switch {
	case err != nil && g.level >= gormLogger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		g.log.Error("Query failed", "error", err, "sql", sql, "rows", rows, "elapsed_ms", elapsed.Milliseconds())
	case g.slowThreshold > 0 && elapsed > g.slowThreshold && g.level >= gormLogger.Warn:
		sql, rows := fc()
		g.log.Warn("Slow query", "sql", sql, "rows", rows, "elapsed_ms", elapsed.Milliseconds(), "threshold_ms", g.slowThreshold.Milliseconds())
	case g.level >= gormLogger.Info:
		sql, rows := fc()
		g.log.Debug("Query", "sql", sql, "rows", rows, "elapsed_ms", elapsed.Milliseconds())
	}
}
