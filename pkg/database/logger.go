package database

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pulse-social/pulse/pkg/log"
)

// Logger writes GORM output through the request logger in ctx, so SQL
// lines carry the request id of the call that issued them.
type Logger struct {
	level logger.LogLevel
	slow  time.Duration
}

var _ logger.Interface = (*Logger)(nil)

// NewLogger accepts silent, error, warn or info. Anything else means warn.
func NewLogger(level string, slow time.Duration) *Logger {
	return &Logger{level: gormLevel(level), slow: slow}
}

func gormLevel(s string) logger.LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	}
	return logger.Warn
}

func (g *Logger) LogMode(level logger.LogLevel) logger.Interface {
	next := *g
	next.level = level
	return &next
}

func (g *Logger) Info(ctx context.Context, msg string, args ...interface{}) {
	if g.level >= logger.Info {
		l := log.Ctx(ctx)
		l.Info().Msgf(msg, args...)
	}
}

func (g *Logger) Warn(ctx context.Context, msg string, args ...interface{}) {
	if g.level >= logger.Warn {
		l := log.Ctx(ctx)
		l.Warn().Msgf(msg, args...)
	}
}

func (g *Logger) Error(ctx context.Context, msg string, args ...interface{}) {
	if g.level >= logger.Error {
		l := log.Ctx(ctx)
		l.Error().Msgf(msg, args...)
	}
}

// Trace logs failed statements at error, slow ones at warn and, at info
// level, everything else at debug. Missing rows are not failures.
func (g *Logger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.level <= logger.Silent {
		return
	}
	elapsed := time.Since(begin)
	l := log.Ctx(ctx)

	switch {
	case err != nil && g.level >= logger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		l.Error().Err(err).Str("sql", sql).Int64("rows", rows).Dur("elapsed", elapsed).Msg("query failed")
	case g.slow > 0 && elapsed > g.slow && g.level >= logger.Warn:
		sql, rows := fc()
		l.Warn().Str("sql", sql).Int64("rows", rows).Dur("elapsed", elapsed).Dur("threshold", g.slow).Msg("slow query")
	case g.level >= logger.Info:
		sql, rows := fc()
		l.Debug().Str("sql", sql).Int64("rows", rows).Dur("elapsed", elapsed).Msg("query")
	}
}
