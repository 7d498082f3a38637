package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"courtly/pkg/logger"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// queryLogger sends gorm's query log through the application logger.
type queryLogger struct {
	log   *logger.Logger
	level gormlogger.LogLevel
	slow  time.Duration
}

func newQueryLogger(log *logger.Logger, level gormlogger.LogLevel, slow time.Duration) gormlogger.Interface {
	return &queryLogger{log: log, level: level, slow: slow}
}

func (q *queryLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cp := *q
	cp.level = level
	return &cp
}

func (q *queryLogger) Info(ctx context.Context, msg string, args ...interface{}) {
	if q.level >= gormlogger.Info {
		q.log.InfoContext(ctx, fmt.Sprintf(msg, args...))
	}
}

func (q *queryLogger) Warn(ctx context.Context, msg string, args ...interface{}) {
	if q.level >= gormlogger.Warn {
		q.log.WarnContext(ctx, fmt.Sprintf(msg, args...))
	}
}

func (q *queryLogger) Error(ctx context.Context, msg string, args ...interface{}) {
	if q.level >= gormlogger.Error {
		q.log.ErrorContext(ctx, fmt.Sprintf(msg, args...))
	}
}

// Trace logs failed queries, then slow ones, then everything at Info level.
// Record-not-found is a normal outcome and is not logged as an error.
func (q *queryLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if q.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && q.level >= gormlogger.Error:
		sql, _ := fc()
		q.log.LogDBQuery(ctx, sql, elapsed, err)
	case q.slow > 0 && elapsed > q.slow && q.level >= gormlogger.Warn:
		sql, _ := fc()
		q.log.LogSlowQuery(ctx, sql, elapsed)
	case q.level >= gormlogger.Info:
		sql, _ := fc()
		q.log.LogDBQuery(ctx, sql, elapsed, nil)
	}
}
