package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/fd1az/nft-auction/internal/logger"
)

const slowQuery = 200 * time.Millisecond

// gormLogger routes gorm output through the application logger.
type gormLogger struct {
	log    logger.LoggerInterface
	level  gormlogger.LogLevel
	logSQL bool
}

func newGormLogger(log logger.LoggerInterface, logSQL bool) gormlogger.Interface {
	return &gormLogger{log: log, level: gormlogger.Error, logSQL: logSQL}
}

func (g *gormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cp := *g
	cp.level = level
	return &cp
}

func (g *gormLogger) Info(ctx context.Context, msg string, args ...any) {
	if g.level >= gormlogger.Info {
		g.log.Infoc(ctx, 4, msg, "args", args)
	}
}

func (g *gormLogger) Warn(ctx context.Context, msg string, args ...any) {
	if g.level >= gormlogger.Warn {
		g.log.Warnc(ctx, 4, msg, "args", args)
	}
}

func (g *gormLogger) Error(ctx context.Context, msg string, args ...any) {
	if g.level >= gormlogger.Error {
		g.log.Errorc(ctx, 4, msg, "args", args)
	}
}

func (g *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		g.log.Errorc(ctx, 5, "sql error", "error", err, "sql", sql, "rows", rows, "elapsed", elapsed)
	case elapsed > slowQuery:
		sql, rows := fc()
		g.log.Warnc(ctx, 5, "slow sql", "sql", sql, "rows", rows, "elapsed", elapsed)
	case g.logSQL:
		sql, rows := fc()
		g.log.Debugc(ctx, 5, "sql", "sql", sql, "rows", rows, "elapsed", elapsed)
	}
}
