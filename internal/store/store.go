// Package store owns the ledger database and its unit of work.
//
// Every public ledger operation runs inside Transaction. The outermost
// transaction holds a process-wide lock, so operations are applied one at a
// time. Calls made with a context that already carries a transaction join it
// through a savepoint, which lets recipient hooks re-enter the ledger and see
// the effects already applied by the enclosing operation.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/fd1az/nft-auction/internal/apperror"
	"github.com/fd1az/nft-auction/internal/config"
	"github.com/fd1az/nft-auction/internal/logger"
)

// DB is the ledger database.
type DB struct {
	db  *gorm.DB
	mu  sync.Mutex
	log logger.LoggerInterface
}

// Open connects to the configured database.
func Open(cfg config.StoreConfig, log logger.LoggerInterface) (*DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite", "":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("unsupported store driver "+cfg.Driver))
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 newGormLogger(log, cfg.LogSQL),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, apperror.Internal(apperror.CodeStoreError, "open database", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, apperror.Internal(apperror.CodeStoreError, "database handle", err)
	}

	// A sqlite memory database lives on one connection.
	switch {
	case cfg.Driver != "postgres":
		sqlDB.SetMaxOpenConns(1)
	case cfg.MaxOpenConns > 0:
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	return &DB{db: gdb, log: log}, nil
}

// OpenMemory opens a private sqlite memory database. Used by tests and the dev daemon.
func OpenMemory(log logger.LoggerInterface) (*DB, error) {
	return Open(config.StoreConfig{Driver: "sqlite", DSN: ":memory:"}, log)
}

// Migrate creates or updates the tables for models.
func (d *DB) Migrate(models ...any) error {
	if err := d.db.AutoMigrate(models...); err != nil {
		return apperror.Internal(apperror.CodeStoreError, "migrate", err)
	}
	return nil
}

// Conn returns the handle to use for ctx: the enclosing transaction if any,
// otherwise the root connection.
func (d *DB) Conn(ctx context.Context) *gorm.DB {
	if st := stateFrom(ctx); st != nil {
		return st.tx.WithContext(ctx)
	}
	return d.db.WithContext(ctx)
}

// InTransaction reports whether ctx carries a ledger transaction.
func InTransaction(ctx context.Context) bool {
	return stateFrom(ctx) != nil
}

// Transaction runs fn atomically. Errors returned by fn roll back every write
// made through Conn inside it. Nested calls roll back to their savepoint.
func (d *DB) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if parent := stateFrom(ctx); parent != nil {
		return d.nested(ctx, parent, fn)
	}

	d.mu.Lock()
	st := &txState{}
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		st.tx = tx
		return fn(context.WithValue(ctx, txKey{}, st))
	})
	d.mu.Unlock()

	if err != nil {
		return err
	}

	for _, hook := range st.afterCommit {
		hook()
	}
	return nil
}

func (d *DB) nested(ctx context.Context, parent *txState, fn func(ctx context.Context) error) error {
	child := &txState{}
	err := parent.tx.Transaction(func(tx *gorm.DB) error {
		child.tx = tx
		return fn(context.WithValue(ctx, txKey{}, child))
	})
	if err != nil {
		return err
	}

	parent.afterCommit = append(parent.afterCommit, child.afterCommit...)
	return nil
}

// AfterCommit schedules hook to run once the outermost transaction of ctx
// commits. Hooks registered in a rolled back savepoint are dropped. Outside a
// transaction the hook runs immediately.
func AfterCommit(ctx context.Context, hook func()) {
	st := stateFrom(ctx)
	if st == nil {
		hook()
		return
	}
	st.afterCommit = append(st.afterCommit, hook)
}

// Ping checks database connectivity.
func (d *DB) Ping(ctx context.Context) error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the connection pool.
func (d *DB) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// IsNotFound reports whether err is gorm's record-not-found.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// Wrap converts a database error into a store AppError.
func Wrap(err error, op string) error {
	if err == nil {
		return nil
	}
	if apperror.IsAppError(err) {
		return err
	}
	return apperror.Internal(apperror.CodeStoreError, op, fmt.Errorf("%s: %w", op, err))
}

type txKey struct{}

type txState struct {
	tx          *gorm.DB
	afterCommit []func()
}

func stateFrom(ctx context.Context) *txState {
	st, _ := ctx.Value(txKey{}).(*txState)
	return st
}
