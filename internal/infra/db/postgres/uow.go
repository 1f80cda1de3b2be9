package postgres

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"github.com/jmoiron/sqlx"

	"rentals/internal/app/uow"
	domainavailability "rentals/internal/domain/availability"
	domainitems "rentals/internal/domain/items"
	domainrental "rentals/internal/domain/rental"
	domainsettings "rentals/internal/domain/settings"
)

// advisoryLockSQL holds the lock until the surrounding transaction ends.
const advisoryLockSQL = `SELECT pg_advisory_xact_lock(hashtext($1))`

var ErrUnitClosed = errors.New("postgres: unit of work already finished")

type UnitOfWorkFactory struct {
	db *sqlx.DB
}

func NewUnitOfWorkFactory(db *sqlx.DB) *UnitOfWorkFactory {
	return &UnitOfWorkFactory{db: db}
}

func (f *UnitOfWorkFactory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	tx, err := f.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted, ReadOnly: opts.ReadOnly})
	if err != nil {
		return nil, err
	}
	return &UnitOfWork{
		tx:       tx,
		items:    NewItemRepository(tx),
		rentals:  NewRentalRepository(tx),
		settings: NewSettingsRepository(tx),
		checker:  NewConflictChecker(tx),
	}, nil
}

// UnitOfWork wraps one database transaction. Item locks are advisory locks
// scoped to that transaction.
type UnitOfWork struct {
	tx       *sqlx.Tx
	items    *ItemRepository
	rentals  *RentalRepository
	settings *SettingsRepository
	checker  *ConflictChecker

	mu   sync.Mutex
	done bool
}

func (u *UnitOfWork) Items() domainitems.Repository {
	return u.items
}

func (u *UnitOfWork) Rentals() domainrental.Repository {
	return u.rentals
}

func (u *UnitOfWork) Settings() domainsettings.Repository {
	return u.settings
}

func (u *UnitOfWork) Availability() domainavailability.Checker {
	return u.checker
}

func (u *UnitOfWork) Lock(ctx context.Context, key string) error {
	_, err := u.tx.ExecContext(ctx, advisoryLockSQL, key)
	return err
}

func (u *UnitOfWork) Commit(ctx context.Context) error {
	if !u.finish() {
		return ErrUnitClosed
	}
	return u.tx.Commit()
}

func (u *UnitOfWork) Rollback(ctx context.Context) error {
	if !u.finish() {
		return nil
	}
	return u.tx.Rollback()
}

func (u *UnitOfWork) finish() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.done {
		return false
	}
	u.done = true
	return true
}

type txKey struct{}

// InjectContext exposes the transaction to stores that are wired outside the
// unit, such as the outbox.
func (u *UnitOfWork) InjectContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, txKey{}, u.tx)
}

func txFromContext(ctx context.Context) (*sqlx.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(*sqlx.Tx)
	return tx, ok
}

var (
	_ uow.UoWFactory = (*UnitOfWorkFactory)(nil)
	_ uow.UnitOfWork = (*UnitOfWork)(nil)
)
