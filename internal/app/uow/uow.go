package uow

import (
	"context"

	domainavailability "rentals/internal/domain/availability"
	domainitems "rentals/internal/domain/items"
	domainrental "rentals/internal/domain/rental"
	domainsettings "rentals/internal/domain/settings"
)

// UnitOfWork coordinates repositories inside a transaction boundary.
type UnitOfWork interface {
	Items() domainitems.Repository
	Rentals() domainrental.Repository
	Settings() domainsettings.Repository
	Availability() domainavailability.Checker

	// Lock serializes writers on key until Commit or Rollback. Handlers lock
	// an item before checking its calendar so that check and write are atomic.
	Lock(ctx context.Context, key string) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UoWFactory starts unit of work instances.
type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

// TxOptions configure transaction boundaries.
type TxOptions struct {
	ReadOnly bool
}

// ItemLockKey is the lock key shared by every writer touching an item calendar.
func ItemLockKey(itemID domainitems.ItemID) string {
	return "item:" + string(itemID)
}

// Locker provides mutual exclusion on keys across units of work. The release
// func is safe to call more than once.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// HeldLocks tracks the keys a unit acquired so that they can be released
// together on Commit or Rollback. It is not safe for concurrent use.
type HeldLocks struct {
	Locker   Locker
	releases map[string]func()
}

// Lock acquires key once per unit; repeated calls are no-ops.
func (h *HeldLocks) Lock(ctx context.Context, key string) error {
	if _, held := h.releases[key]; held {
		return nil
	}
	if h.Locker == nil {
		return ErrLockerMissing
	}
	release, err := h.Locker.Acquire(ctx, key)
	if err != nil {
		return err
	}
	if h.releases == nil {
		h.releases = make(map[string]func())
	}
	h.releases[key] = release
	return nil
}

func (h *HeldLocks) ReleaseAll() {
	for key, release := range h.releases {
		release()
		delete(h.releases, key)
	}
}
