package memory

import (
	"context"
	"errors"
	"sync"

	"rentals/internal/app/uow"
	domainavailability "rentals/internal/domain/availability"
	domainitems "rentals/internal/domain/items"
	domainrental "rentals/internal/domain/rental"
	domainsettings "rentals/internal/domain/settings"
)

// Factory wires in-memory repositories into a unit-of-work boundary.
type Factory struct {
	ItemsRepo    *ItemRepository
	RentalsRepo  *RentalRepository
	SettingsRepo domainsettings.Repository
	Locks        uow.Locker
}

// ErrFactoryMisconfigured indicates missing repositories.
var ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")

// NewFactory builds a factory over fresh repositories and an in-process lock table.
func NewFactory() Factory {
	return Factory{
		ItemsRepo:    NewItemRepository(),
		RentalsRepo:  NewRentalRepository(),
		SettingsRepo: NewSettingsRepository(),
		Locks:        NewKeyedMutex(),
	}
}

// Begin starts a unit whose writes go straight to the shared maps and are
// undone on Rollback. Isolation comes from item locks only.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.ItemsRepo == nil || f.RentalsRepo == nil || f.SettingsRepo == nil {
		return nil, ErrFactoryMisconfigured
	}
	u := &Unit{
		items:    f.ItemsRepo,
		settings: f.SettingsRepo,
		readOnly: opts.ReadOnly,
		locks:    uow.HeldLocks{Locker: f.Locks},
	}
	u.rentals = &unitRentals{repo: f.RentalsRepo, unit: u}
	return u, nil
}

// Unit is a lightweight uow.UnitOfWork backed by in-memory stores.
type Unit struct {
	items    *ItemRepository
	rentals  *unitRentals
	settings domainsettings.Repository
	readOnly bool

	mu    sync.Mutex
	locks uow.HeldLocks
	undo  []func()
	done  bool
}

func (u *Unit) Items() domainitems.Repository {
	return u.items
}

func (u *Unit) Rentals() domainrental.Repository {
	return u.rentals
}

func (u *Unit) Settings() domainsettings.Repository {
	return u.settings
}

func (u *Unit) Availability() domainavailability.Checker {
	return domainavailability.RepositoryChecker{Rentals: u.rentals}
}

func (u *Unit) Lock(ctx context.Context, key string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.locks.Lock(ctx, key)
}

func (u *Unit) Commit(ctx context.Context) error {
	u.finish(false)
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	u.finish(true)
	return nil
}

func (u *Unit) finish(revert bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.done {
		return
	}
	u.done = true
	if revert {
		for i := len(u.undo) - 1; i >= 0; i-- {
			u.undo[i]()
		}
	}
	u.undo = nil
	u.locks.ReleaseAll()
}

func (u *Unit) remember(fn func()) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.undo = append(u.undo, fn)
}

// unitRentals records an undo step for every write made through the unit.
type unitRentals struct {
	repo *RentalRepository
	unit *Unit
}

func (r *unitRentals) ByID(ctx context.Context, id domainrental.RentalID) (*domainrental.Rental, error) {
	return r.repo.ByID(ctx, id)
}

func (r *unitRentals) ListByItem(ctx context.Context, itemID domainitems.ItemID) ([]*domainrental.Rental, error) {
	return r.repo.ListByItem(ctx, itemID)
}

func (r *unitRentals) ListByStatus(ctx context.Context, status domainrental.Status) ([]*domainrental.Rental, error) {
	return r.repo.ListByStatus(ctx, status)
}

func (r *unitRentals) Add(ctx context.Context, rental *domainrental.Rental) error {
	return r.write(rental.ID, func() error { return r.repo.Add(ctx, rental) })
}

func (r *unitRentals) Update(ctx context.Context, rental *domainrental.Rental) error {
	return r.write(rental.ID, func() error { return r.repo.Update(ctx, rental) })
}

func (r *unitRentals) Remove(ctx context.Context, rental *domainrental.Rental) error {
	return r.write(rental.ID, func() error { return r.repo.Remove(ctx, rental) })
}

func (r *unitRentals) write(id domainrental.RentalID, apply func() error) error {
	if r.unit.readOnly {
		return uow.ErrReadOnly
	}
	prev := r.repo.snapshot(id)
	if err := apply(); err != nil {
		return err
	}
	r.unit.remember(func() { r.repo.restore(id, prev) })
	return nil
}

var (
	_ uow.UoWFactory          = Factory{}
	_ uow.UnitOfWork          = (*Unit)(nil)
	_ domainrental.Repository = (*unitRentals)(nil)
)
