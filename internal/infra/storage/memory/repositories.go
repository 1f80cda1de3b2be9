package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	domainitems "rentals/internal/domain/items"
	domainrental "rentals/internal/domain/rental"
	domainsettings "rentals/internal/domain/settings"
)

var (
	ErrRentalExists     = errors.New("memory: rental already exists")
	ErrConcurrentUpdate = errors.New("memory: concurrent update detected")
)

// ItemRepository is an in-memory catalogue used for demos and tests.
type ItemRepository struct {
	mu    sync.RWMutex
	items map[domainitems.ItemID]domainitems.Item
}

func NewItemRepository() *ItemRepository {
	return &ItemRepository{items: make(map[domainitems.ItemID]domainitems.Item)}
}

// ByID returns a copy of the item or ErrItemNotFound.
func (r *ItemRepository) ByID(ctx context.Context, id domainitems.ItemID) (*domainitems.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.items[id]
	if !ok {
		return nil, domainitems.ErrItemNotFound
	}
	return &item, nil
}

// Save stores/updates an item entry.
func (r *ItemRepository) Save(ctx context.Context, item *domainitems.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[item.ID] = *item
	return nil
}

// RentalRepository keeps detached copies so that callers never share
// aggregates across units of work.
type RentalRepository struct {
	mu      sync.RWMutex
	rentals map[domainrental.RentalID]*domainrental.Rental
}

func NewRentalRepository() *RentalRepository {
	return &RentalRepository{rentals: make(map[domainrental.RentalID]*domainrental.Rental)}
}

func (r *RentalRepository) ByID(ctx context.Context, id domainrental.RentalID) (*domainrental.Rental, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored, ok := r.rentals[id]
	if !ok || stored.RemovedAt != nil {
		return nil, domainrental.ErrRentalNotFound
	}
	return clone(stored), nil
}

func (r *RentalRepository) ListByItem(ctx context.Context, itemID domainitems.ItemID) ([]*domainrental.Rental, error) {
	return r.filter(func(x *domainrental.Rental) bool { return x.ItemID == itemID }), nil
}

func (r *RentalRepository) ListByStatus(ctx context.Context, status domainrental.Status) ([]*domainrental.Rental, error) {
	return r.filter(func(x *domainrental.Rental) bool { return x.Status == status }), nil
}

func (r *RentalRepository) filter(keep func(*domainrental.Rental) bool) []*domainrental.Rental {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domainrental.Rental, 0)
	for _, stored := range r.rentals {
		if stored.RemovedAt != nil || !keep(stored) {
			continue
		}
		out = append(out, clone(stored))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Period.Start.Equal(out[j].Period.Start) {
			return out[i].ID < out[j].ID
		}
		return out[i].Period.Start.Before(out[j].Period.Start)
	})
	return out
}

func (r *RentalRepository) Add(ctx context.Context, rental *domainrental.Rental) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.rentals[rental.ID]; exists {
		return ErrRentalExists
	}
	rental.Version = 1
	r.rentals[rental.ID] = clone(rental)
	return nil
}

func (r *RentalRepository) Update(ctx context.Context, rental *domainrental.Rental) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.replace(rental)
}

// Remove persists the soft-delete marker set by the aggregate.
func (r *RentalRepository) Remove(ctx context.Context, rental *domainrental.Rental) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.replace(rental)
}

func (r *RentalRepository) replace(rental *domainrental.Rental) error {
	stored, ok := r.rentals[rental.ID]
	if !ok || stored.RemovedAt != nil {
		return domainrental.ErrRentalNotFound
	}
	if stored.Version != rental.Version {
		return ErrConcurrentUpdate
	}
	rental.Version++
	r.rentals[rental.ID] = clone(rental)
	return nil
}

// snapshot returns the stored copy including removed rentals.
func (r *RentalRepository) snapshot(id domainrental.RentalID) *domainrental.Rental {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if stored, ok := r.rentals[id]; ok {
		return clone(stored)
	}
	return nil
}

// restore puts back a snapshot, or deletes the entry when prev is nil.
func (r *RentalRepository) restore(id domainrental.RentalID, prev *domainrental.Rental) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev == nil {
		delete(r.rentals, id)
		return
	}
	r.rentals[id] = prev
}

func clone(src *domainrental.Rental) *domainrental.Rental {
	c := *src
	c.ClearEvents()
	return &c
}

// SettingsRepository returns defaults until settings are stored.
type SettingsRepository struct {
	mu       sync.RWMutex
	settings *domainsettings.PlatformSettings
}

func NewSettingsRepository() *SettingsRepository {
	return &SettingsRepository{}
}

func (r *SettingsRepository) PlatformSettings(ctx context.Context) (domainsettings.PlatformSettings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.settings == nil {
		return domainsettings.Default(), nil
	}
	return *r.settings, nil
}

func (r *SettingsRepository) Save(ctx context.Context, s domainsettings.PlatformSettings) error {
	if err := s.FeeRate.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings = &s
	return nil
}

var (
	_ domainitems.Repository    = (*ItemRepository)(nil)
	_ domainrental.Repository   = (*RentalRepository)(nil)
	_ domainsettings.Repository = (*SettingsRepository)(nil)
)
