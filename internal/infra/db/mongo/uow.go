package mongo

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"rentals/internal/app/uow"
	domainavailability "rentals/internal/domain/availability"
	domainitems "rentals/internal/domain/items"
	domainrental "rentals/internal/domain/rental"
	domainsettings "rentals/internal/domain/settings"
)

// Factory wires Mongo transactions into the generic UnitOfWork interface.
// Locks serializes writers before they enter the transaction; the lock
// document written inside the transaction makes overlapping writers conflict
// even when Locks is process-local.
type Factory struct {
	DB *mongo.Database

	ItemsRepo    *ItemRepository
	RentalsRepo  *RentalRepository
	SettingsRepo *SettingsRepository
	Locks        uow.Locker
}

var ErrUnitOfWorkNotConfigured = errors.New("mongo: unit of work factory missing database")

func NewFactory(db *mongo.Database, locks uow.Locker) Factory {
	return Factory{
		DB:           db,
		ItemsRepo:    NewItemRepository(db),
		RentalsRepo:  NewRentalRepository(db),
		SettingsRepo: NewSettingsRepository(db),
		Locks:        locks,
	}
}

// Begin starts a MongoDB session/transaction.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	session, err := f.DB.Client().StartSession()
	if err != nil {
		return nil, err
	}
	txnOpts := options.Transaction().SetReadConcern(f.DB.ReadConcern()).SetWriteConcern(f.DB.WriteConcern())
	if err := session.StartTransaction(txnOpts); err != nil {
		session.EndSession(ctx)
		return nil, err
	}
	return &Unit{
		session:  session,
		locksCol: f.DB.Collection("item_locks"),
		items:    f.ItemsRepo,
		rentals:  f.RentalsRepo,
		settings: f.SettingsRepo,
		locks:    uow.HeldLocks{Locker: f.Locks},
	}, nil
}

type Unit struct {
	session  mongo.Session
	locksCol *mongo.Collection

	items    *ItemRepository
	rentals  *RentalRepository
	settings *SettingsRepository

	mu    sync.Mutex
	locks uow.HeldLocks
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
	return u.rentals
}

// Lock takes the process or Redis lock when configured, then touches the
// lock document in the transaction. ctx must carry the unit's session.
func (u *Unit) Lock(ctx context.Context, key string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.locks.Locker != nil {
		if err := u.locks.Lock(ctx, key); err != nil {
			return err
		}
	}
	_, err := u.locksCol.UpdateOne(ctx,
		bson.M{"_id": key},
		bson.M{"$inc": bson.M{"seq": 1}, "$set": bson.M{"touched_at": time.Now().UTC()}},
		options.Update().SetUpsert(true),
	)
	return err
}

func (u *Unit) Commit(ctx context.Context) error {
	defer u.release(ctx)
	return u.session.CommitTransaction(ctx)
}

func (u *Unit) Rollback(ctx context.Context) error {
	defer u.release(ctx)
	return u.session.AbortTransaction(ctx)
}

func (u *Unit) release(ctx context.Context) {
	u.session.EndSession(ctx)
	u.mu.Lock()
	u.locks.ReleaseAll()
	u.mu.Unlock()
}

// InjectContext ensures Mongo session is available in context for downstream repos.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, u.session)
}

var (
	_ uow.UoWFactory = Factory{}
	_ uow.UnitOfWork = (*Unit)(nil)
)
