package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"

	domainavailability "rentals/internal/domain/availability"
	domainitems "rentals/internal/domain/items"
	domainrental "rentals/internal/domain/rental"
	domainsettings "rentals/internal/domain/settings"
	"rentals/internal/domain/shared/daterange"
	"rentals/internal/domain/shared/money"
)

var (
	ErrConcurrentUpdate = errors.New("postgres: concurrent update detected")
	ErrRentalExists     = errors.New("postgres: rental already exists")
)

// ItemRepository reads the catalogue through the unit's transaction.
type ItemRepository struct {
	q sqlx.ExtContext
}

func NewItemRepository(q sqlx.ExtContext) *ItemRepository {
	return &ItemRepository{q: q}
}

func (r *ItemRepository) ByID(ctx context.Context, id domainitems.ItemID) (*domainitems.Item, error) {
	query, args, err := dialect.From(tableItems).
		Select(itemColumns...).
		Where(goqu.C("id").Eq(string(id))).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, err
	}
	var row itemRow
	if err := sqlx.GetContext(ctx, r.q, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainitems.ErrItemNotFound
		}
		return nil, err
	}
	return row.toDomain(), nil
}

// Save upserts an item; used by seeding and tests.
func (r *ItemRepository) Save(ctx context.Context, item *domainitems.Item) error {
	row := itemRowFrom(item)
	query, args, err := dialect.Insert(tableItems).
		Rows(row).
		OnConflict(goqu.DoUpdate("id", goqu.Record{
			"owner_id":           row.OwnerID,
			"title":              row.Title,
			"currency":           row.Currency,
			"price_per_day":      row.PricePerDay,
			"price_per_hour":     row.PricePerHour,
			"deposit":            row.Deposit,
			"delivery_available": row.DeliveryAvailable,
			"delivery_fee":       row.DeliveryFee,
			"delivery_radius_km": row.DeliveryRadiusKm,
			"available":          row.Available,
		})).
		Prepared(true).ToSQL()
	if err != nil {
		return err
	}
	_, err = r.q.ExecContext(ctx, query, args...)
	return err
}

// RentalRepository maps the rental aggregate to one row. Updates are guarded
// by the version column.
type RentalRepository struct {
	q sqlx.ExtContext
}

func NewRentalRepository(q sqlx.ExtContext) *RentalRepository {
	return &RentalRepository{q: q}
}

func (r *RentalRepository) ByID(ctx context.Context, id domainrental.RentalID) (*domainrental.Rental, error) {
	query, args, err := dialect.From(tableRentals).
		Select(rentalColumns...).
		Where(goqu.C("id").Eq(string(id)), goqu.C("removed_at").IsNull()).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, err
	}
	var row rentalRow
	if err := sqlx.GetContext(ctx, r.q, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainrental.ErrRentalNotFound
		}
		return nil, err
	}
	return row.toDomain(), nil
}

func (r *RentalRepository) ListByItem(ctx context.Context, itemID domainitems.ItemID) ([]*domainrental.Rental, error) {
	return r.list(ctx, goqu.C("item_id").Eq(string(itemID)))
}

func (r *RentalRepository) ListByStatus(ctx context.Context, status domainrental.Status) ([]*domainrental.Rental, error) {
	return r.list(ctx, goqu.C("status").Eq(string(status)))
}

func (r *RentalRepository) list(ctx context.Context, filters ...goqu.Expression) ([]*domainrental.Rental, error) {
	filters = append(filters, goqu.C("removed_at").IsNull())
	query, args, err := dialect.From(tableRentals).
		Select(rentalColumns...).
		Where(filters...).
		Order(goqu.C("start_at").Asc(), goqu.C("id").Asc()).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, err
	}
	var rows []rentalRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]*domainrental.Rental, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *RentalRepository) Add(ctx context.Context, rental *domainrental.Rental) error {
	rental.Version = 1
	query, args, err := dialect.Insert(tableRentals).
		Rows(rentalRowFrom(rental)).
		OnConflict(goqu.DoNothing()).
		Prepared(true).ToSQL()
	if err != nil {
		return err
	}
	res, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrRentalExists
	}
	return nil
}

func (r *RentalRepository) Update(ctx context.Context, rental *domainrental.Rental) error {
	return r.replace(ctx, rental)
}

// Remove persists the soft-delete marker set by the aggregate.
func (r *RentalRepository) Remove(ctx context.Context, rental *domainrental.Rental) error {
	return r.replace(ctx, rental)
}

func (r *RentalRepository) replace(ctx context.Context, rental *domainrental.Rental) error {
	row := rentalRowFrom(rental)
	row.Version = rental.Version + 1
	query, args, err := dialect.Update(tableRentals).
		Set(row).
		Where(goqu.C("id").Eq(row.ID), goqu.C("version").Eq(rental.Version), goqu.C("removed_at").IsNull()).
		Prepared(true).ToSQL()
	if err != nil {
		return err
	}
	res, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, lookupErr := r.ByID(ctx, rental.ID); lookupErr != nil {
			return lookupErr
		}
		return ErrConcurrentUpdate
	}
	rental.Version = row.Version
	return nil
}

// ConflictChecker asks the database for the first blocking rental that
// overlaps the requested period.
type ConflictChecker struct {
	q sqlx.ExtContext
}

func NewConflictChecker(q sqlx.ExtContext) *ConflictChecker {
	return &ConflictChecker{q: q}
}

func (c *ConflictChecker) HasConflict(ctx context.Context, itemID domainitems.ItemID, period daterange.DateRange, excludeID domainrental.RentalID) (domainavailability.Conflict, bool, error) {
	var blocking []any
	for _, s := range domainrental.AllStatuses {
		if s.Blocking() {
			blocking = append(blocking, string(s))
		}
	}
	filters := []goqu.Expression{
		goqu.C("item_id").Eq(string(itemID)),
		goqu.C("removed_at").IsNull(),
		goqu.C("status").In(blocking...),
		goqu.C("start_at").Lt(period.End),
		goqu.C("end_at").Gt(period.Start),
	}
	if excludeID != "" {
		filters = append(filters, goqu.C("id").Neq(string(excludeID)))
	}
	query, args, err := dialect.From(tableRentals).
		Select("id", "start_at", "end_at", "status").
		Where(filters...).
		Order(goqu.C("start_at").Asc()).
		Limit(1).
		Prepared(true).ToSQL()
	if err != nil {
		return domainavailability.Conflict{}, false, err
	}
	var row struct {
		ID      string    `db:"id"`
		StartAt time.Time `db:"start_at"`
		EndAt   time.Time `db:"end_at"`
		Status  string    `db:"status"`
	}
	if err := sqlx.GetContext(ctx, c.q, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domainavailability.Conflict{}, false, nil
		}
		return domainavailability.Conflict{}, false, err
	}
	return domainavailability.Conflict{
		RentalID: domainrental.RentalID(row.ID),
		Period:   daterange.DateRange{Start: row.StartAt.UTC(), End: row.EndAt.UTC()},
		Status:   domainrental.Status(row.Status),
	}, true, nil
}

// SettingsRepository keeps a single settings row; defaults apply until one exists.
type SettingsRepository struct {
	q sqlx.ExtContext
}

func NewSettingsRepository(q sqlx.ExtContext) *SettingsRepository {
	return &SettingsRepository{q: q}
}

func (r *SettingsRepository) PlatformSettings(ctx context.Context) (domainsettings.PlatformSettings, error) {
	query, args, err := dialect.From(tableSettings).
		Select("fee_rate").
		Where(goqu.C("id").Eq(1)).
		Prepared(true).ToSQL()
	if err != nil {
		return domainsettings.PlatformSettings{}, err
	}
	var rate int64
	if err := sqlx.GetContext(ctx, r.q, &rate, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domainsettings.Default(), nil
		}
		return domainsettings.PlatformSettings{}, err
	}
	return domainsettings.PlatformSettings{FeeRate: money.Rate(rate)}, nil
}

func (r *SettingsRepository) Save(ctx context.Context, s domainsettings.PlatformSettings) error {
	if err := s.FeeRate.Validate(); err != nil {
		return err
	}
	query, args, err := dialect.Insert(tableSettings).
		Rows(goqu.Record{"id": 1, "fee_rate": int64(s.FeeRate)}).
		OnConflict(goqu.DoUpdate("id", goqu.Record{"fee_rate": int64(s.FeeRate)})).
		Prepared(true).ToSQL()
	if err != nil {
		return err
	}
	_, err = r.q.ExecContext(ctx, query, args...)
	return err
}

var (
	_ domainitems.Repository     = (*ItemRepository)(nil)
	_ domainrental.Repository    = (*RentalRepository)(nil)
	_ domainsettings.Repository  = (*SettingsRepository)(nil)
	_ domainavailability.Checker = (*ConflictChecker)(nil)
)
