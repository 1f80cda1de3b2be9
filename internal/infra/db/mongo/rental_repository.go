package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainavailability "rentals/internal/domain/availability"
	domainitems "rentals/internal/domain/items"
	"rentals/internal/domain/pricing"
	domainrental "rentals/internal/domain/rental"
	"rentals/internal/domain/shared/daterange"
	"rentals/internal/domain/shared/money"
)

var (
	ErrConcurrentUpdate = errors.New("mongo: concurrent update detected")
	ErrRentalExists     = errors.New("mongo: rental already exists")
)

type RentalRepository struct {
	col *mongo.Collection
}

func NewRentalRepository(db *mongo.Database) *RentalRepository {
	col := db.Collection("agg_rental")
	_, _ = col.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{Keys: bson.D{{Key: "item_id", Value: 1}, {Key: "period.start", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	})
	return &RentalRepository{col: col}
}

func (r *RentalRepository) ByID(ctx context.Context, id domainrental.RentalID) (*domainrental.Rental, error) {
	var doc rentalDocument
	err := r.col.FindOne(ctx, bson.M{"_id": string(id), "removed_at": nil}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domainrental.ErrRentalNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *RentalRepository) ListByItem(ctx context.Context, itemID domainitems.ItemID) ([]*domainrental.Rental, error) {
	return r.find(ctx, bson.M{"item_id": string(itemID), "removed_at": nil})
}

func (r *RentalRepository) ListByStatus(ctx context.Context, status domainrental.Status) ([]*domainrental.Rental, error) {
	return r.find(ctx, bson.M{"status": string(status), "removed_at": nil})
}

func (r *RentalRepository) find(ctx context.Context, filter bson.M) ([]*domainrental.Rental, error) {
	opts := options.Find().SetSort(bson.D{{Key: "period.start", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := make([]*domainrental.Rental, 0)
	for cur.Next(ctx) {
		var doc rentalDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAggregate())
	}
	return out, cur.Err()
}

func (r *RentalRepository) Add(ctx context.Context, rental *domainrental.Rental) error {
	rental.Version = 1
	_, err := r.col.InsertOne(ctx, newRentalDocument(rental))
	if mongo.IsDuplicateKeyError(err) {
		return ErrRentalExists
	}
	return err
}

func (r *RentalRepository) Update(ctx context.Context, rental *domainrental.Rental) error {
	return r.replace(ctx, rental)
}

// Remove persists the soft-delete marker set by the aggregate.
func (r *RentalRepository) Remove(ctx context.Context, rental *domainrental.Rental) error {
	return r.replace(ctx, rental)
}

func (r *RentalRepository) replace(ctx context.Context, rental *domainrental.Rental) error {
	doc := newRentalDocument(rental)
	filter := bson.M{"_id": doc.ID, "version": rental.Version, "removed_at": nil}
	doc.Version = rental.Version + 1
	res, err := r.col.ReplaceOne(ctx, filter, doc)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		if _, err := r.ByID(ctx, rental.ID); err != nil {
			return err
		}
		return ErrConcurrentUpdate
	}
	rental.Version = doc.Version
	return nil
}

// HasConflict lets the database find the first blocking overlap.
func (r *RentalRepository) HasConflict(ctx context.Context, itemID domainitems.ItemID, period daterange.DateRange, excludeID domainrental.RentalID) (domainavailability.Conflict, bool, error) {
	var blocking []string
	for _, s := range domainrental.AllStatuses {
		if s.Blocking() {
			blocking = append(blocking, string(s))
		}
	}
	filter := bson.M{
		"item_id":      string(itemID),
		"removed_at":   nil,
		"status":       bson.M{"$in": blocking},
		"period.start": bson.M{"$lt": period.End.UnixMilli()},
		"period.end":   bson.M{"$gt": period.Start.UnixMilli()},
	}
	if excludeID != "" {
		filter["_id"] = bson.M{"$ne": string(excludeID)}
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "period.start", Value: 1}})
	var doc rentalDocument
	err := r.col.FindOne(ctx, filter, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domainavailability.Conflict{}, false, nil
	}
	if err != nil {
		return domainavailability.Conflict{}, false, err
	}
	agg := doc.toAggregate()
	return domainavailability.Conflict{RentalID: agg.ID, Period: agg.Period, Status: agg.Status}, true, nil
}

type rentalDocument struct {
	ID                 string         `bson:"_id"`
	ItemID             string         `bson:"item_id"`
	OwnerID            string         `bson:"owner_id"`
	RenterID           string         `bson:"renter_id"`
	Period             periodDocument `bson:"period"`
	Status             string         `bson:"status"`
	PaymentStatus      string         `bson:"payment_status"`
	Price              priceDocument  `bson:"price"`
	DepositPaid        int64          `bson:"deposit_paid"`
	DeliveryRequested  bool           `bson:"delivery_requested"`
	DeliveryAddress    string         `bson:"delivery_address,omitempty"`
	PaymentMethod      string         `bson:"payment_method,omitempty"`
	PaymentReference   string         `bson:"payment_reference,omitempty"`
	CancellationReason string         `bson:"cancellation_reason,omitempty"`
	CancelledBy        string         `bson:"cancelled_by,omitempty"`
	HandedOverAt       *int64         `bson:"handed_over_at"`
	ReturnedAt         *int64         `bson:"returned_at"`
	RemovedAt          *int64         `bson:"removed_at"`
	CreatedAt          int64          `bson:"created_at"`
	UpdatedAt          int64          `bson:"updated_at"`
	Version            int64          `bson:"version"`
}

type periodDocument struct {
	Start int64 `bson:"start"`
	End   int64 `bson:"end"`
}

type priceDocument struct {
	Currency    string `bson:"currency"`
	Days        int64  `bson:"days"`
	Units       int64  `bson:"units"`
	Unit        string `bson:"unit"`
	UnitPrice   int64  `bson:"unit_price"`
	BasePrice   int64  `bson:"base_price"`
	DeliveryFee int64  `bson:"delivery_fee"`
	FeeRate     int64  `bson:"fee_rate"`
	PlatformFee int64  `bson:"platform_fee"`
	Total       int64  `bson:"total"`
	Deposit     int64  `bson:"deposit"`
}

func newRentalDocument(r *domainrental.Rental) rentalDocument {
	return rentalDocument{
		ID:            string(r.ID),
		ItemID:        string(r.ItemID),
		OwnerID:       r.OwnerID,
		RenterID:      r.RenterID,
		Period:        periodDocument{Start: r.Period.Start.UnixMilli(), End: r.Period.End.UnixMilli()},
		Status:        string(r.Status),
		PaymentStatus: string(r.PaymentStatus),
		Price: priceDocument{
			Currency:    r.Price.Total.Currency,
			Days:        r.Price.Days,
			Units:       r.Price.Units,
			Unit:        string(r.Price.Unit),
			UnitPrice:   r.Price.UnitPrice.Amount,
			BasePrice:   r.Price.BasePrice.Amount,
			DeliveryFee: r.Price.DeliveryFee.Amount,
			FeeRate:     int64(r.Price.FeeRate),
			PlatformFee: r.Price.PlatformFee.Amount,
			Total:       r.Price.Total.Amount,
			Deposit:     r.Price.Deposit.Amount,
		},
		DepositPaid:        r.DepositPaid.Amount,
		DeliveryRequested:  r.DeliveryRequested,
		DeliveryAddress:    r.DeliveryAddress,
		PaymentMethod:      r.PaymentMethod,
		PaymentReference:   r.PaymentReference,
		CancellationReason: r.CancellationReason,
		CancelledBy:        r.CancelledBy,
		HandedOverAt:       timeToTimestamp(r.HandedOverAt),
		ReturnedAt:         timeToTimestamp(r.ReturnedAt),
		RemovedAt:          timeToTimestamp(r.RemovedAt),
		CreatedAt:          r.CreatedAt.UnixMilli(),
		UpdatedAt:          r.UpdatedAt.UnixMilli(),
		Version:            r.Version,
	}
}

func (d rentalDocument) toAggregate() *domainrental.Rental {
	m := func(amount int64) money.Money { return money.Money{Amount: amount, Currency: d.Price.Currency} }
	return &domainrental.Rental{
		ID:            domainrental.RentalID(d.ID),
		ItemID:        domainitems.ItemID(d.ItemID),
		OwnerID:       d.OwnerID,
		RenterID:      d.RenterID,
		Period:        daterange.DateRange{Start: timestampToTime(d.Period.Start), End: timestampToTime(d.Period.End)},
		Status:        domainrental.Status(d.Status),
		PaymentStatus: domainrental.PaymentStatus(d.PaymentStatus),
		Price: pricing.Quote{
			Days:        d.Price.Days,
			Units:       d.Price.Units,
			Unit:        pricing.Unit(d.Price.Unit),
			UnitPrice:   m(d.Price.UnitPrice),
			BasePrice:   m(d.Price.BasePrice),
			DeliveryFee: m(d.Price.DeliveryFee),
			FeeRate:     money.Rate(d.Price.FeeRate),
			PlatformFee: m(d.Price.PlatformFee),
			Total:       m(d.Price.Total),
			Deposit:     m(d.Price.Deposit),
		},
		DepositPaid:        m(d.DepositPaid),
		DeliveryRequested:  d.DeliveryRequested,
		DeliveryAddress:    d.DeliveryAddress,
		PaymentMethod:      d.PaymentMethod,
		PaymentReference:   d.PaymentReference,
		CancellationReason: d.CancellationReason,
		CancelledBy:        d.CancelledBy,
		HandedOverAt:       timestampPtr(d.HandedOverAt),
		ReturnedAt:         timestampPtr(d.ReturnedAt),
		RemovedAt:          timestampPtr(d.RemovedAt),
		CreatedAt:          timestampToTime(d.CreatedAt),
		UpdatedAt:          timestampToTime(d.UpdatedAt),
		Version:            d.Version,
	}
}

func timestampToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func timeToTimestamp(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}

func timestampPtr(ms *int64) *time.Time {
	if ms == nil {
		return nil
	}
	t := timestampToTime(*ms)
	return &t
}

var (
	_ domainrental.Repository    = (*RentalRepository)(nil)
	_ domainavailability.Checker = (*RentalRepository)(nil)
)
