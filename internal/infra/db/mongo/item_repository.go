package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainitems "rentals/internal/domain/items"
	domainsettings "rentals/internal/domain/settings"
	"rentals/internal/domain/shared/money"
)

type ItemRepository struct {
	col *mongo.Collection
}

func NewItemRepository(db *mongo.Database) *ItemRepository {
	return &ItemRepository{col: db.Collection("items")}
}

func (r *ItemRepository) ByID(ctx context.Context, id domainitems.ItemID) (*domainitems.Item, error) {
	var doc itemDocument
	err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domainitems.ErrItemNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.toItem(), nil
}

// Save upserts an item; used by seeding.
func (r *ItemRepository) Save(ctx context.Context, item *domainitems.Item) error {
	doc := newItemDocument(item)
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	return err
}

type itemDocument struct {
	ID                string `bson:"_id"`
	OwnerID           string `bson:"owner_id"`
	Title             string `bson:"title"`
	Currency          string `bson:"currency"`
	PricePerDay       int64  `bson:"price_per_day"`
	PricePerHour      int64  `bson:"price_per_hour"`
	Deposit           int64  `bson:"deposit"`
	DeliveryAvailable bool   `bson:"delivery_available"`
	DeliveryFee       int64  `bson:"delivery_fee"`
	DeliveryRadiusKm  int    `bson:"delivery_radius_km"`
	Available         bool   `bson:"available"`
}

func newItemDocument(item *domainitems.Item) itemDocument {
	return itemDocument{
		ID:                string(item.ID),
		OwnerID:           item.OwnerID,
		Title:             item.Title,
		Currency:          item.Currency(),
		PricePerDay:       item.PricePerDay.Amount,
		PricePerHour:      item.PricePerHour.Amount,
		Deposit:           item.Deposit.Amount,
		DeliveryAvailable: item.DeliveryAvailable,
		DeliveryFee:       item.DeliveryFee.Amount,
		DeliveryRadiusKm:  item.DeliveryRadiusKm,
		Available:         item.Available,
	}
}

func (d itemDocument) toItem() *domainitems.Item {
	m := func(amount int64) money.Money { return money.Money{Amount: amount, Currency: d.Currency} }
	return &domainitems.Item{
		ID:                domainitems.ItemID(d.ID),
		OwnerID:           d.OwnerID,
		Title:             d.Title,
		PricePerDay:       m(d.PricePerDay),
		PricePerHour:      m(d.PricePerHour),
		Deposit:           m(d.Deposit),
		DeliveryAvailable: d.DeliveryAvailable,
		DeliveryFee:       m(d.DeliveryFee),
		DeliveryRadiusKm:  d.DeliveryRadiusKm,
		Available:         d.Available,
	}
}

const settingsID = "platform"

// SettingsRepository reads the single platform settings document.
type SettingsRepository struct {
	col *mongo.Collection
}

func NewSettingsRepository(db *mongo.Database) *SettingsRepository {
	return &SettingsRepository{col: db.Collection("settings")}
}

type settingsDocument struct {
	ID      string `bson:"_id"`
	FeeRate int64  `bson:"fee_rate"`
}

func (r *SettingsRepository) PlatformSettings(ctx context.Context) (domainsettings.PlatformSettings, error) {
	var doc settingsDocument
	err := r.col.FindOne(ctx, bson.M{"_id": settingsID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domainsettings.Default(), nil
	}
	if err != nil {
		return domainsettings.PlatformSettings{}, err
	}
	return domainsettings.PlatformSettings{FeeRate: money.Rate(doc.FeeRate)}, nil
}

func (r *SettingsRepository) Save(ctx context.Context, s domainsettings.PlatformSettings) error {
	if err := s.FeeRate.Validate(); err != nil {
		return err
	}
	doc := settingsDocument{ID: settingsID, FeeRate: int64(s.FeeRate)}
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": settingsID}, doc, options.Replace().SetUpsert(true))
	return err
}

var (
	_ domainitems.Repository    = (*ItemRepository)(nil)
	_ domainsettings.Repository = (*SettingsRepository)(nil)
)
