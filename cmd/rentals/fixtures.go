package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	jsoniter "github.com/json-iterator/go"

	domainitems "rentals/internal/domain/items"
	"rentals/internal/domain/shared/money"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type itemFixture struct {
	ID                string `json:"id"`
	OwnerID           string `json:"owner_id"`
	Title             string `json:"title"`
	PricePerDay       string `json:"price_per_day"`
	PricePerHour      string `json:"price_per_hour"`
	Deposit           string `json:"deposit"`
	DeliveryAvailable bool   `json:"delivery_available"`
	DeliveryFee       string `json:"delivery_fee"`
	DeliveryRadiusKm  int    `json:"delivery_radius_km"`
	Available         *bool  `json:"available"`
}

func loadItemFixtures(ctx context.Context, items itemSaver, path, currency string, logger *slog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("item fixtures file not found, skipping", "path", path)
			return nil
		}
		return fmt.Errorf("read fixtures: %w", err)
	}
	if len(data) == 0 {
		logger.Warn("item fixtures file empty", "path", path)
		return nil
	}

	var fixtures []itemFixture
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return fmt.Errorf("decode fixtures: %w", err)
	}
	for _, fx := range fixtures {
		item, err := fx.toItem(currency)
		if err != nil {
			logger.Error("fixture invalid", "item_id", fx.ID, "error", err)
			continue
		}
		if err := items.Save(ctx, item); err != nil {
			logger.Error("cannot store fixture item", "item_id", fx.ID, "error", err)
			continue
		}
		logger.Info("item fixture imported", "item_id", item.ID)
	}
	return nil
}

func (fx itemFixture) toItem(currency string) (*domainitems.Item, error) {
	if strings.TrimSpace(fx.ID) == "" || strings.TrimSpace(fx.OwnerID) == "" {
		return nil, errors.New("id and owner_id are required")
	}
	item := &domainitems.Item{
		ID:                domainitems.ItemID(fx.ID),
		OwnerID:           fx.OwnerID,
		Title:             fx.Title,
		DeliveryAvailable: fx.DeliveryAvailable,
		DeliveryRadiusKm:  fx.DeliveryRadiusKm,
		Available:         fx.Available == nil || *fx.Available,
	}
	prices := []struct {
		raw string
		dst *money.Money
	}{
		{fx.PricePerDay, &item.PricePerDay},
		{fx.PricePerHour, &item.PricePerHour},
		{fx.Deposit, &item.Deposit},
		{fx.DeliveryFee, &item.DeliveryFee},
	}
	for _, p := range prices {
		if strings.TrimSpace(p.raw) == "" {
			*p.dst = money.Zero(currency)
			continue
		}
		m, err := money.Parse(p.raw, currency)
		if err != nil {
			return nil, fmt.Errorf("price %q: %w", p.raw, err)
		}
		*p.dst = m
	}
	return item, nil
}

func defaultItemFixturesPath() string {
	candidates := []string{
		filepath.Join("data", "items.json"),
		filepath.Join("deploy", "data", "items.json"),
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return candidates[0]
}
