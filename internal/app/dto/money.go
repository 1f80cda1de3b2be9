package dto

import "rentals/internal/domain/shared/money"

// MoneyDTO carries both the minor units and a two-digit decimal rendering.
type MoneyDTO struct {
	Amount   int64  `json:"amount"`
	Decimal  string `json:"decimal"`
	Currency string `json:"currency"`
}

func MapMoney(m money.Money) MoneyDTO {
	return MoneyDTO{Amount: m.Amount, Decimal: m.Decimal(), Currency: m.Currency}
}
