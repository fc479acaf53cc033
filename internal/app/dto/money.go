package dto

import "roomledger/internal/domain/shared/money"

// MoneyDTO carries amounts as decimal strings so no precision is lost in JSON.
type MoneyDTO struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

func MapMoney(m money.Money) MoneyDTO {
	return MoneyDTO{Amount: m.Amount.StringFixed(2), Currency: m.Currency}
}
