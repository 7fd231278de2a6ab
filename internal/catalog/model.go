package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category splits products into subsidised and non-subsidised LPG.
type Category string

const (
	// CategorySubsidized marks government-subsidised LPG (the 3kg tabung melon).
	CategorySubsidized Category = "SUBSIDI"
	// CategoryNonSubsidized marks commercially priced LPG.
	CategoryNonSubsidized Category = "NON_SUBSIDI"
)

// Product is an LPG product definition. Once referenced by a ledger entry
// only prices and the active flag may change; the rest is a historical fact.
type Product struct {
	ID          int64           `json:"id"`
	VariantCode string          `json:"variant_code"`
	Name        string          `json:"name"`
	SizeKg      float64         `json:"size_kg"`
	Category    Category        `json:"category"`
	CostPrice   decimal.Decimal `json:"cost_price"`
	SellPrice   decimal.Decimal `json:"sell_price"`
	IsActive    bool            `json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
