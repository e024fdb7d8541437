package models

import "time"

// Comparable is a historical sale record supplied by a comparables
// gateway. Read-only market evidence; never mutated or re-persisted by
// the pricing path.
type Comparable struct {
	ID              string    `json:"id" db:"id"`
	Price           float64   `json:"price" db:"price"`
	Grade           string    `json:"grade" db:"grade"`
	SoldAt          time.Time `json:"soldAt" db:"sold_at"`
	DaysToSell      *int      `json:"daysToSell,omitempty" db:"days_to_sell"`
	AgeMonthsAtSale *int      `json:"ageMonthsAtSale,omitempty" db:"age_months_at_sale"`
}

// Fixed spread of the quick-sale and hold-out prices around fair.
const (
	QuickSaleSpread = 0.85
	HoldOutSpread   = 1.15
)

// PriceBand is the three-tier price recommendation.
// Invariant: QuickSale <= Fair <= HoldOut, with the fixed spread above.
type PriceBand struct {
	QuickSale     float64  `json:"quickSale" db:"quick_sale"`
	Fair          float64  `json:"fair" db:"fair"`
	HoldOut       float64  `json:"holdOut" db:"hold_out"`
	ComparableIDs []string `json:"comparableIds"`
	Explanation   string   `json:"explanation" db:"explanation"`
}

// Valuation bundles the grade and price band computed for one listing.
type Valuation struct {
	Grade      ConditionGrade `json:"grade"`
	Band       PriceBand      `json:"band"`
	ComputedAt time.Time      `json:"computedAt" db:"computed_at"`
}
