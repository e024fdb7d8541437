package models

import (
	"time"

	"github.com/google/uuid"
)

// ListingSpec is the immutable seller-supplied description of an item.
// It is the input to grading and pricing and is never mutated by the engine.
type ListingSpec struct {
	Category      string       `json:"category" db:"category"`
	Make          string       `json:"make,omitempty" db:"make"`
	Model         string       `json:"model,omitempty" db:"model"`
	Variant       string       `json:"variant,omitempty" db:"variant"`
	Year          int          `json:"year,omitempty" db:"year"`
	PurchaseDate  time.Time    `json:"purchaseDate" db:"purchase_date"`
	OriginalPrice float64      `json:"originalPrice" db:"original_price"`
	Usage         Usage        `json:"usage"`
	Defects       []Defect     `json:"defects"`
	Accessories   []string     `json:"accessories"`
	Disclosures   []string     `json:"disclosures,omitempty"`
	Pickup        Location     `json:"pickup"`
	Availability  []TimeWindow `json:"availability"`
}

// Usage describes how heavily the item was used.
type Usage struct {
	Hours  float64 `json:"hours,omitempty"`
	Cycles int     `json:"cycles,omitempty"`
	Notes  string  `json:"notes"`
}

// Defect is a single reported flaw. Severity runs 1 (cosmetic) to 3 (major).
type Defect struct {
	Area     string `json:"area"`
	Severity int    `json:"severity"`
	Notes    string `json:"notes,omitempty"`
}

// Location is the pickup point for the item.
type Location struct {
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Geohash string  `json:"geohash,omitempty"`
}

// TimeWindow is a seller availability slot.
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Duration returns the window length; negative when End precedes Start.
func (w TimeWindow) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// Listing is the persisted record wrapping a ListingSpec.
type Listing struct {
	ID        uuid.UUID   `json:"id" db:"id"`
	SellerID  uuid.UUID   `json:"sellerId" db:"seller_id"`
	Spec      ListingSpec `json:"spec" db:"spec"`
	Status    string      `json:"status" db:"status"`
	CreatedAt time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time   `json:"updatedAt" db:"updated_at"`
}

// Listing status
const (
	ListingStatusActive    = "active"
	ListingStatusSold      = "sold"
	ListingStatusWithdrawn = "withdrawn"
)

// AgeMonths returns the number of whole months between the purchase date
// and now. Deterministic for a fixed now.
func (s *ListingSpec) AgeMonths(now time.Time) int {
	if now.Before(s.PurchaseDate) {
		return 0
	}
	months := (now.Year()-s.PurchaseDate.Year())*12 + int(now.Month()) - int(s.PurchaseDate.Month())
	if now.Day() < s.PurchaseDate.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}
