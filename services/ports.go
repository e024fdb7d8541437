package services

import (
	"context"

	"github.com/google/uuid"

	"dealdesk/models"
	"dealdesk/pricing"
)

// ListingStore is the slice of the listing store the services depend on.
// *storage.PostgresStore satisfies it.
type ListingStore interface {
	GetListing(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	SaveValuation(ctx context.Context, listingID uuid.UUID, v *models.Valuation) error
	GetValuation(ctx context.Context, listingID uuid.UUID) (*models.Valuation, error)
}

// DealStore owns negotiation state. ApplyTransition must be atomic: the
// new state and its audit event land together or not at all, and a write
// based on a stale round reports models.ErrConflict without touching
// anything. *storage.PostgresStore satisfies it.
type DealStore interface {
	CreateDeal(ctx context.Context, d *models.Deal) error
	GetDeal(ctx context.Context, id uuid.UUID) (*models.Deal, error)
	ApplyTransition(ctx context.Context, expectedRound int, state models.NegotiationState, event models.NegotiationEvent) error
}

// ComparableSink records closed sales back into the comparables pool.
type ComparableSink interface {
	InsertComparable(ctx context.Context, c *models.Comparable, q pricing.Query) error
}
