package marketdata

import (
	"context"
	"fmt"

	"dealdesk/models"
	"dealdesk/pricing"
	"dealdesk/storage"
)

// DefaultFetchLimit bounds how many comparables one pricing call sees.
const DefaultFetchLimit = 25

// StoreGateway serves comparables from recorded historical sales in
// Postgres. Completed deals feed back into the same table, so the market
// evidence grows as deals close.
type StoreGateway struct {
	store *storage.PostgresStore
	limit int
}

func NewStoreGateway(store *storage.PostgresStore) *StoreGateway {
	return &StoreGateway{store: store, limit: DefaultFetchLimit}
}

func (g *StoreGateway) Fetch(ctx context.Context, q pricing.Query) ([]models.Comparable, error) {
	comps, err := g.store.FetchComparables(ctx, q, g.limit)
	if err != nil {
		return nil, fmt.Errorf("store comparables: %w", err)
	}
	if len(comps) > 0 {
		return comps, nil
	}
	if q.Variant != "" || q.Year != 0 {
		// Broaden once: the exact variant/year may simply never have sold.
		broad := q
		broad.Variant = ""
		broad.Year = 0
		comps, err = g.store.FetchComparables(ctx, broad, g.limit)
		if err != nil {
			return nil, fmt.Errorf("store comparables (broad): %w", err)
		}
	}
	return comps, nil
}
