package pricing

import (
	"context"

	"dealdesk/models"
)

// Query narrows a comparable-sales lookup. Category is required; the
// remaining fields tighten the match when known.
type Query struct {
	Category string
	Make     string
	Model    string
	Variant  string
	Year     int
}

// QueryFor builds the comparable query for a listing spec.
func QueryFor(spec *models.ListingSpec) Query {
	return Query{
		Category: spec.Category,
		Make:     spec.Make,
		Model:    spec.Model,
		Variant:  spec.Variant,
		Year:     spec.Year,
	}
}

// ComparablesGateway returns comparable sale records for a query. May
// return an empty slice; the oracle treats that as a hard error.
type ComparablesGateway interface {
	Fetch(ctx context.Context, q Query) ([]models.Comparable, error)
}
