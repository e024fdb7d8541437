package storage

import "context"

// Migrate creates the engine tables when they do not exist yet.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS listings (
		id UUID PRIMARY KEY,
		seller_id UUID NOT NULL,
		category TEXT NOT NULL,
		make TEXT NOT NULL DEFAULT '',
		model TEXT NOT NULL DEFAULT '',
		variant TEXT NOT NULL DEFAULT '',
		year INT NOT NULL DEFAULT 0,
		spec JSONB NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS price_bands (
		listing_id UUID PRIMARY KEY REFERENCES listings(id),
		grade TEXT NOT NULL,
		grade_detail JSONB NOT NULL,
		quick_sale DOUBLE PRECISION NOT NULL,
		fair DOUBLE PRECISION NOT NULL,
		hold_out DOUBLE PRECISION NOT NULL,
		comparable_ids JSONB NOT NULL,
		explanation TEXT NOT NULL,
		computed_at TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS comparables (
		id TEXT PRIMARY KEY,
		category TEXT NOT NULL,
		make TEXT NOT NULL DEFAULT '',
		model TEXT NOT NULL DEFAULT '',
		variant TEXT NOT NULL DEFAULT '',
		year INT NOT NULL DEFAULT 0,
		price DOUBLE PRECISION NOT NULL,
		grade TEXT NOT NULL,
		sold_at TIMESTAMPTZ NOT NULL,
		days_to_sell INT,
		age_months_at_sale INT
	);

	CREATE TABLE IF NOT EXISTS deals (
		id UUID PRIMARY KEY,
		listing_id UUID NOT NULL,
		nominal_price DOUBLE PRECISION NOT NULL,
		buyer_config JSONB NOT NULL,
		seller_config JSONB NOT NULL,
		current_price DOUBLE PRECISION NOT NULL,
		round INT NOT NULL DEFAULT 0,
		last_offer JSONB,
		status TEXT NOT NULL DEFAULT 'active',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS negotiation_events (
		id TEXT PRIMARY KEY,
		deal_id UUID NOT NULL REFERENCES deals(id),
		actor TEXT NOT NULL,
		event_type TEXT NOT NULL,
		message TEXT NOT NULL,
		data JSONB,
		created_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_listings_category ON listings(category, status);
	CREATE INDEX IF NOT EXISTS idx_comparables_lookup ON comparables(category, make, model, sold_at DESC);
	CREATE INDEX IF NOT EXISTS idx_deals_status ON deals(status, updated_at);
	CREATE INDEX IF NOT EXISTS idx_events_deal ON negotiation_events(deal_id, id);
	`
	_, err := s.pool.Exec(ctx, schema)
	return err
}
