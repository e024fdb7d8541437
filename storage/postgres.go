package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dealdesk/models"
	"dealdesk/pricing"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Pool() *pgxpool.Pool {
	return s.pool
}

// =============================================================================
// Listings
// =============================================================================

func (s *PostgresStore) UpsertListing(ctx context.Context, l *models.Listing) error {
	spec, err := json.Marshal(l.Spec)
	if err != nil {
		return fmt.Errorf("marshal spec: %w", err)
	}

	query := `
		INSERT INTO listings (id, seller_id, category, make, model, variant, year, spec, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			spec = EXCLUDED.spec,
			status = EXCLUDED.status,
			updated_at = NOW()`

	_, err = s.pool.Exec(ctx, query,
		l.ID, l.SellerID, l.Spec.Category, l.Spec.Make, l.Spec.Model, l.Spec.Variant, l.Spec.Year,
		spec, l.Status, l.CreatedAt, l.UpdatedAt,
	)
	return err
}

func (s *PostgresStore) GetListing(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	query := `
		SELECT id, seller_id, spec, status, created_at, updated_at
		FROM listings WHERE id = $1`

	var l models.Listing
	var spec []byte
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&l.ID, &l.SellerID, &spec, &l.Status, &l.CreatedAt, &l.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(spec, &l.Spec); err != nil {
		return nil, fmt.Errorf("unmarshal spec: %w", err)
	}
	return &l, nil
}

// ListStaleListings returns active listings whose price band is missing or
// older than cutoff, oldest first.
func (s *PostgresStore) ListStaleListings(ctx context.Context, cutoff time.Time, limit int) ([]models.Listing, error) {
	query := `
		SELECT l.id, l.seller_id, l.spec, l.status, l.created_at, l.updated_at
		FROM listings l
		LEFT JOIN price_bands pb ON pb.listing_id = l.id
		WHERE l.status = 'active' AND (pb.listing_id IS NULL OR pb.computed_at < $1)
		ORDER BY pb.computed_at ASC NULLS FIRST
		LIMIT $2`

	rows, err := s.pool.Query(ctx, query, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var listings []models.Listing
	for rows.Next() {
		var l models.Listing
		var spec []byte
		if err := rows.Scan(&l.ID, &l.SellerID, &spec, &l.Status, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(spec, &l.Spec); err != nil {
			return nil, fmt.Errorf("unmarshal spec: %w", err)
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

// =============================================================================
// Valuations
// =============================================================================

func (s *PostgresStore) SaveValuation(ctx context.Context, listingID uuid.UUID, v *models.Valuation) error {
	grade, err := json.Marshal(v.Grade)
	if err != nil {
		return fmt.Errorf("marshal grade: %w", err)
	}
	ids, err := json.Marshal(v.Band.ComparableIDs)
	if err != nil {
		return fmt.Errorf("marshal comparable ids: %w", err)
	}

	query := `
		INSERT INTO price_bands (listing_id, grade, grade_detail, quick_sale, fair, hold_out, comparable_ids, explanation, computed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (listing_id) DO UPDATE SET
			grade = EXCLUDED.grade,
			grade_detail = EXCLUDED.grade_detail,
			quick_sale = EXCLUDED.quick_sale,
			fair = EXCLUDED.fair,
			hold_out = EXCLUDED.hold_out,
			comparable_ids = EXCLUDED.comparable_ids,
			explanation = EXCLUDED.explanation,
			computed_at = EXCLUDED.computed_at`

	_, err = s.pool.Exec(ctx, query,
		listingID, v.Grade.Grade, grade, v.Band.QuickSale, v.Band.Fair, v.Band.HoldOut,
		ids, v.Band.Explanation, v.ComputedAt,
	)
	return err
}

func (s *PostgresStore) GetValuation(ctx context.Context, listingID uuid.UUID) (*models.Valuation, error) {
	query := `
		SELECT grade_detail, quick_sale, fair, hold_out, comparable_ids, explanation, computed_at
		FROM price_bands WHERE listing_id = $1`

	var v models.Valuation
	var grade, ids []byte
	err := s.pool.QueryRow(ctx, query, listingID).Scan(
		&grade, &v.Band.QuickSale, &v.Band.Fair, &v.Band.HoldOut, &ids, &v.Band.Explanation, &v.ComputedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(grade, &v.Grade); err != nil {
		return nil, fmt.Errorf("unmarshal grade: %w", err)
	}
	if err := json.Unmarshal(ids, &v.Band.ComparableIDs); err != nil {
		return nil, fmt.Errorf("unmarshal comparable ids: %w", err)
	}
	return &v, nil
}

// =============================================================================
// Comparables
// =============================================================================

func (s *PostgresStore) InsertComparable(ctx context.Context, c *models.Comparable, q pricing.Query) error {
	query := `
		INSERT INTO comparables (id, category, make, model, variant, year, price, grade, sold_at, days_to_sell, age_months_at_sale)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING`

	_, err := s.pool.Exec(ctx, query,
		c.ID, q.Category, q.Make, q.Model, q.Variant, q.Year,
		c.Price, c.Grade, c.SoldAt, c.DaysToSell, c.AgeMonthsAtSale,
	)
	return err
}

// FetchComparables returns recorded sales for a query, most recent first.
// Make/model/variant/year only narrow the match when set on the query.
func (s *PostgresStore) FetchComparables(ctx context.Context, q pricing.Query, limit int) ([]models.Comparable, error) {
	query := `
		SELECT id, price, grade, sold_at, days_to_sell, age_months_at_sale
		FROM comparables
		WHERE category = $1
			AND ($2 = '' OR make = $2)
			AND ($3 = '' OR model = $3)
			AND ($4 = '' OR variant = $4)
			AND ($5 = 0 OR year = $5)
		ORDER BY sold_at DESC
		LIMIT $6`

	rows, err := s.pool.Query(ctx, query, q.Category, q.Make, q.Model, q.Variant, q.Year, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comps []models.Comparable
	for rows.Next() {
		var c models.Comparable
		if err := rows.Scan(&c.ID, &c.Price, &c.Grade, &c.SoldAt, &c.DaysToSell, &c.AgeMonthsAtSale); err != nil {
			return nil, err
		}
		comps = append(comps, c)
	}
	return comps, rows.Err()
}

// =============================================================================
// Deals
// =============================================================================

func (s *PostgresStore) CreateDeal(ctx context.Context, d *models.Deal) error {
	buyer, err := json.Marshal(d.Buyer)
	if err != nil {
		return fmt.Errorf("marshal buyer config: %w", err)
	}
	seller, err := json.Marshal(d.Seller)
	if err != nil {
		return fmt.Errorf("marshal seller config: %w", err)
	}

	query := `
		INSERT INTO deals (id, listing_id, nominal_price, buyer_config, seller_config,
			current_price, round, last_offer, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULL, $8, $9, $10)`

	_, err = s.pool.Exec(ctx, query,
		d.ID, d.ListingID, d.NominalPrice, buyer, seller,
		d.State.CurrentPrice, d.State.Round, d.State.Status, d.CreatedAt, d.UpdatedAt,
	)
	return err
}

func (s *PostgresStore) GetDeal(ctx context.Context, id uuid.UUID) (*models.Deal, error) {
	query := `
		SELECT id, listing_id, nominal_price, buyer_config, seller_config,
			current_price, round, last_offer, status, created_at, updated_at
		FROM deals WHERE id = $1`

	var d models.Deal
	var buyer, seller, lastOffer []byte
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&d.ID, &d.ListingID, &d.NominalPrice, &buyer, &seller,
		&d.State.CurrentPrice, &d.State.Round, &lastOffer, &d.State.Status, &d.CreatedAt, &d.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	d.State.DealID = d.ID
	if err := json.Unmarshal(buyer, &d.Buyer); err != nil {
		return nil, fmt.Errorf("unmarshal buyer config: %w", err)
	}
	if err := json.Unmarshal(seller, &d.Seller); err != nil {
		return nil, fmt.Errorf("unmarshal seller config: %w", err)
	}
	if len(lastOffer) > 0 {
		var o models.Offer
		if err := json.Unmarshal(lastOffer, &o); err != nil {
			return nil, fmt.Errorf("unmarshal last offer: %w", err)
		}
		d.State.LastOffer = &o
	}
	return &d, nil
}

// ApplyTransition writes one negotiation transition and its audit event as
// a single unit. The update is a compare-and-swap against the round
// counter on an active deal: zero rows affected means someone else moved
// the deal first, reported as ErrConflict so the caller can reload and
// retry exactly once. Nothing is written on conflict.
func (s *PostgresStore) ApplyTransition(ctx context.Context, expectedRound int, state models.NegotiationState, event models.NegotiationEvent) error {
	var lastOffer []byte
	if state.LastOffer != nil {
		var err error
		lastOffer, err = json.Marshal(state.LastOffer)
		if err != nil {
			return fmt.Errorf("marshal last offer: %w", err)
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE deals
		SET current_price = $1, round = $2, last_offer = $3, status = $4, updated_at = NOW()
		WHERE id = $5 AND round = $6 AND status = 'active'`,
		state.CurrentPrice, state.Round, lastOffer, state.Status, state.DealID, expectedRound,
	)
	if err != nil {
		return fmt.Errorf("update deal: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("deal %s at round %d: %w", state.DealID, expectedRound, models.ErrConflict)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO negotiation_events (id, deal_id, actor, event_type, message, data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		event.ID, event.DealID, event.Actor, event.Type, event.Message, event.Data, event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	return tx.Commit(ctx)
}

// ListIdleActiveDeals returns active deals not touched since cutoff.
func (s *PostgresStore) ListIdleActiveDeals(ctx context.Context, cutoff time.Time, limit int) ([]models.Deal, error) {
	query := `
		SELECT id FROM deals
		WHERE status = 'active' AND updated_at < $1
		ORDER BY updated_at ASC
		LIMIT $2`

	rows, err := s.pool.Query(ctx, query, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var deals []models.Deal
	for _, id := range ids {
		d, err := s.GetDeal(ctx, id)
		if err != nil {
			return nil, err
		}
		if d != nil {
			deals = append(deals, *d)
		}
	}
	return deals, nil
}

// GetEvents returns the audit trail for a deal in creation order. Event
// IDs are ULIDs, so id order is time order.
func (s *PostgresStore) GetEvents(ctx context.Context, dealID uuid.UUID) ([]models.NegotiationEvent, error) {
	query := `
		SELECT id, deal_id, actor, event_type, message, data, created_at
		FROM negotiation_events
		WHERE deal_id = $1
		ORDER BY id ASC`

	rows, err := s.pool.Query(ctx, query, dealID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.NegotiationEvent
	for rows.Next() {
		var e models.NegotiationEvent
		if err := rows.Scan(&e.ID, &e.DealID, &e.Actor, &e.Type, &e.Message, &e.Data, &e.Timestamp); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
