package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"dealdesk/grading"
	"dealdesk/identity"
	"dealdesk/metrics"
	"dealdesk/models"
	"dealdesk/pricing"
)

// cacheTTL bounds how long a memoized valuation is served before the
// market is consulted again.
const cacheTTL = time.Hour

// ValuationService runs the grade-then-price pipeline for a listing and
// persists the result. Grading and pricing are pure, so results are
// memoized keyed by the spec fingerprint.
type ValuationService struct {
	store  ListingStore
	grader *grading.Grader
	oracle *pricing.Oracle

	mu    sync.Mutex
	cache map[string]*models.Valuation
}

func NewValuationService(store ListingStore, grader *grading.Grader, oracle *pricing.Oracle) *ValuationService {
	return &ValuationService{
		store:  store,
		grader: grader,
		oracle: oracle,
		cache:  make(map[string]*models.Valuation),
	}
}

// Value grades and prices a spec. The bool reports a cache hit.
func (s *ValuationService) Value(ctx context.Context, spec *models.ListingSpec, now time.Time) (*models.Valuation, bool, error) {
	key := identity.CacheKey(spec, now)

	s.mu.Lock()
	if v, ok := s.cache[key]; ok && now.Sub(v.ComputedAt) < cacheTTL {
		s.mu.Unlock()
		metrics.ValuationCacheHits.Inc()
		return v, true, nil
	}
	s.mu.Unlock()

	grade, err := s.grader.Grade(spec, now)
	if err != nil {
		metrics.ValuationErrors.Inc()
		return nil, false, fmt.Errorf("grade: %w", err)
	}

	band, err := s.oracle.Price(ctx, spec, grade, now)
	if err != nil {
		metrics.ValuationErrors.Inc()
		return nil, false, fmt.Errorf("price: %w", err)
	}

	v := &models.Valuation{Grade: *grade, Band: *band, ComputedAt: now}

	s.mu.Lock()
	s.cache[key] = v
	s.mu.Unlock()

	metrics.Valuations.WithLabelValues(grade.Grade).Inc()
	return v, false, nil
}

// ValueListing values a stored listing and persists the band.
func (s *ValuationService) ValueListing(ctx context.Context, listingID uuid.UUID, now time.Time) (*models.Valuation, bool, error) {
	listing, err := s.store.GetListing(ctx, listingID)
	if err != nil {
		return nil, false, fmt.Errorf("get listing: %w", err)
	}
	if listing == nil {
		return nil, false, fmt.Errorf("listing %s: %w", listingID, models.ErrNotFound)
	}

	v, cached, err := s.Value(ctx, &listing.Spec, now)
	if err != nil {
		return nil, false, err
	}

	if err := s.store.SaveValuation(ctx, listingID, v); err != nil {
		return nil, false, fmt.Errorf("save valuation: %w", err)
	}
	return v, cached, nil
}

// ValuationStats aggregates the outcome of a batch revaluation.
type ValuationStats struct {
	Processed  int
	BandsSaved int
	CacheHits  int
	NoComps    int
	Errors     int
}

// Aggregate folds one listing outcome into the stats.
func (st *ValuationStats) Aggregate(cached bool, err error) {
	st.Processed++
	switch {
	case err == nil:
		st.BandsSaved++
		if cached {
			st.CacheHits++
		}
	case errors.Is(err, models.ErrNoComparables):
		st.NoComps++
	default:
		st.Errors++
	}
}
