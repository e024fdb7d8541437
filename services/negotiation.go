package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"dealdesk/metrics"
	"dealdesk/models"
	"dealdesk/negotiation"
	"dealdesk/pricing"
)

// NegotiationService drives deals through the negotiation state machine,
// applying each transition through the deal store's compare-and-swap
// contract. A detected conflict is retried once against the freshest
// state before surfacing.
type NegotiationService struct {
	deals    DealStore
	listings ListingStore
	sink     ComparableSink
}

func NewNegotiationService(deals DealStore, listings ListingStore, sink ComparableSink) *NegotiationService {
	return &NegotiationService{deals: deals, listings: listings, sink: sink}
}

// Open starts a negotiation for a listing at the nominal (listing) price,
// typically the fair price from the listing's band.
func (s *NegotiationService) Open(ctx context.Context, listingID uuid.UUID, nominalPrice float64, buyer, seller models.AgentConfig) (*models.Deal, error) {
	if nominalPrice <= 0 {
		return nil, models.Validationf("nominalPrice", "must be positive, got %v", nominalPrice)
	}
	buyer.Role = models.RoleBuyer
	seller.Role = models.RoleSeller
	if err := models.ValidateAgentConfig(&buyer); err != nil {
		return nil, err
	}
	if err := models.ValidateAgentConfig(&seller); err != nil {
		return nil, err
	}

	now := time.Now()
	deal := &models.Deal{
		ID:           uuid.New(),
		ListingID:    listingID,
		NominalPrice: nominalPrice,
		Buyer:        buyer,
		Seller:       seller,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	deal.State = models.NegotiationState{
		DealID:       deal.ID,
		CurrentPrice: nominalPrice,
		Round:        0,
		Status:       models.DealStatusActive,
	}

	if err := s.deals.CreateDeal(ctx, deal); err != nil {
		return nil, fmt.Errorf("create deal: %w", err)
	}
	metrics.DealsOpened.Inc()
	return deal, nil
}

// Step applies one incoming offer to a deal and returns the resulting
// state and audit event.
func (s *NegotiationService) Step(ctx context.Context, dealID uuid.UUID, offer models.Offer) (*models.NegotiationState, *models.NegotiationEvent, error) {
	deal, err := s.loadDeal(ctx, dealID)
	if err != nil {
		return nil, nil, err
	}

	state, event, err := s.transition(ctx, deal, func(d *models.Deal, now time.Time) (models.NegotiationState, models.NegotiationEvent, error) {
		return negotiation.Step(d, offer, now)
	})
	if err != nil {
		return nil, nil, err
	}
	return state, event, nil
}

// Expire times out an idle deal.
func (s *NegotiationService) Expire(ctx context.Context, dealID uuid.UUID) (*models.NegotiationState, *models.NegotiationEvent, error) {
	deal, err := s.loadDeal(ctx, dealID)
	if err != nil {
		return nil, nil, err
	}
	return s.transition(ctx, deal, negotiation.Expire)
}

// Cancel fails an active deal with the given reason.
func (s *NegotiationService) Cancel(ctx context.Context, dealID uuid.UUID, reason string) (*models.NegotiationState, *models.NegotiationEvent, error) {
	deal, err := s.loadDeal(ctx, dealID)
	if err != nil {
		return nil, nil, err
	}
	return s.transition(ctx, deal, func(d *models.Deal, now time.Time) (models.NegotiationState, models.NegotiationEvent, error) {
		return negotiation.Cancel(d, reason, now)
	})
}

func (s *NegotiationService) loadDeal(ctx context.Context, dealID uuid.UUID) (*models.Deal, error) {
	deal, err := s.deals.GetDeal(ctx, dealID)
	if err != nil {
		return nil, fmt.Errorf("get deal: %w", err)
	}
	if deal == nil {
		return nil, fmt.Errorf("deal %s: %w", dealID, models.ErrNotFound)
	}
	return deal, nil
}

type transitionFunc func(d *models.Deal, now time.Time) (models.NegotiationState, models.NegotiationEvent, error)

// transition runs the state machine against the loaded deal and applies
// the result. On a store conflict the deal is reloaded and the transition
// recomputed once; a second conflict surfaces to the caller.
func (s *NegotiationService) transition(ctx context.Context, deal *models.Deal, fn transitionFunc) (*models.NegotiationState, *models.NegotiationEvent, error) {
	now := time.Now()

	state, event, err := fn(deal, now)
	if err != nil {
		return nil, nil, err
	}

	applyErr := s.deals.ApplyTransition(ctx, deal.State.Round, state, event)
	if errors.Is(applyErr, models.ErrConflict) {
		metrics.NegotiationConflicts.Inc()
		deal, err = s.loadDeal(ctx, deal.ID)
		if err != nil {
			return nil, nil, err
		}
		state, event, err = fn(deal, now)
		if err != nil {
			return nil, nil, err
		}
		applyErr = s.deals.ApplyTransition(ctx, deal.State.Round, state, event)
	}
	if applyErr != nil {
		return nil, nil, fmt.Errorf("apply transition: %w", applyErr)
	}

	metrics.NegotiationSteps.WithLabelValues(event.Type).Inc()
	if state.Terminal() {
		metrics.DealOutcomes.WithLabelValues(state.Status).Inc()
		if state.Status == models.DealStatusCompleted {
			s.recordSale(ctx, deal, &state, now)
		}
	}
	return &state, &event, nil
}

// recordSale feeds the closing price of a completed deal back into the
// comparables pool so future pricing sees it. Best effort.
func (s *NegotiationService) recordSale(ctx context.Context, deal *models.Deal, state *models.NegotiationState, now time.Time) {
	if s.sink == nil || s.listings == nil {
		return
	}

	listing, err := s.listings.GetListing(ctx, deal.ListingID)
	if err != nil || listing == nil {
		log.Printf("Warning: cannot record sale for deal %s: listing lookup failed: %v", deal.ID, err)
		return
	}
	valuation, err := s.listings.GetValuation(ctx, deal.ListingID)
	if err != nil || valuation == nil {
		log.Printf("Warning: cannot record sale for deal %s: no valuation on file", deal.ID)
		return
	}

	days := int(now.Sub(deal.CreatedAt).Hours() / 24)
	ageMonths := listing.Spec.AgeMonths(now)
	comp := &models.Comparable{
		ID:              fmt.Sprintf("deal-%s", deal.ID),
		Price:           state.CurrentPrice,
		Grade:           valuation.Grade.Grade,
		SoldAt:          now,
		DaysToSell:      &days,
		AgeMonthsAtSale: &ageMonths,
	}
	if err := s.sink.InsertComparable(ctx, comp, pricing.QueryFor(&listing.Spec)); err != nil {
		log.Printf("Warning: failed to record comparable for deal %s: %v", deal.ID, err)
	}
}
