package negotiation

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"dealdesk/models"
)

// Walk-away thresholds: an offer this far beyond the agent's bound ends
// the negotiation outright.
const (
	buyerWalkAwayFactor  = 1.2
	sellerWalkAwayFactor = 0.8
)

// forcedAcceptShare of maxRounds after which a non-egregious offer is
// accepted rather than letting the negotiation run out.
const forcedAcceptShare = 0.9

// Counter-offer concession step bounds.
const (
	minConcessionStep = 0.05
	maxConcessionStep = 0.95
)

// urgencyFactor scales the pull a countering agent keeps toward its own
// target. An urgent agent concedes more, so it takes the smaller step
// away from the incoming offer.
func urgencyFactor(urgency string) float64 {
	switch urgency {
	case models.UrgencyLow:
		return 0.75
	case models.UrgencyHigh:
		return 0.25
	default:
		return 0.5
	}
}

// Step evaluates one incoming offer against the responding agent's policy
// and returns the next state plus the single audit event for the
// transition. The deal itself is not mutated; persistence is the caller's
// concern. Offers against a terminal deal fail with ErrInvalidTransition.
func Step(deal *models.Deal, offer models.Offer, now time.Time) (models.NegotiationState, models.NegotiationEvent, error) {
	var none models.NegotiationState
	var noEvent models.NegotiationEvent

	if deal.State.Terminal() {
		return none, noEvent, fmt.Errorf("deal %s (%s): %w", deal.ID, deal.State.Status, models.ErrInvalidTransition)
	}
	if offer.ActorRole != models.RoleBuyer && offer.ActorRole != models.RoleSeller {
		return none, noEvent, models.Validationf("actorRole", "must be buyer or seller, got %q", offer.ActorRole)
	}
	if offer.Price <= 0 {
		return none, noEvent, models.Validationf("price", "must be positive, got %v", offer.Price)
	}
	if deal.State.LastOffer != nil && deal.State.LastOffer.ActorRole == offer.ActorRole {
		return none, noEvent, models.Validationf("actorRole", "%s cannot make two offers in a row", offer.ActorRole)
	}

	responder := models.OtherRole(offer.ActorRole)
	cfg := deal.AgentFor(responder)
	maxRounds := deal.MaxRounds()
	round := deal.State.Round + 1
	forcedAt := int(math.Ceil(forcedAcceptShare * float64(maxRounds)))

	egregious := isEgregious(cfg, offer.Price)

	offer.Timestamp = now
	next := deal.State
	next.DealID = deal.ID
	next.Round = round

	switch {
	case acceptable(cfg, deal.NominalPrice, offer.Price):
		next.Status = models.DealStatusCompleted
		next.CurrentPrice = offer.Price
		next.LastOffer = &offer
		return next, newEvent(deal.ID, responder, models.EventTypeAccept, now,
			fmt.Sprintf("%s accepted %.0f at round %d", responder, offer.Price, round),
			models.EventData{Price: offer.Price, Reason: "within acceptable margin"}), nil

	case round >= forcedAt && !egregious:
		next.Status = models.DealStatusCompleted
		next.CurrentPrice = offer.Price
		next.LastOffer = &offer
		return next, newEvent(deal.ID, responder, models.EventTypeAccept, now,
			fmt.Sprintf("%s accepted %.0f with round limit approaching", responder, offer.Price),
			models.EventData{Price: offer.Price, Reason: "round limit approaching"}), nil

	case egregious:
		// Also covers the round limit: past the forced-accept point only
		// an egregious offer is left to reject.
		next.Status = models.DealStatusFailed
		next.LastOffer = &offer
		return next, newEvent(deal.ID, responder, models.EventTypeReject, now,
			fmt.Sprintf("%s walked away from %.0f", responder, offer.Price),
			models.EventData{Price: offer.Price, Reason: "offer beyond walk-away threshold"}), nil
	}

	counterPrice := counter(cfg, deal.NominalPrice, offer.Price, round, maxRounds)
	if counterPrice == offer.Price {
		// Nothing left to concede; meeting the offer is an acceptance.
		next.Status = models.DealStatusCompleted
		next.CurrentPrice = offer.Price
		next.LastOffer = &offer
		return next, newEvent(deal.ID, responder, models.EventTypeAccept, now,
			fmt.Sprintf("%s accepted %.0f at round %d", responder, offer.Price, round),
			models.EventData{Price: offer.Price, Reason: "counter converged on offer"}), nil
	}

	counterOffer := models.Offer{Price: counterPrice, ActorRole: responder, Timestamp: now}
	next.Status = models.DealStatusActive
	next.CurrentPrice = counterPrice
	next.LastOffer = &counterOffer
	return next, newEvent(deal.ID, responder, models.EventTypeCounterOffer, now,
		fmt.Sprintf("%s countered %.0f with %.0f at round %d", responder, offer.Price, counterPrice, round),
		models.EventData{Price: counterPrice}), nil
}

// acceptable applies the margin policy for the responding agent. The
// reference price is the deal's nominal (listing) price for both roles.
func acceptable(cfg models.AgentConfig, nominal, price float64) bool {
	margin := cfg.AcceptableMarginPct / 100
	if cfg.Role == models.RoleBuyer {
		if cfg.MaxPrice != nil && price > *cfg.MaxPrice {
			return false
		}
		return price <= nominal*(1-margin)
	}
	if cfg.MinPrice != nil && price < *cfg.MinPrice {
		return false
	}
	return price >= nominal*(1-margin)
}

// isEgregious reports whether the offer is beyond the agent's walk-away
// threshold. Agents without a price bound never walk away on price alone.
func isEgregious(cfg models.AgentConfig, price float64) bool {
	if cfg.Role == models.RoleBuyer {
		return cfg.MaxPrice != nil && price > *cfg.MaxPrice*buyerWalkAwayFactor
	}
	return cfg.MinPrice != nil && price < *cfg.MinPrice*sellerWalkAwayFactor
}

// counter moves the offered price toward the responder's target by a
// step that shrinks as rounds progress and with the agent's urgency.
// Sellers pull toward the nominal price; buyers pull toward their budget.
func counter(cfg models.AgentConfig, nominal, price float64, round, maxRounds int) float64 {
	target := nominal
	if cfg.Role == models.RoleBuyer {
		if cfg.MaxPrice != nil {
			target = *cfg.MaxPrice
		} else {
			target = nominal * (1 - cfg.AcceptableMarginPct/100)
		}
	}

	step := urgencyFactor(cfg.Urgency) * (1 - float64(round)/float64(maxRounds))
	if step < minConcessionStep {
		step = minConcessionStep
	}
	if step > maxConcessionStep {
		step = maxConcessionStep
	}
	return math.Round(price + (target-price)*step)
}

// Expire transitions an idle active deal to timed_out. Used by the expiry
// sweep; terminal deals fail with ErrInvalidTransition like any other step.
func Expire(deal *models.Deal, now time.Time) (models.NegotiationState, models.NegotiationEvent, error) {
	var none models.NegotiationState
	var noEvent models.NegotiationEvent
	if deal.State.Terminal() {
		return none, noEvent, fmt.Errorf("deal %s (%s): %w", deal.ID, deal.State.Status, models.ErrInvalidTransition)
	}

	next := deal.State
	next.DealID = deal.ID
	next.Round = deal.State.Round + 1
	next.Status = models.DealStatusTimedOut
	return next, newEvent(deal.ID, models.RoleSystem, models.EventTypeTimeout, now,
		"negotiation timed out",
		models.EventData{Reason: "idle past deadline"}), nil
}

// Cancel transitions an active deal to failed with the given reason.
// Cancellation is a terminal-state transition, never a partial abort.
func Cancel(deal *models.Deal, reason string, now time.Time) (models.NegotiationState, models.NegotiationEvent, error) {
	var none models.NegotiationState
	var noEvent models.NegotiationEvent
	if deal.State.Terminal() {
		return none, noEvent, fmt.Errorf("deal %s (%s): %w", deal.ID, deal.State.Status, models.ErrInvalidTransition)
	}
	if reason == "" {
		reason = "cancelled"
	}

	next := deal.State
	next.DealID = deal.ID
	next.Round = deal.State.Round + 1
	next.Status = models.DealStatusFailed
	return next, newEvent(deal.ID, models.RoleSystem, models.EventTypeSystem, now,
		fmt.Sprintf("negotiation cancelled: %s", reason),
		models.EventData{Reason: reason}), nil
}

func newEvent(dealID uuid.UUID, actor, eventType string, now time.Time, message string, data models.EventData) models.NegotiationEvent {
	payload, _ := json.Marshal(data)
	return models.NegotiationEvent{
		ID:        ulid.Make().String(),
		DealID:    dealID,
		Message:   message,
		Actor:     actor,
		Type:      eventType,
		Data:      payload,
		Timestamp: now,
	}
}
