package negotiation

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"dealdesk/models"
)

var testNow = time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)

func f64(v float64) *float64 { return &v }

func newDeal(nominal float64, buyer, seller models.AgentConfig) *models.Deal {
	buyer.Role = models.RoleBuyer
	seller.Role = models.RoleSeller
	id := uuid.New()
	return &models.Deal{
		ID:           id,
		ListingID:    uuid.New(),
		NominalPrice: nominal,
		Buyer:        buyer,
		Seller:       seller,
		State: models.NegotiationState{
			DealID:       id,
			CurrentPrice: nominal,
			Round:        0,
			Status:       models.DealStatusActive,
		},
	}
}

func standardDeal() *models.Deal {
	return newDeal(1000,
		models.AgentConfig{MaxRounds: 10, AcceptableMarginPct: 10, MaxPrice: f64(900)},
		models.AgentConfig{MaxRounds: 10, AcceptableMarginPct: 10, MinPrice: f64(850)},
	)
}

func TestStep_SellerCounters(t *testing.T) {
	deal := standardDeal()

	state, event, err := Step(deal, models.Offer{Price: 800, ActorRole: models.RoleBuyer}, testNow)
	if err != nil {
		t.Fatalf("step failed: %v", err)
	}

	if state.Status != models.DealStatusActive {
		t.Fatalf("expected active, got %s", state.Status)
	}
	if state.Round != 1 {
		t.Fatalf("expected round 1, got %d", state.Round)
	}
	if state.CurrentPrice <= 800 || state.CurrentPrice >= 1000 {
		t.Fatalf("counter %v not strictly between offer and nominal", state.CurrentPrice)
	}
	// Normal urgency at round 1 of 10: 45% of the gap toward nominal.
	if state.CurrentPrice != 890 {
		t.Fatalf("expected counter 890, got %v", state.CurrentPrice)
	}
	if state.LastOffer == nil || state.LastOffer.ActorRole != models.RoleSeller {
		t.Fatalf("expected seller counter recorded as last offer, got %+v", state.LastOffer)
	}
	if event.Type != models.EventTypeCounterOffer {
		t.Fatalf("expected counteroffer event, got %s", event.Type)
	}
	if event.Actor != models.RoleSeller {
		t.Fatalf("expected seller event actor, got %s", event.Actor)
	}
	if event.DealID != deal.ID {
		t.Fatalf("event bound to wrong deal")
	}
	// Caller owns persistence; the deal must be untouched.
	if deal.State.Round != 0 || deal.State.Status != models.DealStatusActive {
		t.Fatalf("step mutated the deal: %+v", deal.State)
	}
}

func TestStep_SellerAcceptsWithinMargin(t *testing.T) {
	deal := standardDeal()

	state, event, err := Step(deal, models.Offer{Price: 910, ActorRole: models.RoleBuyer}, testNow)
	if err != nil {
		t.Fatalf("step failed: %v", err)
	}
	if state.Status != models.DealStatusCompleted {
		t.Fatalf("expected completed, got %s", state.Status)
	}
	if state.CurrentPrice != 910 {
		t.Fatalf("expected closing price 910, got %v", state.CurrentPrice)
	}
	if event.Type != models.EventTypeAccept {
		t.Fatalf("expected accept event, got %s", event.Type)
	}
}

func TestStep_BuyerAcceptsWithinBudget(t *testing.T) {
	deal := standardDeal()

	state, event, err := Step(deal, models.Offer{Price: 880, ActorRole: models.RoleSeller}, testNow)
	if err != nil {
		t.Fatalf("step failed: %v", err)
	}
	if state.Status != models.DealStatusCompleted {
		t.Fatalf("expected completed, got %s", state.Status)
	}
	if event.Actor != models.RoleBuyer {
		t.Fatalf("expected buyer to respond, got %s", event.Actor)
	}
}

func TestStep_SellerWalksAway(t *testing.T) {
	deal := standardDeal()

	// 500 is below the seller's 850 floor scaled by the walk-away factor.
	state, event, err := Step(deal, models.Offer{Price: 500, ActorRole: models.RoleBuyer}, testNow)
	if err != nil {
		t.Fatalf("step failed: %v", err)
	}
	if state.Status != models.DealStatusFailed {
		t.Fatalf("expected failed, got %s", state.Status)
	}
	if event.Type != models.EventTypeReject {
		t.Fatalf("expected reject event, got %s", event.Type)
	}
}

func TestStep_BuyerWalksAway(t *testing.T) {
	deal := standardDeal()

	// 1200 exceeds the buyer's 900 budget scaled by the walk-away factor.
	state, event, err := Step(deal, models.Offer{Price: 1200, ActorRole: models.RoleSeller}, testNow)
	if err != nil {
		t.Fatalf("step failed: %v", err)
	}
	if state.Status != models.DealStatusFailed {
		t.Fatalf("expected failed, got %s", state.Status)
	}
	if event.Actor != models.RoleBuyer {
		t.Fatalf("expected buyer event actor, got %s", event.Actor)
	}
}

func TestStep_UnboundedAgentNeverWalksAway(t *testing.T) {
	deal := newDeal(1000,
		models.AgentConfig{MaxRounds: 10, AcceptableMarginPct: 10},
		models.AgentConfig{MaxRounds: 10, AcceptableMarginPct: 10},
	)

	state, _, err := Step(deal, models.Offer{Price: 1, ActorRole: models.RoleBuyer}, testNow)
	if err != nil {
		t.Fatalf("step failed: %v", err)
	}
	if state.Status != models.DealStatusActive {
		t.Fatalf("seller without a floor walked away: %s", state.Status)
	}
}

func TestStep_ForcedAcceptNearRoundLimit(t *testing.T) {
	deal := standardDeal()
	deal.State.Round = 8
	deal.State.LastOffer = &models.Offer{Price: 940, ActorRole: models.RoleSeller}

	// 700 is below the seller's floor but not egregious; round 9 of 10 is
	// past the forced-accept point.
	state, event, err := Step(deal, models.Offer{Price: 700, ActorRole: models.RoleBuyer}, testNow)
	if err != nil {
		t.Fatalf("step failed: %v", err)
	}
	if state.Status != models.DealStatusCompleted {
		t.Fatalf("expected forced accept, got %s", state.Status)
	}
	if state.CurrentPrice != 700 {
		t.Fatalf("expected closing price 700, got %v", state.CurrentPrice)
	}
	if event.Type != models.EventTypeAccept {
		t.Fatalf("expected accept event, got %s", event.Type)
	}
}

func TestStep_EgregiousOfferRejectedEvenNearLimit(t *testing.T) {
	deal := standardDeal()
	deal.State.Round = 8
	deal.State.LastOffer = &models.Offer{Price: 940, ActorRole: models.RoleSeller}

	state, event, err := Step(deal, models.Offer{Price: 500, ActorRole: models.RoleBuyer}, testNow)
	if err != nil {
		t.Fatalf("step failed: %v", err)
	}
	if state.Status != models.DealStatusFailed {
		t.Fatalf("expected failed, got %s", state.Status)
	}
	if event.Type != models.EventTypeReject {
		t.Fatalf("expected reject event, got %s", event.Type)
	}
}

func TestStep_ConvergedCounterAccepts(t *testing.T) {
	// Buyer without a hard budget: counters pull toward nominal minus
	// margin. One unit above that target leaves nothing to concede.
	deal := newDeal(1000,
		models.AgentConfig{MaxRounds: 10, AcceptableMarginPct: 10},
		models.AgentConfig{MaxRounds: 10, AcceptableMarginPct: 10, MinPrice: f64(850)},
	)

	state, event, err := Step(deal, models.Offer{Price: 901, ActorRole: models.RoleSeller}, testNow)
	if err != nil {
		t.Fatalf("step failed: %v", err)
	}
	if state.Status != models.DealStatusCompleted {
		t.Fatalf("expected completed, got %s", state.Status)
	}
	if state.CurrentPrice != 901 {
		t.Fatalf("expected closing price 901, got %v", state.CurrentPrice)
	}
	if event.Type != models.EventTypeAccept {
		t.Fatalf("expected accept event, got %s", event.Type)
	}
}

func TestStep_TerminatesWithinRoundBound(t *testing.T) {
	deal := standardDeal()
	maxRounds := deal.MaxRounds()

	// A stubborn buyer keeps lowballing just above the walk-away line.
	offer := 700.0
	for i := 0; i < maxRounds+1; i++ {
		state, _, err := Step(deal, models.Offer{Price: offer, ActorRole: models.RoleBuyer}, testNow)
		if err != nil {
			t.Fatalf("round %d: step failed: %v", i+1, err)
		}
		deal.State = state
		if state.Terminal() {
			if state.Round > maxRounds {
				t.Fatalf("terminated after the round bound: round %d > %d", state.Round, maxRounds)
			}
			return
		}
		offer++
	}
	t.Fatalf("negotiation still active after %d rounds", deal.State.Round)
}

func TestStep_HigherUrgencyConcedesMore(t *testing.T) {
	calm := standardDeal()
	calm.Seller.Urgency = models.UrgencyLow
	rushed := standardDeal()
	rushed.Seller.Urgency = models.UrgencyHigh

	calmState, _, err := Step(calm, models.Offer{Price: 800, ActorRole: models.RoleBuyer}, testNow)
	if err != nil {
		t.Fatalf("step failed: %v", err)
	}
	rushedState, _, err := Step(rushed, models.Offer{Price: 800, ActorRole: models.RoleBuyer}, testNow)
	if err != nil {
		t.Fatalf("step failed: %v", err)
	}

	// A seller counters upward; an urgent seller concedes more and stays
	// closer to the buyer's offer.
	if rushedState.CurrentPrice >= calmState.CurrentPrice {
		t.Fatalf("high urgency counter %v not below low urgency counter %v",
			rushedState.CurrentPrice, calmState.CurrentPrice)
	}
	if rushedState.CurrentPrice != 845 {
		t.Fatalf("expected high urgency counter 845, got %v", rushedState.CurrentPrice)
	}
	if calmState.CurrentPrice != 935 {
		t.Fatalf("expected low urgency counter 935, got %v", calmState.CurrentPrice)
	}
}

func TestStep_RejectsAlternationViolation(t *testing.T) {
	deal := standardDeal()
	deal.State.LastOffer = &models.Offer{Price: 800, ActorRole: models.RoleBuyer}

	_, _, err := Step(deal, models.Offer{Price: 820, ActorRole: models.RoleBuyer}, testNow)
	if !models.IsValidation(err) {
		t.Fatalf("expected validation error for consecutive offers, got %v", err)
	}
}

func TestStep_RejectsBadOffers(t *testing.T) {
	deal := standardDeal()

	if _, _, err := Step(deal, models.Offer{Price: 800, ActorRole: "agent"}, testNow); !models.IsValidation(err) {
		t.Fatalf("expected validation error for unknown role, got %v", err)
	}
	if _, _, err := Step(deal, models.Offer{Price: 0, ActorRole: models.RoleBuyer}, testNow); !models.IsValidation(err) {
		t.Fatalf("expected validation error for zero price, got %v", err)
	}
}

func TestStep_TerminalDealRejectsOffers(t *testing.T) {
	for _, status := range []string{
		models.DealStatusCompleted, models.DealStatusFailed, models.DealStatusTimedOut,
	} {
		deal := standardDeal()
		deal.State.Status = status

		_, _, err := Step(deal, models.Offer{Price: 900, ActorRole: models.RoleBuyer}, testNow)
		if !errors.Is(err, models.ErrInvalidTransition) {
			t.Fatalf("%s: expected ErrInvalidTransition, got %v", status, err)
		}
	}
}

func TestExpire(t *testing.T) {
	deal := standardDeal()

	state, event, err := Expire(deal, testNow)
	if err != nil {
		t.Fatalf("expire failed: %v", err)
	}
	if state.Status != models.DealStatusTimedOut {
		t.Fatalf("expected timed_out, got %s", state.Status)
	}
	if state.Round != deal.State.Round+1 {
		t.Fatalf("expected round bump, got %d", state.Round)
	}
	if event.Type != models.EventTypeTimeout || event.Actor != models.RoleSystem {
		t.Fatalf("unexpected event %s by %s", event.Type, event.Actor)
	}

	deal.State = state
	if _, _, err := Expire(deal, testNow); !errors.Is(err, models.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition on second expire, got %v", err)
	}
}

func TestCancel(t *testing.T) {
	deal := standardDeal()

	state, event, err := Cancel(deal, "listing withdrawn", testNow)
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if state.Status != models.DealStatusFailed {
		t.Fatalf("expected failed, got %s", state.Status)
	}
	if event.Type != models.EventTypeSystem {
		t.Fatalf("expected system event, got %s", event.Type)
	}

	deal.State = state
	if _, _, err := Cancel(deal, "again", testNow); !errors.Is(err, models.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition on cancelled deal, got %v", err)
	}
}

func TestEventIDsSortByCreation(t *testing.T) {
	deal := standardDeal()

	_, first, err := Step(deal, models.Offer{Price: 800, ActorRole: models.RoleBuyer}, testNow)
	if err != nil {
		t.Fatalf("step failed: %v", err)
	}
	_, second, err := Step(deal, models.Offer{Price: 810, ActorRole: models.RoleBuyer}, testNow)
	if err != nil {
		t.Fatalf("step failed: %v", err)
	}
	if first.ID >= second.ID {
		t.Fatalf("event ids not monotonic: %s then %s", first.ID, second.ID)
	}
}
