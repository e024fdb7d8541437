package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Negotiation roles
const (
	RoleBuyer  = "buyer"
	RoleSeller = "seller"
	RoleSystem = "system"
)

// Negotiation statuses. Any status other than active is terminal.
const (
	DealStatusActive    = "active"
	DealStatusCompleted = "completed"
	DealStatusFailed    = "failed"
	DealStatusTimedOut  = "timed_out"
)

// Negotiation event types
const (
	EventTypeOffer        = "offer"
	EventTypeCounterOffer = "counteroffer"
	EventTypeAccept       = "accept"
	EventTypeReject       = "reject"
	EventTypeTimeout      = "timeout"
	EventTypeSystem       = "system"
)

// Urgency levels for an agent's concession behavior.
const (
	UrgencyLow    = "low"
	UrgencyNormal = "normal"
	UrgencyHigh   = "high"
)

// Offer is a single priced offer made by one role.
type Offer struct {
	Price     float64   `json:"price"`
	ActorRole string    `json:"actorRole"`
	Timestamp time.Time `json:"timestamp"`
}

// OtherRole returns the counterpart of a buyer/seller role.
func OtherRole(role string) string {
	if role == RoleBuyer {
		return RoleSeller
	}
	return RoleBuyer
}

// AgentConfig is the immutable negotiation configuration for one agent.
// AcceptableMarginPct is a percentage (10 means 10%). MinPrice applies to
// sellers, MaxPrice to buyers.
type AgentConfig struct {
	Role                string   `json:"role"`
	MaxRounds           int      `json:"maxRounds"`
	AcceptableMarginPct float64  `json:"acceptableMarginPct"`
	MinPrice            *float64 `json:"minPrice,omitempty"`
	MaxPrice            *float64 `json:"maxPrice,omitempty"`
	Urgency             string   `json:"urgency,omitempty"`
}

// NegotiationState is the per-deal mutable snapshot owned by the deal
// store. The engine reads one snapshot, computes a transition, and hands
// back exactly one new snapshot.
type NegotiationState struct {
	DealID       uuid.UUID `json:"dealId" db:"deal_id"`
	CurrentPrice float64   `json:"currentPrice" db:"current_price"`
	Round        int       `json:"round" db:"round"`
	LastOffer    *Offer    `json:"lastOffer,omitempty"`
	Status       string    `json:"status" db:"status"`
}

// Terminal reports whether no further transitions are permitted.
func (s *NegotiationState) Terminal() bool {
	return s.Status != DealStatusActive
}

// NegotiationEvent is an immutable audit record appended once per
// negotiation step. IDs are ULIDs so events sort by creation time.
type NegotiationEvent struct {
	ID        string          `json:"id" db:"id"`
	DealID    uuid.UUID       `json:"dealId" db:"deal_id"`
	Message   string          `json:"message" db:"message"`
	Actor     string          `json:"actor" db:"actor"`
	Type      string          `json:"type" db:"event_type"`
	Data      json.RawMessage `json:"data,omitempty" db:"data"`
	Timestamp time.Time       `json:"timestamp" db:"created_at"`
}

// EventData is the structured payload attached to negotiation events.
type EventData struct {
	Price  float64 `json:"price,omitempty"`
	Reason string  `json:"reason,omitempty"`
}

// Deal binds a listing, the two agents' configurations, and the current
// negotiation state.
type Deal struct {
	ID           uuid.UUID        `json:"id" db:"id"`
	ListingID    uuid.UUID        `json:"listingId" db:"listing_id"`
	NominalPrice float64          `json:"nominalPrice" db:"nominal_price"`
	Buyer        AgentConfig      `json:"buyer"`
	Seller       AgentConfig      `json:"seller"`
	State        NegotiationState `json:"state"`
	CreatedAt    time.Time        `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time        `json:"updatedAt" db:"updated_at"`
}

// MaxRounds returns the effective round bound for the deal: the stricter
// of the two agents' limits.
func (d *Deal) MaxRounds() int {
	if d.Buyer.MaxRounds < d.Seller.MaxRounds {
		return d.Buyer.MaxRounds
	}
	return d.Seller.MaxRounds
}

// AgentFor returns the configuration for the given role.
func (d *Deal) AgentFor(role string) AgentConfig {
	if role == RoleBuyer {
		return d.Buyer
	}
	return d.Seller
}
