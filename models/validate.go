package models

import "time"

// MinWindowDuration is the shortest acceptable availability slot.
const MinWindowDuration = 30 * time.Minute

// ValidateListingSpec checks the ListingSpec invariants at the boundary.
// Internal code assumes a spec that passed here; nothing re-validates
// downstream.
func ValidateListingSpec(spec *ListingSpec, now time.Time) error {
	if spec == nil {
		return Validationf("", "spec is required")
	}
	if spec.Category == "" {
		return Validationf("category", "is required")
	}
	if spec.PurchaseDate.IsZero() {
		return Validationf("purchaseDate", "is required")
	}
	if spec.PurchaseDate.After(now) {
		return Validationf("purchaseDate", "must not be in the future")
	}
	if spec.OriginalPrice < 0 {
		return Validationf("originalPrice", "must not be negative")
	}
	if spec.Usage.Notes == "" {
		return Validationf("usage.notes", "is required")
	}
	for i, d := range spec.Defects {
		if d.Severity < 1 || d.Severity > 3 {
			return Validationf("defects", "defect %d: severity %d out of range 1-3", i, d.Severity)
		}
	}
	if len(spec.Availability) < 2 {
		return Validationf("availability", "at least two time windows required, got %d", len(spec.Availability))
	}
	usable := false
	for _, w := range spec.Availability {
		if w.End.After(w.Start) && w.Duration() >= MinWindowDuration {
			usable = true
			break
		}
	}
	if !usable {
		return Validationf("availability", "no window with end after start and duration of at least 30 minutes")
	}
	return nil
}

// ValidateAgentConfig checks a negotiation agent configuration.
func ValidateAgentConfig(cfg *AgentConfig) error {
	if cfg.Role != RoleBuyer && cfg.Role != RoleSeller {
		return Validationf("role", "must be buyer or seller, got %q", cfg.Role)
	}
	if cfg.MaxRounds < 1 {
		return Validationf("maxRounds", "must be at least 1, got %d", cfg.MaxRounds)
	}
	if cfg.AcceptableMarginPct < 0 || cfg.AcceptableMarginPct > 100 {
		return Validationf("acceptableMarginPct", "must be in 0-100, got %v", cfg.AcceptableMarginPct)
	}
	if cfg.MinPrice != nil && *cfg.MinPrice < 0 {
		return Validationf("minPrice", "must not be negative")
	}
	if cfg.MaxPrice != nil && *cfg.MaxPrice <= 0 {
		return Validationf("maxPrice", "must be positive")
	}
	switch cfg.Urgency {
	case "", UrgencyLow, UrgencyNormal, UrgencyHigh:
	default:
		return Validationf("urgency", "unknown urgency %q", cfg.Urgency)
	}
	return nil
}
