package pricing

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"dealdesk/models"
	"dealdesk/rubric"
)

// Scarcity detection thresholds.
const (
	scarcityMinComparables = 3
	scarcityFastSaleDays   = 5.0
	scarcityRecentPremium  = 1.15
)

// Oracle turns a graded listing plus market comparables into a three-tier
// price band. Stateless; given the same spec, grade, and comparable set
// the output is identical.
type Oracle struct {
	catalog *rubric.Catalog
	gateway ComparablesGateway
}

func NewOracle(catalog *rubric.Catalog, gateway ComparablesGateway) *Oracle {
	return &Oracle{catalog: catalog, gateway: gateway}
}

// Price computes the price band for a spec graded at the given condition.
// Returns models.ErrNoComparables when the gateway has no market evidence.
func (o *Oracle) Price(ctx context.Context, spec *models.ListingSpec, grade *models.ConditionGrade, now time.Time) (*models.PriceBand, error) {
	if err := models.ValidateListingSpec(spec, now); err != nil {
		return nil, err
	}
	if !models.IsValidGrade(grade.Grade) {
		return nil, models.Validationf("grade", "unknown condition grade %q", grade.Grade)
	}

	q := QueryFor(spec)
	comps, err := o.gateway.Fetch(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("fetch comparables: %w", err)
	}
	if len(comps) == 0 {
		return nil, fmt.Errorf("%s %s: %w", q.Category, q.Model, models.ErrNoComparables)
	}

	// Re-scale each comparable from its own grade to the target grade.
	targetMult := rubric.ConditionMultiplier(grade.Grade)
	adjusted := make([]float64, len(comps))
	ids := make([]string, len(comps))
	for i, c := range comps {
		adjusted[i] = c.Price * (targetMult / rubric.ConditionMultiplier(c.Grade))
		ids[i] = c.ID
	}
	base := median(adjusted)

	ageMonths := spec.AgeMonths(now)
	ageFactor := rubric.PriceAgeFactor(ageMonths)

	cat := o.catalog.Category(spec.Category)
	_, matchRatio := cat.MatchAccessories(spec.Accessories)
	accFactor := rubric.AccessoriesFactorMin +
		(rubric.AccessoriesFactorMax-rubric.AccessoriesFactorMin)*matchRatio

	value := base * ageFactor * accFactor

	scarce, scarceReason := detectScarcity(comps)
	cap := rubric.PriceCapNormal
	if scarce {
		cap = rubric.PriceCapScarcity
	}
	rawMedian := rawPriceMedian(comps)
	capped := false
	if limit := rawMedian * cap; value > limit {
		value = limit
		capped = true
	}

	fair := math.Round(value)
	band := &models.PriceBand{
		QuickSale:     math.Round(fair * models.QuickSaleSpread),
		Fair:          fair,
		HoldOut:       math.Round(fair * models.HoldOutSpread),
		ComparableIDs: ids,
	}
	band.Explanation = buildExplanation(band, comps, grade.Grade, base, rawMedian,
		ageMonths, ageFactor, accFactor, scarce, scarceReason, capped)
	return band, nil
}

// detectScarcity flags a thin or heating market: too few comparables, very
// fast sales, or the two most recent sales pricing well above the rest.
func detectScarcity(comps []models.Comparable) (bool, string) {
	if len(comps) < scarcityMinComparables {
		return true, fmt.Sprintf("only %d comparable(s) on record", len(comps))
	}

	var daysSum float64
	var daysN int
	for _, c := range comps {
		if c.DaysToSell != nil {
			daysSum += float64(*c.DaysToSell)
			daysN++
		}
	}
	if daysN > 0 && daysSum/float64(daysN) < scarcityFastSaleDays {
		return true, fmt.Sprintf("comparables sold in %.1f day(s) on average", daysSum/float64(daysN))
	}

	byDate := make([]models.Comparable, len(comps))
	copy(byDate, comps)
	sort.SliceStable(byDate, func(i, j int) bool { return byDate[i].SoldAt.After(byDate[j].SoldAt) })
	recent := (byDate[0].Price + byDate[1].Price) / 2
	var restSum float64
	for _, c := range byDate[2:] {
		restSum += c.Price
	}
	rest := restSum / float64(len(byDate)-2)
	if rest > 0 && recent > rest*scarcityRecentPremium {
		return true, fmt.Sprintf("recent sales average %.0f vs %.0f for older ones", recent, rest)
	}
	return false, ""
}

// median of values; even-length sets take the mean of the two middle
// values. Input is not mutated.
func median(values []float64) float64 {
	s := make([]float64, len(values))
	copy(s, values)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

func rawPriceMedian(comps []models.Comparable) float64 {
	prices := make([]float64, len(comps))
	for i, c := range comps {
		prices[i] = c.Price
	}
	return median(prices)
}

func buildExplanation(band *models.PriceBand, comps []models.Comparable, targetGrade string,
	base, rawMedian float64, ageMonths int, ageFactor, accFactor float64,
	scarce bool, scarceReason string, capped bool) string {

	lo, hi := comps[0].Price, comps[0].Price
	for _, c := range comps[1:] {
		if c.Price < lo {
			lo = c.Price
		}
		if c.Price > hi {
			hi = c.Price
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## Price band\n\n")
	fmt.Fprintf(&b, "Based on %d comparable sale(s) priced %.0f-%.0f (median %.0f).\n\n", len(comps), lo, hi, rawMedian)
	fmt.Fprintf(&b, "- Condition-adjusted to %s: base %.0f\n", targetGrade, base)
	fmt.Fprintf(&b, "- Age adjustment (%d month(s)): %+.1f%%\n", ageMonths, (ageFactor-1)*100)
	fmt.Fprintf(&b, "- Accessories completeness: %+.1f%%\n", (accFactor-1)*100)
	if scarce {
		fmt.Fprintf(&b, "- Scarcity premium applied: %s\n", scarceReason)
	} else {
		fmt.Fprintf(&b, "- No scarcity premium\n")
	}
	if capped {
		fmt.Fprintf(&b, "- Capped against the comparable median\n")
	}
	fmt.Fprintf(&b, "\nRecommended: quick sale %.0f, fair %.0f, hold out %.0f.\n",
		band.QuickSale, band.Fair, band.HoldOut)
	fmt.Fprintf(&b, "Comparables used: %s.\n", strings.Join(band.ComparableIDs, ", "))
	return b.String()
}
