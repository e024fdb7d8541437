package rubric

import "dealdesk/models"

// conditionMultipliers rescale a sale price between condition grades.
var conditionMultipliers = map[string]float64{
	models.GradeNew:     1.00,
	models.GradeOpenBox: 0.90,
	models.GradeLikeNew: 0.80,
	models.GradeGood:    0.65,
	models.GradeFair:    0.50,
	models.GradePoor:    0.35,
}

// ConditionMultiplier returns the price multiplier for a grade. Unknown
// grades get the poor multiplier, the conservative end of the table.
func ConditionMultiplier(grade string) float64 {
	if m, ok := conditionMultipliers[grade]; ok {
		return m
	}
	return conditionMultipliers[models.GradePoor]
}

// GradeAgeFactor is the age sub-score used in condition grading, by whole
// months since purchase.
func GradeAgeFactor(months int) float64 {
	switch {
	case months <= 6:
		return 1.00
	case months <= 12:
		return 0.95
	case months <= 24:
		return 0.90
	case months <= 36:
		return 0.60
	default:
		return 0.30
	}
}

// PriceAgeFactor is the market depreciation factor used in pricing, by
// whole months since purchase.
func PriceAgeFactor(months int) float64 {
	switch {
	case months <= 3:
		return 1.00
	case months <= 6:
		return 0.95
	case months <= 12:
		return 0.90
	case months <= 24:
		return 0.82
	case months <= 36:
		return 0.70
	default:
		return 0.55
	}
}

// UsageFactor maps reported usage intensity to a multiplier on the age
// sub-score. Hours and cycles are combined; heavier usage decays the
// factor down to a 0.3 floor.
func UsageFactor(hours float64, cycles int) float64 {
	units := hours + float64(cycles)
	switch {
	case units <= 0:
		return 1.00
	case units <= 100:
		return 0.95
	case units <= 500:
		return 0.85
	case units <= 1000:
		return 0.70
	case units <= 5000:
		return 0.50
	default:
		return 0.30
	}
}

// Pricing caps: fair price may not exceed the raw comparable median by
// more than this factor. A detected scarcity premium raises the cap.
const (
	PriceCapNormal   = 1.20
	PriceCapScarcity = 1.35
)

// Accessories completeness adjustment bounds for pricing.
const (
	AccessoriesFactorMin = 0.95
	AccessoriesFactorMax = 1.05
)
