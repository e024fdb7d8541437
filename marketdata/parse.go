package marketdata

import (
	"log"
	"time"

	"dealdesk/models"
)

// parseComparables converts API records to domain comparables. Records
// with a missing id, non-positive price, unknown grade, or unparseable
// sale date are skipped with a warning rather than failing the batch.
func parseComparables(raw []apiComparable) ([]models.Comparable, error) {
	comps := make([]models.Comparable, 0, len(raw))
	for _, r := range raw {
		if r.ID == "" || r.Price <= 0 {
			log.Printf("Warning: skipping comparable with missing id or price")
			continue
		}
		if !models.IsValidGrade(r.Grade) {
			log.Printf("Warning: skipping comparable %s with unknown grade %q", r.ID, r.Grade)
			continue
		}
		soldAt, err := time.Parse(time.RFC3339, r.SoldAt)
		if err != nil {
			log.Printf("Warning: skipping comparable %s with bad soldAt %q", r.ID, r.SoldAt)
			continue
		}
		comps = append(comps, models.Comparable{
			ID:              r.ID,
			Price:           r.Price,
			Grade:           r.Grade,
			SoldAt:          soldAt,
			DaysToSell:      r.DaysToSell,
			AgeMonthsAtSale: r.AgeMonthsAtSale,
		})
	}
	return comps, nil
}
