package grading

import (
	"fmt"
	"strings"
	"time"

	"dealdesk/identity"
	"dealdesk/models"
	"dealdesk/rubric"
)

// Packaging keyword groups matched against the accessories tokens.
var (
	boxKeywords      = []string{"box", "packaging"}
	manualKeywords   = []string{"manual", "instructions"}
	warrantyKeywords = []string{"warranty", "receipt", "proof of purchase"}
)

// Grader computes condition grades from listing specs. Stateless and safe
// for concurrent use; identical inputs always produce identical output.
type Grader struct {
	catalog *rubric.Catalog
}

func NewGrader(catalog *rubric.Catalog) *Grader {
	return &Grader{catalog: catalog}
}

// Grade scores the spec against the category rubric and returns the grade,
// the per-criterion breakdown, and a justification. The justification is
// built only from the declared spec facts; grading never sees photos.
func (g *Grader) Grade(spec *models.ListingSpec, now time.Time) (*models.ConditionGrade, error) {
	if err := models.ValidateListingSpec(spec, now); err != nil {
		return nil, err
	}

	cat := g.catalog.Category(spec.Category)

	packaging := scorePackaging(spec.Accessories)
	matched, accessories := cat.MatchAccessories(spec.Accessories)
	defects := scoreDefects(spec.Defects)
	ageMonths := spec.AgeMonths(now)
	ageUsage := scoreAgeUsage(ageMonths, spec.Usage)

	scores := []models.CriterionScore{
		{Name: rubric.CriterionPackaging, Score: packaging.score, Notes: packaging.notes},
		{
			Name:  rubric.CriterionAccessories,
			Score: accessories,
			Notes: fmt.Sprintf("%d of %d standard accessories included", len(matched), len(cat.StandardAccessories)),
		},
		{Name: rubric.CriterionDefects, Score: defects.score, Notes: defects.notes},
		{Name: rubric.CriterionAgeUsage, Score: ageUsage.score, Notes: ageUsage.notes},
	}

	var total float64
	for _, s := range scores {
		total += s.Score * rubric.CriterionWeight
	}

	grade := &models.ConditionGrade{
		Grade:  cat.GradeFor(total),
		Scores: scores,
	}
	grade.Justification = buildJustification(grade.Grade, total, scores, cat.Name, matched, ageMonths, spec)
	return grade, nil
}

type criterion struct {
	score float64
	notes string
}

// scorePackaging tiers on original box, manual, and warranty documentation
// presence among the accessory tokens.
func scorePackaging(accessories []string) criterion {
	hasBox := containsAny(accessories, boxKeywords)
	hasManual := containsAny(accessories, manualKeywords)
	hasWarranty := containsAny(accessories, warrantyKeywords)

	switch {
	case hasBox && hasManual && hasWarranty:
		return criterion{1.0, "original box, manual, and warranty documentation present"}
	case hasBox && (hasManual || hasWarranty):
		doc := "manual"
		if hasWarranty {
			doc = "warranty documentation"
		}
		return criterion{0.8, fmt.Sprintf("original box and %s present", doc)}
	case hasBox:
		return criterion{0.6, "original box present, no documentation declared"}
	default:
		return criterion{0.0, "no original packaging declared"}
	}
}

func scoreDefects(defects []models.Defect) criterion {
	if len(defects) == 0 {
		return criterion{1.0, "no defects declared"}
	}
	var sum float64
	for _, d := range defects {
		sum += float64(d.Severity) / 3.0
	}
	mean := sum / float64(len(defects))
	return criterion{
		score: 1.0 - mean,
		notes: fmt.Sprintf("%d declared defect(s), mean severity %.2f of 3", len(defects), mean*3),
	}
}

func scoreAgeUsage(ageMonths int, usage models.Usage) criterion {
	score := rubric.GradeAgeFactor(ageMonths) * rubric.UsageFactor(usage.Hours, usage.Cycles)

	// Whole words only: "slightly used" is not light use and
	// "heavyweight case" is not heavy use.
	nudge := ""
	words := strings.Fields(identity.Normalize(usage.Notes))
	if hasWord(words, "heavy") {
		score *= 0.9
		nudge = ", heavy use reported"
	} else if hasWord(words, "light") {
		score *= 1.1
		nudge = ", light use reported"
	}
	if score > 1.0 {
		score = 1.0
	}
	if score < 0 {
		score = 0
	}

	detail := fmt.Sprintf("%d month(s) since purchase", ageMonths)
	if usage.Hours > 0 {
		detail += fmt.Sprintf(", %g usage hour(s)", usage.Hours)
	}
	if usage.Cycles > 0 {
		detail += fmt.Sprintf(", %d cycle(s)", usage.Cycles)
	}
	return criterion{score: score, notes: detail + nudge}
}

func hasWord(words []string, w string) bool {
	for _, t := range words {
		if t == w {
			return true
		}
	}
	return false
}

func containsAny(tokens []string, keywords []string) bool {
	for _, kw := range keywords {
		if identity.ContainsKeyword(tokens, kw) {
			return true
		}
	}
	return false
}

var criterionTitles = map[string]string{
	rubric.CriterionPackaging:   "Packaging",
	rubric.CriterionAccessories: "Accessories",
	rubric.CriterionDefects:     "Defects",
	rubric.CriterionAgeUsage:    "Age & usage",
}

func buildJustification(grade string, total float64, scores []models.CriterionScore, category string, matched []string, ageMonths int, spec *models.ListingSpec) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Condition: %s (rubric score %.2f)\n\n", grade, total)
	fmt.Fprintf(&b, "Assessment of the %q listing against the %s rubric, from the declared item details.\n\n", spec.Category, category)
	for _, s := range scores {
		fmt.Fprintf(&b, "- **%s** (%.2f): %s\n", criterionTitles[s.Name], s.Score, s.Notes)
	}
	if len(matched) > 0 {
		fmt.Fprintf(&b, "\nStandard accessories found: %s.\n", strings.Join(matched, ", "))
	}
	fmt.Fprintf(&b, "\nItem age at assessment: %d month(s).\n", ageMonths)
	return b.String()
}
