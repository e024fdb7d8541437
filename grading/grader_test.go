package grading

import (
	"math"
	"reflect"
	"strings"
	"testing"
	"time"

	"dealdesk/models"
	"dealdesk/rubric"
)

var testNow = time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)

func baseSpec() *models.ListingSpec {
	return &models.ListingSpec{
		Category:      "electronics",
		Make:          "Soundwave",
		Model:         "SW-200",
		PurchaseDate:  testNow.AddDate(0, -18, 0),
		OriginalPrice: 1200,
		Usage:         models.Usage{Notes: "used occasionally at home"},
		Defects: []models.Defect{
			{Area: "body", Severity: 1, Notes: "small scratch"},
			{Area: "screen", Severity: 2, Notes: "visible scuff"},
		},
		Accessories: []string{"original box", "charger", "cable", "manual", "screen protector"},
		Availability: []models.TimeWindow{
			{Start: testNow.Add(24 * time.Hour), End: testNow.Add(25 * time.Hour)},
			{Start: testNow.Add(48 * time.Hour), End: testNow.Add(49 * time.Hour)},
		},
	}
}

func totalOf(g *models.ConditionGrade) float64 {
	var total float64
	for _, s := range g.Scores {
		total += s.Score * rubric.CriterionWeight
	}
	return total
}

func scoreOf(t *testing.T, g *models.ConditionGrade, name string) float64 {
	t.Helper()
	for _, s := range g.Scores {
		if s.Name == name {
			return s.Score
		}
	}
	t.Fatalf("no criterion %s in breakdown", name)
	return 0
}

func TestGrade_ScoresAndGrade(t *testing.T) {
	g := NewGrader(rubric.Default())

	grade, err := g.Grade(baseSpec(), testNow)
	if err != nil {
		t.Fatalf("grade failed: %v", err)
	}

	// Box plus manual but no warranty documentation.
	if got := scoreOf(t, grade, rubric.CriterionPackaging); got != 0.8 {
		t.Fatalf("expected packaging 0.8, got %v", got)
	}
	// All four standard electronics accessories present.
	if got := scoreOf(t, grade, rubric.CriterionAccessories); got != 1.0 {
		t.Fatalf("expected accessories 1.0, got %v", got)
	}
	// Severities 1 and 2 of 3: mean 0.5.
	if got := scoreOf(t, grade, rubric.CriterionDefects); got != 0.5 {
		t.Fatalf("expected defects 0.5, got %v", got)
	}
	// 18 months old, no hours or cycles reported.
	if got := scoreOf(t, grade, rubric.CriterionAgeUsage); got != 0.9 {
		t.Fatalf("expected age/usage 0.9, got %v", got)
	}

	if total := totalOf(grade); math.Abs(total-0.80) > 1e-9 {
		t.Fatalf("expected total 0.80, got %v", total)
	}
	if grade.Grade != models.GradeLikeNew {
		t.Fatalf("expected grade %s, got %s", models.GradeLikeNew, grade.Grade)
	}
	if !strings.Contains(grade.Justification, models.GradeLikeNew) {
		t.Fatalf("justification does not state the grade:\n%s", grade.Justification)
	}
	if !strings.Contains(grade.Justification, "18 month(s)") {
		t.Fatalf("justification does not state the item age:\n%s", grade.Justification)
	}
}

func TestGrade_Deterministic(t *testing.T) {
	g := NewGrader(rubric.Default())

	first, err := g.Grade(baseSpec(), testNow)
	if err != nil {
		t.Fatalf("first grade failed: %v", err)
	}
	second, err := g.Grade(baseSpec(), testNow)
	if err != nil {
		t.Fatalf("second grade failed: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("identical input produced different grades:\n%+v\n%+v", first, second)
	}
	if first.Justification != second.Justification {
		t.Fatalf("identical input produced different justifications")
	}
}

func TestGrade_MoreDefectsLowerScore(t *testing.T) {
	g := NewGrader(rubric.Default())

	clean, err := g.Grade(baseSpec(), testNow)
	if err != nil {
		t.Fatalf("grade failed: %v", err)
	}

	damaged := baseSpec()
	damaged.Defects = append(damaged.Defects, models.Defect{Area: "battery", Severity: 3})
	worse, err := g.Grade(damaged, testNow)
	if err != nil {
		t.Fatalf("grade failed: %v", err)
	}

	if totalOf(worse) >= totalOf(clean) {
		t.Fatalf("extra severity-3 defect did not lower the score: %v vs %v",
			totalOf(worse), totalOf(clean))
	}
}

func TestGrade_PackagingTiers(t *testing.T) {
	g := NewGrader(rubric.Default())

	cases := []struct {
		name        string
		accessories []string
		want        float64
	}{
		{"box manual and receipt", []string{"box", "manual", "receipt"}, 1.0},
		{"box and manual", []string{"box", "manual"}, 0.8},
		{"box only", []string{"original box"}, 0.6},
		{"nothing", []string{"charger"}, 0.0},
	}
	for _, tc := range cases {
		spec := baseSpec()
		spec.Accessories = tc.accessories
		grade, err := g.Grade(spec, testNow)
		if err != nil {
			t.Fatalf("%s: grade failed: %v", tc.name, err)
		}
		if got := scoreOf(t, grade, rubric.CriterionPackaging); got != tc.want {
			t.Fatalf("%s: expected packaging %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestGrade_UsageNotesNudge(t *testing.T) {
	g := NewGrader(rubric.Default())

	heavy := baseSpec()
	heavy.Usage.Notes = "heavy daily use"
	light := baseSpec()
	light.Usage.Notes = "light use only"

	heavyGrade, err := g.Grade(heavy, testNow)
	if err != nil {
		t.Fatalf("grade failed: %v", err)
	}
	lightGrade, err := g.Grade(light, testNow)
	if err != nil {
		t.Fatalf("grade failed: %v", err)
	}

	h := scoreOf(t, heavyGrade, rubric.CriterionAgeUsage)
	l := scoreOf(t, lightGrade, rubric.CriterionAgeUsage)
	if h >= l {
		t.Fatalf("heavy use scored %v, expected below light use %v", h, l)
	}
}

func TestGrade_UsageNotesWholeWordsOnly(t *testing.T) {
	g := NewGrader(rubric.Default())

	neutral, err := g.Grade(baseSpec(), testNow)
	if err != nil {
		t.Fatalf("grade failed: %v", err)
	}
	base := scoreOf(t, neutral, rubric.CriterionAgeUsage)

	cases := []struct {
		name  string
		notes string
	}{
		{"slightly is not light", "slightly used, works fine"},
		{"heavyweight is not heavy", "heavyweight case included"},
		{"lights is not light", "rear lights replaced"},
	}
	for _, tc := range cases {
		spec := baseSpec()
		spec.Usage.Notes = tc.notes
		grade, err := g.Grade(spec, testNow)
		if err != nil {
			t.Fatalf("%s: grade failed: %v", tc.name, err)
		}
		if got := scoreOf(t, grade, rubric.CriterionAgeUsage); got != base {
			t.Fatalf("%s: notes %q nudged the score: %v vs %v", tc.name, tc.notes, got, base)
		}
	}
}

func TestGrade_UnknownCategoryUsesFallback(t *testing.T) {
	g := NewGrader(rubric.Default())

	spec := baseSpec()
	spec.Category = "garden gnome"
	spec.Accessories = []string{"original box", "manual"}

	grade, err := g.Grade(spec, testNow)
	if err != nil {
		t.Fatalf("grade failed: %v", err)
	}
	// The fallback rubric expects box and manual only, both present.
	if got := scoreOf(t, grade, rubric.CriterionAccessories); got != 1.0 {
		t.Fatalf("expected accessories 1.0 against fallback rubric, got %v", got)
	}
}

func TestGrade_RejectsInvalidSpec(t *testing.T) {
	g := NewGrader(rubric.Default())

	cases := []struct {
		name   string
		mutate func(*models.ListingSpec)
	}{
		{"future purchase date", func(s *models.ListingSpec) { s.PurchaseDate = testNow.Add(time.Hour) }},
		{"missing usage notes", func(s *models.ListingSpec) { s.Usage.Notes = "" }},
		{"severity out of range", func(s *models.ListingSpec) { s.Defects[0].Severity = 4 }},
		{"single availability window", func(s *models.ListingSpec) { s.Availability = s.Availability[:1] }},
	}
	for _, tc := range cases {
		spec := baseSpec()
		tc.mutate(spec)
		if _, err := g.Grade(spec, testNow); !models.IsValidation(err) {
			t.Fatalf("%s: expected validation error, got %v", tc.name, err)
		}
	}
}
