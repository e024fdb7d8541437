package rubric

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"dealdesk/identity"
	"dealdesk/models"
)

// Criterion names used in grade breakdowns. Each carries equal weight.
const (
	CriterionPackaging   = "packaging"
	CriterionAccessories = "accessories"
	CriterionDefects     = "defects"
	CriterionAgeUsage    = "age_usage"
)

// CriterionWeight is the weight of each of the four rubric criteria.
const CriterionWeight = 0.25

// GradeThreshold is the minimum total score for a grade.
type GradeThreshold struct {
	Grade string  `yaml:"grade"`
	Min   float64 `yaml:"min"`
}

// Category holds the per-category rubric tables: standard accessories and
// the grade thresholds, ordered best grade first.
type Category struct {
	Name                string           `yaml:"category"`
	StandardAccessories []string         `yaml:"standard_accessories"`
	Thresholds          []GradeThreshold `yaml:"thresholds"`
}

// GradeFor selects the grade for a total score: the first threshold,
// checked from highest to lowest, that the score meets. Scores below every
// threshold grade as poor.
func (c *Category) GradeFor(score float64) string {
	for _, t := range c.Thresholds {
		if score >= t.Min {
			return t.Grade
		}
	}
	return models.GradePoor
}

// MatchAccessories returns the standard accessories found among the
// supplied tokens (keyword containment) and the match ratio capped at 1.0.
func (c *Category) MatchAccessories(supplied []string) ([]string, float64) {
	if len(c.StandardAccessories) == 0 {
		return nil, 1.0
	}
	var matched []string
	for _, std := range c.StandardAccessories {
		if identity.ContainsKeyword(supplied, std) {
			matched = append(matched, std)
		}
	}
	score := float64(len(matched)) / float64(len(c.StandardAccessories))
	if score > 1.0 {
		score = 1.0
	}
	return matched, score
}

// defaultThresholds apply to every category unless overridden.
var defaultThresholds = []GradeThreshold{
	{Grade: models.GradeNew, Min: 0.95},
	{Grade: models.GradeOpenBox, Min: 0.85},
	{Grade: models.GradeLikeNew, Min: 0.75},
	{Grade: models.GradeGood, Min: 0.60},
	{Grade: models.GradeFair, Min: 0.40},
}

// Catalog is the static, category-keyed rubric data. Built-in defaults
// cover the common categories; per-category YAML files can override or add
// entries.
type Catalog struct {
	categories map[string]*Category
	fallback   *Category
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c := &Catalog{categories: make(map[string]*Category)}
	c.fallback = &Category{
		Name:                "default",
		StandardAccessories: []string{"box", "manual"},
		Thresholds:          defaultThresholds,
	}
	for _, cat := range []*Category{
		{
			Name:                "electronics",
			StandardAccessories: []string{"box", "charger", "cable", "manual"},
		},
		{
			Name:                "phone",
			StandardAccessories: []string{"box", "charger", "cable", "manual", "sim tool"},
		},
		{
			Name:                "appliance",
			StandardAccessories: []string{"box", "manual", "power cord", "warranty card"},
		},
		{
			Name:                "bicycle",
			StandardAccessories: []string{"manual", "pump", "lock", "lights"},
		},
	} {
		cat.Thresholds = defaultThresholds
		c.categories[cat.Name] = cat
	}
	return c
}

// LoadDir overlays YAML category files from dir onto the catalog. Missing
// directory is not an error. Files only need to set what they override;
// omitted thresholds keep the defaults.
func (c *Catalog) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return err
		}
		var cat Category
		if err := yaml.Unmarshal(data, &cat); err != nil {
			return fmt.Errorf("rubric %s: %w", entry.Name(), err)
		}
		if cat.Name == "" {
			return fmt.Errorf("rubric %s: missing category name", entry.Name())
		}
		if len(cat.Thresholds) == 0 {
			cat.Thresholds = defaultThresholds
		}
		c.categories[identity.Normalize(cat.Name)] = &cat
	}
	return nil
}

// Category looks up the rubric for a category, falling back to the default
// rubric for unknown categories.
func (c *Catalog) Category(name string) *Category {
	if cat, ok := c.categories[identity.Normalize(name)]; ok {
		return cat
	}
	return c.fallback
}
