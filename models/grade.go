package models

// Condition grades, best to worst.
const (
	GradeNew     = "new"
	GradeOpenBox = "open_box"
	GradeLikeNew = "like_new"
	GradeGood    = "good"
	GradeFair    = "fair"
	GradePoor    = "poor"
)

// GradeLevels lists all grades in descending order of condition.
var GradeLevels = []string{GradeNew, GradeOpenBox, GradeLikeNew, GradeGood, GradeFair, GradePoor}

// ConditionGrade is the result of rubric-based grading. It is a pure
// function of the listing spec and the rubric catalog: identical inputs
// always produce an identical grade, score breakdown, and justification.
type ConditionGrade struct {
	Grade         string           `json:"grade" db:"grade"`
	Justification string           `json:"justification" db:"justification"`
	Scores        []CriterionScore `json:"scores"`
}

// CriterionScore is one rubric criterion's contribution, in [0,1].
type CriterionScore struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
	Notes string  `json:"notes,omitempty"`
}

// TotalScore returns the weighted sum of the criterion scores. Each
// criterion carries equal weight.
func (g *ConditionGrade) TotalScore() float64 {
	if len(g.Scores) == 0 {
		return 0
	}
	var sum float64
	for _, c := range g.Scores {
		sum += c.Score
	}
	return sum / float64(len(g.Scores))
}

// IsValidGrade reports whether s is a known condition grade.
func IsValidGrade(s string) bool {
	for _, g := range GradeLevels {
		if g == s {
			return true
		}
	}
	return false
}
