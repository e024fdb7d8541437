package rubric

import (
	"os"
	"path/filepath"
	"testing"

	"dealdesk/models"
)

func TestCatalog_DefaultCategories(t *testing.T) {
	c := Default()

	if got := c.Category("electronics"); got.Name != "electronics" {
		t.Fatalf("expected electronics rubric, got %s", got.Name)
	}
	if got := c.Category("Electronics "); got.Name != "electronics" {
		t.Fatalf("expected normalized lookup to hit electronics, got %s", got.Name)
	}
	if got := c.Category("submarine"); got.Name != "default" {
		t.Fatalf("expected fallback rubric, got %s", got.Name)
	}
}

func TestCategory_GradeFor(t *testing.T) {
	cat := Default().Category("electronics")

	cases := []struct {
		score float64
		want  string
	}{
		{1.00, models.GradeNew},
		{0.95, models.GradeNew},
		{0.90, models.GradeOpenBox},
		{0.80, models.GradeLikeNew},
		{0.75, models.GradeLikeNew},
		{0.60, models.GradeGood},
		{0.40, models.GradeFair},
		{0.39, models.GradePoor},
		{0.00, models.GradePoor},
	}
	for _, tc := range cases {
		if got := cat.GradeFor(tc.score); got != tc.want {
			t.Fatalf("score %v: expected %s, got %s", tc.score, tc.want, got)
		}
	}
}

func TestCategory_MatchAccessories(t *testing.T) {
	cat := Default().Category("electronics")

	matched, ratio := cat.MatchAccessories([]string{"Original Box!", "USB-C cable", "wall charger", "user manual"})
	if len(matched) != 4 {
		t.Fatalf("expected 4 matches, got %v", matched)
	}
	if ratio != 1.0 {
		t.Fatalf("expected ratio 1.0, got %v", ratio)
	}

	matched, ratio = cat.MatchAccessories([]string{"original box"})
	if len(matched) != 1 || ratio != 0.25 {
		t.Fatalf("expected 1 match at ratio 0.25, got %v at %v", matched, ratio)
	}

	matched, ratio = cat.MatchAccessories(nil)
	if len(matched) != 0 || ratio != 0 {
		t.Fatalf("expected no matches, got %v at %v", matched, ratio)
	}

	bare := &Category{Name: "bare"}
	if _, ratio := bare.MatchAccessories(nil); ratio != 1.0 {
		t.Fatalf("category without standard accessories should score 1.0, got %v", ratio)
	}
}

func TestCatalog_LoadDir(t *testing.T) {
	dir := t.TempDir()
	camera := `category: camera
standard_accessories:
  - body cap
  - strap
  - battery
  - charger
thresholds:
  - grade: new
    min: 0.97
  - grade: like_new
    min: 0.80
`
	if err := os.WriteFile(filepath.Join(dir, "camera.yaml"), []byte(camera), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	drone := `category: drone
standard_accessories:
  - controller
  - propellers
`
	if err := os.WriteFile(filepath.Join(dir, "drone.yaml"), []byte(drone), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	c := Default()
	if err := c.LoadDir(dir); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	cam := c.Category("camera")
	if cam.Name != "camera" {
		t.Fatalf("camera rubric not loaded")
	}
	if got := cam.GradeFor(0.96); got != models.GradeLikeNew {
		t.Fatalf("custom thresholds not applied: 0.96 graded %s", got)
	}

	// Omitted thresholds keep the defaults.
	dr := c.Category("drone")
	if got := dr.GradeFor(0.96); got != models.GradeNew {
		t.Fatalf("default thresholds not applied to drone: 0.96 graded %s", got)
	}
}

func TestCatalog_LoadDirMissing(t *testing.T) {
	c := Default()
	if err := c.LoadDir(filepath.Join(t.TempDir(), "nope")); err != nil {
		t.Fatalf("missing directory should not error, got %v", err)
	}
}

func TestCatalog_LoadDirRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("{nope"), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if err := Default().LoadDir(dir); err == nil {
		t.Fatalf("expected error for malformed yaml")
	}

	dir = t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "anon.yaml"), []byte("standard_accessories: [box]"), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if err := Default().LoadDir(dir); err == nil {
		t.Fatalf("expected error for missing category name")
	}
}
