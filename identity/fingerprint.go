package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"dealdesk/models"
)

var (
	multiSpaceRegex = regexp.MustCompile(`\s+`)
	nonAlnumRegex   = regexp.MustCompile(`[^a-z0-9\s]`)
)

// Normalize lowercases a free-text token and strips punctuation so that
// "Original Box!" and "original_box" compare equal.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = nonAlnumRegex.ReplaceAllString(s, " ")
	s = multiSpaceRegex.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// ContainsKeyword reports whether any of the supplied tokens contains the
// keyword after normalization. Matching is by substring containment, the
// same loose matching used for accessory and packaging detection.
func ContainsKeyword(tokens []string, keyword string) bool {
	kw := Normalize(keyword)
	if kw == "" {
		return false
	}
	for _, t := range tokens {
		if strings.Contains(Normalize(t), kw) {
			return true
		}
	}
	return false
}

// CacheKey fingerprints the grading-relevant fields of a listing spec at a
// given reference time. Two calls with identical specs and the same age in
// months produce the same key, so valuation results can be memoized.
func CacheKey(spec *models.ListingSpec, now time.Time) string {
	defects := make([]string, 0, len(spec.Defects))
	for _, d := range spec.Defects {
		defects = append(defects, fmt.Sprintf("%s:%d", Normalize(d.Area), d.Severity))
	}
	sort.Strings(defects)

	accessories := make([]string, 0, len(spec.Accessories))
	for _, a := range spec.Accessories {
		accessories = append(accessories, Normalize(a))
	}
	sort.Strings(accessories)

	input := fmt.Sprintf("%s|%s|%s|%s|%d|%d|%g|%d|%s|%s|%s",
		Normalize(spec.Category),
		Normalize(spec.Make),
		Normalize(spec.Model),
		Normalize(spec.Variant),
		spec.Year,
		spec.AgeMonths(now),
		spec.Usage.Hours,
		spec.Usage.Cycles,
		Normalize(spec.Usage.Notes),
		strings.Join(defects, ","),
		strings.Join(accessories, ","),
	)
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:16])
}
