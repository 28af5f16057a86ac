package normalize

import (
	"regexp"
	"strings"
)

var reNonAlnum = regexp.MustCompile(`[^A-Za-z0-9 ]+`)

// DistrictDesignators are the category designators stripped when comparing
// district names. "Keller ISD" and "Keller School District" normalize alike.
var DistrictDesignators = []string{"ISD", `I\.S\.D\.`, "SD", "School District"}

// Normalizer canonicalizes free-text names for comparison. The clusterer and
// the reference matcher share one Normalizer so that clustering and
// enrichment agree on what counts as the same name.
type Normalizer struct {
	strip *regexp.Regexp
}

// NewNormalizer builds a Normalizer that strips the given designator tokens
// at word boundaries, case-insensitively. With no designators only the
// character-level canonicalization applies.
func NewNormalizer(designators ...string) *Normalizer {
	n := &Normalizer{}
	if len(designators) > 0 {
		n.strip = regexp.MustCompile(`(?i)\b(` + strings.Join(designators, "|") + `)\b`)
	}
	return n
}

// Name canonicalizes a raw name: designators stripped, non-alphanumerics
// replaced by spaces, lower-cased, whitespace collapsed. Empty in, empty out.
func (n *Normalizer) Name(s string) string {
	if s == "" {
		return ""
	}
	if n.strip != nil {
		s = n.strip.ReplaceAllString(s, "")
	}
	s = reNonAlnum.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

var defaultNormalizer = NewNormalizer()

// Name canonicalizes a raw name without designator stripping.
func Name(s string) string {
	return defaultNormalizer.Name(s)
}
