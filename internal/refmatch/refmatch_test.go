package refmatch

import (
	"testing"

	"github.com/nms-crm/internal/table"
)

func referenceEntities() []Entity {
	return []Entity{
		{ID: "480000123456", Name: "Lincoln Elementary", NormName: "lincoln elementary", Category: "Public", Region: "Texas",
			Fields: map[string]string{"School Name": "Lincoln Elementary", "NCES ID": "480000123456"}},
		{ID: "480000654321", Name: "Washington Middle", NormName: "washington middle", Category: "Public", Region: "Texas"},
		{ID: "060000999999", Name: "Lincoln Elementary", NormName: "lincoln elementary", Category: "Public", Region: "California"},
		{ID: "A9901234", Name: "St. Mary Academy", NormName: "st mary academy", Category: "Private", Region: "Texas"},
	}
}

// fixedScorer returns a preset score for every pair, so cutoff boundaries
// can be tested exactly.
func fixedScorer(score int) func(a, b string) int {
	return func(a, b string) int {
		if a == b {
			return 100
		}
		return score
	}
}

func TestMatchIDSubstring(t *testing.T) {
	m := NewMatcher(referenceEntities())

	got, ok := m.Match(Query{ID: "123456", Name: "Linclon Elem", Category: "Public", Region: "Texas"})
	if !ok {
		t.Fatal("expected a match")
	}
	if got.Method != MethodIDSubstring || got.Entity.ID != "480000123456" {
		t.Errorf("match = %+v", got)
	}
}

func TestMatchIDTierBeatsFuzzyTiers(t *testing.T) {
	// The legacy id points at Washington even though the name says
	// Lincoln; the id tier wins.
	m := NewMatcher(referenceEntities())

	got, ok := m.Match(Query{ID: "654321", Name: "Lincoln Elementary", Category: "Public", Region: "Texas"})
	if !ok {
		t.Fatal("expected a match")
	}
	if got.Entity.Name != "Washington Middle" {
		t.Errorf("id tier should take precedence, got %+v", got)
	}
}

func TestMatchAmbiguousIDDisambiguatedByName(t *testing.T) {
	// "480000" hits both Texas public schools; the name decides.
	m := NewMatcher(referenceEntities())

	got, ok := m.Match(Query{ID: "480000", Name: "Washington Middle School", Category: "Public", Region: "Texas"})
	if !ok {
		t.Fatal("expected a match")
	}
	if got.Method != MethodIDSubstring || got.Entity.Name != "Washington Middle" {
		t.Errorf("match = %+v", got)
	}
}

func TestMatchRegionalBeforeNational(t *testing.T) {
	// Same name exists in two regions; the regional tier keeps the match
	// in the query's region.
	m := NewMatcher(referenceEntities())

	got, ok := m.Match(Query{Name: "Lincoln Elementary", Category: "Public", Region: "California"})
	if !ok {
		t.Fatal("expected a match")
	}
	if got.Method != MethodRegionalFuzzy || got.Entity.Region != "California" {
		t.Errorf("match = %+v", got)
	}
}

func TestMatchNationalCutoffBoundary(t *testing.T) {
	entities := []Entity{
		{ID: "x", Name: "Far Away School", NormName: "far away school", Category: "Public", Region: "Alaska"},
	}

	m := NewMatcher(entities)
	m.Scorer = fixedScorer(95)
	if _, ok := m.Match(Query{Name: "some school", Category: "Public", Region: "Texas"}); !ok {
		t.Error("score at the national cutoff should match")
	}

	m = NewMatcher(entities)
	m.Scorer = fixedScorer(94)
	if _, ok := m.Match(Query{Name: "some school", Category: "Public", Region: "Texas"}); ok {
		t.Error("score below the national cutoff should not match")
	}
}

func TestMatchCategoryPartition(t *testing.T) {
	m := NewMatcher(referenceEntities())

	// A private query never matches public entities, even on a perfect
	// name.
	if got, ok := m.Match(Query{Name: "Lincoln Elementary", Category: "Private", Region: "Texas"}); ok {
		t.Errorf("cross-category match: %+v", got)
	}
}

func TestMatchNoHit(t *testing.T) {
	m := NewMatcher(referenceEntities())
	if got, ok := m.Match(Query{Name: "Completely Different Institution", Category: "Public", Region: "Texas"}); ok {
		t.Errorf("unexpected match: %+v", got)
	}
}

func TestOverwrite(t *testing.T) {
	entities := referenceEntities()
	row := table.Row{"School Name": "Linclon Elem", "NCES ID": "123456", "Phone": "555-0100"}

	Overwrite(row, &entities[0], []string{"School Name", "NCES ID", "Phone"})

	if row["School Name"] != "Lincoln Elementary" || row["NCES ID"] != "480000123456" {
		t.Errorf("authoritative fields not applied: %v", row)
	}
	if row["Phone"] != "555-0100" {
		t.Errorf("field absent from the reference should keep legacy value: %v", row)
	}
}
