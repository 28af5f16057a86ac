// Package refmatch matches legacy records against an authoritative
// reference dataset using a tiered strategy: a deterministic id tier first,
// then progressively wider fuzzy name tiers with rising cutoffs.
package refmatch

import (
	"strings"

	"github.com/nms-crm/internal/debug"
	"github.com/nms-crm/internal/fuzzy"
	"github.com/nms-crm/internal/normalize"
	"github.com/nms-crm/internal/table"
)

// Method identifies which tier produced a match.
type Method string

const (
	MethodIDSubstring   Method = "id_substring"
	MethodRegionalFuzzy Method = "regional_fuzzy"
	MethodNationalFuzzy Method = "national_fuzzy"
)

// Default fuzzy cutoffs. The regional tier accepts weaker scores because
// the region partition already constrains the candidate pool.
const (
	DefaultRegionalCutoff = 90
	DefaultNationalCutoff = 95
)

// Entity is one reference record.
type Entity struct {
	// ID is the authoritative identifier. Legacy ids are often truncated,
	// so the id tier matches by substring.
	ID string
	// Name is the authoritative display name.
	Name string
	// NormName is the normalized name used for fuzzy scoring. Reference
	// builders precompute it once.
	NormName string
	// Category partitions the reference; a query only ever matches
	// entities of its own category.
	Category string
	// Region is the partition key for the regional fuzzy tier.
	Region string
	// Fields carries the authoritative values written over legacy data on
	// a successful match.
	Fields map[string]string
}

// Query describes one legacy record to resolve.
type Query struct {
	ID       string
	Name     string
	Category string
	Region   string
}

// Match is a successful resolution.
type Match struct {
	Entity *Entity
	Method Method
	Score  int
}

// Matcher resolves queries against a fixed reference set.
type Matcher struct {
	RegionalCutoff int
	NationalCutoff int
	Scorer         fuzzy.Scorer
	Debug          bool

	entities []Entity
	byRegion map[string][]int
}

// NewMatcher builds a matcher over the reference entities, indexing them by
// region for the regional tier.
func NewMatcher(entities []Entity) *Matcher {
	m := &Matcher{
		RegionalCutoff: DefaultRegionalCutoff,
		NationalCutoff: DefaultNationalCutoff,
		Scorer:         fuzzy.WRatio,
		entities:       entities,
		byRegion:       make(map[string][]int),
	}
	for i, e := range entities {
		if e.Region != "" {
			m.byRegion[e.Region] = append(m.byRegion[e.Region], i)
		}
	}
	return m
}

// Match resolves one query. Tiers run in order and the first hit wins:
//
//  1. Substring match of the legacy id inside the authoritative id. A
//     single candidate is accepted outright; several candidates are
//     disambiguated by the best fuzzy name score with no cutoff, because
//     the id already vouches for the candidate pool.
//  2. Fuzzy name match within the query's region, at the regional cutoff.
//  3. Fuzzy name match across the whole reference, at the national cutoff.
//
// All tiers see only entities in the query's category. No hit at any tier
// returns ok=false; the legacy record then keeps its own data.
func (m *Matcher) Match(q Query) (Match, bool) {
	target := normalize.Name(q.Name)

	if q.ID != "" {
		if hit, ok := m.matchByID(q, target); ok {
			return hit, true
		}
	}

	if q.Region != "" {
		if hit, ok := m.matchFuzzy(m.byRegion[q.Region], q.Category, target, m.RegionalCutoff, MethodRegionalFuzzy); ok {
			return hit, true
		}
	}

	all := make([]int, len(m.entities))
	for i := range m.entities {
		all[i] = i
	}
	if hit, ok := m.matchFuzzy(all, q.Category, target, m.NationalCutoff, MethodNationalFuzzy); ok {
		return hit, true
	}

	debug.Output(m.Debug, "no match for %q (category %q, region %q)\n", q.Name, q.Category, q.Region)
	return Match{}, false
}

func (m *Matcher) matchByID(q Query, target string) (Match, bool) {
	var candidates []int
	for i, e := range m.entities {
		if e.Category == q.Category && e.ID != "" && strings.Contains(e.ID, q.ID) {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return Match{}, false
	}
	if len(candidates) == 1 {
		e := &m.entities[candidates[0]]
		debug.Output(m.Debug, "id tier: %q -> %s (%s)\n", q.ID, e.Name, e.ID)
		return Match{Entity: e, Method: MethodIDSubstring, Score: 100}, true
	}

	names := make([]string, len(candidates))
	for i, idx := range candidates {
		names[i] = m.entities[idx].NormName
	}
	hit, ok := fuzzy.ExtractOne(target, names, m.Scorer, 0)
	if !ok {
		return Match{}, false
	}
	e := &m.entities[candidates[hit.Index]]
	debug.Output(m.Debug, "id tier (ambiguous): %q -> %s score=%d\n", q.ID, e.Name, hit.Score)
	return Match{Entity: e, Method: MethodIDSubstring, Score: hit.Score}, true
}

func (m *Matcher) matchFuzzy(pool []int, category, target string, cutoff int, method Method) (Match, bool) {
	var candidates []int
	for _, idx := range pool {
		if m.entities[idx].Category == category {
			candidates = append(candidates, idx)
		}
	}
	if len(candidates) == 0 {
		return Match{}, false
	}

	names := make([]string, len(candidates))
	for i, idx := range candidates {
		names[i] = m.entities[idx].NormName
	}
	hit, ok := fuzzy.ExtractOne(target, names, m.Scorer, cutoff)
	if !ok {
		return Match{}, false
	}
	e := &m.entities[candidates[hit.Index]]
	debug.Output(m.Debug, "%s: %q -> %s score=%d\n", method, target, e.Name, hit.Score)
	return Match{Entity: e, Method: method, Score: hit.Score}, true
}

// Overwrite copies the matched entity's authoritative values into the row
// for each named field the entity carries. Fields the entity lacks keep
// their legacy values.
func Overwrite(row table.Row, e *Entity, fields []string) {
	for _, field := range fields {
		if val, ok := e.Fields[field]; ok {
			row[field] = val
		}
	}
}
