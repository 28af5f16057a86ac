// Package dedupe collapses enriched records that resolved to the same
// real-world entity, keeping the most recently modified record.
package dedupe

import (
	"sort"
	"strconv"
	"strings"

	"github.com/nms-crm/internal/table"
)

// KeyFunc derives the identity key for a row. Rows with an empty key are
// never collapsed.
type KeyFunc func(table.Row) string

// Key builds the standard identity key: the authoritative id when present,
// otherwise lowercased name joined with the uppercased region. Enrichment
// runs first, so records matched to the same reference entity share an id
// and collapse even when their legacy names differ.
func Key(authID, name, region string) string {
	if authID != "" {
		return authID
	}
	return strings.ToLower(name) + "|" + strings.ToUpper(strings.TrimSpace(region))
}

// RankFunc extracts a row's recency rank. ok=false marks the row as
// undated; undated rows lose to any ranked rival.
type RankFunc func(table.Row) (int64, bool)

// ByTime ranks rows by a timestamp column.
func ByTime(column string) RankFunc {
	return func(row table.Row) (int64, bool) {
		ts, ok := table.ParseTime(row[column])
		if !ok {
			return 0, false
		}
		return ts.Unix(), true
	}
}

// ByNumber ranks rows by a numeric column, such as a cohort year.
func ByNumber(column string) RankFunc {
	return func(row table.Row) (int64, bool) {
		f, err := strconv.ParseFloat(strings.TrimSpace(row[column]), 64)
		if err != nil {
			return 0, false
		}
		return int64(f), true
	}
}

// Latest keeps one row per key: the row with the greatest recency value.
// Rows whose recency column does not parse sort before any timestamped row,
// so they only survive when no dated rival exists. Ties keep the later
// input row. Surviving rows are left in ascending recency order.
func Latest(t *table.Table, recencyColumn string, keyFn KeyFunc) {
	LatestRanked(t, keyFn, ByTime(recencyColumn))
}

// LatestRanked is Latest with a caller-supplied rank.
func LatestRanked(t *table.Table, keyFn KeyFunc, rank RankFunc) {
	type entry struct {
		row   table.Row
		key   string
		ts    int64
		hasTS bool
	}

	entries := make([]entry, len(t.Rows))
	for i, row := range t.Rows {
		e := entry{row: row, key: keyFn(row)}
		e.ts, e.hasTS = rank(row)
		entries[i] = e
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].hasTS != entries[j].hasTS {
			return !entries[i].hasTS
		}
		if !entries[i].hasTS {
			return false
		}
		return entries[i].ts < entries[j].ts
	})

	last := make(map[string]int, len(entries))
	for i, e := range entries {
		if e.key != "" {
			last[e.key] = i
		}
	}

	var out []table.Row
	for i, e := range entries {
		if e.key == "" || last[e.key] == i {
			out = append(out, e.row)
		}
	}
	t.Rows = out
}
