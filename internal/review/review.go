// Package review runs interactive duplicate-group review sessions and turns
// reviewer approvals into merge decisions.
package review

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nms-crm/internal/cluster"
	"github.com/nms-crm/internal/decision"
	"github.com/nms-crm/internal/table"
)

// ErrQuit is returned by a provider when the reviewer ends the session
// early. Decisions confirmed before quitting are kept.
var ErrQuit = errors.New("review session ended")

// Candidate is one record presented for group review.
type Candidate struct {
	ID      string
	Display string
}

// ApprovalProvider presents one duplicate group and reports which record ids
// the reviewer confirmed as true duplicates of each other.
type ApprovalProvider interface {
	ReviewGroup(candidates []Candidate) ([]string, error)
}

// Session reviews one export table for duplicates.
type Session struct {
	IDColumn       string
	NameColumn     string
	ModifiedColumn string
	Threshold      int
	Provider       ApprovalProvider
}

// NewSession returns a session with the standard export columns.
func NewSession(nameColumn string, threshold int, provider ApprovalProvider) *Session {
	return &Session{
		IDColumn:       "Record Id",
		NameColumn:     nameColumn,
		ModifiedColumn: "Modified Time",
		Threshold:      threshold,
		Provider:       provider,
	}
}

// DeriveNameColumn maps an export filename stem to the column holding the
// entity name: the leading underscore-delimited token, singularized, plus
// " Name". "Products_2025_06_27" reviews on "Product Name".
func DeriveNameColumn(stem string) string {
	prefix := stem
	if i := strings.Index(stem, "_"); i >= 0 {
		prefix = stem[:i]
	}
	prefix = strings.TrimSuffix(prefix, "s")
	return prefix + " Name"
}

// Run clusters the table's names, walks the groups through the provider and
// returns the confirmed merge decisions. Rows missing a name or modified
// time are excluded from review. A provider quit keeps everything confirmed
// so far.
func (s *Session) Run(t *table.Table) ([]decision.Decision, error) {
	if !t.HasColumn(s.NameColumn) {
		return nil, fmt.Errorf("review: column %q not found", s.NameColumn)
	}

	type record struct {
		id, name string
		modified time.Time
	}
	var records []record
	var names []string
	for _, row := range t.Rows {
		ts, ok := table.ParseTime(row[s.ModifiedColumn])
		if row[s.NameColumn] == "" || !ok {
			continue
		}
		records = append(records, record{id: row[s.IDColumn], name: row[s.NameColumn], modified: ts})
		names = append(names, row[s.NameColumn])
	}

	groups := cluster.Groups(names, s.Threshold)

	var decisions []decision.Decision
	for _, group := range groups {
		members := make(map[string]bool, len(group.Members))
		for _, name := range group.Members {
			members[name] = true
		}

		var groupRecords []record
		var candidates []Candidate
		for _, rec := range records {
			if !members[rec.name] {
				continue
			}
			groupRecords = append(groupRecords, rec)
			candidates = append(candidates, Candidate{
				ID:      rec.id,
				Display: fmt.Sprintf("%s (ID: %s)", rec.name, rec.id),
			})
		}
		if len(groupRecords) < 2 {
			continue
		}

		approvedIDs, err := s.Provider.ReviewGroup(candidates)
		if errors.Is(err, ErrQuit) {
			return decisions, nil
		}
		if err != nil {
			return decisions, fmt.Errorf("review group %q: %w", group.Representative, err)
		}
		if len(approvedIDs) < 2 {
			continue
		}

		approved := make(map[string]bool, len(approvedIDs))
		for _, id := range approvedIDs {
			approved[id] = true
		}

		// Canonical record is the most recently modified approved record.
		// On equal timestamps the earlier row wins.
		var canonical record
		first := true
		for _, rec := range groupRecords {
			if !approved[rec.id] {
				continue
			}
			if first || rec.modified.After(canonical.modified) {
				canonical = rec
				first = false
			}
		}

		for _, rec := range groupRecords {
			if !approved[rec.id] || rec.id == canonical.id {
				continue
			}
			decisions = append(decisions, decision.Decision{
				CanonicalID:   canonical.id,
				CanonicalName: canonical.name,
				DuplicateID:   rec.id,
				DuplicateName: rec.name,
				Action:        decision.ActionMerge,
			})
		}
	}

	return decisions, nil
}
