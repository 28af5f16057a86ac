// Package decision persists and applies human merge decisions.
//
// Each reviewed export gets one cache file named decisions_<stem>.csv where
// <stem> is the export filename without extension. The cache outlives the
// review session so downstream loads can canonicalize records without
// re-running the interactive step.
package decision

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/nms-crm/internal/table"
)

// ActionMerge marks a duplicate record for merging into its canonical record.
const ActionMerge = "MERGE"

// Decision is one confirmed duplicate-to-canonical pairing.
type Decision struct {
	CanonicalID   string
	CanonicalName string
	DuplicateID   string
	DuplicateName string
	Action        string
}

// Store reads and writes decision cache files under a single directory.
type Store struct {
	Dir string
}

// NewStore returns a store rooted at the given cache directory.
func NewStore(dir string) *Store {
	return &Store{Dir: dir}
}

// Path returns the cache file path for an export stem.
func (s *Store) Path(stem string) string {
	return filepath.Join(s.Dir, "decisions_"+stem+".csv")
}

// Save writes the decisions for an export stem. The file is written to a
// temporary name and renamed into place so an interrupted save never leaves
// a truncated cache behind.
func (s *Store) Save(stem string, decisions []Decision) error {
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return fmt.Errorf("decision cache dir: %w", err)
	}

	t := table.New("canonical_record_id", "canonical_name", "duplicate_record_id", "duplicate_name", "user_decision")
	for _, d := range decisions {
		t.Rows = append(t.Rows, table.Row{
			"canonical_record_id": d.CanonicalID,
			"canonical_name":      d.CanonicalName,
			"duplicate_record_id": d.DuplicateID,
			"duplicate_name":      d.DuplicateName,
			"user_decision":       d.Action,
		})
	}

	final := s.Path(stem)
	tmp := final + ".tmp"
	if err := t.Write(tmp); err != nil {
		return fmt.Errorf("write decision cache: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("commit decision cache: %w", err)
	}
	return nil
}

// Load reads the decisions cached for an export stem. A missing cache file
// is not an error: loads must be able to proceed before any review has
// happened, so an empty decision set is returned with a warning.
func (s *Store) Load(stem string) ([]Decision, error) {
	path := s.Path(stem)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.Printf("decision cache %s not found, no remapping applied", filepath.Base(path))
		return nil, nil
	}

	t, err := table.Read(path)
	if err != nil {
		return nil, fmt.Errorf("read decision cache: %w", err)
	}

	var decisions []Decision
	for _, row := range t.Rows {
		decisions = append(decisions, Decision{
			CanonicalID:   row["canonical_record_id"],
			CanonicalName: row["canonical_name"],
			DuplicateID:   row["duplicate_record_id"],
			DuplicateName: row["duplicate_name"],
			Action:        row["user_decision"],
		})
	}
	if err := Validate(decisions); err != nil {
		return nil, err
	}
	return decisions, nil
}

// Validate rejects decision sets containing transitive merge chains, where
// a record is both a canonical target and somebody else's duplicate.
// Applying such a set would leave references pointing at a removed record.
func Validate(decisions []Decision) error {
	duplicates := make(map[string]bool, len(decisions))
	for _, d := range decisions {
		if d.Action == ActionMerge {
			duplicates[d.DuplicateID] = true
		}
	}
	for _, d := range decisions {
		if d.Action == ActionMerge && duplicates[d.CanonicalID] {
			return fmt.Errorf("decision chain: canonical record %s is itself merged away", d.CanonicalID)
		}
	}
	return nil
}

// Remap is the applier view of a decision set.
type Remap struct {
	// IDs maps duplicate record id to canonical record id.
	IDs map[string]string
	// Names maps canonical record id to canonical name.
	Names map[string]string
}

// BuildRemap folds MERGE decisions into lookup maps. Non-merge rows are
// ignored.
func BuildRemap(decisions []Decision) Remap {
	r := Remap{IDs: make(map[string]string), Names: make(map[string]string)}
	for _, d := range decisions {
		if d.Action != ActionMerge {
			continue
		}
		r.IDs[d.DuplicateID] = d.CanonicalID
		r.Names[d.CanonicalID] = d.CanonicalName
	}
	return r
}

// Empty reports whether the remap carries no merge decisions.
func (r Remap) Empty() bool {
	return len(r.IDs) == 0
}

// ApplyIDs rewrites duplicate record ids to their canonical id in the given
// column. Unmapped values pass through unchanged.
func (r Remap) ApplyIDs(t *table.Table, idColumn string) {
	if r.Empty() {
		return
	}
	t.Apply(idColumn, func(id string) string {
		if canonical, ok := r.IDs[id]; ok {
			return canonical
		}
		return id
	})
}

// ApplyNames rewrites the name column to the canonical name of the record id
// in idColumn. Call after ApplyIDs so references resolve through the
// canonical id. Rows whose id has no canonical name keep their value.
func (r Remap) ApplyNames(t *table.Table, idColumn, nameColumn string) {
	if len(r.Names) == 0 {
		return
	}
	for _, row := range t.Rows {
		if name, ok := r.Names[row[idColumn]]; ok {
			row[nameColumn] = name
		}
	}
}

// DuplicateIDs returns the set of record ids confirmed as non-canonical.
// Loaders drop these rows from the deduplicated export.
func DuplicateIDs(decisions []Decision) map[string]bool {
	ids := make(map[string]bool)
	for _, d := range decisions {
		if d.Action == ActionMerge {
			ids[d.DuplicateID] = true
		}
	}
	return ids
}
