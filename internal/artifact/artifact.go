// Package artifact manages the cache directory artifacts that link pipeline
// stages together: id-to-name lookups written by one loader and consumed by
// the next.
package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/nms-crm/internal/table"
)

const manifestName = "manifest"

// Lookup maps record ids to a resolved value, usually the canonical name.
type Lookup map[string]string

// Store reads and writes artifacts under a single cache directory.
type Store struct {
	Dir string
}

// NewStore returns a store rooted at the cache directory.
func NewStore(dir string) *Store {
	return &Store{Dir: dir}
}

// Path returns the file path for a named artifact.
func (s *Store) Path(name string) string {
	return filepath.Join(s.Dir, name+".csv")
}

// Exists reports whether the named artifact has been produced.
func (s *Store) Exists(name string) bool {
	_, err := os.Stat(s.Path(name))
	return err == nil
}

// SaveLookup writes a lookup artifact with the given column headers. Keys
// are written in sorted order so reruns produce identical files.
func (s *Store) SaveLookup(name, keyColumn, valueColumn string, lookup Lookup) error {
	keys := make([]string, 0, len(lookup))
	for k := range lookup {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	t := table.New(keyColumn, valueColumn)
	for _, k := range keys {
		t.Rows = append(t.Rows, table.Row{keyColumn: k, valueColumn: lookup[k]})
	}
	if err := t.Write(s.Path(name)); err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	if err := s.recordManifest(name, len(t.Rows)); err != nil {
		log.Printf("failed to update artifact manifest: %v", err)
	}
	return nil
}

// recordManifest upserts the artifact's checksum and row count into the
// cache manifest so reruns can tell which artifacts changed.
func (s *Store) recordManifest(name string, rows int) error {
	data, err := os.ReadFile(s.Path(name))
	if err != nil {
		return err
	}
	sum := sha256.Sum256(data)

	manifest := table.New("artifact", "sha256", "rows", "updated_at")
	if s.Exists(manifestName) {
		prev, err := table.Read(s.Path(manifestName))
		if err == nil && prev.HasColumn("artifact") {
			for _, row := range prev.Rows {
				if row["artifact"] != name && row["artifact"] != "" {
					manifest.Rows = append(manifest.Rows, table.Row{
						"artifact":   row["artifact"],
						"sha256":     row["sha256"],
						"rows":       row["rows"],
						"updated_at": row["updated_at"],
					})
				}
			}
		}
	}
	manifest.Rows = append(manifest.Rows, table.Row{
		"artifact":   name,
		"sha256":     hex.EncodeToString(sum[:]),
		"rows":       strconv.Itoa(rows),
		"updated_at": time.Now().UTC().Format(time.RFC3339),
	})
	sort.Slice(manifest.Rows, func(i, j int) bool {
		return manifest.Rows[i]["artifact"] < manifest.Rows[j]["artifact"]
	})
	return manifest.Write(s.Path(manifestName))
}

// LoadLookup reads a lookup artifact. A missing artifact returns an empty
// lookup with a warning so consumers can run before their producer has,
// matching decision-cache behavior.
func (s *Store) LoadLookup(name, keyColumn, valueColumn string) (Lookup, error) {
	path := s.Path(name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.Printf("artifact %s not found, continuing without it", name)
		return Lookup{}, nil
	}

	t, err := table.Read(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	lookup := make(Lookup, len(t.Rows))
	for _, row := range t.Rows {
		if row[keyColumn] != "" {
			lookup[row[keyColumn]] = row[valueColumn]
		}
	}
	return lookup, nil
}
