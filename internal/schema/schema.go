package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nms-crm/internal/table"
)

// MappingRow declares how one legacy field lands in the target system.
type MappingRow struct {
	LegacyModule string
	LegacyField  string
	TargetModule string
	TargetField  string
}

// Mapping is the authoritative legacy-to-target field mapping.
type Mapping struct {
	Rows []MappingRow
}

// CatalogRow is one field of the target system's data catalog.
type CatalogRow struct {
	Module     string
	Field      string
	SourceType string
}

// Catalog is the target system's full field catalog. It drives output
// column sets and ordering for every module.
type Catalog struct {
	Rows []CatalogRow
}

// Mapping rows whose target module marks the field as dropped.
func isRemoved(targetModule string) bool {
	switch strings.ToLower(targetModule) {
	case "remove", "remove/hide":
		return true
	}
	return false
}

// ReadMapping loads the Target-Legacy mapping CSV.
func ReadMapping(path string) (*Mapping, error) {
	t, err := table.Read(path)
	if err != nil {
		return nil, fmt.Errorf("mapping: %w", err)
	}
	m := &Mapping{}
	for _, row := range t.Rows {
		m.Rows = append(m.Rows, MappingRow{
			LegacyModule: row["Legacy Module"],
			LegacyField:  row["Legacy Field"],
			TargetModule: row["Target Module"],
			TargetField:  row["Target Field"],
		})
	}
	return m, nil
}

// ReadCatalog loads the target field catalog CSV.
func ReadCatalog(path string) (*Catalog, error) {
	t, err := table.Read(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	c := &Catalog{}
	for _, row := range t.Rows {
		c.Rows = append(c.Rows, CatalogRow{
			Module:     row["User-Facing Module Name"],
			Field:      row["User-Facing Field Name"],
			SourceType: row["Data Source / Type"],
		})
	}
	return c, nil
}

// ForTarget keeps only the rows mapping into the given target module.
func (m *Mapping) ForTarget(module string) *Mapping {
	out := &Mapping{}
	for _, row := range m.Rows {
		if row.TargetModule == module {
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}

// ForLegacy keeps only the rows sourced from the given legacy module.
func (m *Mapping) ForLegacy(module string) *Mapping {
	out := &Mapping{}
	for _, row := range m.Rows {
		if row.LegacyModule == module {
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}

// Merge concatenates mapping slices; used when one target module is fed by
// several legacy modules.
func (m *Mapping) Merge(others ...*Mapping) *Mapping {
	out := &Mapping{Rows: append([]MappingRow(nil), m.Rows...)}
	for _, o := range others {
		out.Rows = append(out.Rows, o.Rows...)
	}
	return out
}

// RenameMap returns legacy field -> target field, skipping removed rows.
func (m *Mapping) RenameMap() map[string]string {
	rename := make(map[string]string)
	for _, row := range m.Rows {
		if isRemoved(row.TargetModule) {
			continue
		}
		rename[row.LegacyField] = row.TargetField
	}
	return rename
}

// UIColumns returns the catalog-ordered output columns for a module,
// excluding rows whose source type contains any of the given markers
// (typically "Related List" and "System").
func (c *Catalog) UIColumns(module string, excludeMarkers ...string) []string {
	var cols []string
	for _, row := range c.Rows {
		if row.Module != module {
			continue
		}
		excluded := false
		for _, marker := range excludeMarkers {
			if strings.Contains(strings.ToLower(row.SourceType), strings.ToLower(marker)) {
				excluded = true
				break
			}
		}
		if !excluded {
			cols = append(cols, row.Field)
		}
	}
	return cols
}

// AssertTargetPairsExist validates that every (target module, target field)
// pair the mapping declares exists in the catalog. A mismatch is a fatal
// configuration error raised before any transformation begins.
func AssertTargetPairsExist(module string, m *Mapping, c *Catalog) error {
	valid := make(map[string]bool)
	for _, row := range c.Rows {
		valid[row.Module+"\x00"+row.Field] = true
	}

	var missing []string
	seen := make(map[string]bool)
	for _, row := range m.Rows {
		if isRemoved(row.TargetModule) {
			continue
		}
		key := row.TargetModule + "\x00" + row.TargetField
		if !valid[key] && !seen[key] {
			seen[key] = true
			missing = append(missing, fmt.Sprintf("(%s, %s)", row.TargetModule, row.TargetField))
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("%s: target-catalog mismatch: %s", module, strings.Join(missing, ", "))
	}
	return nil
}

// TransformLegacy selects and renames legacy columns per the mapping,
// producing a new table in target column names. Legacy columns without a
// mapping row are dropped; mapped columns absent from the input are skipped.
func TransformLegacy(legacy *table.Table, m *Mapping) *table.Table {
	rename := m.RenameMap()

	var targetCols []string
	var legacyCols []string
	for _, col := range legacy.Columns {
		if target, ok := rename[col]; ok {
			legacyCols = append(legacyCols, col)
			targetCols = append(targetCols, target)
		}
	}

	out := table.New(targetCols...)
	out.Rows = make([]table.Row, len(legacy.Rows))
	for i, row := range legacy.Rows {
		target := make(table.Row, len(targetCols))
		for j, col := range legacyCols {
			target[targetCols[j]] = row[col]
		}
		out.Rows[i] = target
	}
	return out
}
