// Package loaders contains the per-module migration loaders. Each loader
// reads one or more legacy exports, applies the mapping, enriches and
// cleans the records, and writes a catalog-ordered output CSV. Loaders
// exchange data through cache artifacts; the one exception is the schools
// loader, which refreshes the districts output when the schools file
// introduces districts it has never seen.
package loaders

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/nms-crm/internal/artifact"
	"github.com/nms-crm/internal/config"
	"github.com/nms-crm/internal/decision"
	"github.com/nms-crm/internal/schema"
	"github.com/nms-crm/internal/table"
)

// ExportFiles names the legacy export files under the exports directory.
// The date-stamped defaults match the current extract batch; reruns against
// a fresh batch override them.
type ExportFiles struct {
	Accounts           string
	Contacts           string
	DistrictsSchools   string
	Partners           string
	Products           string
	CourseProgress     string
	EnrichmentProgress string
	Associations       string
}

// DefaultExportFiles returns the current extract batch.
func DefaultExportFiles() ExportFiles {
	return ExportFiles{
		Accounts:           "Accounts_2025_06_24.csv",
		Contacts:           "Contacts_2025_06_25.csv",
		DistrictsSchools:   "Districts___Schools_2025_07_02.csv",
		Partners:           "Partners_2025_06_22.csv",
		Products:           "Products_2025_06_27.csv",
		CourseProgress:     "STEM_Course_Progress_2025_06_27.csv",
		EnrichmentProgress: "STEM_Enrichments_Progress_2025_06_27.csv",
		Associations:       "School_Star_Associations_2025_07_01.csv",
	}
}

// ReferenceFiles names the authoritative reference extracts.
type ReferenceFiles struct {
	CCD           string
	PublicSchools string
	PrivateSchool string
}

// DefaultReferenceFiles returns the current reference extracts.
func DefaultReferenceFiles() ReferenceFiles {
	return ReferenceFiles{
		CCD:           "ccd_lea_029_2324_w_1a_073124.csv",
		PublicSchools: "20250623 NCES Public School Extract.csv",
		PrivateSchool: "20250702 NCES Private School Extract.csv",
	}
}

// Context carries everything a loader needs: resolved paths, the validated
// mapping and catalog, and the artifact and decision stores.
type Context struct {
	Paths      config.Paths
	Thresholds config.Thresholds
	Exports    ExportFiles
	Reference  ReferenceFiles
	Mapping    *schema.Mapping
	Catalog    *schema.Catalog
	Artifacts  *artifact.Store
	Decisions  *decision.Store
	Debug      bool
	Now        func() time.Time
}

// NewContext loads the mapping and catalog and wires the stores.
func NewContext(paths config.Paths, thresholds config.Thresholds) (*Context, error) {
	mapping, err := schema.ReadMapping(filepath.Join(paths.MappingDir, "Target-Legacy Mapping.csv"))
	if err != nil {
		return nil, fmt.Errorf("load context: %w", err)
	}
	catalog, err := schema.ReadCatalog(filepath.Join(paths.MappingDir, "Target modules_fields.csv"))
	if err != nil {
		return nil, fmt.Errorf("load context: %w", err)
	}
	return &Context{
		Paths:      paths,
		Thresholds: thresholds,
		Exports:    DefaultExportFiles(),
		Reference:  DefaultReferenceFiles(),
		Mapping:    mapping,
		Catalog:    catalog,
		Artifacts:  artifact.NewStore(paths.CacheDir),
		Decisions:  decision.NewStore(paths.CacheDir),
		Now:        time.Now,
	}, nil
}

// ReadExport reads a legacy export by filename.
func (c *Context) ReadExport(name string) (*table.Table, error) {
	return table.Read(filepath.Join(c.Paths.ExportsDir, name))
}

// ReadReference reads an authoritative reference extract by filename.
func (c *Context) ReadReference(name string) (*table.Table, error) {
	return table.Read(filepath.Join(c.Paths.ReferenceDir, name))
}

// WriteOutput writes a finished module CSV to the output directory.
func (c *Context) WriteOutput(t *table.Table, filename string) error {
	return t.Write(filepath.Join(c.Paths.OutputDir, filename))
}

var nonAPIChar = regexp.MustCompile(`[^A-Za-z0-9]+`)

// apiHeader converts a user-facing field name to the target system's API
// field name: "District (Match Key)" becomes "District_Match_Key".
func apiHeader(s string) string {
	return strings.Trim(nonAPIChar.ReplaceAllString(s, "_"), "_")
}

// WriteAPIOutput writes the same records with API field-name headers for
// the target system's bulk import endpoint.
func (c *Context) WriteAPIOutput(t *table.Table, filename string) error {
	cols := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		cols[i] = apiHeader(col)
	}
	api := table.New(cols...)
	api.Rows = make([]table.Row, 0, len(t.Rows))
	for _, row := range t.Rows {
		out := make(table.Row, len(cols))
		for i, col := range t.Columns {
			out[cols[i]] = row[col]
		}
		api.Rows = append(api.Rows, out)
	}
	return api.Write(filepath.Join(c.Paths.OutputDir, filename))
}

// MappingFor returns the mapping slice for a target module after verifying
// every mapped pair exists in the catalog. A mismatch aborts the loader
// before any row is transformed.
func (c *Context) MappingFor(module string) (*schema.Mapping, error) {
	m := c.Mapping.ForTarget(module)
	if err := schema.AssertTargetPairsExist(module, m, c.Catalog); err != nil {
		return nil, err
	}
	return m, nil
}

// Finalize aligns a table to the catalog's column set and order for the
// module, adding empty columns for catalog fields the loader never
// populated and dropping helpers.
func (c *Context) Finalize(t *table.Table, module string, excludeMarkers ...string) {
	cols := c.Catalog.UIColumns(module, excludeMarkers...)
	t.EnsureColumns(cols...)
	t.Select(cols)
}

// Stem returns an export filename without its extension, the key under
// which its review decisions are cached.
func Stem(filename string) string {
	return strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
}

// dropTestRows removes rows whose given column contains "test" in any case.
func dropTestRows(t *table.Table, column string) {
	t.Filter(func(r table.Row) bool {
		return !strings.Contains(strings.ToLower(r[column]), "test")
	})
}
