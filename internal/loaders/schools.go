package loaders

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"

	"github.com/nms-crm/internal/artifact"
	"github.com/nms-crm/internal/debug"
	"github.com/nms-crm/internal/dedupe"
	"github.com/nms-crm/internal/normalize"
	"github.com/nms-crm/internal/refmatch"
	"github.com/nms-crm/internal/schema"
	"github.com/nms-crm/internal/table"
)

const (
	publicSchoolLinkBase  = "https://nces.ed.gov/ccd/schoolsearch/school_detail.asp?ID="
	privateSchoolLinkBase = "https://nces.ed.gov/surveys/pss/privateschoolsearch/school_detail.asp?ID="
)

// Settings come as "13 - City: Large" style codes; keep the middle word.
var settingRe = regexp.MustCompile(`-\s*([^:]+):`)

// LoadSchools enriches the legacy school records against the NCES reference,
// deduplicates them, and writes Schools.csv plus the school_lookup artifact.
func LoadSchools(c *Context) error {
	raw, err := c.ReadExport(c.Exports.DistrictsSchools)
	if err != nil {
		return fmt.Errorf("schools: %w", err)
	}
	raw.Filter(func(r table.Row) bool { return trim(r["Type"]) == "School" })

	mapping, err := c.MappingFor("Schools")
	if err != nil {
		return fmt.Errorf("schools: %w", err)
	}
	t := schema.TransformLegacy(raw, mapping)

	// Helper columns carried through enrichment and dropped by Finalize.
	t.EnsureColumns("School Type", "Modified Time", "Legacy NCES ID", "Original Name", "State", "Record Id")
	for i, row := range t.Rows {
		src := raw.Rows[i]
		row["School Type"] = "Public"
		if trim(src["School Type"]) == "Private" {
			row["School Type"] = "Private"
		}
		row["Modified Time"] = src["Modified Time"]
		row["Legacy NCES ID"] = src["NCES School ID"]
		row["Original Name"] = row["School Name"]
		row["State"] = src["State"]
		row["Record Id"] = src["Record Id"]
	}

	entities, err := c.LoadSchoolReference()
	if err != nil {
		return fmt.Errorf("schools: %w", err)
	}
	matcher := refmatch.NewMatcher(entities)
	matcher.RegionalCutoff = c.Thresholds.Regional
	matcher.NationalCutoff = c.Thresholds.National
	matcher.Debug = c.Debug

	done := debug.Timing(c.Debug, "school NCES match")
	matched := 0
	for _, row := range t.Rows {
		hit, ok := matcher.Match(refmatch.Query{
			ID:       trim(row["Legacy NCES ID"]),
			Name:     row["Original Name"],
			Category: row["School Type"],
			Region:   normalize.TitleCase(row["State"]),
		})
		if !ok {
			continue
		}
		refmatch.Overwrite(row, hit.Entity, SchoolEnrichFields)
		matched++
	}
	done()
	log.Printf("schools: enriched %d of %d records from NCES", matched, len(t.Rows))

	dedupe.Latest(t, "Modified Time", func(r table.Row) string {
		return dedupe.Key(r["NCES ID"], r["School Name"], r["State"])
	})
	log.Printf("schools: %d unique records after deduplication", len(t.Rows))

	t.Apply("School Name", normalize.TitleCase)
	t.Apply("Setting", func(s string) string {
		if m := settingRe.FindStringSubmatch(s); m != nil {
			return normalize.TitleCase(trim(m[1]))
		}
		return s
	})
	t.Apply("Size", normalize.SizeBucket)
	standardizeAddresses(t, "Street", "City", "State", "Zip Code")
	t.Apply("Phone", normalize.DigitsOnlyPhone)

	t.EnsureColumns("NCES School Link")
	for _, row := range t.Rows {
		if row["NCES ID"] == "" {
			continue
		}
		if row["School Type"] == "Private" {
			row["NCES School Link"] = privateSchoolLinkBase + row["NCES ID"]
		} else {
			row["NCES School Link"] = publicSchoolLinkBase + row["NCES ID"]
		}
	}

	lookup := make(artifact.Lookup, len(t.Rows))
	for _, row := range t.Rows {
		if row["Record Id"] != "" {
			lookup[row["Record Id"]] = row["School Name"]
		}
	}
	if err := c.Artifacts.SaveLookup("school_lookup", "Record Id", "School Name", lookup); err != nil {
		return fmt.Errorf("schools: %w", err)
	}

	c.Finalize(t, "Schools", "Related List")
	if err := c.WriteOutput(t, "Schools.csv"); err != nil {
		return fmt.Errorf("schools: %w", err)
	}
	log.Printf("schools: wrote %d records", len(t.Rows))

	// The schools file can introduce districts the districts output has
	// never seen; refresh it when its NCES ids no longer cover them.
	districtsPath := filepath.Join(c.Paths.OutputDir, "Districts.csv")
	if _, err := os.Stat(districtsPath); os.IsNotExist(err) {
		log.Printf("schools: Districts.csv not found, skipping district reconciliation")
		return nil
	}
	districts, err := table.Read(districtsPath)
	if err != nil {
		return fmt.Errorf("schools: %w", err)
	}
	if missing := missingDistrictIDs(t, districts); len(missing) > 0 {
		log.Printf("schools: found %d new district(s), refreshing the districts output", len(missing))
		if err := LoadDistricts(c); err != nil {
			return fmt.Errorf("schools: district refresh: %w", err)
		}
	} else {
		log.Printf("schools: district data is up to date")
	}
	return nil
}

// missingDistrictIDs returns the district NCES ids schools reference that
// are absent from the districts output.
func missingDistrictIDs(schools, districts *table.Table) []string {
	known := make(map[string]bool, len(districts.Rows))
	for _, row := range districts.Rows {
		if id := trim(row["NCES ID"]); id != "" {
			known[id] = true
		}
	}
	var missing []string
	seen := make(map[string]bool)
	for _, row := range schools.Rows {
		id := trim(row["District (Match Key)"])
		if id == "" || known[id] || seen[id] {
			continue
		}
		seen[id] = true
		missing = append(missing, id)
	}
	return missing
}
