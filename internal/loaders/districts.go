package loaders

import (
	"fmt"
	"log"

	"github.com/nms-crm/internal/artifact"
	"github.com/nms-crm/internal/debug"
	"github.com/nms-crm/internal/dedupe"
	"github.com/nms-crm/internal/normalize"
	"github.com/nms-crm/internal/refmatch"
	"github.com/nms-crm/internal/schema"
	"github.com/nms-crm/internal/table"
)

const districtLinkBase = "https://nces.ed.gov/ccd/districtsearch/district_detail.asp?ID2="

// LoadDistricts enriches legacy district records against the CCD reference,
// deduplicates them, and writes Districts.csv plus the district_lookup
// artifact consumed by the associations loader.
func LoadDistricts(c *Context) error {
	raw, err := c.ReadExport(c.Exports.DistrictsSchools)
	if err != nil {
		return fmt.Errorf("districts: %w", err)
	}
	raw.Filter(func(r table.Row) bool { return trim(r["Type"]) == "District" })

	mapping, err := c.MappingFor("Districts")
	if err != nil {
		return fmt.Errorf("districts: %w", err)
	}
	t := schema.TransformLegacy(raw, mapping)

	t.EnsureColumns("Modified Time", "NCES ID", "Original Name", "State", "Record Id")
	for i, row := range t.Rows {
		src := raw.Rows[i]
		row["Modified Time"] = src["Modified Time"]
		row["NCES ID"] = normalize.CleanLEAID(src["NCES District ID"])
		row["Original Name"] = row["Name"]
		if row["State"] == "" {
			row["State"] = src["State"]
		}
		row["Record Id"] = src["Record Id"]
	}

	entities, err := c.LoadDistrictReference()
	if err != nil {
		return fmt.Errorf("districts: %w", err)
	}
	matcher := refmatch.NewMatcher(entities)
	matcher.RegionalCutoff = c.Thresholds.DistrictRegional
	matcher.NationalCutoff = c.Thresholds.DistrictNational
	matcher.Debug = c.Debug

	done := debug.Timing(c.Debug, "district CCD match")
	matched := 0
	for _, row := range t.Rows {
		hit, ok := matcher.Match(refmatch.Query{
			ID:     row["NCES ID"],
			Name:   row["Original Name"],
			Region: normalize.TitleCase(row["State"]),
		})
		if !ok {
			continue
		}
		refmatch.Overwrite(row, hit.Entity, DistrictEnrichFields)
		matched++
	}
	done()
	log.Printf("districts: enriched %d of %d records from CCD", matched, len(t.Rows))

	dedupe.Latest(t, "Modified Time", func(r table.Row) string {
		return dedupe.Key(r["NCES ID"], r["Name"], r["State"])
	})
	log.Printf("districts: %d unique records after deduplication", len(t.Rows))

	t.Apply("Name", normalize.DistrictTitleCase)
	standardizeAddresses(t, "Street", "City", "State", "Zip Code")
	t.Apply("Street", normalize.TitleCase)
	t.Apply("District Size", normalize.ToIntIfWhole)

	t.EnsureColumns("NCES District Link")
	for _, row := range t.Rows {
		if row["NCES ID"] != "" {
			row["NCES District Link"] = districtLinkBase + row["NCES ID"]
		}
	}

	lookup := make(artifact.Lookup, len(t.Rows))
	for _, row := range t.Rows {
		if row["Record Id"] != "" {
			lookup[row["Record Id"]] = row["Name"]
		}
	}
	if err := c.Artifacts.SaveLookup("district_lookup", "Record Id", "Name", lookup); err != nil {
		return fmt.Errorf("districts: %w", err)
	}

	c.Finalize(t, "Districts", "Related List")
	if err := c.WriteOutput(t, "Districts.csv"); err != nil {
		return fmt.Errorf("districts: %w", err)
	}
	if err := c.WriteAPIOutput(t, "Districts_api.csv"); err != nil {
		return fmt.Errorf("districts: %w", err)
	}
	log.Printf("districts: wrote %d records", len(t.Rows))
	return nil
}
