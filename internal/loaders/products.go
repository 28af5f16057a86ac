package loaders

import (
	"fmt"
	"log"
	"strings"

	"github.com/nms-crm/internal/dedupe"
	"github.com/nms-crm/internal/decision"
	"github.com/nms-crm/internal/normalize"
	"github.com/nms-crm/internal/schema"
	"github.com/nms-crm/internal/table"
)

// LoadProducts builds the Products module from the legacy Products export
// enriched with the two STEM progress extracts. Records the reviewer marked
// as duplicates of a canonical product are dropped before enrichment.
func LoadProducts(c *Context) error {
	mapProd := c.Mapping.ForTarget("Products").ForLegacy("Products")
	mapCourse := c.Mapping.ForTarget("Products").ForLegacy("Stem Course Progress")
	mapEnrich := c.Mapping.ForTarget("Products").ForLegacy("Stem Enrichments Progress")
	if len(mapCourse.Rows) == 0 {
		log.Print("products: no mappings found for Stem Course Progress")
	}
	if len(mapEnrich.Rows) == 0 {
		log.Print("products: no mappings found for Stem Enrichments Progress")
	}
	if err := schema.AssertTargetPairsExist("Products", mapProd.Merge(mapCourse, mapEnrich), c.Catalog); err != nil {
		return fmt.Errorf("products: %w", err)
	}

	raw, err := c.ReadExport(c.Exports.Products)
	if err != nil {
		return fmt.Errorf("products: %w", err)
	}
	t := schema.TransformLegacy(raw, mapProd)
	t.EnsureColumns("Record Id")
	for i, row := range t.Rows {
		row["Record Id"] = trim(raw.Rows[i]["Record Id"])
	}
	log.Printf("products: loaded %d records from legacy export", len(t.Rows))

	decisions, err := c.Decisions.Load(Stem(c.Exports.Products))
	if err != nil {
		return fmt.Errorf("products: %w", err)
	}
	if drop := decision.DuplicateIDs(decisions); len(drop) > 0 {
		before := len(t.Rows)
		t.Filter(func(r table.Row) bool { return !drop[r["Record Id"]] })
		log.Printf("products: removed %d non-canonical records", before-len(t.Rows))
	}

	course, err := progressByProduct(c, c.Exports.CourseProgress, mapCourse, "STEM Course.id")
	if err != nil {
		return fmt.Errorf("products: %w", err)
	}
	enrich, err := progressByProduct(c, c.Exports.EnrichmentProgress, mapEnrich, "Enrichment.id")
	if err != nil {
		return fmt.Errorf("products: %w", err)
	}

	// Fill missing fields from the progress extracts; existing values are
	// never overwritten. Enrichment data is applied first.
	for _, row := range t.Rows {
		fillMissing(row, enrich[row["Record Id"]])
		fillMissing(row, course[row["Record Id"]])
	}

	t.Apply("Product Name", normalize.TitleCase)
	t.Apply("Description", normalize.StripTranslation)
	for _, col := range t.Columns {
		if strings.Contains(col, "Hours per") {
			t.Apply(col, normalize.ToIntIfWhole)
		}
	}

	cols := append([]string{"Record Id"}, c.Catalog.UIColumns("Products", "Related List")...)
	t.EnsureColumns(cols...)
	t.Select(cols)
	if err := c.WriteOutput(t, "Products.csv"); err != nil {
		return fmt.Errorf("products: %w", err)
	}
	log.Printf("products: wrote %d records", len(t.Rows))
	return nil
}

// progressByProduct loads a progress extract, keeps the most recent row per
// product id, and returns the transformed rows keyed by product id.
func progressByProduct(c *Context, filename string, mapping *schema.Mapping, idColumn string) (map[string]table.Row, error) {
	raw, err := c.ReadExport(filename)
	if err != nil {
		return nil, err
	}
	if !raw.HasColumn("Modified Time") {
		log.Printf("products: %s has no Modified Time column, keeping input order", filename)
	}

	t := schema.TransformLegacy(raw, mapping)
	t.EnsureColumns("Record Id", "Modified Time")
	for i, row := range t.Rows {
		row["Record Id"] = trim(raw.Rows[i][idColumn])
		row["Modified Time"] = raw.Rows[i]["Modified Time"]
	}

	dedupe.Latest(t, "Modified Time", func(r table.Row) string { return r["Record Id"] })

	byID := make(map[string]table.Row, len(t.Rows))
	for _, row := range t.Rows {
		byID[row["Record Id"]] = row
	}
	return byID, nil
}

// fillMissing copies values into empty fields only. Helper keys never leak
// into the target row.
func fillMissing(dst, src table.Row) {
	if src == nil {
		return
	}
	for k, v := range src {
		if k == "Record Id" || k == "Modified Time" {
			continue
		}
		if dst[k] == "" && v != "" {
			dst[k] = v
		}
	}
}
