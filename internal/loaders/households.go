package loaders

import (
	"fmt"
	"log"
	"strings"

	"github.com/nms-crm/internal/artifact"
	"github.com/nms-crm/internal/dedupe"
	"github.com/nms-crm/internal/normalize"
	"github.com/nms-crm/internal/schema"
	"github.com/nms-crm/internal/table"
)

// LoadHouseholds builds one household record per family from the legacy
// Accounts export. The family key is deterministic (guardian initial, last
// name, zip) so the same family collapses across cohort years; the most
// recent cohort's record wins and historical notes are aggregated onto it.
// Produces the household_lookup artifact keyed by family key.
func LoadHouseholds(c *Context) error {
	raw, err := c.ReadExport(c.Exports.Accounts)
	if err != nil {
		return fmt.Errorf("households: %w", err)
	}
	raw.Filter(func(r table.Row) bool { return trim(r["Account Type"]) == "Star" })
	log.Printf("households: %d star account records", len(raw.Rows))

	raw.EnsureColumns("family_key")
	for _, row := range raw.Rows {
		row["family_key"] = normalize.HouseholdKey(
			row["Primary Guardian First Name"],
			row["Primary Guardian Last Name"],
			row["Primary Guardian Zip"],
		)
	}
	raw.Filter(func(r table.Row) bool { return r["family_key"] != "" })
	log.Printf("households: %d records with a usable family key", len(raw.Rows))

	mapping, err := c.MappingFor("Households")
	if err != nil {
		return fmt.Errorf("households: %w", err)
	}
	t := schema.TransformLegacy(raw, mapping)

	t.EnsureColumns("family_key", "Household Name")
	for i, row := range t.Rows {
		src := raw.Rows[i]
		row["family_key"] = src["family_key"]
		row["Household Name"] = householdName(
			trim(src["Primary Guardian First Name"]),
			trim(src["Primary Guardian Last Name"]))
	}

	// Aggregate historical notes per family before collapsing.
	notes := make(map[string][]string)
	seenNote := make(map[string]bool)
	for _, row := range t.Rows {
		note := trim(row["Special Circumstances"])
		if note == "" {
			continue
		}
		k := row["family_key"] + "\x00" + note
		if !seenNote[k] {
			seenNote[k] = true
			notes[row["family_key"]] = append(notes[row["family_key"]], note)
		}
	}

	dedupe.LatestRanked(t,
		func(r table.Row) string { return r["family_key"] },
		dedupe.ByNumber("Cohort Entry Year"))
	log.Printf("households: %d unique households", len(t.Rows))

	t.EnsureColumns("Notes")
	for _, row := range t.Rows {
		row["Notes"] = strings.Join(notes[row["family_key"]], "; ")
	}

	t.Apply("Family Size", normalize.ToIntIfWhole)
	t.Apply("Highest Level of Education", normalize.StripTranslation)
	t.Apply("Special Circumstances", normalize.StripTranslation)
	standardizeAddresses(t, "Street", "City", "State", "Zip Code")

	lookup := make(artifact.Lookup, len(t.Rows))
	for _, row := range t.Rows {
		lookup[row["family_key"]] = row["Household Name"]
	}
	if err := c.Artifacts.SaveLookup("household_lookup", "family_key", "Household Name", lookup); err != nil {
		return fmt.Errorf("households: %w", err)
	}

	c.Finalize(t, "Households", "Related List")
	if err := c.WriteOutput(t, "Households.csv"); err != nil {
		return fmt.Errorf("households: %w", err)
	}
	if err := c.WriteAPIOutput(t, "Households_api.csv"); err != nil {
		return fmt.Errorf("households: %w", err)
	}
	log.Printf("households: wrote %d records", len(t.Rows))
	return nil
}

// householdName synthesizes the display name from the primary guardian:
// "Ana Lopez" becomes "A. Lopez Household".
func householdName(first, last string) string {
	return fmt.Sprintf("%s. %s Household",
		strings.ToUpper(normalize.Initial(first)), normalize.TitleCase(last))
}
