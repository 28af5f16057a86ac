package loaders

import (
	"fmt"
	"log"
	"strconv"

	"github.com/nms-crm/internal/artifact"
	"github.com/nms-crm/internal/normalize"
	"github.com/nms-crm/internal/schema"
	"github.com/nms-crm/internal/table"
)

// LoadStars builds the Stars module from the legacy Accounts export and
// links each star to its household through the household_lookup artifact.
// Produces the star_lookup artifact mapping Record Id to the final full
// name.
func LoadStars(c *Context) error {
	raw, err := c.ReadExport(c.Exports.Accounts)
	if err != nil {
		return fmt.Errorf("stars: %w", err)
	}
	raw.Filter(func(r table.Row) bool { return trim(r["Account Type"]) == "Star" })
	raw.Filter(func(r table.Row) bool {
		return trim(r["Star First Name"]) != "" || trim(r["Star Last Name"]) != ""
	})

	mapping, err := c.MappingFor("Stars")
	if err != nil {
		return fmt.Errorf("stars: %w", err)
	}
	t := schema.TransformLegacy(raw, mapping)

	t.EnsureColumns("family_key", "Record Id")
	for i, row := range t.Rows {
		src := raw.Rows[i]
		row["family_key"] = normalize.HouseholdKey(
			src["Primary Guardian First Name"],
			src["Primary Guardian Last Name"],
			src["Primary Guardian Zip"],
		)
		row["Record Id"] = src["Record Id"]
	}

	households, err := c.Artifacts.LoadLookup("household_lookup", "family_key", "Household Name")
	if err != nil {
		return fmt.Errorf("stars: %w", err)
	}
	t.EnsureColumns("Household (Match Key)")
	missing := 0
	for _, row := range t.Rows {
		name, ok := households[row["family_key"]]
		if !ok {
			missing++
			continue
		}
		row["Household (Match Key)"] = name
	}
	if missing > 0 {
		log.Printf("stars: %d records missing a household match", missing)
	}

	for _, col := range []string{"First Name", "Last Name", "Middle Name"} {
		t.Apply(col, normalize.TitleCase)
	}
	t.Apply("Current Grade", normalize.ExtractGrade)
	t.Apply("Cohort Entry Year", normalize.ToIntIfWhole)
	t.Apply("Race or Ethnicity", normalize.StripTranslation)
	t.Apply("Gender Identity", normalize.StripTranslation)

	t.EnsureColumns("Age", "Full Name")
	now := c.Now()
	for _, row := range t.Rows {
		if dob, ok := table.ParseTime(row["Date of Birth"]); ok {
			years := int(now.Sub(dob).Hours() / (24 * 365.25))
			row["Age"] = strconv.Itoa(years)
		}
		row["Full Name"] = trim(row["First Name"] + " " + row["Last Name"])
	}

	lookup := make(artifact.Lookup, len(t.Rows))
	for _, row := range t.Rows {
		if row["Record Id"] != "" {
			lookup[row["Record Id"]] = row["Full Name"]
		}
	}
	if err := c.Artifacts.SaveLookup("star_lookup", "Record Id", "Full Name", lookup); err != nil {
		return fmt.Errorf("stars: %w", err)
	}

	c.Finalize(t, "Stars")
	if err := c.WriteOutput(t, "Stars.csv"); err != nil {
		return fmt.Errorf("stars: %w", err)
	}
	log.Printf("stars: wrote %d records", len(t.Rows))
	return nil
}
