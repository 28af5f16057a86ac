package loaders

import (
	"fmt"
	"log"

	"github.com/nms-crm/internal/schema"
	"github.com/nms-crm/internal/table"
)

// LoadAssociations builds the School-Star Associations module. Rows whose
// school id actually refers to a district record are removed, and the match
// key columns are rewritten to the final names from the star and school
// lookups so the target system can resolve the references.
func LoadAssociations(c *Context) error {
	raw, err := c.ReadExport(c.Exports.Associations)
	if err != nil {
		return fmt.Errorf("associations: %w", err)
	}
	log.Printf("associations: loaded %d rows", len(raw.Rows))

	districts, err := c.Artifacts.LoadLookup("district_lookup", "Record Id", "Name")
	if err != nil {
		return fmt.Errorf("associations: %w", err)
	}
	if len(districts) > 0 {
		before := len(raw.Rows)
		raw.Filter(func(r table.Row) bool {
			_, isDistrict := districts[r["Schools.id"]]
			return !isDistrict
		})
		log.Printf("associations: removed %d district rows", before-len(raw.Rows))
	}

	mapping, err := c.MappingFor("School-Star Associations")
	if err != nil {
		return fmt.Errorf("associations: %w", err)
	}
	t := schema.TransformLegacy(raw, mapping)

	stars, err := c.Artifacts.LoadLookup("star_lookup", "Record Id", "Full Name")
	if err != nil {
		return fmt.Errorf("associations: %w", err)
	}
	schools, err := c.Artifacts.LoadLookup("school_lookup", "Record Id", "School Name")
	if err != nil {
		return fmt.Errorf("associations: %w", err)
	}

	for i, row := range t.Rows {
		src := raw.Rows[i]
		if name, ok := stars[src["Star.id"]]; ok && t.HasColumn("Star (Match Key)") {
			row["Star (Match Key)"] = name
		}
		if name, ok := schools[src["Schools.id"]]; ok && t.HasColumn("School (Match Key)") {
			row["School (Match Key)"] = name
		}
	}

	c.Finalize(t, "School-Star Associations")
	if err := c.WriteOutput(t, "School_Star_Associations.csv"); err != nil {
		return fmt.Errorf("associations: %w", err)
	}
	log.Printf("associations: wrote %d records", len(t.Rows))
	return nil
}
