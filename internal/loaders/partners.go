package loaders

import (
	"fmt"
	"log"

	"github.com/nms-crm/internal/schema"
)

// LoadPartners transfers the legacy Partners export straight through the
// mapping. No deduplication or enrichment applies to this module.
func LoadPartners(c *Context) error {
	raw, err := c.ReadExport(c.Exports.Partners)
	if err != nil {
		return fmt.Errorf("partners: %w", err)
	}

	mapping, err := c.MappingFor("Partners")
	if err != nil {
		return fmt.Errorf("partners: %w", err)
	}
	t := schema.TransformLegacy(raw, mapping)

	c.Finalize(t, "Partners", "Related List")
	if err := c.WriteOutput(t, "Partners.csv"); err != nil {
		return fmt.Errorf("partners: %w", err)
	}
	if err := c.WriteAPIOutput(t, "Partners_api.csv"); err != nil {
		return fmt.Errorf("partners: %w", err)
	}
	log.Printf("partners: wrote %d records", len(t.Rows))
	return nil
}
