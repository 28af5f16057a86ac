package loaders

import (
	"strings"

	"github.com/nms-crm/internal/normalize"
	"github.com/nms-crm/internal/table"
)

func trim(s string) string { return strings.TrimSpace(s) }

// standardizeAddresses rewrites an address block in place. The state column
// is read for parsing context but never rewritten; enrichment owns it.
func standardizeAddresses(t *table.Table, street, city, state, zip string) {
	for _, row := range t.Rows {
		block := normalize.StandardizeAddress(normalize.AddressBlock{
			Street: row[street],
			City:   row[city],
			State:  row[state],
			Zip:    row[zip],
		})
		row[street] = block.Street
		row[city] = block.City
		row[zip] = block.Zip
	}
}
