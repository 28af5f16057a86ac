package loaders

import (
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/nms-crm/internal/normalize"
	"github.com/nms-crm/internal/schema"
	"github.com/nms-crm/internal/table"
)

const (
	roleField     = "Role (General)"
	emergencyFlag = "Emergency Contact"
)

// Guardian block prefixes in the Accounts export mapped to contact roles.
var guardianRoles = []struct {
	prefix string
	role   string
}{
	{"Primary", "Primary Guardian"},
	{"Secondary", "Secondary Guardian"},
	{"Third", "Tertiary Guardian"},
}

// Bilingual opt-in answers flip into opt-out booleans.
var optColumns = []string{"Opt-out Email", "Opt-out Text (SMS)", "Opt-out Directory"}

var optFlip = map[string]string{
	"Yes":    "FALSE",
	"Yes/Sí": "FALSE",
	"No":     "TRUE",
	"No/No":  "TRUE",
}

// Export artifact left in the secondary guardian street by the legacy form.
const addressLine2Artifact = ", Address Line 2/Línea de dirección 2"

// Contact types in the legacy Contacts export already covered by the
// Accounts guardian blocks.
var excludedContactTypes = map[string]bool{
	"Primary Guardian":   true,
	"Secondary Guardian": true,
	"Third Guardian":     true,
	"Star":               true,
}

// Roles surfaced first in the output, in this order; remaining roles follow
// alphabetically.
var primaryRoleOrder = []string{
	"Primary Guardian", "Secondary Guardian", "Tertiary Guardian",
	"Emergency Contact", "Mentor",
}

// LoadContacts assembles the Contacts module from two sources: guardian and
// emergency blocks widening each Star account into person records, and the
// filtered legacy Contacts export. Account records win when both sources
// describe the same person. Produces the math_mentors_names artifact
// consumed by the mentors loader.
func LoadContacts(c *Context) error {
	mapping, err := c.MappingFor("Contacts")
	if err != nil {
		return fmt.Errorf("contacts: %w", err)
	}

	uiCols := c.Catalog.UIColumns("Contacts", "Related List", "System")
	for _, required := range []string{roleField, emergencyFlag} {
		found := false
		for _, col := range uiCols {
			if col == required {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("contacts: target catalog missing required field %q", required)
		}
	}

	accountRows, err := contactsFromAccounts(c, mapping)
	if err != nil {
		return fmt.Errorf("contacts: %w", err)
	}
	legacyRows, err := contactsFromLegacy(c, mapping)
	if err != nil {
		return fmt.Errorf("contacts: %w", err)
	}

	t := table.New(uiCols...)
	t.Rows = append(accountRows, legacyRows...)

	// Legacy contact rows never carry these; default them before dedup so
	// both sources compare cleanly.
	for _, row := range t.Rows {
		if row[emergencyFlag] == "" {
			row[emergencyFlag] = "FALSE"
		}
		if row["Preferred Language"] == "" {
			row["Preferred Language"] = "English"
		}
	}

	dedupContacts(t, len(accountRows))
	log.Printf("contacts: %d unique contacts after deduplication", len(t.Rows))

	orderByRole(t)

	t.Apply("First Name", normalize.TitleCase)
	t.Apply("Last Name", normalize.TitleCase)
	standardizeAddresses(t, "Mailing Street", "Mailing City", "Mailing State", "Mailing Zip Code")
	t.Apply("Phone", normalize.DigitsOnlyPhone)
	t.Apply("Email", strings.ToLower)

	for _, row := range t.Rows {
		if row["Opt-out Email"] == "" {
			row["Opt-out Email"] = "FALSE"
		}
		if row["Opt-out Text (SMS)"] == "" {
			row["Opt-out Text (SMS)"] = "FALSE"
		}
		if row["Opt-out Directory"] == "" {
			row["Opt-out Directory"] = "TRUE"
		}
	}

	// Rows with no way to reach the person sink to the bottom.
	var reachable, blank []table.Row
	for _, row := range t.Rows {
		if trim(row["Email"]) == "" && trim(row["Phone"]) == "" {
			blank = append(blank, row)
		} else {
			reachable = append(reachable, row)
		}
	}
	t.Rows = append(reachable, blank...)

	if err := saveMentorNames(c, t); err != nil {
		return fmt.Errorf("contacts: %w", err)
	}

	c.Finalize(t, "Contacts", "Related List", "System")
	if err := c.WriteOutput(t, "Contacts.csv"); err != nil {
		return fmt.Errorf("contacts: %w", err)
	}
	log.Printf("contacts: wrote %d records", len(t.Rows))
	return nil
}

// contactsFromAccounts widens each Star account into person rows, one per
// populated guardian or emergency block.
func contactsFromAccounts(c *Context, mapping *schema.Mapping) ([]table.Row, error) {
	raw, err := c.ReadExport(c.Exports.Accounts)
	if err != nil {
		return nil, err
	}
	raw.Filter(func(r table.Row) bool { return trim(r["Account Type"]) == "Star" })

	rename := mapping.RenameMap()

	// Legacy columns per block prefix, resolved once against the export
	// header.
	blockCols := make(map[string][]string)
	for _, col := range raw.Columns {
		if _, mapped := rename[col]; !mapped {
			continue
		}
		for _, key := range []string{"Primary", "Secondary", "Third", "Emergency"} {
			if strings.HasPrefix(col, key+" ") {
				blockCols[key] = append(blockCols[key], col)
			}
		}
	}

	grabBlock := func(acc table.Row, key string) table.Row {
		rec := table.Row{}
		for _, col := range blockCols[key] {
			val := acc[col]
			if key == "Secondary" && col == "Secondary Guardian Street" {
				val = trim(strings.ReplaceAll(val, addressLine2Artifact, ""))
			}
			if val != "" {
				rec[rename[col]] = val
			}
		}
		return rec
	}

	var rows []table.Row
	for _, acc := range raw.Rows {
		var persons []table.Row
		for _, g := range guardianRoles {
			rec := grabBlock(acc, g.prefix)
			if len(rec) == 0 {
				continue
			}
			rec[roleField] = g.role
			rec[emergencyFlag] = "FALSE"
			persons = append(persons, rec)
		}

		if em := grabBlock(acc, "Emergency"); len(em) > 0 {
			fn := strings.ToLower(trim(em["First Name"]))
			ln := strings.ToLower(trim(em["Last Name"]))
			matched := false
			for _, g := range persons {
				if fn != "" && ln != "" &&
					fn == strings.ToLower(trim(g["First Name"])) &&
					ln == strings.ToLower(trim(g["Last Name"])) {
					g[emergencyFlag] = "TRUE"
					matched = true
					break
				}
			}
			if !matched {
				em[roleField] = "Emergency Contact"
				em[emergencyFlag] = "TRUE"
				persons = append(persons, em)
			}
		}

		for _, rec := range persons {
			for _, col := range optColumns {
				if val, ok := rec[col]; ok {
					if flipped, known := optFlip[val]; known {
						val = flipped
					}
					rec[col] = normalize.StripTranslation(val)
				}
			}
			if val, ok := rec["Preferred Language"]; ok {
				rec["Preferred Language"] = normalize.StripTranslation(val)
			}
			if trim(rec["First Name"]) == "" && trim(rec["Last Name"]) == "" {
				continue
			}
			rows = append(rows, rec)
		}
	}
	return rows, nil
}

// contactsFromLegacy filters and transforms the legacy Contacts export.
func contactsFromLegacy(c *Context, mapping *schema.Mapping) ([]table.Row, error) {
	raw, err := c.ReadExport(c.Exports.Contacts)
	if err != nil {
		return nil, err
	}
	raw.Filter(func(r table.Row) bool { return !excludedContactTypes[trim(r["Contact Type"])] })
	raw.Filter(func(r table.Row) bool {
		for _, val := range r {
			if strings.Contains(strings.ToLower(val), "test") {
				return false
			}
		}
		return true
	})

	t := schema.TransformLegacy(raw, mapping.ForLegacy("Contacts"))
	return t.Rows, nil
}

// dedupContacts drops rows describing the same person, preferring account
// rows over legacy contact rows. The identity key is the name pair in
// either order, so swapped first and last names still collide. The first
// nAccounts rows come from Accounts.
func dedupContacts(t *table.Table, nAccounts int) {
	type best struct {
		index    int
		priority int
	}
	keep := make(map[string]best)
	keys := make([]string, len(t.Rows))

	for i, row := range t.Rows {
		fn := strings.ToLower(trim(row["First Name"]))
		ln := strings.ToLower(trim(row["Last Name"]))
		lo, hi := fn, ln
		if lo > hi {
			lo, hi = hi, lo
		}
		keys[i] = lo + "|" + hi

		priority := 0
		if i >= nAccounts {
			priority = 1
		}
		cur, seen := keep[keys[i]]
		if !seen || priority < cur.priority {
			keep[keys[i]] = best{index: i, priority: priority}
		}
	}

	var rows []table.Row
	for i, row := range t.Rows {
		if keep[keys[i]].index == i {
			rows = append(rows, row)
			continue
		}
		log.Printf("contacts: removing duplicate %q %q", row["First Name"], row["Last Name"])
	}
	t.Rows = rows
}

// orderByRole sorts rows by role prominence, then by prior position.
func orderByRole(t *table.Table) {
	rank := make(map[string]int, len(primaryRoleOrder))
	for i, role := range primaryRoleOrder {
		rank[role] = i
	}

	var others []string
	seen := make(map[string]bool)
	for _, row := range t.Rows {
		role := row[roleField]
		if _, primary := rank[role]; role != "" && !primary && !seen[role] {
			seen[role] = true
			others = append(others, role)
		}
	}
	sort.Strings(others)
	for i, role := range others {
		rank[role] = len(primaryRoleOrder) + i
	}

	roleRank := func(row table.Row) int {
		if r, ok := rank[row[roleField]]; ok {
			return r
		}
		return len(rank) + 1
	}
	sort.SliceStable(t.Rows, func(i, j int) bool {
		return roleRank(t.Rows[i]) < roleRank(t.Rows[j])
	})
}

// saveMentorNames caches the name pairs of mentor contacts for the mentors
// loader.
func saveMentorNames(c *Context, t *table.Table) error {
	mentors := table.New("First Name", "Last Name")
	for _, row := range t.Rows {
		if row[roleField] != "Mentor" {
			continue
		}
		mentors.Rows = append(mentors.Rows, table.Row{
			"First Name": row["First Name"],
			"Last Name":  row["Last Name"],
		})
	}
	if err := mentors.Write(c.Artifacts.Path("math_mentors_names")); err != nil {
		return fmt.Errorf("mentor names cache: %w", err)
	}
	log.Printf("contacts: cached %d mentor names", len(mentors.Rows))
	return nil
}
