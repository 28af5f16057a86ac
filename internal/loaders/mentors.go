package loaders

import (
	"fmt"
	"log"
	"os"

	"github.com/nms-crm/internal/table"
)

// LoadMentors builds the Mentors module from the mentor name cache written
// by the contacts loader; there is no legacy Mentors export.
func LoadMentors(c *Context) error {
	path := c.Artifacts.Path("math_mentors_names")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("mentors: cache %s not found, run the contacts loader first", path)
	}

	t, err := table.Read(path)
	if err != nil {
		return fmt.Errorf("mentors: %w", err)
	}
	if len(t.Rows) == 0 {
		log.Print("mentors: cache is empty, no records to create")
	}
	if !t.HasColumn("First Name") || !t.HasColumn("Last Name") {
		return fmt.Errorf("mentors: cache is missing name columns")
	}

	t.EnsureColumns("Mentor")
	for _, row := range t.Rows {
		row["Mentor"] = trim(row["First Name"] + " " + row["Last Name"])
	}

	c.Finalize(t, "Mentors", "Related List")
	if err := c.WriteOutput(t, "Mentors.csv"); err != nil {
		return fmt.Errorf("mentors: %w", err)
	}
	log.Printf("mentors: wrote %d records", len(t.Rows))
	return nil
}
