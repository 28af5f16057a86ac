package loaders

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/nms-crm/internal/decision"
	"github.com/nms-crm/internal/schema"
	"github.com/nms-crm/internal/table"
)

// enrollmentSource describes one progress-to-enrollment transformation; the
// course and enrichment loaders differ only in these values.
type enrollmentSource struct {
	module        string
	legacyModule  string
	exportFile    func(*Context) string
	productIDCol  string
	productName   string
	outputFile    string
}

// LoadCourseEnrollments transforms STEM course progress records into Course
// Enrollments.
func LoadCourseEnrollments(c *Context) error {
	return loadEnrollments(c, enrollmentSource{
		module:       "Course Enrollments",
		legacyModule: "Stem Course Progress",
		exportFile:   func(c *Context) string { return c.Exports.CourseProgress },
		productIDCol: "STEM Course.id",
		productName:  "STEM Course",
		outputFile:   "Course_Enrollments.csv",
	})
}

// LoadEnrichmentEnrollments transforms STEM enrichment progress records
// into Enrichment Enrollments.
func LoadEnrichmentEnrollments(c *Context) error {
	return loadEnrollments(c, enrollmentSource{
		module:       "Enrichment Enrollments",
		legacyModule: "Stem Enrichments Progress",
		exportFile:   func(c *Context) string { return c.Exports.EnrichmentProgress },
		productIDCol: "Enrichment.id",
		productName:  "Enrichment",
		outputFile:   "Enrichment_Enrollments.csv",
	})
}

func loadEnrollments(c *Context, src enrollmentSource) error {
	mapping := c.Mapping.ForTarget(src.module).ForLegacy(src.legacyModule)
	if err := schema.AssertTargetPairsExist(src.module, mapping, c.Catalog); err != nil {
		return fmt.Errorf("%s: %w", src.module, err)
	}

	raw, err := c.ReadExport(src.exportFile(c))
	if err != nil {
		return fmt.Errorf("%s: %w", src.module, err)
	}
	dropTestRows(raw, "Accounts")

	// Point every enrollment at its canonical product before renaming.
	decisions, err := c.Decisions.Load(Stem(c.Exports.Products))
	if err != nil {
		return fmt.Errorf("%s: %w", src.module, err)
	}
	remap := decision.BuildRemap(decisions)
	remap.ApplyIDs(raw, src.productIDCol)
	remap.ApplyNames(raw, src.productIDCol, src.productName)

	t := schema.TransformLegacy(raw, mapping)
	consolidateGradeColumns(t)
	deriveStatus(t, c.Now())

	c.Finalize(t, src.module, "Related List")
	if err := c.WriteOutput(t, src.outputFile); err != nil {
		return fmt.Errorf("%s: %w", src.module, err)
	}
	log.Printf("%s: wrote %d records", strings.ToLower(src.module), len(t.Rows))
	return nil
}

// consolidateGradeColumns collapses the legacy "Grade Value*" columns into
// a single "Grade Value" holding each row's first non-empty value.
func consolidateGradeColumns(t *table.Table) {
	var gradeCols []string
	for _, col := range t.Columns {
		if strings.HasPrefix(col, "Grade Value") {
			gradeCols = append(gradeCols, col)
		}
	}
	if len(gradeCols) <= 1 {
		return
	}
	sort.Strings(gradeCols)
	log.Printf("consolidating %d grade columns", len(gradeCols))

	for _, row := range t.Rows {
		value := ""
		for _, col := range gradeCols {
			if v := trim(row[col]); v != "" {
				value = v
				break
			}
		}
		for _, col := range gradeCols {
			delete(row, col)
		}
		row["Grade Value"] = value
	}

	var cols []string
	for _, col := range t.Columns {
		if !strings.HasPrefix(col, "Grade Value") {
			cols = append(cols, col)
		}
	}
	t.Columns = append(cols, "Grade Value")
}

// deriveStatus fills the Status column from the enrollment date range:
// Upcoming before the start date, In Progress between start and end (or
// with no end), Completed after the end. Rows with neither date get no
// status.
func deriveStatus(t *table.Table, now time.Time) {
	if !t.HasColumn("Start Date") || !t.HasColumn("End Date") {
		return
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	t.EnsureColumns("Status")
	for _, row := range t.Rows {
		start, hasStart := table.ParseTime(row["Start Date"])
		end, hasEnd := table.ParseTime(row["End Date"])

		switch {
		case !hasStart && !hasEnd:
			row["Status"] = ""
		case hasStart && start.After(today):
			row["Status"] = "Upcoming"
		case hasStart && (!hasEnd || !end.Before(today)):
			row["Status"] = "In Progress"
		default:
			row["Status"] = "Completed"
		}
	}
}
