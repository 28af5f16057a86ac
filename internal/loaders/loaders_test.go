package loaders

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nms-crm/internal/artifact"
	"github.com/nms-crm/internal/config"
	"github.com/nms-crm/internal/decision"
	"github.com/nms-crm/internal/table"
)

const testMappingCSV = `Legacy Module,Legacy Field,Target Module,Target Field
Accounts,Star First Name,Stars,First Name
Accounts,Star Last Name,Stars,Last Name
Accounts,Current Grade,Stars,Current Grade
Accounts,Date of Birth,Stars,Date of Birth
Accounts,Internal Code,Remove,Internal Code
Partners,Partner Name,Partners,Partner Name
Partners,Partner City,Partners,City
Products,Product Name,Products,Product Name
Products,Description,Products,Description
Stem Course Progress,Course Format,Products,Format
Stem Course Progress,STEM Course,Course Enrollments,Product (Match Key)
Stem Course Progress,Start Date,Course Enrollments,Start Date
Stem Course Progress,End Date,Course Enrollments,End Date
Associations,Star,School-Star Associations,Star (Match Key)
Associations,Schools,School-Star Associations,School (Match Key)
`

const testCatalogCSV = `User-Facing Module Name,User-Facing Field Name,Data Source / Type
Stars,First Name,Legacy
Stars,Last Name,Legacy
Stars,Full Name,Derived
Stars,Current Grade,Legacy
Stars,Date of Birth,Legacy
Stars,Age,Derived
Stars,Household (Match Key),Derived
Partners,Partner Name,Legacy
Partners,City,Legacy
Partners,Notes,Legacy
Products,Product Name,Legacy
Products,Description,Legacy
Products,Format,Legacy
Products,Enrollment History,Related List
Course Enrollments,Product (Match Key),Legacy
Course Enrollments,Start Date,Legacy
Course Enrollments,End Date,Legacy
Course Enrollments,Status,Derived
School-Star Associations,Star (Match Key),Legacy
School-Star Associations,School (Match Key),Legacy
`

func newTestContext(t *testing.T) *Context {
	t.Helper()
	root := t.TempDir()

	paths := config.Paths{
		MappingDir:   filepath.Join(root, "mapping"),
		ExportsDir:   filepath.Join(root, "mapping", "legacy-exports"),
		ReferenceDir: filepath.Join(root, "reference"),
		CacheDir:     filepath.Join(root, "cache"),
		OutputDir:    filepath.Join(root, "output"),
	}
	for _, dir := range []string{paths.MappingDir, paths.ExportsDir, paths.CacheDir, paths.OutputDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatal(err)
		}
	}
	writeFile(t, filepath.Join(paths.MappingDir, "Target-Legacy Mapping.csv"), testMappingCSV)
	writeFile(t, filepath.Join(paths.MappingDir, "Target modules_fields.csv"), testCatalogCSV)

	c, err := NewContext(paths, config.Thresholds{
		Cluster: 85, Regional: 90, National: 95,
		DistrictRegional: 85, DistrictNational: 90,
	})
	if err != nil {
		t.Fatalf("NewContext() error = %v", err)
	}
	c.Now = func() time.Time { return time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC) }
	return c
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func readOutput(t *testing.T, c *Context, filename string) *table.Table {
	t.Helper()
	out, err := table.Read(filepath.Join(c.Paths.OutputDir, filename))
	if err != nil {
		t.Fatalf("reading %s: %v", filename, err)
	}
	return out
}

func TestLoadPartners(t *testing.T) {
	c := newTestContext(t)
	writeFile(t, filepath.Join(c.Paths.ExportsDir, c.Exports.Partners),
		"Partner Name,Partner City,Internal\nAcme Tutoring,Austin,x\n")

	if err := LoadPartners(c); err != nil {
		t.Fatalf("LoadPartners() error = %v", err)
	}

	out := readOutput(t, c, "Partners.csv")
	if len(out.Rows) != 1 {
		t.Fatalf("rows = %d", len(out.Rows))
	}
	row := out.Rows[0]
	if row["Partner Name"] != "Acme Tutoring" || row["City"] != "Austin" {
		t.Errorf("row = %v", row)
	}
	if !out.HasColumn("Notes") {
		t.Error("catalog column absent from data should still be emitted")
	}

	api := readOutput(t, c, "Partners_api.csv")
	if !api.HasColumn("Partner_Name") || api.HasColumn("Partner Name") {
		t.Errorf("API output should carry API headers: %v", api.Columns)
	}
	if len(api.Rows) != 1 || api.Rows[0]["Partner_Name"] != "Acme Tutoring" {
		t.Errorf("API rows = %v", api.Rows)
	}
}

func TestAPIHeader(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Partner Name", "Partner_Name"},
		{"District (Match Key)", "District_Match_Key"},
		{"Highest Level of Education", "Highest_Level_of_Education"},
	}
	for _, tt := range tests {
		if got := apiHeader(tt.in); got != tt.want {
			t.Errorf("apiHeader(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestHouseholdName(t *testing.T) {
	if got := householdName("Ana", "lopez"); got != "A. Lopez Household" {
		t.Errorf("householdName = %q", got)
	}
	if got := householdName("Álvaro", "garcía"); got != "Á. García Household" {
		t.Errorf("householdName with accented initial = %q", got)
	}
}

func TestMissingDistrictIDs(t *testing.T) {
	schools := table.New("School Name", "District (Match Key)")
	schools.Rows = []table.Row{
		{"School Name": "Lincoln Elementary", "District (Match Key)": "4823640"},
		{"School Name": "Washington Middle", "District (Match Key)": "4823640"},
		{"School Name": "Keller High", "District (Match Key)": "4824820"},
		{"School Name": "Homeschool Co-op", "District (Match Key)": ""},
	}
	districts := table.New("Name", "NCES ID")
	districts.Rows = []table.Row{
		{"Name": "Austin ISD", "NCES ID": "4823640"},
	}

	missing := missingDistrictIDs(schools, districts)
	if len(missing) != 1 || missing[0] != "4824820" {
		t.Errorf("missing = %v", missing)
	}

	districts.Rows = append(districts.Rows, table.Row{"Name": "Keller ISD", "NCES ID": "4824820"})
	if missing := missingDistrictIDs(schools, districts); len(missing) != 0 {
		t.Errorf("covered ids reported missing: %v", missing)
	}
}

func TestLoadStars(t *testing.T) {
	c := newTestContext(t)
	writeFile(t, filepath.Join(c.Paths.ExportsDir, c.Exports.Accounts),
		"Record Id,Account Type,Star First Name,Star Last Name,Current Grade,Date of Birth,"+
			"Primary Guardian First Name,Primary Guardian Last Name,Primary Guardian Zip\n"+
			"a1,Star,maria,lopez,5th,2015-06-30,Ana,Lopez,78757\n"+
			"a2,Star,,,,,,,\n"+
			"a3,Partner,Tim,Ward,3rd,2016-01-01,Bob,Ward,10001\n")

	if err := c.Artifacts.SaveLookup("household_lookup", "family_key", "Household Name",
		artifact.Lookup{"a|lopez|78757": "A. Lopez Household"}); err != nil {
		t.Fatal(err)
	}

	if err := LoadStars(c); err != nil {
		t.Fatalf("LoadStars() error = %v", err)
	}

	out := readOutput(t, c, "Stars.csv")
	if len(out.Rows) != 1 {
		t.Fatalf("blank and non-star rows should be dropped, got %d rows", len(out.Rows))
	}
	row := out.Rows[0]
	if row["First Name"] != "Maria" || row["Full Name"] != "Maria Lopez" {
		t.Errorf("name cleaning failed: %v", row)
	}
	if row["Current Grade"] != "5" {
		t.Errorf("grade = %q", row["Current Grade"])
	}
	if row["Age"] != "10" {
		t.Errorf("age = %q", row["Age"])
	}
	if row["Household (Match Key)"] != "A. Lopez Household" {
		t.Errorf("household join failed: %v", row)
	}

	lookup, err := c.Artifacts.LoadLookup("star_lookup", "Record Id", "Full Name")
	if err != nil {
		t.Fatal(err)
	}
	if lookup["a1"] != "Maria Lopez" {
		t.Errorf("star_lookup = %v", lookup)
	}
}

func TestLoadProducts(t *testing.T) {
	c := newTestContext(t)
	writeFile(t, filepath.Join(c.Paths.ExportsDir, c.Exports.Products),
		"Record Id,Product Name,Description\n"+
			"p1,algebra one,Math course/Curso de matemáticas\n"+
			"p2,Algebra 1,dup\n")
	writeFile(t, filepath.Join(c.Paths.ExportsDir, c.Exports.CourseProgress),
		"STEM Course.id,Course Format,Modified Time\n"+
			"p1,Self-paced,2025-01-01 00:00:00\n"+
			"p1,Live,2025-03-01 00:00:00\n")
	writeFile(t, filepath.Join(c.Paths.ExportsDir, c.Exports.EnrichmentProgress),
		"Enrichment.id,Modified Time\n")

	if err := c.Decisions.Save(Stem(c.Exports.Products), []decision.Decision{
		{CanonicalID: "p1", CanonicalName: "Algebra One", DuplicateID: "p2", DuplicateName: "Algebra 1", Action: decision.ActionMerge},
	}); err != nil {
		t.Fatal(err)
	}

	if err := LoadProducts(c); err != nil {
		t.Fatalf("LoadProducts() error = %v", err)
	}

	out := readOutput(t, c, "Products.csv")
	if len(out.Rows) != 1 {
		t.Fatalf("duplicate product should be dropped, got %d rows", len(out.Rows))
	}
	row := out.Rows[0]
	if row["Record Id"] != "p1" {
		t.Errorf("row = %v", row)
	}
	if row["Product Name"] != "Algebra One" {
		t.Errorf("title casing failed: %q", row["Product Name"])
	}
	if row["Description"] != "Math course" {
		t.Errorf("translation strip failed: %q", row["Description"])
	}
	if row["Format"] != "Live" {
		t.Errorf("latest progress record should fill Format, got %q", row["Format"])
	}
}

func TestLoadCourseEnrollments(t *testing.T) {
	c := newTestContext(t)
	writeFile(t, filepath.Join(c.Paths.ExportsDir, c.Exports.CourseProgress),
		"Accounts,STEM Course.id,STEM Course,Start Date,End Date\n"+
			"Maria Lopez,p2,Algebra 1,2025-06-01,\n"+
			"Tim Ward,p3,Geometry,2025-08-01,2025-12-01\n"+
			"Test Account,p3,Geometry,2025-01-01,2025-02-01\n")

	if err := c.Decisions.Save(Stem(c.Exports.Products), []decision.Decision{
		{CanonicalID: "p1", CanonicalName: "Algebra One", DuplicateID: "p2", DuplicateName: "Algebra 1", Action: decision.ActionMerge},
	}); err != nil {
		t.Fatal(err)
	}

	if err := LoadCourseEnrollments(c); err != nil {
		t.Fatalf("LoadCourseEnrollments() error = %v", err)
	}

	out := readOutput(t, c, "Course_Enrollments.csv")
	if len(out.Rows) != 2 {
		t.Fatalf("test row should be dropped, got %d rows", len(out.Rows))
	}
	first := out.Rows[0]
	if first["Product (Match Key)"] != "Algebra One" {
		t.Errorf("product not canonicalized: %v", first)
	}
	if first["Status"] != "In Progress" {
		t.Errorf("status = %q", first["Status"])
	}
	if out.Rows[1]["Status"] != "Upcoming" {
		t.Errorf("status = %q", out.Rows[1]["Status"])
	}
}

func TestConsolidateGradeColumns(t *testing.T) {
	tbl := table.New("Name", "Grade Value", "Grade Value1")
	tbl.Rows = []table.Row{
		{"Name": "a", "Grade Value": "", "Grade Value1": "7"},
		{"Name": "b", "Grade Value": "5", "Grade Value1": "6"},
	}

	consolidateGradeColumns(tbl)

	if !tbl.HasColumn("Grade Value") || tbl.HasColumn("Grade Value1") {
		t.Fatalf("columns = %v", tbl.Columns)
	}
	if tbl.Rows[0]["Grade Value"] != "7" || tbl.Rows[1]["Grade Value"] != "5" {
		t.Errorf("rows = %v", tbl.Rows)
	}
}

func TestDeriveStatusCompleted(t *testing.T) {
	tbl := table.New("Start Date", "End Date")
	tbl.Rows = []table.Row{
		{"Start Date": "2025-01-01", "End Date": "2025-02-01"},
		{"Start Date": "", "End Date": ""},
	}

	deriveStatus(tbl, time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC))

	if tbl.Rows[0]["Status"] != "Completed" {
		t.Errorf("status = %q", tbl.Rows[0]["Status"])
	}
	if tbl.Rows[1]["Status"] != "" {
		t.Errorf("dateless row should carry no status, got %q", tbl.Rows[1]["Status"])
	}
}

func TestLoadAssociations(t *testing.T) {
	c := newTestContext(t)
	writeFile(t, filepath.Join(c.Paths.ExportsDir, c.Exports.Associations),
		"Star,Schools,Star.id,Schools.id\n"+
			"maria,old school name,st1,sc1\n"+
			"tim,some district,st2,d1\n")

	seed := func(name, keyCol, valCol string, l artifact.Lookup) {
		if err := c.Artifacts.SaveLookup(name, keyCol, valCol, l); err != nil {
			t.Fatal(err)
		}
	}
	seed("star_lookup", "Record Id", "Full Name", artifact.Lookup{"st1": "Maria Lopez"})
	seed("school_lookup", "Record Id", "School Name", artifact.Lookup{"sc1": "Lincoln Elementary School"})
	seed("district_lookup", "Record Id", "Name", artifact.Lookup{"d1": "Keller ISD"})

	if err := LoadAssociations(c); err != nil {
		t.Fatalf("LoadAssociations() error = %v", err)
	}

	out := readOutput(t, c, "School_Star_Associations.csv")
	if len(out.Rows) != 1 {
		t.Fatalf("district row should be removed, got %d rows", len(out.Rows))
	}
	row := out.Rows[0]
	if row["Star (Match Key)"] != "Maria Lopez" {
		t.Errorf("star name not resolved: %v", row)
	}
	if row["School (Match Key)"] != "Lincoln Elementary School" {
		t.Errorf("school name not resolved: %v", row)
	}
}

func TestPipelineOrdering(t *testing.T) {
	c := newTestContext(t)
	order, err := Pipeline(c).Order()
	if err != nil {
		t.Fatalf("Order() error = %v", err)
	}

	pos := make(map[string]int)
	for i, job := range order {
		pos[job.Name] = i
	}
	deps := map[string]string{
		"stars":        "households",
		"mentors":      "contacts",
		"associations": "schools",
		"schools":      "districts",
	}
	for after, before := range deps {
		if pos[after] < pos[before] {
			t.Errorf("%s must run after %s: %v", after, before, pos)
		}
	}
	if pos["associations"] < pos["stars"] || pos["associations"] < pos["districts"] {
		t.Errorf("associations must run last of its producers: %v", pos)
	}
}

func TestRunOneUnknownModule(t *testing.T) {
	c := newTestContext(t)
	if err := RunOne(c, "nonsense"); err == nil {
		t.Error("unknown module key should error")
	}
}
