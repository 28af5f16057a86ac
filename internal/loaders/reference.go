package loaders

import (
	"fmt"
	"strings"

	"github.com/nms-crm/internal/normalize"
	"github.com/nms-crm/internal/refmatch"
)

// StateNames expands USPS state abbreviations to full names. The private
// school extract carries abbreviations while the rest of the reference data
// spells states out.
var StateNames = map[string]string{
	"AL": "Alabama", "AK": "Alaska", "AZ": "Arizona", "AR": "Arkansas",
	"CA": "California", "CO": "Colorado", "CT": "Connecticut", "DE": "Delaware",
	"FL": "Florida", "GA": "Georgia", "HI": "Hawaii", "ID": "Idaho",
	"IL": "Illinois", "IN": "Indiana", "IA": "Iowa", "KS": "Kansas",
	"KY": "Kentucky", "LA": "Louisiana", "ME": "Maine", "MD": "Maryland",
	"MA": "Massachusetts", "MI": "Michigan", "MN": "Minnesota", "MS": "Mississippi",
	"MO": "Missouri", "MT": "Montana", "NE": "Nebraska", "NV": "Nevada",
	"NH": "New Hampshire", "NJ": "New Jersey", "NM": "New Mexico", "NY": "New York",
	"NC": "North Carolina", "ND": "North Dakota", "OH": "Ohio", "OK": "Oklahoma",
	"OR": "Oregon", "PA": "Pennsylvania", "RI": "Rhode Island", "SC": "South Carolina",
	"SD": "South Dakota", "TN": "Tennessee", "TX": "Texas", "UT": "Utah",
	"VT": "Vermont", "VA": "Virginia", "WA": "Washington", "WV": "West Virginia",
	"WI": "Wisconsin", "WY": "Wyoming", "DC": "District of Columbia",
}

// Column maps from the NCES public school extract to our field names.
var publicSchoolColumns = map[string]string{
	"School Name [Public School] 2023-24":                                          "NCES Name",
	"School ID (12-digit) - NCES Assigned [Public School] Latest available year":   "NCES ID",
	"State Name [Public School] 2023-24":                                           "State",
	"Phone Number [Public School] 2023-24":                                         "Phone",
	"Charter School [Public School] 2023-24":                                       "Charter Status",
	"Locale [Public School] 2023-24":                                               "Setting",
	"School Level (SY 2017-18 onward) [Public School] 2023-24":                     "Grades Served",
	"Total Students All Grades (Excludes AE) [Public School] 2023-24":              "Size",
	"Location Address 1 [Public School] 2023-24":                                   "Street",
	"Location City [Public School] 2023-24":                                        "City",
	"Location ZIP [Public School] 2023-24":                                         "Zip Code",
	"Web Site URL [Public School] 2023-24":                                         "Website",
	"Agency ID - NCES Assigned [Public School] Latest available year":              "District (Match Key)",
}

// Column maps from the NCES private school universe survey.
var privateSchoolColumns = map[string]string{
	"PINST":     "NCES Name",
	"PPIN":      "NCES ID",
	"PSTABB":    "State",
	"PPHONE":    "Phone",
	"ULOCALE22": "Setting",
	"LEVEL":     "Grades Served",
	"NUMSTUDS":  "Size",
	"PADDRS":    "Street",
	"PCITY":     "City",
	"PZIP":      "Zip Code",
}

var privateGrades = map[string]string{
	"1": "Elementary",
	"2": "Secondary",
	"3": "Combined elementary and secondary",
}

// Fields overwritten on school records when a reference match succeeds.
var SchoolEnrichFields = []string{
	"School Name", "NCES ID", "Street", "City", "State", "Zip Code",
	"Phone", "Website", "Type", "District (Match Key)", "Setting", "Size",
	"Grades Served",
}

// Fields overwritten on district records when a reference match succeeds.
var DistrictEnrichFields = []string{
	"Name", "NCES ID", "Street", "City", "State", "Zip Code",
	"Phone", "Website", "Type",
}

// LoadSchoolReference builds the combined public and private school
// reference set from the two NCES extracts.
func (c *Context) LoadSchoolReference() ([]refmatch.Entity, error) {
	pub, err := c.ReadReference(c.Reference.PublicSchools)
	if err != nil {
		return nil, fmt.Errorf("public school reference: %w", err)
	}

	var entities []refmatch.Entity
	for _, row := range pub.Rows {
		fields := make(map[string]string, len(SchoolEnrichFields))
		for src, dst := range publicSchoolColumns {
			fields[dst] = row[src]
		}
		fields["NCES ID"] = normalize.CleanPublicNCESID(fields["NCES ID"])
		fields["State"] = normalize.TitleCase(fields["State"])
		switch fields["Charter Status"] {
		case "1-Yes":
			fields["Type"] = "Charter"
		case "2-No":
			fields["Type"] = "Regular"
		}
		delete(fields, "Charter Status")
		// The public extract uses a dagger for unavailable websites.
		if fields["Website"] == "†" {
			fields["Website"] = ""
		}
		name := fields["NCES Name"]
		fields["School Name"] = name
		delete(fields, "NCES Name")
		entities = append(entities, refmatch.Entity{
			ID:       fields["NCES ID"],
			Name:     name,
			NormName: normalize.Name(name),
			Category: "Public",
			Region:   fields["State"],
			Fields:   fields,
		})
	}

	priv, err := c.ReadReference(c.Reference.PrivateSchool)
	if err != nil {
		return nil, fmt.Errorf("private school reference: %w", err)
	}
	for _, row := range priv.Rows {
		fields := make(map[string]string, len(SchoolEnrichFields))
		for src, dst := range privateSchoolColumns {
			fields[dst] = row[src]
		}
		fields["State"] = StateNames[strings.ToUpper(fields["State"])]
		fields["Grades Served"] = privateGrades[fields["Grades Served"]]
		fields["Type"] = "Private"
		name := fields["NCES Name"]
		fields["School Name"] = name
		delete(fields, "NCES Name")
		entities = append(entities, refmatch.Entity{
			ID:       fields["NCES ID"],
			Name:     name,
			NormName: normalize.Name(name),
			Category: "Private",
			Region:   fields["State"],
			Fields:   fields,
		})
	}

	return entities, nil
}

// LoadDistrictReference builds the district reference set from the NCES
// Common Core of Data local education agency file.
func (c *Context) LoadDistrictReference() ([]refmatch.Entity, error) {
	ccd, err := c.ReadReference(c.Reference.CCD)
	if err != nil {
		return nil, fmt.Errorf("ccd reference: %w", err)
	}

	norm := normalize.NewNormalizer(normalize.DistrictDesignators...)

	var entities []refmatch.Entity
	for _, row := range ccd.Rows {
		name := row["LEA_NAME"]
		state := normalize.TitleCase(row["STATENAME"])
		// Agency types carry a trailing qualifier not useful for display.
		leaType := row["LEA_TYPE_TEXT"]
		if i := strings.Index(leaType, " that is not a component"); i >= 0 {
			leaType = leaType[:i]
		}
		entities = append(entities, refmatch.Entity{
			ID:       normalize.CleanLEAID(row["LEAID"]),
			Name:     name,
			NormName: norm.Name(name),
			Region:   state,
			Fields: map[string]string{
				"Name":     name,
				"NCES ID":  normalize.CleanLEAID(row["LEAID"]),
				"State":    state,
				"Street":   row["MSTREET1"],
				"City":     row["MCITY"],
				"Zip Code": row["MZIP"],
				"Phone":    row["PHONE"],
				"Website":  row["WEBSITE"],
				"Type":     leaType,
			},
		})
	}
	return entities, nil
}
