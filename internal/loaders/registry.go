package loaders

import (
	"fmt"
	"sort"

	"github.com/nms-crm/internal/artifact"
	"github.com/nms-crm/internal/debug"
)

// Loader is one registered module loader.
type Loader struct {
	Key         string
	Description string
	Consumes    []string
	Produces    []string
	Run         func(*Context) error
}

// Registry lists every module loader. Consumes and Produces declare the
// cache artifacts linking loaders; product_decisions comes from the
// interactive review command, not from a loader.
func Registry() []Loader {
	return []Loader{
		{
			Key:         "households",
			Description: "Household records from Star accounts",
			Produces:    []string{"household_lookup"},
			Run:         LoadHouseholds,
		},
		{
			Key:         "stars",
			Description: "Star records linked to households",
			Consumes:    []string{"household_lookup"},
			Produces:    []string{"star_lookup"},
			Run:         LoadStars,
		},
		{
			Key:         "schools",
			Description: "School records enriched from NCES extracts",
			Consumes:    []string{"district_lookup"},
			Produces:    []string{"school_lookup"},
			Run:         LoadSchools,
		},
		{
			Key:         "districts",
			Description: "District records enriched from the CCD",
			Produces:    []string{"district_lookup"},
			Run:         LoadDistricts,
		},
		{
			Key:         "contacts",
			Description: "Guardian, emergency and legacy contacts",
			Produces:    []string{"math_mentors_names"},
			Run:         LoadContacts,
		},
		{
			Key:         "mentors",
			Description: "Mentor records from the contacts cache",
			Consumes:    []string{"math_mentors_names"},
			Run:         LoadMentors,
		},
		{
			Key:         "partners",
			Description: "Partner records, straight mapping",
			Run:         LoadPartners,
		},
		{
			Key:         "products",
			Description: "Products merged with STEM progress data",
			Consumes:    []string{"product_decisions"},
			Run:         LoadProducts,
		},
		{
			Key:         "course-enrollments",
			Description: "Course enrollments from STEM course progress",
			Consumes:    []string{"product_decisions"},
			Run:         LoadCourseEnrollments,
		},
		{
			Key:         "enrichment-enrollments",
			Description: "Enrichment enrollments from STEM enrichment progress",
			Consumes:    []string{"product_decisions"},
			Run:         LoadEnrichmentEnrollments,
		},
		{
			Key:         "associations",
			Description: "School-star associations with resolved names",
			Consumes:    []string{"star_lookup", "school_lookup", "district_lookup"},
			Run:         LoadAssociations,
		},
	}
}

// Get returns the loader registered under key.
func Get(key string) (Loader, bool) {
	for _, l := range Registry() {
		if l.Key == key {
			return l, true
		}
	}
	return Loader{}, false
}

// Keys returns all registered loader keys, sorted.
func Keys() []string {
	var keys []string
	for _, l := range Registry() {
		keys = append(keys, l.Key)
	}
	sort.Strings(keys)
	return keys
}

// Pipeline builds a dependency-ordered pipeline over every loader.
func Pipeline(c *Context) *artifact.Pipeline {
	var p artifact.Pipeline
	for _, l := range Registry() {
		l := l
		p.Add(artifact.Job{
			Name:     l.Key,
			Consumes: l.Consumes,
			Produces: l.Produces,
			Run:      func() error { return l.Run(c) },
		})
	}
	return &p
}

// RunOne executes a single loader by key.
func RunOne(c *Context, key string) error {
	loader, ok := Get(key)
	if !ok {
		return fmt.Errorf("unknown module %q, valid modules: %v", key, Keys())
	}
	debug.Header(c.Debug)
	defer debug.Footer(c.Debug)
	return loader.Run(c)
}
