package decision

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nms-crm/internal/table"
)

func sampleDecisions() []Decision {
	return []Decision{
		{CanonicalID: "p1", CanonicalName: "Algebra I", DuplicateID: "p2", DuplicateName: "Algebra 1", Action: ActionMerge},
		{CanonicalID: "p1", CanonicalName: "Algebra I", DuplicateID: "p3", DuplicateName: "algebra one", Action: ActionMerge},
	}
}

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())

	if err := store.Save("Products_2025_06_27", sampleDecisions()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Load("Products_2025_06_27")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Load() returned %d decisions, want 2", len(got))
	}
	if got[1].DuplicateID != "p3" || got[1].Action != ActionMerge {
		t.Errorf("round trip lost data: %+v", got[1])
	}
}

func TestStoreSaveLeavesNoTempFile(t *testing.T) {
	store := NewStore(t.TempDir())
	if err := store.Save("stem", sampleDecisions()); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(store.Dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
	if _, err := os.Stat(filepath.Join(store.Dir, "decisions_stem.csv")); err != nil {
		t.Errorf("cache file missing: %v", err)
	}
}

func TestStoreLoadMissingIsEmpty(t *testing.T) {
	store := NewStore(t.TempDir())
	got, err := store.Load("never_reviewed")
	if err != nil {
		t.Fatalf("missing cache should not error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("missing cache should yield no decisions, got %+v", got)
	}
}

func TestValidateRejectsChains(t *testing.T) {
	chained := []Decision{
		{CanonicalID: "b", DuplicateID: "a", Action: ActionMerge},
		{CanonicalID: "c", DuplicateID: "b", Action: ActionMerge},
	}
	if err := Validate(chained); err == nil {
		t.Error("transitive chain should be rejected")
	}
	if err := Validate(sampleDecisions()); err != nil {
		t.Errorf("flat decision set rejected: %v", err)
	}
}

func TestRemapApply(t *testing.T) {
	r := BuildRemap(sampleDecisions())

	tbl := table.New("Product Id", "Product Name")
	tbl.Rows = []table.Row{
		{"Product Id": "p2", "Product Name": "Algebra 1"},
		{"Product Id": "p4", "Product Name": "Geometry"},
	}

	r.ApplyIDs(tbl, "Product Id")
	if tbl.Rows[0]["Product Id"] != "p1" {
		t.Errorf("duplicate id not remapped: %v", tbl.Rows[0])
	}
	if tbl.Rows[1]["Product Id"] != "p4" {
		t.Errorf("unmapped id changed: %v", tbl.Rows[1])
	}

	r.ApplyNames(tbl, "Product Id", "Product Name")
	if tbl.Rows[0]["Product Name"] != "Algebra I" {
		t.Errorf("name not canonicalized: %v", tbl.Rows[0])
	}
	if tbl.Rows[1]["Product Name"] != "Geometry" {
		t.Errorf("fallback name lost: %v", tbl.Rows[1])
	}
}

func TestRemapIgnoresNonMerge(t *testing.T) {
	r := BuildRemap([]Decision{
		{CanonicalID: "x", DuplicateID: "y", Action: "SKIP"},
	})
	if !r.Empty() {
		t.Errorf("non-merge decisions should not build a remap: %+v", r)
	}
}

func TestDuplicateIDs(t *testing.T) {
	ids := DuplicateIDs(sampleDecisions())
	if !ids["p2"] || !ids["p3"] || ids["p1"] {
		t.Errorf("DuplicateIDs = %v", ids)
	}
}
