package regions

import (
	"strings"
	"testing"
)

func TestLoadRegions_ParsesAndSorts(t *testing.T) {
	input := strings.NewReader(`
# comment
USA|Texas
USA|California
Canada|Ontario
USA|Texas
`)
	regions, err := LoadRegions(input)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got := regions["USA"]; len(got) != 2 || got[0] != "California" || got[1] != "Texas" {
		t.Fatalf("unexpected USA states: %#v", got)
	}
	if got := regions["Canada"]; len(got) != 1 {
		t.Fatalf("unexpected Canada states: %#v", got)
	}
}

func TestLoadRegions_RejectsMalformedLines(t *testing.T) {
	if _, err := LoadRegions(strings.NewReader("just-a-country")); err == nil {
		t.Fatal("expected error for line without separator")
	}
	if _, err := LoadRegions(strings.NewReader("USA|")); err == nil {
		t.Fatal("expected error for empty state")
	}
}

func TestDefaultRegions_EmbeddedDatasetLoads(t *testing.T) {
	regions, err := DefaultRegions()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(regions["USA"]) != 50 {
		t.Fatalf("expected 50 US states, got %d", len(regions["USA"]))
	}
	if len(Countries(regions)) < 3 {
		t.Fatalf("unexpected country count: %d", len(Countries(regions)))
	}
}

func TestStatesFor_ReturnsCopy(t *testing.T) {
	regions := map[string][]string{"USA": {"Texas"}}
	got := StatesFor(regions, "USA")
	got[0] = "mutated"
	if regions["USA"][0] != "Texas" {
		t.Fatal("StatesFor leaked the backing slice")
	}
}
