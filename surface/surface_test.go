package surface

import (
	"testing"

	"github.com/paulmach/orb/geojson"
)

func props(kv ...string) geojson.Properties {
	p := geojson.Properties{}
	for i := 0; i < len(kv); i += 2 {
		p[kv[i]] = kv[i+1]
	}
	return p
}

func TestClassifyFirstMatchWins(t *testing.T) {
	// "quasi-industrial" contains "industrial"; the specific rule must win.
	class, label := Classify(props("use", "Quasi-Industrial District"))
	if class != ClassIndustrial {
		t.Errorf("class = %q", class)
	}
	if label != "Quasi-industrial district" {
		t.Errorf("label = %q, generic industrial rule matched first", label)
	}
}

func TestClassifyCaseInsensitive(t *testing.T) {
	for _, use := range []string{"RESIDENTIAL", "residential", "Residential zone"} {
		if class, _ := Classify(props("use", use)); class != ClassResidential {
			t.Errorf("Classify(%q) class = %q, want residential", use, class)
		}
	}
}

func TestClassifyTable(t *testing.T) {
	cases := []struct {
		in    geojson.Properties
		class Class
		label string
	}{
		{props("use", "Category I low-rise residential"), ClassResidential, "Low-rise residential district"},
		{props("designation", "Neighborhood Commercial"), ClassCommercial, "Neighborhood commercial district"},
		{props("type", "Tsunami inundation assumption"), ClassHazard, "Tsunami inundation advisory area"},
		{props("name", "Wajima fishing port"), ClassPort, "Fishing port zone"},
		{props("use", "agriculture promotion"), ClassAgricultural, "Agricultural promotion area"},
		{props("use", "scenic preservation"), ClassOther, OtherLabel},
		{props(), ClassOther, OtherLabel},
	}
	for _, tc := range cases {
		class, label := Classify(tc.in)
		if class != tc.class || label != tc.label {
			t.Errorf("Classify(%v) = (%q, %q), want (%q, %q)", tc.in, class, label, tc.class, tc.label)
		}
	}
}

func TestClassifyDeterministic(t *testing.T) {
	p := props("use", "port area", "name", "industrial port")
	c1, l1 := Classify(p)
	for i := 0; i < 100; i++ {
		c2, l2 := Classify(p)
		if c1 != c2 || l1 != l2 {
			t.Fatalf("classification flapped: (%q,%q) then (%q,%q)", c1, l1, c2, l2)
		}
	}
}
