// Package surface classifies raw overlay-feature attributes into a small
// closed set of surface categories, so styling and grouping downstream
// never fan out over upstream attribute soup.
//
// Classification is substring matching against an ordered rule list,
// first match wins. Order is load-bearing: a more specific phrase
// ("quasi-industrial") must be tried before a broader one that is its
// substring ("industrial"). The rules live in a slice, never a map.
package surface

import (
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/paulmach/orb/geojson"
)

// Class is a surface category tag. Closed set; collaborators switch on it.
type Class string

const (
	ClassResidential  Class = "residential"
	ClassCommercial   Class = "commercial"
	ClassIndustrial   Class = "industrial"
	ClassAgricultural Class = "agricultural"
	ClassPort         Class = "port"
	ClassHazard       Class = "hazard"
	ClassOther        Class = "other"
)

// OtherLabel is the generic label for features no rule matches.
const OtherLabel = "Designated area"

type rule struct {
	substr string
	class  Class
	label  string
}

// Ordered. Specific phrases before their broader substrings.
var rules = []rule{
	{"quasi-industrial", ClassIndustrial, "Quasi-industrial district"},
	{"exclusive industrial", ClassIndustrial, "Exclusive industrial district"},
	{"industrial", ClassIndustrial, "Industrial district"},
	{"neighborhood commercial", ClassCommercial, "Neighborhood commercial district"},
	{"commercial", ClassCommercial, "Commercial district"},
	{"low-rise residential", ClassResidential, "Low-rise residential district"},
	{"quasi-residential", ClassResidential, "Quasi-residential district"},
	{"residential", ClassResidential, "Residential district"},
	{"agricultur", ClassAgricultural, "Agricultural promotion area"},
	{"paddy", ClassAgricultural, "Agricultural promotion area"},
	{"fishing port", ClassPort, "Fishing port zone"},
	{"port", ClassPort, "Port and harbor zone"},
	{"tsunami", ClassHazard, "Tsunami inundation advisory area"},
	{"landslide", ClassHazard, "Landslide advisory area"},
	{"sediment", ClassHazard, "Sediment disaster advisory area"},
	{"flood", ClassHazard, "Flood assumption advisory area"},
	{"liquefaction", ClassHazard, "Liquefaction advisory area"},
}

// Attribute keys probed, in order, for classifiable text.
var textKeys = []string{"use", "designation", "type", "category", "name"}

// memo caches classifications by the extracted attribute text. Upstream
// tiles repeat the same designation strings thousands of times.
var memo, _ = lru.New[string, [2]string](4096)

// Classify maps raw feature attributes to a (class, label) pair.
// Matching is case-insensitive, deterministic, first-rule-wins.
func Classify(props geojson.Properties) (Class, string) {
	text := attributeText(props)
	if text == "" {
		return ClassOther, OtherLabel
	}
	if hit, ok := memo.Get(text); ok {
		return Class(hit[0]), hit[1]
	}
	class, label := classifyText(text)
	memo.Add(text, [2]string{string(class), label})
	return class, label
}

func classifyText(text string) (Class, string) {
	lowered := strings.ToLower(text)
	for _, r := range rules {
		if strings.Contains(lowered, r.substr) {
			return r.class, r.label
		}
	}
	return ClassOther, OtherLabel
}

func attributeText(props geojson.Properties) string {
	parts := make([]string, 0, len(textKeys))
	for _, k := range textKeys {
		if v := props.MustString(k, ""); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " ")
}
