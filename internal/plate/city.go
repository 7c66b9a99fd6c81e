package plate

import (
	_ "embed"
	"encoding/json"
	"fmt"
)

//go:embed data/cities.json
var citiesJSON []byte

// cityCodes narrows a region code down to a city or regency using the first
// letter of the suffix.
type cityCodes struct {
	Default string            `json:"default"`
	Suffix  map[string]string `json:"suffix"`
}

var cities = mustLoadCities(citiesJSON)

func mustLoadCities(raw []byte) map[string]cityCodes {
	var m map[string]cityCodes
	if err := json.Unmarshal(raw, &m); err != nil {
		panic(fmt.Sprintf("plate: invalid embedded city table: %v", err))
	}
	return m
}

// ResolveCity returns the city registered for the plate's region code and
// suffix letter, falling back to the region's general area name. The bool is
// false when the region code has no city data.
func ResolveCity(p Parsed) (string, bool) {
	codes, ok := cities[p.RegionCode]
	if !ok {
		return "", false
	}
	if p.Suffix != "" {
		if city, ok := codes.Suffix[p.Suffix[:1]]; ok {
			return city, true
		}
	}
	return codes.Default, codes.Default != ""
}
