package knowledge

import (
	"strings"
	"sync"
)

// Region is a regulatory region. US, EU and Global are the known values;
// other strings pass through so trees can carry new regions.
type Region string

const (
	US     Region = "US"
	EU     Region = "EU"
	Global Region = "Global"
)

// CanonicalRegions is the preference order used when any region will do.
var CanonicalRegions = []Region{US, EU, Global}

var regionAliases = map[string]Region{
	"us":     US,
	"usa":    US,
	"fda":    US,
	"eu":     EU,
	"ema":    EU,
	"europe": EU,
	"global": Global,
	"ich":    Global,
	"row":    Global,
}

// ParseRegion maps selector labels such as "US (FDA-centric)" or
// "Global (general)" onto a Region. Matching uses the first word and is
// case-insensitive. Unknown labels are returned trimmed.
func ParseRegion(s string) Region {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '(' || r == '/' || r == ','
	})
	if len(fields) == 0 {
		return Region(s)
	}
	if r, ok := regionAliases[strings.ToLower(fields[0])]; ok {
		return r
	}
	return Region(s)
}

// Known reports whether r is one of the canonical regions.
func (r Region) Known() bool {
	for _, c := range CanonicalRegions {
		if r == c {
			return true
		}
	}
	return false
}

// Counterpart is the region a wider answer also consults: US and EU pair
// with each other, everything else pairs with US.
func (r Region) Counterpart() Region {
	switch r {
	case US:
		return EU
	case EU:
		return US
	default:
		return US
	}
}

// Section names the guidance tree is expected to use. Trees may use other
// names; the loader warns about them.
var (
	sectionMu sync.RWMutex
	sections  = map[string]bool{
		"Guidance Summary":              true,
		"What reviewers look for":       true,
		"Common pitfalls":               true,
		"Suggested next steps":          true,
		"What to document":              true,
		"Pitfalls":                      true,
		"Path forward":                  true,
		"Specification justification":   true,
		"Build a justification package": true,
		"Next steps":                    true,
		"PPQ / Process Validation":      true,
		"What to prepare":               true,
		"Module 3 mapping":              true,
		"Where content typically lives": true,
		"Stability expectations":        true,
		"Container/closure & shipping":  true,
		"Replication-competent virus":   true,
		"Comparability & changes":       true,
		"Cell therapy fundamentals":     true,
		"Viral vector fundamentals":     true,
		"mAb fundamentals":              true,
		"Phase context":                 true,
		"Region context":                true,
		"Checklist":                     true,
		"Key considerations":            true,
	}
)

// KnownSection reports whether name is a registered section name.
func KnownSection(name string) bool {
	sectionMu.RLock()
	defer sectionMu.RUnlock()
	return sections[name]
}

// RegisterSection adds a section name to the registry.
func RegisterSection(name string) {
	sectionMu.Lock()
	sections[name] = true
	sectionMu.Unlock()
}
