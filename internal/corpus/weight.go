package corpus

import "strings"

// InformalWeight is applied to documents whose title or publisher signals
// secondary provenance.
const InformalWeight = 0.6

var informalSignals = []string{
	"inspection",
	"enforcement",
	"warning letter",
	"483",
	"theme",
	"observation",
	"newsletter",
	"blog",
	"summary of findings",
}

// Weight returns the provenance weight of a record, always within (0, 1].
// An explicit weight wins over the title/publisher heuristic.
func Weight(r Record) float64 {
	if r.Weight > 0 {
		if r.Weight > 1 {
			return 1
		}
		return r.Weight
	}
	probe := strings.ToLower(r.Title + " " + r.Publisher)
	for _, s := range informalSignals {
		if strings.Contains(probe, s) {
			return InformalWeight
		}
	}
	return 1.0
}
