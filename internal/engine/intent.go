package engine

import "strings"

// Intent names a top-level key of the guidance tree.
type Intent string

const (
	IntentPotency           Intent = "Potency"
	IntentReportResults     Intent = "ReportResults"
	IntentSpecJustification Intent = "SpecJustification"
	IntentPPQ               Intent = "PPQ"
	IntentModule3           Intent = "Module3"
	IntentStability         Intent = "Stability"
	IntentContainer         Intent = "Container"
	IntentReplication       Intent = "Replication"
	IntentComparability     Intent = "Comparability"
	IntentGeneral           Intent = "General"

	// Supplementary intents consulted on every structured answer.
	intentFundamentals  = "Fundamentals"
	intentRegionContext = "RegionContext"
)

// routes is checked top to bottom; the first rule with a matching keyword
// wins, so earlier intents take precedence.
var routes = []struct {
	intent   Intent
	keywords []string
}{
	{IntentPotency, []string{"potency", "ifn", "ifng", "interferon", "cytokine", "activation", "cytotoxic"}},
	{IntentReportResults, []string{"report result", "report-results", "reporting only", "report-only"}},
	{IntentSpecJustification, []string{"spec", "specification", "acceptance criteria", "limits", "justification"}},
	{IntentPPQ, []string{"ppq", "process performance qualification", "process validation", "pv", "ppq timing"}},
	{IntentModule3, []string{"module 3", "3.2.s", "3.2.p", "ctd"}},
	{IntentStability, []string{"stability", "shelf life", "hold time"}},
	{IntentContainer, []string{"container", "closure", "ccit", "shipping", "cryo", "ln2"}},
	{IntentReplication, []string{"rcl", "rca", "replication", "rcv"}},
	{IntentComparability, []string{"comparab", "bridge", "change"}},
}

// Route picks an intent by case-insensitive substring match against the
// keyword table. Queries matching nothing route to IntentGeneral.
func Route(query string) Intent {
	q := strings.ToLower(query)
	for _, r := range routes {
		for _, k := range r.keywords {
			if strings.Contains(q, k) {
				return r.intent
			}
		}
	}
	return IntentGeneral
}

var intentAliases = map[string]Intent{
	"potency":            IntentPotency,
	"report_results":     IntentReportResults,
	"reportresults":      IntentReportResults,
	"report-results":     IntentReportResults,
	"spec_just":          IntentSpecJustification,
	"spec_justification": IntentSpecJustification,
	"specjustification":  IntentSpecJustification,
	"ppq":                IntentPPQ,
	"module3":            IntentModule3,
	"module_3":           IntentModule3,
	"stability":          IntentStability,
	"container":          IntentContainer,
	"replication":        IntentReplication,
	"comparability":      IntentComparability,
	"general":            IntentGeneral,
}

// ParseIntent accepts an intent key in any case, or one of the router's
// snake_case names. Unknown names report false.
func ParseIntent(s string) (Intent, bool) {
	in, ok := intentAliases[strings.ToLower(strings.TrimSpace(s))]
	return in, ok
}
