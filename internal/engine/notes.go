package engine

import (
	"strings"

	"github.com/dgallion1/cmcguide/internal/answer"
	"github.com/dgallion1/cmcguide/internal/knowledge"
)

var (
	generalFraming = answer.Section{
		Title: "General framing",
		Bullets: []string{
			"Answer depends on product, phase, and MoA linkage. Provide **scientific rationale**, align with **phase expectations**, and document a **path to increasing rigor**.",
		},
	}

	ifnNote = answer.Section{
		Title: "Note on IFN-γ/secretion",
		Bullets: []string{
			"IFN-γ can contribute to a **multiparameter potency concept**, but relying on a single marker is risky without MoA linkage and orthogonal support.",
		},
	}

	disclaimer = answer.Section{
		Title: "Disclaimer",
		Bullets: []string{
			"This tool provides **illustrative, non-binding** guidance based on common patterns. It is **not** regulatory advice. " +
				"Decisions should be made with internal CMC/RA leadership and formal interactions with authorities as needed.",
		},
	}

	noResult = answer.Section{
		Title: "No relevant result",
		Bullets: []string{
			"Nothing in the reference documents matched this question closely enough to cite. Try naming the assay, attribute or guidance you have in mind.",
		},
	}
)

var interferonTerms = []string{"ifn", "ifng", "interferon"}

func mentionsInterferon(query string) bool {
	q := strings.ToLower(query)
	for _, t := range interferonTerms {
		if strings.Contains(q, t) {
			return true
		}
	}
	return false
}

// toSections converts a resolved block into renderable sections.
func toSections(b knowledge.Block) []answer.Section {
	out := make([]answer.Section, 0, len(b))
	for _, s := range b {
		if len(s.Items) == 0 {
			continue
		}
		out = append(out, answer.Section{Title: s.Name, Bullets: append([]string(nil), s.Items...)})
	}
	return out
}
