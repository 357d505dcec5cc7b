package engine

import (
	"strings"

	"github.com/dgallion1/cmcguide/internal/knowledge"
)

// Product family keys used by the guidance tree.
const (
	ProductCellTherapy = "CellTherapy"
	ProductAAV         = "AAV"
	ProductLVV         = "LVV"
	ProductMAb         = "mAb"
)

// Stage keys used by the guidance tree.
const (
	StagePhase1  = "Phase1"
	StagePivotal = "Pivotal"
	StageBLA     = "BLA"
)

// Context is a normalized (product, stage, region) triple.
type Context struct {
	Product string           `json:"product"`
	Stage   string           `json:"stage"`
	Region  knowledge.Region `json:"region"`
}

// Normalize maps selector labels onto tree keys. Empty fields become the
// General wildcard, or Global for the region.
func Normalize(product, stage, region string) Context {
	r := knowledge.ParseRegion(region)
	if r == "" {
		r = knowledge.Global
	}
	return Context{
		Product: NormalizeProduct(product),
		Stage:   NormalizeStage(stage),
		Region:  r,
	}
}

// NormalizeProduct maps labels such as "CAR-T", "TCR-T", "LVV Vector" or
// "Monoclonal Antibody (mAb)" onto product family keys. Unrecognized labels
// pass through trimmed.
func NormalizeProduct(s string) string {
	s = strings.TrimSpace(s)
	l := strings.ToLower(s)
	switch {
	case l == "" || l == "general" || l == "any":
		return knowledge.General
	case strings.Contains(l, "car-t"), strings.Contains(l, "car t"), strings.Contains(l, "cart"),
		strings.Contains(l, "tcr"), strings.Contains(l, "cell"):
		return ProductCellTherapy
	case strings.Contains(l, "aav"):
		return ProductAAV
	case strings.Contains(l, "lvv"), strings.Contains(l, "lenti"):
		return ProductLVV
	case strings.Contains(l, "mab"), strings.Contains(l, "antibod"):
		return ProductMAb
	}
	return s
}

// NormalizeStage maps labels such as "Phase 1", "Phase 2/3 (Pivotal)" or
// "BLA/MAA" onto stage keys. Unrecognized labels pass through trimmed.
func NormalizeStage(s string) string {
	s = strings.TrimSpace(s)
	l := strings.ToLower(s)
	compact := strings.ReplaceAll(l, " ", "")
	switch {
	case l == "" || l == "general" || l == "any":
		return knowledge.General
	case strings.Contains(l, "bla"), strings.Contains(l, "maa"), strings.Contains(l, "commercial"):
		return StageBLA
	case strings.Contains(l, "pivotal"), strings.Contains(compact, "phase2"), strings.Contains(compact, "phase3"):
		return StagePivotal
	case strings.Contains(compact, "phase1"), l == "p1", strings.Contains(l, "early"), strings.Contains(l, "fih"):
		return StagePhase1
	}
	return s
}
