package knowledge

import (
	"fmt"
	"strings"
)

// NoMatch is the final trace entry when every candidate misses.
const NoMatch = "no-match"

// OutcomeKind classifies how a resolve call was satisfied.
type OutcomeKind int

const (
	Miss OutcomeKind = iota
	Hit
	Fallback
)

// LookupOutcome is Hit, Fallback with the tag of the candidate that matched,
// or Miss.
type LookupOutcome struct {
	Kind   OutcomeKind
	Reason string
}

func (o LookupOutcome) String() string {
	switch o.Kind {
	case Hit:
		return "hit"
	case Fallback:
		return "fallback:" + strings.TrimPrefix(o.Reason, "fallback:")
	default:
		return "miss"
	}
}

// MarshalText renders the outcome as "hit", "fallback:<reason>" or "miss".
func (o LookupOutcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// ResolvedBlock is the result of one resolve call. Trace lists every
// candidate tried, in order.
type ResolvedBlock struct {
	Sections Block         `json:"sections"`
	Trace    []string      `json:"trace"`
	Outcome  LookupOutcome `json:"outcome"`
}

// TreeSource hands out the current tree. *Tree and *Cache both satisfy it.
type TreeSource interface {
	Get() *Tree
}

// Resolver walks the fallback chain over a tree.
type Resolver struct {
	src TreeSource
}

func NewResolver(src TreeSource) *Resolver {
	return &Resolver{src: src}
}

type candidate struct {
	product   string
	stage     string
	anyRegion bool
	tag       string
}

// Resolve returns the first non-empty block along the fixed chain:
//
//	(product, stage, region)    exact
//	(product, stage, *)         fallback:any-region
//	(product, General, region)  fallback:general-stage
//	(product, General, *)       fallback:general-stage-any-region
//	(General, stage, region)    fallback:general-product
//	(General, stage, *)         fallback:general-product-any-region
//	(General, General, *)       fallback:general
//
// Tuples already tried are skipped. A wildcard region is filled using
// regionOrder. When nothing matches the block is empty and the trace ends
// with NoMatch.
func (r *Resolver) Resolve(intent, product, stage, region string) ResolvedBlock {
	t := r.src.Get()
	if t == nil {
		t = NewTree()
	}

	chain := []candidate{
		{product, stage, false, "exact"},
		{product, stage, true, "fallback:any-region"},
		{product, General, false, "fallback:general-stage"},
		{product, General, true, "fallback:general-stage-any-region"},
		{General, stage, false, "fallback:general-product"},
		{General, stage, true, "fallback:general-product-any-region"},
		{General, General, true, "fallback:general"},
	}

	var trace []string
	tried := make(map[string]bool, len(chain))
	for _, c := range chain {
		want := region
		if c.anyRegion {
			want = "*"
		}
		key := c.product + "\x00" + c.stage + "\x00" + want
		if tried[key] {
			continue
		}
		tried[key] = true

		if !c.anyRegion {
			if b, ok := t.TryGet(intent, c.product, c.stage, region); ok {
				trace = append(trace, traceEntry(c.product, c.stage, region, c.tag))
				return ResolvedBlock{Sections: b, Trace: trace, Outcome: outcomeFor(c.tag)}
			}
			trace = append(trace, traceEntry(c.product, c.stage, region, "miss"))
			continue
		}

		for _, reg := range regionOrder(t.Regions(intent, c.product, c.stage), region) {
			if b, ok := t.TryGet(intent, c.product, c.stage, reg); ok {
				trace = append(trace, traceEntry(c.product, c.stage, reg, c.tag))
				return ResolvedBlock{Sections: b, Trace: trace, Outcome: outcomeFor(c.tag)}
			}
		}
		trace = append(trace, traceEntry(c.product, c.stage, "*", "miss"))
	}

	trace = append(trace, NoMatch)
	return ResolvedBlock{Trace: trace, Outcome: LookupOutcome{Kind: Miss}}
}

// regionOrder ranks available region keys: the requested region, then the
// canonical regions, then everything else in document order.
func regionOrder(available []string, requested string) []string {
	out := make([]string, 0, len(available))
	seen := make(map[string]bool, len(available))
	has := make(map[string]bool, len(available))
	for _, a := range available {
		has[a] = true
	}
	add := func(k string) {
		if has[k] && !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}

	add(requested)
	for _, c := range CanonicalRegions {
		add(string(c))
	}
	for _, a := range available {
		add(a)
	}
	return out
}

func outcomeFor(tag string) LookupOutcome {
	if tag == "exact" {
		return LookupOutcome{Kind: Hit}
	}
	return LookupOutcome{Kind: Fallback, Reason: tag}
}

func traceEntry(product, stage, region, tag string) string {
	return fmt.Sprintf("%s/%s/%s (%s)", product, stage, region, tag)
}
