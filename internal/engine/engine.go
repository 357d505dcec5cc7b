// Package engine answers guidance questions: it routes the query to an
// intent, resolves structured guidance for the normalized context, and falls
// back to cited retrieval over the reference documents.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"github.com/dgallion1/cmcguide/internal/answer"
	"github.com/dgallion1/cmcguide/internal/knowledge"
	"github.com/dgallion1/cmcguide/internal/retrieval"
)

var (
	ErrEmptyQuery     = errors.New("empty query")
	ErrInvalidRequest = errors.New("invalid request")
)

// Mode selects which paths Ask may take.
type Mode string

const (
	ModeAuto       Mode = "auto"
	ModeStructured Mode = "structured"
	ModeOpenText   Mode = "open-text"
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeAuto, nil
	case ModeAuto, ModeStructured, ModeOpenText:
		return m, nil
	case "open", "opentext", "open_text", "retrieval":
		return ModeOpenText, nil
	}
	return "", fmt.Errorf("%w: unknown mode %q", ErrInvalidRequest, s)
}

// Detail widens the structured answer. Standard also consults the
// counterpart region; Deep adds the general guidance for the intent.
type Detail string

const (
	DetailBrief    Detail = "brief"
	DetailStandard Detail = "standard"
	DetailDeep     Detail = "deep"
)

func ParseDetail(s string) (Detail, error) {
	switch d := Detail(strings.ToLower(strings.TrimSpace(s))); d {
	case DetailBrief, DetailStandard, DetailDeep:
		return d, nil
	}
	return "", fmt.Errorf("%w: unknown detail %q", ErrInvalidRequest, s)
}

// Where the body of a response came from.
const (
	OriginStructured = "structured"
	OriginRetrieval  = "retrieval"
	OriginDefault    = "default"
)

type Request struct {
	Query   string   `json:"query"`
	Product string   `json:"product,omitempty"`
	Stage   string   `json:"stage,omitempty"`
	Region  string   `json:"region,omitempty"`
	Intent  string   `json:"intent,omitempty"`
	Detail  string   `json:"detail,omitempty"`
	Mode    string   `json:"mode,omitempty"`
	K       int      `json:"k,omitempty"`
	Lambda  *float64 `json:"lambda,omitempty"`
	HTML    bool     `json:"html,omitempty"`
}

// Trace records one resolve call made while answering.
type Trace struct {
	Intent  string                  `json:"intent"`
	Context Context                 `json:"context"`
	Steps   []string                `json:"steps"`
	Outcome knowledge.LookupOutcome `json:"outcome"`
}

type Response struct {
	Query    string           `json:"query"`
	Intent   Intent           `json:"intent"`
	Context  Context          `json:"context"`
	Mode     Mode             `json:"mode"`
	Detail   Detail           `json:"detail"`
	Origin   string           `json:"origin"`
	Sections []answer.Section `json:"sections"`
	Markdown string           `json:"markdown"`
	HTML     string           `json:"html,omitempty"`
	Traces   []Trace          `json:"traces,omitempty"`
	Sources  []answer.Source  `json:"sources,omitempty"`
	NoMatch  bool             `json:"no_match"`
	Reason   string           `json:"reason,omitempty"`
	IndexID  string           `json:"index_id,omitempty"`
	Cached   bool             `json:"cached"`
}

// TreeSource is the guidance tree holder. *knowledge.Cache satisfies it.
type TreeSource interface {
	knowledge.TreeSource
	Version() uint64
}

// IndexSource is the retrieval index holder. *retrieval.Store satisfies it.
type IndexSource interface {
	Current() *retrieval.Index
	EnsureLoaded() (*retrieval.Index, error)
}

// Recorder receives the latency of every Ask call.
type Recorder interface {
	Record(durationMs int64)
}

type Options struct {
	Detail    Detail
	TopK      int
	Lambda    float64
	Pool      int
	Answer    answer.Options
	CacheSize int
	Stats     Recorder
}

func DefaultOptions() Options {
	return Options{
		Detail:    DetailStandard,
		TopK:      6,
		Lambda:    0.7,
		Pool:      retrieval.DefaultPool,
		Answer:    answer.DefaultOptions(),
		CacheSize: 256,
	}
}

type Engine struct {
	tree     TreeSource
	resolver *knowledge.Resolver
	index    IndexSource
	opts     Options
	cache    *lru.Cache
	log      *slog.Logger
}

func New(tree TreeSource, index IndexSource, opts Options, log *slog.Logger) (*Engine, error) {
	if log == nil {
		log = slog.Default()
	}
	if opts.Detail == "" {
		opts.Detail = DetailStandard
	}
	if opts.TopK <= 0 {
		opts.TopK = 6
	}
	if opts.Pool <= 0 {
		opts.Pool = retrieval.DefaultPool
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 256
	}
	cache, err := lru.New(opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("answer cache: %w", err)
	}
	return &Engine{
		tree:     tree,
		resolver: knowledge.NewResolver(tree),
		index:    index,
		opts:     opts,
		cache:    cache,
		log:      log,
	}, nil
}

// Purge empties the answer cache. Call it after the tree or index changes;
// keys already carry both versions, so this only frees memory early.
func (e *Engine) Purge() {
	e.cache.Purge()
}

// CacheLen reports the number of cached answers.
func (e *Engine) CacheLen() int {
	return e.cache.Len()
}

// Resolve normalizes the context and runs one fallback lookup.
func (e *Engine) Resolve(intent, product, stage, region string) (knowledge.ResolvedBlock, Context) {
	c := Normalize(product, stage, region)
	if in, ok := ParseIntent(intent); ok {
		intent = string(in)
	}
	return e.resolver.Resolve(intent, c.Product, c.Stage, string(c.Region)), c
}

// Retrieve runs the open-text path alone. Nothing relevant, and an index
// that cannot be loaded, both come back as errors wrapping answer.ErrNoMatch.
func (e *Engine) Retrieve(ctx context.Context, query string, k int, lambda float64) (*answer.Answer, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, "", ErrEmptyQuery
	}
	if k <= 0 {
		k = e.opts.TopK
	}
	idx, err := e.index.EnsureLoaded()
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", answer.ErrNoMatch, err)
	}
	sel := idx.Retrieve(query, k, lambda, e.opts.Pool)
	ans, err := answer.Synthesize(query, sel, idx.Links, e.opts.Answer)
	return ans, idx.ID, err
}

// Ask answers one question. Only malformed requests and cancellation are
// errors; a question nothing matches still gets a response.
func (e *Engine) Ask(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	defer func() {
		if e.opts.Stats != nil {
			e.opts.Stats.Record(time.Since(start).Milliseconds())
		}
	}()

	query := strings.TrimSpace(req.Query)
	intent, explicit := ParseIntent(req.Intent)
	if strings.TrimSpace(req.Intent) != "" && !explicit {
		return nil, fmt.Errorf("%w: unknown intent %q", ErrInvalidRequest, req.Intent)
	}
	if query == "" && !explicit {
		return nil, ErrEmptyQuery
	}
	if !explicit {
		intent = Route(query)
	}

	mode, err := ParseMode(req.Mode)
	if err != nil {
		return nil, err
	}
	if mode == ModeOpenText && query == "" {
		return nil, ErrEmptyQuery
	}
	detail := e.opts.Detail
	if req.Detail != "" {
		if detail, err = ParseDetail(req.Detail); err != nil {
			return nil, err
		}
	}
	k := e.opts.TopK
	if req.K < 0 {
		return nil, fmt.Errorf("%w: k must not be negative", ErrInvalidRequest)
	}
	if req.K > 0 {
		k = req.K
	}
	lambda := e.opts.Lambda
	if req.Lambda != nil {
		if *req.Lambda < 0 || *req.Lambda > 1 {
			return nil, fmt.Errorf("%w: lambda must be within [0,1]", ErrInvalidRequest)
		}
		lambda = *req.Lambda
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := Normalize(req.Product, req.Stage, req.Region)
	// Load both sources first so the key carries their real versions.
	e.tree.Get()
	indexID := ""
	if idx, err := e.index.EnsureLoaded(); err == nil {
		indexID = idx.ID
	}
	key := strings.Join([]string{
		strings.ToLower(query), string(intent), c.Product, c.Stage, string(c.Region),
		string(detail), string(mode), strconv.Itoa(k), strconv.FormatFloat(lambda, 'g', -1, 64),
		strconv.FormatBool(req.HTML), strconv.FormatUint(e.tree.Version(), 10), indexID,
	}, "\x1f")
	if v, ok := e.cache.Get(key); ok {
		out := v.(*Response).clone()
		out.Cached = true
		return out, nil
	}

	resp := &Response{Query: query, Intent: intent, Context: c, Mode: mode, Detail: detail}
	var body []answer.Section
	cacheable := true

	if mode != ModeOpenText {
		body = e.structured(resp, intent, c, detail)
		if len(body) > 0 {
			resp.Origin = OriginStructured
			if intent == IntentPotency && mentionsInterferon(query) {
				body = append(body, ifnNote)
			}
		}
	}

	if body == nil && mode != ModeStructured && query != "" {
		ans, id, err := e.Retrieve(ctx, query, k, lambda)
		switch {
		case err == nil:
			resp.Origin = OriginRetrieval
			resp.Sources = ans.Sources
			resp.IndexID = id
			body = ans.Sections()
		case errors.Is(err, answer.ErrNoMatch):
			// An index may appear on disk later; do not pin the miss.
			cacheable = !errors.Is(err, retrieval.ErrIndexUnavailable)
			resp.Reason = err.Error()
			resp.IndexID = id
			if mode == ModeOpenText {
				resp.NoMatch = true
				resp.Origin = OriginRetrieval
				body = []answer.Section{noResult}
			}
		default:
			return nil, err
		}
	}

	if mode != ModeOpenText {
		if body == nil {
			resp.Origin = OriginDefault
			body = []answer.Section{generalFraming}
		}
		body = append(body, e.supplements(resp, c)...)
	}
	body = append(body, disclaimer)

	resp.Sections = body
	resp.Markdown = answer.RenderMarkdown(body)
	if req.HTML {
		html, err := answer.RenderHTML(resp.Markdown)
		if err != nil {
			return nil, err
		}
		resp.HTML = html
	}

	e.log.Debug("question answered",
		"intent", intent, "product", c.Product, "stage", c.Stage, "region", c.Region,
		"mode", mode, "origin", resp.Origin, "no_match", resp.NoMatch)
	if cacheable {
		e.cache.Add(key, resp)
	}
	return resp.clone(), nil
}

// clone copies the response and its slices so callers never share them with
// the cached entry.
func (r *Response) clone() *Response {
	out := *r
	out.Sections = make([]answer.Section, len(r.Sections))
	for i, s := range r.Sections {
		out.Sections[i] = answer.Section{Title: s.Title, Bullets: slices.Clone(s.Bullets)}
	}
	if r.Traces != nil {
		out.Traces = make([]Trace, len(r.Traces))
		for i, t := range r.Traces {
			t.Steps = slices.Clone(t.Steps)
			out.Traces[i] = t
		}
	}
	out.Sources = slices.Clone(r.Sources)
	return &out
}

// structured resolves the primary block and, when it hits, the extra
// lookups the detail level asks for. A miss returns nil.
func (e *Engine) structured(resp *Response, intent Intent, c Context, detail Detail) []answer.Section {
	primary := e.resolve(resp, string(intent), c.Product, c.Stage, c.Region)
	if primary.Outcome.Kind == knowledge.Miss {
		return nil
	}
	blocks := []knowledge.Block{primary.Sections}
	if detail == DetailStandard || detail == DetailDeep {
		if r := e.resolve(resp, string(intent), c.Product, c.Stage, c.Region.Counterpart()); r.Outcome.Kind != knowledge.Miss {
			blocks = append(blocks, r.Sections)
		}
	}
	if detail == DetailDeep {
		if r := e.resolve(resp, string(intent), knowledge.General, knowledge.General, c.Region); r.Outcome.Kind != knowledge.Miss {
			blocks = append(blocks, r.Sections)
		}
	}
	return toSections(knowledge.Merge(blocks...))
}

// supplements gathers product and phase fundamentals and the region note.
func (e *Engine) supplements(resp *Response, c Context) []answer.Section {
	var fundamentals []knowledge.Block
	if c.Product != knowledge.General {
		if r := e.resolve(resp, intentFundamentals, c.Product, knowledge.General, c.Region); r.Outcome.Kind != knowledge.Miss {
			fundamentals = append(fundamentals, r.Sections)
		}
	}
	if c.Stage != knowledge.General {
		if r := e.resolve(resp, intentFundamentals, knowledge.General, c.Stage, c.Region); r.Outcome.Kind != knowledge.Miss {
			fundamentals = append(fundamentals, r.Sections)
		}
	}
	out := toSections(knowledge.Merge(fundamentals...))

	region := c.Region
	if !region.Known() {
		region = knowledge.Global
	}
	if r := e.resolve(resp, intentRegionContext, knowledge.General, knowledge.General, region); r.Outcome.Kind != knowledge.Miss {
		out = append(out, toSections(r.Sections)...)
	}
	return out
}

func (e *Engine) resolve(resp *Response, intent, product, stage string, region knowledge.Region) knowledge.ResolvedBlock {
	r := e.resolver.Resolve(intent, product, stage, string(region))
	resp.Traces = append(resp.Traces, Trace{
		Intent:  intent,
		Context: Context{Product: product, Stage: stage, Region: region},
		Steps:   r.Trace,
		Outcome: r.Outcome,
	})
	return r
}
