// Package answer turns retrieved chunks into a short cited answer, or
// refuses when retrieval is not confident enough.
package answer

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dgallion1/cmcguide/internal/chunker"
	"github.com/dgallion1/cmcguide/internal/corpus"
	"github.com/dgallion1/cmcguide/internal/retrieval"
)

// ErrNoMatch means nothing relevant was found. It is distinct from an
// empty but successful answer.
var ErrNoMatch = errors.New("no relevant result")

// Options tunes synthesis and the confidence gate.
type Options struct {
	MinScore   float64 // Top weighted score below this is a no-match.
	MaxBullets int
	PerChunk   int // Sentences taken from each chunk.
	Splitter   chunker.SentenceSplitter
}

func DefaultOptions() Options {
	return Options{
		MinScore:   0.05,
		MaxBullets: 10,
		PerChunk:   2,
		Splitter:   chunker.RegexSplitter{},
	}
}

// Source is a cited document.
type Source struct {
	Title     string `json:"title"`
	Publisher string `json:"publisher,omitempty"`
	Year      int    `json:"year,omitempty"`
	URL       string `json:"url,omitempty"`
}

// String renders "Title, Publisher, Year" with empty parts left out.
func (s Source) String() string {
	parts := []string{s.Title}
	if s.Publisher != "" {
		parts = append(parts, s.Publisher)
	}
	if s.Year > 0 {
		parts = append(parts, strconv.Itoa(s.Year))
	}
	return strings.Join(parts, ", ")
}

// Markdown links the title when a URL is known.
func (s Source) Markdown() string {
	if s.URL == "" {
		return s.String()
	}
	rest := strings.TrimPrefix(s.String(), s.Title)
	return fmt.Sprintf("[%s](%s)%s", s.Title, s.URL, rest)
}

// Answer is a synthesized retrieval answer.
type Answer struct {
	Bullets []string `json:"bullets"`
	Sources []Source `json:"sources"`
}

// Synthesize builds an answer from chunks in selector order. It returns an
// error wrapping ErrNoMatch when the top score is below opts.MinScore or no
// chunk contains a query term.
func Synthesize(query string, chunks []retrieval.ScoredChunk, links corpus.Links, opts Options) (*Answer, error) {
	if opts.MaxBullets <= 0 {
		opts.MaxBullets = 10
	}
	if opts.PerChunk <= 0 {
		opts.PerChunk = 2
	}
	if opts.Splitter == nil {
		opts.Splitter = chunker.RegexSplitter{}
	}

	terms := QueryTerms(query)
	if len(terms) == 0 {
		return nil, fmt.Errorf("%w: query has no searchable terms", ErrNoMatch)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: no candidates", ErrNoMatch)
	}
	top := chunks[0].Score
	for _, c := range chunks[1:] {
		top = max(top, c.Score)
	}
	if top < opts.MinScore {
		return nil, fmt.Errorf("%w: top score %.3f below %.3f", ErrNoMatch, top, opts.MinScore)
	}
	overlap := 0
	for _, c := range chunks {
		if hits(strings.ToLower(c.Chunk.Text), terms) > 0 {
			overlap++
		}
	}
	if overlap == 0 {
		return nil, fmt.Errorf("%w: no candidate shares a query term", ErrNoMatch)
	}

	ans := &Answer{}
	seen := make(map[string]bool)
	cited := make(map[string]bool)
	for _, c := range chunks {
		if len(ans.Bullets) >= opts.MaxBullets {
			break
		}
		added := false
		for _, s := range topSentences(c.Chunk.Text, terms, opts.PerChunk, opts.Splitter) {
			if len(ans.Bullets) >= opts.MaxBullets {
				break
			}
			if seen[s] {
				continue
			}
			seen[s] = true
			ans.Bullets = append(ans.Bullets, s)
			added = true
		}
		if !added {
			continue
		}
		m := c.Chunk.Meta
		key := m.Title + "\x00" + m.Publisher + "\x00" + strconv.Itoa(m.Year)
		if cited[key] {
			continue
		}
		cited[key] = true
		url := m.URL
		if url == "" {
			url = links.URLFor(m.Title)
		}
		ans.Sources = append(ans.Sources, Source{Title: m.Title, Publisher: m.Publisher, Year: m.Year, URL: url})
	}

	if len(ans.Bullets) == 0 {
		return nil, fmt.Errorf("%w: no sentence matched the query", ErrNoMatch)
	}
	return ans, nil
}

// QueryTerms returns the distinct lowercase words of a query longer than two
// characters, stopwords removed.
func QueryTerms(query string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, tok := range retrieval.Tokenize(query) {
		if len([]rune(tok)) <= 2 || retrieval.IsStopword(tok) || seen[tok] {
			continue
		}
		seen[tok] = true
		out = append(out, tok)
	}
	return out
}

// topSentences ranks a chunk's sentences by query-term occurrences, keeping
// original order on ties, and returns up to n that hit at least once.
func topSentences(text string, terms []string, n int, splitter chunker.SentenceSplitter) []string {
	type ranked struct {
		text string
		hits int
	}
	var sents []ranked
	for _, s := range splitter.Split(text) {
		sents = append(sents, ranked{s, hits(strings.ToLower(s), terms)})
	}
	sort.SliceStable(sents, func(i, j int) bool { return sents[i].hits > sents[j].hits })

	var out []string
	for _, s := range sents {
		if len(out) == n || s.hits == 0 {
			break
		}
		out = append(out, s.text)
	}
	return out
}

func hits(lower string, terms []string) int {
	n := 0
	for _, t := range terms {
		n += strings.Count(lower, t)
	}
	return n
}
