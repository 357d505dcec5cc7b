// Package corpus loads the reference-document corpus and turns it into
// weighted, sentence-aligned chunks for the retrieval index.
package corpus

import (
	"strings"

	"github.com/dgallion1/cmcguide/internal/doctree"
)

// Record is one reference document. Text may be inline or come from File.
type Record struct {
	ID        string   `yaml:"id,omitempty" json:"id,omitempty"`
	Title     string   `yaml:"title" json:"title"`
	URL       string   `yaml:"url,omitempty" json:"url,omitempty"`
	Publisher string   `yaml:"publisher,omitempty" json:"publisher,omitempty"`
	Year      int      `yaml:"year,omitempty" json:"year,omitempty"`
	Text      string   `yaml:"text,omitempty" json:"text,omitempty"`
	File      string   `yaml:"file,omitempty" json:"file,omitempty"`
	Topics    []string `yaml:"topics,omitempty" json:"topics,omitempty"`
	Weight    float64  `yaml:"weight,omitempty" json:"weight,omitempty"`

	// Tree is the parsed outline of File, set by Load.
	Tree *doctree.DocTree `yaml:"-" json:"-"`
}

// Meta is the citation metadata carried by every chunk.
type Meta struct {
	Title     string   `json:"title"`
	Publisher string   `json:"publisher,omitempty"`
	Year      int      `json:"year,omitempty"`
	URL       string   `json:"url,omitempty"`
	Page      int      `json:"page,omitempty"`
	Section   []string `json:"section,omitempty"`
}

// Chunk is a bounded span of source text. Chunks are immutable once built.
type Chunk struct {
	ID       string  `json:"id"`
	Text     string  `json:"text"`
	SourceID string  `json:"source_id"`
	Weight   float64 `json:"weight"`
	Meta     Meta    `json:"meta"`
}

// Links maps a document title to its canonical URL.
type Links map[string]string

// URLFor looks up a title, ignoring case and surrounding whitespace.
func (l Links) URLFor(title string) string {
	if u, ok := l[title]; ok {
		return u
	}
	key := strings.ToLower(strings.TrimSpace(title))
	for t, u := range l {
		if strings.ToLower(strings.TrimSpace(t)) == key {
			return u
		}
	}
	return ""
}

// tree returns the parsed outline, or a single-node tree over inline text.
func (r Record) tree() *doctree.DocTree {
	if r.Tree != nil {
		return r.Tree
	}
	t := &doctree.DocTree{Title: r.Title}
	if strings.TrimSpace(r.Text) != "" {
		t.Children = []*doctree.DocNode{{Text: r.Text}}
	}
	return t
}
