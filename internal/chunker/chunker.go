package chunker

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dgallion1/cmcguide/internal/doctree"
)

// Config controls chunking behavior.
type Config struct {
	MaxChars int              // Upper bound on chunk length in runes.
	Splitter SentenceSplitter // Sentence segmentation; nil means RegexSplitter.
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxChars: 900,
		Splitter: RegexSplitter{},
	}
}

// Fingerprint names the settings that change chunk output.
func (c Config) Fingerprint() string {
	maxChars := c.MaxChars
	if maxChars <= 0 {
		maxChars = DefaultConfig().MaxChars
	}
	return fmt.Sprintf("max_chars=%d splitter=%s", maxChars, SplitterName(c.Splitter))
}

// Piece is one chunk of a document node.
type Piece struct {
	Text       string
	Index      int      // Position across the whole document.
	Breadcrumb []string // Heading path of the node the text came from.
	Page       int      // Source page (0 if N/A).
}

// ChunkTree walks a DocTree and chunks every node's text separately, so a
// chunk never spans two sections or two PDF pages.
func ChunkTree(tree *doctree.DocTree, cfg Config) []Piece {
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = 900
	}
	if cfg.Splitter == nil {
		cfg.Splitter = RegexSplitter{}
	}

	var pieces []Piece
	tree.Walk(func(n *doctree.DocNode, bc []string) {
		for _, text := range Chunk(n.Text, cfg.MaxChars, cfg.Splitter) {
			pieces = append(pieces, Piece{
				Text:       text,
				Index:      len(pieces),
				Breadcrumb: copyBreadcrumb(bc),
				Page:       n.Page,
			})
		}
	})
	return pieces
}

// Chunk splits text into sentence-aligned chunks of at most maxChars runes.
// Sentences are accumulated until the next one would overflow the budget.
// A sentence longer than the budget on its own is hard-split first.
func Chunk(text string, maxChars int, splitter SentenceSplitter) []string {
	norm := strings.Join(strings.Fields(text), " ")
	if norm == "" {
		return nil
	}
	if maxChars <= 0 || utf8.RuneCountInString(norm) <= maxChars {
		return []string{norm}
	}
	if splitter == nil {
		splitter = RegexSplitter{}
	}

	var chunks []string
	var current strings.Builder
	currentLen := 0

	for _, sentence := range splitter.Split(norm) {
		for _, part := range hardSplit(sentence, maxChars) {
			n := utf8.RuneCountInString(part)
			if currentLen > 0 && currentLen+1+n > maxChars {
				chunks = append(chunks, current.String())
				current.Reset()
				currentLen = 0
			}
			if currentLen > 0 {
				current.WriteByte(' ')
				currentLen++
			}
			current.WriteString(part)
			currentLen += n
		}
	}
	if currentLen > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

// hardSplit cuts s into pieces of at most maxChars runes, preferring the last
// whitespace inside each window. Every iteration consumes at least one rune.
func hardSplit(s string, maxChars int) []string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= maxChars {
		if len(runes) == 0 {
			return nil
		}
		return []string{string(runes)}
	}

	var parts []string
	for len(runes) > maxChars {
		cut := maxChars
		for i := maxChars; i > 0; i-- {
			if unicode.IsSpace(runes[i]) {
				cut = i
				break
			}
		}
		if part := strings.TrimSpace(string(runes[:cut])); part != "" {
			parts = append(parts, part)
		}
		runes = []rune(strings.TrimLeftFunc(string(runes[cut:]), unicode.IsSpace))
	}
	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}
	return parts
}

func copyBreadcrumb(bc []string) []string {
	if len(bc) == 0 {
		return nil
	}
	out := make([]string, len(bc))
	copy(out, bc)
	return out
}
