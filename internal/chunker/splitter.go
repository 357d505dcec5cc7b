package chunker

import (
	"fmt"
	"strings"

	"github.com/jdkato/prose/v2"
)

// SentenceSplitter breaks normalized text into sentences.
type SentenceSplitter interface {
	Split(text string) []string
}

// SplitterFor returns the splitter registered under name. Unknown names get
// the regex splitter.
func SplitterFor(name string) SentenceSplitter {
	switch strings.ToLower(name) {
	case "prose":
		return ProseSplitter{}
	default:
		return RegexSplitter{}
	}
}

// SplitterName is the config name of s; nil is the default regex splitter.
func SplitterName(s SentenceSplitter) string {
	switch s.(type) {
	case nil, RegexSplitter:
		return "regex"
	case ProseSplitter:
		return "prose"
	default:
		return fmt.Sprintf("%T", s)
	}
}

// RegexSplitter ends a sentence at '.', '!' or '?' followed by whitespace and
// a non-terminal character. Runs of terminal punctuation stay together.
type RegexSplitter struct{}

func (RegexSplitter) Split(text string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	runes := []rune(trimmed)
	var sentences []string
	var b strings.Builder

	flush := func() {
		s := strings.TrimSpace(b.String())
		if s != "" {
			sentences = append(sentences, s)
		}
		b.Reset()
	}

	for i, r := range runes {
		b.WriteRune(r)
		if !isTerminal(r) {
			continue
		}
		next := i + 1
		if next >= len(runes) || !isSpace(runes[next]) {
			continue
		}
		for next < len(runes) && isSpace(runes[next]) {
			next++
		}
		if next >= len(runes) || isTerminal(runes[next]) {
			continue
		}
		flush()
	}
	flush()

	if len(sentences) == 0 {
		return []string{trimmed}
	}
	return sentences
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\n' || r == '\t' || r == '\r'
}

// ProseSplitter uses prose's punkt-based segmenter, which knows common
// abbreviations ("e.g.", "Fig.") the regex splitter breaks on.
type ProseSplitter struct{}

func (ProseSplitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	doc, err := prose.NewDocument(text,
		prose.WithTokenization(false),
		prose.WithTagging(false),
		prose.WithExtraction(false))
	if err != nil {
		return RegexSplitter{}.Split(text)
	}
	var out []string
	for _, s := range doc.Sentences() {
		if t := strings.TrimSpace(s.Text); t != "" {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return RegexSplitter{}.Split(text)
	}
	return out
}
