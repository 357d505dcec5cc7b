package answer

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Section is a titled bullet list, the unit every answer is rendered from.
type Section struct {
	Title   string   `json:"title"`
	Bullets []string `json:"bullets"`
}

// Sections lays out a retrieval answer for rendering.
func (a *Answer) Sections() []Section {
	out := []Section{{Title: "From the reference documents", Bullets: a.Bullets}}
	if len(a.Sources) > 0 {
		src := make([]string, len(a.Sources))
		for i, s := range a.Sources {
			src[i] = s.Markdown()
		}
		out = append(out, Section{Title: "Sources", Bullets: src})
	}
	return out
}

// RenderMarkdown writes each section as a level-3 heading followed by its
// bullets. A single-bullet section is written as a paragraph.
func RenderMarkdown(sections []Section) string {
	var b strings.Builder
	for _, s := range sections {
		if len(s.Bullets) == 0 {
			continue
		}
		fmt.Fprintf(&b, "### %s\n\n", s.Title)
		if len(s.Bullets) == 1 {
			b.WriteString(s.Bullets[0])
			b.WriteString("\n\n")
			continue
		}
		for _, item := range s.Bullets {
			fmt.Fprintf(&b, "- %s\n", item)
		}
		b.WriteString("\n")
	}
	if b.Len() == 0 {
		return ""
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

var md = goldmark.New(goldmark.WithExtensions(extension.Linkify))

// RenderHTML converts markdown produced by RenderMarkdown to HTML.
func RenderHTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	return buf.String(), nil
}
