package parser

import (
	"bytes"
	"io"
	"strings"

	"github.com/dgallion1/cmcguide/internal/doctree"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownParser handles Markdown guidance notes using goldmark.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	doc := goldmark.New().Parser().Parse(text.NewReader(src))
	title := titleFromFilename(filename)
	o := newOutline(title)

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*ast.Heading); ok {
			o.heading(h.Level, string(h.Text(src)))
			continue
		}
		o.paragraph(blockText(n, src))
	}

	return o.tree(title), nil
}

// blockText gets the plain text of a goldmark block. Paragraph-like blocks
// are read through their inline children so emphasis markers are dropped;
// code blocks are read line by line.
func blockText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	first := n.FirstChild()
	switch {
	case first != nil && first.Type() == ast.TypeInline:
		inlineText(&buf, n, src)
	case n.Type() == ast.TypeBlock && n.Lines().Len() > 0:
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			buf.Write(line.Value(src))
		}
	default:
		for c := first; c != nil; c = c.NextSibling() {
			t := blockText(c, src)
			if t == "" {
				continue
			}
			if buf.Len() > 0 {
				buf.WriteByte('\n')
			}
			buf.WriteString(t)
		}
	}
	return strings.TrimSpace(buf.String())
}

func inlineText(buf *bytes.Buffer, n ast.Node, src []byte) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Value(src))
			if t.HardLineBreak() || t.SoftLineBreak() {
				buf.WriteByte(' ')
			}
			continue
		}
		inlineText(buf, c, src)
	}
}
