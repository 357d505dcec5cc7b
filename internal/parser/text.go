package parser

import (
	"bufio"
	"io"
	"strings"

	"github.com/dgallion1/cmcguide/internal/doctree"
)

// maxHeadingChars bounds how long a bare line may be to count as a heading.
const maxHeadingChars = 80

// TextParser handles plain text exports of guidance documents. Short
// single-line paragraphs without terminal punctuation become section headings.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var paragraphs []string
	var current strings.Builder
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t\r")
		if strings.TrimSpace(line) == "" {
			if current.Len() > 0 {
				paragraphs = append(paragraphs, current.String())
				current.Reset()
			}
			continue
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(line)
	}
	if current.Len() > 0 {
		paragraphs = append(paragraphs, current.String())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	title := titleFromFilename(filename)
	tree := &doctree.DocTree{Title: title}
	var section *doctree.DocNode
	for i, para := range paragraphs {
		if i < len(paragraphs)-1 && looksLikeHeading(para) {
			section = &doctree.DocNode{Title: strings.TrimSpace(para)}
			tree.Children = append(tree.Children, section)
			continue
		}
		node := &doctree.DocNode{Text: para}
		if section != nil {
			section.Children = append(section.Children, node)
		} else {
			tree.Children = append(tree.Children, node)
		}
	}

	return tree, nil
}

func looksLikeHeading(para string) bool {
	para = strings.TrimSpace(para)
	if para == "" || strings.Contains(para, "\n") || len(para) > maxHeadingChars {
		return false
	}
	return !strings.ContainsAny(para[len(para)-1:], ".!?:;,")
}
