package doctree

import "strings"

// DocTree is the root of a parsed reference document.
type DocTree struct {
	Title    string     // Document title (from metadata or filename)
	Children []*DocNode // Top-level sections
}

// DocNode is a recursive section in the document tree.
type DocNode struct {
	Title    string     // Section heading (empty for leaf text)
	Text     string     // Text content of this node (may be empty for container nodes)
	Page     int        // Source page (0 if N/A)
	Children []*DocNode // Subsections
}

// Walk visits every node depth-first with its heading breadcrumb.
func (t *DocTree) Walk(fn func(n *DocNode, breadcrumb []string)) {
	var walk func(nodes []*DocNode, bc []string)
	walk = func(nodes []*DocNode, bc []string) {
		for _, n := range nodes {
			next := bc
			if n.Title != "" {
				next = append(append([]string(nil), bc...), n.Title)
			}
			fn(n, next)
			walk(n.Children, next)
		}
	}
	walk(t.Children, nil)
}

// PlainText joins all node text in document order.
func (t *DocTree) PlainText() string {
	var sb strings.Builder
	t.Walk(func(n *DocNode, _ []string) {
		if n.Text == "" {
			return
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(n.Text)
	})
	return sb.String()
}
