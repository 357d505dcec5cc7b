package knowledge

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

// Default returns the tree compiled into the binary.
func Default() *Tree {
	t, err := Parse(defaultYAML, slog.New(slog.DiscardHandler))
	if err != nil {
		return NewTree()
	}
	return t
}

// Load reads a YAML or JSON guidance tree. A missing or unreadable file, or
// one whose top level is not a mapping, yields the default tree. Problems
// below the top level are logged and the offending entry skipped.
func Load(path string, log *slog.Logger) *Tree {
	if log == nil {
		log = slog.Default()
	}
	if path == "" {
		return Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Warn("knowledge tree not found, using embedded default", "path", path)
		} else {
			log.Warn("knowledge tree unreadable, using embedded default", "path", path, "error", err)
		}
		return Default()
	}

	t, err := Parse(data, log.With("path", path))
	if err != nil {
		log.Warn("knowledge tree invalid, using embedded default", "path", path, "error", err)
		return Default()
	}
	log.Info("knowledge tree loaded", "path", path, "intents", len(t.Intents()), "leaves", t.Leaves())
	return t
}

// Parse decodes a tree, keeping key order at every level.
func Parse(data []byte, log *slog.Logger) (*Tree, error) {
	if log == nil {
		log = slog.Default()
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode knowledge tree: %w", err)
	}
	if doc.Kind == 0 {
		return NewTree(), nil
	}
	root := deref(&doc)
	if root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			return NewTree(), nil
		}
		root = deref(root.Content[0])
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("knowledge tree root must be a mapping, got %s", kindName(root))
	}

	t := NewTree()
	eachPair(root, log, "intent", func(intent string, products *yaml.Node) {
		eachPair(products, log, "product", func(product string, stages *yaml.Node) {
			eachPair(stages, log, "stage", func(stage string, regions *yaml.Node) {
				eachPair(regions, log, "region", func(region string, leaf *yaml.Node) {
					r := ParseRegion(region)
					if !r.Known() {
						log.Warn("unknown region key", "intent", intent, "product", product, "stage", stage, "region", region)
					}
					b := parseBlock(leaf, log.With("intent", intent, "product", product, "stage", stage, "region", region))
					t.Set(intent, product, stage, string(r), b)
				})
			})
		})
	})
	return t, nil
}

func parseBlock(n *yaml.Node, log *slog.Logger) Block {
	var b Block
	if n.Kind != yaml.MappingNode {
		if !isNull(n) {
			log.Warn("leaf is not a mapping of sections, skipping", "kind", kindName(n))
		}
		return nil
	}
	eachPair(n, log, "section", func(name string, v *yaml.Node) {
		if !KnownSection(name) {
			log.Warn("unknown section name", "section", name)
		}
		var items []string
		switch v.Kind {
		case yaml.SequenceNode:
			for _, item := range v.Content {
				item = deref(item)
				if item.Kind != yaml.ScalarNode || item.ShortTag() != "!!str" {
					log.Warn("dropping non-string item", "section", name, "line", item.Line)
					continue
				}
				items = append(items, item.Value)
			}
		case yaml.ScalarNode:
			if isNull(v) {
				break
			}
			if v.ShortTag() != "!!str" {
				log.Warn("dropping non-string item", "section", name, "line", v.Line)
				break
			}
			items = []string{v.Value}
		default:
			log.Warn("section is not a list, skipping", "section", name, "kind", kindName(v))
		}
		if len(items) > 0 {
			b = append(b, Section{Name: name, Items: items})
		}
	})
	return b
}

// eachPair walks a mapping node in document order. Non-mapping values are
// logged and skipped so the caller only sees well-formed levels.
func eachPair(n *yaml.Node, log *slog.Logger, level string, fn func(key string, val *yaml.Node)) {
	n = deref(n)
	if n.Kind != yaml.MappingNode {
		if !isNull(n) {
			log.Warn("expected a mapping, skipping", "level", level, "line", n.Line, "kind", kindName(n))
		}
		return
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := deref(n.Content[i]), deref(n.Content[i+1])
		if k.Kind != yaml.ScalarNode || k.Value == "" || k.Value == "<<" {
			log.Warn("skipping unsupported key", "level", level, "line", k.Line)
			continue
		}
		fn(k.Value, v)
	}
}

func deref(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null"
}

func kindName(n *yaml.Node) string {
	switch n.Kind {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "unknown"
	}
}
