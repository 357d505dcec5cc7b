// Package knowledge holds the hand-authored guidance tree and resolves a
// (intent, product, stage, region) context to the most specific block.
package knowledge

// General is the wildcard key for the product and stage dimensions.
const General = "General"

// Section is one named list of guidance items.
type Section struct {
	Name  string   `json:"name"`
	Items []string `json:"items"`
}

// Block is an ordered list of sections.
type Block []Section

// Empty reports whether the block carries no items at all.
func (b Block) Empty() bool {
	for _, s := range b {
		if len(s.Items) > 0 {
			return false
		}
	}
	return true
}

// Items returns the items of the named section, or nil.
func (b Block) Items(name string) []string {
	for _, s := range b {
		if s.Name == name {
			return s.Items
		}
	}
	return nil
}

// ordered is a string-keyed map that remembers insertion order.
type ordered[V any] struct {
	keys []string
	m    map[string]V
}

func (o *ordered[V]) get(k string) (V, bool) {
	v, ok := o.m[k]
	return v, ok
}

func (o *ordered[V]) set(k string, v V) {
	if o.m == nil {
		o.m = make(map[string]V)
	}
	if _, ok := o.m[k]; !ok {
		o.keys = append(o.keys, k)
	}
	o.m[k] = v
}

// ensure returns the value under k, inserting a zero value first if needed.
func (o *ordered[V]) ensure(k string, zero func() V) V {
	if v, ok := o.get(k); ok {
		return v
	}
	v := zero()
	o.set(k, v)
	return v
}

type (
	regionMap  = ordered[Block]
	stageMap   = ordered[*regionMap]
	productMap = ordered[*stageMap]
)

// Tree is intent → product → stage → region → Block. Every level keeps the
// key order of the source document. A Tree is read-only once loaded.
type Tree struct {
	intents ordered[*productMap]
}

// NewTree returns an empty tree.
func NewTree() *Tree {
	return &Tree{}
}

// Get lets a *Tree act as its own TreeSource.
func (t *Tree) Get() *Tree { return t }

// Set stores a block. It is meant for loaders and tests; a Tree handed to a
// Resolver must not be modified.
func (t *Tree) Set(intent, product, stage, region string, b Block) {
	products := t.intents.ensure(intent, func() *productMap { return &productMap{} })
	stages := products.ensure(product, func() *stageMap { return &stageMap{} })
	regions := stages.ensure(stage, func() *regionMap { return &regionMap{} })
	regions.set(region, b)
}

// TryGet looks up one fully specified leaf. Absent keys and empty blocks are
// both reported as not found.
func (t *Tree) TryGet(intent, product, stage, region string) (Block, bool) {
	regions := t.regionMap(intent, product, stage)
	if regions == nil {
		return nil, false
	}
	b, ok := regions.get(region)
	if !ok || b.Empty() {
		return nil, false
	}
	return b, true
}

// Regions lists the region keys under (intent, product, stage) in document
// order.
func (t *Tree) Regions(intent, product, stage string) []string {
	regions := t.regionMap(intent, product, stage)
	if regions == nil {
		return nil
	}
	return append([]string(nil), regions.keys...)
}

// Intents lists the top-level keys in document order.
func (t *Tree) Intents() []string {
	return append([]string(nil), t.intents.keys...)
}

// Products lists the product keys of an intent in document order.
func (t *Tree) Products(intent string) []string {
	products, ok := t.intents.get(intent)
	if !ok {
		return nil
	}
	return append([]string(nil), products.keys...)
}

// Leaves counts non-empty blocks.
func (t *Tree) Leaves() int {
	n := 0
	for _, i := range t.intents.keys {
		products, _ := t.intents.get(i)
		for _, p := range products.keys {
			stages, _ := products.get(p)
			for _, s := range stages.keys {
				regions, _ := stages.get(s)
				for _, r := range regions.keys {
					if b, _ := regions.get(r); !b.Empty() {
						n++
					}
				}
			}
		}
	}
	return n
}

func (t *Tree) regionMap(intent, product, stage string) *regionMap {
	products, ok := t.intents.get(intent)
	if !ok {
		return nil
	}
	stages, ok := products.get(product)
	if !ok {
		return nil
	}
	regions, ok := stages.get(stage)
	if !ok {
		return nil
	}
	return regions
}
