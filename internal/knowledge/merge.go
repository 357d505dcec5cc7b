package knowledge

// Merge unions blocks in call order. Sections appear in first-seen order and
// each item is kept once, at its first position. Sections left without
// items are dropped. Merging is idempotent: Merge(a, b, a) == Merge(a, b).
func Merge(blocks ...Block) Block {
	var out Block
	index := make(map[string]int)
	seen := make(map[string]map[string]bool)

	for _, b := range blocks {
		for _, s := range b {
			i, ok := index[s.Name]
			if !ok {
				i = len(out)
				index[s.Name] = i
				seen[s.Name] = make(map[string]bool)
				out = append(out, Section{Name: s.Name})
			}
			for _, item := range s.Items {
				if seen[s.Name][item] {
					continue
				}
				seen[s.Name][item] = true
				out[i].Items = append(out[i].Items, item)
			}
		}
	}

	kept := out[:0]
	for _, s := range out {
		if len(s.Items) > 0 {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	return kept
}
