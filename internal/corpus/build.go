package corpus

import (
	"crypto/sha256"
	"fmt"
	"strconv"

	"github.com/dgallion1/cmcguide/internal/chunker"
	"github.com/dgallion1/cmcguide/internal/doctree"
)

// Build chunks every record. Chunk IDs are "{sourceID}#{n}" with n counting
// from zero within the source. Output order is record order, then document
// order, so the same corpus always yields the same chunks.
func Build(records []Record, cfg chunker.Config) []Chunk {
	var chunks []Chunk
	for _, r := range records {
		w := Weight(r)
		for _, p := range chunker.ChunkTree(r.tree(), cfg) {
			chunks = append(chunks, Chunk{
				ID:       fmt.Sprintf("%s#%d", r.ID, p.Index),
				Text:     p.Text,
				SourceID: r.ID,
				Weight:   w,
				Meta: Meta{
					Title:     r.Title,
					Publisher: r.Publisher,
					Year:      r.Year,
					URL:       r.URL,
					Page:      p.Page,
					Section:   p.Breadcrumb,
				},
			})
		}
	}
	return chunks
}

// Hash fingerprints everything that affects the built index: the records and
// any build settings, such as the chunk budget or backend, passed along.
func Hash(records []Record, settings ...string) string {
	h := sha256.New()
	for _, s := range settings {
		h.Write([]byte(s))
		h.Write([]byte{0})
	}
	h.Write([]byte{1})
	for _, r := range records {
		for _, field := range []string{
			r.ID, r.Title, r.Publisher, strconv.Itoa(r.Year), r.URL,
			strconv.FormatFloat(Weight(r), 'f', -1, 64),
		} {
			h.Write([]byte(field))
			h.Write([]byte{0})
		}
		r.tree().Walk(func(n *doctree.DocNode, _ []string) {
			h.Write([]byte(n.Text))
			h.Write([]byte{0})
			h.Write([]byte(strconv.Itoa(n.Page)))
			h.Write([]byte{0})
		})
		h.Write([]byte{1})
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
