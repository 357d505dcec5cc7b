package answer

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/cmcguide/internal/corpus"
	"github.com/dgallion1/cmcguide/internal/retrieval"
)

func scored(id, title, publisher string, year int, score float64, text string) retrieval.ScoredChunk {
	return retrieval.ScoredChunk{
		Chunk: corpus.Chunk{
			ID:     id,
			Text:   text,
			Weight: 1,
			Meta:   corpus.Meta{Title: title, Publisher: publisher, Year: year},
		},
		Similarity: score,
		Score:      score,
	}
}

func TestQueryTerms(t *testing.T) {
	assert.Equal(t, []string{"shipper", "validation", "ccit"},
		QueryTerms("Is the shipper validation and CCIT ok? shipper"))
	assert.Empty(t, QueryTerms("is it ok to go"))
}

func TestSynthesize_NoSharedTermsIsNoMatch(t *testing.T) {
	chunks := []retrieval.ScoredChunk{
		scored("a", "Guideline A", "EMA", 2020, 0.9, "Potency assays should reflect the mechanism of action."),
	}
	ans, err := Synthesize("zebra migration patterns", chunks, nil, DefaultOptions())
	assert.Nil(t, ans)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoMatch))
}

func TestSynthesize_LowScoreIsNoMatch(t *testing.T) {
	chunks := []retrieval.ScoredChunk{
		scored("a", "Guideline A", "EMA", 2020, 0.01, "Potency assays should reflect the mechanism of action."),
	}
	_, err := Synthesize("potency assays", chunks, nil, DefaultOptions())
	assert.ErrorIs(t, err, ErrNoMatch)
	assert.Contains(t, err.Error(), "below")

	_, err = Synthesize("potency", nil, nil, DefaultOptions())
	assert.ErrorIs(t, err, ErrNoMatch)

	_, err = Synthesize("is it", chunks, nil, DefaultOptions())
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestSynthesize_TopSentencesPerChunk(t *testing.T) {
	chunks := []retrieval.ScoredChunk{
		scored("a#0", "Guideline A", "EMA", 2021, 0.8,
			"Introductions are general. Shipper validation covers summer lanes. Shipper validation and shipper qualification differ. Nothing here."),
		scored("b#0", "Guideline B", "FDA", 2019, 0.5,
			"Shipper validation covers summer lanes. Data loggers record validation temperatures."),
	}

	ans, err := Synthesize("shipper validation", chunks, nil, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Shipper validation and shipper qualification differ.",
		"Shipper validation covers summer lanes.",
		"Data loggers record validation temperatures.",
	}, ans.Bullets, "ranked by hits, two per chunk, verbatim duplicates skipped")

	require.Len(t, ans.Sources, 2)
	assert.Equal(t, "Guideline A, EMA, 2021", ans.Sources[0].String())
}

func TestSynthesize_MaxBulletsAndSourceDedup(t *testing.T) {
	var chunks []retrieval.ScoredChunk
	for i := 0; i < 8; i++ {
		text := strings.Repeat("x", i+1) + " potency claim one. " + strings.Repeat("y", i+1) + " potency claim two."
		chunks = append(chunks, scored("c", "Same Guideline", "ICH", 2022, 0.5, text))
	}
	opts := DefaultOptions()
	opts.MaxBullets = 5

	ans, err := Synthesize("potency claim", chunks, corpus.Links{"Same Guideline": "https://example.org/ich"}, opts)
	require.NoError(t, err)
	assert.Len(t, ans.Bullets, 5)
	require.Len(t, ans.Sources, 1)
	assert.Equal(t, "https://example.org/ich", ans.Sources[0].URL)
	assert.Equal(t, "[Same Guideline](https://example.org/ich), ICH, 2022", ans.Sources[0].Markdown())
}

func TestSynthesize_ChunkWithoutHitsIsNotCited(t *testing.T) {
	chunks := []retrieval.ScoredChunk{
		scored("a", "Guideline A", "", 0, 0.6, "Stability programs define shelf life."),
		scored("b", "Guideline B", "", 0, 0.4, "Unrelated text about logistics."),
	}
	ans, err := Synthesize("stability shelf", chunks, nil, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"Stability programs define shelf life."}, ans.Bullets)
	require.Len(t, ans.Sources, 1)
	assert.Equal(t, "Guideline A", ans.Sources[0].Title)
}

func TestRenderMarkdownAndHTML(t *testing.T) {
	sections := []Section{
		{Title: "Guidance Summary", Bullets: []string{"Use a **multi-attribute** approach."}},
		{Title: "Common pitfalls", Bullets: []string{"Single cytokine.", "Donor variability."}},
		{Title: "Empty"},
	}
	md := RenderMarkdown(sections)
	assert.Equal(t, "### Guidance Summary\n\nUse a **multi-attribute** approach.\n\n"+
		"### Common pitfalls\n\n- Single cytokine.\n- Donor variability.\n", md)
	assert.Empty(t, RenderMarkdown(nil))

	html, err := RenderHTML(md)
	require.NoError(t, err)
	assert.Contains(t, html, "<h3>Guidance Summary</h3>")
	assert.Contains(t, html, "<strong>multi-attribute</strong>")
	assert.Contains(t, html, "<li>Donor variability.</li>")
}

func TestAnswerSections(t *testing.T) {
	a := &Answer{
		Bullets: []string{"One.", "Two."},
		Sources: []Source{{Title: "Q5E", URL: "https://example.org/q5e"}},
	}
	secs := a.Sections()
	require.Len(t, secs, 2)
	assert.Equal(t, "Sources", secs[1].Title)
	assert.Equal(t, []string{"[Q5E](https://example.org/q5e)"}, secs[1].Bullets)
}
