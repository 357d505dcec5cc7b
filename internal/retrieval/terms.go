package retrieval

import (
	"regexp"
	"strings"
)

var tokenRe = regexp.MustCompile(`[\p{L}\p{N}]+(?:[-'.][\p{L}\p{N}]+)*`)

// Tokenize lowercases text and returns its word tokens. Hyphenated and
// dotted tokens ("ifn-γ", "3.2.s") stay whole.
func Tokenize(text string) []string {
	return tokenRe.FindAllString(strings.ToLower(text), -1)
}

// Terms returns the indexing terms of text: non-stopword unigrams of at
// least two characters followed by bigrams of adjacent kept unigrams.
func Terms(text string) []string {
	var uni []string
	for _, tok := range Tokenize(text) {
		if len([]rune(tok)) < 2 || IsStopword(tok) {
			continue
		}
		uni = append(uni, tok)
	}
	out := make([]string, 0, 2*len(uni))
	out = append(out, uni...)
	for i := 0; i+1 < len(uni); i++ {
		out = append(out, uni[i]+" "+uni[i+1])
	}
	return out
}

// IsStopword reports whether tok is a common English function word.
func IsStopword(tok string) bool {
	_, ok := stopwords[tok]
	return ok
}

var stopwords = func() map[string]struct{} {
	words := strings.Fields(`
		a about above after again against all am an and any are as at be because been
		before being below between both but by can could did do does doing down during
		each few for from further had has have having he her here hers herself him
		himself his how i if in into is it its itself just me more most my myself no
		nor not now of off on once only or other our ours ourselves out over own same
		she should so some such than that the their theirs them themselves then there
		these they this those through to too under until up very was we were what when
		where which while who whom why will with would you your yours yourself
		yourselves may might must shall also etc via per vs do we us need needs`)
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()
