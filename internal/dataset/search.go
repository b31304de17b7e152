package dataset

import (
	"strings"
	"unicode"

	"github.com/sahilm/fuzzy"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Match is a search hit: the sentence's position in the searched slice and
// its score (higher is better).
type Match struct {
	Index int
	Score int
}

// searchSource exposes sentences to fuzzy, folded for matching.
type searchSource []string

func (s searchSource) String(i int) string { return s[i] }
func (s searchSource) Len() int            { return len(s) }

// Search fuzzy-matches query against the target and translation text of
// each sentence. Accents and case are ignored, so "ecole" finds "École".
// Matches are ordered best first.
func Search(sentences []Sentence, query string) []Match {
	query = Fold(strings.TrimSpace(query))
	if query == "" {
		return nil
	}

	src := make(searchSource, len(sentences))
	for i, s := range sentences {
		src[i] = Fold(s.Target + " " + s.Translation)
	}

	found := fuzzy.FindFrom(query, src)
	matches := make([]Match, 0, len(found))
	for _, m := range found {
		matches = append(matches, Match{Index: m.Index, Score: m.Score})
	}
	return matches
}

// Fold lowercases s and strips combining marks.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		return strings.ToLower(s)
	}
	return strings.ToLower(folded)
}
