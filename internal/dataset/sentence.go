package dataset

import "strings"

// Sentence is a single study item. Sentences are immutable once loaded.
type Sentence struct {
	ID          string `json:"id"               yaml:"id"`
	Target      string `json:"targetSentence"   yaml:"targetSentence"`
	Translation string `json:"englishSentence"  yaml:"englishSentence"`
	Native      string `json:"albanianSentence" yaml:"albanianSentence"`

	// Gloss: a single key word and its translations.
	Keyword            string `json:"verb"         yaml:"verb"`
	KeywordTranslation string `json:"verbEnglish"  yaml:"verbEnglish"`
	KeywordNative      string `json:"verbAlbanian" yaml:"verbAlbanian"`

	SourceAudio      string `json:"audioSrcFr" yaml:"audioSrcFr"`
	TranslationAudio string `json:"audioSrcEn" yaml:"audioSrcEn"`
}

// HasSource reports whether the sentence carries a source-language clip.
func (s Sentence) HasSource() bool {
	return strings.TrimSpace(s.SourceAudio) != ""
}

// HasTranslation reports whether the sentence carries a translation clip.
func (s Sentence) HasTranslation() bool {
	return strings.TrimSpace(s.TranslationAudio) != ""
}

// HasAudio reports whether the sentence has at least one clip.
func (s Sentence) HasAudio() bool {
	return s.HasSource() || s.HasTranslation()
}

// HasGloss reports whether the sentence has a key word.
func (s Sentence) HasGloss() bool {
	return s.Keyword != ""
}

// Dataset is a loaded sentence collection together with where it came from.
type Dataset struct {
	// Source is the path or URL the dataset was read from.
	Source string
	// Base is the directory or URL relative clip references resolve against.
	Base      string
	Sentences []Sentence
}

// Len returns the number of sentences.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Sentences)
}
