package vocab

import (
	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"
)

// sentencePunctuation is the fixed set of surface forms discarded outright.
var sentencePunctuation = map[string]bool{
	"、": true,
	"。": true,
	"！": true,
	"？": true,
}

// filteredPOS lists the primary part-of-speech categories that carry no
// vocabulary value: particles, auxiliary verbs, and interjections.
var filteredPOS = map[string]bool{
	"助詞":  true,
	"助動詞": true,
	"感動詞": true,
}

// Tokenizer extracts deduplicated base-form tokens from Japanese text using
// kagome morphological analysis with the IPA dictionary. It is safe for
// concurrent use.
type Tokenizer struct {
	t *tokenizer.Tokenizer
}

// NewTokenizer creates a Tokenizer. The IPA dictionary is embedded in the
// binary, so construction fails only on internal tokenizer errors.
func NewTokenizer() (*Tokenizer, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, err
	}
	return &Tokenizer{t: t}, nil
}

// Tokenize segments text into word tokens and returns their canonical base
// forms, ordered by first occurrence and deduplicated.
//
// Filter policy: sentence punctuation surfaces (、。！？) and words whose
// primary part of speech is particle, auxiliary verb, or interjection are
// discarded; the lemma is preferred over the surface form when the
// dictionary knows one; single-rune candidates in the hiragana block
// (U+3040–U+309F) are discarded as phonetic filler. Empty input yields an
// empty, non-nil slice. Analyzer output is always treated as valid; there
// are no error conditions.
func (tk *Tokenizer) Tokenize(text string) []string {
	tokens := tk.t.Tokenize(text)

	seen := make(map[string]bool, len(tokens))
	result := []string{}

	for _, token := range tokens {
		if token.Class == tokenizer.DUMMY {
			continue
		}
		if sentencePunctuation[token.Surface] {
			continue
		}

		features := token.Features()
		if len(features) > 0 && filteredPOS[features[0]] {
			continue
		}

		// IPA dictionary feature layout: index 6 is the base form (lemma).
		candidate := token.Surface
		if len(features) > 6 && features[6] != "*" {
			candidate = features[6]
		}

		if isSingleHiragana(candidate) {
			continue
		}
		if seen[candidate] {
			continue
		}

		seen[candidate] = true
		result = append(result, candidate)
	}

	return result
}

// isSingleHiragana reports whether s is exactly one rune inside the hiragana
// Unicode block U+3040–U+309F.
func isSingleHiragana(s string) bool {
	runes := []rune(s)
	if len(runes) != 1 {
		return false
	}
	return runes[0] >= 0x3040 && runes[0] <= 0x309F
}
