// Package vocab implements the vocabulary pipeline: morphological
// tokenization of Japanese text into deduplicated base-form tokens, and
// classification of those tokens into JLPT proficiency tiers via an external
// keyed vocabulary table.
package vocab

import "context"

// Level is one of the five JLPT proficiency tiers, N5 (easiest) through N1
// (hardest). The enumeration is closed.
type Level string

const (
	N5 Level = "N5"
	N4 Level = "N4"
	N3 Level = "N3"
	N2 Level = "N2"
	N1 Level = "N1"
)

// Levels lists all tiers in ascending difficulty order.
var Levels = []Level{N5, N4, N3, N2, N1}

// IsValid reports whether l is a recognised JLPT level.
func (l Level) IsValid() bool {
	switch l {
	case N5, N4, N3, N2, N1:
		return true
	}
	return false
}

// Entry is one classified vocabulary item. Word is the preferred display
// form (kanji when the table has one, hiragana otherwise), Pronunciation is
// the hiragana reading, Meaning is the English gloss.
type Entry struct {
	Word          string `json:"Word"`
	Pronunciation string `json:"Pronunciation"`
	Meaning       string `json:"Meaning"`
}

// Result maps each JLPT level to the entries classified under it, in token
// processing order. All five tiers are always present, possibly empty.
type Result map[Level][]Entry

// NewResult returns a Result with all five tiers initialised to empty
// slices, so that JSON output always carries every tier.
func NewResult() Result {
	return Result{
		N5: []Entry{},
		N4: []Entry{},
		N3: []Entry{},
		N2: []Entry{},
		N1: []Entry{},
	}
}

// Row is one row of the external vocabulary table.
type Row struct {
	Kanji    string `json:"kanji"`
	Hiragana string `json:"hiragana"`
	English  string `json:"english"`
	Level    string `json:"level"`
}

// Lookup queries the external vocabulary table by one of its two candidate
// keys. Implementations return (nil, nil) when no row matches; a non-nil
// error indicates a transport-level failure, which the classifier treats as
// "no match" for that token.
type Lookup interface {
	// LookupByKanji returns at most one row whose kanji column equals word.
	LookupByKanji(ctx context.Context, word string) (*Row, error)

	// LookupByHiragana returns at most one row whose hiragana column equals word.
	LookupByHiragana(ctx context.Context, word string) (*Row, error)
}
