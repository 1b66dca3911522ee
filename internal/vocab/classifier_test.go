package vocab

import (
	"context"
	"errors"
	"testing"
)

// fakeLookup is an in-memory Lookup with per-key error injection.
type fakeLookup struct {
	byKanji    map[string]*Row
	byHiragana map[string]*Row

	kanjiErr    error
	hiraganaErr error

	hiraganaCalls []string
}

func (f *fakeLookup) LookupByKanji(_ context.Context, word string) (*Row, error) {
	if f.kanjiErr != nil {
		return nil, f.kanjiErr
	}
	return f.byKanji[word], nil
}

func (f *fakeLookup) LookupByHiragana(_ context.Context, word string) (*Row, error) {
	f.hiraganaCalls = append(f.hiraganaCalls, word)
	if f.hiraganaErr != nil {
		return nil, f.hiraganaErr
	}
	return f.byHiragana[word], nil
}

func TestClassify_AllTiersAlwaysPresent(t *testing.T) {
	c := NewClassifier(&fakeLookup{})

	result := c.Classify(context.Background(), nil)

	if len(result) != len(Levels) {
		t.Fatalf("result has %d tiers, want %d", len(result), len(Levels))
	}
	for _, lvl := range Levels {
		entries, ok := result[lvl]
		if !ok {
			t.Errorf("tier %s missing from result", lvl)
		}
		if entries == nil {
			t.Errorf("tier %s is nil, want empty slice", lvl)
		}
	}
}

func TestClassify_HiraganaFallback(t *testing.T) {
	// Matches the documented example: よろしい only exists under its
	// hiragana key, 宝 matches nothing.
	lookup := &fakeLookup{
		byHiragana: map[string]*Row{
			"よろしい": {Hiragana: "よろしい", English: "good", Level: "N4"},
		},
	}
	c := NewClassifier(lookup)

	result := c.Classify(context.Background(), []string{"よろしい", "宝"})

	if got := len(result[N4]); got != 1 {
		t.Fatalf("N4 has %d entries, want 1", got)
	}
	entry := result[N4][0]
	if entry.Word != "よろしい" || entry.Pronunciation != "よろしい" || entry.Meaning != "good" {
		t.Errorf("N4 entry = %+v, want Word/Pronunciation よろしい, Meaning good", entry)
	}
	for _, lvl := range []Level{N5, N3, N2, N1} {
		if len(result[lvl]) != 0 {
			t.Errorf("tier %s has %d entries, want 0", lvl, len(result[lvl]))
		}
	}
}

func TestClassify_KanjiTakesPrecedence(t *testing.T) {
	lookup := &fakeLookup{
		byKanji: map[string]*Row{
			"宝": {Kanji: "宝", Hiragana: "たから", English: "treasure", Level: "N3"},
		},
		byHiragana: map[string]*Row{
			"宝": {Hiragana: "たから", English: "should not be used", Level: "N5"},
		},
	}
	c := NewClassifier(lookup)

	result := c.Classify(context.Background(), []string{"宝"})

	if got := len(result[N3]); got != 1 {
		t.Fatalf("N3 has %d entries, want 1", got)
	}
	if result[N3][0].Meaning != "treasure" {
		t.Errorf("Meaning = %q, want %q", result[N3][0].Meaning, "treasure")
	}
	if len(lookup.hiraganaCalls) != 0 {
		t.Errorf("hiragana lookup called for %v despite kanji match", lookup.hiraganaCalls)
	}
}

func TestClassify_DisplayWordPrefersKanji(t *testing.T) {
	lookup := &fakeLookup{
		byKanji: map[string]*Row{
			"見つける": {Kanji: "見つける", Hiragana: "みつける", English: "to find", Level: "N4"},
		},
	}
	c := NewClassifier(lookup)

	result := c.Classify(context.Background(), []string{"見つける"})

	entry := result[N4][0]
	if entry.Word != "見つける" {
		t.Errorf("Word = %q, want kanji form", entry.Word)
	}
	if entry.Pronunciation != "みつける" {
		t.Errorf("Pronunciation = %q, want hiragana form", entry.Pronunciation)
	}
}

func TestClassify_LevelCaseInsensitive(t *testing.T) {
	lookup := &fakeLookup{
		byKanji: map[string]*Row{
			"宝": {Kanji: "宝", Hiragana: "たから", English: "treasure", Level: "n5"},
		},
	}
	c := NewClassifier(lookup)

	result := c.Classify(context.Background(), []string{"宝"})

	if got := len(result[N5]); got != 1 {
		t.Errorf("N5 has %d entries for lowercase level, want 1", got)
	}
}

func TestClassify_UnrecognisedLevelDropped(t *testing.T) {
	lookup := &fakeLookup{
		byKanji: map[string]*Row{
			"宝": {Kanji: "宝", Hiragana: "たから", English: "treasure", Level: "N7"},
		},
	}
	c := NewClassifier(lookup)

	result := c.Classify(context.Background(), []string{"宝"})

	for _, lvl := range Levels {
		if len(result[lvl]) != 0 {
			t.Errorf("tier %s has %d entries for unrecognised level, want 0", lvl, len(result[lvl]))
		}
	}
}

func TestClassify_LookupFailureSkipsTokenOnly(t *testing.T) {
	// First token errors on the kanji key; the batch must still classify
	// the remaining tokens.
	calls := 0
	lookup := &flakyLookup{
		failFirst: &calls,
		rows: map[string]*Row{
			"宝": {Kanji: "宝", Hiragana: "たから", English: "treasure", Level: "N3"},
		},
	}
	c := NewClassifier(lookup)

	result := c.Classify(context.Background(), []string{"見つける", "宝"})

	if got := len(result[N3]); got != 1 {
		t.Errorf("N3 has %d entries, want 1 (failure must not abort the batch)", got)
	}
}

// flakyLookup fails the very first lookup call and serves rows afterwards.
type flakyLookup struct {
	failFirst *int
	rows      map[string]*Row
}

func (f *flakyLookup) LookupByKanji(_ context.Context, word string) (*Row, error) {
	*f.failFirst++
	if *f.failFirst == 1 {
		return nil, errors.New("connection refused")
	}
	return f.rows[word], nil
}

func (f *flakyLookup) LookupByHiragana(_ context.Context, word string) (*Row, error) {
	return f.rows[word], nil
}

func TestLevelIsValid(t *testing.T) {
	for _, lvl := range Levels {
		if !lvl.IsValid() {
			t.Errorf("Level %s reported invalid", lvl)
		}
	}
	for _, bad := range []Level{"", "N0", "N6", "n5"} {
		if bad.IsValid() {
			t.Errorf("Level %q reported valid", bad)
		}
	}
}
