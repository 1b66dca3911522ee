package vocab

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/sony/gobreaker"
)

// Classifier files tokens into JLPT tiers by querying a [Lookup] table. A
// circuit breaker wraps the lookups so that a dead vocabulary table is not
// hammered once per token; both individual lookup failures and an open
// breaker degrade to "no match" for the affected token, never aborting the
// batch. Safe for concurrent use.
type Classifier struct {
	lookup  Lookup
	breaker *gobreaker.CircuitBreaker
}

// NewClassifier creates a Classifier over the given lookup table.
func NewClassifier(lookup Lookup) *Classifier {
	return &Classifier{
		lookup: lookup,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "vocabulary-lookup",
			Timeout: 15 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
	}
}

// Classify looks up each token and returns a Result with all five tiers
// present. Per token: the kanji key is tried first, the hiragana key only
// when the kanji key matched no row; at most one row is consumed per lookup.
// Tokens with no matching row, an unrecognised level, or a failed lookup are
// silently dropped. The external table is never mutated.
func (c *Classifier) Classify(ctx context.Context, tokens []string) Result {
	result := NewResult()

	for _, token := range tokens {
		row := c.find(ctx, token)
		if row == nil {
			continue
		}

		level := Level(strings.ToUpper(strings.TrimSpace(row.Level)))
		if !level.IsValid() {
			slog.Debug("vocabulary row has unrecognised level", "word", token, "level", row.Level)
			continue
		}

		word := row.Kanji
		if word == "" {
			word = row.Hiragana
		}
		result[level] = append(result[level], Entry{
			Word:          word,
			Pronunciation: row.Hiragana,
			Meaning:       row.English,
		})
	}

	return result
}

// find resolves a single token to a table row, or nil when there is no
// match. Transport failures are logged and treated as no-match.
func (c *Classifier) find(ctx context.Context, token string) *Row {
	row, err := c.guarded(func() (*Row, error) {
		return c.lookup.LookupByKanji(ctx, token)
	})
	if err != nil {
		slog.Warn("vocabulary lookup failed, skipping token", "word", token, "key", "kanji", "error", err)
		return nil
	}
	if row != nil {
		return row
	}

	row, err = c.guarded(func() (*Row, error) {
		return c.lookup.LookupByHiragana(ctx, token)
	})
	if err != nil {
		slog.Warn("vocabulary lookup failed, skipping token", "word", token, "key", "hiragana", "error", err)
		return nil
	}
	return row
}

// guarded runs one lookup through the circuit breaker.
func (c *Classifier) guarded(fn func() (*Row, error)) (*Row, error) {
	v, err := c.breaker.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		return nil, err
	}
	row, _ := v.(*Row)
	return row, nil
}
