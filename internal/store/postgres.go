package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kikitori/kikitori/internal/vocab"
)

// Schema is the SQL DDL for the users, saved_data and jlptvocabulary tables.
// Execute it via [PostgresStore.Migrate] or apply it manually during
// deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
    id            BIGSERIAL PRIMARY KEY,
    username      TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS saved_data (
    user_id         BIGINT PRIMARY KEY REFERENCES users(id),
    transcription   TEXT NOT NULL DEFAULT '',
    translation     TEXT NOT NULL DEFAULT '',
    vocabulary_list JSONB NOT NULL DEFAULT '{}',
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS jlptvocabulary (
    id       BIGSERIAL PRIMARY KEY,
    kanji    TEXT NOT NULL DEFAULT '',
    hiragana TEXT NOT NULL DEFAULT '',
    english  TEXT NOT NULL DEFAULT '',
    level    TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_jlptvocabulary_kanji ON jlptvocabulary(kanji);
CREATE INDEX IF NOT EXISTS idx_jlptvocabulary_hiragana ON jlptvocabulary(hiragana);
`

// DB is the database interface used by [PostgresStore]. Both *pgxpool.Pool
// and *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore is a [Store] backed directly by a PostgreSQL database.
type PostgresStore struct {
	db DB
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a [PostgresStore] over the given connection or
// pool. The caller is responsible for calling [PostgresStore.Migrate] to
// ensure the schema exists before issuing queries.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate executes the [Schema] DDL against the database.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// CreateUser inserts a new account. Returns [ErrConflict] if the username is
// already taken.
func (s *PostgresStore) CreateUser(ctx context.Context, username, passwordHash string) (*User, error) {
	const query = `INSERT INTO users (username, password_hash) VALUES ($1, $2) RETURNING id`

	user := User{Username: username, PasswordHash: passwordHash}
	if err := s.db.QueryRow(ctx, query, username, passwordHash).Scan(&user.ID); err != nil {
		if isDuplicateKeyError(err) {
			return nil, fmt.Errorf("create user %q: %w", username, ErrConflict)
		}
		return nil, fmt.Errorf("store: create user: %w", err)
	}
	return &user, nil
}

// GetUserByUsername retrieves an account. Returns (nil, nil) when absent.
func (s *PostgresStore) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	const query = `SELECT id, username, password_hash FROM users WHERE username = $1`

	var user User
	err := s.db.QueryRow(ctx, query, username).Scan(&user.ID, &user.Username, &user.PasswordHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: get user %q: %w", username, err)
	}
	return &user, nil
}

// SaveBundle creates or replaces the bundle for bundle.UserID.
func (s *PostgresStore) SaveBundle(ctx context.Context, bundle *SavedBundle) error {
	vocabJSON, err := json.Marshal(bundle.Vocabulary)
	if err != nil {
		return fmt.Errorf("store: marshal vocabulary: %w", err)
	}

	const query = `
		INSERT INTO saved_data (user_id, transcription, translation, vocabulary_list)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			transcription = EXCLUDED.transcription,
			translation = EXCLUDED.translation,
			vocabulary_list = EXCLUDED.vocabulary_list,
			updated_at = now()`

	if _, err := s.db.Exec(ctx, query, bundle.UserID, bundle.Transcription, bundle.Translation, vocabJSON); err != nil {
		return fmt.Errorf("store: save bundle for user %d: %w", bundle.UserID, err)
	}
	return nil
}

// GetBundle retrieves the user's bundle. Returns (nil, nil) when absent.
func (s *PostgresStore) GetBundle(ctx context.Context, userID int64) (*SavedBundle, error) {
	const query = `
		SELECT user_id, transcription, translation, vocabulary_list
		FROM saved_data
		WHERE user_id = $1`

	var bundle SavedBundle
	var vocabJSON []byte
	err := s.db.QueryRow(ctx, query, userID).Scan(
		&bundle.UserID, &bundle.Transcription, &bundle.Translation, &vocabJSON,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: get bundle for user %d: %w", userID, err)
	}
	if err := json.Unmarshal(vocabJSON, &bundle.Vocabulary); err != nil {
		return nil, fmt.Errorf("store: unmarshal vocabulary: %w", err)
	}
	return &bundle, nil
}

// LookupByKanji returns one vocabulary row matching the kanji column, or
// (nil, nil) when there is no match.
func (s *PostgresStore) LookupByKanji(ctx context.Context, word string) (*vocab.Row, error) {
	return s.lookup(ctx, `SELECT hiragana, kanji, english, level FROM jlptvocabulary WHERE kanji = $1 LIMIT 1`, word)
}

// LookupByHiragana returns one vocabulary row matching the hiragana column,
// or (nil, nil) when there is no match.
func (s *PostgresStore) LookupByHiragana(ctx context.Context, word string) (*vocab.Row, error) {
	return s.lookup(ctx, `SELECT hiragana, kanji, english, level FROM jlptvocabulary WHERE hiragana = $1 LIMIT 1`, word)
}

func (s *PostgresStore) lookup(ctx context.Context, query, word string) (*vocab.Row, error) {
	var row vocab.Row
	err := s.db.QueryRow(ctx, query, word).Scan(&row.Hiragana, &row.Kanji, &row.English, &row.Level)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: vocabulary lookup %q: %w", word, err)
	}
	return &row, nil
}

// isDuplicateKeyError reports whether err is a PostgreSQL unique constraint
// violation (SQLSTATE 23505).
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
