package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/kikitori/kikitori/internal/vocab"
)

const defaultPostgRESTTimeout = 10 * time.Second

// PostgRESTStore talks to a PostgREST row store (Supabase's data API). It
// expects the tables users, saved_data and jlptvocabulary to exist in the
// exposed schema.
type PostgRESTStore struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

var _ Store = (*PostgRESTStore)(nil)

// PostgRESTOption configures a [PostgRESTStore].
type PostgRESTOption func(*PostgRESTStore)

// WithHTTPClient overrides the HTTP client used for requests.
func WithHTTPClient(client *http.Client) PostgRESTOption {
	return func(s *PostgRESTStore) {
		s.client = client
	}
}

// WithRESTTimeout sets the per-request timeout.
func WithRESTTimeout(d time.Duration) PostgRESTOption {
	return func(s *PostgRESTStore) {
		s.client.Timeout = d
	}
}

// NewPostgRESTStore creates a store client for the REST endpoint at baseURL
// (e.g. "https://xyz.supabase.co/rest/v1"). The API key is sent both as the
// apikey header and as a bearer token.
func NewPostgRESTStore(baseURL, apiKey string, opts ...PostgRESTOption) *PostgRESTStore {
	s := &PostgRESTStore{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: defaultPostgRESTTimeout},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateUser inserts a new account row and returns the stored representation.
func (s *PostgRESTStore) CreateUser(ctx context.Context, username, passwordHash string) (*User, error) {
	body, err := json.Marshal(map[string]string{
		"username":      username,
		"password_hash": passwordHash,
	})
	if err != nil {
		return nil, &TransportError{Op: "create user", Err: err}
	}

	req, err := s.newRequest(ctx, http.MethodPost, "users", nil, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "create user", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict {
		return nil, fmt.Errorf("create user %q: %w", username, ErrConflict)
	}
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, &TransportError{Op: "create user", Status: resp.StatusCode}
	}

	var users []User
	if err := json.NewDecoder(resp.Body).Decode(&users); err != nil {
		return nil, &TransportError{Op: "create user", Err: err}
	}
	if len(users) == 0 {
		return nil, &TransportError{Op: "create user", Err: fmt.Errorf("empty representation")}
	}
	return &users[0], nil
}

// GetUserByUsername retrieves an account row, or (nil, nil) when absent.
func (s *PostgRESTStore) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	params := url.Values{
		"username": {"eq." + username},
		"select":   {"id,username,password_hash"},
		"limit":    {"1"},
	}
	var users []User
	if err := s.getJSON(ctx, "get user", "users", params, &users); err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, nil
	}
	return &users[0], nil
}

// SaveBundle upserts the user's saved material, keyed on user_id.
func (s *PostgRESTStore) SaveBundle(ctx context.Context, bundle *SavedBundle) error {
	body, err := json.Marshal(bundle)
	if err != nil {
		return &TransportError{Op: "save bundle", Err: err}
	}

	params := url.Values{"on_conflict": {"user_id"}}
	req, err := s.newRequest(ctx, http.MethodPost, "saved_data", params, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "resolution=merge-duplicates,return=minimal")

	resp, err := s.client.Do(req)
	if err != nil {
		return &TransportError{Op: "save bundle", Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK &&
		resp.StatusCode != http.StatusNoContent {
		return &TransportError{Op: "save bundle", Status: resp.StatusCode}
	}
	return nil
}

// GetBundle retrieves the user's saved material, or (nil, nil) when absent.
func (s *PostgRESTStore) GetBundle(ctx context.Context, userID int64) (*SavedBundle, error) {
	params := url.Values{
		"user_id": {"eq." + strconv.FormatInt(userID, 10)},
		"select":  {"user_id,transcription,translation,vocabulary_list"},
		"limit":   {"1"},
	}
	var bundles []SavedBundle
	if err := s.getJSON(ctx, "get bundle", "saved_data", params, &bundles); err != nil {
		return nil, err
	}
	if len(bundles) == 0 {
		return nil, nil
	}
	return &bundles[0], nil
}

// LookupByKanji returns the first vocabulary row whose kanji column equals
// word, or (nil, nil) when there is no match.
func (s *PostgRESTStore) LookupByKanji(ctx context.Context, word string) (*vocab.Row, error) {
	return s.lookup(ctx, "kanji", word)
}

// LookupByHiragana returns the first vocabulary row whose hiragana column
// equals word, or (nil, nil) when there is no match.
func (s *PostgRESTStore) LookupByHiragana(ctx context.Context, word string) (*vocab.Row, error) {
	return s.lookup(ctx, "hiragana", word)
}

func (s *PostgRESTStore) lookup(ctx context.Context, column, word string) (*vocab.Row, error) {
	params := url.Values{
		column:   {"eq." + word},
		"select": {"hiragana,kanji,english,level"},
		"limit":  {"1"},
	}
	var rows []vocab.Row
	if err := s.getJSON(ctx, "lookup "+column, "jlptvocabulary", params, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// getJSON performs a filtered GET against a table and decodes the JSON array
// response into out.
func (s *PostgRESTStore) getJSON(ctx context.Context, op, table string, params url.Values, out any) error {
	req, err := s.newRequest(ctx, http.MethodGet, table, params, nil)
	if err != nil {
		return err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &TransportError{Op: op, Status: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransportError{Op: op, Err: err}
	}
	return nil
}

func (s *PostgRESTStore) newRequest(ctx context.Context, method, table string, params url.Values, body io.Reader) (*http.Request, error) {
	u := s.baseURL + "/" + table
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, &TransportError{Op: "build request", Err: err}
	}
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	return req, nil
}
