package store

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kikitori/kikitori/internal/vocab"
)

func TestPostgRESTStore_CreateUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/users" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("apikey"); got != "key123" {
			t.Errorf("apikey header = %q, want key123", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer key123" {
			t.Errorf("Authorization header = %q, want bearer token", got)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		if body["username"] != "dakota" || body["password_hash"] == "" {
			t.Errorf("unexpected request body %v", body)
		}
		if _, ok := body["password"]; ok {
			t.Error("request body uses a password column instead of password_hash")
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode([]User{{ID: 7, Username: "dakota", PasswordHash: body["password_hash"]}})
	}))
	defer srv.Close()

	s := NewPostgRESTStore(srv.URL, "key123")
	user, err := s.CreateUser(context.Background(), "dakota", "pbkdf2:sha256:600000$x$y")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if user.ID != 7 || user.Username != "dakota" {
		t.Errorf("user = %+v, want ID 7 username dakota", user)
	}
}

func TestPostgRESTStore_CreateUserConflict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer srv.Close()

	s := NewPostgRESTStore(srv.URL, "key")
	_, err := s.CreateUser(context.Background(), "dakota", "hash")
	if !errors.Is(err, ErrConflict) {
		t.Errorf("CreateUser error = %v, want ErrConflict", err)
	}
}

func TestPostgRESTStore_GetUserByUsername(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if got := q.Get("username"); got != "eq.dakota" {
			t.Errorf("username filter = %q, want eq.dakota", got)
		}
		if got := q.Get("limit"); got != "1" {
			t.Errorf("limit = %q, want 1", got)
		}
		if got := q.Get("select"); got != "id,username,password_hash" {
			t.Errorf("select = %q, want id,username,password_hash", got)
		}
		json.NewEncoder(w).Encode([]map[string]any{
			{"id": 7, "username": "dakota", "password_hash": "hash"},
		})
	}))
	defer srv.Close()

	s := NewPostgRESTStore(srv.URL, "key")
	user, err := s.GetUserByUsername(context.Background(), "dakota")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if user == nil || user.PasswordHash != "hash" {
		t.Errorf("user = %+v, want stored hash", user)
	}
}

func TestPostgRESTStore_GetUserByUsernameAbsent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("[]"))
	}))
	defer srv.Close()

	s := NewPostgRESTStore(srv.URL, "key")
	user, err := s.GetUserByUsername(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if user != nil {
		t.Errorf("user = %+v, want nil for absent account", user)
	}
}

func TestPostgRESTStore_SaveBundleUpserts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/saved_data" {
			t.Errorf("path = %q, want /saved_data", r.URL.Path)
		}
		if got := r.URL.Query().Get("on_conflict"); got != "user_id" {
			t.Errorf("on_conflict = %q, want user_id", got)
		}
		if got := r.Header.Get("Prefer"); got != "resolution=merge-duplicates,return=minimal" {
			t.Errorf("Prefer header = %q", got)
		}
		var body map[string]json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		if string(body["user_id"]) != "7" {
			t.Errorf("user_id = %s, want 7", body["user_id"])
		}
		if _, ok := body["vocabulary_list"]; !ok {
			t.Error("request body is missing the vocabulary_list column")
		}
		if _, ok := body["vocabulary"]; ok {
			t.Error("request body uses a vocabulary column instead of vocabulary_list")
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	s := NewPostgRESTStore(srv.URL, "key")
	err := s.SaveBundle(context.Background(), &SavedBundle{
		UserID:        7,
		Transcription: "実は宝を見つけました",
		Translation:   "Actually, I found a treasure.",
		Vocabulary:    vocab.NewResult(),
	})
	if err != nil {
		t.Fatalf("SaveBundle: %v", err)
	}
}

func TestPostgRESTStore_GetBundle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if got := q.Get("user_id"); got != "eq.7" {
			t.Errorf("user_id filter = %q, want eq.7", got)
		}
		if got := q.Get("select"); got != "user_id,transcription,translation,vocabulary_list" {
			t.Errorf("select = %q, want user_id,transcription,translation,vocabulary_list", got)
		}
		w.Write([]byte(`[{"user_id":7,"transcription":"実は宝を見つけました","translation":"Actually, I found a treasure.","vocabulary_list":{"N5":[],"N4":[],"N3":[{"Word":"宝","Pronunciation":"たから","Meaning":"treasure"}],"N2":[],"N1":[]}}]`))
	}))
	defer srv.Close()

	s := NewPostgRESTStore(srv.URL, "key")
	bundle, err := s.GetBundle(context.Background(), 7)
	if err != nil {
		t.Fatalf("GetBundle: %v", err)
	}
	if bundle == nil || bundle.Transcription != "実は宝を見つけました" {
		t.Fatalf("bundle = %+v", bundle)
	}
	if got := len(bundle.Vocabulary[vocab.N3]); got != 1 {
		t.Errorf("N3 entries = %d, want 1", got)
	}
}

func TestPostgRESTStore_GetBundleAbsent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("[]"))
	}))
	defer srv.Close()

	s := NewPostgRESTStore(srv.URL, "key")
	bundle, err := s.GetBundle(context.Background(), 7)
	if err != nil {
		t.Fatalf("GetBundle: %v", err)
	}
	if bundle != nil {
		t.Errorf("bundle = %+v, want nil when nothing saved", bundle)
	}
}

func TestPostgRESTStore_LookupByKanji(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/jlptvocabulary" {
			t.Errorf("path = %q, want /jlptvocabulary", r.URL.Path)
		}
		q := r.URL.Query()
		if got := q.Get("kanji"); got != "eq.宝" {
			t.Errorf("kanji filter = %q, want eq.宝", got)
		}
		if got := q.Get("select"); got != "hiragana,kanji,english,level" {
			t.Errorf("select = %q", got)
		}
		json.NewEncoder(w).Encode([]vocab.Row{
			{Kanji: "宝", Hiragana: "たから", English: "treasure", Level: "N3"},
		})
	}))
	defer srv.Close()

	s := NewPostgRESTStore(srv.URL, "key")
	row, err := s.LookupByKanji(context.Background(), "宝")
	if err != nil {
		t.Fatalf("LookupByKanji: %v", err)
	}
	if row == nil || row.English != "treasure" || row.Level != "N3" {
		t.Errorf("row = %+v", row)
	}
}

func TestPostgRESTStore_ServerErrorIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := NewPostgRESTStore(srv.URL, "key")
	_, err := s.LookupByHiragana(context.Background(), "たから")
	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("error = %v, want *TransportError", err)
	}
	if terr.Status != http.StatusInternalServerError {
		t.Errorf("Status = %d, want 500", terr.Status)
	}
}
