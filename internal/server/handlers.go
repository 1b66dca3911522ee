package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kikitori/kikitori/internal/auth"
	"github.com/kikitori/kikitori/internal/observe"
	"github.com/kikitori/kikitori/internal/store"
	"github.com/kikitori/kikitori/internal/vocab"
)

// uploadResponse is the payload returned for a processed audio upload.
type uploadResponse struct {
	Filename      string       `json:"filename"`
	Transcription string       `json:"transcription"`
	Translation   string       `json:"translation"`
	Vocabulary    vocab.Result `json:"vocabulary_list"`
}

// handleUpload accepts a multipart audio file, transcribes it, then runs
// translation and vocabulary extraction concurrently on the transcription.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := observe.Logger(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing or oversized file field")
		return
	}
	defer file.Close()

	// The client-supplied name is reduced to its base so it cannot escape
	// the upload directory.
	filename := filepath.Base(header.Filename)
	if filename == "." || filename == string(filepath.Separator) {
		writeError(w, http.StatusBadRequest, "invalid filename")
		return
	}
	audioPath := filepath.Join(s.cfg.UploadDir, filename)

	dst, err := os.Create(audioPath)
	if err != nil {
		log.Error("failed to create upload file", "path", audioPath, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}
	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		log.Error("failed to write upload file", "path", audioPath, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}
	dst.Close()

	sttStart := time.Now()
	transcription, err := s.stt.Transcribe(ctx, audioPath, s.cfg.Language)
	s.metrics.STTDuration.Record(ctx, time.Since(sttStart).Seconds())
	if err != nil {
		s.metrics.RecordProviderError(ctx, s.stt.Name(), "stt")
		log.Error("transcription failed", "provider", s.stt.Name(), "error", err)
		writeError(w, http.StatusBadGateway, "transcription failed")
		return
	}
	s.metrics.RecordProviderRequest(ctx, s.stt.Name(), "stt", "ok")

	// Translation and vocabulary extraction both depend only on the
	// transcription text, so they run concurrently.
	var (
		translation string
		vocabulary  vocab.Result
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		start := time.Now()
		var terr error
		translation, terr = s.translator.Translate(gctx, transcription)
		s.metrics.TranslateDuration.Record(gctx, time.Since(start).Seconds())
		if terr != nil {
			s.metrics.RecordProviderError(gctx, s.translator.Name(), "translate")
			return terr
		}
		s.metrics.RecordProviderRequest(gctx, s.translator.Name(), "translate", "ok")
		return nil
	})
	g.Go(func() error {
		start := time.Now()
		tokens := s.tokenizer.Tokenize(transcription)
		s.metrics.VocabTokens.Add(gctx, int64(len(tokens)))
		vocabulary = s.classifier.Classify(gctx, tokens)
		s.metrics.VocabLookupDuration.Record(gctx, time.Since(start).Seconds())
		return nil
	})
	if err := g.Wait(); err != nil {
		log.Error("translation failed", "provider", s.translator.Name(), "error", err)
		writeError(w, http.StatusBadGateway, "translation failed")
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		Filename:      filename,
		Transcription: transcription,
		Translation:   translation,
		Vocabulary:    vocabulary,
	})
}

// handleRegister creates an account from form fields username and password.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	username, password, ok := formCredentials(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		observe.Logger(ctx).Error("password hashing failed", "error", err)
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	if _, err := s.store.CreateUser(ctx, username, hash); err != nil {
		if errors.Is(err, store.ErrConflict) {
			s.metrics.RecordStoreRequest(ctx, "create user", "conflict")
			writeError(w, http.StatusConflict, "username is already taken")
			return
		}
		s.metrics.RecordStoreRequest(ctx, "create user", "error")
		observe.Logger(ctx).Error("user creation failed", "username", username, "error", err)
		writeError(w, http.StatusBadGateway, "registration failed")
		return
	}
	s.metrics.RecordStoreRequest(ctx, "create user", "ok")

	writeJSON(w, http.StatusCreated, map[string]string{
		"message": "User registered successfully",
	})
}

// handleLogin verifies form credentials against the stored hash. A wrong
// password and an unknown username are indistinguishable in the response.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	username, password, ok := formCredentials(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		s.metrics.RecordStoreRequest(ctx, "get user", "error")
		observe.Logger(ctx).Error("user lookup failed", "username", username, "error", err)
		writeError(w, http.StatusBadGateway, "login failed")
		return
	}
	s.metrics.RecordStoreRequest(ctx, "get user", "ok")

	if user == nil || !auth.CheckPassword(user.PasswordHash, password) {
		writeError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Login successful",
		"user_id": user.ID,
	})
}

// saveUserDataRequest is the JSON payload for POST /save_user_data.
type saveUserDataRequest struct {
	UserID        int64        `json:"user_id"`
	Transcription string       `json:"transcription"`
	Translation   string       `json:"translation"`
	Vocabulary    vocab.Result `json:"vocabulary_list"`
}

// handleSaveUserData upserts the caller's saved study material.
func (s *Server) handleSaveUserData(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req saveUserDataRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if req.UserID <= 0 {
		writeError(w, http.StatusBadRequest, "user_id must be a positive integer")
		return
	}

	bundle := &store.SavedBundle{
		UserID:        req.UserID,
		Transcription: req.Transcription,
		Translation:   req.Translation,
		Vocabulary:    req.Vocabulary,
	}
	if err := s.store.SaveBundle(ctx, bundle); err != nil {
		s.metrics.RecordStoreRequest(ctx, "save bundle", "error")
		observe.Logger(ctx).Error("bundle save failed", "user_id", req.UserID, "error", err)
		writeError(w, http.StatusBadGateway, "failed to save user data")
		return
	}
	s.metrics.RecordStoreRequest(ctx, "save bundle", "ok")

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "User data saved successfully",
	})
}

// userDataResponse mirrors the upload payload for saved material. A user
// with nothing saved gets a null user_data, not an error.
type userDataResponse struct {
	UserData *savedUserData `json:"user_data"`
}

type savedUserData struct {
	UserID        int64        `json:"user_id"`
	Transcription string       `json:"transcription"`
	Translation   string       `json:"translation"`
	Vocabulary    vocab.Result `json:"vocabulary_list"`
}

// handleGetUserData returns the saved bundle for a user.
func (s *Server) handleGetUserData(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := strconv.ParseInt(r.PathValue("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		writeError(w, http.StatusBadRequest, "user_id must be a positive integer")
		return
	}

	bundle, err := s.store.GetBundle(ctx, userID)
	if err != nil {
		s.metrics.RecordStoreRequest(ctx, "get bundle", "error")
		observe.Logger(ctx).Error("bundle load failed", "user_id", userID, "error", err)
		writeError(w, http.StatusBadGateway, "failed to get user data")
		return
	}
	s.metrics.RecordStoreRequest(ctx, "get bundle", "ok")

	resp := userDataResponse{}
	if bundle != nil {
		resp.UserData = &savedUserData{
			UserID:        bundle.UserID,
			Transcription: bundle.Transcription,
			Translation:   bundle.Translation,
			Vocabulary:    bundle.Vocabulary,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// formCredentials extracts username and password form fields.
func formCredentials(r *http.Request) (username, password string, ok bool) {
	if err := r.ParseForm(); err != nil {
		return "", "", false
	}
	username = r.PostFormValue("username")
	password = r.PostFormValue("password")
	if username == "" || password == "" {
		return "", "", false
	}
	return username, password, true
}
