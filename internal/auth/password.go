// Package auth hashes and verifies user passwords.
//
// The hash format is "pbkdf2:sha256:<iterations>$<salt>$<hex digest>", which
// keeps hashes interchangeable with deployments whose user table was
// populated by Werkzeug's generate_password_hash.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	defaultIterations = 600000
	saltLen           = 16
	keyLen            = 32
)

const saltAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// HashPassword derives a salted PBKDF2-SHA256 hash of the given password.
func HashPassword(password string) (string, error) {
	salt, err := randomSalt(saltLen)
	if err != nil {
		return "", fmt.Errorf("auth: generate salt: %w", err)
	}
	digest := pbkdf2.Key([]byte(password), []byte(salt), defaultIterations, keyLen, sha256.New)
	return fmt.Sprintf("pbkdf2:sha256:%d$%s$%s", defaultIterations, salt, hex.EncodeToString(digest)), nil
}

// CheckPassword reports whether the password matches the stored hash. A
// malformed hash never matches.
func CheckPassword(hash, password string) bool {
	method, salt, digestHex, ok := parseHash(hash)
	if !ok {
		return false
	}
	iterations, ok := parseMethod(method)
	if !ok {
		return false
	}
	want, err := hex.DecodeString(digestHex)
	if err != nil {
		return false
	}
	got := pbkdf2.Key([]byte(password), []byte(salt), iterations, len(want), sha256.New)
	return subtle.ConstantTimeCompare(got, want) == 1
}

// parseHash splits "method$salt$digest" into its parts.
func parseHash(hash string) (method, salt, digest string, ok bool) {
	parts := strings.SplitN(hash, "$", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", "", "", false
	}
	return parts[0], parts[1], parts[2], true
}

// parseMethod accepts "pbkdf2:sha256" with an optional iteration count.
func parseMethod(method string) (iterations int, ok bool) {
	fields := strings.Split(method, ":")
	if len(fields) < 2 || fields[0] != "pbkdf2" || fields[1] != "sha256" {
		return 0, false
	}
	if len(fields) == 2 {
		return defaultIterations, true
	}
	n, err := strconv.Atoi(fields[2])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func randomSalt(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = saltAlphabet[int(b)%len(saltAlphabet)]
	}
	return string(buf), nil
}
