package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	passwordScheme     = "pbkdf2-sha256"
	passwordRounds     = 29000
	passwordSaltBytes  = 16
	passwordKeyLength  = sha256.Size
	maxPasswordRounds  = 1 << 24
	passwordFieldCount = 5
)

var (
	ErrEmptyPassword     = errors.New("password must not be empty")
	ErrMalformedPassword = errors.New("malformed password hash")

	// passlib "adapted base64": standard alphabet with '.' in place of '+', no padding.
	adaptedBase64 = base64.NewEncoding("ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789./").WithPadding(base64.NoPadding)
)

// HashPassword salts and hashes a password with PBKDF2-HMAC-SHA256 and returns
// it encoded as $pbkdf2-sha256$<rounds>$<salt>$<checksum>.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, passwordSaltBytes)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	key := pbkdf2.Key([]byte(password), salt, passwordRounds, passwordKeyLength, sha256.New)

	return fmt.Sprintf("$%s$%d$%s$%s",
		passwordScheme,
		passwordRounds,
		adaptedBase64.EncodeToString(salt),
		adaptedBase64.EncodeToString(key),
	), nil
}

// CheckPasswordHash reports whether password matches the encoded hash.
// Malformed hashes never match.
func CheckPasswordHash(password, encoded string) bool {
	rounds, salt, want, err := parsePasswordHash(encoded)
	if err != nil {
		return false
	}

	got := pbkdf2.Key([]byte(password), salt, rounds, len(want), sha256.New)
	return subtle.ConstantTimeCompare(got, want) == 1
}

func parsePasswordHash(encoded string) (int, []byte, []byte, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != passwordFieldCount || parts[0] != "" || parts[1] != passwordScheme {
		return 0, nil, nil, ErrMalformedPassword
	}

	rounds, err := strconv.Atoi(parts[2])
	if err != nil || rounds <= 0 || rounds > maxPasswordRounds {
		return 0, nil, nil, ErrMalformedPassword
	}

	salt, err := adaptedBase64.DecodeString(parts[3])
	if err != nil {
		return 0, nil, nil, ErrMalformedPassword
	}

	key, err := adaptedBase64.DecodeString(parts[4])
	if err != nil || len(key) == 0 {
		return 0, nil, nil, ErrMalformedPassword
	}

	return rounds, salt, key, nil
}
