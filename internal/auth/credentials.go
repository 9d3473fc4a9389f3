package auth

import (
	"encoding/base64"
	"errors"
	"strings"
)

const (
	schemeToken  = "token"
	schemeBearer = "bearer"
	schemeBasic  = "basic"
)

var (
	ErrMissingCredentials   = errors.New("missing Authorization header")
	ErrMalformedCredentials = errors.New("malformed Authorization header")
	ErrUnknownCredentials   = errors.New("credentials did not match an active user")
)

// Credentials is the parsed content of an Authorization header. Exactly one
// of Token or Username is set.
type Credentials struct {
	Token    string
	Username string
	Password string
}

// ParseAuthorization accepts "Token <token>", "Bearer <token>" and
// "Basic <base64(user:password)>".
func ParseAuthorization(header string) (Credentials, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return Credentials{}, ErrMissingCredentials
	}

	scheme, value, found := strings.Cut(header, " ")
	value = strings.TrimSpace(value)
	if !found || value == "" {
		return Credentials{}, ErrMalformedCredentials
	}

	switch strings.ToLower(scheme) {
	case schemeToken, schemeBearer:
		return Credentials{Token: value}, nil
	case schemeBasic:
		decoded, err := base64.StdEncoding.DecodeString(value)
		if err != nil {
			return Credentials{}, ErrMalformedCredentials
		}
		username, password, ok := strings.Cut(string(decoded), ":")
		if !ok || username == "" {
			return Credentials{}, ErrMalformedCredentials
		}
		return Credentials{Username: username, Password: password}, nil
	default:
		return Credentials{}, ErrMalformedCredentials
	}
}
