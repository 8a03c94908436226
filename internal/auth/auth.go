// Package auth is a static credential check for the HTTP gateway. Tokens
// are the username itself; it gates access and nothing more.
package auth

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
)

var ErrUnauthorized = errors.New("unauthorized")

type User struct {
	Username       string `json:"username"`
	FullName       string `json:"full_name"`
	Email          string `json:"email"`
	Disabled       bool   `json:"disabled"`
	HashedPassword string `json:"-"`
}

// Token is the body returned by a successful login.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Users is an in-memory user directory keyed by username.
type Users map[string]User

// DefaultUsers returns the built-in demo accounts.
func DefaultUsers() Users {
	return Users{
		"teste": {
			Username:       "teste",
			FullName:       "teste teste",
			Email:          "teste@example.com",
			HashedPassword: HashPassword("teste"),
		},
		"alice": {
			Username:       "alice",
			FullName:       "Alice Wonderson",
			Email:          "alice@example.com",
			HashedPassword: HashPassword("secret"),
			Disabled:       true,
		},
	}
}

// HashPassword is a placeholder hash, not a real one.
func HashPassword(password string) string { return "fakehashed" + password }

// Login checks username and password and returns a bearer token.
func (u Users) Login(username, password string) (Token, error) {
	user, ok := u[username]
	if !ok {
		return Token{}, ErrUnauthorized
	}
	if subtle.ConstantTimeCompare([]byte(HashPassword(password)), []byte(user.HashedPassword)) != 1 {
		return Token{}, ErrUnauthorized
	}
	return Token{AccessToken: user.Username, TokenType: "bearer"}, nil
}

// Authenticate resolves a bearer token into an active user.
func (u Users) Authenticate(token string) (User, error) {
	user, ok := u[token]
	if !ok || user.Disabled {
		return User{}, ErrUnauthorized
	}
	return user, nil
}

// BearerToken extracts the token from an "Authorization: Bearer x" header.
func BearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
