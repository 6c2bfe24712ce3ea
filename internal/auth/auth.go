// Package auth signs administrators in with bcrypt-hashed passwords and
// keeps them signed in with a JWT carried in the admin_session cookie.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// CookieName is the admin session cookie.
const CookieName = "admin_session"

// DefaultSessionTTL is how long a login lasts.
const DefaultSessionTTL = 7 * 24 * time.Hour

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid session token")
	ErrNoSecret           = errors.New("jwt secret is not configured")
)

// Account is one administrator. PasswordHash is a bcrypt hash.
type Account struct {
	Email        string
	PasswordHash string
}

// HashPassword returns the bcrypt hash stored in the config file.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

// Claims are the JWT claims of an admin session.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Authenticator checks credentials and issues session tokens.
type Authenticator struct {
	accounts map[string]string
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
}

// New creates an Authenticator. Emails compare case-insensitively.
func New(accounts []Account, secret string, ttl time.Duration) (*Authenticator, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	a := &Authenticator{
		accounts: make(map[string]string, len(accounts)),
		secret:   []byte(secret),
		ttl:      ttl,
		now:      time.Now,
	}
	for _, acc := range accounts {
		a.accounts[normalizeEmail(acc.Email)] = acc.PasswordHash
	}
	return a, nil
}

// TTL is the lifetime of issued tokens.
func (a *Authenticator) TTL() time.Duration { return a.ttl }

// Login verifies the password and returns a signed token.
func (a *Authenticator) Login(email, password string) (string, error) {
	email = normalizeEmail(email)
	hash, ok := a.accounts[email]
	if !ok {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return a.Issue(email)
}

// Issue signs a session token for email.
func (a *Authenticator) Issue(email string) (string, error) {
	now := a.now()
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return token, nil
}

// Verify parses a token and returns the admin email. Tokens for accounts
// that were removed from the config are rejected.
func (a *Authenticator) Verify(token string) (string, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}
	if _, ok := a.accounts[claims.Email]; !ok {
		return "", ErrInvalidToken
	}
	return claims.Email, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
