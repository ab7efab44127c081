// Package auth issues and validates the bearer token from spec §6: a
// signed JWT carrying {userId}, delivered in an HTTP-only cookie named
// "token", 12h TTL (18h on registration). Registration/login themselves
// belong to the external identity service (spec §1); this package only
// signs/validates the token the realtime core trusts.
package auth

import (
	"errors"
	"net/http"
	"time"

	jwt "github.com/form3tech-oss/jwt-go"
)

const CookieName = "token"

const (
	DefaultTTL      = 12 * time.Hour
	RegistrationTTL = 18 * time.Hour
)

var (
	ErrNoToken      = errors.New("auth: no token cookie present")
	ErrInvalidToken = errors.New("auth: token invalid or expired")
)

type Signer struct {
	secret []byte
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

type claims struct {
	jwt.StandardClaims
	UserID string `json:"userId"`
}

// Issue mints a signed token for userID with the given TTL.
func (s *Signer) Issue(userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	c := claims{
		StandardClaims: jwt.StandardClaims{
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(ttl).Unix(),
		},
		UserID: userID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return token.SignedString(s.secret)
}

// Validate parses and verifies a token string, returning the carried
// userId.
func (s *Signer) Validate(tokenString string) (string, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}

	c, ok := parsed.Claims.(*claims)
	if !ok || c.UserID == "" {
		return "", ErrInvalidToken
	}

	return c.UserID, nil
}

// SetCookie attaches the signed token as an HTTP-only cookie.
func SetCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(ttl),
	})
}

// FromRequest extracts the raw token string from the cookie on an HTTP
// request (used both by the command surface's auth middleware and by the
// websocket upgrade handshake, which reads the same cookie).
func FromRequest(r *http.Request) (string, error) {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return "", ErrNoToken
	}
	return c.Value, nil
}
