package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndValidateRoundTrip(t *testing.T) {
	s := NewSigner("test-secret")

	token, err := s.Issue("user-123", DefaultTTL)
	require.NoError(t, err)

	userID, err := s.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", userID)
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	s := NewSigner("test-secret")

	token, err := s.Issue("user-123", -time.Minute)
	require.NoError(t, err)

	_, err = s.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	issuer := NewSigner("secret-a")
	verifier := NewSigner("secret-b")

	token, err := issuer.Issue("user-123", DefaultTTL)
	require.NoError(t, err)

	_, err = verifier.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsGarbage(t *testing.T) {
	s := NewSigner("test-secret")
	_, err := s.Validate("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestFromRequestReadsCookie(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: CookieName, Value: "abc123"})

	tok, err := FromRequest(r)
	require.NoError(t, err)
	assert.Equal(t, "abc123", tok)
}

func TestFromRequestMissingCookie(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := FromRequest(r)
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestSetCookieRoundTrip(t *testing.T) {
	w := httptest.NewRecorder()
	SetCookie(w, "sometoken", DefaultTTL)

	resp := w.Result()
	var found *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == CookieName {
			found = c
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, "sometoken", found.Value)
	assert.True(t, found.HttpOnly)
}
