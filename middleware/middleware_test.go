package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"eventura/globals"

	"github.com/golang-jwt/jwt/v5"
	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, userID string, verified bool, ttl time.Duration) string {
	t.Helper()
	claims := &Claims{
		Email:         userID + "@example.com",
		UserID:        userID,
		EmailVerified: verified,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(globals.JwtSecret)
	require.NoError(t, err)
	return signed
}

func okHandler(t *testing.T, wantUserID string) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		assert.Equal(t, wantUserID, UserID(r))
		w.WriteHeader(http.StatusOK)
	}
}

func TestAuthenticate(t *testing.T) {
	handler := Authenticate(okHandler(t, "u1"))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+signToken(t, "u1", true, time.Minute))
	w := httptest.NewRecorder()
	handler(w, r, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthenticateRejects(t *testing.T) {
	cases := map[string]string{
		"missing header": "",
		"no bearer":      signToken(t, "u1", true, time.Minute),
		"garbage":        "Bearer not.a.token",
		"expired":        "Bearer " + signToken(t, "u1", true, -time.Minute),
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			called := false
			handler := Authenticate(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
				called = true
			})
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if header != "" {
				r.Header.Set("Authorization", header)
			}
			w := httptest.NewRecorder()
			handler(w, r, nil)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.False(t, called)
		})
	}
}

func TestAuthenticateRejectsUpgradeWithoutToken(t *testing.T) {
	// Upgrade headers must not stand in for a token.
	called := false
	handler := Authenticate(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		called = true
	})

	r := httptest.NewRequest(http.MethodPost, "/", nil)
	r.Header.Set("Connection", "Upgrade")
	r.Header.Set("Upgrade", "websocket")
	w := httptest.NewRecorder()
	handler(w, r, nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, called)
}

func TestRequireVerified(t *testing.T) {
	handler := Chain(Authenticate, RequireVerified)(okHandler(t, "u1"))

	r := httptest.NewRequest(http.MethodPost, "/", nil)
	r.Header.Set("Authorization", "Bearer "+signToken(t, "u1", true, time.Minute))
	w := httptest.NewRecorder()
	handler(w, r, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireVerifiedBlocksUnverified(t *testing.T) {
	called := false
	handler := Chain(Authenticate, RequireVerified)(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		called = true
	})

	r := httptest.NewRequest(http.MethodPost, "/", nil)
	r.Header.Set("Authorization", "Bearer "+signToken(t, "u1", false, time.Minute))
	w := httptest.NewRecorder()
	handler(w, r, nil)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.False(t, called)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "email_not_verified", body["code"])
}

func TestOptionalAuth(t *testing.T) {
	handler := OptionalAuth(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Write([]byte(UserID(r)))
	})

	// without a token the request still goes through, anonymously
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	handler(w, r, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())

	// with a token the identity is attached
	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+signToken(t, "u1", true, time.Minute))
	w = httptest.NewRecorder()
	handler(w, r, nil)
	assert.Equal(t, "u1", w.Body.String())
}
