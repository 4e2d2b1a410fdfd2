package jwt

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testSecret = "unit-test-secret"

func TestGenerateAndParseToken(t *testing.T) {
	payload := &Payload{ID: "user-1", Username: "alice"}

	token, err := GenerateToken(payload, testSecret, time.Minute)
	require.NoError(t, err)

	parsed, err := ParseToken(token, testSecret)
	require.NoError(t, err)
	require.Equal(t, "user-1", parsed.ID)
	require.Equal(t, "alice", parsed.Username)
	require.Equal(t, TokenIssuer, parsed.Issuer)
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	token, err := GenerateToken(&Payload{ID: "user-1"}, testSecret, time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(token, "a-different-secret")
	require.Error(t, err)
}

func TestParseTokenRejectsExpired(t *testing.T) {
	token, err := GenerateToken(&Payload{ID: "user-1"}, testSecret, -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(token, testSecret)
	require.Error(t, err)
}

func TestIdentityExtractorMiddleware(t *testing.T) {
	var captured *Payload
	handler := IdentityExtractorMiddleware(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = GetPayloadFromContext(r)
	}))

	// No token: anonymous, request still served.
	r := httptest.NewRequest("GET", "/", nil)
	handler.ServeHTTP(httptest.NewRecorder(), r)
	require.Nil(t, captured)

	// Garbage token: still anonymous, never a 401.
	r = httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Authorization", "Bearer not-a-token")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	require.Nil(t, captured)
	require.Equal(t, http.StatusOK, w.Code)

	// Valid token: payload lands in the context.
	token, err := GenerateToken(&Payload{ID: "user-1", Username: "alice"}, testSecret, time.Minute)
	require.NoError(t, err)

	r = httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(httptest.NewRecorder(), r)
	require.NotNil(t, captured)
	require.Equal(t, "user-1", captured.ID)
}
