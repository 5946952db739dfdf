package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testSecret = "super-secret-jwt-token-with-at-least-32-characters"

func signToken(t *testing.T, claims jwt.MapClaims, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub":   "4b1f0c4e-user",
		"email": "runner@example.com",
		"role":  "authenticated",
		"aud":   "authenticated",
		"iss":   "https://project.supabase.co/auth/v1",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
}

func TestParseAcceptsSupabaseToken(t *testing.T) {
	cfg := Config{Secret: testSecret, Issuer: "https://project.supabase.co/auth/v1", Audience: "authenticated"}

	claims, err := Parse(signToken(t, validClaims(), testSecret), cfg)
	require.NoError(t, err)
	require.Equal(t, "4b1f0c4e-user", claims.Subject)
	require.Equal(t, "runner@example.com", claims.Email)
	require.Equal(t, "authenticated", claims.Role)
	require.False(t, claims.ExpiresAt.IsZero())
}

func TestParseRejectsInvalidTokens(t *testing.T) {
	cfg := Config{Secret: testSecret, Audience: "authenticated"}

	expired := validClaims()
	expired["exp"] = time.Now().Add(-time.Minute).Unix()

	noSubject := validClaims()
	delete(noSubject, "sub")

	wrongAudience := validClaims()
	wrongAudience["aud"] = "anon"

	noExpiry := validClaims()
	delete(noExpiry, "exp")

	cases := map[string]string{
		"expired":        signToken(t, expired, testSecret),
		"no subject":     signToken(t, noSubject, testSecret),
		"wrong audience": signToken(t, wrongAudience, testSecret),
		"no expiry":      signToken(t, noExpiry, testSecret),
		"wrong secret":   signToken(t, validClaims(), "another-secret-another-secret-another"),
		"garbage":        "not-a-jwt",
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(token, cfg)
			require.ErrorIs(t, err, ErrInvalidToken)
		})
	}

	_, err := Parse("  ", cfg)
	require.ErrorIs(t, err, ErrMissingToken)
}

func TestMiddlewareStoresClaimsAndHonoursSkipper(t *testing.T) {
	mw := NewMiddleware(Config{Secret: testSecret}, HabitsOnly)

	var seen *Claims
	handler := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Nil(t, seen)

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/habits", nil))
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Contains(t, rr.Body.String(), "missing bearer token")

	req := httptest.NewRequest(http.MethodGet, "/api/habits", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, validClaims(), testSecret))
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.NotNil(t, seen)
	require.Equal(t, "4b1f0c4e-user", seen.Subject)
}
