package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signed(t *testing.T, method jwt.SigningMethod, key any, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(method, Claims{
		Sub: "caller-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	s, err := tok.SignedString(key)
	require.NoError(t, err)
	return s
}

func TestAuthenticate(t *testing.T) {
	m := NewJWTMiddleware("s3cret")
	var seen *Claims
	h := m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"garbage", "Bearer not-a-jwt", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + signed(t, jwt.SigningMethodHS256, []byte("other"), time.Now().Add(time.Hour)), http.StatusUnauthorized},
		{"expired", "Bearer " + signed(t, jwt.SigningMethodHS256, []byte("s3cret"), time.Now().Add(-time.Hour)), http.StatusUnauthorized},
		{"valid", "Bearer " + signed(t, jwt.SigningMethodHS256, []byte("s3cret"), time.Now().Add(time.Hour)), http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodPost, "/api/voice", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tc.status, rec.Code)
			if tc.status == http.StatusNoContent {
				require.NotNil(t, seen)
				assert.Equal(t, "caller-1", seen.Sub)
			}
		})
	}
}
