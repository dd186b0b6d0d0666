package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	s := NewService("secret")
	token, err := s.IssueToken("ops@site", time.Hour)
	require.NoError(t, err)

	sub, err := s.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ops@site", sub)

	_, err = NewService("other").ValidateToken(token)
	assert.Error(t, err)

	expired, err := s.IssueToken("ops@site", -time.Hour)
	require.NoError(t, err, "non-positive ttl falls back to the default")
	_, err = s.ValidateToken(expired)
	assert.NoError(t, err)

	_, err = s.IssueToken("", time.Hour)
	assert.Error(t, err)
}

func TestAuthMiddleware(t *testing.T) {
	s := NewService("secret")
	token, err := s.IssueToken("ops", time.Hour)
	require.NoError(t, err)

	h := s.AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(SubjectFromContext(r.Context())))
	}))

	tests := []struct {
		name   string
		header string
		query  string
		status int
	}{
		{name: "missing", status: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic abc", status: http.StatusUnauthorized},
		{name: "garbage", header: "Bearer abc", status: http.StatusUnauthorized},
		{name: "header", header: "Bearer " + token, status: http.StatusOK},
		{name: "query", query: "?token=" + token, status: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/documents"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, "ops", rec.Body.String())
			}
		})
	}
}
