// internal/api/middleware/auth_test.go
package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/newthinker/polydash/internal/api/response"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIKeyAuth(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	tests := []struct {
		name       string
		configured string
		header     string
		target     string
		want       int
	}{
		{"valid header", "secret-key", "secret-key", "/api/state", http.StatusOK},
		{"valid query param", "secret-key", "", "/api/state?api_key=secret-key", http.StatusOK},
		{"missing key", "secret-key", "", "/api/state", http.StatusUnauthorized},
		{"wrong key", "secret-key", "wrong-key", "/api/state", http.StatusUnauthorized},
		{"auth disabled", "", "", "/api/state", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.header != "" {
				req.Header.Set("X-API-Key", tt.header)
			}
			w := httptest.NewRecorder()

			APIKeyAuth(tt.configured)(ok).ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusUnauthorized {
				var resp response.ErrorResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Equal(t, "UNAUTHORIZED", resp.Error.Code)
			}
		})
	}
}
