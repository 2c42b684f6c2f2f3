package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestAuthService_IssueToken(t *testing.T) {
	viper.Set("jwt.secret_key", "test-secret")
	defer viper.Set("jwt.secret_key", "")

	s := NewAuthService()

	t.Run("issues a token carrying the party claim", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/auth/token",
			strings.NewReader(`{"party":"landlord1"}`))
		w := httptest.NewRecorder()
		s.IssueToken(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp TokenResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "landlord1", resp.Party)

		token, err := jwt.Parse(resp.Token, func(token *jwt.Token) (interface{}, error) {
			return []byte("test-secret"), nil
		})
		assert.NoError(t, err)
		assert.True(t, token.Valid)

		claims := token.Claims.(jwt.MapClaims)
		assert.Equal(t, "landlord1", claims["party"])
	})

	t.Run("empty party rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/auth/token",
			strings.NewReader(`{"party":""}`))
		w := httptest.NewRecorder()
		s.IssueToken(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown fields rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/auth/token",
			strings.NewReader(`{"party":"landlord1","role":"admin"}`))
		w := httptest.NewRecorder()
		s.IssueToken(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("malformed body rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/auth/token",
			strings.NewReader(`not-json`))
		w := httptest.NewRecorder()
		s.IssueToken(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
