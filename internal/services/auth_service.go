package services

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
)

// AuthService issues party tokens. Parties are opaque ledger identities, so
// the service runs in trusted-issuer mode: whoever can reach the token
// endpoint vouches for the party name it requests. Deployments front this
// with their own identity provider.
type AuthService struct {
	validator *validator.Validate
}

// TokenRequest asks for a bearer token acting as the named party.
type TokenRequest struct {
	Party string `json:"party" validate:"required,min=1,max=128"`
}

// TokenResponse carries the signed JWT.
type TokenResponse struct {
	Token string `json:"token"`
	Party string `json:"party"`
}

func NewAuthService() *AuthService {
	return &AuthService{
		validator: validator.New(),
	}
}

// IssueToken mints a JWT whose "party" claim authenticates subsequent
// contract operations.
// @Summary Issue a party token
// @Description Issue a bearer token for the named contract party
// @Tags auth
// @Accept json
// @Produce json
// @Param request body TokenRequest true "Token request"
// @Success 200 {object} TokenResponse
// @Failure 400 {object} ErrorResponse
// @Router /auth/token [post]
func (s *AuthService) IssueToken(w http.ResponseWriter, r *http.Request) {
	maxBytes := 1_048_576 // 1 MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req TokenRequest
	if err := dec.Decode(&req); err != nil {
		SendErrorResponse(w, "Invalid request", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.Struct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	expiryHours := viper.GetInt("jwt.expiry_hours")
	if expiryHours <= 0 {
		expiryHours = 24
	}

	claims := jwt.MapClaims{
		"party": req.Party,
		"iat":   time.Now().Unix(),
		"exp":   time.Now().Add(time.Duration(expiryHours) * time.Hour).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(viper.GetString("jwt.secret_key")))
	if err != nil {
		log.Printf("[AUTH] Failed to sign token for party %s: %v", req.Party, err)
		SendErrorResponse(w, "Failed to issue token", http.StatusInternalServerError, nil)
		return
	}

	log.Printf("[AUTH] Token issued for party: %s", req.Party)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(TokenResponse{Token: signed, Party: req.Party})
}
