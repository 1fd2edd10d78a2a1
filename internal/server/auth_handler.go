package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/learn-overlay/internal/config"
	"github.com/jonathan/learn-overlay/internal/types"
)

// maxLoginBody bounds the login request body.
const maxLoginBody = 4 << 10

// AuthHandler exchanges the operator password for a bearer token.
type AuthHandler struct {
	passwords  *config.PasswordConfig
	jwtService *JWTService
}

func NewAuthHandler(passwords *config.PasswordConfig, jwtService *JWTService) *AuthHandler {
	return &AuthHandler{passwords: passwords, jwtService: jwtService}
}

// Login handles POST /auth/token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req types.LoginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxLoginBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, extractValidationErrors(err))
		return
	}

	if !h.passwords.VerifyOperator(req.Password) {
		log.Printf("[AUTH] rejected operator login from %s", clientIP(r))
		err := &ErrInvalidCredentials{}
		writeError(w, HTTPStatus(err), err.Error())
		return
	}

	token, err := h.jwtService.GenerateToken(OperatorID)
	if err != nil {
		log.Printf("[AUTH] failed to sign token: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	log.Printf("[AUTH] operator token issued to %s", clientIP(r))
	writeJSON(w, http.StatusOK, types.LoginResponse{
		Token:     token,
		ExpiresIn: int(h.jwtService.config.TTL().Seconds()),
	})
}

// extractValidationErrors renders every failed field as "field: tag".
func extractValidationErrors(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return "validation error: invalid request"
	}
	parts := make([]string, len(fieldErrs))
	for i, fe := range fieldErrs {
		parts[i] = strings.ToLower(fe.Field()) + ": " + fe.Tag()
	}
	return "validation error: " + strings.Join(parts, ", ")
}
