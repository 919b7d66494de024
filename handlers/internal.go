// handlers/internal.go
package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"donation-checkout-api/models"
	"donation-checkout-api/services/auth"
	"donation-checkout-api/utils"
)

type tokenIssuer interface {
	IssueTokens(operator models.Operator) (*models.AuthResponse, error)
	RefreshToken(refreshToken string) (*models.AuthResponse, error)
}

type operatorTokenRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Email    string `json:"email" validate:"required,email"`
	Role     string `json:"role" validate:"omitempty,oneof=admin viewer"`
}

// InternalHandler issues operator tokens to trusted back-office systems.
type InternalHandler struct {
	tokens         tokenIssuer
	internalSecret string
	validate       *validator.Validate
}

func NewInternalHandler(tokens tokenIssuer, internalSecret string) *InternalHandler {
	if internalSecret == "" {
		log.Printf("Warning: INTERNAL_API_SECRET not set, internal endpoints will reject every request")
	}
	return &InternalHandler{
		tokens:         tokens,
		internalSecret: internalSecret,
		validate:       validator.New(),
	}
}

// RequireInternalSecret - Middleware para verificar secret interno
func (h *InternalHandler) RequireInternalSecret(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		secret := r.Header.Get("X-Internal-Secret")
		if h.internalSecret == "" || subtle.ConstantTimeCompare([]byte(secret), []byte(h.internalSecret)) != 1 {
			log.Printf("Invalid or missing internal secret from %s", r.RemoteAddr)
			utils.SendErrorResponse(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	}
}

// GenerateOperatorToken gera tokens JWT para um operador
func (h *InternalHandler) GenerateOperatorToken(w http.ResponseWriter, r *http.Request) {
	var req operatorTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("Error decoding operator token request: %v", err)
		utils.SendErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if err := h.validate.Struct(req); err != nil {
		log.Printf("Invalid operator token request: %v", err)
		utils.SendErrorResponse(w, http.StatusBadRequest, "A username, a valid email and a role of admin or viewer are required")
		return
	}
	if req.Role == "" {
		req.Role = auth.RoleViewer
	}

	authResponse, err := h.tokens.IssueTokens(models.Operator{
		Username: req.Username,
		Email:    req.Email,
		Role:     req.Role,
	})
	if err == auth.ErrInvalidRole {
		utils.SendErrorResponse(w, http.StatusBadRequest, "Role must be admin or viewer")
		return
	}
	if err != nil {
		log.Printf("Error generating operator tokens: %v", err)
		utils.SendErrorResponse(w, http.StatusInternalServerError, "Failed to generate tokens")
		return
	}

	log.Printf("Successfully generated tokens for operator: %s (%s)", req.Username, req.Role)

	utils.SendSuccessResponse(w, models.APIResponse{
		Status:  "success",
		Message: "Tokens generated successfully",
		Data:    authResponse,
	})
}

// RefreshOperatorToken renova token
func (h *InternalHandler) RefreshOperatorToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.RefreshToken == "" {
		utils.SendErrorResponse(w, http.StatusBadRequest, "Refresh token is required")
		return
	}

	authResponse, err := h.tokens.RefreshToken(req.RefreshToken)
	if err != nil {
		utils.SendErrorResponse(w, http.StatusUnauthorized, "Invalid or expired refresh token")
		return
	}

	utils.SendSuccessResponse(w, models.APIResponse{
		Status:  "success",
		Message: "Token refreshed successfully",
		Data:    authResponse,
	})
}
