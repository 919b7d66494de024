package middleware

import (
	"context"
	"log"
	"net/http"
	"strings"

	"donation-checkout-api/models"
	"donation-checkout-api/services/auth"
	"donation-checkout-api/utils"
)

type contextKey string

const OperatorContextKey contextKey = "operator"

// TokenValidator is satisfied by *auth.JWTService.
type TokenValidator interface {
	ValidateToken(tokenString string) (*models.Operator, error)
}

// AuthMiddleware verifica se o operador está autenticado
func AuthMiddleware(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				log.Printf("[RequestID: %s] Missing Authorization header from %s", GetRequestID(r.Context()), r.RemoteAddr)
				utils.SendErrorResponse(w, http.StatusUnauthorized, "Missing authorization header")
				return
			}

			// Verificar formato "Bearer <token>"
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				log.Printf("[RequestID: %s] Invalid Authorization header format from %s", GetRequestID(r.Context()), r.RemoteAddr)
				utils.SendErrorResponse(w, http.StatusUnauthorized, "Invalid authorization header format")
				return
			}

			operator, err := validator.ValidateToken(parts[1])
			if err != nil {
				log.Printf("[RequestID: %s] Token validation failed from %s: %v", GetRequestID(r.Context()), r.RemoteAddr, err)

				var message string
				switch err {
				case auth.ErrTokenExpired:
					message = "Token expired"
				case auth.ErrInvalidToken:
					message = "Invalid token"
				default:
					message = "Authentication failed"
				}

				utils.SendErrorResponse(w, http.StatusUnauthorized, message)
				return
			}

			ctx := context.WithValue(r.Context(), OperatorContextKey, operator)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole libera o acesso apenas para os papéis informados
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			operator := GetOperatorFromContext(r.Context())
			if operator == nil {
				utils.SendErrorResponse(w, http.StatusUnauthorized, "Authentication required")
				return
			}

			if !allowed[operator.Role] {
				log.Printf("Operator %s (role %s) denied access to %s", operator.Username, operator.Role, r.URL.Path)
				utils.SendErrorResponse(w, http.StatusForbidden, "Insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GetOperatorFromContext extrai o operador do contexto da requisição
func GetOperatorFromContext(ctx context.Context) *models.Operator {
	operator, ok := ctx.Value(OperatorContextKey).(*models.Operator)
	if !ok {
		return nil
	}
	return operator
}
