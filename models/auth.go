package models

import "time"

// Operator representa um operador autenticado do painel de doações
type Operator struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"` // "admin", "viewer"
}

// AuthResponse representa a resposta de autenticação
type AuthResponse struct {
	Token        string    `json:"token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	Operator     Operator  `json:"operator"`
}
