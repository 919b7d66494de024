package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"donation-checkout-api/models"
)

const (
	AccessTokenDuration  = 15 * time.Minute   // Token de acesso expira em 15 minutos
	RefreshTokenDuration = 7 * 24 * time.Hour // Refresh token expira em 7 dias

	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"

	RoleAdmin  = "admin"
	RoleViewer = "viewer"
)

var (
	ErrTokenExpired = errors.New("token expired")
	ErrInvalidToken = errors.New("invalid token")
	ErrInvalidRole  = errors.New("invalid operator role")
)

type JWTService struct {
	secretKey []byte
	issuer    string
	now       func() time.Time
}

type Claims struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	TokenType string `json:"token_type"` // "access" or "refresh"
	jwt.RegisteredClaims
}

func NewJWTService(secretKey, issuer string) *JWTService {
	return &JWTService{
		secretKey: []byte(secretKey),
		issuer:    issuer,
		now:       time.Now,
	}
}

func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleViewer
}

// IssueTokens gera o par access/refresh para um operador
func (j *JWTService) IssueTokens(operator models.Operator) (*models.AuthResponse, error) {
	if !ValidRole(operator.Role) {
		return nil, ErrInvalidRole
	}

	accessToken, err := j.GenerateToken(operator, tokenTypeAccess, AccessTokenDuration)
	if err != nil {
		return nil, fmt.Errorf("error generating access token: %v", err)
	}

	refreshToken, err := j.GenerateToken(operator, tokenTypeRefresh, RefreshTokenDuration)
	if err != nil {
		return nil, fmt.Errorf("error generating refresh token: %v", err)
	}

	return &models.AuthResponse{
		Token:        accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    j.now().Add(AccessTokenDuration),
		Operator:     operator,
	}, nil
}

// GenerateToken gera um token JWT
func (j *JWTService) GenerateToken(operator models.Operator, tokenType string, duration time.Duration) (string, error) {
	now := j.now()
	claims := Claims{
		Username:  operator.Username,
		Email:     operator.Email,
		Role:      operator.Role,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   operator.Username,
			Issuer:    j.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(duration)),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.secretKey)
}

// ValidateToken valida um access token e retorna o operador
func (j *JWTService) ValidateToken(tokenString string) (*models.Operator, error) {
	claims, err := j.parse(tokenString, tokenTypeAccess)
	if err != nil {
		return nil, err
	}

	return &models.Operator{
		Username: claims.Username,
		Email:    claims.Email,
		Role:     claims.Role,
	}, nil
}

// RefreshToken troca um refresh token válido por um novo par de tokens
func (j *JWTService) RefreshToken(refreshTokenString string) (*models.AuthResponse, error) {
	claims, err := j.parse(refreshTokenString, tokenTypeRefresh)
	if err != nil {
		return nil, err
	}

	return j.IssueTokens(models.Operator{
		Username: claims.Username,
		Email:    claims.Email,
		Role:     claims.Role,
	})
}

func (j *JWTService) parse(tokenString, tokenType string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secretKey, nil
	}, jwt.WithIssuer(j.issuer), jwt.WithTimeFunc(j.now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.TokenType != tokenType || !ValidRole(claims.Role) {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
