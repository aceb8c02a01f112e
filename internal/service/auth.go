package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stakeplay/tictactoe-arena/internal/apperror"
)

const tokenIssuer = "tictactoe-arena"

type AuthService interface {
	GenerateToken(userID string) (string, error)
	ParseToken(token string) (string, error)
}

type authService struct {
	secretKey []byte
	tokenTTL  time.Duration
}

func NewAuthService(secretKey string, tokenTTL time.Duration) AuthService {
	return &authService{
		secretKey: []byte(secretKey),
		tokenTTL:  tokenTTL,
	}
}

func (that *authService) GenerateToken(userID string) (string, error) {
	now := time.Now()

	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    tokenIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(that.tokenTTL)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(that.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}

// ParseToken validates signature and expiry and returns the user id the token
// was issued for.
func (that *authService) ParseToken(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(_ *jwt.Token) (interface{}, error) {
		return that.secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("%w: %s", apperror.ErrInvalidCredentials, err)
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return "", apperror.ErrInvalidCredentials
	}

	return claims.Subject, nil
}
