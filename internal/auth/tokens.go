package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"converse/config"
	"converse/infrastructure"
)

const (
	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 7 * 24 * time.Hour
)

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Manager issues and validates the HS256 token pair. The user ID travels in
// the user_id claim and is treated as opaque everywhere downstream.
type Manager struct {
	secret []byte
}

func NewManager(cfg *config.Config) *Manager {
	return &Manager{secret: cfg.JWTSecret}
}

func (m *Manager) GeneratePair(userID string) (*TokenPair, error) {
	accessToken, err := m.generate(userID, "access", accessTokenTTL)
	if err != nil {
		return nil, err
	}
	refreshToken, err := m.generate(userID, "refresh", refreshTokenTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func (m *Manager) generate(userID, tokenType string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"type":    tokenType,
		"exp":     time.Now().Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// VerifyAccessToken resolves an access token to its user ID.
func (m *Manager) VerifyAccessToken(tokenString string) (string, error) {
	return m.verify(tokenString, "access")
}

// VerifyRefreshToken resolves a refresh token to its user ID and expiry; the
// expiry bounds how long a revocation entry has to live.
func (m *Manager) VerifyRefreshToken(tokenString string) (string, time.Time, error) {
	claims, err := m.parse(tokenString)
	if err != nil {
		return "", time.Time{}, err
	}
	userID, err := claimsOfType(claims, "refresh")
	if err != nil {
		return "", time.Time{}, err
	}
	exp, ok := claims["exp"].(float64)
	if !ok {
		return "", time.Time{}, infrastructure.ErrInvalidToken
	}
	return userID, time.Unix(int64(exp), 0), nil
}

func (m *Manager) verify(tokenString, tokenType string) (string, error) {
	claims, err := m.parse(tokenString)
	if err != nil {
		return "", err
	}
	return claimsOfType(claims, tokenType)
}

func (m *Manager) parse(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		var ve *jwt.ValidationError
		if errors.As(err, &ve) && ve.Errors&jwt.ValidationErrorExpired != 0 {
			return nil, infrastructure.ErrTokenExpired
		}
		return nil, infrastructure.ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, infrastructure.ErrInvalidToken
	}
	return claims, nil
}

func claimsOfType(claims jwt.MapClaims, tokenType string) (string, error) {
	if claims["type"] != tokenType {
		return "", infrastructure.ErrInvalidToken
	}
	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return "", infrastructure.ErrInvalidToken
	}
	return userID, nil
}
