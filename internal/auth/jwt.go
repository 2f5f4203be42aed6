package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenExpired   = errors.New("token expired")
	ErrInvalidToken   = errors.New("invalid token")
	ErrWrongTokenType = errors.New("wrong token type")
)

type Claims struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

// Manager signs and verifies the two token families. Access and refresh
// tokens use distinct secrets so one leaking does not compromise the other.
type Manager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewManager(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *Manager {
	return &Manager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

func (m *Manager) GenerateAccessToken(userID, email string) (string, error) {
	return m.generate(userID, email, "access", m.accessSecret, m.accessTTL)
}

func (m *Manager) GenerateRefreshToken(userID, email string) (string, error) {
	return m.generate(userID, email, "refresh", m.refreshSecret, m.refreshTTL)
}

func (m *Manager) generate(userID, email, tokenType string, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now().UTC()

	claims := Claims{
		UserID:    userID,
		Email:     email,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Subject:   userID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString(secret)
}

func (m *Manager) parseAndValidate(tokenStr string, secret []byte) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		// Enforce HS256
		_, ok := t.Method.(*jwt.SigningMethodHMAC)

		if !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})

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

	return claims, nil
}

func (m *Manager) VerifyAccessToken(tokenStr string) (*Claims, error) {
	claims, err := m.parseAndValidate(tokenStr, m.accessSecret)

	if err != nil {
		return nil, err
	}

	if claims.TokenType != "access" {
		return nil, ErrWrongTokenType
	}

	return claims, nil
}

func (m *Manager) VerifyRefreshToken(tokenStr string) (*Claims, error) {
	claims, err := m.parseAndValidate(tokenStr, m.refreshSecret)

	if err != nil {
		return nil, err
	}

	if claims.TokenType != "refresh" {
		return nil, ErrWrongTokenType
	}

	return claims, nil
}

func (m *Manager) RefreshTTL() time.Duration {
	return m.refreshTTL
}

// HashRefreshToken produces the deterministic HMAC hash stored in the
// allow-set. Raw refresh tokens are never persisted anywhere.
func (m *Manager) HashRefreshToken(raw string) string {
	h := hmac.New(sha256.New, m.refreshSecret)
	h.Write([]byte(raw))
	return hex.EncodeToString(h.Sum(nil))
}
