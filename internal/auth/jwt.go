package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// PlanInfo - активный тариф пользователя на момент выпуска токена.
// Пустой PlanID означает бесплатный уровень.
type PlanInfo struct {
	SubscriptionID     string `json:"sub_id,omitempty"`
	PlanID             string `json:"plan_id,omitempty"`
	PlanName           string `json:"plan_name"`
	NutritionPlanLimit int    `json:"nutrition_plan_limit"`
}

// Claims - содержимое access-токена
type Claims struct {
	UserID string   `json:"uid"`
	Email  string   `json:"email"`
	Roles  []string `json:"roles"`
	PlanInfo
	jwt.RegisteredClaims
}

func (c *Claims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Maker выпускает и проверяет access-токены
type Maker interface {
	GenerateToken(userID, email string, roles []string, plan PlanInfo) (string, *Claims, error)
	ParseToken(tokenStr string) (*Claims, error)
}

// JWTMaker - HS256 реализация Maker
type JWTMaker struct {
	secretKey []byte
	issuer    string
	tokenTTL  time.Duration
	now       func() time.Time
}

func NewJWTMaker(secretKey, issuer string, ttl time.Duration) *JWTMaker {
	return &JWTMaker{
		secretKey: []byte(secretKey),
		issuer:    issuer,
		tokenTTL:  ttl,
		now:       time.Now,
	}
}

func (m *JWTMaker) TTL() time.Duration {
	return m.tokenTTL
}

func (m *JWTMaker) GenerateToken(userID, email string, roles []string, plan PlanInfo) (string, *Claims, error) {
	const op = "auth.GenerateToken"

	now := m.now()
	claims := &Claims{
		UserID:   userID,
		Email:    email,
		Roles:    roles,
		PlanInfo: plan,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.tokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secretKey)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}
	return signed, claims, nil
}

func (m *JWTMaker) ParseToken(tokenStr string) (*Claims, error) {
	const op = "auth.ParseToken"

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
	}
	if m.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(m.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(_ *jwt.Token) (any, error) {
		return m.secretKey, nil
	}, parserOpts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%s: %w", op, ErrExpiredToken)
		}
		return nil, fmt.Errorf("%s: %w: %v", op, ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}
	return claims, nil
}

// NewRefreshToken - случайная непрозрачная строка, хранится в БД
func NewRefreshToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("auth.NewRefreshToken: %w", err)
	}
	return hex.EncodeToString(b), nil
}
