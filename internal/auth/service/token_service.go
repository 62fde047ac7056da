package service

//go:generate mockgen -destination=../../mocks/mock_token_generator.go -package=mocks auth-core/internal/auth/service TokenGenerator

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	autherror "auth-core/internal/errors"
)

// refreshTokenBytes gives 256 bits of entropy; possession of the plaintext is
// the only proof of validity, so the token carries no structure at all.
const refreshTokenBytes = 32

type TokenGenerator interface {
	GenerateAccessToken(email, role string) (string, error)
	VerifyAccessToken(tokenString string) (*JWTCustomClaims, error)
	NewRefreshToken() (string, error)
	HashRefreshToken(plaintext string) string
	GetAccessTokenExpiry() time.Duration
	GetRefreshTokenExpiry() time.Duration
}

type TokenService struct {
	secret             []byte
	accessTokenExpiry  time.Duration
	refreshTokenExpiry time.Duration
}

type JWTCustomClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role"`
}

// NewTokenService fails when secret is empty; callers must treat that as a
// startup error, never a per-request one.
func NewTokenService(secret string, accessExpiry, refreshExpiry time.Duration) (*TokenService, error) {
	if secret == "" {
		return nil, autherror.ErrMissingSecret
	}
	if accessExpiry <= 0 {
		accessExpiry = 15 * time.Minute
	}
	if refreshExpiry <= 0 {
		refreshExpiry = 7 * 24 * time.Hour
	}

	return &TokenService{
		secret:             []byte(secret),
		accessTokenExpiry:  accessExpiry,
		refreshTokenExpiry: refreshExpiry,
	}, nil
}

func (ts *TokenService) GenerateAccessToken(email, role string) (string, error) {
	now := time.Now()

	claims := JWTCustomClaims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.accessTokenExpiry)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ts.secret)
}

// VerifyAccessToken parses and validates the given access token string.
func (ts *TokenService) VerifyAccessToken(tokenString string) (*JWTCustomClaims, error) {
	claims := &JWTCustomClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return ts.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	return claims, nil
}

// NewRefreshToken returns an opaque random token. The plaintext goes to the
// client; only HashRefreshToken of it is ever stored.
func (ts *TokenService) NewRefreshToken() (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// HashRefreshToken derives the deterministic storage/lookup key for a refresh
// token. Exact-match lookup, so a fast hash is fine here.
func (ts *TokenService) HashRefreshToken(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

func (ts *TokenService) GetAccessTokenExpiry() time.Duration {
	return ts.accessTokenExpiry
}

func (ts *TokenService) GetRefreshTokenExpiry() time.Duration {
	return ts.refreshTokenExpiry
}
