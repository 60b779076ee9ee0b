package service

import (
	"fmt"
	"time"

	"github.com/emlakbet/housegame/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

// ──────────────────────────────────────────────────────────────────────────────
// Oracle token claims
// ──────────────────────────────────────────────────────────────────────────────

// OracleClaims are the JWT claims carried by an oracle API token. The subject
// is the oracle identity configured at deployment.
type OracleClaims struct {
	TokenType string `json:"token_type"` // always "oracle"
	jwt.RegisteredClaims
}

// ──────────────────────────────────────────────────────────────────────────────
// TokenService
// ──────────────────────────────────────────────────────────────────────────────

// TokenService mints and verifies the HMAC-signed tokens the oracle process
// uses to call the write endpoints. Players never hold these tokens.
type TokenService struct {
	secret   []byte
	oracleID string
	ttl      time.Duration
}

// NewTokenService creates a TokenService for the given oracle identity.
func NewTokenService(secret, oracleID string, ttl time.Duration) *TokenService {
	return &TokenService{
		secret:   []byte(secret),
		oracleID: oracleID,
		ttl:      ttl,
	}
}

// MintOracleToken issues a fresh signed token for the configured oracle
// identity. Used by the oracle worker at startup and by operational tooling.
func (s *TokenService) MintOracleToken() (string, error) {
	now := time.Now()
	claims := OracleClaims{
		TokenType: "oracle",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.oracleID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("token_service.MintOracleToken: %w", err)
	}
	return signed, nil
}

// ParseOracleToken verifies the signature, expiry, and subject of an oracle
// token and returns its claims. Any mismatch yields ErrTokenInvalid.
func (s *TokenService) ParseOracleToken(tokenString string) (*OracleClaims, error) {
	claims := &OracleClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, domain.ErrTokenInvalid
	}
	if claims.TokenType != "oracle" || claims.Subject != s.oracleID {
		return nil, domain.ErrTokenInvalid
	}
	return claims, nil
}
