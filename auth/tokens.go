package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type TokenType string

const (
	AccessToken  TokenType = "access"
	RefreshToken TokenType = "refresh"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrRevokedToken = errors.New("token revoked")
)

type Claims struct {
	UserID int64     `json:"user_id"`
	Type   TokenType `json:"typ"`
	// CSRF must be echoed in X-CSRF-Token on state-changing requests.
	CSRF string `json:"csrf,omitempty"`
	jwt.RegisteredClaims
}

type TokenPair struct {
	AccessToken  string    `json:"token"`
	RefreshToken string    `json:"refresh_token"`
	CSRFToken    string    `json:"csrf_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type Tokens struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	revoker    Revoker
	now        func() time.Time
}

func NewTokens(secret string, accessTTL, refreshTTL time.Duration, revoker Revoker) *Tokens {
	if revoker == nil {
		revoker = NewMemoryRevoker()
	}
	return &Tokens{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		revoker:    revoker,
		now:        time.Now,
	}
}

// Issue signs a fresh access/refresh pair for userID with a new CSRF secret.
func (t *Tokens) Issue(userID int64) (TokenPair, error) {
	now := t.now()
	csrf := uuid.NewString()
	accessExp := now.Add(t.accessTTL)

	access, err := t.sign(Claims{
		UserID:           userID,
		Type:             AccessToken,
		CSRF:             csrf,
		RegisteredClaims: t.registered(userID, now, accessExp),
	})
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := t.sign(Claims{
		UserID:           userID,
		Type:             RefreshToken,
		RegisteredClaims: t.registered(userID, now, now.Add(t.refreshTTL)),
	})
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, CSRFToken: csrf, ExpiresAt: accessExp}, nil
}

func (t *Tokens) registered(userID int64, now, exp time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   fmt.Sprint(userID),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
}

func (t *Tokens) sign(claims Claims) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", claims.Type, err)
	}
	return signed, nil
}

// Parse verifies raw and checks it is an unrevoked token of type want.
func (t *Tokens) Parse(ctx context.Context, raw string, want TokenType) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Type != want || claims.UserID <= 0 || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	revoked, err := t.revoker.Revoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrRevokedToken
	}
	return claims, nil
}

// Revoke invalidates the token described by claims until it expires.
func (t *Tokens) Revoke(ctx context.Context, claims *Claims) error {
	if claims.ExpiresAt == nil {
		return ErrInvalidToken
	}
	_, err := t.revoker.Revoke(ctx, claims.ID, claims.ExpiresAt.Time)
	return err
}

// Refresh exchanges a refresh token for a new pair and revokes the old one.
func (t *Tokens) Refresh(ctx context.Context, raw string) (TokenPair, error) {
	claims, err := t.Parse(ctx, raw, RefreshToken)
	if err != nil {
		return TokenPair{}, err
	}
	// only the caller that revokes the token first gets a new pair
	first, err := t.revoker.Revoke(ctx, claims.ID, claims.ExpiresAt.Time)
	if err != nil {
		return TokenPair{}, err
	}
	if !first {
		return TokenPair{}, ErrRevokedToken
	}
	return t.Issue(claims.UserID)
}
