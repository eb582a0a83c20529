package userservice

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type tokenType string

const (
	tokenTypeAccess  tokenType = "access"
	tokenTypeRefresh tokenType = "refresh"

	tokenIssuer = "blogcms"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
)

// Claims is the payload of both access and refresh tokens.
type Claims struct {
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	TokenType tokenType `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenManager signs and verifies HS256 tokens with a shared secret.
type TokenManager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenManager(secret string, accessTTL, refreshTTL time.Duration) *TokenManager {
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTokenTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTokenTTL
	}

	return &TokenManager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

func (tm *TokenManager) newToken(u *User, typ tokenType, ttl time.Duration) (string, error) {
	now := tm.now()

	claims := Claims{
		Username:  u.Username,
		Email:     u.Email,
		TokenType: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   strconv.Itoa(u.ID),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(tm.secret)
	if err != nil {
		return "", fmt.Errorf("could not sign token: %w", err)
	}

	return signed, nil
}

func (tm *TokenManager) newPair(u *User) (*TokenPair, error) {
	access, err := tm.newToken(u, tokenTypeAccess, tm.accessTTL)
	if err != nil {
		return nil, err
	}

	refresh, err := tm.newToken(u, tokenTypeRefresh, tm.refreshTTL)
	if err != nil {
		return nil, err
	}

	return &TokenPair{Access: access, Refresh: refresh}, nil
}

// parse verifies signature, issuer, expiry and token type, and returns the user id held in sub.
func (tm *TokenManager) parse(tokenString string, want tokenType) (int, *Claims, error) {
	var claims Claims

	_, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		return tm.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(tm.now),
	)
	if err != nil {
		return 0, nil, ErrInvalidToken
	}

	if claims.TokenType != want {
		return 0, nil, ErrInvalidToken
	}

	id, err := strconv.Atoi(claims.Subject)
	if err != nil || id < 1 {
		return 0, nil, ErrInvalidToken
	}

	return id, &claims, nil
}
