package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleOperator = "admin"
	audience     = "boxbook-api"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

func NewAccessToken(email, role, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Audience:  []string{audience},
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func Parse(tokenString, secret string) (*Claims, error) {
	tok, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(audience),
	)
	if err != nil {
		return nil, err
	}
	if claims, ok := tok.Claims.(*Claims); ok && tok.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

// Operator checks the configured operator credentials. The stored hash is an
// argon2id encoded string as produced by argon2id.CreateHash.
type Operator struct {
	Email        string
	PasswordHash string
}

func (o Operator) Authenticate(email, password string) error {
	if o.PasswordHash == "" || !strings.EqualFold(strings.TrimSpace(email), o.Email) {
		return ErrInvalidCredentials
	}
	ok, err := argon2id.ComparePasswordAndHash(password, o.PasswordHash)
	if err != nil || !ok {
		return ErrInvalidCredentials
	}
	return nil
}

func HashPassword(password string) (string, error) {
	return argon2id.CreateHash(password, argon2id.DefaultParams)
}
