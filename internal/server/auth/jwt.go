// Package auth holds the two cryptographic capabilities the server relies on:
// signing and checking bearer tokens, and hashing and verifying passwords.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/loginsys/authd/internal/common"
)

// jtiSize is the number of random bytes behind every token id.
const jtiSize = 16

// Claims are the token's payload: the standard registered claims plus the
// user's id and email.
type Claims struct {
	jwt.RegisteredClaims
	UserID int64  `json:"id"`
	Email  string `json:"email"`
}

// Signer issues and checks HS256 tokens with a shared secret.
type Signer struct {
	secret []byte
	now    func() time.Time
}

func NewSigner(secret []byte) *Signer {
	return &Signer{secret: secret, now: time.Now}
}

// Sign returns a token for the user valid for ttl. Every token carries a
// random jti so two logins in the same second never collide.
func (s *Signer) Sign(userID int64, email string, ttl time.Duration) (string, error) {
	jti, err := common.MakeRandHexString(jtiSize)
	if err != nil {
		return "", fmt.Errorf("jti generation error: %w", err)
	}

	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID: userID,
		Email:  email,
	})

	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// VerifySignature parses tokenString and checks its signature and expiry.
// Any failure is reported as common.ErrInvalidToken wrapping the cause.
func (s *Signer) VerifySignature(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidToken, err)
	}

	if !token.Valid {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}

// IsExpired reports whether err came from a token past its expiry.
func IsExpired(err error) bool {
	return errors.Is(err, jwt.ErrTokenExpired)
}
