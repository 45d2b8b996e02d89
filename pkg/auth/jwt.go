package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const Audience = "sai-platform"

type Claims struct {
	Sub      int64  `json:"sub"`
	Email    string `json:"email"`
	Username string `json:"username"`
	// ProviderSession is the upstream auth provider's access token, kept so
	// logout can revoke it. Empty for local accounts.
	ProviderSession string `json:"pst,omitempty"`
	jwt.RegisteredClaims
}

func NewAccessToken(sub int64, email, username, providerSession, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Sub:             sub,
		Email:           email,
		Username:        username,
		ProviderSession: providerSession,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Audience:  []string{Audience},
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
		jwt.WithAudience(Audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	if claims, ok := tok.Claims.(*Claims); ok && tok.Valid && claims.Sub > 0 {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}
