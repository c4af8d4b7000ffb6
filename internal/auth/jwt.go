package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "storyverse"

// Claims is what every access token carries. The middleware trusts these
// fields without hitting the store on each request, so keep them to what
// never changes for a user: the id and the login email.
//
// jwt.RegisteredClaims supplies exp/iat/iss, which the parser checks.
type Claims struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
	jwt.RegisteredClaims
}

// GenerateToken signs an HS256 token for a user that expires after ttl.
//
// Why HS256?
//   - One shared secret (config.JWTSecret), no key pair to distribute.
//   - Only this server both issues and verifies tokens. A second service
//     that only verifies would be the moment to move to RS256.
func GenerateToken(userID uuid.UUID, email, secret string, ttl time.Duration) (string, error) {
	now := time.Now()

	claims := Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			// Subject duplicates UserID in the registered field so generic
			// tooling (jwt.io, gateways) can read who the token is for.
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

// ParseToken verifies the signature, expiry and issuer of a token and
// returns its claims.
//
// Only HMAC is accepted: the key callback rejects any other alg before the
// signature is checked, which closes the classic alg-switching hole.
func ParseToken(tokenString, secret string) (*Claims, error) {
	// WithIssuer and WithExpirationRequired turn a token from another
	// issuer, or one minted without exp, into a parse error instead of a
	// token that never expires.
	token, err := jwt.ParseWithClaims(tokenString, &Claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(secret), nil
		},
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.UserID == uuid.Nil {
		return nil, errors.New("token has no user")
	}

	return claims, nil
}
