package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/storyverse/internal/auth"
)

// Keys under which AuthMiddleware stores the caller's claims. Handlers
// read them through GetUserID and GetEmail.
//
// Why constants instead of inline strings?
//   - c.Get("usr_id") compiles and silently returns nothing. A misspelled
//     constant doesn't compile.
//   - The middleware and every handler agree on one spelling.
const (
	ContextKeyUserID = "user_id"
	ContextKeyEmail  = "email"
)

// AuthMiddleware rejects the request with 401 unless it carries a valid
// token, then stores the caller's identity in the gin context.
//
// The token comes from "Authorization: Bearer <token>". Browsers can't set
// headers on a websocket handshake, so a ?token= query parameter is
// accepted too when the header is absent.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Step 1: find the token. bearerToken already answered 401 when
		// there isn't one.
		tokenString, ok := bearerToken(c)
		if !ok {
			return
		}

		// Step 2: check signature, expiry and issuer.
		claims, err := auth.ParseToken(tokenString, secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid or expired token",
			})
			return
		}

		// Step 3: hand the identity to the handlers. They read it back
		// with GetUserID instead of parsing the token again.
		c.Set(ContextKeyUserID, claims.UserID)
		c.Set(ContextKeyEmail, claims.Email)
		c.Next()
	}
}

// bearerToken extracts the raw token, aborting with 401 when there is none.
func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		if token := c.Query("token"); token != "" {
			return token, true
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "missing authorization header",
		})
		return "", false
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "invalid authorization format, expected: Bearer <token>",
		})
		return "", false
	}
	return parts[1], true
}

// ---------------------------------------------------------------
// Helpers for handlers.
//
// c.Get returns (any, bool), so every handler would otherwise repeat the
// type assertion. A missing or mistyped value comes back as the zero
// value: uuid.Nil matches no user, so lookups simply miss.
// ---------------------------------------------------------------

// GetUserID returns the authenticated user's id, or uuid.Nil outside
// AuthMiddleware.
func GetUserID(c *gin.Context) uuid.UUID {
	val, exists := c.Get(ContextKeyUserID)
	if !exists {
		return uuid.Nil
	}
	id, ok := val.(uuid.UUID)
	if !ok {
		return uuid.Nil
	}
	return id
}

func GetEmail(c *gin.Context) string {
	val, exists := c.Get(ContextKeyEmail)
	if !exists {
		return ""
	}
	email, ok := val.(string)
	if !ok {
		return ""
	}
	return email
}
