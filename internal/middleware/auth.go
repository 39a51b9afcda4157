package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/homegrid/homegrid/internal/auth"
	"github.com/homegrid/homegrid/pkg/errors"
	"github.com/homegrid/homegrid/pkg/response"
)

const (
	CtxClaimsKey    = "authClaims"
	CtxUserIDKey    = "userID"
	CtxSessionIDKey = "sessionID"
)

// Auth enforces JWT authentication. Every verification endpoint sits behind
// it; the user id it stores is the only identity the handlers trust.
func Auth(jwt *iauth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			reject(c)
			return
		}

		claims, err := jwt.ValidateAccessToken(token)
		if err != nil {
			// Malformed, expired, and forged tokens all look the same.
			reject(c)
			return
		}

		c.Set(CtxClaimsKey, claims)
		c.Set(CtxUserIDKey, claims.UserID)
		if claims.SessionID != "" {
			c.Set(CtxSessionIDKey, claims.SessionID)
		}

		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	if len(header) < 8 || !strings.EqualFold(header[:7], "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(header[7:])
	return token, token != ""
}

func reject(c *gin.Context) {
	c.Header("WWW-Authenticate", "Bearer")
	response.Error(c, errors.ErrUnauthorized)
	c.Abort()
}
