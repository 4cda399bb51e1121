package middlewares

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"uamvh.cloud/escolar/security"
	"uamvh.cloud/escolar/web/common"
)

const (
	SessionCookie = "escolar.session"
	IdentityKey   = "identity"
)

// Authentication checks for a valid Bearer token, or the session cookie
// when no Authorization header is sent.
func Authentication(jwtSecret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := ""

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			cookie, err := c.Cookie(SessionCookie)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, common.NewErrorResponse("missing token"))
				return
			}
			tokenStr = cookie
		} else {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				c.AbortWithStatusJSON(http.StatusUnauthorized, common.NewErrorResponse("invalid authorization header"))
				return
			}
			tokenStr = parts[1]
		}

		claims, err := security.ParseIdentityToken(tokenStr, jwtSecret)
		if errors.Is(err, jwt.ErrTokenExpired) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, common.NewErrorResponse("token expired"))
			return
		}
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, common.NewErrorResponse("invalid or expired token"))
			return
		}

		c.Set(IdentityKey, claims.Identity)
		c.Next()
	}
}

// RequireRole lets through identities holding one of roles. It must run
// after Authentication.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := CurrentIdentity(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, common.NewErrorResponse("missing identity"))
			return
		}
		for _, r := range roles {
			if identity.Role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, common.NewErrorResponse("No tienes permisos suficientes"))
	}
}

func CurrentIdentity(c *gin.Context) (security.Identity, bool) {
	v, ok := c.Get(IdentityKey)
	if !ok {
		return security.Identity{}, false
	}
	identity, ok := v.(security.Identity)
	return identity, ok
}
