package server

import (
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// requireServiceToken verifies the short-lived HS256 token clients mint from
// the shared "id:secret" service key. The token's kid header must name the
// configured key id and the audience must cover the API. With no service key
// configured the middleware is a no-op.
func (s *Server) requireServiceToken() gin.HandlerFunc {
	if s.serviceKey == "" {
		return func(c *gin.Context) { c.Next() }
	}

	keyParts := strings.SplitN(s.serviceKey, ":", 2)
	keyID := keyParts[0]
	var secret []byte
	if len(keyParts) == 2 {
		secret, _ = hex.DecodeString(keyParts[1])
	}

	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "missing bearer token"})
			return
		}

		_, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
			if t.Header["kid"] != keyID {
				return nil, fmt.Errorf("unknown key id")
			}
			return secret, nil
		},
			jwt.WithValidMethods([]string{"HS256"}),
			jwt.WithAudience("/api/"),
			jwt.WithExpirationRequired(),
		)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "invalid token"})
			return
		}
		c.Next()
	}
}
