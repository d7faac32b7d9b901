package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	workspaceIDContextKey = "auth_workspace_id"
	tokenContextKey       = "auth_token"
)

// Middleware validates the workspace token and stores the workspace id in
// the context.
func (s *Service) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := s.extractToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "workspace token required"})
			return
		}
		workspaceID, err := s.Validate(c.Request.Context(), token)
		if err != nil {
			status := http.StatusUnauthorized
			if !errors.Is(err, ErrInvalidToken) {
				status = http.StatusServiceUnavailable
			}
			c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
			return
		}
		c.Set(workspaceIDContextKey, workspaceID)
		c.Set(tokenContextKey, token)
		c.Next()
	}
}

// WorkspaceIDFromContext retrieves the workspace id set by the middleware.
func WorkspaceIDFromContext(c *gin.Context) (string, bool) {
	val, ok := c.Get(workspaceIDContextKey)
	if !ok {
		return "", false
	}
	id, ok := val.(string)
	return id, ok
}

// TokenFromContext retrieves the token captured by the middleware.
func TokenFromContext(c *gin.Context) (string, bool) {
	val, ok := c.Get(tokenContextKey)
	if !ok {
		return "", false
	}
	token, ok := val.(string)
	return token, ok
}

func (s *Service) extractToken(c *gin.Context) string {
	authHeader := c.GetHeader(s.headerName)
	if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	if token, err := c.Cookie(s.cookieName); err == nil && token != "" {
		return token
	}
	return ""
}
