package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// CSRFMiddleware enforces double-submit CSRF protection on state-changing
// requests that authenticate with the workspace cookie. Bearer requests are
// exempt since a browser never attaches them on its own.
func (s *Service) CSRFMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requiresCSRFCheck(c.Request.Method) {
			c.Next()
			return
		}
		if strings.HasPrefix(strings.ToLower(c.GetHeader(s.headerName)), "bearer ") {
			c.Next()
			return
		}
		headerToken := c.GetHeader(s.csrfHeaderName)
		cookieToken, err := c.Cookie(s.csrfCookieName)
		if err != nil || headerToken == "" || cookieToken == "" || headerToken != cookieToken {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid csrf token"})
			return
		}
		c.Next()
	}
}

// SetCookies hands the browser its workspace token and a fresh CSRF token.
func (s *Service) SetCookies(c *gin.Context, token string) (string, error) {
	csrf, err := s.NewCSRFToken()
	if err != nil {
		return "", err
	}
	maxAge := int(s.tokenTTL.Seconds())
	secure := c.Request.TLS != nil
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(s.cookieName, token, maxAge, "/", "", secure, true)
	c.SetCookie(s.csrfCookieName, csrf, maxAge, "/", "", secure, false)
	return csrf, nil
}

// ClearCookies removes both cookies.
func (s *Service) ClearCookies(c *gin.Context) {
	c.SetCookie(s.cookieName, "", -1, "/", "", false, true)
	c.SetCookie(s.csrfCookieName, "", -1, "/", "", false, false)
}

func requiresCSRFCheck(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	default:
		return true
	}
}
