package auth

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarydesk/internal/config"
	"github.com/mrlokans/librarydesk/internal/entities"
)

// Context keys for user data
const (
	ContextKeyEmail    = "auth_email"
	ContextKeyName     = "auth_name"
	ContextKeyUserType = "auth_user_type"
)

// Middleware exposes the session identity to handlers and guards client pages.
type Middleware struct {
	sessionManager *SessionManager
	config         config.Auth
}

// NewMiddleware creates a new authentication middleware. sessionManager may be nil
// when sessions are disabled; every request is then anonymous.
func NewMiddleware(sessionManager *SessionManager, cfg config.Auth) *Middleware {
	return &Middleware{
		sessionManager: sessionManager,
		config:         cfg,
	}
}

// Handler copies the signed-in identity from the session into the Gin context.
// It never rejects a request.
func (m *Middleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.sessionManager != nil {
			if data := m.sessionManager.GetSessionData(c.Request); data != nil {
				c.Set(ContextKeyEmail, data.Email)
				c.Set(ContextKeyName, data.Name)
				c.Set(ContextKeyUserType, data.UserType)
			}
		}
		c.Next()
	}
}

// RequireClient guards routes carrying an :email parameter. In local mode the
// signed-in client must own that email; librarians may act for any client.
// In none mode every request passes.
func (m *Middleware) RequireClient() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.config.Mode != config.AuthModeLocal {
			c.Next()
			return
		}

		email := GetEmail(c)
		if email == "" {
			if isAPIRequest(c) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error": "authentication required",
				})
				return
			}
			c.Redirect(http.StatusFound, "/signin/client?next="+url.QueryEscape(c.Request.URL.Path))
			c.Abort()
			return
		}

		owner := c.Param("email")
		if owner != "" && !strings.EqualFold(owner, email) && GetUserType(c) != entities.UserTypeLibrarian {
			if isAPIRequest(c) {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
					"error": "insufficient permissions",
				})
			} else {
				c.AbortWithStatus(http.StatusForbidden)
			}
			return
		}
		c.Next()
	}
}

// RequireLibrarian allows only librarians in local mode.
func (m *Middleware) RequireLibrarian() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.config.Mode != config.AuthModeLocal || GetUserType(c) == entities.UserTypeLibrarian {
			c.Next()
			return
		}
		if GetEmail(c) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
	}
}

// isAPIRequest determines if this is an API request vs web browser request.
func isAPIRequest(c *gin.Context) bool {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		return true
	}
	return strings.Contains(c.GetHeader("Accept"), "application/json")
}

// GetEmail retrieves the signed-in email from the context, "" when anonymous.
func GetEmail(c *gin.Context) string {
	if v, exists := c.Get(ContextKeyEmail); exists {
		if email, ok := v.(string); ok {
			return email
		}
	}
	return ""
}

func GetName(c *gin.Context) string {
	if v, exists := c.Get(ContextKeyName); exists {
		if name, ok := v.(string); ok {
			return name
		}
	}
	return ""
}

func GetUserType(c *gin.Context) entities.UserType {
	if v, exists := c.Get(ContextKeyUserType); exists {
		if userType, ok := v.(entities.UserType); ok {
			return userType
		}
	}
	return ""
}

// IsAuthenticated returns true if someone is signed in.
func IsAuthenticated(c *gin.Context) bool {
	return GetEmail(c) != ""
}
