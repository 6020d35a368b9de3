package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/mrlokans/librarydesk/internal/config"
	"github.com/mrlokans/librarydesk/internal/entities"
)

// withIdentity simulates Handler() for a signed-in user.
func withIdentity(email string, userType entities.UserType) gin.HandlerFunc {
	return func(c *gin.Context) {
		if email != "" {
			c.Set(ContextKeyEmail, email)
			c.Set(ContextKeyUserType, userType)
		}
		c.Next()
	}
}

func newGuardedRouter(mode config.AuthMode, email string, userType entities.UserType) *gin.Engine {
	m := NewMiddleware(nil, config.Auth{Mode: mode})

	router := gin.New()
	router.Use(m.Handler(), withIdentity(email, userType))
	router.GET("/client_return/:email", m.RequireClient(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	router.GET("/api/clients/:email/loans", m.RequireClient(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	router.GET("/api/loans/overdue", m.RequireLibrarian(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func serve(router *gin.Engine, path string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func TestRequireClient(t *testing.T) {
	tests := []struct {
		name     string
		mode     config.AuthMode
		email    string
		userType entities.UserType
		path     string
		want     int
	}{
		{"open mode", config.AuthModeNone, "", "", "/client_return/a@example.com", http.StatusOK},
		{"owner", config.AuthModeLocal, "a@example.com", entities.UserTypeClient, "/client_return/a@example.com", http.StatusOK},
		{"owner case insensitive", config.AuthModeLocal, "A@Example.com", entities.UserTypeClient, "/client_return/a@example.com", http.StatusOK},
		{"other client", config.AuthModeLocal, "b@example.com", entities.UserTypeClient, "/client_return/a@example.com", http.StatusForbidden},
		{"librarian", config.AuthModeLocal, "lib@example.com", entities.UserTypeLibrarian, "/client_return/a@example.com", http.StatusOK},
		{"anonymous page", config.AuthModeLocal, "", "", "/client_return/a@example.com", http.StatusFound},
		{"anonymous api", config.AuthModeLocal, "", "", "/api/clients/a@example.com/loans", http.StatusUnauthorized},
		{"other client api", config.AuthModeLocal, "b@example.com", entities.UserTypeClient, "/api/clients/a@example.com/loans", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(newGuardedRouter(tt.mode, tt.email, tt.userType), tt.path)
			assert.Equal(t, tt.want, rr.Code)
		})
	}
}

func TestRequireClient_RedirectsToSignin(t *testing.T) {
	rr := serve(newGuardedRouter(config.AuthModeLocal, "", ""), "/client_return/a@example.com")

	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/signin/client?next=%2Fclient_return%2Fa%40example.com", rr.Header().Get("Location"))
}

func TestRequireLibrarian(t *testing.T) {
	assert.Equal(t, http.StatusOK, serve(newGuardedRouter(config.AuthModeNone, "", ""), "/api/loans/overdue").Code)
	assert.Equal(t, http.StatusOK, serve(newGuardedRouter(config.AuthModeLocal, "lib@example.com", entities.UserTypeLibrarian), "/api/loans/overdue").Code)
	assert.Equal(t, http.StatusForbidden, serve(newGuardedRouter(config.AuthModeLocal, "a@example.com", entities.UserTypeClient), "/api/loans/overdue").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(newGuardedRouter(config.AuthModeLocal, "", ""), "/api/loans/overdue").Code)
}

func TestContextHelpers_Anonymous(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	assert.Empty(t, GetEmail(c))
	assert.Empty(t, GetName(c))
	assert.Empty(t, GetUserType(c))
	assert.False(t, IsAuthenticated(c))
}
