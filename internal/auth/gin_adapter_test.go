package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/librarydesk/internal/entities"
)

func TestSessionLoadSave_RoundTrip(t *testing.T) {
	sm := setupSessionManager(t, localAuth())

	router := gin.New()
	router.Use(sm.SessionLoadSave())
	router.POST("/signin/client", func(c *gin.Context) {
		require.NoError(t, sm.CreateSession(c.Request, "reader@example.com", "Reader", entities.UserTypeClient))
		c.Redirect(http.StatusSeeOther, "/client_home")
	})
	router.GET("/client_home", func(c *gin.Context) {
		c.String(http.StatusOK, sm.GetEmail(c.Request))
	})
	router.GET("/logout", func(c *gin.Context) {
		require.NoError(t, sm.DestroySession(c.Request))
		c.Status(http.StatusNoContent)
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/signin/client", nil))
	require.Equal(t, http.StatusSeeOther, rr.Code)
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)

	req := httptest.NewRequest(http.MethodGet, "/client_home", nil)
	req.AddCookie(cookies[0])
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, "reader@example.com", rr.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/logout", nil)
	req.AddCookie(cookies[0])
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Len(t, rr.Result().Cookies(), 1)
	assert.Empty(t, rr.Result().Cookies()[0].Value)
}
