package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	identityDomain "github.com/allisson/vaultadmin/internal/identity/domain"
)

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newRouter := func(rps float64, burst int) *gin.Engine {
		router := gin.New()
		router.GET("/probe", RateLimitMiddleware(rps, burst, testLogger()), func(c *gin.Context) {
			c.Status(http.StatusOK)
		})
		return router
	}

	request := func(router *gin.Engine, identity *Identity) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/probe", nil)
		if identity != nil {
			req = req.WithContext(WithIdentity(req.Context(), identity))
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	t.Run("Success_WithinBurst", func(t *testing.T) {
		router := newRouter(1, 3)
		session, user := testSessionAndUser(identityDomain.RoleUser)
		identity := &Identity{Session: session, User: user}

		for i := 0; i < 3; i++ {
			w := request(router, identity)
			assert.Equal(t, http.StatusOK, w.Code)
		}
	})

	t.Run("Error_BurstExceeded", func(t *testing.T) {
		router := newRouter(1, 2)
		session, user := testSessionAndUser(identityDomain.RoleUser)
		identity := &Identity{Session: session, User: user}

		request(router, identity)
		request(router, identity)
		w := request(router, identity)

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "1", w.Header().Get("Retry-After"))
		assert.Contains(t, w.Body.String(), "rate_limited")
	})

	t.Run("Success_SessionsLimitedIndependently", func(t *testing.T) {
		router := newRouter(1, 1)
		firstSession, firstUser := testSessionAndUser(identityDomain.RoleUser)
		secondSession, secondUser := testSessionAndUser(identityDomain.RoleUser)

		first := &Identity{Session: firstSession, User: firstUser}
		second := &Identity{Session: secondSession, User: secondUser}

		assert.Equal(t, http.StatusOK, request(router, first).Code)
		assert.Equal(t, http.StatusTooManyRequests, request(router, first).Code)
		assert.Equal(t, http.StatusOK, request(router, second).Code)
	})

	t.Run("Error_NoIdentity", func(t *testing.T) {
		router := newRouter(1, 1)

		w := request(router, nil)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
