// Package http provides Gin handlers for the SSO broker: launch, the
// loopback-only redeem endpoint, and the upstream proxy.
package http

import (
	"net"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/allisson/vaultadmin/internal/httputil"
)

// LoopbackOnlyMiddleware rejects requests not originating from the loopback
// interface. The redeem endpoint returns derived credential proofs, so it is
// restricted to same-host callers. The check uses the socket peer address,
// not forwarded headers, which a remote client could forge.
func LoopbackOnlyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
		if err != nil {
			host = c.Request.RemoteAddr
		}

		ip := net.ParseIP(host)
		if ip == nil || !ip.IsLoopback() {
			c.JSON(http.StatusForbidden, httputil.ErrorResponse{
				Error:   "forbidden",
				Message: "endpoint restricted to loopback callers",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
