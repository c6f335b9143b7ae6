package handlers

import (
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cellmesh.io/cellmesh/internal/pkg/logger"
	"cellmesh.io/cellmesh/internal/routing"
)

// RouteRequest handles ANY /route/*path: the edge entry point that forwards
// tenant requests to their cell. The authorization header is forwarded
// untouched; rejected requests never leave the router.
func (s *Server) RouteRequest(c *gin.Context) {
	decision := s.router.Route(
		c.Request.Context(),
		c.GetHeader(routing.HeaderAuthorization),
		c.GetHeader(routing.HeaderTenantID),
	)

	if decision.Reject != 0 {
		c.JSON(decision.Reject, gin.H{
			"code":    "ROUTING_REJECTED",
			"message": http.StatusText(decision.Reject),
		})
		return
	}

	if decision.Origin == "" {
		// Fail-open with no default origin configured: nowhere to send it.
		c.JSON(http.StatusBadGateway, gin.H{
			"code":    "NO_ORIGIN_AVAILABLE",
			"message": "request could not be resolved and no default origin is configured",
		})
		return
	}

	target, err := url.Parse(decision.Origin)
	if err != nil {
		logger.Error("invalid origin URL",
			zap.String("origin", decision.Origin),
			zap.Error(err),
		)
		c.JSON(http.StatusBadGateway, gin.H{
			"code":    "INVALID_ORIGIN",
			"message": "resolved origin is not a valid URL",
		})
		return
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	director := proxy.Director
	proxy.Director = func(req *http.Request) {
		director(req)
		// The origin rewrite: the upstream sees its own host, not the
		// router's.
		req.Host = target.Host
		req.URL.Path = strings.TrimPrefix(req.URL.Path, "/route")
		if req.URL.Path == "" {
			req.URL.Path = "/"
		}
	}
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Error("origin request failed",
			zap.String("origin", decision.Origin),
			zap.String("tenant_id", decision.TenantID),
			zap.Error(err),
		)
		w.WriteHeader(http.StatusBadGateway)
	}

	proxy.ServeHTTP(c.Writer, c.Request)
}
