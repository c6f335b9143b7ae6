package routing

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"cellmesh.io/cellmesh/internal/pkg/logger"
)

// Header names the router inspects. Tenant identity rides a custom header;
// the authorization header is only checked for presence and forwarded
// untouched, verification belongs to the workload behind the origin.
const (
	HeaderAuthorization = "Authorization"
	HeaderTenantID      = "Tenantid"
)

// Decision is the outcome of routing one request.
type Decision struct {
	// Reject carries the HTTP status to answer with. Zero means forward.
	Reject int

	// Origin is the URL to forward to. On a resolved tenant this is the
	// cell URL; on fail-open it is the default origin.
	Origin string

	// Resolved reports whether the tenant was found in the routing config.
	Resolved bool

	TenantID string
}

// Router turns request headers into forwarding decisions.
type Router struct {
	cache         *Cache
	defaultOrigin string
}

// NewRouter creates a router over the given cache. defaultOrigin receives
// requests the router cannot resolve.
func NewRouter(cache *Cache, defaultOrigin string) *Router {
	return &Router{cache: cache, defaultOrigin: defaultOrigin}
}

// Route decides where a request goes.
//
// Requests without an authorization header are rejected with 401 and ones
// without a tenant header with 400, before any resolution work. Anything
// that goes wrong during resolution fails open: the request is passed to
// the default origin unchanged rather than dropped, and the workload makes
// the final authorization call.
func (r *Router) Route(ctx context.Context, authorization, tenantID string) Decision {
	if authorization == "" {
		return Decision{Reject: http.StatusUnauthorized}
	}
	if tenantID == "" {
		return Decision{Reject: http.StatusBadRequest}
	}

	url, ok, err := r.cache.Lookup(ctx, tenantID)
	if err != nil {
		logger.Warn("routing resolution failed, passing request through",
			zap.String("tenant_id", tenantID),
			zap.Error(err),
		)
		return Decision{Origin: r.defaultOrigin, TenantID: tenantID}
	}
	if !ok {
		logger.Debug("tenant has no routing entry, passing request through",
			zap.String("tenant_id", tenantID))
		return Decision{Origin: r.defaultOrigin, TenantID: tenantID}
	}

	return Decision{Origin: url, Resolved: true, TenantID: tenantID}
}
