package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RoutePolicy records the policy a route was registered with.
type RoutePolicy struct {
	Method string
	Path   string
	Policy Policy
}

// PolicyRouter registers routes on an echo group, each with an explicit
// policy. There is no way to add a route without declaring one.
type PolicyRouter struct {
	group  *echo.Group
	deny   DenyFunc
	routes []RoutePolicy
}

// NewPolicyRouter wraps g. deny renders policy denials; nil means DenyJSON.
func NewPolicyRouter(g *echo.Group, deny DenyFunc) *PolicyRouter {
	if deny == nil {
		deny = DenyJSON
	}
	return &PolicyRouter{group: g, deny: deny}
}

// Add registers handler for method and path behind policy. Extra middleware
// runs after the policy gate.
func (r *PolicyRouter) Add(method, path string, policy Policy, handler echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route {
	mw := append([]echo.MiddlewareFunc{Gate(policy, r.deny)}, m...)
	route := r.group.Add(method, path, handler, mw...)
	r.routes = append(r.routes, RoutePolicy{Method: method, Path: route.Path, Policy: policy})
	return route
}

func (r *PolicyRouter) GET(path string, policy Policy, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route {
	return r.Add(http.MethodGet, path, policy, h, m...)
}

func (r *PolicyRouter) POST(path string, policy Policy, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route {
	return r.Add(http.MethodPost, path, policy, h, m...)
}

func (r *PolicyRouter) PUT(path string, policy Policy, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route {
	return r.Add(http.MethodPut, path, policy, h, m...)
}

func (r *PolicyRouter) DELETE(path string, policy Policy, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route {
	return r.Add(http.MethodDelete, path, policy, h, m...)
}

// Routes returns the routes registered so far with their policies.
func (r *PolicyRouter) Routes() []RoutePolicy {
	out := make([]RoutePolicy, len(r.routes))
	copy(out, r.routes)
	return out
}
