package auth

import (
	"net/http"
	"slices"
	"strings"

	"github.com/labstack/echo/v4"

	apperrors "storefront/internal/errors"
)

// PublicRole is the sentinel that marks a route open to anonymous callers.
const PublicRole = "PUBLIC"

// Policy is a route's access requirement. The zero value and Public() let
// every request through; any other policy requires a principal holding at
// least one of its roles.
type Policy struct {
	roles  []string
	public bool
}

// NewPolicy builds a policy from role names. A PUBLIC entry, in any case,
// makes the policy public.
func NewPolicy(roles ...string) Policy {
	var p Policy
	for _, r := range roles {
		r = strings.TrimSpace(r)
		switch {
		case r == "":
		case strings.EqualFold(r, PublicRole):
			p.public = true
		case !slices.Contains(p.roles, r):
			p.roles = append(p.roles, r)
		}
	}
	if p.public {
		p.roles = nil
	}
	return p
}

// Public returns the policy that admits anonymous callers.
func Public() Policy {
	return Policy{public: true}
}

// RequireRoles returns a policy admitting principals with any of roles.
func RequireRoles(roles ...string) Policy {
	return NewPolicy(roles...)
}

// Open reports whether the policy admits anonymous callers.
func (p Policy) Open() bool {
	return p.public || len(p.roles) == 0
}

// Roles returns a copy of the roles the policy admits.
func (p Policy) Roles() []string {
	return slices.Clone(p.roles)
}

func (p Policy) String() string {
	if p.Open() {
		return PublicRole
	}
	return strings.Join(p.roles, "|")
}

// Evaluate decides whether principal may pass. It returns nil, ErrUnauthorized
// when a principal is required and absent, or ErrForbidden when the principal
// holds none of the policy's roles.
func (p Policy) Evaluate(principal *Principal) error {
	if p.Open() {
		return nil
	}
	if principal == nil {
		return apperrors.ErrUnauthorized
	}
	if !principal.Role.Intersects(p.roles) {
		return apperrors.ErrForbidden
	}
	return nil
}

// AuthorizeSelf admits principal when it owns the resource identified by
// ownerID or holds one of roles. IDs compare case-insensitively.
func AuthorizeSelf(principal *Principal, ownerID string, roles ...string) error {
	if principal == nil {
		return apperrors.ErrUnauthorized
	}
	if strings.EqualFold(principal.ID, ownerID) || principal.Role.Intersects(roles) {
		return nil
	}
	return apperrors.ErrForbidden
}

// DenyFunc renders a policy denial. err is ErrUnauthorized or ErrForbidden.
type DenyFunc func(c echo.Context, err error) error

// DenyJSON renders denials as API errors for the central error handler.
func DenyJSON(c echo.Context, err error) error {
	return err
}

// DenyRedirect renders denials for browser views: anonymous visitors go to
// loginPath, others get a plain 403 page.
func DenyRedirect(loginPath string) DenyFunc {
	return func(c echo.Context, err error) error {
		if err == apperrors.ErrUnauthorized {
			return c.Redirect(http.StatusFound, loginPath)
		}
		return c.String(http.StatusForbidden, http.StatusText(http.StatusForbidden))
	}
}

// Gate returns middleware enforcing policy on every request it wraps.
func Gate(policy Policy, deny DenyFunc) echo.MiddlewareFunc {
	if deny == nil {
		deny = DenyJSON
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := policy.Evaluate(CurrentPrincipal(c)); err != nil {
				return deny(c, err)
			}
			return next(c)
		}
	}
}
