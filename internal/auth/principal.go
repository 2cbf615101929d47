// Package auth implements the stateless session gateway: signed session tokens,
// the cookie that carries them, the middleware that turns a request into an
// optional Principal, and per-route role policies.
package auth

import (
	"context"
	"encoding/json"
	"slices"

	"github.com/labstack/echo/v4"

	"storefront/internal/model"
)

// AdminPrincipalID identifies the configured administrator, which has no user row.
const AdminPrincipalID = "admin"

// Roles is a principal's role set. It encodes as a bare string when it holds a
// single role and accepts either a string or an array when decoding.
type Roles []string

// Has reports whether role is in r.
func (r Roles) Has(role string) bool {
	return slices.Contains(r, role)
}

// Intersects reports whether r and other share at least one role.
func (r Roles) Intersects(other []string) bool {
	for _, role := range r {
		if slices.Contains(other, role) {
			return true
		}
	}
	return false
}

// MarshalJSON implements json.Marshaler.
func (r Roles) MarshalJSON() ([]byte, error) {
	if len(r) == 1 {
		return json.Marshal(r[0])
	}
	return json.Marshal([]string(r))
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Roles) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		if single == "" {
			*r = nil
		} else {
			*r = Roles{single}
		}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*r = list
	return nil
}

// Principal is the identity attached to a request after its token verified.
// It is rebuilt from the token on every request and never persisted.
type Principal struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Role      Roles  `json:"role"`
}

// IsAdmin reports whether the principal holds the admin role.
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role.Has(model.RoleAdmin)
}

// PrincipalFromUser builds the principal for a stored user.
func PrincipalFromUser(u *model.User) Principal {
	return Principal{
		ID:        u.ID.String(),
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Role:      Roles{u.Role},
	}
}

// AdminPrincipal builds the synthetic administrator principal.
func AdminPrincipal(email string) Principal {
	return Principal{
		ID:        AdminPrincipalID,
		FirstName: "Admin",
		LastName:  "Coder",
		Email:     email,
		Role:      Roles{model.RoleAdmin},
	}
}

type principalContextKey struct{}

// WithPrincipal returns a new context carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext returns the principal attached to ctx, or nil.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalContextKey{}).(*Principal)
	return p
}

// CurrentPrincipal returns the principal attached to the request, or nil.
func CurrentPrincipal(c echo.Context) *Principal {
	return PrincipalFromContext(c.Request().Context())
}
