package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "storefront/internal/errors"
)

func TestPolicy_Evaluate(t *testing.T) {
	user := &Principal{ID: "u1", Role: Roles{"user"}}
	admin := &Principal{ID: "admin", Role: Roles{"admin"}}

	tests := []struct {
		name      string
		policy    Policy
		principal *Principal
		want      error
	}{
		{"absent policy admits anonymous", Policy{}, nil, nil},
		{"public admits anonymous", Public(), nil, nil},
		{"public sentinel in any case", NewPolicy("public"), nil, nil},
		{"public wins over roles", NewPolicy("admin", "PUBLIC"), nil, nil},
		{"admin only rejects anonymous", RequireRoles("admin"), nil, apperrors.ErrUnauthorized},
		{"admin only forbids user", RequireRoles("admin"), user, apperrors.ErrForbidden},
		{"admin only admits admin", RequireRoles("admin"), admin, nil},
		{"user or admin admits user", RequireRoles("user", "admin"), user, nil},
		{"principal without roles is forbidden", RequireRoles("user"), &Principal{ID: "x"}, apperrors.ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.policy.Evaluate(tt.principal))
		})
	}
}

func TestPolicy_RoleSetPrincipal(t *testing.T) {
	p := &Principal{ID: "u1", Role: Roles{"editor", "admin"}}
	assert.NoError(t, RequireRoles("admin").Evaluate(p))
	assert.ErrorIs(t, RequireRoles("user").Evaluate(p), apperrors.ErrForbidden)
}

func TestAuthorizeSelf(t *testing.T) {
	owner := &Principal{ID: "u1", Role: Roles{"user"}}
	other := &Principal{ID: "u2", Role: Roles{"user"}}
	admin := &Principal{ID: "admin", Role: Roles{"admin"}}

	assert.NoError(t, AuthorizeSelf(owner, "u1", "admin"))
	assert.NoError(t, AuthorizeSelf(owner, "U1", "admin"))
	assert.NoError(t, AuthorizeSelf(admin, "u1", "admin"))
	assert.ErrorIs(t, AuthorizeSelf(other, "u1", "admin"), apperrors.ErrForbidden)
	assert.ErrorIs(t, AuthorizeSelf(nil, "u1", "admin"), apperrors.ErrUnauthorized)
}

func serveWithPrincipal(e *echo.Echo, p *Principal, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if p != nil {
		req = req.WithContext(WithPrincipal(req.Context(), p))
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestPolicyRouter(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		httpErr := apperrors.MapErrorToHTTP(err)
		_ = c.JSON(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	ok := func(c echo.Context) error { return c.String(http.StatusOK, "ok") }

	r := NewPolicyRouter(e.Group("/api"), nil)
	r.GET("/open", Public(), ok)
	r.POST("/admin", RequireRoles("admin"), ok)

	assert.Equal(t, http.StatusOK, serveWithPrincipal(e, nil, http.MethodGet, "/api/open").Code)
	assert.Equal(t, http.StatusUnauthorized, serveWithPrincipal(e, nil, http.MethodPost, "/api/admin").Code)

	user := &Principal{ID: "u1", Role: Roles{"user"}}
	assert.Equal(t, http.StatusForbidden, serveWithPrincipal(e, user, http.MethodPost, "/api/admin").Code)

	admin := &Principal{ID: "admin", Role: Roles{"admin"}}
	assert.Equal(t, http.StatusOK, serveWithPrincipal(e, admin, http.MethodPost, "/api/admin").Code)

	routes := r.Routes()
	require.Len(t, routes, 2)
	assert.Equal(t, "/api/admin", routes[1].Path)
	assert.Equal(t, "admin", routes[1].Policy.String())
}

func TestDenyRedirect(t *testing.T) {
	e := echo.New()
	r := NewPolicyRouter(e.Group(""), DenyRedirect("/login"))
	r.GET("/current", RequireRoles("user", "admin"), func(c echo.Context) error {
		return c.String(http.StatusOK, "profile")
	})

	rec := serveWithPrincipal(e, nil, http.MethodGet, "/current")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get(echo.HeaderLocation))

	rec = serveWithPrincipal(e, &Principal{ID: "x", Role: Roles{"guest"}}, http.MethodGet, "/current")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRedirectAuthenticated(t *testing.T) {
	e := echo.New()
	e.GET("/login", func(c echo.Context) error {
		return c.String(http.StatusOK, "form")
	}, RedirectAuthenticated("/current"))

	assert.Equal(t, http.StatusOK, serveWithPrincipal(e, nil, http.MethodGet, "/login").Code)

	rec := serveWithPrincipal(e, &Principal{ID: "u1", Role: Roles{"user"}}, http.MethodGet, "/login")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/current", rec.Header().Get(echo.HeaderLocation))
}
