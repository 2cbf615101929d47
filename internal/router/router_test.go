package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"storefront/internal/auth"
	"storefront/internal/db"
	"storefront/internal/handler"
	"storefront/internal/logging"
	"storefront/internal/password"
	"storefront/internal/repository"
	"storefront/internal/service"
	"storefront/internal/view"
)

const (
	adminEmail    = "adminCoder@coder.com"
	adminPassword = "adminCod3r123"
)

type fakeProvider struct {
	profile service.ExternalProfile
	err     error
}

func (f *fakeProvider) AuthCodeURL(state string) string {
	return "https://provider.example/authorize?state=" + state
}

func (f *fakeProvider) Authenticate(ctx context.Context, code string) (service.ExternalProfile, error) {
	return f.profile, f.err
}

type testServer struct {
	e      *echo.Echo
	tokens *auth.TokenService
	cookie *auth.SessionCookie
	routes []auth.RoutePolicy
}

func newTestServer(t *testing.T, provider handler.ExternalProvider) *testServer {
	t.Helper()
	gormDB, err := db.NewSQLiteMemory()
	require.NoError(t, err)

	logger := logging.Discard()
	hasher := password.NewHasher(bcrypt.MinCost, 4)
	tokens := auth.NewTokenService("router-test-secret")
	cookie := auth.NewSessionCookie("router-cookie-secret", false)

	userRepo := repository.NewUserRepository(gormDB, hasher)
	productRepo := repository.NewProductRepository(gormDB)
	cartRepo := repository.NewCartRepository(gormDB)

	credentials := service.NewCredentialService(userRepo, hasher, service.AdminCredential{Email: adminEmail, Password: adminPassword}, logger)
	products := service.NewProductService(productRepo, nil)
	carts := service.NewCartService(cartRepo, productRepo)

	renderer, err := view.New()
	require.NoError(t, err)

	e := echo.New()
	routes := Register(e, logger, Session{Tokens: tokens, Cookie: cookie}, renderer, Handlers{
		Auth:     handler.NewAuthHandler(credentials, tokens, cookie, provider, logger),
		Users:    handler.NewUserHandler(service.NewUserService(userRepo, hasher, nil)),
		Products: handler.NewProductHandler(products),
		Carts:    handler.NewCartHandler(carts),
		Views:    handler.NewViewHandler(products, carts, provider != nil),
	})
	return &testServer{e: e, tokens: tokens, cookie: cookie, routes: routes}
}

type envelope struct {
	Status  string          `json:"status"`
	Payload json.RawMessage `json:"payload"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
}

func (s *testServer) do(t *testing.T, method, path, body string, cookies []*http.Cookie, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.CookieName {
			return c
		}
	}
	return nil
}

func isCleared(rec *httptest.ResponseRecorder) bool {
	c := sessionCookie(rec)
	return c != nil && c.MaxAge < 0
}

func (s *testServer) register(t *testing.T, first, email, pass string) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/sessions/register",
		`{"first_name":"`+first+`","last_name":"Tester","email":"`+email+`","password":"`+pass+`"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var summary struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Payload, &summary))
	return summary.ID
}

func (s *testServer) login(t *testing.T, email, pass string) []*http.Cookie {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/sessions/login", `{"email":"`+email+`","password":"`+pass+`"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	c := sessionCookie(rec)
	require.NotNil(t, c)
	return []*http.Cookie{{Name: c.Name, Value: c.Value}}
}

func TestRegisterAndLogin(t *testing.T) {
	s := newTestServer(t, nil)
	s.register(t, "Ada", "ada@example.com", "secret")

	rec := s.do(t, http.MethodPost, "/api/sessions/register",
		`{"first_name":"Ada","last_name":"Again","email":"ADA@Example.com","password":"x"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decode(t, rec)
	assert.Equal(t, "error", env.Status)
	assert.Equal(t, "User already exists", env.Error)

	rec = s.do(t, http.MethodPost, "/api/sessions/register", `{"first_name":"Ada","email":"x@example.com"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "All fields are required", decode(t, rec).Error)

	cookies := s.login(t, "ada@example.com", "secret")
	assert.True(t, strings.HasPrefix(cookies[0].Value, "s:"))

	rec = s.do(t, http.MethodGet, "/api/sessions/current", "", cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	var p auth.Principal
	require.NoError(t, json.Unmarshal(decode(t, rec).Payload, &p))
	assert.Equal(t, "ada@example.com", p.Email)
	assert.True(t, p.Role.Has("user"))
}

func TestLoginFailures(t *testing.T) {
	s := newTestServer(t, nil)
	s.register(t, "Ada", "ada@example.com", "secret")

	unknown := s.do(t, http.MethodPost, "/api/sessions/login", `{"email":"ghost@example.com","password":"secret"}`, nil)
	wrong := s.do(t, http.MethodPost, "/api/sessions/login", `{"email":"ada@example.com","password":"nope"}`, nil)

	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, unknown.Body.String(), wrong.Body.String())
	assert.Nil(t, sessionCookie(unknown))

	browser := s.do(t, http.MethodPost, "/api/sessions/login", `{"email":"ada@example.com","password":"nope"}`, nil,
		echo.HeaderAccept, "text/html,application/xhtml+xml")
	assert.Equal(t, http.StatusFound, browser.Code)
	assert.Equal(t, "/login?error=Login+failed%21", browser.Header().Get(echo.HeaderLocation))
}

func TestBrowserLoginRedirects(t *testing.T) {
	s := newTestServer(t, nil)
	s.register(t, "Ada", "ada@example.com", "secret")

	req := httptest.NewRequest(http.MethodPost, "/api/sessions/login", strings.NewReader("email=ada%40example.com&password=secret"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	req.Header.Set(echo.HeaderAccept, "text/html")
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/current", rec.Header().Get(echo.HeaderLocation))
	c := sessionCookie(rec)
	require.NotNil(t, c)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, int((24 * time.Hour).Seconds()), c.MaxAge)
}

func TestAdminBypassWithEmptyStore(t *testing.T) {
	s := newTestServer(t, nil)
	cookies := s.login(t, adminEmail, adminPassword)

	rec := s.do(t, http.MethodGet, "/api/users", "", cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, string(decode(t, rec).Payload))
}

func TestAdminOnlyRoute(t *testing.T) {
	s := newTestServer(t, nil)
	s.register(t, "Ada", "ada@example.com", "secret")
	userCookies := s.login(t, "ada@example.com", "secret")

	rec := s.do(t, http.MethodGet, "/api/users", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", decode(t, rec).Code)

	rec = s.do(t, http.MethodGet, "/api/users", "", userCookies)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", decode(t, rec).Code)
}

func TestPublicRouteIgnoresPrincipal(t *testing.T) {
	s := newTestServer(t, nil)
	s.register(t, "Ada", "ada@example.com", "secret")
	userCookies := s.login(t, "ada@example.com", "secret")

	for _, cookies := range [][]*http.Cookie{nil, userCookies, s.login(t, adminEmail, adminPassword)} {
		rec := s.do(t, http.MethodGet, "/api/products", "", cookies)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestTamperedCookieDegradesToAnonymous(t *testing.T) {
	s := newTestServer(t, nil)
	s.register(t, "Ada", "ada@example.com", "secret")
	cookies := s.login(t, "ada@example.com", "secret")

	raw := []byte(cookies[0].Value)
	idx := strings.LastIndexByte(cookies[0].Value, '.') - 4
	if raw[idx] == 'A' {
		raw[idx] = 'B'
	} else {
		raw[idx] = 'A'
	}
	tampered := []*http.Cookie{{Name: auth.CookieName, Value: string(raw)}}

	rec := s.do(t, http.MethodGet, "/api/products", "", tampered)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, isCleared(rec))

	rec = s.do(t, http.MethodGet, "/api/sessions/current", "", tampered)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.True(t, isCleared(rec))
}

func TestExpiredTokenDegradesToAnonymous(t *testing.T) {
	s := newTestServer(t, nil)
	past := s.tokens.WithClock(func() time.Time { return time.Now().Add(-48 * time.Hour) })
	token, err := past.Issue(auth.AdminPrincipal(adminEmail))
	require.NoError(t, err)

	rec := s.do(t, http.MethodGet, "/api/users", "", []*http.Cookie{{Name: auth.CookieName, Value: s.cookie.Sign(token)}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.True(t, isCleared(rec))
}

func TestSelfOrAdmin(t *testing.T) {
	s := newTestServer(t, nil)
	adaID := s.register(t, "Ada", "ada@example.com", "secret")
	bobID := s.register(t, "Bob", "bob@example.com", "secret")
	ada := s.login(t, "ada@example.com", "secret")
	admin := s.login(t, adminEmail, adminPassword)

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/users/"+adaID, "", ada).Code)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/api/users/"+bobID, "", ada).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/users/"+bobID, "", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/users/"+bobID, "", admin).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/users/not-a-uuid", "", admin).Code)

	rec := s.do(t, http.MethodPut, "/api/users/"+adaID, `{"first_name":"Augusta","role":"admin"}`, ada)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var summary struct {
		FirstName string `json:"first_name"`
		Role      string `json:"role"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Payload, &summary))
	assert.Equal(t, "Augusta", summary.FirstName)
	assert.Equal(t, "user", summary.Role)

	rec = s.do(t, http.MethodPut, "/api/users/"+adaID, `{"role":"superuser"}`, ada)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(decode(t, rec).Payload, &summary))
	assert.Equal(t, "user", summary.Role)

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/users/"+strings.ToUpper(adaID), "", ada).Code)

	rec = s.do(t, http.MethodPut, "/api/users/"+bobID, `{"role":"superuser"}`, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_ROLE", decode(t, rec).Code)

	rec = s.do(t, http.MethodPut, "/api/users/"+bobID, `{"role":"admin"}`, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(decode(t, rec).Payload, &summary))
	assert.Equal(t, "admin", summary.Role)

	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodDelete, "/api/users/"+bobID, "", ada).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodDelete, "/api/users/"+bobID, "", admin).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodDelete, "/api/users/"+bobID, "", admin).Code)
}

func TestLogoutIsIdempotent(t *testing.T) {
	s := newTestServer(t, nil)
	cookies := s.login(t, adminEmail, adminPassword)

	first := s.do(t, http.MethodPost, "/api/sessions/logout", "", cookies)
	assert.Equal(t, http.StatusOK, first.Code)
	assert.True(t, isCleared(first))

	second := s.do(t, http.MethodPost, "/api/sessions/logout", "", nil)
	assert.Equal(t, http.StatusOK, second.Code)
	assert.True(t, isCleared(second))

	alias := s.do(t, http.MethodPost, "/api/users/logout", "", nil)
	assert.Equal(t, http.StatusOK, alias.Code)
}

func TestCatalogAndCart(t *testing.T) {
	s := newTestServer(t, nil)
	admin := s.login(t, adminEmail, adminPassword)
	s.register(t, "Ada", "ada@example.com", "secret")
	ada := s.login(t, "ada@example.com", "secret")

	body := `{"title":"Hammer","code":"H-1","price":12.5,"stock":3,"category":"tools"}`
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodPost, "/api/products", body, ada).Code)
	rec := s.do(t, http.MethodPost, "/api/products", body, admin)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var product struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Payload, &product))

	rec = s.do(t, http.MethodGet, "/api/products?limit=1&sort=asc", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page handler.ProductPageResponse
	require.NoError(t, json.Unmarshal(decode(t, rec).Payload, &page))
	assert.EqualValues(t, 1, page.Total)
	assert.False(t, page.HasNext)
	assert.Nil(t, page.NextLink)

	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodPost, "/api/carts", "", nil).Code)
	rec = s.do(t, http.MethodPost, "/api/carts", "", ada)
	require.Equal(t, http.StatusCreated, rec.Code)
	var cart struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Payload, &cart))

	rec = s.do(t, http.MethodPost, "/api/carts/"+cart.ID+"/products/"+product.ID, `{"quantity":2}`, ada)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = s.do(t, http.MethodPost, "/api/carts/"+cart.ID+"/products/"+product.ID, "", ada)
	require.Equal(t, http.StatusOK, rec.Code)
	var loaded struct {
		Products []struct {
			Quantity int `json:"quantity"`
		} `json:"products"`
		Total string `json:"total"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Payload, &loaded))
	require.Len(t, loaded.Products, 1)
	assert.Equal(t, 3, loaded.Products[0].Quantity)
	assert.Equal(t, "37.5", loaded.Total)

	rec = s.do(t, http.MethodPut, "/api/carts/"+cart.ID+"/products/"+product.ID, `{"quantity":0}`, ada)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodDelete, "/api/carts/"+cart.ID, "", ada)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(decode(t, rec).Payload, &loaded))
	assert.Empty(t, loaded.Products)
}

func TestViews(t *testing.T) {
	s := newTestServer(t, nil)
	admin := s.login(t, adminEmail, adminPassword)

	rec := s.do(t, http.MethodGet, "/current", "", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get(echo.HeaderLocation))

	rec = s.do(t, http.MethodGet, "/login", "", admin)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/current", rec.Header().Get(echo.HeaderLocation))

	rec = s.do(t, http.MethodGet, "/login?error=Login+failed%21", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Login failed!")

	rec = s.do(t, http.MethodGet, "/current", "", admin)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "adminCoder@coder.com")

	rec = s.do(t, http.MethodGet, "/", "", nil)
	assert.Equal(t, "/login", rec.Header().Get(echo.HeaderLocation))
}

func TestGitHubRoutesOnlyWhenConfigured(t *testing.T) {
	s := newTestServer(t, nil)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/sessions/github", "", nil).Code)

	for _, r := range s.routes {
		assert.NotContains(t, r.Path, "github")
	}
}

func TestGitHubFlow(t *testing.T) {
	provider := &fakeProvider{profile: service.ExternalProfile{Email: "octo@example.com", DisplayName: "Mona Lisa Octocat", Username: "octocat"}}
	s := newTestServer(t, provider)

	rec := s.do(t, http.MethodGet, "/api/sessions/github", "", nil)
	require.Equal(t, http.StatusFound, rec.Code)
	var state *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "oauth_state" {
			state = c
		}
	}
	require.NotNil(t, state)
	assert.Contains(t, rec.Header().Get(echo.HeaderLocation), "state="+state.Value)

	rec = s.do(t, http.MethodGet, "/api/sessions/github/callback?code=abc&state=forged", "", []*http.Cookie{{Name: "oauth_state", Value: state.Value}})
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/sessions/github/callback?code=abc&state="+state.Value, "", []*http.Cookie{{Name: "oauth_state", Value: state.Value}})
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/current", rec.Header().Get(echo.HeaderLocation))
	session := sessionCookie(rec)
	require.NotNil(t, session)

	rec = s.do(t, http.MethodGet, "/api/sessions/current", "", []*http.Cookie{{Name: session.Name, Value: session.Value}})
	require.Equal(t, http.StatusOK, rec.Code)
	var p auth.Principal
	require.NoError(t, json.Unmarshal(decode(t, rec).Payload, &p))
	assert.Equal(t, "Mona", p.FirstName)
	assert.Equal(t, "Lisa Octocat", p.LastName)

	rec = s.do(t, http.MethodPost, "/api/sessions/login", `{"email":"octo@example.com","password":""}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestEveryRouteDeclaresPolicy(t *testing.T) {
	s := newTestServer(t, &fakeProvider{})
	seen := map[string]bool{}
	for _, r := range s.routes {
		key := r.Method + " " + r.Path
		assert.False(t, seen[key], "duplicate route %s", key)
		seen[key] = true
	}
	assert.True(t, seen["GET /api/users"])
	assert.True(t, seen["GET /api/sessions/github/callback"])
}

func TestUnknownRouteUsesEnvelope(t *testing.T) {
	s := newTestServer(t, nil)
	rec := s.do(t, http.MethodGet, "/api/nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	env := decode(t, rec)
	assert.Equal(t, "error", env.Status)
	assert.Equal(t, "NOT_FOUND", env.Code)
}
