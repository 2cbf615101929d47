package router

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"

	"storefront/internal/auth"
	"storefront/internal/handler"
	"storefront/internal/model"
)

// Handlers groups the HTTP handlers the router mounts.
type Handlers struct {
	Auth     *handler.AuthHandler
	Users    *handler.UserHandler
	Products *handler.ProductHandler
	Carts    *handler.CartHandler
	Views    *handler.ViewHandler
}

// Session carries what the session middleware needs.
type Session struct {
	Tokens *auth.TokenService
	Cookie *auth.SessionCookie
}

// Register wires middleware and routes. Every API and view route is
// registered with an explicit policy; the returned list records them.
func Register(e *echo.Echo, logger *slog.Logger, session Session, renderer echo.Renderer, h Handlers) []auth.RoutePolicy {
	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())
	e.Use(requestLogger(logger))
	e.Use(auth.SessionMiddleware(session.Tokens, session.Cookie, logger))

	e.Validator = &CustomValidator{validator: validator.New()}
	e.HTTPErrorHandler = HTTPErrorHandler(logger)
	e.Renderer = renderer

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	var (
		public      = auth.Public()
		member      = auth.RequireRoles(model.RoleUser, model.RoleAdmin)
		adminOnly   = auth.RequireRoles(model.RoleAdmin)
		policyTable []auth.RoutePolicy
	)

	api := e.Group("/api")

	sessions := auth.NewPolicyRouter(api.Group("/sessions"), auth.DenyJSON)
	sessions.POST("/register", public, h.Auth.Register)
	sessions.POST("/login", public, h.Auth.Login)
	sessions.POST("/logout", public, h.Auth.Logout)
	sessions.GET("/current", member, h.Auth.Current)
	if h.Auth.ExternalEnabled() {
		sessions.GET("/github", public, h.Auth.GitHubLogin)
		sessions.GET("/github/callback", public, h.Auth.GitHubCallback)
	}
	policyTable = append(policyTable, sessions.Routes()...)

	users := auth.NewPolicyRouter(api.Group("/users"), auth.DenyJSON)
	users.POST("/register", public, h.Auth.Register)
	users.POST("/login", public, h.Auth.Login)
	users.POST("/logout", public, h.Auth.Logout)
	users.GET("", adminOnly, h.Users.ListUsers)
	// Self-or-admin is checked by the handler once the target id is known.
	users.GET("/:id", member, h.Users.GetUser)
	users.PUT("/:id", member, h.Users.UpdateUser)
	users.DELETE("/:id", adminOnly, h.Users.DeleteUser)
	policyTable = append(policyTable, users.Routes()...)

	products := auth.NewPolicyRouter(api.Group("/products"), auth.DenyJSON)
	products.GET("", public, h.Products.ListProducts)
	products.GET("/:pid", public, h.Products.GetProduct)
	products.POST("", adminOnly, h.Products.CreateProduct)
	products.PUT("/:pid", adminOnly, h.Products.UpdateProduct)
	products.DELETE("/:pid", adminOnly, h.Products.DeleteProduct)
	policyTable = append(policyTable, products.Routes()...)

	carts := auth.NewPolicyRouter(api.Group("/carts"), auth.DenyJSON)
	carts.POST("", member, h.Carts.CreateCart)
	carts.GET("/:cid", member, h.Carts.GetCart)
	carts.PUT("/:cid", member, h.Carts.ReplaceProducts)
	carts.DELETE("/:cid", member, h.Carts.ClearCart)
	carts.POST("/:cid/products/:pid", member, h.Carts.AddProduct)
	carts.PUT("/:cid/products/:pid", member, h.Carts.SetQuantity)
	carts.DELETE("/:cid/products/:pid", member, h.Carts.RemoveProduct)
	policyTable = append(policyTable, carts.Routes()...)

	views := auth.NewPolicyRouter(e.Group(""), auth.DenyRedirect("/login"))
	views.GET("/", public, h.Views.Home)
	views.GET("/login", public, h.Views.Login, auth.RedirectAuthenticated("/current"))
	views.GET("/register", public, h.Views.Register, auth.RedirectAuthenticated("/current"))
	views.GET("/current", member, h.Views.Current)
	views.GET("/products", public, h.Views.Products)
	views.GET("/cart/:cid", member, h.Views.Cart)
	policyTable = append(policyTable, views.Routes()...)

	return policyTable
}

func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			level := slog.LevelInfo
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("request_id", v.RequestID),
			}
			if v.Error != nil {
				level = slog.LevelWarn
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}
			logger.LogAttrs(context.Background(), level, "request", attrs...)
			return nil
		},
	})
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
