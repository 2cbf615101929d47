package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "storefront/docs" // swagger docs

	"github.com/labstack/echo/v4"

	"storefront/internal/auth"
	"storefront/internal/cache"
	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/handler"
	"storefront/internal/identity"
	"storefront/internal/logging"
	"storefront/internal/password"
	"storefront/internal/repository"
	"storefront/internal/router"
	"storefront/internal/service"
	"storefront/internal/view"
)

// @title Storefront API
// @version 1.0
// @description Product catalog and carts behind a stateless cookie session with role policies.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey CookieAuth
// @in cookie
// @name currentUser
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	if cfg.UsingDevSecrets() {
		logger.Warn("development secrets in use; set JWT_SECRET, COOKIE_SECRET and ADMIN_PASSWORD before deploying")
	}

	gormDB, err := db.Open(cfg.DBDriver, cfg.DSN())
	if err != nil {
		logger.Error("database init", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if cfg.ResetDB {
		logger.Warn("RESET_DB set, dropping all tables")
		if err := db.Reset(gormDB); err != nil {
			logger.Warn("drop tables", slog.String("error", err.Error()))
		}
	}
	if err := db.Migrate(gormDB); err != nil {
		logger.Error("auto-migrate", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var cacheClient *cache.Client
	if cfg.RedisAddr != "" {
		cacheClient = cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := cacheClient.Ping(pingCtx); err != nil {
			logger.Warn("redis unreachable, caching disabled until it recovers", slog.String("error", err.Error()))
		}
		cancel()
	}

	hasher := password.NewHasher(password.DefaultCost, 0)
	tokens := auth.NewTokenService(cfg.JWTSecret)
	cookie := auth.NewSessionCookie(cfg.CookieSecret, cfg.SecureCookies)

	// Initialize repositories
	userRepo := repository.NewUserRepository(gormDB, hasher)
	productRepo := repository.NewProductRepository(gormDB)
	cartRepo := repository.NewCartRepository(gormDB)

	// Initialize services
	credentials := service.NewCredentialService(userRepo, hasher, service.AdminCredential{
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
	}, logger)
	userService := service.NewUserService(userRepo, hasher, cacheClient)
	productService := service.NewProductService(productRepo, cacheClient)
	cartService := service.NewCartService(cartRepo, productRepo)

	var provider handler.ExternalProvider
	if cfg.GitHubEnabled() {
		provider = identity.NewGitHub(cfg.GitHubClientID, cfg.GitHubClientSecret, cfg.GitHubCallbackURL)
	}

	renderer, err := view.New()
	if err != nil {
		logger.Error("load templates", slog.String("error", err.Error()))
		os.Exit(1)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	routes := router.Register(e, logger, router.Session{Tokens: tokens, Cookie: cookie}, renderer, router.Handlers{
		Auth:     handler.NewAuthHandler(credentials, tokens, cookie, provider, logger),
		Users:    handler.NewUserHandler(userService),
		Products: handler.NewProductHandler(productService),
		Carts:    handler.NewCartHandler(cartService),
		Views:    handler.NewViewHandler(productService, cartService, provider != nil),
	})
	for _, r := range routes {
		logger.Debug("route", slog.String("method", r.Method), slog.String("path", r.Path), slog.String("policy", r.Policy.String()))
	}

	logger.Info("swagger documentation available", slog.String("url", swaggerURL(cfg)))

	addr := ":" + cfg.ServerPort
	go func() {
		logger.Info("server listening", slog.String("addr", addr), slog.Bool("github", provider != nil))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server start", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", slog.String("error", err.Error()))
	}
}

func swaggerURL(cfg *config.Config) string {
	host := cfg.SwaggerHost
	if host == "" {
		host = "localhost:" + cfg.ServerPort
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}
	return host + "/swagger/index.html"
}
