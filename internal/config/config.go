package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Development defaults. Any of these being active in production means tokens and
// cookies are signed with publicly known keys.
const (
	DefaultJWTSecret     = "your_jwt_secret_key"
	DefaultCookieSecret  = "s3cr3t0"
	DefaultAdminEmail    = "adminCoder@coder.com"
	DefaultAdminPassword = "adminCod3r123"
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	ServerPort string `yaml:"server_port"`

	DBDriver   string `yaml:"db_driver"`
	MySQLDSN   string `yaml:"mysql_dsn"`
	SQLitePath string `yaml:"sqlite_path"`
	ResetDB    bool   `yaml:"reset_db"`

	RedisAddr string `yaml:"redis_addr"`
	RedisDB   int    `yaml:"redis_db"`
	RedisPass string `yaml:"redis_password"`

	JWTSecret     string `yaml:"jwt_secret"`
	CookieSecret  string `yaml:"cookie_secret"`
	SecureCookies bool   `yaml:"secure_cookies"`
	AdminEmail    string `yaml:"admin_email"`
	AdminPassword string `yaml:"admin_password"`

	GitHubClientID     string `yaml:"github_client_id"`
	GitHubClientSecret string `yaml:"github_client_secret"`
	GitHubCallbackURL  string `yaml:"github_callback_url"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	SwaggerHost string `yaml:"swagger_host"`
}

// Load builds Config from environment with sensible defaults. When CONFIG_FILE
// points at a YAML file its values replace the defaults; explicit environment
// variables still win.
func Load() (*Config, error) {
	base := defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, base); err != nil {
			return nil, err
		}
	}
	return &Config{
		ServerPort:         getEnv("SERVER_PORT", base.ServerPort),
		DBDriver:           strings.ToLower(getEnv("DB_DRIVER", base.DBDriver)),
		MySQLDSN:           getEnv("MYSQL_DSN", base.MySQLDSN),
		SQLitePath:         getEnv("SQLITE_PATH", base.SQLitePath),
		ResetDB:            getEnvBool("RESET_DB", base.ResetDB),
		RedisAddr:          getEnv("REDIS_ADDR", base.RedisAddr),
		RedisDB:            getEnvInt("REDIS_DB", base.RedisDB),
		RedisPass:          getEnv("REDIS_PASSWORD", base.RedisPass),
		JWTSecret:          getEnv("JWT_SECRET", base.JWTSecret),
		CookieSecret:       getEnv("COOKIE_SECRET", base.CookieSecret),
		SecureCookies:      getEnvBool("SECURE_COOKIES", base.SecureCookies),
		AdminEmail:         getEnv("ADMIN_EMAIL", base.AdminEmail),
		AdminPassword:      getEnv("ADMIN_PASSWORD", base.AdminPassword),
		GitHubClientID:     getEnv("GITHUB_CLIENT_ID", base.GitHubClientID),
		GitHubClientSecret: getEnv("GITHUB_CLIENT_SECRET", base.GitHubClientSecret),
		GitHubCallbackURL:  getEnv("GITHUB_CALLBACK_URL", base.GitHubCallbackURL),
		LogLevel:           getEnv("LOG_LEVEL", base.LogLevel),
		LogFormat:          getEnv("LOG_FORMAT", base.LogFormat),
		SwaggerHost:        getEnv("SWAGGER_HOST", base.SwaggerHost),
	}, nil
}

func defaults() *Config {
	return &Config{
		ServerPort:        "8080",
		DBDriver:          "mysql",
		MySQLDSN:          "user:password@tcp(localhost:3306)/storefront?charset=utf8mb4&parseTime=True&loc=Local",
		SQLitePath:        "storefront.db",
		RedisAddr:         "localhost:6379",
		JWTSecret:         DefaultJWTSecret,
		CookieSecret:      DefaultCookieSecret,
		AdminEmail:        DefaultAdminEmail,
		AdminPassword:     DefaultAdminPassword,
		GitHubCallbackURL: "http://localhost:8080/api/sessions/github/callback",
		LogLevel:          "info",
		LogFormat:         "text",
	}
}

// DSN returns the connection string for the configured driver.
func (c *Config) DSN() string {
	if c.DBDriver == "sqlite" {
		return c.SQLitePath
	}
	return c.MySQLDSN
}

// GitHubEnabled reports whether external identity delegation is configured.
func (c *Config) GitHubEnabled() bool {
	return c.GitHubClientID != "" && c.GitHubClientSecret != ""
}

// UsingDevSecrets reports whether any signing secret or the admin credential is
// still the development default.
func (c *Config) UsingDevSecrets() bool {
	return c.JWTSecret == DefaultJWTSecret ||
		c.CookieSecret == DefaultCookieSecret ||
		c.AdminPassword == DefaultAdminPassword
}

var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// loadFile overlays YAML values onto cfg. ${VAR} references are expanded from
// the environment before parsing.
func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	expanded := envPattern.ReplaceAllStringFunc(string(data), func(m string) string {
		return os.Getenv(envPattern.FindStringSubmatch(m)[1])
	})
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}
