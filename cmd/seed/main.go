package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"storefront/internal/config"
	"storefront/internal/db"
	apperrors "storefront/internal/errors"
	"storefront/internal/logging"
	"storefront/internal/model"
	"storefront/internal/password"
	"storefront/internal/repository"
)

// SeedUser is one entry of the seed file.
type SeedUser struct {
	Name     string `json:"nombre"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"rol"`
}

type seedResult struct {
	created, updated, skipped int
}

func main() {
	file := flag.String("file", "users.json", "path to the JSON seed file")
	update := flag.Bool("update", false, "overwrite users that already exist")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	gormDB, err := db.Open(cfg.DBDriver, cfg.DSN())
	if err != nil {
		logger.Error("connect database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := db.Migrate(gormDB); err != nil {
		logger.Error("run migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	f, err := os.Open(*file)
	if err != nil {
		logger.Error("open seed file", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer f.Close()

	users, err := readSeedFile(f)
	if err != nil {
		logger.Error("read seed file", slog.String("error", err.Error()))
		os.Exit(1)
	}

	hasher := password.NewHasher(password.DefaultCost, 0)
	repo := repository.NewUserRepository(gormDB, hasher)

	res, err := seedUsers(context.Background(), repo, hasher, users, *update, logger)
	if err != nil {
		logger.Error("seed users", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("seed completed",
		slog.Int("created", res.created),
		slog.Int("updated", res.updated),
		slog.Int("skipped", res.skipped),
	)
}

func readSeedFile(r io.Reader) ([]SeedUser, error) {
	var users []SeedUser
	if err := json.NewDecoder(r).Decode(&users); err != nil {
		return nil, fmt.Errorf("parse JSON: %w", err)
	}
	return users, nil
}

// seedUsers inserts every valid entry. Existing users are skipped unless
// update is set, in which case their name, role and password are overwritten.
func seedUsers(ctx context.Context, repo repository.UserRepository, hasher *password.Hasher, users []SeedUser, update bool, logger *slog.Logger) (seedResult, error) {
	var res seedResult
	for _, u := range users {
		email := model.NormalizeEmail(u.Email)
		if email == "" || u.Password == "" {
			logger.Warn("skipping entry without email or password", slog.String("name", u.Name))
			res.skipped++
			continue
		}
		first, last := model.SplitDisplayName(u.Name, strings.SplitN(email, "@", 2)[0])
		role := strings.ToLower(strings.TrimSpace(u.Role))
		if role == "" {
			role = model.RoleUser
		}

		existing, err := repo.FindByEmail(ctx, email)
		if err != nil && !errors.Is(err, apperrors.ErrUserNotFound) {
			return res, fmt.Errorf("check user %s: %w", email, err)
		}
		if existing != nil && !update {
			res.skipped++
			continue
		}

		hashed, err := hasher.Hash(ctx, u.Password)
		if err != nil {
			return res, fmt.Errorf("hash password for %s: %w", email, err)
		}

		if existing != nil {
			existing.FirstName = first
			existing.LastName = last
			existing.Role = role
			existing.PasswordHash = hashed
			if err := repo.Update(ctx, existing); err != nil {
				return res, fmt.Errorf("update user %s: %w", email, err)
			}
			res.updated++
			continue
		}

		if err := repo.Create(ctx, &model.User{
			FirstName:    first,
			LastName:     last,
			Email:        email,
			PasswordHash: hashed,
			Role:         role,
		}); err != nil {
			return res, fmt.Errorf("create user %s: %w", email, err)
		}
		res.created++
	}
	return res, nil
}
