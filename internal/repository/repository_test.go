package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"storefront/internal/db"
	"storefront/internal/password"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gormDB, err := db.NewSQLiteMemory()
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := gormDB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return gormDB
}

func newTestHasher() *password.Hasher {
	return password.NewHasher(bcrypt.MinCost, 2)
}

func hash(t *testing.T, h *password.Hasher, plain string) string {
	t.Helper()
	hashed, err := h.Hash(context.Background(), plain)
	require.NoError(t, err)
	return hashed
}
