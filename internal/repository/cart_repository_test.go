package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "storefront/internal/errors"
	"storefront/internal/model"
)

func TestCartRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	gormDB := newTestDB(t)
	products := seedProducts(t, NewProductRepository(gormDB))
	repo := NewCartRepository(gormDB)

	cart := &model.Cart{}
	require.NoError(t, repo.Create(ctx, cart))

	require.NoError(t, repo.AddItem(ctx, cart.ID, products[0].ID, 1))
	require.NoError(t, repo.AddItem(ctx, cart.ID, products[0].ID, 2))
	require.NoError(t, repo.AddItem(ctx, cart.ID, products[1].ID, 1))

	loaded, err := repo.FindByID(ctx, cart.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Items, 2)
	assert.Equal(t, 3, loaded.Items[0].Quantity)
	assert.Equal(t, "P-0", loaded.Items[0].Product.Code)
	assert.True(t, decimal.RequireFromString("100.00").Equal(loaded.Total()))

	require.NoError(t, repo.SetQuantity(ctx, cart.ID, products[1].ID, 5))
	assert.ErrorIs(t, repo.SetQuantity(ctx, cart.ID, products[2].ID, 5), apperrors.ErrProductNotInCart)

	require.NoError(t, repo.RemoveItem(ctx, cart.ID, products[0].ID))
	assert.ErrorIs(t, repo.RemoveItem(ctx, cart.ID, products[0].ID), apperrors.ErrProductNotInCart)

	loaded, err = repo.FindByID(ctx, cart.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Items, 1)
	assert.Equal(t, 5, loaded.Items[0].Quantity)

	require.NoError(t, repo.ReplaceItems(ctx, cart.ID, []model.CartItem{
		{ProductID: products[2].ID, Quantity: 2},
		{ProductID: products[3].ID, Quantity: 1},
	}))
	loaded, err = repo.FindByID(ctx, cart.ID)
	require.NoError(t, err)
	assert.Len(t, loaded.Items, 2)

	require.NoError(t, repo.Clear(ctx, cart.ID))
	loaded, err = repo.FindByID(ctx, cart.ID)
	require.NoError(t, err)
	assert.Empty(t, loaded.Items)
}

func TestCartRepository_UnknownCart(t *testing.T) {
	ctx := context.Background()
	repo := NewCartRepository(newTestDB(t))
	missing := uuid.New()

	_, err := repo.FindByID(ctx, missing)
	assert.ErrorIs(t, err, apperrors.ErrCartNotFound)
	assert.ErrorIs(t, repo.AddItem(ctx, missing, uuid.New(), 1), apperrors.ErrCartNotFound)
	assert.ErrorIs(t, repo.Clear(ctx, missing), apperrors.ErrCartNotFound)
	assert.ErrorIs(t, repo.ReplaceItems(ctx, missing, nil), apperrors.ErrCartNotFound)
}

func TestCartRepository_KeepsDeletedProductLines(t *testing.T) {
	ctx := context.Background()
	gormDB := newTestDB(t)
	productRepo := NewProductRepository(gormDB)
	products := seedProducts(t, productRepo)
	repo := NewCartRepository(gormDB)

	cart := &model.Cart{}
	require.NoError(t, repo.Create(ctx, cart))
	require.NoError(t, repo.AddItem(ctx, cart.ID, products[0].ID, 1))
	require.NoError(t, productRepo.Delete(ctx, products[0].ID))

	loaded, err := repo.FindByID(ctx, cart.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Items, 1)
	assert.Equal(t, "P-0", loaded.Items[0].Product.Code)
}
