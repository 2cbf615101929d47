package model

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitDisplayName(t *testing.T) {
	tests := []struct {
		display, fallback, first, last string
	}{
		{"Ada Lovelace", "ada", "Ada", "Lovelace"},
		{"  Grace   Brewster Hopper ", "grace", "Grace", "Brewster Hopper"},
		{"Linus", "torvalds", "Linus", ""},
		{"", "octocat", "octocat", ""},
	}
	for _, tt := range tests {
		first, last := SplitDisplayName(tt.display, tt.fallback)
		assert.Equal(t, tt.first, first, tt.display)
		assert.Equal(t, tt.last, last, tt.display)
	}
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "mixed@case.io", NormalizeEmail("  Mixed@Case.IO "))
}

func TestUser_Summary(t *testing.T) {
	u := &User{ID: uuid.New(), FirstName: "A", LastName: "B", Email: "a@b.c", PasswordHash: "x", Role: RoleUser}

	s := u.Summary()
	assert.Equal(t, u.ID.String(), s.ID)
	assert.Equal(t, RoleUser, s.Role)
	assert.True(t, u.HasLocalPassword())
}

func TestThumbnails_RoundTrip(t *testing.T) {
	in := Thumbnails{"https://cdn/a.png", "https://cdn/b.png"}
	v, err := in.Value()
	require.NoError(t, err)

	var out Thumbnails
	require.NoError(t, out.Scan(v))
	assert.Equal(t, in, out)

	require.NoError(t, out.Scan(nil))
	assert.Nil(t, out)
}

func TestCart_Total(t *testing.T) {
	c := Cart{Items: []CartItem{
		{Quantity: 2, Product: Product{Price: decimal.RequireFromString("10.50")}},
		{Quantity: 1, Product: Product{Price: decimal.RequireFromString("4.00")}},
	}}
	assert.True(t, decimal.RequireFromString("25.00").Equal(c.Total()))
}
