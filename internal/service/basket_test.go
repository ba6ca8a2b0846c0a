package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meganoshop/megano-server/internal/domain"
	domainerrors "github.com/meganoshop/megano-server/internal/errors"
)

func TestResolveIdentity(t *testing.T) {
	svc := setupServices(t)

	// A signed-in user always wins, even with a cookie present.
	id := svc.basket.ResolveIdentity("user-1", "tok-1")
	assert.Equal(t, domain.IdentityUser, id.Kind)
	assert.Equal(t, "user-1", id.Key)
	assert.False(t, id.NewlyMinted)

	// Cookie token for anonymous visitors.
	id = svc.basket.ResolveIdentity("", "tok-1")
	assert.Equal(t, domain.IdentityAnonymous, id.Kind)
	assert.Equal(t, "tok-1", id.Key)
	assert.False(t, id.NewlyMinted)

	// Nothing at all: a fresh token, flagged for cookie issuance.
	id = svc.basket.ResolveIdentity("", "")
	assert.Equal(t, domain.IdentityAnonymous, id.Kind)
	assert.NotEmpty(t, id.Key)
	assert.True(t, id.NewlyMinted)

	// Minted tokens are unique.
	other := svc.basket.ResolveIdentity("", "")
	assert.NotEqual(t, id.Key, other.Key)
}

func TestBasketAddAndRemove(t *testing.T) {
	svc := setupServices(t)
	ctx := context.Background()

	p := createProduct(t, svc, "Keyboard", "49.90", 10)
	identity := svc.basket.ResolveIdentity("", "tok-basket")

	items, err := svc.basket.Add(ctx, identity, AddItemRequest{ProductID: p.ID, Count: 3})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].Quantity)
	assert.Equal(t, "49.90 USD", items[0].Price.String())

	items, err = svc.basket.Remove(ctx, identity, AddItemRequest{ProductID: p.ID, Count: 1})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)

	items, err = svc.basket.Remove(ctx, identity, AddItemRequest{ProductID: p.ID, Count: 10})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestBasketErrorTaxonomy(t *testing.T) {
	svc := setupServices(t)
	ctx := context.Background()

	p := createProduct(t, svc, "Mouse", "19.90", 5)
	identity := svc.basket.ResolveIdentity("", "tok-errors")

	// Negative quantity fails before the basket exists.
	_, err := svc.basket.Add(ctx, identity, AddItemRequest{ProductID: p.ID, Count: -1})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidQuantity)

	// Unknown product.
	_, err = svc.basket.Add(ctx, identity, AddItemRequest{ProductID: "prod-nope", Count: 1})
	assert.ErrorIs(t, err, domainerrors.ErrProductNotFound)

	// Removing a product that was never added.
	_, err = svc.basket.Remove(ctx, identity, AddItemRequest{ProductID: p.ID, Count: 1})
	assert.ErrorIs(t, err, domainerrors.ErrLineNotFound)

	// Missing product ID.
	_, err = svc.basket.Add(ctx, identity, AddItemRequest{Count: 1})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestBasketGetCreatesOnFirstTouch(t *testing.T) {
	svc := setupServices(t)
	ctx := context.Background()

	identity := svc.basket.ResolveIdentity("", "tok-fresh")
	items, err := svc.basket.Get(ctx, identity)
	require.NoError(t, err)
	assert.Empty(t, items)
}
