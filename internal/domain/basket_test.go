package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBasket_IsAnonymous(t *testing.T) {
	anon := &Basket{ID: "bskt-1", AnonymousToken: "tok"}
	assert.True(t, anon.IsAnonymous())

	owned := &Basket{ID: "bskt-2", UserID: "user-1"}
	assert.False(t, owned.IsAnonymous())
}

func TestTotalCost(t *testing.T) {
	items := []BasketItem{
		{ProductID: "prod-a", Price: MustMoney("10.00", "USD"), Quantity: 2},
		{ProductID: "prod-b", Price: MustMoney("1.50", "USD"), Quantity: 3},
	}

	total, err := TotalCost(items)
	require.NoError(t, err)
	assert.Equal(t, "24.50 USD", total.String())
}

func TestTotalCost_Empty(t *testing.T) {
	total, err := TotalCost(nil)
	require.NoError(t, err)
	assert.True(t, total.IsZero())
}

func TestTotalCost_CurrencyMismatch(t *testing.T) {
	items := []BasketItem{
		{ProductID: "prod-a", Price: MustMoney("10.00", "USD"), Quantity: 1},
		{ProductID: "prod-b", Price: MustMoney("5.00", "EUR"), Quantity: 1},
	}

	_, err := TotalCost(items)
	assert.Error(t, err)
}

func TestRecalculateRating(t *testing.T) {
	assert.Equal(t, 0.0, RecalculateRating(nil))

	reviews := []Review{
		{Rate: 5},
		{Rate: 4},
		{Rate: 3},
	}
	assert.InDelta(t, 4.0, RecalculateRating(reviews), 0.0001)
}

func TestMoney_JSONRoundTrip(t *testing.T) {
	m := MustMoney("19.90", "USD")

	data, err := m.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":"19.90","currency":"USD"}`, string(data))

	var back Money
	require.NoError(t, back.UnmarshalJSON(data))
	assert.True(t, m.Amount.Equal(back.Amount))
	assert.Equal(t, m.Currency, back.Currency)
}

func TestMoney_MulInt(t *testing.T) {
	m := MustMoney("2.50", "USD")
	assert.Equal(t, "7.50 USD", m.MulInt(3).String())
}
