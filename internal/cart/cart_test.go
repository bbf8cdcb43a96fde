package cart_test

import (
	"errors"
	"testing"

	"herbstore/internal/cart"
	"herbstore/internal/models"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCart_AddMergesLines(t *testing.T) {
	c := cart.New("session-1")
	require.NoError(t, c.Add(cart.Item{ProductID: "p1", Name: "Moringa Tea", UnitPrice: price("7500"), Quantity: 1}))
	require.NoError(t, c.Add(cart.Item{ProductID: "p1", Name: "Moringa Tea", UnitPrice: price("7500"), Quantity: 1}))
	require.NoError(t, c.Add(cart.Item{ProductID: "p2", Name: "Bitter Leaf", UnitPrice: price("1250.50"), Quantity: 3}))

	assert.Len(t, c.Items, 2)
	assert.Equal(t, 5, c.Count())
	assert.True(t, c.Subtotal().Equal(price("18751.50")), c.Subtotal().String())

	assert.True(t, errors.Is(c.Add(cart.Item{ProductID: "p3", Quantity: 0}), cart.ErrInvalidQuantity))
}

func TestCart_SetQuantityAndRemove(t *testing.T) {
	c := cart.New("session-1")
	require.NoError(t, c.Add(cart.Item{ProductID: "p1", UnitPrice: price("100"), Quantity: 2}))
	require.NoError(t, c.Add(cart.Item{ProductID: "p2", UnitPrice: price("50"), Quantity: 1}))

	require.NoError(t, c.SetQuantity("p1", 4))
	assert.True(t, c.Subtotal().Equal(price("450")))

	require.NoError(t, c.SetQuantity("p2", 0))
	assert.Len(t, c.Items, 1)

	assert.True(t, errors.Is(c.SetQuantity("p9", 1), cart.ErrItemNotFound))
	assert.True(t, errors.Is(c.SetQuantity("p1", -1), cart.ErrInvalidQuantity))
	assert.True(t, errors.Is(c.Remove("p9"), cart.ErrItemNotFound))

	require.NoError(t, c.Remove("p1"))
	assert.True(t, c.IsEmpty())
}

func TestCart_LineItems(t *testing.T) {
	c := cart.New("session-1")
	require.NoError(t, c.Add(cart.Item{ProductID: "p1", Name: "Moringa Tea", UnitPrice: price("7500"), Quantity: 2, ImageURL: "https://cdn.example.com/p1.jpg"}))

	want := []models.DraftLineItem{{ProductID: "p1", Name: "Moringa Tea", Quantity: 2, UnitPrice: price("7500")}}
	got := c.LineItems()
	if diff := cmp.Diff(want, got, cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })); diff != "" {
		t.Errorf("LineItems mismatch (-want +got):\n%s", diff)
	}

	c.Clear()
	assert.True(t, c.IsEmpty())
	assert.True(t, c.Subtotal().IsZero())
}
