package model

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to string
		want     bool
	}{
		{OrderPending, OrderProcessing, true},
		{OrderPending, OrderCancelled, true},
		{OrderProcessing, OrderShipped, true},
		{OrderShipped, OrderDelivered, true},
		{OrderProcessing, OrderCancelled, false},
		{OrderShipped, OrderCancelled, false},
		{OrderDelivered, OrderPending, false},
		{OrderCancelled, OrderPending, false},
		{OrderPending, OrderDelivered, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestNewCartTotals(t *testing.T) {
	cart := NewCart([]CartLine{
		{ProductID: 1, Quantity: 3, Price: decimal.RequireFromString("10.00")},
		{ProductID: 2, Quantity: 2, Price: decimal.RequireFromString("0.35")},
	})
	assert.Equal(t, 2, cart.Count)
	assert.True(t, cart.Items[0].Subtotal.Equal(decimal.RequireFromString("30.00")))
	assert.True(t, cart.Total.Equal(decimal.RequireFromString("30.70")), cart.Total.String())

	empty := NewCart(nil)
	assert.NotNil(t, empty.Items)
	assert.True(t, empty.Total.IsZero())
}

func TestProductFilterNormalize(t *testing.T) {
	f := ProductFilter{Page: 0, PerPage: 500, Sort: "price_desc"}
	f.Normalize()
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, MaxPageSize, f.PerPage)
	assert.Equal(t, SortPriceHigh, f.Sort)

	f = ProductFilter{Page: 3, Sort: "bogus"}
	f.Normalize()
	assert.Equal(t, DefaultPageSize, f.PerPage)
	assert.Equal(t, SortName, f.Sort)
	assert.Equal(t, 40, f.Offset())

	f = ProductFilter{Page: math.MaxInt64, PerPage: 20}
	f.Normalize()
	assert.Equal(t, math.MaxInt32/20, f.Page)
	assert.GreaterOrEqual(t, f.Offset(), 0)
	assert.LessOrEqual(t, f.Offset(), math.MaxInt32)
}

func TestPageCount(t *testing.T) {
	assert.Equal(t, 0, PageCount(0, 20))
	assert.Equal(t, 1, PageCount(20, 20))
	assert.Equal(t, 2, PageCount(21, 20))
}

func TestIdentityAccess(t *testing.T) {
	admin := Identity{UserID: 1, Role: RoleAdmin}
	user := Identity{UserID: 2, Role: RoleCustomer}
	assert.True(t, admin.CanAccess(2))
	assert.True(t, user.CanAccess(2))
	assert.False(t, user.CanAccess(3))
	assert.Equal(t, RoleAdmin, User{IsAdmin: true}.Role())
}
