package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaults(t *testing.T) {
	doc := Doc{"username": "ana", "role": "", "isActive": nil}
	ApplyDefaults(KindUser, doc)

	assert.Equal(t, RoleCustomer, doc["role"])
	assert.Equal(t, "0.00", doc["walletBalance"])
	assert.Equal(t, true, doc["isActive"])
	assert.Equal(t, "ana", doc["username"])
}

func TestApplyDefaultsKeepsGivenValues(t *testing.T) {
	doc := Doc{"isActive": false, "phone": "555-0100"}
	ApplyDefaults(KindCompany, doc)

	assert.Equal(t, false, doc["isActive"])
	assert.Equal(t, "555-0100", doc["phone"])
	assert.Contains(t, doc, "registrationNumber")
	assert.Nil(t, doc["registrationNumber"])
}

func TestPatchClean(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	p := Patch{"id": 9, "_id": "x", "createdAt": "2020-01-01T00:00:00Z", "updatedAt": "2020-01-01T00:00:00Z", "city": "Austin"}

	loc := p.Clean(KindLocation, now)
	assert.Equal(t, Patch{"city": "Austin", "updatedAt": now}, loc)

	tx := p.Clean(KindTransaction, now)
	assert.Equal(t, Patch{"city": "Austin"}, tx, "transactions carry no updatedAt")

	assert.Len(t, p, 5, "the caller's patch is left alone")
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("store_managers")
	require.NoError(t, err)
	assert.Equal(t, KindStoreManager, k)

	_, err = ParseKind("coupons")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestFixturesAreConsistent(t *testing.T) {
	fx := SeedFixtures()
	users := map[int]bool{}
	for _, u := range fx.Users {
		assert.False(t, users[u.ID], "duplicate user id %d", u.ID)
		users[u.ID] = true
	}
	products := map[int]bool{}
	for _, p := range fx.Products {
		products[p.ID] = true
	}
	for _, o := range fx.Orders {
		assert.True(t, users[o.UserID], "order %s references missing user", o.OrderNumber)
		assert.True(t, products[o.ProductID], "order %s references missing product", o.OrderNumber)
	}
	require.Len(t, fx.Revenue, 7)
	assert.Equal(t, 1, fx.Stats.ID)
}

func TestJoinOrderPlaceholders(t *testing.T) {
	o := Order{ID: 1, UserID: 7, ProductID: 8}
	view := JoinOrder(o, nil, nil)
	assert.Equal(t, UnknownUser(7), view.User)
	assert.Equal(t, UnknownProduct(8), view.Product)
}
