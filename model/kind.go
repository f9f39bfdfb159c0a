// Package model holds the records managed by the admin service, the
// defaults applied to them on create, and the fixture data the in-memory
// store starts with.
package model

import "errors"

// Kind names an entity kind. Its value doubles as the collection name in
// every backend.
type Kind string

const (
	KindUser           Kind = "users"
	KindProduct        Kind = "products"
	KindOrder          Kind = "orders"
	KindLocation       Kind = "locations"
	KindCompany        Kind = "companies"
	KindStore          Kind = "stores"
	KindStoreManager   Kind = "store_managers"
	KindMenu           Kind = "menus"
	KindTransaction    Kind = "transactions"
	KindWalletTopup    Kind = "wallet_topups"
	KindDashboardStats Kind = "dashboard_stats"
	KindRevenueData    Kind = "revenue_data"
	KindActivityData   Kind = "activity_data"
)

// Kinds lists every persisted kind.
var Kinds = []Kind{
	KindUser,
	KindProduct,
	KindOrder,
	KindLocation,
	KindCompany,
	KindStore,
	KindStoreManager,
	KindMenu,
	KindTransaction,
	KindWalletTopup,
	KindDashboardStats,
	KindRevenueData,
	KindActivityData,
}

var (
	// ErrIdentityCollision is returned when a write would store a second
	// record under an id that is already taken.
	ErrIdentityCollision = errors.New("identity collision")

	// ErrUnknownKind is returned for a kind name no collection exists for.
	ErrUnknownKind = errors.New("unknown entity kind")
)

// ParseKind maps a collection name to its Kind.
func ParseKind(name string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == name {
			return k, nil
		}
	}
	return "", ErrUnknownKind
}

// TracksUpdatedAt reports whether records of this kind carry an updatedAt
// stamp that is refreshed on every update.
func (k Kind) TracksUpdatedAt() bool {
	switch k {
	case KindLocation, KindCompany, KindStore, KindStoreManager, KindMenu, KindWalletTopup, KindDashboardStats:
		return true
	}
	return false
}
