// Package store defines the storage contract and its implementations.
package store

import (
	"context"

	"github.com/stevemurr/franchise-admin/model"
)

// Repository is the CRUD surface every entity kind exposes.
//
// Absence is never an error: Get and Update return a nil record, Delete
// returns false.
type Repository[T any] interface {
	// List returns every record of the kind ordered by id.
	List(ctx context.Context) ([]T, error)

	// Get returns the record with the given id, or nil.
	Get(ctx context.Context, id int) (*T, error)

	// Create stores v under the next free id, ignoring any id v carries,
	// applies the kind's defaults and stamps createdAt.
	Create(ctx context.Context, v T) (*T, error)

	// Update merges p into the record with the given id and returns the
	// result, or nil if no such record exists.
	Update(ctx context.Context, id int, p model.Patch) (*T, error)

	// Delete removes the record. Returns true if it existed.
	Delete(ctx context.Context, id int) (bool, error)
}

type UserRepository interface {
	Repository[model.User]

	// GetByEmail returns the first user with the given email, or nil.
	GetByEmail(ctx context.Context, email string) (*model.User, error)
}

// OrderRepository reads orders joined with their user and product. A
// missing user or product is replaced by a placeholder, never dropped.
type OrderRepository interface {
	List(ctx context.Context) ([]model.OrderWithUserAndProduct, error)
	Get(ctx context.Context, id int) (*model.OrderWithUserAndProduct, error)
	Create(ctx context.Context, o model.Order) (*model.Order, error)
	Update(ctx context.Context, id int, p model.Patch) (*model.Order, error)
	Delete(ctx context.Context, id int) (bool, error)

	GetByNumber(ctx context.Context, orderNumber string) (*model.Order, error)
	ListByUser(ctx context.Context, userID int) ([]model.OrderWithUserAndProduct, error)
}

type MenuRepository interface {
	Repository[model.Menu]

	ListByStore(ctx context.Context, storeID int) ([]model.Menu, error)
}

// DashboardRepository serves the dashboard aggregates. Each read
// materializes and persists the documented default when nothing is stored
// yet, so consecutive reads agree.
type DashboardRepository interface {
	Stats(ctx context.Context) (*model.DashboardStats, error)

	// UpdateStats merges p into the stats record, creating it first when
	// absent.
	UpdateStats(ctx context.Context, p model.Patch) (*model.DashboardStats, error)

	Revenue(ctx context.Context) ([]model.RevenueData, error)
	Activity(ctx context.Context) (*model.ActivityData, error)
}

// Store is the full storage contract the route layer depends on.
type Store interface {
	Users() UserRepository
	Products() Repository[model.Product]
	Orders() OrderRepository
	Locations() Repository[model.Location]
	Companies() Repository[model.Company]
	Stores() Repository[model.Store]
	StoreManagers() Repository[model.StoreManager]
	Menus() MenuRepository
	Transactions() Repository[model.Transaction]
	WalletTopups() Repository[model.WalletTopup]
	Dashboard() DashboardRepository

	// Backend names the implementation: "memory", "sqlite", "json" or "mongo".
	Backend() string

	// Ping checks that the backing database is reachable.
	Ping(ctx context.Context) error

	Close(ctx context.Context) error
}
