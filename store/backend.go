package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/stevemurr/franchise-admin/model"
)

// Backend is a keyed JSON document store: named collections of documents
// identified by an integer id. The embedded backends (memory, SQLite, JSON
// files) implement it and share the DocStore implementation of the contract.
type Backend interface {
	// Name identifies the backend in logs and metrics.
	Name() string

	// All returns every document in a collection ordered by id.
	All(ctx context.Context, collection string) ([][]byte, error)

	// Get returns a single document, or nil if not found.
	Get(ctx context.Context, collection string, id int) ([]byte, error)

	// Create allocates the next id of the collection, stores the document
	// build returns for it and returns that document. Allocation and write
	// are atomic; a build error leaves the collection unchanged.
	Create(ctx context.Context, collection string, build func(id int) ([]byte, error)) ([]byte, error)

	// Insert stores a document under an explicit id and raises the
	// collection's id counter to at least id. Returns
	// model.ErrIdentityCollision if the id is taken.
	Insert(ctx context.Context, collection string, id int, data []byte) error

	// Modify atomically replaces a document with fn's result. Returns nil
	// if the document does not exist; an fn error leaves it unchanged.
	Modify(ctx context.Context, collection string, id int, fn func(current []byte) ([]byte, error)) ([]byte, error)

	// Delete removes a document. Returns true if it existed.
	Delete(ctx context.Context, collection string, id int) (bool, error)

	Ping(ctx context.Context) error
	Close() error
}

// DocStore implements Store on top of a Backend.
type DocStore struct {
	backend Backend
	now     func() time.Time

	users         *docUsers
	products      *docRepo[model.Product]
	orders        *docOrders
	locations     *docRepo[model.Location]
	companies     *docRepo[model.Company]
	stores        *docRepo[model.Store]
	storeManagers *docRepo[model.StoreManager]
	menus         *docMenus
	transactions  *docRepo[model.Transaction]
	walletTopups  *docRepo[model.WalletTopup]
	dashboard     *docDashboard
}

var _ Store = (*DocStore)(nil)

func newDocStore(b Backend) *DocStore {
	s := &DocStore{
		backend: b,
		now:     func() time.Time { return time.Now().UTC() },
	}
	users := newDocRepo[model.User](s, model.KindUser)
	products := newDocRepo[model.Product](s, model.KindProduct)

	s.users = &docUsers{docRepo: users}
	s.products = products
	s.orders = &docOrders{rows: newDocRepo[model.Order](s, model.KindOrder), users: users, products: products}
	s.locations = newDocRepo[model.Location](s, model.KindLocation)
	s.companies = newDocRepo[model.Company](s, model.KindCompany)
	s.stores = newDocRepo[model.Store](s, model.KindStore)
	s.storeManagers = newDocRepo[model.StoreManager](s, model.KindStoreManager)
	s.menus = &docMenus{docRepo: newDocRepo[model.Menu](s, model.KindMenu)}
	s.transactions = newDocRepo[model.Transaction](s, model.KindTransaction)
	s.walletTopups = newDocRepo[model.WalletTopup](s, model.KindWalletTopup)
	s.dashboard = &docDashboard{
		store:    s,
		stats:    newDocRepo[model.DashboardStats](s, model.KindDashboardStats),
		revenue:  newDocRepo[model.RevenueData](s, model.KindRevenueData),
		activity: newDocRepo[model.ActivityData](s, model.KindActivityData),
	}
	return s
}

func (s *DocStore) Users() UserRepository                        { return s.users }
func (s *DocStore) Products() Repository[model.Product]           { return s.products }
func (s *DocStore) Orders() OrderRepository                      { return s.orders }
func (s *DocStore) Locations() Repository[model.Location]         { return s.locations }
func (s *DocStore) Companies() Repository[model.Company]          { return s.companies }
func (s *DocStore) Stores() Repository[model.Store]               { return s.stores }
func (s *DocStore) StoreManagers() Repository[model.StoreManager] { return s.storeManagers }
func (s *DocStore) Menus() MenuRepository                        { return s.menus }
func (s *DocStore) Transactions() Repository[model.Transaction]   { return s.transactions }
func (s *DocStore) WalletTopups() Repository[model.WalletTopup]   { return s.walletTopups }
func (s *DocStore) Dashboard() DashboardRepository               { return s.dashboard }

func (s *DocStore) Backend() string                { return s.backend.Name() }
func (s *DocStore) Ping(ctx context.Context) error { return s.backend.Ping(ctx) }
func (s *DocStore) Close(context.Context) error    { return s.backend.Close() }

// seed writes fixture records under their own ids.
func (s *DocStore) seed(ctx context.Context, fx model.Fixtures) error {
	var err error
	insert := func(kind model.Kind, id int, v any) {
		if err != nil {
			return
		}
		err = insertRecord(ctx, s.backend, kind, id, v)
	}
	for _, u := range fx.Users {
		insert(model.KindUser, u.ID, u)
	}
	for _, p := range fx.Products {
		insert(model.KindProduct, p.ID, p)
	}
	for _, o := range fx.Orders {
		insert(model.KindOrder, o.ID, o)
	}
	for _, l := range fx.Locations {
		insert(model.KindLocation, l.ID, l)
	}
	insert(model.KindDashboardStats, fx.Stats.ID, fx.Stats)
	for _, r := range fx.Revenue {
		insert(model.KindRevenueData, r.ID, r)
	}
	insert(model.KindActivityData, fx.Activity.ID, fx.Activity)
	return err
}

func insertRecord(ctx context.Context, b Backend, kind model.Kind, id int, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s %d: %w", kind, id, err)
	}
	if err := b.Insert(ctx, string(kind), id, data); err != nil {
		return fmt.Errorf("insert %s %d: %w", kind, id, err)
	}
	return nil
}

// toDoc converts a record to its document form.
func toDoc(v any) (model.Doc, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc model.Doc
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func decode[T any](data []byte) (*T, error) {
	if data == nil {
		return nil, nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// ---------- generic repository ----------

type docRepo[T any] struct {
	store *DocStore
	kind  model.Kind
}

func newDocRepo[T any](s *DocStore, kind model.Kind) *docRepo[T] {
	return &docRepo[T]{store: s, kind: kind}
}

func (r *docRepo[T]) collection() string { return string(r.kind) }

func (r *docRepo[T]) List(ctx context.Context) ([]T, error) {
	raw, err := r.store.backend.All(ctx, r.collection())
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", r.kind, err)
	}
	out := make([]T, 0, len(raw))
	for _, data := range raw {
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("decode %s: %w", r.kind, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func (r *docRepo[T]) Get(ctx context.Context, id int) (*T, error) {
	data, err := r.store.backend.Get(ctx, r.collection(), id)
	if err != nil {
		return nil, fmt.Errorf("get %s %d: %w", r.kind, id, err)
	}
	v, err := decode[T](data)
	if err != nil {
		return nil, fmt.Errorf("decode %s %d: %w", r.kind, id, err)
	}
	return v, nil
}

func (r *docRepo[T]) Create(ctx context.Context, v T) (*T, error) {
	doc, err := toDoc(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", r.kind, err)
	}
	model.ApplyDefaults(r.kind, doc)
	now := r.store.now()

	data, err := r.store.backend.Create(ctx, r.collection(), func(id int) ([]byte, error) {
		doc["id"] = id
		doc["createdAt"] = now
		if r.kind.TracksUpdatedAt() {
			doc["updatedAt"] = now
		}
		return json.Marshal(doc)
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", r.kind, err)
	}
	return decode[T](data)
}

func (r *docRepo[T]) Update(ctx context.Context, id int, p model.Patch) (*T, error) {
	patch := p.Clean(r.kind, r.store.now())
	data, err := r.store.backend.Modify(ctx, r.collection(), id, func(current []byte) ([]byte, error) {
		var doc model.Doc
		if err := json.Unmarshal(current, &doc); err != nil {
			return nil, err
		}
		for k, v := range patch {
			doc[k] = v
		}
		next, err := json.Marshal(doc)
		if err != nil {
			return nil, err
		}
		// Refuse values the record type cannot hold.
		var probe T
		if err := json.Unmarshal(next, &probe); err != nil {
			return nil, err
		}
		return next, nil
	})
	if err != nil {
		return nil, fmt.Errorf("update %s %d: %w", r.kind, id, err)
	}
	return decode[T](data)
}

func (r *docRepo[T]) Delete(ctx context.Context, id int) (bool, error) {
	existed, err := r.store.backend.Delete(ctx, r.collection(), id)
	if err != nil {
		return false, fmt.Errorf("delete %s %d: %w", r.kind, id, err)
	}
	return existed, nil
}

// find returns the records matching keep, in id order.
func (r *docRepo[T]) find(ctx context.Context, keep func(T) bool) ([]T, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0)
	for _, v := range all {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out, nil
}

// ---------- kinds with secondary lookups ----------

type docUsers struct {
	*docRepo[model.User]
}

func (u *docUsers) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	found, err := u.find(ctx, func(v model.User) bool { return v.Email == email })
	if err != nil || len(found) == 0 {
		return nil, err
	}
	return &found[0], nil
}

type docMenus struct {
	*docRepo[model.Menu]
}

func (m *docMenus) ListByStore(ctx context.Context, storeID int) ([]model.Menu, error) {
	return m.find(ctx, func(v model.Menu) bool { return v.StoreID == storeID })
}

type docOrders struct {
	rows     *docRepo[model.Order]
	users    *docRepo[model.User]
	products *docRepo[model.Product]
}

func (o *docOrders) List(ctx context.Context) ([]model.OrderWithUserAndProduct, error) {
	orders, err := o.rows.List(ctx)
	if err != nil {
		return nil, err
	}
	return o.join(ctx, orders)
}

func (o *docOrders) ListByUser(ctx context.Context, userID int) ([]model.OrderWithUserAndProduct, error) {
	orders, err := o.rows.find(ctx, func(v model.Order) bool { return v.UserID == userID })
	if err != nil {
		return nil, err
	}
	return o.join(ctx, orders)
}

func (o *docOrders) Get(ctx context.Context, id int) (*model.OrderWithUserAndProduct, error) {
	order, err := o.rows.Get(ctx, id)
	if err != nil || order == nil {
		return nil, err
	}
	u, err := o.users.Get(ctx, order.UserID)
	if err != nil {
		return nil, err
	}
	p, err := o.products.Get(ctx, order.ProductID)
	if err != nil {
		return nil, err
	}
	view := model.JoinOrder(*order, u, p)
	return &view, nil
}

func (o *docOrders) GetByNumber(ctx context.Context, orderNumber string) (*model.Order, error) {
	found, err := o.rows.find(ctx, func(v model.Order) bool { return v.OrderNumber == orderNumber })
	if err != nil || len(found) == 0 {
		return nil, err
	}
	return &found[0], nil
}

func (o *docOrders) Create(ctx context.Context, order model.Order) (*model.Order, error) {
	return o.rows.Create(ctx, order)
}

func (o *docOrders) Update(ctx context.Context, id int, p model.Patch) (*model.Order, error) {
	return o.rows.Update(ctx, id, p)
}

func (o *docOrders) Delete(ctx context.Context, id int) (bool, error) {
	return o.rows.Delete(ctx, id)
}

func (o *docOrders) join(ctx context.Context, orders []model.Order) ([]model.OrderWithUserAndProduct, error) {
	users, err := o.users.List(ctx)
	if err != nil {
		return nil, err
	}
	products, err := o.products.List(ctx)
	if err != nil {
		return nil, err
	}
	userByID := make(map[int]*model.User, len(users))
	for i := range users {
		userByID[users[i].ID] = &users[i]
	}
	productByID := make(map[int]*model.Product, len(products))
	for i := range products {
		productByID[products[i].ID] = &products[i]
	}
	out := make([]model.OrderWithUserAndProduct, 0, len(orders))
	for _, order := range orders {
		out = append(out, model.JoinOrder(order, userByID[order.UserID], productByID[order.ProductID]))
	}
	return out, nil
}

// ---------- dashboard aggregates ----------

type docDashboard struct {
	store    *DocStore
	stats    *docRepo[model.DashboardStats]
	revenue  *docRepo[model.RevenueData]
	activity *docRepo[model.ActivityData]
}

func (d *docDashboard) Stats(ctx context.Context) (*model.DashboardStats, error) {
	return readOrSeed(ctx, d.store, d.stats, func(now time.Time) model.DashboardStats {
		return model.DefaultDashboardStats(now)
	})
}

func (d *docDashboard) UpdateStats(ctx context.Context, p model.Patch) (*model.DashboardStats, error) {
	current, err := d.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return d.stats.Update(ctx, current.ID, p)
}

func (d *docDashboard) Activity(ctx context.Context) (*model.ActivityData, error) {
	return readOrSeed(ctx, d.store, d.activity, func(now time.Time) model.ActivityData {
		return model.DefaultActivityData(now)
	})
}

func (d *docDashboard) Revenue(ctx context.Context) ([]model.RevenueData, error) {
	rows, err := d.revenue.List(ctx)
	if err != nil || len(rows) > 0 {
		return rows, err
	}
	for _, r := range model.DefaultRevenueData(d.store.now()) {
		err := insertRecord(ctx, d.store.backend, model.KindRevenueData, r.ID, r)
		if err != nil && !errors.Is(err, model.ErrIdentityCollision) {
			return nil, err
		}
	}
	return d.revenue.List(ctx)
}

// readOrSeed returns the first record of a singleton collection, persisting
// the default first if the collection is empty. A concurrent seeder winning
// the race is not an error: its record is returned instead.
func readOrSeed[T any](ctx context.Context, s *DocStore, repo *docRepo[T], def func(time.Time) T) (*T, error) {
	rows, err := repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(rows) > 0 {
		return &rows[0], nil
	}
	err = insertRecord(ctx, s.backend, repo.kind, 1, def(s.now()))
	if err != nil && !errors.Is(err, model.ErrIdentityCollision) {
		return nil, err
	}
	rows, err = repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("seed %s: record vanished after insert", repo.kind)
	}
	return &rows[0], nil
}
