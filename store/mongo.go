package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/stevemurr/franchise-admin/model"
)

const countersCollection = "counters"

// MongoOptions configures the MongoDB connection.
type MongoOptions struct {
	URI            string
	Database       string
	MaxPoolSize    uint64
	ConnectTimeout time.Duration
	SocketTimeout  time.Duration
}

// MongoStore implements Store against MongoDB.
//
// Every document carries an explicit integer "id" field; reads, updates and
// deletes filter on it and never on _id. Ids come from a per-collection
// counter document in the "counters" collection, incremented atomically, and
// a unique index on "id" turns any collision into model.ErrIdentityCollision.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
	now    func() time.Time

	// primed records the collections whose counter has been raised to the
	// highest id already stored.
	primed sync.Map

	users         *mongoUsers
	products      *mongoRepo[model.Product]
	orders        *mongoOrders
	locations     *mongoRepo[model.Location]
	companies     *mongoRepo[model.Company]
	stores        *mongoRepo[model.Store]
	storeManagers *mongoRepo[model.StoreManager]
	menus         *mongoMenus
	transactions  *mongoRepo[model.Transaction]
	walletTopups  *mongoRepo[model.WalletTopup]
	dashboard     *mongoDashboard
}

var _ Store = (*MongoStore)(nil)

// ConnectMongo connects, pings the server, runs a read against the users
// collection and ensures the id indexes exist. Any failure is returned; the
// client is disconnected in that case.
func ConnectMongo(ctx context.Context, opts MongoOptions) (*MongoStore, error) {
	if opts.URI == "" {
		return nil, errors.New("mongo: no connection URI configured")
	}
	clientOpts := options.Client().
		ApplyURI(opts.URI).
		SetConnectTimeout(opts.ConnectTimeout).
		SetServerSelectionTimeout(opts.ConnectTimeout).
		SetSocketTimeout(opts.SocketTimeout)
	if opts.MaxPoolSize > 0 {
		clientOpts.SetMaxPoolSize(opts.MaxPoolSize)
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	s := newMongoStore(client, client.Database(opts.Database))

	fail := func(err error) (*MongoStore, error) {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	if err := s.Ping(ctx); err != nil {
		return fail(err)
	}
	if err := s.smokeTest(ctx); err != nil {
		return fail(err)
	}
	if err := s.ensureIndexes(ctx); err != nil {
		return fail(err)
	}
	return s, nil
}

func newMongoStore(client *mongo.Client, db *mongo.Database) *MongoStore {
	s := &MongoStore{
		client: client,
		db:     db,
		now:    func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
	users := newMongoRepo[model.User](s, model.KindUser)
	products := newMongoRepo[model.Product](s, model.KindProduct)

	s.users = &mongoUsers{mongoRepo: users}
	s.products = products
	s.orders = &mongoOrders{rows: newMongoRepo[model.Order](s, model.KindOrder)}
	s.locations = newMongoRepo[model.Location](s, model.KindLocation)
	s.companies = newMongoRepo[model.Company](s, model.KindCompany)
	s.stores = newMongoRepo[model.Store](s, model.KindStore)
	s.storeManagers = newMongoRepo[model.StoreManager](s, model.KindStoreManager)
	s.menus = &mongoMenus{mongoRepo: newMongoRepo[model.Menu](s, model.KindMenu)}
	s.transactions = newMongoRepo[model.Transaction](s, model.KindTransaction)
	s.walletTopups = newMongoRepo[model.WalletTopup](s, model.KindWalletTopup)
	s.dashboard = &mongoDashboard{
		store:    s,
		stats:    newMongoRepo[model.DashboardStats](s, model.KindDashboardStats),
		revenue:  newMongoRepo[model.RevenueData](s, model.KindRevenueData),
		activity: newMongoRepo[model.ActivityData](s, model.KindActivityData),
	}
	return s
}

func (s *MongoStore) Users() UserRepository                        { return s.users }
func (s *MongoStore) Products() Repository[model.Product]           { return s.products }
func (s *MongoStore) Orders() OrderRepository                      { return s.orders }
func (s *MongoStore) Locations() Repository[model.Location]         { return s.locations }
func (s *MongoStore) Companies() Repository[model.Company]          { return s.companies }
func (s *MongoStore) Stores() Repository[model.Store]               { return s.stores }
func (s *MongoStore) StoreManagers() Repository[model.StoreManager] { return s.storeManagers }
func (s *MongoStore) Menus() MenuRepository                        { return s.menus }
func (s *MongoStore) Transactions() Repository[model.Transaction]   { return s.transactions }
func (s *MongoStore) WalletTopups() Repository[model.WalletTopup]   { return s.walletTopups }
func (s *MongoStore) Dashboard() DashboardRepository               { return s.dashboard }

func (s *MongoStore) Backend() string { return "mongo" }

// Ping runs the admin ping command.
func (s *MongoStore) Ping(ctx context.Context) error {
	if err := s.client.Database("admin").RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err(); err != nil {
		return fmt.Errorf("mongo ping: %w", err)
	}
	return nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) smokeTest(ctx context.Context) error {
	err := s.db.Collection(string(model.KindUser)).FindOne(ctx, bson.M{}).Err()
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("mongo smoke test: %w", err)
	}
	return nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	for _, kind := range model.Kinds {
		_, err := s.db.Collection(string(kind)).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys: bson.D{{Key: "id", Value: 1}},
			Options: options.Index().
				SetName("id_unique").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"id": bson.M{"$exists": true}}),
		})
		if err != nil {
			return fmt.Errorf("mongo index %s: %w", kind, err)
		}
	}
	secondary := []struct {
		kind  model.Kind
		field string
	}{
		{model.KindUser, "email"},
		{model.KindOrder, "userId"},
		{model.KindOrder, "orderNumber"},
		{model.KindMenu, "storeId"},
	}
	for _, ix := range secondary {
		_, err := s.db.Collection(string(ix.kind)).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys: bson.D{{Key: ix.field, Value: 1}},
		})
		if err != nil {
			return fmt.Errorf("mongo index %s.%s: %w", ix.kind, ix.field, err)
		}
	}
	return nil
}

// nextID hands out the next id of a collection from its counter document.
func (s *MongoStore) nextID(ctx context.Context, kind model.Kind) (int, error) {
	if err := s.primeSequence(ctx, kind); err != nil {
		return 0, err
	}
	var counter struct {
		Seq int `bson:"seq"`
	}
	counters := s.db.Collection(countersCollection)
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var err error
	// Two upserts racing on a fresh counter can fail with a duplicate key;
	// the retry then finds the document the winner created.
	for attempt := 0; attempt < 2; attempt++ {
		err = counters.FindOneAndUpdate(ctx,
			bson.M{"_id": string(kind)},
			bson.M{"$inc": bson.M{"seq": 1}},
			opts,
		).Decode(&counter)
		if err == nil || !mongo.IsDuplicateKeyError(err) {
			break
		}
	}
	if err != nil {
		return 0, fmt.Errorf("next id for %s: %w", kind, err)
	}
	return counter.Seq, nil
}

// primeSequence raises a collection's counter to the highest id stored,
// falling back to the document count when no document has a numeric id.
func (s *MongoStore) primeSequence(ctx context.Context, kind model.Kind) error {
	if _, done := s.primed.Load(kind); done {
		return nil
	}
	coll := s.db.Collection(string(kind))
	var top struct {
		ID int `bson:"id"`
	}
	base := 0
	err := coll.FindOne(ctx,
		bson.M{"id": bson.M{"$type": "number"}},
		options.FindOne().SetSort(bson.D{{Key: "id", Value: -1}}).SetProjection(bson.M{"id": 1}),
	).Decode(&top)
	switch {
	case err == nil:
		base = top.ID
	case errors.Is(err, mongo.ErrNoDocuments):
		n, err := coll.CountDocuments(ctx, bson.M{})
		if err != nil {
			return fmt.Errorf("count %s: %w", kind, err)
		}
		base = int(n)
	default:
		return fmt.Errorf("max id of %s: %w", kind, err)
	}

	_, err = s.db.Collection(countersCollection).UpdateOne(ctx,
		bson.M{"_id": string(kind)},
		bson.M{"$max": bson.M{"seq": base}},
		options.Update().SetUpsert(true),
	)
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("prime counter %s: %w", kind, err)
	}
	s.primed.Store(kind, struct{}{})
	return nil
}

// toBSONDoc converts a record to its document form using its bson tags.
func toBSONDoc(v any) (model.Doc, error) {
	data, err := bson.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc model.Doc
	if err := bson.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// normalizePatch converts patch values (as decoded from JSON) into the BSON
// types the record's fields are stored as, and rejects values the record
// cannot hold. Unknown fields are passed through.
func normalizePatch[T any](p model.Patch) (bson.M, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	typed, err := toBSONDoc(v)
	if err != nil {
		return nil, err
	}
	out := make(bson.M, len(p))
	for k, val := range p {
		if tv, ok := typed[k]; ok {
			out[k] = tv
		} else {
			out[k] = val
		}
	}
	return out, nil
}

func isCollision(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}

// ---------- generic repository ----------

type mongoRepo[T any] struct {
	store *MongoStore
	kind  model.Kind
}

func newMongoRepo[T any](s *MongoStore, kind model.Kind) *mongoRepo[T] {
	return &mongoRepo[T]{store: s, kind: kind}
}

func (r *mongoRepo[T]) coll() *mongo.Collection {
	return r.store.db.Collection(string(r.kind))
}

func (r *mongoRepo[T]) find(ctx context.Context, filter bson.M) ([]T, error) {
	cur, err := r.coll().Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", r.kind, err)
	}
	out := make([]T, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", r.kind, err)
	}
	return out, nil
}

func (r *mongoRepo[T]) findOne(ctx context.Context, filter bson.M) (*T, error) {
	var v T
	err := r.coll().FindOne(ctx, filter, options.FindOne().SetSort(bson.D{{Key: "id", Value: 1}})).Decode(&v)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", r.kind, err)
	}
	return &v, nil
}

func (r *mongoRepo[T]) List(ctx context.Context) ([]T, error) {
	return r.find(ctx, bson.M{})
}

func (r *mongoRepo[T]) Get(ctx context.Context, id int) (*T, error) {
	return r.findOne(ctx, bson.M{"id": id})
}

func (r *mongoRepo[T]) Create(ctx context.Context, v T) (*T, error) {
	doc, err := toBSONDoc(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", r.kind, err)
	}
	model.ApplyDefaults(r.kind, doc)
	delete(doc, "_id")

	id, err := r.store.nextID(ctx, r.kind)
	if err != nil {
		return nil, err
	}
	now := r.store.now()
	doc["id"] = id
	doc["createdAt"] = now
	if r.kind.TracksUpdatedAt() {
		doc["updatedAt"] = now
	}

	if _, err := r.coll().InsertOne(ctx, doc); err != nil {
		if isCollision(err) {
			return nil, fmt.Errorf("create %s %d: %w", r.kind, id, model.ErrIdentityCollision)
		}
		return nil, fmt.Errorf("create %s: %w", r.kind, err)
	}
	created, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if created == nil {
		return nil, fmt.Errorf("create %s %d: record missing after insert", r.kind, id)
	}
	return created, nil
}

func (r *mongoRepo[T]) Update(ctx context.Context, id int, p model.Patch) (*T, error) {
	patch := p.Clean(r.kind, r.store.now())
	if len(patch) == 0 {
		return r.Get(ctx, id)
	}
	set, err := normalizePatch[T](patch)
	if err != nil {
		return nil, fmt.Errorf("update %s %d: %w", r.kind, id, err)
	}
	res, err := r.coll().UpdateOne(ctx, bson.M{"id": id}, bson.M{"$set": set})
	if err != nil {
		return nil, fmt.Errorf("update %s %d: %w", r.kind, id, err)
	}
	if res.MatchedCount == 0 {
		return nil, nil
	}
	return r.Get(ctx, id)
}

func (r *mongoRepo[T]) Delete(ctx context.Context, id int) (bool, error) {
	res, err := r.coll().DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return false, fmt.Errorf("delete %s %d: %w", r.kind, id, err)
	}
	return res.DeletedCount > 0, nil
}

// ---------- kinds with secondary lookups ----------

type mongoUsers struct {
	*mongoRepo[model.User]
}

func (u *mongoUsers) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return u.findOne(ctx, bson.M{"email": email})
}

type mongoMenus struct {
	*mongoRepo[model.Menu]
}

func (m *mongoMenus) ListByStore(ctx context.Context, storeID int) ([]model.Menu, error) {
	return m.find(ctx, bson.M{"storeId": storeID})
}

type mongoOrders struct {
	rows *mongoRepo[model.Order]
}

// orderRow is one result of the order join pipeline. User and Product are
// nil when the referenced document does not exist.
type orderRow struct {
	model.Order `bson:",inline"`
	User        *model.User    `bson:"user"`
	Product     *model.Product `bson:"product"`
}

// joined runs match -> sort -> left join users -> left join products. Joins
// use the integer identity on both sides.
func (o *mongoOrders) joined(ctx context.Context, match bson.M) ([]model.OrderWithUserAndProduct, error) {
	pipeline := mongo.Pipeline{}
	if match != nil {
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: match}})
	}
	pipeline = append(pipeline, bson.D{{Key: "$sort", Value: bson.D{{Key: "id", Value: 1}}}})
	pipeline = append(pipeline, leftJoin(string(model.KindUser), "userId", "user")...)
	pipeline = append(pipeline, leftJoin(string(model.KindProduct), "productId", "product")...)

	cur, err := o.rows.coll().Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("join orders: %w", err)
	}
	var rows []orderRow
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}
	out := make([]model.OrderWithUserAndProduct, 0, len(rows))
	for _, row := range rows {
		out = append(out, model.JoinOrder(row.Order, row.User, row.Product))
	}
	return out, nil
}

func leftJoin(from, localField, as string) []bson.D {
	return []bson.D{
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: from},
			{Key: "localField", Value: localField},
			{Key: "foreignField", Value: "id"},
			{Key: "as", Value: as},
		}}},
		{{Key: "$unwind", Value: bson.D{
			{Key: "path", Value: "$" + as},
			{Key: "preserveNullAndEmptyArrays", Value: true},
		}}},
	}
}

func (o *mongoOrders) List(ctx context.Context) ([]model.OrderWithUserAndProduct, error) {
	return o.joined(ctx, nil)
}

func (o *mongoOrders) ListByUser(ctx context.Context, userID int) ([]model.OrderWithUserAndProduct, error) {
	return o.joined(ctx, bson.M{"userId": userID})
}

func (o *mongoOrders) Get(ctx context.Context, id int) (*model.OrderWithUserAndProduct, error) {
	rows, err := o.joined(ctx, bson.M{"id": id})
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return &rows[0], nil
}

func (o *mongoOrders) GetByNumber(ctx context.Context, orderNumber string) (*model.Order, error) {
	return o.rows.findOne(ctx, bson.M{"orderNumber": orderNumber})
}

func (o *mongoOrders) Create(ctx context.Context, order model.Order) (*model.Order, error) {
	return o.rows.Create(ctx, order)
}

func (o *mongoOrders) Update(ctx context.Context, id int, p model.Patch) (*model.Order, error) {
	return o.rows.Update(ctx, id, p)
}

func (o *mongoOrders) Delete(ctx context.Context, id int) (bool, error) {
	return o.rows.Delete(ctx, id)
}

// ---------- dashboard aggregates ----------

type mongoDashboard struct {
	store    *MongoStore
	stats    *mongoRepo[model.DashboardStats]
	revenue  *mongoRepo[model.RevenueData]
	activity *mongoRepo[model.ActivityData]
}

func (d *mongoDashboard) Stats(ctx context.Context) (*model.DashboardStats, error) {
	return mongoReadOrSeed(ctx, d.stats, model.DefaultDashboardStats(d.store.now()))
}

func (d *mongoDashboard) Activity(ctx context.Context) (*model.ActivityData, error) {
	return mongoReadOrSeed(ctx, d.activity, model.DefaultActivityData(d.store.now()))
}

func (d *mongoDashboard) Revenue(ctx context.Context) ([]model.RevenueData, error) {
	rows, err := d.revenue.List(ctx)
	if err != nil || len(rows) > 0 {
		return rows, err
	}
	defaults := model.DefaultRevenueData(d.store.now())
	docs := make([]any, len(defaults))
	for i, r := range defaults {
		docs[i] = r
	}
	_, err = d.revenue.coll().InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err != nil && !isCollision(err) {
		return nil, fmt.Errorf("seed %s: %w", model.KindRevenueData, err)
	}
	return d.revenue.List(ctx)
}

// UpdateStats upserts the singleton: fields in p are set, the remaining
// default fields are only written when the document is created.
func (d *mongoDashboard) UpdateStats(ctx context.Context, p model.Patch) (*model.DashboardStats, error) {
	update, err := statsUpdate(p, d.store.now())
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", model.KindDashboardStats, err)
	}
	_, err = d.stats.coll().UpdateOne(ctx, bson.M{}, update, options.Update().SetUpsert(true))
	if err != nil {
		return nil, fmt.Errorf("upsert %s: %w", model.KindDashboardStats, err)
	}
	return d.stats.findOne(ctx, bson.M{})
}

// statsUpdate builds the upsert document for the stats singleton. A field
// never appears in both $set and $setOnInsert.
func statsUpdate(p model.Patch, now time.Time) (bson.M, error) {
	set, err := normalizePatch[model.DashboardStats](p.Clean(model.KindDashboardStats, now))
	if err != nil {
		return nil, err
	}
	onInsert, err := toBSONDoc(model.DefaultDashboardStats(now))
	if err != nil {
		return nil, err
	}
	for k := range set {
		delete(onInsert, k)
	}
	update := bson.M{"$setOnInsert": onInsert}
	if len(set) > 0 {
		update["$set"] = set
	}
	return update, nil
}

// mongoReadOrSeed returns the singleton document, inserting def first if
// the collection is empty. Losing an insert race to another process is fine.
func mongoReadOrSeed[T any](ctx context.Context, repo *mongoRepo[T], def T) (*T, error) {
	found, err := repo.findOne(ctx, bson.M{})
	if err != nil || found != nil {
		return found, err
	}
	if _, err := repo.coll().InsertOne(ctx, def); err != nil && !isCollision(err) {
		return nil, fmt.Errorf("seed %s: %w", repo.kind, err)
	}
	found, err = repo.findOne(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("seed %s: record missing after insert", repo.kind)
	}
	return found, nil
}
