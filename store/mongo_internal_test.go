package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/event"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/stevemurr/franchise-admin/model"
)

func TestNormalizePatch(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	set, err := normalizePatch[model.DashboardStats](model.Patch{
		"activeUsers":  json.Number("3000"),
		"totalRevenue": "50000.00",
		"updatedAt":    now,
		"note":         "kept as is",
	})
	require.NoError(t, err)

	assert.EqualValues(t, 3000, set["activeUsers"])
	assert.IsType(t, int32(0), set["activeUsers"])
	assert.Equal(t, "50000.00", set["totalRevenue"])
	assert.Equal(t, primitive.NewDateTimeFromTime(now), set["updatedAt"])
	assert.Equal(t, "kept as is", set["note"])
	assert.Len(t, set, 4)
}

func TestNormalizePatchNullableFields(t *testing.T) {
	set, err := normalizePatch[model.Company](model.Patch{
		"phone":      nil,
		"locationId": json.Number("2"),
	})
	require.NoError(t, err)
	assert.Nil(t, set["phone"])
	assert.EqualValues(t, 2, set["locationId"])
}

func TestNormalizePatchRejectsWrongType(t *testing.T) {
	_, err := normalizePatch[model.DashboardStats](model.Patch{"activeUsers": "lots"})
	assert.Error(t, err)
}

func TestStatsUpdate(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	update, err := statsUpdate(model.Patch{
		"activeUsers": json.Number("3000"),
		"id":          json.Number("9"),
		"createdAt":   "2020-01-01T00:00:00Z",
	}, now)
	require.NoError(t, err)

	set, ok := update["$set"].(bson.M)
	require.True(t, ok, "$set is present")
	onInsert, ok := update["$setOnInsert"].(map[string]any)
	require.True(t, ok, "$setOnInsert is present")

	assert.EqualValues(t, 3000, set["activeUsers"])
	assert.Equal(t, primitive.NewDateTimeFromTime(now), set["updatedAt"])
	assert.NotContains(t, set, "id")
	assert.NotContains(t, set, "createdAt")

	assert.Equal(t, "47281.00", onInsert["totalRevenue"])
	assert.EqualValues(t, 1293, onInsert["totalOrders"])
	assert.Equal(t, "3.24", onInsert["conversionRate"])
	assert.EqualValues(t, 1, onInsert["id"])
	assert.Equal(t, primitive.NewDateTimeFromTime(now), onInsert["createdAt"])

	for k := range set {
		assert.NotContains(t, onInsert, k, "%s is written by one operator only", k)
	}
}

func commandNames(events []*event.CommandStartedEvent) []string {
	names := make([]string, 0, len(events))
	for _, e := range events {
		names = append(names, e.CommandName)
	}
	return names
}

func lookupInt(t testing.TB, raw bson.Raw, path ...string) int64 {
	t.Helper()
	v, ok := raw.Lookup(path...).AsInt64OK()
	require.True(t, ok, "%v is an integer", path)
	return v
}

func TestMongoNextID(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()
	ns := mtest.TestDb + "." + string(model.KindProduct)

	mt.Run("primed from document count", func(mt *mtest.T) {
		s := newMongoStore(mt.Client, mt.DB)
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{{Key: "_id", Value: int32(1)}, {Key: "n", Value: int32(3)}}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{{Key: "_id", Value: "products"}, {Key: "seq", Value: int32(4)}}}),
		)

		id, err := s.nextID(ctx, model.KindProduct)
		require.NoError(mt, err)
		assert.Equal(mt, 4, id)

		events := mt.GetAllStartedEvents()
		require.Equal(mt, []string{"find", "aggregate", "update", "findAndModify"}, commandNames(events))
		assert.Equal(mt, int64(3), lookupInt(mt, events[2].Command, "updates", "0", "u", "$max", "seq"))
		assert.True(mt, events[2].Command.Lookup("updates", "0", "upsert").Boolean())
		assert.Equal(mt, "products", events[3].Command.Lookup("query", "_id").StringValue())
		assert.Equal(mt, int64(1), lookupInt(mt, events[3].Command, "update", "$inc", "seq"))
		assert.True(mt, events[3].Command.Lookup("upsert").Boolean())

		// Priming happens once per collection.
		mt.ClearEvents()
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{{Key: "_id", Value: "products"}, {Key: "seq", Value: int32(5)}}}),
		)
		id, err = s.nextID(ctx, model.KindProduct)
		require.NoError(mt, err)
		assert.Equal(mt, 5, id)
		assert.Equal(mt, []string{"findAndModify"}, commandNames(mt.GetAllStartedEvents()))
	})

	mt.Run("primed from highest id", func(mt *mtest.T) {
		s := newMongoStore(mt.Client, mt.DB)
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{{Key: "id", Value: int32(7)}}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{{Key: "_id", Value: "products"}, {Key: "seq", Value: int32(8)}}}),
		)

		id, err := s.nextID(ctx, model.KindProduct)
		require.NoError(mt, err)
		assert.Equal(mt, 8, id)

		events := mt.GetAllStartedEvents()
		require.Equal(mt, []string{"find", "update", "findAndModify"}, commandNames(events))
		assert.Equal(mt, int64(-1), lookupInt(mt, events[0].Command, "sort", "id"))
		assert.Equal(mt, int64(7), lookupInt(mt, events[1].Command, "updates", "0", "u", "$max", "seq"))
	})
}

func TestMongoCreate(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()
	ns := mtest.TestDb + "." + string(model.KindProduct)
	counter := func(seq int32) bson.D {
		return mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{{Key: "_id", Value: "products"}, {Key: "seq", Value: seq}}})
	}

	mt.Run("assigns id and defaults", func(mt *mtest.T) {
		s := newMongoStore(mt.Client, mt.DB)
		stored := bson.D{
			{Key: "id", Value: int32(3)},
			{Key: "name", Value: "Latte"},
			{Key: "description", Value: nil},
			{Key: "price", Value: "4.50"},
			{Key: "category", Value: "Coffee"},
			{Key: "stock", Value: int32(10)},
			{Key: "isAvailable", Value: true},
			{Key: "createdAt", Value: primitive.NewDateTimeFromTime(time.Now())},
		}
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{{Key: "id", Value: int32(2)}}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
			counter(3),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, stored),
		)

		got, err := s.Products().Create(ctx, model.Product{ID: 99, Name: "Latte", Price: "4.50", Category: "Coffee", Stock: 10})
		require.NoError(mt, err)
		require.NotNil(mt, got)
		assert.Equal(mt, 3, got.ID)
		assert.Nil(mt, got.Description)
		require.NotNil(mt, got.IsAvailable)
		assert.True(mt, *got.IsAvailable)

		events := mt.GetAllStartedEvents()
		require.Equal(mt, []string{"find", "update", "findAndModify", "insert", "find"}, commandNames(events))
		doc := events[3].Command.Lookup("documents", "0").Document()
		assert.Equal(mt, int64(3), lookupInt(mt, doc, "id"), "the caller's id is replaced")
		assert.Equal(mt, bson.TypeNull, doc.Lookup("description").Type)
		assert.True(mt, doc.Lookup("isAvailable").Boolean())
		assert.Equal(mt, bson.TypeDateTime, doc.Lookup("createdAt").Type)
		assert.Equal(mt, int64(3), lookupInt(mt, events[4].Command, "filter", "id"))
	})

	mt.Run("duplicate id is a collision", func(mt *mtest.T) {
		s := newMongoStore(mt.Client, mt.DB)
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{{Key: "id", Value: int32(2)}}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
			counter(3),
			mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "E11000 duplicate key error"}),
		)

		_, err := s.Products().Create(ctx, model.Product{Name: "Latte", Price: "4.50", Category: "Coffee"})
		assert.ErrorIs(mt, err, model.ErrIdentityCollision)
	})
}

func TestMongoOrderJoin(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()
	ns := mtest.TestDb + "." + string(model.KindOrder)

	order := func(id, userID int32, withUser bool) bson.D {
		d := bson.D{
			{Key: "id", Value: id},
			{Key: "orderNumber", Value: "#1"},
			{Key: "userId", Value: userID},
			{Key: "productId", Value: int32(1)},
			{Key: "amount", Value: "10.00"},
			{Key: "status", Value: "pending"},
			{Key: "product", Value: bson.D{{Key: "id", Value: int32(1)}, {Key: "name", Value: "Latte"}}},
		}
		if withUser {
			d = append(d, bson.E{Key: "user", Value: bson.D{
				{Key: "id", Value: userID},
				{Key: "username", Value: "alice"},
				{Key: "fullName", Value: "Alice Smith"},
			}})
		}
		return d
	}

	mt.Run("missing user becomes placeholder", func(mt *mtest.T) {
		s := newMongoStore(mt.Client, mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, order(1, 1, true), order(2, 999, false)))

		rows, err := s.Orders().List(ctx)
		require.NoError(mt, err)
		require.Len(mt, rows, 2)
		assert.Equal(mt, "alice", rows[0].User.Username)
		assert.Equal(mt, "Latte", rows[0].Product.Name)
		assert.Equal(mt, model.UnknownUser(999), rows[1].User)
		assert.Equal(mt, 2, rows[1].ID)

		events := mt.GetAllStartedEvents()
		require.Equal(mt, []string{"aggregate"}, commandNames(events))
		pipeline := events[0].Command
		assert.Equal(mt, int64(1), lookupInt(mt, pipeline, "pipeline", "0", "$sort", "id"))
		assert.Equal(mt, "users", pipeline.Lookup("pipeline", "1", "$lookup", "from").StringValue())
		assert.Equal(mt, "userId", pipeline.Lookup("pipeline", "1", "$lookup", "localField").StringValue())
		assert.Equal(mt, "id", pipeline.Lookup("pipeline", "1", "$lookup", "foreignField").StringValue())
		assert.True(mt, pipeline.Lookup("pipeline", "2", "$unwind", "preserveNullAndEmptyArrays").Boolean())
		assert.Equal(mt, "products", pipeline.Lookup("pipeline", "3", "$lookup", "from").StringValue())
	})

	mt.Run("list by user matches first", func(mt *mtest.T) {
		s := newMongoStore(mt.Client, mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, order(2, 999, false)))

		rows, err := s.Orders().ListByUser(ctx, 999)
		require.NoError(mt, err)
		require.Len(mt, rows, 1)
		assert.Equal(mt, "Unknown User", rows[0].User.FullName)

		events := mt.GetAllStartedEvents()
		require.Len(mt, events, 1)
		assert.Equal(mt, int64(999), lookupInt(mt, events[0].Command, "pipeline", "0", "$match", "userId"))
	})
}

func TestMongoStatsSeededOnce(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()
	ns := mtest.TestDb + "." + string(model.KindDashboardStats)
	stored := bson.D{
		{Key: "id", Value: int32(1)},
		{Key: "totalRevenue", Value: "47281.00"},
		{Key: "activeUsers", Value: int32(2847)},
		{Key: "totalOrders", Value: int32(1293)},
		{Key: "conversionRate", Value: "3.24"},
	}

	mt.Run("stats", func(mt *mtest.T) {
		s := newMongoStore(mt.Client, mt.DB)
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, stored),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, stored),
		)

		first, err := s.Dashboard().Stats(ctx)
		require.NoError(mt, err)
		second, err := s.Dashboard().Stats(ctx)
		require.NoError(mt, err)
		assert.Equal(mt, first, second)
		assert.Equal(mt, "47281.00", first.TotalRevenue)
		assert.Equal(mt, 2847, first.ActiveUsers)

		events := mt.GetAllStartedEvents()
		assert.Equal(mt, []string{"find", "insert", "find", "find"}, commandNames(events))
		assert.Equal(mt, "3.24", events[1].Command.Lookup("documents", "0", "conversionRate").StringValue())
	})

	mt.Run("concurrent seeder wins", func(mt *mtest.T) {
		s := newMongoStore(mt.Client, mt.DB)
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch),
			mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "E11000 duplicate key error"}),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, stored),
		)

		got, err := s.Dashboard().Stats(ctx)
		require.NoError(mt, err)
		assert.Equal(mt, 1293, got.TotalOrders)
	})
}
