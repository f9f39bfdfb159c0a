package schema

import (
	"fmt"
	"maps"

	"github.com/stevemurr/franchise-admin/model"
)

// Money matches the decimal strings amounts are stored as: an optional sign,
// whole units and at most two decimal places.
const Money = `^-?\d+(\.\d{1,2})?$`

const timestamp = `^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}`

func str() map[string]any           { return map[string]any{"type": "string", "minLength": 1} }
func nullableStr() map[string]any   { return map[string]any{"type": []any{"string", "null"}} }
func integer() map[string]any       { return map[string]any{"type": "integer", "minimum": 1} }
func nullableInt() map[string]any   { return map[string]any{"type": []any{"integer", "null"}, "minimum": 1} }
func count() map[string]any         { return map[string]any{"type": "integer", "minimum": 0} }
func money() map[string]any         { return map[string]any{"type": "string", "pattern": Money} }
func nullableBool() map[string]any  { return map[string]any{"type": []any{"boolean", "null"}} }
func nullableMoney() map[string]any { return map[string]any{"type": []any{"string", "null"}, "pattern": Money} }

func oneOf(values []string) map[string]any {
	enum := make([]any, len(values))
	for i, v := range values {
		enum[i] = v
	}
	return map[string]any{"type": "string", "enum": enum}
}

func nullableOneOf(values []string) map[string]any {
	s := oneOf(values)
	s["type"] = []any{"string", "null"}
	s["enum"] = append(s["enum"].([]any), nil)
	return s
}

type entitySchema struct {
	properties map[string]any
	required   []string
}

// Fields whose value is assigned by the store. Payloads may carry them; they
// are ignored.
var managed = map[string]any{
	"id":        map[string]any{"type": []any{"integer", "null"}},
	"createdAt": map[string]any{"type": []any{"string", "null"}},
	"updatedAt": map[string]any{"type": []any{"string", "null"}},
}

var entities = map[model.Kind]entitySchema{
	model.KindUser: {
		properties: map[string]any{
			"username":      str(),
			"email":         str(),
			"fullName":      str(),
			"role":          nullableOneOf(model.Roles),
			"walletBalance": nullableMoney(),
			"isActive":      nullableBool(),
		},
		required: []string{"username", "email", "fullName"},
	},
	model.KindProduct: {
		properties: map[string]any{
			"name":        str(),
			"description": nullableStr(),
			"price":       money(),
			"category":    str(),
			"stock":       count(),
			"isAvailable": nullableBool(),
		},
		required: []string{"name", "price", "category", "stock"},
	},
	model.KindOrder: {
		properties: map[string]any{
			"orderNumber": str(),
			"userId":      integer(),
			"productId":   integer(),
			"amount":      money(),
			"status":      nullableOneOf(model.OrderStatuses),
		},
		required: []string{"orderNumber", "userId", "productId", "amount"},
	},
	model.KindLocation: {
		properties: map[string]any{
			"locationName":  str(),
			"locationType":  oneOf(model.LocationTypes),
			"address":       str(),
			"city":          str(),
			"stateProvince": str(),
			"zipPostalCode": str(),
			"country":       oneOf(model.Countries),
			"currency":      oneOf(model.Currencies),
			"description":   nullableStr(),
			"isActive":      nullableBool(),
		},
		required: []string{"locationName", "locationType", "address", "city", "stateProvince", "zipPostalCode", "country", "currency"},
	},
	model.KindCompany: {
		properties: map[string]any{
			"companyName":        str(),
			"registrationNumber": nullableStr(),
			"email":              str(),
			"phone":              nullableStr(),
			"address":            nullableStr(),
			"locationId":         nullableInt(),
			"isActive":           nullableBool(),
		},
		required: []string{"companyName", "email"},
	},
	model.KindStore: {
		properties: map[string]any{
			"storeName":  str(),
			"companyId":  nullableInt(),
			"locationId": nullableInt(),
			"address":    str(),
			"phone":      nullableStr(),
			"isActive":   nullableBool(),
		},
		required: []string{"storeName", "address"},
	},
	model.KindStoreManager: {
		properties: map[string]any{
			"userId":   integer(),
			"storeId":  integer(),
			"isActive": nullableBool(),
		},
		required: []string{"userId", "storeId"},
	},
	model.KindMenu: {
		properties: map[string]any{
			"storeId":     integer(),
			"itemName":    str(),
			"description": nullableStr(),
			"price":       money(),
			"category":    str(),
			"isAvailable": nullableBool(),
		},
		required: []string{"storeId", "itemName", "price", "category"},
	},
	model.KindTransaction: {
		properties: map[string]any{
			"storeId":       integer(),
			"customerId":    nullableInt(),
			"amount":        money(),
			"paymentMethod": oneOf(model.PaymentMethods),
			"status":        nullableOneOf(model.PaymentStatuses),
			"description":   nullableStr(),
		},
		required: []string{"storeId", "amount", "paymentMethod"},
	},
	model.KindWalletTopup: {
		properties: map[string]any{
			"userId":      integer(),
			"amount":      money(),
			"bonusAmount": nullableMoney(),
			"expiresAt":   map[string]any{"type": []any{"string", "null"}, "pattern": timestamp},
			"rollover":    nullableBool(),
			"status":      nullableOneOf(model.PaymentStatuses),
		},
		required: []string{"userId", "amount"},
	},
	model.KindDashboardStats: {
		properties: map[string]any{
			"totalRevenue":   money(),
			"activeUsers":    count(),
			"totalOrders":    count(),
			"conversionRate": money(),
		},
		required: []string{"totalRevenue", "activeUsers", "totalOrders", "conversionRate"},
	},
	model.KindRevenueData: {
		properties: map[string]any{
			"date":    str(),
			"revenue": money(),
		},
		required: []string{"date", "revenue"},
	},
	model.KindActivityData: {
		properties: map[string]any{
			"pageViews":         count(),
			"uniqueVisitors":    count(),
			"bounceRate":        money(),
			"avgSessionSeconds": count(),
		},
		required: []string{"pageViews", "uniqueVisitors", "bounceRate", "avgSessionSeconds"},
	},
}

// ForInsert returns the schema a create payload of kind must satisfy.
func ForInsert(kind model.Kind) (map[string]any, error) {
	e, ok := entities[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", model.ErrUnknownKind, kind)
	}
	required := make([]any, len(e.required))
	for i, r := range e.required {
		required[i] = r
	}
	return map[string]any{
		"type":                 "object",
		"properties":           withManaged(e.properties),
		"required":             required,
		"additionalProperties": false,
	}, nil
}

// ForPatch returns the schema a partial update of kind must satisfy: the
// insert schema with nothing required.
func ForPatch(kind model.Kind) (map[string]any, error) {
	e, ok := entities[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", model.ErrUnknownKind, kind)
	}
	return map[string]any{
		"type":                 "object",
		"properties":           withManaged(e.properties),
		"additionalProperties": false,
	}, nil
}

func withManaged(props map[string]any) map[string]any {
	out := maps.Clone(props)
	maps.Copy(out, managed)
	return out
}

// ValidateInsert checks a create payload for kind.
func ValidateInsert(kind model.Kind, doc map[string]any) error {
	s, err := ForInsert(kind)
	if err != nil {
		return err
	}
	return Validate(s, doc)
}

// ValidatePatch checks a partial update for kind.
func ValidatePatch(kind model.Kind, doc map[string]any) error {
	s, err := ForPatch(kind)
	if err != nil {
		return err
	}
	return Validate(s, doc)
}
