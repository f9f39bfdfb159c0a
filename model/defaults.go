package model

import "time"

// Doc is a record in its document form: JSON/BSON field names to values.
type Doc = map[string]any

// defaults holds, per kind, the value every optional field takes when a
// create payload leaves it absent, null or empty. A nil default means the
// field is stored as null.
var defaults = map[Kind]Doc{
	KindUser: {
		"role":          RoleCustomer,
		"walletBalance": "0.00",
		"isActive":      true,
	},
	KindProduct: {
		"description": nil,
		"isAvailable": true,
	},
	KindOrder: {
		"status": OrderPending,
	},
	KindLocation: {
		"description": nil,
		"isActive":    true,
	},
	KindCompany: {
		"registrationNumber": nil,
		"phone":              nil,
		"address":            nil,
		"locationId":         nil,
		"isActive":           true,
	},
	KindStore: {
		"companyId":  nil,
		"locationId": nil,
		"phone":      nil,
		"isActive":   true,
	},
	KindStoreManager: {
		"isActive": true,
	},
	KindMenu: {
		"description": nil,
		"isAvailable": true,
	},
	KindTransaction: {
		"customerId":  nil,
		"description": nil,
		"status":      StatusCompleted,
	},
	KindWalletTopup: {
		"bonusAmount": "0.00",
		"expiresAt":   nil,
		"rollover":    false,
		"status":      StatusCompleted,
	},
}

// ApplyDefaults fills the optional fields of doc that are absent, null or
// the empty string with the documented default for kind.
func ApplyDefaults(kind Kind, doc Doc) {
	for field, def := range defaults[kind] {
		v, ok := doc[field]
		if !ok || v == nil || v == "" {
			doc[field] = def
		}
	}
}

// Patch is a partial update: field name to new value. Fields are replaced
// wholesale, nested values are not merged.
type Patch map[string]any

// Clean returns a copy of p without the fields a caller may never set, with
// updatedAt stamped to now when kind tracks it.
func (p Patch) Clean(kind Kind, now time.Time) Patch {
	out := make(Patch, len(p)+1)
	for k, v := range p {
		switch k {
		case "id", "_id", "createdAt", "updatedAt":
			continue
		}
		out[k] = v
	}
	if kind.TracksUpdatedAt() {
		out["updatedAt"] = now
	}
	return out
}
