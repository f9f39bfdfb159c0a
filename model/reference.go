package model

// Shared reference values. Schemas validate against these lists so the
// enumerations exist in one place.

const (
	RoleAdmin    = "admin"
	RoleManager  = "manager"
	RoleStaff    = "staff"
	RoleCustomer = "customer"

	OrderPending    = "pending"
	OrderProcessing = "processing"
	OrderCompleted  = "completed"
	OrderCancelled  = "cancelled"

	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusRefunded  = "refunded"
)

var Roles = []string{RoleAdmin, RoleManager, RoleStaff, RoleCustomer}

var OrderStatuses = []string{OrderPending, OrderProcessing, OrderCompleted, OrderCancelled}

var PaymentStatuses = []string{StatusPending, StatusCompleted, StatusFailed, StatusRefunded}

var PaymentMethods = []string{"cash", "card", "wallet"}

var LocationTypes = []string{"Office", "Retail", "Warehouse", "Kiosk", "Franchise"}

var Currencies = []string{"USD", "CAD", "EUR", "GBP", "AUD", "JPY", "SGD", "MYR", "PHP", "IDR"}

var Countries = []string{
	"United States of America",
	"Canada",
	"United Kingdom",
	"Germany",
	"France",
	"Australia",
	"Japan",
	"Singapore",
	"Malaysia",
	"Philippines",
	"Indonesia",
}
