package model

import "time"

var fixtureTime = time.Date(2024, time.January, 15, 9, 0, 0, 0, time.UTC)

// DefaultDashboardStats is the stats record materialized on first read.
func DefaultDashboardStats(now time.Time) DashboardStats {
	return DashboardStats{
		ID:             1,
		TotalRevenue:   "47281.00",
		ActiveUsers:    2847,
		TotalOrders:    1293,
		ConversionRate: "3.24",
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// DefaultRevenueData is the week of revenue materialized on first read.
func DefaultRevenueData(now time.Time) []RevenueData {
	days := []struct{ date, revenue string }{
		{"Mon", "4200.00"},
		{"Tue", "3800.00"},
		{"Wed", "5100.00"},
		{"Thu", "4600.00"},
		{"Fri", "6200.00"},
		{"Sat", "7800.00"},
		{"Sun", "5900.00"},
	}
	out := make([]RevenueData, len(days))
	for i, d := range days {
		out[i] = RevenueData{ID: i + 1, Date: d.date, Revenue: d.revenue, CreatedAt: now}
	}
	return out
}

// DefaultActivityData is the activity snapshot materialized on first read.
func DefaultActivityData(now time.Time) ActivityData {
	return ActivityData{
		ID:                1,
		PageViews:         12543,
		UniqueVisitors:    3421,
		BounceRate:        "42.30",
		AvgSessionSeconds: 204,
		CreatedAt:         now,
	}
}

// Fixtures is the data the in-memory store is seeded with.
type Fixtures struct {
	Users     []User
	Products  []Product
	Orders    []Order
	Locations []Location
	Stats     DashboardStats
	Revenue   []RevenueData
	Activity  ActivityData
}

// SeedFixtures returns a fresh copy of the deterministic seed data.
func SeedFixtures() Fixtures {
	t := fixtureTime
	return Fixtures{
		Users: []User{
			{ID: 1, Username: "admin", Email: "admin@example.com", FullName: "Alex Morgan", Role: RoleAdmin, WalletBalance: "0.00", IsActive: Bool(true), CreatedAt: t},
			{ID: 2, Username: "jsmith", Email: "jane.smith@example.com", FullName: "Jane Smith", Role: RoleManager, WalletBalance: "150.00", IsActive: Bool(true), CreatedAt: t},
			{ID: 3, Username: "bwong", Email: "ben.wong@example.com", FullName: "Ben Wong", Role: RoleStaff, WalletBalance: "25.50", IsActive: Bool(true), CreatedAt: t},
			{ID: 4, Username: "cdiaz", Email: "carla.diaz@example.com", FullName: "Carla Diaz", Role: RoleCustomer, WalletBalance: "80.00", IsActive: Bool(false), CreatedAt: t},
		},
		Products: []Product{
			{ID: 1, Name: "House Blend Coffee", Description: String("Medium roast, 12oz bag"), Price: "14.99", Category: "Beverages", Stock: 120, IsAvailable: Bool(true), CreatedAt: t},
			{ID: 2, Name: "Butter Croissant", Description: nil, Price: "3.50", Category: "Bakery", Stock: 48, IsAvailable: Bool(true), CreatedAt: t},
			{ID: 3, Name: "Franchise Starter Kit", Description: String("Signage, uniforms and POS hardware"), Price: "2499.00", Category: "Equipment", Stock: 5, IsAvailable: Bool(true), CreatedAt: t},
		},
		Orders: []Order{
			{ID: 1, OrderNumber: "#1001", UserID: 4, ProductID: 1, Amount: "14.99", Status: OrderCompleted, CreatedAt: t},
			{ID: 2, OrderNumber: "#1002", UserID: 2, ProductID: 3, Amount: "2499.00", Status: OrderProcessing, CreatedAt: t},
			{ID: 3, OrderNumber: "#1003", UserID: 3, ProductID: 2, Amount: "7.00", Status: OrderPending, CreatedAt: t},
		},
		Locations: []Location{
			{ID: 1, LocationName: "Head Office", LocationType: "Office", Address: "100 Market St", City: "San Francisco", StateProvince: "CA", ZipPostalCode: "94105", Country: "United States of America", Currency: "USD", Description: String("Corporate headquarters"), IsActive: Bool(true), CreatedAt: t, UpdatedAt: t},
			{ID: 2, LocationName: "Downtown Toronto", LocationType: "Retail", Address: "220 King St W", City: "Toronto", StateProvince: "ON", ZipPostalCode: "M5H 1K4", Country: "Canada", Currency: "CAD", IsActive: Bool(true), CreatedAt: t, UpdatedAt: t},
			{ID: 3, LocationName: "Orchard Kiosk", LocationType: "Kiosk", Address: "391 Orchard Rd", City: "Singapore", StateProvince: "Central", ZipPostalCode: "238872", Country: "Singapore", Currency: "SGD", IsActive: Bool(true), CreatedAt: t, UpdatedAt: t},
		},
		Stats:    DefaultDashboardStats(t),
		Revenue:  DefaultRevenueData(t),
		Activity: DefaultActivityData(t),
	}
}
