package model

import "time"

// Money amounts are decimal strings ("10.00") throughout so no rounding
// happens between the API and the database. Nullable fields are pointers and
// are stored as an explicit null.

type User struct {
	ID            int       `json:"id" bson:"id"`
	Username      string    `json:"username" bson:"username"`
	Email         string    `json:"email" bson:"email"`
	FullName      string    `json:"fullName" bson:"fullName"`
	Role          string    `json:"role" bson:"role"`
	WalletBalance string    `json:"walletBalance" bson:"walletBalance"`
	IsActive      *bool     `json:"isActive" bson:"isActive"`
	CreatedAt     time.Time `json:"createdAt" bson:"createdAt"`
}

type Product struct {
	ID          int       `json:"id" bson:"id"`
	Name        string    `json:"name" bson:"name"`
	Description *string   `json:"description" bson:"description"`
	Price       string    `json:"price" bson:"price"`
	Category    string    `json:"category" bson:"category"`
	Stock       int       `json:"stock" bson:"stock"`
	IsAvailable *bool     `json:"isAvailable" bson:"isAvailable"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
}

type Order struct {
	ID          int       `json:"id" bson:"id"`
	OrderNumber string    `json:"orderNumber" bson:"orderNumber"`
	UserID      int       `json:"userId" bson:"userId"`
	ProductID   int       `json:"productId" bson:"productId"`
	Amount      string    `json:"amount" bson:"amount"`
	Status      string    `json:"status" bson:"status"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
}

// OrderWithUserAndProduct is an order joined with the user and product it
// references. It is computed on read and never stored.
type OrderWithUserAndProduct struct {
	Order
	User    User    `json:"user"`
	Product Product `json:"product"`
}

type Location struct {
	ID            int       `json:"id" bson:"id"`
	LocationName  string    `json:"locationName" bson:"locationName"`
	LocationType  string    `json:"locationType" bson:"locationType"`
	Address       string    `json:"address" bson:"address"`
	City          string    `json:"city" bson:"city"`
	StateProvince string    `json:"stateProvince" bson:"stateProvince"`
	ZipPostalCode string    `json:"zipPostalCode" bson:"zipPostalCode"`
	Country       string    `json:"country" bson:"country"`
	Currency      string    `json:"currency" bson:"currency"`
	Description   *string   `json:"description" bson:"description"`
	IsActive      *bool     `json:"isActive" bson:"isActive"`
	CreatedAt     time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt" bson:"updatedAt"`
}

type Company struct {
	ID                 int       `json:"id" bson:"id"`
	CompanyName        string    `json:"companyName" bson:"companyName"`
	RegistrationNumber *string   `json:"registrationNumber" bson:"registrationNumber"`
	Email              string    `json:"email" bson:"email"`
	Phone              *string   `json:"phone" bson:"phone"`
	Address            *string   `json:"address" bson:"address"`
	LocationID         *int      `json:"locationId" bson:"locationId"`
	IsActive           *bool     `json:"isActive" bson:"isActive"`
	CreatedAt          time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt" bson:"updatedAt"`
}

type Store struct {
	ID         int       `json:"id" bson:"id"`
	StoreName  string    `json:"storeName" bson:"storeName"`
	CompanyID  *int      `json:"companyId" bson:"companyId"`
	LocationID *int      `json:"locationId" bson:"locationId"`
	Address    string    `json:"address" bson:"address"`
	Phone      *string   `json:"phone" bson:"phone"`
	IsActive   *bool     `json:"isActive" bson:"isActive"`
	CreatedAt  time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt" bson:"updatedAt"`
}

type StoreManager struct {
	ID        int       `json:"id" bson:"id"`
	UserID    int       `json:"userId" bson:"userId"`
	StoreID   int       `json:"storeId" bson:"storeId"`
	IsActive  *bool     `json:"isActive" bson:"isActive"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

type Menu struct {
	ID          int       `json:"id" bson:"id"`
	StoreID     int       `json:"storeId" bson:"storeId"`
	ItemName    string    `json:"itemName" bson:"itemName"`
	Description *string   `json:"description" bson:"description"`
	Price       string    `json:"price" bson:"price"`
	Category    string    `json:"category" bson:"category"`
	IsAvailable *bool     `json:"isAvailable" bson:"isAvailable"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updatedAt"`
}

type Transaction struct {
	ID            int       `json:"id" bson:"id"`
	StoreID       int       `json:"storeId" bson:"storeId"`
	CustomerID    *int      `json:"customerId" bson:"customerId"`
	Amount        string    `json:"amount" bson:"amount"`
	PaymentMethod string    `json:"paymentMethod" bson:"paymentMethod"`
	Status        string    `json:"status" bson:"status"`
	Description   *string   `json:"description" bson:"description"`
	CreatedAt     time.Time `json:"createdAt" bson:"createdAt"`
}

type WalletTopup struct {
	ID          int        `json:"id" bson:"id"`
	UserID      int        `json:"userId" bson:"userId"`
	Amount      string     `json:"amount" bson:"amount"`
	BonusAmount string     `json:"bonusAmount" bson:"bonusAmount"`
	ExpiresAt   *time.Time `json:"expiresAt" bson:"expiresAt"`
	Rollover    bool       `json:"rollover" bson:"rollover"`
	Status      string     `json:"status" bson:"status"`
	CreatedAt   time.Time  `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt" bson:"updatedAt"`
}

// DashboardStats is a singleton; it always carries id 1.
type DashboardStats struct {
	ID             int       `json:"id" bson:"id"`
	TotalRevenue   string    `json:"totalRevenue" bson:"totalRevenue"`
	ActiveUsers    int       `json:"activeUsers" bson:"activeUsers"`
	TotalOrders    int       `json:"totalOrders" bson:"totalOrders"`
	ConversionRate string    `json:"conversionRate" bson:"conversionRate"`
	CreatedAt      time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt" bson:"updatedAt"`
}

type RevenueData struct {
	ID        int       `json:"id" bson:"id"`
	Date      string    `json:"date" bson:"date"`
	Revenue   string    `json:"revenue" bson:"revenue"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

type ActivityData struct {
	ID                int       `json:"id" bson:"id"`
	PageViews         int       `json:"pageViews" bson:"pageViews"`
	UniqueVisitors    int       `json:"uniqueVisitors" bson:"uniqueVisitors"`
	BounceRate        string    `json:"bounceRate" bson:"bounceRate"`
	AvgSessionSeconds int       `json:"avgSessionSeconds" bson:"avgSessionSeconds"`
	CreatedAt         time.Time `json:"createdAt" bson:"createdAt"`
}

// UnknownUser stands in for a user an order references but that does not
// exist.
func UnknownUser(id int) User {
	return User{
		ID:            id,
		Username:      "unknown",
		FullName:      "Unknown User",
		Role:          RoleCustomer,
		WalletBalance: "0.00",
		IsActive:      Bool(false),
	}
}

// UnknownProduct stands in for a product an order references but that does
// not exist.
func UnknownProduct(id int) Product {
	return Product{
		ID:          id,
		Name:        "Unknown Product",
		Price:       "0.00",
		IsAvailable: Bool(false),
	}
}

// JoinOrder builds the read view for o. A nil user or product is replaced by
// its placeholder.
func JoinOrder(o Order, u *User, p *Product) OrderWithUserAndProduct {
	view := OrderWithUserAndProduct{Order: o}
	if u != nil {
		view.User = *u
	} else {
		view.User = UnknownUser(o.UserID)
	}
	if p != nil {
		view.Product = *p
	} else {
		view.Product = UnknownProduct(o.ProductID)
	}
	return view
}

func Bool(b bool) *bool       { return &b }
func String(s string) *string { return &s }
func Int(i int) *int          { return &i }
