package storage

import (
	"time"
)

// OrderStatus is the fulfilment state of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// PaymentStatus is the payment state of an order.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusApproved PaymentStatus = "approved"
	PaymentStatusRejected PaymentStatus = "rejected"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// Role is a user's account role.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// Product is a catalog item. Optional text columns come back as empty
// strings and a missing year as zero.
type Product struct {
	ID          string    `json:"id" yaml:"id"`
	Name        string    `json:"name" yaml:"name"`
	Brand       string    `json:"brand,omitempty" yaml:"brand"`
	Model       string    `json:"model,omitempty" yaml:"model"`
	Engine      string    `json:"engine,omitempty" yaml:"engine"`
	Description string    `json:"description,omitempty" yaml:"description"`
	Year        int       `json:"year,omitempty" yaml:"year"`
	Price       float64   `json:"price" yaml:"price"`
	Stock       int       `json:"stock" yaml:"stock"`
	ImageURL    string    `json:"imageUrl,omitempty" yaml:"image_url"`
	RatingAvg   float64   `json:"ratingAvg" yaml:"-"`
	RatingCount int       `json:"ratingCount" yaml:"-"`
	CreatedAt   time.Time `json:"createdAt" yaml:"-"`
}

// User is an account that can own orders.
type User struct {
	ID    string `yaml:"id"`
	Email string `yaml:"email"`
	Name  string `yaml:"name"`
	Role  Role   `yaml:"role"`
}

// UserRef is the minimal user view returned by email lookups.
type UserRef struct {
	ID    string
	Email string
}

// Order is a purchase with its line items.
type Order struct {
	ID            string        `yaml:"id"`
	UserID        string        `yaml:"user_id"`
	Status        OrderStatus   `yaml:"status"`
	PaymentStatus PaymentStatus `yaml:"payment_status"`
	CreatedAt     time.Time     `yaml:"created_at"`
	Items         []OrderItem   `yaml:"items"`
}

// OrderItem is one line of an order.
type OrderItem struct {
	ProductID string  `yaml:"product_id"`
	Name      string  `yaml:"name"`
	Quantity  int     `yaml:"quantity"`
	UnitPrice float64 `yaml:"unit_price"`
}

// Total sums quantity times unit price over the order's items.
func (o *Order) Total() float64 {
	var total float64
	for _, it := range o.Items {
		total += float64(it.Quantity) * it.UnitPrice
	}
	return total
}

// Review is a product rating left by a user.
type Review struct {
	ID        string `yaml:"id"`
	ProductID string `yaml:"product_id"`
	UserID    string `yaml:"user_id"`
	Rating    int    `yaml:"rating"`
	Comment   string `yaml:"comment"`
}
