package nlu

import "strings"

// Kind names an intent variant.
type Kind string

// Intent kinds, in classification priority order.
const (
	KindOrderByID     Kind = "order.byId"
	KindOrderMine     Kind = "order.mine"
	KindOrderByEmail  Kind = "order.byEmail"
	KindProductRating Kind = "product.rating"
	KindProductSearch Kind = "product.search"
	KindSmalltalk     Kind = "smalltalk"
)

// Intent is the classified purpose of a single message. The concrete type is
// one of ProductSearch, OrderByID, OrderMine, OrderByEmail, ProductRating or
// Smalltalk.
type Intent interface {
	Kind() Kind
}

// SearchCriteria drives the retrieval cascade.
type SearchCriteria struct {
	Tokens   []string `json:"tokens"`
	Grades   []string `json:"grades"`
	Brand    string   `json:"brand,omitempty"`
	Model    string   `json:"model,omitempty"`
	Engine   string   `json:"engine,omitempty"`
	Year     int      `json:"year,omitempty"`
	InStock  *bool    `json:"inStock,omitempty"`
	PriceMin *float64 `json:"priceMin,omitempty"`
	PriceMax *float64 `json:"priceMax,omitempty"`
	Limit    int      `json:"limit,omitempty"`
}

// Vehicle is the shopper's car as known by the storefront. It is sent next to
// the message and narrows product searches to matching parts.
type Vehicle struct {
	Model  string `json:"model,omitempty"`
	Engine string `json:"engine,omitempty"`
	Year   int    `json:"year,omitempty"`
}

// IsZero reports whether no vehicle field is set.
func (v Vehicle) IsZero() bool {
	return v == Vehicle{}
}

// Apply fills the criteria fields the message itself left empty. Model and
// engine are lowercased and folded but keep their punctuation ("1.6 16v").
func (v Vehicle) Apply(c SearchCriteria) SearchCriteria {
	if c.Model == "" {
		c.Model = strings.TrimSpace(fold(v.Model))
	}
	if c.Engine == "" {
		c.Engine = strings.TrimSpace(fold(v.Engine))
	}
	if c.Year == 0 {
		c.Year = v.Year
	}
	return c
}

// ProductSearch asks for catalog items.
type ProductSearch struct {
	Criteria SearchCriteria `json:"criteria"`
}

// OrderByID asks for one order.
type OrderByID struct {
	ID string `json:"id"`
}

// OrderMine asks for the caller's recent orders. Limit is zero when the
// message did not name one.
type OrderMine struct {
	Limit int `json:"limit,omitempty"`
}

// OrderByEmail asks for the orders of another account.
type OrderByEmail struct {
	Email string `json:"email"`
}

// ProductRating asks for a product's review summary.
type ProductRating struct {
	ProductID string `json:"productId"`
}

// Smalltalk is anything else.
type Smalltalk struct{}

func (ProductSearch) Kind() Kind { return KindProductSearch }
func (OrderByID) Kind() Kind     { return KindOrderByID }
func (OrderMine) Kind() Kind     { return KindOrderMine }
func (OrderByEmail) Kind() Kind  { return KindOrderByEmail }
func (ProductRating) Kind() Kind { return KindProductRating }
func (Smalltalk) Kind() Kind     { return KindSmalltalk }
