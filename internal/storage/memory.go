package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process catalog and order store. It evaluates the
// same predicates as SQLStore and is used by tests and the CLI's dry runs.
type MemoryStore struct {
	mu       sync.RWMutex
	products map[string]Product
	users    map[string]User
	orders   map[string]Order
	reviews  []Review
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products: make(map[string]Product),
		users:    make(map[string]User),
		orders:   make(map[string]Order),
	}
}

// QueryProducts returns up to limit products matching filter in the given order.
func (s *MemoryStore) QueryProducts(_ context.Context, filter Predicate, order []Sort, limit int) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Product
	for _, p := range s.products {
		if Match(filter, p) {
			out = append(out, s.withRatings(p))
		}
	}
	// deterministic base order before the requested sort
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	SortProducts(out, order)

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// GetProduct retrieves a product with its review summary.
func (s *MemoryStore) GetProduct(_ context.Context, id string) (*Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	p = s.withRatings(p)
	return &p, nil
}

func (s *MemoryStore) withRatings(p Product) Product {
	var sum, n int
	for _, r := range s.reviews {
		if r.ProductID == p.ID {
			sum += r.Rating
			n++
		}
	}
	p.RatingCount = n
	p.RatingAvg = 0
	if n > 0 {
		p.RatingAvg = float64(sum) / float64(n)
	}
	return p
}

// GetOrderWithItems retrieves an order and its line items.
func (s *MemoryStore) GetOrderWithItems(_ context.Context, id string) (*Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	o.Items = append([]OrderItem(nil), o.Items...)
	for i := range o.Items {
		if p, ok := s.products[o.Items[i].ProductID]; ok {
			o.Items[i].Name = p.Name
		}
	}
	return &o, nil
}

// ListOrdersForUser returns a user's orders, newest first. Items are not loaded.
func (s *MemoryStore) ListOrdersForUser(_ context.Context, userID string, limit int) ([]Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Order
	for _, o := range s.orders {
		if o.UserID == userID {
			o.Items = nil
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// FindUserByEmail looks a user up by email, case-insensitively.
func (s *MemoryStore) FindUserByEmail(_ context.Context, email string) (*UserRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return &UserRef{ID: u.ID, Email: u.Email}, nil
		}
	}
	return nil, ErrNotFound
}

// CreateUser inserts a user.
func (s *MemoryStore) CreateUser(_ context.Context, u *User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = RoleCustomer
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = *u
	return nil
}

// CreateProduct inserts a product.
func (s *MemoryStore) CreateProduct(_ context.Context, p *Product) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = *p
	return nil
}

// CreateOrder inserts an order and its items.
func (s *MemoryStore) CreateOrder(_ context.Context, o *Order) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *o
	stored.Items = append([]OrderItem(nil), o.Items...)
	s.orders[o.ID] = stored
	return nil
}

// CreateReview inserts a product review.
func (s *MemoryStore) CreateReview(_ context.Context, r *Review) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reviews = append(s.reviews, *r)
	return nil
}
