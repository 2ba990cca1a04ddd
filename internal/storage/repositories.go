// Package storage provides the catalog and order stores for the shop assistant.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrNotFound = errors.New("record not found")
)

// DB represents a database connection interface.
type DB interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// SQLStore serves catalog and order queries from Postgres or SQLite.
type SQLStore struct {
	db      DB
	dialect Dialect
}

// NewSQLStore creates a store over db using the dialect's placeholders.
func NewSQLStore(db DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect}
}

const productColumns = `
	p.id, p.name, p.brand, p.model, p.engine, p.description, p.year,
	p.price, p.stock, p.image_url, p.created_at,
	COALESCE((SELECT AVG(r.rating) FROM reviews r WHERE r.product_id = p.id), 0),
	(SELECT COUNT(*) FROM reviews r WHERE r.product_id = p.id)
`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row rowScanner) (Product, error) {
	var (
		p                                  Product
		brand, model, engine, desc, imgURL sql.NullString
		year                               sql.NullInt64
		stock                              sql.NullInt64
	)
	err := row.Scan(
		&p.ID, &p.Name, &brand, &model, &engine, &desc, &year,
		&p.Price, &stock, &imgURL, &p.CreatedAt,
		&p.RatingAvg, &p.RatingCount,
	)
	if err != nil {
		return Product{}, err
	}
	p.Brand = brand.String
	p.Model = model.String
	p.Engine = engine.String
	p.Description = desc.String
	p.ImageURL = imgURL.String
	p.Year = int(year.Int64)
	p.Stock = int(stock.Int64)
	return p, nil
}

// QueryProducts returns up to limit products matching filter in the given order.
func (s *SQLStore) QueryProducts(ctx context.Context, filter Predicate, order []Sort, limit int) ([]Product, error) {
	b := &sqlBuilder{dialect: s.dialect}
	where, err := b.where(filter)
	if err != nil {
		return nil, fmt.Errorf("compile filter: %w", err)
	}
	orderClause, err := orderBy(order)
	if err != nil {
		return nil, err
	}

	query := "SELECT " + productColumns + " FROM products p WHERE " + where + orderClause
	if limit > 0 {
		query += " LIMIT " + b.arg(limit)
	}

	rows, err := s.db.QueryContext(ctx, query, b.args...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// GetProduct retrieves a product with its review summary.
func (s *SQLStore) GetProduct(ctx context.Context, id string) (*Product, error) {
	query := "SELECT " + productColumns + " FROM products p WHERE p.id = " + s.dialect.placeholder(1)
	p, err := scanProduct(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}

// GetOrderWithItems retrieves an order and its line items.
func (s *SQLStore) GetOrderWithItems(ctx context.Context, id string) (*Order, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, status, payment_status, created_at
		FROM orders WHERE id = %s
	`, s.dialect.placeholder(1))

	order := &Order{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&order.ID, &order.UserID, &order.Status, &order.PaymentStatus, &order.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}

	itemsQuery := fmt.Sprintf(`
		SELECT oi.product_id, COALESCE(p.name, ''), oi.quantity, oi.unit_price
		FROM order_items oi
		LEFT JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = %s
		ORDER BY oi.line_no ASC
	`, s.dialect.placeholder(1))

	rows, err := s.db.QueryContext(ctx, itemsQuery, id)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ProductID, &it.Name, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		order.Items = append(order.Items, it)
	}
	return order, rows.Err()
}

// ListOrdersForUser returns a user's orders, newest first. Items are not loaded.
func (s *SQLStore) ListOrdersForUser(ctx context.Context, userID string, limit int) ([]Order, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, status, payment_status, created_at
		FROM orders WHERE user_id = %s
		ORDER BY created_at DESC
		LIMIT %s
	`, s.dialect.placeholder(1), s.dialect.placeholder(2))

	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.Status, &o.PaymentStatus, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// FindUserByEmail looks a user up by email, case-insensitively.
func (s *SQLStore) FindUserByEmail(ctx context.Context, email string) (*UserRef, error) {
	query := "SELECT id, email FROM users WHERE LOWER(email) = " + s.dialect.placeholder(1)
	ref := &UserRef{}
	err := s.db.QueryRowContext(ctx, query, strings.ToLower(email)).Scan(&ref.ID, &ref.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return ref, nil
}

// CreateUser inserts a user.
func (s *SQLStore) CreateUser(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = RoleCustomer
	}
	query := fmt.Sprintf("INSERT INTO users (id, email, name, role) VALUES (%s)", s.placeholders(4))
	_, err := s.db.ExecContext(ctx, query, u.ID, strings.ToLower(u.Email), u.Name, string(u.Role))
	return err
}

// CreateProduct inserts a product.
func (s *SQLStore) CreateProduct(ctx context.Context, p *Product) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	query := fmt.Sprintf(`
		INSERT INTO products (id, name, brand, model, engine, description, year, price, stock, image_url, created_at)
		VALUES (%s)
	`, s.placeholders(11))
	_, err := s.db.ExecContext(ctx, query,
		p.ID, p.Name, nullString(p.Brand), nullString(p.Model), nullString(p.Engine),
		nullString(p.Description), nullInt(p.Year), p.Price, p.Stock, nullString(p.ImageURL), p.CreatedAt,
	)
	return err
}

// CreateOrder inserts an order and its items.
func (s *SQLStore) CreateOrder(ctx context.Context, o *Order) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	query := fmt.Sprintf(`
		INSERT INTO orders (id, user_id, status, payment_status, created_at)
		VALUES (%s)
	`, s.placeholders(5))
	if _, err := s.db.ExecContext(ctx, query,
		o.ID, o.UserID, string(o.Status), string(o.PaymentStatus), o.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	itemQuery := fmt.Sprintf(`
		INSERT INTO order_items (order_id, line_no, product_id, quantity, unit_price)
		VALUES (%s)
	`, s.placeholders(5))
	for i, it := range o.Items {
		if _, err := s.db.ExecContext(ctx, itemQuery, o.ID, i, it.ProductID, it.Quantity, it.UnitPrice); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	return nil
}

// CreateReview inserts a product review.
func (s *SQLStore) CreateReview(ctx context.Context, r *Review) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	query := fmt.Sprintf(`
		INSERT INTO reviews (id, product_id, user_id, rating, comment)
		VALUES (%s)
	`, s.placeholders(5))
	_, err := s.db.ExecContext(ctx, query, r.ID, r.ProductID, nullString(r.UserID), r.Rating, nullString(r.Comment))
	return err
}

func (s *SQLStore) placeholders(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = s.dialect.placeholder(i + 1)
	}
	return strings.Join(parts, ", ")
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

func nullInt(v int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(v), Valid: v != 0}
}
