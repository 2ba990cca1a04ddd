package storage

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Fixtures is a seed data set loaded from YAML.
type Fixtures struct {
	Users    []User    `yaml:"users"`
	Products []Product `yaml:"products"`
	Orders   []Order   `yaml:"orders"`
	Reviews  []Review  `yaml:"reviews"`
}

// Writer is implemented by stores that accept seed data.
type Writer interface {
	CreateUser(ctx context.Context, u *User) error
	CreateProduct(ctx context.Context, p *Product) error
	CreateOrder(ctx context.Context, o *Order) error
	CreateReview(ctx context.Context, r *Review) error
}

// LoadFixtures reads a fixtures file.
func LoadFixtures(path string) (*Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	var fx Fixtures
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}
	return &fx, nil
}

// Seed writes fixtures in dependency order: users, products, orders, reviews.
func Seed(ctx context.Context, w Writer, fx *Fixtures) error {
	for i := range fx.Users {
		if err := w.CreateUser(ctx, &fx.Users[i]); err != nil {
			return fmt.Errorf("seed user %s: %w", fx.Users[i].Email, err)
		}
	}
	for i := range fx.Products {
		if err := w.CreateProduct(ctx, &fx.Products[i]); err != nil {
			return fmt.Errorf("seed product %s: %w", fx.Products[i].Name, err)
		}
	}
	for i := range fx.Orders {
		if err := w.CreateOrder(ctx, &fx.Orders[i]); err != nil {
			return fmt.Errorf("seed order %s: %w", fx.Orders[i].ID, err)
		}
	}
	for i := range fx.Reviews {
		if err := w.CreateReview(ctx, &fx.Reviews[i]); err != nil {
			return fmt.Errorf("seed review for %s: %w", fx.Reviews[i].ProductID, err)
		}
	}
	return nil
}

// Len is the number of records Seed writes.
func (fx *Fixtures) Len() int {
	return len(fx.Users) + len(fx.Products) + len(fx.Orders) + len(fx.Reviews)
}

// ProgressWriter calls OnRecord after every successful write.
type ProgressWriter struct {
	Writer
	OnRecord func()
}

func (p ProgressWriter) tick(err error) error {
	if err == nil && p.OnRecord != nil {
		p.OnRecord()
	}
	return err
}

func (p ProgressWriter) CreateUser(ctx context.Context, u *User) error {
	return p.tick(p.Writer.CreateUser(ctx, u))
}

func (p ProgressWriter) CreateProduct(ctx context.Context, pr *Product) error {
	return p.tick(p.Writer.CreateProduct(ctx, pr))
}

func (p ProgressWriter) CreateOrder(ctx context.Context, o *Order) error {
	return p.tick(p.Writer.CreateOrder(ctx, o))
}

func (p ProgressWriter) CreateReview(ctx context.Context, r *Review) error {
	return p.tick(p.Writer.CreateReview(ctx, r))
}
