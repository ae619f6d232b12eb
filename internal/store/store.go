// Package store declares the persistence contract the handlers depend on.
// Backends live in the mongostore and sqlstore subpackages.
package store

import (
	"context"
	"errors"

	"github.com/petermazzocco/go-catalog-api/models"
)

var (
	// ErrNotFound is returned when no document matches.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique constraint is violated.
	ErrDuplicate = errors.New("duplicate record")
	// ErrInvalidID is returned for ids that are not well-formed document ids.
	ErrInvalidID = errors.New("invalid id")
)

type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
}

// ProductFilter selects products by exact category and subcategory match.
// Empty fields do not filter.
type ProductFilter struct {
	Category    string
	Subcategory string
}

type ProductStore interface {
	CreateProduct(ctx context.Context, product *models.Product) error
	ListProducts(ctx context.Context, filter ProductFilter) ([]models.Product, error)
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	// DeleteProduct removes the product and returns the deleted record.
	DeleteProduct(ctx context.Context, id string) (*models.Product, error)
	// AppendFeatures appends to the stored feature list and returns the
	// updated record.
	AppendFeatures(ctx context.Context, id string, features []string) (*models.Product, error)
}

type ImageStore interface {
	CreateImage(ctx context.Context, image *models.Image) error
	ListImages(ctx context.Context) ([]models.Image, error)
	DeleteImage(ctx context.Context, id string) (*models.Image, error)
}

type EnquiryStore interface {
	CreateEnquiry(ctx context.Context, enquiry *models.QuickEnquiry) error
}

// Store is the full persistence service.
type Store interface {
	UserStore
	ProductStore
	ImageStore
	EnquiryStore
	Close(ctx context.Context) error
}
