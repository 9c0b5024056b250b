// Package persistence hides where users and products are kept. Pages talk
// to an Adapter and never know whether the records sit in the client's own
// storage or behind the resource server.
package persistence

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/talkincode/storefront/internal/domain"
)

var (
	// ErrInvalidCredentials no stored user matches the given email and password
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrBackend the backend could not be reached or answered with a non-2xx status
	ErrBackend = errors.New("backend request failed")
	// ErrUnsupported the backend does not implement the operation
	ErrUnsupported = errors.New("operation not supported by this backend")
	// ErrNotFound the addressed record does not exist
	ErrNotFound = errors.New("record not found")
)

// Adapter is the storage contract shared by every backend
type Adapter interface {
	Name() string

	ListUsers(ctx context.Context) ([]domain.User, error)
	CreateUser(ctx context.Context, user domain.User) (domain.User, error)
	// Authenticate returns the matching user or ErrInvalidCredentials
	Authenticate(ctx context.Context, email, password string) (domain.User, error)

	ListProducts(ctx context.Context) ([]domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (domain.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	SupportsDelete() bool
}

// Provider returns the Adapter serving one client
type Provider interface {
	ForClient(clientID string) Adapter
}

// BackendError carries the failed request. It matches ErrBackend with errors.Is.
type BackendError struct {
	Method string
	Path   string
	Status int
	Err    error
}

func (e *BackendError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
	}
	return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.Path, e.Status)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

func (e *BackendError) Is(target error) bool {
	return target == ErrBackend
}
