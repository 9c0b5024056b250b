package persistence

import (
	"context"
	"time"

	"github.com/talkincode/storefront/internal/domain"
	"github.com/talkincode/storefront/internal/localstore"
	"github.com/talkincode/storefront/pkg/common"
)

// client storage keys
const (
	KeyProducts = "products"
	KeyUsers    = "users"
	KeyUser     = "user"
)

// LocalProvider serves adapters over each client's own storage
type LocalProvider struct {
	storage *localstore.Storage
}

func NewLocalProvider(storage *localstore.Storage) *LocalProvider {
	return &LocalProvider{storage: storage}
}

func (p *LocalProvider) ForClient(clientID string) Adapter {
	return &LocalAdapter{client: p.storage.Client(clientID)}
}

// LocalAdapter keeps whole collections as JSON arrays under one key. Every
// write reads the full array, appends and writes it back; two concurrent
// writers of the same client can lose one update.
type LocalAdapter struct {
	client *localstore.Client
}

func (a *LocalAdapter) Name() string {
	return "local"
}

func (a *LocalAdapter) ListUsers(ctx context.Context) ([]domain.User, error) {
	users := []domain.User{}
	if _, err := a.client.GetJSON(KeyUsers, &users); err != nil {
		return nil, err
	}
	for i := range users {
		users[i] = users[i].Public()
	}
	return users, nil
}

// CreateUser appends to the users collection and also replaces the single
// "user" record that Authenticate checks against.
func (a *LocalAdapter) CreateUser(ctx context.Context, user domain.User) (domain.User, error) {
	users := []domain.User{}
	if _, err := a.client.GetJSON(KeyUsers, &users); err != nil {
		return domain.User{}, err
	}
	user.ID = common.UUIDint64()
	user.CreatedAt = time.Now()
	users = append(users, user)
	if err := a.client.SetJSON(KeyUsers, users); err != nil {
		return domain.User{}, err
	}
	if err := a.client.SetJSON(KeyUser, user); err != nil {
		return domain.User{}, err
	}
	return user.Public(), nil
}

// Authenticate compares against the last signed up user only
func (a *LocalAdapter) Authenticate(ctx context.Context, email, password string) (domain.User, error) {
	var user domain.User
	found, err := a.client.GetJSON(KeyUser, &user)
	if err != nil {
		return domain.User{}, err
	}
	if !found || user.Email != email || user.Password != password {
		return domain.User{}, ErrInvalidCredentials
	}
	return user.Public(), nil
}

func (a *LocalAdapter) ListProducts(ctx context.Context) ([]domain.Product, error) {
	products := []domain.Product{}
	if _, err := a.client.GetJSON(KeyProducts, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (a *LocalAdapter) CreateProduct(ctx context.Context, product domain.Product) (domain.Product, error) {
	products := []domain.Product{}
	if _, err := a.client.GetJSON(KeyProducts, &products); err != nil {
		return domain.Product{}, err
	}
	product.ID = common.UUIDint64()
	product.CreatedAt = time.Now()
	products = append(products, product)
	if err := a.client.SetJSON(KeyProducts, products); err != nil {
		return domain.Product{}, err
	}
	return product, nil
}

func (a *LocalAdapter) DeleteProduct(ctx context.Context, id int64) error {
	return ErrUnsupported
}

func (a *LocalAdapter) SupportsDelete() bool {
	return false
}
