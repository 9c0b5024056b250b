package persistence

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talkincode/storefront/internal/domain"
	"github.com/talkincode/storefront/internal/localstore"
	"github.com/talkincode/storefront/internal/mockapi"
	"github.com/talkincode/storefront/internal/webserver"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newLocal(t *testing.T) (*LocalProvider, *localstore.Storage) {
	t.Helper()
	storage, err := localstore.Open(filepath.Join(t.TempDir(), "storage.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Close() })
	return NewLocalProvider(storage), storage
}

func newREST(t *testing.T) *RESTAdapter {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "mockapi.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(domain.Tables...))
	s := webserver.NewWebServer("127.0.0.1", 0)
	mockapi.Register(s, db)
	ts := httptest.NewServer(s)
	t.Cleanup(ts.Close)
	return NewRESTAdapter(ts.URL, 5*time.Second)
}

var chair = domain.Product{
	ProductName: "Chair",
	Description: "Oak chair",
	Price:       "19.99",
	Category:    "Home",
	ImageURL:    "data:image/png;base64,iVBORw0KGgo=",
}

var alice = domain.User{
	Name:     "Alice",
	Email:    "alice@example.com",
	Phone:    "0123456",
	Gender:   "Female",
	Password: "secret1",
}

func runProductRoundTrip(t *testing.T, a Adapter) {
	ctx := context.Background()
	before, err := a.ListProducts(ctx)
	require.NoError(t, err)

	created, err := a.CreateProduct(ctx, chair)
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	after, err := a.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, after, len(before)+1)
	got := after[len(after)-1]
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, chair.ProductName, got.ProductName)
	assert.Equal(t, chair.Description, got.Description)
	assert.Equal(t, chair.Price, got.Price)
	assert.Equal(t, chair.Category, got.Category)
	assert.Equal(t, chair.ImageURL, got.ImageURL)
}

func runAuthenticate(t *testing.T, a Adapter) {
	ctx := context.Background()
	_, err := a.Authenticate(ctx, alice.Email, alice.Password)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	u, err := a.CreateUser(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, u.Password)

	u, err = a.Authenticate(ctx, alice.Email, alice.Password)
	require.NoError(t, err)
	assert.Equal(t, alice.Name, u.Name)
	assert.Empty(t, u.Password)

	_, err = a.Authenticate(ctx, alice.Email, "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = a.Authenticate(ctx, "other@example.com", alice.Password)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = a.Authenticate(ctx, "", alice.Password)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	users, err := a.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Empty(t, users[0].Password)
}

func TestLocalProductRoundTrip(t *testing.T) {
	p, _ := newLocal(t)
	runProductRoundTrip(t, p.ForClient("c1"))
}

func TestLocalAuthenticate(t *testing.T) {
	p, _ := newLocal(t)
	runAuthenticate(t, p.ForClient("c1"))
}

func TestLocalClientsAreIsolated(t *testing.T) {
	p, _ := newLocal(t)
	ctx := context.Background()
	_, err := p.ForClient("c1").CreateProduct(ctx, chair)
	require.NoError(t, err)

	products, err := p.ForClient("c2").ListProducts(ctx)
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestLocalAuthenticateUsesLastSignup(t *testing.T) {
	p, storage := newLocal(t)
	ctx := context.Background()
	a := p.ForClient("c1")
	_, err := a.CreateUser(ctx, alice)
	require.NoError(t, err)
	bob := alice
	bob.Email = "bob@example.com"
	_, err = a.CreateUser(ctx, bob)
	require.NoError(t, err)

	_, err = a.Authenticate(ctx, alice.Email, alice.Password)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = a.Authenticate(ctx, bob.Email, bob.Password)
	assert.NoError(t, err)

	raw, found, err := storage.Client("c1").GetItem(KeyUser)
	require.NoError(t, err)
	require.True(t, found)
	assert.Contains(t, raw, "bob@example.com")
}

func TestLocalDeleteUnsupported(t *testing.T) {
	p, _ := newLocal(t)
	a := p.ForClient("c1")
	assert.False(t, a.SupportsDelete())
	assert.ErrorIs(t, a.DeleteProduct(context.Background(), 1), ErrUnsupported)
}

func TestLocalCorruptCollection(t *testing.T) {
	p, storage := newLocal(t)
	require.NoError(t, storage.Client("c1").SetItem(KeyProducts, "{not json"))
	_, err := p.ForClient("c1").ListProducts(context.Background())
	assert.Error(t, err)
}

func TestRESTProductRoundTrip(t *testing.T) {
	runProductRoundTrip(t, newREST(t))
}

func TestRESTAuthenticate(t *testing.T) {
	runAuthenticate(t, newREST(t))
}

func TestRESTDeleteProduct(t *testing.T) {
	a := newREST(t)
	ctx := context.Background()
	created, err := a.CreateProduct(ctx, chair)
	require.NoError(t, err)

	require.NoError(t, a.DeleteProduct(ctx, created.ID))
	products, err := a.ListProducts(ctx)
	require.NoError(t, err)
	assert.Empty(t, products)

	err = a.DeleteProduct(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrBackend)
}

func TestRESTBackendFailures(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	a := NewRESTAdapter(ts.URL, time.Second)

	_, err := a.ListProducts(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBackend)
	var be *BackendError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, http.StatusInternalServerError, be.Status)

	// unreachable server
	ts.Close()
	_, err = a.Authenticate(context.Background(), "a@b.com", "secret1")
	assert.ErrorIs(t, err, ErrBackend)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}

func TestRESTRejectedCreate(t *testing.T) {
	a := newREST(t)
	bad := chair
	bad.Price = "abc"
	_, err := a.CreateProduct(context.Background(), bad)
	assert.ErrorIs(t, err, ErrBackend)
}

func TestRESTSharedReadSurvivesCallerCancel(t *testing.T) {
	started := make(chan struct{}, 4)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started <- struct{}{}
		time.Sleep(200 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":1,"productName":"Chair"}]`))
	}))
	t.Cleanup(ts.Close)
	a := NewRESTAdapter(ts.URL, 5*time.Second)

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := a.ListProducts(ctxA)
		errA <- err
	}()
	<-started

	type result struct {
		products []domain.Product
		err      error
	}
	resB := make(chan result, 1)
	go func() {
		products, err := a.ListProducts(context.Background())
		resB <- result{products, err}
	}()
	time.Sleep(50 * time.Millisecond)
	cancelA()

	assert.ErrorIs(t, <-errA, context.Canceled)
	b := <-resB
	require.NoError(t, b.err)
	require.Len(t, b.products, 1)
	assert.Equal(t, "Chair", b.products[0].ProductName)
}
