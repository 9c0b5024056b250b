package persistence

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/guonaihong/gout"
	"github.com/guonaihong/gout/dataflow"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/talkincode/storefront/internal/domain"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// RESTAdapter talks to the mock resource server. All clients share the same
// collections, so ForClient returns the adapter itself. Concurrent list
// reads of one collection share a single request.
type RESTAdapter struct {
	baseURL string
	client  *http.Client
	reads   singleflight.Group
}

func NewRESTAdapter(baseURL string, timeout time.Duration) *RESTAdapter {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RESTAdapter{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   timeout,
		},
	}
}

func (a *RESTAdapter) ForClient(string) Adapter {
	return a
}

func (a *RESTAdapter) Name() string {
	return "rest"
}

func (a *RESTAdapter) SupportsDelete() bool {
	return true
}

// call runs one request and decodes a 2xx body into out when out is not nil
func (a *RESTAdapter) call(ctx context.Context, method, path string, prepare func(*dataflow.DataFlow), out interface{}) error {
	var (
		body []byte
		code int
		df   *dataflow.DataFlow
	)
	url := a.baseURL + path
	g := gout.New(a.client)
	switch method {
	case http.MethodGet:
		df = g.GET(url)
	case http.MethodPost:
		df = g.POST(url)
	case http.MethodDelete:
		df = g.DELETE(url)
	default:
		return fmt.Errorf("unsupported method %s", method)
	}
	if prepare != nil {
		prepare(df)
	}
	err := df.WithContext(ctx).BindBody(&body).Code(&code).Do()
	if err != nil {
		zap.L().Error("resource server request failed",
			zap.String("method", method), zap.String("path", path), zap.Error(err))
		return &BackendError{Method: method, Path: path, Err: err}
	}
	if code == http.StatusNotFound {
		return errors.Wrapf(ErrNotFound, "%s %s", method, path)
	}
	if code < 200 || code > 299 {
		zap.L().Error("resource server returned an error status",
			zap.String("method", method), zap.String("path", path), zap.Int("status", code))
		return &BackendError{Method: method, Path: path, Status: code}
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &BackendError{Method: method, Path: path, Status: code, Err: errors.Wrap(err, "decode response")}
	}
	return nil
}

// shared joins the in-flight read of key. The request itself is detached
// from any single caller and bounded by the client timeout; each caller
// stops waiting when its own ctx ends.
func (a *RESTAdapter) shared(ctx context.Context, key string, fn func(context.Context) (interface{}, error)) (interface{}, error) {
	detached := context.WithoutCancel(ctx)
	ch := a.reads.DoChan(key, func() (interface{}, error) {
		return fn(detached)
	})
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (a *RESTAdapter) ListUsers(ctx context.Context) ([]domain.User, error) {
	v, err := a.shared(ctx, "users", func(ctx context.Context) (interface{}, error) {
		users := []domain.User{}
		err := a.call(ctx, http.MethodGet, "/users", nil, &users)
		return users, err
	})
	if err != nil {
		return nil, err
	}
	return append([]domain.User{}, v.([]domain.User)...), nil
}

func (a *RESTAdapter) CreateUser(ctx context.Context, user domain.User) (domain.User, error) {
	var created domain.User
	err := a.call(ctx, http.MethodPost, "/users", func(df *dataflow.DataFlow) {
		df.SetJSON(user)
	}, &created)
	if err != nil {
		return domain.User{}, err
	}
	return created.Public(), nil
}

// Authenticate queries GET /users?email=&password= and treats an empty
// result as a credential mismatch
func (a *RESTAdapter) Authenticate(ctx context.Context, email, password string) (domain.User, error) {
	users := []domain.User{}
	err := a.call(ctx, http.MethodGet, "/users", func(df *dataflow.DataFlow) {
		df.SetQuery(gout.H{"email": email, "password": password})
	}, &users)
	if err != nil {
		return domain.User{}, err
	}
	if len(users) == 0 {
		return domain.User{}, ErrInvalidCredentials
	}
	return users[0].Public(), nil
}

func (a *RESTAdapter) ListProducts(ctx context.Context) ([]domain.Product, error) {
	v, err := a.shared(ctx, "products", func(ctx context.Context) (interface{}, error) {
		products := []domain.Product{}
		err := a.call(ctx, http.MethodGet, "/products", nil, &products)
		return products, err
	})
	if err != nil {
		return nil, err
	}
	return append([]domain.Product{}, v.([]domain.Product)...), nil
}

func (a *RESTAdapter) CreateProduct(ctx context.Context, product domain.Product) (domain.Product, error) {
	var created domain.Product
	err := a.call(ctx, http.MethodPost, "/products", func(df *dataflow.DataFlow) {
		df.SetJSON(product)
	}, &created)
	return created, err
}

func (a *RESTAdapter) DeleteProduct(ctx context.Context, id int64) error {
	return a.call(ctx, http.MethodDelete, fmt.Sprintf("/products/%d", id), nil, nil)
}
