package web

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talkincode/storefront/internal/domain"
	"github.com/talkincode/storefront/internal/localstore"
	"github.com/talkincode/storefront/internal/media"
	"github.com/talkincode/storefront/internal/mockapi"
	"github.com/talkincode/storefront/internal/persistence"
	"github.com/talkincode/storefront/internal/session"
	"github.com/talkincode/storefront/internal/webserver"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type browser struct {
	t      *testing.T
	base   string
	client *http.Client
}

func newStorefront(t *testing.T, adapters func(*localstore.Storage) persistence.Provider) *browser {
	t.Helper()
	storage, err := localstore.Open(filepath.Join(t.TempDir(), "storage.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Close() })

	enc, err := media.NewEncoder(2, 1<<20)
	require.NoError(t, err)
	t.Cleanup(enc.Release)

	h := NewHandler(Options{
		Sessions: session.NewKVProvider(storage),
		Adapters: adapters(storage),
		Encoder:  enc,
		Secret:   "test-secret",
	})
	s := webserver.NewWebServer("127.0.0.1", 0)
	require.NoError(t, h.Register(s))
	ts := httptest.NewServer(s)
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &browser{
		t:    t,
		base: ts.URL,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func localBackend(storage *localstore.Storage) persistence.Provider {
	return persistence.NewLocalProvider(storage)
}

func restBackend(t *testing.T) func(*localstore.Storage) persistence.Provider {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "mockapi.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(domain.Tables...))
	s := webserver.NewWebServer("127.0.0.1", 0)
	mockapi.Register(s, db)
	ts := httptest.NewServer(s)
	t.Cleanup(ts.Close)
	adapter := persistence.NewRESTAdapter(ts.URL, 5*time.Second)
	return func(*localstore.Storage) persistence.Provider { return adapter }
}

func (b *browser) do(req *http.Request) (int, string, *http.Response) {
	b.t.Helper()
	resp, err := b.client.Do(req)
	require.NoError(b.t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(b.t, err)
	return resp.StatusCode, string(body), resp
}

func (b *browser) get(path string) (int, string) {
	req, err := http.NewRequest(http.MethodGet, b.base+path, nil)
	require.NoError(b.t, err)
	code, body, _ := b.do(req)
	return code, body
}

func (b *browser) post(path string, form url.Values) (int, string, *http.Response) {
	req, err := http.NewRequest(http.MethodPost, b.base+path, strings.NewReader(form.Encode()))
	require.NoError(b.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

func (b *browser) postMultipart(path string, fields map[string]string, file []byte) (int, string, *http.Response) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(b.t, w.WriteField(k, v))
	}
	if file != nil {
		part, err := w.CreateFormFile("productImage", "chair.png")
		require.NoError(b.t, err)
		_, _ = part.Write(file)
	}
	require.NoError(b.t, w.Close())
	req, err := http.NewRequest(http.MethodPost, b.base+path, &buf)
	require.NoError(b.t, err)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return b.do(req)
}

func (b *browser) state() domain.SessionState {
	code, body := b.get("/session/state")
	require.Equal(b.t, http.StatusOK, code)
	var st domain.SessionState
	require.NoError(b.t, jsoniter.UnmarshalFromString(body, &st))
	return st
}

var signupForm = url.Values{
	"name":     {"Alice"},
	"email":    {"alice@example.com"},
	"phone":    {"0123456"},
	"password": {"secret1"},
	"gender":   {"Female"},
}

var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

func productFields(name, price string) map[string]string {
	return map[string]string{
		"productName": name,
		"description": "Solid oak",
		"price":       price,
		"category":    "Home",
	}
}

func TestHomeForVisitor(t *testing.T) {
	b := newStorefront(t, localBackend)
	code, body := b.get("/")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "Welcome to My Website")
	assert.Contains(t, body, `href="/login"`)
	assert.Contains(t, body, `href="/signup"`)
	assert.NotContains(t, body, "Sell a Product")
	assert.NotContains(t, body, "Logout")
}

func TestSignupThenLogin(t *testing.T) {
	b := newStorefront(t, localBackend)

	code, _, resp := b.post("/signup", signupForm)
	require.Equal(t, http.StatusSeeOther, code)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
	assert.False(t, b.state().LoggedIn, "signup must not log the visitor in")

	_, body := b.get("/login")
	assert.Contains(t, body, "Sign up successful!")

	code, _, resp = b.post("/login", url.Values{"email": {"alice@example.com"}, "password": {"secret1"}})
	require.Equal(t, http.StatusSeeOther, code)
	assert.Equal(t, "/", resp.Header.Get("Location"))
	assert.Equal(t, domain.SessionState{LoggedIn: true, Email: "alice@example.com"}, b.state())

	_, body = b.get("/")
	assert.Contains(t, body, "Login successful!")
	assert.Contains(t, body, "Sell a Product")
	assert.Contains(t, body, "Logout")
	assert.NotContains(t, body, `href="/signup"`)

	// flashes are shown once
	_, body = b.get("/")
	assert.NotContains(t, body, "Login successful!")
}

func TestLoginMismatchKeepsFlagUnset(t *testing.T) {
	b := newStorefront(t, localBackend)
	_, _, _ = b.post("/signup", signupForm)

	code, body, _ := b.post("/login", url.Values{"email": {"alice@example.com"}, "password": {"wrong-pass"}})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Contains(t, body, "Invalid email or password")
	assert.Contains(t, body, `value="alice@example.com"`)
	assert.False(t, b.state().LoggedIn)
}

func TestLoginWithoutSignup(t *testing.T) {
	b := newStorefront(t, localBackend)
	code, body, _ := b.post("/login", url.Values{"email": {"alice@example.com"}, "password": {"secret1"}})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Contains(t, body, "Invalid email or password")
}

func TestSignupValidation(t *testing.T) {
	b := newStorefront(t, localBackend)
	form := url.Values{
		"name":     {"   "},
		"email":    {"alice@example.com"},
		"phone":    {"12-34"},
		"password": {"12345"},
		"gender":   {"Female"},
	}
	code, body, _ := b.post("/signup", form)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Contains(t, body, "Name is required")
	assert.Contains(t, body, "Phone must be numbers only")
	assert.Contains(t, body, "Password must be at least 6 characters")
	assert.Contains(t, body, `value="alice@example.com"`)
	assert.Contains(t, body, `<option value="Female" selected>`)
}

func TestLogout(t *testing.T) {
	b := newStorefront(t, localBackend)
	_, _, _ = b.post("/signup", signupForm)
	_, _, _ = b.post("/login", url.Values{"email": {"alice@example.com"}, "password": {"secret1"}})
	require.True(t, b.state().LoggedIn)

	code, _, resp := b.post("/logout", nil)
	require.Equal(t, http.StatusSeeOther, code)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	assert.Equal(t, domain.SessionState{}, b.state())
	_, body := b.get("/")
	assert.Contains(t, body, `href="/login"`)
	assert.NotContains(t, body, "Logout")
}

func TestClientsDoNotShareSession(t *testing.T) {
	b := newStorefront(t, localBackend)
	_, _, _ = b.post("/signup", signupForm)
	_, _, _ = b.post("/login", url.Values{"email": {"alice@example.com"}, "password": {"secret1"}})

	other := *b
	jar, _ := cookiejar.New(nil)
	other.client = &http.Client{Jar: jar}
	assert.False(t, other.state().LoggedIn)
}

func runProductSubmitAndList(t *testing.T, b *browser) {
	code, _, resp := b.postMultipart("/product/form", productFields("Chair", "19.99"), pngBytes)
	require.Equal(t, http.StatusSeeOther, code)
	assert.Equal(t, "/product/form", resp.Header.Get("Location"))
	_, body := b.get("/product/form")
	assert.Contains(t, body, "Product submitted successfully!")

	code, _, _ = b.postMultipart("/product/form", productFields("Table", "120"), pngBytes)
	require.Equal(t, http.StatusSeeOther, code)

	_, body = b.get("/product")
	assert.Contains(t, body, "Chair")
	assert.Contains(t, body, "Table")
	assert.Contains(t, body, `src="data:image/png;base64,`)

	_, body = b.get("/product?q=cha")
	assert.Contains(t, body, "Chair")
	assert.NotContains(t, body, "<b>Table</b>")

	// the search text is matched as typed, trailing space included
	_, body = b.get("/product?q=cha%20")
	assert.NotContains(t, body, "<b>Chair</b>")
	assert.Contains(t, body, "No products found.")
}

func TestProductSubmitLocal(t *testing.T) {
	runProductSubmitAndList(t, newStorefront(t, localBackend))
}

func TestProductSubmitREST(t *testing.T) {
	runProductSubmitAndList(t, newStorefront(t, restBackend(t)))
}

func TestProductSubmitValidation(t *testing.T) {
	b := newStorefront(t, localBackend)
	code, body, _ := b.postMultipart("/product/form", productFields("Chair", "abc"), nil)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Contains(t, body, "Price must be a number.")
	assert.Contains(t, body, "Product Image is required.")
	assert.Contains(t, body, `value="Chair"`)

	_, body = b.get("/product")
	assert.Contains(t, body, "No products found.")
}

func TestProductSubmitBackendFailure(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(down.Close)
	adapter := persistence.NewRESTAdapter(down.URL, time.Second)
	b := newStorefront(t, func(*localstore.Storage) persistence.Provider { return adapter })

	code, body, _ := b.postMultipart("/product/form", productFields("Chair", "19.99"), pngBytes)
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "Failed to submit product")
	assert.Contains(t, body, `value="Chair"`)

	_, body = b.get("/product")
	assert.Contains(t, body, "Failed to load products")
}

func TestProductDeleteREST(t *testing.T) {
	b := newStorefront(t, restBackend(t))
	_, _, _ = b.postMultipart("/product/form", productFields("Chair", "19.99"), pngBytes)
	_, _, _ = b.postMultipart("/product/form", productFields("Table", "120"), pngBytes)

	code, body := b.get("/product/export.csv?q=chair")
	require.Equal(t, http.StatusOK, code)
	lines := strings.Split(strings.TrimSpace(body), "\n")
	require.Len(t, lines, 2)
	id := strings.Split(lines[1], ",")[0]
	_, err := strconv.ParseInt(id, 10, 64)
	require.NoError(t, err)

	code, body, _ = b.post("/product/"+id+"/delete", url.Values{})
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "Product deleted")
	assert.NotContains(t, body, "<b>Chair</b>")
	assert.Contains(t, body, "<b>Table</b>")

	code, body, _ = b.post("/product/"+id+"/delete", url.Values{})
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "Failed to delete product")
}

func TestProductDeleteLocalUnsupported(t *testing.T) {
	b := newStorefront(t, localBackend)
	_, _, _ = b.postMultipart("/product/form", productFields("Chair", "19.99"), pngBytes)

	_, body := b.get("/product")
	assert.NotContains(t, body, "Delete</button>")

	code, body, _ := b.post("/product/1/delete", url.Values{})
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "Failed to delete product")
	assert.Contains(t, body, "<b>Chair</b>")
}

func TestUserListREST(t *testing.T) {
	b := newStorefront(t, restBackend(t))
	_, _, _ = b.post("/signup", signupForm)
	bob := url.Values{}
	for k, v := range signupForm {
		bob[k] = v
	}
	bob.Set("name", "Bob")
	bob.Set("email", "bob@shop.io")
	_, _, _ = b.post("/signup", bob)

	_, body := b.get("/user?q=SHOP")
	assert.Contains(t, body, "bob@shop.io")
	assert.NotContains(t, body, "alice@example.com")

	code, body := b.get("/user/export.csv")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "alice@example.com")
	assert.NotContains(t, body, "secret1")
}

func TestDemoForm(t *testing.T) {
	b := newStorefront(t, localBackend)
	code, body, _ := b.post("/form", url.Values{"name": {" "}, "email": {"nope"}})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Contains(t, body, "Name is required.")
	assert.Contains(t, body, "Email is not valid.")

	code, body, _ = b.post("/form", url.Values{"name": {"Jane"}, "email": {"jane@x"}})
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "Form submitted!")
	assert.NotContains(t, body, `value="Jane"`)
}

func TestSessionEventsStream(t *testing.T) {
	b := newStorefront(t, localBackend)
	_, _, _ = b.post("/signup", signupForm)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.base+"/session/events", nil)
	require.NoError(t, err)
	resp, err := b.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := make(chan domain.SessionState, 4)
	go func() {
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			line := sc.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			var st domain.SessionState
			if jsoniter.UnmarshalFromString(strings.TrimPrefix(line, "data: "), &st) == nil {
				events <- st
			}
		}
		close(events)
	}()

	next := func() domain.SessionState {
		select {
		case st := <-events:
			return st
		case <-time.After(3 * time.Second):
			t.Fatal("no session event")
			return domain.SessionState{}
		}
	}
	assert.False(t, next().LoggedIn)

	_, _, _ = b.post("/login", url.Values{"email": {"alice@example.com"}, "password": {"secret1"}})
	for st := next(); !st.LoggedIn; st = next() {
	}
}
