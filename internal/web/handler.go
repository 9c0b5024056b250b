// Package web serves the storefront pages. Every page is rendered on the
// server from the visitor's session state and the configured persistence
// backend.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/talkincode/storefront/internal/domain"
	"github.com/talkincode/storefront/internal/form"
	"github.com/talkincode/storefront/internal/media"
	"github.com/talkincode/storefront/internal/navbar"
	"github.com/talkincode/storefront/internal/persistence"
	sessionstore "github.com/talkincode/storefront/internal/session"
	"github.com/talkincode/storefront/internal/validate"
	"github.com/talkincode/storefront/internal/webserver"
	"go.uber.org/zap"
)

const defaultMaxUpload = 8 << 20

type Options struct {
	Sessions     sessionstore.Provider
	Adapters     persistence.Provider
	Encoder      *media.Encoder
	Secret       string
	SubmitDelay  time.Duration
	MaxUpload    int64
	PollInterval time.Duration
}

type Handler struct {
	sessions     sessionstore.Provider
	adapters     persistence.Provider
	encoder      *media.Encoder
	guard        *form.Guard
	secret       string
	submitDelay  time.Duration
	maxUpload    int64
	pollInterval time.Duration
}

func NewHandler(opts Options) *Handler {
	if opts.MaxUpload <= 0 {
		opts.MaxUpload = defaultMaxUpload
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	return &Handler{
		sessions:     opts.Sessions,
		adapters:     opts.Adapters,
		encoder:      opts.Encoder,
		guard:        form.NewGuard(),
		secret:       opts.Secret,
		submitDelay:  opts.SubmitDelay,
		maxUpload:    opts.MaxUpload,
		pollInterval: opts.PollInterval,
	}
}

// Register installs the renderer, the cookie session and every page route
func (h *Handler) Register(s *webserver.WebServer) error {
	renderer, err := NewRenderer()
	if err != nil {
		return err
	}
	s.Echo().Renderer = renderer
	s.Use(session.Middleware(sessions.NewCookieStore([]byte(h.secret))), clientIdentity)

	s.GET("/", h.home)
	s.GET("/login", h.loginPage)
	s.POST("/login", h.login)
	s.GET("/signup", h.signupPage)
	s.POST("/signup", h.signup)
	s.POST("/logout", h.logout)

	s.GET("/product", h.productList)
	s.GET("/product/export.csv", h.productExport)
	s.POST("/product/:id/delete", h.productDelete)
	s.GET("/product/form", h.productFormPage)
	s.POST("/product/form", h.productSubmit)

	s.GET("/user", h.userList)
	s.GET("/user/export.csv", h.userExport)

	s.GET("/form", h.demoPage)
	s.POST("/form", h.demoSubmit)

	s.GET("/session/state", h.sessionState)
	s.GET("/session/events", h.sessionEvents)
	return nil
}

// formView is what a template needs to redraw a form
type formView struct {
	Values map[string]string
	Errors validate.Errors
}

func viewOf(c *form.Controller) *formView {
	return &formView{Values: c.Values(), Errors: c.Errors()}
}

// Page is the data handed to every template
type Page struct {
	Title        string
	State        domain.SessionState
	Nav          []navbar.Link
	Success      []string
	Errors       []string
	Form         *formView
	Pending      bool
	Categories   []string
	Genders      []string
	Query        string
	Products     []domain.Product
	Users        []domain.User
	CanDelete    bool
	LoadError    string
	Backend      string
	PollInterval int64
}

func (p *Page) addError(msg string) *Page {
	p.Errors = append(p.Errors, msg)
	return p
}

func (h *Handler) store(c echo.Context) sessionstore.Store {
	return h.sessions.ForClient(clientID(c))
}

func (h *Handler) adapter(c echo.Context) persistence.Adapter {
	return h.adapters.ForClient(clientID(c))
}

func (h *Handler) state(c echo.Context) domain.SessionState {
	st, err := h.store(c).Get(c.Request().Context())
	if err != nil {
		zap.L().Warn("read session state failed", zap.String("client", clientID(c)), zap.Error(err))
		return domain.SessionState{}
	}
	return st
}

func (h *Handler) newPage(c echo.Context, title string) *Page {
	st := h.state(c)
	return &Page{
		Title:        title,
		State:        st,
		Nav:          navbar.Links(st),
		Backend:      h.adapter(c).Name(),
		PollInterval: h.pollInterval.Milliseconds(),
	}
}

// render pulls the queued flashes into the page and writes it
func (h *Handler) render(c echo.Context, status int, name string, p *Page) error {
	p.Success = append(takeFlashes(c, flashSuccess), p.Success...)
	p.Errors = append(takeFlashes(c, flashError), p.Errors...)
	return c.Render(status, name, p)
}

// redirect with a success notification shown on the target page
func redirectWithFlash(c echo.Context, to, msg string) error {
	addFlash(c, flashSuccess, msg)
	return c.Redirect(http.StatusSeeOther, to)
}

// sleepCtx waits d unless ctx ends first
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
