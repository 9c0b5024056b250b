package web

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/talkincode/storefront/internal/domain"
	"github.com/talkincode/storefront/internal/form"
	"github.com/talkincode/storefront/internal/persistence"
	"github.com/talkincode/storefront/internal/validate"
	"go.uber.org/zap"
)

func (h *Handler) home(c echo.Context) error {
	return h.render(c, http.StatusOK, "home", h.newPage(c, "Welcome to My Website"))
}

func (h *Handler) loginPage(c echo.Context) error {
	p := h.newPage(c, "Login")
	p.Form = viewOf(form.New(validate.LoginSchema))
	return h.render(c, http.StatusOK, "login", p)
}

// login is the only place that sets the logged-in flag
func (h *Handler) login(c echo.Context) error {
	ctrl := form.Bind(validate.LoginSchema, c.Request())
	adapter := h.adapter(c)
	store := h.store(c)

	res := ctrl.Submit(c.Request().Context(), func(ctx context.Context, ctrl *form.Controller) error {
		user, err := adapter.Authenticate(ctx, ctrl.TrimmedValue("email"), ctrl.Value("password"))
		if err != nil {
			return err
		}
		return store.SetLoggedIn(ctx, user.Email)
	})

	p := h.newPage(c, "Login")
	p.Form = viewOf(ctrl)
	switch {
	case res.Invalid():
		return h.render(c, http.StatusUnprocessableEntity, "login", p)
	case res.Failed():
		if errors.Is(res.Err, persistence.ErrInvalidCredentials) {
			return h.render(c, http.StatusUnauthorized, "login", p.addError("Invalid email or password"))
		}
		zap.L().Error("login failed", zap.String("client", clientID(c)), zap.Error(res.Err))
		return h.render(c, http.StatusOK, "login", p.addError("Login failed!"))
	}
	return redirectWithFlash(c, "/", "Login successful!")
}

func (h *Handler) signupPage(c echo.Context) error {
	p := h.newPage(c, "Sign Up")
	p.Form = viewOf(form.New(validate.SignupSchema))
	p.Genders = validate.Genders
	return h.render(c, http.StatusOK, "signup", p)
}

// signup stores the user but leaves the visitor logged out
func (h *Handler) signup(c echo.Context) error {
	ctrl := form.Bind(validate.SignupSchema, c.Request())
	adapter := h.adapter(c)

	res := ctrl.Submit(c.Request().Context(), func(ctx context.Context, ctrl *form.Controller) error {
		_, err := adapter.CreateUser(ctx, domain.User{
			Name:     ctrl.TrimmedValue("name"),
			Email:    ctrl.TrimmedValue("email"),
			Phone:    ctrl.TrimmedValue("phone"),
			Gender:   ctrl.TrimmedValue("gender"),
			Password: ctrl.Value("password"),
		})
		return err
	})

	p := h.newPage(c, "Sign Up")
	p.Form = viewOf(ctrl)
	p.Genders = validate.Genders
	switch {
	case res.Invalid():
		return h.render(c, http.StatusUnprocessableEntity, "signup", p)
	case res.Failed():
		zap.L().Error("signup failed", zap.String("client", clientID(c)), zap.Error(res.Err))
		return h.render(c, http.StatusOK, "signup", p.addError("Sign up failed!"))
	}
	return redirectWithFlash(c, "/login", "Sign up successful!")
}

func (h *Handler) logout(c echo.Context) error {
	if err := h.store(c).Clear(c.Request().Context()); err != nil {
		zap.L().Error("logout failed", zap.String("client", clientID(c)), zap.Error(err))
	}
	return c.Redirect(http.StatusSeeOther, "/")
}
