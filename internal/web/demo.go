package web

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/talkincode/storefront/internal/form"
	"github.com/talkincode/storefront/internal/validate"
	"go.uber.org/zap"
)

// the standalone form page validates and acknowledges, nothing is stored

func (h *Handler) demoPage(c echo.Context) error {
	p := h.newPage(c, "Simple Form")
	p.Form = viewOf(form.New(validate.DemoSchema))
	return h.render(c, http.StatusOK, "demo_form", p)
}

func (h *Handler) demoSubmit(c echo.Context) error {
	ctrl := form.Bind(validate.DemoSchema, c.Request())
	res := ctrl.Submit(c.Request().Context(), func(ctx context.Context, ctrl *form.Controller) error {
		zap.L().Info("form submitted",
			zap.String("name", ctrl.TrimmedValue("name")),
			zap.String("email", ctrl.TrimmedValue("email")))
		return nil
	})

	p := h.newPage(c, "Simple Form")
	p.Form = viewOf(ctrl)
	if res.Invalid() {
		return h.render(c, http.StatusUnprocessableEntity, "demo_form", p)
	}
	p.Success = append(p.Success, "Form submitted!")
	return h.render(c, http.StatusOK, "demo_form", p)
}
