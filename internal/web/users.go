package web

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/talkincode/storefront/internal/listview"
	"go.uber.org/zap"
)

func (h *Handler) userList(c echo.Context) error {
	p := h.newPage(c, "All Users")
	p.Query = c.QueryParam("q")
	records, err := h.adapter(c).ListUsers(c.Request().Context())
	if err != nil {
		zap.L().Error("list users failed", zap.String("client", clientID(c)), zap.Error(err))
		p.LoadError = "Failed to load users"
	}
	p.Users = listview.Users(records, p.Query).Visible()
	return h.render(c, http.StatusOK, "user_list", p)
}

func (h *Handler) userExport(c echo.Context) error {
	records, err := h.adapter(c).ListUsers(c.Request().Context())
	if err != nil {
		zap.L().Error("export users failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadGateway, "Failed to load users")
	}
	c.Response().Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="users.csv"`)
	c.Response().WriteHeader(http.StatusOK)
	return listview.Users(records, c.QueryParam("q")).WriteCSV(c.Response())
}
