// Package mockapi is the json-server style resource server behind the rest
// persistence adapter. Collections live in a gorm database; list and get
// endpoints answer with bare JSON, failures with an error envelope.
package mockapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/talkincode/storefront/internal/webserver"
	"gorm.io/gorm"
)

const dbContextKey = "mockapi.db"

type errorResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// Register installs every resource route on s, all handlers share db
func Register(s *webserver.WebServer, db *gorm.DB) {
	s.Use(withDB(db))
	registerUserRoutes(s)
	registerProductRoutes(s)
	s.GET("/health", health)
}

func withDB(db *gorm.DB) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(dbContextKey, db.WithContext(c.Request().Context()))
			return next(c)
		}
	}
}

// GetDB returns the request scoped database handle
func GetDB(c echo.Context) *gorm.DB {
	return c.Get(dbContextKey).(*gorm.DB)
}

func ok(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, data)
}

func created(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusCreated, data)
}

func fail(c echo.Context, status int, code, message string, details interface{}) error {
	return c.JSON(status, errorResponse{Code: code, Message: message, Details: details})
}

// likeFilter adds a case-insensitive substring match over columns
func likeFilter(db *gorm.DB, q string, columns ...string) *gorm.DB {
	conds := make([]string, 0, len(columns))
	args := make([]interface{}, 0, len(columns))
	if strings.EqualFold(db.Name(), "postgres") {
		for _, col := range columns {
			conds = append(conds, col+" ILIKE ?")
			args = append(args, "%"+q+"%")
		}
	} else {
		for _, col := range columns {
			conds = append(conds, "LOWER("+col+") LIKE ?")
			args = append(args, "%"+strings.ToLower(q)+"%")
		}
	}
	return db.Where(strings.Join(conds, " OR "), args...)
}

func health(c echo.Context) error {
	sqlDB, err := GetDB(c).DB()
	if err != nil {
		return fail(c, http.StatusServiceUnavailable, "DATABASE_ERROR", "Database unavailable", err.Error())
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return fail(c, http.StatusServiceUnavailable, "DATABASE_ERROR", "Database unavailable", err.Error())
	}
	return ok(c, map[string]string{"status": "ok"})
}
