package mockapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/talkincode/storefront/internal/domain"
	"github.com/talkincode/storefront/internal/validate"
	"github.com/talkincode/storefront/internal/webserver"
	"github.com/talkincode/storefront/pkg/common"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type userPayload struct {
	Name     string `json:"name" validate:"required,max=200"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"required,digits"`
	Gender   string `json:"gender" validate:"required,oneof=Male Female Other"`
	Password string `json:"password" validate:"required,min=6"`
}

func registerUserRoutes(s *webserver.WebServer) {
	s.GET("/users", listUsers)
	s.POST("/users", createUser)
}

// listUsers supports the json-server style equality query used by login:
// GET /users?email=..&password=.. returns the users whose email equals the
// given value, blank included, and whose stored hash accepts the password.
// Passwords are never returned.
func listUsers(c echo.Context) error {
	db := GetDB(c).Model(&domain.User{})
	if c.QueryParams().Has("email") {
		db = db.Where("email = ?", c.QueryParam("email"))
	}
	if q := strings.TrimSpace(c.QueryParam("q")); q != "" {
		db = likeFilter(db, q, "name", "email")
	}

	var rows []domain.User
	if err := db.Order("id ASC").Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query users", err.Error())
	}

	checkPassword := c.QueryParams().Has("password")
	password := c.QueryParam("password")
	result := make([]domain.User, 0, len(rows))
	for _, u := range rows {
		if checkPassword && bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) != nil {
			continue
		}
		result = append(result, u.Public())
	}
	return ok(c, result)
}

func createUser(c echo.Context) error {
	var payload userPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse user", err.Error())
	}
	payload.Name = strings.TrimSpace(payload.Name)
	payload.Email = strings.TrimSpace(payload.Email)
	if err := validate.Struct(payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid user", err.Error())
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(payload.Password), bcrypt.DefaultCost)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "HASH_ERROR", "Failed to store password", nil)
	}

	u := domain.User{
		ID:        common.UUIDint64(),
		Name:      payload.Name,
		Email:     payload.Email,
		Phone:     payload.Phone,
		Gender:    payload.Gender,
		Password:  string(hash),
		CreatedAt: time.Now(),
	}
	if err := GetDB(c).Create(&u).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create user", err.Error())
	}
	zap.L().Info("user created", zap.Int64("id", u.ID), zap.String("email", u.Email))
	return created(c, u.Public())
}
