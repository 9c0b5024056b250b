package web

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	cookieName  = "storefront"
	clientIDKey = "cid"

	flashSuccess = "success"
	flashError   = "error"
)

// clientIdentity gives every browser a stable id kept in the session
// cookie. The id addresses the browser's own storage and session state.
func clientIdentity(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		sess, err := session.Get(cookieName, c)
		if sess == nil {
			return err
		}
		if err != nil {
			// undecodable cookie, a fresh session replaces it
			zap.L().Debug("session cookie rejected", zap.Error(err))
		}
		id, _ := sess.Values[clientIDKey].(string)
		if id == "" {
			id = uuid.NewString()
			sess.Values[clientIDKey] = id
			sess.Options = &sessions.Options{
				Path:     "/",
				MaxAge:   86400 * 365,
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			}
			if err := sess.Save(c.Request(), c.Response()); err != nil {
				return err
			}
		}
		c.Set(clientIDKey, id)
		return next(c)
	}
}

func clientID(c echo.Context) string {
	id, _ := c.Get(clientIDKey).(string)
	return id
}

// addFlash queues a notification for the next rendered page
func addFlash(c echo.Context, kind, msg string) {
	sess, _ := session.Get(cookieName, c)
	if sess == nil {
		return
	}
	sess.AddFlash(msg, kind)
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		zap.L().Warn("save flash failed", zap.Error(err))
	}
}

// takeFlashes pops the queued notifications of kind
func takeFlashes(c echo.Context, kind string) []string {
	sess, _ := session.Get(cookieName, c)
	if sess == nil {
		return nil
	}
	raw := sess.Flashes(kind)
	if len(raw) == 0 {
		return nil
	}
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		zap.L().Warn("save session failed", zap.Error(err))
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
