package web

import (
	"fmt"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/labstack/echo/v4"
)

const keepAliveInterval = 25 * time.Second

// sessionState answers the polling fallback of the navigation bar
func (h *Handler) sessionState(c echo.Context) error {
	st, err := h.store(c).Get(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "session unavailable")
	}
	return c.JSON(http.StatusOK, st)
}

// sessionEvents streams the visitor's session state as server-sent events.
// The current state is sent first, then every change until the client goes away.
func (h *Handler) sessionEvents(c echo.Context) error {
	ctx := c.Request().Context()
	states, cancel := h.store(c).Subscribe(ctx)
	defer cancel()

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set(echo.HeaderCacheControl, "no-cache")
	w.Header().Set(echo.HeaderConnection, "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return nil
			}
			w.Flush()
		case st, ok := <-states:
			if !ok {
				return nil
			}
			payload, err := jsoniter.MarshalToString(st)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "event: session\ndata: %s\n\n", payload); err != nil {
				return nil
			}
			w.Flush()
		}
	}
}
