package httpserver

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// handleGetSession returns the current snapshot. While a first reconcile is
// still in flight the state is "loading"; clients poll or use /ws.
func (s *Server) handleGetSession(c echo.Context) error {
	if err := c.JSON(http.StatusOK, s.controller.Snapshot()); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

// handleSignOut asks the controller to sign out. The snapshot is guaranteed
// to be unauthenticated afterwards, whatever the remote logout did.
func (s *Server) handleSignOut(c echo.Context) error {
	s.controller.SignOut(c.Request().Context())

	if err := c.JSON(http.StatusOK, s.controller.Snapshot()); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}
