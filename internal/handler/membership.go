package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/studio-slot-reservation/internal/membership"
)

// MembershipHandler exposes the caller's membership standing.
type MembershipHandler struct {
	evaluator *membership.Evaluator
}

func NewMembershipHandler(evaluator *membership.Evaluator) *MembershipHandler {
	if evaluator == nil {
		panic("nil evaluator passed to NewMembershipHandler")
	}
	return &MembershipHandler{evaluator: evaluator}
}

// Status handles GET /v1/membership/status.  Includes an expiry warning
// when the active window is within thirty days of ending.
func (h *MembershipHandler) Status(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	window, err := h.evaluator.ActiveWindow(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if window == nil {
		return c.JSON(http.StatusOK, echo.Map{"active": false})
	}
	body := echo.Map{
		"active":   true,
		"end_date": window.EndDate.Format("2006-01-02"),
	}
	if warning, ok := h.evaluator.ExpiryWarning(*window); ok {
		body["warning"] = warning
	}
	return c.JSON(http.StatusOK, body)
}
