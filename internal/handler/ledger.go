package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/studio-slot-reservation/internal/ledger"
)

// LedgerHandler exposes read access to the caller's credit balances and
// the admin expiry sweep.
type LedgerHandler struct {
	manager *ledger.Manager
}

func NewLedgerHandler(manager *ledger.Manager) *LedgerHandler {
	if manager == nil {
		panic("nil manager passed to NewLedgerHandler")
	}
	return &LedgerHandler{manager: manager}
}

// MyBalance handles GET /v1/my-balance, one line per credit category.
func (h *LedgerHandler) MyBalance(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	summary, err := h.manager.BalanceSummary(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"balances": summary})
}

// ExpireStale handles POST /v1/admin/ledger/expire-stale.  Idempotent;
// the nightly cron runs the same sweep.
func (h *LedgerHandler) ExpireStale(c echo.Context) error {
	n, err := h.manager.ExpireStale(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "expiry sweep failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"expired": n})
}
