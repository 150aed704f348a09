package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/studio-slot-reservation/internal/clock"
	"github.com/iliyamo/studio-slot-reservation/internal/refill"
	"github.com/iliyamo/studio-slot-reservation/internal/repository"
)

// RefillHandler exposes the weekly refill scheduler: the caller's own
// refill outlook, and the admin trigger that mirrors the cron firing.
type RefillHandler struct {
	scheduler *refill.Scheduler
	clk       clock.Clock
}

func NewRefillHandler(scheduler *refill.Scheduler, clk clock.Clock) *RefillHandler {
	if scheduler == nil {
		panic("nil scheduler passed to NewRefillHandler")
	}
	return &RefillHandler{scheduler: scheduler, clk: clk}
}

// Status handles GET /v1/refills/status.
func (h *RefillHandler) Status(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	status, err := h.scheduler.NextRefill(c.Request().Context(), userID, h.clk.Now())
	if errors.Is(err, repository.ErrNoActiveEntry) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "no active refill subscription"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, status)
}

// Run handles POST /v1/admin/refills/run, the manual counterpart of the
// weekly cron firing.  Safe to call repeatedly: the per-week markers
// make duplicate runs no-ops.
func (h *RefillHandler) Run(c echo.Context) error {
	report, err := h.scheduler.RunCycle(c.Request().Context(), h.clk.Now())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "refill cycle failed"})
	}
	// Per-user failure details stay in the logs; the response only
	// carries the count.
	for _, e := range report.Errors {
		log.Printf("refill cycle: %s", e)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"processed": report.Processed,
		"refilled":  report.Refilled,
		"credited":  report.Credited,
		"skipped":   report.Skipped,
		"failed":    len(report.Errors),
	})
}
