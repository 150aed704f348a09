package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/studio-slot-reservation/internal/occupancy"
	"github.com/iliyamo/studio-slot-reservation/internal/repository"
)

// OccupancyHandler serves the read-side occupancy endpoints.  Counts
// come from the aggregator and may be served from its cache; they are
// advisory for clients, never the basis of a booking decision.
type OccupancyHandler struct {
	slots      *repository.SlotRepo
	sessions   *repository.SessionRepo
	aggregator *occupancy.Aggregator
}

func NewOccupancyHandler(slots *repository.SlotRepo, sessions *repository.SessionRepo, aggregator *occupancy.Aggregator) *OccupancyHandler {
	if slots == nil || sessions == nil || aggregator == nil {
		panic("nil dependency passed to NewOccupancyHandler")
	}
	return &OccupancyHandler{slots: slots, sessions: sessions, aggregator: aggregator}
}

// SlotOccupancy handles GET /v1/slots/:id/occupancy.
func (h *OccupancyHandler) SlotOccupancy(c echo.Context) error {
	slotID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	ctx := c.Request().Context()
	slot, err := h.slots.GetByID(ctx, slotID)
	if errors.Is(err, repository.ErrSlotNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "slot not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	count, err := h.aggregator.CountOccupants(ctx, slot.Key())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"slot_id":  slot.ID,
		"count":    count,
		"capacity": slot.Capacity,
		"is_full":  uint32(count) >= slot.Capacity,
	})
}

// SlotRoster handles GET /v1/admin/slots/:id/roster.  It lists the
// direct placements written by the external scheduling tool alongside
// the distinct occupancy count, so staff can see who is in the room and
// through which path they arrived.
func (h *OccupancyHandler) SlotRoster(c echo.Context) error {
	slotID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	ctx := c.Request().Context()
	slot, err := h.slots.GetByID(ctx, slotID)
	if errors.Is(err, repository.ErrSlotNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "slot not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	records, err := h.sessions.ListByKey(ctx, slot.Key())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	count, err := h.aggregator.CountOccupants(ctx, slot.Key())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	placements := make([]placementView, 0, len(records))
	for i := range records {
		placements = append(placements, placementView{
			UserID:     records[i].UserID,
			Variant:    string(records[i].Variant),
			AssignedAt: records[i].CreatedAt.Format(time.RFC3339),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"slot_id":           slot.ID,
		"count":             count,
		"capacity":          slot.Capacity,
		"direct_placements": placements,
	})
}

type placementView struct {
	UserID     uint64 `json:"user_id"`
	Variant    string `json:"variant"`
	AssignedAt string `json:"assigned_at"`
}

// SlotsByDate handles GET /v1/slots?date=YYYY-MM-DD, listing the day's
// bookable slots.
func (h *OccupancyHandler) SlotsByDate(c echo.Context) error {
	date := c.QueryParam("date")
	if date == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date query parameter is required"})
	}
	slots, err := h.slots.ListByDate(c.Request().Context(), date)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	views := make([]slotView, 0, len(slots))
	for _, s := range slots {
		views = append(views, slotView{
			ID:        s.ID,
			Date:      s.Date.Format("2006-01-02"),
			StartTime: s.StartTime,
			EndTime:   s.EndTime,
			Room:      s.Room,
			Trainer:   s.Trainer,
			Capacity:  s.Capacity,
			Kind:      string(s.Kind),
			Active:    s.Active,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"slots": views})
}

type slotView struct {
	ID        uint64 `json:"id"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Room      string `json:"room"`
	Trainer   string `json:"trainer"`
	Capacity  uint32 `json:"capacity"`
	Kind      string `json:"kind"`
	Active    bool   `json:"active"`
}
