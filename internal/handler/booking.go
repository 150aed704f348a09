package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/studio-slot-reservation/internal/middleware"
	"github.com/iliyamo/studio-slot-reservation/internal/model"
	"github.com/iliyamo/studio-slot-reservation/internal/repository"
	"github.com/iliyamo/studio-slot-reservation/internal/reservation"
)

// BookingHandler exposes the reservation engine over HTTP.  All routes
// assume JWT authentication already ran; methods return 401 only when
// the user ID cannot be extracted from the context.
type BookingHandler struct {
	engine   *reservation.Engine
	bookings *repository.BookingRepo
}

func NewBookingHandler(engine *reservation.Engine, bookings *repository.BookingRepo) *BookingHandler {
	if engine == nil || bookings == nil {
		panic("nil dependency passed to NewBookingHandler")
	}
	return &BookingHandler{engine: engine, bookings: bookings}
}

// Book handles POST /v1/slots/:id/book.  Booking is idempotent per
// (user, slot): repeating the request returns the existing booking with
// 200 instead of creating and charging again.
func (h *BookingHandler) Book(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	slotID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	res, err := h.engine.Book(c.Request().Context(), userID, slotID)
	if err != nil {
		return bookingError(c, err)
	}

	body := echo.Map{
		"booking_id": res.Booking.ID,
		"status":     res.Booking.Status,
	}
	if res.RemainingBalance != nil {
		body["remaining_balance"] = *res.RemainingBalance
	}
	if res.Replayed {
		return c.JSON(http.StatusOK, body)
	}
	return c.JSON(http.StatusCreated, body)
}

// Cancel handles DELETE /v1/bookings/:id.  Members cancel their own
// bookings; admins may cancel anyone's.  Cancelling twice is a no-op
// returning the already-cancelled booking.
func (h *BookingHandler) Cancel(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	b, err := h.engine.Cancel(c.Request().Context(), bookingID, userID, middleware.IsAdmin(c))
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"booking_id": b.ID,
		"status":     b.Status,
	})
}

type bookingView struct {
	ID          uint64    `json:"id"`
	SlotID      uint64    `json:"slot_id"`
	Status      string    `json:"status"`
	DebitAmount uint32    `json:"credits_debited"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// MyBookings handles GET /v1/my-bookings, newest first.
func (h *BookingHandler) MyBookings(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	list, err := h.bookings.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	views := make([]bookingView, 0, len(list))
	for _, b := range list {
		views = append(views, toBookingView(b))
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": views})
}

func toBookingView(b model.Booking) bookingView {
	return bookingView{
		ID:          b.ID,
		SlotID:      b.SlotID,
		Status:      b.Status,
		DebitAmount: b.DebitAmount,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
}
