// Package handler contains the HTTP handlers.  Handlers translate
// between the HTTP surface and the domain packages; they hold no
// business rules of their own.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/studio-slot-reservation/internal/reservation"
)

// getUserID extracts the authenticated member ID placed in the context by
// the JWT middleware.
func getUserID(c echo.Context) (uint64, error) {
	switch t := c.Get("user_id").(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid " + name)
	}
	return id, nil
}

// bookingError maps the reservation engine's typed errors onto HTTP
// responses.  Anything unclassified is a storage failure and stays a
// bare 500 so no internal detail leaks.
func bookingError(c echo.Context, err error) error {
	var typed *reservation.Error
	if !errors.As(err, &typed) {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	status := http.StatusInternalServerError
	switch typed.Kind {
	case reservation.KindNotFound:
		status = http.StatusNotFound
	case reservation.KindNotEligible, reservation.KindForbidden:
		status = http.StatusForbidden
	case reservation.KindInsufficientBalance:
		status = http.StatusPaymentRequired
	case reservation.KindCapacityExceeded, reservation.KindInvalidState:
		status = http.StatusConflict
	}
	return c.JSON(status, echo.Map{"error": string(typed.Kind), "message": typed.Message})
}
