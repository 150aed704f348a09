// Package router wires the HTTP surface: which paths exist, and which
// middleware guards each group.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/studio-slot-reservation/internal/config"
	"github.com/iliyamo/studio-slot-reservation/internal/handler"
	"github.com/iliyamo/studio-slot-reservation/internal/middleware"
)

// Handlers bundles every handler the router mounts.
type Handlers struct {
	Booking    *handler.BookingHandler
	Occupancy  *handler.OccupancyHandler
	Membership *handler.MembershipHandler
	Refill     *handler.RefillHandler
	Ledger     *handler.LedgerHandler
}

// Register mounts all routes on the Echo instance.  Everything under
// /v1 requires a valid access token; /v1/admin additionally requires
// the admin role.  The booking write endpoints sit behind the Redis
// token bucket so retry storms on a full class degrade politely.
func Register(e *echo.Echo, h Handlers, jwtSecret string, rdb *redis.Client) {
	e.GET("/healthz", handler.Health)

	v1 := e.Group("/v1")
	v1.Use(middleware.JWTAuth(jwtSecret))
	v1.Use(middleware.RequireRole(middleware.RoleMember, middleware.RoleAdmin))

	limited := v1.Group("")
	limited.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	limited.POST("/slots/:id/book", h.Booking.Book)
	limited.DELETE("/bookings/:id", h.Booking.Cancel)

	v1.GET("/my-bookings", h.Booking.MyBookings)
	v1.GET("/my-balance", h.Ledger.MyBalance)
	v1.GET("/slots", h.Occupancy.SlotsByDate)
	v1.GET("/slots/:id/occupancy", h.Occupancy.SlotOccupancy)
	v1.GET("/membership/status", h.Membership.Status)
	v1.GET("/refills/status", h.Refill.Status)

	admin := v1.Group("/admin")
	admin.Use(middleware.RequireRole(middleware.RoleAdmin))
	admin.GET("/slots/:id/roster", h.Occupancy.SlotRoster)
	admin.POST("/refills/run", h.Refill.Run)
	admin.POST("/ledger/expire-stale", h.Ledger.ExpireStale)
}
