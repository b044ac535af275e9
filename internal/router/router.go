package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-checkin/internal/handler"
	"github.com/iliyamo/event-checkin/internal/middleware"
	"github.com/iliyamo/event-checkin/internal/model"
)

// RegisterRoutes registers routes that do not require authentication.
// Currently that is only the health check used by load balancers.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the authentication endpoints.  Register, login,
// refresh and logout live under /v1/auth and need no token; /v1/me needs a
// valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	// Logout takes the refresh token in the body rather than a JWT so a
	// client with an expired access token can still end its session.
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me)
}

// RegisterEvents registers event and attendee management endpoints.  All
// of them require a token; mutation is organizer-only while reads are
// shared with staff so scanning devices can browse rosters.  cacheMW may
// be nil when Redis is not configured.
func RegisterEvents(e *echo.Echo, ev *handler.EventHandler, at *handler.AttendeeHandler, jwtSecret string, cacheMW echo.MiddlewareFunc) {
	g := e.Group("/v1")
	g.Use(middleware.JWTAuth(jwtSecret))

	organizer := middleware.RequireRole(model.RoleOrganizer)
	reader := middleware.RequireRole(model.RoleOrganizer, model.RoleStaff)

	g.POST("/events", ev.Create, organizer)
	g.GET("/events", ev.List, reader)
	g.DELETE("/events/:id", ev.Delete, organizer)
	g.GET("/events/:id/attendees", ev.ListAttendees, reader)
	g.GET("/events/:id/qrcodes.zip", ev.ExportQRCodes, organizer)

	g.POST("/attendees", at.Create, organizer)
	g.POST("/attendees/bulk", at.BulkCreate, organizer)
	g.DELETE("/attendees/:id", at.Delete, organizer)
	g.GET("/attendees/:id/qrcode.png", at.QRCodePNG, organizer)

	// Event detail is read-mostly and safe to cache briefly.
	if cacheMW != nil {
		g.GET("/events/:id", ev.Get, reader, cacheMW)
	} else {
		g.GET("/events/:id", ev.Get, reader)
	}
}

// RegisterCheckin registers the scanning endpoints used by staff devices
// at the door.  rateMW may be nil when Redis is not configured; with it,
// a runaway scanner cannot hammer the database.
func RegisterCheckin(e *echo.Echo, sc *handler.ScanHandler, jwtSecret string, rateMW echo.MiddlewareFunc) {
	g := e.Group("/v1/attendees")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole(model.RoleOrganizer, model.RoleStaff))
	if rateMW != nil {
		g.Use(rateMW)
	}
	g.POST("/check-in", sc.CheckIn)
	g.POST("/check-in/image", sc.CheckInImage)
}
