package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-checkin/internal/model"
	"github.com/iliyamo/event-checkin/internal/qr"
	"github.com/iliyamo/event-checkin/internal/repository"
)

// EventHandler bundles dependencies for event endpoints.
type EventHandler struct {
	Events    *repository.EventRepo
	Attendees *repository.AttendeeRepo
}

func NewEventHandler(e *repository.EventRepo, a *repository.AttendeeRepo) *EventHandler {
	return &EventHandler{Events: e, Attendees: a}
}

// ----- DTOs -----

type createEventReq struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Date        string  `json:"date"` // RFC 3339
	Venue       string  `json:"venue"`
	Capacity    uint32  `json:"capacity"`
}

type eventResp struct {
	ID          uint64    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	Date        time.Time `json:"date"`
	Venue       string    `json:"venue"`
	Capacity    uint32    `json:"capacity"`
	OrganizerID uint64    `json:"organizerId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toEventResp(e model.Event) eventResp {
	return eventResp{
		ID:          e.ID,
		Name:        e.Name,
		Description: e.Description,
		Date:        e.Date,
		Venue:       e.Venue,
		Capacity:    e.Capacity,
		OrganizerID: e.OrganizerID,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

// Create registers a new event owned by the calling organizer.
func (h *EventHandler) Create(c echo.Context) error {
	uid, err := contextUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req createEventReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Name == "" || req.Venue == "" || req.Date == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name/date/venue required"})
	}
	date, err := time.Parse(time.RFC3339, req.Date)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be RFC 3339"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ev := model.Event{
		Name:        req.Name,
		Description: req.Description,
		Date:        date.UTC(),
		Venue:       req.Venue,
		Capacity:    req.Capacity,
		OrganizerID: uid,
	}
	if err := h.Events.Create(ctx, &ev); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create event failed"})
	}
	return c.JSON(http.StatusCreated, toEventResp(ev))
}

// List returns the organizer's own events; staff see every event so they
// know what they are scanning for.
func (h *EventHandler) List(c echo.Context) error {
	uid, err := contextUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	role, _ := c.Get("role").(string)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	var (
		events []model.Event
		qerr   error
	)
	if role == model.RoleOrganizer {
		events, qerr = h.Events.ListByOrganizer(ctx, uid)
	} else {
		events, qerr = h.Events.ListAll(ctx)
	}
	if qerr != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	out := make([]eventResp, 0, len(events))
	for _, e := range events {
		out = append(out, toEventResp(e))
	}
	return c.JSON(http.StatusOK, echo.Map{"events": out})
}

// Get returns one event by id.
func (h *EventHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ev, err := h.Events.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toEventResp(ev))
}

// Delete removes an event the caller owns along with its attendees.
func (h *EventHandler) Delete(c echo.Context) error {
	uid, err := contextUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	switch err := h.Events.Delete(ctx, id, uid); {
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not your event"})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// ListAttendees returns the attendee roster for an event.  Organizers must
// own the event; staff may read any roster.
func (h *EventHandler) ListAttendees(c echo.Context) error {
	uid, err := contextUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ev, err := h.Events.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	role, _ := c.Get("role").(string)
	if role == model.RoleOrganizer && ev.OrganizerID != uid {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not your event"})
	}

	attendees, err := h.Attendees.ListByEvent(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"attendees": attendees})
}

// ExportQRCodes streams a zip of every attendee's QR code for an event.
// Rendering hundreds of codes takes a moment, so the archive is written
// straight to the response instead of buffered in memory first.
func (h *EventHandler) ExportQRCodes(c echo.Context) error {
	uid, err := contextUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	ev, err := h.Events.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if ev.OrganizerID != uid {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not your event"})
	}

	attendees, err := h.Attendees.ListByEvent(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if len(attendees) == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "event has no attendees"})
	}

	items := make([]qr.ArchiveItem, 0, len(attendees))
	for _, a := range attendees {
		items = append(items, qr.ArchiveItem{Name: a.Name, ID: a.ID, Payload: a.QRCode})
	}

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "application/zip")
	res.Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", qr.SanitizeFileName(ev.Name)+"-qr-codes.zip"))
	skipped, err := qr.BuildArchive(res, items, qr.DefaultRenderOptions)
	if err != nil {
		// Headers may already be out; all we can do is log and abort.
		c.Logger().Errorf("qr export for event %d: %v", id, err)
		return err
	}
	if len(skipped) > 0 {
		c.Logger().Warnf("qr export for event %d skipped %d attendees", id, len(skipped))
	}
	return nil
}

// pathID parses a numeric path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	return strconv.ParseUint(c.Param(name), 10, 64)
}
