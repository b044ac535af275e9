package handler

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-checkin/internal/model"
	"github.com/iliyamo/event-checkin/internal/qr"
	"github.com/iliyamo/event-checkin/internal/qrtoken"
	"github.com/iliyamo/event-checkin/internal/repository"
)

// AttendeeHandler bundles dependencies for attendee endpoints.
type AttendeeHandler struct {
	Events    *repository.EventRepo
	Attendees *repository.AttendeeRepo
	Codec     *qrtoken.Codec
}

func NewAttendeeHandler(e *repository.EventRepo, a *repository.AttendeeRepo, codec *qrtoken.Codec) *AttendeeHandler {
	return &AttendeeHandler{Events: e, Attendees: a, Codec: codec}
}

// ----- DTOs -----

type createAttendeeReq struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	EventID uint64 `json:"eventId"`
}

type bulkAttendeeReq struct {
	EventID   uint64 `json:"eventId"`
	Attendees []struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"attendees"`
}

type bulkItemError struct {
	Index int    `json:"index"`
	Email string `json:"email"`
	Error string `json:"error"`
}

// attendeeIDSpace bounds the random public identifier embedded in QR
// payloads.  Random rather than sequential so a code cannot be guessed
// from a neighbouring one.
var attendeeIDSpace = big.NewInt(1_000_000_000)

func randomAttendeeID() (uint64, error) {
	n, err := rand.Int(rand.Reader, attendeeIDSpace)
	if err != nil {
		return 0, err
	}
	return n.Uint64() + 1, nil
}

// newAttendee generates an id, encodes the QR payload and inserts the row.
// Only the unlikely id collision is retried; any other insert failure is
// final, a second attempt would just hit the same database error.
func (h *AttendeeHandler) newAttendee(ctx context.Context, eventID uint64, name, email string) (model.Attendee, error) {
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		id, err := randomAttendeeID()
		if err != nil {
			return model.Attendee{}, err
		}
		payload, err := h.Codec.Encode(eventID, id)
		if err != nil {
			return model.Attendee{}, err
		}
		a := model.Attendee{ID: id, Name: name, Email: email, EventID: eventID, QRCode: payload}
		if err := h.Attendees.Create(ctx, &a); err != nil {
			if !errors.Is(err, repository.ErrIDExists) {
				return model.Attendee{}, err
			}
			lastErr = err
			continue
		}
		return a, nil
	}
	return model.Attendee{}, lastErr
}

// ownedEvent loads an event and verifies the caller organizes it.
func (h *AttendeeHandler) ownedEvent(ctx context.Context, eventID, userID uint64) (model.Event, error) {
	ev, err := h.Events.GetByID(ctx, eventID)
	if err != nil {
		return model.Event{}, err
	}
	if ev.OrganizerID != userID {
		return model.Event{}, repository.ErrForbidden
	}
	return ev, nil
}

// Create registers a single attendee and returns the stored row including
// its encrypted QR payload.
func (h *AttendeeHandler) Create(c echo.Context) error {
	uid, err := contextUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req createAttendeeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Name == "" || req.Email == "" || req.EventID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name/email/eventId required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.ownedEvent(ctx, req.EventID, uid); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "not your event"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	a, err := h.newAttendee(ctx, req.EventID, req.Name, req.Email)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create attendee failed"})
	}
	return c.JSON(http.StatusCreated, a)
}

// BulkCreate imports attendees in one request.  Rows are processed
// independently; a bad row is reported in the errors list and the rest
// still import, mirroring how spreadsheet imports actually get used.
func (h *AttendeeHandler) BulkCreate(c echo.Context) error {
	uid, err := contextUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req bulkAttendeeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.EventID == 0 || len(req.Attendees) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "eventId and attendees required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	if _, err := h.ownedEvent(ctx, req.EventID, uid); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "not your event"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	created := make([]model.Attendee, 0, len(req.Attendees))
	var failed []bulkItemError
	for i, row := range req.Attendees {
		if row.Name == "" || row.Email == "" {
			failed = append(failed, bulkItemError{Index: i, Email: row.Email, Error: "name/email required"})
			continue
		}
		a, err := h.newAttendee(ctx, req.EventID, row.Name, row.Email)
		if err != nil {
			failed = append(failed, bulkItemError{Index: i, Email: row.Email, Error: err.Error()})
			continue
		}
		created = append(created, a)
	}

	status := http.StatusCreated
	if len(created) == 0 {
		status = http.StatusBadRequest
	}
	return c.JSON(status, echo.Map{"created": created, "errors": failed})
}

// Delete removes an attendee from an event the caller owns.
func (h *AttendeeHandler) Delete(c echo.Context) error {
	uid, err := contextUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid attendee id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	a, err := h.Attendees.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "attendee not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if _, err := h.ownedEvent(ctx, a.EventID, uid); err != nil {
		if errors.Is(err, repository.ErrForbidden) {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "not your event"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	if err := h.Attendees.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "attendee not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// QRCodePNG renders one attendee's code as a PNG for printing or
// re-sending a lost ticket.
func (h *AttendeeHandler) QRCodePNG(c echo.Context) error {
	uid, err := contextUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid attendee id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	a, err := h.Attendees.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "attendee not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if _, err := h.ownedEvent(ctx, a.EventID, uid); err != nil {
		if errors.Is(err, repository.ErrForbidden) {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "not your event"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	png, err := qr.Render(a.QRCode, qr.DefaultRenderOptions)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "render failed"})
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("inline; filename=%q", qr.SanitizeFileName(a.Name)+"-"+fmt.Sprint(a.ID)+".png"))
	return c.Blob(http.StatusOK, "image/png", png)
}
