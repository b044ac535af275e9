package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-checkin/internal/checkin"
	"github.com/iliyamo/event-checkin/internal/qr"
)

// Uploaded scan images are phone camera shots; 10 MiB covers them with
// room to spare.
const maxScanImageBytes = 10 << 20

// ScanHandler exposes check-in over HTTP, either with an already-decoded
// payload or with a raw image the server decodes itself.
type ScanHandler struct {
	Checkin *checkin.Service
}

func NewScanHandler(s *checkin.Service) *ScanHandler {
	return &ScanHandler{Checkin: s}
}

type checkInReq struct {
	QRCode string `json:"qrCode"`
}

// resultStatus maps a check-in outcome to an HTTP status.  The body always
// carries the full Result; the status exists for clients that only look at
// the code.
func resultStatus(r checkin.Result) int {
	if r.Success {
		return http.StatusOK
	}
	switch r.Message {
	case checkin.MsgInvalidCode:
		return http.StatusBadRequest
	case checkin.MsgAttendeeNotFound:
		return http.StatusNotFound
	case checkin.MsgAlreadyCheckedIn:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// CheckIn accepts the decrypted-side payload straight off a scanner.
func (h *ScanHandler) CheckIn(c echo.Context) error {
	var req checkInReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.QRCode) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "qrCode required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	res := h.Checkin.CheckIn(ctx, strings.TrimSpace(req.QRCode))
	return c.JSON(resultStatus(res), res)
}

// CheckInImage accepts a multipart upload under the "image" field, runs
// the decode pipeline over it and checks in whatever code it finds.
func (h *ScanHandler) CheckInImage(c echo.Context) error {
	fh, err := c.FormFile("image")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "image file required"})
	}
	if fh.Size > maxScanImageBytes {
		return c.JSON(http.StatusRequestEntityTooLarge, echo.Map{"error": "image too large"})
	}

	f, err := fh.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot read image"})
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxScanImageBytes+1))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot read image"})
	}

	payload, err := qr.DecodeBytes(data)
	if err != nil {
		if errors.Is(err, qr.ErrNotFound) {
			return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "no QR code found in image"})
		}
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unsupported image"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	res := h.Checkin.CheckIn(ctx, payload)
	return c.JSON(resultStatus(res), res)
}
