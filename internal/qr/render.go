// Package qr renders attendee payloads as QR images and recovers payloads
// from camera frames or uploaded pictures.
package qr

import (
	"image"

	qrcode "github.com/skip2/go-qrcode"
)

// RenderOptions control how a payload is drawn.  The zero value is not
// useful; start from DefaultRenderOptions.
type RenderOptions struct {
	Level         qrcode.RecoveryLevel // error correction level
	Size          int                  // output edge length in pixels
	DisableBorder bool                 // drop the quiet-zone margin
}

// DefaultRenderOptions mirror the codes issued from day one: highest error
// correction (checked-in guests photograph their codes, print them, crumple
// them) at 512px with the standard quiet zone.
var DefaultRenderOptions = RenderOptions{
	Level: qrcode.Highest,
	Size:  512,
}

// Render encodes the payload verbatim into a PNG.  No framing is added;
// whatever string goes in is exactly what a decoder gets back out.
func Render(payload string, opts RenderOptions) ([]byte, error) {
	q, err := qrcode.New(payload, opts.Level)
	if err != nil {
		return nil, err
	}
	q.DisableBorder = opts.DisableBorder
	return q.PNG(opts.Size)
}

// RenderImage is Render returning a decoded image, used by tests and by
// callers composing the code into larger graphics.
func RenderImage(payload string, opts RenderOptions) (image.Image, error) {
	q, err := qrcode.New(payload, opts.Level)
	if err != nil {
		return nil, err
	}
	q.DisableBorder = opts.DisableBorder
	return q.Image(opts.Size), nil
}
