package qr

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	"github.com/makiuchi-d/gozxing"
	zxqr "github.com/makiuchi-d/gozxing/qrcode"
)

// ErrNotFound is returned when the whole fallback chain fails to locate a
// QR code in the image.  It is a user-actionable outcome (retry with better
// lighting or focus), not a fault.
var ErrNotFound = errors.New("qr: no code found in image")

// minDimension is the smallest edge length worth handing to the decoder;
// scaled variants below it are skipped.
const minDimension = 100

// scaleFactors is the descending down-scale ladder tried when the
// full-resolution attempts fail.  Oversized photos of a code often decode
// only after shrinking smooths out sensor noise.
var scaleFactors = []float64{0.9, 0.8, 0.7, 0.6, 0.5, 0.4, 0.3, 0.2}

// contrastGain is the stretch applied in the contrast fallback:
// out = clamp(((in/255 - 0.5) * 1.5 + 0.5) * 255) per channel.
const contrastGain = 1.5

// sharpenKernel is the 3x3 convolution applied in the sharpen fallback.
var sharpenKernel = [9]float64{
	0, -1, 0,
	-1, 5, -1,
	0, -1, 0,
}

// strategy pairs a name (for debugging) with an image transform.  A
// transform may return nil to signal the variant is not worth attempting,
// e.g. a scale that would drop below minDimension.
type strategy struct {
	name      string
	transform func(image.Image) image.Image
}

// Decode extracts the embedded payload string from an image.  It walks an
// ordered list of independent (transform, decode) strategies and stops at
// the first success:
//
//  1. the raw image, trying both normal and inverted interpretations
//  2. the image sharpened with a 3x3 kernel
//  3. each down-scale factor, plain then contrast-stretched then grayscale
//
// Every stage is stateless and the chain is best-effort; order matters only
// for latency.  When nothing matches, ErrNotFound is returned.
func Decode(img image.Image) (string, error) {
	for _, st := range buildStrategies() {
		candidate := st.transform(img)
		if candidate == nil {
			continue
		}
		if text, ok := tryDecode(candidate); ok {
			return text, nil
		}
	}
	return "", ErrNotFound
}

// DecodeBytes decodes the payload from an encoded raster image (PNG, JPEG
// or GIF), the form uploads arrive in.
func DecodeBytes(data []byte) (string, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("qr: decode image: %w", err)
	}
	return Decode(img)
}

func buildStrategies() []strategy {
	list := []strategy{
		{name: "direct", transform: identity},
		{name: "sharpen", transform: sharpen},
	}
	for _, f := range scaleFactors {
		f := f
		list = append(list,
			strategy{name: fmt.Sprintf("scale %.1f", f), transform: scaleBy(f)},
			strategy{name: fmt.Sprintf("scale %.1f contrast", f), transform: then(scaleBy(f), contrastStretch)},
			strategy{name: fmt.Sprintf("scale %.1f grayscale", f), transform: then(scaleBy(f), grayscale)},
		)
	}
	return list
}

func identity(img image.Image) image.Image { return img }

func sharpen(img image.Image) image.Image {
	return imaging.Convolve3x3(img, sharpenKernel, nil)
}

// scaleBy returns a transform producing the image at factor f, or nil when
// the result would be too small to carry a readable code.
func scaleBy(f float64) func(image.Image) image.Image {
	return func(img image.Image) image.Image {
		b := img.Bounds()
		w := int(float64(b.Dx()) * f)
		h := int(float64(b.Dy()) * f)
		if w < minDimension || h < minDimension {
			return nil
		}
		return imaging.Resize(img, w, h, imaging.Lanczos)
	}
}

// contrastStretch applies the fixed-gain contrast formula
// out = clamp(((in/255 - 0.5) * gain + 0.5) * 255) per channel.  imaging
// maps its percentage p to a 1/(1-p/100) gain, so gain g needs
// p = 100*(1 - 1/g); for 1.5 that is +33.3, not +50.
func contrastStretch(img image.Image) image.Image {
	return imaging.AdjustContrast(img, 100*(1-1/contrastGain))
}

// grayscale converts to luminance-weighted gray (0.299R+0.587G+0.114B).
func grayscale(img image.Image) image.Image {
	return imaging.Grayscale(img)
}

// then chains two transforms, propagating a nil from the first.
func then(a, b func(image.Image) image.Image) func(image.Image) image.Image {
	return func(img image.Image) image.Image {
		out := a(img)
		if out == nil {
			return nil
		}
		return b(out)
	}
}

// tryDecode runs the zxing QR reader over the image, first as-is and then
// color-inverted.  A fresh reader per attempt keeps the pipeline stateless
// and safe to run concurrently across requests.
func tryDecode(img image.Image) (string, bool) {
	src := gozxing.NewLuminanceSourceFromImage(img)
	if text, ok := decodeSource(src); ok {
		return text, true
	}
	return decodeSource(gozxing.NewInvertedLuminanceSource(src))
}

func decodeSource(src gozxing.LuminanceSource) (string, bool) {
	bmp, err := gozxing.NewBinaryBitmap(gozxing.NewHybridBinarizer(src))
	if err != nil {
		return "", false
	}
	result, err := zxqr.NewQRCodeReader().Decode(bmp, map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_TRY_HARDER: true,
	})
	if err != nil {
		return "", false
	}
	return result.GetText(), true
}
