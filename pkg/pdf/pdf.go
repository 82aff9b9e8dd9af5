// Package pdf renders print-ready documents for QR artifacts.
package pdf

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/go-pdf/fpdf"
)

// ErrEmptyImage is returned when no image data is provided.
var ErrEmptyImage = errors.New("empty image")

// Render lays out a single letter-size page with a title, the QR code PNG
// and a caption underneath, and returns the encoded document.
func Render(png []byte, title, caption string) ([]byte, error) {
	const op = "pdf.Render"

	if len(png) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyImage)
	}

	doc := fpdf.New(fpdf.OrientationPortrait, fpdf.UnitPoint, fpdf.PageSizeLetter, "")
	doc.AddPage()

	doc.SetFont("Helvetica", "B", 20)
	doc.Text(100, 62, title)

	opts := fpdf.ImageOptions{ImageType: "PNG"}
	doc.RegisterImageOptionsReader("qr", opts, bytes.NewReader(png))
	doc.ImageOptions("qr", 100, 92, 200, 200, false, opts, 0, "")

	doc.SetFont("Helvetica", "", 12)
	doc.Text(100, 322, caption)

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("%s: failed to encode document: %w", op, err)
	}

	return buf.Bytes(), nil
}
