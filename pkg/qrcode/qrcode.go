// Package qrcode renders QR code images for link destinations.
package qrcode

import (
	"errors"
	"fmt"
	"image/color"
	"strings"

	skipqrcode "github.com/skip2/go-qrcode"
)

var (
	// ErrEmptyContent is returned when the content string is empty or only whitespace.
	ErrEmptyContent = errors.New("content cannot be empty")
	// ErrInvalidTheme is returned when the theme is not a #RRGGBB hex color.
	ErrInvalidTheme = errors.New("invalid theme color")
)

// defaultSize is the size in pixels used when no size is specified.
const defaultSize = 256

// Generate renders a QR code PNG with the given content. The theme is the
// dark module color as a #RRGGBB hex string; an empty theme means black.
func Generate(content, theme string, size int) ([]byte, error) {
	const op = "qrcode.Generate"

	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyContent)
	}
	if size <= 0 {
		size = defaultSize
	}

	dark := color.RGBA{A: 0xff}
	if theme != "" {
		var err error
		dark, err = parseHexColor(theme)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	q, err := skipqrcode.New(content, skipqrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build qr code: %w", op, err)
	}

	q.ForegroundColor = dark
	q.BackgroundColor = color.White

	png, err := q.PNG(size)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to render qr code: %w", op, err)
	}

	return png, nil
}

func parseHexColor(s string) (color.RGBA, error) {
	var r, g, b uint8

	if _, err := fmt.Sscanf(s, "#%02x%02x%02x", &r, &g, &b); err != nil || len(s) != 7 {
		return color.RGBA{}, fmt.Errorf("%w: %q", ErrInvalidTheme, s)
	}

	return color.RGBA{R: r, G: g, B: b, A: 0xff}, nil
}
