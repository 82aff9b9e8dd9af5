package pdf

import (
	"bytes"
	"testing"

	"github.com/pavelzubkov/qrlink/pkg/qrcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pdfHeader is the signature every PDF document starts with.
var pdfHeader = []byte("%PDF-")

func TestRender(t *testing.T) {
	t.Run("empty image", func(t *testing.T) {
		doc, err := Render(nil, "QR Code", "QR ID: abc123")

		assert.Error(t, err)
		assert.ErrorIs(t, err, ErrEmptyImage)
		assert.Nil(t, doc)
	})

	t.Run("corrupt image", func(t *testing.T) {
		doc, err := Render([]byte("not a png"), "QR Code", "QR ID: abc123")

		assert.Error(t, err)
		assert.Nil(t, doc)
	})

	t.Run("success", func(t *testing.T) {
		png, err := qrcode.Generate("https://qr.example.com/r/abc123", "#000000", 128)
		require.NoError(t, err)

		doc, err := Render(png, "QR Code", "QR ID: abc123")

		assert.NoError(t, err)
		assert.True(t, bytes.HasPrefix(doc, pdfHeader))
	})
}
