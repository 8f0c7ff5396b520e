package qr

import (
	"github.com/pkg/errors"
	qrcode "github.com/skip2/go-qrcode"
)

// DefaultImageSize is the PNG edge length in pixels.
const DefaultImageSize = 512

// RenderPNG draws content as a QR code PNG. Low error correction keeps the
// long signed URLs scannable at print size.
func RenderPNG(content string, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultImageSize
	}
	png, err := qrcode.Encode(content, qrcode.Low, size)
	if err != nil {
		return nil, errors.Wrap(err, "render qr")
	}
	return png, nil
}
