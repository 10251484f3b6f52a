package qrcode

import (
	"encoding/base64"
	"errors"
	"strings"

	skipqrcode "github.com/skip2/go-qrcode"
)

// ErrEmptyContent is returned when there is nothing to encode.
var ErrEmptyContent = errors.New("qrcode: content cannot be empty")

const defaultSize = 256

// Renderer turns an otpauth provisioning URI into a representation a client
// can display for scanning.
type Renderer interface {
	Render(uri string) (string, error)
}

// PNGDataURI renders QR codes as inline data:image/png URIs, matching what
// browser clients embed directly in an <img> tag.
type PNGDataURI struct {
	Size int
}

// Render encodes uri as a PNG QR code and returns it base64-wrapped in a
// data URI.
func (r PNGDataURI) Render(uri string) (string, error) {
	if strings.TrimSpace(uri) == "" {
		return "", ErrEmptyContent
	}
	size := r.Size
	if size <= 0 {
		size = defaultSize
	}
	png, err := skipqrcode.Encode(uri, skipqrcode.Medium, size)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
