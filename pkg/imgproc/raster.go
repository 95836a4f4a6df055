package imgproc

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"net/http"
	"strings"

	"github.com/disintegration/imaging"
)

const jpegQuality = 92

// RasterImage is an encoded image payload. It is a value type: transforms
// always produce a new instance, the bytes are never mutated in place.
type RasterImage struct {
	MIME string
	Data []byte
}

// ContentType returns the declared MIME, falling back to sniffing the bytes.
func (r RasterImage) ContentType() string {
	if m := strings.TrimSpace(r.MIME); m != "" {
		return m
	}
	if len(r.Data) == 0 {
		return "application/octet-stream"
	}
	return http.DetectContentType(r.Data)
}

// DataURL encodes the image as a data URI, the transport format used
// between the browser, this service and the remote model.
func (r RasterImage) DataURL() string {
	return "data:" + r.ContentType() + ";base64," + base64.StdEncoding.EncodeToString(r.Data)
}

// Decode decodes the payload into pixels.
func (r RasterImage) Decode() (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(r.Data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// ParseDataURL decodes a base64 string that may carry a data: prefix. The
// MIME is taken from the prefix when present, otherwise sniffed.
func ParseDataURL(s string) (RasterImage, error) {
	s = strings.TrimSpace(s)
	var mime string
	if strings.HasPrefix(s, "data:") {
		idx := strings.IndexByte(s, ',')
		if idx < 0 {
			return RasterImage{}, fmt.Errorf("malformed data URI")
		}
		meta := s[len("data:"):idx] // "<mime>;base64"
		if semi := strings.IndexByte(meta, ';'); semi >= 0 {
			mime = meta[:semi]
		} else {
			mime = meta
		}
		s = s[idx+1:]
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		// URL-safe alphabet shows up in some clients
		if b2, err2 := base64.URLEncoding.DecodeString(s); err2 == nil {
			b = b2
		} else {
			return RasterImage{}, fmt.Errorf("decode base64: %w", err)
		}
	}
	if len(b) == 0 {
		return RasterImage{}, fmt.Errorf("empty image payload")
	}
	return RasterImage{MIME: mime, Data: b}, nil
}

// Encode re-encodes pixels in the given MIME. PNG stays lossless; anything
// else becomes JPEG, which is good enough for round-trip display.
func Encode(img image.Image, mime string) (RasterImage, error) {
	var buf bytes.Buffer
	switch mime {
	case "image/png":
		if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
			return RasterImage{}, fmt.Errorf("encode png: %w", err)
		}
		return RasterImage{MIME: "image/png", Data: buf.Bytes()}, nil
	default:
		if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
			return RasterImage{}, fmt.Errorf("encode jpeg: %w", err)
		}
		return RasterImage{MIME: "image/jpeg", Data: buf.Bytes()}, nil
	}
}
