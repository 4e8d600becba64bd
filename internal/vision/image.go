package vision

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"strings"

	"github.com/nfnt/resize"
)

// DefaultMaxWidth - ширина, до которой уменьшаются крупные снимки.
const DefaultMaxWidth = 1600

// DecodeDataURI разбирает data:<mime>;base64,<payload>.
func DecodeDataURI(s string) ([]byte, string, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "data:") {
		return nil, "", fmt.Errorf("%w: not a data URI", ErrInvalidImage)
	}
	header, payload, ok := strings.Cut(s[len("data:"):], ",")
	if !ok {
		return nil, "", fmt.Errorf("%w: malformed data URI", ErrInvalidImage)
	}
	mime, enc, _ := strings.Cut(header, ";")
	if enc != "base64" {
		return nil, "", fmt.Errorf("%w: data URI must be base64", ErrInvalidImage)
	}
	if !strings.HasPrefix(mime, "image/") {
		return nil, "", fmt.Errorf("%w: unsupported type %q", ErrInvalidImage, mime)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return data, mime, nil
}

// PrepareImage декодирует JPEG/PNG/GIF, уменьшает до maxWidth (Lanczos3)
// и перекодирует в JPEG.
func PrepareImage(data []byte, maxWidth uint) (Image, error) {
	if len(data) == 0 {
		return Image{}, fmt.Errorf("%w: empty", ErrInvalidImage)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Image{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if maxWidth == 0 {
		maxWidth = DefaultMaxWidth
	}
	if uint(img.Bounds().Dx()) > maxWidth {
		img = resize.Resize(maxWidth, 0, img, resize.Lanczos3)
	}

	var out bytes.Buffer
	if err := jpeg.Encode(&out, img, &jpeg.Options{Quality: 85}); err != nil {
		return Image{}, fmt.Errorf("encode jpeg: %w", err)
	}
	return Image{Data: out.Bytes(), MIMEType: "image/jpeg"}, nil
}
