// Package vision извлекает поля бланка заказа из фотографии через внешнюю модель.
package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	// ErrInvalidImage - изображение отсутствует или не декодируется.
	ErrInvalidImage = errors.New("invalid image")
	// ErrInvalidOutput - модель вернула ответ, не подходящий под схему.
	ErrInvalidOutput = errors.New("invalid OCR output")
	// ErrQuotaExceeded - исчерпана квота внешнего API.
	ErrQuotaExceeded = errors.New("OCR quota exceeded")
	// ErrInvalidCredentials - ключ внешнего API неверен или отозван.
	ErrInvalidCredentials = errors.New("OCR credentials rejected")
	// ErrNotConfigured - ключ API не задан.
	ErrNotConfigured = errors.New("OCR is not configured")
)

// Image - подготовленное изображение для распознавания.
type Image struct {
	Data     []byte
	MIMEType string
}

// Extraction - результат распознавания. Любое поле может отсутствовать.
type Extraction struct {
	CustomerName *string `json:"customerName"`
	PhoneNumber  *string `json:"phoneNumber"`
	Brand        *string `json:"brand"`
	JobNumber    *string `json:"jobNumber"`
	Notes        *string `json:"notes"`
}

// Extractor - внешний распознаватель бланков.
type Extractor interface {
	Extract(ctx context.Context, img Image) (*Extraction, error)
}

// ParseExtraction разбирает JSON-ответ модели.
// Обрамление ```json ... ``` снимается; лишние поля и хвосты считаются ошибкой.
func ParseExtraction(raw string) (*Extraction, error) {
	body := stripFences(raw)
	if body == "" {
		return nil, ErrInvalidOutput
	}

	dec := json.NewDecoder(strings.NewReader(body))
	dec.DisallowUnknownFields()
	var ex Extraction
	if err := dec.Decode(&ex); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data", ErrInvalidOutput)
	}

	ex.CustomerName = cleanString(ex.CustomerName)
	ex.Brand = cleanString(ex.Brand)
	ex.JobNumber = cleanString(ex.JobNumber)
	ex.Notes = cleanString(ex.Notes)
	ex.PhoneNumber = normalizePhone(ex.PhoneNumber)
	return &ex, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// язык после открывающей ограды: ```json
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func cleanString(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	if v == "" {
		return nil
	}
	return &v
}

// normalizePhone оставляет только цифры; код страны перед 10-значным номером отбрасывается.
func normalizePhone(p *string) *string {
	if p == nil {
		return nil
	}
	var b bytes.Buffer
	for _, r := range *p {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return nil
	}
	if len(digits) > 10 {
		digits = digits[len(digits)-10:]
	}
	return &digits
}
