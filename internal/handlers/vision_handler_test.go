package handlers_test

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ChipTrack/internal/middleware"
	"ChipTrack/internal/vision"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockExtractor struct {
	mock.Mock
}

var _ vision.Extractor = (*mockExtractor)(nil)

func (m *mockExtractor) Extract(ctx context.Context, img vision.Image) (*vision.Extraction, error) {
	args := m.Called(ctx, img)
	ex, _ := args.Get(0).(*vision.Extraction)
	return ex, args.Error(1)
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		img.Set(x, x, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func dataURI(b []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(b)
}

func str(s string) *string { return &s }

func TestVisionExtract_NotConfigured(t *testing.T) {
	s := newTestServer(t, nil)
	rakesh := s.login(t, "Rakesh", "rakesh123")

	rr := s.do(t, http.MethodPost, "/api/vision/extract", map[string]string{"image": dataURI(pngBytes(t))}, rakesh)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestVisionExtract_JSONDataURI(t *testing.T) {
	ex := &mockExtractor{}
	ex.On("Extract", mock.Anything, mock.MatchedBy(func(img vision.Image) bool {
		return img.MIMEType == "image/jpeg" && len(img.Data) > 0
	})).Return(&vision.Extraction{
		CustomerName: str("Alice"),
		PhoneNumber:  str("9000000000"),
		Brand:        str("Dell"),
	}, nil).Once()

	s := newTestServer(t, ex)
	rakesh := s.login(t, "Rakesh", "rakesh123")

	rr := s.do(t, http.MethodPost, "/api/vision/extract", map[string]string{"image": dataURI(pngBytes(t))}, rakesh)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	body := decode[map[string]any](t, rr)
	assert.Equal(t, "Alice", body["customerName"])
	assert.Equal(t, "9000000000", body["phoneNumber"])
	assert.Nil(t, body["jobNumber"])
	ex.AssertExpectations(t)
}

func TestVisionExtract_Multipart(t *testing.T) {
	ex := &mockExtractor{}
	ex.On("Extract", mock.Anything, mock.Anything).Return(&vision.Extraction{JobNumber: str("JOB-7")}, nil).Once()

	s := newTestServer(t, ex)
	rakesh := s.login(t, "Rakesh", "rakesh123")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("image", "sheet.png")
	require.NoError(t, err)
	_, err = fw.Write(pngBytes(t))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/vision/extract", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	for _, c := range rakesh.cookies {
		req.AddCookie(c)
	}
	req.Header.Set(middleware.CSRFHeaderName, rakesh.csrf)
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "JOB-7", decode[map[string]any](t, rr)["jobNumber"])
	ex.AssertExpectations(t)
}

func TestVisionExtract_PanicWithGzip(t *testing.T) {
	ex := &mockExtractor{}
	ex.On("Extract", mock.Anything, mock.Anything).Run(func(mock.Arguments) { panic("boom") }).Once()

	s := newTestServer(t, ex)
	rakesh := s.login(t, "Rakesh", "rakesh123")

	body := strings.NewReader(`{"image":"` + dataURI(pngBytes(t)) + `"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/vision/extract", body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept-Encoding", "gzip")
	for _, c := range rakesh.cookies {
		req.AddCookie(c)
	}
	req.Header.Set(middleware.CSRFHeaderName, rakesh.csrf)
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.Equal(t, "gzip", rr.Header().Get("Content-Encoding"))
	zr, err := gzip.NewReader(rr.Body)
	require.NoError(t, err)
	raw, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Internal server error")
	ex.AssertExpectations(t)
}

func TestVisionExtract_BadInput(t *testing.T) {
	ex := &mockExtractor{}
	s := newTestServer(t, ex)
	rakesh := s.login(t, "Rakesh", "rakesh123")

	tests := []struct {
		name string
		body any
		code int
	}{
		{"missing image", map[string]string{}, http.StatusBadRequest},
		{"not a data uri", map[string]string{"image": "hello"}, http.StatusBadRequest},
		{"not an image", map[string]string{"image": dataURI([]byte("hello"))}, http.StatusBadRequest},
		{"too large", map[string]string{"image": dataURI(bytes.Repeat([]byte{0xff}, 2<<20))}, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := s.do(t, http.MethodPost, "/api/vision/extract", tt.body, rakesh)
			assert.Equal(t, tt.code, rr.Code, rr.Body.String())
		})
	}
	ex.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything)
}

// Тест: ошибки распознавателя переводятся в HTTP-статусы
func TestVisionExtract_ErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		code int
		msg  string
	}{
		{fmt.Errorf("%w: trailing data", vision.ErrInvalidOutput), http.StatusUnprocessableEntity, ""},
		{vision.ErrQuotaExceeded, http.StatusTooManyRequests, ""},
		{vision.ErrInvalidCredentials, http.StatusInternalServerError, "OCR service misconfigured"},
		{errors.New("connection reset"), http.StatusInternalServerError, "OCR extraction failed"},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			ex := &mockExtractor{}
			ex.On("Extract", mock.Anything, mock.Anything).Return(nil, tt.err).Once()

			s := newTestServer(t, ex)
			rakesh := s.login(t, "Rakesh", "rakesh123")

			rr := s.do(t, http.MethodPost, "/api/vision/extract", map[string]string{"image": dataURI(pngBytes(t))}, rakesh)
			assert.Equal(t, tt.code, rr.Code)
			if tt.msg != "" {
				assert.Equal(t, tt.msg, errorMessage(t, rr))
			}
			assert.False(t, strings.Contains(rr.Body.String(), "connection reset"))
			ex.AssertExpectations(t)
		})
	}
}
