package handler

import (
	"bytes"
	"context"
	"encoding/json"
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
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"melonsense/internal/app"
	"melonsense/internal/model"
)

type stubModel struct {
	scores []float32
	err    error
	calls  *atomic.Int32
}

func (m stubModel) Predict(context.Context, model.Tensor) ([]float32, error) {
	m.calls.Add(1)
	return m.scores, m.err
}

type fixture struct {
	router *gin.Engine
	calls  *atomic.Int32
}

func newFixture(t *testing.T, disease []float32, stemErr error) fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	calls := &atomic.Int32{}
	registry, err := app.NewModelRegistry(app.Models{
		Shape:   stubModel{scores: []float32{0.9, 0.05, 0.05}, calls: calls},
		Spot:    stubModel{scores: []float32{0.7}, calls: calls},
		Stem:    stubModel{scores: []float32{0.2}, err: stemErr, calls: calls},
		Webbing: stubModel{scores: []float32{0.1}, calls: calls},
		Disease: stubModel{scores: disease, calls: calls},
	})
	require.NoError(t, err)

	h := NewPredictHandler(app.NewAssessmentService(registry, nil), 1<<20, nil)
	r := gin.New()
	r.POST("/predict", h.Predict)
	return fixture{router: r, calls: calls}
}

func (f fixture) upload(t *testing.T, field string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, "melon.png")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/predict", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func rgbImage(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 40))
	for y := 0; y < 40; y++ {
		for x := 0; x < 40; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 20, G: 140, B: 60, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func grayImage(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 40, 40))))
	return buf.Bytes()
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var got map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	return got
}

func TestPredictSuccess(t *testing.T) {
	disease := make([]float32, 9)
	disease[0] = 0.8
	disease[7] = 0.9
	f := newFixture(t, disease, nil)

	w := f.upload(t, "file", rgbImage(t))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]string{
		"spot":           "White or pale yellow spot: Not ripe",
		"stem":           "Green stem: Not ripe",
		"webbing":        "Webbing Present: Ripe",
		"shape":          "The watermelon is Round: Ripe and Sweet",
		"disease":        "Diseases Present: Anthracnoseon, Phytophthora Fruit Rot",
		"recommendation": "Consider avoiding this watermelon due to detected diseases.",
	}, decode(t, w))
	assert.Equal(t, int32(5), f.calls.Load())
}

func TestPredictChannelMismatch(t *testing.T) {
	f := newFixture(t, make([]float32, 9), nil)

	w := f.upload(t, "file", grayImage(t))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error": "Input image must have 3 channels (RGB)."}`, w.Body.String())
	assert.Zero(t, f.calls.Load())
}

func TestPredictInvalidImage(t *testing.T) {
	f := newFixture(t, make([]float32, 9), nil)

	w := f.upload(t, "file", []byte("hello"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid image file.", decode(t, w)["error"])
}

func TestPredictInferenceFailure(t *testing.T) {
	f := newFixture(t, make([]float32, 9), errors.New("boom"))

	w := f.upload(t, "file", rgbImage(t))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Prediction failed.", decode(t, w)["error"])
}

func TestPredictFallsBackToAnyFileField(t *testing.T) {
	f := newFixture(t, make([]float32, 9), nil)

	w := f.upload(t, "image", rgbImage(t))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "This watermelon is likely good to buy.", decode(t, w)["recommendation"])
}

func TestPredictMissingFile(t *testing.T) {
	f := newFixture(t, make([]float32, 9), nil)

	req := httptest.NewRequest(http.MethodPost, "/predict", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No image file provided.", decode(t, w)["error"])
}

func TestPredictImageTooLarge(t *testing.T) {
	f := newFixture(t, make([]float32, 9), nil)

	w := f.upload(t, "file", bytes.Repeat([]byte{0xff}, 2<<20))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Image too large.", decode(t, w)["error"])
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func TestPredictStopsReadingOversizedBody(t *testing.T) {
	f := newFixture(t, make([]float32, 9), nil)

	const boundary = "melonboundary"
	head := fmt.Sprintf("--%s\r\nContent-Disposition: form-data; name=\"file\"; filename=\"melon.png\"\r\n"+
		"Content-Type: image/png\r\n\r\n", boundary)
	tail := fmt.Sprintf("\r\n--%s--\r\n", boundary)
	body := &countingReader{r: io.MultiReader(
		strings.NewReader(head),
		io.LimitReader(zeroReader{}, 256<<20),
		strings.NewReader(tail),
	)}

	req := httptest.NewRequest(http.MethodPost, "/predict", body)
	req.Header.Set("Content-Type", "multipart/form-data; boundary="+boundary)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Image too large.", decode(t, w)["error"])
	assert.Less(t, body.n, int64(8<<20))
}

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}
