package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) (*WebApp, string) {
	t.Helper()

	dir := t.TempDir()
	writeTestJPEG(t, filepath.Join(dir, "photo.jpg"), 400, 300)

	cfg := testConfig()
	cfg.Overlay = Overlay{Color: "#000000", Opacity: 0.7}
	return NewWebApp(WebConfig{
		RootDir: dir,
		Crop:    cfg,
		Executor: &OperationExecutor{
			BaseDir:   dir,
			OutputDir: filepath.Join(dir, "output"),
			Config:    cfg,
			Cropper:   &fakePixelCropper{},
		},
		OnSave: func(ops Operations) {},
	}), dir
}

func doJSON(t *testing.T, app *WebApp, req *http.Request, out any) int {
	t.Helper()

	resp, err := app.router().Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestWebConfigEndpoint(t *testing.T) {
	t.Parallel()

	app, _ := newTestApp(t)

	var got struct {
		CropArea  Size    `json:"crop_area"`
		MaxZoom   float64 `json:"max_zoom"`
		MaskColor string  `json:"mask_color"`
	}
	code := doJSON(t, app, httptest.NewRequest(http.MethodGet, "/api/config", nil), &got)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, Size{Width: 300, Height: 300}, got.CropArea)
	require.Equal(t, 3.0, got.MaxZoom)
	require.Equal(t, "#000000b3", got.MaskColor)
}

func TestWebFitEndpoint(t *testing.T) {
	t.Parallel()
	r := require.New(t)

	app, _ := newTestApp(t)

	var got struct {
		MinZoom   float64   `json:"min_zoom"`
		Transform Transform `json:"transform"`
		Image     ImageSize `json:"image"`
	}
	code := doJSON(t, app, httptest.NewRequest(http.MethodGet, "/api/fit?file=photo.jpg", nil), &got)
	r.Equal(http.StatusOK, code)
	r.InDelta(0.75, got.MinZoom, 1e-6)
	r.Equal(got.MinZoom, got.Transform.Scale)
	r.Equal(ImageSize{Width: 400, Height: 300}, got.Image)

	code = doJSON(t, app, httptest.NewRequest(http.MethodGet, "/api/fit", nil), nil)
	r.Equal(http.StatusBadRequest, code)

	code = doJSON(t, app, httptest.NewRequest(http.MethodGet, "/api/fit?file=missing.jpg", nil), nil)
	r.Equal(http.StatusNotFound, code)
}

func TestWebRangeEndpointSettles(t *testing.T) {
	t.Parallel()
	r := require.New(t)

	app, _ := newTestApp(t)

	var got struct {
		Transform Transform `json:"transform"`
		RangeX    Range     `json:"range_x"`
		RangeY    Range     `json:"range_y"`
	}
	url := "/api/range?file=photo.jpg&scale=1.5&tx=5000&ty=-20"
	code := doJSON(t, app, httptest.NewRequest(http.MethodGet, url, nil), &got)
	r.Equal(http.StatusOK, code)

	// 400x300 at scale 1.5 gives slack of 100x50 local units; the runaway
	// tx snaps to the bound while the in-range ty passes through.
	r.InDelta(100, got.RangeX.Max, 1e-6)
	r.InDelta(50, got.RangeY.Max, 1e-6)
	r.InDelta(100, got.Transform.TranslateX, 1e-6)
	r.InDelta(-20, got.Transform.TranslateY, 1e-6)
}

func TestWebCropEndpoint(t *testing.T) {
	t.Parallel()
	r := require.New(t)

	app, dir := newTestApp(t)

	body, err := json.Marshal(map[string]any{
		"filename": "photo.jpg",
		"crop": map[string]any{
			"scale":   1.5,
			"quality": 0.5,
		},
	})
	r.NoError(err)

	req := httptest.NewRequest(http.MethodPost, "/api/crop", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	var got struct {
		Name   string `json:"name"`
		URL    string `json:"url"`
		Width  int    `json:"width"`
		Height int    `json:"height"`
	}
	code := doJSON(t, app, req, &got)
	r.Equal(http.StatusOK, code)
	// 300/1.5 = 200 source pixels per axis at quality 0.5.
	r.Equal(100, got.Width)
	r.Equal(100, got.Height)
	r.Contains(got.Name, "photo.jpg-")

	_, err = filepath.Glob(filepath.Join(dir, "output", "*.jpg"))
	r.NoError(err)
}

func TestWebCropEndpointRejectsBadQuality(t *testing.T) {
	t.Parallel()

	app, _ := newTestApp(t)

	body := fmt.Sprintf(`{"filename":"photo.jpg","crop":{"scale":1.5,"quality":%g}}`, 1.5)
	req := httptest.NewRequest(http.MethodPost, "/api/crop", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	code := doJSON(t, app, req, nil)
	require.Equal(t, http.StatusUnprocessableEntity, code)
}

func TestWebListEndpoint(t *testing.T) {
	t.Parallel()
	r := require.New(t)

	app, _ := newTestApp(t)

	var got struct {
		Files []FileInfo `json:"files"`
	}
	code := doJSON(t, app, httptest.NewRequest(http.MethodGet, "/api/ls", nil), &got)
	r.Equal(http.StatusOK, code)
	r.Len(got.Files, 1)
	r.Equal("photo.jpg", got.Files[0].Name)
	r.Equal("/api/view?file=photo.jpg", got.Files[0].URL)
	r.Equal(ImageInfo{Width: 400, Height: 300}, got.Files[0].Image)
}
