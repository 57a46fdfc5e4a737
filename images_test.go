package bliss

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x += 10 {
		img.Set(x, h/2, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestProcessImage(t *testing.T) {
	img, data, err := processImage(bytes.NewReader(pngBytes(t, 2000, 1000)), "My Holiday Photo.PNG")
	require.NoError(t, err)
	assert.Equal(t, "my-holiday-photo.jpg", img.Filename)
	assert.Equal(t, "My Holiday Photo.PNG", img.OriginalName)
	assert.Equal(t, 1600, img.Width)
	assert.Equal(t, 800, img.Height)
	assert.Equal(t, len(data), img.Size)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 1600, cfg.Width)
	assert.Equal(t, 800, cfg.Height)

	small, _, err := processImage(bytes.NewReader(pngBytes(t, 120, 80)), "!!!.png")
	require.NoError(t, err)
	assert.Equal(t, "image.jpg", small.Filename)
	assert.Equal(t, 120, small.Width)
	assert.Equal(t, 80, small.Height)

	_, _, err = processImage(strings.NewReader("not an image"), "notes.txt")
	assert.Error(t, err)
}

func (tc *testClient) upload(path, filename string, data []byte) (*http.Response, string) {
	tc.t.Helper()
	token := tc.csrf()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(tc.t, mw.WriteField("_csrf", token))
	fw, err := mw.CreateFormFile("image", filename)
	require.NoError(tc.t, err)
	_, err = fw.Write(data)
	require.NoError(tc.t, err)
	require.NoError(tc.t, mw.Close())
	return tc.do(http.MethodPost, path, &body, http.Header{
		"Content-Type": {mw.FormDataContentType()},
		"X-Csrf-Token": {token},
	})
}

func TestImageUploadAndDelete(t *testing.T) {
	tc := newTestApp(t)
	tc.login()
	ctx := context.Background()
	uploads := filepath.Join(tc.app.Config.StaticDir, "uploads")

	resp, body := tc.upload("/admin/uploads/", "photo.png", pngBytes(t, 2000, 1000))
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	var got map[string]string
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	assert.Equal(t, "/public/uploads/photo.jpg", got["url"])

	f, err := os.Open(filepath.Join(uploads, "photo.jpg"))
	require.NoError(t, err)
	cfg, err := jpeg.DecodeConfig(f)
	f.Close()
	require.NoError(t, err)
	assert.Equal(t, 1600, cfg.Width)

	resp, body = tc.upload("/admin/uploads/", "photo.png", pngBytes(t, 300, 200))
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	assert.Equal(t, "/public/uploads/photo-2.jpg", got["url"])

	images, err := tc.app.Store.ListImages(ctx)
	require.NoError(t, err)
	assert.Len(t, images, 2)

	resp, body = tc.upload("/admin/uploads/", "notes.txt", []byte("plain text"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "Invalid image")

	resp, _ = tc.delete("/admin/images/photo.jpg/")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	_, err = os.Stat(filepath.Join(uploads, "photo.jpg"))
	assert.True(t, os.IsNotExist(err))

	images, err = tc.app.Store.ListImages(ctx)
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, "photo-2.jpg", images[0].Filename)
}
