package bliss

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	maxImageWidth = 1600
	jpegQuality   = 82
	maxUploadSize = 10 << 20 // 10MB
)

var errUploadTooLarge = errors.New("file too large (max 10MB)")

// processImage decodes an image from src, resizes it down to maxImageWidth
// when wider, and encodes it as JPEG. Returns metadata and the encoded bytes.
func processImage(src io.Reader, originalName string) (Image, []byte, error) {
	img, _, err := image.Decode(src)
	if err != nil {
		return Image{}, nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w > maxImageWidth {
		newH := h * maxImageWidth / w
		dst := image.NewRGBA(image.Rect(0, 0, maxImageWidth, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
		w, h = maxImageWidth, newH
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return Image{}, nil, fmt.Errorf("encode jpeg: %w", err)
	}

	base := Slugify(strings.TrimSuffix(originalName, filepath.Ext(originalName)))
	if base == "" {
		base = "image"
	}
	return Image{
		Filename:     base + ".jpg",
		OriginalName: originalName,
		Width:        w,
		Height:       h,
		Size:         buf.Len(),
	}, buf.Bytes(), nil
}

// ensureUniqueFilename appends a counter until the name is free both in
// object storage and in the image library.
func (a *App) ensureUniqueFilename(ctx context.Context, img *Image) error {
	existing, err := a.Store.ListImages(ctx)
	if err != nil {
		return fmt.Errorf("list images: %w", err)
	}
	taken := make(map[string]bool, len(existing))
	for _, ex := range existing {
		taken[ex.Filename] = true
	}

	base := strings.TrimSuffix(img.Filename, ".jpg")
	candidate := img.Filename
	for counter := 2; ; counter++ {
		inStorage, err := a.Storage.Exists(ctx, candidate)
		if err != nil {
			return err
		}
		if !inStorage && !taken[candidate] {
			break
		}
		candidate = fmt.Sprintf("%s-%d.jpg", base, counter)
	}
	img.Filename = candidate
	return nil
}

// saveUpload processes an uploaded image, stores it and records it in the
// media library.
func (a *App) saveUpload(ctx context.Context, file *multipart.FileHeader) (Image, error) {
	if file.Size > maxUploadSize {
		return Image{}, errUploadTooLarge
	}
	src, err := file.Open()
	if err != nil {
		return Image{}, err
	}
	defer src.Close()

	img, data, err := processImage(io.LimitReader(src, maxUploadSize), file.Filename)
	if err != nil {
		return Image{}, err
	}
	if err := a.ensureUniqueFilename(ctx, &img); err != nil {
		return Image{}, err
	}
	url, err := a.Storage.Upload(ctx, img.Filename, "image/jpeg", bytes.NewReader(data))
	if err != nil {
		return Image{}, fmt.Errorf("upload image: %w", err)
	}
	img.URL = url
	img.UploadedAt = a.Store.now().UTC()
	if err := a.Store.SaveImage(ctx, img); err != nil {
		return Image{}, fmt.Errorf("save image: %w", err)
	}
	return img, nil
}

// handleUpload accepts an image from the editor and answers with its URL.
func (a *App) handleUpload(c echo.Context) error {
	file, err := c.FormFile("image")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "No image file provided"})
	}
	img, err := a.saveUpload(c.Request().Context(), file)
	if err != nil {
		a.logger.Warn("image upload", zap.String("file", file.Filename), zap.Error(err))
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid image: " + err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]string{"url": img.URL})
}

func (a *App) handleImageList(c echo.Context) error {
	return a.renderImageList(c, http.StatusOK, "", "")
}

func (a *App) handleImageLibraryUpload(c echo.Context) error {
	file, err := c.FormFile("image")
	if err != nil {
		return a.renderImageList(c, http.StatusBadRequest, "", "No image file provided.")
	}
	if _, err := a.saveUpload(c.Request().Context(), file); err != nil {
		return a.renderImageList(c, http.StatusBadRequest, "", "Invalid image: "+err.Error())
	}
	return a.renderImageList(c, http.StatusOK, "Image uploaded.", "")
}

func (a *App) handleImageDelete(c echo.Context) error {
	filename := c.Param("filename")
	if filename == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Filename required"})
	}
	ctx := c.Request().Context()
	if err := a.Storage.Delete(ctx, filename); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if err := a.Store.DeleteImage(ctx, filename); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (a *App) renderImageList(c echo.Context, code int, msg, errMsg string) error {
	images, err := a.Store.ListImages(c.Request().Context())
	if err != nil {
		return err
	}
	p := a.page(c, PageMeta{}, images)
	p.Message = msg
	p.Error = errMsg
	return a.renderPage(c, code, "admin/images", p)
}
