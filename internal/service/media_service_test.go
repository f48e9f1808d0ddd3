package service

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"campusnet/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	buf := bytes.NewBuffer(nil)
	require.NoError(t, png.Encode(buf, img))
	return buf.Bytes()
}

func TestMediaSaveStoresImage(t *testing.T) {
	dir := t.TempDir()
	svc := NewMediaService(dir, "uploads/", 1)
	assert.Equal(t, "/uploads", svc.Prefix())

	content := encodePNG(t, 16, 16)
	publicPath, err := svc.Save(context.Background(), UploadMediaInput{Filename: "a.png", ContentType: "image/png", Content: content})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(publicPath, "/uploads/"))
	assert.True(t, strings.HasSuffix(publicPath, ".png"))

	stored, err := os.ReadFile(filepath.Join(dir, filepath.Base(publicPath)))
	require.NoError(t, err)
	assert.Equal(t, content, stored)

	svc.Discard(publicPath)
	_, err = os.Stat(filepath.Join(dir, filepath.Base(publicPath)))
	assert.True(t, os.IsNotExist(err))
}

func TestMediaSaveDownscalesLargeImages(t *testing.T) {
	dir := t.TempDir()
	svc := NewMediaService(dir, "/uploads", 5)

	publicPath, err := svc.Save(context.Background(), UploadMediaInput{Content: encodePNG(t, MaxMediaDimension+512, 64)})
	require.NoError(t, err)

	f, err := os.Open(filepath.Join(dir, filepath.Base(publicPath)))
	require.NoError(t, err)
	defer f.Close()
	cfg, format, err := image.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, MaxMediaDimension, cfg.Width)
}

func TestMediaSaveRejectsBadUploads(t *testing.T) {
	svc := NewMediaService(t.TempDir(), "/uploads", 1)
	ctx := context.Background()

	tests := []struct {
		name string
		in   UploadMediaInput
	}{
		{name: "empty", in: UploadMediaInput{}},
		{name: "not an image", in: UploadMediaInput{Content: []byte("plain text, not pixels")}},
		{name: "too large", in: UploadMediaInput{Content: bytes.Repeat([]byte{0}, 1024*1024+1)}},
		{name: "content type mismatch", in: UploadMediaInput{ContentType: "image/jpeg", Content: encodePNG(t, 4, 4)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Save(ctx, tt.in)
			assertAppError(t, err, models.CodeValidation)
		})
	}
}

func TestMediaDiscardIgnoresForeignPaths(t *testing.T) {
	dir := t.TempDir()
	outside := filepath.Join(dir, "keep.txt")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0o600))

	svc := NewMediaService(filepath.Join(dir, "media"), "/uploads", 1)
	svc.Discard("/elsewhere/keep.txt")
	svc.Discard("/uploads/../keep.txt")

	_, err := os.Stat(outside)
	assert.NoError(t, err)
}
