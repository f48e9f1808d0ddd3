package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif" // Register GIF decoder
	"image/jpeg"
	"image/png"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"campusnet/internal/models"

	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultMediaDir        = "./uploads"
	DefaultMediaPrefix     = "/uploads"
	DefaultMaxUploadSizeMB = 5
	MaxMediaDimension      = 2048
	JPEGQuality            = 82
)

type UploadMediaInput struct {
	UserID      string
	Filename    string
	ContentType string
	Content     []byte
}

// MediaService stores uploaded images on disk and hands back the public path.
type MediaService struct {
	dir          string
	prefix       string
	maxSizeBytes int64
}

func NewMediaService(dir, prefix string, maxUploadSizeMB int) *MediaService {
	if dir == "" {
		dir = DefaultMediaDir
	}
	if prefix == "" {
		prefix = DefaultMediaPrefix
	}
	if maxUploadSizeMB <= 0 {
		maxUploadSizeMB = DefaultMaxUploadSizeMB
	}
	return &MediaService{
		dir:          dir,
		prefix:       "/" + strings.Trim(prefix, "/"),
		maxSizeBytes: int64(maxUploadSizeMB) * 1024 * 1024,
	}
}

func (s *MediaService) Dir() string    { return s.dir }
func (s *MediaService) Prefix() string { return s.prefix }

// Save validates an uploaded image and writes it under the media directory.
// Images larger than MaxMediaDimension on either side are downscaled and re-encoded.
func (s *MediaService) Save(_ context.Context, in UploadMediaInput) (string, error) {
	if len(in.Content) == 0 {
		return "", models.NewValidationError("No file uploaded")
	}
	if int64(len(in.Content)) > s.maxSizeBytes {
		return "", models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxSizeBytes/(1024*1024)))
	}

	if !isAllowedImageMIME(http.DetectContentType(in.Content)) {
		return "", models.NewValidationError("Invalid image type")
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(in.Content))
	if err != nil {
		return "", models.NewValidationError("Invalid image file")
	}
	ext := extensionFor(format)
	if ext == "" {
		return "", models.NewValidationError("Unsupported image format")
	}
	if provided := normalizeContentType(in.ContentType); strings.HasPrefix(provided, "image/") && !isMatchingContentType(provided, decodedFormatToMime(format)) {
		return "", models.NewValidationError("Image content type mismatch")
	}

	content := in.Content
	if format != "gif" && (cfg.Width > MaxMediaDimension || cfg.Height > MaxMediaDimension) {
		content, ext, err = downscale(in.Content, format)
		if err != nil {
			return "", models.NewValidationError("Invalid image file")
		}
	}

	name := uuid.NewString() + "." + ext
	if err := writeBytesToFile(filepath.Join(s.dir, name), content); err != nil {
		return "", models.NewInternalError(err)
	}
	return path.Join(s.prefix, name), nil
}

// Discard removes a file previously returned by Save. Unknown paths are ignored.
func (s *MediaService) Discard(publicPath string) {
	name := strings.TrimPrefix(publicPath, s.prefix+"/")
	if name == publicPath || name == "" || strings.ContainsAny(name, `/\`) {
		return
	}
	_ = os.Remove(filepath.Join(s.dir, name))
}

func downscale(content []byte, format string) ([]byte, string, error) {
	decoded, _, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, "", err
	}
	resized := resizeToFit(decoded, MaxMediaDimension, MaxMediaDimension)

	buf := bytes.NewBuffer(nil)
	if format == "png" {
		if err := png.Encode(buf, resized); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "png", nil
	}
	if err := jpeg.Encode(buf, resized, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), "jpg", nil
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scale := float64(maxWidth) / float64(w)
	if scaleH := float64(maxHeight) / float64(h); scaleH < scale {
		scale = scaleH
	}
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func extensionFor(format string) string {
	switch format {
	case "jpeg":
		return "jpg"
	case "png", "gif", "webp":
		return format
	default:
		return ""
	}
}

func isAllowedImageMIME(contentType string) bool {
	switch normalizeContentType(contentType) {
	case "image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func normalizeContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

func isMatchingContentType(provided, detected string) bool {
	p := normalizeContentType(provided)
	if p == "image/jpg" {
		p = "image/jpeg"
	}
	return p == normalizeContentType(detected)
}

func decodedFormatToMime(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg", "jpg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return ""
	}
}

func writeBytesToFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
