// Package imagestore 解码 base64 data URI 图片并保存到本地目录或 S3 兼容存储
package imagestore

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

const MaxImageBytes = 10 << 20

var (
	ErrNotDataURI   = errors.New("image must be a base64 data URI")
	ErrUnsupported  = errors.New("unsupported image type")
	ErrImageTooBig  = errors.New("image is too large")
	ErrEmptyPayload = errors.New("image payload is empty")
)

var allowedTypes = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/gif":  "gif",
	"image/webp": "webp",
}

type Image struct {
	Data        []byte
	ContentType string
	Ext         string
}

// Store 图片存储后端
type Store interface {
	Save(ctx context.Context, key string, img Image) error
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

type Config struct {
	Backend string   `koanf:"backend"` // local | s3
	Dir     string   `koanf:"dir"`
	BaseURL string   `koanf:"base_url"`
	S3      S3Config `koanf:"s3"`
}

// DecodeDataURI data:image/png;base64,xxxx
func DecodeDataURI(s string) (Image, error) {
	header, payload, ok := strings.Cut(s, ";base64,")
	if !ok || !strings.HasPrefix(header, "data:image/") {
		return Image{}, ErrNotDataURI
	}
	declared := strings.ToLower(strings.TrimPrefix(header, "data:"))
	if declared == "image/jpg" {
		declared = "image/jpeg"
	}
	if _, ok := allowedTypes[declared]; !ok {
		return Image{}, fmt.Errorf("%w: %s", ErrUnsupported, declared)
	}
	if base64.StdEncoding.DecodedLen(len(payload)) > MaxImageBytes {
		return Image{}, ErrImageTooBig
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Image{}, fmt.Errorf("%w: %v", ErrNotDataURI, err)
	}
	if len(data) == 0 {
		return Image{}, ErrEmptyPayload
	}

	// 以实际内容为准，声明类型只作为初筛
	sniffed := http.DetectContentType(data)
	ext, ok := allowedTypes[sniffed]
	if !ok {
		return Image{}, fmt.Errorf("%w: %s", ErrUnsupported, sniffed)
	}
	return Image{Data: data, ContentType: sniffed, Ext: ext}, nil
}

// NewKey recipes/<uuid>.<ext>
func NewKey(prefix string, img Image) string {
	return fmt.Sprintf("%s/%s.%s", strings.Trim(prefix, "/"), uuid.NewString(), img.Ext)
}

func New(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case "", "local":
		return NewLocalStore(cfg.Dir, cfg.BaseURL)
	case "s3":
		return NewS3Store(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown image backend %q", cfg.Backend)
	}
}
