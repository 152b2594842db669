package imagestore

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pngPayload = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="

func TestDecodeDataURI(t *testing.T) {
	img, err := DecodeDataURI("data:image/png;base64," + pngPayload)
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.ContentType)
	assert.Equal(t, "png", img.Ext)
	assert.Len(t, img.Data, 70)

	// 声明类型与内容不一致时以内容为准
	img, err = DecodeDataURI("data:image/jpg;base64," + pngPayload)
	require.NoError(t, err)
	assert.Equal(t, "png", img.Ext)
}

func TestDecodeDataURIRejects(t *testing.T) {
	text := base64.StdEncoding.EncodeToString([]byte("plain text, not an image"))

	cases := map[string]struct {
		in   string
		want error
	}{
		"url":           {"https://example.com/a.png", ErrNotDataURI},
		"not image":     {"data:text/plain;base64," + text, ErrNotDataURI},
		"svg":           {"data:image/svg+xml;base64," + text, ErrUnsupported},
		"bad base64":    {"data:image/png;base64,@@@@", ErrNotDataURI},
		"empty":         {"data:image/png;base64,", ErrEmptyPayload},
		"sniffed text":  {"data:image/png;base64," + text, ErrUnsupported},
		"missing comma": {"data:image/png;base64" + pngPayload, ErrNotDataURI},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeDataURI(tc.in)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	t.Run("too big", func(t *testing.T) {
		big := strings.Repeat("A", base64.StdEncoding.EncodedLen(MaxImageBytes+3))
		_, err := DecodeDataURI("data:image/png;base64," + big)
		assert.ErrorIs(t, err, ErrImageTooBig)
	})
}

func TestNewKey(t *testing.T) {
	k1 := NewKey("/recipes/", Image{Ext: "png"})
	k2 := NewKey("recipes", Image{Ext: "png"})
	assert.True(t, strings.HasPrefix(k1, "recipes/"))
	assert.True(t, strings.HasSuffix(k1, ".png"))
	assert.NotEqual(t, k1, k2)
}

func TestLocalStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewLocalStore(dir, "/media/")
	require.NoError(t, err)

	img, err := DecodeDataURI("data:image/png;base64," + pngPayload)
	require.NoError(t, err)

	key := NewKey("recipes", img)
	require.NoError(t, s.Save(ctx, key, img))
	data, err := os.ReadFile(filepath.Join(dir, key))
	require.NoError(t, err)
	assert.Equal(t, img.Data, data)
	assert.Equal(t, "/media/"+key, s.URL(key))

	require.NoError(t, s.Delete(ctx, key))
	_, err = os.Stat(filepath.Join(dir, key))
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, s.Delete(ctx, key), "deleting a missing file is not an error")

	// 路径穿越被限制在目录内
	require.NoError(t, s.Save(ctx, "../../escape.png", img))
	_, err = os.Stat(filepath.Join(dir, "escape.png"))
	assert.NoError(t, err)

	assert.Error(t, s.Save(ctx, "", img))
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	s, err := New(ctx, Config{Backend: "local", Dir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &LocalStore{}, s)

	_, err = New(ctx, Config{Backend: "ftp"})
	assert.Error(t, err)

	_, err = New(ctx, Config{Backend: "s3"})
	assert.Error(t, err, "bucket is required")
}

func TestS3StoreURL(t *testing.T) {
	s, err := NewS3Store(context.Background(), S3Config{
		Key: "k", Secret: "s", Region: "us-east-1", Bucket: "media",
		Endpoint: "http://127.0.0.1:9000", PublicURL: "https://cdn.example.com/", Root: "/foodgram/",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/foodgram/recipes/a.png", s.URL("recipes/a.png"))

	plain, err := NewS3Store(context.Background(), S3Config{Key: "k", Secret: "s", Region: "eu-west-1", Bucket: "media"})
	require.NoError(t, err)
	assert.Equal(t, "https://media.s3.eu-west-1.amazonaws.com/recipes/a.png", plain.URL("/recipes/a.png"))
}
