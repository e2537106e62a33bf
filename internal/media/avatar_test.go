package media

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulse-social/pulse/pkg/storage"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestProcessor(t *testing.T) (*AvatarProcessor, *storage.LocalStorage) {
	t.Helper()
	store, err := storage.NewLocalStorage(storage.LocalConfig{BasePath: t.TempDir(), BaseURL: "/media"})
	require.NoError(t, err)
	return NewAvatarProcessor(store, Config{Prefix: "avatars/"}), store
}

func TestAvatarProcessor_Process(t *testing.T) {
	p, store := newTestProcessor(t)
	ctx := context.Background()

	urls, err := p.Process(ctx, 7, bytes.NewReader(pngBytes(t, 300, 200)))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(urls.Md, "/media/avatars/7/"))
	assert.True(t, strings.HasSuffix(urls.Md, "/md.jpg"))
	assert.True(t, strings.HasSuffix(urls.Sm, "/sm.jpg"))
	assert.True(t, strings.HasSuffix(urls.Lg, "/lg.jpg"))

	for name, edge := range map[string]int{"sm": 48, "md": 128, "lg": 512} {
		url := map[string]string{"sm": urls.Sm, "md": urls.Md, "lg": urls.Lg}[name]
		rc, err := store.Open(ctx, strings.TrimPrefix(url, "/media/"))
		require.NoError(t, err)
		img, err := imaging.Decode(rc)
		rc.Close()
		require.NoError(t, err)
		assert.Equal(t, edge, img.Bounds().Dx(), name)
		assert.Equal(t, edge, img.Bounds().Dy(), name)
	}
}

func TestAvatarProcessor_ReplacesPreviousUpload(t *testing.T) {
	p, store := newTestProcessor(t)
	ctx := context.Background()

	first, err := p.Process(ctx, 7, bytes.NewReader(pngBytes(t, 64, 64)))
	require.NoError(t, err)

	p.now = func() time.Time { return time.Now().Add(time.Second) }
	second, err := p.Process(ctx, 7, bytes.NewReader(pngBytes(t, 64, 64)))
	require.NoError(t, err)
	assert.NotEqual(t, first.Md, second.Md)

	objects, err := store.List(ctx, "avatars/7/")
	require.NoError(t, err)
	assert.Len(t, objects, 3)

	_, err = store.Open(ctx, strings.TrimPrefix(first.Md, "/media/"))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAvatarProcessor_RejectsNonImage(t *testing.T) {
	p, _ := newTestProcessor(t)
	_, err := p.Process(context.Background(), 1, strings.NewReader("definitely not a png"))
	assert.ErrorIs(t, err, ErrInvalidImage)
}
