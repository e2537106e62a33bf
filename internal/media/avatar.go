// Package media turns uploaded images into the square avatar variants
// served to clients.
package media

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/oklog/ulid/v2"

	"github.com/pulse-social/pulse/internal/domain"
	pkglog "github.com/pulse-social/pulse/pkg/log"
	"github.com/pulse-social/pulse/pkg/storage"
)

var ErrInvalidImage = errors.New("invalid image")

// sizeSpec holds the target edge length for a single avatar variant.
type sizeSpec struct {
	name string
	edge int
}

var avatarSizes = []sizeSpec{
	{name: "sm", edge: 48},
	{name: "md", edge: 128},
	{name: "lg", edge: 512},
}

// Config configures an AvatarProcessor.
type Config struct {
	Prefix      string
	JpegQuality int
	URLExpiry   time.Duration
}

// AvatarProcessor crops uploads to squares, stores one JPEG per size and
// removes the user's earlier uploads.
type AvatarProcessor struct {
	store       storage.Storage
	prefix      string
	jpegQuality int
	urlExpiry   time.Duration
	now         func() time.Time
}

func NewAvatarProcessor(store storage.Storage, cfg Config) *AvatarProcessor {
	if cfg.JpegQuality <= 0 || cfg.JpegQuality > 100 {
		cfg.JpegQuality = 85
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "avatars/"
	}
	return &AvatarProcessor{
		store:       store,
		prefix:      cfg.Prefix,
		jpegQuality: cfg.JpegQuality,
		urlExpiry:   cfg.URLExpiry,
		now:         time.Now,
	}
}

// Process decodes r, writes the sm/md/lg variants under
// "{prefix}{userID}/{uploadID}/{size}.jpg" and returns their URLs.
func (p *AvatarProcessor) Process(ctx context.Context, userID int64, r io.Reader) (*domain.AvatarURLs, error) {
	l := pkglog.Ctx(ctx)

	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	uploadID, err := ulid.New(ulid.Timestamp(p.now()), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate upload id: %w", err)
	}
	uploadDir := fmt.Sprintf("%s%d/%s/", p.prefix, userID, uploadID.String())

	urls := make(map[string]string, len(avatarSizes))
	for _, sz := range avatarSizes {
		// Square crop centred on the image.
		resized := imaging.Fill(img, sz.edge, sz.edge, imaging.Center, imaging.Lanczos)

		var buf bytes.Buffer
		if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(p.jpegQuality)); err != nil {
			return nil, fmt.Errorf("encode %s: %w", sz.name, err)
		}

		key := uploadDir + sz.name + ".jpg"
		if err := p.store.Put(ctx, key, bytes.NewReader(buf.Bytes()), int64(buf.Len()), "image/jpeg"); err != nil {
			return nil, fmt.Errorf("upload %s: %w", sz.name, err)
		}

		url, err := p.store.URL(ctx, key, p.urlExpiry)
		if err != nil {
			return nil, fmt.Errorf("url %s: %w", sz.name, err)
		}
		urls[sz.name] = url
		l.Debug().Str("size", sz.name).Str("key", key).Msg("stored avatar variant")
	}

	p.removeOlderUploads(ctx, userID, uploadDir)

	return &domain.AvatarURLs{
		Sm: urls["sm"],
		Md: urls["md"],
		Lg: urls["lg"],
	}, nil
}

// removeOlderUploads deletes every object of the user outside keepDir.
// Failures are logged; a stale variant only costs storage.
func (p *AvatarProcessor) removeOlderUploads(ctx context.Context, userID int64, keepDir string) {
	l := pkglog.Ctx(ctx)

	objects, err := p.store.List(ctx, fmt.Sprintf("%s%d/", p.prefix, userID))
	if err != nil {
		l.Warn().Err(err).Int64(pkglog.FieldUserID, userID).Msg("failed to list previous avatars")
		return
	}

	var stale []string
	for _, obj := range objects {
		if !strings.HasPrefix(obj.Key, keepDir) {
			stale = append(stale, obj.Key)
		}
	}
	if len(stale) == 0 {
		return
	}
	if err := p.store.Delete(ctx, stale...); err != nil {
		l.Warn().Err(err).Int64(pkglog.FieldUserID, userID).Int("objects", len(stale)).Msg("failed to delete previous avatars")
	}
}
