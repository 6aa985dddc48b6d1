// Package thumbnail renders PNG thumbnails and serves them over gRPC.
package thumbnail

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	"github.com/lk2023060901/skynotes-backend/internal/pkg/logger"
	"github.com/lk2023060901/skynotes-backend/internal/pkg/thumbnailer"
	"go.uber.org/zap"
	"golang.org/x/image/draw"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Default bounding box and decode budget.
const (
	DefaultMaxWidth  = 200
	DefaultMaxHeight = 400
	// DefaultMaxPixels caps width*height of accepted sources.
	DefaultMaxPixels int64 = 50_000_000
)

// Renderer implements thumbnailer.Server.
type Renderer struct {
	maxWidth  int
	maxHeight int
	maxPixels int64
	logger    *logger.Logger
}

var _ thumbnailer.Server = (*Renderer)(nil)

// NewRenderer returns a renderer fitting images into maxWidth x maxHeight and
// refusing sources larger than maxPixels. Non-positive values fall back to
// the defaults.
func NewRenderer(maxWidth, maxHeight int, maxPixels int64, log *logger.Logger) *Renderer {
	if maxWidth <= 0 {
		maxWidth = DefaultMaxWidth
	}
	if maxHeight <= 0 {
		maxHeight = DefaultMaxHeight
	}
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	return &Renderer{maxWidth: maxWidth, maxHeight: maxHeight, maxPixels: maxPixels, logger: log}
}

// GenerateThumbnail decodes a PNG, JPEG or GIF image and returns a PNG that
// fits the bounding box. Images already inside the box keep their size.
func (r *Renderer) GenerateThumbnail(ctx context.Context, content []byte) ([]byte, error) {
	// decoders allocate from the header dimensions, so check them first
	cfg, _, err := image.DecodeConfig(bytes.NewReader(content))
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "decode image header: %v", err)
	}
	if pixels := int64(cfg.Width) * int64(cfg.Height); pixels > r.maxPixels {
		return nil, status.Errorf(codes.InvalidArgument,
			"image %dx%d exceeds %d pixels", cfg.Width, cfg.Height, r.maxPixels)
	}

	src, format, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "decode image: %v", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, status.FromContextError(err).Err()
	}

	b := src.Bounds()
	w, h := Fit(b.Dx(), b.Dy(), r.maxWidth, r.maxHeight)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, status.Errorf(codes.Internal, "encode png: %v", err)
	}

	r.logger.WithContext(ctx).Debug("thumbnail rendered",
		zap.String("format", format),
		zap.String("source", fmt.Sprintf("%dx%d", b.Dx(), b.Dy())),
		zap.String("size", fmt.Sprintf("%dx%d", w, h)),
	)
	return buf.Bytes(), nil
}

// Fit scales w x h down to fit maxW x maxH, keeping the aspect ratio.
// Each side is at least one pixel.
func Fit(w, h, maxW, maxH int) (int, int) {
	if w <= maxW && h <= maxH {
		return w, h
	}
	// compare w/maxW with h/maxH without floats
	if w*maxH >= h*maxW {
		return maxW, max(1, h*maxW/w)
	}
	return max(1, w*maxH/h), maxH
}
