package server

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"math/rand"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/skynotes-backend/internal/pkg/logger"
	"github.com/lk2023060901/skynotes-backend/internal/pkg/thumbnailer"
	"github.com/lk2023060901/skynotes-backend/internal/thumbnail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
)

// startThumbnailServer serves the real renderer over bufconn and returns a
// client sharing the same message limit.
func startThumbnailServer(t *testing.T, maxMessageSize int) *thumbnailer.Client {
	t.Helper()
	log := logger.NewNop()
	lis := bufconn.Listen(1 << 20)

	srv := NewGRPCServer("bufnet", maxMessageSize, log, thumbnail.NewRenderer(0, 0, 0, log))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	cfg := thumbnailer.DefaultConfig()
	cfg.MaxMessageSize = maxMessageSize
	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(cfg.CallOptions()...),
	)
	require.NoError(t, err)
	client := thumbnailer.NewWithConn(conn, cfg, log)
	t.Cleanup(func() { client.Close() })
	return client
}

// noisePNG encodes random pixels so the PNG stays close to its raw size.
func noisePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	rng := rand.New(rand.NewSource(1))
	rng.Read(img.Pix)
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xff
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestGRPCServerAcceptsLargeImages(t *testing.T) {
	src := noisePNG(t, 1400, 1400)
	require.Greater(t, len(src), 4<<20, "payload must exceed the gRPC default limit")

	client := startThumbnailServer(t, 16<<20)
	out, err := client.GenerateThumbnail(context.Background(), src)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 200, img.Bounds().Dx())
	assert.Equal(t, 200, img.Bounds().Dy())
}

func TestGRPCServerRendersThumbnails(t *testing.T) {
	client := startThumbnailServer(t, 0)

	var src bytes.Buffer
	require.NoError(t, png.Encode(&src, image.NewRGBA(image.Rect(0, 0, 800, 800))))

	out, err := client.GenerateThumbnail(context.Background(), src.Bytes())
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 200, img.Bounds().Dx())
	assert.Equal(t, 200, img.Bounds().Dy())

	_, err = client.GenerateThumbnail(context.Background(), []byte("not an image"))
	assert.Error(t, err)
}

func TestHealthHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		health HealthChecker
		want   int
	}{
		{"no checker", nil, http.StatusOK},
		{"all up", func(context.Context) map[string]error {
			return map[string]error{"database": nil, "redis": nil}
		}, http.StatusOK},
		{"redis down", func(context.Context) map[string]error {
			return map[string]error{"database": nil, "redis": errors.New("connection refused")}
		}, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/health", healthHandler(tt.health))

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
			if w.Code != tt.want {
				t.Errorf("GET /health = %d, want %d", w.Code, tt.want)
			}
		})
	}
}
