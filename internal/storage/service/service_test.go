package service_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/skynotes-backend/internal/pkg/eventbus"
	"github.com/lk2023060901/skynotes-backend/internal/pkg/logger"
	"github.com/lk2023060901/skynotes-backend/internal/storage/biz"
	"github.com/lk2023060901/skynotes-backend/internal/storage/data"
	"github.com/lk2023060901/skynotes-backend/internal/storage/service"
	"github.com/lk2023060901/skynotes-backend/internal/storage/storagetest"
	"github.com/stretchr/testify/require"
)

var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

type stubThumbnailer struct{}

func (stubThumbnailer) GenerateThumbnail(context.Context, []byte) ([]byte, error) {
	return pngBytes, nil
}

// inlineQueue runs each task as soon as it is enqueued. Stage errors stay
// with the worker, as they do with the real queues.
type inlineQueue struct {
	pipeline *biz.Pipeline
}

func (q *inlineQueue) Enqueue(ctx context.Context, task *biz.Task) error {
	_ = q.pipeline.Process(ctx, task)
	return nil
}

type inlineSubmitter struct{}

func (inlineSubmitter) Submit(task func()) error {
	task()
	return nil
}

type testServer struct {
	store  *storagetest.Store
	engine *gin.Engine
}

// fakeAuth stands in for the JWT middleware.
func fakeAuth(required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if user := c.GetHeader("X-User"); user != "" {
			c.Set("user_id", user)
			c.Set("is_staff", c.GetHeader("X-Staff") == "true")
		} else if required {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logger.NewNop()
	store := storagetest.New()
	bus := eventbus.New[biz.FileEvent]()

	pipeline := biz.NewPipeline(store.Files(), store.Blobs(), stubThumbnailer{}, bus, log)
	pipeline.Subscribe(&inlineQueue{pipeline: pipeline})

	quota := biz.NewQuotaGuard(store.Files(), store.Quotas(), data.NewLocalLocker(), nil, 1<<20, log)
	files := biz.NewFileUseCase(store.Files(), store.Groups(), store.Blobs(), quota, bus, 1<<20, time.Now, log)
	groups := biz.NewGroupUseCase(store.Groups(), time.Now, log)
	shares := biz.NewShareUseCase(store.Files(), store.Shares(), store.Analytics(), "https://notes.example.com", time.Now, log)
	recorder := biz.NewAnalyticsRecorder(store.Analytics(), inlineSubmitter{}, time.Now, log)
	media := biz.NewMediaUseCase(store.Files(), store.Blobs(), shares, recorder, log)

	engine := gin.New()
	api := engine.Group("/api/v1", fakeAuth(true))
	service.NewFileService(files, 1<<20, log).RegisterRoutes(api)
	service.NewShareService(shares, log).RegisterRoutes(api)
	service.NewGroupService(groups, log).RegisterRoutes(api)
	service.NewQuotaService(quota, log).RegisterRoutes(api)
	service.NewMediaService(media, log).RegisterRoutes(engine.Group("", fakeAuth(false)))

	return &testServer{store: store, engine: engine}
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (s *testServer) do(t *testing.T, req *http.Request, user string) *httptest.ResponseRecorder {
	t.Helper()
	if user != "" {
		req.Header.Set("X-User", user)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func (s *testServer) json(t *testing.T, method, path, user string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := s.do(t, req, user)
	return w, decode(t, w)
}

func (s *testServer) upload(t *testing.T, user, fileName string, content []byte, fields map[string]string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileName != "" {
		part, err := mw.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/files", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := s.do(t, req, user)
	return w, decode(t, w)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") != "" && bytes.HasPrefix(bytes.TrimSpace(w.Body.Bytes()), []byte("{")) {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return env
}

func payload[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}
