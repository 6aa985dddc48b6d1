package service_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apperrors "github.com/lk2023060901/skynotes-backend/internal/pkg/errors"
	"github.com/lk2023060901/skynotes-backend/internal/storage/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadAccepted(t *testing.T) {
	s := newTestServer(t)

	w, env := s.upload(t, "alice", "TEST.txt", []byte("hello"), map[string]string{
		"name":        "test_file",
		"description": "",
		"tags":        "a, b,,c",
	})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	file := payload[service.FileResponse](t, env)
	assert.Equal(t, "test_file.txt", file.Name)
	assert.Nil(t, file.Description)
	assert.Equal(t, []string{"a", "b", "c"}, file.Tags)
	assert.Equal(t, 0, file.Status, "upload responds before processing")
	assert.Equal(t, int64(5), file.Size)

	w, env = s.json(t, http.MethodGet, "/api/v1/files/"+file.ID, "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := payload[service.FileResponse](t, env)
	assert.Equal(t, 4, got.Status)
	assert.Equal(t, "COMPLETED", got.StatusName)
	assert.Equal(t, "/media/"+file.ID+".txt", got.URL)
	if assert.NotNil(t, got.ThumbnailURL) {
		assert.Equal(t, "/media/"+file.ID+"_thumb", *got.ThumbnailURL)
	}
}

func TestUploadErrors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name     string
		user     string
		fileName string
		content  []byte
		status   int
		code     int
	}{
		{"missing file", "alice", "", nil, http.StatusBadRequest, apperrors.ErrFileInvalidInput},
		{"empty file", "alice", "a.txt", []byte{}, http.StatusBadRequest, apperrors.ErrFileInvalidInput},
		{"too large", "alice", "big.bin", make([]byte, 1<<20+1), http.StatusRequestEntityTooLarge, apperrors.ErrFileTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := s.upload(t, tt.user, tt.fileName, tt.content, nil)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, env.Code)
		})
	}

	t.Run("unauthenticated", func(t *testing.T) {
		w, _ := s.upload(t, "", "a.txt", []byte("x"), nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	assert.Zero(t, s.store.FileCount())
}

func TestUploadQuotaExceeded(t *testing.T) {
	s := newTestServer(t)
	s.store.SetQuota("alice", 8)

	w, _ := s.upload(t, "alice", "a.txt", []byte("12345"), nil)
	require.Equal(t, http.StatusAccepted, w.Code)

	w, env := s.upload(t, "alice", "b.txt", []byte("6789"), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.ErrFileQuotaExceeded, env.Code)
	assert.Equal(t, 1, s.store.FileCount())

	w, env = s.json(t, http.MethodGet, "/api/v1/quota", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	usage := payload[service.QuotaResponse](t, env)
	assert.Equal(t, service.QuotaResponse{Used: 5, Limit: 8, Available: 3}, usage)
}

func TestFileAccessControl(t *testing.T) {
	s := newTestServer(t)
	_, env := s.upload(t, "alice", "a.txt", []byte("abc"), nil)
	id := payload[service.FileResponse](t, env).ID

	w, env := s.json(t, http.MethodGet, "/api/v1/files/"+id, "bob", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, apperrors.ErrFileForbidden, env.Code)

	w, env = s.json(t, http.MethodGet, "/api/v1/files/not-a-uuid", "alice", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.ErrFileInvalidID, env.Code)

	w, env = s.json(t, http.MethodDelete, "/api/v1/files/"+id, "bob", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/files/"+id, nil)
	req.Header.Set("X-User", "root")
	req.Header.Set("X-Staff", "true")
	w = s.do(t, req, "")
	assert.Equal(t, http.StatusOK, w.Code, "staff may read any file")
}

func TestUpdateAndDeleteFile(t *testing.T) {
	s := newTestServer(t)
	_, env := s.upload(t, "alice", "draft.md", []byte("# hi"), nil)
	id := payload[service.FileResponse](t, env).ID

	w, env := s.json(t, http.MethodPatch, "/api/v1/files/"+id, "alice", map[string]interface{}{
		"name": "final",
		"tags": []string{"x", "y"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := payload[service.FileResponse](t, env)
	assert.Equal(t, "final.md", updated.Name)
	assert.Equal(t, []string{"x", "y"}, updated.Tags)

	w, env = s.json(t, http.MethodPatch, "/api/v1/files/"+id, "alice", map[string]interface{}{
		"tags": []string{strings.Repeat("t", 17)},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.ErrFileInvalidInput, env.Code)

	w, _ = s.json(t, http.MethodDelete, "/api/v1/files/"+id, "alice", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w, env = s.json(t, http.MethodGet, "/api/v1/files/"+id, "alice", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apperrors.ErrFileNotFound, env.Code)
}
