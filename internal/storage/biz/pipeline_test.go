package biz_test

import (
	"context"
	"errors"
	"testing"

	"github.com/lk2023060901/skynotes-backend/internal/storage/biz"
	"github.com/lk2023060901/skynotes-backend/internal/storage/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineHappyPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var created []string
	f.bus.Register(types.EventFileThumbnailCreated, func(_ context.Context, ev biz.FileEvent) error {
		created = append(created, ev.FileID)
		return nil
	})

	content := []byte("hello world")
	file, err := f.files.Upload(ctx, &biz.UploadFileRequest{
		OwnerID:  "alice",
		Name:     "greeting",
		FileName: "hello.txt",
		Content:  content,
	})
	require.NoError(t, err)

	assert.Equal(t, types.StatusRequested, f.reload(t, file.ID).Status)
	require.Equal(t, 1, f.queue.Len(), "upload enqueues the ingest stage only")

	require.Empty(t, f.queue.Drain(ctx, f.pipeline))

	got := f.reload(t, file.ID)
	assert.Equal(t, types.StatusCompleted, got.Status)
	assert.Equal(t, "files/"+file.ID+".txt", got.ContentKey)
	require.NotNil(t, got.ThumbnailKey)
	assert.Equal(t, "thumbnails/"+file.ID+".png", *got.ThumbnailKey)
	assert.Equal(t, types.ThumbnailCreated, got.ThumbnailState)

	stored, ok := f.store.Blob(got.ContentKey)
	require.True(t, ok)
	assert.Equal(t, content, stored)
	thumb, ok := f.store.Blob(*got.ThumbnailKey)
	require.True(t, ok)
	assert.Equal(t, pngBytes, thumb)

	assert.Equal(t, content, f.thumbs.input, "thumbnailer receives the persisted content")
	assert.Equal(t, []string{file.ID}, created)
}

func TestPipelineThumbnailFailureStillCompletes(t *testing.T) {
	f := newFixture(t)
	f.thumbs.err = errors.New("thumbnailer: service unavailable")

	var created int
	f.bus.Register(types.EventFileThumbnailCreated, func(context.Context, biz.FileEvent) error {
		created++
		return nil
	})

	file := f.upload(t, "alice", "doc.pdf", []byte("%PDF-1.4"))

	got := f.reload(t, file.ID)
	assert.Equal(t, types.StatusCompleted, got.Status)
	assert.Equal(t, types.ThumbnailFailed, got.ThumbnailState)
	assert.Nil(t, got.ThumbnailKey)
	assert.Zero(t, created)
	assert.Equal(t, 1, f.thumbs.calls, "no retries")
}

func TestPipelineRedeliveredTaskDoesNotRegress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	file := f.upload(t, "alice", "a.txt", []byte("abc"))
	require.Equal(t, types.StatusCompleted, f.reload(t, file.ID).Status)

	redelivered := []*biz.Task{
		{Kind: biz.TaskIngest, Event: biz.FileEvent{FileID: file.ID, Extension: ".txt", Content: []byte("abc")}},
		{Kind: biz.TaskThumbnail, Event: biz.FileEvent{FileID: file.ID, Extension: ".txt"}},
	}
	for _, task := range redelivered {
		err := f.pipeline.Process(ctx, task)
		assert.ErrorIs(t, err, types.ErrInvalidTransition)
	}
	assert.Equal(t, types.StatusCompleted, f.reload(t, file.ID).Status)
	assert.Equal(t, 0, f.queue.Len())
}

func TestPipelineFileDeletedMidway(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	file, err := f.files.Upload(ctx, &biz.UploadFileRequest{OwnerID: "alice", FileName: "a.txt", Content: []byte("abc")})
	require.NoError(t, err)
	require.NoError(t, f.files.Delete(ctx, file.ID, owner("alice")))

	errs := f.queue.Drain(ctx, f.pipeline)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], biz.ErrFileNotFound)
}

func TestPipelineStorageFailureStopsAtProcessing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.FailPut = errBoom

	file, err := f.files.Upload(ctx, &biz.UploadFileRequest{OwnerID: "alice", FileName: "a.txt", Content: []byte("abc")})
	require.NoError(t, err)

	errs := f.queue.Drain(ctx, f.pipeline)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], errBoom)
	assert.Equal(t, types.StatusProcessing, f.reload(t, file.ID).Status)
	assert.Equal(t, 0, f.thumbs.calls)
}

func TestUploadReturnsDispatchError(t *testing.T) {
	f := newFixture(t)
	f.queue.err = errBoom

	ctx := context.Background()
	_, err := f.files.Upload(ctx, &biz.UploadFileRequest{OwnerID: "alice", FileName: "a.txt", Content: make([]byte, 1000)})
	assert.ErrorIs(t, err, errBoom)

	assert.Zero(t, f.store.FileCount(), "undispatched record is removed")
	usage, err := f.quota.Usage(ctx, "alice")
	require.NoError(t, err)
	assert.Zero(t, usage.Used)
}

func TestProcessUnknownTaskKind(t *testing.T) {
	f := newFixture(t)
	err := f.pipeline.Process(context.Background(), &biz.Task{Kind: "resize"})
	assert.Error(t, err)
}
