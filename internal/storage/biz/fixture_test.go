package biz_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lk2023060901/skynotes-backend/internal/pkg/eventbus"
	"github.com/lk2023060901/skynotes-backend/internal/pkg/logger"
	"github.com/lk2023060901/skynotes-backend/internal/storage/biz"
	"github.com/lk2023060901/skynotes-backend/internal/storage/data"
	"github.com/lk2023060901/skynotes-backend/internal/storage/storagetest"
	"github.com/stretchr/testify/require"
)

var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fakeThumbnailer struct {
	mu    sync.Mutex
	out   []byte
	err   error
	calls int
	input []byte
}

func (f *fakeThumbnailer) GenerateThumbnail(_ context.Context, content []byte) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.input = append([]byte(nil), content...)
	if f.err != nil {
		return nil, f.err
	}
	return f.out, nil
}

// memQueue records tasks and runs them on demand, standing in for workers.
type memQueue struct {
	mu    sync.Mutex
	tasks []*biz.Task
	err   error
}

func (q *memQueue) Enqueue(_ context.Context, task *biz.Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.tasks = append(q.tasks, task)
	return nil
}

func (q *memQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

func (q *memQueue) pop() *biz.Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tasks) == 0 {
		return nil
	}
	t := q.tasks[0]
	q.tasks = q.tasks[1:]
	return t
}

// Drain processes queued tasks until the queue is empty and returns the
// errors reported by each stage.
func (q *memQueue) Drain(ctx context.Context, p *biz.Pipeline) []error {
	var errs []error
	for t := q.pop(); t != nil; t = q.pop() {
		if err := p.Process(ctx, t); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

type syncSubmitter struct {
	err error
}

func (s syncSubmitter) Submit(task func()) error {
	if s.err != nil {
		return s.err
	}
	task()
	return nil
}

type fixture struct {
	store    *storagetest.Store
	clock    *fakeClock
	bus      *eventbus.Bus[biz.FileEvent]
	queue    *memQueue
	thumbs   *fakeThumbnailer
	pipeline *biz.Pipeline
	quota    *biz.QuotaGuard
	files    *biz.FileUseCase
	groups   *biz.GroupUseCase
	shares   *biz.ShareUseCase
	media    *biz.MediaUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	log := logger.NewNop()
	store := storagetest.New()
	clock := &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	bus := eventbus.New[biz.FileEvent]()
	q := &memQueue{}
	thumbs := &fakeThumbnailer{out: pngBytes}

	pipeline := biz.NewPipeline(store.Files(), store.Blobs(), thumbs, bus, log)
	pipeline.Subscribe(q)

	quota := biz.NewQuotaGuard(store.Files(), store.Quotas(), data.NewLocalLocker(), nil, 1<<20, log)
	shares := biz.NewShareUseCase(store.Files(), store.Shares(), store.Analytics(), "https://notes.example.com/", clock.Now, log)
	recorder := biz.NewAnalyticsRecorder(store.Analytics(), syncSubmitter{}, clock.Now, log)

	return &fixture{
		store:    store,
		clock:    clock,
		bus:      bus,
		queue:    q,
		thumbs:   thumbs,
		pipeline: pipeline,
		quota:    quota,
		files:    biz.NewFileUseCase(store.Files(), store.Groups(), store.Blobs(), quota, bus, 10<<20, clock.Now, log),
		groups:   biz.NewGroupUseCase(store.Groups(), clock.Now, log),
		shares:   shares,
		media:    biz.NewMediaUseCase(store.Files(), store.Blobs(), shares, recorder, log),
	}
}

// upload stores a file for owner and runs the pipeline to completion.
func (f *fixture) upload(t *testing.T, owner, fileName string, content []byte) *biz.File {
	t.Helper()
	file, err := f.files.Upload(context.Background(), &biz.UploadFileRequest{
		OwnerID:  owner,
		Name:     fileName,
		FileName: fileName,
		Content:  content,
	})
	require.NoError(t, err)
	require.Empty(t, f.queue.Drain(context.Background(), f.pipeline))
	return file
}

func (f *fixture) reload(t *testing.T, id string) *biz.File {
	t.Helper()
	file, err := f.store.Files().GetByID(context.Background(), id)
	require.NoError(t, err)
	return file
}

var errBoom = errors.New("boom")

func owner(id string) *biz.Principal {
	return &biz.Principal{UserID: id}
}
