// Package storagetest provides in-memory implementations of the storage
// repositories and object store for use in tests.
package storagetest

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"

	"github.com/lk2023060901/skynotes-backend/internal/storage/biz"
	"github.com/lk2023060901/skynotes-backend/internal/storage/types"
)

// Store holds every table and object in memory. The typed views returned by
// its accessors share the same state, so group statistics and cascades behave
// like the database.
type Store struct {
	mu        sync.Mutex
	files     map[string]*biz.File
	groups    map[string]*biz.Group
	shares    map[string]*biz.FileShare
	analytics []*biz.FileAnalytics
	quotas    map[string]int64
	blobs     map[string][]byte

	// FailPut makes every blob write fail when set.
	FailPut error
}

// New returns an empty store.
func New() *Store {
	return &Store{
		files:  make(map[string]*biz.File),
		groups: make(map[string]*biz.Group),
		shares: make(map[string]*biz.FileShare),
		quotas: make(map[string]int64),
		blobs:  make(map[string][]byte),
	}
}

func (s *Store) Files() *FileRepo { return &FileRepo{s} }

func (s *Store) Groups() *GroupRepo { return &GroupRepo{s} }

func (s *Store) Shares() *ShareRepo { return &ShareRepo{s} }

func (s *Store) Analytics() *AnalyticsRepo { return &AnalyticsRepo{s} }

func (s *Store) Quotas() *QuotaRepo { return &QuotaRepo{s} }

func (s *Store) Blobs() *BlobStore { return &BlobStore{s} }

// SetQuota sets a per-owner limit.
func (s *Store) SetQuota(ownerID string, n int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quotas[ownerID] = n
}

// FileCount reports how many file rows exist.
func (s *Store) FileCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}

// AnalyticsCount reports how many access records exist.
func (s *Store) AnalyticsCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.analytics)
}

// Blob returns the stored bytes for key.
func (s *Store) Blob(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blobs[key]
	return b, ok
}

func copyFile(f *biz.File) *biz.File {
	c := *f
	c.Tags = append([]string(nil), f.Tags...)
	return &c
}

// FileRepo implements biz.FileRepo.
type FileRepo struct{ s *Store }

func (r *FileRepo) Create(_ context.Context, f *biz.File) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.files[f.ID] = copyFile(f)
	return nil
}

func (r *FileRepo) GetByID(_ context.Context, id string) (*biz.File, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	f, ok := r.s.files[id]
	if !ok {
		return nil, biz.ErrFileNotFound
	}
	return copyFile(f), nil
}

func (r *FileRepo) ListByOwner(_ context.Context, ownerID string, groupID *string) ([]*biz.File, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*biz.File, 0)
	for _, f := range r.s.files {
		if f.OwnerID != ownerID {
			continue
		}
		if groupID == nil && f.GroupID != nil {
			continue
		}
		if groupID != nil && (f.GroupID == nil || *f.GroupID != *groupID) {
			continue
		}
		out = append(out, copyFile(f))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *FileRepo) Update(_ context.Context, f *biz.File) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.files[f.ID]
	if !ok {
		return biz.ErrFileNotFound
	}
	cur.Name, cur.Description, cur.Tags, cur.GroupID = f.Name, f.Description, f.Tags, f.GroupID
	cur.UpdatedAt = f.UpdatedAt
	return nil
}

func (r *FileRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.files[id]; !ok {
		return biz.ErrFileNotFound
	}
	delete(r.s.files, id)
	for sid, sh := range r.s.shares {
		if sh.FileID == id {
			delete(r.s.shares, sid)
		}
	}
	return nil
}

func (r *FileRepo) AdvanceStatus(_ context.Context, id string, from, to types.FileStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	f, ok := r.s.files[id]
	if !ok {
		return biz.ErrFileNotFound
	}
	if f.Status != from {
		return types.ErrInvalidTransition
	}
	f.Status = to
	return nil
}

func (r *FileRepo) SetContentKey(_ context.Context, id, key string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	f, ok := r.s.files[id]
	if !ok {
		return biz.ErrFileNotFound
	}
	f.ContentKey = key
	return nil
}

func (r *FileRepo) SetThumbnail(_ context.Context, id string, key *string, state types.ThumbnailState) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	f, ok := r.s.files[id]
	if !ok {
		return biz.ErrFileNotFound
	}
	f.ThumbnailKey, f.ThumbnailState = key, state
	return nil
}

func (r *FileRepo) TotalSize(_ context.Context, ownerID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var total int64
	for _, f := range r.s.files {
		if f.OwnerID == ownerID {
			total += f.Size
		}
	}
	return total, nil
}

// GroupRepo implements biz.GroupRepo.
type GroupRepo struct{ s *Store }

func (r *GroupRepo) Create(_ context.Context, g *biz.Group) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *g
	r.s.groups[g.ID] = &c
	return nil
}

func (r *GroupRepo) withStats(g *biz.Group) *biz.Group {
	c := *g
	c.FileCount, c.TotalSize = 0, 0
	for _, f := range r.s.files {
		if f.GroupID != nil && *f.GroupID == g.ID {
			c.FileCount++
			c.TotalSize += f.Size
		}
	}
	return &c
}

func (r *GroupRepo) GetByID(_ context.Context, id string) (*biz.Group, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	g, ok := r.s.groups[id]
	if !ok {
		return nil, biz.ErrGroupNotFound
	}
	return r.withStats(g), nil
}

func (r *GroupRepo) ListByOwner(_ context.Context, ownerID string) ([]*biz.Group, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*biz.Group, 0)
	for _, g := range r.s.groups {
		if g.OwnerID == ownerID {
			out = append(out, r.withStats(g))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *GroupRepo) Update(_ context.Context, g *biz.Group) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.groups[g.ID]
	if !ok {
		return biz.ErrGroupNotFound
	}
	cur.Name, cur.Icon, cur.Description, cur.UpdatedAt = g.Name, g.Icon, g.Description, g.UpdatedAt
	return nil
}

func (r *GroupRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.groups[id]; !ok {
		return biz.ErrGroupNotFound
	}
	delete(r.s.groups, id)
	for _, f := range r.s.files {
		if f.GroupID != nil && *f.GroupID == id {
			f.GroupID = nil
		}
	}
	return nil
}

// ShareRepo implements biz.ShareRepo.
type ShareRepo struct{ s *Store }

func (r *ShareRepo) Create(_ context.Context, sh *biz.FileShare) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *sh
	r.s.shares[sh.ID] = &c
	return nil
}

func (r *ShareRepo) ListByFile(_ context.Context, fileID string) ([]*biz.FileShare, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*biz.FileShare, 0)
	for _, sh := range r.s.shares {
		if sh.FileID == fileID {
			c := *sh
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *ShareRepo) find(fileID, token string, activeOnly bool) *biz.FileShare {
	for _, sh := range r.s.shares {
		if sh.FileID == fileID && sh.Token == token && (sh.IsActive || !activeOnly) {
			return sh
		}
	}
	return nil
}

func (r *ShareRepo) GetByToken(_ context.Context, fileID, token string) (*biz.FileShare, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sh := r.find(fileID, token, false)
	if sh == nil {
		return nil, biz.ErrShareNotFound
	}
	c := *sh
	return &c, nil
}

func (r *ShareRepo) GetActive(_ context.Context, fileID, token string) (*biz.FileShare, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sh := r.find(fileID, token, true)
	if sh == nil {
		return nil, biz.ErrShareNotFound
	}
	c := *sh
	return &c, nil
}

func (r *ShareRepo) Deactivate(_ context.Context, fileID, token string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sh := r.find(fileID, token, true)
	if sh == nil {
		return biz.ErrShareNotFound
	}
	sh.IsActive = false
	return nil
}

// AnalyticsRepo implements biz.AnalyticsRepo.
type AnalyticsRepo struct{ s *Store }

func (r *AnalyticsRepo) Create(_ context.Context, a *biz.FileAnalytics) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *a
	r.s.analytics = append(r.s.analytics, &c)
	return nil
}

func (r *AnalyticsRepo) ListByShare(_ context.Context, shareID string) ([]*biz.FileAnalytics, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*biz.FileAnalytics, 0)
	for _, a := range r.s.analytics {
		if a.ShareID == shareID {
			c := *a
			out = append(out, &c)
		}
	}
	return out, nil
}

// QuotaRepo implements biz.QuotaRepo.
type QuotaRepo struct{ s *Store }

func (r *QuotaRepo) GetLimit(_ context.Context, ownerID string) (int64, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.quotas[ownerID]
	return n, ok, nil
}

func (r *QuotaRepo) SetLimit(_ context.Context, ownerID string, limit int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.quotas[ownerID] = limit
	return nil
}

// BlobStore implements biz.BlobStore.
type BlobStore struct{ s *Store }

func (b *BlobStore) Put(_ context.Context, key string, data []byte, _ string) error {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	if b.s.FailPut != nil {
		return b.s.FailPut
	}
	b.s.blobs[key] = append([]byte(nil), data...)
	return nil
}

func (b *BlobStore) Get(_ context.Context, key string) ([]byte, error) {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	data, ok := b.s.blobs[key]
	if !ok {
		return nil, biz.ErrBlobNotFound
	}
	return append([]byte(nil), data...), nil
}

func (b *BlobStore) Open(ctx context.Context, key string) (*biz.Blob, error) {
	data, err := b.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return &biz.Blob{Body: io.NopCloser(bytes.NewReader(data)), Size: int64(len(data))}, nil
}

func (b *BlobStore) Delete(_ context.Context, key string) error {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	if _, ok := b.s.blobs[key]; !ok {
		return biz.ErrBlobNotFound
	}
	delete(b.s.blobs, key)
	return nil
}
