package biz_test

import (
	"context"
	"strings"
	"testing"

	"github.com/lk2023060901/skynotes-backend/internal/storage/biz"
	"github.com/lk2023060901/skynotes-backend/internal/storage/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadNormalizesFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		req      biz.UploadFileRequest
		wantName string
		wantExt  string
		wantTags []string
	}{
		{
			name:     "extension appended",
			req:      biz.UploadFileRequest{Name: "test_file", FileName: "TEST.txt"},
			wantName: "test_file.txt",
			wantExt:  ".txt",
			wantTags: []string{},
		},
		{
			name:     "extension kept case-insensitively",
			req:      biz.UploadFileRequest{Name: "Report.PDF", FileName: "report.pdf"},
			wantName: "Report.PDF",
			wantExt:  ".pdf",
			wantTags: []string{},
		},
		{
			name:     "name defaults to file name",
			req:      biz.UploadFileRequest{FileName: "photo.jpg"},
			wantName: "photo.jpg",
			wantExt:  ".jpg",
			wantTags: []string{},
		},
		{
			name:     "tags trimmed to six",
			req:      biz.UploadFileRequest{Name: "a", FileName: "a.md", Tags: []string{"1", " 2 ", "", "3", "4", "5", "6", "7"}},
			wantName: "a.md",
			wantExt:  ".md",
			wantTags: []string{"1", "2", "3", "4", "5", "6"},
		},
		{
			name:     "extension from content type",
			req:      biz.UploadFileRequest{Name: "blob", FileName: "blob", ContentType: "image/png"},
			wantName: "blob.png",
			wantExt:  ".png",
			wantTags: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			req.OwnerID = "alice"
			req.Content = []byte("x")

			file, err := f.files.Upload(ctx, &req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, file.Name)
			assert.Equal(t, tt.wantExt, file.Extension)
			assert.Equal(t, tt.wantTags, file.Tags)
			assert.Equal(t, int64(1), file.Size)
			assert.Equal(t, types.StatusRequested, file.Status)
			assert.Equal(t, types.ThumbnailNone, file.ThumbnailState)
			assert.Nil(t, file.Description, "empty description is stored as NULL")
		})
	}
}

func TestUploadValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  biz.UploadFileRequest
		want error
	}{
		{"empty content", biz.UploadFileRequest{FileName: "a.txt"}, biz.ErrInvalidFile},
		{"long tag", biz.UploadFileRequest{FileName: "a.txt", Content: []byte("x"), Tags: []string{strings.Repeat("t", 17)}}, biz.ErrInvalidFile},
		{"long description", biz.UploadFileRequest{FileName: "a.txt", Content: []byte("x"), Description: strings.Repeat("d", 1025)}, biz.ErrInvalidFile},
		{"long name", biz.UploadFileRequest{Name: strings.Repeat("n", 513), FileName: "a", Content: []byte("x")}, biz.ErrInvalidFile},
		{"bad group id", biz.UploadFileRequest{FileName: "a.txt", Content: []byte("x"), GroupID: "42"}, biz.ErrInvalidIdentifier},
		{"unknown group", biz.UploadFileRequest{FileName: "a.txt", Content: []byte("x"), GroupID: "0b6f5d5e-3f7c-4d8a-9a0e-1b2c3d4e5f60"}, biz.ErrGroupNotFound},
		{"too large", biz.UploadFileRequest{FileName: "a.txt", Content: make([]byte, 10<<20+1)}, biz.ErrFileTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			req.OwnerID = "alice"
			_, err := f.files.Upload(ctx, &req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Zero(t, f.store.FileCount())
	assert.Zero(t, f.queue.Len())
}

func TestListFilesByGroup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	group, err := f.groups.Create(ctx, &biz.CreateGroupRequest{OwnerID: "alice", Name: "Music", Icon: "music"})
	require.NoError(t, err)

	_, err = f.files.Upload(ctx, &biz.UploadFileRequest{OwnerID: "alice", FileName: "loose.txt", Content: []byte("a")})
	require.NoError(t, err)
	grouped, err := f.files.Upload(ctx, &biz.UploadFileRequest{OwnerID: "alice", FileName: "song.mp3", Content: []byte("b"), GroupID: group.ID})
	require.NoError(t, err)
	_, err = f.files.Upload(ctx, &biz.UploadFileRequest{OwnerID: "bob", FileName: "other.txt", Content: []byte("c")})
	require.NoError(t, err)

	ungrouped, err := f.files.List(ctx, "alice", "")
	require.NoError(t, err)
	require.Len(t, ungrouped, 1)
	assert.Equal(t, "loose.txt", ungrouped[0].Name)

	inGroup, err := f.files.List(ctx, "alice", group.ID)
	require.NoError(t, err)
	require.Len(t, inGroup, 1)
	assert.Equal(t, grouped.ID, inGroup[0].ID)

	_, err = f.files.List(ctx, "bob", group.ID)
	assert.ErrorIs(t, err, biz.ErrGroupNotFound)
}

func TestUpdateFile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	file := f.upload(t, "alice", "draft.txt", []byte("abc"))

	group, err := f.groups.Create(ctx, &biz.CreateGroupRequest{OwnerID: "alice", Name: "Docs"})
	require.NoError(t, err)

	name := "final"
	desc := "the final version"
	tags := []string{"work"}
	updated, err := f.files.Update(ctx, file.ID, owner("alice"), &biz.UpdateFileRequest{
		Name:        &name,
		Description: &desc,
		Tags:        &tags,
		GroupID:     &group.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "final.txt", updated.Name)
	require.NotNil(t, updated.GroupID)
	assert.Equal(t, group.ID, *updated.GroupID)

	got := f.reload(t, file.ID)
	assert.Equal(t, "final.txt", got.Name)
	assert.Equal(t, "the final version", *got.Description)
	assert.Equal(t, []string{"work"}, got.Tags)
	assert.Equal(t, types.StatusCompleted, got.Status, "metadata updates leave status alone")

	empty := ""
	_, err = f.files.Update(ctx, file.ID, owner("alice"), &biz.UpdateFileRequest{GroupID: &empty})
	require.NoError(t, err)
	assert.Nil(t, f.reload(t, file.ID).GroupID)

	_, err = f.files.Update(ctx, file.ID, owner("bob"), &biz.UpdateFileRequest{Name: &name})
	assert.ErrorIs(t, err, biz.ErrForbidden)
}

func TestGetFile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	file := f.upload(t, "alice", "a.txt", []byte("abc"))

	_, err := f.files.Get(ctx, file.ID, owner("alice"))
	assert.NoError(t, err)
	_, err = f.files.Get(ctx, file.ID, &biz.Principal{UserID: "root", IsStaff: true})
	assert.NoError(t, err)
	_, err = f.files.Get(ctx, file.ID, owner("bob"))
	assert.ErrorIs(t, err, biz.ErrForbidden)
	_, err = f.files.Get(ctx, "xyz", owner("alice"))
	assert.ErrorIs(t, err, biz.ErrInvalidIdentifier)
}

func TestDeleteFileRemovesObjects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	file := f.upload(t, "alice", "a.txt", []byte("abc"))
	got := f.reload(t, file.ID)

	_, err := f.shares.CreateShare(ctx, file.ID, owner("alice"), &biz.CreateShareRequest{})
	require.NoError(t, err)

	assert.ErrorIs(t, f.files.Delete(ctx, file.ID, owner("bob")), biz.ErrForbidden)
	require.NoError(t, f.files.Delete(ctx, file.ID, owner("alice")))

	_, ok := f.store.Blob(got.ContentKey)
	assert.False(t, ok)
	_, ok = f.store.Blob(*got.ThumbnailKey)
	assert.False(t, ok)

	_, err = f.files.Get(ctx, file.ID, owner("alice"))
	assert.ErrorIs(t, err, biz.ErrFileNotFound)

	usage, err := f.quota.Usage(ctx, "alice")
	require.NoError(t, err)
	assert.Zero(t, usage.Used, "deleted files free their quota")
}

func TestUploadSanitizesExtension(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name        string
		fileName    string
		contentType string
		wantExt     string
	}{
		{"upper case folded", "photo.PNG", "", ".png"},
		{"too long", "a.averyverylongext", "", ""},
		{"spaces", "a.t x t", "", ""},
		{"path tricks", "a.tx/../../etc", "", ""},
		{"encoded separator", "a.tx%2F..%2Fy", "", ""},
		{"falls back to content type", "a.bad ext", "image/png", ".png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file, err := f.files.Upload(ctx, &biz.UploadFileRequest{
				OwnerID:     "alice",
				Name:        "upload",
				FileName:    tt.fileName,
				ContentType: tt.contentType,
				Content:     []byte("x"),
			})
			require.NoError(t, err)
			assert.Equal(t, tt.wantExt, file.Extension)

			require.Empty(t, f.queue.Drain(ctx, f.pipeline))
			got := f.reload(t, file.ID)
			assert.Equal(t, "files/"+file.ID+tt.wantExt, got.ContentKey)
			assert.False(t, strings.Contains(strings.TrimPrefix(got.ContentKey, "files/"), "/"))
		})
	}
}
