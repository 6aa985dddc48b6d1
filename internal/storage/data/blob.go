package data

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	pkgminio "github.com/lk2023060901/skynotes-backend/internal/pkg/minio"
	"github.com/lk2023060901/skynotes-backend/internal/storage/biz"
)

// MinIOBlobStorage 实现 biz.BlobStore 接口
type MinIOBlobStorage struct {
	client *pkgminio.Client
}

// NewMinIOBlobStorage 创建 MinIO 对象存储
func NewMinIOBlobStorage(client *pkgminio.Client) *MinIOBlobStorage {
	return &MinIOBlobStorage{client: client}
}

// Put 上传对象
func (s *MinIOBlobStorage) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, key, bytes.NewReader(data), int64(len(data)), contentType)
	if err != nil {
		return fmt.Errorf("failed to upload object: %w", err)
	}
	return nil
}

// Get 读取完整对象
func (s *MinIOBlobStorage) Get(ctx context.Context, key string) ([]byte, error) {
	blob, err := s.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer blob.Body.Close()

	data, err := io.ReadAll(blob.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object: %w", err)
	}
	return data, nil
}

// Open 打开对象，调用方负责关闭
func (s *MinIOBlobStorage) Open(ctx context.Context, key string) (*biz.Blob, error) {
	body, info, err := s.client.GetObject(ctx, key)
	if err != nil {
		if errors.Is(err, pkgminio.ErrObjectNotFound) {
			return nil, biz.ErrBlobNotFound
		}
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	return &biz.Blob{Body: body, Size: info.Size, ContentType: info.ContentType}, nil
}

// Delete 删除对象
func (s *MinIOBlobStorage) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, key); err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}
