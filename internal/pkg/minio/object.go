package minio

import (
	"context"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// ObjectInfo contains object metadata
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	ETag         string
	LastModified time.Time
}

// PutObject uploads an object into the bucket
func (c *Client) PutObject(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (ObjectInfo, error) {
	if objectName == "" {
		return ObjectInfo{}, wrapError("PutObject", ErrInvalidObjectName, c.config.Bucket, objectName)
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	info, err := c.client.PutObject(ctx, c.config.Bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return ObjectInfo{}, wrapError("PutObject", err, c.config.Bucket, objectName)
	}

	c.logger.Debug("object uploaded",
		zap.String("object", objectName),
		zap.Int64("size", info.Size),
	)

	return ObjectInfo{
		Key:          info.Key,
		Size:         info.Size,
		ContentType:  contentType,
		ETag:         info.ETag,
		LastModified: info.LastModified,
	}, nil
}

// GetObject opens an object for reading. The caller must close the reader.
// A missing object is reported as ErrObjectNotFound.
func (c *Client) GetObject(ctx context.Context, objectName string) (io.ReadCloser, ObjectInfo, error) {
	obj, err := c.client.GetObject(ctx, c.config.Bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, ObjectInfo{}, wrapError("GetObject", err, c.config.Bucket, objectName)
	}

	// GetObject is lazy; Stat surfaces NoSuchKey before any bytes are served
	st, err := obj.Stat()
	if err != nil {
		obj.Close()
		if IsNotFound(err) {
			err = ErrObjectNotFound
		}
		return nil, ObjectInfo{}, wrapError("GetObject", err, c.config.Bucket, objectName)
	}

	return obj, ObjectInfo{
		Key:          st.Key,
		Size:         st.Size,
		ContentType:  st.ContentType,
		ETag:         st.ETag,
		LastModified: st.LastModified,
	}, nil
}

// RemoveObject deletes an object. Removing a missing object is not an error.
func (c *Client) RemoveObject(ctx context.Context, objectName string) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	if err := c.client.RemoveObject(ctx, c.config.Bucket, objectName, minio.RemoveObjectOptions{}); err != nil {
		return wrapError("RemoveObject", err, c.config.Bucket, objectName)
	}
	return nil
}
