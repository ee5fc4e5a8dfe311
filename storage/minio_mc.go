package storage

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"

	"gocddb/core/protocol"
	"gocddb/logger"
)

// DumpStats summarises the objects below a prefix.
type DumpStats struct {
	Objects   int64
	TotalSize int64
	ByPrefix  map[string]int64
}

// GetObjectText reads a whole object. Missing keys yield an error wrapping
// protocol.ErrObjectNotFound.
func (m *MinioClient) GetObjectText(ctx context.Context, key string) (string, error) {
	object, err := m.client.GetObject(ctx, m.bucketName, key, minio.GetObjectOptions{})
	if err != nil {
		return "", m.objectError(key, err)
	}
	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		return "", m.objectError(key, err)
	}
	return string(data), nil
}

func (m *MinioClient) objectError(key string, err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return fmt.Errorf("%s/%s: %w", m.bucketName, key, protocol.ErrObjectNotFound)
	}
	return fmt.Errorf("failed to read %s/%s: %w", m.bucketName, key, err)
}

// PutText uploads text as key.
func (m *MinioClient) PutText(ctx context.Context, key, text string) error {
	_, err := m.client.PutObject(ctx, m.bucketName, key, strings.NewReader(text), int64(len(text)), minio.PutObjectOptions{
		ContentType: "text/plain; charset=utf-8",
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}

// ListPrefixes returns the names of the "directories" directly below prefix.
func (m *MinioClient) ListPrefixes(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	for object := range m.client.ListObjects(ctx, m.bucketName, minio.ListObjectsOptions{Prefix: prefix}) {
		if object.Err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", prefix, object.Err)
		}
		if !strings.HasSuffix(object.Key, "/") {
			continue
		}
		name := strings.TrimSuffix(strings.TrimPrefix(object.Key, prefix), "/")
		if name != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// CountObjects counts the objects below prefix.
func (m *MinioClient) CountObjects(ctx context.Context, prefix string) (int, error) {
	count := 0
	for object := range m.client.ListObjects(ctx, m.bucketName, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if object.Err != nil {
			return 0, fmt.Errorf("failed to list %s: %w", prefix, object.Err)
		}
		count++
	}
	return count, nil
}

// GetDumpStats walks every object below prefix.
func (m *MinioClient) GetDumpStats(ctx context.Context, prefix string) (*DumpStats, error) {
	stats := &DumpStats{ByPrefix: make(map[string]int64)}
	for object := range m.client.ListObjects(ctx, m.bucketName, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if object.Err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", prefix, object.Err)
		}
		stats.Objects++
		stats.TotalSize += object.Size
		rest := strings.TrimPrefix(object.Key, prefix)
		if dir, _, ok := strings.Cut(rest, "/"); ok {
			stats.ByPrefix[dir]++
		}
	}
	return stats, nil
}

// DeleteDirectory removes every object below prefix and returns how many
// objects were deleted.
func (m *MinioClient) DeleteDirectory(ctx context.Context, prefix string) (int, error) {
	var objects []minio.ObjectInfo
	for object := range m.client.ListObjects(ctx, m.bucketName, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if object.Err != nil {
			return 0, fmt.Errorf("failed to list %s: %w", prefix, object.Err)
		}
		objects = append(objects, object)
	}
	if len(objects) == 0 {
		return 0, nil
	}

	objectsCh := make(chan minio.ObjectInfo, len(objects))
	for _, object := range objects {
		objectsCh <- object
	}
	close(objectsCh)

	for rerr := range m.client.RemoveObjects(ctx, m.bucketName, objectsCh, minio.RemoveObjectsOptions{}) {
		if rerr.Err != nil {
			return 0, fmt.Errorf("failed to delete %s: %w", rerr.ObjectName, rerr.Err)
		}
	}
	logger.Info("deleted dump prefix",
		logger.String("bucket", m.bucketName),
		logger.String("prefix", prefix),
		logger.Int("objects", len(objects)))
	return len(objects), nil
}

// FormatSize renders a byte count for humans.
func FormatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
