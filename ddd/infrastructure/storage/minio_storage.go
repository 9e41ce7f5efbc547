package storage

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"

	"cliparr/internal/resource"
	"cliparr/pkg/logger"
)

// MinioStorage MinIO 镜像存储，对象键为 <prefix>/<dir>/<相对路径>
type MinioStorage struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewMinioStorage 基于已初始化的 MinIO 资源创建存储；未启用时返回 nil
func NewMinioStorage(r *resource.MinioResource) *MinioStorage {
	if r == nil || r.GetClient() == nil {
		return nil
	}
	return NewMinioStorageWithClient(r.GetClient(), r.GetBucketName(), r.GetPrefix())
}

// NewMinioStorageWithClient wires an explicit client, bucket and key prefix.
func NewMinioStorageWithClient(client *minio.Client, bucket, prefix string) *MinioStorage {
	return &MinioStorage{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// ObjectKey returns the key a file at rel inside dir is stored under.
func (s *MinioStorage) ObjectKey(dir, rel string) string {
	parts := []string{dir, filepath.ToSlash(rel)}
	if s.prefix != "" {
		parts = append([]string{s.prefix}, parts...)
	}
	return path.Join(parts...)
}

// Publish 上传 localDir 下的全部产物
func (s *MinioStorage) Publish(ctx context.Context, dir, localDir string) error {
	var uploaded int
	err := filepath.WalkDir(localDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(localDir, p)
		if err != nil {
			return err
		}
		if err := s.putFile(ctx, p, s.ObjectKey(dir, rel)); err != nil {
			return err
		}
		uploaded++
		return nil
	})
	if err != nil {
		return err
	}
	logger.Info("Clip artifacts mirrored", map[string]interface{}{
		"dir":     dir,
		"bucket":  s.bucket,
		"objects": uploaded,
	})
	return nil
}

func (s *MinioStorage) putFile(ctx context.Context, localPath, objectKey string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open local file failed: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("get file info failed: %w", err)
	}

	_, err = s.client.PutObject(ctx, s.bucket, objectKey, file, info.Size(), minio.PutObjectOptions{
		ContentType: ContentType(objectKey),
	})
	if err != nil {
		logger.Error("Failed to upload artifact to MinIO", map[string]interface{}{
			"local_path": localPath,
			"object_key": objectKey,
			"error":      err.Error(),
		})
		return fmt.Errorf("upload artifact to minio failed: %w", err)
	}
	return nil
}

// Remove 删除 dir 下的全部对象，返回释放的字节数
func (s *MinioStorage) Remove(ctx context.Context, dir string) (int64, error) {
	prefix := s.ObjectKey(dir, "") + "/"
	var total int64
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return total, fmt.Errorf("list objects under %s: %w", prefix, obj.Err)
		}
		if err := s.client.RemoveObject(ctx, s.bucket, obj.Key, minio.RemoveObjectOptions{}); err != nil {
			return total, fmt.Errorf("remove object %s: %w", obj.Key, err)
		}
		total += obj.Size
	}
	return total, nil
}

// ContentType 根据文件扩展名获取内容类型
func ContentType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".m3u8":
		return "application/vnd.apple.mpegurl"
	case ".ts":
		return "video/mp2t"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".mp4":
		return "video/mp4"
	default:
		return "application/octet-stream"
	}
}
