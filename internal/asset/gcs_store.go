package asset

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/blues/grants/internal/config"
	"github.com/blues/grants/internal/logger"
	"github.com/google/uuid"
	"google.golang.org/api/option"
)

// GCSStore 将 logo 上传到 GCS bucket
type GCSStore struct {
	client        *storage.Client
	bucket        string
	prefix        string
	publicBaseURL string
}

// NewGCSStore 创建 GCS 存储，配置了凭证文件时使用该文件，否则使用默认凭证
func NewGCSStore(ctx context.Context, cfg config.StorageConfig) (*GCSStore, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("storage bucket not configured")
	}

	opts := []option.ClientOption{option.WithScopes(storage.ScopeReadWrite)}
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	logger.Info("Asset store initialized (bucket: %s)", cfg.Bucket)
	return &GCSStore{
		client:        client,
		bucket:        cfg.Bucket,
		prefix:        cfg.Prefix,
		publicBaseURL: strings.TrimRight(strings.TrimSpace(cfg.PublicBaseURL), "/"),
	}, nil
}

// Upload 写入对象并返回公开访问地址
func (s *GCSStore) Upload(ctx context.Context, name, contentType string, r io.Reader) (string, error) {
	key := ObjectKey(s.prefix, name)

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if w.ContentType == "" {
		w.ContentType = ContentTypeForName(name)
	}
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to write data to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to close GCS writer: %w", err)
	}

	logger.Info("Uploaded asset %s to bucket %s", key, s.bucket)
	return PublicURL(s.publicBaseURL, s.bucket, key), nil
}

// Close 关闭客户端
func (s *GCSStore) Close() error {
	return s.client.Close()
}

// ObjectKey 生成唯一对象名，保留原始扩展名
func ObjectKey(prefix, name string) string {
	ext := strings.ToLower(path.Ext(path.Base(strings.ReplaceAll(name, "\\", "/"))))
	key := uuid.NewString() + ext
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return key
	}
	return prefix + "/" + key
}

// PublicURL 配置了 CDN 地址时使用 CDN，否则使用 GCS 公开地址
func PublicURL(baseURL, bucket, key string) string {
	key = strings.TrimLeft(key, "/")
	if baseURL != "" {
		return fmt.Sprintf("%s/%s", strings.TrimRight(baseURL, "/"), key)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, key)
}

// ContentTypeForName 根据扩展名推断图片类型
func ContentTypeForName(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".svg":
		return "image/svg+xml"
	default:
		return "application/octet-stream"
	}
}
