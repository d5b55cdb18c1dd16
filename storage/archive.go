package storage

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"paydiag/logger"

	"github.com/minio/minio-go/v7"
)

const reportPrefix = "reports/"

// ObjectInfo 归档对象信息
type ObjectInfo struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
	ContentType  string    `json:"contentType,omitempty"`
}

// BucketStats 前缀下的统计信息
type BucketStats struct {
	TotalObjects int64     `json:"totalObjects"`
	TotalSize    int64     `json:"totalSize"`
	LastModified time.Time `json:"lastModified"`
}

// Archiver 把检查和探测报告以 JSON 存入 MinIO
type Archiver struct {
	client *minio.Client
	bucket string
	region string
	now    func() time.Time
}

func NewArchiver(client *minio.Client, bucket, region string) *Archiver {
	return &Archiver{client: client, bucket: bucket, region: region, now: time.Now}
}

func (a *Archiver) Bucket() string {
	return a.bucket
}

// EnsureBucket 存储桶不存在时创建
func (a *Archiver) EnsureBucket(ctx context.Context) (bool, error) {
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return false, fmt.Errorf("failed to check bucket %s: %w", a.bucket, err)
	}
	if exists {
		return false, nil
	}
	if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{Region: a.region}); err != nil {
		return false, fmt.Errorf("failed to create bucket %s: %w", a.bucket, err)
	}
	logger.Info("archive bucket created", logger.String("bucket", a.bucket))
	return true, nil
}

// Archive 上传一份报告，kind 为 check 或 probe
func (a *Archiver) Archive(ctx context.Context, kind, name string, payload []byte) (ObjectInfo, error) {
	if _, err := a.EnsureBucket(ctx); err != nil {
		return ObjectInfo{}, err
	}
	key := ObjectKey(kind, name, a.now())
	info, err := a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(payload), int64(len(payload)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("failed to upload report %s: %w", key, err)
	}
	logger.Info("report archived", logger.String("bucket", a.bucket), logger.String("key", key), logger.Int64("size", info.Size))
	return ObjectInfo{Key: key, Size: info.Size, LastModified: info.LastModified, ContentType: "application/json"}, nil
}

// List 列出 prefix 下的报告，按时间倒序
func (a *Archiver) List(ctx context.Context, prefix string) ([]ObjectInfo, *BucketStats, error) {
	if !strings.HasPrefix(prefix, reportPrefix) {
		prefix = reportPrefix + strings.TrimPrefix(prefix, "/")
	}
	stats := &BucketStats{}
	objects := []ObjectInfo{}
	for object := range a.client.ListObjects(ctx, a.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if object.Err != nil {
			return nil, nil, fmt.Errorf("failed to list objects under %s: %w", prefix, object.Err)
		}
		stats.TotalObjects++
		stats.TotalSize += object.Size
		if object.LastModified.After(stats.LastModified) {
			stats.LastModified = object.LastModified
		}
		objects = append(objects, ObjectInfo{
			Key:          object.Key,
			Size:         object.Size,
			LastModified: object.LastModified,
			ContentType:  object.ContentType,
		})
	}
	sort.SliceStable(objects, func(i, j int) bool {
		return objects[i].LastModified.After(objects[j].LastModified)
	})
	return objects, stats, nil
}

// ObjectKey reports/<kind>/<yyyy>/<mm>/<dd>/<name>-<utc 时间戳>.json
func ObjectKey(kind, name string, t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%s%s/%s/%s-%s.json",
		reportPrefix, sanitize(kind), t.Format("2006/01/02"), sanitize(name), t.Format("20060102T150405Z"))
}

// sanitize 只保留字母、数字、- 和 _
func sanitize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "report"
	}
	return b.String()
}
