package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"paydiag/core/check"
	"paydiag/storage"
)

func writeJSON(w io.Writer, v interface{}) error {
	return check.WriteJSON(w, v)
}

// archiveReport 把报告以 JSON 写入 MinIO，提示信息走 stderr
func archiveReport(ctx context.Context, kind, name string, v interface{}) error {
	client, err := storage.NewMinioClient(appCfg.Minio)
	if err != nil {
		return fmt.Errorf("无法创建MinIO客户端: %w", err)
	}
	// Archive 自行确保存储桶存在
	archiver := storage.NewArchiver(client, appCfg.Minio.Bucket, appCfg.Minio.Region)

	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s report: %w", kind, err)
	}
	info, err := archiver.Archive(ctx, kind, name, payload)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "📦 报告已归档: %s/%s (%d bytes)\n", archiver.Bucket(), info.Key, info.Size)
	return nil
}

// suiteName 归档对象名，取自命令行给出的名称
func suiteName(args []string) string {
	switch len(args) {
	case 0:
		return "all"
	case 1:
		return args[0]
	default:
		return fmt.Sprintf("%s-and-%d-more", args[0], len(args)-1)
	}
}
