package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"paydiag/storage"

	"github.com/spf13/cobra"
)

var (
	archivePrefix string
	archiveStats  bool
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "查看 MinIO 中归档的报告",
	Long:  `列出 check --archive 和 probe --archive 写入 MinIO 的报告，按时间倒序。`,
	Example: `  paydiag archive
  paydiag archive --prefix check/2024/06
  paydiag archive --stats`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintf(os.Stderr, "MinIO配置: %s, Bucket: %s\n", appCfg.Minio.Endpoint, appCfg.Minio.Bucket)
		client, err := storage.NewMinioClient(appCfg.Minio)
		if err != nil {
			return fmt.Errorf("无法连接到MinIO: %w", err)
		}
		archiver := storage.NewArchiver(client, appCfg.Minio.Bucket, appCfg.Minio.Region)

		objects, stats, err := archiver.List(cmd.Context(), archivePrefix)
		if err != nil {
			return err
		}
		if archiveStats {
			return render(os.Stdout, stats, func(w io.Writer) error {
				return writeBucketStats(w, stats)
			})
		}
		return render(os.Stdout, objects, func(w io.Writer) error {
			if len(objects) == 0 {
				fmt.Fprintln(w, "没有归档的报告")
				return nil
			}
			for _, o := range objects {
				fmt.Fprintf(w, "%s  %8s  %s\n", o.LastModified.Local().Format("2006-01-02 15:04:05"), formatSize(o.Size), o.Key)
			}
			return writeBucketStats(w, stats)
		})
	},
}

func writeBucketStats(w io.Writer, s *storage.BucketStats) error {
	fmt.Fprintf(w, "\n总报告数: %d\n", s.TotalObjects)
	fmt.Fprintf(w, "总大小: %s\n", formatSize(s.TotalSize))
	if !s.LastModified.IsZero() {
		fmt.Fprintf(w, "最后修改时间: %s\n", s.LastModified.Local().Format(time.RFC3339))
	}
	return nil
}

// formatSize 格式化文件大小
func formatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

func init() {
	archiveCmd.Flags().StringVarP(&archivePrefix, "prefix", "p", "", "reports/ 下的前缀")
	archiveCmd.Flags().BoolVarP(&archiveStats, "stats", "s", false, "只显示统计信息")
	rootCmd.AddCommand(archiveCmd)
}
