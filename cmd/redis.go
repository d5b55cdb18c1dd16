package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"paydiag/cache"
	"paydiag/logger"

	"github.com/spf13/cobra"
)

var redisSession string

var redisCmd = &cobra.Command{
	Use:   "redis",
	Short: "Redis连接测试和会话查看",
	Long: `测试后端会话所在的 Redis 是否可达。
指定 --session 时按 REDIS_SESSION_PREFIX 拼出键名，显示是否存在、剩余 TTL 和数据大小，不输出会话内容。`,
	Example: `  paydiag redis
  paydiag redis --session <会话ID>`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintf(os.Stderr, "Redis配置: %s:%s, DB: %d\n", appCfg.Redis.Host, appCfg.Redis.Port, appCfg.Redis.DB)

		client := cache.NewRedisClient(appCfg.Redis)
		defer func() {
			if err := client.Close(); err != nil {
				logger.Warn("关闭Redis连接时发生错误", logger.ErrorField(err))
			}
		}()

		latency, err := cache.Ping(cmd.Context(), client)
		if err != nil {
			return fmt.Errorf("无法连接到Redis: %w", err)
		}
		fmt.Printf("✅ Redis连接成功 (%s)\n", latency.Round(time.Microsecond))

		if redisSession == "" {
			return nil
		}
		info, err := cache.NewSessionInspector(client, appCfg.Redis.SessionPrefix).Lookup(cmd.Context(), redisSession)
		if err != nil {
			return err
		}
		return render(os.Stdout, info, func(w io.Writer) error {
			return writeSessionInfo(w, info)
		})
	},
}

func writeSessionInfo(w io.Writer, info *cache.SessionInfo) error {
	if !info.Exists {
		fmt.Fprintf(w, "❌ 会话不存在: %s\n", info.Key)
		return nil
	}
	fmt.Fprintf(w, "✅ 会话存在: %s\n", info.Key)
	fmt.Fprintf(w, "type:   %s\n", info.Type)
	if ttl, ok := info.TTL.Get(); ok {
		fmt.Fprintf(w, "ttl:    %s\n", ttl.Round(time.Second))
	} else if info.Persistent {
		fmt.Fprintln(w, "ttl:    永不过期")
	}
	fmt.Fprintf(w, "size:   %d\n", info.Size)
	if uid, ok := info.UserID.Get(); ok {
		fmt.Fprintf(w, "userId: %d\n", uid)
	}
	return nil
}

func init() {
	redisCmd.Flags().StringVarP(&redisSession, "session", "s", "", "要查看的会话ID")
	rootCmd.AddCommand(redisCmd)
}
