package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"paydiag/config"
	"paydiag/logger"

	"github.com/spf13/cobra"
)

const (
	outputText = "text"
	outputJSON = "json"
)

var (
	cfgFile      string
	logLevel     string
	outputFormat string
	verbose      bool

	// appCfg 在 PersistentPreRunE 中解析，子命令直接使用
	appCfg *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "paydiag",
	Short: "账户与支付诊断工具",
	Long: `paydiag 用于在不改动后端代码的情况下核对账户和支付数据：
  check           对 MySQL 执行只读诊断查询
  probe           对运行中的后端接口发起单次探测
  seed-user       写入一个测试用户并回读校验
  reset-password  重置管理员或用户密码
其余子命令用于查看配置、签发测试 token、检查 Redis 会话和 MinIO 归档。`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "JSON 配置文件路径 (默认 CONFIG_FILE 或 ./config.json)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "日志级别 debug|info|warn|error (默认 LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", outputText, "输出格式 text|json")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "输出 SQL 和调试日志")
}

// setup 解析配置并初始化日志，任何错误都视为启动失败
func setup(cmd *cobra.Command, args []string) error {
	if outputFormat != outputText && outputFormat != outputJSON {
		return fmt.Errorf("unsupported output format %q (want text or json)", outputFormat)
	}

	cfg, err := config.Resolve(config.ResolveOptions{ConfigFile: cfgFile})
	if err != nil {
		return err
	}

	level := cfg.Log.Level
	if logLevel != "" {
		level = logLevel
	}
	if verbose {
		level = string(logger.DebugLevel)
	}
	if err := logger.Init(logger.Config{
		Level:      logger.ParseLevel(level),
		OutputPath: cfg.Log.File,
	}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	appCfg = cfg
	logger.Debug("configuration resolved",
		logger.String("env", cfg.Env),
		logger.String("source", cfg.Source),
		logger.String("command", cmd.CommandPath()),
	)
	return nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
// 只有启动阶段的错误会以非零状态退出，检查或探测失败只体现在报告中。
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		var cfgErr *config.ConfigError
		if errors.As(err, &cfgErr) {
			fmt.Fprintln(os.Stderr, "❌ 配置错误:", err)
		} else {
			fmt.Fprintln(os.Stderr, "❌", err)
		}
		logger.Sync()
		os.Exit(1)
	}
}

// render 按 --output 输出报告，text 模式调用 text 回调
func render(w io.Writer, v interface{}, text func(io.Writer) error) error {
	if outputFormat == outputJSON {
		return writeJSON(w, v)
	}
	return text(w)
}

// guardWrites 生产环境下写操作必须显式 --force
func guardWrites(force bool) error {
	if appCfg.IsProduction() && !force {
		return errors.New("NODE_ENV=production: write commands require --force")
	}
	if appCfg.IsProduction() {
		logger.Warn("running write command against production", logger.String("env", appCfg.Env))
	}
	return nil
}
