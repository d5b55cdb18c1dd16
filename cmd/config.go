package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"paydiag/config"
	"paydiag/db"
	"paydiag/logger"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var configPing bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "查看和校验配置",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "显示合并后的配置，凭据已脱敏",
	RunE: func(cmd *cobra.Command, args []string) error {
		redacted := appCfg.Redacted()
		return render(os.Stdout, redacted, func(w io.Writer) error {
			for _, k := range config.RedactedKeys(redacted) {
				fmt.Fprintf(w, "%-22s %s\n", k, redacted[k])
			}
			return nil
		})
	},
}

type configCheckReport struct {
	Database       string   `json:"database"`
	DatabaseError  string   `json:"databaseError,omitempty"`
	Reachable      *bool    `json:"reachable,omitempty"`
	ReachableError string   `json:"reachableError,omitempty"`
	WechatPay      bool     `json:"wechatPayConfigured"`
	WechatIssues   []string `json:"wechatPayIssues"`
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "校验数据库描述和微信支付配置",
	Example: `  paydiag config check
  paydiag config check --ping`,
	RunE: func(cmd *cobra.Command, args []string) error {
		report := configCheckReport{WechatIssues: []string{}}

		conn, err := appCfg.Connection()
		if err != nil {
			report.DatabaseError = err.Error()
		} else {
			report.Database = conn.String()
			if configPing {
				pingDatabase(cmd.Context(), conn, &report)
			}
		}

		report.WechatPay = appCfg.WechatPay.Configured()
		if report.WechatPay {
			report.WechatIssues = append(report.WechatIssues, appCfg.WechatPay.Validate()...)
		}

		return render(os.Stdout, report, func(w io.Writer) error {
			return writeConfigCheck(w, report)
		})
	},
}

// pingDatabase 建立一次连接并执行 SELECT 1，失败原因写入报告
func pingDatabase(ctx context.Context, conn config.ConnectionConfig, report *configCheckReport) {
	err := db.NewConnector(conn, db.Options{Verbose: verbose}).WithSession(ctx, func(gdb *gorm.DB) error {
		return gdb.Exec("SELECT 1").Error
	})
	ok := err == nil
	report.Reachable = &ok
	if err != nil {
		report.ReachableError = err.Error()
		logger.Warn("database ping failed", logger.String("target", conn.String()), logger.ErrorField(err))
	}
}

func writeConfigCheck(w io.Writer, r configCheckReport) error {
	if r.DatabaseError != "" {
		fmt.Fprintf(w, "❌ 数据库: %s\n", r.DatabaseError)
	} else {
		fmt.Fprintf(w, "✅ 数据库: %s\n", r.Database)
	}
	if r.Reachable != nil {
		if *r.Reachable {
			fmt.Fprintln(w, "✅ 数据库连接成功")
		} else {
			fmt.Fprintf(w, "❌ 数据库无法连接: %s\n", r.ReachableError)
		}
	}
	switch {
	case !r.WechatPay:
		fmt.Fprintln(w, "⏭  微信支付: 未配置")
	case len(r.WechatIssues) == 0:
		fmt.Fprintln(w, "✅ 微信支付: 配置完整")
	default:
		fmt.Fprintf(w, "❌ 微信支付: %d 个问题\n", len(r.WechatIssues))
		for _, issue := range r.WechatIssues {
			fmt.Fprintf(w, "   - %s\n", issue)
		}
	}
	return nil
}

func init() {
	configCheckCmd.Flags().BoolVar(&configPing, "ping", false, "同时尝试连接数据库")
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configCheckCmd)
	rootCmd.AddCommand(configCmd)
}
