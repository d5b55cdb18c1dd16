package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"paydiag/core/auth"
	"paydiag/core/probe"
	"paydiag/logger"
	"paydiag/model"

	"github.com/spf13/cobra"
)

var (
	probeBaseURL      string
	probeTimeout      time.Duration
	probeSession      string
	probeAdminSession string
	probeBearer       string
	probeMintUser     int64
	probeUserID       int64
	probePage         int
	probeLimit        int
	probeModel        string
	probeQuestionType string
	probeArchive      bool
	probeList         bool
)

var probeCmd = &cobra.Command{
	Use:   "probe [scenario...|all]",
	Short: "对后端接口发起单次探测",
	Long: `按场景名向运行中的后端发送一次 HTTP 请求，并按状态码和响应结构归类。
不带名称或使用 all 时执行全部不修改数据的场景，credits-deduct 需要显式指定。
缺少会话或 token 的场景会被跳过。探测失败只体现在报告中，进程仍以 0 退出。`,
	Example: `  paydiag probe health packages
  paydiag probe orders --session <会话ID>
  paydiag probe invite-stats --session <会话ID> --user-id 42
  paydiag probe credits-deduct --mint-user 42 --model gpt-4o --question-type chat
  paydiag probe all -o json --archive`,
	RunE: runProbe,
}

func init() {
	probeCmd.Flags().StringVar(&probeBaseURL, "base-url", "", "后端地址 (默认 PROBE_BASE_URL)")
	probeCmd.Flags().DurationVar(&probeTimeout, "timeout", 0, "单个请求超时 (默认 PROBE_TIMEOUT)")
	probeCmd.Flags().StringVar(&probeSession, "session", "", "普通用户会话ID (默认 PROBE_SESSION_ID)")
	probeCmd.Flags().StringVar(&probeAdminSession, "admin-session", "", "管理员会话ID (默认 PROBE_ADMIN_SESSION_ID)")
	probeCmd.Flags().StringVar(&probeBearer, "bearer", "", "Bearer token (默认 PROBE_BEARER_TOKEN)")
	probeCmd.Flags().Int64Var(&probeMintUser, "mint-user", 0, "用 JWT_SECRET 为该用户ID签发 Bearer token")
	probeCmd.Flags().Int64Var(&probeUserID, "user-id", 0, "邀请接口的 userId 查询参数")
	probeCmd.Flags().IntVar(&probePage, "page", 1, "邀请接口分页")
	probeCmd.Flags().IntVar(&probeLimit, "limit", 20, "邀请接口每页数量")
	probeCmd.Flags().StringVar(&probeModel, "model", "", "扣费场景的 modelName")
	probeCmd.Flags().StringVar(&probeQuestionType, "question-type", "", "扣费场景的 questionType")
	probeCmd.Flags().BoolVar(&probeArchive, "archive", false, "把报告归档到 MinIO")
	probeCmd.Flags().BoolVarP(&probeList, "list", "l", false, "列出可用的场景")
	rootCmd.AddCommand(probeCmd)
}

func runProbe(cmd *cobra.Command, args []string) error {
	if probeList {
		for _, sc := range probe.Scenarios() {
			mark := ""
			if sc.Mutating {
				mark = " (修改数据)"
			}
			fmt.Printf("%-26s %-6s %-40s %d%s\n", sc.Name, sc.Method, sc.Path, sc.WantStatus, mark)
		}
		return nil
	}

	baseURL := firstNonEmpty(probeBaseURL, appCfg.Probe.BaseURL)
	timeout := probeTimeout
	if timeout <= 0 {
		timeout = appCfg.Probe.Timeout
	}
	prober, err := probe.New(baseURL, timeout)
	if err != nil {
		return err
	}

	opts, err := probeOptions()
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "探测目标: %s (超时 %s)\n", prober.BaseURL(), timeout)
	outcomes, err := prober.RunSuite(cmd.Context(), args, opts)
	if err != nil {
		return err
	}

	if err := render(os.Stdout, probeOutcomesJSON(outcomes), func(w io.Writer) error {
		return writeProbeOutcomes(w, outcomes)
	}); err != nil {
		return err
	}
	if probeArchive {
		return archiveReport(cmd.Context(), "probe", suiteName(args), probeOutcomesJSON(outcomes))
	}
	return nil
}

// probeOptions 命令行优先，其次是配置中的凭据
func probeOptions() (probe.Options, error) {
	o := probe.Options{
		SessionID:      firstNonEmpty(probeSession, appCfg.Probe.SessionID),
		AdminSessionID: firstNonEmpty(probeAdminSession, appCfg.Probe.AdminSessionID),
		BearerToken:    firstNonEmpty(probeBearer, appCfg.Probe.BearerToken),
		UserID:         probeUserID,
		Page:           probePage,
		Limit:          probeLimit,
		ModelName:      probeModel,
		QuestionType:   probeQuestionType,
	}
	if probeMintUser > 0 {
		issuer, err := auth.NewTokenIssuer(appCfg.JWTSecret, 0)
		if err != nil {
			return o, fmt.Errorf("--mint-user requires JWT_SECRET: %w", err)
		}
		token, err := issuer.Mint(probeMintUser, "", model.RoleUser)
		if err != nil {
			return o, err
		}
		o.BearerToken = token
		logger.Debug("minted bearer token for probe", logger.Int64("userId", probeMintUser))
	}
	return o, nil
}

type probeOutcomeJSON struct {
	Scenario string        `json:"scenario"`
	Passed   bool          `json:"passed"`
	Skipped  bool          `json:"skipped"`
	Result   *probe.Result `json:"result,omitempty"`
	Error    string        `json:"error,omitempty"`
}

func probeOutcomesJSON(outcomes []probe.Outcome) []probeOutcomeJSON {
	out := make([]probeOutcomeJSON, 0, len(outcomes))
	for i := range outcomes {
		o := outcomes[i]
		item := probeOutcomeJSON{Scenario: o.Scenario, Passed: o.Passed(), Skipped: o.Skipped()}
		if o.Err != nil {
			item.Error = o.Err.Error()
		} else {
			item.Result = &outcomes[i].Result
			if err := o.Result.Err(); err != nil {
				item.Error = err.Error()
			}
		}
		out = append(out, item)
	}
	return out
}

func writeProbeOutcomes(w io.Writer, outcomes []probe.Outcome) error {
	passed, failed, skipped := 0, 0, 0
	for _, o := range outcomes {
		switch {
		case o.Skipped():
			skipped++
			fmt.Fprintf(w, "⏭  SKIP %-26s %v\n", o.Scenario, o.Err)
		case o.Err != nil:
			failed++
			fmt.Fprintf(w, "❌ FAIL %-26s %v\n", o.Scenario, o.Err)
		case o.Result.Passed:
			passed++
			fmt.Fprintf(w, "✅ PASS %-26s %d %-18s %dms\n", o.Scenario, o.Result.StatusCode, o.Result.Classification, o.Result.LatencyMs)
		default:
			failed++
			fmt.Fprintf(w, "❌ FAIL %-26s %d %-18s %dms  %v\n", o.Scenario, o.Result.StatusCode, o.Result.Classification, o.Result.LatencyMs, o.Result.Err())
		}
		if verbose && o.Err == nil && o.Result.Body != "" {
			fmt.Fprintf(w, "       %s %s\n       %s\n", o.Result.Method, o.Result.URL, o.Result.Body)
		}
	}
	fmt.Fprintf(w, "共 %d 个场景: 通过 %d, 失败 %d, 跳过 %d\n", len(outcomes), passed, failed, skipped)
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
