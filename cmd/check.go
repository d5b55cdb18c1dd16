package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"paydiag/core/check"
	"paydiag/db"

	"github.com/spf13/cobra"
)

var (
	checkParams  []string
	checkArchive bool
	checkList    bool
)

var checkCmd = &cobra.Command{
	Use:   "check [name...|all]",
	Short: "执行只读诊断查询",
	Long: `对 MySQL 执行一个或多个具名诊断查询并输出报告。
不带名称或使用 all 时执行全部只读检查，写操作请使用 seed-user 和 reset-password。
单个检查失败不会中断其余检查，只有配置或数据库连接失败才会以非零状态退出。`,
	Example: `  paydiag check packages
  paydiag check packages -p activeOnly=false
  paydiag check user -p email=someone@example.com
  paydiag check invites -p userId=42 -p page=1 -p limit=20
  paydiag check order -p orderNo=ORDER_20240101_0001
  paydiag check all -o json --archive`,
	RunE: runChecks,
}

func init() {
	checkCmd.Flags().StringArrayVarP(&checkParams, "param", "p", nil, "检查参数 key=value，可重复")
	checkCmd.Flags().BoolVar(&checkArchive, "archive", false, "把报告归档到 MinIO")
	checkCmd.Flags().BoolVarP(&checkList, "list", "l", false, "列出可用的检查")
	rootCmd.AddCommand(checkCmd)
}

// newRunner 每次命令执行只建立一个连接
func newRunner(writes bool) (*check.Runner, error) {
	conn, err := appCfg.Connection()
	if err != nil {
		return nil, err
	}
	connector := db.NewConnector(conn, db.Options{Verbose: verbose})
	return check.NewRunner(connector, check.WithWrites(writes)), nil
}

func runChecks(cmd *cobra.Command, args []string) error {
	if checkList {
		return listChecks(os.Stdout)
	}

	params, err := check.ParseParams(checkParams)
	if err != nil {
		return err
	}
	runner, err := newRunner(false)
	if err != nil {
		return err
	}

	outcomes, err := runner.RunAll(cmd.Context(), args, params)
	if err != nil {
		return err
	}

	if err := render(os.Stdout, checkOutcomesJSON(outcomes), func(w io.Writer) error {
		return writeCheckOutcomes(w, outcomes)
	}); err != nil {
		return err
	}
	if checkArchive {
		return archiveReport(cmd.Context(), "check", suiteName(args), checkOutcomesJSON(outcomes))
	}
	return nil
}

func listChecks(w io.Writer) error {
	checks := check.NewRunner(nil, check.WithWrites(true)).Checks(true)
	for _, c := range checks {
		kind := "read"
		if c.Write {
			kind = "write"
		}
		fmt.Fprintf(w, "%-16s %-6s %s\n", c.Name, kind, c.Description)
	}
	return nil
}

type checkOutcomeJSON struct {
	Check  string        `json:"check"`
	Passed bool          `json:"passed"`
	Report *check.Report `json:"report,omitempty"`
	Error  string        `json:"error,omitempty"`
}

func checkOutcomesJSON(outcomes []check.Outcome) []checkOutcomeJSON {
	out := make([]checkOutcomeJSON, 0, len(outcomes))
	for _, o := range outcomes {
		item := checkOutcomeJSON{Check: o.Check, Passed: o.Passed(), Report: o.Report}
		if o.Err != nil {
			item.Error = o.Err.Error()
		}
		out = append(out, item)
	}
	return out
}

func writeCheckOutcomes(w io.Writer, outcomes []check.Outcome) error {
	failed := 0
	for _, o := range outcomes {
		if !o.Passed() {
			failed++
			fmt.Fprintf(w, "❌ FAIL %s: %v\n\n", o.Check, o.Err)
			continue
		}
		if err := o.Report.WriteText(w); err != nil {
			return err
		}
		fmt.Fprintf(w, "✅ PASS %s\n\n", o.Check)
	}
	names := make([]string, 0, len(outcomes))
	for _, o := range outcomes {
		names = append(names, o.Check)
	}
	fmt.Fprintf(w, "共 %d 项 (%s): 通过 %d, 失败 %d\n", len(outcomes), strings.Join(names, ", "), len(outcomes)-failed, failed)
	return nil
}
