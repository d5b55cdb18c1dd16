package check

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"
)

// Report 检查的结构化结果。Data 为各检查自己的类型化报告
type Report struct {
	Check     string        `json:"check"`
	Params    Params        `json:"params,omitempty"`
	StartedAt time.Time     `json:"startedAt"`
	Duration  time.Duration `json:"-"`
	Data      interface{}   `json:"data"`
}

// Tabular 由报告数据实现，用于文本输出
type Tabular interface {
	Summary() []string
	Table() (header []string, rows [][]string)
}

func (r *Report) MarshalJSON() ([]byte, error) {
	type alias Report
	return json.Marshal(struct {
		*alias
		DurationMs int64 `json:"durationMs"`
	}{alias: (*alias)(r), DurationMs: r.Duration.Milliseconds()})
}

// WriteText 人类可读的输出
func (r *Report) WriteText(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "== %s%s (%dms)\n", r.Check, formatParams(r.Params), r.Duration.Milliseconds()); err != nil {
		return err
	}
	tab, ok := r.Data.(Tabular)
	if !ok {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r.Data)
	}
	for _, line := range tab.Summary() {
		if _, err := fmt.Fprintf(w, "   %s\n", line); err != nil {
			return err
		}
	}
	header, rows := tab.Table()
	if len(header) == 0 || len(rows) == 0 {
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "   %s\n", strings.Join(header, "\t"))
	for _, row := range rows {
		fmt.Fprintf(tw, "   %s\n", strings.Join(row, "\t"))
	}
	return tw.Flush()
}

// WriteJSON 输出带缩进的 JSON
func WriteJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func cell(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return "-"
	case string:
		if x == "" {
			return "-"
		}
		return x
	case time.Time:
		if x.IsZero() {
			return "-"
		}
		return x.Format("2006-01-02 15:04:05")
	case float64:
		return fmt.Sprintf("%.2f", x)
	default:
		return fmt.Sprint(x)
	}
}
