package check

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrUnknownCheck  = errors.New("unknown check")
	ErrInvalidParams = errors.New("invalid params")
	// ErrWritesDisabled 写操作类检查未被显式允许
	ErrWritesDisabled = errors.New("write checks are disabled")
)

// QueryError 单个检查失败。组合执行时只中止当前检查
type QueryError struct {
	Check  string
	Params Params
	Cause  error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("check %s%s failed: %v", e.Check, formatParams(e.Params), e.Cause)
}

func (e *QueryError) Unwrap() error {
	return e.Cause
}

func formatParams(p Params) string {
	if len(p) == 0 {
		return ""
	}
	red := p.Redacted()
	keys := make([]string, 0, len(red))
	for k := range red {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+red[k])
	}
	return " (" + strings.Join(parts, ", ") + ")"
}
