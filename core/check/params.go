package check

import (
	"fmt"
	"strconv"
	"strings"

	"paydiag/config"
)

// Params 检查参数，全部以字符串传入，由各检查自行解析
type Params map[string]string

// secretParams 在报告和错误信息中脱敏
var secretParams = map[string]bool{"password": true}

// ParseParams 解析命令行上的 key=value 列表
func ParseParams(args []string) (Params, error) {
	p := Params{}
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("%w: expected key=value, got %q", ErrInvalidParams, arg)
		}
		p[strings.TrimSpace(k)] = v
	}
	return p, nil
}

func (p Params) String(key string) string {
	return strings.TrimSpace(p[key])
}

func (p Params) Require(key string) (string, error) {
	v := p.String(key)
	if v == "" {
		return "", fmt.Errorf("%w: %s is required", ErrInvalidParams, key)
	}
	return v, nil
}

// Int64 第二个返回值表示参数是否出现
func (p Params) Int64(key string) (int64, bool, error) {
	v := p.String(key)
	if v == "" {
		return 0, false, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, true, fmt.Errorf("%w: %s must be an integer, got %q", ErrInvalidParams, key, v)
	}
	return n, true, nil
}

func (p Params) RequireInt64(key string) (int64, error) {
	n, ok, err := p.Int64(key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%w: %s is required", ErrInvalidParams, key)
	}
	return n, nil
}

// IntIn 缺省取 def，超出 [min, max] 报错
func (p Params) IntIn(key string, def, min, max int) (int, error) {
	n, ok, err := p.Int64(key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return def, nil
	}
	if n < int64(min) || n > int64(max) {
		return 0, fmt.Errorf("%w: %s must be between %d and %d", ErrInvalidParams, key, min, max)
	}
	return int(n), nil
}

func (p Params) Bool(key string, def bool) (bool, error) {
	v := p.String(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%w: %s must be true or false, got %q", ErrInvalidParams, key, v)
	}
	return b, nil
}

// Merge 返回新的 Params，override 中的值优先
func (p Params) Merge(override Params) Params {
	out := make(Params, len(p)+len(override))
	for k, v := range p {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}

// Redacted 返回可以打印的副本
func (p Params) Redacted() Params {
	if p == nil {
		return nil
	}
	out := make(Params, len(p))
	for k, v := range p {
		if secretParams[k] {
			v = config.Redact(v)
		}
		out[k] = v
	}
	return out
}
