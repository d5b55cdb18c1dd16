package probe

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownScenario = errors.New("unknown scenario")
	// ErrMissingCredential 场景需要的 session 或 token 没有配置
	ErrMissingCredential = errors.New("missing credential")
	ErrMissingOption     = errors.New("missing option")
	ErrMalformedBody     = errors.New("response body does not match the expected shape")
)

// UnreachableError 网络层失败：超时、拒绝连接、DNS 等
type UnreachableError struct {
	Scenario string
	URL      string
	Cause    error
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("scenario %s: %s unreachable: %v", e.Scenario, e.URL, e.Cause)
}

func (e *UnreachableError) Unwrap() error {
	return e.Cause
}

// UnexpectedStatusError 状态码与场景预期不符
type UnexpectedStatusError struct {
	Scenario string
	Want     int
	Got      int
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("scenario %s: expected status %d, got %d", e.Scenario, e.Want, e.Got)
}
