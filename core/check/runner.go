package check

import (
	"context"
	"fmt"
	"time"

	"paydiag/logger"
	"paydiag/repository"

	"gorm.io/gorm"
)

// Connector 建立一次数据库会话，release 必须在所有退出路径上调用
type Connector interface {
	Acquire(ctx context.Context) (*gorm.DB, func() error, error)
}

// Outcome 组合执行中单个检查的结果
type Outcome struct {
	Check  string
	Report *Report
	Err    error
}

func (o Outcome) Passed() bool {
	return o.Err == nil
}

type Runner struct {
	connector   Connector
	checks      map[string]Check
	order       []string
	allowWrites bool
	now         func() time.Time
}

type Option func(*Runner)

// WithWrites 允许执行 seed-user、reset-password 等写操作
func WithWrites(allow bool) Option {
	return func(r *Runner) { r.allowWrites = allow }
}

// WithChecks 追加或覆盖检查
func WithChecks(checks ...Check) Option {
	return func(r *Runner) {
		for _, c := range checks {
			r.register(c)
		}
	}
}

func NewRunner(connector Connector, opts ...Option) *Runner {
	r := &Runner{
		connector: connector,
		checks:    make(map[string]Check),
		now:       time.Now,
	}
	for _, c := range Builtin() {
		r.register(c)
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runner) register(c Check) {
	if _, exists := r.checks[c.Name]; !exists {
		r.order = append(r.order, c.Name)
	}
	r.checks[c.Name] = c
}

// Checks 按注册顺序返回检查，includeWrites=false 时排除写操作
func (r *Runner) Checks(includeWrites bool) []Check {
	out := make([]Check, 0, len(r.order))
	for _, name := range r.order {
		c := r.checks[name]
		if c.Write && !includeWrites {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Resolve 把命令行名字展开为检查列表。空列表或 "all" 表示全部只读检查
func (r *Runner) Resolve(names []string) ([]Check, error) {
	if len(names) == 0 || (len(names) == 1 && names[0] == "all") {
		return r.Checks(false), nil
	}
	out := make([]Check, 0, len(names))
	for _, name := range names {
		c, ok := r.checks[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownCheck, name)
		}
		if c.Write && !r.allowWrites {
			return nil, fmt.Errorf("%w: %s", ErrWritesDisabled, name)
		}
		out = append(out, c)
	}
	return out, nil
}

// Run 执行单个检查。返回的 error 可能是建立连接失败，也可能是 *QueryError
func (r *Runner) Run(ctx context.Context, name string, params Params) (*Report, error) {
	outcomes, err := r.RunAll(ctx, []string{name}, params)
	if err != nil {
		return nil, err
	}
	return outcomes[0].Report, outcomes[0].Err
}

// RunAll 在同一个连接上顺序执行多个检查，单个检查失败不影响后续检查。
// 只有名字非法或连接建立失败时返回 error
func (r *Runner) RunAll(ctx context.Context, names []string, params Params) (outcomes []Outcome, err error) {
	checks, err := r.Resolve(names)
	if err != nil {
		return nil, err
	}

	gdb, release, err := r.connector.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire database session: %w", err)
	}
	defer func() {
		if rerr := release(); rerr != nil {
			logger.Warn("failed to release database session", logger.ErrorField(rerr))
		}
	}()

	outcomes = make([]Outcome, 0, len(checks))
	for _, c := range checks {
		rep, qerr := r.runOne(ctx, gdb, c, params)
		outcomes = append(outcomes, Outcome{Check: c.Name, Report: rep, Err: qerr})
	}
	return outcomes, nil
}

func (r *Runner) runOne(ctx context.Context, gdb *gorm.DB, c Check, params Params) (rep *Report, err error) {
	start := r.now()
	defer func() {
		if rec := recover(); rec != nil {
			err = &QueryError{Check: c.Name, Params: params, Cause: fmt.Errorf("panic: %v", rec)}
			rep = nil
		}
		fields := []logger.Field{
			logger.String("check", c.Name),
			logger.Duration("duration", time.Since(start)),
			logger.Bool("ok", err == nil),
		}
		if err != nil {
			logger.Warn("check failed", append(fields, logger.ErrorField(err))...)
			return
		}
		logger.Info("check finished", fields...)
	}()

	if cerr := ctx.Err(); cerr != nil {
		return nil, &QueryError{Check: c.Name, Params: params, Cause: cerr}
	}
	logger.Debug("check started", logger.String("check", c.Name), logger.Any("params", params.Redacted()))

	data, err := c.Run(ctx, repository.NewSet(gdb.WithContext(ctx)), params)
	if err != nil {
		return nil, &QueryError{Check: c.Name, Params: params, Cause: err}
	}
	return &Report{
		Check:     c.Name,
		Params:    params.Redacted(),
		StartedAt: start,
		Duration:  time.Since(start),
		Data:      data,
	}, nil
}
