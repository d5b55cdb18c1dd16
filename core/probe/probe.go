package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"paydiag/core/auth"
	"paydiag/core/opt"
	"paydiag/logger"

	"github.com/google/uuid"
)

const (
	DefaultTimeout = 8 * time.Second
	// MaxBodyBytes 响应体最多保留 1 MiB
	MaxBodyBytes = 1 << 20

	HeaderSessionID = "X-Session-Id"
)

// Classification 对一次响应的归类
type Classification string

const (
	ClassOK               Classification = "ok"
	ClassMalformed        Classification = "malformed"
	ClassUnauthorized     Classification = "unauthorized"
	ClassForbidden        Classification = "forbidden"
	ClassNotFound         Classification = "not_found"
	ClassServerError      Classification = "server_error"
	ClassUnexpectedStatus Classification = "unexpected_status"
	ClassUnreachable      Classification = "unreachable"
)

// Options 单次探测的参数，凭据来自配置或命令行
type Options struct {
	SessionID      string
	AdminSessionID string
	BearerToken    string
	UserID         int64
	Page           int
	Limit          int
	ModelName      string
	QuestionType   string
	// OperationID 为空时自动生成
	OperationID string
	Headers     map[string]string
}

// Result 一次探测的结果。网络失败也以 Result 返回，Classification=unreachable。
// 收到响应头后读取响应体失败时 Incomplete=true，按状态码归类，ShapeMatched 为空。
// 响应体超过 MaxBodyBytes 时只保留前 MaxBodyBytes 字节并置 Truncated，不再校验结构，
// ShapeMatched 同样为空，因此 2xx 响应归为 malformed，预期 2xx 的场景判为未通过。
type Result struct {
	Scenario       string                     `json:"scenario"`
	Method         string                     `json:"method"`
	URL            string                     `json:"url"`
	StatusCode     int                        `json:"statusCode"`
	ExpectedStatus int                        `json:"expectedStatus"`
	Classification Classification             `json:"classification"`
	Passed         bool                       `json:"passed"`
	Latency        time.Duration              `json:"-"`
	LatencyMs      int64                      `json:"latencyMs"`
	Body           string                     `json:"body,omitempty"`
	Truncated      bool                       `json:"truncated,omitempty"`
	Incomplete     bool                       `json:"incomplete,omitempty"`
	ShapeMatched   opt.Optional[bool]         `json:"shapeMatched"`
	Health         opt.Optional[HealthBody]   `json:"health"`
	Envelope       opt.Optional[Envelope]     `json:"envelope"`
	Credit         opt.Optional[CreditResult] `json:"credit"`
	Cause          error                      `json:"-"`
}

// Err 未通过时返回具体原因
func (r Result) Err() error {
	if r.Passed {
		return nil
	}
	if r.Classification == ClassUnreachable {
		return &UnreachableError{Scenario: r.Scenario, URL: r.URL, Cause: r.Cause}
	}
	if r.StatusCode != r.ExpectedStatus {
		return &UnexpectedStatusError{Scenario: r.Scenario, Want: r.ExpectedStatus, Got: r.StatusCode}
	}
	if r.Cause != nil {
		return fmt.Errorf("scenario %s: %w: %w", r.Scenario, ErrMalformedBody, r.Cause)
	}
	return fmt.Errorf("scenario %s: %w", r.Scenario, ErrMalformedBody)
}

type Prober struct {
	baseURL string
	timeout time.Duration
	client  *http.Client
}

type ProberOption func(*Prober)

func WithHTTPClient(c *http.Client) ProberOption {
	return func(p *Prober) { p.client = c }
}

// New baseURL 必须是 http 或 https 地址，timeout<=0 时取默认值
func New(baseURL string, timeout time.Duration, opts ...ProberOption) (*Prober, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid probe base url %q", baseURL)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	p := &Prober{
		baseURL: strings.TrimRight(u.String(), "/"),
		timeout: timeout,
		client: &http.Client{
			// 只探测一次，不跟随跳转
			CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
		},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

func (p *Prober) BaseURL() string {
	return p.baseURL
}

// Probe 执行一个场景。只有场景不存在或缺少凭据时返回 error
func (p *Prober) Probe(ctx context.Context, name string, o Options) (Result, error) {
	sc, ok := Lookup(name)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownScenario, name)
	}
	return p.ProbeScenario(ctx, sc, o)
}

func (p *Prober) ProbeScenario(ctx context.Context, sc Scenario, o Options) (Result, error) {
	req, err := p.buildRequest(ctx, sc, o)
	if err != nil {
		return Result{}, err
	}
	res := Result{
		Scenario:       sc.Name,
		Method:         sc.Method,
		URL:            req.URL.String(),
		ExpectedStatus: sc.WantStatus,
	}

	reqCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	resp, err := p.client.Do(req.WithContext(reqCtx))
	if err != nil {
		res.finish(start, ClassUnreachable, err)
		p.log(res)
		return res, nil
	}
	defer resp.Body.Close()

	res.StatusCode = resp.StatusCode
	body, readErr := io.ReadAll(io.LimitReader(resp.Body, MaxBodyBytes+1))
	if len(body) > MaxBodyBytes {
		body = body[:MaxBodyBytes]
		res.Truncated = true
	}
	res.Body = string(body)

	var cause error
	switch {
	case readErr != nil:
		// 状态码已经拿到，只是结构无法确认
		res.Incomplete = true
		cause = fmt.Errorf("failed to read response body: %w", readErr)
	case !res.Truncated:
		d := decodeBody(body)
		res.Health, res.Envelope, res.Credit = d.health, d.envelope, d.credit
		res.ShapeMatched = opt.Some(d.matches(sc.Shape))
	}

	shapeOK := res.ShapeMatched.OrElse(false)
	res.finish(start, Classify(resp.StatusCode, shapeOK), cause)
	res.Passed = res.StatusCode == sc.WantStatus && (!is2xx(sc.WantStatus) || shapeOK)
	p.log(res)
	return res, nil
}

func (r *Result) finish(start time.Time, class Classification, cause error) {
	r.Latency = time.Since(start)
	r.LatencyMs = r.Latency.Milliseconds()
	r.Classification = class
	r.Cause = cause
}

// Classify 按状态码归类，2xx 时再看响应体形状
func Classify(status int, shapeOK bool) Classification {
	switch {
	case is2xx(status) && shapeOK:
		return ClassOK
	case is2xx(status):
		return ClassMalformed
	case status == http.StatusUnauthorized:
		return ClassUnauthorized
	case status == http.StatusForbidden:
		return ClassForbidden
	case status == http.StatusNotFound:
		return ClassNotFound
	case status >= 500:
		return ClassServerError
	default:
		return ClassUnexpectedStatus
	}
}

func is2xx(status int) bool {
	return status >= 200 && status < 300
}

func (p *Prober) buildRequest(ctx context.Context, sc Scenario, o Options) (*http.Request, error) {
	target := p.baseURL + sc.Path
	if sc.InviteQuery {
		q := url.Values{}
		if o.UserID > 0 {
			q.Set("userId", strconv.FormatInt(o.UserID, 10))
		}
		q.Set("page", strconv.Itoa(orDefault(o.Page, 1)))
		q.Set("limit", strconv.Itoa(orDefault(o.Limit, 20)))
		target += "?" + q.Encode()
	}

	var body io.Reader
	if sc.CreditBody {
		if sc.Mutating && (o.ModelName == "" || o.QuestionType == "") {
			return nil, fmt.Errorf("%w: scenario %s needs a model name and question type", ErrMissingOption, sc.Name)
		}
		opID := o.OperationID
		if opID == "" {
			opID = uuid.NewString()
		}
		raw, err := json.Marshal(CreditRequest{ModelName: o.ModelName, QuestionType: o.QuestionType, OperationID: opID})
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, sc.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", sc.Name, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "paydiag-probe")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range o.Headers {
		req.Header.Set(k, v)
	}

	switch sc.Auth {
	case AuthSession:
		switch {
		case o.SessionID != "":
			req.Header.Set(HeaderSessionID, o.SessionID)
		case o.BearerToken != "":
			req.Header.Set("Authorization", auth.BearerHeader(o.BearerToken))
		default:
			return nil, fmt.Errorf("%w: scenario %s needs PROBE_SESSION_ID or PROBE_BEARER_TOKEN", ErrMissingCredential, sc.Name)
		}
	case AuthInvalidSession:
		req.Header.Set(HeaderSessionID, uuid.NewString())
	case AuthAdminSession:
		if o.AdminSessionID == "" {
			return nil, fmt.Errorf("%w: scenario %s needs PROBE_ADMIN_SESSION_ID", ErrMissingCredential, sc.Name)
		}
		req.Header.Set(HeaderSessionID, o.AdminSessionID)
	case AuthBearer:
		if o.BearerToken == "" {
			return nil, fmt.Errorf("%w: scenario %s needs PROBE_BEARER_TOKEN or a minted token", ErrMissingCredential, sc.Name)
		}
		req.Header.Set("Authorization", auth.BearerHeader(o.BearerToken))
	}
	return req, nil
}

func orDefault(v, d int) int {
	if v <= 0 {
		return d
	}
	return v
}

func (p *Prober) log(r Result) {
	fields := []logger.Field{
		logger.String("scenario", r.Scenario),
		logger.String("url", r.URL),
		logger.Int("status", r.StatusCode),
		logger.String("classification", string(r.Classification)),
		logger.Duration("latency", r.Latency),
		logger.Bool("passed", r.Passed),
	}
	if r.Cause != nil {
		fields = append(fields, logger.ErrorField(r.Cause))
	}
	if r.Passed {
		logger.Info("probe finished", fields...)
		return
	}
	logger.Warn("probe finished", fields...)
}

// Outcome RunSuite 中单个场景的结果，Err 非空表示场景没有发出请求
type Outcome struct {
	Scenario string
	Result   Result
	Err      error
}

func (o Outcome) Passed() bool {
	return o.Err == nil && o.Result.Passed
}

// Skipped 缺少凭据或参数导致没有执行
func (o Outcome) Skipped() bool {
	return errors.Is(o.Err, ErrMissingCredential) || errors.Is(o.Err, ErrMissingOption)
}

// Resolve 空列表或 "all" 表示全部不修改数据的场景
func Resolve(names []string) ([]Scenario, error) {
	if len(names) == 0 || (len(names) == 1 && names[0] == "all") {
		out := []Scenario{}
		for _, s := range Scenarios() {
			if !s.Mutating {
				out = append(out, s)
			}
		}
		return out, nil
	}
	out := make([]Scenario, 0, len(names))
	for _, name := range names {
		s, ok := Lookup(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownScenario, name)
		}
		out = append(out, s)
	}
	return out, nil
}

// RunSuite 顺序执行多个场景，单个失败不影响后续
func (p *Prober) RunSuite(ctx context.Context, names []string, o Options) ([]Outcome, error) {
	scenarios, err := Resolve(names)
	if err != nil {
		return nil, err
	}
	outcomes := make([]Outcome, 0, len(scenarios))
	for _, sc := range scenarios {
		if cerr := ctx.Err(); cerr != nil {
			outcomes = append(outcomes, Outcome{Scenario: sc.Name, Err: cerr})
			continue
		}
		res, err := p.ProbeScenario(ctx, sc, o)
		outcomes = append(outcomes, Outcome{Scenario: sc.Name, Result: res, Err: err})
	}
	return outcomes, nil
}
