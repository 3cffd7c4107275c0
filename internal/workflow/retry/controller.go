package retry

import (
	"context"
	"fmt"

	"github.com/tidwall/gjson"

	wfmodel "adjacent-api/internal/workflow/model"
	wfnode "adjacent-api/internal/workflow/node"
	workflowport "adjacent-api/internal/workflow/port"
	"adjacent-api/pkg/logger"
)

// ValidationExhaustedError 用尽尝试次数仍未得到合法输出，LastRaw 为最后一次模型原始输出
type ValidationExhaustedError struct {
	Attempts int
	LastRaw  wfmodel.Response
	LastErr  error
}

func (e *ValidationExhaustedError) Error() string {
	if e.LastErr != nil {
		return fmt.Sprintf("no valid output after %d attempts: %v", e.Attempts, e.LastErr)
	}
	return fmt.Sprintf("no valid output after %d attempts", e.Attempts)
}

func (e *ValidationExhaustedError) Unwrap() error {
	return e.LastErr
}

// RequestBuilder 按尝试参数构造请求
type RequestBuilder func(a Attempt) *wfmodel.ModelRequest

// Validator 判断抽取出的 JSON 是否可接受
type Validator func(v gjson.Result) bool

// Outcome 成功结果
type Outcome struct {
	Value    gjson.Result
	Raw      wfmodel.Response
	Attempts int
}

// Observer 每次尝试结束后回调，用于日志与指标
type Observer func(ctx context.Context, a Attempt, accepted bool, err error)

// Controller 重试控制器，无状态，可并发使用
type Controller struct {
	gateway  workflowport.ModelGateway
	observer Observer
}

func NewController(gateway workflowport.ModelGateway, observer Observer) *Controller {
	return &Controller{gateway: gateway, observer: observer}
}

// Run 按策略依次调用模型直到 validate 通过。
// 上游错误计为一次失败尝试；缺少凭据或上下文取消立即返回。
func (c *Controller) Run(ctx context.Context, policy Policy, build RequestBuilder, validate Validator) (*Outcome, error) {
	if c == nil || c.gateway == nil {
		return nil, fmt.Errorf("model gateway not configured")
	}
	if build == nil || validate == nil {
		return nil, fmt.Errorf("request builder and validator are required")
	}

	var (
		lastRaw wfmodel.Response
		lastErr error
		calls   int
	)
	for st := policy.Start(); !st.Done; {
		a := st.Current
		calls++

		resp, err := c.gateway.Invoke(ctx, build(a))
		if err != nil {
			if wfnode.IsFatalLLMError(ctx, err) {
				return nil, err
			}
			lastErr = err
			logger.Warn(ctx, "model call failed, counting as failed attempt",
				"attempt", a.Index,
				"status", wfnode.UpstreamStatus(err),
				"error", err.Error(),
			)
			c.observe(ctx, a, false, err)
			st = policy.Next(st, false)
			continue
		}

		lastRaw, lastErr = resp, nil
		value, ok := wfnode.ExtractJSON(resp)
		accepted := ok && validate(value)
		c.observe(ctx, a, accepted, nil)
		if accepted {
			return &Outcome{Value: value, Raw: resp, Attempts: calls}, nil
		}
		logger.Debug(ctx, "model output rejected",
			"attempt", a.Index,
			"parsed", ok,
			"output", wfnode.TruncateByRunes(resp.String(), 500),
		)
		st = policy.Next(st, false)
	}

	return nil, &ValidationExhaustedError{Attempts: calls, LastRaw: lastRaw, LastErr: lastErr}
}

func (c *Controller) observe(ctx context.Context, a Attempt, accepted bool, err error) {
	if c.observer != nil {
		c.observer(ctx, a, accepted, err)
	}
}
