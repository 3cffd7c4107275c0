package chain

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino/compose"

	wfmodel "adjacent-api/internal/workflow/model"
	wfnode "adjacent-api/internal/workflow/node"
	workflowport "adjacent-api/internal/workflow/port"
	workflowprompt "adjacent-api/internal/workflow/prompt"
	"adjacent-api/internal/workflow/retry"
	"adjacent-api/pkg/logger"
	"adjacent-api/pkg/metrics"
)

// 各规划提示词对应的数据消息格式
var planningDataFormats = map[workflowprompt.PromptID]string{
	workflowprompt.PromptPlanningV1:         "EXTRACTED_DATA:\n%s\n\nGenerate tasks as described.",
	workflowprompt.PromptPipelinePlanningV1: "DATA TO ANALYZE:\n%s",
}

// PlanningInput Data 为已序列化的抽取数据
type PlanningInput struct {
	Prompt workflowprompt.PromptID
	Data   string
	Today  time.Time
}

type PlanningOutput struct {
	Tasks    []wfmodel.CandidateTask
	Raw      wfmodel.Response
	Attempts int
}

type planningState struct {
	nodeErr
	In          *PlanningInput
	System      wfmodel.ChatMessage
	Instruction string
	Data        wfmodel.ChatMessage
	Outcome     *retry.Outcome
	Out         *PlanningOutput
}

// PlanningChain 通过重试控制器获得合法的任务数组
type PlanningChain struct {
	prompts    *workflowprompt.Registry
	settings   Settings
	controller *retry.Controller

	chain lazyRunnable[compose.Runnable[*planningState, *planningState]]
}

func NewPlanningChain(gateway workflowport.ModelGateway, prompts *workflowprompt.Registry, settings Settings) *PlanningChain {
	return &PlanningChain{
		prompts:    prompts,
		settings:   settings,
		controller: retry.NewController(gateway, observePlanningAttempt),
	}
}

// Invoke 用尽尝试次数时返回 *retry.ValidationExhaustedError
func (c *PlanningChain) Invoke(ctx context.Context, in *PlanningInput) (*PlanningOutput, error) {
	if c == nil || c.controller == nil {
		return nil, fmt.Errorf("model gateway not configured")
	}
	if in == nil {
		return nil, fmt.Errorf("input is nil")
	}
	if _, ok := planningDataFormats[in.Prompt]; !ok {
		return nil, fmt.Errorf("unsupported planning prompt: %s", in.Prompt)
	}

	runnable, err := c.chain.get(c.buildChain)
	if err != nil {
		return nil, err
	}
	st := &planningState{In: in}
	out, err := runnable.Invoke(ctx, st)
	if err != nil {
		return nil, st.resolve(err)
	}
	return out.Out, nil
}

func (c *PlanningChain) buildChain(ctx context.Context) (compose.Runnable[*planningState, *planningState], error) {
	chain := compose.NewChain[*planningState, *planningState]()

	chain.AppendLambda(
		compose.InvokableLambda(func(ctx context.Context, st *planningState) (*planningState, error) {
			today := st.In.Today
			if today.IsZero() {
				today = time.Now()
			}
			msgs, err := c.prompts.Render(ctx, st.In.Prompt, map[string]any{"today": today.Format(time.DateOnly)})
			if err != nil {
				return nil, st.record(err)
			}
			if len(msgs) != 2 {
				return nil, st.record(fmt.Errorf("planning prompt %s: expected system and user messages", st.In.Prompt))
			}
			st.System = msgs[0]
			st.Instruction = msgs[1].Text
			st.Data = wfmodel.UserMessage(fmt.Sprintf(planningDataFormats[st.In.Prompt], st.In.Data))
			return st, nil
		}),
		compose.WithNodeName("planning.template"),
	)

	chain.AppendLambda(
		compose.InvokableLambda(func(ctx context.Context, st *planningState) (*planningState, error) {
			policy := retry.TaskArrayPolicy(c.settings.Retry, st.Instruction)
			build := func(a retry.Attempt) *wfmodel.ModelRequest {
				return &wfmodel.ModelRequest{
					Model:       c.settings.PlanningModel,
					Messages:    []wfmodel.ChatMessage{st.System, wfmodel.UserMessage(a.Instruction), st.Data},
					Temperature: wfmodel.Float(a.Temperature),
					MaxTokens:   c.settings.PlanningMaxTokens,
				}
			}
			outcome, err := c.controller.Run(ctx, policy, build, wfnode.IsValidTaskArray)
			if err != nil {
				return nil, st.record(err)
			}
			st.Outcome = outcome
			return st, nil
		}),
		compose.WithNodeName("planning.retry"),
	)

	chain.AppendLambda(
		compose.InvokableLambda(func(ctx context.Context, st *planningState) (*planningState, error) {
			tasks, ok := wfnode.AsTaskArray(st.Outcome.Value)
			if !ok {
				return nil, st.record(fmt.Errorf("validated planning output is not a task array"))
			}
			if len(tasks) == 0 {
				logger.Warn(ctx, "planning returned an empty task array", "attempts", st.Outcome.Attempts)
			}
			metrics.PlanningAttempts.Observe(float64(st.Outcome.Attempts))
			st.Out = &PlanningOutput{Tasks: tasks, Raw: st.Outcome.Raw, Attempts: st.Outcome.Attempts}
			return st, nil
		}),
		compose.WithNodeName("planning.finalize"),
	)

	return chain.Compile(ctx)
}

func observePlanningAttempt(ctx context.Context, a retry.Attempt, accepted bool, err error) {
	args := []any{"attempt", a.Index, "temperature", a.Temperature, "accepted", accepted}
	if err != nil {
		args = append(args, "error", err.Error())
	}
	logger.Debug(ctx, "planning attempt finished", args...)
}
