package chain

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/compose"

	wfmodel "adjacent-api/internal/workflow/model"
	wfnode "adjacent-api/internal/workflow/node"
	workflowport "adjacent-api/internal/workflow/port"
	workflowprompt "adjacent-api/internal/workflow/prompt"
	"adjacent-api/pkg/logger"
)

// OrchestratorInput 二选一：Input 为直接输入，Project 非空时按项目上下文渲染模板
type OrchestratorInput struct {
	Input       string
	Project     *wfmodel.ProjectContext
	FullContext string
}

// OrchestratorOutput 编排结果。Parsed 为 false 表示输出无法解析，Actions 为空
type OrchestratorOutput struct {
	Raw     wfmodel.Response
	Actions []wfmodel.PipelineAction
	Parsed  bool
}

type orchestratorState struct {
	nodeErr
	In       *OrchestratorInput
	Messages []wfmodel.ChatMessage
	Raw      wfmodel.Response
	Out      *OrchestratorOutput
}

type OrchestratorChain struct {
	gateway  workflowport.ModelGateway
	prompts  *workflowprompt.Registry
	settings Settings

	chain lazyRunnable[compose.Runnable[*orchestratorState, *orchestratorState]]
}

func NewOrchestratorChain(gateway workflowport.ModelGateway, prompts *workflowprompt.Registry, settings Settings) *OrchestratorChain {
	return &OrchestratorChain{gateway: gateway, prompts: prompts, settings: settings}
}

func (c *OrchestratorChain) Invoke(ctx context.Context, in *OrchestratorInput) (*OrchestratorOutput, error) {
	if c == nil || c.gateway == nil {
		return nil, fmt.Errorf("model gateway not configured")
	}
	if in == nil {
		return nil, fmt.Errorf("input is nil")
	}

	runnable, err := c.chain.get(c.buildChain)
	if err != nil {
		return nil, err
	}
	st := &orchestratorState{In: in}
	out, err := runnable.Invoke(ctx, st)
	if err != nil {
		return nil, st.resolve(err)
	}
	return out.Out, nil
}

func (c *OrchestratorChain) buildChain(ctx context.Context) (compose.Runnable[*orchestratorState, *orchestratorState], error) {
	chain := compose.NewChain[*orchestratorState, *orchestratorState]()

	chain.AppendLambda(
		compose.InvokableLambda(func(ctx context.Context, st *orchestratorState) (*orchestratorState, error) {
			if st.In.Project == nil {
				input := strings.TrimSpace(st.In.Input)
				if input == "" {
					return nil, st.record(fmt.Errorf("orchestrator input is empty"))
				}
				st.Messages = []wfmodel.ChatMessage{
					wfmodel.SystemMessage(wfnode.ThinkingOn),
					wfmodel.UserMessage(input),
				}
				return st, nil
			}

			p := st.In.Project
			msgs, err := c.prompts.Render(ctx, workflowprompt.PromptOrchestratorV1, map[string]any{
				"mode":                wfnode.ThinkingOn,
				"project_name":        wfnode.FirstNonEmpty(p.Name, "Untitled Project"),
				"project_description": wfnode.FirstNonEmpty(p.Description, "No description provided"),
				"project_context":     wfnode.FirstNonEmpty(p.Context, "No additional context"),
				"full_context":        st.In.FullContext,
			})
			if err != nil {
				return nil, st.record(err)
			}
			st.Messages = msgs
			return st, nil
		}),
		compose.WithNodeName("orchestrator.template"),
	)

	chain.AppendLambda(
		compose.InvokableLambda(func(ctx context.Context, st *orchestratorState) (*orchestratorState, error) {
			s := c.settings
			raw, err := c.gateway.Invoke(ctx, &wfmodel.ModelRequest{
				Model:       s.OrchestratorModel,
				Messages:    st.Messages,
				Temperature: wfmodel.Float(s.OrchestratorTemperature),
				TopP:        wfmodel.Float(s.OrchestratorTopP),
				MaxTokens:   s.OrchestratorMaxTokens,
				ExtraParams: map[string]any{
					"min_thinking_tokens": s.MinThinkingTokens,
					"max_thinking_tokens": s.MaxThinkingTokens,
				},
			})
			if err != nil {
				return nil, st.record(err)
			}
			st.Raw = raw
			return st, nil
		}),
		compose.WithNodeName("orchestrator.llm"),
	)

	chain.AppendLambda(
		compose.InvokableLambda(func(ctx context.Context, st *orchestratorState) (*orchestratorState, error) {
			out := &OrchestratorOutput{Raw: st.Raw}
			if v, ok := wfnode.ExtractJSON(st.Raw); ok {
				out.Actions, out.Parsed = wfnode.AsActionList(v)
			}
			if !out.Parsed {
				logger.Warn(ctx, "orchestrator output has no action list, continuing with zero actions",
					"output", wfnode.TruncateByRunes(st.Raw.String(), 500),
				)
			}
			st.Out = out
			return st, nil
		}),
		compose.WithNodeName("orchestrator.parse"),
	)

	return chain.Compile(ctx)
}
