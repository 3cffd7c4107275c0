package chain

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/compose"
	"github.com/tidwall/gjson"

	wfmodel "adjacent-api/internal/workflow/model"
	wfnode "adjacent-api/internal/workflow/node"
	workflowport "adjacent-api/internal/workflow/port"
	workflowprompt "adjacent-api/internal/workflow/prompt"
)

// ErrEmptyExtractionInput 文本与媒体均为空
var ErrEmptyExtractionInput = errors.New("input or media required")

type ExtractionInput struct {
	Text  string
	Media []string
}

// ExtractionOutput 抽取结果，Value 为空表示输出无法解析
type ExtractionOutput struct {
	Raw      wfmodel.Response
	Mode     string
	Value    *gjson.Result
	Entities []wfmodel.ExtractedEntity
}

type extractionState struct {
	nodeErr
	In       *ExtractionInput
	Mode     string
	Messages []wfmodel.ChatMessage
	Out      *ExtractionOutput
}

type ExtractionChain struct {
	gateway  workflowport.ModelGateway
	prompts  *workflowprompt.Registry
	settings Settings

	chain lazyRunnable[compose.Runnable[*extractionState, *extractionState]]
}

func NewExtractionChain(gateway workflowport.ModelGateway, prompts *workflowprompt.Registry, settings Settings) *ExtractionChain {
	return &ExtractionChain{gateway: gateway, prompts: prompts, settings: settings}
}

func (c *ExtractionChain) Invoke(ctx context.Context, in *ExtractionInput) (*ExtractionOutput, error) {
	if c == nil || c.gateway == nil {
		return nil, fmt.Errorf("model gateway not configured")
	}
	if in == nil {
		return nil, ErrEmptyExtractionInput
	}
	in = &ExtractionInput{Text: in.Text, Media: wfnode.CompactMedia(in.Media)}
	if strings.TrimSpace(in.Text) == "" && len(in.Media) == 0 {
		return nil, ErrEmptyExtractionInput
	}

	runnable, err := c.chain.get(c.buildChain)
	if err != nil {
		return nil, err
	}
	st := &extractionState{In: in}
	out, err := runnable.Invoke(ctx, st)
	if err != nil {
		return nil, st.resolve(err)
	}
	return out.Out, nil
}

// ExtractAction 处理单个 extract 动作。
// 上游错误与解析失败只记录在结果中；缺少凭据或上下文取消时返回错误。
func (c *ExtractionChain) ExtractAction(ctx context.Context, act wfmodel.PipelineAction) (wfmodel.ExtractionResult, error) {
	res := wfmodel.ExtractionResult{Action: act}
	out, err := c.Invoke(ctx, &ExtractionInput{Text: act.Text, Media: act.Media})
	if err != nil {
		if wfnode.IsFatalLLMError(ctx, err) {
			return res, err
		}
		res.Error = err.Error()
		return res, nil
	}
	res.Raw = out.Raw.String()
	res.Parsed = out.Value
	return res, nil
}

func (c *ExtractionChain) buildChain(ctx context.Context) (compose.Runnable[*extractionState, *extractionState], error) {
	chain := compose.NewChain[*extractionState, *extractionState]()

	chain.AppendLambda(
		compose.InvokableLambda(func(ctx context.Context, st *extractionState) (*extractionState, error) {
			st.Mode = wfnode.ThinkingHint(st.In.Media)
			msgs, err := c.prompts.Render(ctx, workflowprompt.PromptExtractionV1, map[string]any{"mode": st.Mode})
			if err != nil {
				return nil, st.record(err)
			}
			st.Messages = append(msgs, wfnode.BuildMediaContent(st.In.Text, st.In.Media))
			return st, nil
		}),
		compose.WithNodeName("extraction.template"),
	)

	chain.AppendLambda(
		compose.InvokableLambda(func(ctx context.Context, st *extractionState) (*extractionState, error) {
			raw, err := c.gateway.Invoke(ctx, &wfmodel.ModelRequest{
				Model:       c.settings.ExtractionModel,
				Messages:    st.Messages,
				Temperature: wfmodel.Float(c.settings.ExtractionTemperature),
				MaxTokens:   c.settings.ExtractionMaxTokens,
			})
			if err != nil {
				return nil, st.record(err)
			}
			st.Out = &ExtractionOutput{Raw: raw, Mode: st.Mode}
			return st, nil
		}),
		compose.WithNodeName("extraction.llm"),
	)

	chain.AppendLambda(
		compose.InvokableLambda(func(_ context.Context, st *extractionState) (*extractionState, error) {
			if v, ok := wfnode.ExtractJSON(st.Out.Raw); ok {
				st.Out.Value = &v
				st.Out.Entities, _ = wfnode.AsEntities(v)
			}
			return st, nil
		}),
		compose.WithNodeName("extraction.parse"),
	)

	return chain.Compile(ctx)
}
