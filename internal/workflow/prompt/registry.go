package prompt

import (
	"context"
	"embed"
	"fmt"
	"strings"
	"sync"

	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	wfmodel "adjacent-api/internal/workflow/model"
)

//go:embed templates/*.txt
var templatesFS embed.FS

type PromptID string

const (
	PromptOrchestratorV1     PromptID = "orchestrator_v1"
	PromptExtractionV1       PromptID = "extraction_v1"
	PromptPlanningV1         PromptID = "planning_v1"
	PromptPipelinePlanningV1 PromptID = "pipeline_planning_v1"
)

// Registry 按 ID 缓存已解析的模板，模板使用 Go template 语法（JSON 示例中的花括号无需转义）
type Registry struct {
	mu    sync.RWMutex
	cache map[PromptID]einoprompt.ChatTemplate
}

func NewRegistry() *Registry {
	return &Registry{
		cache: make(map[PromptID]einoprompt.ChatTemplate),
	}
}

func (r *Registry) ChatTemplate(id PromptID) (einoprompt.ChatTemplate, error) {
	if r == nil {
		return nil, fmt.Errorf("prompt registry is nil")
	}

	r.mu.RLock()
	if tpl, ok := r.cache[id]; ok {
		r.mu.RUnlock()
		return tpl, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if tpl, ok := r.cache[id]; ok {
		return tpl, nil
	}

	systemPath, userPath, err := resolvePromptFiles(id)
	if err != nil {
		return nil, err
	}
	system, err := readEmbeddedText(systemPath)
	if err != nil {
		return nil, err
	}
	user, err := readEmbeddedText(userPath)
	if err != nil {
		return nil, err
	}

	tpl := einoprompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(system),
		schema.UserMessage(user),
	)
	r.cache[id] = tpl
	return tpl, nil
}

// Render 渲染模板并转换为网关消息
func (r *Registry) Render(ctx context.Context, id PromptID, vars map[string]any) ([]wfmodel.ChatMessage, error) {
	tpl, err := r.ChatTemplate(id)
	if err != nil {
		return nil, err
	}
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return nil, fmt.Errorf("format prompt %s: %w", id, err)
	}
	return FromSchemaMessages(msgs), nil
}

// Instruction 返回模板中用户消息的原文，用于重试时替换指令
func (r *Registry) Instruction(ctx context.Context, id PromptID, vars map[string]any) (string, error) {
	msgs, err := r.Render(ctx, id, vars)
	if err != nil {
		return "", err
	}
	for _, m := range msgs {
		if m.Role == wfmodel.RoleUser {
			return m.Text, nil
		}
	}
	return "", fmt.Errorf("prompt %s has no user message", id)
}

// FromSchemaMessages eino 消息转换为网关消息，仅保留文本内容
func FromSchemaMessages(msgs []*schema.Message) []wfmodel.ChatMessage {
	out := make([]wfmodel.ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		if m == nil {
			continue
		}
		out = append(out, wfmodel.ChatMessage{Role: wfmodel.Role(m.Role), Text: m.Content})
	}
	return out
}

func resolvePromptFiles(id PromptID) (systemFile string, userFile string, err error) {
	switch id {
	case PromptOrchestratorV1, PromptExtractionV1, PromptPlanningV1, PromptPipelinePlanningV1:
		return "templates/" + string(id) + ".system.txt", "templates/" + string(id) + ".user.txt", nil
	default:
		return "", "", fmt.Errorf("unknown prompt id: %s", id)
	}
}

func readEmbeddedText(path string) (string, error) {
	b, err := templatesFS.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}
