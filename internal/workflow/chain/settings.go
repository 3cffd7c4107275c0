package chain

import (
	"context"
	"fmt"
	"sync"

	"adjacent-api/internal/config"
	"adjacent-api/internal/workflow/retry"
)

// Settings 各阶段的模型与采样参数
type Settings struct {
	OrchestratorModel string
	ExtractionModel   string
	PlanningModel     string

	OrchestratorTemperature float64
	OrchestratorTopP        float64
	OrchestratorMaxTokens   int
	MinThinkingTokens       int
	MaxThinkingTokens       int

	ExtractionTemperature float64
	ExtractionMaxTokens   int

	PlanningMaxTokens int
	Retry             retry.PolicyConfig
}

// NewSettings 从全局配置读取阶段参数
func NewSettings(cfg *config.Config) Settings {
	p := cfg.Pipeline
	return Settings{
		OrchestratorModel:       cfg.LLM.OrchestratorModel,
		ExtractionModel:         cfg.LLM.ExtractionModel,
		PlanningModel:           cfg.LLM.PlanningModel,
		OrchestratorTemperature: p.OrchestratorTemperature,
		OrchestratorTopP:        p.OrchestratorTopP,
		OrchestratorMaxTokens:   p.OrchestratorMaxTokens,
		MinThinkingTokens:       p.MinThinkingTokens,
		MaxThinkingTokens:       p.MaxThinkingTokens,
		ExtractionTemperature:   p.ExtractionTemperature,
		ExtractionMaxTokens:     p.ExtractionMaxTokens,
		PlanningMaxTokens:       p.PlanningMaxTokens,
		Retry: retry.PolicyConfig{
			MaxAttempts:         p.MaxPlanAttempts,
			CreativeTemperature: p.CreativeTemperature,
			StrictTemperature:   p.StrictTemperature,
		},
	}
}

// DefaultSettings 与默认配置一致，测试使用
func DefaultSettings() Settings {
	return Settings{
		OrchestratorModel:       "nvidia/nvidia-nemotron-nano-9b-v2",
		ExtractionModel:         "nvidia/nemotron-nano-12b-v2-vl",
		PlanningModel:           "nvidia/nemotron-nano-12b-v2-vl",
		OrchestratorTemperature: 0.6,
		OrchestratorTopP:        0.95,
		OrchestratorMaxTokens:   2048,
		MinThinkingTokens:       1024,
		MaxThinkingTokens:       2048,
		ExtractionTemperature:   0.8,
		ExtractionMaxTokens:     4096,
		PlanningMaxTokens:       1024,
		Retry:                   retry.DefaultPolicyConfig,
	}
}

// nodeErr 记录节点内部的原始错误。
// 编排框架会包装节点返回的错误，调用方需要原始类型做 errors.As 判断。
type nodeErr struct {
	mu  sync.Mutex
	err error
}

func (n *nodeErr) record(err error) error {
	if err == nil {
		return nil
	}
	n.mu.Lock()
	if n.err == nil {
		n.err = err
	}
	n.mu.Unlock()
	return err
}

// resolve 优先返回节点原始错误
func (n *nodeErr) resolve(err error) error {
	if err == nil {
		return nil
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	return err
}

// lazyRunnable 首次使用时编译 chain
type lazyRunnable[T any] struct {
	once  sync.Once
	value T
	err   error
}

func (l *lazyRunnable[T]) get(build func(context.Context) (T, error)) (T, error) {
	l.once.Do(func() {
		l.value, l.err = build(context.Background())
		if l.err != nil {
			l.err = fmt.Errorf("compile chain: %w", l.err)
		}
	})
	return l.value, l.err
}
