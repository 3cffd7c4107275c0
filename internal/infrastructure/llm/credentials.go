package llm

import (
	"strings"

	"adjacent-api/internal/config"
)

// 模型名中的规格标记
const (
	sizeOrchestrator = "9b"
	sizeExtraction   = "12b"
)

// resolveAPIKey 按模型规格选择凭据：9b 用编排凭据，12b 用抽取/规划凭据，其余用通用凭据
func resolveAPIKey(cfg *config.LLMConfig, model string) string {
	lower := strings.ToLower(model)
	switch {
	case strings.Contains(lower, sizeOrchestrator):
		return cfg.OrchestratorKey
	case strings.Contains(lower, sizeExtraction):
		return cfg.ExtractionKey
	default:
		return cfg.APIKey
	}
}

// IsOrchestratorModel 是否为编排（小）模型
func IsOrchestratorModel(model string) bool {
	return strings.Contains(strings.ToLower(model), sizeOrchestrator)
}
