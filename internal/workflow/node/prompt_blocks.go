package node

import (
	"encoding/json"
	"fmt"
	"strings"

	wfmodel "adjacent-api/internal/workflow/model"
)

const (
	noteContentAvailable = "Content available - see extracted_content field"
	noteContentMissing   = "File uploaded but content not yet extracted. AI should make reasonable assumptions about what this file likely contains based on filename and type."
)

type sourceBlock struct {
	ID               string         `json:"id"`
	SourceType       string         `json:"source_type"`
	FileName         string         `json:"file_name,omitempty"`
	SourceURL        string         `json:"source_url,omitempty"`
	Metadata         map[string]any `json:"metadata"`
	ExtractedContent map[string]any `json:"extracted_content,omitempty"`
	Note             string         `json:"note"`
}

// SourceBlocks 数据源的提示词表示
func SourceBlocks(sources []wfmodel.SourceContext) []any {
	out := make([]any, 0, len(sources))
	for _, s := range sources {
		b := sourceBlock{
			ID:         s.ID,
			SourceType: s.SourceType,
			FileName:   s.FileName,
			SourceURL:  s.SourceURL,
			Metadata:   s.Metadata,
			Note:       noteContentMissing,
		}
		if b.Metadata == nil {
			b.Metadata = map[string]any{}
		}
		if len(s.ExtractedData) > 0 {
			b.ExtractedContent = s.ExtractedData
			b.Note = noteContentAvailable
		}
		out = append(out, b)
	}
	return out
}

// BuildProjectContext 汇总项目信息与数据源为一段上下文文本
func BuildProjectContext(pc wfmodel.ProjectContext) string {
	sections := make([]string, 0, 6)
	if pc.CompanyID != "" {
		sections = append(sections, "Company ID: "+pc.CompanyID)
	}
	sections = append(sections,
		"PROJECT NAME: "+orDefault(pc.Name, "Untitled"),
		"PROJECT DESCRIPTION: "+orDefault(pc.Description, "No description"),
		"PROJECT CONTEXT: "+orDefault(pc.Context, "No additional context"),
		fmt.Sprintf("\nDATA SOURCES (%d files):", len(pc.Sources)),
		prettyJSON(SourceBlocks(pc.Sources)),
	)
	return strings.Join(sections, "\n\n")
}

// StructuredInput 编排接口的结构化输入
type StructuredInput struct {
	ProjectID string
	Company   json.RawMessage
	Knowledge json.RawMessage
	Meetings  json.RawMessage
	Files     json.RawMessage
}

// BuildStructuredInput 将结构化字段拼成编排输入，字符串字段原样输出，其余格式化为 JSON
func BuildStructuredInput(in StructuredInput) string {
	parts := make([]string, 0, 5)
	if in.ProjectID != "" {
		parts = append(parts, "PROJECT_ID: "+in.ProjectID)
	}
	if s := rawBlock(in.Company); s != "" {
		parts = append(parts, "COMPANY:\n"+s)
	}
	if s := rawBlock(in.Knowledge); s != "" {
		parts = append(parts, "KNOWLEDGE_HUB:\n"+s)
	}
	if s := rawBlock(in.Meetings); s != "" {
		parts = append(parts, "MEETINGS_AND_COMMS:\n"+s)
	}
	if s := rawBlock(in.Files); s != "" {
		parts = append(parts, "FILES:\n"+s)
	}
	return strings.Join(parts, "\n\n")
}

// BuildPlanningData 规划阶段的数据块：每个抽取结果优先取解析值
func BuildPlanningData(results []wfmodel.ExtractionResult) string {
	items := make([]json.RawMessage, 0, len(results))
	for _, r := range results {
		items = append(items, r.PlanningInput())
	}
	return prettyJSON(items)
}

// IndentJSON 格式化任意 JSON，空值按空数组处理
func IndentJSON(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return "[]"
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return s
	}
	return prettyJSON(v)
}

func rawBlock(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" || s == `""` {
		return ""
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return str
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return s
	}
	return prettyJSON(v)
}

func prettyJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
