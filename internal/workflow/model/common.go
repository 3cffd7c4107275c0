package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Role 消息角色
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// PartType 多模态内容片段类型
type PartType string

const (
	PartText     PartType = "text"
	PartImageURL PartType = "image_url"
	PartVideoURL PartType = "video_url"
)

// MediaURL 图片/视频引用，data URI 或远程地址
type MediaURL struct {
	URL string `json:"url"`
}

// ContentPart 多模态消息片段，按 Type 只填充对应字段
type ContentPart struct {
	Type     PartType  `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *MediaURL `json:"image_url,omitempty"`
	VideoURL *MediaURL `json:"video_url,omitempty"`
}

func TextPart(text string) ContentPart {
	return ContentPart{Type: PartText, Text: text}
}

func ImagePart(url string) ContentPart {
	return ContentPart{Type: PartImageURL, ImageURL: &MediaURL{URL: url}}
}

func VideoPart(url string) ContentPart {
	return ContentPart{Type: PartVideoURL, VideoURL: &MediaURL{URL: url}}
}

// ChatMessage 发往模型网关的消息。
// Parts 非空时序列化为多模态数组，否则 content 为纯文本。
type ChatMessage struct {
	Role  Role
	Text  string
	Parts []ContentPart
}

func SystemMessage(text string) ChatMessage {
	return ChatMessage{Role: RoleSystem, Text: text}
}

func UserMessage(text string) ChatMessage {
	return ChatMessage{Role: RoleUser, Text: text}
}

// UserParts 构造多模态用户消息，首个片段通常是指令文本
func UserParts(parts ...ContentPart) ChatMessage {
	return ChatMessage{Role: RoleUser, Parts: parts}
}

// IsMultimodal 是否为多模态内容
func (m ChatMessage) IsMultimodal() bool {
	return len(m.Parts) > 0
}

// Validate 检查消息内容是否可发送
func (m ChatMessage) Validate() error {
	switch m.Role {
	case RoleSystem, RoleUser, RoleAssistant, RoleTool:
	default:
		return fmt.Errorf("unknown message role %q", m.Role)
	}
	for i, p := range m.Parts {
		switch p.Type {
		case PartText:
		case PartImageURL:
			if p.ImageURL == nil || strings.TrimSpace(p.ImageURL.URL) == "" {
				return fmt.Errorf("part %d: image_url is empty", i)
			}
		case PartVideoURL:
			if p.VideoURL == nil || strings.TrimSpace(p.VideoURL.URL) == "" {
				return fmt.Errorf("part %d: video_url is empty", i)
			}
		default:
			return fmt.Errorf("part %d: unknown type %q", i, p.Type)
		}
	}
	return nil
}

type wireMessage struct {
	Role    Role `json:"role"`
	Content any  `json:"content"`
}

// MarshalJSON 输出 chat-completions 协议格式
func (m ChatMessage) MarshalJSON() ([]byte, error) {
	w := wireMessage{Role: m.Role, Content: m.Text}
	if m.IsMultimodal() {
		w.Content = m.Parts
	}
	return json.Marshal(w)
}

// UnmarshalJSON 接受纯文本或片段数组两种 content
func (m *ChatMessage) UnmarshalJSON(b []byte) error {
	var w struct {
		Role    Role            `json:"role"`
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	m.Role = w.Role
	m.Text = ""
	m.Parts = nil

	content := strings.TrimSpace(string(w.Content))
	switch {
	case content == "" || content == "null":
		return nil
	case strings.HasPrefix(content, "["):
		return json.Unmarshal(w.Content, &m.Parts)
	default:
		return json.Unmarshal(w.Content, &m.Text)
	}
}
