package node

import (
	"strings"

	wfmodel "adjacent-api/internal/workflow/model"
)

// MediaKind 媒体引用分类
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

// 思考模式提示，作为 system 消息发送
const (
	ThinkingOn  = "/think"
	ThinkingOff = "/no_think"
)

var videoExtensions = []string{".mp4", ".webm", ".mov"}

// ClassifyMedia data URI 含 video 即视为视频，URL 按扩展名判断，其余都是图片
func ClassifyMedia(ref string) MediaKind {
	low := strings.ToLower(strings.TrimSpace(ref))
	if strings.HasPrefix(low, "data:") {
		if strings.Contains(low, "video") {
			return MediaVideo
		}
		return MediaImage
	}
	for _, ext := range videoExtensions {
		if strings.HasSuffix(low, ext) {
			return MediaVideo
		}
	}
	return MediaImage
}

// HasVideo 任一媒体为视频
func HasVideo(media []string) bool {
	for _, m := range media {
		if ClassifyMedia(m) == MediaVideo {
			return true
		}
	}
	return false
}

// ThinkingHint 含视频时关闭扩展思考
func ThinkingHint(media []string) string {
	if HasVideo(media) {
		return ThinkingOff
	}
	return ThinkingOn
}

// CompactMedia 去掉首尾空白并丢弃空引用
func CompactMedia(media []string) []string {
	refs := make([]string, 0, len(media))
	for _, m := range media {
		if ref := strings.TrimSpace(m); ref != "" {
			refs = append(refs, ref)
		}
	}
	return refs
}

// BuildMediaContent 组装抽取输入：无媒体时为纯文本消息，否则文本片段在前、媒体片段随后
func BuildMediaContent(text string, media []string) wfmodel.ChatMessage {
	refs := CompactMedia(media)
	if len(refs) == 0 {
		return wfmodel.UserMessage(text)
	}

	parts := make([]wfmodel.ContentPart, 0, len(refs)+1)
	parts = append(parts, wfmodel.TextPart(text))
	for _, ref := range refs {
		if ClassifyMedia(ref) == MediaVideo {
			parts = append(parts, wfmodel.VideoPart(ref))
		} else {
			parts = append(parts, wfmodel.ImagePart(ref))
		}
	}
	return wfmodel.UserParts(parts...)
}
