package node

import (
	"strings"

	"github.com/tidwall/gjson"

	wfmodel "adjacent-api/internal/workflow/model"
)

// ShapeMatcher 从某种已知响应结构中取出候选文本
type ShapeMatcher struct {
	Name  string
	Match func(body gjson.Result, raw []byte) (string, bool)
}

func pathMatcher(name, path string) ShapeMatcher {
	return ShapeMatcher{
		Name: name,
		Match: func(body gjson.Result, _ []byte) (string, bool) {
			if !body.IsObject() {
				return "", false
			}
			v := body.Get(path)
			if v.Type != gjson.String || v.Str == "" {
				return "", false
			}
			return v.Str, true
		},
	}
}

// ResponseShapes 候选文本的固定探测顺序
var ResponseShapes = []ShapeMatcher{
	{
		Name: "raw",
		Match: func(body gjson.Result, raw []byte) (string, bool) {
			// 响应体本身是 JSON 字符串，或根本不是 JSON
			if body.Type == gjson.String {
				return body.Str, body.Str != ""
			}
			if !gjson.ValidBytes(raw) {
				s := string(raw)
				return s, strings.TrimSpace(s) != ""
			}
			return "", false
		},
	},
	pathMatcher("output", "output"),
	pathMatcher("choices.message.content", "choices.0.message.content"),
	pathMatcher("choices.text", "choices.0.text"),
	pathMatcher("choices.content", "choices.0.content"),
}

// Candidates 按 ResponseShapes 顺序收集候选文本
func Candidates(resp wfmodel.Response) []string {
	raw := []byte(resp)
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil
	}
	var body gjson.Result
	if gjson.ValidBytes(raw) {
		body = gjson.ParseBytes(raw)
	}

	out := make([]string, 0, len(ResponseShapes))
	for _, shape := range ResponseShapes {
		if s, ok := shape.Match(body, raw); ok {
			out = append(out, s)
		}
	}
	return out
}

// ExtractJSON 从模型响应中找出嵌入的 JSON 值。
// 每个候选先尝试最外层 {...} / [...] 片段，再尝试整段解析；全部失败返回 false，不报错。
func ExtractJSON(resp wfmodel.Response) (gjson.Result, bool) {
	for _, c := range Candidates(resp) {
		if v, ok := ExtractJSONFromText(c); ok {
			return v, true
		}
	}
	return gjson.Result{}, false
}

// ExtractJSONFromText 对单个候选文本执行片段解析与整段解析
func ExtractJSONFromText(s string) (gjson.Result, bool) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return gjson.Result{}, false
	}
	if span := ExtractJSONObject(trimmed); span != "" && gjson.Valid(span) {
		return gjson.Parse(span), true
	}
	if gjson.Valid(trimmed) {
		return gjson.Parse(trimmed), true
	}
	return gjson.Result{}, false
}

// ExtractJSONObject 截取第一个 { 或 [ 到与之对应的最后一个 } 或 ] 的片段。
// 找不到时返回空串。片段是否为合法 JSON 由调用方判断。
func ExtractJSONObject(s string) string {
	lastObj := strings.LastIndexByte(s, '}')
	lastArr := strings.LastIndexByte(s, ']')
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			if lastObj > i {
				return s[i : lastObj+1]
			}
		case '[':
			if lastArr > i {
				return s[i : lastArr+1]
			}
		}
	}
	return ""
}
