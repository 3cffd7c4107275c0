package node

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"

	wfmodel "adjacent-api/internal/workflow/model"
)

// IsValidTaskArray 数组中每个元素都是带非空字符串 title 的对象。
// 空数组视为合法。
func IsValidTaskArray(v gjson.Result) bool {
	if !v.IsArray() {
		return false
	}
	valid := true
	v.ForEach(func(_, el gjson.Result) bool {
		title := el.Get("title")
		if !el.IsObject() || title.Type != gjson.String || title.Str == "" {
			valid = false
		}
		return valid
	})
	return valid
}

// HasActionList 对象中存在 actions 数组
func HasActionList(v gjson.Result) bool {
	return v.IsObject() && v.Get("actions").IsArray()
}

// AsTaskArray 收窄为任务数组，不满足 IsValidTaskArray 时返回 false
func AsTaskArray(v gjson.Result) ([]wfmodel.CandidateTask, bool) {
	if !IsValidTaskArray(v) {
		return nil, false
	}
	tasks := make([]wfmodel.CandidateTask, 0, len(v.Array()))
	v.ForEach(func(_, el gjson.Result) bool {
		tasks = append(tasks, wfmodel.CandidateTask{
			Title:       strings.TrimSpace(el.Get("title").Str),
			Description: stringField(el, "description"),
			Priority:    stringField(el, "priority"),
			Owner:       stringField(el, "owner"),
			DueDate:     stringField(el, "due_date"),
			Raw:         json.RawMessage(el.Raw),
		})
		return true
	})
	return tasks, true
}

// AsActionList 收窄为动作列表，字段缺失或类型不符时按零值处理
func AsActionList(v gjson.Result) ([]wfmodel.PipelineAction, bool) {
	if !HasActionList(v) {
		return nil, false
	}
	var actions []wfmodel.PipelineAction
	v.Get("actions").ForEach(func(_, el gjson.Result) bool {
		if !el.IsObject() {
			return true
		}
		act := wfmodel.PipelineAction{
			Type: wfmodel.ActionType(strings.ToLower(stringField(el, "type"))),
			Text: stringField(el, "text"),
		}
		el.Get("media").ForEach(func(_, m gjson.Result) bool {
			if m.Type == gjson.String && strings.TrimSpace(m.Str) != "" {
				act.Media = append(act.Media, m.Str)
			}
			return true
		})
		actions = append(actions, act)
		return true
	})
	return actions, true
}

// AsEntities 读取 {entities:[...]}，忽略缺少 text 的元素
func AsEntities(v gjson.Result) ([]wfmodel.ExtractedEntity, bool) {
	list := v.Get("entities")
	if !v.IsObject() || !list.IsArray() {
		return nil, false
	}
	var entities []wfmodel.ExtractedEntity
	list.ForEach(func(_, el gjson.Result) bool {
		text := stringField(el, "text")
		if text == "" {
			return true
		}
		e := wfmodel.ExtractedEntity{
			Type: wfmodel.EntityType(stringField(el, "type")),
			Text: text,
		}
		if c := el.Get("confidence"); c.Type == gjson.Number {
			f := c.Float()
			e.Confidence = &f
		}
		if m, ok := el.Get("metadata").Value().(map[string]any); ok {
			e.Metadata = m
		}
		entities = append(entities, e)
		return true
	})
	return entities, true
}

func stringField(v gjson.Result, key string) string {
	f := v.Get(key)
	if f.Type != gjson.String {
		return ""
	}
	return strings.TrimSpace(f.Str)
}
