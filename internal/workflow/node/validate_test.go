package node

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	wfmodel "adjacent-api/internal/workflow/model"
)

func TestIsValidTaskArray(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"single task", `[{"title":"Ship login page"}]`, true},
		{"extra fields untyped", `[{"title":"a","priority":7,"owner":null},{"title":"b"}]`, true},
		{"empty array", `[]`, true},
		{"missing title", `[{"title":"a"},{"description":"b"}]`, false},
		{"non string title", `[{"title":3}]`, false},
		{"empty title", `[{"title":""}]`, false},
		{"null element", `[null]`, false},
		{"string element", `["task"]`, false},
		{"object not array", `{"title":"a"}`, false},
		{"tasks wrapper", `{"tasks":[{"title":"a"}]}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidTaskArray(gjson.Parse(tt.in)))
		})
	}
}

func TestHasActionList(t *testing.T) {
	assert.True(t, HasActionList(gjson.Parse(`{"actions":[]}`)))
	assert.True(t, HasActionList(gjson.Parse(`{"actions":[1,"x"]}`)))
	assert.False(t, HasActionList(gjson.Parse(`{"actions":{}}`)))
	assert.False(t, HasActionList(gjson.Parse(`{"other":[]}`)))
	assert.False(t, HasActionList(gjson.Parse(`[{"actions":[]}]`)))
}

func TestAsTaskArray(t *testing.T) {
	tasks, ok := AsTaskArray(gjson.Parse(`[{"title":" Ship login page ","owner":"Dana","priority":"HIGH","due_date":"2026-10-16","extra":1}]`))
	require.True(t, ok)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Ship login page", tasks[0].Title)
	assert.Equal(t, "Dana", tasks[0].Owner)
	assert.Equal(t, "HIGH", tasks[0].Priority)
	assert.Equal(t, "2026-10-16", tasks[0].DueDate)
	assert.JSONEq(t, `{"title":" Ship login page ","owner":"Dana","priority":"HIGH","due_date":"2026-10-16","extra":1}`, string(tasks[0].Raw))

	_, ok = AsTaskArray(gjson.Parse(`[{"name":"x"}]`))
	assert.False(t, ok)
}

func TestAsActionList(t *testing.T) {
	actions, ok := AsActionList(gjson.Parse(`{"actions":[
		{"type":"extract","text":"notes","media":["https://x.com/a.png", 3, ""]},
		{"type":"PLAN","text":"plan it"},
		"junk",
		{"text":"no type"}
	]}`))
	require.True(t, ok)
	require.Len(t, actions, 3)
	assert.Equal(t, wfmodel.ActionExtract, actions[0].Type)
	assert.Equal(t, []string{"https://x.com/a.png"}, actions[0].Media)
	assert.Equal(t, wfmodel.ActionPlan, actions[1].Type)
	assert.Empty(t, actions[2].Type)

	_, ok = AsActionList(gjson.Parse(`{"steps":[]}`))
	assert.False(t, ok)
}

func TestAsEntities(t *testing.T) {
	entities, ok := AsEntities(gjson.Parse(`{"entities":[
		{"type":"deliverable","text":"Ship login page","confidence":0.9},
		{"type":"owner","text":"Dana","metadata":{"role":"eng"}},
		{"type":"note"}
	]}`))
	require.True(t, ok)
	require.Len(t, entities, 2)
	assert.Equal(t, wfmodel.EntityDeliverable, entities[0].Type)
	require.NotNil(t, entities[0].Confidence)
	assert.InDelta(t, 0.9, *entities[0].Confidence, 1e-9)
	assert.Equal(t, map[string]any{"role": "eng"}, entities[1].Metadata)
}
