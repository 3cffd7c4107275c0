package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"adjacent-api/internal/config"
	wfmodel "adjacent-api/internal/workflow/model"
	wfnode "adjacent-api/internal/workflow/node"
	workflowport "adjacent-api/internal/workflow/port"
)

const (
	orchestratorModel = "nvidia/nvidia-nemotron-nano-9b-v2"
	extractionModel   = "nvidia/nemotron-nano-12b-v2-vl"
)

func testConfig(base string) *config.LLMConfig {
	return &config.LLMConfig{
		APIBase:         base,
		OrchestratorKey: "orch-key",
		ExtractionKey:   "extr-key",
		APIKey:          "generic-key",
		Timeout:         5 * time.Second,
	}
}

func request(model string) *wfmodel.ModelRequest {
	return &wfmodel.ModelRequest{
		Model:       model,
		Messages:    []wfmodel.ChatMessage{wfmodel.SystemMessage("/think"), wfmodel.UserMessage("hello")},
		Temperature: wfmodel.Float(0.6),
		ExtraParams: map[string]any{"min_thinking_tokens": 1024},
	}
}

func TestResolveAPIKey(t *testing.T) {
	cfg := testConfig("")
	assert.Equal(t, "orch-key", resolveAPIKey(cfg, orchestratorModel))
	assert.Equal(t, "orch-key", resolveAPIKey(cfg, "NEMOTRON-9B"))
	assert.Equal(t, "extr-key", resolveAPIKey(cfg, extractionModel))
	assert.Equal(t, "generic-key", resolveAPIKey(cfg, "meta/llama-3-70b"))
}

func TestGatewayInvokePostsPayload(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"choices":[{"message":{"content":"{\"actions\":[]}"}}]}`)
	}))
	defer srv.Close()

	g := NewGatewayWithClient(testConfig(srv.URL+"/v1/"), srv.Client())
	resp, err := g.Invoke(context.Background(), request(orchestratorModel))
	require.NoError(t, err)

	assert.Equal(t, "Bearer orch-key", gotAuth)
	assert.Equal(t, orchestratorModel, gotBody["model"])
	assert.EqualValues(t, 0.6, gotBody["temperature"])
	assert.EqualValues(t, 1, gotBody["top_p"])
	assert.EqualValues(t, 2048, gotBody["max_tokens"])
	assert.EqualValues(t, 1024, gotBody["min_thinking_tokens"])
	assert.Equal(t, false, gotBody["stream"])
	assert.Equal(t, `{"actions":[]}`, gjson.GetBytes(resp, "choices.0.message.content").Str)
}

func TestGatewayUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, "rate limited")
	}))
	defer srv.Close()

	g := NewGatewayWithClient(testConfig(srv.URL), srv.Client())
	_, err := g.Invoke(context.Background(), request(extractionModel))

	var upErr *workflowport.UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, http.StatusTooManyRequests, upErr.Status)
	assert.Equal(t, "rate limited", upErr.Body)
	assert.Contains(t, err.Error(), "429")
}

func TestGatewayMissingCredential(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.ExtractionKey = ""
	_, err := NewGatewayWithClient(cfg, srv.Client()).Invoke(context.Background(), request(extractionModel))

	var cfgErr *workflowport.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, extractionModel, cfgErr.Model)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestGatewayMockModeSkipsNetwork(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	cfg := &config.LLMConfig{Mock: true, APIBase: srv.URL}
	g := NewGatewayWithClient(cfg, srv.Client())

	orch, err := g.Invoke(context.Background(), request(orchestratorModel))
	require.NoError(t, err)
	assert.True(t, gjson.GetBytes(orch, "messages").IsArray())
	v, ok := wfnode.ExtractJSON(orch)
	require.True(t, ok)
	assert.True(t, wfnode.HasActionList(v))
	assert.Empty(t, v.Get("actions").Array())

	extr, err := g.Invoke(context.Background(), request(extractionModel))
	require.NoError(t, err)
	assert.True(t, gjson.GetBytes(extr, "entities").IsArray())
	v, ok = wfnode.ExtractJSON(extr)
	require.True(t, ok)
	entities, ok := wfnode.AsEntities(v)
	require.True(t, ok)
	assert.Empty(t, entities)

	again, err := g.Invoke(context.Background(), request(extractionModel))
	require.NoError(t, err)
	assert.Equal(t, string(extr), string(again))

	stream, err := g.Stream(context.Background(), request(extractionModel))
	require.NoError(t, err)
	b, err := io.ReadAll(stream)
	require.NoError(t, err)
	require.NoError(t, stream.Close())
	assert.Contains(t, string(b), "data: [DONE]")

	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestGatewayStreamPassesBytesThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, true, body["stream"])
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		_, _ = io.WriteString(w, "data: {\"x\":1}\n\ndata: [DONE]\n\n")
	}))
	defer srv.Close()

	rc, err := NewGatewayWithClient(testConfig(srv.URL), srv.Client()).Stream(context.Background(), request("generic-model"))
	require.NoError(t, err)
	defer rc.Close()

	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "data: {\"x\":1}\n\ndata: [DONE]\n\n", string(b))
}

func TestGatewayTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.Timeout = 50 * time.Millisecond
	_, err := NewGatewayWithClient(cfg, srv.Client()).Invoke(context.Background(), request(orchestratorModel))

	var upErr *workflowport.UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Zero(t, upErr.Status)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGatewayRejectsInvalidRequest(t *testing.T) {
	g := NewGatewayWithClient(&config.LLMConfig{Mock: true}, nil)
	_, err := g.Invoke(context.Background(), &wfmodel.ModelRequest{Model: orchestratorModel})
	assert.Error(t, err)
}
