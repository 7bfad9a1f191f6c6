package message

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"AEye/internal/ai"
	"AEye/internal/service/assistant"
)

func prompt() []assistant.Message {
	return []assistant.Message{
		{Role: assistant.MessageSystem, Parts: []assistant.Part{{Text: "be brief"}}},
		{Role: assistant.MessageUser, Parts: []assistant.Part{{Text: "where is the door?"}}},
		{Role: assistant.MessageAssistant, Parts: []assistant.Part{{Text: "to your left"}}},
		{Role: assistant.MessageUser, Parts: []assistant.Part{
			{Text: "These images are taken from a video... My prompt is what now?"},
			{ImageURL: "data:image/jpeg;base64,AAAA"},
			{ImageURL: "data:image/jpeg;base64,BBBB"},
		}},
	}
}

type captured struct {
	path    string
	headers http.Header
	body    map[string]any
}

func fakeUpstream(t *testing.T, reply string) (*httptest.Server, *captured) {
	t.Helper()
	got := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.path = r.URL.Path
		got.headers = r.Header.Clone()
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, &got.body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

func TestAdapterComplete(t *testing.T) {
	srv, got := fakeUpstream(t, `{
		"id": "resp_1", "object": "response", "created_at": 1, "status": "completed", "model": "gpt-4o",
		"output": [{"type": "message", "id": "msg_1", "status": "completed", "role": "assistant",
			"content": [{"type": "output_text", "text": "The door is on your left.", "annotations": []}]}]
	}`)
	client := ai.NewOpenAI(ai.Endpoint{APIKey: "test", BaseURL: srv.URL})
	a := New(client, zap.NewNop().Sugar())

	text, err := a.Complete(context.Background(), prompt(), "")
	require.NoError(t, err)
	assert.Equal(t, "The door is on your left.", text)

	assert.Equal(t, "/responses", got.path)
	assert.Equal(t, "gpt-4o", got.body["model"])
	input, ok := got.body["input"].([]any)
	require.True(t, ok)
	require.Len(t, input, 4)
	assert.Equal(t, "system", input[0].(map[string]any)["role"])
	assert.Equal(t, "assistant", input[2].(map[string]any)["role"])

	last := input[3].(map[string]any)
	assert.Equal(t, "user", last["role"])
	content := last["content"].([]any)
	require.Len(t, content, 3)
	assert.Equal(t, "input_text", content[0].(map[string]any)["type"])
	assert.Equal(t, "input_image", content[1].(map[string]any)["type"])
	assert.Equal(t, "data:image/jpeg;base64,AAAA", content[1].(map[string]any)["image_url"])
}

func TestAdapterCompleteUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error": {"message": "bad image", "type": "invalid_request_error"}}`)
	}))
	defer srv.Close()

	a := New(ai.NewOpenAI(ai.Endpoint{APIKey: "test", BaseURL: srv.URL}), zap.NewNop().Sugar())
	_, err := a.Complete(context.Background(), prompt(), "gpt-4o")
	assert.Error(t, err)
}

func TestCompatComplete(t *testing.T) {
	srv, got := fakeUpstream(t, `{
		"id": "chatcmpl-1", "object": "chat.completion", "model": "llama",
		"choices": [{"index": 0, "message": {"role": "assistant", "content": "Stairs ahead."}, "finish_reason": "stop"}],
		"usage": {"prompt_tokens": 1, "completion_tokens": 2, "total_tokens": 3}
	}`)
	client := ai.NewCompat(ai.Endpoint{APIKey: "test", BaseURL: srv.URL + "/v1", Referrer: "https://aeye.local", Title: "AEye"})
	c := NewCompat(client, zap.NewNop().Sugar())

	text, err := c.Complete(context.Background(), prompt(), "llama-3.2-11b-vision")
	require.NoError(t, err)
	assert.Equal(t, "Stairs ahead.", text)

	assert.Equal(t, "/v1/chat/completions", got.path)
	assert.Equal(t, "https://aeye.local", got.headers.Get("HTTP-Referer"))
	assert.Equal(t, "AEye", got.headers.Get("X-Title"))

	msgs := got.body["messages"].([]any)
	require.Len(t, msgs, 4)
	assert.Equal(t, "be brief", msgs[0].(map[string]any)["content"])
	parts := msgs[3].(map[string]any)["content"].([]any)
	require.Len(t, parts, 3)
	assert.Equal(t, "text", parts[0].(map[string]any)["type"])
	assert.Equal(t, "image_url", parts[2].(map[string]any)["type"])
}

func TestCompatNoChoices(t *testing.T) {
	srv, _ := fakeUpstream(t, `{"id": "x", "object": "chat.completion", "choices": []}`)
	c := NewCompat(ai.NewCompat(ai.Endpoint{BaseURL: srv.URL}), zap.NewNop().Sugar())

	_, err := c.Complete(context.Background(), prompt(), "m")
	assert.Error(t, err)
}

func TestStubEchoesLastUserTurn(t *testing.T) {
	text, err := NewStub().Complete(context.Background(), prompt(), "")
	require.NoError(t, err)
	assert.Equal(t, "These images are taken from a video... My prompt is what now?", text)
}
