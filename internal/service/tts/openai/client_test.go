package openai

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
	"AEye/internal/config"
)

func TestSynthesize(t *testing.T) {
	var (
		path string
		body map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "audio/wav")
		_, _ = io.WriteString(w, "RIFF-wav")
	}))
	defer srv.Close()

	c := New(ai.NewOpenAI(ai.Endpoint{APIKey: "test", BaseURL: srv.URL}),
		config.OpenAITTSConfig{Instructions: "Speak slowly"}, zap.NewNop().Sugar())
	clip, err := c.Synthesize(context.Background(), "Turn left.")
	require.NoError(t, err)

	assert.Equal(t, "wav", clip.Format)
	assert.Equal(t, "RIFF-wav", string(clip.Data))
	assert.Equal(t, "/audio/speech", path)
	assert.Equal(t, "Turn left.", body["input"])
	assert.Equal(t, "gpt-4o-mini-tts", body["model"])
	assert.Equal(t, "alloy", body["voice"])
	assert.Equal(t, "wav", body["response_format"])
	assert.Equal(t, "Speak slowly", body["instructions"])
}

func TestSynthesizeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error": {"message": "bad voice"}}`)
	}))
	defer srv.Close()

	c := New(ai.NewOpenAI(ai.Endpoint{APIKey: "test", BaseURL: srv.URL}), config.OpenAITTSConfig{}, zap.NewNop().Sugar())
	_, err := c.Synthesize(context.Background(), "x")
	assert.Error(t, err)
}
