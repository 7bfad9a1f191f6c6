package compat

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"AEye/internal/ai"
)

func TestTranscribe(t *testing.T) {
	var path, model, filename string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.NoError(t, r.ParseMultipartForm(1<<20))
		model = r.FormValue("model")
		_, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		filename = hdr.Filename
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"text": "Where is the exit?"}`)
	}))
	defer srv.Close()

	client := ai.NewCompat(ai.Endpoint{APIKey: "test", BaseURL: srv.URL + "/openai/v1"})
	c := New(client, "whisper-large-v3", "", zap.NewNop().Sugar())

	text, err := c.Transcribe(context.Background(), strings.NewReader("RIFF-audio"))
	require.NoError(t, err)
	assert.Equal(t, "Where is the exit?", text)
	assert.Equal(t, "/openai/v1/audio/transcriptions", path)
	assert.Equal(t, "whisper-large-v3", model)
	assert.Equal(t, "input.wav", filename)
}
