package stub

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranscriber(t *testing.T) {
	text, err := New("What is in front of me?").Transcribe(context.Background(), strings.NewReader("RIFF"))
	require.NoError(t, err)
	assert.Equal(t, "What is in front of me?", text)
}
