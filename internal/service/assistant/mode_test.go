package assistant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	img := []string{"data:image/jpeg;base64,AAAA"}
	snd := []byte("RIFF")

	cases := []struct {
		name    string
		req     Request
		missing string
		invalid bool
		mode    Mode
	}{
		{name: "no images", req: Request{Audio: snd, Mode: "instruct"}, missing: "images"},
		{name: "no mode", req: Request{Images: img, Audio: snd}, missing: "mode"},
		{name: "blank mode", req: Request{Images: img, Audio: snd, Mode: "  "}, missing: "mode"},
		{name: "unknown mode", req: Request{Images: img, Audio: snd, Mode: "dance"}, invalid: true},
		{name: "instruct without sound", req: Request{Images: img, Mode: "instruct"}, missing: "sound"},
		{name: "text without sound", req: Request{Images: img, Mode: "transcribe-text"}, missing: "sound"},
		{name: "general without sound", req: Request{Images: img, Mode: "general"}, mode: ModeGeneral},
		{name: "allaround alias", req: Request{Images: img, Mode: "allaround"}, mode: ModeGeneral},
		{name: "instruct", req: Request{Images: img, Audio: snd, Mode: "Instruct"}, mode: ModeInstruct},
		{name: "text", req: Request{Images: img, Audio: snd, Mode: "transcribe-text"}, mode: ModeTranscribeText},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tpl, err := Validate(tc.req)
			switch {
			case tc.missing != "":
				var mf *MissingFieldError
				require.ErrorAs(t, err, &mf)
				assert.Equal(t, tc.missing, mf.Field)
				assert.True(t, IsClientError(err))
			case tc.invalid:
				var im *InvalidModeError
				require.ErrorAs(t, err, &im)
				assert.True(t, IsClientError(err))
			default:
				require.NoError(t, err)
				assert.Equal(t, tc.mode, tpl.Mode)
			}
		})
	}
}

func TestTemplatesHistoryUsage(t *testing.T) {
	assert.True(t, templates[ModeInstruct].UsesHistory)
	assert.False(t, templates[ModeGeneral].UsesHistory)
	assert.False(t, templates[ModeTranscribeText].UsesHistory)
}

func TestModeString(t *testing.T) {
	for _, m := range []Mode{ModeGeneral, ModeInstruct, ModeTranscribeText} {
		parsed, err := ParseMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, parsed)
	}
}
