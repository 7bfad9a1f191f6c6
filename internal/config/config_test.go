package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type ConfigSuite struct {
	suite.Suite
	dir string
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigSuite))
}

func (s *ConfigSuite) SetupTest() {
	s.dir = s.T().TempDir()
	for _, k := range []string{
		"CONFIG_FILE", "HISTORY_SCOPE", "HISTORY_BACKEND", "CHAT_PROVIDER", "CHAT_MODEL", "CHAT_BASE_URL",
		"STT_PROVIDER", "STT_BASE_URL", "SESSION_IDLE_THRESHOLD", "TTS_OUTPUT_FORMAT", "SERVER_BIND_ADDR",
		"YC_TTS_API_KEY", "YC_STT_API_KEY",
	} {
		s.T().Setenv(k, "")
	}
	s.T().Setenv("TTS_SERVICE", "none")
}

func (s *ConfigSuite) writeYAML(body string) string {
	path := filepath.Join(s.dir, "config.yaml")
	s.Require().NoError(os.WriteFile(path, []byte(body), 0o600))
	return path
}

func (s *ConfigSuite) TestDefaults() {
	cfg, err := Load(nil)
	s.Require().NoError(err)

	s.Equal(100*time.Second, cfg.Session.IdleThreshold)
	s.Equal("global", cfg.Session.HistoryScope)
	s.Equal("chat_history", cfg.Session.GlobalKey)
	s.Equal("file", cfg.History.Backend)
	s.Equal("openai", cfg.Chat.Provider)
	s.Equal("/instruct", cfg.Server.Path)
	s.Equal("wav", cfg.TTSOutputFormat)
}

func (s *ConfigSuite) TestEnvOverrides() {
	s.T().Setenv("SESSION_IDLE_THRESHOLD", "30s")
	s.T().Setenv("HISTORY_SCOPE", "Client")
	s.T().Setenv("HISTORY_BACKEND", "libsql")
	s.T().Setenv("CHAT_MODEL", "gpt-4o-mini")

	cfg, err := Load(nil)
	s.Require().NoError(err)

	s.Equal(30*time.Second, cfg.Session.IdleThreshold)
	s.Equal("client", cfg.Session.HistoryScope)
	s.Equal("libsql", cfg.History.Backend)
	s.Equal("gpt-4o-mini", cfg.Chat.Model)
}

func (s *ConfigSuite) TestFlagsOverrideEnv() {
	s.T().Setenv("CHAT_MODEL", "from-env")

	cfg, err := Load([]string{"-chat-model", "from-flag", "-idle-threshold=45s", "-tts-output-format", "native"})
	s.Require().NoError(err)

	s.Equal("from-flag", cfg.Chat.Model)
	s.Equal(45*time.Second, cfg.Session.IdleThreshold)
	s.Equal("native", cfg.TTSOutputFormat)
}

func (s *ConfigSuite) TestYAMLGroq() {
	s.T().Setenv("CONFIG_FILE", s.writeYAML(`
backend:
  mode: groq
  groq_api:
    api_key: gsk_test
    transcript_model_name: whisper-large-v3
    vllm_model_name: llama-3.2-90b-vision-preview
server:
  bind_addr: 127.0.0.1:5050
`))

	cfg, err := Load(nil)
	s.Require().NoError(err)

	s.Equal("compat", cfg.Chat.Provider)
	s.Equal(groqBaseURL, cfg.Chat.BaseURL)
	s.Equal("gsk_test", cfg.Chat.APIKey)
	s.Equal("llama-3.2-90b-vision-preview", cfg.Chat.Model)
	s.Equal("compat", cfg.STT.Provider)
	s.Equal("whisper-large-v3", cfg.STT.Model)
	s.Equal("127.0.0.1:5050", cfg.Server.BindAddr)
}

func (s *ConfigSuite) TestYAMLScalewayViaFlagEnvWins() {
	path := s.writeYAML(`
backend:
  mode: scaleway
  scaleway_vllm_api:
    base_url: https://api.scaleway.ai/v1
    api_key: scw
    vllm_model_name: pixtral-12b-2409
`)
	s.T().Setenv("CHAT_MODEL", "mistral-small")

	cfg, err := Load([]string{"-config=" + path})
	s.Require().NoError(err)

	s.Equal("compat", cfg.Chat.Provider)
	s.Equal("https://api.scaleway.ai/v1", cfg.Chat.BaseURL)
	s.Equal("mistral-small", cfg.Chat.Model)
	s.Equal("openai", cfg.STT.Provider)
}

func (s *ConfigSuite) TestYAMLErrors() {
	s.T().Setenv("CONFIG_FILE", s.writeYAML("backend:\n  mode: local-whisper\n"))
	_, err := Load(nil)
	s.Error(err)

	s.T().Setenv("CONFIG_FILE", filepath.Join(s.dir, "missing.yaml"))
	_, err = Load(nil)
	s.Error(err)
}

func (s *ConfigSuite) TestValidation() {
	cases := map[string]map[string]string{
		"scope":       {"HISTORY_SCOPE": "team"},
		"backend":     {"HISTORY_BACKEND": "redis"},
		"compat url":  {"CHAT_PROVIDER": "compat"},
		"stt compat":  {"STT_PROVIDER": "compat"},
		"yandex stt":  {"STT_PROVIDER": "yandex"},
		"yandex tts":  {"TTS_SERVICE": "yandex"},
		"tts service": {"TTS_SERVICE": "festival"},
		"threshold":   {"SESSION_IDLE_THRESHOLD": "-1s"},
	}
	for name, vars := range cases {
		s.Run(name, func() {
			for k, v := range vars {
				s.T().Setenv(k, v)
			}
			_, err := Load(nil)
			s.Error(err)
		})
	}
}

func (s *ConfigSuite) TestGoogleCredentials() {
	s.T().Setenv("TTS_SERVICE", "google")
	s.T().Setenv("GOOGLE_APPLICATION_CREDENTIALS", filepath.Join(s.dir, "absent.json"))
	_, err := Load(nil)
	s.Error(err)

	key := filepath.Join(s.dir, "sa.json")
	s.Require().NoError(os.WriteFile(key, []byte("{}"), 0o600))
	s.T().Setenv("GOOGLE_APPLICATION_CREDENTIALS", key)
	cfg, err := Load(nil)
	s.Require().NoError(err)
	s.Equal("google", cfg.TTSService)
}
