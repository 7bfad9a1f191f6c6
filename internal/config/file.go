package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const groqBaseURL = "https://api.groq.com/openai/v1"

// fileConfig повторяет секцию backend из config.yaml веб-версии:
//
//	backend:
//	  mode: groq | scaleway | openai
//	  groq_api: {api_key, transcript_model_name, vllm_model_name}
//	  scaleway_vllm_api: {base_url, api_key, vllm_model_name}
type fileConfig struct {
	Backend struct {
		Mode    string `yaml:"mode"`
		GroqAPI struct {
			APIKey              string `yaml:"api_key"`
			TranscriptModelName string `yaml:"transcript_model_name"`
			VLLMModelName       string `yaml:"vllm_model_name"`
		} `yaml:"groq_api"`
		ScalewayVLLMAPI struct {
			BaseURL       string `yaml:"base_url"`
			APIKey        string `yaml:"api_key"`
			VLLMModelName string `yaml:"vllm_model_name"`
		} `yaml:"scaleway_vllm_api"`
		OpenAI struct {
			APIKey          string `yaml:"api_key"`
			ModelName       string `yaml:"model_name"`
			TranscriptModel string `yaml:"transcript_model_name"`
		} `yaml:"openai_api"`
	} `yaml:"backend"`
	Server struct {
		BindAddr string `yaml:"bind_addr"`
	} `yaml:"server"`
	TTSService string `yaml:"tts_service"`
}

// applyFile переносит значения YAML поверх дефолтов.
func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	b := fc.Backend
	switch strings.ToLower(strings.TrimSpace(b.Mode)) {
	case "":
	case "groq":
		cfg.Chat.Provider = "compat"
		cfg.Chat.BaseURL = groqBaseURL
		cfg.Chat.APIKey = b.GroqAPI.APIKey
		setIf(&cfg.Chat.Model, b.GroqAPI.VLLMModelName)
		cfg.STT.Provider = "compat"
		cfg.STT.BaseURL = groqBaseURL
		cfg.STT.APIKey = b.GroqAPI.APIKey
		setIf(&cfg.STT.Model, b.GroqAPI.TranscriptModelName)
	case "scaleway":
		// Распознавание речи остаётся на провайдере STT по умолчанию.
		cfg.Chat.Provider = "compat"
		cfg.Chat.BaseURL = b.ScalewayVLLMAPI.BaseURL
		cfg.Chat.APIKey = b.ScalewayVLLMAPI.APIKey
		setIf(&cfg.Chat.Model, b.ScalewayVLLMAPI.VLLMModelName)
	case "openai":
		cfg.Chat.Provider = "openai"
		cfg.STT.Provider = "openai"
		setIf(&cfg.Chat.APIKey, b.OpenAI.APIKey)
		setIf(&cfg.STT.APIKey, b.OpenAI.APIKey)
		setIf(&cfg.Chat.Model, b.OpenAI.ModelName)
		setIf(&cfg.STT.Model, b.OpenAI.TranscriptModel)
	default:
		return fmt.Errorf("config: backend.mode=%q, ожидается groq|scaleway|openai", b.Mode)
	}

	setIf(&cfg.Server.BindAddr, fc.Server.BindAddr)
	setIf(&cfg.TTSService, fc.TTSService)
	return nil
}

func setIf(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}
