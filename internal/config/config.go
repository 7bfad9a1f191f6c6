package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	DebugMode  bool   `env:"DEBUG_MODE"`  //Режим дебага
	ConfigFile string `env:"CONFIG_FILE"` // YAML в формате config.yaml (секция backend), необязательный

	Server  ServerConfig
	Session SessionConfig
	History HistoryConfig
	Chat    ChatConfig
	STT     STTConfig

	// Общий переключатель сервиса TTS и конфиги провайдеров
	TTSService      string `env:"TTS_SERVICE"`       // google|gemini|yandex|openai|none
	TTSOutputFormat string `env:"TTS_OUTPUT_FORMAT"` // wav: перекодировать ответ в WAV; native: отдавать как есть
	GoogleTTS       GoogleTTSConfig
	GeminiTTS       GeminiTTSConfig
	YandexTTS       YandexTTSConfig
	OpenAITTS       OpenAITTSConfig

	Timeouts TimeoutsConfig
	Images   ImagesConfig
	Scratch  ScratchConfig
}

// ServerConfig HTTP-приёмник запросов клиента.
type ServerConfig struct {
	BindAddr     string        `env:"SERVER_BIND_ADDR"`      // напр. 0.0.0.0:5000
	Path         string        `env:"SERVER_PATH"`           // путь обработчика, по умолчанию /instruct
	MaxBodyBytes int64         `env:"SERVER_MAX_BODY_BYTES"` // предел размера JSON тела
	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT"` // должен покрывать все этапы конвейера
	AllowOrigin  string        `env:"SERVER_ALLOW_ORIGIN"`  // CORS для веб-клиента; пусто: заголовок не ставится
}

// SessionConfig правила сброса и разделения диалогов.
type SessionConfig struct {
	IdleThreshold time.Duration `env:"SESSION_IDLE_THRESHOLD"` // пауза, после которой история начинается заново
	HistoryScope  string        `env:"HISTORY_SCOPE"`          // global: один общий диалог; client: по session_id / X-Session-ID
	GlobalKey     string        `env:"HISTORY_GLOBAL_KEY"`     // ключ общего диалога
}

// HistoryConfig хранилище истории диалога.
type HistoryConfig struct {
	Backend string `env:"HISTORY_BACKEND"` // file|libsql|memory
	Dir     string `env:"HISTORY_DIR"`     // для file: каталог с <key>.json
	DBPath  string `env:"HISTORY_DB_PATH"` // для libsql: путь к файлу базы
}

// ChatConfig мультимодальная чат-модель.
type ChatConfig struct {
	Provider string `env:"CHAT_PROVIDER"` // openai|compat|stub
	Model    string `env:"CHAT_MODEL"`
	BaseURL  string `env:"CHAT_BASE_URL"` // для compat: Groq, Scaleway, OpenRouter
	APIKey   string `env:"CHAT_API_KEY"`  // для openai можно не задавать, SDK читает OPENAI_API_KEY
	Referrer string `env:"CHAT_HTTP_REFERER"`
	Title    string `env:"CHAT_X_TITLE"`
}

// STTConfig распознавание речи.
type STTConfig struct {
	Provider string `env:"STT_PROVIDER"` // openai|compat|yandex|stub
	Model    string `env:"STT_MODEL"`
	Language string `env:"STT_LANGUAGE"`
	BaseURL  string `env:"STT_BASE_URL"`
	APIKey   string `env:"STT_API_KEY"`
	StubText string `env:"STT_STUB_TEXT"` // ответ заглушки
	Yandex   YandexSTTConfig
}

// YandexSTTConfig потоковое распознавание Yandex SpeechKit (WebSocket).
type YandexSTTConfig struct {
	APIKey        string `env:"YC_STT_API_KEY"`
	Endpoint      string `env:"YC_STT_ENDPOINT"`
	Language      string `env:"YC_STT_LANGUAGE"`
	StartJSON     string `env:"YC_STT_START_JSON"`
	EndJSON       string `env:"YC_STT_END_JSON"`
	AllowPartials bool   `env:"YC_STT_ALLOW_PARTIALS"`
}

// YandexTTSConfig конфигурация для синтеза речи через Yandex SpeechKit.
type YandexTTSConfig struct {
	APIKey   string `env:"YC_TTS_API_KEY"`  // Ключ берём из .env/ENV. Если пуст, при использовании будет ошибка
	Endpoint string `env:"YC_TTS_ENDPOINT"` // пусто: tts.api.cloud.yandex.net
	Voice    string `env:"YC_TTS_VOICE"`    // Голос, по умолчанию filipp
	Format   string `env:"YC_TTS_FORMAT"`   // mp3|wav|oggopus, по умолчанию mp3
	Speed    string `env:"YC_TTS_SPEED"`    // Скорость синтеза (1.0 по умолчанию в API)
	Emotion  string `env:"YC_TTS_EMOTION"`  // Эмоциональная окраска: neutral|good|evil
}

// GoogleTTSConfig конфигурация для синтеза речи через Google Cloud Text-to-Speech.
type GoogleTTSConfig struct {
	// Путь к файлу ключа сервисного аккаунта. Фактически читается из ENV GOOGLE_APPLICATION_CREDENTIALS.
	// Здесь храним дефолт (service-account.json в корне проекта) для удобства.
	CredentialsPath string  `env:"GOOGLE_APPLICATION_CREDENTIALS"`
	Language        string  `env:"GOOGLE_TTS_LANGUAGE"`
	Voice           string  `env:"GOOGLE_TTS_VOICE"`
	SpeakingRate    float64 `env:"GOOGLE_TTS_SPEAKING_RATE"`
	Pitch           float64 `env:"GOOGLE_TTS_PITCH"`
	VolumeGainDb    float64 `env:"GOOGLE_TTS_VOLUME_DB"`
	// Эффект профиля устройства воспроизведения, напр. handset-class-device
	EffectsProfileID string `env:"GOOGLE_TTS_EFFECTS_PROFILE_ID"`
	// Тип входа: text|ssml.
	InputType string `env:"GOOGLE_TTS_INPUT_TYPE"`
	// Кодировка ответа: mp3|linear16 (linear16 приходит сразу как WAV).
	AudioEncoding string `env:"GOOGLE_TTS_AUDIO_ENCODING"`
}

// GeminiTTSConfig синтез через Cloud TTS v1beta1 с моделями Gemini (авторизация только ADC).
type GeminiTTSConfig struct {
	Endpoint         string  `env:"GEMINI_TTS_ENDPOINT"`
	ModelName        string  `env:"GEMINI_TTS_MODEL"`
	Language         string  `env:"GEMINI_TTS_LANGUAGE"`
	VoiceName        string  `env:"GEMINI_TTS_VOICE"`
	Prompt           string  `env:"GEMINI_TTS_PROMPT"` // стиль речи, только для Gemini
	SpeakingRate     float64 `env:"GEMINI_TTS_SPEAKING_RATE"`
	Pitch            float64 `env:"GEMINI_TTS_PITCH"`
	VolumeGainDb     float64 `env:"GEMINI_TTS_VOLUME_DB"`
	EffectsProfileID string  `env:"GEMINI_TTS_EFFECTS_PROFILE_ID"`
	InputType        string  `env:"GEMINI_TTS_INPUT_TYPE"`
}

// OpenAITTSConfig синтез через OpenAI Audio Speech.
type OpenAITTSConfig struct {
	Model        string `env:"OPENAI_TTS_MODEL"`
	Voice        string `env:"OPENAI_TTS_VOICE"`
	Instructions string `env:"OPENAI_TTS_INSTRUCTIONS"`
}

// TimeoutsConfig ограничения на один вызов внешнего движка. 0: без ограничения.
type TimeoutsConfig struct {
	Transcribe time.Duration `env:"TRANSCRIBE_TIMEOUT"`
	Chat       time.Duration `env:"CHAT_TIMEOUT"`
	Synthesize time.Duration `env:"SYNTHESIZE_TIMEOUT"`
}

// ImagesConfig подготовка присланных кадров перед отправкой в модель.
type ImagesConfig struct {
	MaxCount    int `env:"IMAGES_MAX_COUNT"`    // сколько кадров принимаем в одном запросе
	MaxWidth    int `env:"IMAGES_MAX_WIDTH"`    // ширина, до которой уменьшаются кадры; 0: не уменьшать
	JPEGQuality int `env:"IMAGES_JPEG_QUALITY"` // качество перекодирования
	Workers     int `env:"IMAGES_WORKERS"`      // параллельная обработка кадров
}

// ScratchConfig временные аудиофайлы и их уборка.
type ScratchConfig struct {
	Dir             string        `env:"TEMP_DIR"`         // пусто: <os temp>/aeye
	JanitorSchedule string        `env:"JANITOR_SCHEDULE"` // cron-выражение, пусто: уборщик выключен
	TTL             time.Duration `env:"TEMP_TTL"`         // файлы старше удаляются уборщиком
}

// Defaults возвращает конфигурацию с предустановленными значениями по умолчанию.
// Эти значения перекрываются YAML, .env, переменными окружения и флагами CLI.
func Defaults() *Config {
	return &Config{
		DebugMode: false,
		Server: ServerConfig{
			BindAddr:     "0.0.0.0:5000",
			Path:         "/instruct",
			MaxBodyBytes: 32 << 20,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 150 * time.Second,
			AllowOrigin:  "*",
		},
		Session: SessionConfig{
			IdleThreshold: 100 * time.Second,
			HistoryScope:  "global",
			GlobalKey:     "chat_history",
		},
		History: HistoryConfig{
			Backend: "file",
			Dir:     ".",
			DBPath:  "data/history.db",
		},
		Chat: ChatConfig{
			Provider: "openai",
			Model:    "gpt-4o",
		},
		STT: STTConfig{
			Provider: "openai",
			Model:    "whisper-1",
			StubText: "What is in front of me?",
			Yandex: YandexSTTConfig{
				Language: "ru-RU",
			},
		},
		// По умолчанию используем Google TTS
		TTSService:      "google",
		TTSOutputFormat: "wav",
		YandexTTS: YandexTTSConfig{
			Voice:   "filipp",
			Format:  "mp3", // поддерживаемые форматы: mp3|wav|oggopus
			Speed:   "1.0",
			Emotion: "neutral",
		},
		GoogleTTS: GoogleTTSConfig{
			CredentialsPath:  "service-account.json",
			Language:         "en-US",
			Voice:            "en-US-Standard-C",
			SpeakingRate:     1.0,
			EffectsProfileID: "handset-class-device",
			AudioEncoding:    "linear16",
		},
		GeminiTTS: GeminiTTSConfig{
			ModelName:    "gemini-2.5-flash-tts",
			Language:     "en-US",
			VoiceName:    "Kore",
			SpeakingRate: 1.0,
		},
		OpenAITTS: OpenAITTSConfig{
			Model: "gpt-4o-mini-tts",
			Voice: "alloy",
		},
		Timeouts: TimeoutsConfig{
			Transcribe: 30 * time.Second,
			Chat:       60 * time.Second,
			Synthesize: 30 * time.Second,
		},
		Images: ImagesConfig{
			MaxCount:    8,
			MaxWidth:    1024,
			JPEGQuality: 85,
			Workers:     4,
		},
		Scratch: ScratchConfig{
			JanitorSchedule: "@every 10m",
			TTL:             30 * time.Minute,
		},
	}
}

// NewConfig загружает конфигурацию приложения из аргументов командной строки процесса.
func NewConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load: дефолты → YAML (CONFIG_FILE или -config) → .env → окружение → флаги, затем проверка.
func Load(args []string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Defaults()

	// Путь к YAML нужен до разбора остальных источников.
	cfg.ConfigFile = strings.TrimSpace(os.Getenv("CONFIG_FILE"))
	if p := configFlag(args); p != "" {
		cfg.ConfigFile = p
	}
	if cfg.ConfigFile != "" {
		if err := applyFile(cfg, cfg.ConfigFile); err != nil {
			return nil, err
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: env: %w", err)
	}

	fs := flag.NewFlagSet("aeye", flag.ContinueOnError)
	bindFlags(fs, cfg)
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("config: flags: %w", err)
	}

	normalize(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func bindFlags(fs *flag.FlagSet, cfg *Config) {
	fs.BoolVar(&cfg.DebugMode, "debug-mode", cfg.DebugMode, "включить режим дебага для отображения доп. инфы")
	fs.StringVar(&cfg.ConfigFile, "config", cfg.ConfigFile, "путь к config.yaml (секция backend)")
	// Сервер
	fs.StringVar(&cfg.Server.BindAddr, "bind-addr", cfg.Server.BindAddr, "адрес HTTP сервера (напр. 0.0.0.0:5000)")
	fs.StringVar(&cfg.Server.Path, "path", cfg.Server.Path, "HTTP путь обработчика запросов")
	fs.Int64Var(&cfg.Server.MaxBodyBytes, "max-body-bytes", cfg.Server.MaxBodyBytes, "максимальный размер тела запроса")
	fs.StringVar(&cfg.Server.AllowOrigin, "allow-origin", cfg.Server.AllowOrigin, "значение Access-Control-Allow-Origin; пусто: без CORS")
	// Сессии и история
	fs.DurationVar(&cfg.Session.IdleThreshold, "idle-threshold", cfg.Session.IdleThreshold, "пауза, после которой диалог начинается заново")
	fs.StringVar(&cfg.Session.HistoryScope, "history-scope", cfg.Session.HistoryScope, "global|client")
	fs.StringVar(&cfg.History.Backend, "history-backend", cfg.History.Backend, "хранилище истории: file|libsql|memory")
	fs.StringVar(&cfg.History.Dir, "history-dir", cfg.History.Dir, "каталог JSON-файлов истории")
	fs.StringVar(&cfg.History.DBPath, "history-db-path", cfg.History.DBPath, "путь к базе libsql")
	// Движки
	fs.StringVar(&cfg.Chat.Provider, "chat-provider", cfg.Chat.Provider, "чат-модель: openai|compat|stub")
	fs.StringVar(&cfg.Chat.Model, "chat-model", cfg.Chat.Model, "имя модели")
	fs.StringVar(&cfg.Chat.BaseURL, "chat-base-url", cfg.Chat.BaseURL, "base URL совместимого API")
	fs.StringVar(&cfg.STT.Provider, "stt-provider", cfg.STT.Provider, "распознавание речи: openai|compat|yandex|stub")
	fs.StringVar(&cfg.STT.Model, "stt-model", cfg.STT.Model, "модель распознавания")
	fs.StringVar(&cfg.STT.Language, "stt-language", cfg.STT.Language, "язык распознавания (пусто: автоопределение)")
	fs.StringVar(&cfg.TTSService, "tts-service", cfg.TTSService, "выбор сервиса TTS: google|gemini|yandex|openai|none")
	fs.StringVar(&cfg.TTSOutputFormat, "tts-output-format", cfg.TTSOutputFormat, "формат аудио в ответе: wav|native")
	// Параметры Yandex TTS
	fs.StringVar(&cfg.YandexTTS.APIKey, "yc-tts-api-key", cfg.YandexTTS.APIKey, "API ключ Yandex SpeechKit TTS (перекрывает ENV)")
	fs.StringVar(&cfg.YandexTTS.Voice, "yc-tts-voice", cfg.YandexTTS.Voice, "голос для синтеза (напр. filipp, jane, oksana, zahar, ermil)")
	fs.StringVar(&cfg.YandexTTS.Format, "yc-tts-format", cfg.YandexTTS.Format, "формат аудио (mp3|wav|oggopus)")
	// Параметры Google TTS
	fs.StringVar(&cfg.GoogleTTS.CredentialsPath, "google-tts-credentials", cfg.GoogleTTS.CredentialsPath, "путь к service-account.json (также читается из ENV GOOGLE_APPLICATION_CREDENTIALS)")
	fs.StringVar(&cfg.GoogleTTS.Language, "google-tts-language", cfg.GoogleTTS.Language, "язык синтеза, напр. en-US")
	fs.StringVar(&cfg.GoogleTTS.Voice, "google-tts-voice", cfg.GoogleTTS.Voice, "имя голоса, напр. en-US-Standard-C или en-US-Wavenet-D")
	fs.Float64Var(&cfg.GoogleTTS.SpeakingRate, "google-tts-speaking-rate", cfg.GoogleTTS.SpeakingRate, "скорость речи (1.0 по умолчанию)")
	// Таймауты
	fs.DurationVar(&cfg.Timeouts.Transcribe, "transcribe-timeout", cfg.Timeouts.Transcribe, "таймаут распознавания речи")
	fs.DurationVar(&cfg.Timeouts.Chat, "chat-timeout", cfg.Timeouts.Chat, "таймаут запроса к чат-модели")
	fs.DurationVar(&cfg.Timeouts.Synthesize, "synthesize-timeout", cfg.Timeouts.Synthesize, "таймаут синтеза речи")
	// Временные файлы
	fs.StringVar(&cfg.Scratch.Dir, "temp-dir", cfg.Scratch.Dir, "каталог временных аудиофайлов")
	fs.StringVar(&cfg.Scratch.JanitorSchedule, "janitor-schedule", cfg.Scratch.JanitorSchedule, "cron-расписание уборки временных файлов")
}

// configFlag находит -config/--config до полного разбора флагов.
func configFlag(args []string) string {
	for i, a := range args {
		name, value, hasValue := strings.Cut(strings.TrimLeft(a, "-"), "=")
		if !strings.HasPrefix(a, "-") || name != "config" {
			continue
		}
		if hasValue {
			return value
		}
		if i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func normalize(cfg *Config) {
	lower := func(s *string) { *s = strings.ToLower(strings.TrimSpace(*s)) }
	lower(&cfg.Session.HistoryScope)
	lower(&cfg.History.Backend)
	lower(&cfg.Chat.Provider)
	lower(&cfg.STT.Provider)
	lower(&cfg.TTSService)
	lower(&cfg.TTSOutputFormat)
	lower(&cfg.GoogleTTS.AudioEncoding)
	lower(&cfg.YandexTTS.Format)
	if cfg.Session.GlobalKey == "" {
		cfg.Session.GlobalKey = "chat_history"
	}
	if cfg.Server.Path == "" {
		cfg.Server.Path = "/instruct"
	}
}

func oneOf(field, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("config: %s=%q, ожидается одно из %s", field, value, strings.Join(allowed, "|"))
}

// Validate проверяет сочетания параметров. Для Google TTS и Gemini TTS дополнительно
// готовит GOOGLE_APPLICATION_CREDENTIALS.
func (c *Config) Validate() error {
	errs := []error{
		oneOf("HISTORY_SCOPE", c.Session.HistoryScope, "global", "client"),
		oneOf("HISTORY_BACKEND", c.History.Backend, "file", "libsql", "memory"),
		oneOf("CHAT_PROVIDER", c.Chat.Provider, "openai", "compat", "stub"),
		oneOf("STT_PROVIDER", c.STT.Provider, "openai", "compat", "yandex", "stub"),
		oneOf("TTS_SERVICE", c.TTSService, "google", "gemini", "yandex", "openai", "none"),
		oneOf("TTS_OUTPUT_FORMAT", c.TTSOutputFormat, "wav", "native"),
	}
	if c.Session.IdleThreshold <= 0 {
		errs = append(errs, errors.New("config: SESSION_IDLE_THRESHOLD должен быть больше нуля"))
	}
	if c.Chat.Provider == "compat" && c.Chat.BaseURL == "" {
		errs = append(errs, errors.New("config: для CHAT_PROVIDER=compat нужен CHAT_BASE_URL"))
	}
	if c.STT.Provider == "compat" && c.STT.BaseURL == "" {
		errs = append(errs, errors.New("config: для STT_PROVIDER=compat нужен STT_BASE_URL"))
	}
	if c.STT.Provider == "yandex" && strings.TrimSpace(c.STT.Yandex.APIKey) == "" {
		errs = append(errs, errors.New("config: для STT_PROVIDER=yandex нужен YC_STT_API_KEY"))
	}
	if c.TTSService == "yandex" && strings.TrimSpace(c.YandexTTS.APIKey) == "" {
		errs = append(errs, errors.New("config: для TTS_SERVICE=yandex нужен YC_TTS_API_KEY"))
	}
	if c.Images.MaxCount <= 0 {
		errs = append(errs, errors.New("config: IMAGES_MAX_COUNT должен быть больше нуля"))
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	if c.TTSService == "google" || c.TTSService == "gemini" {
		return c.prepareGoogleCredentials()
	}
	return nil
}

// prepareGoogleCredentials: если ENV пуст, но в конфиге указан путь, устанавливаем ENV.
// Файл ключа должен существовать.
func (c *Config) prepareGoogleCredentials() error {
	cred := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	if cred == "" {
		if cp := strings.TrimSpace(c.GoogleTTS.CredentialsPath); cp != "" {
			_ = os.Setenv("GOOGLE_APPLICATION_CREDENTIALS", cp)
			cred = cp
		}
	}
	if cred == "" {
		return errors.New("google tts: переменная окружения GOOGLE_APPLICATION_CREDENTIALS не задана; укажите ENV или флаг -google-tts-credentials")
	}
	if _, err := os.Stat(cred); err != nil {
		return fmt.Errorf("google tts: файл ключа не найден: %s", cred)
	}
	return nil
}
