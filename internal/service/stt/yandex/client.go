package yandex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"AEye/internal/service/audio"
)

// Config настройки клиента Yandex STT Streaming (WebSocket).
type Config struct {
	// Endpoint WebSocket, по умолчанию wss://stt.api.cloud.yandex.net/speech/v1/stt:streaming
	Endpoint string
	APIKey   string // Api-Key из окружения (YC_STT_API_KEY)
	Language string // например, "ru-RU"

	// Необязательный стартовый JSON, который будет отправлен текстовым фреймом сразу после подключения.
	StartJSON string

	// Если сервер поддерживает сигнал конца аудио в виде JSON, его можно передать в EndJSON.
	// После него (или сразу, если пусто) отправляется websocket.CloseMessage.
	EndJSON string

	// Если финальных гипотез не пришло, вернуть последнюю частичную.
	AllowPartials bool

	// Размер бинарного фрейма в сэмплах, по умолчанию 4000 (250 мс на 16 кГц).
	ChunkSamples int
}

// Result единица результата распознавания.
type Result struct {
	Text      string
	Final     bool
	Timestamp time.Time
}

// Client распознаёт записанный WAV целиком: открывает стрим, отправляет PCM кусками
// и собирает финальные гипотезы до закрытия соединения сервером.
type Client struct {
	cfg    Config
	dialer websocket.Dialer
	logger *zap.SugaredLogger
}

// New создаёт клиент, без установления соединения.
func New(cfg Config, logger *zap.SugaredLogger) (*Client, error) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "wss://stt.api.cloud.yandex.net/speech/v1/stt:streaming"
	}
	if cfg.APIKey == "" {
		return nil, errors.New("yandex stt: пустой API key (ожидается YC_STT_API_KEY)")
	}
	if cfg.Language == "" {
		cfg.Language = "ru-RU"
	}
	if cfg.ChunkSamples <= 0 {
		cfg.ChunkSamples = 4000
	}
	return &Client{
		cfg: cfg,
		dialer: websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 15 * time.Second,
		},
		logger: logger,
	}, nil
}

// Transcribe ожидает WAV (PCM 8/16/24/32 бит, любое число каналов).
func (c *Client) Transcribe(ctx context.Context, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("yandex stt: read audio: %w", err)
	}
	pcm, err := audio.DecodeWAV(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("yandex stt: %w", err)
	}

	start := time.Now()
	conn, err := c.dial(ctx, pcm.SampleRate)
	if err != nil {
		return "", err
	}
	defer conn.Close()
	// Отмена запроса рвёт соединение, чтобы разблокировать чтение и запись.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	done := make(chan collected, 1)
	go func() { done <- collect(conn) }()

	if err := c.stream(conn, pcm.Samples); err != nil {
		if ctx.Err() != nil {
			return "", context.Cause(ctx)
		}
		return "", err
	}

	var res collected
	select {
	case res = <-done:
	case <-ctx.Done():
		return "", context.Cause(ctx)
	}
	if ctx.Err() != nil {
		return "", context.Cause(ctx)
	}

	text := strings.Join(res.finals, " ")
	if text == "" && c.cfg.AllowPartials {
		text = res.partial
	}
	if text == "" && res.err != nil {
		return "", fmt.Errorf("yandex stt: %w", res.err)
	}
	c.logger.Infow("Yandex STT: распознано", "duration", time.Since(start).String(), "samples", len(pcm.Samples), "chars", len(text))
	return text, nil
}

func (c *Client) dial(ctx context.Context, sampleRate int) (*websocket.Conn, error) {
	// Параметры, которые ожидает WebSocket API SpeechKit (v1): lang, sampleRateHertz, topic, format.
	u, err := url.Parse(c.cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("yandex stt: неверный endpoint: %w", err)
	}
	q := u.Query()
	q.Set("lang", c.cfg.Language)
	if sampleRate > 0 {
		q.Set("sampleRateHertz", fmt.Sprint(sampleRate))
	}
	if q.Get("topic") == "" {
		q.Set("topic", "general")
	}
	if q.Get("format") == "" {
		q.Set("format", "lpcm")
	}
	u.RawQuery = q.Encode()

	header := http.Header{}
	header.Set("Authorization", "Api-Key "+c.cfg.APIKey)

	conn, resp, err := c.dialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("yandex stt: не удалось подключиться к %s: %s (HTTP %d): %w", u.Host, http.StatusText(resp.StatusCode), resp.StatusCode, err)
		}
		return nil, fmt.Errorf("yandex stt: не удалось подключиться к %s: %w", u.Host, err)
	}

	startMsg := []byte(c.cfg.StartJSON)
	if len(startMsg) == 0 {
		startMsg, _ = json.Marshal(map[string]any{
			"lang":            c.cfg.Language,
			"format":          "lpcm",
			"sampleRateHertz": sampleRate,
			"topic":           "general",
		})
	}
	if err := conn.WriteMessage(websocket.TextMessage, startMsg); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("yandex stt: не удалось отправить стартовое сообщение: %w", err)
	}
	return conn, nil
}

// stream отправляет сэмплы PCM16 little-endian бинарными фреймами и сигнал конца аудио.
func (c *Client) stream(conn *websocket.Conn, samples []int16) error {
	for off := 0; off < len(samples); off += c.cfg.ChunkSamples {
		end := min(off+c.cfg.ChunkSamples, len(samples))
		if err := conn.WriteMessage(websocket.BinaryMessage, pcm16LE(samples[off:end])); err != nil {
			return fmt.Errorf("yandex stt: отправка аудио: %w", err)
		}
	}
	if ej := c.cfg.EndJSON; ej != "" {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(ej)); err != nil {
			return fmt.Errorf("yandex stt: отправка EndJSON: %w", err)
		}
	}
	err := conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "eof"))
	if err != nil {
		return fmt.Errorf("yandex stt: закрытие стрима: %w", err)
	}
	return nil
}

func pcm16LE(samples []int16) []byte {
	b := make([]byte, 0, 2*len(samples))
	for _, s := range samples {
		b = append(b, byte(s), byte(s>>8))
	}
	return b
}

type collected struct {
	finals  []string
	partial string
	err     error
}

// collect читает ответы сервера до закрытия соединения.
func collect(conn *websocket.Conn) collected {
	var out collected
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				out.err = err
			}
			return out
		}
		if msgType != websocket.TextMessage {
			continue
		}
		res, ok := parseServerMessage(data)
		if !ok {
			continue
		}
		if res.Final {
			if t := strings.TrimSpace(res.Text); t != "" {
				out.finals = append(out.finals, t)
			}
		} else {
			out.partial = res.Text
		}
	}
}

// parseServerMessage пытается вытащить текст и признак финальности из произвольного JSON.
func parseServerMessage(data []byte) (Result, bool) {
	// 1) {"result":"text","final":true}
	var s1 struct {
		Result string `json:"result"`
		Final  bool   `json:"final"`
	}
	if json.Unmarshal(data, &s1) == nil && s1.Result != "" {
		return Result{Text: s1.Result, Final: s1.Final, Timestamp: time.Now()}, true
	}

	// 2) {"alternatives":[{"text":"..."}],"final":true}
	var s2 struct {
		Alternatives []struct {
			Text string `json:"text"`
		} `json:"alternatives"`
		Final bool `json:"final"`
	}
	if json.Unmarshal(data, &s2) == nil && len(s2.Alternatives) > 0 {
		return Result{Text: s2.Alternatives[0].Text, Final: s2.Final, Timestamp: time.Now()}, true
	}

	// 3) {"partial":"..."}
	var s3 struct {
		Partial string `json:"partial"`
	}
	if json.Unmarshal(data, &s3) == nil && s3.Partial != "" {
		return Result{Text: s3.Partial, Final: false, Timestamp: time.Now()}, true
	}

	// 4) {"text":"...","is_final":true}
	var s4 struct {
		Text    string `json:"text"`
		IsFinal bool   `json:"is_final"`
		Final   bool   `json:"final"`
	}
	if json.Unmarshal(data, &s4) == nil && (s4.Text != "" || s4.IsFinal || s4.Final) {
		return Result{Text: s4.Text, Final: s4.IsFinal || s4.Final, Timestamp: time.Now()}, true
	}

	return Result{}, false
}
