package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"AEye/internal/service/tts/player"
)

// Пример клиента: отправляет кадры из папки и WAV с вопросом, печатает ответ,
// сохраняет текст и аудио и проигрывает аудио.
//
//	go run ./cmd/client -images examples/img -sound examples/audio/test.wav -mode instruct
func main() {
	var (
		url     string
		images  string
		sound   string
		mode    string
		session string
		outDir  string
		play    bool
	)
	flag.StringVar(&url, "url", "http://127.0.0.1:5000/instruct", "адрес сервера")
	flag.StringVar(&images, "images", "examples/img", "папка с кадрами *.jpg")
	flag.StringVar(&sound, "sound", "examples/audio/test.wav", "WAV с вопросом; пусто: без аудио (только general)")
	flag.StringVar(&mode, "mode", "instruct", "режим: general|instruct|transcribe-text")
	flag.StringVar(&session, "session", "", "идентификатор сессии (X-Session-ID)")
	flag.StringVar(&outDir, "out", "examples/output", "куда сохранить final_text.txt и final_sound.wav")
	flag.BoolVar(&play, "play", true, "проиграть ответ")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	sugar := logger.Sugar()
	defer func() { _ = logger.Sync() }()

	frames, err := readFrames(images)
	if err != nil {
		sugar.Fatalw("Не удалось прочитать кадры", "dir", images, "error", err)
	}
	body := map[string]any{"images": frames, "mode": mode}
	if sound != "" {
		raw, err := os.ReadFile(sound)
		if err != nil {
			sugar.Fatalw("Не удалось прочитать аудио", "path", sound, "error", err)
		}
		body["sound"] = base64.StdEncoding.EncodeToString(raw)
	}

	ctx, cancel := context.WithTimeoutCause(context.Background(), 3*time.Minute, errors.New("client request timeout"))
	defer cancel()

	start := time.Now()
	resp, err := send(ctx, url, session, body)
	if err != nil {
		sugar.Fatalw("Запрос не выполнен", "error", err)
	}
	fmt.Printf("%.2fs\nGeneration:\n%s\n", time.Since(start).Seconds(), resp.Text)

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		sugar.Fatalw("Не удалось создать папку вывода", "dir", outDir, "error", err)
	}
	if err := os.WriteFile(filepath.Join(outDir, "final_text.txt"), []byte(resp.Text), 0o644); err != nil {
		sugar.Errorw("Не удалось сохранить текст", "error", err)
	}
	if resp.AudioB64 == nil {
		sugar.Infow("Сервер вернул ответ без аудио")
		return
	}
	audio, err := base64.StdEncoding.DecodeString(*resp.AudioB64)
	if err != nil {
		sugar.Fatalw("Некорректный audio_b64", "error", err)
	}
	if err := os.WriteFile(filepath.Join(outDir, "final_sound.wav"), audio, 0o644); err != nil {
		sugar.Errorw("Не удалось сохранить аудио", "error", err)
	}
	if play {
		if err := player.New().Play(sniffFormat(audio), io.NopCloser(bytes.NewReader(audio))); err != nil {
			sugar.Errorw("Не удалось проиграть аудио", "error", err)
		}
	}
}

type response struct {
	Text     string  `json:"text"`
	AudioB64 *string `json:"audio_b64"`
	Error    string  `json:"error"`
}

func send(ctx context.Context, url, session string, body map[string]any) (response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return response{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return response{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if session != "" {
		req.Header.Set("X-Session-ID", session)
	}
	httpResp, err := http.DefaultClient.Do(req)
	if err != nil {
		return response{}, err
	}
	defer httpResp.Body.Close()

	var out response
	if err := json.NewDecoder(httpResp.Body).Decode(&out); err != nil {
		return response{}, fmt.Errorf("decode response (HTTP %d): %w", httpResp.StatusCode, err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return response{}, fmt.Errorf("HTTP %d: %s", httpResp.StatusCode, out.Error)
	}
	return out, nil
}

// readFrames кодирует все *.jpg папки в base64, по имени файла.
func readFrames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		lower := strings.ToLower(e.Name())
		if !e.IsDir() && (strings.HasSuffix(lower, ".jpg") || strings.HasSuffix(lower, ".jpeg")) {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)
	frames := make([]string, 0, len(names))
	for _, name := range names {
		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		frames = append(frames, base64.StdEncoding.EncodeToString(raw))
	}
	return frames, nil
}

// sniffFormat при TTS_OUTPUT_FORMAT=native сервер может вернуть mp3.
func sniffFormat(b []byte) string {
	if bytes.HasPrefix(b, []byte("RIFF")) {
		return "wav"
	}
	return "mp3"
}
