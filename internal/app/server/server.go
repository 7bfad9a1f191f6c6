package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"AEye/internal/config"
	"AEye/internal/service/assistant"
	"AEye/internal/service/image"
)

// Runner выполняет один запрос ассистента.
type Runner interface {
	Run(ctx context.Context, req assistant.Request) (assistant.Result, error)
}

// Images готовит присланные кадры к отправке в модель.
type Images interface {
	Prepare(encoded []string) ([]string, error)
}

// Server HTTP-интерфейс ассистента: POST <path> и GET /health.
type Server struct {
	cfg       config.ServerConfig
	perClient bool
	runner    Runner
	images    Images
	logger    *zap.SugaredLogger
	srv       *http.Server
}

func New(cfg config.ServerConfig, session config.SessionConfig, runner Runner, images Images, logger *zap.SugaredLogger) *Server {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 32 << 20
	}
	if cfg.Path == "" {
		cfg.Path = "/instruct"
	}
	s := &Server{
		cfg:       cfg,
		perClient: strings.EqualFold(session.HistoryScope, "client"),
		runner:    runner,
		images:    images,
		logger:    logger,
	}
	s.srv = &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(s.cfg.Path, s.handleInstruct)
	mux.HandleFunc("/health", s.handleHealth)
	return s.cors(mux)
}

// ListenAndServe блокируется до Shutdown. http.ErrServerClosed не считается ошибкой.
func (s *Server) ListenAndServe() error {
	s.logger.Infow("HTTP сервер запущен", "addr", s.srv.Addr, "path", s.cfg.Path)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.srv.Shutdown(ctx); err != nil {
		_ = s.srv.Close()
		return err
	}
	return nil
}

type instructRequest struct {
	Images    []string `json:"images"`
	Sound     string   `json:"sound"`
	Mode      string   `json:"mode"`
	SessionID string   `json:"session_id"`
}

type instructResponse struct {
	Text     string  `json:"text"`
	AudioB64 *string `json:"audio_b64"`
}

type errorResponse struct {
	Status string `json:"status,omitempty"`
	Error  string `json:"error"`
}

func (s *Server) handleInstruct(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed; use POST", http.StatusMethodNotAllowed)
		return
	}

	reqID := r.Header.Get("X-Request-ID")
	if reqID == "" {
		reqID = uuid.NewString()
	}
	w.Header().Set("X-Request-ID", reqID)
	log := s.logger.With("request_id", reqID)
	started := time.Now()

	var body instructRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)).Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "request body too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON: " + err.Error()})
		return
	}

	var sound []byte
	if body.Sound != "" {
		var err error
		if sound, err = base64.StdEncoding.DecodeString(body.Sound); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid sound: " + err.Error()})
			return
		}
	}

	images, err := s.images.Prepare(body.Images)
	if err != nil {
		log.Warnw("Кадры отклонены", "error", err)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	req := assistant.Request{
		Images: images,
		Audio:  sound,
		Mode:   body.Mode,
	}
	if s.perClient {
		req.SessionKey = sessionKey(body.SessionID, r.Header.Get("X-Session-ID"))
	}

	res, err := s.runner.Run(r.Context(), req)
	if err != nil {
		status := statusOf(err)
		log.Errorw("Запрос не выполнен", "mode", body.Mode, "status", status, "duration", time.Since(started).String(), "error", err)
		if status == http.StatusBadRequest {
			writeJSON(w, status, errorResponse{Error: err.Error()})
			return
		}
		writeJSON(w, status, errorResponse{Status: "error", Error: err.Error()})
		return
	}

	resp := instructResponse{Text: res.Text}
	if res.Audio != nil {
		enc := base64.StdEncoding.EncodeToString(res.Audio)
		resp.AudioB64 = &enc
	}
	log.Infow("Запрос выполнен", "mode", body.Mode, "images", len(images), "audio", res.Audio != nil, "duration", time.Since(started).String())
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// cors отвечает на preflight и добавляет Access-Control-Allow-Origin, если он задан.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.AllowOrigin == "" {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Access-Control-Allow-Origin", s.cfg.AllowOrigin)
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Session-ID, X-Request-ID")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func statusOf(err error) int {
	switch {
	case assistant.IsClientError(err), errors.Is(err, image.ErrInvalidImage), errors.Is(err, image.ErrTooManyImages):
		return http.StatusBadRequest
	case errors.Is(err, assistant.ErrEngineTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func sessionKey(fromBody, fromHeader string) string {
	if k := strings.TrimSpace(fromBody); k != "" {
		return k
	}
	return strings.TrimSpace(fromHeader)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
