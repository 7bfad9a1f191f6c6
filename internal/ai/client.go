package ai

import (
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	goopenai "github.com/sashabaranov/go-openai"
)

// Endpoint параметры подключения к OpenAI или совместимому API.
type Endpoint struct {
	APIKey  string
	BaseURL string // пусто: api.openai.com
	// Заголовки для OpenRouter, необязательные.
	Referrer string
	Title    string
	Timeout  time.Duration
}

func (e Endpoint) headers() http.Header {
	h := http.Header{}
	if e.Referrer != "" {
		h.Set("HTTP-Referer", e.Referrer)
	}
	if e.Title != "" {
		h.Set("X-Title", e.Title)
	}
	return h
}

// NewOpenAI клиент официального SDK. Повторы отключены: каждый этап делает одну попытку.
func NewOpenAI(e Endpoint) *openai.Client {
	opts := []option.RequestOption{option.WithMaxRetries(0)}
	if e.APIKey != "" {
		opts = append(opts, option.WithAPIKey(e.APIKey))
	}
	if e.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(withSlash(e.BaseURL)))
	}
	if e.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(e.Timeout))
	}
	for k, vs := range e.headers() {
		opts = append(opts, option.WithHeader(k, vs[0]))
	}
	client := openai.NewClient(opts...)
	return &client
}

// NewCompat клиент для OpenAI-совместимых API (Groq, Scaleway, OpenRouter).
func NewCompat(e Endpoint) *goopenai.Client {
	config := goopenai.DefaultConfig(e.APIKey)
	if e.BaseURL != "" {
		config.BaseURL = strings.TrimRight(e.BaseURL, "/")
	}
	httpClient := &http.Client{Timeout: e.Timeout}
	if h := e.headers(); len(h) > 0 {
		httpClient.Transport = headerTransport{rt: http.DefaultTransport, headers: h}
	}
	config.HTTPClient = httpClient
	return goopenai.NewClientWithConfig(config)
}

type headerTransport struct {
	rt      http.RoundTripper
	headers http.Header
}

func (t headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	cl := req.Clone(req.Context())
	for k, vs := range t.headers {
		for _, v := range vs {
			cl.Header.Add(k, v)
		}
	}
	return t.rt.RoundTrip(cl)
}

func withSlash(u string) string {
	if strings.HasSuffix(u, "/") {
		return u
	}
	return u + "/"
}
