package message

import (
	"context"
	"errors"
	"fmt"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"AEye/internal/service/assistant"
)

// Compat чат-движок через Chat Completions OpenAI-совместимого API (Groq, Scaleway vLLM, OpenRouter).
type Compat struct {
	client *goopenai.Client
	logger *zap.SugaredLogger
}

func NewCompat(client *goopenai.Client, logger *zap.SugaredLogger) *Compat {
	return &Compat{client: client, logger: logger}
}

func (c *Compat) Complete(ctx context.Context, messages []assistant.Message, model string) (string, error) {
	if len(messages) == 0 {
		return "", errors.New("message: empty prompt")
	}
	req := goopenai.ChatCompletionRequest{
		Model:    model,
		Messages: chatMessages(messages),
	}

	start := time.Now()
	c.logger.Infow("Запрос в совместимый API...", "model", model, "messages", len(messages))
	resp, err := c.client.CreateChatCompletion(ctx, req)
	dur := time.Since(start)
	if err != nil {
		c.logger.Errorw("Ошибка ответа совместимого API", "duration", dur.String(), "error", err)
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	c.logger.Infow("Ответ совместимого API получен", "duration", dur.String(), "tokens", resp.Usage.TotalTokens)

	return resp.Choices[0].Message.Content, nil
}

func chatMessages(messages []assistant.Message) []goopenai.ChatCompletionMessage {
	out := make([]goopenai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		msg := goopenai.ChatCompletionMessage{Role: string(m.Role)}
		if !hasImages(m) {
			msg.Content = m.Text()
			out = append(out, msg)
			continue
		}
		// Content и MultiContent взаимоисключающие.
		for _, p := range m.Parts {
			if p.IsImage() {
				msg.MultiContent = append(msg.MultiContent, goopenai.ChatMessagePart{
					Type:     goopenai.ChatMessagePartTypeImageURL,
					ImageURL: &goopenai.ChatMessageImageURL{URL: p.ImageURL, Detail: goopenai.ImageURLDetailAuto},
				})
				continue
			}
			msg.MultiContent = append(msg.MultiContent, goopenai.ChatMessagePart{
				Type: goopenai.ChatMessagePartTypeText,
				Text: p.Text,
			})
		}
		out = append(out, msg)
	}
	return out
}

func hasImages(m assistant.Message) bool {
	for _, p := range m.Parts {
		if p.IsImage() {
			return true
		}
	}
	return false
}
