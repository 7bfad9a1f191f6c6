package message

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/responses"
	"github.com/openai/openai-go/v3/shared"
	"go.uber.org/zap"

	"AEye/internal/service/assistant"
)

// Adapter чат-движок поверх OpenAI Responses API.
type Adapter struct {
	client *openai.Client
	logger *zap.SugaredLogger
}

// New создаёт адаптер сообщений.
func New(client *openai.Client, logger *zap.SugaredLogger) *Adapter {
	return &Adapter{client: client, logger: logger}
}

// Complete отправляет промпт целиком (stateless): системное сообщение, реплики истории
// и финальное сообщение пользователя с картинками. Возвращает текст ответа.
func (a *Adapter) Complete(ctx context.Context, messages []assistant.Message, model string) (string, error) {
	if len(messages) == 0 {
		return "", errors.New("message: empty prompt")
	}
	if strings.TrimSpace(model) == "" {
		model = string(openai.ChatModelGPT4o)
	}

	params := responses.ResponseNewParams{
		Model: shared.ResponsesModel(model),
		Input: responses.ResponseNewParamsInputUnion{OfInputItemList: inputItems(messages)},
	}

	start := time.Now()
	a.logger.Infow("Запрос в OpenAI...", "model", model, "messages", len(messages))
	resp, err := a.client.Responses.New(ctx, params)
	dur := time.Since(start)
	if err != nil {
		a.logger.Errorw("Ошибка ответа OpenAI", "duration", dur.String(), "error", err)
		return "", err
	}
	a.logger.Infow("Ответ OpenAI получен", "duration", dur.String())

	return resp.OutputText(), nil
}

func inputItems(messages []assistant.Message) responses.ResponseInputParam {
	items := make(responses.ResponseInputParam, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case assistant.MessageSystem:
			items = append(items, responses.ResponseInputItemParamOfMessage(
				responses.ResponseInputMessageContentListParam{
					{OfInputText: &responses.ResponseInputTextParam{Text: m.Text()}},
				},
				responses.EasyInputMessageRoleSystem,
			))
		case assistant.MessageAssistant:
			// Ответы ассистента передаются как output_message с контентом output_text.
			var out responses.ResponseOutputTextParam
			out.Text = m.Text()
			out.Annotations = nil
			items = append(items, responses.ResponseInputItemParamOfOutputMessage(
				[]responses.ResponseOutputMessageContentUnionParam{{OfOutputText: &out}},
				"",
				responses.ResponseOutputMessageStatusCompleted,
			))
		default:
			items = append(items, responses.ResponseInputItemParamOfMessage(
				userContent(m),
				responses.EasyInputMessageRoleUser,
			))
		}
	}
	return items
}

func userContent(m assistant.Message) responses.ResponseInputMessageContentListParam {
	content := make(responses.ResponseInputMessageContentListParam, 0, len(m.Parts))
	for _, p := range m.Parts {
		if p.IsImage() {
			imageParam := responses.ResponseInputContentParamOfInputImage(responses.ResponseInputImageDetailAuto)
			imageParam.OfInputImage.ImageURL = openai.String(p.ImageURL)
			content = append(content, imageParam)
			continue
		}
		content = append(content, responses.ResponseInputContentParamOfInputText(p.Text))
	}
	return content
}
