package message

import (
	"context"

	"AEye/internal/service/assistant"
)

// Stub заглушка, которая не делает реальных запросов: повторяет текст последней реплики пользователя.
type Stub struct{}

func NewStub() *Stub { return &Stub{} }

func (Stub) Complete(_ context.Context, messages []assistant.Message, _ string) (string, error) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == assistant.MessageUser {
			return messages[i].Text(), nil
		}
	}
	return "запрос получен", nil
}
