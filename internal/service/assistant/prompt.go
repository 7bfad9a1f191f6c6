package assistant

// MessageRole роль сообщения в последовательности для чат-движка.
type MessageRole string

const (
	MessageSystem    MessageRole = "system"
	MessageUser      MessageRole = "user"
	MessageAssistant MessageRole = "assistant"
)

// Part часть содержимого сообщения: либо текст, либо ссылка на изображение.
type Part struct {
	Text     string
	ImageURL string
}

// IsImage сообщает, что часть является изображением.
func (p Part) IsImage() bool { return p.ImageURL != "" }

// Message сообщение с ролью. Провайдеры переводят его в свой формат.
type Message struct {
	Role  MessageRole
	Parts []Part
}

// Text склеивает текстовые части сообщения.
func (m Message) Text() string {
	var out string
	for _, p := range m.Parts {
		if p.IsImage() {
			continue
		}
		if out != "" {
			out += "\n"
		}
		out += p.Text
	}
	return out
}

// Build собирает последовательность сообщений для чат-движка:
// системный промпт, окно истории (если режим его использует) и финальная
// пользовательская реплика с директивой и изображениями в исходном порядке.
func Build(tpl Template, images []string, transcript string, history History) []Message {
	var window History
	if tpl.UsesHistory {
		window = history.Window(WindowSize)
	}

	msgs := make([]Message, 0, len(window)+2)
	msgs = append(msgs, Message{
		Role:  MessageSystem,
		Parts: []Part{{Text: tpl.Preamble(len(window) > 0)}},
	})
	for _, t := range window {
		role := MessageUser
		if t.Role == RoleAssistant {
			role = MessageAssistant
		}
		msgs = append(msgs, Message{Role: role, Parts: []Part{{Text: t.Content}}})
	}

	parts := make([]Part, 0, len(images)+1)
	parts = append(parts, Part{Text: tpl.Directive(transcript)})
	for _, url := range images {
		parts = append(parts, Part{ImageURL: url})
	}
	msgs = append(msgs, Message{Role: MessageUser, Parts: parts})
	return msgs
}
