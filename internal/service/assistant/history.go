package assistant

// Role автор реплики в истории диалога.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// WindowSize сколько последних реплик истории попадает в промпт.
const WindowSize = 5

// Turn одна реплика диалога. Формат JSON совпадает с chat_history.json.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// History упорядоченная история диалога, порядок вставки значим.
type History []Turn

// Window возвращает последние n реплик (копию), не трогая хранимую историю.
func (h History) Window(n int) History {
	if n <= 0 || len(h) == 0 {
		return History{}
	}
	start := 0
	if len(h) > n {
		start = len(h) - n
	}
	out := make(History, len(h)-start)
	copy(out, h[start:])
	return out
}

// WithExchange возвращает новую историю с парой реплик user/assistant в конце.
func (h History) WithExchange(question, answer string) History {
	out := make(History, 0, len(h)+2)
	out = append(out, h...)
	out = append(out,
		Turn{Role: RoleUser, Content: question},
		Turn{Role: RoleAssistant, Content: answer},
	)
	return out
}
