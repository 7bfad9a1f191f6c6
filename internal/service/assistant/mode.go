package assistant

import "strings"

// Mode режим запроса: определяет шаблон промпта и обязательные поля.
type Mode int

const (
	ModeGeneral Mode = iota + 1
	ModeInstruct
	ModeTranscribeText
)

func (m Mode) String() string {
	switch m {
	case ModeGeneral:
		return "general"
	case ModeInstruct:
		return "instruct"
	case ModeTranscribeText:
		return "transcribe-text"
	default:
		return "unknown"
	}
}

// ParseMode разбирает тег режима. allaround это старое имя general из веб-клиента.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return 0, &MissingFieldError{Field: "mode"}
	case "general", "allaround":
		return ModeGeneral, nil
	case "instruct":
		return ModeInstruct, nil
	case "transcribe-text", "transcribe_text", "ocr":
		return ModeTranscribeText, nil
	default:
		return 0, &InvalidModeError{Mode: s}
	}
}

// Request входные данные одного обращения. Images содержит готовые ссылки на изображения
// (data URL или http(s)), кодирование картинок выполняет вызывающая сторона.
type Request struct {
	Images     []string
	Audio      []byte
	Mode       string
	SessionKey string
}

const (
	preambleCore = "You are a helpful assistant expert in helping blind people in their day-to-day life. " +
		"You are his eyes so everything you see is from his point of view. " +
		"Do not forget that the person that you assist does not see anything so don't hesitate to give clear spatial directions respectively to his right and left. "

	preambleInstructBrief   = preambleCore + "Your responses have to be very brief."
	preambleInstructConcise = preambleCore + "Your responses have to be very concise."

	preambleGeneral = "You are a helpful assistant describing the surroundings of a blind person. " +
		"Everything you see is from his point of view. Describe the scene as a whole: the main obstacles, people, " +
		"doors, stairs and anything that matters for moving safely, with their position to his left, right or straight ahead. " +
		"Keep the description short and calm."

	preambleTranscribeText = "You are a text reader for a blind person. Read every piece of text visible in the images " +
		"exactly as written, without summarising or translating. Keep the reading order top to bottom, left to right. " +
		"Format your answer as markdown, use headings and lists only when the layout of the document has them."

	directiveVideo = "These images are taken from a video, analyse them as a whole and be very brief in your answer. My prompt is "
	directiveText  = "These images are taken from a video, analyse them as a whole and transcribe verbatim the text they contain. My prompt is "

	// DefaultPrompt используется вместо расшифровки, когда аудио нет (режим general).
	DefaultPrompt = "Describe what is in front of me."
	// DefaultTextPrompt подставляется в transcribe-text при пустой расшифровке.
	DefaultTextPrompt = "Read me the text."
)

// Template неизменяемый шаблон промпта, выбранный по режиму.
type Template struct {
	Mode          Mode
	UsesHistory   bool
	AudioRequired bool
	DefaultPrompt string

	directive string
}

var templates = map[Mode]Template{
	ModeGeneral: {
		Mode:          ModeGeneral,
		DefaultPrompt: DefaultPrompt,
		directive:     directiveVideo,
	},
	ModeInstruct: {
		Mode:          ModeInstruct,
		UsesHistory:   true,
		AudioRequired: true,
		directive:     directiveVideo,
	},
	ModeTranscribeText: {
		Mode:          ModeTranscribeText,
		AudioRequired: true,
		DefaultPrompt: DefaultTextPrompt,
		directive:     directiveText,
	},
}

// Preamble системный промпт режима. Для instruct вариант зависит от того,
// продолжается ли диалог: brief при непустой истории, concise при новом.
func (t Template) Preamble(hasHistory bool) string {
	switch t.Mode {
	case ModeInstruct:
		if hasHistory {
			return preambleInstructBrief
		}
		return preambleInstructConcise
	case ModeTranscribeText:
		return preambleTranscribeText
	default:
		return preambleGeneral
	}
}

// Directive текст финальной пользовательской реплики.
func (t Template) Directive(transcript string) string {
	if strings.TrimSpace(transcript) == "" {
		transcript = t.DefaultPrompt
	}
	return t.directive + transcript
}

// Validate проверяет обязательные поля запроса и выбирает шаблон.
// Порядок проверки: images, mode, sound (аудио обязательно не во всех режимах).
func Validate(req Request) (Template, error) {
	if len(req.Images) == 0 {
		return Template{}, &MissingFieldError{Field: "images"}
	}
	mode, err := ParseMode(req.Mode)
	if err != nil {
		return Template{}, err
	}
	tpl := templates[mode]
	if tpl.AudioRequired && len(req.Audio) == 0 {
		return Template{}, &MissingFieldError{Field: "sound"}
	}
	return tpl, nil
}
