package assistant

import (
	"errors"
	"fmt"
)

// Виды ошибок конвейера. Проверяются через errors.Is.
var (
	ErrTranscriptionFailed = errors.New("transcription failed")
	ErrChatEngineFailed    = errors.New("chat engine failed")
	ErrSynthesisFailed     = errors.New("synthesis failed")
	ErrStoreUnavailable    = errors.New("history store unavailable")
	ErrEngineTimeout       = errors.New("engine timeout")
)

// Stage этап конвейера, на котором произошла ошибка.
type Stage string

const (
	StageTranscribe Stage = "transcribe"
	StageChat       Stage = "chat"
	StageSynthesize Stage = "synthesize"
	StageStore      Stage = "store"
)

// MissingFieldError: в запросе нет обязательного поля. Ошибка клиента.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field: %s", e.Field)
}

// InvalidModeError: поле mode задано, но значение не распознано.
type InvalidModeError struct {
	Mode string
}

func (e *InvalidModeError) Error() string {
	return fmt.Sprintf("invalid mode: %q", e.Mode)
}

// StageError связывает вид ошибки (Kind) с исходной ошибкой движка.
// errors.Is срабатывает и на Kind, и на Err.
type StageError struct {
	Stage Stage
	Kind  error
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Stage, e.Kind, e.Err)
}

func (e *StageError) Unwrap() []error { return []error{e.Kind, e.Err} }

// IsClientError сообщает, что ошибка вызвана некорректным запросом.
func IsClientError(err error) bool {
	var mf *MissingFieldError
	var im *InvalidModeError
	return errors.As(err, &mf) || errors.As(err, &im)
}
