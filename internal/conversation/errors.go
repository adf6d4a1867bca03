package conversation

import (
	"errors"
	"fmt"

	"chatbot/internal/llm"
)

// Kind is the stable error taxonomy exposed to API clients.
type Kind string

const (
	KindInvalidInput           Kind = "invalid_input"
	KindStorage                Kind = "storage"
	KindGenerationAuth         Kind = "generation_auth"
	KindGenerationRateLimited  Kind = "generation_rate_limited"
	KindGenerationTransient    Kind = "generation_transient"
	KindGenerationModel        Kind = "generation_model"
	KindGenerationModelLoading Kind = "generation_model_loading"
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func errf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf reports the taxonomy kind of an error, if it carries one.
func KindOf(err error) (Kind, bool) {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind, true
	}
	return "", false
}

// fromGeneration maps a generation client failure onto the taxonomy.
func fromGeneration(err error) *Error {
	kind := KindGenerationModel
	if k, ok := llm.KindOf(err); ok {
		switch k {
		case llm.KindAuth:
			kind = KindGenerationAuth
		case llm.KindRateLimited:
			kind = KindGenerationRateLimited
		case llm.KindTransient:
			kind = KindGenerationTransient
		case llm.KindModelLoading:
			kind = KindGenerationModelLoading
		}
	}
	return &Error{Kind: kind, Message: "generation failed", Err: err}
}
