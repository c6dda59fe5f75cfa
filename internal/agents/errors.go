package agents

import "errors"

// Ошибки агентов.
var (
	// ErrUnknownAgent — агент с таким ID не зарегистрирован.
	ErrUnknownAgent = errors.New("unknown agent")

	// ErrInvalidInput — входы агента некорректны.
	ErrInvalidInput = errors.New("invalid agent input")

	// ErrAgentRequest — HTTP-запрос к агенту завершился ошибкой.
	ErrAgentRequest = errors.New("agent request failed")
)
