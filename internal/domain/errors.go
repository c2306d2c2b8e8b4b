package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput - некорректный запрос, окна погоды или календарь фаз.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvariant - нарушение внутреннего инварианта алгоритма (фатальная ошибка).
	ErrInvariant = errors.New("internal invariant violated")
)

// InputError уточняет ErrInvalidInput полем и причиной.
type InputError struct {
	Field  string
	Reason string
}

func (e InputError) Error() string {
	return "invalid input: " + e.Field + ": " + e.Reason
}

func (e InputError) Unwrap() error {
	return ErrInvalidInput
}

func inputErrorf(field, format string, args ...any) InputError {
	return InputError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// InvariantError сообщает о нарушении инварианта внутри конкретного алгоритма.
type InvariantError struct {
	Algorithm string
	Detail    string
}

func (e InvariantError) Error() string {
	return e.Algorithm + ": internal invariant violated: " + e.Detail
}

func (e InvariantError) Unwrap() error {
	return ErrInvariant
}

// NewInvariantError создаёт InvariantError с форматированным описанием.
func NewInvariantError(algorithm, format string, args ...any) InvariantError {
	return InvariantError{Algorithm: algorithm, Detail: fmt.Sprintf(format, args...)}
}
