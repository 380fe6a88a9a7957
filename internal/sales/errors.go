package sales

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Match them with errors.Is.
var (
	ErrAlreadyExists = errors.New("already exists")
	ErrNotFound      = errors.New("not found")
	ErrValidation    = errors.New("validation failed")
	ErrPersistence   = errors.New("persistence failure")
)

// Error is returned by every Service operation.
type Error struct {
	Kind     error
	Op       string
	Message  string
	Messages []string
	Err      error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	switch {
	case e.Message != "":
		b.WriteString(e.Message)
	case e.Kind != nil:
		b.WriteString(e.Kind.Error())
	}
	if len(e.Messages) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(e.Messages, ", "))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	var errs []error
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// ValidationMessages returns the rule violations carried by err, if any.
func ValidationMessages(err error) []string {
	var e *Error
	if errors.As(err, &e) && e.Kind == ErrValidation {
		return e.Messages
	}
	return nil
}

func alreadyExists(op, format string, args ...any) error {
	return &Error{Kind: ErrAlreadyExists, Op: op, Message: fmt.Sprintf(format, args...)}
}

func notFound(op, format string, args ...any) error {
	return &Error{Kind: ErrNotFound, Op: op, Message: fmt.Sprintf(format, args...)}
}

func invalid(op string, messages []string) error {
	return &Error{Kind: ErrValidation, Op: op, Message: ErrValidation.Error(), Messages: messages}
}

func persistence(op string, err error) error {
	return &Error{Kind: ErrPersistence, Op: op, Message: ErrPersistence.Error(), Err: err}
}
