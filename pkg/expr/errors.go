package expr

import (
	"errors"
	"fmt"
)

var (
	// ErrParse is the sentinel wrapped by every *ParseError.
	ErrParse = errors.New("expression parse error")
	// ErrEval is the sentinel wrapped by every *EvalError.
	ErrEval = errors.New("expression evaluation error")
)

// ParseError reports a syntax error at a byte offset of the source.
type ParseError struct {
	Expr   string
	Offset int
	Msg    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at offset %d in %q: %s", e.Offset, e.Expr, e.Msg)
}

func (e *ParseError) Unwrap() error { return ErrParse }

// EvalErrorKind classifies evaluation failures.
type EvalErrorKind string

const (
	TypeMismatch    EvalErrorKind = "type_mismatch"
	UnknownFunction EvalErrorKind = "unknown_function"
	MissingVariable EvalErrorKind = "missing_variable"
	DivisionByZero  EvalErrorKind = "division_by_zero"
	InvalidArgument EvalErrorKind = "invalid_argument"
)

// EvalError is returned when a well-formed expression cannot be evaluated.
type EvalError struct {
	Kind EvalErrorKind
	Msg  string
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *EvalError) Unwrap() error { return ErrEval }

func evalErr(kind EvalErrorKind, format string, args ...any) *EvalError {
	return &EvalError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// IsKind reports whether err is an *EvalError of the given kind.
func IsKind(err error, kind EvalErrorKind) bool {
	var ee *EvalError
	if errors.As(err, &ee) {
		return ee.Kind == kind
	}
	return false
}
