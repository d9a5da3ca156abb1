// Package diag defines the single diagnostic taxonomy shared by the lexer,
// parser, and evaluator, per the error-handling design in the BotScript
// specification.
package diag

import (
	"fmt"

	"github.com/riftbot/botscript/lexer"
)

// Kind identifies the origin and catchability of a diagnostic.
type Kind string

const (
	LexError            Kind = "lex_error"
	ParseError          Kind = "parse_error"
	UndefinedVariable    Kind = "undefined_variable"
	UndefinedFunction    Kind = "undefined_function"
	ArityMismatch        Kind = "arity_mismatch"
	TypeError            Kind = "type_error"
	DivisionByZero       Kind = "division_by_zero"
	HostError            Kind = "host_error"
	Timeout              Kind = "timeout"
	StackOverflow        Kind = "stack_overflow"
	Cancelled            Kind = "cancelled"
)

// Catchable reports whether a try/catch block may intercept a diagnostic
// of this kind, per the BotScript error-handling table.
func (k Kind) Catchable() bool {
	switch k {
	case UndefinedVariable, UndefinedFunction, ArityMismatch, TypeError, DivisionByZero, HostError:
		return true
	default:
		return false
	}
}

// Diagnostic is a single reported problem: what kind it is, where it
// happened, and a human-readable message.
type Diagnostic struct {
	Kind    Kind
	Span    lexer.Span
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("[%s] %s: %s", d.Span, d.Kind, d.Message)
}

// New builds a Diagnostic with a formatted message.
func New(kind Kind, span lexer.Span, format string, args ...interface{}) Diagnostic {
	return Diagnostic{Kind: kind, Span: span, Message: fmt.Sprintf(format, args...)}
}

// StackFrame identifies one level of the evaluator's call stack at the
// point a diagnostic was raised, for building a trace.
type StackFrame struct {
	FunctionName string
	Span         lexer.Span
}
