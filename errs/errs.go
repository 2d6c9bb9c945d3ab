// Package errs holds the failure taxonomy shared by the simulation and the
// instruction harness. Every structured error matches its sentinel with errors.Is.
package errs

import (
	"errors"
	"fmt"
)

var (
	ErrUnrecognizedInstruction = errors.New("unrecognized instruction")
	ErrMalformedOperand        = errors.New("malformed operand")
	ErrEntityNotFound          = errors.New("entity not found")
	ErrInvalidTarget           = errors.New("invalid target")
	ErrRoundLimitExceeded      = errors.New("round limit exceeded")
	ErrAssertionMismatch       = errors.New("assertion mismatch")
	// ErrBreakOutsideLoop is a caller bug, not a test failure.
	ErrBreakOutsideLoop = errors.New("break outside loop")
)

// UnrecognizedError reports an instruction no rule matched.
type UnrecognizedError struct {
	Instruction string
}

func (e *UnrecognizedError) Error() string {
	return fmt.Sprintf("unrecognized instruction %q", e.Instruction)
}

func (e *UnrecognizedError) Is(target error) bool { return target == ErrUnrecognizedInstruction }

// MalformedOperandError names the operand that failed to parse.
type MalformedOperandError struct {
	Field string
	Value string
}

func (e *MalformedOperandError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("malformed operand %s", e.Field)
	}
	return fmt.Sprintf("malformed operand %s: %q", e.Field, e.Value)
}

func (e *MalformedOperandError) Is(target error) bool { return target == ErrMalformedOperand }

// NotFoundError is an alias lookup miss. Kind is "character", "monster", etc.
type NotFoundError struct {
	Kind  string
	Alias string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Alias)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrEntityNotFound }

// InvalidTargetError rejects a battle action aimed at a missing or dead entity.
// Cause, when set, is the lookup failure behind it.
type InvalidTargetError struct {
	Target string
	Reason string
	Cause  error
}

func (e *InvalidTargetError) Error() string {
	return fmt.Sprintf("invalid target %q: %s", e.Target, e.Reason)
}

func (e *InvalidTargetError) Is(target error) bool { return target == ErrInvalidTarget }

func (e *InvalidTargetError) Unwrap() error { return e.Cause }

// RoundLimitError is returned when a battle runs past its configured MaxRounds.
type RoundLimitError struct {
	Limit int
}

func (e *RoundLimitError) Error() string {
	return fmt.Sprintf("battle exceeded %d rounds", e.Limit)
}

func (e *RoundLimitError) Is(target error) bool { return target == ErrRoundLimitExceeded }

// MismatchError carries both sides of a failed assertion.
type MismatchError struct {
	Path     string
	Mode     string
	Expected any
	Actual   any
	Message  string
}

func (e *MismatchError) Error() string {
	msg := fmt.Sprintf("%s %s: expected %v, got %v", e.Path, e.Mode, e.Expected, e.Actual)
	if e.Message != "" {
		msg = e.Message + ": " + msg
	}
	return msg
}

func (e *MismatchError) Is(target error) bool { return target == ErrAssertionMismatch }

// Malformed is shorthand for a MalformedOperandError.
func Malformed(field, value string) error {
	return &MalformedOperandError{Field: field, Value: value}
}

// NotFound is shorthand for a NotFoundError.
func NotFound(kind, alias string) error {
	return &NotFoundError{Kind: kind, Alias: alias}
}
