package asm

import "fmt"

// Severity classifies a diagnostic collected during an assembly run.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// Diagnostic is a non-fatal finding reported alongside the assembled
// program, such as a relocation whose target label was never defined.
type Diagnostic struct {
	Severity Severity
	Line     int
	Message  string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: line %d: %s", d.Severity, d.Line, d.Message)
}

// OperandError reports a malformed register, immediate, or memory operand.
type OperandError struct {
	Token  string
	Reason string
}

func (e *OperandError) Error() string {
	return fmt.Sprintf("invalid operand '%s': %s", e.Token, e.Reason)
}

// UnknownInstructionError reports a mnemonic missing from the opcode table.
type UnknownInstructionError struct {
	Mnemonic string
}

func (e *UnknownInstructionError) Error() string {
	return fmt.Sprintf("unknown instruction: %s", e.Mnemonic)
}

// UndefinedLabelError reports a relocation whose target label never
// appeared in the source. It is recoverable: the affected branch field
// keeps its zero placeholder and assembly continues.
type UndefinedLabelError struct {
	Label string
}

func (e *UndefinedLabelError) Error() string {
	return fmt.Sprintf("undefined label '%s'", e.Label)
}

// MissingEntryPointError reports that the label requested as the
// executable entry point is absent from the label table.
type MissingEntryPointError struct {
	Entry string
}

func (e *MissingEntryPointError) Error() string {
	return fmt.Sprintf("entry point '%s' not found", e.Entry)
}

// LineError wraps an encoding failure with the source line it came from.
type LineError struct {
	Line int
	Text string
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d '%s': %v", e.Line, e.Text, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}
