// Package asm implements a two-pass ARM64 assembler. Pass 1 assigns an
// absolute address to every label, pass 2 encodes each line into a
// 32-bit machine word, and a final resolution phase patches the deferred
// label references into the emitted words.
package asm

import (
	"fmt"
	"strings"

	"goasm64/pkg/logging"
)

// DefaultBase is the virtual address of the first instruction when no
// explicit base is configured.
const DefaultBase uint64 = 0x100000000

// Options configure a single assembly run.
type Options struct {
	// Base is the virtual address of the first instruction. Zero selects
	// DefaultBase.
	Base uint64

	// Logger receives warnings and per-phase debug output. Nil disables
	// logging.
	Logger logging.Logger
}

// Program is the result of one assembly run.
type Program struct {
	Base        uint64
	Code        []uint32
	Labels      map[string]uint64
	Relocations []Relocation
	Diagnostics []Diagnostic
}

// EntryAddress resolves the label naming the executable entry point.
func (p *Program) EntryAddress(entry string) (uint64, error) {
	addr, ok := p.Labels[entry]
	if !ok {
		return 0, &MissingEntryPointError{Entry: entry}
	}
	return addr, nil
}

// Assembler holds the mutable state of one run. Use a fresh instance per
// run; instances are not safe for concurrent use.
type Assembler struct {
	base   uint64
	logger logging.Logger

	address     uint64
	labels      map[string]uint64
	relocations []Relocation
	code        []uint32
	diagnostics []Diagnostic
}

func NewAssembler(opts Options) *Assembler {
	base := opts.Base
	if base == 0 {
		base = DefaultBase
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}

	return &Assembler{
		base:   base,
		logger: logger,
		labels: make(map[string]uint64),
	}
}

// Assemble runs both passes and relocation resolution over source.
func Assemble(source string, opts Options) (*Program, error) {
	return NewAssembler(opts).Assemble(source)
}

func (a *Assembler) Assemble(source string) (*Program, error) {
	lines := strings.Split(source, "\n")

	if err := a.pass1(lines); err != nil {
		return nil, err
	}
	if err := a.pass2(lines); err != nil {
		return nil, err
	}
	a.resolveRelocations()

	return &Program{
		Base:        a.base,
		Code:        a.code,
		Labels:      a.labels,
		Relocations: a.relocations,
		Diagnostics: a.diagnostics,
	}, nil
}

func (a *Assembler) pass1(lines []string) error {
	a.address = a.base

	for i, raw := range lines {
		lineNo := i + 1
		p, err := parseLine(raw, lineNo)
		if err != nil {
			return err
		}

		for _, lbl := range p.labels {
			if _, exists := a.labels[lbl]; exists {
				return fmt.Errorf("duplicate label '%s' on line %d", lbl, lineNo)
			}
			a.labels[lbl] = a.address
		}

		if p.mnemonic == "" || strings.HasPrefix(p.mnemonic, ".") {
			continue
		}
		a.address += 4
	}

	a.logger.Debug("pass 1 complete: %d labels", len(a.labels))
	return nil
}

func (a *Assembler) pass2(lines []string) error {
	a.address = a.base

	for i, raw := range lines {
		lineNo := i + 1
		p, err := parseLine(raw, lineNo)
		if err != nil {
			return err
		}

		if p.mnemonic == "" {
			continue
		}
		if strings.HasPrefix(p.mnemonic, ".") {
			a.logger.Debug("skipping directive '%s' on line %d", p.mnemonic, lineNo)
			continue
		}

		word, err := a.encodeInstruction(p)
		if err != nil {
			return &LineError{Line: lineNo, Text: strings.TrimSpace(raw), Err: err}
		}

		a.code = append(a.code, word)
		a.address += 4
	}

	a.logger.Debug("pass 2 complete: %d instructions, %d relocations", len(a.code), len(a.relocations))
	return nil
}

func (a *Assembler) warn(line int, err error) {
	a.diagnostics = append(a.diagnostics, Diagnostic{
		Severity: SeverityWarning,
		Line:     line,
		Message:  err.Error(),
	})
	a.logger.WithFields(map[string]interface{}{"line": line}).Warn(err.Error())
}
