package asm

import (
	"fmt"
	"io"
)

// Dump writes each machine word as an "address: hex  binary" line for
// human inspection. No decoding back to mnemonics is attempted.
func (p *Program) Dump(w io.Writer) error {
	for i, word := range p.Code {
		addr := p.Base + uint64(i)*4
		if _, err := fmt.Fprintf(w, "0x%016x: 0x%08x  %032b\n", addr, word, word); err != nil {
			return err
		}
	}
	return nil
}
