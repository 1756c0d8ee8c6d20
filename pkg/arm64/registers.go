// Package arm64 defines the ARMv8-A register and condition tables, the
// instruction-family enumeration, and the per-family 32-bit word
// builders used by the assembler. Word builders are pure shift-and-OR
// compositions of already-validated fields; operand validation and
// range checking happen in the caller.
package arm64

import (
	"fmt"
	"strings"
)

// Register widths in bits, derived from the register-name prefix.
const (
	Width32  = 32
	Width64  = 64
	Width128 = 128
)

// Fixed register indices for the special aliases.
const (
	RegFP uint32 = 29
	RegLR uint32 = 30
	RegSP uint32 = 31
	RegZR uint32 = 31
)

// Register is a resolved register reference: the 5-bit encoding index
// and the operand width implied by the register name.
type Register struct {
	Index uint32
	Width int
}

// SF returns the operand-size bit used by data-processing encodings:
// 1 for 64-bit registers, 0 for 32-bit.
func (r Register) SF() uint32 {
	if r.Width == Width64 {
		return 1
	}
	return 0
}

var registers = make(map[string]Register)

func init() {
	for i := uint32(0); i <= 30; i++ {
		registers[fmt.Sprintf("x%d", i)] = Register{Index: i, Width: Width64}
		registers[fmt.Sprintf("w%d", i)] = Register{Index: i, Width: Width32}
	}
	for i := uint32(0); i <= 31; i++ {
		registers[fmt.Sprintf("v%d", i)] = Register{Index: i, Width: Width128}
		registers[fmt.Sprintf("q%d", i)] = Register{Index: i, Width: Width128}
		registers[fmt.Sprintf("d%d", i)] = Register{Index: i, Width: Width64}
		registers[fmt.Sprintf("s%d", i)] = Register{Index: i, Width: Width32}
	}
	registers["sp"] = Register{Index: RegSP, Width: Width64}
	registers["lr"] = Register{Index: RegLR, Width: Width64}
	registers["fp"] = Register{Index: RegFP, Width: Width64}
	registers["xzr"] = Register{Index: RegZR, Width: Width64}
	registers["wzr"] = Register{Index: RegZR, Width: Width32}
}

// LookupRegister resolves a register name case-insensitively.
func LookupRegister(name string) (Register, bool) {
	r, ok := registers[strings.ToLower(name)]
	return r, ok
}
