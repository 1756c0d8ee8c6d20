package arm64

// Family identifies an ARMv8-A instruction-format family. Every
// supported mnemonic maps onto exactly one family, and the assembler's
// encode step is an exhaustive switch over these values, so an
// unhandled family is a compile-time visible gap rather than a silent
// fall-through to "unknown instruction".
type Family int

const (
	FamilyAddSub        Family = iota // add, sub, adds, subs (immediate or register)
	FamilyLogical                     // and, orr, eor, ands, bic, orn, eon
	FamilyMoveWide                    // movz, movn, movk
	FamilyMove                        // mov alias (movz or orr)
	FamilyMulAdd                      // mul, madd, msub
	FamilyDivide                      // sdiv, udiv
	FamilyShift                       // lsl, lsr, asr, ror (immediate or register)
	FamilyLoadStore                   // ldr, str
	FamilyLoadStorePair               // ldp, stp
	FamilyPCRel                       // adr, adrp
	FamilyBranch                      // b, bl
	FamilyBranchCond                  // b.cond
	FamilyBranchReg                   // br, blr, ret
	FamilyCompareBranch               // cbz, cbnz
	FamilyTestBranch                  // tbz, tbnz
	FamilyCompare                     // cmp alias (subs to zero register)
	FamilyCondSelect                  // csel, csinc, csinv, csneg
	FamilyHint                        // nop
	FamilyException                   // brk, svc
	FamilySysReg                      // mrs, msr
)

var familyNames = [...]string{
	FamilyAddSub:        "add/sub",
	FamilyLogical:       "logical",
	FamilyMoveWide:      "move wide",
	FamilyMove:          "mov",
	FamilyMulAdd:        "multiply-add",
	FamilyDivide:        "divide",
	FamilyShift:         "shift",
	FamilyLoadStore:     "load/store",
	FamilyLoadStorePair: "load/store pair",
	FamilyPCRel:         "pc-relative",
	FamilyBranch:        "branch",
	FamilyBranchCond:    "conditional branch",
	FamilyBranchReg:     "register branch",
	FamilyCompareBranch: "compare and branch",
	FamilyTestBranch:    "test and branch",
	FamilyCompare:       "compare",
	FamilyCondSelect:    "conditional select",
	FamilyHint:          "hint",
	FamilyException:     "exception",
	FamilySysReg:        "system register",
}

func (f Family) String() string {
	if f < 0 || int(f) >= len(familyNames) {
		return "unknown"
	}
	return familyNames[f]
}
