package asm

import (
	"fmt"
	"strings"

	"goasm64/pkg/arm64"
)

// opSpec ties a mnemonic to its instruction family and the opcode bits
// distinguishing it within that family. word carries the fixed base
// encoding of hint and exception instructions.
type opSpec struct {
	family arm64.Family
	op     uint32
	op2    uint32
	word   uint32
}

var opTable = map[string]opSpec{
	"add":  {family: arm64.FamilyAddSub, op: 0, op2: 0},
	"adds": {family: arm64.FamilyAddSub, op: 0, op2: 1},
	"sub":  {family: arm64.FamilyAddSub, op: 1, op2: 0},
	"subs": {family: arm64.FamilyAddSub, op: 1, op2: 1},

	"and":  {family: arm64.FamilyLogical, op: 0b00},
	"orr":  {family: arm64.FamilyLogical, op: 0b01},
	"eor":  {family: arm64.FamilyLogical, op: 0b10},
	"ands": {family: arm64.FamilyLogical, op: 0b11},
	"bic":  {family: arm64.FamilyLogical, op: 0b00, op2: 1},
	"orn":  {family: arm64.FamilyLogical, op: 0b01, op2: 1},
	"eon":  {family: arm64.FamilyLogical, op: 0b10, op2: 1},

	"movn": {family: arm64.FamilyMoveWide, op: 0b00},
	"movz": {family: arm64.FamilyMoveWide, op: 0b10},
	"movk": {family: arm64.FamilyMoveWide, op: 0b11},
	"mov":  {family: arm64.FamilyMove},

	"mul":  {family: arm64.FamilyMulAdd, op: 0},
	"madd": {family: arm64.FamilyMulAdd, op: 0},
	"msub": {family: arm64.FamilyMulAdd, op: 1},

	"udiv": {family: arm64.FamilyDivide, op: 0},
	"sdiv": {family: arm64.FamilyDivide, op: 1},

	"lsl": {family: arm64.FamilyShift, op: 0b00},
	"lsr": {family: arm64.FamilyShift, op: 0b01},
	"asr": {family: arm64.FamilyShift, op: 0b10},
	"ror": {family: arm64.FamilyShift, op: 0b11},

	"str": {family: arm64.FamilyLoadStore, op: 0b00},
	"ldr": {family: arm64.FamilyLoadStore, op: 0b01},
	"stp": {family: arm64.FamilyLoadStorePair, op: 0},
	"ldp": {family: arm64.FamilyLoadStorePair, op: 1},

	"adr":  {family: arm64.FamilyPCRel, op: 0},
	"adrp": {family: arm64.FamilyPCRel, op: 1},

	"b":    {family: arm64.FamilyBranch, op: 0},
	"bl":   {family: arm64.FamilyBranch, op: 1},
	"br":   {family: arm64.FamilyBranchReg, op: 0},
	"blr":  {family: arm64.FamilyBranchReg, op: 1},
	"ret":  {family: arm64.FamilyBranchReg, op: 2},
	"cbz":  {family: arm64.FamilyCompareBranch, op: 0},
	"cbnz": {family: arm64.FamilyCompareBranch, op: 1},
	"tbz":  {family: arm64.FamilyTestBranch, op: 0},
	"tbnz": {family: arm64.FamilyTestBranch, op: 1},

	"cmp": {family: arm64.FamilyCompare},

	"csel":  {family: arm64.FamilyCondSelect, op: 0, op2: 0},
	"csinc": {family: arm64.FamilyCondSelect, op: 0, op2: 1},
	"csinv": {family: arm64.FamilyCondSelect, op: 1, op2: 0},
	"csneg": {family: arm64.FamilyCondSelect, op: 1, op2: 1},

	"nop": {family: arm64.FamilyHint, word: arm64.WordNOP},
	"brk": {family: arm64.FamilyException, word: arm64.WordBRK},
	"svc": {family: arm64.FamilyException, word: arm64.WordSVC},

	"mrs": {family: arm64.FamilySysReg, op: 1},
	"msr": {family: arm64.FamilySysReg, op: 0},
}

// encodeInstruction produces the machine word for one parsed line,
// appending a relocation entry for every label-referencing instruction.
func (a *Assembler) encodeInstruction(p parsedLine) (uint32, error) {
	if strings.HasPrefix(p.mnemonic, "b.") {
		return a.encodeBranchCond(p)
	}

	spec, ok := opTable[p.mnemonic]
	if !ok {
		return 0, &UnknownInstructionError{Mnemonic: p.mnemonic}
	}

	switch spec.family {
	case arm64.FamilyAddSub:
		return a.encodeAddSub(spec, p)
	case arm64.FamilyLogical:
		return a.encodeLogical(spec, p)
	case arm64.FamilyMoveWide:
		return a.encodeMoveWide(spec, p)
	case arm64.FamilyMove:
		return a.encodeMove(p)
	case arm64.FamilyMulAdd:
		return a.encodeMulAdd(spec, p)
	case arm64.FamilyDivide:
		return a.encodeDivide(spec, p)
	case arm64.FamilyShift:
		return a.encodeShift(spec, p)
	case arm64.FamilyLoadStore:
		return a.encodeLoadStore(spec, p)
	case arm64.FamilyLoadStorePair:
		return a.encodeLoadStorePair(spec, p)
	case arm64.FamilyPCRel:
		return a.encodePCRel(spec, p)
	case arm64.FamilyBranch:
		return a.encodeBranch(spec, p)
	case arm64.FamilyBranchReg:
		return a.encodeBranchReg(spec, p)
	case arm64.FamilyCompareBranch:
		return a.encodeCompareBranch(spec, p)
	case arm64.FamilyTestBranch:
		return a.encodeTestBranch(spec, p)
	case arm64.FamilyCompare:
		return a.encodeCompare(p)
	case arm64.FamilyCondSelect:
		return a.encodeCondSelect(spec, p)
	case arm64.FamilyHint:
		return a.encodeHint(spec, p)
	case arm64.FamilyException:
		return a.encodeException(spec, p)
	case arm64.FamilySysReg:
		return a.encodeSysReg(spec, p)
	}

	return 0, &UnknownInstructionError{Mnemonic: p.mnemonic}
}

// addRelocation defers field resolution for a label reference. Deferral
// is unconditional: a backward reference to an already-known label is
// resolved later in the same place as every other reference.
func (a *Assembler) addRelocation(label string, kind RelocKind, line int) error {
	if !isIdentifier(label) {
		return &OperandError{Token: label, Reason: "expected a label"}
	}
	a.relocations = append(a.relocations, Relocation{
		Offset: a.address,
		Label:  label,
		Kind:   kind,
		Line:   line,
	})
	return nil
}

// parseUnsignedImm parses an immediate and rejects anything outside
// 0..max rather than truncating it.
func parseUnsignedImm(token string, max int64) (uint32, error) {
	v, err := parseImmediate(token)
	if err != nil {
		return 0, err
	}
	if v < 0 || v > max {
		return 0, &OperandError{Token: token, Reason: fmt.Sprintf("immediate out of range (0..%d)", max)}
	}
	return uint32(v), nil
}

func (a *Assembler) encodeAddSub(spec opSpec, p parsedLine) (uint32, error) {
	ops := p.operands
	if len(ops) != 3 && len(ops) != 4 {
		return 0, fmt.Errorf("%s expects 3 operands, got %d", p.mnemonic, len(ops))
	}
	rd, err := parseRegister(ops[0])
	if err != nil {
		return 0, err
	}
	rn, err := parseRegister(ops[1])
	if err != nil {
		return 0, err
	}

	if rm, ok := arm64.LookupRegister(ops[2]); ok {
		if len(ops) != 3 {
			return 0, &OperandError{Token: ops[3], Reason: "register form takes no shift"}
		}
		return arm64.AddSubReg(rd.SF(), spec.op, spec.op2, rm.Index, rn.Index, rd.Index), nil
	}

	imm, err := parseUnsignedImm(ops[2], 0xFFF)
	if err != nil {
		return 0, err
	}

	var sh uint32
	if len(ops) == 4 {
		amount, err := parseShift(ops[3])
		if err != nil {
			return 0, err
		}
		if amount != 0 && amount != 12 {
			return 0, &OperandError{Token: ops[3], Reason: "shift must be lsl #0 or lsl #12"}
		}
		if amount == 12 {
			sh = 1
		}
	}

	return arm64.AddSubImm(rd.SF(), spec.op, spec.op2, sh, imm, rn.Index, rd.Index), nil
}

func (a *Assembler) encodeLogical(spec opSpec, p parsedLine) (uint32, error) {
	ops := p.operands
	if len(ops) != 3 {
		return 0, fmt.Errorf("%s expects 3 operands, got %d", p.mnemonic, len(ops))
	}
	rd, err := parseRegister(ops[0])
	if err != nil {
		return 0, err
	}
	rn, err := parseRegister(ops[1])
	if err != nil {
		return 0, err
	}

	if rm, ok := arm64.LookupRegister(ops[2]); ok {
		return arm64.LogicalReg(rd.SF(), spec.op, spec.op2, rm.Index, rn.Index, rd.Index), nil
	}

	if spec.op2 != 0 {
		return 0, fmt.Errorf("%s has no immediate form", p.mnemonic)
	}

	imm, err := parseImmediate(ops[2])
	if err != nil {
		return 0, err
	}

	value := uint64(imm)
	if rd.Width == arm64.Width32 {
		if high := value >> 32; high != 0 && high != 0xFFFFFFFF {
			return 0, &OperandError{Token: ops[2], Reason: "immediate does not fit a 32-bit register"}
		}
		value &= 0xFFFFFFFF
	}

	enc, ok := arm64.EncodeBitmask(value, rd.Width)
	if !ok {
		return 0, &OperandError{Token: ops[2], Reason: "not encodable as a logical immediate"}
	}

	return arm64.LogicalImm(rd.SF(), spec.op, enc.N, enc.Immr, enc.Imms, rn.Index, rd.Index), nil
}

func (a *Assembler) encodeMoveWide(spec opSpec, p parsedLine) (uint32, error) {
	ops := p.operands
	if len(ops) != 2 && len(ops) != 3 {
		return 0, fmt.Errorf("%s expects 2 operands, got %d", p.mnemonic, len(ops))
	}
	rd, err := parseRegister(ops[0])
	if err != nil {
		return 0, err
	}
	imm, err := parseUnsignedImm(ops[1], 0xFFFF)
	if err != nil {
		return 0, err
	}

	var hw uint32
	if len(ops) == 3 {
		amount, err := parseShift(ops[2])
		if err != nil {
			return 0, err
		}
		if amount < 0 || amount > 48 || amount%16 != 0 {
			return 0, &OperandError{Token: ops[2], Reason: "shift must be lsl #0, #16, #32, or #48"}
		}
		if rd.Width == arm64.Width32 && amount > 16 {
			return 0, &OperandError{Token: ops[2], Reason: "shift exceeds 32-bit register range"}
		}
		hw = uint32(amount / 16)
	}

	return arm64.MoveWide(rd.SF(), spec.op, hw, imm, rd.Index), nil
}

// encodeMove lowers the MOV alias: a register source becomes
// ORR Rd, XZR, Rm and an immediate source becomes MOVZ.
func (a *Assembler) encodeMove(p parsedLine) (uint32, error) {
	ops := p.operands
	if len(ops) < 2 {
		return 0, fmt.Errorf("mov expects 2 operands, got %d", len(ops))
	}
	rd, err := parseRegister(ops[0])
	if err != nil {
		return 0, err
	}

	if rm, ok := arm64.LookupRegister(ops[1]); ok {
		if len(ops) != 2 {
			return 0, &OperandError{Token: ops[2], Reason: "register form takes no shift"}
		}
		return arm64.LogicalReg(rd.SF(), 0b01, 0, rm.Index, arm64.RegZR, rd.Index), nil
	}

	return a.encodeMoveWide(opTable["movz"], p)
}

func (a *Assembler) encodeMulAdd(spec opSpec, p parsedLine) (uint32, error) {
	ops := p.operands
	want := 4
	if p.mnemonic == "mul" {
		want = 3
	}
	if len(ops) != want {
		return 0, fmt.Errorf("%s expects %d operands, got %d", p.mnemonic, want, len(ops))
	}
	rd, err := parseRegister(ops[0])
	if err != nil {
		return 0, err
	}
	rn, err := parseRegister(ops[1])
	if err != nil {
		return 0, err
	}
	rm, err := parseRegister(ops[2])
	if err != nil {
		return 0, err
	}

	ra := uint32(arm64.RegZR)
	if want == 4 {
		r, err := parseRegister(ops[3])
		if err != nil {
			return 0, err
		}
		ra = r.Index
	}

	return arm64.MulAdd(rd.SF(), spec.op, rm.Index, ra, rn.Index, rd.Index), nil
}

func (a *Assembler) encodeDivide(spec opSpec, p parsedLine) (uint32, error) {
	ops := p.operands
	if len(ops) != 3 {
		return 0, fmt.Errorf("%s expects 3 operands, got %d", p.mnemonic, len(ops))
	}
	rd, err := parseRegister(ops[0])
	if err != nil {
		return 0, err
	}
	rn, err := parseRegister(ops[1])
	if err != nil {
		return 0, err
	}
	rm, err := parseRegister(ops[2])
	if err != nil {
		return 0, err
	}
	return arm64.Divide(rd.SF(), spec.op, rm.Index, rn.Index, rd.Index), nil
}

func (a *Assembler) encodeShift(spec opSpec, p parsedLine) (uint32, error) {
	ops := p.operands
	if len(ops) != 3 {
		return 0, fmt.Errorf("%s expects 3 operands, got %d", p.mnemonic, len(ops))
	}
	rd, err := parseRegister(ops[0])
	if err != nil {
		return 0, err
	}
	rn, err := parseRegister(ops[1])
	if err != nil {
		return 0, err
	}

	if rm, ok := arm64.LookupRegister(ops[2]); ok {
		return arm64.ShiftReg(rd.SF(), spec.op, rm.Index, rn.Index, rd.Index), nil
	}

	width := uint32(rd.Width)
	amount, err := parseUnsignedImm(ops[2], int64(width)-1)
	if err != nil {
		return 0, err
	}

	n := rd.SF()
	switch p.mnemonic {
	case "lsl":
		immr := (width - amount) & (width - 1)
		imms := width - 1 - amount
		return arm64.Bitfield(rd.SF(), 0b10, n, immr, imms, rn.Index, rd.Index), nil
	case "lsr":
		return arm64.Bitfield(rd.SF(), 0b10, n, amount, width-1, rn.Index, rd.Index), nil
	case "asr":
		return arm64.Bitfield(rd.SF(), 0b00, n, amount, width-1, rn.Index, rd.Index), nil
	default:
		return arm64.Extract(rd.SF(), n, rn.Index, amount, rn.Index, rd.Index), nil
	}
}

func (a *Assembler) encodeLoadStore(spec opSpec, p parsedLine) (uint32, error) {
	ops := p.operands
	if len(ops) != 2 {
		return 0, fmt.Errorf("%s expects 2 operands, got %d", p.mnemonic, len(ops))
	}
	rt, err := parseRegister(ops[0])
	if err != nil {
		return 0, err
	}
	mem, err := parseMemOperand(ops[1])
	if err != nil {
		return 0, err
	}

	size := uint32(0b10)
	scale := int64(4)
	if rt.Width == arm64.Width64 {
		size = 0b11
		scale = 8
	}

	if mem.hasIndex {
		return arm64.LoadStoreReg(size, spec.op, mem.index.Index, mem.base.Index, rt.Index), nil
	}

	if mem.offset < 0 || mem.offset%scale != 0 || mem.offset/scale > 0xFFF {
		return 0, &OperandError{
			Token:  ops[1],
			Reason: fmt.Sprintf("offset must be a multiple of %d in 0..%d", scale, scale*0xFFF),
		}
	}

	return arm64.LoadStoreImm(size, spec.op, uint32(mem.offset/scale), mem.base.Index, rt.Index), nil
}

func (a *Assembler) encodeLoadStorePair(spec opSpec, p parsedLine) (uint32, error) {
	ops := p.operands
	if len(ops) != 3 {
		return 0, fmt.Errorf("%s expects 3 operands, got %d", p.mnemonic, len(ops))
	}
	rt, err := parseRegister(ops[0])
	if err != nil {
		return 0, err
	}
	rt2, err := parseRegister(ops[1])
	if err != nil {
		return 0, err
	}
	mem, err := parseMemOperand(ops[2])
	if err != nil {
		return 0, err
	}
	if mem.hasIndex {
		return 0, &OperandError{Token: ops[2], Reason: "register offset not supported for pairs"}
	}

	opc := uint32(0b00)
	scale := int64(4)
	if rt.Width == arm64.Width64 {
		opc = 0b10
		scale = 8
	}

	if mem.offset%scale != 0 {
		return 0, &OperandError{Token: ops[2], Reason: fmt.Sprintf("offset must be a multiple of %d", scale)}
	}
	scaled := mem.offset / scale
	if scaled < -64 || scaled > 63 {
		return 0, &OperandError{Token: ops[2], Reason: "offset out of range for pair addressing"}
	}

	return arm64.LoadStorePair(opc, spec.op, uint32(scaled)&0x7F, rt2.Index, mem.base.Index, rt.Index), nil
}

func (a *Assembler) encodePCRel(spec opSpec, p parsedLine) (uint32, error) {
	ops := p.operands
	if len(ops) != 2 {
		return 0, fmt.Errorf("%s expects 2 operands, got %d", p.mnemonic, len(ops))
	}
	rd, err := parseRegister(ops[0])
	if err != nil {
		return 0, err
	}

	kind := RelocAdr21
	if spec.op == 1 {
		kind = RelocAdrPage21
	}
	if err := a.addRelocation(ops[1], kind, p.lineNo); err != nil {
		return 0, err
	}

	return arm64.PCRelAddr(spec.op, 0, 0, rd.Index), nil
}

func (a *Assembler) encodeBranch(spec opSpec, p parsedLine) (uint32, error) {
	ops := p.operands
	if len(ops) != 1 {
		return 0, fmt.Errorf("%s expects 1 operand, got %d", p.mnemonic, len(ops))
	}
	if err := a.addRelocation(ops[0], RelocBranch26, p.lineNo); err != nil {
		return 0, err
	}
	return arm64.BranchImm(spec.op, 0), nil
}

// encodeBranchCond handles the b.<cond> mnemonics, which are dispatched
// on their prefix before the opcode table lookup.
func (a *Assembler) encodeBranchCond(p parsedLine) (uint32, error) {
	cond, ok := arm64.LookupCondition(strings.TrimPrefix(p.mnemonic, "b."))
	if !ok {
		return 0, &UnknownInstructionError{Mnemonic: p.mnemonic}
	}
	if len(p.operands) != 1 {
		return 0, fmt.Errorf("%s expects 1 operand, got %d", p.mnemonic, len(p.operands))
	}
	if err := a.addRelocation(p.operands[0], RelocCond19, p.lineNo); err != nil {
		return 0, err
	}
	return arm64.BranchCond(cond, 0), nil
}

func (a *Assembler) encodeBranchReg(spec opSpec, p parsedLine) (uint32, error) {
	ops := p.operands

	if p.mnemonic == "ret" {
		rn := uint32(arm64.RegLR)
		if len(ops) > 1 {
			return 0, fmt.Errorf("ret expects at most 1 operand, got %d", len(ops))
		}
		if len(ops) == 1 {
			r, err := parseRegister(ops[0])
			if err != nil {
				return 0, err
			}
			rn = r.Index
		}
		return arm64.BranchReg(spec.op, rn), nil
	}

	if len(ops) != 1 {
		return 0, fmt.Errorf("%s expects 1 operand, got %d", p.mnemonic, len(ops))
	}
	r, err := parseRegister(ops[0])
	if err != nil {
		return 0, err
	}
	return arm64.BranchReg(spec.op, r.Index), nil
}

func (a *Assembler) encodeCompareBranch(spec opSpec, p parsedLine) (uint32, error) {
	ops := p.operands
	if len(ops) != 2 {
		return 0, fmt.Errorf("%s expects 2 operands, got %d", p.mnemonic, len(ops))
	}
	rt, err := parseRegister(ops[0])
	if err != nil {
		return 0, err
	}
	if err := a.addRelocation(ops[1], RelocCompare19, p.lineNo); err != nil {
		return 0, err
	}
	return arm64.CompareBranch(rt.SF(), spec.op, 0, rt.Index), nil
}

func (a *Assembler) encodeTestBranch(spec opSpec, p parsedLine) (uint32, error) {
	ops := p.operands
	if len(ops) != 3 {
		return 0, fmt.Errorf("%s expects 3 operands, got %d", p.mnemonic, len(ops))
	}
	rt, err := parseRegister(ops[0])
	if err != nil {
		return 0, err
	}

	max := int64(63)
	if rt.Width == arm64.Width32 {
		max = 31
	}
	bit, err := parseUnsignedImm(ops[1], max)
	if err != nil {
		return 0, err
	}

	if err := a.addRelocation(ops[2], RelocTest14, p.lineNo); err != nil {
		return 0, err
	}

	return arm64.TestBranch(bit>>5&1, spec.op, bit&0x1F, 0, rt.Index), nil
}

// encodeCompare lowers the CMP alias onto SUBS with the zero register
// as destination.
func (a *Assembler) encodeCompare(p parsedLine) (uint32, error) {
	ops := p.operands
	if len(ops) != 2 {
		return 0, fmt.Errorf("cmp expects 2 operands, got %d", len(ops))
	}
	rn, err := parseRegister(ops[0])
	if err != nil {
		return 0, err
	}

	if rm, ok := arm64.LookupRegister(ops[1]); ok {
		return arm64.AddSubReg(rn.SF(), 1, 1, rm.Index, rn.Index, arm64.RegZR), nil
	}

	imm, err := parseUnsignedImm(ops[1], 0xFFF)
	if err != nil {
		return 0, err
	}
	return arm64.AddSubImm(rn.SF(), 1, 1, 0, imm, rn.Index, arm64.RegZR), nil
}

func (a *Assembler) encodeCondSelect(spec opSpec, p parsedLine) (uint32, error) {
	ops := p.operands
	if len(ops) != 4 {
		return 0, fmt.Errorf("%s expects 4 operands, got %d", p.mnemonic, len(ops))
	}
	rd, err := parseRegister(ops[0])
	if err != nil {
		return 0, err
	}
	rn, err := parseRegister(ops[1])
	if err != nil {
		return 0, err
	}
	rm, err := parseRegister(ops[2])
	if err != nil {
		return 0, err
	}
	cond, err := parseCondition(ops[3])
	if err != nil {
		return 0, err
	}
	return arm64.CondSelect(rd.SF(), spec.op, spec.op2, rm.Index, cond, rn.Index, rd.Index), nil
}

func (a *Assembler) encodeHint(spec opSpec, p parsedLine) (uint32, error) {
	if len(p.operands) != 0 {
		return 0, fmt.Errorf("%s expects 0 operands, got %d", p.mnemonic, len(p.operands))
	}
	return spec.word, nil
}

func (a *Assembler) encodeException(spec opSpec, p parsedLine) (uint32, error) {
	ops := p.operands
	if len(ops) > 1 {
		return 0, fmt.Errorf("%s expects at most 1 operand, got %d", p.mnemonic, len(ops))
	}

	var imm uint32
	if len(ops) == 1 {
		v, err := parseUnsignedImm(ops[0], 0xFFFF)
		if err != nil {
			return 0, err
		}
		imm = v
	}
	return arm64.Exception(spec.word, imm), nil
}

// encodeSysReg emits the simplified MRS/MSR forms: the transfer register
// is encoded, the system register name is accepted but not inspected.
func (a *Assembler) encodeSysReg(spec opSpec, p parsedLine) (uint32, error) {
	ops := p.operands
	if len(ops) != 2 {
		return 0, fmt.Errorf("%s expects 2 operands, got %d", p.mnemonic, len(ops))
	}

	regToken := ops[0]
	if spec.op == 0 {
		regToken = ops[1]
	}
	rt, err := parseRegister(regToken)
	if err != nil {
		return 0, err
	}
	return arm64.SysRegMove(spec.op, rt.Index), nil
}
