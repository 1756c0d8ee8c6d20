package arm64

// Fixed instruction words. The exception base words carry their 16-bit
// immediate in bits 5-20.
const (
	WordNOP uint32 = 0xD503201F
	WordBRK uint32 = 0xD4200000
	WordSVC uint32 = 0xD4000001
)

// AddSubImm encodes ADD/SUB/ADDS/SUBS (immediate):
// sf op S 100010 sh imm12 Rn Rd.
// sh selects an LSL #12 of the 12-bit immediate.
func AddSubImm(sf, op, s, sh, imm12, rn, rd uint32) uint32 {
	return sf<<31 | op<<30 | s<<29 | 0b100010<<23 | sh<<22 | (imm12&0xFFF)<<10 | (rn&0x1F)<<5 | rd&0x1F
}

// AddSubReg encodes ADD/SUB/ADDS/SUBS (shifted register) with the
// shift amount fixed at zero: sf op S 01011 00 0 Rm 000000 Rn Rd.
func AddSubReg(sf, op, s, rm, rn, rd uint32) uint32 {
	return sf<<31 | op<<30 | s<<29 | 0b01011<<24 | (rm&0x1F)<<16 | (rn&0x1F)<<5 | rd&0x1F
}

// LogicalImm encodes AND/ORR/EOR/ANDS (immediate):
// sf opc 100100 N immr imms Rn Rd.
// N:immr:imms must come from a valid bitmask-immediate encoding.
func LogicalImm(sf, opc, n, immr, imms, rn, rd uint32) uint32 {
	return sf<<31 | opc<<29 | 0b100100<<23 | n<<22 | (immr&0x3F)<<16 | (imms&0x3F)<<10 | (rn&0x1F)<<5 | rd&0x1F
}

// LogicalReg encodes AND/ORR/EOR/ANDS and their inverted forms
// BIC/ORN/EON (shifted register), shift amount fixed at zero:
// sf opc 01010 00 N Rm 000000 Rn Rd.
func LogicalReg(sf, opc, n, rm, rn, rd uint32) uint32 {
	return sf<<31 | opc<<29 | 0b01010<<24 | n<<21 | (rm&0x1F)<<16 | (rn&0x1F)<<5 | rd&0x1F
}

// MoveWide encodes MOVN/MOVZ/MOVK: sf opc 100101 hw imm16 Rd.
// hw selects the 16-bit lane (LSL 0/16/32/48).
func MoveWide(sf, opc, hw, imm16, rd uint32) uint32 {
	return sf<<31 | opc<<29 | 0b100101<<23 | hw<<21 | (imm16&0xFFFF)<<5 | rd&0x1F
}

// MulAdd encodes MADD/MSUB: sf 00 11011 000 Rm o0 Ra Rn Rd.
// MUL is MADD with Ra = the zero register.
func MulAdd(sf, o0, rm, ra, rn, rd uint32) uint32 {
	return sf<<31 | 0b11011<<24 | (rm&0x1F)<<16 | o0<<15 | (ra&0x1F)<<10 | (rn&0x1F)<<5 | rd&0x1F
}

// Divide encodes SDIV/UDIV: sf 00 11010110 Rm 00001 o1 Rn Rd.
func Divide(sf, o1, rm, rn, rd uint32) uint32 {
	return sf<<31 | 0b11010110<<21 | (rm&0x1F)<<16 | 0b00001<<11 | o1<<10 | (rn&0x1F)<<5 | rd&0x1F
}

// ShiftReg encodes the register-shift forms LSLV/LSRV/ASRV/RORV:
// sf 00 11010110 Rm 0010 op2 Rn Rd.
func ShiftReg(sf, op2, rm, rn, rd uint32) uint32 {
	return sf<<31 | 0b11010110<<21 | (rm&0x1F)<<16 | 0b0010<<12 | op2<<10 | (rn&0x1F)<<5 | rd&0x1F
}

// Bitfield encodes SBFM/UBFM: sf opc 100110 N immr imms Rn Rd.
// The immediate-shift aliases map onto it: LSR/ASR use immr=shift,
// imms=width-1; LSL uses immr=(width-shift)%width, imms=width-1-shift.
// N must equal sf.
func Bitfield(sf, opc, n, immr, imms, rn, rd uint32) uint32 {
	return sf<<31 | opc<<29 | 0b100110<<23 | n<<22 | (immr&0x3F)<<16 | (imms&0x3F)<<10 | (rn&0x1F)<<5 | rd&0x1F
}

// Extract encodes EXTR: sf 00 100111 N 0 Rm imms Rn Rd.
// ROR (immediate) is EXTR with Rm = Rn. N must equal sf.
func Extract(sf, n, rm, imms, rn, rd uint32) uint32 {
	return sf<<31 | 0b100111<<23 | n<<22 | (rm&0x1F)<<16 | (imms&0x3F)<<10 | (rn&0x1F)<<5 | rd&0x1F
}

// LoadStoreImm encodes LDR/STR (immediate, unsigned offset):
// size 111 0 01 opc imm12 Rn Rt.
// The caller scales the byte offset down by the access size first.
func LoadStoreImm(size, opc, imm12, rn, rt uint32) uint32 {
	return size<<30 | 0b111<<27 | 0b01<<24 | opc<<22 | (imm12&0xFFF)<<10 | (rn&0x1F)<<5 | rt&0x1F
}

// LoadStoreReg encodes LDR/STR (register offset) with the option fixed
// at LSL and the index implicitly scaled by the access size:
// size 111 0 00 opc 1 Rm 011 1 10 Rn Rt.
func LoadStoreReg(size, opc, rm, rn, rt uint32) uint32 {
	return size<<30 | 0b111<<27 | opc<<22 | 1<<21 | (rm&0x1F)<<16 | 0b011<<13 | 1<<12 | 0b10<<10 | (rn&0x1F)<<5 | rt&0x1F
}

// LoadStorePair encodes LDP/STP (signed offset):
// opc 101 0 010 L imm7 Rt2 Rn Rt.
// The caller scales the byte offset down by the register width first.
func LoadStorePair(opc, l, imm7, rt2, rn, rt uint32) uint32 {
	return opc<<30 | 0b101<<27 | 0b010<<23 | l<<22 | (imm7&0x7F)<<15 | (rt2&0x1F)<<10 | (rn&0x1F)<<5 | rt&0x1F
}

// PCRelAddr encodes ADR/ADRP: op immlo 10000 immhi Rd.
func PCRelAddr(op, immlo, immhi, rd uint32) uint32 {
	return op<<31 | (immlo&0x3)<<29 | 0b10000<<24 | (immhi&0x7FFFF)<<5 | rd&0x1F
}

// BranchImm encodes B/BL: op 00101 imm26. The offset is in words.
func BranchImm(link, imm26 uint32) uint32 {
	return link<<31 | 0b00101<<26 | imm26&0x03FFFFFF
}

// BranchCond encodes B.cond: 01010100 imm19 0 cond.
func BranchCond(cond, imm19 uint32) uint32 {
	return 0b01010100<<24 | (imm19&0x7FFFF)<<5 | cond&0xF
}

// BranchReg encodes BR/BLR/RET: 1101011 0 opc(4) 11111 000000 Rn 00000.
// opc is 0 for BR, 1 for BLR, 2 for RET.
func BranchReg(opc, rn uint32) uint32 {
	return 0b1101011<<25 | opc<<21 | 0b11111<<16 | (rn&0x1F)<<5
}

// CompareBranch encodes CBZ/CBNZ: sf 011010 op imm19 Rt.
func CompareBranch(sf, op, imm19, rt uint32) uint32 {
	return sf<<31 | 0b011010<<25 | op<<24 | (imm19&0x7FFFF)<<5 | rt&0x1F
}

// TestBranch encodes TBZ/TBNZ: b5 011011 op b40 imm14 Rt.
// b5:b40 split the 6-bit bit index; b5 doubles as the size selector.
func TestBranch(b5, op, b40, imm14, rt uint32) uint32 {
	return b5<<31 | 0b011011<<25 | op<<24 | (b40&0x1F)<<19 | (imm14&0x3FFF)<<5 | rt&0x1F
}

// Exception merges a 16-bit immediate into a BRK/SVC base word.
func Exception(base, imm16 uint32) uint32 {
	return base | (imm16&0xFFFF)<<5
}

// SysRegMove encodes the simplified MRS/MSR forms. Only the transfer
// direction and Rt survive; the system-register operand is accepted by
// the parser but not encoded (the full op0:op1:CRn:CRm:op2 scheme is
// out of scope).
func SysRegMove(read, rt uint32) uint32 {
	if read != 0 {
		return 0b1101010100<<22 | 1<<21 | 0b11<<19 | rt&0x1F
	}
	return 0b1101010100<<22 | rt&0x1F
}

// CondSelect encodes CSEL/CSINC/CSINV/CSNEG:
// sf op 0 11010100 Rm cond 0 o2 Rn Rd.
func CondSelect(sf, op, o2, rm, cond, rn, rd uint32) uint32 {
	return sf<<31 | op<<30 | 0b11010100<<21 | (rm&0x1F)<<16 | (cond&0xF)<<12 | o2<<10 | (rn&0x1F)<<5 | rd&0x1F
}
