package asm

// RelocKind selects the instruction field a relocation patches.
type RelocKind int

const (
	// RelocBranch26 patches the 26-bit word offset of B and BL.
	RelocBranch26 RelocKind = iota
	// RelocCond19 patches the 19-bit word offset of B.cond.
	RelocCond19
	// RelocCompare19 patches the 19-bit word offset of CBZ and CBNZ.
	RelocCompare19
	// RelocTest14 patches the 14-bit word offset of TBZ and TBNZ.
	RelocTest14
	// RelocAdr21 patches the split 21-bit byte delta of ADR.
	RelocAdr21
	// RelocAdrPage21 patches the split 21-bit page delta of ADRP.
	RelocAdrPage21
)

var relocKindNames = [...]string{
	"branch26",
	"cond19",
	"compare19",
	"test14",
	"adr21",
	"adrpage21",
}

func (k RelocKind) String() string {
	if k < 0 || int(k) >= len(relocKindNames) {
		return "unknown"
	}
	return relocKindNames[k]
}

// Relocation records one label-referencing instruction awaiting its final
// field value. Offset is the absolute address of the referencing
// instruction, not an index into the code buffer.
type Relocation struct {
	Offset uint64
	Label  string
	Kind   RelocKind
	Line   int
}

// patchWord merges the field value derived from target into word,
// leaving every other bit untouched. Patching is idempotent and
// order-independent across relocations because each kind owns a fixed,
// disjoint bit range of its own instruction word.
func patchWord(word uint32, kind RelocKind, target, offset uint64) uint32 {
	delta := int64(target) - int64(offset)

	switch kind {
	case RelocBranch26:
		v := uint32(delta>>2) & 0x03FFFFFF
		return word&0xFC000000 | v
	case RelocCond19, RelocCompare19:
		v := uint32(delta>>2) & 0x7FFFF
		return word&0xFF00001F | v<<5
	case RelocTest14:
		v := uint32(delta>>2) & 0x3FFF
		return word&0xFFF8001F | v<<5
	case RelocAdr21, RelocAdrPage21:
		if kind == RelocAdrPage21 {
			delta >>= 12
		}
		immlo := uint32(delta) & 0x3
		immhi := uint32(delta>>2) & 0x7FFFF
		return word&0x9F00001F | immlo<<29 | immhi<<5
	}

	return word
}

func (a *Assembler) resolveRelocations() {
	for _, rel := range a.relocations {
		target, ok := a.labels[rel.Label]
		if !ok {
			a.warn(rel.Line, &UndefinedLabelError{Label: rel.Label})
			continue
		}

		idx := (rel.Offset - a.base) / 4
		if idx >= uint64(len(a.code)) {
			continue
		}

		a.code[idx] = patchWord(a.code[idx], rel.Kind, target, rel.Offset)
	}
}
