package arm64

import "math/bits"

// BitmaskImmediate is the N:immr:imms encoding of a logical (bitmask)
// immediate.
type BitmaskImmediate struct {
	N    uint32
	Immr uint32
	Imms uint32
}

// EncodeBitmask computes the bitmask-immediate encoding of value for
// the given register width (32 or 64). ARMv8-A logical immediates are
// exactly the values expressible as a rotation of a repeated run of
// ones within a 2/4/8/16/32/64-bit element; zero and all-ones have no
// encoding. The boolean result reports whether value is expressible.
func EncodeBitmask(value uint64, width int) (BitmaskImmediate, bool) {
	if width == Width32 {
		if value>>32 != 0 {
			return BitmaskImmediate{}, false
		}
		value |= value << 32
	}
	if value == 0 || value == ^uint64(0) {
		return BitmaskImmediate{}, false
	}

	// Shrink to the smallest element size whose repetition reproduces
	// the value.
	size := uint32(64)
	for size > 2 {
		half := size / 2
		mask := uint64(1)<<half - 1
		if value&mask != (value>>half)&mask {
			break
		}
		size = half
	}

	mask := uint64(1)<<size - 1
	value &= mask

	// Find the rotation that turns a bottom-aligned run of ones into
	// the element, and the length of that run.
	var rotation, onesRun uint32
	if isShiftedMask(value) {
		rotation = uint32(bits.TrailingZeros64(value))
		onesRun = uint32(bits.TrailingZeros64(^(value >> rotation)))
	} else {
		value |= ^mask
		if !isShiftedMask(^value) {
			return BitmaskImmediate{}, false
		}
		leadingOnes := uint32(bits.LeadingZeros64(^value))
		trailingOnes := uint32(bits.TrailingZeros64(^value))
		rotation = 64 - leadingOnes
		onesRun = leadingOnes + trailingOnes - (64 - size)
	}

	// immr is the right-rotation applied to the bottom-aligned run;
	// imms encodes the element size and run length together, with the
	// inverted top bit becoming N.
	immr := (size - rotation) & (size - 1)
	imms := ^(size-1)<<1 | (onesRun - 1)
	n := (imms>>6)&1 ^ 1
	return BitmaskImmediate{N: n, Immr: immr, Imms: imms & 0x3F}, true
}

func isShiftedMask(v uint64) bool {
	return v != 0 && isMask(v|(v-1))
}

func isMask(v uint64) bool {
	return v != 0 && (v+1)&v == 0
}
