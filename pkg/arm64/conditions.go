package arm64

import "strings"

// conditions maps condition mnemonics to their 4-bit encoding. hs/lo
// are the unsigned aliases of cs/cc.
var conditions = map[string]uint32{
	"eq": 0b0000,
	"ne": 0b0001,
	"cs": 0b0010,
	"hs": 0b0010,
	"cc": 0b0011,
	"lo": 0b0011,
	"mi": 0b0100,
	"pl": 0b0101,
	"vs": 0b0110,
	"vc": 0b0111,
	"hi": 0b1000,
	"ls": 0b1001,
	"ge": 0b1010,
	"lt": 0b1011,
	"gt": 0b1100,
	"le": 0b1101,
	"al": 0b1110,
	"nv": 0b1111,
}

// LookupCondition resolves a condition mnemonic ("eq", "hs", ...) to
// its 4-bit encoding, case-insensitively.
func LookupCondition(name string) (uint32, bool) {
	c, ok := conditions[strings.ToLower(name)]
	return c, ok
}
