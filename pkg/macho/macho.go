// Package macho serializes an assembled program into a minimal Mach-O
// executable for ARM64 macOS: a __PAGEZERO guard segment, a __TEXT
// segment with a single __text section holding the instruction stream,
// and an LC_MAIN command recording the entry point. Every header field
// the loader inspects is fixed here; only the base address, entry
// offset and code bytes vary between images.
package macho

// Mach-O header constants for a 64-bit ARM64 executable.
const (
	Magic64            uint32 = 0xFEEDFACF
	CPUTypeARM64       uint32 = 0x0100000C
	CPUSubTypeARM64All uint32 = 0x00000000
	FileTypeExecute    uint32 = 0x00000002

	// MH_NOUNDEFS, MH_DYLDLINK, MH_TWOLEVEL and MH_PIE.
	HeaderFlags uint32 = 0x00200085
)

// Load command types.
const (
	CmdSegment64 uint32 = 0x19
	CmdMain      uint32 = 0x80000028
)

// S_REGULAR with S_ATTR_PURE_INSTRUCTIONS and
// S_ATTR_SOME_INSTRUCTIONS set.
const SectionFlagsText uint32 = 0x80000400

// Segment protection values (VM_PROT_* bit combinations).
const (
	ProtNone        uint32 = 0x0
	ProtReadExecute uint32 = 0x5
	ProtAll         uint32 = 0x7
)

const (
	// TextFileOffset is the page-aligned file offset where the code
	// stream begins. Everything between the load commands and this
	// offset is zero padding.
	TextFileOffset = 0x4000

	// textVMSize is the fixed virtual size reserved for the __TEXT
	// segment, one 16 KiB page.
	textVMSize = 0x4000

	// pageZeroSize spans the low 4 GiB of the address space so that
	// small-integer dereferences can never hit a mapped page.
	pageZeroSize = 0x100000000
)

// Serialized sizes of the header and load commands. The header's
// sizeofcmds field and each command's cmdsize field must carry exactly
// these values or the loader rejects the file.
const (
	headerSize            = 32
	segmentCommand64Size  = 72
	section64Size         = 80
	entryPointCommandSize = 24

	loadCommandsSize = segmentCommand64Size + // __PAGEZERO
		segmentCommand64Size + section64Size + // __TEXT + __text
		entryPointCommandSize // LC_MAIN
)

// Header is the 32-byte Mach-O file header.
type Header struct {
	Magic      uint32
	CPUType    uint32
	CPUSubType uint32
	FileType   uint32
	NCmds      uint32
	SizeOfCmds uint32
	Flags      uint32
	Reserved   uint32
}

// SegmentCommand64 is an LC_SEGMENT_64 load command, excluding the
// Section64 entries that follow it in the file.
type SegmentCommand64 struct {
	Cmd      uint32
	CmdSize  uint32
	SegName  [16]byte
	VMAddr   uint64
	VMSize   uint64
	FileOff  uint64
	FileSize uint64
	MaxProt  uint32
	InitProt uint32
	NSects   uint32
	Flags    uint32
}

// Section64 describes one section within a 64-bit segment.
type Section64 struct {
	SectName  [16]byte
	SegName   [16]byte
	Addr      uint64
	Size      uint64
	Offset    uint32
	Align     uint32
	RelOff    uint32
	NReloc    uint32
	Flags     uint32
	Reserved1 uint32
	Reserved2 uint32
	Reserved3 uint32
}

// EntryPointCommand is the LC_MAIN load command. EntryOff is relative
// to the __TEXT segment's base virtual address, not an absolute
// address.
type EntryPointCommand struct {
	Cmd       uint32
	CmdSize   uint32
	EntryOff  uint64
	StackSize uint64
}

// paddedName returns s as a NUL-padded 16-byte segment or section
// name.
func paddedName(s string) [16]byte {
	var name [16]byte
	copy(name[:], s)
	return name
}
