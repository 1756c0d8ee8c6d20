package macho

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
)

// Image is an assembled program ready for serialization: a flat stream
// of instruction words mapped at Base, with execution starting at
// Entry.
type Image struct {
	Base  uint64
	Entry uint64
	Code  []uint32
}

// Bytes renders the image as a complete Mach-O executable: header,
// three load commands, zero padding up to TextFileOffset, then the
// little-endian code words.
func (img Image) Bytes() ([]byte, error) {
	if img.Entry < img.Base {
		return nil, fmt.Errorf("entry address 0x%x is below the load base 0x%x", img.Entry, img.Base)
	}

	codeSize := uint64(len(img.Code)) * 4

	header := Header{
		Magic:      Magic64,
		CPUType:    CPUTypeARM64,
		CPUSubType: CPUSubTypeARM64All,
		FileType:   FileTypeExecute,
		NCmds:      3,
		SizeOfCmds: loadCommandsSize,
		Flags:      HeaderFlags,
	}

	pageZero := SegmentCommand64{
		Cmd:      CmdSegment64,
		CmdSize:  segmentCommand64Size,
		SegName:  paddedName("__PAGEZERO"),
		VMSize:   pageZeroSize,
		MaxProt:  ProtNone,
		InitProt: ProtNone,
	}

	text := SegmentCommand64{
		Cmd:      CmdSegment64,
		CmdSize:  segmentCommand64Size + section64Size,
		SegName:  paddedName("__TEXT"),
		VMAddr:   img.Base,
		VMSize:   textVMSize,
		FileOff:  0,
		FileSize: TextFileOffset + codeSize,
		MaxProt:  ProtAll,
		InitProt: ProtReadExecute,
		NSects:   1,
	}

	section := Section64{
		SectName: paddedName("__text"),
		SegName:  paddedName("__TEXT"),
		Addr:     img.Base,
		Size:     codeSize,
		Offset:   TextFileOffset,
		Align:    2,
		Flags:    SectionFlagsText,
	}

	entry := EntryPointCommand{
		Cmd:      CmdMain,
		CmdSize:  entryPointCommandSize,
		EntryOff: img.Entry - img.Base,
	}

	buf := bytes.NewBuffer(make([]byte, 0, TextFileOffset+int(codeSize)))
	for _, part := range []interface{}{header, pageZero, text, section, entry} {
		if err := binary.Write(buf, binary.LittleEndian, part); err != nil {
			return nil, err
		}
	}
	buf.Write(make([]byte, TextFileOffset-buf.Len()))
	if err := binary.Write(buf, binary.LittleEndian, img.Code); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write serializes img to path with the executable bit set.
func Write(path string, img Image) error {
	data, err := img.Bytes()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o755)
}
