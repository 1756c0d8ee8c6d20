package macho

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestStructSizes(t *testing.T) {
	tests := []struct {
		name string
		v    interface{}
		want int
	}{
		{"header", Header{}, 32},
		{"segment command", SegmentCommand64{}, 72},
		{"section", Section64{}, 80},
		{"entry point command", EntryPointCommand{}, 24},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := binary.Size(tc.v); got != tc.want {
				t.Errorf("binary.Size(%T) = %d, want %d", tc.v, got, tc.want)
			}
		})
	}
}

func TestImageBytes(t *testing.T) {
	img := Image{
		Base:  0x100000000,
		Entry: 0x100000004,
		Code:  []uint32{0xD2800540, 0xD2800030, 0xD4001001},
	}
	data, err := img.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error: %v", err)
	}

	if got, want := len(data), TextFileOffset+12; got != want {
		t.Fatalf("image length = %d, want %d", got, want)
	}
	if !bytes.Equal(data[:4], []byte{0xCF, 0xFA, 0xED, 0xFE}) {
		t.Errorf("magic bytes = % x, want cf fa ed fe", data[:4])
	}
	if got, want := string(data[40:56]), "__PAGEZERO\x00\x00\x00\x00\x00\x00"; got != want {
		t.Errorf("guard segment name = %q, want %q", got, want)
	}

	r := bytes.NewReader(data)
	var header Header
	var pageZero, text SegmentCommand64
	var section Section64
	var entry EntryPointCommand
	for _, part := range []interface{}{&header, &pageZero, &text, &section, &entry} {
		if err := binary.Read(r, binary.LittleEndian, part); err != nil {
			t.Fatalf("reading back load commands: %v", err)
		}
	}

	wantHeader := Header{
		Magic:      0xFEEDFACF,
		CPUType:    0x0100000C,
		FileType:   2,
		NCmds:      3,
		SizeOfCmds: 248,
		Flags:      0x00200085,
	}
	if diff := cmp.Diff(wantHeader, header); diff != "" {
		t.Errorf("header mismatch (-want +got):\n%s", diff)
	}

	wantPageZero := SegmentCommand64{
		Cmd:     0x19,
		CmdSize: 72,
		SegName: paddedName("__PAGEZERO"),
		VMSize:  0x100000000,
	}
	if diff := cmp.Diff(wantPageZero, pageZero); diff != "" {
		t.Errorf("__PAGEZERO mismatch (-want +got):\n%s", diff)
	}

	wantText := SegmentCommand64{
		Cmd:      0x19,
		CmdSize:  152,
		SegName:  paddedName("__TEXT"),
		VMAddr:   0x100000000,
		VMSize:   0x4000,
		FileSize: 0x4000 + 12,
		MaxProt:  7,
		InitProt: 5,
		NSects:   1,
	}
	if diff := cmp.Diff(wantText, text); diff != "" {
		t.Errorf("__TEXT mismatch (-want +got):\n%s", diff)
	}

	wantSection := Section64{
		SectName: paddedName("__text"),
		SegName:  paddedName("__TEXT"),
		Addr:     0x100000000,
		Size:     12,
		Offset:   0x4000,
		Align:    2,
		Flags:    0x80000400,
	}
	if diff := cmp.Diff(wantSection, section); diff != "" {
		t.Errorf("__text section mismatch (-want +got):\n%s", diff)
	}

	wantEntry := EntryPointCommand{
		Cmd:      0x80000028,
		CmdSize:  24,
		EntryOff: 4,
	}
	if diff := cmp.Diff(wantEntry, entry); diff != "" {
		t.Errorf("entry point command mismatch (-want +got):\n%s", diff)
	}

	for i, b := range data[280:TextFileOffset] {
		if b != 0 {
			t.Fatalf("padding byte at offset %d = 0x%02x, want 0", 280+i, b)
		}
	}

	code := make([]uint32, 3)
	if err := binary.Read(bytes.NewReader(data[TextFileOffset:]), binary.LittleEndian, code); err != nil {
		t.Fatalf("reading back code: %v", err)
	}
	if diff := cmp.Diff(img.Code, code); diff != "" {
		t.Errorf("code stream mismatch (-want +got):\n%s", diff)
	}
}

func TestImageBytesEntryOffset(t *testing.T) {
	tests := []struct {
		name  string
		base  uint64
		entry uint64
		want  uint64
	}{
		{"entry at base", 0x100000000, 0x100000000, 0},
		{"entry inside text", 0x100000000, 0x100000010, 16},
		{"custom base", 0x4000, 0x4008, 8},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			img := Image{Base: tc.base, Entry: tc.entry, Code: []uint32{0xD503201F}}
			data, err := img.Bytes()
			if err != nil {
				t.Fatalf("Bytes() error: %v", err)
			}
			if got := binary.LittleEndian.Uint64(data[264:]); got != tc.want {
				t.Errorf("entry offset = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestImageBytesEntryBelowBase(t *testing.T) {
	_, err := Image{Base: 0x100000000, Entry: 0x4000}.Bytes()
	if err == nil {
		t.Fatal("expected an error for an entry address below the base")
	}
}

func TestImageBytesEmptyCode(t *testing.T) {
	data, err := Image{Base: 0x100000000, Entry: 0x100000000}.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error: %v", err)
	}
	if len(data) != TextFileOffset {
		t.Errorf("image length = %d, want %d", len(data), TextFileOffset)
	}
}

func TestWrite(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "macho_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	path := filepath.Join(tempDir, "a.out")
	img := Image{Base: 0x100000000, Entry: 0x100000000, Code: []uint32{0xD65F03C0}}
	if err := Write(path, img); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat output: %v", err)
	}
	if info.Mode()&0o100 == 0 {
		t.Errorf("output mode = %v, want owner-executable", info.Mode())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if got, want := len(data), TextFileOffset+4; got != want {
		t.Errorf("output length = %d, want %d", got, want)
	}
	if !bytes.Equal(data[:4], []byte{0xCF, 0xFA, 0xED, 0xFE}) {
		t.Errorf("output magic = % x, want cf fa ed fe", data[:4])
	}
}
