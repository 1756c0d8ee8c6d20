package asm

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"goasm64/pkg/logging"
	loggingtest "goasm64/pkg/logging/test"
)

func TestAssemble(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		want    []uint32
		wantErr bool
	}{
		{
			"basic instructions",
			`
			mov x0, #42
			mov x16, #1
			svc #0x80
			`,
			[]uint32{0xD2800540, 0xD2800030, 0xD4001001},
			false,
		},
		{
			"backward branch",
			`
			_start:
			    mov x0, #3
			loop:
			    sub x0, x0, #1
			    cbnz x0, loop
			    ret
			`,
			[]uint32{0xD2800060, 0xD1000400, 0xB5FFFFE0, 0xD65F03C0},
			false,
		},
		{
			"forward branch",
			`
			    b done
			    nop
			done:
			    ret
			`,
			[]uint32{0x14000002, 0xD503201F, 0xD65F03C0},
			false,
		},
		{
			"conditional branch",
			`
			    cmp x0, #5
			    b.ne skip
			    nop
			skip:
			    ret
			`,
			[]uint32{0xF100141F, 0x54000041, 0xD503201F, 0xD65F03C0},
			false,
		},
		{
			"memory operands",
			`
			ldr x1, [x0]
			str w2, [x3, #8]
			ldr x1, [x0, x2]
			ldp x0, x1, [sp, #16]
			stp x29, x30, [sp, #-16]
			`,
			[]uint32{0xF9400001, 0xB9000862, 0xF8627801, 0xA94107E0, 0xA93F7BFD},
			false,
		},
		{
			"aliases",
			`
			mov x0, x1
			cmp x0, #5
			cmp x0, x1
			`,
			[]uint32{0xAA0103E0, 0xF100141F, 0xEB01001F},
			false,
		},
		{
			"logical immediates",
			`
			and x0, x1, #0xff
			orr x0, x1, #0x0f0f0f0f0f0f0f0f
			`,
			[]uint32{0x92401C20, 0xB200CC20},
			false,
		},
		{
			"shifts",
			`
			lsr x0, x1, #4
			lsl x0, x1, #8
			ror x0, x1, #4
			lsl x0, x1, x2
			`,
			[]uint32{0xD344FC20, 0xD378DC20, 0x93C11020, 0x9AC22020},
			false,
		},
		{
			"wide moves with shift",
			`
			movz x0, #42
			movk w1, #0xffff, lsl #16
			mov x2, #7, lsl #16
			`,
			[]uint32{0xD2800540, 0x72BFFFE1, 0xD2A000E2},
			false,
		},
		{
			"register indirect branches",
			`
			br x3
			blr x8
			ret
			ret x5
			`,
			[]uint32{0xD61F0060, 0xD63F0100, 0xD65F03C0, 0xD65F00A0},
			false,
		},
		{
			"directives and comments",
			`
			.text
			_start: ; entry
			    nop // aligned
			    # full line comment
			    mov x0, #1
			`,
			[]uint32{0xD503201F, 0xD2800020},
			false,
		},
		{
			"adr and adrp",
			`
			_start:
			    adr x0, _start
			    adrp x1, _start
			`,
			[]uint32{0x10000000, 0xF0FFFFE1},
			false,
		},
		{
			"three-operand arithmetic",
			`
			add x0, x1, x2
			mul x0, x1, x2
			sdiv x0, x1, x2
			udiv x0, x1, x2
			madd x0, x1, x2, x3
			`,
			[]uint32{0x8B020020, 0x9B027C20, 0x9AC20C20, 0x9AC20820, 0x9B020C20},
			false,
		},
		{
			"conditional select",
			`
			csel x0, x1, x2, eq
			csinc x0, x1, x2, ne
			`,
			[]uint32{0x9A820020, 0x9A821420},
			false,
		},
		{
			"system register moves",
			`
			mrs x0, tpidr_el0
			msr tpidr_el0, x1
			`,
			[]uint32{0xD5380000, 0xD5000001},
			false,
		},
		{
			"missing operand",
			"add x0, x1",
			nil,
			true,
		},
		{
			"unknown mnemonic",
			"frob x0",
			nil,
			true,
		},
		{
			"unknown condition",
			"b.xq somewhere",
			nil,
			true,
		},
		{
			"immediate out of range",
			"mov x0, #65536",
			nil,
			true,
		},
		{
			"misaligned load offset",
			"ldr x1, [x0, #7]",
			nil,
			true,
		},
		{
			"pair offset out of range",
			"ldp x0, x1, [sp, #512]",
			nil,
			true,
		},
		{
			"unencodable logical immediate",
			"and x0, x1, #0xab89",
			nil,
			true,
		},
		{
			"duplicate label",
			`
			here: nop
			here: nop
			`,
			nil,
			true,
		},
		{
			"invalid register",
			"add x0, x99, x1",
			nil,
			true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			program, err := Assemble(tc.code, Options{})
			if (err != nil) != tc.wantErr {
				t.Fatalf("Assemble() error = %v, wantErr %v", err, tc.wantErr)
			}
			if tc.wantErr {
				return
			}
			if diff := cmp.Diff(tc.want, program.Code); diff != "" {
				t.Errorf("machine code mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAssembleScenario(t *testing.T) {
	source := `
_start:
    mov x0, #42
    mov x16, #1
    svc #0x80
`
	program, err := Assemble(source, Options{Base: 0x100000000})
	if err != nil {
		t.Fatal(err)
	}

	if len(program.Code) != 3 {
		t.Fatalf("expected 3 machine words, got %d", len(program.Code))
	}

	// First word must be a MOVZ of x0 with immediate 42.
	word := program.Code[0]
	if sf := word >> 31; sf != 1 {
		t.Errorf("sf = %d; want 1", sf)
	}
	if opc := word >> 29 & 0b11; opc != 0b10 {
		t.Errorf("opc = %b; want 10", opc)
	}
	if imm := word >> 5 & 0xFFFF; imm != 42 {
		t.Errorf("imm16 = %d; want 42", imm)
	}
	if rd := word & 0x1F; rd != 0 {
		t.Errorf("rd = %d; want 0", rd)
	}

	addr, err := program.EntryAddress("_start")
	if err != nil {
		t.Fatal(err)
	}
	if addr != 0x100000000 {
		t.Errorf("entry address = %#x; want 0x100000000", addr)
	}
}

func TestAssembleUndefinedLabel(t *testing.T) {
	logger := loggingtest.New()
	logger.SetLevel(logging.Debug)

	program, err := Assemble("b missing_label", Options{Logger: logger})
	if err != nil {
		t.Fatalf("undefined label must not be fatal, got %v", err)
	}

	// The branch field keeps its zero placeholder.
	if program.Code[0] != 0x14000000 {
		t.Errorf("code[0] = %#08x; want 0x14000000", program.Code[0])
	}

	if len(program.Diagnostics) != 1 {
		t.Fatalf("expected 1 diagnostic, got %d", len(program.Diagnostics))
	}
	d := program.Diagnostics[0]
	if d.Severity != SeverityWarning || !strings.Contains(d.Message, "missing_label") {
		t.Errorf("unexpected diagnostic: %+v", d)
	}

	var warned bool
	for _, entry := range logger.Entries() {
		if entry.Level == logging.Warn && strings.Contains(entry.Message, "missing_label") {
			warned = true
		}
	}
	if !warned {
		t.Errorf("expected a warning log entry, got %+v", logger.Entries())
	}
}

func TestAssembleRelocationRecordedForKnownLabel(t *testing.T) {
	source := `
target:
    nop
    b target
`
	program, err := Assemble(source, Options{})
	if err != nil {
		t.Fatal(err)
	}

	// Deferral is uniform: the backward reference still produces an entry.
	if len(program.Relocations) != 1 {
		t.Fatalf("expected 1 relocation, got %d", len(program.Relocations))
	}
	rel := program.Relocations[0]
	if rel.Label != "target" || rel.Kind != RelocBranch26 {
		t.Errorf("unexpected relocation %+v", rel)
	}
	if rel.Offset != DefaultBase+4 {
		t.Errorf("relocation offset = %#x; want %#x", rel.Offset, DefaultBase+4)
	}

	// And the branch is still resolved: b .-4.
	if program.Code[1] != 0x17FFFFFF {
		t.Errorf("code[1] = %#08x; want 0x17FFFFFF", program.Code[1])
	}
}

func TestAssembleBranchSymmetry(t *testing.T) {
	backward, err := Assemble("a: nop\n b a", Options{})
	if err != nil {
		t.Fatal(err)
	}
	forward, err := Assemble(" b a\na: nop", Options{})
	if err != nil {
		t.Fatal(err)
	}

	signExtend26 := func(word uint32) int32 {
		return int32((word&0x03FFFFFF)<<6) >> 6
	}

	back := signExtend26(backward.Code[1])
	fwd := signExtend26(forward.Code[0])
	if back != -1 || fwd != 1 {
		t.Errorf("offsets = %d and %d; want -1 and 1", back, fwd)
	}
	if back != -fwd {
		t.Errorf("forward and backward offsets are not symmetric: %d vs %d", fwd, back)
	}
}

func TestAssembleDeterministic(t *testing.T) {
	source := `
_start:
    mov x0, #10
loop:
    sub x0, x0, #1
    cbnz x0, loop
    b.eq done
    adr x1, _start
done:
    ret
`
	first, err := Assemble(source, Options{})
	if err != nil {
		t.Fatal(err)
	}
	second, err := Assemble(source, Options{})
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff(first.Code, second.Code); diff != "" {
		t.Errorf("code differs between runs (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(first.Relocations, second.Relocations); diff != "" {
		t.Errorf("relocations differ between runs (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(first.Labels, second.Labels); diff != "" {
		t.Errorf("labels differ between runs (-first +second):\n%s", diff)
	}
}

func TestAssembleCustomBase(t *testing.T) {
	program, err := Assemble("start: b start", Options{Base: 0x4000})
	if err != nil {
		t.Fatal(err)
	}
	if program.Base != 0x4000 {
		t.Errorf("base = %#x; want 0x4000", program.Base)
	}
	if got := program.Labels["start"]; got != 0x4000 {
		t.Errorf("label address = %#x; want 0x4000", got)
	}
	// Self-branch resolves to offset zero regardless of base.
	if program.Code[0] != 0x14000000 {
		t.Errorf("code[0] = %#08x; want 0x14000000", program.Code[0])
	}
}

func TestEntryAddressMissing(t *testing.T) {
	program, err := Assemble("nop", Options{})
	if err != nil {
		t.Fatal(err)
	}

	_, err = program.EntryAddress("nope")
	var missing *MissingEntryPointError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingEntryPointError, got %v", err)
	}
	if missing.Entry != "nope" {
		t.Errorf("entry = %q; want %q", missing.Entry, "nope")
	}
}

func TestAssembleErrorKinds(t *testing.T) {
	tests := []struct {
		name   string
		code   string
		target interface{}
	}{
		{"operand error", "add x0, x99, x1", new(*OperandError)},
		{"unknown instruction", "frob x0", new(*UnknownInstructionError)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Assemble(tc.code, Options{})
			if err == nil {
				t.Fatal("expected an error")
			}

			var lineErr *LineError
			if !errors.As(err, &lineErr) {
				t.Fatalf("expected LineError, got %T", err)
			}
			if lineErr.Line != 1 {
				t.Errorf("line = %d; want 1", lineErr.Line)
			}

			switch target := tc.target.(type) {
			case **OperandError:
				if !errors.As(err, target) {
					t.Errorf("expected OperandError, got %v", err)
				}
			case **UnknownInstructionError:
				if !errors.As(err, target) {
					t.Errorf("expected UnknownInstructionError, got %v", err)
				}
			}
		})
	}
}

func TestDump(t *testing.T) {
	program, err := Assemble("mov x0, #42\nret", Options{})
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := program.Dump(&buf); err != nil {
		t.Fatal(err)
	}

	want := "0x0000000100000000: 0xd2800540  11010010100000000000010101000000\n" +
		"0x0000000100000004: 0xd65f03c0  11010110010111110000001111000000\n"
	if got := buf.String(); got != want {
		t.Errorf("dump = %q, want %q", got, want)
	}
}
