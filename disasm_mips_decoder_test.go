package elfscope_test

import (
	"testing"

	"github.com/elfscope/elfscope"
)

func TestDisassemblerMIPS(t *testing.T) {
	tests := []struct {
		name      string
		code      []byte
		addr      uint64
		wantClass elfscope.InstrClass
		wantDelta int64
		wantTail  bool
	}{
		{
			// jal 0x1008 (big-endian word 0x0C000402)
			name:      "jal-direct",
			code:      []byte{0x0c, 0x00, 0x04, 0x02},
			addr:      0x1000,
			wantClass: elfscope.ClassCallDirect,
		},
		{
			// j 0x1008
			name:      "j-tail",
			code:      []byte{0x08, 0x00, 0x04, 0x02},
			addr:      0x1000,
			wantClass: elfscope.ClassBranch,
			wantTail:  true,
		},
		{
			// jr $ra
			name:      "jr-ra-return",
			code:      []byte{0x03, 0xe0, 0x00, 0x08},
			addr:      0x1000,
			wantClass: elfscope.ClassReturn,
		},
		{
			// jr $t0 (not $ra): indirect branch, tail
			name:      "jr-other-tail",
			code:      []byte{0x01, 0x00, 0x00, 0x08},
			addr:      0x1000,
			wantClass: elfscope.ClassBranch,
			wantTail:  true,
		},
		{
			// jalr $ra, $t0
			name:      "jalr-indirect-call",
			code:      []byte{0x01, 0x00, 0xf8, 0x09},
			addr:      0x1000,
			wantClass: elfscope.ClassCallIndirect,
		},
		{
			// addiu $sp, $sp, -24
			name:      "addiu-sp",
			code:      []byte{0x27, 0xbd, 0xff, 0xe8},
			addr:      0x1000,
			wantClass: elfscope.ClassStackAdjust,
			wantDelta: 24,
		},
	}

	dis, err := elfscope.NewDisassembler(elfscope.ArchMIPS, nil)
	if err != nil {
		t.Fatalf("NewDisassembler: %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			instrs, gaps := dis.DecodeRange(tt.code, tt.addr)
			if len(gaps) != 0 {
				t.Fatalf("unexpected decode gaps: %+v", gaps)
			}
			if len(instrs) != 1 {
				t.Fatalf("expected 1 instruction, got %d: %+v", len(instrs), instrs)
			}
			inst := instrs[0]
			if inst.Class != tt.wantClass {
				t.Errorf("class = %s, want %s", inst.Class, tt.wantClass)
			}
			if tt.wantDelta != 0 && inst.StackDelta != tt.wantDelta {
				t.Errorf("stack delta = %d, want %d", inst.StackDelta, tt.wantDelta)
			}
			if inst.TailCall != tt.wantTail {
				t.Errorf("tail call = %v, want %v", inst.TailCall, tt.wantTail)
			}
		})
	}
}

func TestDisassemblerMIPS_UnknownOpcodeIsNotAGap(t *testing.T) {
	dis, err := elfscope.NewDisassembler(elfscope.ArchMIPS, nil)
	if err != nil {
		t.Fatalf("NewDisassembler: %v", err)
	}

	// opcode 0x3f (reserved/unused in this decoder's switch): must still
	// decode as a 4-byte ClassOther instruction, never a DecodeGap.
	instrs, gaps := dis.DecodeRange([]byte{0xfc, 0x00, 0x00, 0x00}, 0x1000)
	if len(gaps) != 0 {
		t.Fatalf("unexpected decode gaps: %+v", gaps)
	}
	if len(instrs) != 1 || instrs[0].Class != elfscope.ClassOther {
		t.Fatalf("expected one ClassOther instruction, got %+v", instrs)
	}
}
