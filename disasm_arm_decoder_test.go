package elfscope_test

import (
	"testing"

	"github.com/elfscope/elfscope"
)

func TestDisassemblerARM32(t *testing.T) {
	tests := []struct {
		name       string
		code       []byte
		addr       uint64
		wantClass  elfscope.InstrClass
		wantDelta  int64
		wantTarget uint64
		wantTail   bool
	}{
		{
			// bl #4 (word offset 1): EB000001 little-endian bytes, target = addr+8+4
			name:       "bl-direct",
			code:       []byte{0x01, 0x00, 0x00, 0xeb},
			addr:       0x8000,
			wantClass:  elfscope.ClassCallDirect,
			wantTarget: 0x800c,
		},
		{
			// b #4, unconditional branch, tail call
			name:       "b-tail",
			code:       []byte{0x01, 0x00, 0x00, 0xea},
			addr:       0x8000,
			wantClass:  elfscope.ClassBranch,
			wantTarget: 0x800c,
			wantTail:   true,
		},
		{
			// mov pc, lr
			name:      "mov-pc-lr",
			code:      []byte{0x0e, 0xf0, 0xa0, 0xe1},
			addr:      0x8000,
			wantClass: elfscope.ClassReturn,
		},
		{
			// sub sp, sp, #16
			name:      "sub-sp",
			code:      []byte{0x10, 0xd0, 0x4d, 0xe2},
			addr:      0x8000,
			wantClass: elfscope.ClassStackAdjust,
			wantDelta: 16,
		},
		{
			// push {r4, r5, r6, lr}
			name:      "push-reglist",
			code:      []byte{0x70, 0x40, 0x2d, 0xe9},
			addr:      0x8000,
			wantClass: elfscope.ClassStackAdjust,
			wantDelta: 16,
		},
	}

	dis, err := elfscope.NewDisassembler(elfscope.ArchARM, nil)
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
			if tt.wantTarget != 0 {
				if !inst.Target.Resolved {
					t.Fatalf("target not resolved")
				}
				if uint64(inst.Target.Value) != tt.wantTarget {
					t.Errorf("target = %#x, want %#x", inst.Target.Value, tt.wantTarget)
				}
			}
			if inst.TailCall != tt.wantTail {
				t.Errorf("tail call = %v, want %v", inst.TailCall, tt.wantTail)
			}
		})
	}
}

func TestDisassemblerARM64(t *testing.T) {
	tests := []struct {
		name       string
		code       []byte
		addr       uint64
		wantClass  elfscope.InstrClass
		wantDelta  int64
		wantTarget uint64
		wantTail   bool
	}{
		{
			// bl +16
			name:       "bl-direct",
			code:       []byte{0x04, 0x00, 0x00, 0x94},
			addr:       0x8000,
			wantClass:  elfscope.ClassCallDirect,
			wantTarget: 0x8010,
		},
		{
			// b +16
			name:       "b-tail",
			code:       []byte{0x04, 0x00, 0x00, 0x14},
			addr:       0x8000,
			wantClass:  elfscope.ClassBranch,
			wantTarget: 0x8010,
			wantTail:   true,
		},
		{
			// ret
			name:      "ret",
			code:      []byte{0xc0, 0x03, 0x5f, 0xd6},
			addr:      0x8000,
			wantClass: elfscope.ClassReturn,
		},
		{
			// sub sp, sp, #0x20
			name:      "sub-sp",
			code:      []byte{0xff, 0x83, 0x00, 0xd1},
			addr:      0x8000,
			wantClass: elfscope.ClassStackAdjust,
			wantDelta: 0x20,
		},
	}

	dis, err := elfscope.NewDisassembler(elfscope.ArchARM64, nil)
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
			if tt.wantTarget != 0 {
				if !inst.Target.Resolved {
					t.Fatalf("target not resolved")
				}
				if uint64(inst.Target.Value) != tt.wantTarget {
					t.Errorf("target = %#x, want %#x", inst.Target.Value, tt.wantTarget)
				}
			}
			if inst.TailCall != tt.wantTail {
				t.Errorf("tail call = %v, want %v", inst.TailCall, tt.wantTail)
			}
		})
	}
}
