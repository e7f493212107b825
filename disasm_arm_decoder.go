package elfscope

import (
	"math/bits"
	"strconv"
	"strings"

	"golang.org/x/arch/arm/armasm"
	"golang.org/x/arch/arm64/arm64asm"
)

// decodeOneARM decodes 32-bit ARM (A32) instructions via
// golang.org/x/arch/arm/armasm. Thumb (T32) is not decoded: armasm itself
// only supports ModeARM, and no Thumb decoder appears anywhere in the
// example pack; Thumb functions surface as DecodeGap runs (see DESIGN.md).
func decodeOneARM(code []byte, addr uint64) (Instruction, int, error) {
	inst, err := armasm.Decode(code, armasm.ModeARM)
	if err != nil {
		return Instruction{}, 0, err
	}

	out := Instruction{Address: addr, Size: inst.Len, Mnemonic: inst.Op.String(), Class: ClassOther}

	switch inst.Op {
	case armasm.BL, armasm.BLX:
		out.Class = ClassCallIndirect
		if rel, ok := inst.Args[0].(armasm.PCRel); ok {
			out.Class = ClassCallDirect
			out.Target = Operand{Kind: OperandImmediate, Value: int64(addr) + int64(rel) + 8, Resolved: true}
		}
		return out, inst.Len, nil

	case armasm.B, armasm.BX:
		out.Class = ClassBranch
		out.TailCall = true
		if rel, ok := inst.Args[0].(armasm.PCRel); ok {
			out.Target = Operand{Kind: OperandImmediate, Value: int64(addr) + int64(rel) + 8, Resolved: true}
		}
		return out, inst.Len, nil

	case armasm.MOV:
		if inst.Op.String() == "MOV" && argIsReg(inst.Args[0], armasm.PC) {
			out.Class = ClassReturn
		}
		return out, inst.Len, nil

	case armasm.SUB:
		if argIsReg(inst.Args[0], armasm.SP) && argIsReg(inst.Args[1], armasm.SP) {
			out.Class = ClassStackAdjust
			if imm, ok := inst.Args[2].(armasm.Imm); ok {
				out.StackDelta = int64(imm)
			} else {
				out.DynamicStack = true
			}
		}
		return out, inst.Len, nil

	case armasm.ADD:
		if argIsReg(inst.Args[0], armasm.SP) && argIsReg(inst.Args[1], armasm.SP) {
			out.Class = ClassStackAdjust
			if imm, ok := inst.Args[2].(armasm.Imm); ok {
				out.StackDelta = -int64(imm)
			} else {
				out.DynamicStack = true
			}
		}
		return out, inst.Len, nil

	case armasm.PUSH:
		if rl, ok := inst.Args[0].(armasm.RegList); ok {
			out.Class = ClassStackAdjust
			out.StackDelta = int64(bits.OnesCount16(uint16(rl))) * 4
		}
		return out, inst.Len, nil

	case armasm.POP:
		if rl, ok := inst.Args[0].(armasm.RegList); ok {
			out.Class = ClassStackAdjust
			out.StackDelta = -int64(bits.OnesCount16(uint16(rl))) * 4
		}
		return out, inst.Len, nil
	}

	return out, inst.Len, nil
}

func argIsReg(a armasm.Arg, want armasm.Reg) bool {
	r, ok := a.(armasm.Reg)
	return ok && r == want
}

// decodeOneARM64 decodes AArch64 via golang.org/x/arch/arm64/arm64asm, the
// same backend the teacher's call-site detector uses. All A64 instructions
// are 4 bytes.
func decodeOneARM64(code []byte, addr uint64) (Instruction, int, error) {
	inst, err := arm64asm.Decode(code)
	if err != nil {
		return Instruction{}, 0, err
	}

	out := Instruction{Address: addr, Size: 4, Mnemonic: inst.Op.String(), Class: ClassOther}

	switch inst.Op {
	case arm64asm.BL, arm64asm.BLR:
		out.Class = ClassCallIndirect
		if pcrel, ok := inst.Args[0].(arm64asm.PCRel); ok {
			out.Class = ClassCallDirect
			out.Target = Operand{Kind: OperandImmediate, Value: int64(addr) + int64(pcrel), Resolved: true}
		}
		return out, 4, nil

	case arm64asm.B, arm64asm.BR:
		out.Class = ClassBranch
		isCond := false
		for _, arg := range inst.Args {
			if _, ok := arg.(arm64asm.Cond); ok {
				isCond = true
				break
			}
		}
		out.TailCall = !isCond
		if pcrel, ok := inst.Args[0].(arm64asm.PCRel); ok {
			out.Target = Operand{Kind: OperandImmediate, Value: int64(addr) + int64(pcrel), Resolved: true}
		}
		return out, 4, nil

	case arm64asm.RET:
		out.Class = ClassReturn
		return out, 4, nil

	case arm64asm.SUB:
		if isARM64SP(inst.Args[0]) && isARM64SP(inst.Args[1]) {
			out.Class = ClassStackAdjust
			if v, ok := parseARM64ImmShift(inst.Args[2]); ok {
				out.StackDelta = v
			} else {
				out.DynamicStack = true
			}
		}
		return out, 4, nil

	case arm64asm.ADD:
		if isARM64SP(inst.Args[0]) && isARM64SP(inst.Args[1]) {
			out.Class = ClassStackAdjust
			if v, ok := parseARM64ImmShift(inst.Args[2]); ok {
				out.StackDelta = -v
			} else {
				out.DynamicStack = true
			}
		}
		return out, 4, nil

	case arm64asm.MOV:
		if isARM64X29(inst.Args[0]) && isARM64SP(inst.Args[1]) {
			out.Class = ClassFrameSetup
		}
		return out, 4, nil
	}

	return out, 4, nil
}

func isARM64SP(a arm64asm.Arg) bool {
	r, ok := a.(arm64asm.RegSP)
	return ok && arm64asm.Reg(r) == arm64asm.SP
}

func isARM64X29(a arm64asm.Arg) bool {
	r, ok := a.(arm64asm.Reg)
	return ok && r == arm64asm.X29
}

// parseARM64ImmShift extracts the immediate from an arm64asm.ImmShift
// argument via its String form ("#0x20" or "#0x20, LSL #12"), since the
// struct's fields are unexported.
func parseARM64ImmShift(a arm64asm.Arg) (int64, bool) {
	is, ok := a.(arm64asm.ImmShift)
	if !ok {
		return 0, false
	}
	s := is.String()
	s = strings.TrimPrefix(s, "#")
	if i := strings.IndexByte(s, ','); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimPrefix(s, "0x")
	v, err := strconv.ParseInt(s, 16, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
