package elfscope

import "golang.org/x/arch/x86/x86asm"

// decodeOneX86 returns a decodeFunc for 32- or 64-bit x86, grounded in the
// x86asm-based prologue and call-site detectors this package was adapted
// from: golang.org/x/arch/x86/x86asm.Decode plus operand-shape
// classification (Rel => direct, Mem/Reg => indirect or unresolved).
func decodeOneX86(bits int) decodeFunc {
	wordSize := int64(4)
	if bits == 64 {
		wordSize = 8
	}

	return func(code []byte, addr uint64) (Instruction, int, error) {
		// ENDBR64 (f3 0f 1e fa) / ENDBR32 (f3 0f 1e fb): CET landing pads
		// golang.org/x/arch/x86/x86asm does not recognize. Transparent to
		// classification, so surface as a zero-effect "other" instruction
		// rather than a decode gap.
		if len(code) >= 4 && code[0] == 0xf3 && code[1] == 0x0f && code[2] == 0x1e &&
			(code[3] == 0xfa || code[3] == 0xfb) {
			return Instruction{Address: addr, Size: 4, Mnemonic: "endbr", Class: ClassOther}, 4, nil
		}

		inst, err := x86asm.Decode(code, bits)
		if err != nil {
			return Instruction{}, 0, err
		}

		out := Instruction{
			Address:  addr,
			Size:     inst.Len,
			Mnemonic: inst.Op.String(),
			Class:    ClassOther,
		}

		switch inst.Op {
		case x86asm.CALL:
			out.Class = ClassCallIndirect
			if rel, ok := inst.Args[0].(x86asm.Rel); ok {
				out.Class = ClassCallDirect
				out.Target = Operand{
					Kind:     OperandImmediate,
					Value:    int64(addr) + int64(inst.Len) + int64(rel),
					Resolved: true,
				}
			}
			return out, inst.Len, nil

		case x86asm.JMP:
			out.Class = ClassBranch
			if rel, ok := inst.Args[0].(x86asm.Rel); ok {
				// x86asm assigns conditional jumps (JE, JNE, JL, ...)
				// distinct Op values, so Op == JMP is always unconditional.
				out.TailCall = true
				out.Target = Operand{
					Kind:     OperandImmediate,
					Value:    int64(addr) + int64(inst.Len) + int64(rel),
					Resolved: true,
				}
			}
			return out, inst.Len, nil

		case x86asm.RET, x86asm.LRET:
			out.Class = ClassReturn
			return out, inst.Len, nil

		case x86asm.SUB:
			if isStackReg(inst.Args[0]) {
				out.Class = ClassStackAdjust
				if imm, ok := inst.Args[1].(x86asm.Imm); ok {
					out.StackDelta = int64(imm)
				} else {
					out.DynamicStack = true
				}
			}
			return out, inst.Len, nil

		case x86asm.ADD:
			if isStackReg(inst.Args[0]) {
				out.Class = ClassStackAdjust
				if imm, ok := inst.Args[1].(x86asm.Imm); ok {
					out.StackDelta = -int64(imm)
				} else {
					out.DynamicStack = true
				}
			}
			return out, inst.Len, nil

		case x86asm.LEA:
			if isStackReg(inst.Args[0]) {
				if mem, ok := inst.Args[1].(x86asm.Mem); ok && isStackReg(mem.Base) && mem.Index == 0 {
					out.Class = ClassStackAdjust
					out.StackDelta = -mem.Disp
				}
			}
			return out, inst.Len, nil

		case x86asm.PUSH:
			out.Class = ClassStackAdjust
			out.StackDelta = wordSize
			return out, inst.Len, nil

		case x86asm.POP:
			out.Class = ClassStackAdjust
			out.StackDelta = -wordSize
			return out, inst.Len, nil

		case x86asm.MOV:
			if isFrameReg(inst.Args[0]) && isStackReg(inst.Args[1]) {
				out.Class = ClassFrameSetup
			}
			return out, inst.Len, nil
		}

		return out, inst.Len, nil
	}
}

func isStackReg(a x86asm.Arg) bool {
	r, ok := a.(x86asm.Reg)
	return ok && (r == x86asm.RSP || r == x86asm.ESP)
}

func isFrameReg(a x86asm.Arg) bool {
	r, ok := a.(x86asm.Reg)
	return ok && (r == x86asm.RBP || r == x86asm.EBP)
}
