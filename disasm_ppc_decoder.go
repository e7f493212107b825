package elfscope

import (
	"encoding/binary"

	"golang.org/x/arch/ppc64/ppc64asm"
)

// decodeOnePPC returns a decodeFunc for 32- and 64-bit PowerPC via
// golang.org/x/arch/ppc64/ppc64asm. The library models the 64-bit Power
// ISA; decoding ppc32 binaries with it is an approximation (no 32-bit-only
// forms are excluded), acceptable because this package only classifies
// control-flow and stack-adjusting instructions, all of which are shared
// between ppc32 and ppc64.
func decodeOnePPC(d ArchDescriptor) decodeFunc {
	ord := byteOrderFor(d)

	return func(code []byte, addr uint64) (Instruction, int, error) {
		inst, err := ppc64asm.Decode(code, ord)
		if err != nil {
			return Instruction{}, 0, err
		}

		out := Instruction{Address: addr, Size: inst.Len, Mnemonic: inst.Op.String(), Class: ClassOther}

		switch inst.Op {
		case ppc64asm.BL, ppc64asm.BLA:
			out.Class = ClassCallDirect
			if pc, ok := inst.Args[0].(ppc64asm.PCRel); ok {
				out.Target = Operand{Kind: OperandImmediate, Value: int64(addr) + int64(pc), Resolved: true}
			}
			return out, inst.Len, nil

		case ppc64asm.B, ppc64asm.BA:
			out.Class = ClassBranch
			out.TailCall = true
			if pc, ok := inst.Args[0].(ppc64asm.PCRel); ok {
				out.Target = Operand{Kind: OperandImmediate, Value: int64(addr) + int64(pc), Resolved: true}
			}
			return out, inst.Len, nil

		case ppc64asm.BC, ppc64asm.BCA, ppc64asm.BCL, ppc64asm.BCLA:
			out.Class = ClassBranch
			return out, inst.Len, nil

		case ppc64asm.BCCTRL:
			out.Class = ClassCallIndirect
			return out, inst.Len, nil

		case ppc64asm.BCCTR:
			out.Class = ClassBranch
			out.TailCall = true
			return out, inst.Len, nil

		case ppc64asm.BCLRL:
			out.Class = ClassCallIndirect
			return out, inst.Len, nil

		case ppc64asm.BCLR:
			// "blr" (bclr with BO=20,BI=0) is the conventional function
			// return; other BO/BI combinations are conditional returns to
			// LR, rare outside of leaf epilogues. Treated uniformly as a
			// return rather than decoding the BO/BI condition fields.
			out.Class = ClassReturn
			return out, inst.Len, nil

		case ppc64asm.ADDI:
			if isPPCStackReg(inst.Args[0]) && isPPCStackReg(inst.Args[1]) {
				if imm, ok := inst.Args[2].(ppc64asm.Imm); ok {
					out.Class = ClassStackAdjust
					out.StackDelta = -int64(imm)
				}
			}
			return out, inst.Len, nil

		case ppc64asm.STDU, ppc64asm.STWU:
			if isPPCStackReg(inst.Args[2]) {
				if off, ok := inst.Args[1].(ppc64asm.Offset); ok {
					out.Class = ClassStackAdjust
					out.StackDelta = -int64(off)
				}
			}
			return out, inst.Len, nil
		}

		return out, inst.Len, nil
	}
}

func isPPCStackReg(a ppc64asm.Arg) bool {
	r, ok := a.(ppc64asm.Reg)
	return ok && r == ppc64asm.R1
}

func byteOrderFor(d ArchDescriptor) binary.ByteOrder {
	if d.Endian == BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}
