package elfscope

import "fmt"

// decodeOneMIPS returns a decodeFunc for 32- and 64-bit MIPS. No pack
// example or x/arch subpackage decodes MIPS, so this is a minimal
// hand-rolled fixed-width decoder covering the handful of opcodes the call
// graph and stack analyzer need: J/JAL (direct control transfer), the
// JR/JALR family (register-indirect transfer, including the "jr $ra"
// return idiom), and ADDIU against $sp (frame allocation). Every other
// opcode decodes successfully as [ClassOther] rather than a [DecodeGap]:
// MIPS has no invalid bit patterns at this granularity, so treating unknown
// opcodes as gaps would flood every function with spurious gaps.
func decodeOneMIPS(d ArchDescriptor) decodeFunc {
	order := byteOrderFor(d)

	return func(code []byte, addr uint64) (Instruction, int, error) {
		if len(code) < 4 {
			return Instruction{}, 0, fmt.Errorf("truncated mips instruction at %#x", addr)
		}
		word := order.Uint32(code[:4])
		opcode := word >> 26

		out := Instruction{Address: addr, Size: 4, Class: ClassOther}

		switch opcode {
		case 0x03: // jal
			target := word & 0x03ffffff
			out.Mnemonic = "jal"
			out.Class = ClassCallDirect
			out.Target = Operand{
				Kind:     OperandImmediate,
				Value:    int64((addr+4)&^uint64(0xfffffff) | uint64(target)<<2),
				Resolved: true,
			}
			return out, 4, nil

		case 0x02: // j
			target := word & 0x03ffffff
			out.Mnemonic = "j"
			out.Class = ClassBranch
			out.TailCall = true
			out.Target = Operand{
				Kind:     OperandImmediate,
				Value:    int64((addr+4)&^uint64(0xfffffff) | uint64(target)<<2),
				Resolved: true,
			}
			return out, 4, nil

		case 0x00: // SPECIAL
			funct := word & 0x3f
			rs := (word >> 21) & 0x1f
			switch funct {
			case 0x08: // jr
				out.Mnemonic = "jr"
				if rs == 31 {
					out.Class = ClassReturn
				} else {
					out.Class = ClassBranch
					out.TailCall = true
				}
				return out, 4, nil
			case 0x09: // jalr
				out.Mnemonic = "jalr"
				out.Class = ClassCallIndirect
				return out, 4, nil
			}

		case 0x09: // addiu
			rs := (word >> 21) & 0x1f
			rt := (word >> 16) & 0x1f
			if rs == 29 && rt == 29 {
				imm := int32(int16(word & 0xffff))
				out.Mnemonic = "addiu"
				out.Class = ClassStackAdjust
				out.StackDelta = -int64(imm)
				return out, 4, nil
			}
		}

		out.Mnemonic = fmt.Sprintf("op%#02x", opcode)
		return out, 4, nil
	}
}
