package elfscope

import "fmt"

// decodeOneRISCV returns a decodeFunc for 32- and 64-bit RISC-V. Like MIPS,
// no pack example or x/arch subpackage decodes RISC-V, so this is a
// hand-rolled decoder. It covers the base-I control-flow and
// stack-adjustment opcodes (JAL, JALR, ADDI against sp) plus the compressed
// (RVC) forms actually emitted by GCC/Clang prologues and call sites
// (C.JAL, C.J, C.JR, C.JALR, C.ADDI16SP); any other compressed opcode, and
// any 32-bit opcode outside this set, decodes as [ClassOther] rather than a
// gap, for the same reason as the MIPS decoder: there is no invalid bit
// pattern at this granularity worth flagging.
func decodeOneRISCV(d ArchDescriptor) decodeFunc {
	return func(code []byte, addr uint64) (Instruction, int, error) {
		if len(code) < 2 {
			return Instruction{}, 0, fmt.Errorf("truncated riscv instruction at %#x", addr)
		}
		lo := uint32(code[0]) | uint32(code[1])<<8

		if lo&0x3 != 0x3 {
			return decodeCompressedRISCV(lo, addr, d.Bitness == 64)
		}

		if len(code) < 4 {
			return Instruction{}, 0, fmt.Errorf("truncated riscv instruction at %#x", addr)
		}
		word := uint32(code[0]) | uint32(code[1])<<8 | uint32(code[2])<<16 | uint32(code[3])<<24
		opcode := word & 0x7f
		rd := (word >> 7) & 0x1f
		funct3 := (word >> 12) & 0x7
		rs1 := (word >> 15) & 0x1f

		out := Instruction{Address: addr, Size: 4, Class: ClassOther}

		switch opcode {
		case 0x6f: // JAL
			offset := jImm(word)
			out.Mnemonic = "jal"
			out.Target = Operand{Kind: OperandImmediate, Value: int64(addr) + int64(offset), Resolved: true}
			if rd == 1 {
				out.Class = ClassCallDirect
			} else {
				out.Class = ClassBranch
				out.TailCall = true
			}
			return out, 4, nil

		case 0x67: // JALR
			if funct3 != 0 {
				return out, 4, nil
			}
			imm := signExtend(word>>20, 12)
			out.Mnemonic = "jalr"
			if rd == 0 && rs1 == 1 && imm == 0 {
				out.Class = ClassReturn
			} else if rd == 1 {
				out.Class = ClassCallIndirect
			} else {
				out.Class = ClassBranch
				out.TailCall = true
			}
			return out, 4, nil

		case 0x13: // OP-IMM (ADDI among others)
			if funct3 == 0 && rd == 2 && rs1 == 2 {
				imm := signExtend(word>>20, 12)
				out.Mnemonic = "addi"
				out.Class = ClassStackAdjust
				out.StackDelta = -int64(imm)
			}
			return out, 4, nil
		}

		out.Mnemonic = fmt.Sprintf("op%#02x", opcode)
		return out, 4, nil
	}
}

func decodeCompressedRISCV(instr uint32, addr uint64, rv64 bool) (Instruction, int, error) {
	quadrant := instr & 0x3
	funct3 := (instr >> 13) & 0x7

	out := Instruction{Address: addr, Size: 2, Class: ClassOther}

	switch quadrant {
	case 0x1:
		switch funct3 {
		case 0x1: // C.JAL (RV32 only; RV64 uses this encoding for C.ADDIW)
			if rv64 {
				break
			}
			offset := cjImm(instr)
			out.Mnemonic = "c.jal"
			out.Class = ClassCallDirect
			out.Target = Operand{Kind: OperandImmediate, Value: int64(addr) + int64(offset), Resolved: true}
			return out, 2, nil

		case 0x5: // C.J
			offset := cjImm(instr)
			out.Mnemonic = "c.j"
			out.Class = ClassBranch
			out.TailCall = true
			out.Target = Operand{Kind: OperandImmediate, Value: int64(addr) + int64(offset), Resolved: true}
			return out, 2, nil

		case 0x3: // C.ADDI16SP / C.LUI
			rd := (instr >> 7) & 0x1f
			if rd == 2 {
				out.Mnemonic = "c.addi16sp"
				out.Class = ClassStackAdjust
				out.StackDelta = -int64(ci16Imm(instr))
			}
			return out, 2, nil
		}

	case 0x2:
		if funct3 == 0x4 {
			funct4 := (instr >> 12) & 0xf
			rs1 := (instr >> 7) & 0x1f
			rs2 := (instr >> 2) & 0x1f
			switch {
			case funct4 == 0x8 && rs2 == 0 && rs1 != 0: // C.JR
				out.Mnemonic = "c.jr"
				if rs1 == 1 {
					out.Class = ClassReturn
				} else {
					out.Class = ClassBranch
					out.TailCall = true
				}
				return out, 2, nil
			case funct4 == 0x9 && rs2 == 0 && rs1 != 0: // C.JALR
				out.Mnemonic = "c.jalr"
				out.Class = ClassCallIndirect
				return out, 2, nil
			}
		}
	}

	out.Mnemonic = fmt.Sprintf("c.op%#01x.%#01x", quadrant, funct3)
	return out, 2, nil
}

func signExtend(v uint32, bits int) int32 {
	shift := uint(32 - bits)
	return int32(v<<shift) >> shift
}

// jImm decodes the J-type immediate used by JAL: imm[20|10:1|11|19:12].
func jImm(word uint32) int32 {
	imm20 := (word >> 31) & 1
	imm19_12 := (word >> 12) & 0xff
	imm11 := (word >> 20) & 1
	imm10_1 := (word >> 21) & 0x3ff
	raw := (imm20 << 20) | (imm19_12 << 12) | (imm11 << 11) | (imm10_1 << 1)
	return signExtend(raw, 21)
}

// cjImm decodes the CJ-type immediate used by C.JAL/C.J: imm[11|4|9:8|10|6|7|3:1|5].
func cjImm(instr uint32) int32 {
	imm11 := (instr >> 12) & 1
	imm4 := (instr >> 11) & 1
	imm9_8 := (instr >> 9) & 0x3
	imm10 := (instr >> 8) & 1
	imm6 := (instr >> 7) & 1
	imm7 := (instr >> 6) & 1
	imm3_1 := (instr >> 3) & 0x7
	imm5 := (instr >> 2) & 1
	raw := (imm11 << 11) | (imm10 << 10) | (imm9_8 << 8) | (imm7 << 7) |
		(imm6 << 6) | (imm5 << 5) | (imm4 << 4) | (imm3_1 << 1)
	return signExtend(raw, 12)
}

// ci16Imm decodes the nzimm used by C.ADDI16SP: imm[9|4|6|8:7|5], scaled by 16.
func ci16Imm(instr uint32) int32 {
	imm9 := (instr >> 12) & 1
	imm4 := (instr >> 6) & 1
	imm6 := (instr >> 5) & 1
	imm8_7 := (instr >> 3) & 0x3
	imm5 := (instr >> 2) & 1
	raw := (imm9 << 9) | (imm8_7 << 7) | (imm6 << 6) | (imm5 << 5) | (imm4 << 4)
	return signExtend(raw, 10)
}
