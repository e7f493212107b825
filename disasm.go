package elfscope

import (
	"log/slog"
	"sync"
)

// decodeFunc decodes one instruction from the front of code, which begins
// at virtual address addr. It returns the decoded instruction and the
// number of bytes consumed. An error means no valid instruction starts at
// addr; the caller advances by the architecture's instruction alignment
// and retries.
type decodeFunc func(code []byte, addr uint64) (Instruction, int, error)

// Disassembler wraps a multi-architecture decoder. Decoding is lazy and
// cached per function; decode failures are recorded as [DecodeGap] entries
// and never abort analysis of the owning function.
type Disassembler struct {
	descriptor ArchDescriptor
	decodeOne  decodeFunc
	cache      sync.Map // uint64 (function address) -> *decodeCacheEntry
	logger     *slog.Logger
}

type decodeCacheEntry struct {
	once         sync.Once
	instructions []Instruction
	gaps         []DecodeGap
}

// NewDisassembler returns a [Disassembler] for arch. logger may be nil.
func NewDisassembler(arch Arch, logger *slog.Logger) (*Disassembler, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var fn decodeFunc
	switch arch {
	case ArchX86:
		fn = decodeOneX86(32)
	case ArchX86_64:
		fn = decodeOneX86(64)
	case ArchARM:
		fn = decodeOneARM
	case ArchARM64:
		fn = decodeOneARM64
	case ArchMIPS, ArchMIPS64:
		fn = decodeOneMIPS(descriptorFor(arch))
	case ArchPPC, ArchPPC64:
		fn = decodeOnePPC(descriptorFor(arch))
	case ArchRISCV, ArchRISCV64:
		fn = decodeOneRISCV(descriptorFor(arch))
	default:
		return nil, &UnsupportedArchError{Machine: 0}
	}

	return &Disassembler{
		descriptor: descriptorFor(arch),
		decodeOne:  fn,
		logger:     logger,
	}, nil
}

// Decode returns fn's decoded instruction stream and any decode gaps,
// computing and caching the result on first call. Concurrent callers for
// the same function observe a single computation and never a partially
// populated result.
func (d *Disassembler) Decode(fn *Function) ([]Instruction, []DecodeGap) {
	v, _ := d.cache.LoadOrStore(fn.Address, &decodeCacheEntry{})
	entry := v.(*decodeCacheEntry)
	entry.once.Do(func() {
		entry.instructions, entry.gaps = d.decodeBytes(fn.raw, fn.Address)
	})
	return entry.instructions, entry.gaps
}

// DecodeRange decodes an arbitrary byte range without going through the
// per-function cache; used for PLT stubs and ad hoc address ranges.
func (d *Disassembler) DecodeRange(code []byte, base uint64) ([]Instruction, []DecodeGap) {
	return d.decodeBytes(code, base)
}

func (d *Disassembler) decodeBytes(code []byte, base uint64) ([]Instruction, []DecodeGap) {
	var instructions []Instruction
	var gaps []DecodeGap

	offset := 0
	for offset < len(code) {
		addr := base + uint64(offset)
		inst, n, err := d.decodeOne(code[offset:], addr)
		if err != nil {
			step := d.descriptor.InstructionAlignment
			if step < 1 {
				step = 1
			}
			gaps = append(gaps, DecodeGap{Address: addr, Reason: err.Error()})
			offset += step
			continue
		}
		if n <= 0 {
			n = d.descriptor.InstructionAlignment
			if n < 1 {
				n = 1
			}
		}
		instructions = append(instructions, inst)
		offset += n
	}

	return instructions, gaps
}
