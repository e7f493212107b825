package elfscope

import (
	"debug/elf"
	"fmt"
	"log/slog"
	"os"
	"sort"
)

// SymbolKind classifies a [Function] node's origin.
type SymbolKind int

const (
	// SymbolInternal is a function defined (and disassemblable) in this binary.
	SymbolInternal SymbolKind = iota
	// SymbolImported is an undefined symbol resolved at load time, reached
	// only through a PLT stub or a direct dynamic relocation.
	SymbolImported
	// SymbolSynthetic is a graph-only node with no backing symbol, such as
	// [UnresolvedFunction] or an "@external:<hex>" placeholder.
	SymbolSynthetic
)

func (k SymbolKind) String() string {
	switch k {
	case SymbolInternal:
		return "internal"
	case SymbolImported:
		return "imported"
	case SymbolSynthetic:
		return "synthetic"
	default:
		return "unknown"
	}
}

// Function is a node identity in the call graph: internal functions are
// identified by virtual address, imports and synthetic nodes by name. Two
// symbols aliasing the same address collapse into one Function whose
// Aliases field records the alternates.
type Function struct {
	Name          string
	DemangledName string
	Address       uint64
	Size          uint64
	Kind          SymbolKind
	Section       string
	Aliases       []string

	raw []byte // cached raw instruction bytes; nil for non-internal functions
}

// Bytes returns the function's raw machine code, or nil if unavailable
// (imported or synthetic functions have none).
func (f *Function) Bytes() []byte { return f.raw }

// DisplayName returns the demangled name if one was recovered, else the
// raw symbol name.
func (f *Function) DisplayName() string {
	if f.DemangledName != "" {
		return f.DemangledName
	}
	return f.Name
}

// Section describes one ELF section relevant to analysis.
type Section struct {
	Name       string
	Addr       uint64
	Offset     uint64
	Size       uint64
	Executable bool

	data []byte
}

// ElfInfo is the Loader's output: architecture, sections, function table
// and import table for one ELF file.
type ElfInfo struct {
	Path       string
	Arch       Arch
	Bitness    int
	Endian     Endianness
	EntryPoint uint64
	FileType   elf.Type

	Sections []Section
	// Functions holds internal functions sorted by address.
	Functions []*Function
	// Imports holds imported (undefined) function symbols, sorted by name.
	Imports []*Function

	byAddr      map[uint64]*Function
	byName      map[string]*Function
	pltToImport map[uint64]string

	logger *slog.Logger
}

// FunctionByAddress returns the internal function whose [start, start+size)
// range contains addr, or nil. A branch landing inside a function's body —
// a loop back-edge, a shared epilogue, a switch-table jump — resolves to
// that function rather than a synthetic external node.
func (ei *ElfInfo) FunctionByAddress(addr uint64) *Function {
	if fn, ok := ei.byAddr[addr]; ok {
		return fn
	}
	fns := ei.Functions
	i := sort.Search(len(fns), func(i int) bool { return fns[i].Address > addr })
	if i == 0 {
		return nil
	}
	fn := fns[i-1]
	if fn.Size == 0 || addr >= fn.Address+fn.Size {
		return nil
	}
	return fn
}

// FunctionByName returns the function (internal or imported) with the
// given raw symbol name, or nil.
func (ei *ElfInfo) FunctionByName(name string) *Function {
	return ei.byName[name]
}

// ResolvePLTStub returns the imported symbol name a PLT stub at addr
// trampolines to, and whether one was found.
func (ei *ElfInfo) ResolvePLTStub(addr uint64) (string, bool) {
	name, ok := ei.pltToImport[addr]
	return name, ok
}

// Load opens and parses the ELF file at path using [DefaultConfig]. logger
// may be nil, in which case [slog.Default] is used.
func Load(path string, logger *slog.Logger) (*ElfInfo, error) {
	return LoadWithConfig(path, DefaultConfig(), logger)
}

// LoadWithConfig is [Load] with an explicit [Config], honoring
// config.Demangle.
func LoadWithConfig(path string, config Config, logger *slog.Logger) (*ElfInfo, error) {
	if logger == nil {
		logger = slog.Default()
	}

	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("elfscope: open %s: %w", path, err)
	}
	defer fh.Close()

	stat, err := fh.Stat()
	if err != nil {
		return nil, fmt.Errorf("elfscope: stat %s: %w", path, err)
	}

	f, err := elf.NewFile(fh)
	if err != nil {
		return nil, &NotAnElfError{Path: path, Reason: err.Error()}
	}
	defer f.Close()

	arch, ok := archForMachine(f.Machine, f.Class, f.Data)
	if !ok {
		return nil, &UnsupportedArchError{Path: path, Machine: uint16(f.Machine)}
	}
	descriptor := descriptorFor(arch)

	endian := LittleEndian
	if f.Data == elf.ELFDATA2MSB {
		endian = BigEndian
	}

	ei := &ElfInfo{
		Path:        path,
		Arch:        arch,
		Bitness:     descriptor.Bitness,
		Endian:      endian,
		EntryPoint:  f.Entry,
		FileType:    f.Type,
		byAddr:      make(map[uint64]*Function),
		byName:      make(map[string]*Function),
		pltToImport: make(map[uint64]string),
		logger:      logger,
	}

	if err := ei.loadSections(f, uint64(stat.Size())); err != nil {
		return nil, err
	}
	if err := ei.loadFunctions(f, config.Demangle); err != nil {
		return nil, err
	}
	ei.loadPLT(f)

	logger.Debug("elf loaded",
		"path", path, "arch", arch, "functions", len(ei.Functions),
		"imports", len(ei.Imports), "sections", len(ei.Sections))

	return ei, nil
}

func (ei *ElfInfo) loadSections(f *elf.File, fileSize uint64) error {
	for _, s := range f.Sections {
		if s.Type != elf.SHT_NOBITS {
			// FileSize is the on-disk size; for compressed sections Size
			// is the decompressed size and may exceed the file.
			if s.Offset > fileSize || s.Offset+s.FileSize > fileSize {
				return &TruncatedFileError{
					Path:   ei.Path,
					Reason: fmt.Sprintf("section %q [0x%x, 0x%x) exceeds file size 0x%x", s.Name, s.Offset, s.Offset+s.FileSize, fileSize),
				}
			}
		}

		sec := Section{
			Name:       s.Name,
			Addr:       s.Addr,
			Offset:     s.Offset,
			Size:       s.Size,
			Executable: s.Flags&elf.SHF_EXECINSTR != 0 && s.Size > 0,
		}
		if sec.Executable {
			data, err := s.Data()
			if err != nil {
				return &TruncatedFileError{Path: ei.Path, Reason: fmt.Sprintf("reading section %q: %v", s.Name, err)}
			}
			sec.data = data
		}
		ei.Sections = append(ei.Sections, sec)
	}
	return nil
}

func (ei *ElfInfo) sectionContaining(addr uint64) *Section {
	for i := range ei.Sections {
		s := &ei.Sections[i]
		if s.Executable && s.Addr <= addr && addr < s.Addr+s.Size {
			return s
		}
	}
	return nil
}

func (ei *ElfInfo) loadFunctions(f *elf.File, demangleNames bool) error {
	var all []elf.Symbol

	if syms, err := f.Symbols(); err == nil {
		all = append(all, syms...)
	}
	if dynsyms, err := f.DynamicSymbols(); err == nil {
		all = append(all, dynsyms...)
	}

	// Group function-type symbols by address so aliases collapse into one
	// Function node; track zero-size symbols separately for extent inference.
	byAddr := make(map[uint64][]elf.Symbol)
	var zeroSized []elf.Symbol
	var imported []elf.Symbol

	for _, sym := range all {
		if elf.ST_TYPE(sym.Info) != elf.STT_FUNC {
			continue
		}
		if sym.Name == "" {
			continue
		}
		if sym.Section == elf.SHN_UNDEF {
			imported = append(imported, sym)
			continue
		}
		if sym.Value == 0 {
			continue
		}
		if sym.Size > 0 {
			byAddr[sym.Value] = append(byAddr[sym.Value], sym)
		} else {
			zeroSized = append(zeroSized, sym)
		}
	}

	// Zero-size symbols landing inside an executable section get an
	// inferred extent (up to the next known symbol or section end).
	var addrs []uint64
	for a := range byAddr {
		addrs = append(addrs, a)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })

	for _, sym := range zeroSized {
		sec := ei.sectionContaining(sym.Value)
		if sec == nil {
			continue
		}
		end := sec.Addr + sec.Size
		for _, a := range addrs {
			if a > sym.Value && a < end {
				end = a
				break
			}
		}
		synth := elf.Symbol{Name: sym.Name, Value: sym.Value, Size: end - sym.Value, Info: sym.Info, Section: sym.Section}
		byAddr[sym.Value] = append(byAddr[sym.Value], synth)
		addrs = append(addrs, sym.Value)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })

	for _, addr := range dedupUint64(addrs) {
		group := byAddr[addr]
		primary := group[0]
		for _, s := range group {
			if s.Size > primary.Size {
				primary = s
			}
		}

		sec := ei.sectionContaining(addr)
		fn := &Function{
			Name:    primary.Name,
			Address: addr,
			Size:    primary.Size,
			Kind:    SymbolInternal,
		}
		if sec != nil {
			fn.Section = sec.Name
			off := addr - sec.Addr
			end := off + fn.Size
			if end > uint64(len(sec.data)) {
				end = uint64(len(sec.data))
			}
			if off < end {
				fn.raw = sec.data[off:end]
			}
		}
		for _, s := range group {
			if s.Name != primary.Name {
				fn.Aliases = append(fn.Aliases, s.Name)
			}
		}
		sort.Strings(fn.Aliases)

		if ei.byName[fn.Name] == nil {
			ei.byName[fn.Name] = fn
		}
		for _, alias := range fn.Aliases {
			if ei.byName[alias] == nil {
				ei.byName[alias] = fn
			}
		}
		ei.byAddr[addr] = fn
		ei.Functions = append(ei.Functions, fn)
	}

	sort.Slice(ei.Functions, func(i, j int) bool { return ei.Functions[i].Address < ei.Functions[j].Address })

	seenImport := make(map[string]bool)
	for _, sym := range imported {
		if seenImport[sym.Name] {
			continue
		}
		seenImport[sym.Name] = true
		fn := &Function{Name: sym.Name, Kind: SymbolImported}
		ei.Imports = append(ei.Imports, fn)
		if ei.byName[fn.Name] == nil {
			ei.byName[fn.Name] = fn
		}
	}
	sort.Slice(ei.Imports, func(i, j int) bool { return ei.Imports[i].Name < ei.Imports[j].Name })

	if demangleNames {
		for _, fn := range ei.Functions {
			fn.DemangledName = demangle(fn.Name)
		}
		for _, fn := range ei.Imports {
			fn.DemangledName = demangle(fn.Name)
		}
	}

	return nil
}

func dedupUint64(in []uint64) []uint64 {
	out := in[:0]
	var last uint64
	first := true
	for _, v := range in {
		if first || v != last {
			out = append(out, v)
			last = v
			first = false
		}
	}
	return out
}

// loadPLT builds the plt_stub_address -> imported_name table by matching
// .rela.plt/.rel.plt relocation entries, in file order, against successive
// PLT stub slots. This follows the conventional ELF PLT layout (a fixed
// header slot followed by one fixed-size stub per relocation) and does not
// special-case non-standard layouts such as .plt.sec with IBT/CET.
func (ei *ElfInfo) loadPLT(f *elf.File) {
	pltSec := f.Section(".plt")
	if pltSec == nil {
		return
	}

	relaSec := f.Section(".rela.plt")
	relName := ".rela.plt"
	isRela := true
	if relaSec == nil {
		relaSec = f.Section(".rel.plt")
		relName = ".rel.plt"
		isRela = false
	}
	if relaSec == nil {
		return
	}

	data, err := relaSec.Data()
	if err != nil {
		ei.logger.Debug("plt relocation read failed", "section", relName, "error", err)
		return
	}

	dynSyms, err := f.DynamicSymbols()
	if err != nil {
		return
	}

	is64 := ei.Bitness == 64
	var entrySize int
	switch {
	case isRela && is64:
		entrySize = 24
	case isRela && !is64:
		entrySize = 12
	case !isRela && is64:
		entrySize = 16
	default:
		entrySize = 8
	}
	if entrySize == 0 || len(data)%entrySize != 0 {
		return
	}

	pltEntrySize := uint64(16)
	pltHeaderSize := uint64(16)
	if ei.Arch == ArchARM64 {
		pltEntrySize = 16
		pltHeaderSize = 32
	}

	n := len(data) / entrySize
	for i := 0; i < n; i++ {
		entry := data[i*entrySize : (i+1)*entrySize]
		var symIdx uint32
		if is64 {
			info := f.ByteOrder.Uint64(entry[8:16])
			symIdx = uint32(info >> 32)
		} else {
			info := f.ByteOrder.Uint32(entry[4:8])
			symIdx = info >> 8
		}
		if symIdx == 0 || int(symIdx) > len(dynSyms) {
			continue
		}
		name := dynSyms[symIdx-1].Name
		if name == "" {
			continue
		}
		stubAddr := pltSec.Addr + pltHeaderSize + uint64(i)*pltEntrySize
		ei.pltToImport[stubAddr] = name
	}
}
