package main

import "github.com/spf13/cobra"

var infoCmd = &cobra.Command{
	Use:   "info <elf-path>",
	Short: "Print architecture, sections, and symbol counts for an ELF file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := buildPipeline(args[0])
		if err != nil {
			return err
		}

		type sectionInfo struct {
			Name       string `json:"name"`
			Addr       string `json:"addr"`
			Size       uint64 `json:"size"`
			Executable bool   `json:"executable"`
		}
		sections := make([]sectionInfo, 0, len(p.info.Sections))
		for _, s := range p.info.Sections {
			sections = append(sections, sectionInfo{Name: s.Name, Addr: "0x" + uintToHexCLI(s.Addr), Size: s.Size, Executable: s.Executable})
		}

		out := struct {
			Path        string        `json:"path"`
			Architecture string       `json:"architecture"`
			Bitness      int          `json:"bitness"`
			Endian       string       `json:"endian"`
			EntryPoint   string       `json:"entry_point"`
			Functions    int          `json:"functions"`
			Imports      int          `json:"imports"`
			Sections     []sectionInfo `json:"sections"`
		}{
			Path:         p.info.Path,
			Architecture: string(p.info.Arch),
			Bitness:      p.info.Bitness,
			Endian:       string(p.info.Endian),
			EntryPoint:   "0x" + uintToHexCLI(p.info.EntryPoint),
			Functions:    len(p.info.Functions),
			Imports:      len(p.info.Imports),
			Sections:     sections,
		}

		return writeResult(out)
	},
}

func uintToHexCLI(v uint64) string {
	if v == 0 {
		return "0"
	}
	const digits = "0123456789abcdef"
	var buf [16]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = digits[v&0xf]
		v >>= 4
	}
	return string(buf[i:])
}
