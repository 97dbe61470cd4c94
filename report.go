package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/jedib0t/go-pretty/v6/table"
)

// Stats summarizes one compilation's optimizer passes, printed only in
// verbose mode (grounded on sarchlab-zeonica's PrintState, which gates
// its own table dump behind a PrintToggle constant).
type Stats struct {
	ChunkCount        int
	ChunksSynthesized int
	ChunksFused       int
	CacheHit          bool
}

// countSynthesized reports how many chunks in optimized differ from the
// parser's raw five-primitive-command form, i.e. how many the chunk
// optimizer actually rewrote.
func countSynthesized(raw, optimized []Chunk) int {
	n := 0
	for i := range optimized {
		if i >= len(raw) {
			break
		}
		if len(optimized[i].Commands) != len(raw[i].Commands) {
			n++
			continue
		}
		for j, cmd := range optimized[i].Commands {
			if cmd.Op != raw[i].Commands[j].Op {
				n++
				break
			}
		}
	}
	return n
}

// countFused reports how many chunks the program optimizer collapsed a
// chain into, by comparing each chunk's command count before and after.
func countFused(before, after []Chunk) int {
	n := 0
	for i := range after {
		if i >= len(before) {
			continue
		}
		if len(after[i].Commands) != len(before[i].Commands) {
			n++
		}
	}
	return n
}

// reportTOML is Stats reshaped with toml struct tags, for
// --dump-report=toml: the same BurntSushi/toml encoder xrfc.toml is
// decoded with, used here to encode instead.
type reportTOML struct {
	Chunks            int  `toml:"chunks"`
	ChunksSynthesized int  `toml:"chunks_synthesized"`
	ChunksFused       int  `toml:"chunks_fused"`
	CacheHit          bool `toml:"cache_hit"`
}

// DumpReportTOML renders s as a TOML document, for machine consumption
// by a build system driving xrfc, rather than the human-oriented table
// PrintStats writes to stderr.
func DumpReportTOML(s Stats) (string, error) {
	var out strings.Builder
	enc := toml.NewEncoder(&out)
	report := reportTOML{
		Chunks:            s.ChunkCount,
		ChunksSynthesized: s.ChunksSynthesized,
		ChunksFused:       s.ChunksFused,
		CacheHit:          s.CacheHit,
	}
	if err := enc.Encode(report); err != nil {
		return "", fmt.Errorf("xrfc: encode TOML report: %w", err)
	}
	return out.String(), nil
}

// PrintStats renders a single-table summary of a compilation's pipeline
// to stderr, following the teacher's VerboseMode convention for
// diagnostics that shouldn't appear in a normal, quiet build.
func PrintStats(s Stats) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stderr)
	t.SetTitle("xrfc compile summary")
	t.AppendHeader(table.Row{"metric", "value"})
	t.AppendRow(table.Row{"chunks", s.ChunkCount})
	t.AppendRow(table.Row{"chunks rewritten by chunk optimizer", s.ChunksSynthesized})
	t.AppendRow(table.Row{"chunks rewritten by program optimizer", s.ChunksFused})
	t.AppendRow(table.Row{"cache hit", s.CacheHit})
	fmt.Fprintln(os.Stderr, t.Render())
}
