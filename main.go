package main

import (
	"bytes"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

const versionString = "xrfc 0.1.0"

// VerboseMode gates trace diagnostics the same way the teacher's
// optimizer.go and emit.go gate theirs: a package-level bool checked at
// each would-be Fprintf site, flipped once by main() from the -v flag.
var VerboseMode bool

func main() {
	var (
		output         = flag.String("o", "", "output LLIR file (default out.ll)")
		outputLong     = flag.String("output", "", "output LLIR file (default out.ll)")
		optLevel       = flag.Int("O", -1, "optimization level: 0 (parse only), 1 (chunk optimizer), 2 (+ program optimizer)")
		verbose        = flag.Bool("v", false, "print verbose optimizer diagnostics to stderr")
		verboseLong    = flag.Bool("verbose", false, "print verbose optimizer diagnostics to stderr")
		dumpChunks     = flag.Bool("dump-chunks", false, "print the chunk list in assembly-like notation to stdout")
		dumpChunksOnly = flag.Bool("dump-chunks-only", false, "like --dump-chunks, but skip writing the LLIR module")
		dumpReport     = flag.String("dump-report", "", "write a machine-readable optimizer report (supported format: toml)")
		showVersion    = flag.Bool("version", false, "print version and exit")
		noCache        = flag.Bool("no-cache", false, "disable the incremental compile cache")
	)
	flag.Parse()

	if *showVersion {
		fmt.Println(versionString)
		return
	}

	VerboseMode = *verbose || *verboseLong

	args := flag.Args()
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: xrfc [flags] <input.xrf>")
		flag.PrintDefaults()
		os.Exit(1)
	}
	inputPath := args[0]

	cfg, err := FindConfig(filepath.Dir(inputPath))
	if err != nil {
		log.Fatalln(err)
	}

	outputPath := *output
	if outputPath == "" {
		outputPath = *outputLong
	}
	if outputPath == "" {
		outputPath = cfg.Build.Output
	}
	if outputPath == "" {
		outputPath = "out.ll"
	}

	level := *optLevel
	if level < 0 {
		level = cfg.Build.OptLevel
	}

	fmt.Fprintf(os.Stderr, "----=[ %s ]=----\n", versionString)

	source, err := os.ReadFile(inputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot read %s: %v\n", inputPath, err)
		os.Exit(1)
	}

	stats := Stats{}
	cacheDir := cfg.Build.CacheDir
	if *noCache {
		cacheDir = ""
	}

	chunks, cached := loadCache(cacheDir, source, level)
	stats.CacheHit = cached

	if !cached {
		var errs []ParseError
		chunks, errs = Parse(bytes.NewReader(source))
		if len(errs) > 0 {
			for _, e := range errs {
				fmt.Fprintln(os.Stderr, e.Error())
			}
			os.Exit(2)
		}

		raw := chunks
		if level >= 1 {
			chunks = OptimizeChunks(chunks)
		}
		stats.ChunksSynthesized = countSynthesized(raw, chunks)

		beforeFusion := chunks
		if level >= 2 {
			chunks = OptimizeProgram(chunks)
		}
		stats.ChunksFused = countFused(beforeFusion, chunks)

		if err := storeCache(cacheDir, source, level, chunks); err != nil && VerboseMode {
			fmt.Fprintf(os.Stderr, "warning: could not write compile cache: %v\n", err)
		}
	}
	stats.ChunkCount = len(chunks)

	if *dumpChunks || *dumpChunksOnly || cfg.Build.DumpChunks {
		fmt.Print(DumpChunks(chunks))
	}

	if VerboseMode {
		PrintStats(stats)
	}

	if *dumpReport != "" {
		if *dumpReport != "toml" {
			fmt.Fprintf(os.Stderr, "unsupported --dump-report format %q (supported: toml)\n", *dumpReport)
			os.Exit(1)
		}
		report, err := DumpReportTOML(stats)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Print(report)
	}

	if *dumpChunksOnly {
		return
	}

	module := GenerateLLIR(chunks)
	if err := os.WriteFile(outputPath, []byte(module), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "cannot write %s: %v\n", outputPath, err)
		os.Exit(3)
	}

	fmt.Fprintf(os.Stderr, "-> wrote %s\n", outputPath)
}
