// Command hlslstore lowers a storage buffer layout document to HLSL that
// accesses every buffer through RWByteAddressBuffer loads and stores.
//
// Usage:
//
//	hlslstore [options] <layout.json>
//
// Examples:
//
//	hlslstore layout.json                 # Print HLSL to stdout
//	hlslstore -o copy.hlsl layout.json    # Write HLSL to a file
//	hlslstore -v layout.json              # Log every lowered access
//
// Use "-" to read the document from stdin.
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/gogpu/rawbuf"
)

var (
	output   = flag.String("o", "", "output file (default: stdout)")
	entry    = flag.String("entry", "", "entry point to compile (default: all)")
	validate = flag.Bool("validate", true, "validate IR")
	verbose  = flag.Bool("v", false, "log lowered storage accesses to stderr")
	version  = flag.Bool("version", false, "print version")
)

const hlslstoreVersion = "0.1.0-dev"

func main() {
	flag.Usage = usage
	flag.Parse()

	if *version {
		fmt.Printf("hlslstore version %s\n", hlslstoreVersion)
		return
	}

	args := flag.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Error: no input file specified")
		usage()
		os.Exit(1)
	}

	inputPath := args[0]
	source, err := readInput(inputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
		os.Exit(1)
	}

	doc, err := ParseDocument(source)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	module, err := doc.Module()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building module: %v\n", err)
		os.Exit(1)
	}

	opts := rawbuf.DefaultOptions()
	opts.Validate = *validate
	opts.HLSL.EntryPoint = *entry
	if *verbose {
		opts.HLSL.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	code, info, err := rawbuf.CompileWithOptions(module, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Compilation error: %v\n", err)
		os.Exit(1)
	}

	if *output != "" {
		err = os.WriteFile(*output, []byte(code), 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Successfully compiled %s to %s (%d storage accesses)\n", inputPath, *output, info.StorageAccesses)
		return
	}
	if _, err = io.WriteString(os.Stdout, code); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
		os.Exit(1)
	}
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: hlslstore [options] <layout.json>\n\n")
	fmt.Fprintf(os.Stderr, "Lowers storage buffer accesses to RWByteAddressBuffer HLSL.\n\n")
	fmt.Fprintf(os.Stderr, "Options:\n")
	flag.PrintDefaults()
}
