package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/loqalabs/loqa-podcast/internal/script"
)

var version = "0.1.0-dev"

type options struct {
	file     string
	language string
	max      int
	limit    int
	clean    bool
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "expected 'split', 'validate' or 'version'")
		os.Exit(2)
	}

	switch os.Args[1] {
	case "split":
		opts := parseFlags("split", os.Args[2:])
		set, err := run(opts)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(set)
	case "validate":
		opts := parseFlags("validate", os.Args[2:])
		set, err := run(opts)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Printf("script valid: %d chunks, %d characters\n", set.Count, set.TotalChars)
	case "version":
		fmt.Println(version)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", os.Args[1])
		os.Exit(2)
	}
}

func parseFlags(name string, args []string) options {
	var opts options
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.StringVar(&opts.file, "file", "-", "Script file, - for stdin")
	fs.StringVar(&opts.language, "lang", "en", "Script language (en or hi)")
	fs.IntVar(&opts.max, "max", 500, "Maximum characters per chunk")
	fs.IntVar(&opts.limit, "limit", 500, "Backend hard limit per chunk")
	fs.BoolVar(&opts.clean, "clean", false, "Strip markdown before splitting")
	_ = fs.Parse(args)
	return opts
}

// run splits the script and validates the result against the backend limit.
func run(opts options) (script.ChunkSet, error) {
	lang, err := script.ParseLanguage(opts.language)
	if err != nil {
		return script.ChunkSet{}, err
	}
	text, err := readScript(opts.file)
	if err != nil {
		return script.ChunkSet{}, err
	}
	if opts.clean {
		text = script.Clean(text)
	}
	set, err := script.Split(text, opts.max, lang)
	if err != nil {
		return script.ChunkSet{}, err
	}
	if err := script.Validate(opts.limit, set); err != nil {
		var verr *script.ValidationError
		if errors.As(err, &verr) && verr.Index >= 0 {
			return set, fmt.Errorf("chunk %d: %w", verr.Index, err)
		}
		return set, err
	}
	return set, nil
}

func readScript(path string) (string, error) {
	if path == "-" || path == "" {
		data, err := io.ReadAll(os.Stdin)
		return string(data), err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read script: %w", err)
	}
	return string(data), nil
}
