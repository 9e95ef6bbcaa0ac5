package main

import (
	"fmt"
	"os"

	"github.com/KarpelesLab/b2extract"
)

const usage = `b2extract - b2index/b2container archive extractor

Usage:
  b2extract extract <index_file> <output_dir> [flags]   Extract an archive to output_dir
  b2extract info <index_file>                            Show header and entry counts
  b2extract browse <index_file> <mount_point>            Mount a read-only view (requires the fuse build tag)
  b2extract help                                         Show this help message

Flags for extract:
  -header-path=true|false      Enable header-based path recovery (default true)
  -content-path=true|false     Enable content-scan path recovery fallback (default true)
  -only-assets                 Only extract recoverable asset extensions and their bulk siblings
  -skip-existing                Skip entries whose basename already exists in output_dir
  -skip-wem                    Skip files under Wwise audio folders (also skips localization)
  -skip-bink                   Skip Bink video files (.bik, .bk2)
  -skip-res-ace                Skip .res and .ace files
  -skip-config                 Skip files that would route to Configs/
  -dry-run                     Report routing decisions without writing any files

Examples:
  b2extract info game.b2index
  b2extract extract game.b2index ./out -only-assets -skip-existing
`

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	cmd := os.Args[1]

	switch cmd {
	case "extract":
		if len(os.Args) < 4 {
			fmt.Println("Error: Missing index file or output directory")
			fmt.Println(usage)
			os.Exit(1)
		}
		if err := runExtract(os.Args[2], os.Args[3], os.Args[4:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			os.Exit(1)
		}

	case "info":
		if len(os.Args) < 3 {
			fmt.Println("Error: Missing index file path")
			fmt.Println(usage)
			os.Exit(1)
		}
		if err := showInfo(os.Args[2]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			os.Exit(1)
		}

	case "browse":
		if len(os.Args) < 4 {
			fmt.Println("Error: Missing index file or mount point")
			fmt.Println(usage)
			os.Exit(1)
		}
		if err := runBrowse(os.Args[2], os.Args[3]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			os.Exit(1)
		}

	case "help":
		fmt.Println(usage)

	default:
		fmt.Printf("Error: Unknown command '%s'\n", cmd)
		fmt.Println(usage)
		os.Exit(1)
	}
}

// parseExtractFlags does its own minimal switch-based parsing over plain os.Args rather than
// pulling in a flag-parsing dependency for this small a surface.
func parseExtractFlags(args []string) []b2extract.Option {
	opts := []b2extract.Option{
		b2extract.WithHeaderPathRecovery(true),
		b2extract.WithContentPathRecovery(true),
	}

	for _, a := range args {
		switch a {
		case "-header-path=true":
			opts = append(opts, b2extract.WithHeaderPathRecovery(true))
		case "-content-path=true":
			opts = append(opts, b2extract.WithContentPathRecovery(true))
		case "-header-path=false":
			opts = append(opts, b2extract.WithHeaderPathRecovery(false))
		case "-content-path=false":
			opts = append(opts, b2extract.WithContentPathRecovery(false))
		case "-only-assets":
			opts = append(opts, b2extract.WithOnlyAssets(true))
		case "-skip-existing":
			opts = append(opts, b2extract.WithSkipExistingFiles(true))
		case "-skip-wem":
			opts = append(opts, b2extract.WithSkipWemFiles(true))
		case "-skip-bink":
			opts = append(opts, b2extract.WithSkipBinkFiles(true))
		case "-skip-res-ace":
			opts = append(opts, b2extract.WithSkipResAndAce(true))
		case "-skip-config":
			opts = append(opts, b2extract.WithSkipConfigFiles(true))
		case "-dry-run":
			opts = append(opts, b2extract.WithDryRun(true))
		default:
			fmt.Fprintf(os.Stderr, "Warning: unrecognized flag %q ignored\n", a)
		}
	}

	return opts
}

func runExtract(indexPath, outputDir string, flagArgs []string) error {
	cfg, err := b2extract.NewConfig(outputDir, parseExtractFlags(flagArgs)...)
	if err != nil {
		return fmt.Errorf("failed to build config: %w", err)
	}

	logFn := func(level b2extract.LogLevel, message string) {
		fmt.Println(message)
	}

	driver := b2extract.NewDriver(cfg, logFn, nil)
	if err := driver.Run(indexPath); err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}
	return nil
}

func showInfo(indexPath string) error {
	idx, err := b2extract.OpenIndex(indexPath)
	if err != nil {
		return fmt.Errorf("failed to open index file: %w", err)
	}
	defer idx.Close()

	records, err := idx.WalkNames()
	if err != nil {
		return fmt.Errorf("failed to walk name table: %w", err)
	}

	var files, dirs int
	for _, r := range records {
		if r.IsDirectory() {
			dirs++
		} else {
			files++
		}
	}

	fmt.Println("b2index Archive Information")
	fmt.Println("============================")
	fmt.Printf("Path:             %s\n", indexPath)
	fmt.Printf("Container dir:    %s\n", idx.Dir())
	fmt.Printf("Entry table @:    %d (hint count %d)\n", idx.EntryTableOffset, idx.EntryCountHint)
	fmt.Printf("Names table @:    %d (hint count %d)\n", idx.NamesSectionOffset, idx.NameCountHint)
	fmt.Printf("Names recovered:  %d\n", len(records))
	fmt.Printf("Files:            %d\n", files)
	fmt.Printf("Directories:      %d\n", dirs)

	return nil
}
