package main

import (
	"fmt"
	"log"
	"os"

	"github.com/gocarina/gocsv"
	"github.com/urfave/cli/v2"

	"github.com/kundazip/kunda"
	"github.com/kundazip/kunda/archive"
)

func main() {
	app := cli.App{
		Name:  "kunda",
		Usage: "Pack a file or directory tree into a single compressed container",
		Commands: []*cli.Command{
			{
				Name:      "create",
				Usage:     "Pack a file or directory into a container",
				Action:    createContainer,
				ArgsUsage: "SOURCE  [OUTPUT.kun]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "preset",
						Usage: "compression preset (ultra, ultra-<N>, max, balanced, fast)",
						Value: "ultra",
					},
					&cli.BoolFlag{
						Name:  "checksum",
						Usage: "attach an integrity digest to the container",
						Value: true,
					},
				},
			},
			{
				Name:      "extract",
				Usage:     "Unpack a container into a directory",
				Action:    extractContainer,
				ArgsUsage: "CONTAINER.kun  [OUTPUT_DIR]",
			},
			{
				Name:      "list",
				Usage:     "Show a container's entries without extracting",
				Action:    listContainer,
				ArgsUsage: "CONTAINER.kun",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "csv",
						Usage: "print entries as CSV",
					},
				},
			},
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatalf("fatal error: %s", err.Error())
	}
}

func createContainer(context *cli.Context) error {
	source := context.Args().Get(0)
	if source == "" {
		source = "."
	}
	output := context.Args().Get(1)
	if output == "" {
		output = "archive.kun"
	}
	preset := context.String("preset")

	fmt.Printf("Packing %s (preset: %s)...\n", source, preset)
	summary, err := archive.Create(source, output, preset, context.Bool("checksum"))
	if err != nil {
		return err
	}

	if summary.Skipped != nil {
		for _, skipErr := range summary.Skipped.Errors {
			fmt.Fprintf(os.Stderr, "  skipped: %s\n", skipErr)
		}
	}

	counts := summary.TypeCounts
	fmt.Printf("  Files: %d (%d text, %d binary, %d pre-compressed, %d empty)\n",
		summary.Files,
		counts[kunda.ContentText], counts[kunda.ContentBinary],
		counts[kunda.ContentPreCompressed], counts[kunda.ContentEmpty])
	fmt.Printf("  Prefix table: %d entries\n", summary.Prefixes)
	fmt.Printf("  Container: %s -> %s\n",
		formatSize(uint64(summary.OriginalSize)), formatSize(uint64(summary.CompressedSize)))
	if summary.OriginalSize > 0 {
		ratio := float64(summary.CompressedSize) / float64(summary.OriginalSize) * 100
		fmt.Printf("  Ratio: %.1f%%\n", ratio)
	}
	if summary.Digest != nil {
		fmt.Printf("  SHA-256: %x\n", summary.Digest)
	}
	fmt.Printf("Wrote %s\n", output)
	return nil
}

func extractContainer(context *cli.Context) error {
	input := context.Args().Get(0)
	if input == "" {
		input = "archive.kun"
	}
	outputDir := context.Args().Get(1)
	if outputDir == "" {
		outputDir = "extracted"
	}

	summary, err := archive.Extract(input, outputDir)
	if err != nil {
		return err
	}

	fmt.Printf("Extracted %d files (%s) to %s\n",
		summary.Files, formatSize(summary.ContentSize), outputDir)
	return nil
}

func listContainer(context *cli.Context) error {
	input := context.Args().Get(0)
	if input == "" {
		return fmt.Errorf("list needs a container path")
	}

	entries, header, err := archive.List(input)
	if err != nil {
		return err
	}

	if context.Bool("csv") {
		out, err := gocsv.MarshalString(&entries)
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	}

	fmt.Printf("%s, %s -> %s, %d entries\n",
		header.Method,
		formatSize(uint64(header.OriginalSize)),
		formatSize(uint64(header.CompressedSize)),
		len(entries))
	for _, entry := range entries {
		if entry.DuplicateOf != "" {
			fmt.Printf("  %-12s %10s  %s (duplicate of %s)\n",
				entry.Type, formatSize(uint64(entry.Size)), entry.Path, entry.DuplicateOf)
			continue
		}
		fmt.Printf("  %-12s %10s  %s\n", entry.Type, formatSize(uint64(entry.Size)), entry.Path)
	}
	return nil
}

func formatSize(size uint64) string {
	switch {
	case size >= 1<<20:
		return fmt.Sprintf("%.2f MB", float64(size)/(1<<20))
	case size >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(size)/(1<<10))
	}
	return fmt.Sprintf("%d B", size)
}
