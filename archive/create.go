package archive

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"github.com/kundazip/kunda"
	"github.com/kundazip/kunda/compression"
	"github.com/kundazip/kunda/container"
	"github.com/kundazip/kunda/scan"
)

// Summary reports what an operation did, for CLI-level printing. The
// library itself never prints.
type Summary struct {
	// Files is the number of entries in the container.
	Files int
	// TypeCounts tallies entries by content classification.
	TypeCounts map[kunda.ContentType]int
	// Prefixes is the size of the hoisted prefix table.
	Prefixes int
	// ContentSize is the summed size of all file contents.
	ContentSize uint64
	// OriginalSize is the serialized pre-compression payload size.
	OriginalSize uint32
	// CompressedSize is the compressed payload size.
	CompressedSize uint32
	// Digest is the stored integrity digest, nil when absent.
	Digest []byte
	// Skipped lists entries dropped during collection, nil when none.
	Skipped *multierror.Error
}

// Create packs the file or directory tree at input into a container file
// at output. The preset selects compression tuning; withDigest attaches a
// SHA-256 of the compressed payload to the header. Collection, prefix
// analysis, encoding, compression and writing run as strictly sequential
// phases over in-memory buffers.
func Create(input, output, preset string, withDigest bool) (*Summary, error) {
	records, skipped, err := scan.Collect(input)
	if err != nil {
		return nil, err
	}

	arc := &kunda.Archive{
		Files:    records,
		Prefixes: container.BuildPrefixTable(records),
	}

	payload, err := container.Encode(arc)
	if err != nil {
		return nil, err
	}
	if uint64(len(payload)) > kunda.MaxPayloadSize {
		return nil, kunda.ErrLimitExceeded.WithMessage("serialized container exceeds 4 GiB")
	}

	compressed, err := compression.Compress(payload, compression.ParsePreset(preset))
	if err != nil {
		return nil, err
	}
	if uint64(len(compressed)) > kunda.MaxPayloadSize {
		return nil, kunda.ErrLimitExceeded.WithMessage("compressed payload exceeds 4 GiB")
	}

	header := &Header{
		Method:         kunda.MethodLZMAUltra,
		Flags:          kunda.FlagPathCompressed,
		OriginalSize:   uint32(len(payload)),
		CompressedSize: uint32(len(compressed)),
	}
	if withDigest {
		digest := sha256.Sum256(compressed)
		header.Flags |= kunda.FlagDigest
		header.Digest = digest[:]
	}

	if dir := filepath.Dir(output); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create output directory: %w", err)
		}
	}
	outFile, err := os.Create(output)
	if err != nil {
		return nil, fmt.Errorf("create output: %w", err)
	}
	defer outFile.Close()

	if err := writeContainer(outFile, header, compressed); err != nil {
		return nil, fmt.Errorf("write container: %w", err)
	}
	if err := outFile.Close(); err != nil {
		return nil, fmt.Errorf("close output: %w", err)
	}

	return &Summary{
		Files:          len(arc.Files),
		TypeCounts:     arc.TypeCounts(),
		Prefixes:       len(arc.Prefixes),
		ContentSize:    arc.TotalContentSize(),
		OriginalSize:   header.OriginalSize,
		CompressedSize: header.CompressedSize,
		Digest:         header.Digest,
		Skipped:        skipped,
	}, nil
}
