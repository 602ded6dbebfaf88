package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kundazip/kunda"
	"github.com/kundazip/kunda/compression"
	"github.com/kundazip/kunda/container"
)

// Extract unpacks the container at input into outputDir, creating the
// directory (and every intermediate directory an entry path needs) if
// absent. Files are written in container order. When the header carries a
// digest it is verified before decompression.
func Extract(input, outputDir string) (*Summary, error) {
	arc, header, err := loadArchive(input)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	// Duplicate entries reference an earlier entry's content by path.
	// The producer never writes them, but any conforming reader must
	// tolerate them; unresolvable targets materialize as empty files.
	contents := make(map[string][]byte, len(arc.Files))

	for _, record := range arc.Files {
		destPath, err := secureJoin(outputDir, record.Path)
		if err != nil {
			return nil, err
		}

		content := record.Content
		if record.DuplicateOf != "" {
			content = contents[record.DuplicateOf]
		}
		contents[record.Path] = content

		if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
			return nil, fmt.Errorf("create directories for %s: %w", record.Path, err)
		}
		if err := os.WriteFile(destPath, content, 0644); err != nil {
			return nil, fmt.Errorf("write %s: %w", record.Path, err)
		}
	}

	return &Summary{
		Files:          len(arc.Files),
		Prefixes:       len(arc.Prefixes),
		ContentSize:    arc.TotalContentSize(),
		OriginalSize:   header.OriginalSize,
		CompressedSize: header.CompressedSize,
		Digest:         header.Digest,
	}, nil
}

// loadArchive reads a container file, verifies its digest when present,
// decompresses the payload and decodes it into an in-memory archive.
func loadArchive(input string) (*kunda.Archive, *Header, error) {
	data, err := os.ReadFile(input)
	if err != nil {
		return nil, nil, kunda.ErrInputNotFound.Wrap(err)
	}

	header, payload, err := readContainer(data)
	if err != nil {
		return nil, nil, err
	}
	if header.HasDigest() {
		if err := verifyDigest(header, payload); err != nil {
			return nil, nil, err
		}
	}

	serialized, err := compression.Decompress(payload, header.Method, header.OriginalSize)
	if err != nil {
		return nil, nil, err
	}

	arc, err := container.Decode(serialized)
	if err != nil {
		return nil, nil, err
	}
	return arc, header, nil
}

// secureJoin resolves an entry path under root and rejects paths that
// would escape it.
func secureJoin(root, entryPath string) (string, error) {
	joined := filepath.Join(root, filepath.FromSlash(entryPath))

	rel, err := filepath.Rel(root, joined)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", kunda.ErrUnsafePath.WithMessage(entryPath)
	}
	return joined, nil
}
