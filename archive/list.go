package archive

import (
	"github.com/kundazip/kunda/scan"
)

// EntryInfo describes one container entry for listings. The csv tags feed
// the CLI's CSV output.
type EntryInfo struct {
	Path        string `csv:"path"`
	Size        int    `csv:"size"`
	Type        string `csv:"type"`
	DuplicateOf string `csv:"duplicate_of"`
}

// List reports the contents of a container without writing any files. The
// whole payload is decompressed to do this; the format has no random
// access. Content types are reclassified from the decoded bytes since the
// container does not store them.
func List(input string) ([]EntryInfo, *Header, error) {
	arc, header, err := loadArchive(input)
	if err != nil {
		return nil, nil, err
	}

	entries := make([]EntryInfo, len(arc.Files))
	for i, record := range arc.Files {
		entries[i] = EntryInfo{
			Path:        record.Path,
			Size:        len(record.Content),
			Type:        scan.Classify(record.Content).String(),
			DuplicateOf: record.DuplicateOf,
		}
	}
	return entries, header, nil
}
