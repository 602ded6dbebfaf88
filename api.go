package kunda

// Package-level constants defining the container wire format. These values
// are format invariants shared with every other implementation of the .kun
// container family; changing any of them breaks compatibility.

// Magic is the 8-byte tag at the start of every container file.
const Magic = "KUNDA\x00\x00\x00"

// Version is the container format version this implementation reads and
// writes.
const Version = 2

// HeaderSize is the size of the fixed container header in bytes, not
// counting the optional digest.
const HeaderSize = 19

// DigestSize is the size of the integrity digest stored in the header when
// FlagDigest is set.
const DigestSize = 32

// DuplicateSentinel is the reserved content-length value marking a file
// entry as a duplicate reference rather than inline content.
const DuplicateSentinel uint32 = 0xFFFFFFFF

// CompressionMethod identifies the algorithm used to compress the container
// payload. Method ids are stored in the header (1 byte) and are protocol
// constants.
type CompressionMethod byte

const (
	MethodZlib      CompressionMethod = 0
	MethodBzip2     CompressionMethod = 1
	MethodLZMA      CompressionMethod = 2
	MethodLZMAUltra CompressionMethod = 3
)

// String returns the human-readable name of a compression method.
func (m CompressionMethod) String() string {
	switch m {
	case MethodZlib:
		return "zlib"
	case MethodBzip2:
		return "bzip2"
	case MethodLZMA:
		return "lzma"
	case MethodLZMAUltra:
		return "lzma-ultra"
	}
	return "unknown"
}

// Header flag bits.
const (
	// FlagEncrypted is reserved by the format and never set by this
	// implementation.
	FlagEncrypted byte = 1 << 0
	// FlagDigest indicates a digest immediately follows the fixed header.
	FlagDigest byte = 1 << 1
	// FlagPathCompressed indicates the payload begins with a prefix table.
	// Always set by the writer.
	FlagPathCompressed byte = 1 << 2
)

// Hard format limits, enforced at encode time.
const (
	// MaxPrefixes is the maximum number of entries in the prefix table.
	MaxPrefixes = 1000
	// MaxPathLength bounds path and prefix strings, which are stored with
	// 16-bit length fields.
	MaxPathLength = 0xFFFF
	// MaxFileCount bounds the number of entries in one container.
	MaxFileCount = 0xFFFFFFFF
	// MaxContentLength bounds a single file's content. Values at or above
	// DuplicateSentinel are unrepresentable.
	MaxContentLength = 0xFFFFFFFF - 1
	// MaxPayloadSize bounds the serialized (and compressed) payload, which
	// is recorded in 32-bit header fields.
	MaxPayloadSize = 0xFFFFFFFF
)

// ContentType is a coarse classification of a file's content. It is
// advisory, used for reporting only; it never changes how a file is stored.
type ContentType byte

const (
	ContentEmpty ContentType = iota
	ContentText
	ContentBinary
	ContentPreCompressed
)

func (t ContentType) String() string {
	switch t {
	case ContentEmpty:
		return "empty"
	case ContentText:
		return "text"
	case ContentBinary:
		return "binary"
	case ContentPreCompressed:
		return "pre-compressed"
	}
	return "unknown"
}

// FileRecord is one file captured during collection. Records are immutable
// once created and owned by the Archive until serialized.
type FileRecord struct {
	// Path is the slash-separated path relative to the archive root.
	Path string
	// Content is the file's full content.
	Content []byte
	// Type is the advisory content classification.
	Type ContentType
	// DuplicateOf, when non-empty, names the path of another record this
	// entry duplicates. The collector never populates it; the codec
	// round-trips it for compatibility with writers that do.
	DuplicateOf string
}

// Size returns the content length in bytes.
func (r *FileRecord) Size() int {
	return len(r.Content)
}

// PrefixEntry is one hoisted directory prefix and its usage count across
// the archive's paths. The prefix always ends in a path separator.
type PrefixEntry struct {
	Prefix string
	Count  int
}

// Archive is the in-memory form of a container: files in discovery order
// and prefixes in selection order. Both orders are significant; file order
// determines extraction order and prefix order determines reference
// indices.
type Archive struct {
	Files    []*FileRecord
	Prefixes []PrefixEntry
}

// TotalContentSize returns the summed content length of all inline records.
func (a *Archive) TotalContentSize() uint64 {
	var total uint64
	for _, f := range a.Files {
		if f.DuplicateOf == "" {
			total += uint64(len(f.Content))
		}
	}
	return total
}

// TypeCounts tallies records by content classification.
func (a *Archive) TypeCounts() map[ContentType]int {
	counts := make(map[ContentType]int)
	for _, f := range a.Files {
		counts[f.Type]++
	}
	return counts
}
