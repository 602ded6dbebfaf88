// Package container implements the serialized payload of a .kun container:
// a prefix table followed by the file entries. Encode and Decode are exact
// mirrors of each other; the byte layout is a compatibility contract and
// must not change.
package container

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/kundazip/kunda"
	"github.com/noxer/bytewriter"
)

// Encode serializes an archive into a single payload buffer:
//
//	u16 prefix count, then per prefix: u16 length + prefix bytes
//	u32 file count
//	per file: u16 length + (possibly rewritten) path bytes, then either
//	  u32 0xFFFFFFFF + u16 length + duplicate-target path bytes, or
//	  u32 content length + content bytes
//
// All integers are big-endian. File paths are rewritten against the
// archive's prefix table with a greedy longest-prefix match; duplicate
// target paths are stored literally. Exceeding any wire-format limit is an
// error, never a silent truncation.
func Encode(archive *kunda.Archive) ([]byte, error) {
	if len(archive.Prefixes) > kunda.MaxPrefixes {
		return nil, kunda.ErrLimitExceeded.WithMessage(
			fmt.Sprintf("%d prefixes exceeds the table limit of %d",
				len(archive.Prefixes), kunda.MaxPrefixes))
	}
	if uint64(len(archive.Files)) > kunda.MaxFileCount {
		return nil, kunda.ErrLimitExceeded.WithMessage(
			fmt.Sprintf("%d files exceeds the format limit", len(archive.Files)))
	}

	size := 2
	for _, entry := range archive.Prefixes {
		if len(entry.Prefix) > kunda.MaxPathLength {
			return nil, kunda.ErrLimitExceeded.WithMessage("prefix too long: " + entry.Prefix)
		}
		size += 2 + len(entry.Prefix)
	}
	size += 4

	encodedPaths := make([]string, len(archive.Files))
	for i, file := range archive.Files {
		encoded := encodePath(file.Path, archive.Prefixes)
		if len(encoded) > kunda.MaxPathLength {
			return nil, kunda.ErrLimitExceeded.WithMessage("path too long: " + file.Path)
		}
		encodedPaths[i] = encoded

		size += 2 + len(encoded)
		if file.DuplicateOf != "" {
			if len(file.DuplicateOf) > kunda.MaxPathLength {
				return nil, kunda.ErrLimitExceeded.WithMessage(
					"duplicate target path too long: " + file.DuplicateOf)
			}
			size += 4 + 2 + len(file.DuplicateOf)
		} else {
			if uint64(len(file.Content)) > kunda.MaxContentLength {
				return nil, kunda.ErrLimitExceeded.WithMessage("file too large: " + file.Path)
			}
			size += 4 + len(file.Content)
		}
	}
	if uint64(size) > kunda.MaxPayloadSize {
		return nil, kunda.ErrLimitExceeded.WithMessage("serialized container exceeds 4 GiB")
	}

	buffer := make([]byte, size)
	writer := bytewriter.New(buffer)

	putUint16(writer, uint16(len(archive.Prefixes)))
	for _, entry := range archive.Prefixes {
		putUint16(writer, uint16(len(entry.Prefix)))
		writer.Write([]byte(entry.Prefix))
	}

	putUint32(writer, uint32(len(archive.Files)))
	for i, file := range archive.Files {
		putUint16(writer, uint16(len(encodedPaths[i])))
		writer.Write([]byte(encodedPaths[i]))

		if file.DuplicateOf != "" {
			putUint32(writer, kunda.DuplicateSentinel)
			putUint16(writer, uint16(len(file.DuplicateOf)))
			writer.Write([]byte(file.DuplicateOf))
		} else {
			putUint32(writer, uint32(len(file.Content)))
			writer.Write(file.Content)
		}
	}

	return buffer, nil
}

func putUint16(w io.Writer, value uint16) {
	var scratch [2]byte
	binary.BigEndian.PutUint16(scratch[:], value)
	w.Write(scratch[:])
}

func putUint32(w io.Writer, value uint32) {
	var scratch [4]byte
	binary.BigEndian.PutUint32(scratch[:], value)
	w.Write(scratch[:])
}

// Decode parses a serialized payload back into an archive. Every declared
// length is checked against the remaining buffer before use, so truncated
// or corrupt payloads yield ErrTruncatedContainer instead of reads out of
// bounds or unbounded allocations. Encoded paths are expanded against the
// decoded prefix table; a reference outside the table is an error.
//
// Content slices alias the input buffer; the caller keeps ownership of it.
func Decode(data []byte) (*kunda.Archive, error) {
	reader := payloadReader{data: data}

	prefixCount, err := reader.uint16("prefix count")
	if err != nil {
		return nil, err
	}
	prefixes := make([]kunda.PrefixEntry, prefixCount)
	prefixStrings := make([]string, prefixCount)
	for i := range prefixes {
		length, err := reader.uint16("prefix length")
		if err != nil {
			return nil, err
		}
		raw, err := reader.bytes(int(length), "prefix")
		if err != nil {
			return nil, err
		}
		prefixStrings[i] = string(raw)
		prefixes[i] = kunda.PrefixEntry{Prefix: prefixStrings[i]}
	}

	fileCount, err := reader.uint32("file count")
	if err != nil {
		return nil, err
	}

	archive := &kunda.Archive{Prefixes: prefixes}
	for i := uint32(0); i < fileCount; i++ {
		rawPath, err := reader.lengthPrefixedString("path")
		if err != nil {
			return nil, err
		}
		path, err := expandPath(rawPath, prefixStrings)
		if err != nil {
			return nil, err
		}

		contentLength, err := reader.uint32("content length")
		if err != nil {
			return nil, err
		}

		record := &kunda.FileRecord{Path: path}
		if contentLength == kunda.DuplicateSentinel {
			target, err := reader.lengthPrefixedString("duplicate target")
			if err != nil {
				return nil, err
			}
			record.DuplicateOf = target
		} else {
			content, err := reader.bytes(int(contentLength), "file content")
			if err != nil {
				return nil, err
			}
			record.Content = content
		}
		archive.Files = append(archive.Files, record)
	}

	return archive, nil
}

// payloadReader is a cursor over the payload buffer. All reads bounds-check
// before advancing.
type payloadReader struct {
	data   []byte
	offset int
}

func (r *payloadReader) need(n int, what string) error {
	if n < 0 || len(r.data)-r.offset < n {
		return kunda.ErrTruncatedContainer.WithMessage(
			fmt.Sprintf("%s at offset %d needs %d bytes, %d remain",
				what, r.offset, n, len(r.data)-r.offset))
	}
	return nil
}

func (r *payloadReader) uint16(what string) (uint16, error) {
	if err := r.need(2, what); err != nil {
		return 0, err
	}
	value := binary.BigEndian.Uint16(r.data[r.offset:])
	r.offset += 2
	return value, nil
}

func (r *payloadReader) uint32(what string) (uint32, error) {
	if err := r.need(4, what); err != nil {
		return 0, err
	}
	value := binary.BigEndian.Uint32(r.data[r.offset:])
	r.offset += 4
	return value, nil
}

func (r *payloadReader) bytes(n int, what string) ([]byte, error) {
	if err := r.need(n, what); err != nil {
		return nil, err
	}
	raw := r.data[r.offset : r.offset+n : r.offset+n]
	r.offset += n
	return raw, nil
}

func (r *payloadReader) lengthPrefixedString(what string) (string, error) {
	length, err := r.uint16(what + " length")
	if err != nil {
		return "", err
	}
	raw, err := r.bytes(int(length), what)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
