// Package archive assembles and parses whole container files: the fixed
// header, the optional integrity digest, and the compressed payload
// around the serialized container body.
package archive

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/kundazip/kunda"
	"github.com/xaionaro-go/bytesextra"
)

// Header is the fixed on-disk container header.
//
//	offset  size  field
//	0       8     magic tag
//	8       1     format version
//	9       1     compression method id
//	10      1     flag bitmask
//	11      4     original (pre-compression) payload size, big-endian
//	15      4     compressed payload size, big-endian
//	19      0/32  digest, present iff FlagDigest is set
type Header struct {
	Method         kunda.CompressionMethod
	Flags          byte
	OriginalSize   uint32
	CompressedSize uint32
	// Digest is the SHA-256 of the compressed payload, or nil when the
	// digest flag is unset.
	Digest []byte
}

// HasDigest reports whether the digest flag is set.
func (h *Header) HasDigest() bool {
	return h.Flags&kunda.FlagDigest != 0
}

// writeContainer emits a complete container file: header, optional digest,
// compressed payload.
func writeContainer(w io.Writer, header *Header, payload []byte) error {
	fixed := make([]byte, kunda.HeaderSize)
	copy(fixed, kunda.Magic)
	fixed[8] = kunda.Version
	fixed[9] = byte(header.Method)
	fixed[10] = header.Flags
	binary.BigEndian.PutUint32(fixed[11:], header.OriginalSize)
	binary.BigEndian.PutUint32(fixed[15:], header.CompressedSize)

	if _, err := w.Write(fixed); err != nil {
		return err
	}
	if header.HasDigest() {
		if _, err := w.Write(header.Digest); err != nil {
			return err
		}
	}
	_, err := w.Write(payload)
	return err
}

// readContainer parses a container file held in memory and returns the
// header together with the compressed payload slice. The magic tag is
// validated before anything else, and every size field is checked against
// the actual byte count before it is trusted, so corrupt headers cannot
// trigger out-of-bounds reads or unbounded allocations.
func readContainer(data []byte) (*Header, []byte, error) {
	reader := bytesextra.NewReadWriteSeeker(data)

	var magic [8]byte
	if _, err := io.ReadFull(reader, magic[:]); err != nil {
		return nil, nil, kunda.ErrNotAContainer.WithMessage("file is shorter than the magic tag")
	}
	if string(magic[:]) != kunda.Magic {
		return nil, nil, kunda.ErrNotAContainer.WithMessage("bad magic tag")
	}

	var fixed struct {
		Version        byte
		Method         byte
		Flags          byte
		OriginalSize   uint32
		CompressedSize uint32
	}
	if err := binary.Read(reader, binary.BigEndian, &fixed); err != nil {
		return nil, nil, kunda.ErrTruncatedContainer.WithMessage("incomplete header")
	}
	if fixed.Version != kunda.Version {
		return nil, nil, kunda.ErrUnsupportedVersion.WithMessage(
			fmt.Sprintf("version %d, this implementation reads version %d",
				fixed.Version, kunda.Version))
	}

	header := &Header{
		Method:         kunda.CompressionMethod(fixed.Method),
		Flags:          fixed.Flags,
		OriginalSize:   fixed.OriginalSize,
		CompressedSize: fixed.CompressedSize,
	}

	payloadStart := kunda.HeaderSize
	if header.HasDigest() {
		digest := make([]byte, kunda.DigestSize)
		if _, err := io.ReadFull(reader, digest); err != nil {
			return nil, nil, kunda.ErrTruncatedContainer.WithMessage("incomplete digest")
		}
		header.Digest = digest
		payloadStart += kunda.DigestSize
	}

	if uint64(len(data)-payloadStart) < uint64(header.CompressedSize) {
		return nil, nil, kunda.ErrTruncatedContainer.WithMessage(
			"compressed payload is shorter than the header declares")
	}
	payload := data[payloadStart : payloadStart+int(header.CompressedSize)]
	return header, payload, nil
}

// verifyDigest recomputes the payload digest and compares it against the
// stored one.
func verifyDigest(header *Header, payload []byte) error {
	computed := sha256.Sum256(payload)
	if subtle.ConstantTimeCompare(computed[:], header.Digest) != 1 {
		return kunda.ErrDigestMismatch.WithMessage("container may be corrupted")
	}
	return nil
}
