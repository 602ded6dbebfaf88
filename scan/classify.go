package scan

import (
	"bytes"

	"github.com/kundazip/kunda"
)

// classifySampleSize is the number of leading bytes examined when deciding
// between text and binary content.
const classifySampleSize = 4096

// textThreshold is the minimum fraction of printable bytes in the sample
// for content to be considered text.
const textThreshold = 0.85

// preCompressedSignatures are leading-byte signatures of formats that are
// already compressed. Matching any of them classifies the file as
// pre-compressed.
var preCompressedSignatures = [][]byte{
	{0x1F, 0x8B},                                     // gzip
	{0x50, 0x4B, 0x03, 0x04},                         // zip
	{0x42, 0x5A, 0x68},                               // bzip2
	{0xFD, 0x37, 0x7A, 0x58, 0x5A, 0x00},             // xz
	{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, // PNG
}

// Classify determines the coarse content type of a buffer. It is a pure
// function of the buffer bytes; the result is advisory and has no effect
// on how the content is stored.
func Classify(data []byte) kunda.ContentType {
	if len(data) == 0 {
		return kunda.ContentEmpty
	}

	for _, sig := range preCompressedSignatures {
		if bytes.HasPrefix(data, sig) {
			return kunda.ContentPreCompressed
		}
	}
	// JPEG: FF D8 (SOI) or FF D9.
	if len(data) >= 2 && data[0] == 0xFF && (data[1] == 0xD8 || data[1] == 0xD9) {
		return kunda.ContentPreCompressed
	}

	sample := data
	if len(sample) > classifySampleSize {
		sample = sample[:classifySampleSize]
	}

	textChars := 0
	for _, c := range sample {
		if (c >= 32 && c <= 126) || c == '\t' || c == '\n' || c == '\r' {
			textChars++
		}
	}

	if float64(textChars)/float64(len(sample)) > textThreshold {
		return kunda.ContentText
	}
	return kunda.ContentBinary
}
