// Package compression adapts the container pipeline to the external
// compressors. The writer side always produces LZMA (method 3 in the
// header); the reader side dispatches on the header's method id so that
// containers from any writer in the format family stay readable.
package compression

import (
	"bytes"
	"compress/bzip2"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/kundazip/kunda"
	"github.com/ulikunitz/xz"
	"github.com/ulikunitz/xz/lzma"
)

// Default literal-context / literal-position / position-bits parameters,
// tuned for text-heavy payloads.
var defaultProperties = lzma.Properties{LC: 3, LP: 0, PB: 2}

// xzMagic is the leading signature of an xz stream, used to tell stream
// framing from one-shot raw LZMA on decode.
var xzMagic = []byte{0xFD, '7', 'z', 'X', 'Z', 0x00}

// Compress encodes data with the given tuning and returns the complete
// compressed buffer. On any encoder failure nothing is returned; there are
// no partial results.
func Compress(data []byte, params Params) ([]byte, error) {
	var buffer bytes.Buffer

	var writer io.WriteCloser
	var err error
	if params.StreamFraming {
		config := xz.WriterConfig{
			DictCap:    params.DictCap,
			Properties: &defaultProperties,
			Matcher:    matcherFor(params.Effort),
			CheckSum:   xz.CRC64,
		}
		writer, err = config.NewWriter(&buffer)
	} else {
		config := lzma.WriterConfig{
			DictCap:    params.DictCap,
			Properties: &defaultProperties,
			Matcher:    matcherFor(params.Effort),
			EOSMarker:  true,
		}
		writer, err = config.NewWriter(&buffer)
	}
	if err != nil {
		return nil, kunda.ErrCompressionFailed.Wrap(err)
	}

	if _, err := writer.Write(data); err != nil {
		return nil, kunda.ErrCompressionFailed.Wrap(err)
	}
	if err := writer.Close(); err != nil {
		return nil, kunda.ErrCompressionFailed.Wrap(err)
	}
	return buffer.Bytes(), nil
}

// matcherFor maps an effort level to a match finder. Maximum and medium
// effort use the binary-tree finder (best matches, slowest); low effort
// uses the hash-chain finder.
func matcherFor(effort Effort) lzma.MatchAlgorithm {
	if effort == EffortLow {
		return lzma.HashTable4
	}
	return lzma.BinaryTree
}

// Decompress restores a compressed payload. originalSize is the exact
// pre-compression byte count declared in the container header; producing
// any other number of bytes is an error. The method id selects the
// decoder; both LZMA methods sniff the payload for xz stream framing, so
// the caller never needs to know which framing the writer chose.
func Decompress(data []byte, method kunda.CompressionMethod, originalSize uint32) ([]byte, error) {
	reader, err := methodReader(data, method)
	if err != nil {
		return nil, err
	}

	output := make([]byte, originalSize)
	if _, err := io.ReadFull(reader, output); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, kunda.ErrSizeMismatch.WithMessage("payload is shorter than declared")
		}
		return nil, kunda.ErrDecompressionFailed.Wrap(err)
	}

	var extra [1]byte
	if n, _ := reader.Read(extra[:]); n != 0 {
		return nil, kunda.ErrSizeMismatch.WithMessage("payload is longer than declared")
	}
	return output, nil
}

func methodReader(data []byte, method kunda.CompressionMethod) (io.Reader, error) {
	source := bytes.NewReader(data)

	switch method {
	case kunda.MethodZlib:
		reader, err := zlib.NewReader(source)
		if err != nil {
			return nil, kunda.ErrDecompressionFailed.Wrap(err)
		}
		return reader, nil
	case kunda.MethodBzip2:
		return bzip2.NewReader(source), nil
	case kunda.MethodLZMA, kunda.MethodLZMAUltra:
		if bytes.HasPrefix(data, xzMagic) {
			reader, err := xz.NewReader(source)
			if err != nil {
				return nil, kunda.ErrDecompressionFailed.Wrap(err)
			}
			return reader, nil
		}
		reader, err := lzma.NewReader(source)
		if err != nil {
			return nil, kunda.ErrDecompressionFailed.Wrap(err)
		}
		return reader, nil
	}
	return nil, kunda.ErrUnsupportedMethod.WithMessage(method.String())
}
