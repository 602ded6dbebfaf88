package container_test

import (
	"encoding/binary"
	"strings"
	"testing"

	"github.com/kundazip/kunda"
	"github.com/kundazip/kunda/container"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildArchive assembles an archive with its prefix table the way the
// production pipeline does.
func buildArchive(records []*kunda.FileRecord) *kunda.Archive {
	return &kunda.Archive{
		Files:    records,
		Prefixes: container.BuildPrefixTable(records),
	}
}

func TestCodecRoundTrip(t *testing.T) {
	tests := []struct {
		Name    string
		Records []*kunda.FileRecord
	}{
		{"empty archive", nil},
		{"single empty file", []*kunda.FileRecord{
			{Path: "empty.bin"},
		}},
		{"nested tree with prefixes", []*kunda.FileRecord{
			{Path: "docs/readme.txt", Content: []byte("readme")},
			{Path: "docs/guide.txt", Content: []byte("guide")},
			{Path: "docs/api/ref.txt", Content: []byte("ref")},
			{Path: "docs/api/notes.txt", Content: []byte("notes")},
			{Path: "docs/api/extra.txt", Content: []byte{0x00, 0xFF, 0x10}},
		}},
		{"paths below threshold stay literal", []*kunda.FileRecord{
			{Path: "a/one.txt", Content: []byte("1")},
			{Path: "b/two.txt", Content: []byte("2")},
			{Path: "top.txt", Content: []byte("3")},
		}},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			arc := buildArchive(test.Records)
			encoded, err := container.Encode(arc)
			require.NoError(t, err)

			decoded, err := container.Decode(encoded)
			require.NoError(t, err)

			require.Len(t, decoded.Files, len(test.Records))
			for i, original := range test.Records {
				assert.Equal(t, original.Path, decoded.Files[i].Path, "path %d", i)
				assert.Equal(
					t, len(original.Content), len(decoded.Files[i].Content),
					"content size %d", i)
				assert.Equal(
					t, original.Content, append([]byte(nil), decoded.Files[i].Content...),
					"content %d", i)
			}
			assert.Len(t, decoded.Prefixes, len(arc.Prefixes))
		})
	}
}

// TestEncode__ScenarioWireLayout checks the exact byte layout of the §2
// reference tree: docs/api/ gets index 0 (longer prefix first), docs/
// index 1, and each path references the most specific prefix.
func TestEncode__ScenarioWireLayout(t *testing.T) {
	arc := buildArchive([]*kunda.FileRecord{
		{Path: "docs/readme.txt", Content: []byte("r")},
		{Path: "docs/guide.txt", Content: []byte("g")},
		{Path: "docs/api/ref.txt", Content: []byte("1")},
		{Path: "docs/api/notes.txt", Content: []byte("2")},
		{Path: "docs/api/extra.txt", Content: []byte("3")},
	})
	encoded, err := container.Encode(arc)
	require.NoError(t, err)

	offset := 0
	readUint16 := func() int {
		value := binary.BigEndian.Uint16(encoded[offset:])
		offset += 2
		return int(value)
	}
	readUint32 := func() uint32 {
		value := binary.BigEndian.Uint32(encoded[offset:])
		offset += 4
		return value
	}
	readString := func() string {
		length := readUint16()
		raw := string(encoded[offset : offset+length])
		offset += length
		return raw
	}

	require.Equal(t, 2, readUint16(), "prefix count")
	assert.Equal(t, "docs/api/", readString(), "longest prefix must be index 0")
	assert.Equal(t, "docs/", readString())

	require.EqualValues(t, 5, readUint32(), "file count")

	expectedPaths := []string{
		"$1$readme.txt",
		"$1$guide.txt",
		"$0$ref.txt",
		"$0$notes.txt",
		"$0$extra.txt",
	}
	for _, expected := range expectedPaths {
		assert.Equal(t, expected, readString())
		contentLength := readUint32()
		offset += int(contentLength)
	}
	assert.Equal(t, len(encoded), offset, "no trailing bytes after the last entry")
}

func TestCodecRoundTrip__DuplicateEntry(t *testing.T) {
	// The producer never writes duplicate references, but the wire format
	// reserves them and both codec directions must stay symmetric.
	arc := &kunda.Archive{
		Files: []*kunda.FileRecord{
			{Path: "data/original.bin", Content: []byte("payload")},
			{Path: "data/copy.bin", DuplicateOf: "data/original.bin"},
		},
	}
	encoded, err := container.Encode(arc)
	require.NoError(t, err)

	decoded, err := container.Decode(encoded)
	require.NoError(t, err)
	require.Len(t, decoded.Files, 2)
	assert.Equal(t, "data/original.bin", decoded.Files[0].Path)
	assert.Empty(t, decoded.Files[0].DuplicateOf)
	assert.Equal(t, "data/copy.bin", decoded.Files[1].Path)
	assert.Equal(t, "data/original.bin", decoded.Files[1].DuplicateOf)
	assert.Empty(t, decoded.Files[1].Content, "duplicate entries carry no inline content")
}

func TestDecode__TruncationAlwaysErrors(t *testing.T) {
	arc := buildArchive([]*kunda.FileRecord{
		{Path: "docs/a.txt", Content: []byte("aaaa")},
		{Path: "docs/b.txt", Content: []byte("bbbb")},
		{Path: "docs/c.txt", Content: []byte("cccc")},
	})
	encoded, err := container.Encode(arc)
	require.NoError(t, err)

	for length := 0; length < len(encoded); length++ {
		_, err := container.Decode(encoded[:length])
		assert.ErrorIs(
			t, err, kunda.ErrTruncatedContainer,
			"truncation to %d bytes must be rejected", length)
	}
}

func TestDecode__DeclaredLengthBeyondBuffer(t *testing.T) {
	// Zero prefixes, one file whose declared path length runs far past
	// the end of the buffer.
	payload := []byte{
		0x00, 0x00, // prefix count
		0x00, 0x00, 0x00, 0x01, // file count
		0xFF, 0xFF, // path length 65535
		'a', 'b', 'c',
	}
	_, err := container.Decode(payload)
	assert.ErrorIs(t, err, kunda.ErrTruncatedContainer)
}

func TestDecode__PrefixReferenceOutOfRange(t *testing.T) {
	arc := &kunda.Archive{
		Files: []*kunda.FileRecord{{Path: "$5$x.txt", Content: []byte("x")}},
	}
	// Encoded literally (no prefixes to rewrite against), but on decode
	// the path matches the reference pattern and the table is empty.
	encoded, err := container.Encode(arc)
	require.NoError(t, err)

	_, err = container.Decode(encoded)
	assert.ErrorIs(t, err, kunda.ErrBadPrefixReference)
}

func TestDecode__NonReferencePathsStayLiteral(t *testing.T) {
	tests := []struct {
		Name string
		Path string
	}{
		{"no closing dollar", "$5x.txt"},
		{"non-digit index", "$x$file.txt"},
		{"lone dollar", "$"},
		{"signed index", "$+1$file.txt"},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			arc := &kunda.Archive{
				Files: []*kunda.FileRecord{{Path: test.Path, Content: []byte("x")}},
			}
			encoded, err := container.Encode(arc)
			require.NoError(t, err)

			decoded, err := container.Decode(encoded)
			require.NoError(t, err)
			assert.Equal(t, test.Path, decoded.Files[0].Path)
		})
	}
}

func TestEncode__LimitViolations(t *testing.T) {
	t.Run("path too long", func(t *testing.T) {
		arc := &kunda.Archive{
			Files: []*kunda.FileRecord{
				{Path: strings.Repeat("p", kunda.MaxPathLength+1), Content: []byte("x")},
			},
		}
		_, err := container.Encode(arc)
		assert.ErrorIs(t, err, kunda.ErrLimitExceeded)
	})

	t.Run("prefix table too large", func(t *testing.T) {
		prefixes := make([]kunda.PrefixEntry, kunda.MaxPrefixes+1)
		for i := range prefixes {
			prefixes[i] = kunda.PrefixEntry{Prefix: "p/", Count: 3}
		}
		arc := &kunda.Archive{Prefixes: prefixes}
		_, err := container.Encode(arc)
		assert.ErrorIs(t, err, kunda.ErrLimitExceeded)
	})

	t.Run("prefix too long", func(t *testing.T) {
		arc := &kunda.Archive{
			Prefixes: []kunda.PrefixEntry{
				{Prefix: strings.Repeat("q", kunda.MaxPathLength+1) + "/", Count: 3},
			},
		}
		_, err := container.Encode(arc)
		assert.ErrorIs(t, err, kunda.ErrLimitExceeded)
	})
}
