package scan_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kundazip/kunda"
	"github.com/kundazip/kunda/scan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for path, content := range files {
		fullPath := filepath.Join(root, filepath.FromSlash(path))
		require.NoError(t, os.MkdirAll(filepath.Dir(fullPath), 0755))
		require.NoError(t, os.WriteFile(fullPath, []byte(content), 0644))
	}
}

func TestCollect__DirectoryTree(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"top.txt":           "top",
		"docs/readme.txt":   "readme",
		"docs/api/ref.txt":  "ref",
		"docs/api/zzz.bin":  "\x00\x01\x02",
		"docs/empty.txt":    "",
		"project/main.conf": "key = value",
	})

	records, skipped, err := scan.Collect(root)
	require.NoError(t, err)
	assert.Nil(t, skipped, "nothing should have been skipped")

	// Depth-first traversal with lexical sibling order.
	var paths []string
	byPath := make(map[string]*kunda.FileRecord)
	for _, record := range records {
		paths = append(paths, record.Path)
		byPath[record.Path] = record
	}
	assert.Equal(
		t,
		[]string{
			"docs/api/ref.txt",
			"docs/api/zzz.bin",
			"docs/empty.txt",
			"docs/readme.txt",
			"project/main.conf",
			"top.txt",
		},
		paths,
	)

	assert.Equal(t, []byte("readme"), byPath["docs/readme.txt"].Content)
	assert.Equal(t, kunda.ContentText, byPath["docs/readme.txt"].Type)
	assert.Equal(t, kunda.ContentBinary, byPath["docs/api/zzz.bin"].Type)
	assert.Equal(t, kunda.ContentEmpty, byPath["docs/empty.txt"].Type)
	assert.Empty(t, byPath["docs/api/ref.txt"].DuplicateOf, "collector never marks duplicates")
}

func TestCollect__SingleFileUsesBaseName(t *testing.T) {
	root := t.TempDir()
	filePath := filepath.Join(root, "lonely.dat")
	require.NoError(t, os.WriteFile(filePath, []byte("data"), 0644))

	records, skipped, err := scan.Collect(filePath)
	require.NoError(t, err)
	assert.Nil(t, skipped)
	require.Len(t, records, 1)
	assert.Equal(t, "lonely.dat", records[0].Path, "single files keep only their base name")
	assert.Equal(t, []byte("data"), records[0].Content)
}

func TestCollect__MissingRootIsFatal(t *testing.T) {
	_, _, err := scan.Collect(filepath.Join(t.TempDir(), "does-not-exist"))
	assert.ErrorIs(t, err, kunda.ErrInputNotFound)
}

func TestCollect__EmptyDirectory(t *testing.T) {
	records, skipped, err := scan.Collect(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, skipped)
	assert.Empty(t, records)
}

func TestCollectTree__SymlinkCycleIsSkippedNotFatal(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"inner/file.txt": "content",
	})
	// inner/loop -> root creates a cycle through the tree's own root.
	require.NoError(t, os.Symlink(root, filepath.Join(root, "inner", "loop")))

	records, skipped, err := scan.CollectTree(root)
	require.NoError(t, err, "a cycle must not abort the scan")

	require.Len(t, records, 1, "each real file is collected exactly once")
	assert.Equal(t, "inner/file.txt", records[0].Path)

	require.NotNil(t, skipped)
	assert.ErrorIs(t, skipped.ErrorOrNil(), kunda.ErrTraversalCycle)
}

func TestCollectTree__DepthLimit(t *testing.T) {
	root := t.TempDir()
	deep := root
	for i := 0; i < scan.MaxDepth+2; i++ {
		deep = filepath.Join(deep, "d")
	}
	require.NoError(t, os.MkdirAll(deep, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(deep, "buried.txt"), []byte("x"), 0644))

	records, skipped, err := scan.CollectTree(root)
	require.NoError(t, err, "excessive depth must not abort the scan")
	assert.Empty(t, records, "files beyond the depth limit are not collected")
	require.NotNil(t, skipped)
	assert.ErrorIs(t, skipped.ErrorOrNil(), kunda.ErrTraversalDepth)
}
