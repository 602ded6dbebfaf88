// Package scan collects the files going into an archive. Collection is a
// pure read of the filesystem: it returns owned records and never keeps
// package-level state between calls.
package scan

import (
	"os"
	"path/filepath"
	"syscall"

	"github.com/hashicorp/go-multierror"
	"github.com/kundazip/kunda"
)

// MaxDepth bounds directory recursion. Trees nested deeper than this are
// reported as a traversal error for the offending subtree and otherwise
// skipped.
const MaxDepth = 64

// dirIdentity identifies a directory across links so that symlink cycles
// are detected instead of recursed into forever.
type dirIdentity struct {
	dev uint64
	ino uint64
}

// Collect gathers the records for an archive rooted at input, which may be
// a regular file or a directory. For a directory the records are the
// regular files found by depth-first traversal, in discovery order, with
// slash-separated paths relative to the root. For a regular file the
// result is a single record whose path is the file's base name.
//
// Unreadable files and subdirectories are skipped, not fatal; the returned
// multierror lists every skipped entry and is nil when nothing was
// skipped. Only a failure to stat the input itself is fatal.
func Collect(input string) ([]*kunda.FileRecord, *multierror.Error, error) {
	info, err := os.Stat(input)
	if err != nil {
		return nil, nil, kunda.ErrInputNotFound.Wrap(err)
	}

	if info.Mode().IsRegular() {
		record, err := CollectFile(input)
		if err != nil {
			return nil, nil, err
		}
		return []*kunda.FileRecord{record}, nil, nil
	}

	if info.IsDir() {
		return CollectTree(input)
	}

	return nil, nil, kunda.ErrNotFileOrDirectory.WithMessage(input)
}

// CollectFile reads a single regular file into a record. The record's path
// is the file's base name, with no directory component.
func CollectFile(path string) (*kunda.FileRecord, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, kunda.ErrInputNotFound.Wrap(err)
	}
	return &kunda.FileRecord{
		Path:    filepath.Base(path),
		Content: content,
		Type:    Classify(content),
	}, nil
}

// CollectTree walks the directory tree rooted at root and returns a record
// for every readable regular file, in discovery order.
func CollectTree(root string) ([]*kunda.FileRecord, *multierror.Error, error) {
	rootInfo, err := os.Stat(root)
	if err != nil {
		return nil, nil, kunda.ErrInputNotFound.Wrap(err)
	}
	if !rootInfo.IsDir() {
		return nil, nil, kunda.ErrNotFileOrDirectory.WithMessage(root)
	}

	walker := treeWalker{
		root:    root,
		visited: make(map[dirIdentity]bool),
	}
	if id, ok := identityOf(rootInfo); ok {
		walker.visited[id] = true
	}
	walker.walk(root, 0)
	return walker.records, walker.skipped, nil
}

type treeWalker struct {
	root    string
	records []*kunda.FileRecord
	skipped *multierror.Error
	visited map[dirIdentity]bool
}

func (w *treeWalker) skip(err error) {
	w.skipped = multierror.Append(w.skipped, err)
}

func (w *treeWalker) walk(dir string, depth int) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		w.skip(kunda.ErrInputNotFound.Wrap(err))
		return
	}

	for _, entry := range entries {
		fullPath := filepath.Join(dir, entry.Name())

		// Stat, not Lstat: symlinked files and directories are followed,
		// with the visited set guarding against cycles.
		info, err := os.Stat(fullPath)
		if err != nil {
			w.skip(kunda.ErrInputNotFound.Wrap(err))
			continue
		}

		switch {
		case info.IsDir():
			if depth+1 >= MaxDepth {
				w.skip(kunda.ErrTraversalDepth.WithMessage(fullPath))
				continue
			}
			if id, ok := identityOf(info); ok {
				if w.visited[id] {
					w.skip(kunda.ErrTraversalCycle.WithMessage(fullPath))
					continue
				}
				w.visited[id] = true
			}
			w.walk(fullPath, depth+1)
		case info.Mode().IsRegular():
			content, err := os.ReadFile(fullPath)
			if err != nil {
				w.skip(kunda.ErrInputNotFound.Wrap(err))
				continue
			}
			relPath, err := filepath.Rel(w.root, fullPath)
			if err != nil {
				w.skip(kunda.ErrInputNotFound.Wrap(err))
				continue
			}
			w.records = append(w.records, &kunda.FileRecord{
				Path:    filepath.ToSlash(relPath),
				Content: content,
				Type:    Classify(content),
			})
		default:
			// Sockets, pipes and devices don't belong in an archive.
			continue
		}
	}
}

// identityOf extracts a device+inode identity from a FileInfo. The second
// return is false on platforms where the identity isn't available, in
// which case cycle detection is disabled for that directory.
func identityOf(info os.FileInfo) (dirIdentity, bool) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return dirIdentity{}, false
	}
	return dirIdentity{dev: uint64(stat.Dev), ino: uint64(stat.Ino)}, true
}
