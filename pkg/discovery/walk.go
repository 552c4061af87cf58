package discovery

import (
	"io/fs"
	"iter"
	"path"
)

// Entry is one node produced by Walk.
type Entry struct {
	// Path is slash-separated and relative to the walked file system
	Path string

	// Err is set when the node could not be read. Such entries are skipped
	// directories: nothing below them is visited.
	Err error
}

// Skipped reports whether the entry stands for an unreadable node
func (e Entry) Skipped() bool {
	return e.Err != nil
}

// Walk lazily visits every non-directory entry below dir in lexical order.
//
// Directories that cannot be read are yielded as skipped entries instead of
// aborting the walk. Directories whose base name satisfies prune are not
// entered and not reported.
func Walk(fsys fs.FS, dir string, prune func(name string) bool) iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		walkDir(fsys, dir, prune, yield)
	}
}

func walkDir(fsys fs.FS, dir string, prune func(string) bool, yield func(Entry) bool) bool {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return yield(Entry{Path: dir, Err: err})
	}

	for _, e := range entries {
		p := path.Join(dir, e.Name())
		if e.IsDir() {
			if prune != nil && prune(e.Name()) {
				continue
			}
			if !walkDir(fsys, p, prune, yield) {
				return false
			}
			continue
		}
		if !yield(Entry{Path: p}) {
			return false
		}
	}
	return true
}
