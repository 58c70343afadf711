package fileops

import (
	"fmt"
	"io/fs"
	"iter"
	"path/filepath"
	"sort"
	"strings"

	"github.com/deepnoodle-ai/memfs"
	"github.com/deepnoodle-ai/memfs/vpath"
	"github.com/gobwas/glob"
)

// Listing is the sorted, non-recursive content of one directory. Names are
// read when the listing is created; entry types are looked up as the listing
// is iterated.
type Listing struct {
	Path   vpath.VirtualPath
	ops    *Operations
	rel    string
	names  []string
	ignore []glob.Glob
}

func (o *Operations) list(resolved vpath.ResolvedPath) (*Listing, error) {
	dir, err := o.root.Open(resolved.Rel())
	if err != nil {
		return nil, err
	}
	defer dir.Close()
	names, err := dir.Readdirnames(-1)
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return &Listing{
		Path:   o.resolver.Virtual(resolved),
		ops:    o,
		rel:    resolved.Rel(),
		names:  names,
		ignore: o.ignore,
	}, nil
}

// All yields the visible entries in name order. Entries removed since the
// listing was read are skipped.
func (l *Listing) All() iter.Seq[memfs.Entry] {
	return func(yield func(memfs.Entry) bool) {
		for _, name := range l.names {
			if l.ignored(name) {
				continue
			}
			entryType, ok := l.entryType(name)
			if !ok {
				continue
			}
			if !yield(memfs.Entry{Name: name, Type: entryType}) {
				return
			}
		}
	}
}

// Entries materializes the listing.
func (l *Listing) Entries() []memfs.Entry {
	entries := []memfs.Entry{}
	for entry := range l.All() {
		entries = append(entries, entry)
	}
	return entries
}

func (l *Listing) String() string {
	var sb strings.Builder
	count := 0
	for entry := range l.All() {
		if count == 0 {
			fmt.Fprintf(&sb, "Here are the files and directories in %s:", l.Path)
		}
		sb.WriteString("\n- ")
		sb.WriteString(entry.String())
		count++
	}
	if count == 0 {
		return fmt.Sprintf("The directory %s is empty.", l.Path)
	}
	return sb.String()
}

func (l *Listing) ignored(name string) bool {
	for _, g := range l.ignore {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// entryType reports a symlink as the type of its target; links that cannot
// be followed inside the root are reported as files.
func (l *Listing) entryType(name string) (memfs.EntryType, bool) {
	rel := filepath.Join(l.rel, name)
	info, err := l.ops.root.Lstat(rel)
	if err != nil {
		return "", false
	}
	if info.Mode()&fs.ModeSymlink != 0 {
		target, err := l.ops.root.Stat(rel)
		if err != nil {
			return memfs.EntryTypeFile, true
		}
		info = target
	}
	if info.IsDir() {
		return memfs.EntryTypeDirectory, true
	}
	return memfs.EntryTypeFile, true
}
