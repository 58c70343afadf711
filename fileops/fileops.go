// Package fileops implements the six memory operations against the real
// filesystem beneath a sandbox root.
//
// Every method takes virtual paths and resolves them itself, so no operation
// can run on an unvalidated path. All I/O goes through an os.Root handle
// opened on the canonical root, which refuses to follow symlinks out of the
// sandbox even if one appears between resolution and use.
//
// Mutations read the whole file, compute the new content in memory and
// replace the file through a temp file and rename. Concurrent writers to the
// same file are last-writer-wins.
package fileops

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/deepnoodle-ai/memfs"
	"github.com/deepnoodle-ai/memfs/vpath"
	"github.com/gobwas/glob"
	"github.com/google/uuid"
)

const (
	// DefaultMaxFileSize is the largest file the operations will read or write.
	DefaultMaxFileSize = 10 * 1024 * 1024

	filePerm = 0o644
	dirPerm  = 0o755

	tempSuffix = ".tmp"
)

// IsTempName reports whether name is one of the temp files used for atomic
// writes. Watchers use it to ignore in-flight writes.
func IsTempName(name string) bool {
	return strings.HasPrefix(name, ".") && strings.HasSuffix(name, tempSuffix)
}

// Options configure an Operations instance.
type Options struct {
	// Protected lists doublestar patterns, relative to the virtual prefix,
	// of paths that may be viewed but never modified (e.g. "archive/**").
	Protected []string

	// Ignore lists glob patterns of entry names hidden from directory
	// listings (e.g. ".*").
	Ignore []string

	// MaxFileSize limits file size in bytes. Zero means DefaultMaxFileSize,
	// a negative value disables the limit.
	MaxFileSize int64
}

// Result is the outcome of a successful operation.
type Result struct {
	// Output is the text returned to the model.
	Output string

	// Listing is set when a directory was viewed.
	Listing *Listing
}

// Operations performs memory commands beneath one sandbox root.
type Operations struct {
	resolver    *vpath.Resolver
	root        *os.Root
	protected   []string
	ignore      []glob.Glob
	maxFileSize int64
}

// New opens the resolver's root and returns an Operations instance. Close
// releases the root handle.
func New(resolver *vpath.Resolver, opts Options) (*Operations, error) {
	for _, pattern := range opts.Protected {
		if !doublestar.ValidatePattern(pattern) {
			return nil, memfs.Errorf(memfs.KindConfigurationError, "invalid protected pattern %q", pattern)
		}
	}
	ignore := make([]glob.Glob, 0, len(opts.Ignore))
	for _, pattern := range opts.Ignore {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, memfs.WrapError(memfs.KindConfigurationError, err, fmt.Sprintf("invalid ignore pattern %q", pattern))
		}
		ignore = append(ignore, g)
	}
	maxFileSize := opts.MaxFileSize
	if maxFileSize == 0 {
		maxFileSize = DefaultMaxFileSize
	}
	root, err := os.OpenRoot(resolver.Root())
	if err != nil {
		return nil, memfs.WrapError(memfs.KindConfigurationError, err, "failed to open sandbox root")
	}
	return &Operations{
		resolver:    resolver,
		root:        root,
		protected:   opts.Protected,
		ignore:      ignore,
		maxFileSize: maxFileSize,
	}, nil
}

// Close releases the root handle.
func (o *Operations) Close() error {
	return o.root.Close()
}

// Resolver returns the resolver used for every path argument.
func (o *Operations) Resolver() *vpath.Resolver {
	return o.resolver
}

// View returns a directory listing or file content. A line range is only
// valid for files.
func (o *Operations) View(ctx context.Context, path vpath.VirtualPath, lineRange *LineRange) (*Result, error) {
	resolved, err := o.begin(ctx, path)
	if err != nil {
		return nil, err
	}
	info, err := o.root.Stat(resolved.Rel())
	if err != nil {
		return nil, o.pathError(err, path)
	}
	if info.IsDir() {
		if lineRange != nil {
			return nil, memfs.Errorf(memfs.KindInvalidArguments, "view_range is not allowed for directories")
		}
		listing, err := o.list(resolved)
		if err != nil {
			return nil, o.pathError(err, path)
		}
		return &Result{Output: listing.String(), Listing: listing}, nil
	}

	content, _, err := o.readFile(resolved, path)
	if err != nil {
		return nil, err
	}
	if lineRange == nil {
		return &Result{Output: content}, nil
	}
	lines, _ := splitLines(content)
	start, end := lineRange.Start, lineRange.End
	if start < 1 || start > len(lines) {
		return nil, memfs.Errorf(memfs.KindInvalidRange,
			"invalid view_range [%d, %d]: first element should be within [1, %d]", start, end, len(lines))
	}
	if end == -1 {
		end = len(lines)
	}
	if end < start || end > len(lines) {
		return nil, memfs.Errorf(memfs.KindInvalidRange,
			"invalid view_range [%d, %d]: second element should be within [%d, %d] or -1", lineRange.Start, lineRange.End, start, len(lines))
	}
	return &Result{Output: strings.Join(lines[start-1:end], "\n")}, nil
}

// Create writes text to path, replacing any existing file and creating
// missing parent directories.
func (o *Operations) Create(ctx context.Context, path vpath.VirtualPath, text string) (*Result, error) {
	resolved, err := o.begin(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := o.guard(resolved, false); err != nil {
		return nil, err
	}
	if err := o.checkSize(len(text), path); err != nil {
		return nil, err
	}
	perm := fs.FileMode(filePerm)
	existed := false
	info, err := o.root.Stat(resolved.Rel())
	switch {
	case err == nil && info.IsDir():
		return nil, memfs.Errorf(memfs.KindIsADirectory, "%s is a directory", path)
	case err == nil:
		existed = true
		perm = info.Mode().Perm()
	case !errors.Is(err, fs.ErrNotExist):
		return nil, o.pathError(err, path)
	}
	if err := o.writeFile(resolved.Rel(), text, perm); err != nil {
		return nil, o.pathError(err, path)
	}
	display := o.resolver.Virtual(resolved)
	if existed {
		return &Result{Output: fmt.Sprintf("File %s has been overwritten.", display)}, nil
	}
	return &Result{Output: fmt.Sprintf("File created successfully at: %s", display)}, nil
}

// StrReplace replaces the single occurrence of oldStr with newStr. It
// refuses to act when oldStr occurs zero times or more than once.
func (o *Operations) StrReplace(ctx context.Context, path vpath.VirtualPath, oldStr, newStr string) (*Result, error) {
	if oldStr == "" {
		return nil, memfs.Errorf(memfs.KindInvalidArguments, "old_str must not be empty")
	}
	resolved, err := o.begin(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := o.guard(resolved, false); err != nil {
		return nil, err
	}
	content, perm, err := o.readFile(resolved, path)
	if err != nil {
		return nil, err
	}
	switch lines := occurrenceLines(content, oldStr); len(lines) {
	case 0:
		return nil, memfs.Errorf(memfs.KindNoMatch,
			"No replacement was performed, old_str did not appear verbatim in %s.", path)
	case 1:
	default:
		return nil, memfs.Errorf(memfs.KindAmbiguousMatch,
			"No replacement was performed. Multiple occurrences of old_str in lines %v. Please ensure it is unique.", lines)
	}
	updated := strings.Replace(content, oldStr, newStr, 1)
	if err := o.checkSize(len(updated), path); err != nil {
		return nil, err
	}
	if err := o.writeFile(resolved.Rel(), updated, perm); err != nil {
		return nil, o.pathError(err, path)
	}
	display := o.resolver.Virtual(resolved)
	return &Result{Output: editedMessage(display, content, updated)}, nil
}

// Insert inserts text after the given 1-indexed line; 0 prepends.
func (o *Operations) Insert(ctx context.Context, path vpath.VirtualPath, line int, text string) (*Result, error) {
	resolved, err := o.begin(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := o.guard(resolved, false); err != nil {
		return nil, err
	}
	content, perm, err := o.readFile(resolved, path)
	if err != nil {
		return nil, err
	}
	lines, trailing := splitLines(content)
	if line < 0 || line > len(lines) {
		return nil, memfs.Errorf(memfs.KindInvalidRange,
			"invalid insert_line %d: it should be within the range of lines of the file [0, %d]", line, len(lines))
	}
	inserted := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	merged := make([]string, 0, len(lines)+len(inserted))
	merged = append(merged, lines[:line]...)
	merged = append(merged, inserted...)
	merged = append(merged, lines[line:]...)
	updated := joinLines(merged, trailing)

	if err := o.checkSize(len(updated), path); err != nil {
		return nil, err
	}
	if err := o.writeFile(resolved.Rel(), updated, perm); err != nil {
		return nil, o.pathError(err, path)
	}
	display := o.resolver.Virtual(resolved)
	return &Result{Output: editedMessage(display, content, updated)}, nil
}

// Delete removes a file, or a directory and everything below it.
func (o *Operations) Delete(ctx context.Context, path vpath.VirtualPath) (*Result, error) {
	resolved, err := o.begin(ctx, path)
	if err != nil {
		return nil, err
	}
	if resolved.IsRoot() {
		return nil, memfs.Errorf(memfs.KindInvalidPath, "the %s directory itself cannot be deleted", o.resolver.Prefix())
	}
	info, err := o.root.Lstat(resolved.Rel())
	if err != nil {
		return nil, o.pathError(err, path)
	}
	if err := o.guard(resolved, info.IsDir()); err != nil {
		return nil, err
	}
	if info.IsDir() {
		err = o.root.RemoveAll(resolved.Rel())
	} else {
		err = o.root.Remove(resolved.Rel())
	}
	if err != nil {
		return nil, o.pathError(err, path)
	}
	return &Result{Output: fmt.Sprintf("Successfully deleted %s", o.resolver.Virtual(resolved))}, nil
}

// Rename moves a file or directory. The destination must not exist; its
// parent directories are created as needed.
func (o *Operations) Rename(ctx context.Context, oldPath, newPath vpath.VirtualPath) (*Result, error) {
	src, err := o.begin(ctx, oldPath)
	if err != nil {
		return nil, err
	}
	dst, err := o.resolver.Resolve(newPath)
	if err != nil {
		return nil, err
	}
	if src.IsRoot() || dst.IsRoot() {
		return nil, memfs.Errorf(memfs.KindInvalidPath, "the %s directory itself cannot be renamed", o.resolver.Prefix())
	}
	info, err := o.root.Lstat(src.Rel())
	if err != nil {
		return nil, o.pathError(err, oldPath)
	}
	if _, err := o.root.Lstat(dst.Rel()); err == nil {
		return nil, memfs.Errorf(memfs.KindAlreadyExists, "The destination %s already exists", newPath)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, o.pathError(err, newPath)
	}
	if src.Contains(dst) {
		return nil, memfs.Errorf(memfs.KindInvalidArguments, "cannot move %s into itself", oldPath)
	}
	if err := o.guard(src, info.IsDir()); err != nil {
		return nil, err
	}
	if err := o.guard(dst, false); err != nil {
		return nil, err
	}
	if dir := filepath.Dir(dst.Rel()); dir != "." {
		if err := o.root.MkdirAll(dir, dirPerm); err != nil {
			return nil, o.pathError(err, newPath)
		}
	}
	if err := o.root.Rename(src.Rel(), dst.Rel()); err != nil {
		return nil, o.pathError(err, oldPath)
	}
	return &Result{Output: fmt.Sprintf("Successfully renamed %s to %s",
		o.resolver.Virtual(src), o.resolver.Virtual(dst))}, nil
}

func (o *Operations) begin(ctx context.Context, path vpath.VirtualPath) (vpath.ResolvedPath, error) {
	if err := ctx.Err(); err != nil {
		return vpath.ResolvedPath{}, memfs.WrapError(memfs.KindIOFailure, err, "operation cancelled")
	}
	return o.resolver.Resolve(path)
}

func (o *Operations) readFile(resolved vpath.ResolvedPath, path vpath.VirtualPath) (string, fs.FileMode, error) {
	info, err := o.root.Stat(resolved.Rel())
	if err != nil {
		return "", 0, o.pathError(err, path)
	}
	if info.IsDir() {
		return "", 0, memfs.Errorf(memfs.KindIsADirectory, "%s is a directory", path)
	}
	if o.maxFileSize > 0 && info.Size() > o.maxFileSize {
		return "", 0, memfs.Errorf(memfs.KindInvalidArguments,
			"%s is %d bytes, larger than the %d byte limit", path, info.Size(), o.maxFileSize)
	}
	data, err := o.root.ReadFile(resolved.Rel())
	if err != nil {
		return "", 0, o.pathError(err, path)
	}
	return string(data), info.Mode().Perm(), nil
}

// writeFile replaces rel with content via a temp file in the same directory,
// so the visible file is always either the old or the new content.
func (o *Operations) writeFile(rel, content string, perm fs.FileMode) error {
	dir := filepath.Dir(rel)
	if dir != "." {
		if err := o.root.MkdirAll(dir, dirPerm); err != nil {
			return err
		}
	}
	tmp := filepath.Join(dir, "."+filepath.Base(rel)+"."+uuid.NewString()+tempSuffix)
	f, err := o.root.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return err
	}
	_, err = f.WriteString(content)
	if err == nil {
		err = f.Sync()
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = o.root.Rename(tmp, rel)
	}
	if err != nil {
		_ = o.root.Remove(tmp)
		return err
	}
	return nil
}

func (o *Operations) checkSize(size int, path vpath.VirtualPath) error {
	if o.maxFileSize > 0 && int64(size) > o.maxFileSize {
		return memfs.Errorf(memfs.KindInvalidArguments,
			"content for %s is %d bytes, larger than the %d byte limit", path, size, o.maxFileSize)
	}
	return nil
}

// guard rejects modification of protected paths. For directories every
// descendant is checked as well.
func (o *Operations) guard(resolved vpath.ResolvedPath, recursive bool) error {
	if len(o.protected) == 0 {
		return nil
	}
	if pattern, ok := o.matchProtected(o.resolver.Relative(resolved)); ok {
		return memfs.Errorf(memfs.KindAccessDenied,
			"%s is protected by pattern %q", o.resolver.Virtual(resolved), pattern)
	}
	if !recursive {
		return nil
	}
	var denied error
	err := fs.WalkDir(o.root.FS(), filepath.ToSlash(resolved.Rel()), func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if pattern, ok := o.matchProtected(p); ok {
			denied = memfs.Errorf(memfs.KindAccessDenied,
				"%s contains %s/%s which is protected by pattern %q",
				o.resolver.Virtual(resolved), o.resolver.Prefix(), p, pattern)
			return fs.SkipAll
		}
		return nil
	})
	if denied != nil {
		return denied
	}
	if err != nil {
		return memfs.AsError(err, "failed to inspect directory")
	}
	return nil
}

func (o *Operations) matchProtected(rel string) (string, bool) {
	if rel == "" || rel == "." {
		return "", false
	}
	for _, pattern := range o.protected {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return pattern, true
		}
	}
	return "", false
}

// pathError maps a filesystem error to a model-facing error that names the
// virtual path, never the real one.
func (o *Operations) pathError(err error, path vpath.VirtualPath) error {
	switch kind := memfs.KindOf(err); kind {
	case memfs.KindNotFound:
		return memfs.WrapError(kind, err, fmt.Sprintf("The path %s does not exist. Please provide a valid path.", path))
	case memfs.KindNotADirectory:
		return memfs.WrapError(kind, err, fmt.Sprintf("A parent of %s is not a directory", path))
	case memfs.KindIsADirectory:
		return memfs.WrapError(kind, err, fmt.Sprintf("%s is a directory", path))
	case memfs.KindAlreadyExists:
		return memfs.WrapError(kind, err, fmt.Sprintf("%s already exists", path))
	case memfs.KindPathEscape:
		return memfs.Errorf(kind, "path resolves outside the memory directory")
	default:
		var memErr *memfs.Error
		if errors.As(err, &memErr) {
			return memErr
		}
		return memfs.WrapError(memfs.KindIOFailure, err, fmt.Sprintf("failed to access %s", path))
	}
}

func editedMessage(path vpath.VirtualPath, before, after string) string {
	msg := fmt.Sprintf("The memory file %s has been edited.", path)
	if diff := editDiff(string(path), before, after); diff != "" {
		msg += "\n" + diff
	}
	return msg
}
