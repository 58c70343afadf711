// Package vpath resolves untrusted virtual paths such as /memories/notes.md
// to canonical filesystem paths that are proven to lie inside a sandbox root.
//
// A [VirtualPath] is whatever text the model sent. A [ResolvedPath] can only be
// produced by [Resolver.Resolve], so code that accepts a ResolvedPath cannot
// be handed a path that skipped validation.
package vpath

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/deepnoodle-ai/memfs"
)

// DefaultPrefix is the virtual directory that maps onto the sandbox root.
const DefaultPrefix = "/memories"

// maxSymlinkHops matches the Linux ELOOP limit.
const maxSymlinkHops = 40

const separator = string(filepath.Separator)

// VirtualPath is a caller-supplied path. It is never used for I/O directly.
type VirtualPath string

func (p VirtualPath) String() string {
	return string(p)
}

// ResolvedPath is a canonical, symlink-free path inside the sandbox root.
type ResolvedPath struct {
	abs string
	rel string
}

// Abs returns the absolute filesystem path.
func (p ResolvedPath) Abs() string {
	return p.abs
}

// Rel returns the path relative to the sandbox root, "." for the root itself.
func (p ResolvedPath) Rel() string {
	return p.rel
}

// IsRoot returns true if the path is the sandbox root.
func (p ResolvedPath) IsRoot() bool {
	return p.rel == "."
}

// IsZero returns true for the zero value, which no resolver ever returns.
func (p ResolvedPath) IsZero() bool {
	return p.abs == ""
}

// Contains returns true if other is p or a descendant of p.
func (p ResolvedPath) Contains(other ResolvedPath) bool {
	return isWithin(p.abs, other.abs)
}

// Resolver maps virtual paths onto a single sandbox root.
type Resolver struct {
	root   string
	prefix string
}

// NewResolver creates a Resolver for root, which must already exist. The
// prefix defaults to DefaultPrefix.
func NewResolver(root, prefix string) (*Resolver, error) {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if !strings.HasPrefix(prefix, "/") || strings.ContainsRune(prefix, 0) {
		return nil, memfs.Errorf(memfs.KindConfigurationError, "virtual prefix %q must be an absolute slash path", prefix)
	}
	prefix = strings.TrimSuffix(filepath.ToSlash(filepath.Clean(prefix)), "/")
	if prefix == "" {
		return nil, memfs.Errorf(memfs.KindConfigurationError, "virtual prefix must not be /")
	}
	if root == "" {
		return nil, memfs.Errorf(memfs.KindConfigurationError, "sandbox root is required")
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, memfs.WrapError(memfs.KindConfigurationError, err, "failed to resolve sandbox root")
	}
	realRoot, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return nil, memfs.WrapError(memfs.KindConfigurationError, err, "failed to resolve sandbox root symlinks")
	}
	return &Resolver{root: filepath.Clean(realRoot), prefix: prefix}, nil
}

// Root returns the canonical sandbox root.
func (r *Resolver) Root() string {
	return r.root
}

// Prefix returns the virtual prefix, e.g. "/memories".
func (r *Resolver) Prefix() string {
	return r.prefix
}

// Resolve validates p and returns its canonical location inside the root.
//
// Paths without the prefix, with NUL bytes, or that loop through too many
// symlinks fail with InvalidPath. Paths with ".." segments, or that land
// outside the root after following symlinks, fail with PathEscape. The target
// does not need to exist; missing trailing components are appended to the
// deepest existing ancestor.
func (r *Resolver) Resolve(p VirtualPath) (ResolvedPath, error) {
	segments, err := r.split(p)
	if err != nil {
		return ResolvedPath{}, err
	}
	canonical, err := r.canonicalize(segments)
	if err != nil {
		return ResolvedPath{}, err
	}
	if !isWithin(r.root, canonical) {
		return ResolvedPath{}, errEscape()
	}
	rel, err := filepath.Rel(r.root, canonical)
	if err != nil {
		return ResolvedPath{}, errEscape()
	}
	return ResolvedPath{abs: canonical, rel: rel}, nil
}

// Virtual renders a resolved path in its virtual form.
func (r *Resolver) Virtual(p ResolvedPath) VirtualPath {
	if p.IsRoot() || p.IsZero() {
		return VirtualPath(r.prefix)
	}
	return VirtualPath(r.prefix + "/" + filepath.ToSlash(p.rel))
}

// Relative returns the slash-separated path below the prefix, "" for the root.
// It is the form matched against configured path patterns.
func (r *Resolver) Relative(p ResolvedPath) string {
	if p.IsRoot() || p.IsZero() {
		return ""
	}
	return filepath.ToSlash(p.rel)
}

// split performs the lexical checks on p and returns its segments below the
// prefix. Backslashes are treated as separators.
func (r *Resolver) split(p VirtualPath) ([]string, error) {
	s := string(p)
	if s == "" {
		return nil, memfs.Errorf(memfs.KindInvalidPath, "path is required")
	}
	if strings.ContainsRune(s, 0) {
		return nil, memfs.Errorf(memfs.KindInvalidPath, "path contains a null byte")
	}
	normalized := strings.ReplaceAll(s, `\`, "/")
	if normalized != r.prefix && !strings.HasPrefix(normalized, r.prefix+"/") {
		return nil, memfs.Errorf(memfs.KindInvalidPath, "path %q must be within the %s directory", s, r.prefix)
	}
	var segments []string
	for _, segment := range strings.Split(normalized[len(r.prefix):], "/") {
		switch segment {
		case "", ".":
			continue
		case "..":
			return nil, errEscape()
		}
		if filepath.VolumeName(segment) != "" {
			return nil, errEscape()
		}
		segments = append(segments, segment)
	}
	return segments, nil
}

// canonicalize walks segments from the root one component at a time,
// expanding symlinks in place. Components after the first missing one are
// joined lexically.
func (r *Resolver) canonicalize(segments []string) (string, error) {
	current := r.root
	pending := append([]string(nil), segments...)
	hops := 0
	missing := false

	for len(pending) > 0 {
		segment := pending[0]
		pending = pending[1:]

		switch segment {
		case "", ".":
			continue
		case "..":
			current = filepath.Dir(current)
			continue
		}

		next := filepath.Join(current, segment)
		if missing {
			current = next
			continue
		}

		info, err := os.Lstat(next)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR) {
				missing = true
				current = next
				continue
			}
			return "", memfs.WrapError(memfs.KindIOFailure, err, "failed to resolve path")
		}
		if info.Mode()&fs.ModeSymlink == 0 {
			current = next
			continue
		}

		hops++
		if hops > maxSymlinkHops {
			return "", memfs.Errorf(memfs.KindInvalidPath, "too many levels of symbolic links")
		}
		target, err := os.Readlink(next)
		if err != nil {
			return "", memfs.WrapError(memfs.KindIOFailure, err, "failed to read symbolic link")
		}
		if filepath.IsAbs(target) {
			volume := filepath.VolumeName(target)
			current = volume + separator
			target = target[len(volume):]
		}
		pending = append(splitNative(target), pending...)
	}
	return filepath.Clean(current), nil
}

func splitNative(path string) []string {
	return strings.FieldsFunc(path, func(r rune) bool {
		return r == '/' || r == filepath.Separator
	})
}

// isWithin reports whether target equals base or is below it. Both paths
// must be clean and absolute.
func isWithin(base, target string) bool {
	if target == base {
		return true
	}
	prefix := base
	if !strings.HasSuffix(prefix, separator) {
		prefix += separator
	}
	return strings.HasPrefix(target, prefix)
}

func errEscape() *memfs.Error {
	return memfs.Errorf(memfs.KindPathEscape, "path resolves outside the memory directory")
}
