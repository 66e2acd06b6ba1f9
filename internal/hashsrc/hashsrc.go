// Package hashsrc provides a filesystem-backed content hash source for the
// recording pipeline.
//
// FS hashes with sha256 and memoizes per path: regular files by their bytes
// (symlinks followed), directories by their sorted child listing with
// length framing, so two listings that concatenate identically still hash
// differently.
//
// Path resolution tolerates dangling symlinks: RealPath resolves every
// component it can and joins the missing suffix lexically, which is what lets
// whitelisted symlinks with absent targets still be classified.
package hashsrc

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
)

// FS is a Source over a real directory tree rooted at an absolute,
// fully resolved project root. It is safe for concurrent use.
type FS struct {
	root string

	mu   sync.Mutex
	memo map[string]string
}

// New creates an FS rooted at root. The root must exist and be a directory;
// it is resolved to its real path so containment checks against it are
// stable even when the root itself sits behind a symlink (macOS temp dirs,
// for example).
func New(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("resolve root %q: %w", root, err)
	}
	fi, err := os.Stat(real)
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("root %q is not a directory", root)
	}
	return &FS{root: real, memo: make(map[string]string)}, nil
}

// Root returns the absolute, fully resolved project root.
func (s *FS) Root() string { return s.root }

// Hash returns the sha256 content hash of relPath, memoized per path.
// Directories hash their sorted child listing; files hash their bytes with
// symlinks followed, so hashing a dangling symlink fails.
func (s *FS) Hash(relPath string) (string, error) {
	rel, abs, err := s.abs(relPath)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	if h, ok := s.memo[rel]; ok {
		s.mu.Unlock()
		return h, nil
	}
	s.mu.Unlock()

	fi, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	var h string
	if fi.IsDir() {
		h, err = hashDir(abs)
	} else {
		h, err = hashFile(abs)
	}
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.memo[rel] = h
	s.mu.Unlock()
	return h, nil
}

// IsDirectory reports whether relPath resolves to a directory.
func (s *FS) IsDirectory(relPath string) (bool, error) {
	_, abs, err := s.abs(relPath)
	if err != nil {
		return false, err
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return false, err
	}
	return fi.IsDir(), nil
}

// IsExecutable reports whether any executable permission bit is set on the
// path as requested (symlinks followed).
func (s *FS) IsExecutable(relPath string) (bool, error) {
	_, abs, err := s.abs(relPath)
	if err != nil {
		return false, err
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return false, err
	}
	return fi.Mode().Perm()&0o111 != 0, nil
}

// RealPath returns the fully dereferenced absolute location of relPath,
// tolerating a missing final target.
func (s *FS) RealPath(relPath string) (string, error) {
	_, abs, err := s.abs(relPath)
	if err != nil {
		return "", err
	}
	return resolveReal(abs)
}

// Children returns the sorted immediate child names of a directory.
func (s *FS) Children(relPath string) ([]string, error) {
	_, abs, err := s.abs(relPath)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}

// Contents returns the raw bytes of a regular file (symlinks followed).
func (s *FS) Contents(relPath string) ([]byte, error) {
	_, abs, err := s.abs(relPath)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(abs)
}

func (s *FS) abs(relPath string) (rel string, abs string, err error) {
	rel = path.Clean(filepath.ToSlash(relPath))
	if path.IsAbs(rel) || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", "", fmt.Errorf("path %q is not relative to the root", relPath)
	}
	return rel, filepath.Join(s.root, filepath.FromSlash(rel)), nil
}

func hashFile(abs string) (string, error) {
	b, err := os.ReadFile(abs)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// hashDir derives a directory identity from its sorted child names. Names
// are length-framed so the framing is unambiguous.
func hashDir(abs string) (string, error) {
	entries, err := os.ReadDir(abs)
	if err != nil {
		return "", err
	}

	h := sha256.New()
	_, _ = h.Write([]byte("dirlist-v1"))
	buf := make([]byte, 8)
	for _, e := range entries {
		name := e.Name()
		binary.LittleEndian.PutUint64(buf, uint64(len(name)))
		_, _ = h.Write(buf)
		_, _ = h.Write([]byte(name))
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Linux resolves at most 40 links per lookup; mirror that bound.
const maxLinkDepth = 40

// resolveReal fully dereferences every symlink in abs. Unlike
// filepath.EvalSymlinks it does not require the final target to exist: once a
// component is missing, the remaining suffix is joined lexically, giving
// dangling symlinks a deterministic resolved location.
func resolveReal(abs string) (string, error) {
	abs = filepath.Clean(abs)
	sep := string(filepath.Separator)
	vol := filepath.VolumeName(abs)

	unresolved := strings.Split(strings.TrimPrefix(abs[len(vol):], sep), sep)
	dest := vol + sep
	links := 0

	for len(unresolved) > 0 {
		comp := unresolved[0]
		unresolved = unresolved[1:]
		switch comp {
		case "", ".":
			continue
		case "..":
			dest = filepath.Dir(dest)
			continue
		}

		next := filepath.Join(dest, comp)
		fi, err := os.Lstat(next)
		if errors.Is(err, fs.ErrNotExist) {
			parts := append([]string{next}, unresolved...)
			return filepath.Join(parts...), nil
		}
		if err != nil {
			return "", err
		}
		if fi.Mode()&fs.ModeSymlink == 0 {
			dest = next
			continue
		}

		links++
		if links > maxLinkDepth {
			return "", fmt.Errorf("too many levels of symbolic links resolving %q", abs)
		}
		target, err := os.Readlink(next)
		if err != nil {
			return "", err
		}
		if filepath.IsAbs(target) {
			tvol := filepath.VolumeName(target)
			dest = tvol + sep
			target = strings.TrimPrefix(target[len(tvol):], sep)
		}
		// Target components go back on the worklist: they may themselves
		// pass through further symlinks.
		unresolved = append(strings.Split(target, sep), unresolved...)
	}
	return dest, nil
}
