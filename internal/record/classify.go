package record

import (
	"path"
	"path/filepath"
	"strings"
)

// Classification is the result of deciding whether a path's resolution stays
// inside the project root.
type Classification struct {
	// External is true when some prefix of the path resolves outside the
	// project root.
	External bool

	// RootSymlink is the shortest escaping ancestor, project-relative. It
	// need not equal the requested path: for "p/child" where "p" is the
	// escaping symlink, RootSymlink is "p".
	RootSymlink string

	// RootSymlinkTarget is the fully resolved real path of RootSymlink,
	// in forward-slash form. Chains of symlinks are followed; a dangling
	// final target is resolved to the location it points at.
	RootSymlinkTarget string
}

// Classify walks relPath's prefixes from the root downward and finds the
// shortest prefix whose real path escapes the project root. Paths whose
// resolution stays inside the root classify as internal even when components
// along the way are symlinks.
//
// Filesystem state observed mid-walk can be inconsistent if something mutates
// the tree concurrently; Classify re-checks the boundary it found and retries
// the walk once before giving up with an AmbiguousBoundaryError.
func Classify(src Source, relPath string) (Classification, error) {
	rootReal, err := src.RealPath(".")
	if err != nil {
		return Classification{}, &UnreachableTargetError{Path: ".", Err: err}
	}

	cls, err := classifyWalk(src, relPath, rootReal)
	if err != nil || !cls.External {
		return cls, err
	}
	if target, err := src.RealPath(cls.RootSymlink); err == nil && filepath.ToSlash(target) == cls.RootSymlinkTarget {
		return cls, nil
	}

	// The boundary moved under us. One full retry.
	cls, err = classifyWalk(src, relPath, rootReal)
	if err != nil || !cls.External {
		return cls, err
	}
	target, err := src.RealPath(cls.RootSymlink)
	if err != nil {
		return Classification{}, &UnreachableTargetError{Path: cls.RootSymlink, Err: err}
	}
	if filepath.ToSlash(target) != cls.RootSymlinkTarget {
		return Classification{}, &AmbiguousBoundaryError{
			Path:   NormalizePath(relPath),
			First:  cls.RootSymlinkTarget,
			Second: filepath.ToSlash(target),
		}
	}
	return cls, nil
}

func classifyWalk(src Source, relPath, rootReal string) (Classification, error) {
	rel := NormalizePath(relPath)
	if rel == "." {
		return Classification{}, nil
	}

	prefix := ""
	for _, comp := range strings.Split(rel, "/") {
		prefix = path.Join(prefix, comp)
		real, err := src.RealPath(prefix)
		if err != nil {
			return Classification{}, &UnreachableTargetError{Path: prefix, Err: err}
		}
		if !contained(real, rootReal) {
			return Classification{
				External:          true,
				RootSymlink:       prefix,
				RootSymlinkTarget: filepath.ToSlash(real),
			}, nil
		}
	}
	return Classification{}, nil
}

func contained(p, root string) bool {
	return p == root || strings.HasPrefix(p, root+string(filepath.Separator))
}
