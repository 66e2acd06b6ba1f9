package record

import (
	"fmt"
	"path"
	"strings"
)

// Tristate is an explicitly three-valued boolean. The zero value is
// TristateUnset, which distinguishes "never decided" from false. Entry fields
// use it so that a field left unset during construction can be caught before
// serialization instead of silently reading as false.
type Tristate uint8

const (
	TristateUnset Tristate = iota
	TristateFalse
	TristateTrue
)

// TristateOf converts a plain bool to a set Tristate.
func TristateOf(b bool) Tristate {
	if b {
		return TristateTrue
	}
	return TristateFalse
}

// IsSet reports whether the value has been decided.
func (t Tristate) IsSet() bool { return t != TristateUnset }

// Bool returns the decided value. Unset reads as false; callers that must
// distinguish should check IsSet first.
func (t Tristate) Bool() bool { return t == TristateTrue }

func (t Tristate) String() string {
	switch t {
	case TristateFalse:
		return "false"
	case TristateTrue:
		return "true"
	default:
		return "unset"
	}
}

// Identity is the content identity of a recorded path. Exactly one of the two
// implementations applies to any entry:
//   - Content: the path was hashed in place (an internal file, or a directory
//     identified by its listing).
//   - Boundary: the path (or an ancestor of it) is a symlink that escapes the
//     project root; the whole subtree below the boundary is materialized by
//     the remote side via the symlink mapping instead of per-file hashes.
//
// Modeling this as a closed variant keeps invalid combinations (for example a
// boundary entry that also carries a content hash) unrepresentable.
type Identity interface {
	isIdentity()
	validate() error
}

// Content identifies a path by the hash of its bytes (files) or of its
// listing (directories). Contents optionally embeds small file payloads so
// the remote side can skip a re-fetch round trip; an entry may carry the
// hash, the bytes, or both.
type Content struct {
	Hash     string
	Contents []byte
}

func (Content) isIdentity() {}

func (c Content) validate() error {
	if c.Hash == "" && c.Contents == nil {
		return fmt.Errorf("content identity carries neither hash nor contents")
	}
	return nil
}

// Boundary identifies a path via its shortest escaping-symlink ancestor.
// Symlink is the project-relative path of that ancestor; Target is its fully
// resolved real path outside the project. A boundary entry deliberately
// carries no hash: for whitelisted symlinks the target may not even exist.
type Boundary struct {
	Symlink string
	Target  string
}

func (Boundary) isIdentity() {}

func (b Boundary) validate() error {
	if b.Symlink == "" || b.Target == "" {
		return fmt.Errorf("boundary identity requires both symlink and target")
	}
	return nil
}

// Entry is one fingerprint record. Entries are immutable once added to an
// EntrySet.
type Entry struct {
	// Path is project-relative, in forward-slash form regardless of platform.
	Path string

	// IsDirectory must be set (non-unset) by the time the entry is added.
	IsDirectory Tristate

	// IsExecutable reflects the permission bit checked on the path as it was
	// requested, not on a resolved target elsewhere. May remain unset for
	// boundary entries whose target is unreachable.
	IsExecutable Tristate

	// PathIsAbsolute is true only for genuinely absolute external targets
	// recorded without project-relative context. This recorder keys every
	// entry by a project-relative path (external targets live in boundary
	// Target fields, never in Path), so it always emits false here; the
	// field stays tri-state for wire compatibility with writers that do
	// record absolute entries.
	PathIsAbsolute Tristate

	Identity Identity

	// Children lists immediate child names for directory entries. It is
	// informational: every child also receives its own top-level entry.
	Children []string
}

// NormalizePath brings a project-relative path into the canonical form used
// as the dedup key: forward slashes, cleaned, no leading "./".
func NormalizePath(p string) string {
	return path.Clean(strings.ReplaceAll(p, `\`, "/"))
}

func (e *Entry) validate() error {
	if e.Path == "" {
		return fmt.Errorf("entry has empty path")
	}
	if strings.Contains(e.Path, `\`) {
		return fmt.Errorf("entry path %q is not in forward-slash form", e.Path)
	}
	if path.IsAbs(e.Path) || e.Path == ".." || strings.HasPrefix(e.Path, "../") {
		return fmt.Errorf("entry path %q is not project-relative", e.Path)
	}
	if !e.IsDirectory.IsSet() {
		return fmt.Errorf("entry %q: isDirectory left unset", e.Path)
	}
	if e.Identity == nil {
		return fmt.Errorf("entry %q has no identity", e.Path)
	}
	if err := e.Identity.validate(); err != nil {
		return fmt.Errorf("entry %q: %w", e.Path, err)
	}
	if _, boundary := e.Identity.(Boundary); boundary && e.IsDirectory.Bool() {
		return fmt.Errorf("entry %q: directories are never boundary entries", e.Path)
	}
	return nil
}
