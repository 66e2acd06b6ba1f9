package record

// Source is the content-hash capability the recording pipeline consumes. All
// paths are project-relative in forward-slash form; "." names the project
// root itself.
//
// Implementations are expected to be safe for concurrent use and to memoize
// hashing themselves; the recording pipeline calls Hash for the same path
// more than once and holds no locks while doing so.
//
// RealPath must produce a deterministic location even when the final target
// of a symlink chain does not exist, so dangling whitelisted symlinks can
// still be classified.
type Source interface {
	// Root returns the absolute project root path.
	Root() string

	// Hash returns the content hash of the path: file bytes for regular
	// files (symlinks followed), a listing-derived identity for directories.
	Hash(relPath string) (string, error)

	// IsDirectory reports whether the path resolves to a directory.
	IsDirectory(relPath string) (bool, error)

	// IsExecutable reports the executable permission bit checked on the path
	// as requested.
	IsExecutable(relPath string) (bool, error)

	// RealPath returns the fully dereferenced absolute location of the path.
	RealPath(relPath string) (string, error)

	// Children returns the sorted immediate child names of a directory.
	Children(relPath string) ([]string, error)
}

// ContentsReader is optionally implemented by sources that can return raw
// file bytes. The recording cache uses it to embed small files inline; a
// source without it simply never inlines.
type ContentsReader interface {
	Contents(relPath string) ([]byte, error)
}
