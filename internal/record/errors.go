package record

import "fmt"

// UnreachableTargetError reports that a non-whitelisted path's real target
// could not be resolved or hashed (missing file, permission denied, I/O
// error). It is fatal to the recording of that path.
type UnreachableTargetError struct {
	Path string
	Err  error
}

func (e *UnreachableTargetError) Error() string {
	return fmt.Sprintf("unreachable target for %q: %v", e.Path, e.Err)
}

func (e *UnreachableTargetError) Unwrap() error { return e.Err }

// AmbiguousBoundaryError reports that classification observed inconsistent
// filesystem state across its walk (a concurrent modification), and the
// inconsistency persisted through one retry.
type AmbiguousBoundaryError struct {
	Path   string
	First  string
	Second string
}

func (e *AmbiguousBoundaryError) Error() string {
	return fmt.Sprintf("ambiguous symlink boundary for %q: resolved to %q, then %q", e.Path, e.First, e.Second)
}

// DuplicateConflictError reports that two recording attempts for the same
// path produced different content identities. Under a stable filesystem
// snapshot this should be impossible; it is never silently resolved by
// overwriting.
type DuplicateConflictError struct {
	Path string
}

func (e *DuplicateConflictError) Error() string {
	return fmt.Sprintf("conflicting identities recorded for %q", e.Path)
}
