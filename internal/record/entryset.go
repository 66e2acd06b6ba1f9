package record

import (
	"bytes"
	"fmt"
	"sync"
)

// EntrySet is an ordered, per-path-deduplicated sink of fingerprint entries.
//
// Add is the single mutual-exclusion point of the recording pipeline: the
// "check present, else append" step runs under one mutex, so concurrent
// recording of overlapping subtrees elects exactly one writer per path. No
// hashing happens under the lock.
//
// The session tag is opaque to this package; the transport layer uses it to
// correlate multiple recording sessions of one distributed build.
type EntrySet struct {
	session string

	mu     sync.Mutex
	order  []*Entry
	byPath map[string]*Entry
}

// NewEntrySet creates an empty set tagged with the given session identifier.
func NewEntrySet(session string) *EntrySet {
	return &EntrySet{
		session: session,
		byPath:  make(map[string]*Entry),
	}
}

// Session returns the opaque session tag supplied at construction.
func (s *EntrySet) Session() string { return s.session }

// Add inserts e if no entry for e.Path exists yet. It reports whether the
// entry was inserted: false with a nil error means another recording of the
// same path already won, which callers treat as success.
//
// Re-adding a path with a different identity returns a DuplicateConflictError
// rather than overwriting.
func (s *EntrySet) Add(e Entry) (bool, error) {
	if err := e.validate(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.byPath[e.Path]; ok {
		if !identityEqual(prev.Identity, e.Identity) {
			return false, &DuplicateConflictError{Path: e.Path}
		}
		return false, nil
	}

	stored := e
	stored.Children = append([]string(nil), e.Children...)
	s.byPath[e.Path] = &stored
	s.order = append(s.order, &stored)
	return true, nil
}

// Has reports whether an entry for the normalized path is already present.
func (s *EntrySet) Has(relPath string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.byPath[NormalizePath(relPath)]
	return ok
}

// Len returns the number of recorded entries.
func (s *EntrySet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// Entries returns a point-in-time copy of all entries in insertion order.
func (s *EntrySet) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.order))
	for i, e := range s.order {
		out[i] = *e
	}
	return out
}

func identityEqual(a, b Identity) bool {
	switch av := a.(type) {
	case Content:
		bv, ok := b.(Content)
		return ok && av.Hash == bv.Hash && bytes.Equal(av.Contents, bv.Contents)
	case Boundary:
		bv, ok := b.(Boundary)
		return ok && av == bv
	default:
		return false
	}
}

// Wire is the serialization-ready form of an EntrySet.
type Wire struct {
	Session string      `json:"session"`
	Entries []WireEntry `json:"entries"`
}

// WireEntry mirrors Entry with the identity variant flattened into optional
// fields. Tri-states serialize as optional bools so "unset" stays
// distinguishable from false on the wire.
type WireEntry struct {
	Path              string   `json:"path"`
	IsDirectory       *bool    `json:"is_directory,omitempty"`
	IsExecutable      *bool    `json:"is_executable,omitempty"`
	PathIsAbsolute    *bool    `json:"path_is_absolute,omitempty"`
	Hash              string   `json:"hash,omitempty"`
	Contents          []byte   `json:"contents,omitempty"`
	RootSymlink       string   `json:"root_symlink,omitempty"`
	RootSymlinkTarget string   `json:"root_symlink_target,omitempty"`
	Children          []string `json:"children,omitempty"`
}

// Extract converts the set to its wire form. It fails if any entry still has
// an unset isDirectory, since that only ever appears transiently during
// construction and must not reach the transport layer.
func (s *EntrySet) Extract() (Wire, error) {
	entries := s.Entries()
	w := Wire{
		Session: s.session,
		Entries: make([]WireEntry, 0, len(entries)),
	}
	for i := range entries {
		e := &entries[i]
		if !e.IsDirectory.IsSet() {
			return Wire{}, fmt.Errorf("entry %q: isDirectory unset at extraction", e.Path)
		}
		we := WireEntry{
			Path:           e.Path,
			IsDirectory:    tristatePtr(e.IsDirectory),
			IsExecutable:   tristatePtr(e.IsExecutable),
			PathIsAbsolute: tristatePtr(e.PathIsAbsolute),
			Children:       e.Children,
		}
		switch id := e.Identity.(type) {
		case Content:
			we.Hash = id.Hash
			we.Contents = id.Contents
		case Boundary:
			we.RootSymlink = id.Symlink
			we.RootSymlinkTarget = id.Target
		}
		w.Entries = append(w.Entries, we)
	}
	return w, nil
}

func tristatePtr(t Tristate) *bool {
	if !t.IsSet() {
		return nil
	}
	b := t.Bool()
	return &b
}
