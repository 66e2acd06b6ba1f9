package record

import (
	"path"

	"golang.org/x/sync/errgroup"

	"github.com/codalotl/fingerprint/internal/simplelogger"
)

// Options configures a Cache.
type Options struct {
	// Whitelist lists path patterns for symlinks that must be recorded as
	// boundary entries even when their targets are unreachable. See
	// Whitelist for matching rules.
	Whitelist []string

	// InlineThreshold embeds regular-file contents into entries when the
	// file is at most this many bytes. Zero disables inlining. Inlining
	// requires the source to implement ContentsReader.
	InlineThreshold int

	// Parallelism bounds concurrent fan-out per directory during recursive
	// recording. Values < 1 mean 4.
	Parallelism int
}

// Cache wraps a Source and records a fingerprint entry for every distinct
// path it is asked about, plus (recursively) everything reachable under
// internal directories. Get has the same shape as Source.Hash so build-graph
// code can use a Cache wherever it would use the source directly.
//
// Construction eagerly pre-scans for whitelisted escaping symlinks and
// records them immediately, so whitelisted-but-unreachable symlinks are
// captured even if no later lookup ever touches them.
type Cache struct {
	src             Source
	set             *EntrySet
	wl              *Whitelist
	inlineThreshold int
	parallelism     int
}

// New builds a Cache recording into set and runs the eager whitelist
// pre-scan.
func New(src Source, set *EntrySet, opts Options) (*Cache, error) {
	parallelism := opts.Parallelism
	if parallelism < 1 {
		parallelism = 4
	}
	c := &Cache{
		src:             src,
		set:             set,
		wl:              NewWhitelist(opts.Whitelist),
		inlineThreshold: opts.InlineThreshold,
		parallelism:     parallelism,
	}
	if err := c.prescan(); err != nil {
		return nil, err
	}
	return c, nil
}

// Get returns the content hash of relPath and records it (and everything
// reachable under it) as a side effect. Recording the same path again is a
// no-op; the hash is still returned for transparency.
//
// For external paths the returned hash is that of the resolved real target;
// for a whitelisted external symlink whose target is unreachable, Get
// records a boundary-only entry and returns an empty hash with no error.
func (c *Cache) Get(relPath string) (string, error) {
	rel := NormalizePath(relPath)
	if c.set.Has(rel) {
		h, err := c.src.Hash(rel)
		if err != nil {
			if c.wl.Match(rel) {
				return "", nil
			}
			return "", &UnreachableTargetError{Path: rel, Err: err}
		}
		return h, nil
	}

	cls, err := Classify(c.src, rel)
	if err != nil {
		return "", err
	}
	if cls.External {
		return c.recordExternal(rel, cls)
	}

	isDir, err := c.src.IsDirectory(rel)
	if err != nil {
		return "", &UnreachableTargetError{Path: rel, Err: err}
	}
	if isDir {
		return c.recordDirectory(rel)
	}
	return c.recordFile(rel)
}

// prescan records whitelisted escaping symlinks before any Get call. It
// considers root-level entries matching the whitelist as well as the
// patterns themselves, so deeper whitelisted symlinks are captured too.
func (c *Cache) prescan() error {
	patterns := c.wl.Patterns()
	if len(patterns) == 0 {
		return nil
	}

	candidates := make([]string, 0, len(patterns))
	seen := make(map[string]struct{})
	if names, err := c.src.Children("."); err == nil {
		for _, name := range names {
			if c.wl.Match(name) {
				candidates = append(candidates, name)
				seen[name] = struct{}{}
			}
		}
	}
	for _, pat := range patterns {
		if _, ok := seen[pat]; !ok {
			candidates = append(candidates, pat)
		}
	}

	for _, cand := range candidates {
		cls, err := Classify(c.src, cand)
		if err != nil {
			// A whitelisted pattern may name a path absent from this
			// checkout; that is not fatal to construction.
			simplelogger.Log("prescan: skipping whitelisted path %q: %v", cand, err)
			continue
		}
		if !cls.External {
			continue
		}
		if _, err := c.recordExternal(cand, cls); err != nil {
			return err
		}
	}
	return nil
}

func (c *Cache) recordExternal(rel string, cls Classification) (string, error) {
	hash, hashErr := c.src.Hash(rel)
	if hashErr != nil && !c.wl.Match(rel) && !c.wl.Match(cls.RootSymlink) {
		return "", &UnreachableTargetError{Path: rel, Err: hashErr}
	}

	e := Entry{
		Path:           cls.RootSymlink,
		IsDirectory:    TristateFalse,
		PathIsAbsolute: TristateFalse,
		Identity: Boundary{
			Symlink: cls.RootSymlink,
			Target:  cls.RootSymlinkTarget,
		},
	}
	if exec, err := c.src.IsExecutable(cls.RootSymlink); err == nil {
		e.IsExecutable = TristateOf(exec)
	}
	if _, err := c.set.Add(e); err != nil {
		return "", err
	}

	if hashErr != nil {
		simplelogger.Warn("record: boundary %q -> %q has unreachable target, recorded without hash: %v",
			cls.RootSymlink, cls.RootSymlinkTarget, hashErr)
		return "", nil
	}
	return hash, nil
}

func (c *Cache) recordDirectory(rel string) (string, error) {
	hash, err := c.src.Hash(rel)
	if err != nil {
		return "", &UnreachableTargetError{Path: rel, Err: err}
	}
	names, err := c.src.Children(rel)
	if err != nil {
		return "", &UnreachableTargetError{Path: rel, Err: err}
	}

	e := Entry{
		Path:           rel,
		IsDirectory:    TristateTrue,
		PathIsAbsolute: TristateFalse,
		Identity:       Content{Hash: hash},
		Children:       names,
	}
	if exec, err := c.src.IsExecutable(rel); err == nil {
		e.IsExecutable = TristateOf(exec)
	}
	added, err := c.set.Add(e)
	if err != nil {
		return "", err
	}
	if !added {
		// Another recording of this directory won the insert; it owns the
		// subtree traversal.
		return hash, nil
	}

	var g errgroup.Group
	g.SetLimit(c.parallelism)
	for _, name := range names {
		child := path.Join(rel, name)
		g.Go(func() error {
			_, err := c.Get(child)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}
	return hash, nil
}

func (c *Cache) recordFile(rel string) (string, error) {
	hash, err := c.src.Hash(rel)
	if err != nil {
		return "", &UnreachableTargetError{Path: rel, Err: err}
	}
	exec, err := c.src.IsExecutable(rel)
	if err != nil {
		return "", &UnreachableTargetError{Path: rel, Err: err}
	}

	id := Content{Hash: hash}
	if c.inlineThreshold > 0 {
		if cr, ok := c.src.(ContentsReader); ok {
			if b, err := cr.Contents(rel); err == nil && len(b) <= c.inlineThreshold {
				id.Contents = b
			}
		}
	}

	e := Entry{
		Path:           rel,
		IsDirectory:    TristateFalse,
		IsExecutable:   TristateOf(exec),
		PathIsAbsolute: TristateFalse,
		Identity:       id,
	}
	if _, err := c.set.Add(e); err != nil {
		return "", err
	}
	return hash, nil
}
