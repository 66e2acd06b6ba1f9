package record

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// scriptedSource is a Source whose RealPath answers follow a per-path script,
// one answer per call (the last answer repeats). It lets tests stage the
// walk-vs-recheck inconsistency a concurrently mutated tree produces, which
// real fixtures cannot do deterministically.
type scriptedSource struct {
	root  string
	real  map[string][]string
	calls map[string]int
}

func newScriptedSource(root string, real map[string][]string) *scriptedSource {
	return &scriptedSource{root: root, real: real, calls: map[string]int{}}
}

func (s *scriptedSource) Root() string { return s.root }

func (s *scriptedSource) RealPath(rel string) (string, error) {
	answers, ok := s.real[rel]
	if !ok {
		return "", fmt.Errorf("no scripted real path for %q", rel)
	}
	i := s.calls[rel]
	s.calls[rel]++
	if i >= len(answers) {
		i = len(answers) - 1
	}
	return answers[i], nil
}

func (s *scriptedSource) Hash(string) (string, error)        { return "", errors.New("not scripted") }
func (s *scriptedSource) IsDirectory(string) (bool, error)   { return false, errors.New("not scripted") }
func (s *scriptedSource) IsExecutable(string) (bool, error)  { return false, errors.New("not scripted") }
func (s *scriptedSource) Children(string) ([]string, error)  { return nil, errors.New("not scripted") }

func TestClassify_RootIsInternal(t *testing.T) {
	src := newTestSource(t, t.TempDir())
	cls, err := Classify(src, ".")
	require.NoError(t, err)
	require.False(t, cls.External)
}

func TestClassify_PlainFileIsInternal(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "f"), []byte("f"), 0o644))

	src := newTestSource(t, root)
	cls, err := Classify(src, "sub/f")
	require.NoError(t, err)
	require.False(t, cls.External)
}

func TestClassify_InternalSymlinkChainStaysInternal(t *testing.T) {
	skipIfNoSymlinks(t)
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "real"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "real", "f"), []byte("f"), 0o644))
	require.NoError(t, os.Symlink(filepath.Join(root, "real"), filepath.Join(root, "alias")))
	require.NoError(t, os.Symlink(filepath.Join(root, "alias"), filepath.Join(root, "alias2")))

	src := newTestSource(t, root)
	cls, err := Classify(src, "alias2/f")
	require.NoError(t, err)
	require.False(t, cls.External)
}

func TestClassify_ShortestEscapingPrefixWins(t *testing.T) {
	skipIfNoSymlinks(t)
	root := t.TempDir()
	external := t.TempDir()

	require.NoError(t, os.MkdirAll(filepath.Join(external, "deep", "er"), 0o755))
	require.NoError(t, os.Symlink(external, filepath.Join(root, "out")))

	src := newTestSource(t, root)
	cls, err := Classify(src, "out/deep/er")
	require.NoError(t, err)
	require.True(t, cls.External)
	require.Equal(t, "out", cls.RootSymlink)
	require.Equal(t, realpath(t, external), cls.RootSymlinkTarget)
}

func TestClassify_DanglingExternalSymlink(t *testing.T) {
	skipIfNoSymlinks(t)
	root := t.TempDir()
	external := t.TempDir()

	missing := filepath.Join(external, "not-there")
	require.NoError(t, os.Symlink(missing, filepath.Join(root, "dangling")))

	src := newTestSource(t, root)
	cls, err := Classify(src, "dangling")
	require.NoError(t, err)
	require.True(t, cls.External)
	require.Equal(t, "dangling", cls.RootSymlink)
	require.Equal(t, filepath.ToSlash(filepath.Join(realpath(t, external), "not-there")), cls.RootSymlinkTarget)
}

func TestClassify_RecoversFromSingleBoundaryShift(t *testing.T) {
	root := filepath.FromSlash("/project")
	t1 := filepath.FromSlash("/external/one")
	t2 := filepath.FromSlash("/external/two")

	// The boundary recheck sees a different target than the walk did; the
	// single full retry then observes stable state and must succeed with it.
	src := newScriptedSource(root, map[string][]string{
		".":    {root},
		"link": {t1, t2, t2, t2},
	})

	cls, err := Classify(src, "link")
	require.NoError(t, err)
	require.True(t, cls.External)
	require.Equal(t, "link", cls.RootSymlink)
	require.Equal(t, filepath.ToSlash(t2), cls.RootSymlinkTarget)
	// Walk, recheck, retry walk, retry recheck: no further attempts.
	require.Equal(t, 4, src.calls["link"])
}

func TestClassify_PersistentBoundaryShiftFails(t *testing.T) {
	root := filepath.FromSlash("/project")
	targets := []string{
		filepath.FromSlash("/external/one"),
		filepath.FromSlash("/external/two"),
		filepath.FromSlash("/external/three"),
		filepath.FromSlash("/external/four"),
	}

	// Every observation disagrees with the previous one, so the retry also
	// ends inconsistent and classification must give up.
	src := newScriptedSource(root, map[string][]string{
		".":    {root},
		"link": targets,
	})

	_, err := Classify(src, "link")
	var ambiguous *AmbiguousBoundaryError
	require.ErrorAs(t, err, &ambiguous)
	require.Equal(t, "link", ambiguous.Path)
	require.Equal(t, filepath.ToSlash(targets[2]), ambiguous.First)
	require.Equal(t, filepath.ToSlash(targets[3]), ambiguous.Second)
	// Exactly one retry: walk, recheck, retry walk, retry recheck.
	require.Equal(t, 4, src.calls["link"])
}

func TestClassify_ShiftSettlingInsideRootIsInternal(t *testing.T) {
	root := filepath.FromSlash("/project")
	t1 := filepath.FromSlash("/external/one")
	t2 := filepath.FromSlash("/external/two")
	inRoot := filepath.Join(root, "real")

	// The retry walk finds the path resolving inside the root again; that is
	// a settled internal classification, not an error.
	src := newScriptedSource(root, map[string][]string{
		".":    {root},
		"link": {t1, t2, inRoot},
	})

	cls, err := Classify(src, "link")
	require.NoError(t, err)
	require.False(t, cls.External)
	require.Equal(t, 3, src.calls["link"])
}

func TestClassify_BackslashInputNormalized(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "a", "b"), 0o755))

	src := newTestSource(t, root)
	cls, err := Classify(src, `a\b`)
	require.NoError(t, err)
	require.False(t, cls.External)
}
