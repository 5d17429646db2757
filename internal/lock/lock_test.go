package lock

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireIsExclusivePerRoot(t *testing.T) {
	lockDir := t.TempDir()
	root := t.TempDir()

	first, err := Acquire(lockDir, root)
	require.NoError(t, err)

	_, err = Acquire(lockDir, filepath.Join(root, "."))
	assert.ErrorIs(t, err, ErrHeld)

	other, err := Acquire(lockDir, t.TempDir())
	require.NoError(t, err)
	require.NoError(t, other.Release())

	require.NoError(t, first.Release())
	again, err := Acquire(lockDir, root)
	require.NoError(t, err)
	require.NoError(t, again.Release())
	assert.FileExists(t, again.Path())
}

func TestPathForIsStable(t *testing.T) {
	a, err := PathFor("/tmp", "/lib/books")
	require.NoError(t, err)
	b, err := PathFor("/tmp", "/lib/books/")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Regexp(t, `^/tmp/squeeze-[0-9a-f]{16}\.lock$`, a)
}
