package repack

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func member(t *testing.T, dir, name, body string) Member {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return Member{Name: name, Path: path}
}

func TestWriteOrderAndStoreMethod(t *testing.T) {
	src := t.TempDir()
	converted := []Member{
		member(t, src, "c.avif", "ccc"),
		member(t, src, "a.avif", "a"),
		member(t, src, "sub/b.avif", "bb"),
	}
	untouched := []Member{
		member(t, src, "zz.txt", "notes"),
		member(t, src, "info.xml", "<x/>"),
	}

	dst := filepath.Join(t.TempDir(), "out", "book_avif.zip")
	require.NoError(t, Write(dst, converted, untouched))

	zr, err := zip.OpenReader(dst)
	require.NoError(t, err)
	defer zr.Close()

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
		assert.Equal(t, zip.Store, f.Method, f.Name)
	}
	assert.Equal(t, []string{"a.avif", "c.avif", "sub/b.avif", "zz.txt", "info.xml"}, names)

	rc, err := zr.File[1].Open()
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "ccc", string(body))
}

func TestWriteReplacesExisting(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "book_avif.zip")
	require.NoError(t, os.WriteFile(dst, []byte("stale"), 0o644))

	require.NoError(t, Write(dst, []Member{member(t, src, "a.avif", "a")}, nil))

	zr, err := zip.OpenReader(dst)
	require.NoError(t, err)
	defer zr.Close()
	require.Len(t, zr.File, 1)
}

func TestWriteMissingMemberLeavesNoOutput(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "book_avif.zip")

	err := Write(dst, []Member{{Name: "a.avif", Path: filepath.Join(dir, "gone.avif")}}, nil)
	assert.ErrorIs(t, err, ErrArchiveWriteFailed)

	_, statErr := os.Stat(dst)
	assert.True(t, os.IsNotExist(statErr))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temporary file must be cleaned up")
}
