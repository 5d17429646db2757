package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"sort"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildZip(t *testing.T, members map[string]string, dirs ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, d := range dirs {
		_, err := zw.Create(d)
		require.NoError(t, err)
	}
	names := make([]string, 0, len(members))
	for name := range members {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(members[name]))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func memExtractor(fs afero.Fs, run Runner) *Extractor {
	return &Extractor{Fs: fs, Run: run}
}

func TestFormatOf(t *testing.T) {
	assert.Equal(t, FormatZip, FormatOf("a/b/book.CBZ"))
	assert.Equal(t, FormatRar, FormatOf("book.cbr"))
	assert.Equal(t, Format7z, FormatOf("book.7z"))
	assert.Equal(t, FormatUnknown, FormatOf("book.tar"))
	assert.False(t, IsArchive("cover.jpg"))
}

func TestEnumerateZip(t *testing.T) {
	fs := afero.NewMemMapFs()
	data := buildZip(t, map[string]string{"ch1/001.jpg": "a", "ch1/002.png": "b", "info.txt": "c"}, "ch1/")
	require.NoError(t, afero.WriteFile(fs, "/lib/book.zip", data, 0o644))

	names := memExtractor(fs, nil).Enumerate(context.Background(), "/lib/book.zip")
	assert.Equal(t, []string{"ch1/001.jpg", "ch1/002.png", "info.txt"}, names)
}

func TestEnumerateSwallowsFailures(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/lib/broken.zip", []byte("not a zip"), 0o644))
	failing := func(context.Context, string, ...string) ([]byte, error) {
		return nil, errors.New("tool missing")
	}
	x := memExtractor(fs, failing)

	assert.Empty(t, x.Enumerate(context.Background(), "/lib/broken.zip"))
	assert.Empty(t, x.Enumerate(context.Background(), "/lib/missing.rar"))
	assert.Empty(t, x.Enumerate(context.Background(), "/lib/book.tar"))
}

func TestEnumerateRarUsesLsar(t *testing.T) {
	var gotName string
	var gotArgs []string
	run := func(_ context.Context, name string, args ...string) ([]byte, error) {
		gotName, gotArgs = name, args
		return []byte(`{"lsarFormatVersion":2,"lsarContents":[
			{"XADFileName":"vol1","XADIsDirectory":true},
			{"XADFileName":"vol1/p1.jpg"},
			{"XADFileName":"vol1/p2.webp"}]}`), nil
	}
	names := memExtractor(afero.NewMemMapFs(), run).Enumerate(context.Background(), "/lib/book.cbr")
	assert.Equal(t, "lsar", gotName)
	assert.Equal(t, []string{"-j", "/lib/book.cbr"}, gotArgs)
	assert.Equal(t, []string{"vol1/p1.jpg", "vol1/p2.webp"}, names)
}

func TestParse7zSlt(t *testing.T) {
	out := []byte(`7-Zip [64] 16.02

Listing archive: book.7z

--
Path = book.7z
Type = 7z

----------
Path = pages
Folder = +
Attributes = D

Path = pages/001.jpg
Folder = -
Size = 1234

Path = pages/002.png
Folder = -
`)
	assert.Equal(t, []string{"pages/001.jpg", "pages/002.png"}, parse7zSlt(out))
}

func TestExtractAllZip(t *testing.T) {
	fs := afero.NewMemMapFs()
	data := buildZip(t, map[string]string{"a/1.jpg": "one", "b.txt": "text"}, "a/")
	require.NoError(t, afero.WriteFile(fs, "/lib/book.zip", data, 0o644))

	files, err := memExtractor(fs, nil).ExtractAll(context.Background(), "/lib/book.zip", "/scratch/in")
	require.NoError(t, err)
	require.Len(t, files, 2)

	byName := map[string]string{}
	for _, f := range files {
		byName[f.Name] = f.Path
	}
	require.Contains(t, byName, "a/1.jpg")
	require.Contains(t, byName, "b.txt")
	got, err := afero.ReadFile(fs, byName["a/1.jpg"])
	require.NoError(t, err)
	assert.Equal(t, "one", string(got))
	assert.Equal(t, filepath.Join("/scratch/in", "a", "1.jpg"), byName["a/1.jpg"])
}

func TestExtractAllUnsupported(t *testing.T) {
	_, err := memExtractor(afero.NewMemMapFs(), nil).ExtractAll(context.Background(), "/lib/x.tar", "/scratch")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestExtractAllToolFailure(t *testing.T) {
	failing := func(context.Context, string, ...string) ([]byte, error) {
		return nil, errors.New("exit status 2")
	}
	_, err := memExtractor(afero.NewMemMapFs(), failing).ExtractAll(context.Background(), "/lib/x.7z", "/scratch")
	assert.ErrorIs(t, err, ErrExtractionFailed)
}

func TestSafeJoinRejectsEscapes(t *testing.T) {
	got, err := safeJoin("/scratch/in", "../../etc/passwd")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/scratch/in", "etc", "passwd"), got)

	got, err = safeJoin("/scratch/in", "ok/page.jpg")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/scratch/in", "ok", "page.jpg"), got)
}
