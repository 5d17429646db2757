// Package repack writes converted archives as store-only zip files.
package repack

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var ErrArchiveWriteFailed = errors.New("archive write failed")

// Member is a file to place in the archive under Name.
type Member struct {
	Name string
	Path string
}

// Write builds dst from converted members, sorted by name, followed by
// untouched members in the order given. Members are stored without
// compression. dst only appears once the archive is complete.
func Write(dst string, converted, untouched []Member) (err error) {
	sorted := append([]Member(nil), converted...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrArchiveWriteFailed, err)
	}
	tmp, err := os.CreateTemp(dir, ".squeeze-*.zip.tmp")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrArchiveWriteFailed, err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	zw := zip.NewWriter(tmp)
	seen := map[string]bool{}
	for _, m := range append(sorted, untouched...) {
		name := cleanName(m.Name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		if err = addFile(zw, name, m.Path); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrArchiveWriteFailed, name, err)
		}
	}
	if err = zw.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrArchiveWriteFailed, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("%w: %v", ErrArchiveWriteFailed, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrArchiveWriteFailed, err)
	}
	if err = replaceFile(tmp.Name(), dst); err != nil {
		return fmt.Errorf("%w: %v", ErrArchiveWriteFailed, err)
	}
	return nil
}

func addFile(zw *zip.Writer, name, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = name
	header.Method = zip.Store

	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, f)
	return err
}

func cleanName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	return strings.TrimLeft(name, "/")
}

func replaceFile(tmpPath, destPath string) error {
	if err := os.Rename(tmpPath, destPath); err == nil {
		return nil
	}
	if err := os.Remove(destPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return os.Rename(tmpPath, destPath)
}
