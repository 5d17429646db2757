// Package scanner walks a root directory and builds the ranked list of
// archives and image folders an operator can choose to recompress.
package scanner

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"

	"squeeze/internal/classify"
	"squeeze/internal/extract"
)

// LooseName is the display name of the entry holding images that sit
// directly in the root.
const LooseName = "./"

// Lister enumerates member names of an archive without extracting it.
type Lister interface {
	Enumerate(ctx context.Context, archivePath string) []string
}

// Scanner produces classified entries for one root directory.
type Scanner struct {
	Fs         afero.Fs
	Lister     Lister
	Classifier classify.Classifier
	Log        *slog.Logger
}

// Scan walks root once and returns the listed entries sorted ascending by
// size, so the heaviest unit is last.
func (s *Scanner) Scan(ctx context.Context, root string) ([]classify.Entry, error) {
	info, err := s.Fs.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", root)
	}

	var units []classify.Unit

	archives, err := s.archiveUnits(ctx, root)
	if err != nil {
		return nil, err
	}
	units = append(units, archives...)

	folders, loose, err := s.folderUnits(root)
	if err != nil {
		return nil, err
	}
	units = append(units, folders...)
	if loose != nil {
		units = append(units, *loose)
	}

	entries := make([]classify.Entry, 0, len(units))
	for _, u := range units {
		e := s.Classifier.Classify(u)
		if !e.Listed() {
			continue
		}
		entries = append(entries, e)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Size < entries[j].Size
	})

	s.logger().Debug("scan complete", "root", root, "units", len(units), "listed", len(entries))
	return entries, nil
}

func (s *Scanner) archiveUnits(ctx context.Context, root string) ([]classify.Unit, error) {
	var units []classify.Unit
	err := afero.Walk(s.Fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			s.logger().Warn("skipping unreadable path", "path", path, "error", err)
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() || !info.Mode().IsRegular() || !extract.IsArchive(info.Name()) {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		names := s.Lister.Enumerate(ctx, path)
		units = append(units, classify.Unit{
			Location:    path,
			Kind:        classify.KindArchive,
			DisplayName: info.Name(),
			Size:        info.Size(),
			Exts:        classify.ImageExts(names),
		})
		return nil
	})
	return units, err
}

func (s *Scanner) folderUnits(root string) ([]classify.Unit, *classify.Unit, error) {
	children, err := afero.ReadDir(s.Fs, root)
	if err != nil {
		return nil, nil, err
	}

	var (
		units     []classify.Unit
		looseExts []string
		looseSize int64
	)
	for _, child := range children {
		full := filepath.Join(root, child.Name())
		if child.IsDir() {
			exts, size := s.subtreeProfile(full)
			if len(exts) == 0 {
				continue
			}
			units = append(units, classify.Unit{
				Location:    full,
				Kind:        classify.KindFolder,
				DisplayName: child.Name() + "/",
				Size:        size,
				Exts:        exts,
			})
			continue
		}
		if !child.Mode().IsRegular() {
			continue
		}
		if ext := classify.Ext(child.Name()); classify.IsImage(ext) {
			looseExts = append(looseExts, ext)
			looseSize += child.Size()
		}
	}

	if len(looseExts) == 0 {
		return units, nil, nil
	}
	return units, &classify.Unit{
		Location:    root,
		Kind:        classify.KindFolder,
		DisplayName: LooseName,
		Size:        looseSize,
		Shallow:     true,
		Exts:        looseExts,
	}, nil
}

// subtreeProfile returns the image extensions under dir and the total size
// of every regular file in it.
func (s *Scanner) subtreeProfile(dir string) ([]string, int64) {
	var (
		exts []string
		size int64
	)
	_ = afero.Walk(s.Fs, dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		size += info.Size()
		if ext := classify.Ext(info.Name()); classify.IsImage(ext) {
			exts = append(exts, ext)
		}
		return nil
	})
	return exts, size
}

func (s *Scanner) logger() *slog.Logger {
	if s.Log == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return s.Log
}
