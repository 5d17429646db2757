package transcode

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"squeeze/internal/classify"
)

// FolderTasks lists the heavy images under dir as in-place tasks. A shallow
// listing only looks at files directly inside dir. Images whose converted
// name already exists are skipped so nothing pre-existing is overwritten.
func FolderTasks(dir string, shallow bool, ext string) (tasks []Task, skipped []string, err error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, nil, err
	}
	if !info.IsDir() {
		return nil, nil, &fs.PathError{Op: "convert", Path: dir, Err: fs.ErrInvalid}
	}

	claimed := map[string]bool{}
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == dir {
				return walkErr
			}
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if shallow && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !classify.IsHeavy(classify.Ext(d.Name())) {
			return nil
		}

		out := OutputName(path, ext)
		rel, relErr := filepath.Rel(dir, path)
		if relErr != nil {
			rel = d.Name()
		}
		if claimed[out] {
			skipped = append(skipped, rel)
			return nil
		}
		if _, statErr := os.Lstat(out); statErr == nil {
			skipped = append(skipped, rel)
			return nil
		}
		claimed[out] = true
		tasks = append(tasks, Task{
			Input:       path,
			Output:      out,
			Name:        filepath.ToSlash(rel),
			RemoveInput: true,
		})
		return nil
	})
	return tasks, skipped, err
}

// ConvertFolder transcodes a folder in place. Originals are removed only
// after their smaller replacement is on disk.
func (e *Engine) ConvertFolder(ctx context.Context, dir string, shallow bool) (Totals, error) {
	tasks, skipped, err := FolderTasks(dir, shallow, e.Codec.Profile().Ext())
	if err != nil {
		return Totals{}, err
	}
	for _, name := range skipped {
		e.logger().Warn("target already exists, skipping", "name", name)
	}
	e.logger().Info("converting folder", "dir", dir, "images", len(tasks), "shallow", shallow)
	return e.Run(ctx, tasks), nil
}
