package transcode

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"squeeze/internal/classify"
	"squeeze/internal/extract"
	"squeeze/internal/repack"
)

// ArchiveResult describes one converted archive.
type ArchiveResult struct {
	Source      string
	Output      string
	SourceSize  int64
	ArchiveSize int64
	Totals      Totals
}

// ArchiveConverter unpacks an archive into scratch space, transcodes its
// heavy images and writes a new store-only zip. The source is never touched.
type ArchiveConverter struct {
	Engine    *Engine
	Extractor *extract.Extractor
	// ScratchDir holds per-run working directories; empty means os.TempDir.
	ScratchDir string
}

// OutputPath is the converted archive path for src: a zip beside it named
// after its stem with the profile suffix.
func OutputPath(src string, p Profile) string {
	base := filepath.Base(src)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(src), stem+p.Suffix()+".zip")
}

// Convert writes the converted form of src to dst.
func (c *ArchiveConverter) Convert(ctx context.Context, src, dst string) (ArchiveResult, error) {
	res := ArchiveResult{Source: src, Output: dst}
	if !extract.IsArchive(src) {
		return res, fmt.Errorf("%w: %s", extract.ErrUnsupportedFormat, src)
	}
	info, err := os.Stat(src)
	if err != nil {
		return res, err
	}
	res.SourceSize = info.Size()

	base := c.ScratchDir
	if base == "" {
		base = os.TempDir()
	}
	scratch := filepath.Join(base, "squeeze-"+uuid.NewString())
	if err := os.MkdirAll(scratch, 0o700); err != nil {
		return res, err
	}
	defer os.RemoveAll(scratch)

	log := c.Engine.logger().With("archive", filepath.Base(src))

	files, err := c.Extractor.ExtractAll(ctx, src, filepath.Join(scratch, "in"))
	if err != nil {
		return res, err
	}

	ext := c.Engine.Codec.Profile().Ext()
	outDir := filepath.Join(scratch, "out")
	tasks, order := archiveTasks(files, outDir, ext)
	log.Info("converting archive", "members", len(files), "images", len(tasks))

	res.Totals = c.Engine.Run(ctx, tasks)
	converted, untouched := c.collect(files, tasks, order)

	if err := repack.Write(dst, converted, untouched); err != nil {
		return res, err
	}
	outInfo, err := os.Stat(dst)
	if err != nil {
		return res, fmt.Errorf("%w: %v", repack.ErrArchiveWriteFailed, err)
	}
	res.ArchiveSize = outInfo.Size()
	return res, nil
}

// archiveTasks picks the heavy images among files. A converted name that
// would collide with another member keeps the later image as-is. order maps
// each task index back to its position in files.
func archiveTasks(files []extract.File, outDir, ext string) ([]Task, []int) {
	taken := make(map[string]bool, len(files))
	for _, f := range files {
		taken[strings.ToLower(f.Name)] = true
	}

	var (
		tasks []Task
		order []int
	)
	for i, f := range files {
		if !classify.IsHeavy(classify.Ext(f.Name)) {
			continue
		}
		name := strings.TrimSuffix(f.Name, path.Ext(f.Name)) + ext
		key := strings.ToLower(name)
		if taken[key] {
			continue
		}
		taken[key] = true
		tasks = append(tasks, Task{
			Input:  f.Path,
			Output: filepath.Join(outDir, filepath.FromSlash(name)),
			Name:   name,
		})
		order = append(order, i)
	}
	return tasks, order
}

// collect splits files into accepted replacements and members carried over
// unchanged, the latter in extraction order. Acceptance is read back from
// disk: a task's output exists only when the engine kept it.
func (c *ArchiveConverter) collect(files []extract.File, tasks []Task, order []int) ([]repack.Member, []repack.Member) {
	replaced := make(map[int]bool, len(tasks))
	var converted []repack.Member
	for i, t := range tasks {
		if info, err := os.Stat(t.Output); err == nil && info.Size() > 0 {
			replaced[order[i]] = true
			converted = append(converted, repack.Member{Name: t.Name, Path: t.Output})
		}
	}

	var untouched []repack.Member
	for i, f := range files {
		if replaced[i] {
			continue
		}
		untouched = append(untouched, repack.Member{Name: f.Name, Path: f.Path})
	}
	return converted, untouched
}
