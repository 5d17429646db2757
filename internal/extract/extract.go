// Package extract lists and unpacks the archive formats squeeze understands.
//
// Zip containers (zip, cbz) are read natively. RAR (rar, cbr) goes through
// The Unarchiver's lsar/unar tools and 7z through the 7z binary.
package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"squeeze/internal/classify"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported archive format")
	ErrExtractionFailed  = errors.New("archive extraction failed")
)

// Format is an archive container family.
type Format int

const (
	FormatUnknown Format = iota
	FormatZip
	FormatRar
	Format7z
)

var formatByExt = map[string]Format{
	"zip": FormatZip,
	"cbz": FormatZip,
	"rar": FormatRar,
	"cbr": FormatRar,
	"7z":  Format7z,
}

// FormatOf classifies name by extension.
func FormatOf(name string) Format {
	return formatByExt[classify.Ext(name)]
}

// IsArchive reports whether name has a supported archive extension.
func IsArchive(name string) bool {
	return FormatOf(name) != FormatUnknown
}

// File is one extracted file: its location on disk and its slash-separated
// name inside the archive.
type File struct {
	Path string
	Name string
}

// Runner executes an external tool and returns its stdout.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs tools with os/exec, folding stderr into the error.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return out, fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return out, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

const defaultListTimeout = 30 * time.Second

// Tools names the external archive executables. Empty fields fall back to
// the names on PATH.
type Tools struct {
	Unar   string
	Lsar   string
	SevenZ string
}

func binOr(configured, fallback string) string {
	if strings.TrimSpace(configured) == "" {
		return fallback
	}
	return configured
}

// Extractor reads archives from Fs. External tools always see real paths,
// so Fs must be backed by the OS filesystem for rar and 7z.
type Extractor struct {
	Fs          afero.Fs
	Run         Runner
	Tools       Tools
	Log         *slog.Logger
	ListTimeout time.Duration
}

// New returns an Extractor on the OS filesystem.
func New(log *slog.Logger) *Extractor {
	return &Extractor{Fs: afero.NewOsFs(), Run: ExecRunner, Log: log, ListTimeout: defaultListTimeout}
}

// Enumerate lists the file names inside an archive without extracting it.
// Failures are logged and yield an empty list so a broken archive
// classifies as "no images" instead of aborting a scan.
func (x *Extractor) Enumerate(ctx context.Context, archivePath string) []string {
	names, err := x.list(ctx, archivePath)
	if err != nil {
		x.logger().Debug("archive listing failed", "archive", archivePath, "error", err)
		return nil
	}
	return names
}

func (x *Extractor) list(ctx context.Context, archivePath string) ([]string, error) {
	timeout := x.ListTimeout
	if timeout <= 0 {
		timeout = defaultListTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	switch FormatOf(archivePath) {
	case FormatZip:
		return x.listZip(archivePath)
	case FormatRar:
		out, err := x.Run(ctx, binOr(x.Tools.Lsar, "lsar"), "-j", archivePath)
		if err != nil {
			return nil, err
		}
		return parseLsarJSON(out)
	case Format7z:
		out, err := x.Run(ctx, binOr(x.Tools.SevenZ, "7z"), "l", "-slt", archivePath)
		if err != nil {
			return nil, err
		}
		return parse7zSlt(out), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Base(archivePath))
	}
}

func (x *Extractor) listZip(archivePath string) ([]string, error) {
	zr, closer, err := x.openZip(archivePath)
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	var names []string
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, "/") {
			continue
		}
		names = append(names, f.Name)
	}
	return names, nil
}

func (x *Extractor) openZip(archivePath string) (*zip.Reader, io.Closer, error) {
	f, err := x.Fs.Open(archivePath)
	if err != nil {
		return nil, nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	zr, err := zip.NewReader(f, info.Size())
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	return zr, f, nil
}

// ExtractAll unpacks archivePath into destDir and returns every regular file
// it produced, in traversal order.
func (x *Extractor) ExtractAll(ctx context.Context, archivePath, destDir string) ([]File, error) {
	format := FormatOf(archivePath)
	if format == FormatUnknown {
		return nil, fmt.Errorf("%w: .%s", ErrUnsupportedFormat, classify.Ext(archivePath))
	}
	if err := x.Fs.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	var err error
	switch format {
	case FormatZip:
		err = x.extractZip(archivePath, destDir)
	case FormatRar:
		_, err = x.Run(ctx, binOr(x.Tools.Unar, "unar"), "-no-directory", "-force-overwrite", "-o", destDir, archivePath)
	case Format7z:
		_, err = x.Run(ctx, binOr(x.Tools.SevenZ, "7z"), "x", "-o"+destDir, "-y", archivePath)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrExtractionFailed, filepath.Base(archivePath), err)
	}

	files, err := x.collect(destDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	return files, nil
}

func (x *Extractor) extractZip(archivePath, destDir string) error {
	zr, closer, err := x.openZip(archivePath)
	if err != nil {
		return err
	}
	defer closer.Close()

	for _, f := range zr.File {
		target, err := safeJoin(destDir, f.Name)
		if err != nil {
			return err
		}
		if f.FileInfo().IsDir() {
			if err := x.Fs.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := x.Fs.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		if err := x.writeZipEntry(f, target); err != nil {
			return fmt.Errorf("%s: %w", f.Name, err)
		}
	}
	return nil
}

func (x *Extractor) writeZipEntry(f *zip.File, target string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := x.Fs.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// safeJoin resolves an archive member name under destDir, rejecting names
// that would land outside it.
func safeJoin(destDir, name string) (string, error) {
	cleaned := path.Clean("/" + strings.ReplaceAll(name, "\\", "/"))
	target := filepath.Join(destDir, filepath.FromSlash(cleaned))
	rel, err := filepath.Rel(destDir, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("illegal member path %q", name)
	}
	return target, nil
}

func (x *Extractor) collect(destDir string) ([]File, error) {
	var files []File
	err := afero.Walk(x.Fs, destDir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(destDir, p)
		if err != nil {
			return err
		}
		files = append(files, File{Path: p, Name: filepath.ToSlash(rel)})
		return nil
	})
	return files, err
}

func (x *Extractor) logger() *slog.Logger {
	if x.Log == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return x.Log
}

type lsarListing struct {
	Contents []struct {
		Name        string `json:"XADFileName"`
		IsDirectory bool   `json:"XADIsDirectory"`
	} `json:"lsarContents"`
}

func parseLsarJSON(out []byte) ([]string, error) {
	var listing lsarListing
	if err := json.Unmarshal(out, &listing); err != nil {
		return nil, fmt.Errorf("parse lsar output: %w", err)
	}
	var names []string
	for _, entry := range listing.Contents {
		if entry.IsDirectory || strings.HasSuffix(entry.Name, "/") {
			continue
		}
		names = append(names, entry.Name)
	}
	return names, nil
}

// parse7zSlt reads `7z l -slt` output. Member records follow the dashed
// separator; the record before it describes the archive itself.
func parse7zSlt(out []byte) []string {
	var (
		names    []string
		inList   bool
		current  string
		isFolder bool
	)
	flush := func() {
		if current != "" && !isFolder {
			names = append(names, current)
		}
		current, isFolder = "", false
	}

	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimRight(line, "\r")
		if !inList {
			if strings.HasPrefix(line, "----------") {
				inList = true
			}
			continue
		}
		switch {
		case strings.HasPrefix(line, "Path = "):
			flush()
			current = strings.TrimPrefix(line, "Path = ")
		case line == "Folder = +":
			isFolder = true
		case strings.HasPrefix(line, "Attributes = D"):
			isFolder = true
		}
	}
	flush()
	return names
}
