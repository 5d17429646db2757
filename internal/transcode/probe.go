package transcode

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"strconv"
	"strings"

	exif "github.com/dsoprea/go-exif/v3"

	"squeeze/internal/extract"
	"squeeze/pkg/imgutil"
)

// Prober reports the displayed pixel size of an image.
type Prober interface {
	Dimensions(ctx context.Context, path string) (Size, error)
}

// ImageProber decodes image headers in-process and falls back to ffprobe for
// containers the standard decoders do not read.
type ImageProber struct {
	FFprobe string
	Run     extract.Runner
}

// NewProber returns a prober that shells out through extract.ExecRunner.
func NewProber(ffprobe string) *ImageProber {
	return &ImageProber{FFprobe: ffprobe, Run: extract.ExecRunner}
}

func (p *ImageProber) Dimensions(ctx context.Context, path string) (Size, error) {
	file, err := os.Open(path)
	if err != nil {
		return Size{}, fmt.Errorf("%w: %v", ErrProbeFailed, err)
	}
	defer file.Close()

	kind, err := imgutil.SniffReader(file)
	if err != nil {
		return Size{}, fmt.Errorf("%w: %v", ErrProbeFailed, err)
	}
	if !kind.Decodable() {
		return p.ffprobe(ctx, path)
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return Size{}, fmt.Errorf("%w: %v", ErrProbeFailed, err)
	}
	cfg, _, err := image.DecodeConfig(file)
	if err != nil {
		return p.ffprobe(ctx, path)
	}
	size := Size{Width: cfg.Width, Height: cfg.Height}

	if kind == imgutil.KindJPEG {
		orientation, err := exifOrientation(file)
		if err == nil && orientation >= 5 && orientation <= 8 {
			size.Width, size.Height = size.Height, size.Width
		}
	}
	return size, nil
}

func (p *ImageProber) ffprobe(ctx context.Context, path string) (Size, error) {
	run := p.Run
	if run == nil {
		run = extract.ExecRunner
	}
	out, err := run(ctx, binOr(p.FFprobe, "ffprobe"),
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-of", "csv=p=0",
		path,
	)
	if err != nil {
		return Size{}, fmt.Errorf("%w: %v", ErrProbeFailed, err)
	}
	return parseProbeSize(string(out))
}

func parseProbeSize(out string) (Size, error) {
	line := strings.TrimSpace(strings.SplitN(strings.TrimSpace(out), "\n", 2)[0])
	w, h, ok := strings.Cut(line, ",")
	if !ok {
		return Size{}, fmt.Errorf("%w: unexpected ffprobe output %q", ErrProbeFailed, line)
	}
	width, err := strconv.Atoi(strings.TrimSpace(w))
	if err != nil {
		return Size{}, fmt.Errorf("%w: %v", ErrProbeFailed, err)
	}
	height, err := strconv.Atoi(strings.TrimSpace(strings.TrimRight(h, ",")))
	if err != nil {
		return Size{}, fmt.Errorf("%w: %v", ErrProbeFailed, err)
	}
	if width <= 0 || height <= 0 {
		return Size{}, fmt.Errorf("%w: invalid size %dx%d", ErrProbeFailed, width, height)
	}
	return Size{Width: width, Height: height}, nil
}

// exifOrientation returns the IFD0 orientation tag, or 1 when there is none.
func exifOrientation(rs io.ReadSeeker) (int, error) {
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}

	rawExif, err := exif.SearchAndExtractExifWithReader(rs)
	if err != nil {
		if errorsIsNoExif(err) {
			return 1, nil
		}
		return 0, err
	}
	tags, _, err := exif.GetFlatExifData(rawExif, nil)
	if err != nil {
		return 0, err
	}

	for _, tag := range tags {
		if tag.TagName != "Orientation" || tag.IfdPath != "IFD" {
			continue
		}
		switch v := tag.Value.(type) {
		case []uint16:
			if len(v) > 0 {
				return int(v[0]), nil
			}
		case uint16:
			return int(v), nil
		}
		if n, err := strconv.Atoi(strings.TrimSpace(tag.FormattedFirst)); err == nil {
			return n, nil
		}
	}
	return 1, nil
}

func errorsIsNoExif(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, exif.ErrNoExif) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no exif")
}
