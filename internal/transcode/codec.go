package transcode

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// Profile names an encoder backend.
type Profile string

const (
	ProfileNVENC Profile = "nvenc" // ffmpeg av1_nvenc, AVIF output
	ProfileAVIF  Profile = "avif"  // ImageMagick, AVIF output
	ProfileWebP  Profile = "webp"  // ffmpeg libwebp
)

// Profiles lists every supported profile.
var Profiles = []Profile{ProfileNVENC, ProfileAVIF, ProfileWebP}

// ParseProfile validates a profile name.
func ParseProfile(s string) (Profile, error) {
	p := Profile(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Profiles {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown codec %q (use nvenc, avif or webp)", s)
}

// Ext is the output file extension including the dot.
func (p Profile) Ext() string {
	if p == ProfileWebP {
		return ".webp"
	}
	return ".avif"
}

// Suffix is appended to converted archive names and doubles as the marker
// of already-converted units.
func (p Profile) Suffix() string {
	return "_" + strings.TrimPrefix(p.Ext(), ".")
}

// NativeQuality maps the 1-100 quality dial onto the encoder's own control.
// The hardware AV1 path uses a constant-quantizer level where lower is
// better; the other encoders take the dial as-is.
func (p Profile) NativeQuality(quality int) int {
	if p != ProfileNVENC {
		return quality
	}
	level := int(math.Round(51 - float64(quality)*0.51))
	return min(51, max(1, level))
}

// Size is a pixel width and height.
type Size struct {
	Width  int
	Height int
}

// ScaleFor returns the downscaled size for a w x h image so that its longest
// side equals maxDim. The longest side is pinned exactly and the other is
// rounded to the nearest even value. ok is false when no resize is needed.
func ScaleFor(w, h, maxDim int) (Size, bool) {
	longest := max(w, h)
	if maxDim <= 0 || w <= 0 || h <= 0 || longest <= maxDim {
		return Size{}, false
	}
	scale := float64(maxDim) / float64(longest)
	if w >= h {
		return Size{Width: maxDim, Height: roundEven(float64(h) * scale)}, true
	}
	return Size{Width: roundEven(float64(w) * scale), Height: maxDim}, true
}

func roundEven(v float64) int {
	n := int(math.Round(v/2)) * 2
	if n < 2 {
		return 2
	}
	return n
}

// Request is one encode call.
type Request struct {
	Input  string
	Output string
	// Quality is already in the encoder's native units.
	Quality int
	Scale   *Size
}

// Codec is the external image transcoder.
type Codec interface {
	Profile() Profile
	Encode(ctx context.Context, req Request) error
}

// Binaries names the external executables.
type Binaries struct {
	FFmpeg string
	Magick string
}

// NewCodec returns the command-line codec for profile.
func NewCodec(profile Profile, bins Binaries) Codec {
	return &commandCodec{profile: profile, bins: bins}
}

type commandCodec struct {
	profile Profile
	bins    Binaries
}

func (c *commandCodec) Profile() Profile { return c.profile }

func (c *commandCodec) Encode(ctx context.Context, req Request) error {
	name, args := c.command(req)
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %s: %v", ErrEncodeFailed, name, ctx.Err())
		}
		msg := strings.TrimSpace(stderr.String())
		return fmt.Errorf("%w: %s: %v: %s", ErrEncodeFailed, name, err, msg)
	}
	return nil
}

func (c *commandCodec) command(req Request) (string, []string) {
	if c.profile == ProfileAVIF {
		args := []string{req.Input, "-auto-orient"}
		if req.Scale != nil {
			args = append(args, "-resize", fmt.Sprintf("%dx%d!", req.Scale.Width, req.Scale.Height))
		}
		args = append(args, "-quality", strconv.Itoa(req.Quality), req.Output)
		return binOr(c.bins.Magick, "magick"), args
	}

	args := []string{"-y", "-hide_banner", "-loglevel", "error", "-i", req.Input}
	if req.Scale != nil {
		args = append(args, "-vf", scaleFilter(*req.Scale))
	}
	switch c.profile {
	case ProfileWebP:
		args = append(args, "-c:v", "libwebp", "-quality", strconv.Itoa(req.Quality), "-pix_fmt", "yuv420p")
	default:
		args = append(args, "-c:v", "av1_nvenc", "-cq", strconv.Itoa(req.Quality), "-pix_fmt", "yuv420p")
	}
	args = append(args, "-frames:v", "1", req.Output)
	return binOr(c.bins.FFmpeg, "ffmpeg"), args
}

// scaleFilter pins the longest side of the decoded frame to the longer side of
// s, with or without EXIF rotation applied by ffmpeg.
func scaleFilter(s Size) string {
	longest := max(s.Width, s.Height)
	return fmt.Sprintf("scale=w='if(gte(iw,ih),%d,-2)':h='if(gte(iw,ih),-2,%d)'", longest, longest)
}

func binOr(configured, fallback string) string {
	if strings.TrimSpace(configured) == "" {
		return fallback
	}
	return configured
}
