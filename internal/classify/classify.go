// Package classify turns the file extensions found in an archive or folder
// into an image profile and a recompression recommendation.
package classify

import (
	"fmt"
	"path"
	"strings"
)

// Kind distinguishes the two kinds of scannable unit.
type Kind int

const (
	KindArchive Kind = iota
	KindFolder
)

func (k Kind) String() string {
	if k == KindFolder {
		return "folder"
	}
	return "archive"
}

// Status is the recommendation derived for a unit.
type Status int

const (
	StatusCompress Status = iota
	StatusAlreadyLight
	StatusAlreadyConverted
)

func (s Status) String() string {
	switch s {
	case StatusAlreadyLight:
		return "already light"
	case StatusAlreadyConverted:
		return "already converted"
	default:
		return "compress"
	}
}

// ListThreshold is the light-format percentage at or above which a unit is
// hidden from the operator.
const ListThreshold = 50.0

// lightStatusThreshold marks a unit as already light.
const lightStatusThreshold = 80.0

var (
	imageExts = map[string]bool{"jpg": true, "jpeg": true, "png": true, "webp": true, "avif": true, "bmp": true, "gif": true}
	heavyExts = map[string]bool{"jpg": true, "jpeg": true, "png": true, "bmp": true}
	lightExts = map[string]bool{"avif": true, "webp": true}
)

// Ext returns the lowercase extension of name without the leading dot, or ""
// when the base name has no dot.
func Ext(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	idx := strings.LastIndexByte(base, '.')
	if idx < 0 {
		return ""
	}
	return strings.ToLower(base[idx+1:])
}

// IsImage reports whether ext (as returned by Ext) is a recognized image format.
func IsImage(ext string) bool { return imageExts[ext] }

// IsHeavy reports whether ext is a format worth transcoding.
func IsHeavy(ext string) bool { return heavyExts[ext] }

// IsLight reports whether ext is already an efficient format.
func IsLight(ext string) bool { return lightExts[ext] }

// ImageExts filters names down to the extensions of recognized images, in
// the order the names were given.
func ImageExts(names []string) []string {
	var exts []string
	for _, name := range names {
		if ext := Ext(name); IsImage(ext) {
			exts = append(exts, ext)
		}
	}
	return exts
}

// Unit is the raw input to Classify.
type Unit struct {
	Location    string
	Kind        Kind
	DisplayName string
	Size        int64
	Shallow     bool
	// Exts holds the lowercase extensions of every recognized image.
	Exts []string
}

// Entry is one classified unit.
type Entry struct {
	Location     string
	Kind         Kind
	DisplayName  string
	Size         int64
	ImageCount   int
	HeavyCount   int
	LightPercent float64
	FormatLabel  string
	Status       Status
	// Shallow entries cover only the files directly inside Location, not
	// its subdirectories.
	Shallow bool
}

// Listed reports whether the entry should be shown to the operator.
func (e Entry) Listed() bool {
	return e.LightPercent < ListThreshold
}

// Classifier derives entries; Marker is the substring that flags a unit as
// the output of an earlier conversion.
type Classifier struct {
	Marker string
}

// Classify computes the image profile and status of a unit.
func (c Classifier) Classify(u Unit) Entry {
	e := Entry{
		Location:    u.Location,
		Kind:        u.Kind,
		DisplayName: u.DisplayName,
		Size:        u.Size,
		Shallow:     u.Shallow,
		ImageCount:  len(u.Exts),
		FormatLabel: "no images",
	}

	var light int
	for _, ext := range u.Exts {
		if IsHeavy(ext) {
			e.HeavyCount++
		}
		if IsLight(ext) {
			light++
		}
	}

	if e.ImageCount > 0 {
		e.LightPercent = float64(light) / float64(e.ImageCount) * 100
		ext, count := dominant(u.Exts)
		e.FormatLabel = fmt.Sprintf("%s %.0f%%", strings.ToUpper(ext), float64(count)/float64(e.ImageCount)*100)
	}

	switch {
	case c.Marker != "" && strings.Contains(stem(u.Location), c.Marker):
		e.Status = StatusAlreadyConverted
	case e.ImageCount > 0 && e.LightPercent >= lightStatusThreshold:
		e.Status = StatusAlreadyLight
	default:
		e.Status = StatusCompress
	}

	return e
}

// dominant returns the most frequent extension; ties go to the one seen first.
func dominant(exts []string) (string, int) {
	counts := make(map[string]int, len(exts))
	var order []string
	for _, ext := range exts {
		if counts[ext] == 0 {
			order = append(order, ext)
		}
		counts[ext]++
	}

	best, bestCount := "", 0
	for _, ext := range order {
		if counts[ext] > bestCount {
			best, bestCount = ext, counts[ext]
		}
	}
	return best, bestCount
}

// stem is the base name of location without its extension; trailing
// separators are ignored so folders resolve to their own name.
func stem(location string) string {
	location = strings.TrimRight(strings.ReplaceAll(location, "\\", "/"), "/")
	base := path.Base(location)
	if idx := strings.LastIndexByte(base, '.'); idx > 0 {
		return base[:idx]
	}
	return base
}
