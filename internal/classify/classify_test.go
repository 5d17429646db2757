package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExt(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"page01.JPG", "jpg"},
		{"dir/sub/page.Jpeg", "jpeg"},
		{"dir.v2/README", ""},
		{"archive.tar.gz", "gz"},
		{`win\path\img.PNG`, "png"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Ext(tt.in), "Ext(%q)", tt.in)
	}
}

func TestImageExts(t *testing.T) {
	got := ImageExts([]string{"a.jpg", "notes.txt", "b.WEBP", "c", "d.gif"})
	assert.Equal(t, []string{"jpg", "webp", "gif"}, got)
}

func TestClassify(t *testing.T) {
	c := Classifier{Marker: "_avif"}

	tests := []struct {
		name       string
		unit       Unit
		wantStatus Status
		wantLabel  string
		wantLight  float64
		wantHeavy  int
		wantListed bool
	}{
		{
			name:       "all heavy",
			unit:       Unit{Location: "/r/book.zip", Exts: []string{"jpg", "jpg", "png"}},
			wantStatus: StatusCompress,
			wantLabel:  "JPG 67%",
			wantHeavy:  3,
			wantListed: true,
		},
		{
			name:       "mostly light",
			unit:       Unit{Location: "/r/book.zip", Exts: []string{"avif", "avif", "avif", "avif", "jpg"}},
			wantStatus: StatusAlreadyLight,
			wantLabel:  "AVIF 80%",
			wantLight:  80,
			wantHeavy:  1,
			wantListed: false,
		},
		{
			name:       "light but listed",
			unit:       Unit{Location: "/r/book.zip", Exts: []string{"webp", "jpg", "jpg"}},
			wantStatus: StatusCompress,
			wantLabel:  "JPG 67%",
			wantLight:  100.0 / 3,
			wantHeavy:  2,
			wantListed: true,
		},
		{
			name:       "marker in name wins",
			unit:       Unit{Location: "/r/book_avif.zip", Exts: []string{"jpg"}},
			wantStatus: StatusAlreadyConverted,
			wantLabel:  "JPG 100%",
			wantHeavy:  1,
			wantListed: true,
		},
		{
			name:       "marker only in extension is ignored",
			unit:       Unit{Location: "/r/book.x_avif", Exts: []string{"jpg"}},
			wantStatus: StatusCompress,
			wantLabel:  "JPG 100%",
			wantHeavy:  1,
			wantListed: true,
		},
		{
			name:       "folder marker",
			unit:       Unit{Location: "/r/set_avif/", Kind: KindFolder, Exts: []string{"png"}},
			wantStatus: StatusAlreadyConverted,
			wantLabel:  "PNG 100%",
			wantHeavy:  1,
			wantListed: true,
		},
		{
			name:       "no images",
			unit:       Unit{Location: "/r/docs.zip"},
			wantStatus: StatusCompress,
			wantLabel:  "no images",
			wantListed: true,
		},
		{
			name:       "gif is neither heavy nor light",
			unit:       Unit{Location: "/r/anim.zip", Exts: []string{"gif", "gif"}},
			wantStatus: StatusCompress,
			wantLabel:  "GIF 100%",
			wantListed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := c.Classify(tt.unit)
			assert.Equal(t, tt.wantStatus, e.Status)
			assert.Equal(t, tt.wantLabel, e.FormatLabel)
			assert.InDelta(t, tt.wantLight, e.LightPercent, 0.001)
			assert.Equal(t, tt.wantHeavy, e.HeavyCount)
			assert.Equal(t, len(tt.unit.Exts), e.ImageCount)
			assert.Equal(t, tt.wantListed, e.Listed())
			assert.GreaterOrEqual(t, e.LightPercent, 0.0)
			assert.LessOrEqual(t, e.LightPercent, 100.0)
		})
	}
}

func TestDominantTieKeepsFirstSeen(t *testing.T) {
	ext, count := dominant([]string{"png", "jpg", "jpg", "png", "webp"})
	require.Equal(t, "png", ext)
	require.Equal(t, 2, count)
}
