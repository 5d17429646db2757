package cmd

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"

	"squeeze/internal/classify"
	"squeeze/internal/config"
)

func TestWSLPath(t *testing.T) {
	tests := map[string]string{
		`C:\Comics\Series`: "/mnt/c/Comics/Series",
		`d:/photos`:        "/mnt/d/photos",
		`E:\`:              "/mnt/e",
		"/home/me/lib":     "/home/me/lib",
		"relative":         "relative",
		`1:\nope`:          `1:\nope`,
	}
	for in, want := range tests {
		assert.Equal(t, want, wslPath(in), in)
	}
}

func sampleScan() []classify.Entry {
	return []classify.Entry{
		{Location: "/lib/a.cbz", Kind: classify.KindArchive, DisplayName: "a.cbz", Size: 2048, ImageCount: 4, HeavyCount: 4, FormatLabel: "JPG 100%"},
		{Location: "/lib/set", Kind: classify.KindFolder, DisplayName: "set/", Size: 4096, ImageCount: 2, HeavyCount: 1, LightPercent: 50, FormatLabel: "PNG 50%", Status: classify.StatusAlreadyConverted},
	}
}

func TestWriteScanJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeScan(&buf, "json", sampleScan()))

	var got []scanRecord
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].Index)
	assert.Equal(t, "archive", got[0].Kind)
	assert.Equal(t, "compress", got[0].Status)
	assert.Equal(t, "folder", got[1].Kind)
	assert.Equal(t, "already converted", got[1].Status)
}

func TestWriteScanYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeScan(&buf, "YAML", sampleScan()))
	assert.Contains(t, buf.String(), "light_percent: 50")

	var got []scanRecord
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "/lib/set", got[1].Path)
}

func TestWriteScanTableAndErrors(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeScan(&buf, "table", nil))
	assert.Contains(t, buf.String(), "No archives or image folders found.")

	buf.Reset()
	require.NoError(t, writeScan(&buf, "", sampleScan()))
	assert.Contains(t, buf.String(), "a.cbz")

	assert.Error(t, writeScan(&buf, "xml", nil))
}

func TestForwardedFlagsCarryEffectiveSettings(t *testing.T) {
	c := config.Default()
	c.Encoding.Codec = "webp"
	prev := cfg
	cfg = &c
	t.Cleanup(func() { cfg = prev })

	args := forwardedFlags()
	assert.Contains(t, args, "webp")
	assert.Contains(t, args, "75")
	assert.Contains(t, args, "2000")
}
