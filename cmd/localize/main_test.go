package main

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/nvr-ai/go-localize/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writePNG(t *testing.T, dir, id string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	f, err := os.Create(filepath.Join(dir, id+".png"))
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestParseBox(t *testing.T) {
	b, err := parseBox("10, 20,110,220")
	require.NoError(t, err)
	assert.Equal(t, common.NewBox(10, 20, 110, 220), b)

	for _, bad := range []string{"1,2,3", "a,2,3,4", "10,10,5,20"} {
		_, err := parseBox(bad)
		assert.Error(t, err, bad)
	}
}

func TestSearchCommand(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, dir, "000001", 200, 150)

	out, err := run(t, "search", "--image-dir", dir, "--image", "000001",
		"--steps", "12", "--epsilon", "0", "--seed", "7", "--truth", "20,20,120,100")
	require.NoError(t, err)

	var ep struct {
		Image string `yaml:"image"`
		Steps []struct {
			Name string `yaml:"name"`
		} `yaml:"steps"`
		Final common.Box `yaml:"final"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(out), &ep))
	assert.Equal(t, "000001", ep.Image)
	assert.Len(t, ep.Steps, 12)
	assert.True(t, ep.Final.Within(200, 150), "final box %v", ep.Final)
}

func TestSearchCommandMissingImage(t *testing.T) {
	_, err := run(t, "search", "--image-dir", t.TempDir(), "--image", "nope")
	assert.Error(t, err)
}

func TestRefineCommand(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, dir, "000002", 120, 100)

	boxes := filepath.Join(dir, "boxes.txt")
	truth := filepath.Join(dir, "truth.txt")
	require.NoError(t, os.WriteFile(boxes, []byte("000002 21 21 61 61\n000002 121 11 151 51\nother 1 1 10 10\n"), 0o644))
	require.NoError(t, os.WriteFile(truth, []byte("000002 16 16 66 71\n"), 0o644))

	out, err := run(t, "refine", "--image-dir", dir, "--boxes", boxes, "--truth", truth)
	require.NoError(t, err)

	var res struct {
		Results []struct {
			Image      string  `yaml:"image"`
			InitialIoU float64 `yaml:"initial_iou"`
			FinalIoU   float64 `yaml:"final_iou"`
		} `yaml:"results"`
		Summary struct {
			Mean []float64 `yaml:"mean"`
		} `yaml:"summary"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(out), &res))
	require.Len(t, res.Results, 1, "out-of-image proposals and images without ground truth are skipped")
	assert.Equal(t, "000002", res.Results[0].Image)
	assert.GreaterOrEqual(t, res.Results[0].FinalIoU, res.Results[0].InitialIoU)
}

func TestRegionsCommand(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, dir, "000003", 80, 60)

	boxes := filepath.Join(dir, "boxes.txt")
	require.NoError(t, os.WriteFile(boxes, []byte("000003 11 11 41 41\n000003 5 5 70 50\n"), 0o644))
	outDir := filepath.Join(dir, "crops")

	_, err := run(t, "regions", "--image-dir", dir, "--boxes", boxes, "--out", outDir)
	require.NoError(t, err)

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestListCommand(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, dir, "b", 4, 4)
	writePNG(t, dir, "a", 4, 4)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("x"), 0o644))

	out, err := run(t, "list", "--image-dir", dir)
	require.NoError(t, err)
	assert.Equal(t, "a\nb\n", out)
}

func TestListedImagesResolve(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, dir, "upper", 64, 48)
	require.NoError(t, os.Rename(filepath.Join(dir, "upper.png"), filepath.Join(dir, "upper.PNG")))

	out, err := run(t, "list", "--image-dir", dir)
	require.NoError(t, err)
	assert.Equal(t, "upper\n", out)

	_, err = run(t, "search", "--image-dir", dir, "--image", "upper", "--steps", "3", "--seed", "1")
	assert.NoError(t, err)
}
