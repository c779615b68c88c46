package main

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/meshview/internal/logger"
)

// writeQuad saves a glTF quad referencing tex.png and missing.png next to
// it and returns the model path.
func writeQuad(t *testing.T, dir string) string {
	t.Helper()
	doc := gltf.NewDocument()
	pos := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {2, 0, 0}, {2, 1, 0}, {0, 1, 0}})
	uv := modeler.WriteTextureCoord(doc, [][2]float32{{0, 0}, {1, 0}, {1, 1}, {0, 1}})
	idx := modeler.WriteIndices(doc, []uint16{0, 1, 2, 0, 2, 3})

	doc.Images = append(doc.Images, &gltf.Image{URI: "tex.png"}, &gltf.Image{URI: "missing.png"})
	doc.Textures = append(doc.Textures, &gltf.Texture{Source: gltf.Index(0)}, &gltf.Texture{Source: gltf.Index(1)})
	doc.Materials = append(doc.Materials, &gltf.Material{
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorTexture:         &gltf.TextureInfo{Index: 0},
			MetallicRoughnessTexture: &gltf.TextureInfo{Index: 1},
		},
	})
	doc.Meshes = append(doc.Meshes, &gltf.Mesh{
		Name: "quad",
		Primitives: []*gltf.Primitive{{
			Indices:    gltf.Index(idx),
			Attributes: map[string]int{gltf.POSITION: pos, gltf.TEXCOORD_0: uv},
			Material:   gltf.Index(0),
		}},
	})
	doc.Nodes = append(doc.Nodes, &gltf.Node{Name: "quad", Mesh: gltf.Index(0)})
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, 0)

	img := image.NewRGBA(image.Rect(0, 0, 4, 2))
	img.Set(0, 0, color.RGBA{255, 255, 255, 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tex.png"), buf.Bytes(), 0o644))

	path := filepath.Join(dir, "quad.glb")
	require.NoError(t, gltf.SaveBinary(doc, path))
	return path
}

func runCmd(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	restore := logger.Replace(logger.Log)
	defer restore()

	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestInfo(t *testing.T) {
	path := writeQuad(t, t.TempDir())

	code, out, _ := runCmd(t, "info", path)
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Format:    glTF")
	assert.Contains(t, out, "Meshes:    1")
	assert.Contains(t, out, "Vertices:  4")
	assert.Contains(t, out, "Triangles: 2")
	assert.Contains(t, out, "Textures:  2 (1 failed)")
}

func TestNodes(t *testing.T) {
	path := writeQuad(t, t.TempDir())

	code, out, _ := runCmd(t, "nodes", path)
	require.Equal(t, 0, code)
	assert.Contains(t, out, "root\n")
	assert.Contains(t, out, "  quad [1 meshes, 2 tris]\n")
}

func TestTextures(t *testing.T) {
	dir := t.TempDir()
	path := writeQuad(t, dir)

	code, out, errOut := runCmd(t, "textures", path)
	require.Equal(t, 0, code)
	assert.Contains(t, out, "4x2")
	assert.Contains(t, out, filepath.Join(dir, "tex.png"))
	assert.Contains(t, out, "missing")
	assert.Contains(t, errOut, "texture not loaded")
}

func TestBounds(t *testing.T) {
	path := writeQuad(t, t.TempDir())

	code, out, _ := runCmd(t, "bounds", path)
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Size:   (2, 1, 0)")
	assert.Contains(t, out, "Scale:  0.5")

	code, out, _ = runCmd(t, "bounds", "--raw", path)
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Scale:  1")
}

func TestImportErrorExitStatus(t *testing.T) {
	code, _, errOut := runCmd(t, "info", filepath.Join(t.TempDir(), "nope.glb"))
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "importing")

	code, _, errOut = runCmd(t, "info", "model.xyz")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "unsupported asset format")
}

func TestUsage(t *testing.T) {
	code, _, errOut := runCmd(t)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "Commands:")

	code, _, errOut = runCmd(t, "frobnicate")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "Unknown command: frobnicate")

	code, _, errOut = runCmd(t, "info")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "usage: meshinfo info")
}

func TestFormats(t *testing.T) {
	code, out, _ := runCmd(t, "formats")
	require.Equal(t, 0, code)
	assert.Equal(t, ".glb .gltf .rsm\n", out)
}

func TestPackThenReadFromArchive(t *testing.T) {
	dir := t.TempDir()
	writeQuad(t, dir)
	archive := filepath.Join(t.TempDir(), "assets.grf")

	code, out, errOut := runCmd(t, "pack", "--base", dir, archive,
		filepath.Join(dir, "quad.glb"), filepath.Join(dir, "tex.png"))
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "Packed 2 files")

	code, out, errOut = runCmd(t, "textures", "--grf", archive, "quad.glb")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "4x2")

	code, _, errOut = runCmd(t, "pack", "--base", dir, archive, filepath.Join(t.TempDir(), "x.png"))
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "Error:")
}

func TestListArchive(t *testing.T) {
	dir := t.TempDir()
	writeQuad(t, dir)
	archive := filepath.Join(t.TempDir(), "assets.grf")
	code, _, errOut := runCmd(t, "pack", "--base", dir, archive,
		filepath.Join(dir, "quad.glb"), filepath.Join(dir, "tex.png"))
	require.Equal(t, 0, code, errOut)

	code, out, _ := runCmd(t, "list", archive)
	require.Equal(t, 0, code)
	assert.Equal(t, "quad.glb\n", out)

	code, out, _ = runCmd(t, "list", "--all", archive)
	require.Equal(t, 0, code)
	assert.Equal(t, "quad.glb\ntex.png\n", out)

	code, out, errOut = runCmd(t, "list", "--all", archive, "*.png")
	require.Equal(t, 0, code)
	assert.Equal(t, "tex.png\n", out)
	assert.Contains(t, errOut, "(1 files matched)")

	code, _, _ = runCmd(t, "list", filepath.Join(dir, "nope.grf"))
	assert.Equal(t, 1, code)
}
