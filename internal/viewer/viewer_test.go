package viewer

import (
	"errors"
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/meshview/internal/config"
	"github.com/Faultbox/meshview/internal/engine/camera"
	"github.com/Faultbox/meshview/internal/importer"
	"github.com/Faultbox/meshview/internal/scene"
)

// fakeUploader counts deleted GPU objects of the assets it uploaded.
type fakeUploader struct{ deleted int }

type fakeBuffers struct{ deleted *int }

func (fakeBuffers) Draw()     {}
func (b fakeBuffers) Delete() { *b.deleted++ }

type fakeHandle struct{ deleted *int }

func (fakeHandle) Bind(uint32) {}
func (h fakeHandle) Delete()   { *h.deleted++ }

func (u *fakeUploader) UploadMesh([]scene.Vertex, []uint32) (scene.MeshBuffers, error) {
	return fakeBuffers{deleted: &u.deleted}, nil
}

func (u *fakeUploader) UploadTexture(*image.RGBA) (scene.TextureHandle, error) {
	return fakeHandle{deleted: &u.deleted}, nil
}

// writeTriangle saves a one-triangle glTF of the given width.
func writeTriangle(t *testing.T, path string, width float32) {
	t.Helper()
	doc := gltf.NewDocument()
	pos := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {width, 0, 0}, {0, 1, 0}})
	doc.Meshes = append(doc.Meshes, &gltf.Mesh{
		Primitives: []*gltf.Primitive{{Attributes: map[string]int{gltf.POSITION: pos}}},
	})
	doc.Nodes = append(doc.Nodes, &gltf.Node{Mesh: gltf.Index(0)})
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, 0)
	require.NoError(t, gltf.SaveBinary(doc, path))
}

func TestSessionOpenAndReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tri.glb")
	writeTriangle(t, path, 4)

	up := &fakeUploader{}
	opts := scene.DefaultOptions()
	opts.Uploader = up
	s := NewSession(opts)

	require.NoError(t, s.Open(path))
	first := s.Asset()
	require.NotNil(t, first)
	assert.Equal(t, path, s.Path())
	assert.Equal(t, float32(4), first.Bounds.Size().X())

	first.Translation = mgl32.Vec3{1, 2, 3}
	first.Scale = mgl32.Vec3{2, 2, 2}

	writeTriangle(t, path, 8)
	require.NoError(t, s.Reload())
	second := s.Asset()
	assert.NotSame(t, first, second)
	assert.Equal(t, float32(8), second.Bounds.Size().X())
	assert.Equal(t, 1, up.deleted, "old mesh buffers released")
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, second.Translation, "placement kept across reload")
	assert.Equal(t, mgl32.Vec3{2, 2, 2}, second.Scale)

	s.ResetTransform()
	assert.Equal(t, mgl32.Vec3{}, second.Translation)
	assert.Equal(t, mgl32.Vec3{1, 1, 1}, second.Scale)

	s.Close()
	assert.Nil(t, s.Asset())
	assert.Equal(t, 2, up.deleted)
}

func TestSessionFailedLoadKeepsAsset(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "tri.glb")
	writeTriangle(t, good, 1)

	up := &fakeUploader{}
	opts := scene.DefaultOptions()
	opts.Uploader = up
	s := NewSession(opts)
	require.NoError(t, s.Open(good))
	before := s.Asset()

	err := s.Open(filepath.Join(dir, "missing.glb"))
	var ie *scene.ImportError
	require.True(t, errors.As(err, &ie))
	assert.Same(t, before, s.Asset())
	assert.Equal(t, good, s.Path())
	assert.Zero(t, up.deleted)

	// A new file with a different path does not inherit the placement.
	before.Translation = mgl32.Vec3{5, 0, 0}
	other := filepath.Join(dir, "other.glb")
	writeTriangle(t, other, 1)
	require.NoError(t, s.Open(other))
	assert.Equal(t, mgl32.Vec3{}, s.Asset().Translation)
}

// archiveSource serves files from memory, like an opened GRF.
type archiveSource map[string][]byte

func (a archiveSource) ReadFile(name string) ([]byte, error) {
	data, ok := a[filepath.ToSlash(name)]
	if !ok {
		return nil, os.ErrNotExist
	}
	return data, nil
}

func TestSessionArchiveAndDisk(t *testing.T) {
	dir := t.TempDir()
	onDisk := filepath.Join(dir, "tri.glb")
	writeTriangle(t, onDisk, 2)
	packed := filepath.Join(dir, "packed.glb")
	writeTriangle(t, packed, 6)
	data, err := os.ReadFile(packed)
	require.NoError(t, err)
	archive := archiveSource{"data/model/packed.glb": data}

	up := &fakeUploader{}
	opts := scene.DefaultOptions()
	opts.Uploader = up
	opts.Source = archive
	s := NewSession(opts)

	require.NoError(t, s.Open("data/model/packed.glb"))
	assert.Equal(t, float32(6), s.Asset().Bounds.Size().X())
	assert.IsType(t, archiveSource{}, s.Source())

	// A file picked from disk loads even though an archive is configured.
	require.NoError(t, s.Open(onDisk))
	assert.Equal(t, float32(2), s.Asset().Bounds.Size().X())
	assert.Equal(t, importer.Disk{}, s.Source())

	writeTriangle(t, onDisk, 3)
	require.NoError(t, s.Reload())
	assert.Equal(t, float32(3), s.Asset().Bounds.Size().X())

	require.NoError(t, s.OpenFrom(archive, "data/model/packed.glb"))
	assert.Equal(t, float32(6), s.Asset().Bounds.Size().X())

	var ie *scene.ImportError
	require.ErrorAs(t, s.OpenFrom(archive, onDisk), &ie)
	assert.Equal(t, "data/model/packed.glb", s.Path())
}

func TestSessionReloadWithoutAsset(t *testing.T) {
	s := NewSession(scene.DefaultOptions())
	assert.NoError(t, s.Reload())
	s.ResetTransform()
	s.Close()
}

func TestWatcherReportsChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.glb")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o644))
	other := filepath.Join(dir, "unrelated.txt")

	w, err := NewWatcher(100 * time.Millisecond)
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Add(path))

	require.NoError(t, os.WriteFile(other, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte("v2"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte("v3"), 0o644))

	select {
	case got := <-w.Changes():
		assert.Equal(t, path, got)
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}

	// Both writes collapse into one notification.
	select {
	case got := <-w.Changes():
		t.Fatalf("unexpected second change %q", got)
	case <-time.After(400 * time.Millisecond):
	}
}

func TestWatcherReplace(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.glb")
	b := filepath.Join(dir, "b.glb")
	require.NoError(t, os.WriteFile(a, nil, 0o644))
	require.NoError(t, os.WriteFile(b, nil, 0o644))

	w, err := NewWatcher(10 * time.Millisecond)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.Add(a))
	require.NoError(t, w.Replace(b))

	require.NoError(t, os.WriteFile(a, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("x"), 0o644))

	select {
	case got := <-w.Changes():
		assert.Equal(t, b, got)
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}
}

func TestSettingsFromConfig(t *testing.T) {
	r := config.Default().Render
	r.Lighting = false
	r.Shininess = 32
	r.ShowBounds = true

	s := SettingsFromConfig(r)
	assert.Equal(t, "default", s.Shader)
	assert.Equal(t, mgl32.Vec3{0.5, 0.5, 0.5}, s.ClearColor)
	assert.True(t, s.CullFaces)
	assert.True(t, s.ShowBounds)
	assert.False(t, s.Light.Enabled)
	assert.Equal(t, float32(32), s.Light.Shininess)
	assert.Equal(t, mgl32.Vec3{0, 0, 1}, s.Light.Direction)
	assert.Equal(t, float32(0.6), s.Light.Ambient)
}

func TestSettingsStore(t *testing.T) {
	r := config.Default().Render
	r.VertexShader, r.FragmentShader = "a.vert", "a.frag"

	s := SettingsFromConfig(r)
	s.Shader = "depth"
	s.ClearColor = mgl32.Vec3{1, 0, 0}
	s.Light.Enabled = false
	s.Light.Direction = mgl32.Vec3{0, 1, 0}
	s.Store(&r)

	assert.Equal(t, "depth", r.Shader)
	assert.Equal(t, [3]float32{1, 0, 0}, r.ClearColor)
	assert.False(t, r.Lighting)
	assert.Equal(t, [3]float32{0, 1, 0}, r.LightDirection)
	assert.Equal(t, "a.vert", r.VertexShader)
	assert.Equal(t, s, SettingsFromConfig(r))
}

func TestRigFly(t *testing.T) {
	cfg := config.Default().Camera
	r := NewRig(cfg, 800, 600)
	require.Equal(t, ModeFly, r.Mode)
	assert.Equal(t, float32(2.5), r.Fly.Speed)

	r.Apply(Input{Move: camera.Movement{Forward: true}, DT: 0.4})
	assertVec3(t, mgl32.Vec3{0, 0, 1}, r.View().Position())

	r.Apply(Input{Wheel: 5})
	assert.Equal(t, float32(40), r.Lens.FOV)

	want := r.Lens.Projection().Mul4(r.Fly.View())
	assert.Equal(t, want, r.View().ViewProjection())

	r.Reset()
	assert.Equal(t, float32(45), r.Lens.FOV)
	assert.Equal(t, mgl32.Vec3{0, 0, 2}, r.Fly.Position())
}

func TestRigOrbit(t *testing.T) {
	cfg := config.Default().Camera
	cfg.Mode = ModeOrbit
	r := NewRig(cfg, 800, 600)
	require.Equal(t, ModeOrbit, r.Mode)
	assertVec3(t, mgl32.Vec3{0, 0, 2}, r.View().Position())

	// Movement keys and a plain wheel do not touch the lens in orbit mode.
	r.Apply(Input{Move: camera.Movement{Forward: true}, DT: 1, Wheel: 1})
	assert.Equal(t, float32(45), r.Lens.FOV)
	assert.InDelta(t, 1.8, r.Orbit.Distance, 1e-5)

	r.Apply(Input{Dragging: true, DX: -100})
	assert.InDelta(t, 1, r.Orbit.Yaw, 1e-5)
	assert.Same(t, r.Orbit, r.View())
}

func assertVec3(t *testing.T, want, got mgl32.Vec3) {
	t.Helper()
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-5, "component %d of %v", i, got)
	}
}
