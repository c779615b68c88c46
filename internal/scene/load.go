package scene

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/meshview/internal/importer"
	"github.com/Faultbox/meshview/internal/logger"
)

// ImportError is returned by Load for any failure. No partial asset is
// produced.
type ImportError struct {
	Path string
	Err  error
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("importing %s: %v", e.Path, e.Err)
}

func (e *ImportError) Unwrap() error { return e.Err }

// Options controls loading.
type Options struct {
	// FlipTextureV replaces v with 1-v, for images whose first row is the
	// top while texture space starts at the bottom.
	FlipTextureV bool
	// Normalize fits the asset into a unit cube centered at the origin.
	Normalize bool
	// GenerateNormals computes area-weighted vertex normals for meshes
	// that come without them.
	GenerateNormals bool
	// MaxTextureSize downscales larger textures; 0 keeps them as-is.
	MaxTextureSize int
	// Source reads the asset and its textures. Nil reads from disk.
	Source importer.Source
	// Uploader receives geometry and textures. Nil keeps everything on
	// the CPU.
	Uploader Uploader
}

// DefaultOptions returns the options Load uses.
func DefaultOptions() Options {
	return Options{Normalize: true, GenerateNormals: true}
}

// Load reads the asset at path with normalization and normal generation
// enabled, keeping data on the CPU.
func Load(path string, flipTextureV bool) (*Asset, error) {
	opts := DefaultOptions()
	opts.FlipTextureV = flipTextureV
	return LoadWithOptions(path, opts)
}

// LoadWithOptions reads and flattens the asset at path.
func LoadWithOptions(path string, opts Options) (*Asset, error) {
	if opts.Source == nil {
		opts.Source = importer.Disk{}
	}

	sc, err := importer.Import(opts.Source, path)
	if err != nil {
		return nil, &ImportError{Path: path, Err: err}
	}

	l := &loader{
		opts:    opts,
		scene:   sc,
		asset:   newAsset(path, filepath.Dir(path), sc.Format),
		visited: make([]bool, len(sc.Nodes)),
		log:     logger.Named("scene").With(zap.String("asset", path)),
	}
	l.walk(sc.Root, mgl32.Ident4())

	a := l.asset
	if opts.Normalize && l.hasBounds {
		a.Normalization = Normalization(a.Bounds)
	}

	if opts.Uploader != nil {
		if err := upload(a, opts.Uploader, l.log); err != nil {
			a.Release()
			return nil, &ImportError{Path: path, Err: err}
		}
	}

	l.log.Debug("asset loaded",
		zap.String("format", a.Format),
		zap.Int("meshes", len(a.Meshes)),
		zap.Int("textures", len(a.Textures)))
	return a, nil
}

// Normalization returns Scale(s) * Translate(-center) where s is one over
// the largest edge of b, or 1 when b has no extent.
func Normalization(b Box) mgl32.Mat4 {
	c := b.Center()
	size := b.Size()
	extent := max(size.X(), size.Y(), size.Z())
	s := float32(1)
	if extent > 1e-12 {
		s = 1 / extent
	}
	return mgl32.Scale3D(s, s, s).Mul4(mgl32.Translate3D(-c.X(), -c.Y(), -c.Z()))
}

type loader struct {
	opts      Options
	scene     *importer.Scene
	asset     *Asset
	visited   []bool
	hasBounds bool
	log       *zap.Logger
}

// walk visits node id depth-first. Each node is visited at most once, so a
// malformed graph with a cycle or a shared child cannot loop.
func (l *loader) walk(id int, parent mgl32.Mat4) {
	if l.visited[id] {
		l.log.Warn("node reached twice, skipping", zap.Int("node", id))
		return
	}
	l.visited[id] = true

	n := &l.scene.Nodes[id]
	world := parent.Mul4(n.Local)

	for _, mi := range n.Meshes {
		m := l.convert(&l.scene.Meshes[mi], world)
		l.asset.Meshes = append(l.asset.Meshes, m)
		l.asset.Transforms = append(l.asset.Transforms, world)
		l.grow(m, world)
	}
	for _, c := range n.Children {
		l.walk(c, world)
	}
}

// grow adds the world-space corners of m's local box to the asset box.
func (l *loader) grow(m *Mesh, world mgl32.Mat4) {
	if len(m.Vertices) == 0 {
		return
	}
	for _, c := range m.Bounds.Corners() {
		p := mgl32.TransformCoordinate(c, world)
		if !l.hasBounds {
			l.asset.Bounds = Box{Min: p, Max: p}
			l.hasBounds = true
			continue
		}
		l.asset.Bounds.extend(p)
	}
}

func (l *loader) convert(src *importer.Mesh, world mgl32.Mat4) *Mesh {
	m := &Mesh{Name: src.Name, Vertices: make([]Vertex, len(src.Positions))}

	hasNormals := len(src.Normals) == len(src.Positions)
	hasUVs := len(src.UVs) == len(src.Positions)
	for i, p := range src.Positions {
		v := Vertex{Position: p}
		if hasNormals {
			v.Normal = src.Normals[i]
		}
		if hasUVs {
			v.TexCoord = src.UVs[i]
			if l.opts.FlipTextureV {
				v.TexCoord[1] = 1 - v.TexCoord[1]
			}
		}
		m.Vertices[i] = v
	}

	m.Indices = triangles(src.Faces, uint32(len(m.Vertices)), func(dropped int) {
		l.log.Warn("dropped triangles with out-of-range indices",
			zap.String("mesh", src.Name), zap.Int("count", dropped))
	})

	if !hasNormals && l.opts.GenerateNormals {
		generateNormals(m.Vertices, m.Indices)
	}

	if src.Bounds != nil {
		m.Bounds = Box{Min: src.Bounds.Min, Max: src.Bounds.Max}
	} else if len(m.Vertices) > 0 {
		m.Bounds = Box{Min: m.Vertices[0].Position, Max: m.Vertices[0].Position}
		for _, v := range m.Vertices[1:] {
			m.Bounds.extend(v.Position)
		}
	}

	if src.Material >= 0 {
		mat := &l.scene.Materials[src.Material]
		for _, ref := range mat.Diffuse {
			m.Textures = append(m.Textures, TextureBinding{Kind: Diffuse, Texture: l.texture(ref, Diffuse)})
		}
		for _, ref := range mat.Specular {
			m.Textures = append(m.Textures, TextureBinding{Kind: Specular, Texture: l.texture(ref, Specular)})
		}
	}
	return m
}

// triangles fans each face into triangles. A triangle with any index at or
// above count is dropped whole and reported once through onDrop.
func triangles(faces [][]uint32, count uint32, onDrop func(int)) []uint32 {
	n := 0
	for _, f := range faces {
		if len(f) >= 3 {
			n += 3 * (len(f) - 2)
		}
	}

	out := make([]uint32, 0, n)
	dropped := 0
	for _, f := range faces {
		for k := 1; k+1 < len(f); k++ {
			a, b, c := f[0], f[k], f[k+1]
			if a >= count || b >= count || c >= count {
				dropped++
				continue
			}
			out = append(out, a, b, c)
		}
	}
	if dropped > 0 && onDrop != nil {
		onDrop(dropped)
	}
	return out
}

// generateNormals sets each vertex normal to the normalized sum of the
// unnormalized face normals around it, which weights faces by area.
func generateNormals(vertices []Vertex, indices []uint32) {
	for i := range vertices {
		vertices[i].Normal = mgl32.Vec3{}
	}
	for i := 0; i+2 < len(indices); i += 3 {
		a, b, c := indices[i], indices[i+1], indices[i+2]
		p0 := vertices[a].Position
		n := vertices[b].Position.Sub(p0).Cross(vertices[c].Position.Sub(p0))
		vertices[a].Normal = vertices[a].Normal.Add(n)
		vertices[b].Normal = vertices[b].Normal.Add(n)
		vertices[c].Normal = vertices[c].Normal.Add(n)
	}
	for i := range vertices {
		if vertices[i].Normal.Len() > 1e-12 {
			vertices[i].Normal = vertices[i].Normal.Normalize()
		}
	}
}

func upload(a *Asset, u Uploader, log *zap.Logger) error {
	for i, m := range a.Meshes {
		buf, err := u.UploadMesh(m.Vertices, m.Indices)
		if err != nil {
			return fmt.Errorf("uploading mesh %d (%s): %w", i, m.Name, err)
		}
		m.buffers = buf
	}

	keys := make([]string, 0, len(a.Textures))
	for k := range a.Textures {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		t := a.Textures[k]
		if t.Err != nil || t.Image == nil {
			continue
		}
		h, err := u.UploadTexture(t.Image)
		if err != nil {
			t.Err = err
			log.Warn("texture upload failed", zap.String("texture", k), zap.Error(err))
			continue
		}
		t.Handle = h
		t.Image = nil
	}
	return nil
}
