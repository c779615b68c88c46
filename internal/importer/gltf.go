package importer

import (
	"bytes"
	"fmt"
	"io/fs"
	"net/url"
	"path/filepath"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"

	"github.com/Faultbox/meshview/internal/logger"
)

func init() {
	Register("glTF", decodeGLTF, ".gltf", ".glb")
}

func decodeGLTF(src Source, path string) (*Scene, error) {
	data, err := src.ReadFile(path)
	if err != nil {
		return nil, err
	}

	doc := new(gltf.Document)
	dec := gltf.NewDecoderFS(bytes.NewReader(data), sourceFS{src: src, dir: filepath.Dir(path)})
	if err := dec.Decode(doc); err != nil {
		return nil, fmt.Errorf("decoding: %w", err)
	}
	return fromGLTF(doc)
}

// fromGLTF copies what the flattener needs out of doc.
func fromGLTF(doc *gltf.Document) (*Scene, error) {
	if len(doc.Nodes) == 0 {
		return nil, ErrNoRoot
	}
	log := logger.Named("importer")

	s := &Scene{Format: "glTF"}

	images, err := gltfImages(doc, s)
	if err != nil {
		return nil, err
	}
	s.Materials = gltfMaterials(doc, images)

	// Each glTF mesh expands to one arena mesh per primitive.
	primitiveMeshes := make([][]int, len(doc.Meshes))
	for mi, m := range doc.Meshes {
		for pi, p := range m.Primitives {
			mesh, ok, err := gltfPrimitive(doc, p)
			if err != nil {
				return nil, fmt.Errorf("mesh %d primitive %d: %w", mi, pi, err)
			}
			if !ok {
				log.Debug("skipping non-triangle primitive",
					zap.Int("mesh", mi), zap.Int("primitive", pi), zap.Int("mode", int(p.Mode)))
				continue
			}
			mesh.Name = m.Name
			primitiveMeshes[mi] = append(primitiveMeshes[mi], len(s.Meshes))
			s.Meshes = append(s.Meshes, mesh)
		}
	}

	hasParent := make([]bool, len(doc.Nodes))
	s.Nodes = make([]Node, len(doc.Nodes), len(doc.Nodes)+1)
	for i, n := range doc.Nodes {
		node := Node{
			Name:     n.Name,
			Local:    gltfLocal(n),
			Children: append([]int(nil), n.Children...),
		}
		if n.Mesh != nil && *n.Mesh < len(primitiveMeshes) {
			node.Meshes = append(node.Meshes, primitiveMeshes[*n.Mesh]...)
		}
		for _, c := range n.Children {
			if c >= 0 && c < len(hasParent) {
				hasParent[c] = true
			}
		}
		s.Nodes[i] = node
	}

	// A synthetic identity root parents the scene's top-level nodes.
	root := Node{Name: "root", Local: mgl32.Ident4()}
	switch {
	case doc.Scene != nil && *doc.Scene < len(doc.Scenes):
		root.Children = append(root.Children, doc.Scenes[*doc.Scene].Nodes...)
	case len(doc.Scenes) > 0:
		root.Children = append(root.Children, doc.Scenes[0].Nodes...)
	default:
		for i, p := range hasParent {
			if !p {
				root.Children = append(root.Children, i)
			}
		}
	}
	if len(root.Children) == 0 {
		return nil, ErrNoRoot
	}
	s.Root = len(s.Nodes)
	s.Nodes = append(s.Nodes, root)

	return s, nil
}

var identity64 = [16]float64{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}

// gltfLocal returns the node's matrix, which glTF stores column-major like
// mgl32, or composes T * R * S when only TRS is given.
func gltfLocal(n *gltf.Node) mgl32.Mat4 {
	if m := n.MatrixOrDefault(); m != identity64 {
		var out mgl32.Mat4
		for i, v := range m {
			out[i] = float32(v)
		}
		return out
	}

	t := n.TranslationOrDefault()
	r := n.RotationOrDefault()
	sc := n.ScaleOrDefault()
	q := mgl32.Quat{W: float32(r[3]), V: mgl32.Vec3{float32(r[0]), float32(r[1]), float32(r[2])}}
	return mgl32.Translate3D(float32(t[0]), float32(t[1]), float32(t[2])).
		Mul4(q.Normalize().Mat4()).
		Mul4(mgl32.Scale3D(float32(sc[0]), float32(sc[1]), float32(sc[2])))
}

func gltfPrimitive(doc *gltf.Document, p *gltf.Primitive) (Mesh, bool, error) {
	mesh := Mesh{Material: -1}
	switch p.Mode {
	case gltf.PrimitiveTriangles, gltf.PrimitiveTriangleStrip, gltf.PrimitiveTriangleFan:
	default:
		return mesh, false, nil
	}

	posIdx, ok := p.Attributes[gltf.POSITION]
	if !ok {
		return mesh, false, fmt.Errorf("missing POSITION attribute")
	}
	posAcc, err := gltfAccessor(doc, posIdx)
	if err != nil {
		return mesh, false, fmt.Errorf("reading positions: %w", err)
	}
	positions, err := modeler.ReadPosition(doc, posAcc, nil)
	if err != nil {
		return mesh, false, fmt.Errorf("reading positions: %w", err)
	}
	mesh.Positions = positions

	if len(posAcc.Min) == 3 && len(posAcc.Max) == 3 {
		mesh.Bounds = &Box{
			Min: mgl32.Vec3{float32(posAcc.Min[0]), float32(posAcc.Min[1]), float32(posAcc.Min[2])},
			Max: mgl32.Vec3{float32(posAcc.Max[0]), float32(posAcc.Max[1]), float32(posAcc.Max[2])},
		}
	}

	if idx, ok := p.Attributes[gltf.NORMAL]; ok {
		acr, err := gltfAccessor(doc, idx)
		if err != nil {
			return mesh, false, fmt.Errorf("reading normals: %w", err)
		}
		normals, err := modeler.ReadNormal(doc, acr, nil)
		if err != nil {
			return mesh, false, fmt.Errorf("reading normals: %w", err)
		}
		if len(normals) == len(positions) {
			mesh.Normals = normals
		}
	}

	if idx, ok := p.Attributes[gltf.TEXCOORD_0]; ok {
		acr, err := gltfAccessor(doc, idx)
		if err != nil {
			return mesh, false, fmt.Errorf("reading texcoords: %w", err)
		}
		uvs, err := modeler.ReadTextureCoord(doc, acr, nil)
		if err != nil {
			return mesh, false, fmt.Errorf("reading texcoords: %w", err)
		}
		if len(uvs) == len(positions) {
			mesh.UVs = uvs
		}
	}

	var indices []uint32
	if p.Indices != nil {
		acr, err := gltfAccessor(doc, *p.Indices)
		if err != nil {
			return mesh, false, fmt.Errorf("reading indices: %w", err)
		}
		indices, err = modeler.ReadIndices(doc, acr, nil)
		if err != nil {
			return mesh, false, fmt.Errorf("reading indices: %w", err)
		}
	} else {
		indices = make([]uint32, len(positions))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}
	mesh.Faces = triangulate(p.Mode, indices)

	if p.Material != nil {
		mesh.Material = *p.Material
	}
	return mesh, true, nil
}

// gltfAccessor returns accessor idx once its buffer view and byte range are
// known to lie inside the document.
func gltfAccessor(doc *gltf.Document, idx int) (*gltf.Accessor, error) {
	if idx < 0 || idx >= len(doc.Accessors) || doc.Accessors[idx] == nil {
		return nil, fmt.Errorf("%w: accessor %d", ErrBrokenGraph, idx)
	}
	acr := doc.Accessors[idx]
	if acr.BufferView != nil {
		bv, err := gltfBufferView(doc, *acr.BufferView)
		if err != nil {
			return nil, fmt.Errorf("accessor %d: %w", idx, err)
		}
		if acr.ByteOffset > bv.ByteLength {
			return nil, fmt.Errorf("%w: accessor %d offset %d past buffer view length %d",
				ErrBrokenGraph, idx, acr.ByteOffset, bv.ByteLength)
		}
	}
	if acr.Sparse != nil {
		if _, err := gltfBufferView(doc, acr.Sparse.Indices.BufferView); err != nil {
			return nil, fmt.Errorf("accessor %d sparse indices: %w", idx, err)
		}
		if _, err := gltfBufferView(doc, acr.Sparse.Values.BufferView); err != nil {
			return nil, fmt.Errorf("accessor %d sparse values: %w", idx, err)
		}
	}
	return acr, nil
}

func gltfBufferView(doc *gltf.Document, idx int) (*gltf.BufferView, error) {
	if idx < 0 || idx >= len(doc.BufferViews) || doc.BufferViews[idx] == nil {
		return nil, fmt.Errorf("%w: buffer view %d", ErrBrokenGraph, idx)
	}
	bv := doc.BufferViews[idx]
	if bv.Buffer < 0 || bv.Buffer >= len(doc.Buffers) || doc.Buffers[bv.Buffer] == nil {
		return nil, fmt.Errorf("%w: buffer view %d buffer %d", ErrBrokenGraph, idx, bv.Buffer)
	}
	if bv.ByteOffset < 0 || bv.ByteLength < 0 || bv.ByteOffset+bv.ByteLength > len(doc.Buffers[bv.Buffer].Data) {
		return nil, fmt.Errorf("%w: buffer view %d range %d+%d", ErrBrokenGraph, idx, bv.ByteOffset, bv.ByteLength)
	}
	return bv, nil
}

// triangulate turns a glTF index stream into triangles.
func triangulate(mode gltf.PrimitiveMode, idx []uint32) [][]uint32 {
	var faces [][]uint32
	switch mode {
	case gltf.PrimitiveTriangleStrip:
		for i := 0; i+2 < len(idx); i++ {
			if i%2 == 0 {
				faces = append(faces, []uint32{idx[i], idx[i+1], idx[i+2]})
			} else {
				faces = append(faces, []uint32{idx[i+1], idx[i], idx[i+2]})
			}
		}
	case gltf.PrimitiveTriangleFan:
		for i := 1; i+1 < len(idx); i++ {
			faces = append(faces, []uint32{idx[0], idx[i], idx[i+1]})
		}
	default:
		for i := 0; i+2 < len(idx); i += 3 {
			faces = append(faces, []uint32{idx[i], idx[i+1], idx[i+2]})
		}
	}
	return faces
}

// gltfImages returns a texture reference per glTF image. Images stored in a
// buffer view or a data URI are copied into s.Embedded.
func gltfImages(doc *gltf.Document, s *Scene) ([]string, error) {
	refs := make([]string, len(doc.Images))
	for i, img := range doc.Images {
		switch {
		case img.BufferView != nil:
			bv, err := gltfBufferView(doc, *img.BufferView)
			if err != nil {
				return nil, fmt.Errorf("image %d: %w", i, err)
			}
			data, err := modeler.ReadBufferView(doc, bv)
			if err != nil {
				return nil, fmt.Errorf("image %d: %w", i, err)
			}
			refs[i] = EmbeddedRef(len(s.Embedded))
			s.Embedded = append(s.Embedded, EmbeddedImage{Data: data, MimeType: img.MimeType})
		case img.IsEmbeddedResource():
			data, err := img.MarshalData()
			if err != nil {
				return nil, fmt.Errorf("image %d: %w", i, err)
			}
			refs[i] = EmbeddedRef(len(s.Embedded))
			s.Embedded = append(s.Embedded, EmbeddedImage{Data: data, MimeType: img.MimeType})
		case img.URI != "":
			uri, err := url.PathUnescape(img.URI)
			if err != nil {
				uri = img.URI
			}
			refs[i] = filepath.FromSlash(uri)
		}
	}
	return refs, nil
}

// gltfMaterials maps base color textures to the diffuse slot and
// metallic-roughness textures to the specular slot.
func gltfMaterials(doc *gltf.Document, images []string) []Material {
	ref := func(info *gltf.TextureInfo) (string, bool) {
		if info == nil || info.Index < 0 || info.Index >= len(doc.Textures) {
			return "", false
		}
		t := doc.Textures[info.Index]
		if t.Source == nil || *t.Source >= len(images) || images[*t.Source] == "" {
			return "", false
		}
		return images[*t.Source], true
	}

	out := make([]Material, len(doc.Materials))
	for i, m := range doc.Materials {
		out[i].Name = m.Name
		if m.PBRMetallicRoughness == nil {
			continue
		}
		if r, ok := ref(m.PBRMetallicRoughness.BaseColorTexture); ok {
			out[i].Diffuse = append(out[i].Diffuse, r)
		}
		if r, ok := ref(m.PBRMetallicRoughness.MetallicRoughnessTexture); ok {
			out[i].Specular = append(out[i].Specular, r)
		}
	}
	return out
}

// sourceFS exposes a Source as an fs.FS rooted at dir, so the glTF decoder
// can resolve external buffers from wherever the asset came from.
type sourceFS struct {
	src Source
	dir string
}

func (f sourceFS) ReadFile(name string) ([]byte, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "read", Path: name, Err: fs.ErrInvalid}
	}
	return f.src.ReadFile(filepath.Join(f.dir, filepath.FromSlash(name)))
}

func (f sourceFS) Open(name string) (fs.File, error) {
	data, err := f.ReadFile(name)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}
	return &memFile{Reader: bytes.NewReader(data), info: memInfo{name: filepath.Base(name), size: int64(len(data))}}, nil
}

type memFile struct {
	*bytes.Reader
	info memInfo
}

func (f *memFile) Stat() (fs.FileInfo, error) { return f.info, nil }
func (f *memFile) Close() error               { return nil }

type memInfo struct {
	name string
	size int64
}

func (i memInfo) Name() string       { return i.name }
func (i memInfo) Size() int64        { return i.size }
func (i memInfo) Mode() fs.FileMode  { return 0444 }
func (i memInfo) ModTime() time.Time { return time.Time{} }
func (i memInfo) IsDir() bool        { return false }
func (i memInfo) Sys() any           { return nil }
