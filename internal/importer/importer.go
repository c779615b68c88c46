// Package importer reads 3D asset files into an owned, index-addressed
// snapshot of their node tree, meshes and materials.
//
// A Scene holds no pointers into any format library: nodes reference
// children and meshes by integer id, so the flattener in package scene can
// walk it after the decoder's own data is gone.
package importer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

var (
	// ErrUnsupportedFormat means no registered format handles the extension.
	ErrUnsupportedFormat = errors.New("unsupported asset format")
	// ErrNoRoot means the file decoded but has no root node.
	ErrNoRoot = errors.New("scene has no root node")
	// ErrBrokenGraph means a node references a node or mesh id that does not exist.
	ErrBrokenGraph = errors.New("scene graph references missing element")
)

// EmbeddedPrefix marks a texture reference that indexes Scene.Embedded
// instead of naming a file, as in "*0".
const EmbeddedPrefix = "*"

// Box is an axis-aligned bounding box.
type Box struct {
	Min, Max mgl32.Vec3
}

// Node is one entry of the node arena.
type Node struct {
	Name     string
	Local    mgl32.Mat4 // column-major, relative to the parent
	Meshes   []int      // ids into Scene.Meshes
	Children []int      // ids into Scene.Nodes
}

// Mesh is raw geometry as the format stores it.
type Mesh struct {
	Name      string
	Positions [][3]float32
	Normals   [][3]float32 // empty or len(Positions)
	UVs       [][2]float32 // empty or len(Positions)
	Faces     [][]uint32   // polygons; three or more indices each
	Material  int          // id into Scene.Materials, -1 for none
	Bounds    *Box         // local box when the format records one
}

// TriangleCount returns the number of triangles the faces fan out to.
func (m *Mesh) TriangleCount() int {
	n := 0
	for _, f := range m.Faces {
		if len(f) >= 3 {
			n += len(f) - 2
		}
	}
	return n
}

// Material lists texture references by semantic slot. A reference is either
// a path relative to the asset's directory or EmbeddedPrefix followed by an
// index into Scene.Embedded.
type Material struct {
	Name     string
	Diffuse  []string
	Specular []string
}

// EmbeddedImage is an image stored inside the asset container.
type EmbeddedImage struct {
	Data     []byte
	MimeType string // as reported by the container, may be empty
}

// Scene is the owned snapshot of one decoded asset.
type Scene struct {
	Format    string
	Nodes     []Node
	Root      int
	Meshes    []Mesh
	Materials []Material
	Embedded  []EmbeddedImage
	// ColorKey asks texture decoding to turn pure magenta transparent.
	ColorKey bool
}

// Validate checks that every id in the graph is in range.
func (s *Scene) Validate() error {
	if s.Root < 0 || s.Root >= len(s.Nodes) {
		return ErrNoRoot
	}
	for i, n := range s.Nodes {
		for _, c := range n.Children {
			if c < 0 || c >= len(s.Nodes) {
				return fmt.Errorf("%w: node %d child %d", ErrBrokenGraph, i, c)
			}
		}
		for _, m := range n.Meshes {
			if m < 0 || m >= len(s.Meshes) {
				return fmt.Errorf("%w: node %d mesh %d", ErrBrokenGraph, i, m)
			}
		}
	}
	for i, m := range s.Meshes {
		if m.Material >= len(s.Materials) {
			return fmt.Errorf("%w: mesh %d material %d", ErrBrokenGraph, i, m.Material)
		}
	}
	return nil
}

// ParseEmbedded reports whether ref names an embedded image and returns its index.
func ParseEmbedded(ref string) (int, bool) {
	if !strings.HasPrefix(ref, EmbeddedPrefix) {
		return 0, false
	}
	n, err := strconv.Atoi(ref[len(EmbeddedPrefix):])
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// EmbeddedRef formats the reference for embedded image n.
func EmbeddedRef(n int) string {
	return EmbeddedPrefix + strconv.Itoa(n)
}

// Source provides file contents by path.
type Source interface {
	ReadFile(name string) ([]byte, error)
}

// Disk reads from the local filesystem.
type Disk struct{}

// ReadFile implements Source.
func (Disk) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(name)
}

// DecodeFunc decodes the asset at path, reading it and any side files
// through src.
type DecodeFunc func(src Source, path string) (*Scene, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]format)
)

type format struct {
	name   string
	decode DecodeFunc
}

// Register makes a decoder available for the given file extensions.
// Extensions include the dot and are matched case-insensitively.
func Register(name string, decode DecodeFunc, exts ...string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	for _, ext := range exts {
		registry[strings.ToLower(ext)] = format{name: name, decode: decode}
	}
}

// Extensions returns every registered extension, sorted.
func Extensions() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	exts := make([]string, 0, len(registry))
	for ext := range registry {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Import decodes the asset at path using the format registered for its
// extension and validates the resulting graph.
func Import(src Source, path string) (*Scene, error) {
	if src == nil {
		src = Disk{}
	}

	ext := strings.ToLower(filepath.Ext(path))
	registryMu.RLock()
	f, ok := registry[ext]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	s, err := f.decode(src, path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.name, err)
	}
	if s.Format == "" {
		s.Format = f.name
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", f.name, err)
	}
	return s, nil
}
