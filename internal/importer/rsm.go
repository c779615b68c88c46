package importer

import (
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/meshview/internal/logger"
	"github.com/Faultbox/meshview/pkg/formats"
)

func init() {
	Register("RSM", decodeRSM, ".rsm")
}

func decodeRSM(src Source, path string) (*Scene, error) {
	data, err := src.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, err := formats.ParseRSM(data)
	if err != nil {
		return nil, err
	}
	return fromRSM(m, path)
}

// fromRSM builds the arena for an RSM model.
//
// Every RSM node becomes two arena nodes: a hierarchy node carrying
// T(position) * R * S, which children inherit, and a leaf child carrying
// T(offset) * Mat3, which applies to that node's own vertices only. A
// synthetic root mirrors Y to turn the format's Y-down space upright.
func fromRSM(m *formats.RSM, path string) (*Scene, error) {
	if len(m.Nodes) == 0 {
		return nil, ErrNoRoot
	}
	log := logger.Named("importer")

	s := &Scene{Format: "RSM " + m.Version.String(), ColorKey: true}
	for _, name := range m.Textures {
		s.Materials = append(s.Materials, Material{
			Name:    name,
			Diffuse: []string{rsmTextureRef(path, name)},
		})
	}

	byName := make(map[string]int, len(m.Nodes))
	for i := range m.Nodes {
		if _, dup := byName[m.Nodes[i].Name]; !dup {
			byName[m.Nodes[i].Name] = i
		}
	}

	s.Nodes = make([]Node, 1+2*len(m.Nodes))
	s.Root = 0
	s.Nodes[0] = Node{Name: "root", Local: mgl32.Scale3D(1, -1, 1)}

	parents := make([]int, len(m.Nodes))
	rootIdx := -1
	if r := m.Root(); r != nil {
		rootIdx = byName[r.Name]
	}

	for i := range m.Nodes {
		n := &m.Nodes[i]
		h, leaf := 1+2*i, 2+2*i

		s.Nodes[h] = Node{
			Name:     n.Name,
			Local:    rsmNodeLocal(n),
			Children: []int{leaf},
		}
		s.Nodes[leaf] = Node{
			Name:   n.Name + "#mesh",
			Local:  mgl32.Translate3D(n.Offset[0], n.Offset[1], n.Offset[2]).Mul4(mgl32.Mat3(n.Matrix).Mat4()),
			Meshes: rsmMeshes(s, n, len(m.Textures)),
		}

		parent := 0
		if p, ok := byName[n.Parent]; ok && n.Parent != "" && p != i && i != rootIdx {
			parent = 1 + 2*p
		} else if n.Parent != "" && i != rootIdx {
			log.Debug("RSM node parent not found, attaching to root",
				zap.String("node", n.Name), zap.String("parent", n.Parent))
		}
		s.Nodes[parent].Children = append(s.Nodes[parent].Children, h)
		parents[i] = parent
	}

	// Parent cycles leave whole subtrees unreachable from the root. Cut each
	// cycle at its first node and hang that node off the root.
	reached := make([]bool, len(s.Nodes))
	mark := func(start int) {
		stack := []int{start}
		for len(stack) > 0 {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if reached[n] {
				continue
			}
			reached[n] = true
			stack = append(stack, s.Nodes[n].Children...)
		}
	}
	mark(0)
	for i := range m.Nodes {
		h := 1 + 2*i
		if reached[h] {
			continue
		}
		log.Warn("RSM node unreachable from root, attaching to root",
			zap.String("node", m.Nodes[i].Name), zap.String("parent", m.Nodes[i].Parent))
		p := &s.Nodes[parents[i]]
		p.Children = slices.DeleteFunc(p.Children, func(c int) bool { return c == h })
		s.Nodes[0].Children = append(s.Nodes[0].Children, h)
		mark(h)
	}

	return s, nil
}

// rsmNodeLocal returns T(position) * R * S. The first rotation key frame,
// when present, replaces the axis-angle rotation.
func rsmNodeLocal(n *formats.RSMNode) mgl32.Mat4 {
	local := mgl32.Translate3D(n.Position[0], n.Position[1], n.Position[2])

	switch axis := mgl32.Vec3(n.RotAxis); {
	case len(n.RotKeys) > 0:
		q := n.RotKeys[0].Quaternion
		rot := mgl32.Quat{W: q[3], V: mgl32.Vec3{q[0], q[1], q[2]}}
		if rot.Len() > 1e-6 {
			local = local.Mul4(rot.Normalize().Mat4())
		}
	case n.RotAngle != 0 && axis.Len() > 1e-6:
		local = local.Mul4(mgl32.HomogRotate3D(n.RotAngle, axis.Normalize()))
	}

	return local.Mul4(mgl32.Scale3D(n.Scale[0], n.Scale[1], n.Scale[2]))
}

// rsmMeshes appends one mesh per texture used by the node's faces and
// returns their ids. Vertices are split per (vertex, texcoord) pair, and
// two-sided faces get a reversed copy with its own vertices.
func rsmMeshes(s *Scene, n *formats.RSMNode, textureCount int) []int {
	type vertexKey struct {
		vid, tid uint16
		back     bool
	}
	type group struct {
		mesh  Mesh
		index map[vertexKey]uint32
	}

	var order []int
	groups := make(map[int]*group)

	for _, f := range n.Faces {
		valid := true
		for _, vid := range f.VertexIDs {
			if int(vid) >= len(n.Vertices) {
				valid = false
				break
			}
		}
		if !valid {
			continue
		}

		tex := -1
		if int(f.TextureID) < len(n.TextureIDs) {
			if t := int(n.TextureIDs[f.TextureID]); t >= 0 && t < textureCount {
				tex = t
			}
		}
		g, ok := groups[tex]
		if !ok {
			g = &group{mesh: Mesh{Name: n.Name, Material: tex}, index: make(map[vertexKey]uint32)}
			groups[tex] = g
			order = append(order, tex)
		}

		vertex := func(corner int, back bool) uint32 {
			key := vertexKey{f.VertexIDs[corner], f.TexCoordIDs[corner], back}
			if idx, ok := g.index[key]; ok {
				return idx
			}
			var uv [2]float32
			if int(key.tid) < len(n.TexCoords) {
				tc := n.TexCoords[key.tid]
				uv = [2]float32{tc.U, tc.V}
			}
			idx := uint32(len(g.mesh.Positions))
			g.mesh.Positions = append(g.mesh.Positions, n.Vertices[key.vid])
			g.mesh.UVs = append(g.mesh.UVs, uv)
			g.index[key] = idx
			return idx
		}

		g.mesh.Faces = append(g.mesh.Faces, []uint32{vertex(0, false), vertex(1, false), vertex(2, false)})
		if f.TwoSide != 0 {
			g.mesh.Faces = append(g.mesh.Faces, []uint32{vertex(2, true), vertex(1, true), vertex(0, true)})
		}
	}

	ids := make([]int, 0, len(order))
	for _, tex := range order {
		ids = append(ids, len(s.Meshes))
		s.Meshes = append(s.Meshes, groups[tex].mesh)
	}
	return ids
}

// rsmTextureRef resolves an RSM texture name relative to the model file.
// Models normally live under data/model/ with textures under data/texture/.
func rsmTextureRef(modelPath, name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	slash := filepath.ToSlash(modelPath)
	if i := strings.LastIndex(strings.ToLower(slash), "data/model/"); i >= 0 {
		target := filepath.FromSlash(slash[:i+len("data/")] + "texture/" + name)
		if rel, err := filepath.Rel(filepath.Dir(modelPath), target); err == nil {
			return rel
		}
	}
	return filepath.FromSlash(name)
}
