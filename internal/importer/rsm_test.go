package importer

import (
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/meshview/pkg/formats"
)

func rsmTree() *formats.RSM {
	identity := [9]float32{1, 0, 0, 0, 1, 0, 0, 0, 1}
	return &formats.RSM{
		Version:  formats.RSMVersion{Major: 1, Minor: 5},
		Textures: []string{`tree\bark.bmp`, "leaf.bmp"},
		RootNode: "trunk",
		Nodes: []formats.RSMNode{
			{
				Name:       "trunk",
				TextureIDs: []int32{0, 1},
				Matrix:     identity,
				Offset:     [3]float32{0, 1, 0},
				Scale:      [3]float32{1, 1, 1},
				Vertices:   [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {1, 1, 0}},
				TexCoords:  []formats.RSMTexCoord{{U: 0, V: 0}, {U: 1, V: 0}, {U: 0, V: 1}},
				Faces: []formats.RSMFace{
					{VertexIDs: [3]uint16{0, 1, 2}, TexCoordIDs: [3]uint16{0, 1, 2}, TextureID: 0},
					{VertexIDs: [3]uint16{1, 3, 2}, TexCoordIDs: [3]uint16{1, 9, 2}, TextureID: 0},
					{VertexIDs: [3]uint16{0, 1, 3}, TextureID: 1, TwoSide: 1},
					{VertexIDs: [3]uint16{0, 1, 42}},
				},
			},
			{
				Name:     "crown",
				Parent:   "trunk",
				Matrix:   identity,
				Position: [3]float32{0, 5, 0},
				Scale:    [3]float32{2, 2, 2},
				RotKeys:  []formats.RSMRotKeyframe{{Quaternion: [4]float32{0, 0, 0, 1}}},
			},
			{
				Name:   "orphan",
				Parent: "nowhere",
				Matrix: identity,
				Scale:  [3]float32{1, 1, 1},
			},
		},
	}
}

func TestFromRSMHierarchy(t *testing.T) {
	s, err := fromRSM(rsmTree(), filepath.FromSlash("data/model/forest/tree.rsm"))
	require.NoError(t, err)
	require.NoError(t, s.Validate())

	assert.True(t, s.ColorKey)
	assert.Equal(t, "RSM 1.5", s.Format)
	require.Len(t, s.Nodes, 7)

	root := s.Nodes[s.Root]
	assert.Equal(t, mgl32.Scale3D(1, -1, 1), root.Local)
	// trunk and the orphan hang off the synthetic root; crown hangs off trunk.
	assert.Equal(t, []int{1, 5}, root.Children)
	assert.Equal(t, []int{2, 3}, s.Nodes[1].Children)

	crown := s.Nodes[3]
	assertMat4(t, mgl32.Translate3D(0, 5, 0).Mul4(mgl32.Scale3D(2, 2, 2)), crown.Local)

	trunkLeaf := s.Nodes[2]
	assertMat4(t, mgl32.Translate3D(0, 1, 0), trunkLeaf.Local)
	assert.Empty(t, trunkLeaf.Children)
}

func TestFromRSMMeshes(t *testing.T) {
	s, err := fromRSM(rsmTree(), "data/model/tree.rsm")
	require.NoError(t, err)

	trunkLeaf := s.Nodes[2]
	require.Len(t, trunkLeaf.Meshes, 2)

	bark := s.Meshes[trunkLeaf.Meshes[0]]
	assert.Equal(t, 0, bark.Material)
	assert.Len(t, bark.Faces, 2)
	// Four distinct (vertex, texcoord) pairs; the out-of-range texcoord maps to (0,0).
	assert.Len(t, bark.Positions, 4)
	assert.Equal(t, [2]float32{0, 0}, bark.UVs[3])

	leaf := s.Meshes[trunkLeaf.Meshes[1]]
	assert.Equal(t, 1, leaf.Material)
	require.Len(t, leaf.Faces, 2, "two-sided face gets a back face")
	assert.Len(t, leaf.Positions, 6, "back face has its own vertices")
	front, back := leaf.Faces[0], leaf.Faces[1]
	assert.Equal(t, leaf.Positions[front[0]], leaf.Positions[back[2]])
	assert.Equal(t, leaf.Positions[front[2]], leaf.Positions[back[0]])

	// The face referencing vertex 42 is dropped.
	total := 0
	for _, m := range s.Meshes {
		total += m.TriangleCount()
	}
	assert.Equal(t, 4, total)
}

func TestRSMTextureRef(t *testing.T) {
	tests := []struct {
		model, name, want string
	}{
		{"data/model/tree.rsm", `tree\bark.bmp`, "../texture/tree/bark.bmp"},
		{"ro/Data/Model/a/b.rsm", "leaf.bmp", "../../texture/leaf.bmp"},
		{"models/b.rsm", `sub\leaf.bmp`, "sub/leaf.bmp"},
	}
	for _, tt := range tests {
		got := rsmTextureRef(filepath.FromSlash(tt.model), tt.name)
		assert.Equal(t, filepath.FromSlash(tt.want), got, "%s + %s", tt.model, tt.name)
	}
}

func TestFromRSMEmpty(t *testing.T) {
	_, err := fromRSM(&formats.RSM{}, "empty.rsm")
	assert.ErrorIs(t, err, ErrNoRoot)
}

func TestFromRSMParentCycle(t *testing.T) {
	identity := [9]float32{1, 0, 0, 0, 1, 0, 0, 0, 1}
	node := func(name, parent string) formats.RSMNode {
		return formats.RSMNode{
			Name:       name,
			Parent:     parent,
			TextureIDs: []int32{0},
			Matrix:     identity,
			Scale:      [3]float32{1, 1, 1},
			Vertices:   [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
			Faces:      []formats.RSMFace{{VertexIDs: [3]uint16{0, 1, 2}}},
		}
	}
	m := &formats.RSM{
		Textures: []string{"stone.bmp"},
		RootNode: "base",
		Nodes:    []formats.RSMNode{node("base", ""), node("left", "right"), node("right", "left")},
	}

	s, err := fromRSM(m, "cycle.rsm")
	require.NoError(t, err)
	require.NoError(t, s.Validate())

	// Every node, and so every mesh, hangs off the root exactly once.
	seen := make(map[int]int)
	stack := []int{s.Root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		seen[n]++
		stack = append(stack, s.Nodes[n].Children...)
	}
	assert.Len(t, seen, len(s.Nodes))
	for n, count := range seen {
		assert.Equal(t, 1, count, "node %d (%s)", n, s.Nodes[n].Name)
	}

	left, right := 3, 5
	assert.Equal(t, "left", s.Nodes[left].Name)
	assert.Contains(t, s.Nodes[0].Children, left)
	assert.Contains(t, s.Nodes[left].Children, right)
	assert.NotContains(t, s.Nodes[right].Children, left)
	for _, leaf := range []int{2, 4, 6} {
		assert.NotEmpty(t, s.Nodes[leaf].Meshes, "leaf %s", s.Nodes[leaf].Name)
	}
}
