// RSM (Resource Model) format parser for 3D models.
package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Faultbox/meshview/pkg/encoding"
)

// RSM format errors.
var (
	ErrInvalidRSMMagic       = errors.New("invalid RSM magic: expected 'GRSM'")
	ErrUnsupportedRSMVersion = errors.New("unsupported RSM version")
	ErrTruncatedRSMData      = errors.New("truncated RSM data")
	ErrInvalidNodeCount      = errors.New("invalid RSM node count")
)

// Upper bounds on counts read from the file; anything larger is corruption.
const (
	maxRSMNodes    = 10000
	maxRSMElements = 1 << 20
	rsmNameLen     = 40
)

// RSMVersion represents the RSM file version.
type RSMVersion struct {
	Major uint8
	Minor uint8
}

// String returns the version as "Major.Minor".
func (v RSMVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// AtLeast reports whether v >= major.minor.
func (v RSMVersion) AtLeast(major, minor uint8) bool {
	return v.Major > major || (v.Major == major && v.Minor >= minor)
}

// RSMShadingType is the shading mode stored in the header.
type RSMShadingType int32

const (
	RSMShadingNone   RSMShadingType = 0
	RSMShadingFlat   RSMShadingType = 1
	RSMShadingSmooth RSMShadingType = 2
)

// String returns a human-readable shading type name.
func (s RSMShadingType) String() string {
	switch s {
	case RSMShadingNone:
		return "None"
	case RSMShadingFlat:
		return "Flat"
	case RSMShadingSmooth:
		return "Smooth"
	default:
		return fmt.Sprintf("Unknown(%d)", s)
	}
}

// RSMTexCoord is a texture coordinate with an optional vertex color.
type RSMTexCoord struct {
	Color [4]uint8 // v1.2+
	U, V  float32
}

// RSMFace is a triangle.
type RSMFace struct {
	VertexIDs   [3]uint16
	TexCoordIDs [3]uint16
	TextureID   uint16 // index into the node's TextureIDs
	TwoSide     int32
	SmoothGroup int32 // v1.2+
}

// RSMRotKeyframe is a rotation key. The quaternion is stored x, y, z, w.
type RSMRotKeyframe struct {
	Frame      int32
	Quaternion [4]float32
}

// RSMPosKeyframe is a position key (v < 1.5 only).
type RSMPosKeyframe struct {
	Frame    int32
	Position [3]float32
}

// RSMNode is one node of the model hierarchy.
type RSMNode struct {
	Name       string
	Parent     string
	TextureIDs []int32 // indices into RSM.Textures

	Matrix   [9]float32 // 3x3, column order
	Offset   [3]float32 // mesh pivot, applied to this node's vertices only
	Position [3]float32
	RotAngle float32 // radians
	RotAxis  [3]float32
	Scale    [3]float32

	Vertices  [][3]float32
	TexCoords []RSMTexCoord
	Faces     []RSMFace

	PosKeys []RSMPosKeyframe
	RotKeys []RSMRotKeyframe
}

// RSMVolumeBox is a collision volume.
type RSMVolumeBox struct {
	Size     [3]float32
	Position [3]float32
	Rotation [3]float32
	Flag     int32 // v1.3+
}

// RSM is a parsed RSM file.
type RSM struct {
	Version     RSMVersion
	AnimLength  int32 // milliseconds
	Shading     RSMShadingType
	Alpha       float32
	Textures    []string
	RootNode    string
	Nodes       []RSMNode
	VolumeBoxes []RSMVolumeBox
}

// rsmReader wraps a reader and keeps the first error, so a run of reads can
// be checked once.
type rsmReader struct {
	r   *bytes.Reader
	err error
}

func (rr *rsmReader) read(v any) {
	if rr.err != nil {
		return
	}
	if err := binary.Read(rr.r, binary.LittleEndian, v); err != nil {
		rr.err = ErrTruncatedRSMData
	}
}

func (rr *rsmReader) count(limit int32) int32 {
	var n int32
	rr.read(&n)
	if rr.err == nil && (n < 0 || n > limit) {
		rr.err = fmt.Errorf("%w: count %d out of range", ErrTruncatedRSMData, n)
	}
	if rr.err != nil {
		return 0
	}
	return n
}

func (rr *rsmReader) name() string {
	buf := make([]byte, rsmNameLen)
	if rr.err == nil {
		if _, err := io.ReadFull(rr.r, buf); err != nil {
			rr.err = ErrTruncatedRSMData
		}
	}
	return encoding.FixedStringToUTF8(buf)
}

// ParseRSM parses RSM data from a byte slice. Versions 1.1 through 1.5 are
// supported.
func ParseRSM(data []byte) (*RSM, error) {
	if len(data) < 6 {
		return nil, ErrTruncatedRSMData
	}
	if string(data[:4]) != "GRSM" {
		return nil, ErrInvalidRSMMagic
	}

	rsm := &RSM{Version: RSMVersion{Major: data[4], Minor: data[5]}}
	if rsm.Version.Major != 1 || rsm.Version.Minor < 1 || rsm.Version.Minor > 5 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedRSMVersion, rsm.Version)
	}

	rr := &rsmReader{r: bytes.NewReader(data[6:])}
	rr.read(&rsm.AnimLength)
	rr.read(&rsm.Shading)

	rsm.Alpha = 1
	if rsm.Version.AtLeast(1, 4) {
		var alpha uint8
		rr.read(&alpha)
		rsm.Alpha = float32(alpha) / 255
	}

	var reserved [16]byte
	rr.read(&reserved)

	textureCount := rr.count(maxRSMElements)
	for i := int32(0); i < textureCount && rr.err == nil; i++ {
		rsm.Textures = append(rsm.Textures, rr.name())
	}

	rsm.RootNode = rr.name()

	var nodeCount int32
	rr.read(&nodeCount)
	if rr.err != nil {
		return nil, rr.err
	}
	if nodeCount < 0 || nodeCount > maxRSMNodes {
		return nil, fmt.Errorf("%w: %d", ErrInvalidNodeCount, nodeCount)
	}

	rsm.Nodes = make([]RSMNode, nodeCount)
	for i := range rsm.Nodes {
		parseRSMNode(rr, rsm.Version, &rsm.Nodes[i])
		if rr.err != nil {
			return nil, fmt.Errorf("parsing node %d: %w", i, rr.err)
		}
	}

	// Volume boxes are optional trailing data.
	if rr.r.Len() >= 4 {
		boxCount := rr.count(maxRSMElements)
		rsm.VolumeBoxes = make([]RSMVolumeBox, boxCount)
		for i := range rsm.VolumeBoxes {
			box := &rsm.VolumeBoxes[i]
			rr.read(&box.Size)
			rr.read(&box.Position)
			rr.read(&box.Rotation)
			if rsm.Version.AtLeast(1, 3) {
				rr.read(&box.Flag)
			}
		}
		if rr.err != nil {
			return nil, fmt.Errorf("parsing volume boxes: %w", rr.err)
		}
	}

	return rsm, nil
}

func parseRSMNode(rr *rsmReader, version RSMVersion, node *RSMNode) {
	node.Name = rr.name()
	node.Parent = rr.name()

	node.TextureIDs = make([]int32, rr.count(maxRSMElements))
	rr.read(node.TextureIDs)

	rr.read(&node.Matrix)
	rr.read(&node.Offset)
	rr.read(&node.Position)
	rr.read(&node.RotAngle)
	rr.read(&node.RotAxis)
	rr.read(&node.Scale)

	node.Vertices = make([][3]float32, rr.count(maxRSMElements))
	rr.read(node.Vertices)

	node.TexCoords = make([]RSMTexCoord, rr.count(maxRSMElements))
	for i := range node.TexCoords {
		tc := &node.TexCoords[i]
		if version.AtLeast(1, 2) {
			rr.read(&tc.Color)
		} else {
			tc.Color = [4]uint8{255, 255, 255, 255}
		}
		rr.read(&tc.U)
		rr.read(&tc.V)
	}

	node.Faces = make([]RSMFace, rr.count(maxRSMElements))
	for i := range node.Faces {
		f := &node.Faces[i]
		var padding uint16
		rr.read(&f.VertexIDs)
		rr.read(&f.TexCoordIDs)
		rr.read(&f.TextureID)
		rr.read(&padding)
		rr.read(&f.TwoSide)
		if version.AtLeast(1, 2) {
			rr.read(&f.SmoothGroup)
		}
	}

	if !version.AtLeast(1, 5) {
		node.PosKeys = make([]RSMPosKeyframe, rr.count(maxRSMElements))
		for i := range node.PosKeys {
			rr.read(&node.PosKeys[i].Frame)
			rr.read(&node.PosKeys[i].Position)
		}
	}

	node.RotKeys = make([]RSMRotKeyframe, rr.count(maxRSMElements))
	for i := range node.RotKeys {
		rr.read(&node.RotKeys[i].Frame)
		rr.read(&node.RotKeys[i].Quaternion)
	}
}

// ParseRSMFile parses an RSM file from disk.
func ParseRSMFile(path string) (*RSM, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading RSM file: %w", err)
	}
	return ParseRSM(data)
}

// TotalVertexCount returns the number of vertices across all nodes.
func (rsm *RSM) TotalVertexCount() int {
	total := 0
	for _, node := range rsm.Nodes {
		total += len(node.Vertices)
	}
	return total
}

// TotalFaceCount returns the number of faces across all nodes.
func (rsm *RSM) TotalFaceCount() int {
	total := 0
	for _, node := range rsm.Nodes {
		total += len(node.Faces)
	}
	return total
}

// NodeByName returns the first node with the given name, or nil.
func (rsm *RSM) NodeByName(name string) *RSMNode {
	for i := range rsm.Nodes {
		if rsm.Nodes[i].Name == name {
			return &rsm.Nodes[i]
		}
	}
	return nil
}

// Root returns the node named by RootNode, falling back to the first
// parentless node.
func (rsm *RSM) Root() *RSMNode {
	if n := rsm.NodeByName(rsm.RootNode); n != nil {
		return n
	}
	for i := range rsm.Nodes {
		if rsm.Nodes[i].Parent == "" {
			return &rsm.Nodes[i]
		}
	}
	return nil
}
