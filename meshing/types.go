// Package meshing turns a chunk's voxel data plus its immediate neighbor
// surface into a renderable mesh. It is polymorphic over the capability set
// {Initialize, Shutdown, GenerateMesh, SetConfig, GetConfig}; the cubic
// greedy mesher, the smooth (naive surface nets) mesher, and the water-surface
// helper all satisfy Mesher.
package meshing

import (
	"github.com/draquel/voxelterrain/coords"
	"github.com/draquel/voxelterrain/voxel"
	"github.com/go-gl/mathgl/mgl32"
)

// Edge enumerates the twelve chunk edges a request may carry a strip for,
// named by the two faces meeting at that edge.
type Edge int

const (
	EdgeXPosYPos Edge = iota
	EdgeXPosYNeg
	EdgeXNegYPos
	EdgeXNegYNeg
	EdgeXPosZPos
	EdgeXPosZNeg
	EdgeXNegZPos
	EdgeXNegZNeg
	EdgeYPosZPos
	EdgeYPosZNeg
	EdgeYNegZPos
	EdgeYNegZNeg
	edgeCount
)

// Corner enumerates the eight chunk corners, named by their three axis
// signs.
type Corner int

const (
	CornerXPosYPosZPos Corner = iota
	CornerXPosYPosZNeg
	CornerXPosYNegZPos
	CornerXPosYNegZNeg
	CornerXNegYPosZPos
	CornerXNegYPosZNeg
	CornerXNegYNegZPos
	CornerXNegYNegZNeg
	cornerCount
)

// EdgeCornerFlags is a bitset: edge bits occupy 0..11, corner bits occupy
// 12..19, matching the order of the Edge and Corner enums.
type EdgeCornerFlags uint32

func (f EdgeCornerFlags) HasEdge(e Edge) bool     { return f&(1<<uint(e)) != 0 }
func (f EdgeCornerFlags) HasCorner(c Corner) bool { return f&(1<<uint(12+c)) != 0 }

func (f EdgeCornerFlags) WithEdge(e Edge) EdgeCornerFlags {
	return f | 1<<uint(e)
}

func (f EdgeCornerFlags) WithCorner(c Corner) EdgeCornerFlags {
	return f | 1<<uint(12+c)
}

// Transition-face bitset, one bit per axis-ordered neighbor direction
// (-X,+X,-Y,+Y,-Z,+Z). A set bit means that neighbor's LOD level is
// strictly coarser, and this chunk must generate a transition cell along
// that face.
const (
	TransitionXNeg uint8 = 1 << 0
	TransitionXPos uint8 = 1 << 1
	TransitionYNeg uint8 = 1 << 2
	TransitionYPos uint8 = 1 << 3
	TransitionZNeg uint8 = 1 << 4
	TransitionZPos uint8 = 1 << 5
)

// axisOrder fixes the six-neighbor ordering used by NeighborLODLevels and
// the transition-face bitset: -X,+X,-Y,+Y,-Z,+Z. faceAxisIndex maps a
// coords.Face onto this order — Top/Bottom in this package's face enum are
// the Z axis, North/South are Y, East/West are X (coords.FaceOffset), which
// does not share the enum's own iota order, so the mapping is explicit
// rather than a cast.
func faceAxisIndex(f coords.Face) int {
	switch f {
	case coords.FaceWest:
		return 0
	case coords.FaceEast:
		return 1
	case coords.FaceSouth:
		return 2
	case coords.FaceNorth:
		return 3
	case coords.FaceBottom:
		return 4
	case coords.FaceTop:
		return 5
	}
	return -1
}

func transitionBitForFace(f coords.Face) uint8 {
	idx := faceAxisIndex(f)
	if idx < 0 {
		return 0
	}
	return 1 << uint(idx)
}

// HasTransitionFace reports whether face f is marked as a transition face
// in flags.
func HasTransitionFace(flags uint8, f coords.Face) bool {
	return flags&transitionBitForFace(f) != 0
}

// WithTransitionFace returns flags with face f's transition bit set. Lets a
// caller building a Request (the chunk manager, comparing LOD levels
// against neighbors) set bits without duplicating the face-to-bit mapping.
func WithTransitionFace(flags uint8, f coords.Face) uint8 {
	return flags | transitionBitForFace(f)
}

// FaceAxisIndex exposes the face-to-axis-order mapping (see faceAxisIndex)
// so a caller populating Request.NeighborLODLevels can index it correctly
// without duplicating the -X,+X,-Y,+Y,-Z,+Z convention.
func FaceAxisIndex(f coords.Face) int {
	return faceAxisIndex(f)
}

// Request is the envelope a mesher consumes to produce one chunk's mesh: its
// own voxel data, plus enough of its neighbors' surface to keep boundaries
// watertight. Unset neighbor fields are nil/empty — a mesher treats that as
// "world boundary or not-yet-loaded" indistinguishably, per the
// neighbor-edge-extraction contract.
type Request struct {
	ChunkCoord  coords.ChunkCoord
	LODLevel    int32
	ChunkSize   int32
	VoxelSize   float32
	WorldOrigin mgl32.Vec3
	VoxelData   []voxel.Voxel

	// NeighborFaces holds, per coords.Face, the ChunkSize² slice of voxels
	// immediately across that face (x=0 plane of the +X neighbor, etc.).
	// Indexed within a slice by sliceIndexForFace.
	NeighborFaces [6][]voxel.Voxel

	// EdgeStrips holds, per Edge, the ChunkSize-long strip of voxels along
	// that diagonal neighbor's shared edge.
	EdgeStrips [edgeCount][]voxel.Voxel

	// Corners holds the single voxel from each diagonal corner neighbor.
	Corners [cornerCount]voxel.Voxel

	EdgeCornerFlags EdgeCornerFlags
	TransitionFaces uint8
	// NeighborLODLevels is ordered -X,+X,-Y,+Y,-Z,+Z (see axisOrder); -1
	// means no neighbor loaded on that axis.
	NeighborLODLevels [6]int32
}

// NewRequest builds a Request for coord with VoxelData allocated to
// chunkSize³ air voxels and no neighbor data populated. Callers fill
// neighbor fields via SetNeighborFace/SetEdgeStrip/SetCorner.
func NewRequest(coord coords.ChunkCoord, lodLevel, chunkSize int32, voxelSize float32, worldOrigin mgl32.Vec3) *Request {
	r := &Request{
		ChunkCoord:  coord,
		LODLevel:    lodLevel,
		ChunkSize:   chunkSize,
		VoxelSize:   voxelSize,
		WorldOrigin: worldOrigin,
		VoxelData:   make([]voxel.Voxel, chunkSize*chunkSize*chunkSize),
	}
	for i := range r.NeighborLODLevels {
		r.NeighborLODLevels[i] = -1
	}
	return r
}

// IsValid reports whether VoxelData is allocated to the expected length.
func (r *Request) IsValid() bool {
	n := int(r.ChunkSize)
	return len(r.VoxelData) == n*n*n
}

func (r *Request) voxelIndex(x, y, z int32) int {
	return int(x + y*r.ChunkSize + z*r.ChunkSize*r.ChunkSize)
}

// GetVoxel returns the voxel at local (x,y,z), or Air if any coordinate is
// out of [0, ChunkSize).
func (r *Request) GetVoxel(x, y, z int32) voxel.Voxel {
	n := r.ChunkSize
	if x < 0 || x >= n || y < 0 || y >= n || z < 0 || z >= n {
		return voxel.Air()
	}
	return r.VoxelData[r.voxelIndex(x, y, z)]
}

// sliceIndexForFace computes the index into a NeighborFaces[face] slice for
// the two in-plane local coordinates remaining once the face's own axis is
// dropped; Top/Bottom slices are indexed by (x,y), North/South by (x,z),
// East/West by (y,z), each row-major with the first listed axis fastest.
// This indexing is this engine's own convention (the donor's worked example
// only specifies the Z-axis water-mesher's layout); it is applied
// consistently by both the extraction logic and every mesher in this
// package.
func (r *Request) sliceIndexForFace(f coords.Face, a, b int32) int {
	n := r.ChunkSize
	return int(a + b*n)
}

// NeighborVoxel returns the voxel across face f at the two in-plane local
// coordinates (a,b), or Air if that face's slice is absent.
func (r *Request) NeighborVoxel(f coords.Face, a, b int32) voxel.Voxel {
	slice := r.NeighborFaces[f]
	n := r.ChunkSize
	if len(slice) != int(n*n) {
		return voxel.Air()
	}
	idx := r.sliceIndexForFace(f, a, b)
	if idx < 0 || idx >= len(slice) {
		return voxel.Air()
	}
	return slice[idx]
}

// HasNeighborFace reports whether face f's neighbor slice is populated.
func (r *Request) HasNeighborFace(f coords.Face) bool {
	return len(r.NeighborFaces[f]) == int(r.ChunkSize*r.ChunkSize)
}

// ChunkWorldOrigin returns this chunk's minimum-corner world position.
func (r *Request) ChunkWorldOrigin() mgl32.Vec3 {
	c := r.ChunkCoord
	chunkWorld := r.VoxelSize * float32(r.ChunkSize)
	return r.WorldOrigin.Add(mgl32.Vec3{
		float32(c.X) * chunkWorld,
		float32(c.Y) * chunkWorld,
		float32(c.Z) * chunkWorld,
	})
}

// ChunkMeshData is a mesher's output: one CPU-side vertex stream plus an
// index buffer. Field layout is inferred from the water mesher's worked
// example (positions/normals/UVs/a second material-and-face-type UV
// channel/per-vertex color/indices) since the spec's non-goals leave the
// concrete packing to the renderer; this struct is the engine-internal
// staging form handed across that boundary.
type ChunkMeshData struct {
	Positions   []mgl32.Vec3
	Normals     []mgl32.Vec3
	UVs         []mgl32.Vec2
	MaterialUVs []mgl32.Vec2 // x = material id, y = face type, packed as floats for vertex-attribute upload
	Colors      [][4]uint8   // r=material id, g=biome id, b=ambient occlusion, a=255
	Indices     []uint32
}

// FaceType constants, stored in MaterialUVs' Y component.
const (
	FaceTypeTop float32 = iota
	FaceTypeSide
	FaceTypeBottom
)

func (m *ChunkMeshData) Reset() {
	m.Positions = m.Positions[:0]
	m.Normals = m.Normals[:0]
	m.UVs = m.UVs[:0]
	m.MaterialUVs = m.MaterialUVs[:0]
	m.Colors = m.Colors[:0]
	m.Indices = m.Indices[:0]
}

func (m *ChunkMeshData) VertexCount() int { return len(m.Positions) }
func (m *ChunkMeshData) IndexCount() int  { return len(m.Indices) }
func (m *ChunkMeshData) TriangleCount() int {
	return len(m.Indices) / 3
}

func (m *ChunkMeshData) IsValid() bool {
	return len(m.Positions) > 0 && len(m.Indices) > 0 && len(m.Indices)%3 == 0
}

// addVertex appends one vertex across every stream and returns its index.
func (m *ChunkMeshData) addVertex(pos, normal mgl32.Vec3, uv mgl32.Vec2, materialID, biomeID, ao uint8, faceType float32) uint32 {
	idx := uint32(len(m.Positions))
	m.Positions = append(m.Positions, pos)
	m.Normals = append(m.Normals, normal)
	m.UVs = append(m.UVs, uv)
	m.MaterialUVs = append(m.MaterialUVs, mgl32.Vec2{float32(materialID), faceType})
	m.Colors = append(m.Colors, [4]uint8{materialID, biomeID, ao, 255})
	return idx
}

// addQuad appends four vertices in the given order plus the two triangles
// (0,1,2) (0,2,3), i.e. CCW when the four corners are listed CCW as seen
// from the quad's front face.
func (m *ChunkMeshData) addQuad(base uint32) {
	m.Indices = append(m.Indices,
		base+0, base+1, base+2,
		base+0, base+2, base+3,
	)
}

// Config mirrors the mesher capability set's tunables. UseTransvoxel and
// GenerateSkirts are carried for parity with the full original capability
// set even though the smooth mesher does not yet consult either (see its
// doc comment) — a coarser-to-finer LOD seam on a smooth chunk is an open
// gap, not a silently-wrong fallback.
type Config struct {
	MaxVerticesPerChunk int
	MaxIndicesPerChunk  int
	GenerateUVs         bool
	CalculateAO         bool
	UVScale             float32
	UseGreedyMeshing    bool
	UseSmoothMeshing    bool
	IsoLevel            float32
	UseTransvoxel       bool
	GenerateSkirts      bool
	SkirtDepth          float32
}

// DefaultConfig matches the original engine's defaults.
func DefaultConfig() Config {
	return Config{
		MaxVerticesPerChunk: 65536,
		MaxIndicesPerChunk:  196608,
		GenerateUVs:         true,
		CalculateAO:         true,
		UVScale:             1.0,
		UseGreedyMeshing:    true,
		UseSmoothMeshing:    false,
		IsoLevel:            0.5,
		UseTransvoxel:       true,
		GenerateSkirts:      true,
		SkirtDepth:          2.0,
	}
}

// Stats reports one GenerateMesh call's output size and cost.
type Stats struct {
	VertexCount      uint32
	IndexCount       uint32
	FaceCount        uint32
	GenerationTimeMs float32
	SolidVoxelCount  uint32
	CulledFaceCount  uint32
}

func (s Stats) GetTriangleCount() uint32 { return s.IndexCount / 3 }

// Mesher is the polymorphic meshing capability set every variant in this
// package implements.
type Mesher interface {
	Initialize() error
	Shutdown()
	GenerateMesh(req *Request) (ChunkMeshData, Stats, bool)
	SetConfig(cfg Config)
	GetConfig() Config
}
