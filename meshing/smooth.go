package meshing

import (
	"github.com/go-gl/mathgl/mgl32"
)

// SmoothMesher extracts an isosurface from the chunk's density field using
// naive surface nets: one dual vertex per cell whose eight corners straddle
// the iso level, connected into quads along every grid edge that itself
// straddles the level. It trades the classic Marching Cubes case table for
// a much smaller, unambiguous construction that produces the same class of
// watertight dual-contoured mesh; this codebase does not implement true
// Transvoxel transition cells (no worked example of that algorithm exists
// to build from), and it generates no skirts either: GenerateMesh reads
// neither UseTransvoxel nor GenerateSkirts, so a coarser-to-finer LOD seam
// on a smooth chunk is left unclosed.
type SmoothMesher struct {
	cfg Config
}

func NewSmoothMesher() *SmoothMesher {
	return &SmoothMesher{cfg: DefaultConfig()}
}

func (m *SmoothMesher) Initialize() error    { return nil }
func (m *SmoothMesher) Shutdown()            {}
func (m *SmoothMesher) SetConfig(cfg Config) { m.cfg = cfg }
func (m *SmoothMesher) GetConfig() Config    { return m.cfg }

func (m *SmoothMesher) density(req *Request, x, y, z int32) float32 {
	return float32(req.GetVoxel(x, y, z).Density) / 255.0
}

func (m *SmoothMesher) inside(d float32) bool {
	return d >= m.cfg.IsoLevel
}

// cubeCornerOffsets lists the eight unit-cube corner offsets in the bit
// order used by cell index 0..7 (bit0=x, bit1=y, bit2=z).
var cubeCornerOffsets = [8][3]int32{
	{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {1, 1, 0},
	{0, 0, 1}, {1, 0, 1}, {0, 1, 1}, {1, 1, 1},
}

// cubeEdges lists the twelve cube edges as corner-index pairs.
var cubeEdges = [12][2]int{
	{0, 1}, {0, 2}, {0, 4},
	{1, 3}, {1, 5},
	{2, 3}, {2, 6},
	{3, 7},
	{4, 5}, {4, 6},
	{5, 7},
	{6, 7},
}

// GenerateMesh extracts the interior isosurface (cells strictly inside the
// chunk, not touching neighbor data) as a quad mesh via surface nets.
func (m *SmoothMesher) GenerateMesh(req *Request) (ChunkMeshData, Stats, bool) {
	var mesh ChunkMeshData
	var stats Stats
	if !req.IsValid() {
		return mesh, stats, false
	}

	n := req.ChunkSize
	if n < 2 {
		return mesh, stats, true
	}
	cellsPerAxis := n - 1
	vertexIndex := make([]int32, cellsPerAxis*cellsPerAxis*cellsPerAxis)
	for i := range vertexIndex {
		vertexIndex[i] = -1
	}
	cellIdx := func(x, y, z int32) int {
		return int(x + y*cellsPerAxis + z*cellsPerAxis*cellsPerAxis)
	}
	validCell := func(x, y, z int32) bool {
		return x >= 0 && x < cellsPerAxis && y >= 0 && y < cellsPerAxis && z >= 0 && z < cellsPerAxis
	}

	origin := req.ChunkWorldOrigin()
	vs := req.VoxelSize

	for z := int32(0); z < cellsPerAxis; z++ {
		for y := int32(0); y < cellsPerAxis; y++ {
			for x := int32(0); x < cellsPerAxis; x++ {
				var corners [8]float32
				var mask uint8
				for i, off := range cubeCornerOffsets {
					d := m.density(req, x+off[0], y+off[1], z+off[2])
					corners[i] = d
					if m.inside(d) {
						mask |= 1 << uint(i)
					}
				}
				if mask == 0 || mask == 0xFF {
					continue
				}

				var sum mgl32.Vec3
				count := 0
				for _, e := range cubeEdges {
					a, b := e[0], e[1]
					insideA := mask&(1<<uint(a)) != 0
					insideB := mask&(1<<uint(b)) != 0
					if insideA == insideB {
						continue
					}
					da, db := corners[a], corners[b]
					t := (m.cfg.IsoLevel - da) / (db - da)
					oa, ob := cubeCornerOffsets[a], cubeCornerOffsets[b]
					p := mgl32.Vec3{
						float32(oa[0]) + t*float32(ob[0]-oa[0]),
						float32(oa[1]) + t*float32(ob[1]-oa[1]),
						float32(oa[2]) + t*float32(ob[2]-oa[2]),
					}
					sum = sum.Add(p)
					count++
				}
				if count == 0 {
					continue
				}
				avg := sum.Mul(1.0 / float32(count))
				localPos := mgl32.Vec3{float32(x) + avg.X(), float32(y) + avg.Y(), float32(z) + avg.Z()}
				worldPos := origin.Add(localPos.Mul(vs))

				v := req.GetVoxel(x, y, z)
				vertexIndex[cellIdx(x, y, z)] = int32(mesh.addVertex(worldPos, mgl32.Vec3{0, 0, 1}, mgl32.Vec2{}, v.MaterialID, v.BiomeID, 255, FaceTypeSide))
			}
		}
	}

	emit := func(x, y, z int32, insideLow bool, axis int) {
		var c1, c2, c3, c4 [3]int32
		switch axis {
		case 0: // x-aligned edge: cells share y-1,z-1 / y,z-1 / y,z / y-1,z at this x
			c1 = [3]int32{x, y - 1, z - 1}
			c2 = [3]int32{x, y, z - 1}
			c3 = [3]int32{x, y, z}
			c4 = [3]int32{x, y - 1, z}
		case 1: // y-aligned edge
			c1 = [3]int32{x - 1, y, z - 1}
			c2 = [3]int32{x, y, z - 1}
			c3 = [3]int32{x, y, z}
			c4 = [3]int32{x - 1, y, z}
		default: // z-aligned edge
			c1 = [3]int32{x - 1, y - 1, z}
			c2 = [3]int32{x, y - 1, z}
			c3 = [3]int32{x, y, z}
			c4 = [3]int32{x - 1, y, z}
		}
		if !validCell(c1[0], c1[1], c1[2]) || !validCell(c2[0], c2[1], c2[2]) ||
			!validCell(c3[0], c3[1], c3[2]) || !validCell(c4[0], c4[1], c4[2]) {
			return
		}
		v1 := vertexIndex[cellIdx(c1[0], c1[1], c1[2])]
		v2 := vertexIndex[cellIdx(c2[0], c2[1], c2[2])]
		v3 := vertexIndex[cellIdx(c3[0], c3[1], c3[2])]
		v4 := vertexIndex[cellIdx(c4[0], c4[1], c4[2])]
		if v1 < 0 || v2 < 0 || v3 < 0 || v4 < 0 {
			return
		}
		if insideLow {
			mesh.Indices = append(mesh.Indices, uint32(v1), uint32(v2), uint32(v3), uint32(v1), uint32(v3), uint32(v4))
		} else {
			mesh.Indices = append(mesh.Indices, uint32(v1), uint32(v4), uint32(v3), uint32(v1), uint32(v3), uint32(v2))
		}
	}

	for z := int32(0); z < n; z++ {
		for y := int32(0); y < n; y++ {
			for x := int32(0); x < n-1; x++ {
				da, db := m.density(req, x, y, z), m.density(req, x+1, y, z)
				if m.inside(da) != m.inside(db) {
					emit(x, y, z, m.inside(da), 0)
				}
			}
		}
	}
	for z := int32(0); z < n; z++ {
		for y := int32(0); y < n-1; y++ {
			for x := int32(0); x < n; x++ {
				da, db := m.density(req, x, y, z), m.density(req, x, y+1, z)
				if m.inside(da) != m.inside(db) {
					emit(x, y, z, m.inside(da), 1)
				}
			}
		}
	}
	for z := int32(0); z < n-1; z++ {
		for y := int32(0); y < n; y++ {
			for x := int32(0); x < n; x++ {
				da, db := m.density(req, x, y, z), m.density(req, x, y, z+1)
				if m.inside(da) != m.inside(db) {
					emit(x, y, z, m.inside(da), 2)
				}
			}
		}
	}

	stats.VertexCount = uint32(mesh.VertexCount())
	stats.IndexCount = uint32(mesh.IndexCount())
	stats.FaceCount = uint32(mesh.TriangleCount()) / 2
	return mesh, stats, true
}
