package meshing

import (
	"github.com/draquel/voxelterrain/coords"
	"github.com/go-gl/mathgl/mgl32"
)

// CubicMesher emits one axis-aligned quad per merged rectangle of exposed
// solid face, per slice along each of the six face directions — the
// greedy-merge/visited-mask/axis-remap structure generalizes the same
// per-direction mask-then-merge shape used for single block-type chunks,
// extended here to also respect chunk-boundary neighbor data and to split
// a run wherever material id changes so textured faces never bleed across
// materials.
type CubicMesher struct {
	cfg Config
}

func NewCubicMesher() *CubicMesher {
	return &CubicMesher{cfg: DefaultConfig()}
}

func (m *CubicMesher) Initialize() error    { return nil }
func (m *CubicMesher) Shutdown()            {}
func (m *CubicMesher) SetConfig(cfg Config) { m.cfg = cfg }
func (m *CubicMesher) GetConfig() Config    { return m.cfg }

// inPlaneCoords returns the two local coordinates (a,b) that sliceIndexForFace
// expects for face f, given a full local position — Top/Bottom use (x,y),
// North/South use (x,z), East/West use (y,z).
func inPlaneCoords(f coords.Face, x, y, z int32) (int32, int32) {
	switch f {
	case coords.FaceTop, coords.FaceBottom:
		return x, y
	case coords.FaceNorth, coords.FaceSouth:
		return x, z
	default:
		return y, z
	}
}

// neighborSolid reports whether the voxel immediately across face f from
// local (x,y,z) is solid, resolving within-chunk voxels directly and
// boundary voxels from the populated neighbor slice. A missing neighbor is
// treated as air (world boundary / not yet loaded), which generates a
// closing face — the remesh-on-neighbor-arrival rule corrects this once the
// real neighbor loads.
func neighborSolid(req *Request, f coords.Face, x, y, z int32) bool {
	off := coords.FaceOffset(f)
	nx, ny, nz := x+off.X, y+off.Y, z+off.Z
	n := req.ChunkSize
	if nx >= 0 && nx < n && ny >= 0 && ny < n && nz >= 0 && nz < n {
		return req.GetVoxel(nx, ny, nz).IsSolid()
	}
	if !req.HasNeighborFace(f) {
		return false
	}
	a, b := inPlaneCoords(f, x, y, z)
	return req.NeighborVoxel(f, a, b).IsSolid()
}

var allFaces = [6]coords.Face{
	coords.FaceTop, coords.FaceBottom, coords.FaceNorth, coords.FaceSouth, coords.FaceEast, coords.FaceWest,
}

// cellKey identifies the exposed-face attributes a merge run must agree on.
type cellKey struct {
	exposed    bool
	materialID uint8
	biomeID    uint8
	ao         uint8
}

// GenerateMesh builds the cubic greedy mesh for req: one pass per face
// direction, each pass scanning chunk_size slices and greedily merging
// same-material exposed-face rectangles within each slice.
func (m *CubicMesher) GenerateMesh(req *Request) (ChunkMeshData, Stats, bool) {
	var mesh ChunkMeshData
	var stats Stats
	if !req.IsValid() {
		return mesh, stats, false
	}

	n := req.ChunkSize
	for _, face := range allFaces {
		m.meshFace(&mesh, req, face, n)
	}

	stats.VertexCount = uint32(mesh.VertexCount())
	stats.IndexCount = uint32(mesh.IndexCount())
	stats.FaceCount = uint32(mesh.TriangleCount()) / 2
	for _, v := range req.VoxelData {
		if v.IsSolid() {
			stats.SolidVoxelCount++
		}
	}
	return mesh, stats, true
}

// meshFace runs the greedy merge for a single face direction across every
// slice along that face's axis.
func (m *CubicMesher) meshFace(mesh *ChunkMeshData, req *Request, face coords.Face, n int32) {
	cells := make([]cellKey, n*n)
	idx := func(a, b int32) int { return int(a + b*n) }

	for layer := int32(0); layer < n; layer++ {
		for i := range cells {
			cells[i] = cellKey{}
		}

		for b := int32(0); b < n; b++ {
			for a := int32(0); a < n; a++ {
				x, y, z := faceLocalPos(face, a, b, layer)
				v := req.GetVoxel(x, y, z)
				if !v.IsSolid() {
					continue
				}
				if neighborSolid(req, face, x, y, z) {
					continue
				}
				cells[idx(a, b)] = cellKey{
					exposed:    true,
					materialID: v.MaterialID,
					biomeID:    v.BiomeID,
					ao:         m.faceAO(req, face, x, y, z),
				}
			}
		}

		processed := make([]bool, n*n)
		for b := int32(0); b < n; b++ {
			for a := int32(0); a < n; a++ {
				c := cells[idx(a, b)]
				if !c.exposed || processed[idx(a, b)] {
					continue
				}
				w := int32(1)
				for a+w < n {
					nc := cells[idx(a+w, b)]
					if !nc.exposed || processed[idx(a+w, b)] || nc != c {
						break
					}
					w++
				}
				h := int32(1)
			expand:
				for b+h < n {
					for ai := a; ai < a+w; ai++ {
						nc := cells[idx(ai, b+h)]
						if !nc.exposed || processed[idx(ai, b+h)] || nc != c {
							break expand
						}
					}
					h++
				}
				for bi := b; bi < b+h; bi++ {
					for ai := a; ai < a+w; ai++ {
						processed[idx(ai, bi)] = true
					}
				}
				emitCubicQuad(mesh, req, face, a, b, w, h, layer, c, m.cfg)
			}
		}
	}
}

// faceLocalPos maps a face's in-plane (a,b) coordinates plus its layer
// index back to a full local voxel position.
func faceLocalPos(face coords.Face, a, b, layer int32) (int32, int32, int32) {
	switch face {
	case coords.FaceTop, coords.FaceBottom:
		return a, b, layer
	case coords.FaceNorth, coords.FaceSouth:
		return a, layer, b
	default: // East, West
		return layer, a, b
	}
}

// faceAO approximates per-quad ambient occlusion as a 0-255 value derived
// from how many of the face's four in-plane edge neighbors are solid; flat
// 255 (no occlusion) when the config disables AO, matching the no-AO
// default used when that cost isn't wanted.
func (m *CubicMesher) faceAO(req *Request, face coords.Face, x, y, z int32) uint8 {
	if !m.cfg.CalculateAO {
		return 255
	}
	var occluders int
	for _, d := range tangentOffsets(face) {
		nx, ny, nz := x+d[0], y+d[1], z+d[2]
		if solidAtOrBoundary(req, nx, ny, nz) {
			occluders++
		}
	}
	if occluders > 4 {
		occluders = 4
	}
	return uint8(255 - occluders*63)
}

func solidAtOrBoundary(req *Request, x, y, z int32) bool {
	n := req.ChunkSize
	if x < 0 || x >= n || y < 0 || y >= n || z < 0 || z >= n {
		return false
	}
	return req.GetVoxel(x, y, z).IsSolid()
}

// tangentOffsets returns the four in-plane axis-neighbor offsets used to
// approximate a face's occlusion.
func tangentOffsets(face coords.Face) [4][3]int32 {
	switch face {
	case coords.FaceTop, coords.FaceBottom:
		return [4][3]int32{{1, 0, 0}, {-1, 0, 0}, {0, 1, 0}, {0, -1, 0}}
	case coords.FaceNorth, coords.FaceSouth:
		return [4][3]int32{{1, 0, 0}, {-1, 0, 0}, {0, 0, 1}, {0, 0, -1}}
	default:
		return [4][3]int32{{0, 1, 0}, {0, -1, 0}, {0, 0, 1}, {0, 0, -1}}
	}
}

// emitCubicQuad appends the merged rectangle [a0,a0+w) x [b0,b0+h) on face's
// plane at the given layer, in chunk-local then world space, CCW as seen
// from outside the solid volume (i.e. from the direction the face normal
// points).
func emitCubicQuad(mesh *ChunkMeshData, req *Request, face coords.Face, a0, b0, w, h, layer int32, c cellKey, cfg Config) {
	origin := req.ChunkWorldOrigin()
	vs := req.VoxelSize
	normal := coords.FaceNormal(face)

	localCorners := quadLocalCorners(face, a0, b0, w, h, layer)
	var world [4]mgl32.Vec3
	for i, lp := range localCorners {
		world[i] = origin.Add(mgl32.Vec3{float32(lp[0]) * vs, float32(lp[1]) * vs, float32(lp[2]) * vs})
	}

	uvScale := float32(1)
	if cfg.UVScale != 0 {
		uvScale = cfg.UVScale
	}
	faceType := FaceTypeSide
	switch face {
	case coords.FaceTop:
		faceType = FaceTypeTop
	case coords.FaceBottom:
		faceType = FaceTypeBottom
	}

	uvs := [4]mgl32.Vec2{{0, 0}, {float32(w) * uvScale, 0}, {float32(w) * uvScale, float32(h) * uvScale}, {0, float32(h) * uvScale}}

	base := uint32(mesh.VertexCount())
	for i := 0; i < 4; i++ {
		var uv mgl32.Vec2
		if cfg.GenerateUVs {
			uv = uvs[i]
		}
		mesh.addVertex(world[i], normal, uv, c.materialID, c.biomeID, c.ao, faceType)
	}
	mesh.addQuad(base)
}

// quadLocalCorners returns the four chunk-local corners of a merged
// rectangle on face's plane, ordered CCW as seen from the direction the
// face normal points (i.e. from outside the solid voxel).
func quadLocalCorners(face coords.Face, a0, b0, w, h, layer int32) [4][3]int32 {
	switch face {
	case coords.FaceTop: // +Z, viewed from above: CCW in (x,y)
		z := layer + 1
		return [4][3]int32{{a0, b0, z}, {a0 + w, b0, z}, {a0 + w, b0 + h, z}, {a0, b0 + h, z}}
	case coords.FaceBottom: // -Z, viewed from below: reverse winding
		z := layer
		return [4][3]int32{{a0, b0 + h, z}, {a0 + w, b0 + h, z}, {a0 + w, b0, z}, {a0, b0, z}}
	case coords.FaceNorth: // +Y; faceLocalPos maps a->x, b->z here
		y := layer + 1
		return [4][3]int32{{a0 + w, y, b0}, {a0, y, b0}, {a0, y, b0 + h}, {a0 + w, y, b0 + h}}
	case coords.FaceSouth: // -Y
		y := layer
		return [4][3]int32{{a0, y, b0}, {a0 + w, y, b0}, {a0 + w, y, b0 + h}, {a0, y, b0 + h}}
	case coords.FaceEast: // +X; faceLocalPos maps a->y, b->z here
		x := layer + 1
		return [4][3]int32{{x, a0, b0}, {x, a0 + w, b0}, {x, a0 + w, b0 + h}, {x, a0, b0 + h}}
	default: // FaceWest, -X
		x := layer
		return [4][3]int32{{x, a0, b0}, {x, a0, b0 + h}, {x, a0 + w, b0 + h}, {x, a0 + w, b0}}
	}
}
