package meshing

import (
	"github.com/draquel/voxelterrain/coords"
	"github.com/draquel/voxelterrain/voxel"
	"github.com/go-gl/mathgl/mgl32"
)

// WaterMaterialID is the sentinel material id every water quad is stamped
// with, independent of whatever material the underlying voxel carries.
const WaterMaterialID uint8 = 254

// WaterMesher emits one upward-facing quad per merged rectangle of exposed
// water surface, per Z slice. It is the fully worked example this package's
// other meshers generalize from: a water voxel (air, water-flagged) is a
// surface voxel when the voxel directly above it is solid, lacks the water
// flag, or can't be resolved at all (chunk boundary with no neighbor data
// yet) — treating "can't tell" as "surface" keeps water visible rather than
// leaving holes while neighbors are still streaming in.
type WaterMesher struct {
	cfg Config
}

func NewWaterMesher() *WaterMesher {
	return &WaterMesher{cfg: DefaultConfig()}
}

func (m *WaterMesher) Initialize() error { return nil }
func (m *WaterMesher) Shutdown()         {}
func (m *WaterMesher) SetConfig(cfg Config) { m.cfg = cfg }
func (m *WaterMesher) GetConfig() Config    { return m.cfg }

// isWaterSurface reports whether v is an exposed water surface, given the
// voxel directly above it and whether that voxel could be resolved at all.
func isWaterSurface(v voxel.Voxel, above voxel.Voxel, aboveResolvable bool) bool {
	if !v.IsAir() || !v.HasWaterFlag() {
		return false
	}
	if !aboveResolvable {
		return true
	}
	if above.IsSolid() {
		return true
	}
	if !above.HasWaterFlag() {
		return true
	}
	return false
}

// voxelAbove resolves the voxel immediately above local (x,y,z): within the
// chunk when z+1 is in range, otherwise from the +Z neighbor face slice at
// the same (x,y). The second return is false when neither source can
// resolve it (top of chunk, no +Z neighbor loaded yet).
func voxelAbove(req *Request, x, y, z int32) (voxel.Voxel, bool) {
	if z+1 < req.ChunkSize {
		return req.GetVoxel(x, y, z+1), true
	}
	if !req.HasNeighborFace(coords.FaceTop) {
		return voxel.Voxel{}, false
	}
	return req.NeighborVoxel(coords.FaceTop, x, y), true
}

// GenerateMesh builds the water-surface mesh for req. It never fails: an
// empty-but-valid result means no exposed water surface in this chunk.
func (m *WaterMesher) GenerateMesh(req *Request) (ChunkMeshData, Stats, bool) {
	var mesh ChunkMeshData
	var stats Stats
	if !req.IsValid() {
		return mesh, stats, false
	}

	n := req.ChunkSize
	mask := make([]bool, n*n)
	processed := make([]bool, n*n)
	idx := func(x, y int32) int { return int(x + y*n) }

	for z := int32(0); z < n; z++ {
		for i := range mask {
			mask[i] = false
			processed[i] = false
		}
		for y := int32(0); y < n; y++ {
			for x := int32(0); x < n; x++ {
				v := req.GetVoxel(x, y, z)
				above, resolvable := voxelAbove(req, x, y, z)
				mask[idx(x, y)] = isWaterSurface(v, above, resolvable)
			}
		}

		for y := int32(0); y < n; y++ {
			for x := int32(0); x < n; x++ {
				if !mask[idx(x, y)] || processed[idx(x, y)] {
					continue
				}
				w := int32(1)
				for x+w < n && mask[idx(x+w, y)] && !processed[idx(x+w, y)] {
					w++
				}
				h := int32(1)
			expandY:
				for y+h < n {
					for xi := x; xi < x+w; xi++ {
						if !mask[idx(xi, y+h)] || processed[idx(xi, y+h)] {
							break expandY
						}
					}
					h++
				}
				for yi := y; yi < y+h; yi++ {
					for xi := x; xi < x+w; xi++ {
						processed[idx(xi, yi)] = true
					}
				}
				emitWaterQuad(&mesh, req, x, y, w, h, z, m.cfg)
			}
		}
	}

	stats.VertexCount = uint32(mesh.VertexCount())
	stats.IndexCount = uint32(mesh.IndexCount())
	stats.FaceCount = uint32(mesh.TriangleCount()) / 2
	stats.SolidVoxelCount = countWaterVoxels(req)
	return mesh, stats, true
}

func countWaterVoxels(req *Request) uint32 {
	var c uint32
	for _, v := range req.VoxelData {
		if v.HasWaterFlag() {
			c++
		}
	}
	return c
}

// emitWaterQuad appends one quad covering the merged rectangle [x0,x0+w) x
// [y0,y0+h) at world Z=(z+1)*voxel_size. UVs are world-space-continuous
// (scaled by 1/voxel_size) so adjacent chunks' water tiles seamlessly.
func emitWaterQuad(mesh *ChunkMeshData, req *Request, x0, y0, w, h, z int32, cfg Config) {
	origin := req.ChunkWorldOrigin()
	vs := req.VoxelSize

	worldZ := origin.Z() + float32(z+1)*vs
	x1w := origin.X() + float32(x0)*vs
	x2w := origin.X() + float32(x0+w)*vs
	y1w := origin.Y() + float32(y0)*vs
	y2w := origin.Y() + float32(y0+h)*vs

	normal := mgl32.Vec3{0, 0, 1}
	corners := [4]mgl32.Vec3{
		{x1w, y1w, worldZ},
		{x2w, y1w, worldZ},
		{x2w, y2w, worldZ},
		{x1w, y2w, worldZ},
	}

	uvScale := float32(1)
	if cfg.UVScale != 0 {
		uvScale = cfg.UVScale
	}
	base := uint32(mesh.VertexCount())
	for _, c := range corners {
		var uv mgl32.Vec2
		if cfg.GenerateUVs {
			uv = mgl32.Vec2{c.X() / vs * uvScale, c.Y() / vs * uvScale}
		}
		mesh.addVertex(c, normal, uv, WaterMaterialID, 0, 255, FaceTypeTop)
	}
	mesh.addQuad(base)
}
