package meshing

import (
	"testing"

	"github.com/draquel/voxelterrain/coords"
	"github.com/draquel/voxelterrain/voxel"
	"github.com/go-gl/mathgl/mgl32"
)

// singleVoxelRequest builds an n^3 chunk of air with exactly one solid
// voxel at its center, isolated from every neighbor (no neighbor data
// populated), so a cubic mesher must emit all six of its faces.
func singleVoxelRequest(n int32) *Request {
	req := NewRequest(coords.ChunkCoord{}, 0, n, 1.0, mgl32.Vec3{})
	mid := n / 2
	req.VoxelData[req.voxelIndex(mid, mid, mid)] = voxel.Solid(3, 1)
	return req
}

func TestCubicMesher_IsolatedVoxelEmitsSixFaces(t *testing.T) {
	req := singleVoxelRequest(4)
	m := NewCubicMesher()
	mesh, stats, ok := m.GenerateMesh(req)
	if !ok {
		t.Fatalf("GenerateMesh returned ok=false")
	}
	if mesh.VertexCount() != 24 {
		t.Fatalf("VertexCount() = %d, want 24 (6 faces x 4 vertices)", mesh.VertexCount())
	}
	if mesh.TriangleCount() != 12 {
		t.Fatalf("TriangleCount() = %d, want 12", mesh.TriangleCount())
	}
	if stats.SolidVoxelCount != 1 {
		t.Fatalf("SolidVoxelCount = %d, want 1", stats.SolidVoxelCount)
	}
	for _, uv := range mesh.MaterialUVs {
		if uint8(uv.X()) != 3 {
			t.Errorf("material id = %v, want 3", uv.X())
		}
	}
}

func TestCubicMesher_BuriedVoxelEmitsNoFaces(t *testing.T) {
	req := NewRequest(coords.ChunkCoord{}, 0, 3, 1.0, mgl32.Vec3{})
	for i := range req.VoxelData {
		req.VoxelData[i] = voxel.Solid(1, 0)
	}
	// Solid slices on all six faces bury the chunk; a missing neighbor slice
	// would count as air and produce a closing face instead.
	for f := range req.NeighborFaces {
		slice := make([]voxel.Voxel, 3*3)
		for i := range slice {
			slice[i] = voxel.Solid(1, 0)
		}
		req.NeighborFaces[f] = slice
	}
	m := NewCubicMesher()
	mesh, _, ok := m.GenerateMesh(req)
	if !ok {
		t.Fatalf("GenerateMesh returned ok=false")
	}
	if mesh.VertexCount() != 0 {
		t.Fatalf("VertexCount() = %d, want 0 for a fully solid chunk with solid neighbors", mesh.VertexCount())
	}
}

func TestCubicMesher_NeighborFaceSuppressesSharedFace(t *testing.T) {
	const n = int32(2)
	req := NewRequest(coords.ChunkCoord{}, 0, n, 1.0, mgl32.Vec3{})
	for i := range req.VoxelData {
		req.VoxelData[i] = voxel.Solid(1, 0)
	}
	// A fully solid +X neighbor slice suppresses the East face entirely.
	slice := make([]voxel.Voxel, n*n)
	for i := range slice {
		slice[i] = voxel.Solid(1, 0)
	}
	req.NeighborFaces[coords.FaceEast] = slice

	m := NewCubicMesher()
	mesh, _, _ := m.GenerateMesh(req)

	// 5 of the 6 faces remain exposed (East suppressed): 5 quads x 4 verts.
	if mesh.VertexCount() != 5*4 {
		t.Fatalf("VertexCount() = %d, want %d with the East face suppressed", mesh.VertexCount(), 5*4)
	}
}
