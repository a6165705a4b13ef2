package meshing

import (
	"testing"

	"github.com/draquel/voxelterrain/coords"
	"github.com/draquel/voxelterrain/voxel"
	"github.com/go-gl/mathgl/mgl32"
)

func flatDensityRequest(n int32, splitZ int32) *Request {
	req := NewRequest(coords.ChunkCoord{}, 0, n, 1.0, mgl32.Vec3{})
	for z := int32(0); z < n; z++ {
		for y := int32(0); y < n; y++ {
			for x := int32(0); x < n; x++ {
				d := uint8(0)
				if z < splitZ {
					d = 255
				}
				req.VoxelData[req.voxelIndex(x, y, z)] = voxel.Voxel{MaterialID: 2, Density: d}
			}
		}
	}
	return req
}

func TestSmoothMesher_FlatBoundaryProducesWatertightTriangles(t *testing.T) {
	req := flatDensityRequest(6, 3)
	m := NewSmoothMesher()
	mesh, stats, ok := m.GenerateMesh(req)
	if !ok {
		t.Fatalf("GenerateMesh returned ok=false")
	}
	if mesh.VertexCount() == 0 {
		t.Fatalf("expected a non-empty surface at the density boundary")
	}
	if mesh.IndexCount()%3 != 0 {
		t.Fatalf("IndexCount() = %d, not a multiple of 3", mesh.IndexCount())
	}
	if stats.VertexCount != uint32(mesh.VertexCount()) {
		t.Errorf("stats.VertexCount = %d, want %d", stats.VertexCount, mesh.VertexCount())
	}
	for _, idx := range mesh.Indices {
		if int(idx) >= mesh.VertexCount() {
			t.Fatalf("index %d out of range for %d vertices", idx, mesh.VertexCount())
		}
	}
}

func TestSmoothMesher_UniformDensityProducesNoSurface(t *testing.T) {
	req := flatDensityRequest(4, 0)
	m := NewSmoothMesher()
	mesh, _, ok := m.GenerateMesh(req)
	if !ok {
		t.Fatalf("GenerateMesh returned ok=false")
	}
	if mesh.VertexCount() != 0 {
		t.Fatalf("VertexCount() = %d, want 0 for a uniformly air chunk", mesh.VertexCount())
	}
}
