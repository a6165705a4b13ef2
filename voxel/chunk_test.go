package voxel

import (
	"testing"

	"github.com/draquel/voxelterrain/coords"
)

func TestNewDescriptor_StartsUnloadedAndUnallocated(t *testing.T) {
	d := NewDescriptor(coords.ChunkCoord{}, DefaultChunkSize, 0, 100)
	if d.State != StateUnloaded {
		t.Errorf("new descriptor state = %v, want Unloaded", d.State)
	}
	if d.HasVoxelData() {
		t.Errorf("new descriptor should not have voxel data allocated")
	}
}

func TestAllocateVoxelData_SizedToChunkSizeCubed(t *testing.T) {
	d := NewDescriptor(coords.ChunkCoord{}, 8, 0, 100)
	d.AllocateVoxelData()
	if !d.HasVoxelData() {
		t.Fatalf("expected voxel data to be allocated")
	}
	if len(d.VoxelData) != 8*8*8 {
		t.Errorf("voxel data length = %d, want %d", len(d.VoxelData), 8*8*8)
	}
}

func TestSetVoxel_GetVoxel_RoundTrip(t *testing.T) {
	d := NewDescriptor(coords.ChunkCoord{}, 8, 0, 100)
	d.AllocateVoxelData()

	l := coords.LocalVoxel{X: 3, Y: 4, Z: 5}
	v := Solid(2, 1)
	d.SetVoxel(l, v)

	if !d.Dirty {
		t.Errorf("SetVoxel must mark the descriptor dirty")
	}
	got := d.GetVoxel(l)
	if got != v {
		t.Errorf("GetVoxel(%v) = %v, want %v", l, got, v)
	}
}

func TestGetVoxel_OutOfRangeReturnsAir(t *testing.T) {
	d := NewDescriptor(coords.ChunkCoord{}, 8, 0, 100)
	d.AllocateVoxelData()
	got := d.GetVoxel(coords.LocalVoxel{X: -1, Y: 0, Z: 0})
	if got != Air() {
		t.Errorf("out-of-range GetVoxel = %v, want Air", got)
	}
}

func TestVoxelIndex_BijectionOverFullChunk(t *testing.T) {
	d := NewDescriptor(coords.ChunkCoord{}, 4, 0, 100)
	seen := make(map[int]bool)
	for z := int32(0); z < 4; z++ {
		for y := int32(0); y < 4; y++ {
			for x := int32(0); x < 4; x++ {
				idx := d.VoxelIndex(coords.LocalVoxel{X: x, Y: y, Z: z})
				if seen[idx] {
					t.Fatalf("duplicate index %d", idx)
				}
				seen[idx] = true
			}
		}
	}
	if len(seen) != d.TotalVoxels() {
		t.Fatalf("expected %d distinct indices, got %d", d.TotalVoxels(), len(seen))
	}
}

func TestClearVoxelData_DropsAllocation(t *testing.T) {
	d := NewDescriptor(coords.ChunkCoord{}, 8, 0, 100)
	d.AllocateVoxelData()
	d.ClearVoxelData()
	if d.HasVoxelData() {
		t.Errorf("expected voxel data to be cleared")
	}
}

func TestUniqueID_DeterministicPerCoordAndLOD(t *testing.T) {
	d1 := NewDescriptor(coords.ChunkCoord{X: 1, Y: 2, Z: 3}, 32, 1, 100)
	d2 := NewDescriptor(coords.ChunkCoord{X: 1, Y: 2, Z: 3}, 32, 1, 100)
	d3 := NewDescriptor(coords.ChunkCoord{X: 1, Y: 2, Z: 4}, 32, 1, 100)
	if d1.UniqueID() != d2.UniqueID() {
		t.Errorf("expected equal unique ids for identical coord+lod")
	}
	if d1.UniqueID() == d3.UniqueID() {
		t.Errorf("expected different unique ids for different coords")
	}
}
