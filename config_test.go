package voxelterrain

import (
	"testing"

	"github.com/draquel/voxelterrain/lod"
)

// Validate must clamp per-band LOD fields the same way it clamps every
// other documented knob, not just the top-level scalars.
func TestConfig_ValidateClampsLODBands(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LODBands = []lod.Band{
		{MinDistance: 0, MaxDistance: 100, LODLevel: -1, VoxelStride: 0, ChunkSize: 2, MorphRange: -50},
		{MinDistance: 100, MaxDistance: 200, LODLevel: 99, VoxelStride: 1000, ChunkSize: 9999, MorphRange: 10},
	}

	out := cfg.Validate(NewNopLogger())

	if len(out.LODBands) != 2 {
		t.Fatalf("expected 2 bands preserved, got %d", len(out.LODBands))
	}
	b0, b1 := out.LODBands[0], out.LODBands[1]

	if b0.LODLevel != 0 {
		t.Errorf("band 0 LODLevel: expected clamp to 0, got %d", b0.LODLevel)
	}
	if b0.VoxelStride != 1 {
		t.Errorf("band 0 VoxelStride: expected clamp to 1, got %d", b0.VoxelStride)
	}
	if b0.ChunkSize != 8 {
		t.Errorf("band 0 ChunkSize: expected clamp to 8, got %d", b0.ChunkSize)
	}
	if b0.MorphRange != 0 {
		t.Errorf("band 0 MorphRange: expected clamp to 0, got %v", b0.MorphRange)
	}

	if b1.LODLevel != 7 {
		t.Errorf("band 1 LODLevel: expected clamp to 7, got %d", b1.LODLevel)
	}
	if b1.VoxelStride != 64 {
		t.Errorf("band 1 VoxelStride: expected clamp to 64, got %d", b1.VoxelStride)
	}
	if b1.ChunkSize != 128 {
		t.Errorf("band 1 ChunkSize: expected clamp to 128, got %d", b1.ChunkSize)
	}
	if b1.MorphRange != 10 {
		t.Errorf("band 1 MorphRange: expected untouched at 10, got %v", b1.MorphRange)
	}
}
