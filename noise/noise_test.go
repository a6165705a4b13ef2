package noise

import (
	"testing"

	"github.com/draquel/voxelterrain/coords"
	"github.com/draquel/voxelterrain/lod"
)

func baseRequest() Request {
	return Request{
		ChunkCoord:  coords.ChunkCoord{},
		ChunkSize:   8,
		VoxelSize:   1.0,
		Seed:        42,
		WorldMode:   lod.WorldInfinitePlane,
		SeaLevel:    0,
		HeightScale: 10,
		BaseHeight:  4,
		Frequency:   0.05,
		Octaves:     3,
		Persistence: 0.5,
		Lacunarity:  2.0,
		Amplitude:   1.0,
	}
}

func TestHashedValueNoise_GenerateChunkIsDeterministic(t *testing.T) {
	g := NewHashedValueNoise()
	req := baseRequest()

	a, ok := g.GenerateChunk(req)
	if !ok {
		t.Fatalf("GenerateChunk returned ok=false")
	}
	b, ok := g.GenerateChunk(req)
	if !ok {
		t.Fatalf("GenerateChunk returned ok=false")
	}
	if len(a) != len(b) {
		t.Fatalf("length mismatch: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("voxel %d differs between identical requests: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestHashedValueNoise_GenerateChunkFillsExpectedLength(t *testing.T) {
	g := NewHashedValueNoise()
	req := baseRequest()
	vx, ok := g.GenerateChunk(req)
	if !ok {
		t.Fatalf("GenerateChunk returned ok=false")
	}
	want := int(req.ChunkSize * req.ChunkSize * req.ChunkSize)
	if len(vx) != want {
		t.Fatalf("len(voxels) = %d, want %d", len(vx), want)
	}
}

func TestHashedValueNoise_DifferentChunksDiffer(t *testing.T) {
	g := NewHashedValueNoise()
	req1 := baseRequest()
	req2 := baseRequest()
	req2.ChunkCoord = coords.ChunkCoord{X: 5, Y: 0, Z: 0}

	a, _ := g.GenerateChunk(req1)
	b, _ := g.GenerateChunk(req2)

	same := true
	for i := range a {
		if a[i] != b[i] {
			same = false
			break
		}
	}
	if same {
		t.Errorf("expected different chunk coordinates to produce different terrain")
	}
}

func TestHashedValueNoise_ZeroChunkSizeFails(t *testing.T) {
	g := NewHashedValueNoise()
	req := baseRequest()
	req.ChunkSize = 0
	if _, ok := g.GenerateChunk(req); ok {
		t.Errorf("expected ok=false for a zero chunk size")
	}
}
