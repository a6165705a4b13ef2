// Package chunkmanager is the streaming pipeline core: it decides which
// chunks to load, generates their voxel data, meshes them, hands meshes to
// a renderer, and unloads chunks that fall out of range. It owns no
// transport, window, or GPU device of its own — those are the host's
// concern, reached only through the noise.Generator, meshing.Mesher, and
// renderer.Renderer interfaces it is constructed with.
package chunkmanager

import (
	"github.com/draquel/voxelterrain/coords"
	"github.com/draquel/voxelterrain/editoverlay"
	"github.com/draquel/voxelterrain/lod"
	"github.com/draquel/voxelterrain/meshing"
	"github.com/draquel/voxelterrain/voxel"
)

// State is a chunk's position in the streaming lifecycle.
type State int

const (
	StateUnloaded State = iota
	StatePendingGeneration
	StateGenerating
	StatePendingMeshing
	StateMeshing
	StateLoaded
	StatePendingUnload
)

var stateNames = [...]string{
	"Unloaded", "PendingGeneration", "Generating", "PendingMeshing", "Meshing", "Loaded", "PendingUnload",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "Unknown"
	}
	return stateNames[s]
}

// MeshingMode selects which mesher the manager dispatches meshing requests
// to.
type MeshingMode int

const (
	MeshingCubic MeshingMode = iota
	MeshingSmooth
)

// MaxPendingMeshes throttles the meshing phase: once this many finished
// meshes are awaiting renderer handoff, no further meshing requests are
// dequeued that tick.
const MaxPendingMeshes = 4

// NeighborRemeshPriorityFactor is applied to a neighbor's own queued
// priority (or to the originating chunk's priority if it has none) when it is re-queued for
// meshing after an adjacent chunk's generation completes.
const NeighborRemeshPriorityFactor = 0.5

// Config holds the manager's own tunables, a narrowed projection of the
// engine-wide configuration onto what the pipeline core itself consumes.
type Config struct {
	ChunkSize   int32
	VoxelSize   float32
	WorldOrigin [3]float32
	WorldSeed   int64
	WorldMode   lod.WorldMode
	MeshingMode MeshingMode

	MaxChunksToLoadPerFrame   int
	MaxChunksToUnloadPerFrame int
	StreamingTimeSliceMS      float32
	MaxLoadedChunks           int

	SeaLevel    float32
	HeightScale float32
	BaseHeight  float32
	Frequency   float32
	Octaves     int32
	Persistence float32
	Lacunarity  float32
	Amplitude   float32

	WorkerCount      int
	WorkerQueueDepth int
}

// DefaultConfig matches the closed configuration set's documented defaults.
func DefaultConfig() Config {
	return Config{
		ChunkSize:                 32,
		VoxelSize:                 100,
		WorldMode:                 lod.WorldInfinitePlane,
		MeshingMode:               MeshingCubic,
		MaxChunksToLoadPerFrame:   4,
		MaxChunksToUnloadPerFrame: 8,
		StreamingTimeSliceMS:      2,
		MaxLoadedChunks:           2000,
		HeightScale:               10,
		BaseHeight:                0,
		Frequency:                 0.01,
		Octaves:                   6,
		Persistence:               0.5,
		Lacunarity:                2.0,
		Amplitude:                 1.0,
		WorkerCount:               0,
		WorkerQueueDepth:          64,
	}
}

// Stats is a session-lifetime and current-size snapshot, used by the demo
// CLI's periodic summaries and by tests.
type Stats struct {
	TotalChunksGenerated int64
	TotalChunksMeshed    int64
	TotalChunksUnloaded  int64

	LoadedChunkCount     int
	PendingGenerationCount int
	PendingMeshingCount    int
}

// genRequest is one entry in the generation queue.
type genRequest struct {
	coord    coords.ChunkCoord
	lodLevel int32
	priority float32
}

// meshRequest is one entry in the meshing queue.
type meshRequest struct {
	coord    coords.ChunkCoord
	lodLevel int32
	priority float32
}

// pendingMesh is a finished mesh awaiting renderer handoff.
type pendingMesh struct {
	coord    coords.ChunkCoord
	lodLevel int32
	mesh     meshing.ChunkMeshData
}

// loadedEvent is a chunk that just transitioned to Loaded, queued for an
// OnChunkLoaded callback fired after Tick releases its lock.
type loadedEvent struct {
	coord    coords.ChunkCoord
	lodLevel int32
}

// chunkRecord is the manager's bookkeeping for a single chunk: its
// lifecycle state, current LOD assignment, procedurally generated voxel
// data (never mutated by edits directly — edits are merged in at mesh
// time), and dirty flag.
type chunkRecord struct {
	state        State
	lodLevel     int32
	morphFactor  float32
	dirty        bool
	lastPriority float32
	voxelData    []voxel.Voxel // empty until generation completes
}

// edgeSpec describes one of the twelve chunk edges: the diagonal neighbor
// offset (zero on the axis that varies along the strip) and which local
// axis varies.
type edgeSpec struct {
	offset   coords.ChunkCoord
	varyAxis int // 0=X, 1=Y, 2=Z
}

// edgeSpecs is ordered to match meshing.Edge's iota order exactly.
var edgeSpecs = [12]edgeSpec{
	{coords.ChunkCoord{X: 1, Y: 1, Z: 0}, 2},   // EdgeXPosYPos
	{coords.ChunkCoord{X: 1, Y: -1, Z: 0}, 2},  // EdgeXPosYNeg
	{coords.ChunkCoord{X: -1, Y: 1, Z: 0}, 2},  // EdgeXNegYPos
	{coords.ChunkCoord{X: -1, Y: -1, Z: 0}, 2}, // EdgeXNegYNeg
	{coords.ChunkCoord{X: 1, Y: 0, Z: 1}, 1},   // EdgeXPosZPos
	{coords.ChunkCoord{X: 1, Y: 0, Z: -1}, 1},  // EdgeXPosZNeg
	{coords.ChunkCoord{X: -1, Y: 0, Z: 1}, 1},  // EdgeXNegZPos
	{coords.ChunkCoord{X: -1, Y: 0, Z: -1}, 1}, // EdgeXNegZNeg
	{coords.ChunkCoord{X: 0, Y: 1, Z: 1}, 0},   // EdgeYPosZPos
	{coords.ChunkCoord{X: 0, Y: 1, Z: -1}, 0},  // EdgeYPosZNeg
	{coords.ChunkCoord{X: 0, Y: -1, Z: 1}, 0},  // EdgeYNegZPos
	{coords.ChunkCoord{X: 0, Y: -1, Z: -1}, 0}, // EdgeYNegZNeg
}

// cornerOffsets is ordered to match meshing.Corner's iota order exactly.
var cornerOffsets = [8]coords.ChunkCoord{
	{X: 1, Y: 1, Z: 1},    // CornerXPosYPosZPos
	{X: 1, Y: 1, Z: -1},   // CornerXPosYPosZNeg
	{X: 1, Y: -1, Z: 1},   // CornerXPosYNegZPos
	{X: 1, Y: -1, Z: -1},  // CornerXPosYNegZNeg
	{X: -1, Y: 1, Z: 1},   // CornerXNegYPosZPos
	{X: -1, Y: 1, Z: -1},  // CornerXNegYPosZNeg
	{X: -1, Y: -1, Z: 1},  // CornerXNegYNegZPos
	{X: -1, Y: -1, Z: -1}, // CornerXNegYNegZNeg
}

// EditLayerSource is the narrow slice of editoverlay.Manager the chunk
// manager depends on: reading a chunk's sparse edit layer to merge into a
// meshing request at mesh time. Wiring it is optional — a nil source means
// meshing always sees pure procedural data.
type EditLayerSource interface {
	GetEditLayer(coords.ChunkCoord) *editoverlay.ChunkEditLayer
}

// OnChunkLoaded and OnChunkUnloaded are the manager's public lifecycle
// events, matching the donor's delegate surface.
type OnChunkLoaded func(coords.ChunkCoord, int32)
type OnChunkUnloaded func(coords.ChunkCoord)
type OnChunkGenerated func(coords.ChunkCoord)
