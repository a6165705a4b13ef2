// Package collision manages the per-chunk physics collision bodies layered
// on top of the streaming voxel world: deciding which loaded chunks need a
// collider, cooking a coarse triangle mesh into a host-provided trimesh
// handle, and releasing that handle when the chunk falls out of range or is
// unloaded. It owns no physics engine of its own — cooking and component
// lifetime are reached only through the Cooker interface it is constructed
// with.
package collision

import (
	"github.com/draquel/voxelterrain/coords"
	"github.com/draquel/voxelterrain/meshing"
)

// Config holds the collision manager's tunables, mirroring
// VoxelCollisionManager.h's defaults except where the closed configuration
// set (§6) overrides the header's literal value.
type Config struct {
	ChunkSize int32
	VoxelSize float32

	CollisionRadius      float32
	CollisionLODLevel    int32
	UpdateIntervalFrames int
	ViewerMoveThreshold  float32
	MaxCooksPerFrame     int
	MaxConcurrentCooks   int
	DirtyPriorityBoost   float32
}

// DefaultConfig matches §6's collision block. MaxCooksPerFrame is 1, not the
// donor header's literal default of 2 — the closed configuration set is
// authoritative where the two differ.
func DefaultConfig() Config {
	return Config{
		ChunkSize:            32,
		VoxelSize:            100,
		CollisionRadius:      1600,
		CollisionLODLevel:    1,
		UpdateIntervalFrames: 5,
		ViewerMoveThreshold:  500,
		MaxCooksPerFrame:     1,
		MaxConcurrentCooks:   4,
		DirtyPriorityBoost:   500,
	}
}

// chunkCollisionRecord is the manager's bookkeeping for one chunk that
// currently has (or is acquiring) a cooked collider, grounded on
// FChunkCollisionData.
type chunkCollisionRecord struct {
	handle       any
	lodLevel     int32
	lastDistance float32
}

// ready reports whether the record holds a usable cooked handle, matching
// FChunkCollisionData::IsReady.
func (r *chunkCollisionRecord) ready() bool {
	return r != nil && r.handle != nil
}

// cookRequest is one entry in the priority cook queue, grounded on
// FCollisionCookRequest. Higher priority is dequeued first.
type cookRequest struct {
	coord    coords.ChunkCoord
	lodLevel int32
	priority float32
}

// Stats is a session-lifetime and current-size snapshot, grounded on
// UVoxelCollisionManager::GetDebugStats.
type Stats struct {
	CollisionChunkCount int
	CookingCount        int
	CookQueueCount      int

	TotalCollisionsGenerated int64
	TotalCollisionsRemoved   int64
}

// CookRequest is the triangle payload and metadata handed to a Cooker for
// one chunk. The manager only ever asks for complex-as-simple collision, no
// simple primitives, with a stable per-chunk name.
type CookRequest struct {
	ChunkCoord  coords.ChunkCoord
	StableName  string
	Mesh        meshing.ChunkMeshData
	DoubleSided bool
}

// CookCallback reports a cook's outcome. handle is an opaque host-owned
// collision body handle passed back unexamined to Release; ok false means
// the manager publishes no event and keeps no record of the attempt.
type CookCallback func(handle any, ok bool)

// Cooker is the abstract, host-provided trimesh cooker: the manager never
// touches a physics engine directly, only this interface (analogous in
// spirit to renderer.Renderer). A real implementation may call back from
// Cook synchronously or from another goroutine — the manager's callback is
// safe for either. Release must be called exactly once per handle that Cook
// ever reported ok via its callback, and always before the manager's own
// bookkeeping for that chunk is discarded, so a crash between the two never
// leaves a cooked body unreachable from the manager's own map.
type Cooker interface {
	Cook(req CookRequest, onComplete CookCallback)
	Release(handle any)
}

// MeshSource is the narrow slice of chunkmanager.Manager the collision
// manager depends on: which chunks are loaded, and a coarse-LOD mesh to
// cook for one of them.
type MeshSource interface {
	GetLoadedChunks() []coords.ChunkCoord
	IsChunkLoaded(coords.ChunkCoord) bool
	GetChunkCollisionMesh(coord coords.ChunkCoord, lodLevel int32) (meshing.ChunkMeshData, bool)
}

// OnCollisionReady and OnCollisionRemoved are the manager's public lifecycle
// events, matching the donor's delegate surface.
type OnCollisionReady func(coords.ChunkCoord)
type OnCollisionRemoved func(coords.ChunkCoord)
