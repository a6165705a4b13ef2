// Package lod implements the distance-banded level-of-detail strategy:
// per-chunk LOD level and morph factor, visible-set enumeration with
// frustum and world-mode boundary culling, and load/unload candidate
// queues.
package lod

import (
	"github.com/draquel/voxelterrain/coords"
	"github.com/go-gl/mathgl/mgl32"
)

// WorldMode selects the world's overall shape, which in turn selects the
// vertical chunk range and boundary-culling rule used by visible_chunks.
type WorldMode int

const (
	WorldInfinitePlane WorldMode = iota
	WorldSphericalPlanet
	WorldIslandBowl
)

// Band is a half-open distance interval [MinDistance, MaxDistance)
// associated with a discrete LOD level, voxel stride, chunk size, and morph
// range.
type Band struct {
	MinDistance float32
	MaxDistance float32
	LODLevel    int32
	VoxelStride int32
	ChunkSize   int32
	MorphRange  float32
}

// ContainsDistance reports whether d falls within this band's half-open
// interval.
func (b Band) ContainsDistance(d float32) bool {
	return d >= b.MinDistance && d < b.MaxDistance
}

// MorphFactor computes the band-local morph ramp: 0 until MorphRange world
// units before MaxDistance, then linearly to 1 at MaxDistance.
func (b Band) MorphFactor(d float32) float32 {
	if b.MorphRange <= 0 {
		return 0
	}
	morphStart := b.MaxDistance - b.MorphRange
	if d <= morphStart {
		return 0
	}
	t := (d - morphStart) / b.MorphRange
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}

// QueryContext carries the per-tick viewer and world state a strategy
// needs to produce its visible/load/unload sets.
type QueryContext struct {
	ViewerPosition mgl32.Vec3
	ViewerForward  mgl32.Vec3

	WorldMode   WorldMode
	WorldOrigin mgl32.Vec3
	WorldRadius float32

	MaxChunksToLoadPerFrame   int
	MaxChunksToUnloadPerFrame int
	TimeSliceMS               float32

	FrameNumber int64
	GameTime    float64
	DeltaTime   float64

	// FrustumPlanes holds up to 6 planes in Ax+By+Cz+D=0 form, normal
	// pointing inward. A nil or short slice disables frustum culling (every
	// chunk is assumed visible).
	FrustumPlanes []mgl32.Vec4

	// IslandCenter and IslandTotalExtent configure IslandBowl boundary
	// culling (horizontal distance from IslandCenter beyond
	// IslandTotalExtent is culled). Ignored outside IslandBowl mode.
	IslandCenter      mgl32.Vec2
	IslandTotalExtent float32

	// PlanetRadius and PlanetMaxTerrainHeight configure SphericalPlanet
	// horizon culling. Ignored outside SphericalPlanet mode.
	PlanetRadius           float32
	PlanetMaxTerrainHeight float32
}

// ChunkLODRequest is a single chunk's computed LOD decision: its level,
// load priority (higher first), and morph factor.
type ChunkLODRequest struct {
	ChunkCoord  coords.ChunkCoord
	LODLevel    int32
	Priority    float32
	MorphFactor float32
}

// Less implements the descending-priority ordering contract: a < b iff
// a.Priority > b.Priority.
func (r ChunkLODRequest) Less(other ChunkLODRequest) bool {
	return r.Priority > other.Priority
}

// Strategy is the polymorphic LOD decision surface. The distance-band
// strategy is the only implementation shipped; the interface exists so a
// host can substitute another (e.g. screen-space error based) strategy.
type Strategy interface {
	LODForChunk(coord coords.ChunkCoord, ctx QueryContext) int32
	MorphFactorFor(coord coords.ChunkCoord, ctx QueryContext) float32
	VisibleChunks(ctx QueryContext) []ChunkLODRequest
	ChunksToLoad(loaded map[coords.ChunkCoord]bool, ctx QueryContext) []ChunkLODRequest
	ChunksToUnload(loaded map[coords.ChunkCoord]bool, ctx QueryContext) []coords.ChunkCoord
	Update(ctx QueryContext, dt float64)
}
