package lod

import (
	"math"
	"sort"

	"github.com/draquel/voxelterrain/coords"
	"github.com/draquel/voxelterrain/enginelog"
	"github.com/go-gl/mathgl/mgl32"
)

// DefaultUnloadDistanceMultiplier matches the original strategy's default:
// chunks beyond max band distance * multiplier are queued for unload.
const DefaultUnloadDistanceMultiplier = 1.2

// DistanceBandStrategy is the default LOD strategy: concentric distance
// bands around the viewer, optional morphing, optional frustum culling,
// and world-mode-specific vertical range plus boundary culling.
type DistanceBandStrategy struct {
	logger enginelog.Logger

	bands []Band

	enableMorphing        bool
	enableFrustumCulling  bool
	unloadDistanceMultiplier float32

	voxelSize  float32
	chunkSize  int32
	worldMode  WorldMode

	maxViewDistance float32

	minVerticalChunks int32
	maxVerticalChunks int32

	cachedViewerChunk coords.ChunkCoord

	initialized bool
}

// NewDistanceBandStrategy constructs an uninitialized strategy. Call
// Initialize before use.
func NewDistanceBandStrategy(logger enginelog.Logger) *DistanceBandStrategy {
	return &DistanceBandStrategy{
		logger:                   enginelog.OrNop(logger),
		enableMorphing:           true,
		enableFrustumCulling:     true,
		unloadDistanceMultiplier: DefaultUnloadDistanceMultiplier,
	}
}

// Initialize sorts and caches bands, derives the max view distance, and
// selects the vertical chunk range for the given world mode.
func (s *DistanceBandStrategy) Initialize(bands []Band, voxelSize float32, chunkSize int32, worldMode WorldMode, enableMorphing, enableFrustumCulling bool) {
	s.bands = append([]Band(nil), bands...)
	sort.Slice(s.bands, func(i, j int) bool { return s.bands[i].MinDistance < s.bands[j].MinDistance })

	s.voxelSize = voxelSize
	s.chunkSize = chunkSize
	s.worldMode = worldMode
	s.enableMorphing = enableMorphing
	s.enableFrustumCulling = enableFrustumCulling

	s.maxViewDistance = 0
	for _, b := range s.bands {
		if b.MaxDistance > s.maxViewDistance {
			s.maxViewDistance = b.MaxDistance
		}
	}

	switch worldMode {
	case WorldSphericalPlanet:
		s.minVerticalChunks, s.maxVerticalChunks = -32, 32
	case WorldIslandBowl:
		s.minVerticalChunks, s.maxVerticalChunks = -4, 8
	default:
		s.minVerticalChunks, s.maxVerticalChunks = -2, 8
	}

	s.initialized = true
	s.logger.Infof("lod: distance-band strategy initialized with %d bands, max distance %.0f", len(s.bands), s.maxViewDistance)
}

// SetUnloadDistanceMultiplier overrides the default 1.2x unload multiplier.
func (s *DistanceBandStrategy) SetUnloadDistanceMultiplier(m float32) {
	s.unloadDistanceMultiplier = m
}

func (s *DistanceBandStrategy) chunkWorldSize() float32 {
	return float32(s.chunkSize) * s.voxelSize
}

func (s *DistanceBandStrategy) chunkCenter(c coords.ChunkCoord) mgl32.Vec3 {
	return coords.ChunkToWorldCenter(c, s.chunkSize, s.voxelSize)
}

// distanceToViewer measures distance using the world mode's metric:
// full Euclidean for InfinitePlane/SphericalPlanet, horizontal-only for
// IslandBowl (height above the bowl floor shouldn't thin out detail).
func (s *DistanceBandStrategy) distanceToViewer(pos mgl32.Vec3, ctx QueryContext) float32 {
	if s.worldMode == WorldIslandBowl {
		dx := pos.X() - ctx.ViewerPosition.X()
		dy := pos.Y() - ctx.ViewerPosition.Y()
		return float32(math.Sqrt(float64(dx*dx + dy*dy)))
	}
	return pos.Sub(ctx.ViewerPosition).Len()
}

func (s *DistanceBandStrategy) findBand(distance float32) (Band, bool) {
	for _, b := range s.bands {
		if b.ContainsDistance(distance) {
			return b, true
		}
	}
	return Band{}, false
}

// LODForChunk returns the band's LOD level containing the chunk's
// distance, or the coarsest band's level beyond all bands. Never fails:
// with zero configured bands it returns 0.
func (s *DistanceBandStrategy) LODForChunk(c coords.ChunkCoord, ctx QueryContext) int32 {
	distance := s.distanceToViewer(s.chunkCenter(c), ctx)
	if band, ok := s.findBand(distance); ok {
		return band.LODLevel
	}
	if len(s.bands) > 0 {
		return s.bands[len(s.bands)-1].LODLevel
	}
	return 0
}

// MorphFactorFor returns 0 when morphing is disabled or the containing
// band has no morph range, otherwise the band's ramp value.
func (s *DistanceBandStrategy) MorphFactorFor(c coords.ChunkCoord, ctx QueryContext) float32 {
	if !s.enableMorphing {
		return 0
	}
	distance := s.distanceToViewer(s.chunkCenter(c), ctx)
	if band, ok := s.findBand(distance); ok {
		return band.MorphFactor(distance)
	}
	return 0
}

// VisibleChunks enumerates candidate chunks around the viewer, applies
// distance/frustum/world-mode culling, and returns requests sorted by
// descending priority.
func (s *DistanceBandStrategy) VisibleChunks(ctx QueryContext) []ChunkLODRequest {
	if len(s.bands) == 0 {
		return nil
	}

	viewerChunk := coords.WorldToChunk(ctx.ViewerPosition, s.chunkSize, s.voxelSize)
	chunkWorldSize := s.chunkWorldSize()
	radius := int32(math.Ceil(float64(s.maxViewDistance/chunkWorldSize))) + 1

	var requests []ChunkLODRequest

	for dz := s.minVerticalChunks; dz <= s.maxVerticalChunks; dz++ {
		for dy := -radius; dy <= radius; dy++ {
			for dx := -radius; dx <= radius; dx++ {
				c := coords.ChunkCoord{X: viewerChunk.X + dx, Y: viewerChunk.Y + dy, Z: viewerChunk.Z + dz}
				center := s.chunkCenter(c)
				distance := s.distanceToViewer(center, ctx)

				if distance > s.maxViewDistance {
					continue
				}
				band, ok := s.findBand(distance)
				if !ok {
					continue
				}
				if s.enableFrustumCulling {
					min, max := coords.ChunkToWorldBounds(c, s.chunkSize, s.voxelSize)
					if !aabbInFrustum(min, max, ctx.FrustumPlanes) {
						continue
					}
				}
				if s.shouldCullIslandBoundary(c, center, ctx) {
					continue
				}
				if s.shouldCullBeyondHorizon(center, ctx) {
					continue
				}

				requests = append(requests, ChunkLODRequest{
					ChunkCoord:  c,
					LODLevel:    band.LODLevel,
					Priority:    s.calculatePriority(distance, center, ctx),
					MorphFactor: boolMorph(s.enableMorphing, band.MorphFactor(distance)),
				})
			}
		}
	}

	sort.Slice(requests, func(i, j int) bool { return requests[i].Less(requests[j]) })
	return requests
}

func boolMorph(enabled bool, v float32) float32 {
	if !enabled {
		return 0
	}
	return v
}

// calculatePriority weights inverse distance by a forward-direction bias
// (up to 2x for chunks directly ahead of the viewer).
func (s *DistanceBandStrategy) calculatePriority(distance float32, chunkCenter mgl32.Vec3, ctx QueryContext) float32 {
	d := distance
	if d < 1 {
		d = 1
	}
	base := 1.0 / d

	toChunk := chunkCenter.Sub(ctx.ViewerPosition)
	forwardDot := float32(0)
	if l := toChunk.Len(); l > 1e-6 {
		forwardDot = ctx.ViewerForward.Dot(toChunk.Mul(1 / l))
	}
	if forwardDot < 0 {
		forwardDot = 0
	}
	return base * (1 + forwardDot)
}

// shouldCullIslandBoundary culls chunks whose horizontal distance from the
// configured island center exceeds IslandTotalExtent. Only active in
// IslandBowl mode.
func (s *DistanceBandStrategy) shouldCullIslandBoundary(_ coords.ChunkCoord, center mgl32.Vec3, ctx QueryContext) bool {
	if s.worldMode != WorldIslandBowl || ctx.IslandTotalExtent <= 0 {
		return false
	}
	dx := center.X() - ctx.IslandCenter.X()
	dy := center.Y() - ctx.IslandCenter.Y()
	horizontal := float32(math.Sqrt(float64(dx*dx + dy*dy)))
	return horizontal > ctx.IslandTotalExtent
}

// shouldCullBeyondHorizon culls chunks beyond the geometric horizon of a
// spherical planet, accounting for viewer height above the surface and a
// safety buffer for terrain height. Only active in SphericalPlanet mode.
func (s *DistanceBandStrategy) shouldCullBeyondHorizon(center mgl32.Vec3, ctx QueryContext) bool {
	if s.worldMode != WorldSphericalPlanet || ctx.PlanetRadius <= 0 {
		return false
	}
	viewerHeight := ctx.ViewerPosition.Sub(ctx.WorldOrigin).Len() - ctx.PlanetRadius
	if viewerHeight < 0 {
		viewerHeight = 0
	}
	horizonDistance := float32(math.Sqrt(float64(2*ctx.PlanetRadius*viewerHeight + viewerHeight*viewerHeight)))
	horizonDistance += float32(math.Sqrt(float64(2 * ctx.PlanetRadius * ctx.PlanetMaxTerrainHeight)))

	surfaceDistance := center.Sub(ctx.ViewerPosition).Len()
	return surfaceDistance > horizonDistance
}

// ChunksToLoad filters VisibleChunks to those not already loaded.
func (s *DistanceBandStrategy) ChunksToLoad(loaded map[coords.ChunkCoord]bool, ctx QueryContext) []ChunkLODRequest {
	visible := s.VisibleChunks(ctx)
	out := make([]ChunkLODRequest, 0, len(visible))
	for _, r := range visible {
		if !loaded[r.ChunkCoord] {
			out = append(out, r)
		}
	}
	return out
}

// ChunksToUnload returns every loaded chunk beyond unload_multiplier *
// max_view_distance, farthest-first, bounded by
// ctx.MaxChunksToUnloadPerFrame.
func (s *DistanceBandStrategy) ChunksToUnload(loaded map[coords.ChunkCoord]bool, ctx QueryContext) []coords.ChunkCoord {
	unloadDistance := s.maxViewDistance * s.unloadDistanceMultiplier

	type candidate struct {
		coord    coords.ChunkCoord
		distance float32
	}
	var candidates []candidate
	for c := range loaded {
		distance := s.distanceToViewer(s.chunkCenter(c), ctx)
		if distance > unloadDistance {
			candidates = append(candidates, candidate{c, distance})
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].distance > candidates[j].distance })

	limit := ctx.MaxChunksToUnloadPerFrame
	if limit <= 0 || limit > len(candidates) {
		limit = len(candidates)
	}
	out := make([]coords.ChunkCoord, limit)
	for i := 0; i < limit; i++ {
		out[i] = candidates[i].coord
	}
	return out
}

// Update refreshes the cached viewer chunk coordinate.
func (s *DistanceBandStrategy) Update(ctx QueryContext, dt float64) {
	s.cachedViewerChunk = coords.WorldToChunk(ctx.ViewerPosition, s.chunkSize, s.voxelSize)
}

// IsInitialized reports whether Initialize has run.
func (s *DistanceBandStrategy) IsInitialized() bool { return s.initialized }

// DebugInfo returns a short human-readable summary, mirroring the original
// strategy's debug dump.
func (s *DistanceBandStrategy) DebugInfo() string {
	return "DistanceBandStrategy: bands=" + itoa(len(s.bands)) +
		" maxViewDistance=" + itoa(int(s.maxViewDistance)) +
		" viewerChunk=" + itoa(int(s.cachedViewerChunk.X)) + "," + itoa(int(s.cachedViewerChunk.Y)) + "," + itoa(int(s.cachedViewerChunk.Z))
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

var _ Strategy = (*DistanceBandStrategy)(nil)
