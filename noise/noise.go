// Package noise defines the chunk manager's terrain-generation boundary.
// The specification deliberately excludes any particular noise algorithm
// from its scope, so this package carries only the request/Generator
// contract plus one stdlib-based default implementation a host can swap
// out for a real heightmap/noise library.
package noise

import (
	"math"
	"math/rand"
	"sync"

	"github.com/draquel/voxelterrain/coords"
	"github.com/draquel/voxelterrain/lod"
	"github.com/draquel/voxelterrain/voxel"
)

// Request carries everything a generator needs to synthesize one chunk's
// voxel data, independent of any particular algorithm.
type Request struct {
	ChunkCoord  coords.ChunkCoord
	LODLevel    int32
	ChunkSize   int32
	VoxelSize   float32
	WorldOrigin [3]float32

	Seed      int64
	WorldMode lod.WorldMode

	SeaLevel    float32
	HeightScale float32
	BaseHeight  float32

	Frequency   float32
	Octaves     int32
	Persistence float32
	Lacunarity  float32
	Amplitude   float32
}

// Generator synthesizes a chunk's voxel data procedurally. Implementations
// must be safe for concurrent use across different requests, since the
// chunk manager's generation phase may dispatch to a worker pool.
type Generator interface {
	Initialize() error
	Shutdown()
	GenerateChunk(req Request) ([]voxel.Voxel, bool)
}

// HashedValueNoise is a deterministic, dependency-free default generator:
// a per-column hashed-value height field (seeded per world coordinate, not
// per RNG stream order, so chunk generation is reproducible regardless of
// request order) with fractal octave summation, filled below the computed
// height and left as air above, with a water layer at SeaLevel.
type HashedValueNoise struct {
	rngPool sync.Pool
}

func NewHashedValueNoise() *HashedValueNoise {
	return &HashedValueNoise{
		rngPool: sync.Pool{
			New: func() any {
				return rand.New(rand.NewSource(0))
			},
		},
	}
}

func (g *HashedValueNoise) Initialize() error { return nil }
func (g *HashedValueNoise) Shutdown()         {}

// GenerateChunk fills req.ChunkSize^3 voxels column by column: for each
// (x,y) column it samples a fractal value-noise height and fills every
// voxel below it as solid, places water voxels up to SeaLevel, and leaves
// the remainder air.
func (g *HashedValueNoise) GenerateChunk(req Request) ([]voxel.Voxel, bool) {
	n := req.ChunkSize
	if n <= 0 {
		return nil, false
	}
	voxels := make([]voxel.Voxel, n*n*n)

	chunkWorldSize := float32(req.ChunkSize) * req.VoxelSize
	originX := req.WorldOrigin[0] + float32(req.ChunkCoord.X)*chunkWorldSize
	originY := req.WorldOrigin[1] + float32(req.ChunkCoord.Y)*chunkWorldSize
	originZ := req.WorldOrigin[2] + float32(req.ChunkCoord.Z)*chunkWorldSize

	for ly := int32(0); ly < n; ly++ {
		worldY := originY + float32(ly)*req.VoxelSize
		for lx := int32(0); lx < n; lx++ {
			worldX := originX + float32(lx)*req.VoxelSize
			height := req.BaseHeight + g.fractalHeight(req, worldX, worldY)
			for lz := int32(0); lz < n; lz++ {
				worldZ := originZ + float32(lz)*req.VoxelSize
				var v voxel.Voxel
				switch {
				case worldZ < height:
					v = voxel.Solid(materialForDepth(height-worldZ), 0)
				case worldZ < req.SeaLevel:
					v = voxel.Water()
				default:
					v = voxel.Air()
				}
				voxels[coords.VoxelIndex(coords.LocalVoxel{X: lx, Y: ly, Z: lz}, n)] = v
			}
		}
	}
	return voxels, true
}

// materialForDepth picks a coarse material band by depth below the
// computed surface: thin topsoil over stone.
func materialForDepth(depth float32) uint8 {
	if depth < 1 {
		return 1 // topsoil
	}
	return 2 // stone
}

// fractalHeight sums req.Octaves value-noise layers at increasing
// frequency/decreasing amplitude (persistence/lacunarity), scaled by
// HeightScale.
func (g *HashedValueNoise) fractalHeight(req Request, x, y float32) float32 {
	octaves := req.Octaves
	if octaves <= 0 {
		octaves = 1
	}
	freq := req.Frequency
	if freq <= 0 {
		freq = 0.01
	}
	amp := req.Amplitude
	if amp <= 0 {
		amp = 1
	}
	persistence := req.Persistence
	if persistence <= 0 {
		persistence = 0.5
	}
	lacunarity := req.Lacunarity
	if lacunarity <= 0 {
		lacunarity = 2.0
	}

	var sum, maxAmp float32
	for o := int32(0); o < octaves; o++ {
		sum += g.valueNoise2D(req.Seed, x*freq, y*freq) * amp
		maxAmp += amp
		freq *= lacunarity
		amp *= persistence
	}
	if maxAmp == 0 {
		return 0
	}
	return (sum / maxAmp) * req.HeightScale
}

// valueNoise2D bilinearly interpolates hashed lattice values at the unit
// cell containing (x,y), returning a value in [-1, 1].
func (g *HashedValueNoise) valueNoise2D(seed int64, x, y float32) float32 {
	x0 := int64(math.Floor(float64(x)))
	y0 := int64(math.Floor(float64(y)))
	fx := x - float32(x0)
	fy := y - float32(y0)

	v00 := g.hashToUnit(seed, x0, y0)
	v10 := g.hashToUnit(seed, x0+1, y0)
	v01 := g.hashToUnit(seed, x0, y0+1)
	v11 := g.hashToUnit(seed, x0+1, y0+1)

	sx := smoothstep(fx)
	sy := smoothstep(fy)

	top := lerp(v00, v10, sx)
	bottom := lerp(v01, v11, sx)
	return lerp(top, bottom, sy)*2 - 1
}

func smoothstep(t float32) float32 {
	return t * t * (3 - 2*t)
}

func lerp(a, b, t float32) float32 {
	return a + (b-a)*t
}

// hashToUnit derives a deterministic value in [0,1) for a lattice point by
// seeding a pooled RNG with a mix of seed and coordinates. The pool exists
// purely to reuse rand.Rand allocations under concurrent generation; it
// carries no state between calls (each call reseeds before use).
func (g *HashedValueNoise) hashToUnit(seed int64, x, y int64) float32 {
	r := g.rngPool.Get().(*rand.Rand)
	defer g.rngPool.Put(r)
	mix := seed ^ (x * 73856093) ^ (y * 19349663)
	r.Seed(mix)
	return r.Float32()
}
