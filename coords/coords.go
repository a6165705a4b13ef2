// Package coords implements the pure coordinate algebra converting between
// world, chunk, and voxel spaces. Every function here is stateless and
// allocation-free.
package coords

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// ChunkCoord identifies a chunk by its integer position in chunk space. It
// is a plain comparable struct so it can be used directly as a map key;
// chunks never reference neighbors by pointer, only by ChunkCoord plus a
// lookup.
type ChunkCoord struct {
	X, Y, Z int32
}

// LocalVoxel identifies a voxel within its owning chunk, in [0, ChunkSize)
// on every axis.
type LocalVoxel struct {
	X, Y, Z int32
}

// GlobalVoxel identifies a voxel in world-wide integer voxel space,
// independent of any particular chunk size.
type GlobalVoxel struct {
	X, Y, Z int64
}

// Face enumerates the six axis-aligned chunk faces used throughout the
// meshing and neighbor-extraction contracts.
type Face int

const (
	FaceTop Face = iota
	FaceBottom
	FaceNorth
	FaceSouth
	FaceEast
	FaceWest
)

var faceNames = [...]string{"Top", "Bottom", "North", "South", "East", "West"}

func (f Face) String() string {
	if f < 0 || int(f) >= len(faceNames) {
		return "Unknown"
	}
	return faceNames[f]
}

// faceOffsets gives the integer chunk-space offset for each face: Top/Bottom
// are Z, North/South are Y, East/West are X, matching the original engine's
// face-to-axis mapping exactly.
var faceOffsets = [...]ChunkCoord{
	FaceTop:    {0, 0, 1},
	FaceBottom: {0, 0, -1},
	FaceNorth:  {0, 1, 0},
	FaceSouth:  {0, -1, 0},
	FaceEast:   {1, 0, 0},
	FaceWest:   {-1, 0, 0},
}

// FaceOffset returns the unit chunk-space offset for a face.
func FaceOffset(f Face) ChunkCoord {
	return faceOffsets[f]
}

// FaceNormal returns the world-space unit normal for a face.
func FaceNormal(f Face) mgl32.Vec3 {
	o := faceOffsets[f]
	return mgl32.Vec3{float32(o.X), float32(o.Y), float32(o.Z)}
}

var oppositeFace = [...]Face{
	FaceTop:    FaceBottom,
	FaceBottom: FaceTop,
	FaceNorth:  FaceSouth,
	FaceSouth:  FaceNorth,
	FaceEast:   FaceWest,
	FaceWest:   FaceEast,
}

// OppositeFace is an involution: OppositeFace(OppositeFace(f)) == f.
func OppositeFace(f Face) Face {
	return oppositeFace[f]
}

// WorldToChunk converts a world-space position to the chunk coordinate
// containing it, given the chunk's edge length in voxels (N) and the voxel
// size in world units (S).
func WorldToChunk(w mgl32.Vec3, chunkSize int32, voxelSize float32) ChunkCoord {
	chunkWorldSize := float32(chunkSize) * voxelSize
	return ChunkCoord{
		X: int32(math.Floor(float64(w.X() / chunkWorldSize))),
		Y: int32(math.Floor(float64(w.Y() / chunkWorldSize))),
		Z: int32(math.Floor(float64(w.Z() / chunkWorldSize))),
	}
}

// WorldToLocalVoxel converts a world-space position to the local voxel
// coordinate within its chunk, clamped to [0, chunkSize-1] to absorb
// floating-point roundoff exactly at chunk boundaries.
func WorldToLocalVoxel(w mgl32.Vec3, chunkSize int32, voxelSize float32) LocalVoxel {
	chunkWorldSize := float32(chunkSize) * voxelSize
	mod := func(v float32) int32 {
		m := float32(math.Mod(float64(v), float64(chunkWorldSize)))
		if m < 0 {
			m += chunkWorldSize
		}
		l := int32(math.Floor(float64(m / voxelSize)))
		if l < 0 {
			l = 0
		}
		if l > chunkSize-1 {
			l = chunkSize - 1
		}
		return l
	}
	return LocalVoxel{X: mod(w.X()), Y: mod(w.Y()), Z: mod(w.Z())}
}

// ChunkToWorldMin returns the world-space position of a chunk's minimum
// corner.
func ChunkToWorldMin(c ChunkCoord, chunkSize int32, voxelSize float32) mgl32.Vec3 {
	chunkWorldSize := float32(chunkSize) * voxelSize
	return mgl32.Vec3{
		float32(c.X) * chunkWorldSize,
		float32(c.Y) * chunkWorldSize,
		float32(c.Z) * chunkWorldSize,
	}
}

// ChunkToWorldCenter returns the world-space position of a chunk's center.
func ChunkToWorldCenter(c ChunkCoord, chunkSize int32, voxelSize float32) mgl32.Vec3 {
	chunkWorldSize := float32(chunkSize) * voxelSize
	half := chunkWorldSize / 2
	min := ChunkToWorldMin(c, chunkSize, voxelSize)
	return min.Add(mgl32.Vec3{half, half, half})
}

// ChunkToWorldBounds returns the (min, max) world-space AABB corners of a
// chunk.
func ChunkToWorldBounds(c ChunkCoord, chunkSize int32, voxelSize float32) (min, max mgl32.Vec3) {
	chunkWorldSize := float32(chunkSize) * voxelSize
	min = ChunkToWorldMin(c, chunkSize, voxelSize)
	max = min.Add(mgl32.Vec3{chunkWorldSize, chunkWorldSize, chunkWorldSize})
	return
}

// LocalVoxelToWorld returns the world-space center of a local voxel within a
// chunk.
func LocalVoxelToWorld(c ChunkCoord, l LocalVoxel, chunkSize int32, voxelSize float32) mgl32.Vec3 {
	min := ChunkToWorldMin(c, chunkSize, voxelSize)
	half := voxelSize / 2
	return mgl32.Vec3{
		min.X() + float32(l.X)*voxelSize + half,
		min.Y() + float32(l.Y)*voxelSize + half,
		min.Z() + float32(l.Z)*voxelSize + half,
	}
}

// floorDiv64 performs Euclidean floor division for possibly-negative a.
func floorDiv64(a, b int64) int32 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return int32(q)
}

// floorMod64 returns the non-negative remainder of a/b.
func floorMod64(a, b int64) int32 {
	m := a % b
	if m < 0 {
		m += b
	}
	return int32(m)
}

// VoxelToChunk converts a global voxel coordinate to the chunk coordinate
// containing it.
func VoxelToChunk(v GlobalVoxel, chunkSize int32) ChunkCoord {
	n := int64(chunkSize)
	return ChunkCoord{X: floorDiv64(v.X, n), Y: floorDiv64(v.Y, n), Z: floorDiv64(v.Z, n)}
}

// VoxelToLocal converts a global voxel coordinate to its local coordinate
// within its chunk (non-negative remainder).
func VoxelToLocal(v GlobalVoxel, chunkSize int32) LocalVoxel {
	n := int64(chunkSize)
	return LocalVoxel{X: floorMod64(v.X, n), Y: floorMod64(v.Y, n), Z: floorMod64(v.Z, n)}
}

// LocalToVoxel reconstructs a global voxel coordinate from a chunk
// coordinate and a local voxel coordinate.
func LocalToVoxel(c ChunkCoord, l LocalVoxel, chunkSize int32) GlobalVoxel {
	n := int64(chunkSize)
	return GlobalVoxel{
		X: int64(c.X)*n + int64(l.X),
		Y: int64(c.Y)*n + int64(l.Y),
		Z: int64(c.Z)*n + int64(l.Z),
	}
}

// VoxelIndex computes the linear storage index for a local voxel, with X as
// the fastest-varying axis: idx = x + y*N + z*N^2. It is a bijection onto
// [0, N^3) for l in [0,N)^3.
func VoxelIndex(l LocalVoxel, chunkSize int32) int {
	n := int64(chunkSize)
	return int(int64(l.X) + int64(l.Y)*n + int64(l.Z)*n*n)
}

// IndexToLocal is the inverse of VoxelIndex.
func IndexToLocal(index int, chunkSize int32) LocalVoxel {
	n := int64(chunkSize)
	idx := int64(index)
	x := idx % n
	y := (idx / n) % n
	z := idx / (n * n)
	return LocalVoxel{X: int32(x), Y: int32(y), Z: int32(z)}
}

// AdjacentChunks returns the six axis-aligned face neighbors of c, in Face
// enumeration order.
func AdjacentChunks(c ChunkCoord) [6]ChunkCoord {
	var out [6]ChunkCoord
	for f := Face(0); f < 6; f++ {
		o := faceOffsets[f]
		out[f] = ChunkCoord{c.X + o.X, c.Y + o.Y, c.Z + o.Z}
	}
	return out
}

// AllNeighborChunks returns all 26 neighbors of c (the full 3x3x3 block
// minus the origin), in no particular order.
func AllNeighborChunks(c ChunkCoord) [26]ChunkCoord {
	var out [26]ChunkCoord
	i := 0
	for dz := int32(-1); dz <= 1; dz++ {
		for dy := int32(-1); dy <= 1; dy++ {
			for dx := int32(-1); dx <= 1; dx++ {
				if dx == 0 && dy == 0 && dz == 0 {
					continue
				}
				out[i] = ChunkCoord{c.X + dx, c.Y + dy, c.Z + dz}
				i++
			}
		}
	}
	return out
}

// ChunkDistanceSquared returns the squared Euclidean distance between two
// chunk coordinates in chunk-space units.
func ChunkDistanceSquared(a, b ChunkCoord) int64 {
	dx := int64(a.X - b.X)
	dy := int64(a.Y - b.Y)
	dz := int64(a.Z - b.Z)
	return dx*dx + dy*dy + dz*dz
}

// ChunkDistance returns the Euclidean distance between two chunk
// coordinates in chunk-space units.
func ChunkDistance(a, b ChunkCoord) float64 {
	return math.Sqrt(float64(ChunkDistanceSquared(a, b)))
}

// PackedID returns a stable 64-bit identifier combining a chunk's
// coordinates (16 bits per axis, truncated) with its LOD level (8 bits),
// matching the original engine's ChunkDescriptor::GetUniqueID packing.
// Intended for use as a scalar correlation key (logs, debug dumps, cook
// names), not as a replacement for ChunkCoord map keys.
func PackedID(c ChunkCoord, lodLevel int32) uint64 {
	x := uint64(uint16(c.X))
	y := uint64(uint16(c.Y))
	z := uint64(uint16(c.Z))
	lod := uint64(uint8(lodLevel))
	return x | (y << 16) | (z << 32) | (lod << 48)
}
