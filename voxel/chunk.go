package voxel

import (
	"github.com/draquel/voxelterrain/coords"
	"github.com/go-gl/mathgl/mgl32"
)

// State is the chunk manager's lifecycle state for a single chunk.
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
	StateUnloaded:          "Unloaded",
	StatePendingGeneration: "PendingGeneration",
	StateGenerating:        "Generating",
	StatePendingMeshing:    "PendingMeshing",
	StateMeshing:           "Meshing",
	StateLoaded:            "Loaded",
	StatePendingUnload:     "PendingUnload",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "Unknown"
	}
	return stateNames[s]
}

// DefaultChunkSize is used whenever a caller doesn't specify one explicitly.
const DefaultChunkSize = 32

// Descriptor holds a chunk's lifecycle metadata and its voxel storage.
// VoxelData is nil until the generation phase allocates it; Descriptor
// itself is never shared across goroutines except via the ownership
// handoff described by the chunk manager's optional worker pool.
type Descriptor struct {
	ChunkCoord coords.ChunkCoord
	LODLevel   int32
	ChunkSize  int32
	VoxelData  []Voxel

	BoundsMin mgl32.Vec3
	BoundsMax mgl32.Vec3

	Dirty          bool
	HasEdits       bool
	MorphFactor    float32
	GenerationSeed int32
	State          State
}

// NewDescriptor constructs an unallocated descriptor for coord at the given
// chunk size and LOD level, with world-space bounds precomputed.
func NewDescriptor(coord coords.ChunkCoord, chunkSize, lodLevel int32, voxelSize float32) *Descriptor {
	min, max := coords.ChunkToWorldBounds(coord, chunkSize, voxelSize)
	return &Descriptor{
		ChunkCoord: coord,
		LODLevel:   lodLevel,
		ChunkSize:  chunkSize,
		BoundsMin:  min,
		BoundsMax:  max,
		State:      StateUnloaded,
	}
}

// TotalVoxels returns chunk_size^3.
func (d *Descriptor) TotalVoxels() int {
	n := int(d.ChunkSize)
	return n * n * n
}

// AllocateVoxelData allocates VoxelData to hold TotalVoxels air voxels,
// replacing any previous contents.
func (d *Descriptor) AllocateVoxelData() {
	d.VoxelData = make([]Voxel, d.TotalVoxels())
}

// ClearVoxelData releases VoxelData, e.g. on generation failure reverting to
// Unloaded.
func (d *Descriptor) ClearVoxelData() {
	d.VoxelData = nil
}

// HasVoxelData reports whether VoxelData is allocated to the expected
// length.
func (d *Descriptor) HasVoxelData() bool {
	return len(d.VoxelData) == d.TotalVoxels()
}

// VoxelIndex returns the linear index for a local position, per the package
// coords.VoxelIndex convention (X fastest).
func (d *Descriptor) VoxelIndex(l coords.LocalVoxel) int {
	return coords.VoxelIndex(l, d.ChunkSize)
}

// IsValidLocal reports whether l lies within [0, ChunkSize) on every axis.
func (d *Descriptor) IsValidLocal(l coords.LocalVoxel) bool {
	n := d.ChunkSize
	return l.X >= 0 && l.X < n && l.Y >= 0 && l.Y < n && l.Z >= 0 && l.Z < n
}

// GetVoxel returns the voxel at local position l, or Air if out of range or
// unallocated.
func (d *Descriptor) GetVoxel(l coords.LocalVoxel) Voxel {
	if !d.IsValidLocal(l) {
		return Air()
	}
	idx := d.VoxelIndex(l)
	if idx < 0 || idx >= len(d.VoxelData) {
		return Air()
	}
	return d.VoxelData[idx]
}

// SetVoxel writes the voxel at local position l and marks the descriptor
// dirty. No-op if l is out of range or VoxelData is unallocated.
func (d *Descriptor) SetVoxel(l coords.LocalVoxel, v Voxel) {
	if !d.IsValidLocal(l) {
		return
	}
	idx := d.VoxelIndex(l)
	if idx < 0 || idx >= len(d.VoxelData) {
		return
	}
	d.VoxelData[idx] = v
	d.Dirty = true
}

// GetVoxelByIndex returns the voxel at a raw linear index, or Air if out of
// range.
func (d *Descriptor) GetVoxelByIndex(index int) Voxel {
	if index < 0 || index >= len(d.VoxelData) {
		return Air()
	}
	return d.VoxelData[index]
}

// SetVoxelByIndex writes the voxel at a raw linear index and marks dirty.
// No-op if out of range.
func (d *Descriptor) SetVoxelByIndex(index int, v Voxel) {
	if index < 0 || index >= len(d.VoxelData) {
		return
	}
	d.VoxelData[index] = v
	d.Dirty = true
}

// MemoryUsage estimates the descriptor's heap footprint in bytes: the voxel
// array (4 bytes each) plus a fixed overhead for the struct itself.
func (d *Descriptor) MemoryUsage() int {
	const structOverhead = 96
	return structOverhead + len(d.VoxelData)*4
}

// UniqueID returns a stable 64-bit identifier for this descriptor's
// coordinate and LOD level. See coords.PackedID.
func (d *Descriptor) UniqueID() uint64 {
	return coords.PackedID(d.ChunkCoord, d.LODLevel)
}
