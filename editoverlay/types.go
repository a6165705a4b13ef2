// Package editoverlay implements the sparse per-chunk edit layer: scoped
// edit operations, brush application with accumulation rules, bounded
// undo/redo history, and the bit-exact binary persistence format.
package editoverlay

import (
	"github.com/draquel/voxelterrain/coords"
	"github.com/draquel/voxelterrain/voxel"
)

// EditMode enumerates how an edit record's NewData relates to its
// OriginalData.
type EditMode uint8

const (
	ModeSet EditMode = iota
	ModeAdd
	ModeSubtract
	ModePaint
	ModeSmooth
)

var editModeNames = [...]string{
	ModeSet:      "Set",
	ModeAdd:      "Add",
	ModeSubtract: "Subtract",
	ModePaint:    "Paint",
	ModeSmooth:   "Smooth",
}

func (m EditMode) String() string {
	if int(m) >= len(editModeNames) {
		return "Unknown"
	}
	return editModeNames[m]
}

// EditSource distinguishes player-driven edits from internal maintenance
// (undo, redo, clear, file load). Treat as advisory: cancellation always
// republishes with EditSourceSystem even when the original edits were
// player-driven.
type EditSource uint8

const (
	EditSourcePlayer EditSource = iota
	EditSourceSystem
)

func (s EditSource) String() string {
	if s == EditSourceSystem {
		return "System"
	}
	return "Player"
}

// BrushShape enumerates the supported brush volumes.
type BrushShape uint8

const (
	BrushSphere BrushShape = iota
	BrushCube
	BrushCylinder
)

// FalloffType enumerates the supported brush falloff curves.
type FalloffType uint8

const (
	FalloffLinear FalloffType = iota
	FalloffSmooth
	FalloffSharp
)

// BrushParams configures a single brush application.
type BrushParams struct {
	Shape           BrushShape
	Radius          float32 // world units
	Strength        float32 // [0,1]
	FalloffType     FalloffType
	MaterialID      uint8
	DensityDelta    int32 // 0..255
	BrushMaterialID uint8
}

// DefaultBrushParams mirrors the original engine's defaults: sphere, 200
// world-unit radius, full strength, smooth falloff, material 1, density
// delta 50.
func DefaultBrushParams() BrushParams {
	return BrushParams{
		Shape:        BrushSphere,
		Radius:       200,
		Strength:     1,
		FalloffType:  FalloffSmooth,
		MaterialID:   1,
		DensityDelta: 50,
	}
}

// Falloff evaluates the brush's falloff curve at a normalized distance t
// (0 = brush center, 1 = brush edge). Values outside [0,1] saturate.
func (b BrushParams) Falloff(t float32) float32 {
	if t >= 1 {
		return 0
	}
	if t <= 0 {
		return 1
	}
	switch b.FalloffType {
	case FalloffLinear:
		return 1 - t
	case FalloffSharp:
		r := 1 - t
		return r * r
	default: // FalloffSmooth: Hermite 3t^2 - 2t^3
		return 1 - (3*t*t - 2*t*t*t)
	}
}

// EditRecord is a single per-voxel diff against the procedural field.
type EditRecord struct {
	LocalPosition   coords.LocalVoxel
	NewData         voxel.Voxel
	OriginalData    voxel.Voxel
	EditMode        EditMode
	DensityDelta    int32
	BrushMaterialID uint8
	Timestamp       float64
}

// ChunkEditLayer is the sparse per-chunk map of linear voxel index to edit
// record.
type ChunkEditLayer struct {
	ChunkCoord coords.ChunkCoord
	ChunkSize  int32
	Edits      map[int]EditRecord
}

func newChunkEditLayer(coord coords.ChunkCoord, chunkSize int32) *ChunkEditLayer {
	return &ChunkEditLayer{
		ChunkCoord: coord,
		ChunkSize:  chunkSize,
		Edits:      make(map[int]EditRecord),
	}
}

// IsEmpty reports whether the layer has no edits. Empty layers are kept
// around (not deleted) but are never reported as having edits.
func (l *ChunkEditLayer) IsEmpty() bool {
	return len(l.Edits) == 0
}

// EditCount returns the number of edit records in this layer.
func (l *ChunkEditLayer) EditCount() int {
	return len(l.Edits)
}

// MergedVoxel returns the voxel at a local position, preferring an edit
// record's NewData over proc if one exists.
func (l *ChunkEditLayer) MergedVoxel(idx int, proc voxel.Voxel) voxel.Voxel {
	if e, ok := l.Edits[idx]; ok {
		return e.NewData
	}
	return proc
}

// opEdit pairs an EditRecord with the chunk it belongs to, letting a single
// EditOperation span multiple chunks. PrevRecord/PrevExists capture what, if
// anything, occupied this voxel's slot immediately before Record was
// written, so Cancel/Undo can restore it exactly rather than only deleting.
type opEdit struct {
	ChunkCoord coords.ChunkCoord
	Record     EditRecord
	PrevRecord EditRecord
	PrevExists bool
}

// EditOperation is the unit of undo/redo: a named, timestamped, ordered
// sequence of edits plus the set of chunks they touched.
type EditOperation struct {
	OperationID    uint64
	Description    string
	Timestamp      float64
	Edits          []opEdit
	AffectedChunks []coords.ChunkCoord
}

// IsEmpty reports whether the operation recorded no edits.
func (op *EditOperation) IsEmpty() bool {
	return len(op.Edits) == 0
}

// EditCount returns the number of edit records in this operation.
func (op *EditOperation) EditCount() int {
	return len(op.Edits)
}

func (op *EditOperation) addAffectedChunk(c coords.ChunkCoord) {
	for _, existing := range op.AffectedChunks {
		if existing == c {
			return
		}
	}
	op.AffectedChunks = append(op.AffectedChunks, c)
}
