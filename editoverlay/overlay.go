package editoverlay

import (
	"math"
	"time"

	"github.com/draquel/voxelterrain/coords"
	"github.com/draquel/voxelterrain/enginelog"
	"github.com/draquel/voxelterrain/voxel"
	"github.com/go-gl/mathgl/mgl32"
)

// DefaultMaxUndoHistory matches the original engine's MaxUndoHistory
// constant.
const DefaultMaxUndoHistory = 100

// ProceduralReader answers the procedural (pre-edit) voxel value at a given
// chunk-local position. It is how the overlay resolves Open Question 1: the
// first-ever edit at a voxel reads its true procedural value through this
// callback rather than assuming Air. The bool return reports whether the
// chunk is currently resident; when false, the overlay falls back to Air
// and logs at Verbose.
type ProceduralReader func(coords.ChunkCoord, coords.LocalVoxel) (voxel.Voxel, bool)

// EditCallback is notified on every committed mutation.
type EditCallback func(chunkCoord coords.ChunkCoord, source EditSource, editCenter mgl32.Vec3, editRadius float32)

// UndoRedoCallback is notified whenever either history stack's length
// changes.
type UndoRedoCallback func()

// Manager is the edit overlay subsystem: it owns every chunk's sparse edit
// layer plus the undo/redo history, and applies the accumulation rules
// described in the specification's edit-overlay section. It does not touch
// procedural chunk data directly; the owning chunk manager merges layers at
// mesh time.
type Manager struct {
	logger enginelog.Logger

	chunkSize      int32
	voxelSize      float32
	proceduralRead ProceduralReader
	initialized    bool

	layers map[coords.ChunkCoord]*ChunkEditLayer

	current *EditOperation

	undoStack      []EditOperation
	redoStack      []EditOperation
	maxUndoHistory int

	nextOperationID uint64

	editSubscribers     []EditCallback
	undoRedoSubscribers []UndoRedoCallback

	now func() float64
}

// New constructs an uninitialized Manager. Call Initialize before using it.
func New(logger enginelog.Logger) *Manager {
	return &Manager{
		logger:         enginelog.OrNop(logger),
		layers:         make(map[coords.ChunkCoord]*ChunkEditLayer),
		maxUndoHistory: DefaultMaxUndoHistory,
		now:            func() float64 { return float64(time.Now().UnixNano()) / 1e9 },
	}
}

// Initialize wires the manager to its coordinate space and its procedural
// data source.
func (m *Manager) Initialize(chunkSize int32, voxelSize float32, proceduralRead ProceduralReader) {
	m.chunkSize = chunkSize
	m.voxelSize = voxelSize
	m.proceduralRead = proceduralRead
	m.initialized = true
}

// Shutdown releases the manager's resources and forgets all edit and
// history state.
func (m *Manager) Shutdown() {
	m.layers = make(map[coords.ChunkCoord]*ChunkEditLayer)
	m.undoStack = nil
	m.redoStack = nil
	m.current = nil
	m.initialized = false
}

// IsInitialized reports whether Initialize has run.
func (m *Manager) IsInitialized() bool {
	return m.initialized
}

// SetMaxUndoHistory overrides the undo stack capacity (default 100).
func (m *Manager) SetMaxUndoHistory(n int) {
	if n < 1 {
		n = 1
	}
	m.maxUndoHistory = n
}

// Subscribe registers cb to be called after every committed mutation.
func (m *Manager) Subscribe(cb EditCallback) {
	m.editSubscribers = append(m.editSubscribers, cb)
}

// SubscribeUndoRedo registers cb to be called whenever either history
// stack's length changes.
func (m *Manager) SubscribeUndoRedo(cb UndoRedoCallback) {
	m.undoRedoSubscribers = append(m.undoRedoSubscribers, cb)
}

func (m *Manager) publishEdit(chunkCoord coords.ChunkCoord, source EditSource, center mgl32.Vec3, radius float32) {
	for _, cb := range m.editSubscribers {
		cb(chunkCoord, source, center, radius)
	}
}

func (m *Manager) publishUndoRedoChanged() {
	for _, cb := range m.undoRedoSubscribers {
		cb()
	}
}

// ---- Scoped operations ----

// BeginOperation starts a new edit operation for undo/redo grouping. A
// nested begin (one already in progress) implicitly ends the previous
// operation first.
func (m *Manager) BeginOperation(description string) {
	if !m.initialized {
		m.logger.Warnf("editoverlay: BeginOperation called before Initialize")
		return
	}
	if m.current != nil {
		m.endOperationLocked()
	}
	if description == "" {
		description = "Edit"
	}
	m.current = &EditOperation{
		OperationID: m.allocOperationID(),
		Description: description,
		Timestamp:   m.now(),
	}
}

func (m *Manager) allocOperationID() uint64 {
	m.nextOperationID++
	return m.nextOperationID
}

// EndOperation closes the in-progress operation and pushes it onto the undo
// stack. An operation with no edits is discarded silently.
func (m *Manager) EndOperation() {
	m.endOperationLocked()
}

func (m *Manager) endOperationLocked() {
	op := m.current
	m.current = nil
	if op == nil || op.IsEmpty() {
		return
	}
	m.undoStack = append(m.undoStack, *op)
	if len(m.undoStack) > m.maxUndoHistory {
		m.undoStack = m.undoStack[1:]
	}
	m.redoStack = nil
	m.publishUndoRedoChanged()
}

// CancelOperation reverts every edit made since BeginOperation and discards
// the operation without adding it to the undo stack. Always publishes with
// EditSourceSystem (see spec's cancellation-source open question).
func (m *Manager) CancelOperation() {
	op := m.current
	m.current = nil
	if op == nil {
		return
	}
	for i := len(op.Edits) - 1; i >= 0; i-- {
		e := op.Edits[i]
		m.unapply(e.ChunkCoord, e)
	}
	for _, c := range op.AffectedChunks {
		m.publishEdit(c, EditSourceSystem, mgl32.Vec3{}, 0)
	}
}

// IsOperationInProgress reports whether BeginOperation has been called
// without a matching End/Cancel.
func (m *Manager) IsOperationInProgress() bool {
	return m.current != nil
}

// ---- Direct and brush edits ----

// ApplyEdit applies a single explicit voxel edit at a world position.
func (m *Manager) ApplyEdit(worldPos mgl32.Vec3, newData voxel.Voxel, mode EditMode) bool {
	if !m.initialized {
		m.logger.Warnf("editoverlay: ApplyEdit called before Initialize")
		return false
	}
	chunkCoord := coords.WorldToChunk(worldPos, m.chunkSize, m.voxelSize)
	local := coords.WorldToLocalVoxel(worldPos, m.chunkSize, m.voxelSize)

	autoStarted := m.current == nil
	if autoStarted {
		m.BeginOperation("Edit")
	}

	ok := m.commit(chunkCoord, local, mode, newData, 0, newData.MaterialID, EditSourcePlayer)
	if !ok {
		if autoStarted {
			m.CancelOperation()
		}
		return false
	}
	if autoStarted {
		m.EndOperation()
	}
	m.publishEdit(chunkCoord, EditSourcePlayer, worldPos, 0)
	return true
}

// ApplyBrushEdit applies brush to every voxel within its radius of
// worldPos, with per-voxel strength scaled by the configured falloff curve.
// Voxels whose effective strength falls below 0.01 are skipped. Returns the
// number of voxels modified.
func (m *Manager) ApplyBrushEdit(worldPos mgl32.Vec3, brush BrushParams, mode EditMode) int {
	if !m.initialized {
		m.logger.Warnf("editoverlay: ApplyBrushEdit called before Initialize")
		return 0
	}
	if brush.Radius <= 0 {
		m.logger.Warnf("editoverlay: brush radius must be positive")
		return 0
	}

	autoStarted := m.current == nil
	if autoStarted {
		m.BeginOperation("Brush")
	}

	count := 0
	radiusVoxels := int32(math.Ceil(float64(brush.Radius / m.voxelSize)))

	touched := make(map[coords.ChunkCoord]bool)

	for dz := -radiusVoxels; dz <= radiusVoxels; dz++ {
		for dy := -radiusVoxels; dy <= radiusVoxels; dy++ {
			for dx := -radiusVoxels; dx <= radiusVoxels; dx++ {
				offset := mgl32.Vec3{float32(dx) * m.voxelSize, float32(dy) * m.voxelSize, float32(dz) * m.voxelSize}
				voxelWorldPos := worldPos.Add(offset)
				dist := offset.Len()

				if !brushContains(brush.Shape, offset, brush.Radius) {
					continue
				}
				t := dist / brush.Radius
				effective := brush.Strength * brush.Falloff(t)
				if effective < 0.01 {
					continue
				}

				chunkCoord := coords.WorldToChunk(voxelWorldPos, m.chunkSize, m.voxelSize)
				local := coords.WorldToLocalVoxel(voxelWorldPos, m.chunkSize, m.voxelSize)

				delta := int32(math.Round(float64(brush.DensityDelta) * float64(effective)))
				if mode == ModeAdd || mode == ModeSubtract {
					if delta == 0 {
						continue
					}
				}

				if m.commit(chunkCoord, local, mode, voxel.Voxel{}, delta, brush.MaterialID, EditSourcePlayer) {
					count++
					touched[chunkCoord] = true
				}
			}
		}
	}

	if autoStarted {
		m.EndOperation()
	}
	for c := range touched {
		m.publishEdit(c, EditSourcePlayer, worldPos, brush.Radius)
	}
	return count
}

func brushContains(shape BrushShape, offset mgl32.Vec3, radius float32) bool {
	switch shape {
	case BrushCube:
		return absf(offset.X()) <= radius && absf(offset.Y()) <= radius && absf(offset.Z()) <= radius
	case BrushCylinder:
		horiz := math.Sqrt(float64(offset.X()*offset.X() + offset.Y()*offset.Y()))
		return float32(horiz) <= radius && absf(offset.Z()) <= radius
	default: // BrushSphere
		return offset.Len() <= radius
	}
}

func absf(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

// commit resolves the original voxel value, applies the accumulation rule,
// writes the resulting record (or removes it), and appends it to the
// in-progress operation. Returns false on BadInput (invalid local
// position).
func (m *Manager) commit(chunkCoord coords.ChunkCoord, local coords.LocalVoxel, mode EditMode, explicitNewData voxel.Voxel, densityDelta int32, brushMaterialID uint8, source EditSource) bool {
	if local.X < 0 || local.X >= m.chunkSize || local.Y < 0 || local.Y >= m.chunkSize || local.Z < 0 || local.Z >= m.chunkSize {
		m.logger.Warnf("editoverlay: local position %v out of [0,%d)", local, m.chunkSize)
		return false
	}

	layer := m.getOrCreateLayer(chunkCoord)
	idx := coords.VoxelIndex(local, m.chunkSize)
	existing, hasExisting := layer.Edits[idx]

	original := m.originalVoxel(chunkCoord, local, existing, hasExisting)
	timestamp := m.now()

	record, remove := buildRecord(existing, hasExisting, original, mode, explicitNewData, densityDelta, brushMaterialID, timestamp, local)

	if remove {
		delete(layer.Edits, idx)
	} else {
		layer.Edits[idx] = record
	}

	if m.current != nil {
		m.current.Edits = append(m.current.Edits, opEdit{
			ChunkCoord: chunkCoord,
			Record:     record,
			PrevRecord: existing,
			PrevExists: hasExisting,
		})
		m.current.addAffectedChunk(chunkCoord)
	}
	return true
}

// originalVoxel returns the true pre-edit-history voxel value: the existing
// record's OriginalData if one exists, otherwise the procedural value via
// the callback, falling back to Air when the chunk isn't resident.
func (m *Manager) originalVoxel(chunkCoord coords.ChunkCoord, local coords.LocalVoxel, existing EditRecord, hasExisting bool) voxel.Voxel {
	if hasExisting {
		return existing.OriginalData
	}
	if m.proceduralRead != nil {
		if v, ok := m.proceduralRead(chunkCoord, local); ok {
			return v
		}
		m.logger.Debugf("editoverlay: chunk %v not resident for procedural read, falling back to Air", chunkCoord)
	}
	return voxel.Air()
}

func signedDelta(mode EditMode, delta int32) int32 {
	if mode == ModeSubtract {
		return -delta
	}
	return delta
}

func applyDensityDelta(original voxel.Voxel, mode EditMode, delta int32, material uint8) voxel.Voxel {
	d := int32(original.Density)
	switch mode {
	case ModeAdd:
		d += delta
	case ModeSubtract:
		d -= delta
	}
	if d < 0 {
		d = 0
	}
	if d > 255 {
		d = 255
	}
	v := original
	v.Density = uint8(d)
	if material != 0 {
		v.MaterialID = material
	}
	return v
}

func applyPaint(original voxel.Voxel, material uint8) voxel.Voxel {
	v := original
	if material != 0 {
		v.MaterialID = material
	}
	return v
}

// buildRecord implements the accumulation rule from the specification: two
// Add/Subtract edits at the same voxel combine into a signed-delta sum;
// anything else replaces the prior record outright.
func buildRecord(existing EditRecord, hasExisting bool, original voxel.Voxel, mode EditMode, explicitNewData voxel.Voxel, densityDelta int32, brushMaterialID uint8, timestamp float64, local coords.LocalVoxel) (EditRecord, bool) {
	existingIsAddSub := hasExisting && (existing.EditMode == ModeAdd || existing.EditMode == ModeSubtract)
	newIsAddSub := mode == ModeAdd || mode == ModeSubtract

	if existingIsAddSub && newIsAddSub {
		total := signedDelta(existing.EditMode, existing.DensityDelta) + signedDelta(mode, densityDelta)
		if total == 0 {
			addMaterial, hasAddSide := uint8(0), false
			if existing.EditMode == ModeAdd {
				addMaterial, hasAddSide = existing.BrushMaterialID, true
			} else if mode == ModeAdd {
				addMaterial, hasAddSide = brushMaterialID, true
			}
			if original.IsAir() && hasAddSide && addMaterial != 0 {
				return EditRecord{
					LocalPosition:   local,
					NewData:         applyPaint(original, addMaterial),
					OriginalData:    original,
					EditMode:        ModePaint,
					DensityDelta:    0,
					BrushMaterialID: addMaterial,
					Timestamp:       timestamp,
				}, false
			}
			return EditRecord{}, true
		}
		resultMode := ModeAdd
		if total < 0 {
			resultMode = ModeSubtract
		}
		delta := total
		if delta < 0 {
			delta = -delta
		}
		mat := brushMaterialID
		if mode != ModeAdd || brushMaterialID == 0 {
			mat = existing.BrushMaterialID
		}
		return EditRecord{
			LocalPosition:   local,
			NewData:         applyDensityDelta(original, resultMode, delta, mat),
			OriginalData:    original,
			EditMode:        resultMode,
			DensityDelta:    delta,
			BrushMaterialID: mat,
			Timestamp:       timestamp,
		}, false
	}

	// Any other combination: replace outright.
	var newData voxel.Voxel
	switch mode {
	case ModeAdd, ModeSubtract:
		newData = applyDensityDelta(original, mode, densityDelta, brushMaterialID)
	case ModePaint:
		newData = applyPaint(original, brushMaterialID)
	default: // ModeSet, ModeSmooth
		newData = explicitNewData
	}
	return EditRecord{
		LocalPosition:   local,
		NewData:         newData,
		OriginalData:    original,
		EditMode:        mode,
		DensityDelta:    densityDelta,
		BrushMaterialID: brushMaterialID,
		Timestamp:       timestamp,
	}, false
}

// ---- Undo / redo ----

// CanUndo reports whether the undo stack has at least one operation.
func (m *Manager) CanUndo() bool { return len(m.undoStack) > 0 }

// CanRedo reports whether the redo stack has at least one operation.
func (m *Manager) CanRedo() bool { return len(m.redoStack) > 0 }

// Undo pops the most recent operation, reverts every constituent edit to
// the record (or absence of one) that preceded it, and pushes it onto the
// redo stack. Returns
// false if there is nothing to undo.
func (m *Manager) Undo() bool {
	if !m.CanUndo() {
		return false
	}
	op := m.undoStack[len(m.undoStack)-1]
	m.undoStack = m.undoStack[:len(m.undoStack)-1]

	for i := len(op.Edits) - 1; i >= 0; i-- {
		e := op.Edits[i]
		m.unapply(e.ChunkCoord, e)
	}

	m.redoStack = append(m.redoStack, op)
	for _, c := range op.AffectedChunks {
		m.publishEdit(c, EditSourceSystem, mgl32.Vec3{}, 0)
	}
	m.publishUndoRedoChanged()
	return true
}

// Redo pops the most recently undone operation, re-applies every
// constituent edit, and pushes it back onto the undo stack. Returns false
// if there is nothing to redo.
func (m *Manager) Redo() bool {
	if !m.CanRedo() {
		return false
	}
	op := m.redoStack[len(m.redoStack)-1]
	m.redoStack = m.redoStack[:len(m.redoStack)-1]

	for _, e := range op.Edits {
		if e.Record == (EditRecord{}) && e.PrevExists {
			// This edit emptied its slot (an Add/Subtract pair summing to zero).
			if layer, ok := m.layers[e.ChunkCoord]; ok {
				delete(layer.Edits, coords.VoxelIndex(e.PrevRecord.LocalPosition, m.chunkSize))
			}
			continue
		}
		m.reapply(e.ChunkCoord, e.Record)
	}

	m.undoStack = append(m.undoStack, op)
	if len(m.undoStack) > m.maxUndoHistory {
		m.undoStack = m.undoStack[1:]
	}
	for _, c := range op.AffectedChunks {
		m.publishEdit(c, EditSourceSystem, mgl32.Vec3{}, 0)
	}
	m.publishUndoRedoChanged()
	return true
}

// unapply reverts a single edit back to whatever occupied its slot right
// before it was committed: the prior record if one existed, or no record at
// all (pure procedural data) otherwise.
func (m *Manager) unapply(chunkCoord coords.ChunkCoord, e opEdit) {
	layer, ok := m.layers[chunkCoord]
	if !ok {
		return
	}
	pos := e.Record.LocalPosition
	if e.PrevExists {
		pos = e.PrevRecord.LocalPosition
	}
	idx := coords.VoxelIndex(pos, m.chunkSize)
	if e.PrevExists {
		layer.Edits[idx] = e.PrevRecord
	} else {
		delete(layer.Edits, idx)
	}
}

// reapply restores a record exactly as it was when its operation was
// originally committed.
func (m *Manager) reapply(chunkCoord coords.ChunkCoord, rec EditRecord) {
	layer := m.getOrCreateLayer(chunkCoord)
	idx := coords.VoxelIndex(rec.LocalPosition, m.chunkSize)
	layer.Edits[idx] = rec
}

// ClearHistory discards all undo/redo state without touching live edits.
func (m *Manager) ClearHistory() {
	m.undoStack = nil
	m.redoStack = nil
	m.publishUndoRedoChanged()
}

// UndoCount returns the number of operations on the undo stack.
func (m *Manager) UndoCount() int { return len(m.undoStack) }

// RedoCount returns the number of operations on the redo stack.
func (m *Manager) RedoCount() int { return len(m.redoStack) }

// ---- Layer access ----

func (m *Manager) getOrCreateLayer(chunkCoord coords.ChunkCoord) *ChunkEditLayer {
	layer, ok := m.layers[chunkCoord]
	if !ok {
		layer = newChunkEditLayer(chunkCoord, m.chunkSize)
		m.layers[chunkCoord] = layer
	}
	return layer
}

// GetOrCreateEditLayer returns the chunk's edit layer, creating an empty one
// if none exists yet.
func (m *Manager) GetOrCreateEditLayer(chunkCoord coords.ChunkCoord) *ChunkEditLayer {
	return m.getOrCreateLayer(chunkCoord)
}

// GetEditLayer returns the chunk's edit layer, or nil if none exists.
func (m *Manager) GetEditLayer(chunkCoord coords.ChunkCoord) *ChunkEditLayer {
	return m.layers[chunkCoord]
}

// ChunkHasEdits reports whether the chunk has a non-empty edit layer.
func (m *Manager) ChunkHasEdits(chunkCoord coords.ChunkCoord) bool {
	layer, ok := m.layers[chunkCoord]
	return ok && !layer.IsEmpty()
}

// EditedChunkCount returns the number of chunks with an edit layer
// (including empty ones retained from a ClearChunkEdits call).
func (m *Manager) EditedChunkCount() int {
	return len(m.layers)
}

// TotalEditCount sums the edit counts of every chunk's layer.
func (m *Manager) TotalEditCount() int {
	total := 0
	for _, l := range m.layers {
		total += l.EditCount()
	}
	return total
}

// ClearChunkEdits removes every edit in a chunk's layer (the layer record
// itself is retained, empty). Returns true if any edits were cleared.
func (m *Manager) ClearChunkEdits(chunkCoord coords.ChunkCoord) bool {
	layer, ok := m.layers[chunkCoord]
	if !ok || layer.IsEmpty() {
		return false
	}
	layer.Edits = make(map[int]EditRecord)
	m.publishEdit(chunkCoord, EditSourceSystem, mgl32.Vec3{}, 0)
	return true
}

// ClearAllEdits removes every edit from every chunk's layer.
func (m *Manager) ClearAllEdits() {
	for c, layer := range m.layers {
		if !layer.IsEmpty() {
			layer.Edits = make(map[int]EditRecord)
			m.publishEdit(c, EditSourceSystem, mgl32.Vec3{}, 0)
		}
	}
}

// DebugStats returns a short human-readable summary of overlay state.
func (m *Manager) DebugStats() string {
	return "editoverlay: chunks=" + itoa(m.EditedChunkCount()) +
		" edits=" + itoa(m.TotalEditCount()) +
		" undo=" + itoa(m.UndoCount()) +
		" redo=" + itoa(m.RedoCount())
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

// MemoryUsage estimates the manager's heap footprint in bytes.
func (m *Manager) MemoryUsage() int {
	const perEdit = 48
	const perOp = 64
	total := 0
	for _, l := range m.layers {
		total += perEdit * len(l.Edits)
	}
	for _, op := range m.undoStack {
		total += perOp + perEdit*len(op.Edits)
	}
	for _, op := range m.redoStack {
		total += perOp + perEdit*len(op.Edits)
	}
	return total
}
