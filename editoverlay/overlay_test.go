package editoverlay

import (
	"bytes"
	"testing"

	"github.com/draquel/voxelterrain/coords"
	"github.com/draquel/voxelterrain/voxel"
	"github.com/go-gl/mathgl/mgl32"
)

const testChunkSize = 16
const testVoxelSize = 100

func newTestManager() *Manager {
	m := New(nil)
	m.Initialize(testChunkSize, testVoxelSize, func(c coords.ChunkCoord, l coords.LocalVoxel) (voxel.Voxel, bool) {
		return voxel.Solid(1, 0), true
	})
	return m
}

func newTestManagerAir() *Manager {
	m := New(nil)
	m.Initialize(testChunkSize, testVoxelSize, func(c coords.ChunkCoord, l coords.LocalVoxel) (voxel.Voxel, bool) {
		return voxel.Air(), true
	})
	return m
}

func TestApplyEdit_SingleVoxel_AutoWrapsOperation(t *testing.T) {
	m := newTestManager()
	pos := mgl32.Vec3{50, 50, 50}

	ok := m.ApplyEdit(pos, voxel.Air(), ModeSet)
	if !ok {
		t.Fatalf("ApplyEdit returned false")
	}
	if m.IsOperationInProgress() {
		t.Errorf("auto-started operation should have been closed")
	}
	if m.UndoCount() != 1 {
		t.Errorf("UndoCount() = %d, want 1", m.UndoCount())
	}

	chunkCoord := coords.WorldToChunk(pos, testChunkSize, testVoxelSize)
	if !m.ChunkHasEdits(chunkCoord) {
		t.Errorf("expected chunk %v to have edits", chunkCoord)
	}
}

func TestApplyBrushEdit_SphereDigRemovesVoxelsWithinRadius(t *testing.T) {
	m := newTestManager()
	pos := mgl32.Vec3{800, 800, 800}

	brush := DefaultBrushParams()
	brush.Shape = BrushSphere
	brush.Radius = 250
	brush.FalloffType = FalloffLinear

	n := m.ApplyBrushEdit(pos, brush, ModeSubtract)
	if n == 0 {
		t.Fatalf("expected brush dig to modify at least one voxel")
	}

	chunkCoord := coords.WorldToChunk(pos, testChunkSize, testVoxelSize)
	layer := m.GetEditLayer(chunkCoord)
	if layer == nil || layer.IsEmpty() {
		t.Fatalf("expected edits recorded in chunk %v", chunkCoord)
	}

	centerLocal := coords.WorldToLocalVoxel(pos, testChunkSize, testVoxelSize)
	idx := coords.VoxelIndex(centerLocal, testChunkSize)
	rec, ok := layer.Edits[idx]
	if !ok {
		t.Fatalf("expected an edit at the brush center")
	}
	if rec.NewData.Density >= rec.OriginalData.Density {
		t.Errorf("Subtract brush should have reduced density: before=%d after=%d", rec.OriginalData.Density, rec.NewData.Density)
	}
}

// TestAccumulation_AddThenEqualSubtractConvertsToPaint reproduces spec.md's
// scenario 3 literally: starting from Air, Add(delta=50, mat=3) then
// Subtract(delta=50, mat=0) at the same voxel must leave a Paint(mat=3,
// delta=0) record, not a full removal.
func TestAccumulation_AddThenEqualSubtractConvertsToPaint(t *testing.T) {
	m := newTestManagerAir()
	local := coords.LocalVoxel{X: 3, Y: 3, Z: 3}
	chunkCoord := coords.ChunkCoord{X: 1, Y: 0, Z: 0}

	m.BeginOperation("add")
	if !m.commit(chunkCoord, local, ModeAdd, voxel.Voxel{}, 50, 3, EditSourcePlayer) {
		t.Fatalf("first commit failed")
	}
	m.EndOperation()

	m.BeginOperation("subtract")
	if !m.commit(chunkCoord, local, ModeSubtract, voxel.Voxel{}, 50, 0, EditSourcePlayer) {
		t.Fatalf("second commit failed")
	}
	m.EndOperation()

	layer := m.GetEditLayer(chunkCoord)
	idx := coords.VoxelIndex(local, testChunkSize)
	rec, ok := layer.Edits[idx]
	if !ok {
		t.Fatalf("expected a Paint record to remain after equal-and-opposite accumulation")
	}
	if rec.EditMode != ModePaint {
		t.Errorf("EditMode = %v, want Paint", rec.EditMode)
	}
	if rec.BrushMaterialID != 3 {
		t.Errorf("BrushMaterialID = %d, want 3", rec.BrushMaterialID)
	}
	if rec.DensityDelta != 0 {
		t.Errorf("DensityDelta = %d, want 0", rec.DensityDelta)
	}
	if rec.NewData.MaterialID != 3 {
		t.Errorf("NewData.MaterialID = %d, want 3", rec.NewData.MaterialID)
	}
}

// TestAccumulation_NonAirOriginalAnnihilatesFully covers the qualifier the
// Paint conversion depends on: the same Add-then-Subtract cancellation
// starting from a non-air original leaves no record at all.
func TestAccumulation_NonAirOriginalAnnihilatesFully(t *testing.T) {
	m := newTestManager()
	local := coords.LocalVoxel{X: 4, Y: 4, Z: 4}
	chunkCoord := coords.ChunkCoord{X: 2, Y: 0, Z: 0}

	m.BeginOperation("add")
	if !m.commit(chunkCoord, local, ModeAdd, voxel.Voxel{}, 50, 3, EditSourcePlayer) {
		t.Fatalf("first commit failed")
	}
	m.EndOperation()

	m.BeginOperation("subtract")
	if !m.commit(chunkCoord, local, ModeSubtract, voxel.Voxel{}, 50, 0, EditSourcePlayer) {
		t.Fatalf("second commit failed")
	}
	m.EndOperation()

	layer := m.GetEditLayer(chunkCoord)
	idx := coords.VoxelIndex(local, testChunkSize)
	if _, ok := layer.Edits[idx]; ok {
		t.Errorf("expected no record after equal-and-opposite accumulation on a non-air original")
	}
}

func TestAccumulation_UnequalOppositeDeltasNetOut(t *testing.T) {
	m := newTestManager()
	local := coords.LocalVoxel{X: 2, Y: 2, Z: 2}
	chunkCoord := coords.ChunkCoord{}

	m.BeginOperation("add")
	m.commit(chunkCoord, local, ModeAdd, voxel.Voxel{}, 60, 0, EditSourcePlayer)
	m.EndOperation()

	m.BeginOperation("subtract")
	m.commit(chunkCoord, local, ModeSubtract, voxel.Voxel{}, 20, 0, EditSourcePlayer)
	m.EndOperation()

	layer := m.GetEditLayer(chunkCoord)
	idx := coords.VoxelIndex(local, testChunkSize)
	rec := layer.Edits[idx]
	if rec.EditMode != ModeAdd {
		t.Errorf("EditMode = %v, want Add (net positive)", rec.EditMode)
	}
	if rec.DensityDelta != 40 {
		t.Errorf("DensityDelta = %d, want 40", rec.DensityDelta)
	}
}

func TestUndoRedo_RestoresPriorLayerState(t *testing.T) {
	m := newTestManager()
	pos := mgl32.Vec3{10, 10, 10}
	chunkCoord := coords.WorldToChunk(pos, testChunkSize, testVoxelSize)

	m.ApplyEdit(pos, voxel.Air(), ModeSet)
	if !m.ChunkHasEdits(chunkCoord) {
		t.Fatalf("expected edit to be present before undo")
	}

	if !m.Undo() {
		t.Fatalf("Undo() returned false")
	}
	if m.ChunkHasEdits(chunkCoord) {
		t.Errorf("expected edit to be reverted after undo")
	}
	if !m.CanRedo() {
		t.Fatalf("expected redo to be available")
	}

	if !m.Redo() {
		t.Fatalf("Redo() returned false")
	}
	if !m.ChunkHasEdits(chunkCoord) {
		t.Errorf("expected edit to be restored after redo")
	}
}

func TestCancelOperation_RevertsUncommittedEdits(t *testing.T) {
	m := newTestManager()
	pos := mgl32.Vec3{10, 10, 10}
	chunkCoord := coords.WorldToChunk(pos, testChunkSize, testVoxelSize)

	m.BeginOperation("scratch")
	local := coords.WorldToLocalVoxel(pos, testChunkSize, testVoxelSize)
	m.commit(chunkCoord, local, ModeSet, voxel.Air(), 0, 0, EditSourcePlayer)
	if !m.ChunkHasEdits(chunkCoord) {
		t.Fatalf("expected edit to be staged before cancel")
	}
	m.CancelOperation()

	if m.ChunkHasEdits(chunkCoord) {
		t.Errorf("expected edit to be reverted after cancel")
	}
	if m.UndoCount() != 0 {
		t.Errorf("cancelled operation must not appear on the undo stack")
	}
}

func TestSaveLoad_RoundTrips(t *testing.T) {
	m := newTestManager()
	m.ApplyEdit(mgl32.Vec3{10, 10, 10}, voxel.Air(), ModeSet)
	m.ApplyEdit(mgl32.Vec3{2000, 0, 0}, voxel.Solid(9, 0), ModeSet)

	var buf bytes.Buffer
	if err := m.Save(&buf); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	m2 := newTestManager()
	if err := m2.Load(&buf); err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if m2.TotalEditCount() != m.TotalEditCount() {
		t.Errorf("TotalEditCount() = %d, want %d", m2.TotalEditCount(), m.TotalEditCount())
	}
	if m2.EditedChunkCount() != m.EditedChunkCount() {
		t.Errorf("EditedChunkCount() = %d, want %d", m2.EditedChunkCount(), m.EditedChunkCount())
	}

	c1 := coords.WorldToChunk(mgl32.Vec3{10, 10, 10}, testChunkSize, testVoxelSize)
	l1 := m.GetEditLayer(c1)
	l2 := m2.GetEditLayer(c1)
	if l1 == nil || l2 == nil {
		t.Fatalf("expected both managers to have an edit layer at %v", c1)
	}
	for idx, rec := range l1.Edits {
		got, ok := l2.Edits[idx]
		if !ok {
			t.Fatalf("missing edit at index %d after round trip", idx)
		}
		if got.NewData != rec.NewData || got.OriginalData != rec.OriginalData || got.EditMode != rec.EditMode {
			t.Errorf("edit at index %d mismatched after round trip: got %+v want %+v", idx, got, rec)
		}
	}
}

func TestLoad_RejectsBadMagic(t *testing.T) {
	m := newTestManager()
	if err := m.Load(bytes.NewReader([]byte{0, 0, 0, 0})); err == nil {
		t.Fatalf("expected Load to reject a bad magic header")
	}
}

func TestLoad_SynthesizesV1Fields(t *testing.T) {
	var buf bytes.Buffer
	writeU32 := func(v uint32) { buf.Write([]byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}) }
	writeI32 := func(v int32) { writeU32(uint32(v)) }

	writeU32(veTIMagic)
	writeU32(1) // version
	writeI32(1) // chunk_count
	writeI32(0)
	writeI32(0)
	writeI32(0) // chunk_coord
	writeI32(1) // edit_count
	writeI32(1)
	writeI32(1)
	writeI32(1) // local_position
	newData := voxel.Solid(7, 0)
	nb := newData.Bytes()
	buf.Write(nb[:])
	ob := voxel.Air().Bytes()
	buf.Write(ob[:])

	m := newTestManager()
	if err := m.Load(&buf); err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	layer := m.GetEditLayer(coords.ChunkCoord{})
	if layer == nil || layer.IsEmpty() {
		t.Fatalf("expected one edit decoded from a v1 stream")
	}
	idx := coords.VoxelIndex(coords.LocalVoxel{X: 1, Y: 1, Z: 1}, testChunkSize)
	rec := layer.Edits[idx]
	if rec.EditMode != ModeSet {
		t.Errorf("synthesized EditMode = %v, want Set", rec.EditMode)
	}
	if rec.BrushMaterialID != 7 {
		t.Errorf("synthesized BrushMaterialID = %d, want new_data.MaterialID (7)", rec.BrushMaterialID)
	}
}
