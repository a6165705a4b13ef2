package chunkmanager

import (
	"testing"
	"time"

	"github.com/draquel/voxelterrain/coords"
	"github.com/draquel/voxelterrain/enginelog"
	"github.com/draquel/voxelterrain/lod"
	"github.com/draquel/voxelterrain/meshing"
	"github.com/draquel/voxelterrain/noise"
	"github.com/draquel/voxelterrain/renderer"
	"github.com/draquel/voxelterrain/voxel"
	"github.com/go-gl/mathgl/mgl32"
)

// fakeStrategy lets a test script exactly which chunks to load/unload on
// the next Tick; every other Strategy method is a harmless stub.
type fakeStrategy struct {
	toLoad   []lod.ChunkLODRequest
	toUnload []coords.ChunkCoord
}

func (s *fakeStrategy) LODForChunk(coords.ChunkCoord, lod.QueryContext) int32        { return 0 }
func (s *fakeStrategy) MorphFactorFor(coords.ChunkCoord, lod.QueryContext) float32   { return 0 }
func (s *fakeStrategy) VisibleChunks(lod.QueryContext) []lod.ChunkLODRequest        { return nil }
func (s *fakeStrategy) Update(lod.QueryContext, float64)                            {}
func (s *fakeStrategy) ChunksToLoad(map[coords.ChunkCoord]bool, lod.QueryContext) []lod.ChunkLODRequest {
	out := s.toLoad
	s.toLoad = nil
	return out
}
func (s *fakeStrategy) ChunksToUnload(map[coords.ChunkCoord]bool, lod.QueryContext) []coords.ChunkCoord {
	out := s.toUnload
	s.toUnload = nil
	return out
}

// fakeNoise generates a chunk of uniform air so tests don't depend on any
// particular terrain shape.
type fakeNoise struct{}

func (fakeNoise) Initialize() error { return nil }
func (fakeNoise) Shutdown()         {}
func (fakeNoise) GenerateChunk(req noise.Request) ([]voxel.Voxel, bool) {
	if req.ChunkSize <= 0 {
		return nil, false
	}
	n := int(req.ChunkSize)
	voxels := make([]voxel.Voxel, n*n*n)
	for i := range voxels {
		voxels[i] = voxel.Air()
	}
	return voxels, true
}

// fakeMesher always succeeds with a trivial single-triangle mesh.
type fakeMesher struct{ cfg meshing.Config }

func (f *fakeMesher) Initialize() error { return nil }
func (f *fakeMesher) Shutdown()         {}
func (f *fakeMesher) GenerateMesh(req *meshing.Request) (meshing.ChunkMeshData, meshing.Stats, bool) {
	var m meshing.ChunkMeshData
	m.Positions = append(m.Positions, mgl32.Vec3{0, 0, 0})
	m.Normals = append(m.Normals, mgl32.Vec3{0, 1, 0})
	m.Indices = append(m.Indices, 0, 0, 0)
	return m, meshing.Stats{VertexCount: 1, IndexCount: 3}, true
}
func (f *fakeMesher) SetConfig(cfg meshing.Config) { f.cfg = cfg }
func (f *fakeMesher) GetConfig() meshing.Config     { return f.cfg }

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.ChunkSize = 4
	cfg.StreamingTimeSliceMS = 1000 // generous budget so tests aren't racing the wall clock
	cfg.MaxChunksToLoadPerFrame = 8
	cfg.MaxChunksToUnloadPerFrame = 8
	return cfg
}

func testQueryContext() lod.QueryContext {
	return lod.QueryContext{
		MaxChunksToLoadPerFrame:   8,
		MaxChunksToUnloadPerFrame: 8,
		TimeSliceMS:               1000,
	}
}

func newTestManager(t *testing.T, cfg Config) (*Manager, *fakeStrategy) {
	t.Helper()
	strategy := &fakeStrategy{}
	mgr := NewManager(cfg, strategy, fakeNoise{}, &fakeMesher{}, renderer.NewNullRenderer(enginelog.NewNopLogger()), enginelog.NewNopLogger())
	if err := mgr.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return mgr, strategy
}

// Scenario 1 (empty world, single-chunk load): with the synchronous
// (WorkerCount=0) pipeline and generous per-frame budgets, a single
// requested chunk reaches Loaded within one Tick — generation and meshing
// both complete inline rather than spreading across frames as they would
// with the optional worker pool wired.
func TestManager_SingleChunkLoadReachesLoadedInOneTick(t *testing.T) {
	mgr, strategy := newTestManager(t, testConfig())
	coord := coords.ChunkCoord{X: 0, Y: 0, Z: 0}
	strategy.toLoad = []lod.ChunkLODRequest{{ChunkCoord: coord, LODLevel: 0, Priority: 1}}

	mgr.Tick(testQueryContext(), 0.016)

	state, ok := mgr.GetChunkState(coord)
	if !ok || state != StateLoaded {
		t.Fatalf("expected coord loaded after one tick, got state=%v ok=%v", state, ok)
	}
	if !mgr.IsChunkLoaded(coord) {
		t.Fatalf("IsChunkLoaded false for a Loaded chunk")
	}
	stats := mgr.GetDebugStats()
	if stats.TotalChunksGenerated != 1 || stats.TotalChunksMeshed != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

// With a worker pool wired, generation is asynchronous: the chunk is still
// Generating (not yet meshed) on the tick it was requested, and only
// reaches Loaded once a later tick drains the pool's result.
func TestManager_WorkerPoolGenerationIsAsynchronous(t *testing.T) {
	cfg := testConfig()
	cfg.WorkerCount = 2
	mgr, strategy := newTestManager(t, cfg)
	coord := coords.ChunkCoord{X: 5, Y: 0, Z: 0}
	strategy.toLoad = []lod.ChunkLODRequest{{ChunkCoord: coord, LODLevel: 0, Priority: 1}}

	mgr.Tick(testQueryContext(), 0.016)
	state, _ := mgr.GetChunkState(coord)
	if state == StateLoaded {
		t.Fatalf("expected coord not yet loaded on the submitting tick, got %v", state)
	}

	// Drain across a handful of ticks; the background worker finishes almost
	// immediately for this trivial fake generator.
	for i := 0; i < 10 && !mgr.IsChunkLoaded(coord); i++ {
		mgr.Tick(testQueryContext(), 0.016)
	}
	if !mgr.IsChunkLoaded(coord) {
		t.Fatalf("coord never reached Loaded via the worker pool")
	}
	mgr.Shutdown()
}

// Neighbor-coherence invariant: once a chunk finishes generating, its
// already-Loaded neighbors are each re-queued for meshing exactly once.
func TestManager_NeighborRemeshOnGenerationCompletion(t *testing.T) {
	mgr, strategy := newTestManager(t, testConfig())
	a := coords.ChunkCoord{X: 0, Y: 0, Z: 0}
	b := coords.ChunkCoord{X: 1, Y: 0, Z: 0} // a face-adjacent neighbor of a

	strategy.toLoad = []lod.ChunkLODRequest{{ChunkCoord: a, LODLevel: 0, Priority: 1}}
	mgr.Tick(testQueryContext(), 0.016)
	if state, _ := mgr.GetChunkState(a); state != StateLoaded {
		t.Fatalf("chunk a not loaded after its own tick: %v", state)
	}

	strategy.toLoad = []lod.ChunkLODRequest{{ChunkCoord: b, LODLevel: 0, Priority: 1}}
	mgr.Tick(testQueryContext(), 0.016)

	if state, _ := mgr.GetChunkState(b); state != StateLoaded {
		t.Fatalf("chunk b not loaded after its own tick: %v", state)
	}
	if state, _ := mgr.GetChunkState(a); state != StateLoaded {
		t.Fatalf("chunk a (b's neighbor) not Loaded after b's remesh propagation: %v", state)
	}

	stats := mgr.GetDebugStats()
	// a meshed once on its own load, once more from b's neighbor remesh; b
	// meshed once on its own load.
	if stats.TotalChunksMeshed != 3 {
		t.Fatalf("expected 3 total meshes (a twice, b once), got %d", stats.TotalChunksMeshed)
	}
}

// Transition-face invariant: for every set bit in TransitionFaces, the
// corresponding NeighborLODLevels entry must be strictly coarser (a larger
// LOD level number) than the chunk's own LOD level.
func TestManager_BuildMeshingRequestSetsTransitionFaceForCoarserNeighbor(t *testing.T) {
	mgr, _ := newTestManager(t, testConfig())
	coord := coords.ChunkCoord{X: 0, Y: 0, Z: 0}
	neighbor := coords.ChunkCoord{X: 1, Y: 0, Z: 0} // +X / FaceEast neighbor

	ownLOD := int32(0)
	neighborLOD := int32(1) // coarser

	n := mgr.cfg.ChunkSize
	own := &chunkRecord{state: StatePendingMeshing, lodLevel: ownLOD, voxelData: make([]voxel.Voxel, n*n*n)}
	nbr := &chunkRecord{state: StateLoaded, lodLevel: neighborLOD, voxelData: make([]voxel.Voxel, n*n*n)}
	mgr.chunkStates[coord] = own
	mgr.chunkStates[neighbor] = nbr

	req := mgr.buildMeshingRequest(coord, ownLOD)

	if req.TransitionFaces&meshing.TransitionXPos == 0 {
		t.Fatalf("expected TransitionXPos bit set, flags=%b", req.TransitionFaces)
	}
	axis := meshing.FaceAxisIndex(coords.FaceEast)
	if req.NeighborLODLevels[axis] <= ownLOD {
		t.Fatalf("neighbor LOD level %d is not coarser than own %d", req.NeighborLODLevels[axis], ownLOD)
	}
}

// A subscriber calling back into another locking Manager method must not
// deadlock: Tick has to release its lock before firing OnChunkLoaded (and
// the other subscriber callbacks), the same hazard collision.Manager avoids
// around its Cooker calls.
func TestManager_SubscriberCallbackDoesNotDeadlockOnReentry(t *testing.T) {
	mgr, strategy := newTestManager(t, testConfig())
	coord := coords.ChunkCoord{X: 9, Y: 0, Z: 0}
	strategy.toLoad = []lod.ChunkLODRequest{{ChunkCoord: coord, LODLevel: 0, Priority: 1}}

	called := false
	mgr.SubscribeChunkLoaded(func(c coords.ChunkCoord, lodLevel int32) {
		called = true
		mgr.IsChunkLoaded(c) // reenters Manager; would deadlock if Tick still held m.mu here
	})

	done := make(chan struct{})
	go func() {
		mgr.Tick(testQueryContext(), 0.016)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Tick did not return; subscriber reentry deadlocked")
	}
	if !called {
		t.Fatalf("expected OnChunkLoaded subscriber to fire")
	}
}

// MaxLoadedChunks caps how many chunks the manager will admit into the
// streaming pipeline at once; once the cap is reached, further load
// requests from the strategy are held back rather than started anyway.
func TestManager_MaxLoadedChunksCapsResidentChunks(t *testing.T) {
	cfg := testConfig()
	cfg.MaxLoadedChunks = 1
	mgr, strategy := newTestManager(t, cfg)

	a := coords.ChunkCoord{X: 0, Y: 0, Z: 0}
	b := coords.ChunkCoord{X: 1, Y: 0, Z: 0}
	strategy.toLoad = []lod.ChunkLODRequest{
		{ChunkCoord: a, LODLevel: 0, Priority: 2},
		{ChunkCoord: b, LODLevel: 0, Priority: 1},
	}

	mgr.Tick(testQueryContext(), 0.016)

	if state, _ := mgr.GetChunkState(a); state != StateLoaded {
		t.Fatalf("expected a to load under the cap, state=%v", state)
	}
	if state, ok := mgr.GetChunkState(b); ok && state != StateUnloaded {
		t.Fatalf("expected b to be held back by MaxLoadedChunks=1, state=%v", state)
	}
	if mgr.GetTotalChunkCount() > 1 {
		t.Fatalf("expected at most 1 resident chunk under the cap, got %d", mgr.GetTotalChunkCount())
	}
}
