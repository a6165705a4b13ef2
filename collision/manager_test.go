package collision

import (
	"testing"
	"time"

	"github.com/draquel/voxelterrain/coords"
	"github.com/draquel/voxelterrain/enginelog"
	"github.com/draquel/voxelterrain/meshing"
	"github.com/go-gl/mathgl/mgl32"
)

// fakeChunks is a MeshSource a test can control directly: every chunk it
// lists as loaded is assumed meshed (GetChunkCollisionMesh always returns a
// trivial triangle) unless explicitly marked empty.
type fakeChunks struct {
	loaded []coords.ChunkCoord
	empty  map[coords.ChunkCoord]bool
}

func (f *fakeChunks) GetLoadedChunks() []coords.ChunkCoord { return f.loaded }
func (f *fakeChunks) IsChunkLoaded(c coords.ChunkCoord) bool {
	for _, l := range f.loaded {
		if l == c {
			return true
		}
	}
	return false
}
func (f *fakeChunks) GetChunkCollisionMesh(c coords.ChunkCoord, lodLevel int32) (meshing.ChunkMeshData, bool) {
	if f.empty != nil && f.empty[c] {
		return meshing.ChunkMeshData{}, false
	}
	var m meshing.ChunkMeshData
	m.Positions = append(m.Positions, mgl32.Vec3{0, 0, 0})
	m.Indices = append(m.Indices, 0, 0, 0)
	return m, true
}

// fakeCooker always succeeds synchronously, handing back the chunk
// coordinate itself as the handle.
type fakeCooker struct {
	cookCount    int
	releaseCount int
}

func (c *fakeCooker) Cook(req CookRequest, onComplete CookCallback) {
	c.cookCount++
	onComplete(req.ChunkCoord, true)
}
func (c *fakeCooker) Release(handle any) { c.releaseCount++ }

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.ChunkSize = 1
	cfg.VoxelSize = 1
	cfg.CollisionRadius = 100
	cfg.MaxCooksPerFrame = 8
	cfg.MaxConcurrentCooks = 8
	return cfg
}

func newTestManager(t *testing.T, cfg Config, chunks *fakeChunks, cooker *fakeCooker) *Manager {
	t.Helper()
	mgr := NewManager(cfg, chunks, cooker, enginelog.NewNopLogger())
	if err := mgr.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return mgr
}

// A chunk within radius gets a cook request enqueued and reaches
// HasCollision true after one Update.
func TestManager_LoadedChunkWithinRadiusGetsCollision(t *testing.T) {
	coord := coords.ChunkCoord{X: 0, Y: 0, Z: 0} // center at (0.5, 0.5, 0.5)
	chunks := &fakeChunks{loaded: []coords.ChunkCoord{coord}}
	cooker := &fakeCooker{}
	mgr := newTestManager(t, testConfig(), chunks, cooker)

	mgr.Update(mgl32.Vec3{0, 0, 0}, 0.016)

	if !mgr.HasCollision(coord) {
		t.Fatalf("expected chunk to have collision after one Update")
	}
	stats := mgr.GetDebugStats()
	if stats.TotalCollisionsGenerated != 1 {
		t.Fatalf("expected 1 collision generated, got %d", stats.TotalCollisionsGenerated)
	}
}

// The decision rule's distance test is inclusive: a chunk whose center is
// exactly at the collision radius is treated as within range and gets a
// cook request. §8's crossover scenario additionally depends on the tick
// cadence (below) rather than on the comparison itself excluding the
// boundary.
func TestManager_BoundaryDistanceIsInclusive(t *testing.T) {
	cfg := testConfig()
	cfg.CollisionRadius = 10
	coord := coords.ChunkCoord{X: 0, Y: 0, Z: 0} // center (0.5, 0.5, 0.5)
	chunks := &fakeChunks{loaded: []coords.ChunkCoord{coord}}
	cooker := &fakeCooker{}
	mgr := newTestManager(t, cfg, chunks, cooker)

	center := coords.ChunkToWorldCenter(coord, cfg.ChunkSize, cfg.VoxelSize)
	viewerAtExactRadius := center.Add(mgl32.Vec3{cfg.CollisionRadius, 0, 0})

	mgr.updateCollisionDecisions(viewerAtExactRadius)

	if mgr.GetCookQueueCount() != 1 {
		t.Fatalf("expected exactly-at-radius distance to enqueue a cook, queue=%d", mgr.GetCookQueueCount())
	}
}

// §8 Collision radius crossover: off-cadence ticks (not a periodic frame,
// not the initial-load phase, viewer displacement under the move
// threshold) run no decision scan at all, so a chunk crossing into range
// between two such ticks produces no cook request until a tick that
// actually triggers the scan — whether because of the frame cadence or
// because the viewer finally moved past the threshold.
func TestManager_TickGatingDelaysDecisionRefresh(t *testing.T) {
	cfg := testConfig()
	cfg.CollisionRadius = 1000
	cfg.UpdateIntervalFrames = 100 // effectively never fires on cadence alone in this test
	cfg.ViewerMoveThreshold = 5

	coord := coords.ChunkCoord{X: 0, Y: 0, Z: 0}
	chunks := &fakeChunks{loaded: []coords.ChunkCoord{coord}}
	cooker := &fakeCooker{}
	mgr := newTestManager(t, cfg, chunks, cooker)

	// First Update establishes a baseline viewer position and (being the
	// initial-load phase) performs a scan; the chunk is already within the
	// generous radius, so it cooks immediately here.
	mgr.Update(mgl32.Vec3{0, 0, 0}, 0.016)
	if !mgr.HasCollision(coord) {
		t.Fatalf("expected initial-load-phase scan to cook the in-range chunk")
	}
	cookedAfterFirst := cooker.cookCount

	// A second Update with a displacement under the move threshold and off
	// the frame cadence must not re-scan (no new cook, no redundant work).
	mgr.Update(mgl32.Vec3{1, 0, 0}, 0.016)
	if cooker.cookCount != cookedAfterFirst {
		t.Fatalf("expected no re-scan on an off-cadence, under-threshold tick, cookCount=%d", cooker.cookCount)
	}

	// A third Update displacing past the threshold forces a refresh even
	// off-cadence; the already-cooked chunk is simply left alone (no
	// redundant cook, since HasCollision is already true).
	mgr.Update(mgl32.Vec3{10, 0, 0}, 0.016)
	if !mgr.HasCollision(coord) {
		t.Fatalf("expected chunk to remain collision-active across the threshold-triggered refresh")
	}
}

// A chunk whose loaded-chunk membership disappears (unloaded by the chunk
// manager) has its collision released on the next decision scan.
func TestManager_RemovesCollisionWhenChunkNoLongerLoaded(t *testing.T) {
	coord := coords.ChunkCoord{X: 0, Y: 0, Z: 0}
	chunks := &fakeChunks{loaded: []coords.ChunkCoord{coord}}
	cooker := &fakeCooker{}
	cfg := testConfig()
	cfg.UpdateIntervalFrames = 1 // the second Update below must run a decision scan
	mgr := newTestManager(t, cfg, chunks, cooker)

	mgr.Update(mgl32.Vec3{0, 0, 0}, 0.016)
	if !mgr.HasCollision(coord) {
		t.Fatalf("expected collision before unload")
	}

	chunks.loaded = nil
	mgr.Update(mgl32.Vec3{0, 0, 0}, 0.016)

	if mgr.HasCollision(coord) {
		t.Fatalf("expected collision removed once chunk manager stopped reporting the chunk loaded")
	}
	if cooker.releaseCount != 1 {
		t.Fatalf("expected exactly 1 release, got %d", cooker.releaseCount)
	}
}

// Marking a chunk dirty re-cooks it with a priority boost of
// DirtyPriorityBoost over the distance-only baseline.
func TestManager_DirtyChunkGetsPriorityBoost(t *testing.T) {
	cfg := testConfig()
	cfg.MaxCooksPerFrame = 0 // freeze the cook queue so we can inspect priorities before they drain
	coord := coords.ChunkCoord{X: 0, Y: 0, Z: 0}
	chunks := &fakeChunks{loaded: []coords.ChunkCoord{coord}}
	cooker := &fakeCooker{}
	mgr := newTestManager(t, cfg, chunks, cooker)

	mgr.MarkChunkDirty(coord)
	mgr.Update(mgl32.Vec3{0, 0, 0}, 0.016)

	if len(mgr.cookQueue) != 1 {
		t.Fatalf("expected 1 queued cook request, got %d", len(mgr.cookQueue))
	}
	dist := mgl32.Vec3{0, 0, 0}.Sub(coords.ChunkToWorldCenter(coord, cfg.ChunkSize, cfg.VoxelSize)).Len()
	expected := (cfg.CollisionRadius - dist) + cfg.DirtyPriorityBoost
	got := mgr.cookQueue[0].priority
	if got < expected-0.01 || got > expected+0.01 {
		t.Fatalf("expected dirty priority ~%f, got %f", expected, got)
	}
}

// MarkChunkDirty must not panic when called before Initialize (or after
// Shutdown) — a host wiring it as an edit-overlay subscriber during setup,
// or when collision generation is disabled entirely, should see a no-op.
func TestManager_MarkChunkDirtyBeforeInitializeIsNoOp(t *testing.T) {
	coord := coords.ChunkCoord{X: 0, Y: 0, Z: 0}
	chunks := &fakeChunks{loaded: []coords.ChunkCoord{coord}}
	cooker := &fakeCooker{}
	mgr := NewManager(testConfig(), chunks, cooker, enginelog.NewNopLogger())

	mgr.MarkChunkDirty(coord) // must not panic
}

// MaxCooksPerFrame throttles how many requests drain from the queue on a
// single Update.
func TestManager_MaxCooksPerFrameThrottle(t *testing.T) {
	cfg := testConfig()
	cfg.MaxCooksPerFrame = 1
	cfg.CollisionRadius = 1000

	var coordsList []coords.ChunkCoord
	for i := int32(0); i < 3; i++ {
		coordsList = append(coordsList, coords.ChunkCoord{X: i, Y: 0, Z: 0})
	}
	chunks := &fakeChunks{loaded: coordsList}
	cooker := &fakeCooker{}
	mgr := newTestManager(t, cfg, chunks, cooker)

	mgr.Update(mgl32.Vec3{0, 0, 0}, 0.016)
	if cooker.cookCount != 1 {
		t.Fatalf("expected exactly 1 cook on the first tick, got %d", cooker.cookCount)
	}

	mgr.Update(mgl32.Vec3{0, 0, 0}, 0.016)
	if cooker.cookCount != 2 {
		t.Fatalf("expected a second cook to drain on the next tick, got %d", cooker.cookCount)
	}
}

// An OnCollisionReady subscriber that reenters a locking Manager method
// (fired via a synchronous Cooker, so onCookComplete runs inline from
// Update) must not deadlock.
func TestManager_OnReadySubscriberDoesNotDeadlockOnReentry(t *testing.T) {
	coord := coords.ChunkCoord{X: 0, Y: 0, Z: 0}
	chunks := &fakeChunks{loaded: []coords.ChunkCoord{coord}}
	cooker := &fakeCooker{}
	mgr := newTestManager(t, testConfig(), chunks, cooker)

	called := false
	mgr.SubscribeCollisionReady(func(c coords.ChunkCoord) {
		called = true
		mgr.HasCollision(c) // reenters Manager; would deadlock if still locked here
	})

	done := make(chan struct{})
	go func() {
		mgr.Update(mgl32.Vec3{0, 0, 0}, 0.016)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Update did not return; OnCollisionReady reentry deadlocked")
	}
	if !called {
		t.Fatalf("expected OnCollisionReady subscriber to fire")
	}
}

// An OnCollisionRemoved subscriber that reenters a locking Manager method
// must not deadlock either, even though removeCollision runs from inside
// Update's own locked section (via updateCollisionDecisions).
func TestManager_OnRemovedSubscriberDoesNotDeadlockOnReentry(t *testing.T) {
	cfg := testConfig()
	cfg.UpdateIntervalFrames = 1 // force a decision scan on every tick, not just the initial-load one
	coord := coords.ChunkCoord{X: 0, Y: 0, Z: 0}
	chunks := &fakeChunks{loaded: []coords.ChunkCoord{coord}}
	cooker := &fakeCooker{}
	mgr := newTestManager(t, cfg, chunks, cooker)

	// First tick cooks the chunk; second tick, with the chunk no longer
	// loaded, removes its collision and fires OnCollisionRemoved.
	mgr.Update(mgl32.Vec3{0, 0, 0}, 0.016)
	chunks.loaded = nil

	called := false
	mgr.SubscribeCollisionRemoved(func(c coords.ChunkCoord) {
		called = true
		mgr.HasCollision(c) // reenters Manager; would deadlock if still locked here
	})

	done := make(chan struct{})
	go func() {
		mgr.Update(mgl32.Vec3{0, 0, 0}, 0.016)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Update did not return; OnCollisionRemoved reentry deadlocked")
	}
	if !called {
		t.Fatalf("expected OnCollisionRemoved subscriber to fire")
	}
}

// RegenerateChunkCollision must not dispatch a second, redundant cook for a
// chunk that already has one in flight (whether started by the normal
// drainCookQueue path or a prior RegenerateChunkCollision call) — it should
// defer to the in-flight cook's own onCookComplete instead.
func TestManager_RegenerateSkipsWhenAlreadyCooking(t *testing.T) {
	coord := coords.ChunkCoord{X: 0, Y: 0, Z: 0}
	chunks := &fakeChunks{loaded: []coords.ChunkCoord{coord}}
	cooker := &fakeCooker{}
	mgr := newTestManager(t, testConfig(), chunks, cooker)

	mgr.mu.Lock()
	mgr.currentlyCooking[coord] = true
	mgr.mu.Unlock()

	mgr.RegenerateChunkCollision(coord)

	if cooker.cookCount != 0 {
		t.Fatalf("expected RegenerateChunkCollision to skip dispatch while a cook is already in flight, got %d cooks", cooker.cookCount)
	}
}

// A chunk that enters CollisionRadius (enqueued) and then leaves it again
// before its cook is dispatched must be dropped from the cook queue, not
// left to cook later for a chunk that's no longer in range.
func TestManager_OutOfRangeBeforeDispatchDequeuesCook(t *testing.T) {
	cfg := testConfig()
	cfg.CollisionRadius = 10
	coord := coords.ChunkCoord{X: 0, Y: 0, Z: 0}
	chunks := &fakeChunks{loaded: []coords.ChunkCoord{coord}}
	cooker := &fakeCooker{}
	mgr := newTestManager(t, cfg, chunks, cooker)

	center := coords.ChunkToWorldCenter(coord, cfg.ChunkSize, cfg.VoxelSize)
	near := center.Add(mgl32.Vec3{5, 0, 0})
	far := center.Add(mgl32.Vec3{1000, 0, 0})

	mgr.updateCollisionDecisions(near)
	if mgr.GetCookQueueCount() != 1 {
		t.Fatalf("expected the in-range scan to enqueue a cook, queue=%d", mgr.GetCookQueueCount())
	}

	mgr.updateCollisionDecisions(far)
	if mgr.GetCookQueueCount() != 0 {
		t.Fatalf("expected the out-of-range scan to dequeue the stale cook, queue=%d", mgr.GetCookQueueCount())
	}
}

// onCookComplete must release a handle it is about to overwrite rather than
// leaking it, when a chunk is re-cooked (e.g. via RegenerateChunkCollision)
// after already holding a handle from a prior cook.
func TestManager_OnCookCompleteReleasesSupersededHandle(t *testing.T) {
	coord := coords.ChunkCoord{X: 0, Y: 0, Z: 0}
	chunks := &fakeChunks{loaded: []coords.ChunkCoord{coord}}
	cooker := &fakeCooker{}
	mgr := newTestManager(t, testConfig(), chunks, cooker)

	mgr.onCookComplete(coord, 0, "first-handle", true)
	mgr.onCookComplete(coord, 0, "second-handle", true)

	if cooker.releaseCount != 1 {
		t.Fatalf("expected the superseded handle to be released exactly once, got %d releases", cooker.releaseCount)
	}
	handle, ok := mgr.GetCollisionHandle(coord)
	if !ok || handle != "second-handle" {
		t.Fatalf("expected current handle to be the latest cook's handle, got %v ok=%v", handle, ok)
	}
}
