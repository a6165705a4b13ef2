package collision

import (
	"fmt"
	"sort"
	"sync"

	"github.com/draquel/voxelterrain/coords"
	"github.com/draquel/voxelterrain/enginelog"
	"github.com/draquel/voxelterrain/meshing"
	"github.com/go-gl/mathgl/mgl32"
)

// Manager decides which loaded chunks need a collision body, cooks them
// through a host-provided Cooker, and tears them down as chunks fall out of
// range, unload, or get edited. Grounded on
// VoxelCollisionManager.h's full method surface.
type Manager struct {
	logger enginelog.Logger
	cfg    Config
	chunks MeshSource
	cooker Cooker

	mu          sync.Mutex
	initialized bool

	frame            int64
	initialLoadPhase bool
	lastViewerPos    mgl32.Vec3
	hasLastViewerPos bool

	collisionData    map[coords.ChunkCoord]*chunkCollisionRecord
	cookQueue        []cookRequest
	cookQueueIndex   map[coords.ChunkCoord]int // index into cookQueue, for priority bump/dedup
	currentlyCooking map[coords.ChunkCoord]bool
	dirty            map[coords.ChunkCoord]bool

	totalGenerated int64
	totalRemoved   int64

	onReady   []OnCollisionReady
	onRemoved []OnCollisionRemoved

	// pendingRemovedEvents stages removeCollision's onRemoved firings while
	// a caller (Update) still holds m.mu; Update fires them only after
	// unlocking, so a subscriber reentering a locking Manager method can't
	// deadlock.
	pendingRemovedEvents []coords.ChunkCoord
}

// NewManager constructs a Manager. chunks and cooker must both be non-nil
// before Initialize is called.
func NewManager(cfg Config, chunks MeshSource, cooker Cooker, logger enginelog.Logger) *Manager {
	if logger == nil {
		logger = enginelog.NewNopLogger()
	}
	return &Manager{
		logger: logger,
		cfg:    cfg,
		chunks: chunks,
		cooker: cooker,
		dirty:  make(map[coords.ChunkCoord]bool),
	}
}

func (m *Manager) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.chunks == nil || m.cooker == nil {
		return fmt.Errorf("collision: Initialize called without a chunk source and cooker")
	}
	m.collisionData = make(map[coords.ChunkCoord]*chunkCollisionRecord)
	m.cookQueue = nil
	m.cookQueueIndex = make(map[coords.ChunkCoord]int)
	m.currentlyCooking = make(map[coords.ChunkCoord]bool)
	m.dirty = make(map[coords.ChunkCoord]bool)
	m.initialLoadPhase = true
	m.hasLastViewerPos = false
	m.frame = 0
	m.initialized = true
	return nil
}

// Shutdown releases every outstanding cooked handle and resets the manager
// to an uninitialized state.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.collisionData {
		if rec.handle != nil {
			m.cooker.Release(rec.handle)
		}
	}
	m.collisionData = nil
	m.cookQueue = nil
	m.cookQueueIndex = nil
	m.currentlyCooking = nil
	m.dirty = nil
	m.initialized = false
}

func (m *Manager) IsInitialized() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initialized
}

// Update is the tick entry point, grounded on
// UVoxelCollisionManager::Update. Expensive decision scans run every
// UpdateIntervalFrames frames, except during the initial-load phase (before
// at least one collision has ever been cooked), where they run every frame;
// a viewer displacement past ViewerMoveThreshold also forces an
// out-of-cadence refresh. Dirty-chunk processing and cook-queue draining run
// unconditionally every tick.
//
// Update holds m.mu only for its bookkeeping phases. Dispatching cooks to
// the Cooker happens after the lock is released: a synchronous Cooker
// implementation invokes its completion callback inline, and that callback
// (onCookComplete) re-acquires m.mu — since sync.Mutex is not reentrant,
// calling Cook while still holding the lock would deadlock against such a
// Cooker.
func (m *Manager) Update(viewerPos mgl32.Vec3, dt float64) {
	m.mu.Lock()
	if !m.initialized {
		m.mu.Unlock()
		m.logger.Warnf("collision: Update called before Initialize")
		return
	}
	m.frame++

	periodic := m.cfg.UpdateIntervalFrames <= 0 || m.frame%int64(m.cfg.UpdateIntervalFrames) == 0
	moved := !m.hasLastViewerPos || viewerPos.Sub(m.lastViewerPos).Len() > m.cfg.ViewerMoveThreshold

	if periodic || m.initialLoadPhase || moved {
		m.updateCollisionDecisions(viewerPos)
		m.lastViewerPos = viewerPos
		m.hasLastViewerPos = true
	}
	m.processDirtyChunks(viewerPos)
	dispatch := m.drainCookQueue()
	removed := m.pendingRemovedEvents
	m.pendingRemovedEvents = nil
	m.mu.Unlock()

	for _, c := range removed {
		for _, cb := range m.onRemoved {
			cb(c)
		}
	}
	m.dispatchCooks(dispatch)
}

// updateCollisionDecisions scans every currently loaded chunk and requests
// or removes its collider based on distance to viewerPos, and removes
// colliders for chunks the chunk manager no longer reports loaded.
func (m *Manager) updateCollisionDecisions(viewerPos mgl32.Vec3) {
	loaded := make(map[coords.ChunkCoord]bool)
	for _, c := range m.chunks.GetLoadedChunks() {
		loaded[c] = true
		center := coords.ChunkToWorldCenter(c, m.cfg.ChunkSize, m.cfg.VoxelSize)
		dist := viewerPos.Sub(center).Len()
		rec, exists := m.collisionData[c]

		needsCollision := dist <= m.cfg.CollisionRadius
		if needsCollision {
			if !exists {
				m.enqueueCook(c, m.cfg.CollisionRadius-dist)
			} else {
				rec.lastDistance = dist
			}
			continue
		}
		if exists {
			m.removeCollision(c)
		} else {
			// Not cooked yet, but may still be sitting in cookQueue from a
			// prior scan where it was in range; drop it before it wastes a
			// cook slot on a chunk now outside CollisionRadius.
			m.dequeueCook(c)
		}
	}
	for c := range m.collisionData {
		if !loaded[c] {
			m.removeCollision(c)
		}
	}
}

// processDirtyChunks re-cooks every chunk marked dirty since the last tick,
// releasing its prior component first and enqueuing the cook with a
// priority boost, matching §4.7's dirty-regeneration path.
func (m *Manager) processDirtyChunks(viewerPos mgl32.Vec3) {
	if len(m.dirty) == 0 {
		return
	}
	for c := range m.dirty {
		delete(m.dirty, c)
		if !m.chunks.IsChunkLoaded(c) {
			continue
		}
		center := coords.ChunkToWorldCenter(c, m.cfg.ChunkSize, m.cfg.VoxelSize)
		dist := viewerPos.Sub(center).Len()
		if dist > m.cfg.CollisionRadius {
			continue
		}
		if rec, ok := m.collisionData[c]; ok && rec.handle != nil {
			m.cooker.Release(rec.handle)
			rec.handle = nil
		}
		priority := (m.cfg.CollisionRadius - dist) + m.cfg.DirtyPriorityBoost
		m.enqueueCook(c, priority)
	}
}

// enqueueCook adds coord to the cook queue, or bumps its priority upward if
// it is already queued (deduplication, matching chunkmanager's neighbor
// remesh dedup shape).
func (m *Manager) enqueueCook(coord coords.ChunkCoord, priority float32) {
	if idx, ok := m.cookQueueIndex[coord]; ok {
		if priority > m.cookQueue[idx].priority {
			m.cookQueue[idx].priority = priority
		}
		return
	}
	m.cookQueue = append(m.cookQueue, cookRequest{coord: coord, lodLevel: m.cfg.CollisionLODLevel, priority: priority})
	m.cookQueueIndex[coord] = len(m.cookQueue) - 1
}

// dequeueCook removes coord from the cook queue if present and not yet
// dispatched. A no-op if coord isn't queued.
func (m *Manager) dequeueCook(coord coords.ChunkCoord) {
	idx, ok := m.cookQueueIndex[coord]
	if !ok {
		return
	}
	m.cookQueue = append(m.cookQueue[:idx], m.cookQueue[idx+1:]...)
	delete(m.cookQueueIndex, coord)
	m.rebuildCookQueueIndex()
}

// cookDispatch is a fully-prepared cook ready to hand to the Cooker outside
// the lock.
type cookDispatch struct {
	coord    coords.ChunkCoord
	lodLevel int32
	mesh     meshing.ChunkMeshData
}

// drainCookQueue dequeues up to MaxCooksPerFrame highest-priority requests,
// bounded by MaxConcurrentCooks outstanding cooks, and returns them ready to
// dispatch. A chunk with no mesh yet (not meshed, or an empty mesh) is
// silently dropped — per §7's Inconsistency category, not logged above
// Verbose. Caller must hold m.mu.
func (m *Manager) drainCookQueue() []cookDispatch {
	if len(m.cookQueue) == 0 {
		return nil
	}
	sort.SliceStable(m.cookQueue, func(i, j int) bool {
		return m.cookQueue[i].priority > m.cookQueue[j].priority
	})

	var dispatch []cookDispatch
	processed := 0
	remaining := m.cookQueue[:0]
	for i, req := range m.cookQueue {
		if processed >= m.cfg.MaxCooksPerFrame || len(m.currentlyCooking) >= m.cfg.MaxConcurrentCooks {
			remaining = append(remaining, m.cookQueue[i:]...)
			break
		}
		delete(m.cookQueueIndex, req.coord)

		mesh, ok := m.chunks.GetChunkCollisionMesh(req.coord, req.lodLevel)
		if !ok || len(mesh.Positions) == 0 || len(mesh.Indices) == 0 {
			continue
		}

		m.currentlyCooking[req.coord] = true
		processed++
		dispatch = append(dispatch, cookDispatch{coord: req.coord, lodLevel: req.lodLevel, mesh: mesh})
	}
	m.cookQueue = remaining
	m.rebuildCookQueueIndex()
	return dispatch
}

// dispatchCooks calls the Cooker for each prepared request. Must be called
// without m.mu held.
func (m *Manager) dispatchCooks(dispatch []cookDispatch) {
	for _, d := range dispatch {
		coord := d.coord
		lodLevel := d.lodLevel
		cookReq := CookRequest{
			ChunkCoord: coord,
			StableName: fmt.Sprintf("chunk_collision_%d", coords.PackedID(coord, lodLevel)),
			Mesh:       d.mesh,
		}
		m.cooker.Cook(cookReq, func(handle any, ok bool) {
			m.onCookComplete(coord, lodLevel, handle, ok)
		})
	}
}

func (m *Manager) rebuildCookQueueIndex() {
	for i, req := range m.cookQueue {
		m.cookQueueIndex[req.coord] = i
	}
}

// onCookComplete is the Cooker callback. It may be invoked from the tick
// goroutine (a synchronous test fake) or from another goroutine (a real
// async physics engine), so it takes the lock itself rather than assuming
// the caller already holds it. The onReady callback fires only after the
// lock is released, so a subscriber that reenters a locking Manager method
// can't deadlock against it.
func (m *Manager) onCookComplete(coord coords.ChunkCoord, lodLevel int32, handle any, ok bool) {
	m.mu.Lock()
	delete(m.currentlyCooking, coord)
	if !ok {
		m.logger.Warnf("collision: cook failed for chunk %v", coord)
		m.mu.Unlock()
		return
	}
	rec, exists := m.collisionData[coord]
	if !exists {
		rec = &chunkCollisionRecord{}
		m.collisionData[coord] = rec
	} else if rec.handle != nil && rec.handle != handle {
		// Overwriting a handle from a prior cook of this chunk; release it
		// rather than leaking it.
		m.cooker.Release(rec.handle)
	}
	rec.handle = handle
	rec.lodLevel = lodLevel
	m.totalGenerated++
	m.initialLoadPhase = false
	m.mu.Unlock()

	for _, cb := range m.onReady {
		cb(coord)
	}
}

// removeCollision releases coord's cooked handle (if any) and drops its
// bookkeeping entirely. Caller must hold m.mu; the onRemoved callback fires
// later, from Update, once the lock is released (see pendingRemovedEvents).
func (m *Manager) removeCollision(coord coords.ChunkCoord) {
	rec, ok := m.collisionData[coord]
	if !ok {
		return
	}
	if rec.handle != nil {
		m.cooker.Release(rec.handle)
	}
	delete(m.collisionData, coord)
	m.totalRemoved++
	m.pendingRemovedEvents = append(m.pendingRemovedEvents, coord)
}

// MarkChunkDirty flags coord for priority re-cooking on the next Update,
// matching the donor's edit-driven invalidation path.
func (m *Manager) MarkChunkDirty(coord coords.ChunkCoord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dirty == nil {
		// Not yet Initialize'd (or already Shutdown) — a host may wire this
		// as an edit-overlay subscriber before bringing collision up, or
		// collision generation may simply be disabled for this run.
		return
	}
	m.dirty[coord] = true
}

// RegenerateChunkCollision forces an immediate re-cook of coord, bypassing
// MaxCooksPerFrame's per-tick cap — used when a caller needs a single
// chunk's collider refreshed right now rather than on its next scheduled
// tick.
func (m *Manager) RegenerateChunkCollision(coord coords.ChunkCoord) {
	m.mu.Lock()
	if !m.chunks.IsChunkLoaded(coord) {
		m.mu.Unlock()
		return
	}
	if m.currentlyCooking[coord] {
		// A cook is already in flight (from the normal drainCookQueue path or
		// a prior RegenerateChunkCollision call); its own onCookComplete will
		// pick up the chunk's current mesh, so there's nothing more to do.
		m.mu.Unlock()
		return
	}
	if rec, ok := m.collisionData[coord]; ok && rec.handle != nil {
		m.cooker.Release(rec.handle)
		rec.handle = nil
	}
	lodLevel := m.cfg.CollisionLODLevel
	m.currentlyCooking[coord] = true
	m.mu.Unlock()

	mesh, ok := m.chunks.GetChunkCollisionMesh(coord, lodLevel)
	if !ok || len(mesh.Positions) == 0 || len(mesh.Indices) == 0 {
		m.mu.Lock()
		delete(m.currentlyCooking, coord)
		m.mu.Unlock()
		return
	}
	cookReq := CookRequest{
		ChunkCoord: coord,
		StableName: fmt.Sprintf("chunk_collision_%d", coords.PackedID(coord, lodLevel)),
		Mesh:       mesh,
	}
	m.cooker.Cook(cookReq, func(handle any, ok bool) {
		m.onCookComplete(coord, lodLevel, handle, ok)
	})
}

func (m *Manager) HasCollision(coord coords.ChunkCoord) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.collisionData[coord]
	return ok && rec.ready()
}

func (m *Manager) GetCollisionHandle(coord coords.ChunkCoord) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.collisionData[coord]
	if !ok || !rec.ready() {
		return nil, false
	}
	return rec.handle, true
}

func (m *Manager) GetCollisionChunkCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.collisionData)
}

func (m *Manager) GetCookingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.currentlyCooking)
}

func (m *Manager) GetCookQueueCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.cookQueue)
}

func (m *Manager) SetCollisionRadius(radius float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg.CollisionRadius = radius
}

func (m *Manager) GetCollisionRadius() float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg.CollisionRadius
}

func (m *Manager) SetCollisionLODLevel(level int32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg.CollisionLODLevel = level
}

func (m *Manager) GetCollisionLODLevel() int32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg.CollisionLODLevel
}

func (m *Manager) SubscribeCollisionReady(cb OnCollisionReady) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onReady = append(m.onReady, cb)
}

func (m *Manager) SubscribeCollisionRemoved(cb OnCollisionRemoved) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onRemoved = append(m.onRemoved, cb)
}

func (m *Manager) GetDebugStats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{
		CollisionChunkCount:      len(m.collisionData),
		CookingCount:             len(m.currentlyCooking),
		CookQueueCount:           len(m.cookQueue),
		TotalCollisionsGenerated: m.totalGenerated,
		TotalCollisionsRemoved:   m.totalRemoved,
	}
}
