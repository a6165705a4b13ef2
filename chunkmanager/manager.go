package chunkmanager

import (
	"sort"
	"sync"
	"time"

	"github.com/draquel/voxelterrain/coords"
	"github.com/draquel/voxelterrain/editoverlay"
	"github.com/draquel/voxelterrain/enginelog"
	"github.com/draquel/voxelterrain/lod"
	"github.com/draquel/voxelterrain/meshing"
	"github.com/draquel/voxelterrain/noise"
	"github.com/draquel/voxelterrain/renderer"
	"github.com/draquel/voxelterrain/voxel"
	"github.com/go-gl/mathgl/mgl32"
)

// Manager is the streaming pipeline core. It is not safe to share across
// goroutines without relying on its own internal locking: Tick and every
// public accessor take the same mutex, matching the donor's
// mutex-guarded-map pattern for cross-thread chunk state rather than
// requiring every caller to coordinate externally.
type Manager struct {
	logger   enginelog.Logger
	cfg      Config
	strategy lod.Strategy
	noiseGen noise.Generator
	mesher   meshing.Mesher
	render   renderer.Renderer
	edits    EditLayerSource

	pool *workerPool

	mu               sync.Mutex
	initialized      bool
	streamingEnabled bool
	frame            int64

	chunkStates       map[coords.ChunkCoord]*chunkRecord
	loadedChunkCoords map[coords.ChunkCoord]bool

	generationQueue  []genRequest
	meshingQueue     []meshRequest
	pendingMeshQueue []pendingMesh
	unloadQueue      []coords.ChunkCoord

	totalGenerated int64
	totalMeshed    int64
	totalUnloaded  int64

	onGenerated []OnChunkGenerated
	onLoaded    []OnChunkLoaded
	onUnloaded  []OnChunkUnloaded

	// Subscriber-callback events raised during a locked Tick phase are
	// staged here and fired only after Tick releases m.mu — calling a
	// subscriber while still holding the lock would deadlock the moment
	// that subscriber calls back into any other locking Manager method,
	// the same hazard collision.Manager avoids around its Cooker calls.
	pendingGeneratedEvents []coords.ChunkCoord
	pendingLoadedEvents    []loadedEvent
	pendingUnloadedEvents  []coords.ChunkCoord
}

// NewManager constructs a Manager around its four collaborators. Call
// Initialize before ticking.
func NewManager(cfg Config, strategy lod.Strategy, noiseGen noise.Generator, mesher meshing.Mesher, render renderer.Renderer, logger enginelog.Logger) *Manager {
	return &Manager{
		logger:            enginelog.OrNop(logger),
		cfg:               cfg,
		strategy:          strategy,
		noiseGen:          noiseGen,
		mesher:            mesher,
		render:            render,
		chunkStates:       make(map[coords.ChunkCoord]*chunkRecord),
		loadedChunkCoords: make(map[coords.ChunkCoord]bool),
		streamingEnabled:  true,
	}
}

// SetEditOverlay wires the optional edit-overlay dependency used to merge
// committed edits into a chunk's voxel data at mesh time. Pass nil to mesh
// pure procedural data only.
func (m *Manager) SetEditOverlay(src EditLayerSource) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edits = src
}

// Initialize prepares the manager for ticking. If cfg.WorkerCount > 0 it
// starts the optional background worker pool (§4.6.1); WorkerCount 0 keeps
// generation and meshing synchronous and inline during Tick.
func (m *Manager) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cfg.WorkerCount > 0 {
		m.pool = newWorkerPool(m.noiseGen, m.cfg.WorkerCount, m.cfg.WorkerQueueDepth)
		m.pool.start()
	}
	if err := m.mesher.Initialize(); err != nil {
		return err
	}
	if err := m.noiseGen.Initialize(); err != nil {
		return err
	}
	if err := m.render.Initialize(); err != nil {
		return err
	}
	m.initialized = true
	m.streamingEnabled = true
	m.logger.Infof("chunkmanager: initialized (chunk_size=%d voxel_size=%.1f)", m.cfg.ChunkSize, m.cfg.VoxelSize)
	return nil
}

// Shutdown drains every queue, clears the renderer's chunks, stops the
// worker pool if running, and forgets all chunk state.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pool != nil {
		m.pool.stop()
		m.pool = nil
	}
	m.generationQueue = nil
	m.meshingQueue = nil
	m.pendingMeshQueue = nil
	m.unloadQueue = nil
	m.chunkStates = make(map[coords.ChunkCoord]*chunkRecord)
	m.loadedChunkCoords = make(map[coords.ChunkCoord]bool)
	m.render.ClearAllChunks()
	m.mesher.Shutdown()
	m.noiseGen.Shutdown()
	m.render.Shutdown()
	m.initialized = false
	m.logger.Infof("chunkmanager: shutdown (generated=%d meshed=%d unloaded=%d)", m.totalGenerated, m.totalMeshed, m.totalUnloaded)
}

func (m *Manager) IsInitialized() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initialized
}

// SetStreamingEnabled gates every phase of Tick; false makes Tick a no-op.
func (m *Manager) SetStreamingEnabled(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streamingEnabled = enabled
}

func (m *Manager) SubscribeChunkGenerated(cb OnChunkGenerated) { m.onGenerated = append(m.onGenerated, cb) }
func (m *Manager) SubscribeChunkLoaded(cb OnChunkLoaded)       { m.onLoaded = append(m.onLoaded, cb) }
func (m *Manager) SubscribeChunkUnloaded(cb OnChunkUnloaded)   { m.onUnloaded = append(m.onUnloaded, cb) }

// RequestChunkLoad queues coord for generation if it is currently absent or
// Unloaded. Returns false if it is already in flight or loaded.
func (m *Manager) RequestChunkLoad(coord coords.ChunkCoord, lodLevel int32, priority float32) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.chunkStates[coord]
	if !ok {
		rec = &chunkRecord{state: StateUnloaded}
		m.chunkStates[coord] = rec
	}
	if rec.state != StateUnloaded {
		return false
	}
	rec.state = StatePendingGeneration
	rec.lodLevel = lodLevel
	rec.lastPriority = priority
	m.generationQueue = append(m.generationQueue, genRequest{coord: coord, lodLevel: lodLevel, priority: priority})
	return true
}

// RequestChunkUnload queues a Loaded chunk for unload. Returns false if it
// isn't currently Loaded.
func (m *Manager) RequestChunkUnload(coord coords.ChunkCoord) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.chunkStates[coord]
	if !ok || rec.state != StateLoaded {
		return false
	}
	rec.state = StatePendingUnload
	m.unloadQueue = append(m.unloadQueue, coord)
	return true
}

// MarkChunkDirty flags coord's edit layer as changed without going through
// OnEditCommitted; useful for callers that manage their own edit source.
func (m *Manager) MarkChunkDirty(coord coords.ChunkCoord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markDirtyLocked(coord)
}

func (m *Manager) markDirtyLocked(coord coords.ChunkCoord) {
	rec, ok := m.chunkStates[coord]
	if !ok {
		return
	}
	rec.dirty = true
	if rec.state == StateLoaded {
		priority := rec.lastPriority
		if priority <= 0 {
			priority = 1.0
		}
		rec.state = StatePendingMeshing
		m.meshingQueue = append(m.meshingQueue, meshRequest{coord: coord, lodLevel: rec.lodLevel, priority: priority})
	}
}

// OnEditCommitted has editoverlay.EditCallback's exact signature so a host
// can wire it directly: editOverlay.Subscribe(chunkManager.OnEditCommitted).
// Dirty edits re-enter the pipeline at PendingMeshing, bypassing
// regeneration, per the state machine's dirty-edit rule.
func (m *Manager) OnEditCommitted(chunkCoord coords.ChunkCoord, _ editoverlay.EditSource, _ mgl32.Vec3, _ float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markDirtyLocked(chunkCoord)
}

// GetVoxel has editoverlay.ProceduralReader's signature: it answers the
// pure procedural (pre-edit) voxel at a chunk-local position, resolving
// Open Question 1 by wiring the manager's own generated data as the
// overlay's procedural source.
func (m *Manager) GetVoxel(chunkCoord coords.ChunkCoord, local coords.LocalVoxel) (voxel.Voxel, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.chunkStates[chunkCoord]
	if !ok || len(rec.voxelData) == 0 {
		return voxel.Voxel{}, false
	}
	return rec.voxelData[coords.VoxelIndex(local, m.cfg.ChunkSize)], true
}

func (m *Manager) GetChunkState(coord coords.ChunkCoord) (State, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.chunkStates[coord]
	if !ok {
		return StateUnloaded, false
	}
	return rec.state, true
}

func (m *Manager) IsChunkLoaded(coord coords.ChunkCoord) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadedChunkCoords[coord]
}

func (m *Manager) GetTotalChunkCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.chunkStates)
}

func (m *Manager) GetLoadedChunkCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.loadedChunkCoords)
}

func (m *Manager) GetPendingGenerationCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.generationQueue)
}

func (m *Manager) GetPendingMeshingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.meshingQueue)
}

// residentChunkCount counts every chunk currently occupying a slot in the
// streaming pipeline — loaded or anywhere between PendingGeneration and
// PendingUnload — against which Config.MaxLoadedChunks is enforced. Caller
// must hold m.mu.
func (m *Manager) residentChunkCount() int {
	n := 0
	for _, rec := range m.chunkStates {
		if rec.state != StateUnloaded {
			n++
		}
	}
	return n
}

func (m *Manager) GetLoadedChunks() []coords.ChunkCoord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]coords.ChunkCoord, 0, len(m.loadedChunkCoords))
	for c := range m.loadedChunkCoords {
		out = append(out, c)
	}
	return out
}

// WorldToChunkCoord converts a world-space position to its containing
// chunk coordinate, using this manager's configured chunk/voxel size.
func (m *Manager) WorldToChunkCoord(worldPos mgl32.Vec3) coords.ChunkCoord {
	return coords.WorldToChunk(worldPos, m.cfg.ChunkSize, m.cfg.VoxelSize)
}

// GetChunkCollisionMesh synthesizes a mesh for coord at lodLevel through the
// ordinary meshing pipeline, for the collision manager's cook queue
// (§4.7's `get_chunk_collision_mesh`). It requires coord to be at least
// PendingMeshing or further (voxel data present); it does not itself drive
// the chunk through generation.
func (m *Manager) GetChunkCollisionMesh(coord coords.ChunkCoord, lodLevel int32) (meshing.ChunkMeshData, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.chunkStates[coord]
	if !ok || len(rec.voxelData) == 0 {
		return meshing.ChunkMeshData{}, false
	}
	req := m.buildMeshingRequest(coord, lodLevel)
	mesh, _, ok2 := m.mesher.GenerateMesh(req)
	if !ok2 || len(mesh.Positions) == 0 || len(mesh.Indices) == 0 {
		return meshing.ChunkMeshData{}, false
	}
	return mesh, true
}

func (m *Manager) GetDebugStats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{
		TotalChunksGenerated:   m.totalGenerated,
		TotalChunksMeshed:      m.totalMeshed,
		TotalChunksUnloaded:    m.totalUnloaded,
		LoadedChunkCount:       len(m.loadedChunkCoords),
		PendingGenerationCount: len(m.generationQueue),
		PendingMeshingCount:    len(m.meshingQueue),
	}
}

// Tick runs one frame of the pipeline: frame counter, strategy update,
// streaming decisions, time-sliced generation and meshing, unloads, and LOD
// morph-factor transitions, in that fixed order (§5's phase-order
// guarantee).
func (m *Manager) Tick(ctx lod.QueryContext, dt float64) {
	m.mu.Lock()
	if !m.streamingEnabled {
		m.mu.Unlock()
		return
	}
	m.frame++
	ctx.FrameNumber = m.frame

	m.strategy.Update(ctx, dt)
	m.processGenerationResults()
	m.updateStreamingDecisions(ctx)

	sliceMS := ctx.TimeSliceMS
	if sliceMS <= 0 {
		sliceMS = m.cfg.StreamingTimeSliceMS
	}
	phaseBudget := time.Duration(float64(sliceMS) * 0.4 * float64(time.Millisecond))

	m.processGenerationQueue(phaseBudget)
	m.processMeshingQueue(phaseBudget)
	m.processUnloadQueue(ctx)
	m.updateLODTransitions(ctx)

	generated := m.pendingGeneratedEvents
	loaded := m.pendingLoadedEvents
	unloaded := m.pendingUnloadedEvents
	m.pendingGeneratedEvents = nil
	m.pendingLoadedEvents = nil
	m.pendingUnloadedEvents = nil
	m.mu.Unlock()

	for _, c := range generated {
		for _, cb := range m.onGenerated {
			cb(c)
		}
	}
	for _, e := range loaded {
		for _, cb := range m.onLoaded {
			cb(e.coord, e.lodLevel)
		}
	}
	for _, c := range unloaded {
		for _, cb := range m.onUnloaded {
			cb(c)
		}
	}
}

func (m *Manager) updateStreamingDecisions(ctx lod.QueryContext) {
	toLoad := m.strategy.ChunksToLoad(m.loadedChunkCoords, ctx)
	resident := m.residentChunkCount()
	for _, r := range toLoad {
		if m.cfg.MaxLoadedChunks > 0 && resident >= m.cfg.MaxLoadedChunks {
			break
		}
		rec, ok := m.chunkStates[r.ChunkCoord]
		if !ok {
			rec = &chunkRecord{state: StateUnloaded}
			m.chunkStates[r.ChunkCoord] = rec
		}
		if rec.state != StateUnloaded {
			continue
		}
		rec.state = StatePendingGeneration
		rec.lodLevel = r.LODLevel
		rec.lastPriority = r.Priority
		m.generationQueue = append(m.generationQueue, genRequest{coord: r.ChunkCoord, lodLevel: r.LODLevel, priority: r.Priority})
		resident++
	}

	toUnload := m.strategy.ChunksToUnload(m.loadedChunkCoords, ctx)
	for _, c := range toUnload {
		rec, ok := m.chunkStates[c]
		if !ok || rec.state != StateLoaded {
			continue
		}
		rec.state = StatePendingUnload
		m.unloadQueue = append(m.unloadQueue, c)
	}
}

func (m *Manager) noiseRequestFor(req genRequest) noise.Request {
	return noise.Request{
		ChunkCoord:  req.coord,
		LODLevel:    req.lodLevel,
		ChunkSize:   m.cfg.ChunkSize,
		VoxelSize:   m.cfg.VoxelSize,
		WorldOrigin: m.cfg.WorldOrigin,
		Seed:        m.cfg.WorldSeed,
		WorldMode:   m.cfg.WorldMode,
		SeaLevel:    m.cfg.SeaLevel,
		HeightScale: m.cfg.HeightScale,
		BaseHeight:  m.cfg.BaseHeight,
		Frequency:   m.cfg.Frequency,
		Octaves:     m.cfg.Octaves,
		Persistence: m.cfg.Persistence,
		Lacunarity:  m.cfg.Lacunarity,
		Amplitude:   m.cfg.Amplitude,
	}
}

// processGenerationQueue dequeues by descending priority, bounded by both a
// wall-clock budget and the per-frame chunk cap. With a worker pool wired
// (Config.WorkerCount > 0) each job is handed off to it and its result
// picked up by processGenerationResults on a later tick; with no pool,
// generation runs synchronously inline.
func (m *Manager) processGenerationQueue(budget time.Duration) {
	if len(m.generationQueue) == 0 {
		return
	}
	sort.Slice(m.generationQueue, func(i, j int) bool { return m.generationQueue[i].priority > m.generationQueue[j].priority })

	start := time.Now()
	processed := 0
	maxCount := m.cfg.MaxChunksToLoadPerFrame
	for len(m.generationQueue) > 0 && processed < maxCount && time.Since(start) < budget {
		req := m.generationQueue[0]

		rec, ok := m.chunkStates[req.coord]
		if !ok || rec.state != StatePendingGeneration {
			m.generationQueue = m.generationQueue[1:]
			continue // inconsistency: drifted away from the expected state, skip silently
		}

		if m.pool != nil {
			if !m.pool.submit(genJob{coord: req.coord, lodLevel: req.lodLevel, priority: req.priority, req: m.noiseRequestFor(req)}) {
				break // pool saturated; leave the rest of the queue for next tick
			}
			m.generationQueue = m.generationQueue[1:]
			rec.state = StateGenerating
			processed++
			continue
		}

		m.generationQueue = m.generationQueue[1:]
		rec.state = StateGenerating
		processed++
		voxels, ok2 := m.noiseGen.GenerateChunk(m.noiseRequestFor(req))
		m.finishGeneration(req.coord, req.priority, req.lodLevel, voxels, ok2)
	}
}

// processGenerationResults drains the worker pool's finished jobs, if a
// pool is wired, before this tick's streaming decisions and generation
// dispatch run.
func (m *Manager) processGenerationResults() {
	if m.pool == nil {
		return
	}
	for _, r := range m.pool.drainResults() {
		m.finishGeneration(r.coord, r.priority, r.lodLevel, r.voxels, r.ok)
	}
}

// finishGeneration applies one chunk's generation outcome: on success it
// advances the chunk to PendingMeshing, queues it for meshing, and
// propagates a neighbor remesh; on failure it reverts to Unloaded.
func (m *Manager) finishGeneration(coord coords.ChunkCoord, priority float32, lodLevel int32, voxels []voxel.Voxel, ok bool) {
	rec, exists := m.chunkStates[coord]
	if !exists {
		return
	}
	if !ok {
		rec.voxelData = nil
		rec.state = StateUnloaded
		m.logger.Warnf("chunkmanager: generation failed for %v, reverting to Unloaded", coord)
		return
	}
	rec.voxelData = voxels
	rec.state = StatePendingMeshing
	m.totalGenerated++
	m.pendingGeneratedEvents = append(m.pendingGeneratedEvents, coord)
	m.meshingQueue = append(m.meshingQueue, meshRequest{coord: coord, lodLevel: lodLevel, priority: priority})
	m.queueNeighborsForRemesh(coord, priority)
}

func (m *Manager) processMeshingQueue(budget time.Duration) {
	if len(m.meshingQueue) == 0 {
		return
	}
	sort.Slice(m.meshingQueue, func(i, j int) bool { return m.meshingQueue[i].priority > m.meshingQueue[j].priority })

	start := time.Now()
	processed := 0
	maxCount := m.cfg.MaxChunksToLoadPerFrame
	for len(m.meshingQueue) > 0 && processed < maxCount && time.Since(start) < budget {
		if len(m.pendingMeshQueue) >= MaxPendingMeshes {
			break // throttled: let the current batch drain before producing more
		}
		req := m.meshingQueue[0]
		m.meshingQueue = m.meshingQueue[1:]

		rec, ok := m.chunkStates[req.coord]
		if !ok || rec.state != StatePendingMeshing {
			continue
		}
		rec.state = StateMeshing
		processed++

		mreq := m.buildMeshingRequest(req.coord, req.lodLevel)
		meshData, _, ok2 := m.mesher.GenerateMesh(mreq)
		if !ok2 {
			rec.state = StatePendingMeshing
			m.meshingQueue = append(m.meshingQueue, req) // retry next tick
			m.logger.Warnf("chunkmanager: meshing failed for %v, retrying", req.coord)
			continue
		}
		m.pendingMeshQueue = append(m.pendingMeshQueue, pendingMesh{coord: req.coord, lodLevel: req.lodLevel, mesh: meshData})
	}

	m.drainPendingMeshes()
}

func (m *Manager) drainPendingMeshes() {
	for _, p := range m.pendingMeshQueue {
		if err := m.render.UploadChunkMesh(p.coord, p.lodLevel, p.mesh); err != nil {
			m.logger.Warnf("chunkmanager: renderer upload failed for %v: %v", p.coord, err)
		}
		rec, ok := m.chunkStates[p.coord]
		if !ok {
			continue
		}
		rec.dirty = false
		rec.state = StateLoaded
		m.loadedChunkCoords[p.coord] = true
		m.totalMeshed++
		m.pendingLoadedEvents = append(m.pendingLoadedEvents, loadedEvent{coord: p.coord, lodLevel: p.lodLevel})
	}
	m.pendingMeshQueue = m.pendingMeshQueue[:0]
}

func (m *Manager) processUnloadQueue(ctx lod.QueryContext) {
	limit := ctx.MaxChunksToUnloadPerFrame
	if limit <= 0 {
		limit = m.cfg.MaxChunksToUnloadPerFrame
	}
	count := 0
	for len(m.unloadQueue) > 0 && count < limit {
		c := m.unloadQueue[0]
		m.unloadQueue = m.unloadQueue[1:]

		rec, ok := m.chunkStates[c]
		if !ok || rec.state != StatePendingUnload {
			continue
		}
		if err := m.render.RemoveChunk(c); err != nil {
			m.logger.Warnf("chunkmanager: renderer remove failed for %v: %v", c, err)
		}
		delete(m.loadedChunkCoords, c)
		delete(m.chunkStates, c)
		m.totalUnloaded++
		count++
		m.pendingUnloadedEvents = append(m.pendingUnloadedEvents, c)
	}
}

func (m *Manager) updateLODTransitions(ctx lod.QueryContext) {
	var updates []renderer.MorphUpdate
	for c := range m.loadedChunkCoords {
		rec, ok := m.chunkStates[c]
		if !ok {
			continue
		}
		newMorph := m.strategy.MorphFactorFor(c, ctx)
		if absf32(newMorph-rec.morphFactor) > 0.01 {
			rec.morphFactor = newMorph
			updates = append(updates, renderer.MorphUpdate{ChunkCoord: c, MorphFactor: newMorph})
		}
	}
	if len(updates) > 0 {
		if err := m.render.UpdateMorphFactors(updates); err != nil {
			m.logger.Warnf("chunkmanager: renderer morph update failed: %v", err)
		}
	}
}

// queueNeighborsForRemesh re-queues every one of origin's 26 neighbors
// currently Loaded for meshing at half their own last-known priority,
// deduplicated against any already-queued entry (§4.6.2).
func (m *Manager) queueNeighborsForRemesh(origin coords.ChunkCoord, originPriority float32) {
	for _, n := range coords.AllNeighborChunks(origin) {
		rec, ok := m.chunkStates[n]
		if !ok || rec.state != StateLoaded {
			continue
		}
		priority := rec.lastPriority * NeighborRemeshPriorityFactor
		if priority <= 0 {
			priority = originPriority * NeighborRemeshPriorityFactor
		}

		dup := false
		for i := range m.meshingQueue {
			if m.meshingQueue[i].coord == n {
				dup = true
				if priority > m.meshingQueue[i].priority {
					m.meshingQueue[i].priority = priority
				}
				break
			}
		}
		if dup {
			continue
		}

		rec.state = StatePendingMeshing
		rec.lastPriority = priority
		m.meshingQueue = append(m.meshingQueue, meshRequest{coord: n, lodLevel: rec.lodLevel, priority: priority})
	}
}

// buildMeshingRequest assembles one chunk's meshing.Request: its own voxel
// data merged with any committed edits, the six face slices, twelve edge
// strips, and eight corner voxels pulled from whichever neighbors are
// currently tracked, and the transition-face bitset derived from comparing
// LOD levels against each loaded face neighbor (§4.6.3, §4.6.4).
func (m *Manager) buildMeshingRequest(coord coords.ChunkCoord, lodLevel int32) *meshing.Request {
	n := m.cfg.ChunkSize
	origin := mgl32.Vec3{m.cfg.WorldOrigin[0], m.cfg.WorldOrigin[1], m.cfg.WorldOrigin[2]}
	req := meshing.NewRequest(coord, lodLevel, n, m.cfg.VoxelSize, origin)
	m.fillMergedVoxels(req.VoxelData, coord)

	for f := coords.Face(0); f < 6; f++ {
		offset := coords.FaceOffset(f)
		neighbor := coords.ChunkCoord{X: coord.X + offset.X, Y: coord.Y + offset.Y, Z: coord.Z + offset.Z}
		nrec, ok := m.chunkStates[neighbor]
		if !ok || len(nrec.voxelData) == 0 {
			continue
		}
		slice := make([]voxel.Voxel, n*n)
		bx, by, bz := boundaryAxes(offset, n)
		for b := int32(0); b < n; b++ {
			for a := int32(0); a < n; a++ {
				x, y, z := faceInPlaneLocal(f, a, b, bx, by, bz)
				slice[a+b*n] = m.mergedNeighborVoxel(neighbor, nrec, coords.LocalVoxel{X: x, Y: y, Z: z})
			}
		}
		req.NeighborFaces[f] = slice

		axis := meshing.FaceAxisIndex(f)
		if axis >= 0 {
			req.NeighborLODLevels[axis] = nrec.lodLevel
		}
		if nrec.lodLevel > lodLevel {
			req.TransitionFaces = meshing.WithTransitionFace(req.TransitionFaces, f)
		}
	}

	for e := 0; e < len(edgeSpecs); e++ {
		spec := edgeSpecs[e]
		neighbor := coords.ChunkCoord{X: coord.X + spec.offset.X, Y: coord.Y + spec.offset.Y, Z: coord.Z + spec.offset.Z}
		nrec, ok := m.chunkStates[neighbor]
		if !ok || len(nrec.voxelData) == 0 {
			continue
		}
		bx, by, bz := boundaryAxes(spec.offset, n)
		strip := make([]voxel.Voxel, n)
		for i := int32(0); i < n; i++ {
			x, y, z := bx, by, bz
			switch spec.varyAxis {
			case 0:
				x = i
			case 1:
				y = i
			case 2:
				z = i
			}
			strip[i] = m.mergedNeighborVoxel(neighbor, nrec, coords.LocalVoxel{X: x, Y: y, Z: z})
		}
		req.EdgeStrips[e] = strip
		req.EdgeCornerFlags = req.EdgeCornerFlags.WithEdge(meshing.Edge(e))
	}

	for c := 0; c < len(cornerOffsets); c++ {
		offset := cornerOffsets[c]
		neighbor := coords.ChunkCoord{X: coord.X + offset.X, Y: coord.Y + offset.Y, Z: coord.Z + offset.Z}
		nrec, ok := m.chunkStates[neighbor]
		if !ok || len(nrec.voxelData) == 0 {
			continue
		}
		bx, by, bz := boundaryAxes(offset, n)
		req.Corners[c] = m.mergedNeighborVoxel(neighbor, nrec, coords.LocalVoxel{X: bx, Y: by, Z: bz})
		req.EdgeCornerFlags = req.EdgeCornerFlags.WithCorner(meshing.Corner(c))
	}

	return req
}

// boundaryAxes returns, for each axis, the local coordinate at the shared
// boundary of the neighbor in direction offset: 0 if that axis' offset
// component is positive, n-1 if negative, 0 (unused) if the axis doesn't
// participate in the offset.
func boundaryAxes(offset coords.ChunkCoord, n int32) (x, y, z int32) {
	pick := func(v int32) int32 {
		if v > 0 {
			return 0
		}
		return n - 1
	}
	if offset.X != 0 {
		x = pick(offset.X)
	}
	if offset.Y != 0 {
		y = pick(offset.Y)
	}
	if offset.Z != 0 {
		z = pick(offset.Z)
	}
	return
}

// faceInPlaneLocal maps a face's two in-plane coordinates (a,b) plus the
// precomputed boundary coordinates to a full local position, matching
// meshing.Request.sliceIndexForFace's axis convention: Top/Bottom -> (x,y),
// North/South -> (x,z), East/West -> (y,z).
func faceInPlaneLocal(f coords.Face, a, b, bx, by, bz int32) (x, y, z int32) {
	switch f {
	case coords.FaceTop, coords.FaceBottom:
		return a, b, bz
	case coords.FaceNorth, coords.FaceSouth:
		return a, by, b
	default: // FaceEast, FaceWest
		return bx, a, b
	}
}

// mergedNeighborVoxel returns a neighbor chunk's procedural voxel at local,
// merged with that neighbor's own committed edits if an edit source is
// wired.
func (m *Manager) mergedNeighborVoxel(neighbor coords.ChunkCoord, nrec *chunkRecord, local coords.LocalVoxel) voxel.Voxel {
	idx := coords.VoxelIndex(local, m.cfg.ChunkSize)
	proc := nrec.voxelData[idx]
	if m.edits == nil {
		return proc
	}
	layer := m.edits.GetEditLayer(neighbor)
	if layer == nil {
		return proc
	}
	return layer.MergedVoxel(idx, proc)
}

// fillMergedVoxels copies coord's procedural voxel data into dst and
// overlays any committed edits on top.
func (m *Manager) fillMergedVoxels(dst []voxel.Voxel, coord coords.ChunkCoord) {
	rec, ok := m.chunkStates[coord]
	if !ok || len(rec.voxelData) == 0 {
		for i := range dst {
			dst[i] = voxel.Air()
		}
		return
	}
	copy(dst, rec.voxelData)
	if m.edits == nil {
		return
	}
	layer := m.edits.GetEditLayer(coord)
	if layer == nil {
		return
	}
	for idx, e := range layer.Edits {
		dst[idx] = e.NewData
	}
}

func absf32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
