package voxelterrain

import (
	"fmt"

	"github.com/draquel/voxelterrain/chunkmanager"
	"github.com/draquel/voxelterrain/collision"
	"github.com/draquel/voxelterrain/coords"
	"github.com/draquel/voxelterrain/editoverlay"
	"github.com/draquel/voxelterrain/lod"
	"github.com/draquel/voxelterrain/meshing"
	"github.com/draquel/voxelterrain/noise"
	"github.com/draquel/voxelterrain/renderer"
	"github.com/go-gl/mathgl/mgl32"
)

// Engine assembles every subsystem package into one streaming voxel world:
// the edit overlay feeds the chunk manager's procedural-merge path, the
// chunk manager feeds both the renderer and the collision manager, and the
// collision manager feeds a host-provided physics Cooker. It owns no
// transport, window, or input of its own — those, along with the renderer
// and Cooker, are the host's concern.
type Engine struct {
	logger Logger
	cfg    Config

	LODStrategy  *lod.DistanceBandStrategy
	NoiseGen     noise.Generator
	Mesher       meshing.Mesher
	Renderer     renderer.Renderer
	EditOverlay  *editoverlay.Manager
	ChunkManager *chunkmanager.Manager
	Collision    *collision.Manager
}

// NewEngine constructs and wires every subsystem but does not start any of
// them — call Initialize before the first Tick.
func NewEngine(cfg Config, render renderer.Renderer, cooker collision.Cooker, logger Logger) *Engine {
	if logger == nil {
		logger = NewNopLogger()
	}
	if render == nil {
		render = renderer.NewNullRenderer(logger)
	}
	if cooker == nil {
		cooker = collision.NewNullCooker(logger)
	}

	strategy := lod.NewDistanceBandStrategy(logger)
	strategy.Initialize(cfg.LODBands, cfg.VoxelSize, cfg.ChunkSize, cfg.WorldMode, cfg.EnableLODMorphing, cfg.EnableFrustumCulling)

	noiseGen := noise.NewHashedValueNoise()

	var mesher meshing.Mesher
	switch cfg.MeshingMode {
	case chunkmanager.MeshingSmooth:
		mesher = meshing.NewSmoothMesher()
	default:
		mesher = meshing.NewCubicMesher()
	}
	mesher.SetConfig(meshing.DefaultConfig())

	chunkMgr := chunkmanager.NewManager(cfg.toChunkManagerConfig(), strategy, noiseGen, mesher, render, logger)

	editOverlay := editoverlay.New(logger)
	chunkMgr.SetEditOverlay(editOverlay)
	editOverlay.Subscribe(chunkMgr.OnEditCommitted)

	collisionMgr := collision.NewManager(cfg.toCollisionConfig(), chunkMgr, cooker, logger)
	editOverlay.Subscribe(func(chunkCoord coords.ChunkCoord, _ editoverlay.EditSource, _ mgl32.Vec3, _ float32) {
		collisionMgr.MarkChunkDirty(chunkCoord)
	})

	return &Engine{
		logger:       logger,
		cfg:          cfg,
		LODStrategy:  strategy,
		NoiseGen:     noiseGen,
		Mesher:       mesher,
		Renderer:     render,
		EditOverlay:  editOverlay,
		ChunkManager: chunkMgr,
		Collision:    collisionMgr,
	}
}

// Initialize starts the chunk manager (and through it, the noise generator,
// mesher, and renderer), wires the edit overlay's procedural-read callback
// to the chunk manager's own voxel reads (resolving the procedural-fallback
// open question by direct composition rather than a shared data store), and
// starts the collision manager if collision generation is enabled.
func (e *Engine) Initialize() error {
	if err := e.ChunkManager.Initialize(); err != nil {
		return fmt.Errorf("voxelterrain: chunk manager: %w", err)
	}
	e.EditOverlay.Initialize(e.cfg.ChunkSize, e.cfg.VoxelSize, e.ChunkManager.GetVoxel)

	if e.cfg.Rendering.GenerateCollision {
		if err := e.Collision.Initialize(); err != nil {
			return fmt.Errorf("voxelterrain: collision manager: %w", err)
		}
	}
	return nil
}

// Shutdown tears the engine down in reverse dependency order: collision
// before the chunk manager it reads meshes from, edit overlay last since
// nothing else depends on it staying up.
func (e *Engine) Shutdown() {
	if e.cfg.Rendering.GenerateCollision {
		e.Collision.Shutdown()
	}
	e.ChunkManager.Shutdown()
	e.EditOverlay.Shutdown()
}

// Tick advances one frame: LOD/streaming decisions, generation, meshing,
// unloading, and (if enabled) collision cook-queue processing, in that
// fixed phase order.
func (e *Engine) Tick(dt float64, viewerPos, viewerForward mgl32.Vec3, frustumPlanes []mgl32.Vec4) {
	ctx := lod.QueryContext{
		ViewerPosition:            viewerPos,
		ViewerForward:             viewerForward,
		WorldMode:                 e.cfg.WorldMode,
		WorldOrigin:               mgl32.Vec3{e.cfg.WorldOrigin[0], e.cfg.WorldOrigin[1], e.cfg.WorldOrigin[2]},
		WorldRadius:               e.cfg.WorldRadius,
		MaxChunksToLoadPerFrame:   e.cfg.Streaming.MaxChunksToLoadPerFrame,
		MaxChunksToUnloadPerFrame: e.cfg.Streaming.MaxChunksToUnloadPerFrame,
		TimeSliceMS:               e.cfg.Streaming.StreamingTimeSliceMS,
		DeltaTime:                 dt,
		FrustumPlanes:             frustumPlanes,
	}
	e.ChunkManager.Tick(ctx, dt)

	if e.cfg.Rendering.GenerateCollision {
		e.Collision.Update(viewerPos, dt)
	}
}

// EngineStats is a combined snapshot across the chunk and collision
// managers, used by the demo CLI's periodic summaries.
type EngineStats struct {
	Chunks    chunkmanager.Stats
	Collision collision.Stats
}

func (e *Engine) GetDebugStats() EngineStats {
	stats := EngineStats{Chunks: e.ChunkManager.GetDebugStats()}
	if e.cfg.Rendering.GenerateCollision {
		stats.Collision = e.Collision.GetDebugStats()
	}
	return stats
}
