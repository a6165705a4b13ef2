package voxelterrain

import (
	"fmt"

	"github.com/draquel/voxelterrain/chunkmanager"
	"github.com/draquel/voxelterrain/collision"
	"github.com/draquel/voxelterrain/lod"
)

// NoiseType selects the terrain generation algorithm family. The closed
// configuration set carries all four values; hashed value noise
// (noise.HashedValueNoise) is the only concrete Generator, and NewEngine
// uses it whatever Type says — every value is accepted and round-tripped
// through config files, none selects a different algorithm.
type NoiseType string

const (
	NoisePerlin   NoiseType = "perlin"
	NoiseSimplex  NoiseType = "simplex"
	NoiseCellular NoiseType = "cellular"
	NoiseVoronoi  NoiseType = "voronoi"
)

// StreamingConfig is the chunk pipeline's closed tunable set.
type StreamingConfig struct {
	MaxChunksToLoadPerFrame   int     `toml:"max_chunks_to_load_per_frame"`
	MaxChunksToUnloadPerFrame int     `toml:"max_chunks_to_unload_per_frame"`
	StreamingTimeSliceMS      float32 `toml:"streaming_time_slice_ms"`
	MaxLoadedChunks           int     `toml:"max_loaded_chunks"`
}

// RenderingConfig selects the render backend and whether collision bodies
// are generated at all.
type RenderingConfig struct {
	UseGPURenderer    bool  `toml:"use_gpu_renderer"`
	GenerateCollision bool  `toml:"generate_collision"`
	CollisionLODLevel int32 `toml:"collision_lod_level"`
}

// NoiseConfig is the closed terrain-generation tunable set.
type NoiseConfig struct {
	Type        NoiseType `toml:"type"`
	Seed        int64     `toml:"seed"`
	Octaves     int32     `toml:"octaves"`
	Frequency   float32   `toml:"frequency"`
	Amplitude   float32   `toml:"amplitude"`
	Lacunarity  float32   `toml:"lacunarity"`
	Persistence float32   `toml:"persistence"`
	SeaLevel    float32   `toml:"sea_level"`
	HeightScale float32   `toml:"height_scale"`
	BaseHeight  float32   `toml:"base_height"`
}

// WorkerPoolConfig tunes the chunk manager's optional background generation
// workers.
type WorkerPoolConfig struct {
	WorkerCount      int `toml:"worker_count"`
	WorkerQueueDepth int `toml:"worker_queue_depth"`
}

// Config is the engine's full closed configuration set, spanning world
// shape, meshing, streaming, rendering, noise, collision, and the worker
// pool — the superset every subsystem's own narrower Config is projected
// from.
type Config struct {
	WorldMode   lod.WorldMode           `toml:"world_mode"`
	WorldOrigin [3]float32              `toml:"world_origin"`
	WorldRadius float32                 `toml:"world_radius"`
	MeshingMode chunkmanager.MeshingMode `toml:"meshing_mode"`
	VoxelSize   float32                 `toml:"voxel_size"`
	ChunkSize   int32                   `toml:"chunk_size"`
	WorldSeed   int64                   `toml:"world_seed"`

	LODBands             []lod.Band `toml:"lod_bands"`
	EnableLODMorphing    bool       `toml:"enable_lod_morphing"`
	EnableFrustumCulling bool       `toml:"enable_frustum_culling"`
	ViewDistance         float32    `toml:"view_distance"`

	Streaming StreamingConfig `toml:"streaming"`
	Rendering RenderingConfig `toml:"rendering"`
	Noise     NoiseConfig     `toml:"noise"`

	CollisionRadius               float32 `toml:"collision_radius"`
	CollisionUpdateIntervalFrames int     `toml:"collision_update_interval_frames"`
	CollisionViewerMoveThreshold  float32 `toml:"collision_viewer_move_threshold"`
	MaxCooksPerFrame              int     `toml:"max_cooks_per_frame"`
	MaxConcurrentCooks            int     `toml:"max_concurrent_cooks"`
	DirtyPriorityBoost            float32 `toml:"dirty_priority_boost"`

	WorkerPool WorkerPoolConfig `toml:"worker_pool"`
}

// defaultBands matches DistanceBandLODStrategy's worked example: four bands
// from full detail near the viewer out to the coarsest band at view
// distance.
func defaultBands(viewDistance float32) []lod.Band {
	return []lod.Band{
		{MinDistance: 0, MaxDistance: viewDistance * 0.1, LODLevel: 0, VoxelStride: 1, ChunkSize: 32, MorphRange: viewDistance * 0.02},
		{MinDistance: viewDistance * 0.1, MaxDistance: viewDistance * 0.3, LODLevel: 1, VoxelStride: 2, ChunkSize: 32, MorphRange: viewDistance * 0.04},
		{MinDistance: viewDistance * 0.3, MaxDistance: viewDistance * 0.6, LODLevel: 2, VoxelStride: 4, ChunkSize: 32, MorphRange: viewDistance * 0.08},
		{MinDistance: viewDistance * 0.6, MaxDistance: viewDistance, LODLevel: 3, VoxelStride: 8, ChunkSize: 32, MorphRange: viewDistance * 0.12},
	}
}

// DefaultConfig assembles every subsystem's own documented default onto the
// engine-wide closed configuration set (§6).
func DefaultConfig() Config {
	const viewDistance = 10000

	return Config{
		WorldMode:            lod.WorldInfinitePlane,
		WorldOrigin:          [3]float32{0, 0, 0},
		WorldRadius:          100000,
		MeshingMode:          chunkmanager.MeshingCubic,
		VoxelSize:            100,
		ChunkSize:            32,
		WorldSeed:            0,
		LODBands:             defaultBands(viewDistance),
		EnableLODMorphing:    true,
		EnableFrustumCulling: true,
		ViewDistance:         viewDistance,

		Streaming: StreamingConfig{
			MaxChunksToLoadPerFrame:   4,
			MaxChunksToUnloadPerFrame: 8,
			StreamingTimeSliceMS:      2,
			MaxLoadedChunks:           2000,
		},
		Rendering: RenderingConfig{
			UseGPURenderer:    true,
			GenerateCollision: true,
			CollisionLODLevel: 1,
		},
		Noise: NoiseConfig{
			Type:        NoiseSimplex,
			Seed:        0,
			Octaves:     6,
			Frequency:   0.01,
			Amplitude:   1.0,
			Lacunarity:  2.0,
			Persistence: 0.5,
			SeaLevel:    0,
			HeightScale: 10,
			BaseHeight:  0,
		},

		CollisionRadius:               1600,
		CollisionUpdateIntervalFrames: 5,
		CollisionViewerMoveThreshold:  500,
		MaxCooksPerFrame:              1,
		MaxConcurrentCooks:            4,
		DirtyPriorityBoost:            500,

		WorkerPool: WorkerPoolConfig{
			WorkerCount:      0,
			WorkerQueueDepth: 64,
		},
	}
}

// clampRange logs at Warning and returns lo or hi when v falls outside
// [lo, hi]; otherwise returns v unchanged. Matches §6's "out-of-range keys
// clamp to their nearest bound and log a Warning" contract.
func clampRange(logger Logger, key string, v, lo, hi float32) float32 {
	if v < lo {
		logger.Warnf("config: %s=%v below minimum %v, clamped", key, v, lo)
		return lo
	}
	if v > hi {
		logger.Warnf("config: %s=%v above maximum %v, clamped", key, v, hi)
		return hi
	}
	return v
}

func clampRangeInt(logger Logger, key string, v, lo, hi int) int {
	if v < lo {
		logger.Warnf("config: %s=%v below minimum %v, clamped", key, v, lo)
		return lo
	}
	if v > hi {
		logger.Warnf("config: %s=%v above maximum %v, clamped", key, v, hi)
		return hi
	}
	return v
}

// Validate clamps every out-of-range key in the closed configuration set to
// its documented bound, logging a Warning for each clamp, and returns the
// corrected config. It never fails outright — an out-of-range config value
// is a recoverable Warning, not a BadInput error, since every key has a
// well-defined closed range to fall back into.
func (c Config) Validate(logger Logger) Config {
	if logger == nil {
		logger = NewNopLogger()
	}
	c.VoxelSize = clampRange(logger, "voxel_size", c.VoxelSize, 1, 1000)
	c.ChunkSize = int32(clampRangeInt(logger, "chunk_size", int(c.ChunkSize), 8, 128))

	c.Streaming.MaxChunksToLoadPerFrame = clampRangeInt(logger, "streaming.max_chunks_to_load_per_frame", c.Streaming.MaxChunksToLoadPerFrame, 1, 32)
	c.Streaming.MaxChunksToUnloadPerFrame = clampRangeInt(logger, "streaming.max_chunks_to_unload_per_frame", c.Streaming.MaxChunksToUnloadPerFrame, 1, 64)
	c.Streaming.StreamingTimeSliceMS = clampRange(logger, "streaming.streaming_time_slice_ms", c.Streaming.StreamingTimeSliceMS, 0.5, 10)
	c.Streaming.MaxLoadedChunks = clampRangeInt(logger, "streaming.max_loaded_chunks", c.Streaming.MaxLoadedChunks, 100, 10000)

	c.Rendering.CollisionLODLevel = int32(clampRangeInt(logger, "rendering.collision_lod_level", int(c.Rendering.CollisionLODLevel), 0, 4))

	c.Noise.Octaves = int32(clampRangeInt(logger, "noise.octaves", int(c.Noise.Octaves), 1, 16))
	c.Noise.Lacunarity = clampRange(logger, "noise.lacunarity", c.Noise.Lacunarity, 1, 4)
	c.Noise.Persistence = clampRange(logger, "noise.persistence", c.Noise.Persistence, 0, 1)

	c.CollisionUpdateIntervalFrames = clampRangeInt(logger, "collision_update_interval_frames", c.CollisionUpdateIntervalFrames, 1, 30)
	c.MaxCooksPerFrame = clampRangeInt(logger, "max_cooks_per_frame", c.MaxCooksPerFrame, 1, 8)
	c.MaxConcurrentCooks = clampRangeInt(logger, "max_concurrent_cooks", c.MaxConcurrentCooks, 1, 16)

	c.WorkerPool.WorkerCount = clampRangeInt(logger, "worker_pool.worker_count", c.WorkerPool.WorkerCount, 0, 64)
	if c.WorkerPool.WorkerQueueDepth < 1 {
		logger.Warnf("config: worker_pool.worker_queue_depth=%d below minimum 1, clamped", c.WorkerPool.WorkerQueueDepth)
		c.WorkerPool.WorkerQueueDepth = 1
	}

	for i := range c.LODBands {
		band := &c.LODBands[i]
		key := fmt.Sprintf("lod_bands[%d]", i)
		band.LODLevel = int32(clampRangeInt(logger, key+".lod_level", int(band.LODLevel), 0, 7))
		band.VoxelStride = int32(clampRangeInt(logger, key+".voxel_stride", int(band.VoxelStride), 1, 64))
		band.ChunkSize = int32(clampRangeInt(logger, key+".chunk_size", int(band.ChunkSize), 8, 128))
		if band.MorphRange < 0 {
			logger.Warnf("config: %s.morph_range=%v below minimum 0, clamped", key, band.MorphRange)
			band.MorphRange = 0
		}
	}
	return c
}

// toChunkManagerConfig projects the engine-wide config onto
// chunkmanager.Config's narrower field set.
func (c Config) toChunkManagerConfig() chunkmanager.Config {
	return chunkmanager.Config{
		ChunkSize:                 c.ChunkSize,
		VoxelSize:                 c.VoxelSize,
		WorldOrigin:               c.WorldOrigin,
		WorldSeed:                 c.WorldSeed,
		WorldMode:                 c.WorldMode,
		MeshingMode:               c.MeshingMode,
		MaxChunksToLoadPerFrame:   c.Streaming.MaxChunksToLoadPerFrame,
		MaxChunksToUnloadPerFrame: c.Streaming.MaxChunksToUnloadPerFrame,
		StreamingTimeSliceMS:      c.Streaming.StreamingTimeSliceMS,
		MaxLoadedChunks:           c.Streaming.MaxLoadedChunks,
		SeaLevel:                  c.Noise.SeaLevel,
		HeightScale:               c.Noise.HeightScale,
		BaseHeight:                c.Noise.BaseHeight,
		Frequency:                 c.Noise.Frequency,
		Octaves:                   c.Noise.Octaves,
		Persistence:               c.Noise.Persistence,
		Lacunarity:                c.Noise.Lacunarity,
		Amplitude:                 c.Noise.Amplitude,
		WorkerCount:               c.WorkerPool.WorkerCount,
		WorkerQueueDepth:          c.WorkerPool.WorkerQueueDepth,
	}
}

// toCollisionConfig projects the engine-wide config onto collision.Config's
// narrower field set.
func (c Config) toCollisionConfig() collision.Config {
	return collision.Config{
		ChunkSize:            c.ChunkSize,
		VoxelSize:            c.VoxelSize,
		CollisionRadius:      c.CollisionRadius,
		CollisionLODLevel:    c.Rendering.CollisionLODLevel,
		UpdateIntervalFrames: c.CollisionUpdateIntervalFrames,
		ViewerMoveThreshold:  c.CollisionViewerMoveThreshold,
		MaxCooksPerFrame:     c.MaxCooksPerFrame,
		MaxConcurrentCooks:   c.MaxConcurrentCooks,
		DirtyPriorityBoost:   c.DirtyPriorityBoost,
	}
}
