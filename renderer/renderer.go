// Package renderer defines the chunk manager's handoff boundary to a host
// renderer: upload a finished mesh, remove a chunk's mesh, and batch-update
// LOD morph factors. This package carries the interface plus a
// logging/counting null implementation; an actual GPU-backed renderer is
// the host application's concern.
package renderer

import (
	"sync"

	"github.com/draquel/voxelterrain/coords"
	"github.com/draquel/voxelterrain/enginelog"
	"github.com/draquel/voxelterrain/meshing"
)

// MorphUpdate batches one chunk's recomputed LOD morph factor for a single
// renderer call, per the tick sequence's "batch entries whose change
// exceeds 0.01" rule.
type MorphUpdate struct {
	ChunkCoord  coords.ChunkCoord
	MorphFactor float32
}

// Renderer is the chunk manager's mesh-upload capability. Ownership of the
// mesh data transfers to the renderer on a successful UploadChunkMesh call;
// the chunk manager does not retain it afterward.
type Renderer interface {
	Initialize() error
	Shutdown()
	UploadChunkMesh(chunkCoord coords.ChunkCoord, lodLevel int32, mesh meshing.ChunkMeshData) error
	RemoveChunk(chunkCoord coords.ChunkCoord) error
	ClearAllChunks() error
	UpdateMorphFactors(updates []MorphUpdate) error
	SetChunkVisible(chunkCoord coords.ChunkCoord, visible bool) error
}

// NullRenderer counts and logs every call rather than silently discarding
// it, so a host that hasn't wired a real renderer yet still gets visible
// feedback that chunks are streaming.
type NullRenderer struct {
	logger enginelog.Logger

	mu             sync.Mutex
	uploaded       int64
	removed        int64
	morphUpdates   int64
	visibilitySets int64
	clears         int64
}

func NewNullRenderer(logger enginelog.Logger) *NullRenderer {
	return &NullRenderer{logger: logger}
}

func (r *NullRenderer) Initialize() error {
	r.logger.Infof("null renderer initialized")
	return nil
}

func (r *NullRenderer) Shutdown() {
	r.logger.Infof("null renderer shutdown (uploaded=%d removed=%d morph_updates=%d)", r.uploaded, r.removed, r.morphUpdates)
}

func (r *NullRenderer) UploadChunkMesh(chunkCoord coords.ChunkCoord, lodLevel int32, mesh meshing.ChunkMeshData) error {
	r.mu.Lock()
	r.uploaded++
	r.mu.Unlock()
	r.logger.Debugf("null renderer: upload chunk %v lod=%d verts=%d tris=%d", chunkCoord, lodLevel, mesh.VertexCount(), mesh.TriangleCount())
	return nil
}

func (r *NullRenderer) RemoveChunk(chunkCoord coords.ChunkCoord) error {
	r.mu.Lock()
	r.removed++
	r.mu.Unlock()
	r.logger.Debugf("null renderer: remove chunk %v", chunkCoord)
	return nil
}

func (r *NullRenderer) UpdateMorphFactors(updates []MorphUpdate) error {
	r.mu.Lock()
	r.morphUpdates += int64(len(updates))
	r.mu.Unlock()
	r.logger.Debugf("null renderer: morph update batch of %d", len(updates))
	return nil
}

func (r *NullRenderer) ClearAllChunks() error {
	r.mu.Lock()
	r.clears++
	r.mu.Unlock()
	r.logger.Debugf("null renderer: clear all chunks")
	return nil
}

func (r *NullRenderer) SetChunkVisible(chunkCoord coords.ChunkCoord, visible bool) error {
	r.mu.Lock()
	r.visibilitySets++
	r.mu.Unlock()
	r.logger.Debugf("null renderer: set chunk %v visible=%v", chunkCoord, visible)
	return nil
}

// Stats is a snapshot of the null renderer's call counters, useful for
// tests and the demo CLI's debug output.
type Stats struct {
	Uploaded       int64
	Removed        int64
	MorphUpdates   int64
	VisibilitySets int64
	Clears         int64
}

func (r *NullRenderer) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Stats{
		Uploaded:       r.uploaded,
		Removed:        r.removed,
		MorphUpdates:   r.morphUpdates,
		VisibilitySets: r.visibilitySets,
		Clears:         r.clears,
	}
}
