package chunkmanager

import (
	"sync"

	"github.com/draquel/voxelterrain/coords"
	"github.com/draquel/voxelterrain/noise"
	"github.com/draquel/voxelterrain/voxel"
)

// genJob is one unit of work handed to the worker pool: generate coord's
// voxel data off the tick thread.
type genJob struct {
	coord    coords.ChunkCoord
	lodLevel int32
	priority float32
	req      noise.Request
}

// genResult is a finished job, picked up by the tick thread at the start of
// its next generation phase.
type genResult struct {
	coord    coords.ChunkCoord
	lodLevel int32
	priority float32
	voxels   []voxel.Voxel
	ok       bool
}

// workerPool runs noise generation on a fixed pool of background goroutines
// reading from a shared buffered job channel, grounded on
// Leterax-go-voxels' chunkWorker pattern (buffered channel, stop-channel
// shutdown awaited via a WaitGroup in place of its single worker's
// workerStopped channel, generalized to N workers). It is an additive
// extension: Config.WorkerCount 0 means the manager never constructs one
// and every generation call happens synchronously inline during Tick.
type workerPool struct {
	noiseGen noise.Generator

	jobs    chan genJob
	results chan genResult
	stop_   chan struct{}
	wg      sync.WaitGroup

	workerCount int
}

func newWorkerPool(noiseGen noise.Generator, workerCount, queueDepth int) *workerPool {
	if queueDepth <= 0 {
		queueDepth = 64
	}
	return &workerPool{
		noiseGen:    noiseGen,
		jobs:        make(chan genJob, queueDepth),
		results:     make(chan genResult, queueDepth),
		stop_:       make(chan struct{}),
		workerCount: workerCount,
	}
}

func (p *workerPool) start() {
	p.wg.Add(p.workerCount)
	for i := 0; i < p.workerCount; i++ {
		go p.worker()
	}
}

func (p *workerPool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.stop_:
			return
		case job := <-p.jobs:
			voxels, ok := p.noiseGen.GenerateChunk(job.req)
			result := genResult{coord: job.coord, lodLevel: job.lodLevel, priority: job.priority, voxels: voxels, ok: ok}
			select {
			case p.results <- result:
			case <-p.stop_:
				return
			}
		}
	}
}

func (p *workerPool) stop() {
	close(p.stop_)
	p.wg.Wait()
}

// submit enqueues a job without blocking. It reports false if the queue is
// currently full, leaving the caller to retry the job next tick.
func (p *workerPool) submit(job genJob) bool {
	select {
	case p.jobs <- job:
		return true
	default:
		return false
	}
}

// drainResults returns every result produced since the last drain, without
// blocking.
func (p *workerPool) drainResults() []genResult {
	var out []genResult
	for {
		select {
		case r := <-p.results:
			out = append(out, r)
		default:
			return out
		}
	}
}
