// Command voxeldemo drives a headless voxelterrain.Engine against a
// synthetic, circling viewer path, printing periodic stats. It has no
// window and no renderer of its own — it exists to exercise the streaming,
// meshing, and collision-cooking loop the way an embedding game would, with
// stubbed-out Renderer and Cooker implementations standing in for the host.
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	voxelterrain "github.com/draquel/voxelterrain"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML config file (defaults to voxelterrain.DefaultConfig)")
	ticksPerSecond := flag.Float64("tps", 20, "simulation ticks per second")
	orbitRadius := flag.Float64("orbit-radius", 2000, "radius in world units of the synthetic viewer's circular path")
	orbitPeriod := flag.Float64("orbit-period-s", 30, "seconds for the viewer to complete one orbit")
	summaryEvery := flag.Duration("summary-every", 2*time.Second, "interval between stats summaries")
	debug := flag.Bool("debug", false, "enable verbose logging")
	dumpConfig := flag.String("dump-config", "", "if set, write the effective (validated) config to this path and exit")
	flag.Parse()

	runID := uuid.NewString()
	logger := voxelterrain.NewDefaultLogger("voxeldemo", *debug)
	logger.Infof("starting run %s", runID)

	var cfg voxelterrain.Config
	var err error
	if *configPath != "" {
		cfg, err = voxelterrain.LoadConfigFile(*configPath, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "voxeldemo: %v\n", err)
			os.Exit(1)
		}
	} else {
		cfg = voxelterrain.DefaultConfig().Validate(logger)
	}

	if *dumpConfig != "" {
		if err := voxelterrain.WriteConfigFile(*dumpConfig, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "voxeldemo: %v\n", err)
			os.Exit(1)
		}
		logger.Infof("wrote effective config to %s", *dumpConfig)
		return
	}

	engine := voxelterrain.NewEngine(cfg, nil, nil, logger)
	if err := engine.Initialize(); err != nil {
		fmt.Fprintf(os.Stderr, "voxeldemo: initialize: %v\n", err)
		os.Exit(1)
	}
	defer engine.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tickInterval := time.Duration(float64(time.Second) / *ticksPerSecond)
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	summaryTicker := time.NewTicker(*summaryEvery)
	defer summaryTicker.Stop()

	var elapsed float64
	dt := tickInterval.Seconds()

	logger.Infof("run %s ticking at %.1f Hz, orbiting radius %.0f over %.0fs", runID, *ticksPerSecond, *orbitRadius, *orbitPeriod)

	for {
		select {
		case <-ctx.Done():
			logger.Infof("run %s shutting down", runID)
			return
		case <-ticker.C:
			elapsed += dt
			viewerPos, viewerForward := orbitViewer(elapsed, float32(*orbitRadius), float32(*orbitPeriod))
			engine.Tick(dt, viewerPos, viewerForward, nil)
		case <-summaryTicker.C:
			printSummary(logger, engine.GetDebugStats())
		}
	}
}

// orbitViewer places a synthetic viewer on a horizontal circle of the given
// radius and period, always facing the circle's center, so a demo run
// exercises chunk loading/unloading at the streaming boundary without any
// real input.
func orbitViewer(elapsedSeconds float64, radius, periodSeconds float32) (mgl32.Vec3, mgl32.Vec3) {
	angle := float32(2*math.Pi) * float32(elapsedSeconds) / periodSeconds
	pos := mgl32.Vec3{radius * float32(math.Cos(float64(angle))), radius * float32(math.Sin(float64(angle))), 0}
	forward := pos.Mul(-1)
	if forward.Len() > 0 {
		forward = forward.Normalize()
	} else {
		forward = mgl32.Vec3{0, 0, 1}
	}
	return pos, forward
}

func printSummary(logger voxelterrain.Logger, stats voxelterrain.EngineStats) {
	logger.Infof(
		"chunks loaded=%d pendingGen=%d pendingMesh=%d generated=%d meshed=%d unloaded=%d | collision active=%d cooking=%d queued=%d generated=%d removed=%d",
		stats.Chunks.LoadedChunkCount,
		stats.Chunks.PendingGenerationCount,
		stats.Chunks.PendingMeshingCount,
		stats.Chunks.TotalChunksGenerated,
		stats.Chunks.TotalChunksMeshed,
		stats.Chunks.TotalChunksUnloaded,
		stats.Collision.CollisionChunkCount,
		stats.Collision.CookingCount,
		stats.Collision.CookQueueCount,
		stats.Collision.TotalCollisionsGenerated,
		stats.Collision.TotalCollisionsRemoved,
	)
}
