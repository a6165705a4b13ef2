package collision

import (
	"github.com/draquel/voxelterrain/enginelog"
)

// nullCooker is a logging default Cooker: it "cooks" by handing back the
// chunk coordinate itself as an opaque handle, so HasCollision/GetDebugStats
// behave realistically for a host that has not wired a real physics engine
// yet. Modeled after renderer.NullRenderer's count-and-log pattern.
type nullCooker struct {
	logger   enginelog.Logger
	cooked   int64
	released int64
}

// NewNullCooker builds a Cooker that always succeeds synchronously, logging
// every cook and release at Debug level.
func NewNullCooker(logger enginelog.Logger) Cooker {
	if logger == nil {
		logger = enginelog.NewNopLogger()
	}
	return &nullCooker{logger: logger}
}

func (c *nullCooker) Cook(req CookRequest, onComplete CookCallback) {
	c.cooked++
	c.logger.Debugf("collision: cooked %s (%d verts, %d indices)", req.StableName, len(req.Mesh.Positions), len(req.Mesh.Indices))
	onComplete(req.ChunkCoord, true)
}

func (c *nullCooker) Release(handle any) {
	c.released++
	c.logger.Debugf("collision: released handle %v", handle)
}
