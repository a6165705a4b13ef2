package voxelterrain

import "github.com/draquel/voxelterrain/enginelog"

// Logger, DefaultLogger, and the no-op logger live in enginelog so every
// leaf package can depend on them without importing this root package.
// Re-exported here for embedders that only import the root package.
type (
	Logger        = enginelog.Logger
	DefaultLogger = enginelog.DefaultLogger
)

var (
	NewDefaultLogger = enginelog.NewDefaultLogger
	NewNopLogger     = enginelog.NewNopLogger
)
