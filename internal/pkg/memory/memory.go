// Package memory releases heap and backend scratch memory between
// pipeline stages.
package memory

import (
	"runtime"
	"runtime/debug"

	"github.com/earthwork-discovery/internal/raster"
	"go.uber.org/zap"
)

// Cleanup drops the pooled buffers of backend (nil is allowed), collects
// garbage and returns freed pages to the OS. stage only labels the log line.
func Cleanup(stage string, backend raster.Backend, logger *zap.Logger) {
	var before runtime.MemStats
	runtime.ReadMemStats(&before)

	if backend != nil {
		backend.Release()
	}
	runtime.GC()
	debug.FreeOSMemory()

	var after runtime.MemStats
	runtime.ReadMemStats(&after)
	logger.Info("Memory cleanup completed",
		zap.String("stage", stage),
		zap.Uint64("heap_before_mb", before.HeapAlloc>>20),
		zap.Uint64("heap_after_mb", after.HeapAlloc>>20),
	)
}
