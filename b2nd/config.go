package b2nd

import (
	"os"
	"strconv"
	"sync/atomic"
)

// ForceFilterEnv is the environment variable that forces every slice
// read through the generic filter-pipeline path. A non-zero integer
// value forces; anything else leaves the optimized path enabled.
const ForceFilterEnv = "B2ND_FORCE_FILTER"

var forceFilter atomic.Bool

func init() {
	if v, err := strconv.Atoi(os.Getenv(ForceFilterEnv)); err == nil && v != 0 {
		forceFilter.Store(true)
	}
}

// SetForceFilterPipeline forces (or stops forcing) every slice read
// through the generic filter-pipeline path. The toggle is process-global
// and consulted on every read.
func SetForceFilterPipeline(force bool) {
	forceFilter.Store(force)
}

// ForceFilterPipeline reports whether the generic path is being forced.
func ForceFilterPipeline() bool {
	return forceFilter.Load()
}
