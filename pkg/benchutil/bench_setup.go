package benchutil

import (
	"os"
	"testing"
)

// EnvLongBench gates the scaling benchmarks.
const EnvLongBench = "WORDVAULT_LONG_BENCH"

// SkipIfNoLongBench skips the benchmark if WORDVAULT_LONG_BENCH is not set.
// Use this to gate long-running benchmarks that shouldn't run by default.
func SkipIfNoLongBench(b *testing.B) {
	if os.Getenv(EnvLongBench) == "" {
		b.Skip("set " + EnvLongBench + "=1 to run scaling benchmark")
	}
}
