// Package sysmem detects how much memory the process can use.
//
// On Linux a cgroup memory limit lower than physical RAM wins, so a
// containerized run sizes its store transactions to the container.
package sysmem

// DefaultMemoryBytes is the fallback memory value (4 GB) used when
// platform-specific detection fails or is unsupported.
const DefaultMemoryBytes uint64 = 4 * 1024 * 1024 * 1024

// Result holds the result of memory detection.
type Result struct {
	// TotalBytes is the usable memory in bytes.
	TotalBytes uint64

	// Reliable is false when TotalBytes is DefaultMemoryBytes.
	Reliable bool
}

// Total returns the usable memory, or DefaultMemoryBytes with
// Reliable=false when detection fails.
func Total() Result {
	bytes, ok := totalSystemMemory()
	if !ok || bytes == 0 {
		return Result{TotalBytes: DefaultMemoryBytes}
	}
	return Result{TotalBytes: bytes, Reliable: true}
}
