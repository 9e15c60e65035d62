//go:build darwin || freebsd || openbsd || netbsd || dragonfly

package sysmem

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// sysctl names holding physical memory in bytes, tried in order.
func sysctlNames() []string {
	if runtime.GOOS == "darwin" {
		return []string{"hw.memsize"}
	}
	return []string{"hw.physmem", "hw.realmem"}
}

func totalSystemMemory() (uint64, bool) {
	for _, name := range sysctlNames() {
		if mem, err := unix.SysctlUint64(name); err == nil && mem > 0 {
			return mem, true
		}
	}
	return 0, false
}
