//go:build linux

package sysmem

import (
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// cgroup limit files, v2 first.
var cgroupLimitFiles = []string{
	"/sys/fs/cgroup/memory.max",
	"/sys/fs/cgroup/memory/memory.limit_in_bytes",
}

func totalSystemMemory() (uint64, bool) {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return 0, false
	}
	total := info.Totalram * uint64(info.Unit)

	if limit, ok := cgroupLimit(); ok && limit < total {
		return limit, true
	}
	return total, true
}

func cgroupLimit() (uint64, bool) {
	for _, path := range cgroupLimitFiles {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if v, ok := parseCgroupLimit(string(data)); ok {
			return v, true
		}
	}
	return 0, false
}

// parseCgroupLimit parses a limit file; "max" means unlimited.
func parseCgroupLimit(s string) (uint64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s == "max" {
		return 0, false
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil || v == 0 {
		return 0, false
	}
	return v, true
}
