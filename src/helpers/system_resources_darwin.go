//go:build darwin

package helpers

import (
	"os/exec"
	"strconv"
	"strings"
)

// GetTotalSystemMemoryMB asks sysctl for hw.memsize; 0 when unavailable
func GetTotalSystemMemoryMB() int {
	out, err := exec.Command("sysctl", "-n", "hw.memsize").Output()
	if err != nil {
		return 0
	}

	size, err := strconv.ParseUint(strings.TrimSpace(string(out)), 10, 64)
	if err != nil {
		return 0
	}
	return int(size >> 20)
}
