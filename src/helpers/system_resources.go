package helpers

import "runtime"

// -----------------------------------------------------------------------------

// RuntimeStats is the process snapshot reported by the health endpoint
type RuntimeStats struct {
	Goroutines         int    `json:"goroutines"`
	HeapAllocMB        uint64 `json:"heap_alloc_mb"`
	SystemMemoryMB     int    `json:"system_memory_mb"`
	RecommendedLimitMB int    `json:"recommended_limit_mb"`
}

// CollectRuntimeStats reads Go runtime counters and host memory
func CollectRuntimeStats() RuntimeStats {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	total := GetTotalSystemMemoryMB()
	return RuntimeStats{
		Goroutines:         runtime.NumGoroutine(),
		HeapAllocMB:        ms.HeapAlloc / 1024 / 1024,
		SystemMemoryMB:     total,
		RecommendedLimitMB: RecommendedMemoryLimit(total),
	}
}

// -----------------------------------------------------------------------------

// RecommendedMemoryLimit is 75% of totalMB, at least 512MB when the host has it.
// Unknown host memory (0) yields 512.
func RecommendedMemoryLimit(totalMB int) int {
	if totalMB <= 0 {
		return 512
	}

	limit := int(float64(totalMB) * 0.75)
	if limit < 512 {
		if totalMB < 512 {
			return totalMB
		}
		return 512
	}
	return limit
}
