package cluster

// desiredWorkers computes the worker pool size from the configured memory
// budget: clamp(min, min(max, floor((maxMem - primaryMem - reservedMem) /
// workerMem))), with a hard floor of 1. A zero workerMem means "no memory
// constraint", returning max directly.
func desiredWorkers(min, max int, maxMem, primaryMem, reservedMem, workerMem int64) int {
	if min < 1 {
		min = 1
	}
	if max < min {
		max = min
	}

	if workerMem <= 0 {
		return max
	}

	budget := maxMem - primaryMem - reservedMem
	if budget < 0 {
		budget = 0
	}

	byMemory := int(budget / workerMem)

	desired := byMemory
	if desired > max {
		desired = max
	}
	if desired < min {
		desired = min
	}
	if desired < 1 {
		desired = 1
	}
	return desired
}
