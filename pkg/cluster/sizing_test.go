package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDesiredWorkers(t *testing.T) {
	tests := []struct {
		name                              string
		min, max                          int
		maxMem, primaryMem, reservedMem   int64
		workerMem                         int64
		expected                          int
	}{
		{
			name: "no memory constraint returns max",
			min:  1, max: 4,
			maxMem: 0, primaryMem: 0, reservedMem: 0, workerMem: 0,
			expected: 4,
		},
		{
			name: "memory budget limits below max",
			min:  1, max: 8,
			maxMem: 1024, primaryMem: 64, reservedMem: 64, workerMem: 256,
			expected: 3,
		},
		{
			name: "floors at min when budget is tiny",
			min:  2, max: 8,
			maxMem: 100, primaryMem: 64, reservedMem: 64, workerMem: 256,
			expected: 2,
		},
		{
			name: "hard floor of 1 with min unset",
			min:  0, max: 4,
			maxMem: 0, primaryMem: 0, reservedMem: 0, workerMem: 1,
			expected: 1,
		},
		{
			name: "negative budget clamps to min",
			min:  1, max: 4,
			maxMem: 64, primaryMem: 64, reservedMem: 64, workerMem: 256,
			expected: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := desiredWorkers(tt.min, tt.max, tt.maxMem, tt.primaryMem, tt.reservedMem, tt.workerMem)
			assert.Equal(t, tt.expected, got)
		})
	}
}
