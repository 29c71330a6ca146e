package pipeline

import (
	"fmt"

	"commitgate/internal/errors"
)

// PartitionPaths splits an ordered change set into slots contiguous blocks,
// one per worker. Sizes are rebalanced after each assignment with
// ceil(remaining/slotsLeft), so block lengths never differ by more than one
// and no slot is starved on uneven division. Concatenating the blocks in
// slot order reproduces the input exactly.
func PartitionPaths(paths []string, slots int) ([][]string, error) {
	if slots < 1 {
		return nil, errors.New(errors.ConfigInvalid,
			fmt.Sprintf("worker count must be at least 1, got %d", slots), nil)
	}

	parts := make([][]string, slots)
	idx := 0
	for i := 0; i < slots; i++ {
		remaining := len(paths) - idx
		slotsLeft := slots - i
		size := (remaining + slotsLeft - 1) / slotsLeft
		parts[i] = paths[idx : idx+size]
		idx += size
	}
	return parts, nil
}
