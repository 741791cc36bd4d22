package engine

import (
	"sync"

	"github.com/roach88/profilegen/internal/fieldspec"
)

// RowSpecDeduper drops RowSpecs a partition walk has already produced.
//
// Different option paths can reach the same RowSpec: an Or whose branches
// overlap, or a reductive walk fixing two values that prune to the same
// tree. Without deduplication the duplicates multiply through the
// cross-partition product.
//
// History is kept per partition because RowSpecs of different partitions
// cover disjoint fields and are never compared.
type RowSpecDeduper struct {
	mu      sync.Mutex
	history map[int]map[string]bool // map[partition]map[rowspec]bool
}

// NewRowSpecDeduper creates an empty deduper.
func NewRowSpecDeduper() *RowSpecDeduper {
	return &RowSpecDeduper{
		history: make(map[int]map[string]bool),
	}
}

// Observe records rs for partition and reports whether it is new.
//
// Thread-safe: partitions are walked concurrently.
func (d *RowSpecDeduper) Observe(partition int, rs fieldspec.RowSpec) bool {
	key := rs.String()

	d.mu.Lock()
	defer d.mu.Unlock()

	seen := d.history[partition]
	if seen == nil {
		seen = make(map[string]bool)
		d.history[partition] = seen
	}
	if seen[key] {
		return false
	}
	seen[key] = true
	return true
}

// Clear drops the history of a partition.
func (d *RowSpecDeduper) Clear(partition int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.history, partition)
}

// Size returns how many distinct RowSpecs partition has produced.
func (d *RowSpecDeduper) Size(partition int) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.history[partition])
}
