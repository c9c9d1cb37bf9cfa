package memattr

// Region is the narrow interface the core consumes from whatever owns the
// backing guest memory. The manager binds to exactly one Region at
// Realize time.
type Region interface {
	// Size returns the region's total size in bytes.
	Size() uint64
	// PageSize returns the host real page size backing this region. The
	// manager asserts this matches the real page size it was configured
	// with.
	PageSize() uint64
}

// StaticRegion is a minimal Region implementation for tests, tools, and
// callers that don't need a full memory-region subsystem behind it.
type StaticRegion struct {
	size     uint64
	pageSize uint64
}

// NewStaticRegion builds a Region of the given size and page granularity.
func NewStaticRegion(size, pageSize uint64) *StaticRegion {
	return &StaticRegion{size: size, pageSize: pageSize}
}

func (r *StaticRegion) Size() uint64     { return r.size }
func (r *StaticRegion) PageSize() uint64 { return r.pageSize }
