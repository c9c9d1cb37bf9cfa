package logx

import (
	"fmt"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

// Dedup suppresses repeat log lines for the same key, so a listener whose
// backing I/O-mapping subsystem is chronically down doesn't flood the log
// with one replay-failure line per registration retry. Membership is
// approximate (a bloom filter): a recorded key is always reported as seen,
// so no key is logged twice, but a false positive can report a new key as
// seen, so its line is never logged at all.
type Dedup struct {
	mu     sync.Mutex
	filter *bloom.BloomFilter
}

// NewDedup sizes the filter for an expected number of distinct keys with a
// 1% false-positive rate.
func NewDedup(expectedKeys uint) *Dedup {
	return &Dedup{filter: bloom.NewWithEstimates(expectedKeys, 0.01)}
}

// Seen reports whether key has already been recorded, recording it as a
// side effect of the first call.
func (d *Dedup) Seen(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	b := []byte(key)
	if d.filter.Test(b) {
		return true
	}
	d.filter.Add(b)
	return false
}

// ListenerRangeKey builds the dedup key for a (listener, page-range) pair.
func ListenerRangeKey(listenerID string, firstBit, lastBit uint64) string {
	return fmt.Sprintf("%s:%d-%d", listenerID, firstBit, lastBit)
}
