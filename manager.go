// Package memattr tracks, for a single contiguous guest memory region, the
// per-page shared/private attribute and propagates attribute transitions to
// subscribed discard listeners.
package memattr

import (
	"fmt"

	"github.com/nmxmxh/memattr/internal/bitmap"
	"github.com/nmxmxh/memattr/internal/logx"
)

// Config configures a Manager at construction time.
type Config struct {
	// Logger receives the manager's diagnostic output. Defaults to an
	// Info-level logger tagged "memattr" if nil.
	Logger *logx.Logger
	// PageSize, if non-zero, overrides the granularity reported by the
	// bound Region. It must equal the Region's own PageSize() — this
	// mirrors the original source's realize-time assertion that the
	// tracked granularity is the host's real page size.
	PageSize uint64
}

// Manager is the memory attribute manager: the bitmap, the listener
// registry, and the state-change operations bound together. All
// operations on a single Manager execute under the caller's external
// serialization — Manager itself does not take a lock. A real lock here
// would deadlock a listener that (incorrectly) calls back into the manager
// synchronously.
type Manager struct {
	region Region
	bits   *bitmap.Bitmap

	pageSize   uint64
	regionSize uint64

	reg *registry

	log   *logx.Logger
	dedup *logx.Dedup
}

// NewManager constructs an unrealized Manager. Call Realize before
// registering listeners or calling StateChange.
func NewManager(cfg Config) *Manager {
	log := cfg.Logger
	if log == nil {
		log = logx.Default("memattr")
	}
	return &Manager{
		log:      log,
		reg:      newRegistry(),
		dedup:    logx.NewDedup(64),
		pageSize: cfg.PageSize,
	}
}

// Realize binds the manager to region, allocating a bitmap sized to
// ceil(region_size / pageSize), all bits clear.
func (m *Manager) Realize(region Region) error {
	pageSize := region.PageSize()
	if m.regionSize != 0 {
		programmerError("Realize", "manager is already bound to a region")
	}
	if cfgPageSize := m.pageSize; cfgPageSize != 0 && cfgPageSize != pageSize {
		programmerError("Realize", fmt.Sprintf(
			"configured page size %d does not match region page size %d", cfgPageSize, pageSize))
	}
	if pageSize == 0 {
		programmerError("Realize", "region reports a zero page size")
	}

	size := region.Size()
	n := (size + pageSize - 1) / pageSize

	m.region = region
	m.pageSize = pageSize
	m.regionSize = size
	m.bits = bitmap.New(n)
	return nil
}

// Unrealize releases the bitmap and unbinds the region. Concurrent
// operations racing with Unrealize are the caller's responsibility to
// avoid.
func (m *Manager) Unrealize() {
	m.region = nil
	m.bits = nil
	m.regionSize = 0
	m.reg = newRegistry()
}

func (m *Manager) assertRealized(op string) {
	if m.bits == nil {
		programmerError(op, "manager is not realized")
	}
}

// MinGranularity returns the page size this manager tracks at, asserting
// that region is the bound region.
func (m *Manager) MinGranularity(region Region) uint64 {
	m.assertRealized("MinGranularity")
	if region != m.region {
		programmerError("MinGranularity", "region does not match the bound region")
	}
	return m.pageSize
}

// IsPopulated reports whether every page in section is currently shared.
func (m *Manager) IsPopulated(section Section) bool {
	m.assertRealized("IsPopulated")
	firstBit := section.Offset / m.pageSize
	nbits := section.Size / m.pageSize
	if nbits == 0 {
		return true
	}
	return m.bits.RangeAllSet(firstBit, nbits)
}

// RegisterListener subscribes l over section, which must lie entirely
// within the bound region. The manager copies section, inserts l at the
// head of the listener list, then replays populate callbacks for every
// currently-shared run intersecting section. A replay failure is logged
// (deduplicated per listener+range, see internal/logx) and does not remove
// the listener or undo the registration.
func (m *Manager) RegisterListener(l Listener, section Section) {
	m.assertRealized("RegisterListener")
	if section.Offset+section.Size > m.regionSize || section.End() < section.Offset {
		programmerError("RegisterListener", "section does not lie within the bound region")
	}
	if m.reg.has(l) {
		programmerError("RegisterListener", "listener is already registered")
	}

	m.reg.insertHead(l, section)

	populatedSections(m.bits, m.pageSize, section, func(run Section) int {
		if err := l.NotifyPopulate(run); err != nil {
			firstBit := run.Offset / m.pageSize
			lastBit := run.End()/m.pageSize - 1
			key := logx.ListenerRangeKey(fmt.Sprintf("%p", l), firstBit, lastBit)
			if !m.dedup.Seen(key) {
				m.log.Warn("replay populate failed, listener stays registered",
					logx.Uint64("offset", run.Offset),
					logx.Uint64("size", run.Size),
					logx.Err(err))
			}
		}
		return 0 // replay failures never stop or undo registration
	})
}

// UnregisterListener tears down l's view of the region: every currently-
// shared run in l's section is discarded to l (balancing its prior
// populate notifications), then l is removed.
func (m *Manager) UnregisterListener(l Listener) {
	m.assertRealized("UnregisterListener")
	section, ok := m.reg.remove(l)
	if !ok {
		programmerError("UnregisterListener", "listener was not registered")
	}

	populatedSections(m.bits, m.pageSize, section, func(run Section) int {
		l.NotifyDiscard(run)
		return 0
	})
}

// ReplayPopulated walks the maximal shared runs intersecting section,
// invoking fn per run, stopping at and propagating the first non-zero
// return.
func (m *Manager) ReplayPopulated(section Section, fn ReplayFunc, opaque interface{}) int {
	m.assertRealized("ReplayPopulated")
	return populatedSections(m.bits, m.pageSize, section, func(s Section) int {
		return fn(s, opaque)
	})
}

// ReplayDiscarded is ReplayPopulated's dual over private runs.
func (m *Manager) ReplayDiscarded(section Section, fn ReplayFunc, opaque interface{}) int {
	m.assertRealized("ReplayDiscarded")
	return discardedSections(m.bits, m.pageSize, section, func(s Section) int {
		return fn(s, opaque)
	})
}

// StateChange applies a shared<->private transition to [offset, offset+size).
// It validates the range, mutates the bitmap, and notifies listeners,
// rolling back to the pre-call state on any listener failure.
func (m *Manager) StateChange(offset, size uint64, toPrivate bool) error {
	m.assertRealized("StateChange")
	if !isValidRange(m.regionSize, m.pageSize, offset, size) {
		m.log.Warn("invalid range in StateChange",
			logx.Uint64("offset", offset), logx.Uint64("size", size))
		return newError("StateChange", ErrCodeInvalidRange, nil)
	}
	return m.stateChange(offset, size, toPrivate)
}
