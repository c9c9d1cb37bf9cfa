package memattr

import "github.com/nmxmxh/memattr/internal/bitmap"

// notifyDiscardAll delivers a discard to every registered listener: for each
// one, clip [offset, offset+size) against its section and, if non-empty,
// deliver notify_discard. Void: discard cannot fail.
func (m *Manager) notifyDiscardAll(offset, size uint64) {
	m.reg.forEach(func(rec *listenerRecord) bool {
		if clipped, ok := clip(rec.section, offset, size); ok {
			rec.listener.NotifyDiscard(clipped)
		}
		return true
	})
}

// notifyPopulateAll delivers a populate to every registered listener in
// registry order, clipping against each listener's section. On the first
// failure, it rolls back by delivering notify_discard to every listener
// notified so far (up to but excluding the failing one), then returns the
// error — no listener is left believing it holds a mapping that the
// overall state change did not commit to.
func (m *Manager) notifyPopulateAll(offset, size uint64) error {
	var failed *listenerRecord
	var failErr error

	m.reg.forEach(func(rec *listenerRecord) bool {
		clipped, ok := clip(rec.section, offset, size)
		if !ok {
			return true
		}
		if err := rec.listener.NotifyPopulate(clipped); err != nil {
			failed = rec
			failErr = err
			return false
		}
		return true
	})

	if failed == nil {
		return nil
	}

	m.reg.forEach(func(rec *listenerRecord) bool {
		if rec == failed {
			return false
		}
		if clipped, ok := clip(rec.section, offset, size); ok {
			rec.listener.NotifyDiscard(clipped)
		}
		return true
	})

	return failErr
}

// stateChange applies a validated shared<->private transition end to end.
// It is invoked by Manager's public StateChange after range validation.
func (m *Manager) stateChange(offset, size uint64, toPrivate bool) error {
	pageSize := m.pageSize
	firstBit := offset / pageSize
	nbits := size / pageSize
	end := offset + size

	populated := m.bits.RangeAllSet(firstBit, nbits)
	discarded := m.bits.RangeAllClear(firstBit, nbits)

	if toPrivate {
		switch {
		case discarded:
			return nil // already fully private
		case populated:
			m.bits.ClearRange(firstBit, nbits)
			m.notifyDiscardAll(offset, size)
			return nil
		default:
			return m.stateChangeMixedToPrivate(offset, end, pageSize)
		}
	}

	switch {
	case populated:
		return nil // already fully shared
	case discarded:
		return m.stateChangeFullToShared(offset, size, firstBit, nbits)
	default:
		return m.stateChangeMixedToShared(offset, end, pageSize, firstBit)
	}
}

// stateChangeMixedToPrivate handles a mixed to_private=true range: for each
// page in range, clear+discard only the ones currently set.
func (m *Manager) stateChangeMixedToPrivate(offset, end, pageSize uint64) error {
	for cur := offset; cur < end; cur += pageSize {
		bit := cur / pageSize
		if !m.bits.Test(bit) {
			continue
		}
		m.bits.ClearRange(bit, 1)
		m.notifyDiscardAll(cur, pageSize)
	}
	return nil
}

// stateChangeFullToShared handles a fully-discarded to_private=false range:
// set the whole range, notify once, and undo entirely on failure.
func (m *Manager) stateChangeFullToShared(offset, size, firstBit, nbits uint64) error {
	m.bits.SetRange(firstBit, nbits)
	if err := m.notifyPopulateAll(offset, size); err != nil {
		m.bits.ClearRange(firstBit, nbits)
		return newError("StateChange", ErrCodeListenerPopulate, err)
	}
	return nil
}

// stateChangeMixedToShared handles a mixed to_private=false range: set and
// notify page by page, tracking which bits this call actually flipped in a
// side bitmap so a mid-pass failure can be undone exactly.
func (m *Manager) stateChangeMixedToShared(offset, end, pageSize, firstBit uint64) error {
	nbits := (end - offset) / pageSize
	modified := bitmap.New(nbits)

	var failErr error
	for cur := offset; cur < end; cur += pageSize {
		bit := cur / pageSize
		if m.bits.Test(bit) {
			continue
		}
		m.bits.SetRange(bit, 1)
		if err := m.notifyPopulateAll(cur, pageSize); err != nil {
			m.bits.ClearRange(bit, 1)
			failErr = err
			break
		}
		modified.SetRange(bit-firstBit, 1)
	}

	if failErr == nil {
		return nil
	}

	for cur := offset; cur < end; cur += pageSize {
		bit := cur / pageSize
		if !modified.Test(bit - firstBit) {
			continue
		}
		m.bits.ClearRange(bit, 1)
		m.notifyDiscardAll(cur, pageSize)
	}

	return newError("StateChange", ErrCodeListenerPopulate, failErr)
}
