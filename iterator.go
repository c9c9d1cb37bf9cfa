package memattr

import "github.com/nmxmxh/memattr/internal/bitmap"

// sectionCB is invoked once per maximal contiguous run found by the
// iterators below. A non-zero return code stops iteration.
type sectionCB func(s Section) int

// populatedSections walks the maximal runs of currently-shared pages
// intersected with query section s, lazily: each run is computed and
// clipped just before its callback fires, nothing is materialized.
func populatedSections(bm *bitmap.Bitmap, pageSize uint64, s Section, cb sectionCB) int {
	return forEachRun(bm, pageSize, s, cb, true)
}

// discardedSections is populatedSections' dual: it walks maximal runs of
// currently-private pages.
func discardedSections(bm *bitmap.Bitmap, pageSize uint64, s Section, cb sectionCB) int {
	return forEachRun(bm, pageSize, s, cb, false)
}

// forEachRun implements both section iterators. findStart locates the
// start of the next run of the sought kind; findEnd locates one past its
// end. Swapping which search starts each phase (set-then-clear for
// populated, clear-then-set for discarded) is the entire difference
// between the two iterators.
func forEachRun(bm *bitmap.Bitmap, pageSize uint64, s Section, cb sectionCB, wantSet bool) int {
	n := bm.Len()
	firstBit := s.Offset / pageSize

	findStart := bm.FindNextClear
	findEnd := bm.FindNextSet
	if wantSet {
		findStart = bm.FindNextSet
		findEnd = bm.FindNextClear
	}

	for firstBit < n {
		runStart := findStart(firstBit)
		if runStart >= n {
			break
		}
		runEnd := findEnd(runStart + 1)

		offset := runStart * pageSize
		size := (runEnd - runStart) * pageSize

		clipped, ok := clip(s, offset, size)
		if ok {
			if ret := cb(clipped); ret != 0 {
				return ret
			}
		} else if offset >= s.End() {
			// Runs only move forward; once we're past s there's nothing
			// left to find inside it.
			break
		}

		firstBit = runEnd
	}
	return 0
}

// ReplayFunc is invoked per run by ReplayPopulated/ReplayDiscarded.
type ReplayFunc func(section Section, opaque interface{}) int
