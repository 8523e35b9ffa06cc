package reactive

// Batch defers notifications until fn (and every enclosing batch) returns.
// Listeners touched several times are notified once.
//
//	reactive.Batch(func() {
//	    first.Set("Ada")
//	    last.Set("Lovelace")
//	})
func Batch(fn func()) {
	st := current()
	st.batchDepth++
	defer func() {
		st.batchDepth--
		if st.batchDepth == 0 {
			flushPending(st)
		}
	}()
	fn()
}

func flushPending(st *trackingState) {
	queued := st.pending
	st.pending = nil
	if len(queued) == 0 {
		return
	}

	seen := make(map[uint64]struct{}, len(queued))
	for _, l := range queued {
		if _, dup := seen[l.ID()]; dup {
			continue
		}
		seen[l.ID()] = struct{}{}
		l.MarkDirty()
	}
}
