package heap

// depot.go implements the per-size-class depot of §3/§5: two
// singly-linked lists of magazines (full and empty), protected by one
// spinlock per size class. The fast allocate/free path never touches
// the depot at all — it only runs when a thread cache's loaded
// magazine is exhausted or full, which is why a single spinlock per
// class (rather than something lock-free) is an acceptable cost per
// §5's own reasoning.
//
// No pack repo depots magazines; this is plain linked-list bookkeeping
// directly on the magazine type above, grounded on the shape of the
// teacher's pool_flist.go free list (a singly-linked list of reusable
// blocks) generalized one level up to a list of magazines instead of a
// list of chunks.
type depot struct {
	lock  spinlock
	full  *magazine
	empty *magazine
}

// putFull pushes a full magazine onto the full list.
func (d *depot) putFull(m *magazine) {
	d.lock.Lock()
	m.next = d.full
	d.full = m
	d.lock.Unlock()
}

// putEmpty pushes an empty magazine onto the empty list.
func (d *depot) putEmpty(m *magazine) {
	d.lock.Lock()
	m.next = d.empty
	d.empty = m
	d.lock.Unlock()
}

// getFull pops a full magazine, or nil if none are available.
func (d *depot) getFull() *magazine {
	d.lock.Lock()
	defer d.lock.Unlock()
	m := d.full
	if m != nil {
		d.full = m.next
		m.next = nil
	}
	return m
}

// getEmpty pops an empty magazine, or nil if none are available.
func (d *depot) getEmpty() *magazine {
	d.lock.Lock()
	defer d.lock.Unlock()
	m := d.empty
	if m != nil {
		d.empty = m.next
		m.next = nil
	}
	return m
}
