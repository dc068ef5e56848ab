package watchdog

// DefaultBufferLines is the per-section line capacity.
const DefaultBufferLines = 5000

// Ring is a bounded line buffer that evicts the oldest line when full.
type Ring struct {
	lines   []string
	start   int
	size    int
	evicted int64
}

// NewRing creates a ring holding at most capacity lines.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultBufferLines
	}
	return &Ring{lines: make([]string, capacity)}
}

// Push appends a line and reports whether an old line was evicted.
func (r *Ring) Push(line string) bool {
	capacity := len(r.lines)
	if r.size < capacity {
		r.lines[(r.start+r.size)%capacity] = line
		r.size++
		return false
	}
	r.lines[r.start] = line
	r.start = (r.start + 1) % capacity
	r.evicted++
	return true
}

// Len is the number of stored lines.
func (r *Ring) Len() int { return r.size }

// Cap is the capacity.
func (r *Ring) Cap() int { return len(r.lines) }

// Evicted counts lines dropped since the last Clear.
func (r *Ring) Evicted() int64 { return r.evicted }

// At returns the i-th stored line, oldest first.
func (r *Ring) At(i int) string {
	if i < 0 || i >= r.size {
		return ""
	}
	return r.lines[(r.start+i)%len(r.lines)]
}

// Slice copies lines [from, to) oldest first, clamped to the stored range.
func (r *Ring) Slice(from, to int) []string {
	if from < 0 {
		from = 0
	}
	if to > r.size {
		to = r.size
	}
	if from >= to {
		return nil
	}
	out := make([]string, 0, to-from)
	for i := from; i < to; i++ {
		out = append(out, r.At(i))
	}
	return out
}

// Lines copies every stored line, oldest first.
func (r *Ring) Lines() []string {
	return r.Slice(0, r.size)
}

// Clear drops all lines.
func (r *Ring) Clear() {
	for i := range r.lines {
		r.lines[i] = ""
	}
	r.start, r.size, r.evicted = 0, 0, 0
}
