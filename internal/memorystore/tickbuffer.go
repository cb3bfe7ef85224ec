package memorystore

// TickBuffer holds the accepted ticks of every instrument since its last
// flush, in arrival order. It is owned by a single goroutine and does no
// locking of its own.
type TickBuffer struct {
	data map[string][]Tick
}

func NewTickBuffer() *TickBuffer {
	return &TickBuffer{
		data: make(map[string][]Tick),
	}
}

// Append adds t to the end of its instrument's buffer.
func (b *TickBuffer) Append(t Tick) {
	b.data[t.InstrumentID] = append(b.data[t.InstrumentID], t)
}

// Len returns the number of ticks buffered for an instrument.
func (b *TickBuffer) Len(instrumentID string) int {
	return len(b.data[instrumentID])
}

// Take returns an instrument's buffered ticks and empties its buffer.
// The returned slice is no longer referenced by the buffer.
func (b *TickBuffer) Take(instrumentID string) []Tick {
	ticks := b.data[instrumentID]
	delete(b.data, instrumentID)
	return ticks
}

// CountAll returns the total number of ticks buffered across all instruments.
func (b *TickBuffer) CountAll() int {
	total := 0
	for _, ticks := range b.data {
		total += len(ticks)
	}
	return total
}
