package engine

// windowBits is the number of recent event ids an EventWindow remembers
const windowBits = 256

// EventWindow is a wrap-around presence bitmap over the most recent event
// ids. It only feeds diagnostics: losing it never changes applied state.
type EventWindow struct {
	bits [windowBits / 64]uint64
	high int
}

func (w *EventWindow) slot(id int) (int, uint64) {
	i := id % windowBits
	return i / 64, 1 << (i % 64)
}

func (w *EventWindow) set(id int) {
	word, mask := w.slot(id)
	w.bits[word] |= mask
}

func (w *EventWindow) clear(id int) {
	word, mask := w.slot(id)
	w.bits[word] &^= mask
}

// Observe records id and reports whether it was already seen. Ids older
// than the window are reported as duplicates.
func (w *EventWindow) Observe(id int) (duplicate bool) {
	if id <= 0 {
		return false
	}
	if id > w.high {
		if id-w.high >= windowBits {
			w.bits = [windowBits / 64]uint64{}
		} else {
			for i := w.high + 1; i < id; i++ {
				w.clear(i)
			}
			w.clear(id)
		}
		w.high = id
		w.set(id)
		return false
	}
	if w.high-id >= windowBits {
		return true
	}
	word, mask := w.slot(id)
	if w.bits[word]&mask != 0 {
		return true
	}
	w.bits[word] |= mask
	return false
}

// Missing counts ids inside the window that have not been observed
func (w *EventWindow) Missing() int {
	n := 0
	lo := max(1, w.high-windowBits+1)
	for id := lo; id <= w.high; id++ {
		word, mask := w.slot(id)
		if w.bits[word]&mask == 0 {
			n++
		}
	}
	return n
}

// High returns the largest id observed
func (w *EventWindow) High() int { return w.high }
