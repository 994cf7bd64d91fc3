package audio

import (
	"sync"
	"sync/atomic"

	"github.com/cwbudde/algo-vecmath"
)

// Snapshot grid dimensions
const (
	GridRows    = 256
	GridCols    = 16
	DefaultFPS  = 60
	MaxGridVals = 256 // averages written per flush
)

// Grid is the decimated signal handed to the visualizer
type Grid [GridRows][GridCols]float32

// Snapshot is one published grid
type Snapshot struct {
	Grid  Grid
	Count int    // averages written, row-major
	Seq   uint64 // increases with every publish
}

// Values returns the written averages in order
func (s *Snapshot) Values() []float32 {
	out := make([]float32, 0, s.Count)
	for i := 0; i < s.Count; i++ {
		out = append(out, s.Grid[i/GridCols][i%GridCols])
	}
	return out
}

// tripleBuffer lets one producer publish while one consumer reads a
// complete copy; neither side waits for the other.
type tripleBuffer struct {
	bufs   [3]Snapshot
	back   uint32        // producer owned
	middle atomic.Uint32 // index | dirtyBit
	front  uint32        // consumer owned, guarded by readMu
	readMu sync.Mutex
}

const dirtyBit = 4

func newTripleBuffer() *tripleBuffer {
	tb := &tripleBuffer{back: 0, front: 2}
	tb.middle.Store(1)
	return tb
}

// writeBuf returns the slot the producer may fill
func (tb *tripleBuffer) writeBuf() *Snapshot { return &tb.bufs[tb.back] }

// publish swaps the filled slot into the middle
func (tb *tripleBuffer) publish() {
	prev := tb.middle.Swap(tb.back | dirtyBit)
	tb.back = prev &^ dirtyBit
}

// read returns a copy of the newest published snapshot
func (tb *tripleBuffer) read() Snapshot {
	tb.readMu.Lock()
	defer tb.readMu.Unlock()
	if tb.middle.Load()&dirtyBit != 0 {
		prev := tb.middle.Swap(tb.front)
		tb.front = prev &^ dirtyBit
	}
	return tb.bufs[tb.front]
}

// Decimator box-filters the output into snapshot grids
type Decimator struct {
	factor int
	acc    []float64
	seq    uint64
	tb     *tripleBuffer
}

// NewDecimator averages sampleRate/fps samples into each grid value
func NewDecimator(sampleRate float64, fps int) *Decimator {
	if fps <= 0 {
		fps = DefaultFPS
	}
	factor := max(int(sampleRate/float64(fps)), 1)
	return &Decimator{
		factor: factor,
		acc:    make([]float64, 0, 4*factor),
		tb:     newTripleBuffer(),
	}
}

// Factor returns the number of samples per average
func (d *Decimator) Factor() int { return d.factor }

// Write accumulates samples and publishes a grid once at least one full
// chunk is available. Called from the audio goroutine only.
func (d *Decimator) Write(samples []float64) {
	d.acc = append(d.acc, samples...)
	if len(d.acc) < d.factor {
		return
	}

	snap := d.tb.writeBuf()
	snap.Grid = Grid{}
	n := 0
	for off := 0; off < len(d.acc) && n < MaxGridVals; off += d.factor {
		chunk := d.acc[off:min(off+d.factor, len(d.acc))]
		avg := vecmath.Sum(chunk) / float64(len(chunk))
		snap.Grid[n/GridCols][n%GridCols] = float32(avg)
		n++
	}
	d.seq++
	snap.Count = n
	snap.Seq = d.seq
	d.tb.publish()
	d.acc = d.acc[:0]
}

// Snapshot returns the latest complete grid. Safe from any goroutine.
func (d *Decimator) Snapshot() Snapshot {
	return d.tb.read()
}
