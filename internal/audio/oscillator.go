// internal/audio/oscillator.go
package audio

import (
	"math"

	"go_cas_packager/internal/constants"
)

// oscillator renders square wave cycles. the length of a cycle is rounded to
// whole samples and the rounding error is carried into the next cycle, so
// the signal never drifts from the ideal timing by more than half a sample.
// with out == nil it only counts samples, which is how blocks are planned.
type oscillator struct {
	rate  float64
	carry float64
	out   []byte
	n     int // samples produced so far
}

// cycle emits one period at freq: the first half high, the rest low.
func (o *oscillator) cycle(freq float64) {
	exact := o.rate/freq + o.carry
	n := int(math.Round(exact))
	o.carry = exact - float64(n)
	if o.out != nil {
		half := o.n + n/2
		for i := o.n; i < half; i++ {
			o.out[i] = constants.LevelHigh
		}
		for i := half; i < o.n+n; i++ {
			o.out[i] = constants.LevelLow
		}
	}
	o.n += n
}

// silence emits samples at the centre level. it does not touch the carry.
func (o *oscillator) silence(samples int) {
	if o.out != nil {
		for i := o.n; i < o.n+samples; i++ {
			o.out[i] = constants.LevelSilence
		}
	}
	o.n += samples
}

// bit emits one bit: a 0 is one cycle at the low frequency, a 1 two cycles at
// twice that, so both take the same time.
func (o *oscillator) bit(p Profile, one bool) {
	if one {
		o.cycle(p.highFreq())
		o.cycle(p.highFreq())
		return
	}
	o.cycle(p.lowFreq())
}

// frame emits b framed as on the msx cassette port: start bit, eight data
// bits lsb first, stop bits.
func (o *oscillator) frame(p Profile, b byte) {
	for i := 0; i < constants.StartBits; i++ {
		o.bit(p, false)
	}
	for i := 0; i < 8; i++ {
		o.bit(p, b&(1<<i) != 0)
	}
	for i := 0; i < constants.StopBits; i++ {
		o.bit(p, true)
	}
}
