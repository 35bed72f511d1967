// internal/audio/profile.go
package audio

import (
	"errors"
	"fmt"
	"time"

	"go_cas_packager/internal/constants"
)

// ErrInvalidProfile is returned by Modulate when the profile cannot produce a
// signal the msx bios would load.
var ErrInvalidProfile = errors.New("invalid modulation profile")

// Profile holds the timing of the generated signal. leader lengths are given
// in cycles at 1200 baud and scaled with the baud rate, so a leader lasts the
// same time at either speed.
type Profile struct {
	SampleRate   int
	Baud         int
	LongLeader   int           // leader before a file header or custom block
	ShortLeader  int           // leader before a data block
	LongSilence  time.Duration // silence before a file header or custom block
	ShortSilence time.Duration // silence before a data block
}

// DefaultProfile returns the standard 1200 baud profile at 43200 Hz.
func DefaultProfile() Profile {
	return Profile{
		SampleRate:   constants.SampleRate,
		Baud:         constants.Baud1200,
		LongLeader:   constants.LongLeaderCycles,
		ShortLeader:  constants.ShortLeaderCycles,
		LongSilence:  constants.LongSilenceMillis * time.Millisecond,
		ShortSilence: constants.ShortSilenceMillis * time.Millisecond,
	}
}

// Validate checks that the profile is usable.
func (p Profile) Validate() error {
	if p.Baud != constants.Baud1200 && p.Baud != constants.Baud2400 {
		return fmt.Errorf("%w: baud %d, want %d or %d", ErrInvalidProfile, p.Baud, constants.Baud1200, constants.Baud2400)
	}
	// the shortest cycle (2*baud Hz) needs a high and a low half of at
	// least 2 samples each to survive playback filtering
	if p.SampleRate < 4*2*p.Baud {
		return fmt.Errorf("%w: sample rate %d too low for %d baud", ErrInvalidProfile, p.SampleRate, p.Baud)
	}
	if p.LongLeader <= 0 || p.ShortLeader <= 0 {
		return fmt.Errorf("%w: leader lengths must be positive", ErrInvalidProfile)
	}
	if p.LongSilence < 0 || p.ShortSilence < 0 {
		return fmt.Errorf("%w: negative silence", ErrInvalidProfile)
	}
	return nil
}

// lowFreq is the frequency of a 0 bit, highFreq of a 1 bit and the leader.
func (p Profile) lowFreq() float64  { return float64(p.Baud) }
func (p Profile) highFreq() float64 { return float64(2 * p.Baud) }

func (p Profile) leaderCycles(long bool) int {
	n := p.ShortLeader
	if long {
		n = p.LongLeader
	}
	return n * p.Baud / constants.Baud1200
}

func (p Profile) silenceSamples(long bool) int {
	d := p.ShortSilence
	if long {
		d = p.LongSilence
	}
	return int(int64(p.SampleRate) * d.Milliseconds() / 1000)
}

// Duration converts a sample count to playing time.
func (p Profile) Duration(samples int) time.Duration {
	return time.Duration(samples) * time.Second / time.Duration(p.SampleRate)
}
