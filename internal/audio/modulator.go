// internal/audio/modulator.go

// package audio turns a .cas container into the signal an msx cassette port
// expects: 8-bit pcm samples, one segment (silence, leader tone, data) per
// container block.
package audio

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"go_cas_packager/internal/cas"
	"go_cas_packager/internal/idx"
)

// struct holding metadata for each rendered block.
type IndexEntry struct {
	Block         int     // block number within the container
	StartSample   int     // first sample of the block (start of its silence)
	LeaderSample  int     // first sample of the leader tone
	DataSample    int     // first sample of the data (first start bit)
	EndSample     int     // last sample of the block (inclusive)
	Type          string  // block role: "header", "data" or "custom"
	StartTime     float64 // block start in seconds
	StartPosition int     // offset of the block's sync marker in the container
	EndPosition   int     // last byte of the block in the container (inclusive)
	Name          string  // name of the tape file the block belongs to
	Entry         int     // index of that tape file
	IDXTag        string  // tag from an .idx file; empty if no file or no match
}

// Tag returns the idx tag if there is one, otherwise the file name.
func (e IndexEntry) Tag() string {
	if e.IDXTag != "" {
		return e.IDXTag
	}
	return e.Name
}

// ProgressEvent reports a rendered block.
type ProgressEvent struct {
	Block   int // blocks rendered so far
	Blocks  int // blocks in the container
	Samples int // samples rendered so far
	Total   int // samples in the whole signal
}

// ProgressFunc receives progress events. calls are serialised.
type ProgressFunc func(ProgressEvent)

// Option configures a Modulator.
type Option func(*Modulator)

// WithProfile sets the signal timing. the default is DefaultProfile().
func WithProfile(p Profile) Option {
	return func(m *Modulator) { m.profile = p }
}

// WithWorkers sets how many blocks are rendered at once. values below 1
// select runtime.GOMAXPROCS(0).
func WithWorkers(n int) Option {
	return func(m *Modulator) { m.workers = n }
}

// WithProgress sets a callback invoked once per rendered block.
func WithProgress(fn ProgressFunc) Option {
	return func(m *Modulator) { m.progress = fn }
}

// WithLogger sets the logger. by default nothing is logged.
func WithLogger(l *slog.Logger) Option {
	return func(m *Modulator) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithIndex tags the rendered blocks with the names of an .idx file.
func WithIndex(entries []idx.IDXEntry) Option {
	return func(m *Modulator) { m.idx = entries }
}

// Modulator renders containers to pcm samples.
type Modulator struct {
	profile  Profile
	workers  int
	progress ProgressFunc
	logger   *slog.Logger
	idx      []idx.IDXEntry
}

// NewModulator returns a modulator with the given options applied.
func NewModulator(opts ...Option) *Modulator {
	m := &Modulator{
		profile: DefaultProfile(),
		workers: 1,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.workers < 1 {
		m.workers = runtime.GOMAXPROCS(0)
	}
	return m
}

// Profile returns the timing the modulator renders with.
func (m *Modulator) Profile() Profile { return m.profile }

// plan is the layout of one block in the output.
type plan struct {
	start   int     // first sample
	samples int     // sample count
	leader  int     // leader offset within the block
	data    int     // data offset within the block
	carry   float64 // oscillator carry when the block starts
}

// Modulate frames buf and renders every block. an empty container gives an
// empty signal. the layout of every block (length and starting carry) is
// worked out first, in order, so blocks can then be rendered concurrently
// and the result is identical to a sequential run.
func (m *Modulator) Modulate(ctx context.Context, buf []byte) ([]byte, []IndexEntry, error) {
	if err := m.profile.Validate(); err != nil {
		return nil, nil, err
	}
	blocks, err := cas.Frame(buf)
	if err != nil {
		return nil, nil, fmt.Errorf("error framing container: %w", err)
	}

	plans, total := m.plan(blocks)
	pcm := make([]byte, total)
	m.logger.Debug("modulating", "blocks", len(blocks), "samples", total, "duration", m.profile.Duration(total), "workers", m.workers)

	var (
		mu      sync.Mutex
		done    int
		written int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers)
	for i := range blocks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			p := plans[i]
			m.render(blocks[i], p, pcm[p.start:p.start+p.samples])

			if m.progress != nil {
				mu.Lock()
				done++
				written += p.samples
				m.progress(ProgressEvent{Block: done, Blocks: len(blocks), Samples: written, Total: total})
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("modulation cancelled: %w", err)
	}

	index := buildIndex(blocks, plans, m.profile)
	return pcm, mergeIDXData(index, m.idx), nil
}

// plan counts the samples of every block, threading the oscillator carry
// through the whole transfer.
func (m *Modulator) plan(blocks []cas.Block) ([]plan, int) {
	plans := make([]plan, len(blocks))
	osc := oscillator{rate: float64(m.profile.SampleRate)}
	for i, b := range blocks {
		plans[i].start = osc.n
		plans[i].carry = osc.carry
		leader, data := m.segment(&osc, b)
		plans[i].leader = leader - plans[i].start
		plans[i].data = data - plans[i].start
		plans[i].samples = osc.n - plans[i].start
		m.logger.Debug("block planned", "block", i, "role", b.Role, "offset", b.Offset, "bytes", len(b.Data), "samples", plans[i].samples)
	}
	return plans, osc.n
}

// render writes block b into out, which holds exactly the planned samples.
func (m *Modulator) render(b cas.Block, p plan, out []byte) {
	osc := oscillator{rate: float64(m.profile.SampleRate), carry: p.carry, out: out}
	m.segment(&osc, b)
}

// segment emits silence, leader and data of one block and returns the sample
// positions where the leader and the data start. file headers and custom
// blocks start a transfer and get the long silence and leader.
func (m *Modulator) segment(osc *oscillator, b cas.Block) (leader, data int) {
	long := b.Role != cas.RoleData
	osc.silence(m.profile.silenceSamples(long))

	leader = osc.n
	for range m.profile.leaderCycles(long) {
		osc.cycle(m.profile.highFreq())
	}

	data = osc.n
	for _, v := range b.Data {
		osc.frame(m.profile, v)
	}
	return leader, data
}

func buildIndex(blocks []cas.Block, plans []plan, p Profile) []IndexEntry {
	index := make([]IndexEntry, len(blocks))
	names := make(map[int]string)
	for i, b := range blocks {
		if b.Role == cas.RoleHeader {
			names[b.Entry] = b.Name()
		}
		pl := plans[i]
		index[i] = IndexEntry{
			Block:         i,
			StartSample:   pl.start,
			LeaderSample:  pl.start + pl.leader,
			DataSample:    pl.start + pl.data,
			EndSample:     pl.start + pl.samples - 1,
			Type:          b.Role.String(),
			StartTime:     float64(pl.start) / float64(p.SampleRate),
			StartPosition: b.Offset,
			EndPosition:   b.End() - 1,
			Name:          names[b.Entry],
			Entry:         b.Entry,
		}
	}
	return index
}
