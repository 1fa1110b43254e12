package arbiter

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/danmuck/ledctl/internal/observability"
	"github.com/danmuck/ledctl/internal/protocol/frame"
	"github.com/rs/zerolog/log"
)

const (
	DefaultPriority = 5
	DefaultTimeout  = 2 * time.Second
)

// Sink is the display the arbiter dispatches approved effects to.
type Sink interface {
	Clear() error
	Display(height, width uint16, pixels []byte) error
	SetBrightness(level uint8) error
}

// Config tunes staleness and default stream priority.
type Config struct {
	Timeout         time.Duration
	DefaultPriority int
	Now             func() time.Time
}

func DefaultConfig() Config {
	return Config{
		Timeout:         DefaultTimeout,
		DefaultPriority: DefaultPriority,
		Now:             time.Now,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.DefaultPriority < 0 {
		c.DefaultPriority = d.DefaultPriority
	}
	if c.Now == nil {
		c.Now = d.Now
	}
	return c
}

// stream is the arbitration record for one client.
type stream struct {
	client   string
	priority int
	lastSeen time.Time
	active   bool
}

// StreamInfo is a read-only copy of one stream's state.
type StreamInfo struct {
	Client   string    `json:"client"`
	Priority int       `json:"priority"`
	LastSeen time.Time `json:"last_seen"`
	Active   bool      `json:"active"`
}

// Arbiter owns the stream registry and decides which client drives the sink.
// Every method takes the same mutex, so ingestion and election never interleave.
type Arbiter struct {
	mu sync.Mutex

	cfg     Config
	sink    Sink
	streams []*stream
}

// New builds an arbiter dispatching to sink. A zero Timeout or nil Now falls
// back to DefaultConfig; start from DefaultConfig to keep priority 5.
func New(sink Sink, cfg Config) *Arbiter {
	return &Arbiter{
		cfg:     cfg.withDefaults(),
		sink:    sink,
		streams: make([]*stream, 0, 4),
	}
}

// Ingest records one frame from source and applies its immediate effects.
func (a *Arbiter) Ingest(f frame.Frame, source string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	st := a.lookupOrCreate(source)
	st.lastSeen = a.cfg.Now()

	switch v := f.(type) {
	case frame.CommandFrame:
		a.applyCommand(st, v)
	case frame.ImageFrame:
		if st.active {
			a.dispatch("display", func() error { return a.sink.Display(v.Height, v.Width, v.Pixels) })
		}
	default:
		log.Warn().Str("client", source).Str("type", fmt.Sprintf("%T", f)).Msg("arbiter ignoring unknown frame")
	}
}

func (a *Arbiter) applyCommand(st *stream, cmd frame.CommandFrame) {
	switch cmd.Command {
	case frame.SetPriority:
		if st.priority != int(cmd.Value) {
			log.Debug().
				Str("client", st.client).
				Int("from", st.priority).
				Int("to", int(cmd.Value)).
				Msg("stream priority changed")
		}
		st.priority = int(cmd.Value)
	case frame.SetBrightness:
		log.Info().Str("client", st.client).Uint8("level", cmd.Value).Msg("setting brightness")
		a.dispatch("set_brightness", func() error { return a.sink.SetBrightness(cmd.Value) })
	default:
		log.Warn().Str("client", st.client).Stringer("command", cmd.Command).Msg("unknown command ignored")
	}
}

// EvictAndElect drops stale streams, then makes the highest priority stream
// active. Among equal priorities the current active stream keeps its place.
func (a *Arbiter) EvictAndElect() {
	a.mu.Lock()
	defer a.mu.Unlock()

	prev, _ := a.activeLocked()
	cutoff := a.cfg.Now().Add(-a.cfg.Timeout)

	kept := a.streams[:0]
	evicted := 0
	for _, st := range a.streams {
		if st.lastSeen.Before(cutoff) {
			evicted++
			log.Info().
				Str("client", st.client).
				Bool("active", st.active).
				Dur("idle", a.cfg.Now().Sub(st.lastSeen)).
				Msg("stream timed out")
			continue
		}
		kept = append(kept, st)
	}
	for i := len(kept); i < len(a.streams); i++ {
		a.streams[i] = nil
	}
	a.streams = kept
	observability.RecordEvictions(evicted)
	observability.SetStreams(len(a.streams))

	if len(a.streams) == 0 {
		if evicted > 0 {
			log.Info().Msg("stopped receiving data, putting display to sleep")
			a.noteTransition(prev, "")
			a.dispatch("clear", func() error { return a.sink.Clear() })
		}
		return
	}

	sort.SliceStable(a.streams, func(i, j int) bool {
		si, sj := a.streams[i], a.streams[j]
		if si.priority != sj.priority {
			return si.priority > sj.priority
		}
		return si.active && !sj.active
	})
	for i, st := range a.streams {
		st.active = i == 0
	}
	a.noteTransition(prev, a.streams[0].client)
}

func (a *Arbiter) noteTransition(from, to string) {
	if from == to {
		return
	}
	observability.RecordActiveChange()
	log.Info().Str("from", from).Str("to", to).Msg("active stream changed")
}

// Run calls EvictAndElect every interval until ctx is done.
func (a *Arbiter) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			a.EvictAndElect()
		}
	}
}

// Active returns the client of the active stream, if any.
func (a *Arbiter) Active() (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.activeLocked()
}

// Len returns the number of tracked streams.
func (a *Arbiter) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.streams)
}

// Snapshot returns stream state in election order.
func (a *Arbiter) Snapshot() []StreamInfo {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]StreamInfo, 0, len(a.streams))
	for _, st := range a.streams {
		out = append(out, StreamInfo{
			Client:   st.client,
			Priority: st.priority,
			LastSeen: st.lastSeen,
			Active:   st.active,
		})
	}
	return out
}

// SetTimeout changes the staleness window for subsequent elections.
func (a *Arbiter) SetTimeout(d time.Duration) {
	if d <= 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cfg.Timeout = d
}

// SetDefaultPriority changes the priority given to streams created from now on.
func (a *Arbiter) SetDefaultPriority(p int) {
	if p < 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cfg.DefaultPriority = p
}

func (a *Arbiter) Timeout() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cfg.Timeout
}

func (a *Arbiter) lookupOrCreate(client string) *stream {
	for _, st := range a.streams {
		if st.client == client {
			return st
		}
	}
	st := &stream{client: client, priority: a.cfg.DefaultPriority}
	a.streams = append(a.streams, st)
	observability.SetStreams(len(a.streams))
	log.Debug().Str("client", client).Int("priority", st.priority).Msg("new stream")
	return st
}

func (a *Arbiter) activeLocked() (string, bool) {
	for _, st := range a.streams {
		if st.active {
			return st.client, true
		}
	}
	return "", false
}

// dispatch runs one sink call; failures and panics are logged, never returned.
func (a *Arbiter) dispatch(op string, call func() error) {
	if a.sink == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			observability.RecordSinkError(op)
			log.Error().Str("op", op).Interface("panic", r).Msg("render sink panicked")
		}
	}()
	if err := call(); err != nil {
		observability.RecordSinkError(op)
		log.Error().Str("op", op).Err(err).Msg("render sink failed")
	}
}
