package audio

import (
	"io"
	"sync"
)

// MockContext implements Context without touching audio hardware. It
// records every player it creates so tests can inspect playback state.
type MockContext struct {
	mu      sync.Mutex
	players []*MockPlayer
}

// NewMockContext creates a mock audio context.
func NewMockContext() *MockContext {
	return &MockContext{}
}

func (c *MockContext) NewPlayer(r io.Reader) Player {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := &MockPlayer{reader: r, volume: 1.0}
	c.players = append(c.players, p)
	return p
}

// Players returns every player created so far, in creation order.
func (c *MockContext) Players() []*MockPlayer {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]*MockPlayer, len(c.players))
	copy(out, c.players)
	return out
}

// ActiveCount returns the number of players currently playing.
func (c *MockContext) ActiveCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, p := range c.players {
		if p.IsPlaying() {
			n++
		}
	}
	return n
}

// MockPlayer is a controllable stand-in for an oto player. It keeps
// "playing" until explicitly closed, which makes single-active-sound
// assertions deterministic.
type MockPlayer struct {
	mu      sync.Mutex
	reader  io.Reader
	playing bool
	closed  bool
	volume  float64
}

func (p *MockPlayer) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.playing = true
	}
}

func (p *MockPlayer) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing && !p.closed
}

func (p *MockPlayer) SetVolume(volume float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = volume
}

// Volume returns the last volume set on the player.
func (p *MockPlayer) Volume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

func (p *MockPlayer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = false
	p.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (p *MockPlayer) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Finish marks playback as naturally complete without closing the player.
func (p *MockPlayer) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = false
}
