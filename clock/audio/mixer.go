package audio

import (
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
)

// Playback errors. ErrDeviceError comes from opening the platform audio
// device and is the one unrecoverable startup failure; the others are
// recovered as skip-and-log and never escalate past the caller.
var (
	ErrAssetUnavailable = errors.New("audio asset unavailable")
	ErrDeviceError      = errors.New("audio device error")
	ErrUnknownChannel   = errors.New("unknown audio channel")
)

// Channel is an independent playback lane with its own volume and
// single-active-sound policy.
type Channel string

const (
	ChannelTick   Channel = "tick"
	ChannelChime  Channel = "chime"
	ChannelSpeech Channel = "speech"
)

// Channels lists every mixer channel in a stable order.
func Channels() []Channel {
	return []Channel{ChannelTick, ChannelChime, ChannelSpeech}
}

type channelState struct {
	player Player
	volume float64
}

// Mixer owns the logical playback channels. Sounds on different channels
// play concurrently; a second Play on a busy channel stops the first
// (last-request-wins). Volume changes apply to the next Play on the
// channel, never to audio already in flight.
type Mixer struct {
	ctx Context

	mu       sync.Mutex
	channels map[Channel]*channelState
	master   float64
}

// NewMixer creates a mixer over the given audio context with all channel
// volumes at full scale.
func NewMixer(ctx Context) *Mixer {
	channels := make(map[Channel]*channelState, 3)
	for _, ch := range Channels() {
		channels[ch] = &channelState{volume: 1.0}
	}
	return &Mixer{
		ctx:      ctx,
		channels: channels,
		master:   1.0,
	}
}

// Play starts the asset on the channel, stopping whatever the channel was
// playing first. Other channels are unaffected.
func (m *Mixer) Play(ch Channel, asset *Asset) error {
	if asset == nil || len(asset.PCM) == 0 {
		return fmt.Errorf("%w: channel %s", ErrAssetUnavailable, ch)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.channels[ch]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownChannel, ch)
	}

	if state.player != nil {
		if err := state.player.Close(); err != nil {
			log.Debug("error closing previous player", "channel", ch, "err", err)
		}
		state.player = nil
	}

	player := m.ctx.NewPlayer(asset.Reader())
	player.SetVolume(clampVolume(m.master * state.volume))
	player.Play()
	state.player = player

	return nil
}

// Stop halts playback on the channel. Stopping an idle channel is a no-op.
func (m *Mixer) Stop(ch Channel) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.channels[ch]
	if !ok || state.player == nil {
		return
	}
	if err := state.player.Close(); err != nil {
		log.Debug("error stopping channel", "channel", ch, "err", err)
	}
	state.player = nil
}

// StopAll halts playback on every channel.
func (m *Mixer) StopAll() {
	for _, ch := range Channels() {
		m.Stop(ch)
	}
}

// SetVolume sets the channel volume, clamped to [0, 1]. The new volume
// takes effect on the next Play for that channel.
func (m *Mixer) SetVolume(ch Channel, volume float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if state, ok := m.channels[ch]; ok {
		state.volume = clampVolume(volume)
	}
}

// SetMasterVolume sets the master volume, clamped to [0, 1]. Effective
// playback volume is master times channel volume.
func (m *Mixer) SetMasterVolume(volume float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.master = clampVolume(volume)
}

// Volume returns the current channel volume.
func (m *Mixer) Volume(ch Channel) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if state, ok := m.channels[ch]; ok {
		return state.volume
	}
	return 0
}

// IsActive reports whether the channel currently has a playing sound.
func (m *Mixer) IsActive(ch Channel) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.channels[ch]
	return ok && state.player != nil && state.player.IsPlaying()
}

func clampVolume(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
