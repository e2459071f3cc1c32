package audio

import (
	"fmt"
	"io"
	"time"

	"github.com/ebitengine/oto/v3"
)

// Format is the OTO sample format matching the mix format.
const Format = oto.FormatSignedInt16LE

// otoContext adapts *oto.Context to the Context interface.
type otoContext struct {
	ctx *oto.Context
}

// readyTimeout bounds how long to wait for the platform mixer thread.
const readyTimeout = 5 * time.Second

// NewOtoContext opens the platform audio device. Construction failure is
// the one unrecoverable startup condition for the engine; callers surface
// it instead of retrying.
func NewOtoContext() (Context, error) {
	op := &oto.NewContextOptions{
		SampleRate:   MixSampleRate,
		ChannelCount: MixChannels,
		Format:       Format,
	}

	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceError, err)
	}

	if err := waitReady(ready, readyTimeout); err != nil {
		return nil, err
	}

	return &otoContext{ctx: ctx}, nil
}

// waitReady blocks until the device signals readiness or the timeout
// elapses.
func waitReady(ready <-chan struct{}, timeout time.Duration) error {
	select {
	case <-ready:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("%w: device not ready after %s", ErrDeviceError, timeout)
	}
}

func (c *otoContext) NewPlayer(r io.Reader) Player {
	return &otoPlayer{player: c.ctx.NewPlayer(r)}
}

type otoPlayer struct {
	player *oto.Player
}

func (p *otoPlayer) Play()                    { p.player.Play() }
func (p *otoPlayer) IsPlaying() bool          { return p.player.IsPlaying() }
func (p *otoPlayer) SetVolume(volume float64) { p.player.SetVolume(volume) }
func (p *otoPlayer) Close() error             { return p.player.Close() }
