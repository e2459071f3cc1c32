package clock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/accessiclock/accessiclock/clock/audio"
	"github.com/accessiclock/accessiclock/clock/pack"
	"github.com/accessiclock/accessiclock/clock/speech"
)

// Engine lifecycle errors.
var (
	ErrEngineRunning = errors.New("engine already running")
	ErrEngineStopped = errors.New("engine not running")
)

// snapshot is the immutable configuration view a tick runs against.
// Updates swap the whole snapshot so a tick never sees a half-applied
// change.
type snapshot struct {
	pkg   *pack.ClockPackage
	prefs Preferences
}

// Status is a point-in-time summary for status displays.
type Status struct {
	Running     bool
	PackageID   string
	PackageName string
	NextChime   time.Time
	NextRole    pack.Role
	CacheStats  speech.Stats
}

// Engine is the clock core. It owns the scheduler, drives the mixer and
// the speech pipeline once per second, and reports what it did through a
// notification stream. Chime playback, speech synthesis, and
// configuration updates each run on their own goroutine and communicate
// only through the snapshot and the mixer.
type Engine struct {
	mixer *audio.Mixer
	tts   *speech.Pipeline
	sched *Scheduler

	snap  atomic.Pointer[snapshot]
	notes chan Notification

	// now and tickEvery are swappable under test.
	now       func() time.Time
	tickEvery time.Duration

	running  atomic.Bool
	cancel   context.CancelFunc
	loopDone chan struct{}
	speechWG sync.WaitGroup
}

// NewEngine assembles an engine over the given mixer and speech pipeline.
// Preferences are clamped and validated here; an unusable configuration
// fails construction rather than the first tick.
func NewEngine(mixer *audio.Mixer, tts *speech.Pipeline, pkg *pack.ClockPackage, prefs Preferences) (*Engine, error) {
	if mixer == nil {
		return nil, fmt.Errorf("engine: mixer is required")
	}
	if tts == nil {
		return nil, fmt.Errorf("engine: speech pipeline is required")
	}

	prefs.Clamp()
	if err := prefs.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		mixer:     mixer,
		tts:       tts,
		sched:     NewScheduler(prefs.Intervals, prefs.ChimeEnabled, prefs.SpeechEnabled),
		notes:     make(chan Notification, 16),
		now:       time.Now,
		tickEvery: time.Second,
	}
	e.snap.Store(&snapshot{pkg: pkg, prefs: prefs})
	e.applyVolumes(prefs)
	return e, nil
}

// Events returns the notification stream. The engine never blocks on a
// slow consumer; notifications overflow silently when nobody reads them.
func (e *Engine) Events() <-chan Notification { return e.notes }

// Start launches the tick loop. It returns immediately; the loop stops
// when ctx is canceled or Stop is called.
func (e *Engine) Start(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return ErrEngineRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.loopDone = make(chan struct{})

	// Establish the scheduler baseline now so a chime boundary in the
	// first second after startup is not treated as already passed.
	e.sched.Advance(e.now())

	go e.run(ctx)
	log.Debug("engine started")
	return nil
}

// Stop halts the tick loop, waits for in-flight announcements to settle,
// and silences every channel.
func (e *Engine) Stop() error {
	if !e.running.CompareAndSwap(true, false) {
		return ErrEngineStopped
	}
	e.cancel()
	<-e.loopDone
	e.speechWG.Wait()
	e.mixer.StopAll()
	log.Debug("engine stopped")
	return nil
}

func (e *Engine) run(ctx context.Context) {
	defer close(e.loopDone)

	ticker := time.NewTicker(e.tickEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.tick(ctx, e.now())
		}
	}
}

// tick is one evaluation pass: tick sound, chime boundaries, speech
// boundary. Everything here must return quickly; synthesis is handed off.
func (e *Engine) tick(ctx context.Context, now time.Time) {
	snap := e.snap.Load()

	if asset := snap.pkg.Asset(pack.RoleTick); asset != nil {
		if err := e.mixer.Play(audio.ChannelTick, asset); err != nil {
			log.Debug("tick playback failed", "err", err)
		}
	}

	events, speak := e.sched.Advance(now)
	for _, ev := range events {
		e.playChime(snap, ev)
	}

	if speak != nil {
		e.speechWG.Add(1)
		go func(at time.Time) {
			defer e.speechWG.Done()
			e.announce(ctx, at)
		}(speak.Time)
	}
}

// playChime resolves the event's asset and plays it on the chime channel.
// A package that lacks the asset, or a device failure, is logged and
// reported; it never stops the clock.
func (e *Engine) playChime(snap *snapshot, ev Event) {
	asset := snap.pkg.Asset(ev.Role)
	if asset == nil {
		err := fmt.Errorf("%w: no %s sound in package %s",
			audio.ErrAssetUnavailable, ev.Role, packageID(snap.pkg))
		log.Warn("chime skipped", "role", ev.Role, "err", err)
		e.emitError(snap, err)
		return
	}

	if err := e.mixer.Play(audio.ChannelChime, asset); err != nil {
		log.Warn("chime playback failed", "role", ev.Role, "err", err)
		e.emitError(snap, err)
		return
	}

	if snap.prefs.Notifications.Enabled && snap.prefs.Notifications.OnChime {
		e.emit(Notification{Kind: NoteChime, Role: ev.Role, Time: ev.Time})
	}
}

// announce synthesizes and plays the spoken time for the boundary at.
// An unavailable pipeline skips the announcement; the next boundary gets
// a fresh attempt.
func (e *Engine) announce(ctx context.Context, at time.Time) {
	snap := e.snap.Load()
	text := SpokenTime(at)

	wav, err := e.tts.Speak(ctx, text)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		log.Warn("announcement skipped", "text", text, "err", err)
		e.emitError(snap, err)
		return
	}

	asset, err := audio.AssetFromWAV(wav)
	if err != nil {
		log.Warn("announcement audio unusable", "text", text, "err", err)
		e.emitError(snap, err)
		return
	}

	if err := e.mixer.Play(audio.ChannelSpeech, asset); err != nil {
		log.Warn("announcement playback failed", "err", err)
		e.emitError(snap, err)
		return
	}

	e.emit(Notification{Kind: NoteAnnouncement, Text: text, Time: at})
}

// ApplyPackage swaps the active clock package. Sounds already playing
// finish; the next tick uses the new package's assets.
func (e *Engine) ApplyPackage(pkg *pack.ClockPackage) {
	for {
		old := e.snap.Load()
		next := &snapshot{pkg: pkg, prefs: old.prefs}
		if e.snap.CompareAndSwap(old, next) {
			break
		}
	}
	log.Debug("package applied", "id", packageID(pkg))
}

// ApplyPreferences swaps the active preferences. Volume changes take
// effect on the next play per channel; interval changes on the next tick.
func (e *Engine) ApplyPreferences(prefs Preferences) error {
	prefs.Clamp()
	if err := prefs.Validate(); err != nil {
		return err
	}

	for {
		old := e.snap.Load()
		next := &snapshot{pkg: old.pkg, prefs: prefs}
		if e.snap.CompareAndSwap(old, next) {
			break
		}
	}

	e.sched.Configure(prefs.Intervals, prefs.ChimeEnabled, prefs.SpeechEnabled)
	e.applyVolumes(prefs)
	return nil
}

func (e *Engine) applyVolumes(prefs Preferences) {
	e.mixer.SetMasterVolume(prefs.MasterVolume)
	for ch, v := range prefs.Volumes {
		e.mixer.SetVolume(ch, v)
	}
}

// TriggerChime plays the role's sound immediately, outside the schedule.
// Used for previews while the user picks a package.
func (e *Engine) TriggerChime(role pack.Role) error {
	snap := e.snap.Load()
	asset := snap.pkg.Asset(role)
	if asset == nil {
		return fmt.Errorf("%w: no %s sound in package %s",
			audio.ErrAssetUnavailable, role, packageID(snap.pkg))
	}
	if err := e.mixer.Play(audio.ChannelChime, asset); err != nil {
		return err
	}
	e.emit(Notification{Kind: NoteChime, Role: role, Time: e.now()})
	return nil
}

// AnnounceNow speaks the current time immediately, outside the schedule.
func (e *Engine) AnnounceNow(ctx context.Context) error {
	text := SpokenTime(e.now())
	wav, err := e.tts.Speak(ctx, text)
	if err != nil {
		return err
	}
	asset, err := audio.AssetFromWAV(wav)
	if err != nil {
		return err
	}
	if err := e.mixer.Play(audio.ChannelSpeech, asset); err != nil {
		return err
	}
	e.emit(Notification{Kind: NoteAnnouncement, Text: text, Time: e.now()})
	return nil
}

// SpeechCache exposes the pipeline's cache for stats and persistence.
func (e *Engine) SpeechCache() *speech.Cache { return e.tts.Cache() }

// NextChime reports the next scheduled chime boundary. ok is false when
// no interval is configured.
func (e *Engine) NextChime() (time.Time, pack.Role, bool) {
	return e.sched.NextChime(e.now())
}

// Status summarizes the engine for status displays.
func (e *Engine) Status() Status {
	snap := e.snap.Load()
	next, role, _ := e.sched.NextChime(e.now())
	s := Status{
		Running:    e.running.Load(),
		NextChime:  next,
		NextRole:   role,
		CacheStats: e.tts.Cache().Stats(),
	}
	if snap.pkg != nil {
		s.PackageID = snap.pkg.ID
		s.PackageName = snap.pkg.Name
	}
	return s
}

func (e *Engine) emitError(snap *snapshot, err error) {
	if !snap.prefs.Notifications.Enabled || !snap.prefs.Notifications.OnError {
		return
	}
	e.emit(Notification{Kind: NoteError, Err: err, Time: e.now()})
}

func packageID(pkg *pack.ClockPackage) string {
	if pkg == nil {
		return "none"
	}
	return pkg.ID
}

// emit delivers a notification without ever blocking the tick path.
func (e *Engine) emit(n Notification) {
	select {
	case e.notes <- n:
	default:
	}
}
