package clock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/accessiclock/accessiclock/clock/audio"
	"github.com/accessiclock/accessiclock/clock/pack"
	"github.com/accessiclock/accessiclock/clock/speech"
)

func testAsset() *audio.Asset {
	pcm := make([]byte, audio.MixSampleRate/10*4) // 100ms of silence
	return &audio.Asset{
		PCM:      pcm,
		Duration: audio.PCMDuration(len(pcm), audio.MixSampleRate, audio.MixChannels),
	}
}

func testPackage(roles ...pack.Role) *pack.ClockPackage {
	assets := make(map[pack.Role]*audio.Asset, len(roles))
	for _, role := range roles {
		assets[role] = testAsset()
	}
	return &pack.ClockPackage{
		ID:     "test-pack",
		Name:   "Test Pack",
		Assets: assets,
	}
}

func newTestEngine(t *testing.T, pkg *pack.ClockPackage, prefs Preferences) (*Engine, *audio.MockContext) {
	t.Helper()

	mock := audio.NewMockContext()
	pipeline := speech.NewPipeline(nil, speech.NewLocalSynth(), speech.NewCache(1<<20), speech.DefaultConfig())

	engine, err := NewEngine(audio.NewMixer(mock), pipeline, pkg, prefs)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	return engine, mock
}

func drainNotification(t *testing.T, e *Engine, kind NotificationKind) Notification {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case n := <-e.Events():
			if n.Kind == kind {
				return n
			}
		case <-deadline:
			t.Fatalf("no %s notification arrived", kind)
		}
	}
}

func TestNewEngineRequiresMixerAndPipeline(t *testing.T) {
	pipeline := speech.NewPipeline(nil, speech.NewLocalSynth(), speech.NewCache(1<<20), speech.DefaultConfig())

	if _, err := NewEngine(nil, pipeline, nil, DefaultPreferences()); err == nil {
		t.Error("expected an error without a mixer")
	}
	if _, err := NewEngine(audio.NewMixer(audio.NewMockContext()), nil, nil, DefaultPreferences()); err == nil {
		t.Error("expected an error without a pipeline")
	}
}

func TestNewEngineRejectsInvalidPreferences(t *testing.T) {
	prefs := DefaultPreferences()
	prefs.Intervals.CustomMinutes = -1

	mock := audio.NewMixer(audio.NewMockContext())
	pipeline := speech.NewPipeline(nil, speech.NewLocalSynth(), speech.NewCache(1<<20), speech.DefaultConfig())
	if _, err := NewEngine(mock, pipeline, nil, prefs); !errors.Is(err, ErrInvalidPreference) {
		t.Errorf("expected ErrInvalidPreference, got %v", err)
	}
}

func TestEngineTriggerChime(t *testing.T) {
	e, mock := newTestEngine(t, testPackage(pack.RoleHourChime), DefaultPreferences())

	if err := e.TriggerChime(pack.RoleHourChime); err != nil {
		t.Fatalf("TriggerChime failed: %v", err)
	}
	if mock.ActiveCount() != 1 {
		t.Errorf("expected 1 active player, got %d", mock.ActiveCount())
	}

	n := drainNotification(t, e, NoteChime)
	if n.Role != pack.RoleHourChime {
		t.Errorf("expected hour chime notification, got %s", n.Role)
	}
}

func TestEngineTriggerChimeMissingAsset(t *testing.T) {
	e, _ := newTestEngine(t, testPackage(pack.RoleHourChime), DefaultPreferences())

	err := e.TriggerChime(pack.RoleCustomChime)
	if !errors.Is(err, audio.ErrAssetUnavailable) {
		t.Errorf("expected ErrAssetUnavailable, got %v", err)
	}
}

func TestEngineTickPlaysChimeAtBoundary(t *testing.T) {
	prefs := DefaultPreferences()
	prefs.SpeechEnabled = false
	e, mock := newTestEngine(t, testPackage(pack.RoleHourChime), prefs)

	ctx := context.Background()
	e.tick(ctx, at(12, 59, 59)) // baseline
	e.tick(ctx, at(13, 0, 0))

	if mock.ActiveCount() != 1 {
		t.Fatalf("expected 1 active player after the boundary, got %d", mock.ActiveCount())
	}

	n := drainNotification(t, e, NoteChime)
	if !n.Time.Equal(at(13, 0, 0)) {
		t.Errorf("expected notification for 13:00, got %v", n.Time)
	}
}

func TestEngineTickMissingChimeAssetEmitsError(t *testing.T) {
	prefs := DefaultPreferences()
	prefs.SpeechEnabled = false
	e, _ := newTestEngine(t, testPackage(), prefs) // no sounds at all

	ctx := context.Background()
	e.tick(ctx, at(12, 59, 59))
	e.tick(ctx, at(13, 0, 0))

	n := drainNotification(t, e, NoteError)
	if !errors.Is(n.Err, audio.ErrAssetUnavailable) {
		t.Errorf("expected ErrAssetUnavailable, got %v", n.Err)
	}
}

func TestEngineAnnouncesAtBoundary(t *testing.T) {
	e, _ := newTestEngine(t, testPackage(pack.RoleHourChime), DefaultPreferences())

	ctx := context.Background()
	e.tick(ctx, at(13, 59, 59))
	e.tick(ctx, at(14, 0, 0))
	e.speechWG.Wait()

	n := drainNotification(t, e, NoteAnnouncement)
	if n.Text != "It is two o'clock" {
		t.Errorf("unexpected announcement text %q", n.Text)
	}
	if !e.mixer.IsActive(audio.ChannelSpeech) {
		t.Error("expected the speech channel to be playing")
	}
}

func TestEngineTickSoundPlaysEverySecond(t *testing.T) {
	prefs := DefaultPreferences()
	prefs.ChimeEnabled = false
	prefs.SpeechEnabled = false
	e, mock := newTestEngine(t, testPackage(pack.RoleTick), prefs)

	ctx := context.Background()
	e.tick(ctx, at(12, 0, 0))
	e.tick(ctx, at(12, 0, 1))
	e.tick(ctx, at(12, 0, 2))

	// Last-request-wins keeps at most one tick player alive.
	if mock.ActiveCount() != 1 {
		t.Errorf("expected 1 active tick player, got %d", mock.ActiveCount())
	}
	if len(mock.Players()) != 3 {
		t.Errorf("expected 3 players total, got %d", len(mock.Players()))
	}
}

func TestEngineDisabledChimesPlayNothing(t *testing.T) {
	prefs := DefaultPreferences()
	prefs.ChimeEnabled = false
	prefs.SpeechEnabled = false
	e, mock := newTestEngine(t, testPackage(pack.RoleHourChime), prefs)

	ctx := context.Background()
	e.tick(ctx, at(12, 59, 59))
	e.tick(ctx, at(13, 0, 0))

	if mock.ActiveCount() != 0 {
		t.Errorf("expected silence with chimes disabled, got %d players", mock.ActiveCount())
	}
}

func TestEngineApplyPreferencesUpdatesVolumes(t *testing.T) {
	e, _ := newTestEngine(t, testPackage(pack.RoleHourChime), DefaultPreferences())

	prefs := DefaultPreferences()
	prefs.MasterVolume = 0.5
	prefs.Volumes[audio.ChannelChime] = 0.4
	if err := e.ApplyPreferences(prefs); err != nil {
		t.Fatalf("ApplyPreferences failed: %v", err)
	}

	if got := e.mixer.Volume(audio.ChannelChime); got != 0.4 {
		t.Errorf("expected chime volume 0.4, got %v", got)
	}
}

func TestEngineApplyPackageSwapsAssets(t *testing.T) {
	e, _ := newTestEngine(t, testPackage(pack.RoleHourChime), DefaultPreferences())

	replacement := testPackage(pack.RoleCustomChime)
	e.ApplyPackage(replacement)

	if err := e.TriggerChime(pack.RoleCustomChime); err != nil {
		t.Errorf("expected the new package's chime to play, got %v", err)
	}
	if err := e.TriggerChime(pack.RoleHourChime); !errors.Is(err, audio.ErrAssetUnavailable) {
		t.Errorf("expected the old package's chime to be gone, got %v", err)
	}
}

func TestEngineStartStop(t *testing.T) {
	e, _ := newTestEngine(t, testPackage(pack.RoleHourChime), DefaultPreferences())

	ctx := context.Background()
	if err := e.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := e.Start(ctx); !errors.Is(err, ErrEngineRunning) {
		t.Errorf("expected ErrEngineRunning, got %v", err)
	}

	if err := e.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if err := e.Stop(); !errors.Is(err, ErrEngineStopped) {
		t.Errorf("expected ErrEngineStopped, got %v", err)
	}
}

func TestEngineStatus(t *testing.T) {
	e, _ := newTestEngine(t, testPackage(pack.RoleHourChime), DefaultPreferences())
	e.now = func() time.Time { return at(13, 7, 0) }

	s := e.Status()
	if s.Running {
		t.Error("expected a stopped engine")
	}
	if s.PackageID != "test-pack" {
		t.Errorf("expected package id test-pack, got %q", s.PackageID)
	}
	if !s.NextChime.Equal(at(14, 0, 0)) {
		t.Errorf("expected next chime at 14:00, got %v", s.NextChime)
	}
	if s.NextRole != pack.RoleHourChime {
		t.Errorf("expected hour chime next, got %s", s.NextRole)
	}
}
