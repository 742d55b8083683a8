package playback_test

import (
	"errors"
	"os/exec"
	"slices"
	"sync"
	"testing"
	"time"

	"mediasort/internal/config"
	"mediasort/internal/logging"
	"mediasort/internal/playback"
)

type recordingPlayer struct {
	mu    sync.Mutex
	calls []string
	fail  bool
}

func (p *recordingPlayer) record(call string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, call)
	if p.fail {
		return errors.New("boom")
	}
	return nil
}

func (p *recordingPlayer) Load(path string) error { return p.record("load " + path) }
func (p *recordingPlayer) Play() error { return p.record("play") }
func (p *recordingPlayer) Stop() error { return p.record("stop") }
func (p *recordingPlayer) Release() error { return p.record("release") }

func (p *recordingPlayer) snapshot() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

func TestDispatcherPreservesOrder(t *testing.T) {
	player := &recordingPlayer{}
	d := playback.NewDispatcher(player, logging.NewNop(), 8)
	d.Load("/in/a.mp4")
	d.Play()
	d.Release()
	d.Stop()
	d.Sync()

	want := []string{"load /in/a.mp4", "play", "release", "stop"}
	if got := player.snapshot(); !slices.Equal(got, want) {
		t.Fatalf("calls = %v, want %v", got, want)
	}

	d.Close()
	d.Close()
	got := player.snapshot()
	if got[len(got)-1] != "release" {
		t.Fatalf("Close should release the player, calls = %v", got)
	}
	// Commands after Close are ignored.
	d.Play()
	d.Sync()
	if len(player.snapshot()) != len(got) {
		t.Fatal("command accepted after Close")
	}
}

type gatedPlayer struct {
	recordingPlayer
	entered chan struct{}
	gate    chan struct{}
}

func (p *gatedPlayer) Load(path string) error {
	p.entered <- struct{}{}
	<-p.gate
	return p.record("load " + path)
}

func TestDispatcherReleaseWaitsForFullQueue(t *testing.T) {
	player := &gatedPlayer{entered: make(chan struct{}, 2), gate: make(chan struct{})}
	d := playback.NewDispatcher(player, logging.NewNop(), 1)
	defer d.Close()

	d.Load("/in/a.mp4")
	<-player.entered
	d.Load("/in/b.mp4") // fills the queue
	d.Play()            // dropped

	released := make(chan struct{})
	go func() {
		d.Release()
		close(released)
	}()
	select {
	case <-released:
		t.Fatal("Release returned while the queue was full")
	case <-time.After(50 * time.Millisecond):
	}

	close(player.gate)
	select {
	case <-released:
	case <-time.After(2 * time.Second):
		t.Fatal("Release did not complete after the queue drained")
	}
	d.Sync()

	got := player.snapshot()
	if got[len(got)-1] != "release" || slices.Contains(got, "play") {
		t.Fatalf("calls = %v, want release last and play dropped", got)
	}
}

func TestDispatcherSurvivesPlayerErrors(t *testing.T) {
	player := &recordingPlayer{fail: true}
	d := playback.NewDispatcher(player, logging.NewNop(), 0)
	defer d.Close()
	d.Load("x")
	d.Play()
	d.Sync()
	if got := player.snapshot(); len(got) != 2 {
		t.Fatalf("expected both commands to reach the player, got %v", got)
	}
}

func TestNewSelectsNopWithoutCommand(t *testing.T) {
	if _, ok := playback.New(config.Player{}).(playback.Nop); !ok {
		t.Fatal("expected Nop player for empty command")
	}
	if _, ok := playback.New(config.Player{Command: "mpv"}).(*playback.ExecPlayer); !ok {
		t.Fatal("expected ExecPlayer for configured command")
	}
}

func TestExecPlayerStartsAndStops(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	player := playback.New(config.Player{Command: "sh", Args: []string{"-c", "sleep 30", "sh"}})

	if err := player.Play(); err == nil {
		t.Fatal("expected error when nothing is loaded")
	}
	if err := player.Load("/tmp/clip.mp4"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := player.Play(); err != nil {
		t.Fatalf("Play: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- player.Release() }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Release: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Release did not terminate the player")
	}
	if err := player.Stop(); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
}
