package playback

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"mediasort/internal/config"
)

// Player previews one file at a time.
type Player interface {
	Load(path string) error
	Play() error
	Stop() error
	Release() error
}

// Nop ignores every command. It is used when no player is configured.
type Nop struct{}

func (Nop) Load(string) error { return nil }
func (Nop) Play() error { return nil }
func (Nop) Stop() error { return nil }
func (Nop) Release() error { return nil }

// ExecPlayer runs an external player as a child process per file.
type ExecPlayer struct {
	command string
	args    []string
	output  io.Writer

	mu     sync.Mutex
	path   string
	cmd    *exec.Cmd
	exited chan struct{}
}

// New returns the player described by cfg, or Nop when no command is set.
func New(cfg config.Player) Player {
	command := strings.TrimSpace(cfg.Command)
	if command == "" {
		return Nop{}
	}
	return &ExecPlayer{command: command, args: append([]string(nil), cfg.Args...), output: io.Discard}
}

// Load selects the file the next Play starts. A running preview is stopped.
func (p *ExecPlayer) Load(path string) error {
	if err := p.Stop(); err != nil {
		return err
	}
	p.mu.Lock()
	p.path = path
	p.mu.Unlock()
	return nil
}

// Play starts the player on the loaded file.
func (p *ExecPlayer) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.path == "" {
		return errors.New("play: no file loaded")
	}
	if p.cmd != nil {
		return nil
	}
	args := append(append([]string(nil), p.args...), p.path)
	cmd := exec.Command(p.command, args...)
	cmd.Stdout = p.output
	cmd.Stderr = p.output
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", p.command, err)
	}
	exited := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(exited)
	}()
	p.cmd = cmd
	p.exited = exited
	return nil
}

// Stop terminates the running player, if any, and waits for it to exit.
func (p *ExecPlayer) Stop() error {
	p.mu.Lock()
	cmd, exited := p.cmd, p.exited
	p.cmd, p.exited = nil, nil
	p.mu.Unlock()
	if cmd == nil {
		return nil
	}
	select {
	case <-exited:
		return nil
	default:
	}
	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("stop %s: %w", p.command, err)
	}
	<-exited
	return nil
}

// Release stops playback and forgets the loaded file so it is no longer held.
func (p *ExecPlayer) Release() error {
	err := p.Stop()
	p.mu.Lock()
	p.path = ""
	p.mu.Unlock()
	return err
}
