package playback

import (
	"log/slog"
	"sync"

	"mediasort/internal/logging"
)

// DefaultQueueSize is the dispatcher's command buffer.
const DefaultQueueSize = 16

type action string

const (
	actionLoad    action = "load"
	actionPlay    action = "play"
	actionStop    action = "stop"
	actionRelease action = "release"
)

type command struct {
	action action
	path   string
	done   chan struct{}
}

// Dispatcher serializes commands to a Player on a dedicated goroutine.
type Dispatcher struct {
	player Player
	logger *slog.Logger
	cmds   chan command
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewDispatcher starts the goroutine that owns player.
func NewDispatcher(player Player, logger *slog.Logger, queueSize int) *Dispatcher {
	if player == nil {
		player = Nop{}
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	d := &Dispatcher{
		player: player,
		logger: logging.NewComponentLogger(logger, "playback"),
		cmds:   make(chan command, queueSize),
	}
	d.wg.Add(1)
	go d.loop()
	return d
}

func (d *Dispatcher) loop() {
	defer d.wg.Done()
	for cmd := range d.cmds {
		if cmd.done != nil {
			close(cmd.done)
			continue
		}
		var err error
		switch cmd.action {
		case actionLoad:
			err = d.player.Load(cmd.path)
		case actionPlay:
			err = d.player.Play()
		case actionStop:
			err = d.player.Stop()
		case actionRelease:
			err = d.player.Release()
		}
		if err != nil {
			logging.WarnWithContext(d.logger, "playback command failed", "playback_failed",
				logging.String("action", string(cmd.action)),
				logging.SourcePath(cmd.path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check player.command and that the player is installed"),
				logging.String(logging.FieldImpact, "preview unavailable; classification continues"),
			)
		}
	}
	if err := d.player.Release(); err != nil {
		d.logger.Debug("final playback release failed", logging.Error(err))
	}
}

// send queues cmd. Preview commands are dropped when the queue is full;
// barriers and releases wait for room.
func (d *Dispatcher) send(cmd command, wait bool) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return false
	}
	if wait {
		d.cmds <- cmd
		return true
	}
	select {
	case d.cmds <- cmd:
		return true
	default:
		logging.WarnWithContext(d.logger, "playback queue full; command dropped", "playback_dropped",
			logging.String("action", string(cmd.action)),
			logging.String(logging.FieldImpact, "preview may lag behind the file under review"),
		)
		return false
	}
}

// Load queues loading path.
func (d *Dispatcher) Load(path string) { d.send(command{action: actionLoad, path: path}, false) }

// Play queues starting playback.
func (d *Dispatcher) Play() { d.send(command{action: actionPlay}, false) }

// Stop queues stopping playback.
func (d *Dispatcher) Stop() { d.send(command{action: actionStop}, false) }

// Release queues releasing the loaded file. It waits for queue space rather
// than dropping the command.
func (d *Dispatcher) Release() { d.send(command{action: actionRelease}, true) }

// Sync blocks until every command queued before it has been handled.
func (d *Dispatcher) Sync() {
	done := make(chan struct{})
	if d.send(command{done: done}, true) {
		<-done
	}
}

// Close drains pending commands, releases the player and stops the goroutine.
// It is safe to call more than once.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.cmds)
	}
	d.mu.Unlock()
	d.wg.Wait()
}
