package interaction

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"

	"mediasort/internal/faults"
	"mediasort/internal/logging"
	"mediasort/internal/media"
	"mediasort/internal/organizer"
	"mediasort/internal/vocab"
)

// Vocabulary is the part of the vocabulary registry the dialogue uses.
type Vocabulary interface {
	List(ctx context.Context, field media.Field) []string
	Lookup(ctx context.Context, field media.Field, value string) (string, bool)
	Add(ctx context.Context, field media.Field, value string) (vocab.Added, error)
}

// Planner previews where an accepted record would go.
type Planner interface {
	Plan(rec media.Record) (organizer.Destination, error)
}

// Releaser lets go of the file under review.
type Releaser interface {
	Release()
}

type line struct {
	text string
	err  error
}

// Controller runs the dialogue for one file at a time. Input is read by a
// single background reader that outlives individual files.
type Controller struct {
	in       io.Reader
	out      io.Writer
	vocab    Vocabulary
	planner  Planner
	releaser Releaser
	logger   *slog.Logger

	readerOnce sync.Once
	lines      chan line
	closeOnce  sync.Once
	done       chan struct{}
}

// New constructs a Controller. planner and releaser may be nil.
func New(in io.Reader, out io.Writer, vocabulary Vocabulary, planner Planner, releaser Releaser, logger *slog.Logger) *Controller {
	if out == nil {
		out = io.Discard
	}
	return &Controller{
		in:       in,
		out:      out,
		vocab:    vocabulary,
		planner:  planner,
		releaser: releaser,
		logger:   logging.NewComponentLogger(logger, "interaction"),
		lines:    make(chan line),
		done:     make(chan struct{}),
	}
}

// Close stops the background reader. A read already blocked on the input
// returns when the next line arrives, and that line is discarded.
func (c *Controller) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// Run drives rec from AwaitingType to a decision. End of input and context
// cancellation end the dialogue with DecisionQuit.
func (c *Controller) Run(ctx context.Context, rec media.Record) Outcome {
	logger := logging.WithContext(ctx, c.logger)
	state := AwaitingType
	c.header(rec)

	for {
		c.prompt(ctx, state, rec)
		input, err := c.readLine(ctx)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, context.Canceled) {
				logger.Warn("operator input unavailable; quitting", logging.Error(err))
			}
			return c.finish(logger, state, DecisionQuit, rec)
		}

		switch cmd := parseCommand(input); cmd {
		case commandDelete:
			return c.finish(logger, state, DecisionDelete, rec)
		case commandSkip:
			return c.finish(logger, state, DecisionSkip, rec)
		case commandQuit:
			return c.finish(logger, state, DecisionQuit, rec)
		case commandBack:
			if state == AwaitingType {
				fmt.Fprintln(c.out, "Already at the first prompt.")
				continue
			}
			state = state.previous()
			continue
		case commandNew:
			field, ok := state.field()
			if !ok {
				if state == AwaitingRating {
					c.invalidRating(input)
				} else {
					c.unrecognized(logger, state, input)
				}
				continue
			}
			value, ok := c.addValue(ctx, logger, field)
			if !ok {
				continue
			}
			rec = rec.With(field, value)
			state++
			continue
		}

		switch state {
		case AwaitingType, AwaitingCategory, AwaitingTag:
			field, _ := state.field()
			value, ok := c.selectValue(ctx, field, input)
			if !ok {
				if input != "" {
					c.unrecognized(logger, state, input)
				}
				continue
			}
			rec = rec.With(field, value)
			state++
		case AwaitingRating:
			rating, err := strconv.Atoi(input)
			if err != nil {
				c.invalidRating(input)
				continue
			}
			rec = rec.WithRating(rating)
			state = Deciding
		case Deciding:
			switch strings.ToLower(input) {
			case "", "y", "yes":
				return c.finish(logger, state, DecisionAccept, rec)
			default:
				c.unrecognized(logger, state, input)
			}
		}
	}
}

func (c *Controller) finish(logger *slog.Logger, state State, decision Decision, rec media.Record) Outcome {
	logger.Info("file decision",
		logging.Args(append(logging.DecisionAttrs("file_decision", decision.String(), "operator at "+state.String()),
			logging.String("type", rec.Type),
			logging.String("category", rec.Category),
			logging.String("tag", rec.Tag),
			logging.Int("rating", rec.Rating),
		)...)...,
	)
	return Outcome{Decision: decision, Record: rec}
}

func (c *Controller) unrecognized(logger *slog.Logger, state State, input string) {
	logger.Warn("unrecognized input",
		logging.String("input", input),
		logging.String("state", state.String()),
		logging.String(logging.FieldEventType, "unrecognized_input"),
	)
	fmt.Fprintf(c.out, "Unrecognized input %q.\n", input)
	if c.releaser != nil {
		c.releaser.Release()
	}
}

func (c *Controller) invalidRating(input string) {
	fmt.Fprintf(c.out, "Invalid rating %q: enter a number from %d to %d.\n", input, media.MinRating, media.MaxRating)
}

// selectValue resolves a list number or a case-insensitive name.
func (c *Controller) selectValue(ctx context.Context, field media.Field, input string) (string, bool) {
	if input == "" {
		return "", false
	}
	if n, err := strconv.Atoi(input); err == nil {
		options := c.vocab.List(ctx, field)
		if n >= 1 && n <= len(options) {
			return options[n-1], true
		}
		return "", false
	}
	return c.vocab.Lookup(ctx, field, input)
}

// addValue prompts for a new vocabulary value and registers it.
func (c *Controller) addValue(ctx context.Context, logger *slog.Logger, field media.Field) (string, bool) {
	fmt.Fprintf(c.out, "Enter new %s: ", field)
	input, err := c.readLine(ctx)
	if err != nil || input == "" {
		return "", false
	}
	added, err := c.vocab.Add(ctx, field, input)
	switch {
	case err == nil:
		if added.Backfilled > 0 {
			fmt.Fprintf(c.out, "Added %s %q and applied it to %d earlier records.\n", field, added.Value, added.Backfilled)
		}
		return added.Value, true
	case errors.Is(err, vocab.ErrInvalid):
		fmt.Fprintf(c.out, "Invalid %s %q: values must not be empty or contain '/', '\\' or ','.\n", field, input)
	case errors.Is(err, vocab.ErrDuplicate):
		fmt.Fprintf(c.out, "%s %q already exists; select it from the list.\n", field, input)
	default:
		fmt.Fprintf(c.out, "Could not add %s %q.\n", field, input)
	}
	faults.Log(logger, "add "+string(field), err, logging.String("value", input))
	return "", false
}

func (c *Controller) header(rec media.Record) {
	fmt.Fprintf(c.out, "\n== %s (%s, %s, %s)\n", rec.SourceName, rec.Resolution,
		media.QualityBucket(rec.Resolution), humanize.IBytes(uint64(max(rec.Size, 0))))
}

func (c *Controller) prompt(ctx context.Context, state State, rec media.Record) {
	const commands = "[n]ew [b]ack [s]kip [d]elete [q]uit"
	switch state {
	case AwaitingType, AwaitingCategory, AwaitingTag:
		field, _ := state.field()
		fmt.Fprintf(c.out, "Select %s:\n", field)
		for i, option := range c.vocab.List(ctx, field) {
			fmt.Fprintf(c.out, "  %d) %s\n", i+1, option)
		}
		fmt.Fprintf(c.out, "%s> ", commands)
	case AwaitingRating:
		fmt.Fprintf(c.out, "Rate the file (%d-%d) [b]ack [s]kip [d]elete [q]uit> ", media.MinRating, media.MaxRating)
	case Deciding:
		fmt.Fprintf(c.out, "Type: %s  Category: %s  Tag: %s  Rating: %d\n", rec.Type, rec.Category, rec.Tag, rec.Rating)
		if c.planner != nil {
			if dest, err := c.planner.Plan(rec); err == nil {
				fmt.Fprintf(c.out, "Destination: %s\n", dest.Path)
			}
		}
		fmt.Fprint(c.out, "Accept? [Y/enter] [b]ack [s]kip [d]elete [q]uit> ")
	}
}

// readLine returns the next trimmed input line.
func (c *Controller) readLine(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c.readerOnce.Do(func() { go c.read() })
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case l, ok := <-c.lines:
		if !ok {
			return "", io.EOF
		}
		return l.text, l.err
	}
}

func (c *Controller) read() {
	defer close(c.lines)
	if c.in == nil {
		return
	}
	r := bufio.NewReader(c.in)
	for {
		text, err := r.ReadString('\n')
		if err == nil || text != "" {
			if !c.deliver(line{text: strings.TrimSpace(text)}) {
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				c.deliver(line{err: err})
			}
			return
		}
	}
}

func (c *Controller) deliver(l line) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.lines <- l:
		return true
	case <-c.done:
		return false
	}
}
