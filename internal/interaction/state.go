package interaction

import (
	"fmt"
	"strings"

	"mediasort/internal/media"
)

// State is a step of the per-file dialogue.
type State int

const (
	AwaitingType State = iota
	AwaitingCategory
	AwaitingTag
	AwaitingRating
	Deciding
	Terminal
)

func (s State) String() string {
	switch s {
	case AwaitingType:
		return "awaiting_type"
	case AwaitingCategory:
		return "awaiting_category"
	case AwaitingTag:
		return "awaiting_tag"
	case AwaitingRating:
		return "awaiting_rating"
	case Deciding:
		return "deciding"
	case Terminal:
		return "terminal"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// field returns the vocabulary collected in s, if any.
func (s State) field() (media.Field, bool) {
	switch s {
	case AwaitingType:
		return media.FieldType, true
	case AwaitingCategory:
		return media.FieldCategory, true
	case AwaitingTag:
		return media.FieldTag, true
	default:
		return "", false
	}
}

func (s State) previous() State {
	if s <= AwaitingType || s >= Terminal {
		return s
	}
	return s - 1
}

// Decision is how a file's dialogue ended.
type Decision int

const (
	DecisionAccept Decision = iota + 1
	DecisionDelete
	DecisionSkip
	DecisionQuit
)

func (d Decision) String() string {
	switch d {
	case DecisionAccept:
		return "accept"
	case DecisionDelete:
		return "delete"
	case DecisionSkip:
		return "skip"
	case DecisionQuit:
		return "quit"
	default:
		return fmt.Sprintf("decision(%d)", int(d))
	}
}

// Outcome carries the decision and the record as classified so far.
type Outcome struct {
	Decision Decision
	Record   media.Record
}

type command int

const (
	commandNone command = iota
	commandNew
	commandBack
	commandDelete
	commandSkip
	commandQuit
)

// parseCommand recognizes the single-letter and spelled-out commands.
func parseCommand(input string) command {
	switch strings.ToLower(input) {
	case "n", "new":
		return commandNew
	case "b", "back":
		return commandBack
	case "d", "delete":
		return commandDelete
	case "s", "skip":
		return commandSkip
	case "q", "quit", "exit":
		return commandQuit
	default:
		return commandNone
	}
}
