package programme

import (
	"errors"
	"fmt"

	"github.com/kompassi/kompassi/internal/models"
)

var (
	// ErrNotImplemented marks a missing case: an unknown state or output format.
	ErrNotImplemented    = errors.New("not implemented")
	ErrInvalidTransition = errors.New("invalid state transition")
)

// States in display order.
var States = []models.ProgrammeState{
	models.StateIdea,
	models.StateAsked,
	models.StateOffered,
	models.StateAccepted,
	models.StatePublished,
	models.StateCancelled,
	models.StateRejected,
}

var (
	ActiveStates   = []models.ProgrammeState{models.StateIdea, models.StateAsked, models.StateOffered, models.StateAccepted, models.StatePublished}
	InactiveStates = []models.ProgrammeState{models.StateRejected, models.StateCancelled}
)

var stateCSS = map[models.ProgrammeState]string{
	models.StateIdea:      "label-default",
	models.StateAsked:     "label-default",
	models.StateOffered:   "label-default",
	models.StateAccepted:  "label-primary",
	models.StatePublished: "label-success",
	models.StateCancelled: "label-danger",
	models.StateRejected:  "label-danger",
}

// transitions lists the states reachable from each state. Staying put is always allowed.
var transitions = map[models.ProgrammeState][]models.ProgrammeState{
	models.StateIdea:      {models.StateAsked, models.StateOffered, models.StateAccepted, models.StateCancelled, models.StateRejected},
	models.StateAsked:     {models.StateIdea, models.StateOffered, models.StateAccepted, models.StateCancelled, models.StateRejected},
	models.StateOffered:   {models.StateAccepted, models.StateCancelled, models.StateRejected},
	models.StateAccepted:  {models.StateOffered, models.StatePublished, models.StateCancelled, models.StateRejected},
	models.StatePublished: {models.StateAccepted, models.StateCancelled},
	models.StateCancelled: {models.StateIdea, models.StateOffered, models.StateAccepted},
	models.StateRejected:  {models.StateOffered, models.StateAccepted},
}

func ParseState(s string) (models.ProgrammeState, error) {
	st := models.ProgrammeState(s)
	if _, ok := transitions[st]; !ok {
		return "", fmt.Errorf("%w: state %q", ErrNotImplemented, s)
	}
	return st, nil
}

func IsActive(s models.ProgrammeState) bool {
	for _, a := range ActiveStates {
		if a == s {
			return true
		}
	}
	return false
}

func CanTransition(from, to models.ProgrammeState) bool {
	if from == to {
		_, ok := transitions[from]
		return ok
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func StateCSS(s models.ProgrammeState) (string, error) {
	css, ok := stateCSS[s]
	if !ok {
		return "", fmt.Errorf("%w: state %q", ErrNotImplemented, s)
	}
	return css, nil
}
