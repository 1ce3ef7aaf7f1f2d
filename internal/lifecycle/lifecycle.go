// Package lifecycle defines the legal state sequences of an evidence item.
//
//	(none) ──► CHECKEDIN ◄──► CHECKEDOUT
//	              │
//	              └──► DISPOSED | DESTROYED | RELEASED   (terminal)
//
// The same rules are applied before a block is written (by the custody
// service) and after the fact over a whole ledger (by the integrity verifier).
package lifecycle

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// State is the action label stored in a block header.
type State string

const (
	Initial    State = "INITIAL"
	CheckedIn  State = "CHECKEDIN"
	CheckedOut State = "CHECKEDOUT"
	Disposed   State = "DISPOSED"
	Destroyed  State = "DESTROYED"
	Released   State = "RELEASED"
)

// Item states in display order.
var ItemStates = []State{CheckedIn, CheckedOut, Disposed, Destroyed, Released}

// TerminalStates are the states an item can be removed with.
var TerminalStates = []State{Disposed, Destroyed, Released}

var (
	ErrUnknownState      = errors.New("lifecycle: unknown state")
	ErrIllegalTransition = errors.New("lifecycle: illegal transition")
)

// Known reports whether s is an item state. Initial is not.
func (s State) Known() bool {
	switch s {
	case CheckedIn, CheckedOut, Disposed, Destroyed, Released:
		return true
	}
	return false
}

// Terminal reports whether no further records are allowed after s.
func (s State) Terminal() bool {
	return slices.Contains(TerminalStates, s)
}

// Parse converts user input to a State, ignoring case.
func Parse(raw string) (State, error) {
	s := State(strings.ToUpper(strings.TrimSpace(raw)))
	if s == Initial || s.Known() {
		return s, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownState, raw)
}

// Transition checks that an item whose latest state is current may move to
// next. An empty current means the item has no records yet.
func Transition(current, next State) error {
	if !next.Known() {
		return fmt.Errorf("%w: %q", ErrUnknownState, string(next))
	}

	var ok bool
	switch {
	case current == "":
		ok = next == CheckedIn
	case current.Terminal():
		ok = false
	case next == CheckedIn:
		ok = current == CheckedOut
	case next == CheckedOut, next.Terminal():
		ok = current == CheckedIn
	}
	if !ok {
		from := string(current)
		if from == "" {
			from = "(none)"
		}
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, next)
	}
	return nil
}
