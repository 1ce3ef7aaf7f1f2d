package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransition(t *testing.T) {
	cases := []struct {
		current State
		next    State
		ok      bool
	}{
		{"", CheckedIn, true},
		{"", CheckedOut, false},
		{"", Disposed, false},
		{CheckedIn, CheckedOut, true},
		{CheckedIn, CheckedIn, false},
		{CheckedOut, CheckedIn, true},
		{CheckedOut, CheckedOut, false},
		{CheckedIn, Disposed, true},
		{CheckedIn, Destroyed, true},
		{CheckedIn, Released, true},
		{CheckedOut, Released, false},
		{Disposed, CheckedIn, false},
		{Released, CheckedOut, false},
		{Destroyed, Disposed, false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(string(tc.current)+"->"+string(tc.next), func(t *testing.T) {
			err := Transition(tc.current, tc.next)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrIllegalTransition)
			}
		})
	}
}

func TestTransition_unknownState(t *testing.T) {
	assert.ErrorIs(t, Transition(CheckedIn, "MISPLACED"), ErrUnknownState)
	assert.ErrorIs(t, Transition("", Initial), ErrUnknownState)
}

func TestParse(t *testing.T) {
	s, err := Parse(" released ")
	require.NoError(t, err)
	assert.Equal(t, Released, s)
	assert.True(t, s.Terminal())

	_, err = Parse("lost")
	assert.ErrorIs(t, err, ErrUnknownState)
}

func TestTracker(t *testing.T) {
	tr := NewTracker()
	a, b := [32]byte{1}, [32]byte{2}

	require.NoError(t, tr.Apply(a, CheckedIn))
	require.NoError(t, tr.Apply(b, CheckedIn))
	require.NoError(t, tr.Apply(a, CheckedOut))

	err := tr.Apply(b, CheckedIn)
	assert.ErrorIs(t, err, ErrIllegalTransition)

	// b is still CHECKEDIN after the rejected record
	require.NoError(t, tr.Apply(b, CheckedOut))
	require.NoError(t, tr.Apply(a, CheckedIn))
	require.NoError(t, tr.Apply(a, Destroyed))

	assert.ErrorIs(t, tr.Apply(a, CheckedOut), ErrIllegalTransition)
	assert.ErrorIs(t, tr.Apply([32]byte{3}, CheckedOut), ErrIllegalTransition, "unseen item must start CHECKEDIN")
}

func TestTerminal(t *testing.T) {
	for _, s := range TerminalStates {
		assert.True(t, s.Terminal(), s)
	}
	for _, s := range []State{Initial, CheckedIn, CheckedOut, State("LOST")} {
		assert.False(t, s.Terminal(), s)
	}
}
