package ledger_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jmerrifield20/bchoc/internal/ledger"
)

func newStore(t *testing.T) *ledger.Store {
	t.Helper()
	return ledger.NewStore(filepath.Join(t.TempDir(), "blockchain.dat"), zap.NewNop())
}

func record(item byte, state string) ledger.Record {
	return ledger.Record{
		Case:    ledger.Field{0x01},
		Item:    ledger.Field{item},
		State:   state,
		Creator: "officer",
	}
}

func TestInitialize_createsGenesis(t *testing.T) {
	s := newStore(t)

	created, err := s.Initialize()
	require.NoError(t, err)
	assert.True(t, created)

	blocks, err := s.ReadAll()
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.True(t, blocks[0].IsGenesis())

	created, err = s.Initialize()
	require.NoError(t, err)
	assert.False(t, created, "second initialize must not recreate the ledger")

	blocks, err = s.ReadAll()
	require.NoError(t, err)
	assert.Len(t, blocks, 1)
}

func TestInitialize_rejectsForeignFile(t *testing.T) {
	s := newStore(t)

	b := ledger.Block{Header: ledger.Header{PrevHash: ledger.Hash{}}}
	b.Header.State, _ = ledger.NewName("CHECKEDIN")
	require.NoError(t, os.WriteFile(s.Path(), b.Bytes(), 0o644))

	_, err := s.Initialize()
	assert.ErrorIs(t, err, ledger.ErrInvalidGenesis)
}

func TestInitialize_shortFile(t *testing.T) {
	s := newStore(t)
	require.NoError(t, os.WriteFile(s.Path(), []byte("short"), 0o644))

	_, err := s.Initialize()
	assert.ErrorIs(t, err, ledger.ErrCorruptLedger)
}

func TestAppend_chainsCorrectly(t *testing.T) {
	s := newStore(t)

	// Append on a missing ledger creates genesis first.
	states := []string{"CHECKEDIN", "CHECKEDOUT", "CHECKEDIN", "DISPOSED"}
	var appended []*ledger.Block
	for _, st := range states {
		b, err := s.Append(record(9, st))
		require.NoError(t, err)
		appended = append(appended, b)
	}

	blocks, err := s.ReadAll()
	require.NoError(t, err)
	require.Len(t, blocks, len(states)+1) // genesis + k
	assert.True(t, blocks[0].IsGenesis())

	for i := 1; i < len(blocks); i++ {
		assert.Equal(t, blocks[i-1].Hash(), blocks[i].Header.PrevHash, "block %d", i)
		assert.Equal(t, states[i-1], blocks[i].Header.State.String())
		assert.Equal(t, appended[i-1].Hash(), blocks[i].Hash())
	}

	tip, n, err := s.Tip()
	require.NoError(t, err)
	assert.Equal(t, len(states)+1, n)
	assert.Equal(t, blocks[len(blocks)-1].Hash(), tip)
}

func TestAppend_timestampAndPayload(t *testing.T) {
	s := newStore(t)
	s.SetClock(func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 600000000, time.UTC) })

	rec := record(1, "CHECKEDIN")
	rec.Payload = []byte("bag #12, sealed")
	_, err := s.Append(rec)
	require.NoError(t, err)

	blocks, err := s.ReadAll()
	require.NoError(t, err)
	require.Len(t, blocks, 2)

	got := blocks[1]
	assert.Equal(t, []byte("bag #12, sealed"), got.Payload)
	assert.Equal(t, uint32(len(rec.Payload)), got.Header.PayloadLength)
	assert.Equal(t, "officer", got.Header.Creator.String())
	assert.Equal(t, "", got.Header.Owner.String())
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 600000000, time.UTC), got.Header.Time())
}

func TestAppend_invalidArguments(t *testing.T) {
	s := newStore(t)

	bad := []ledger.Record{
		{State: "CHECKEDIN", Creator: "a_very_long_name"},
		{State: "CHECKEDIN", Owner: "a_very_long_name"},
		{State: "SOMETHINGTOOLONG"},
		{State: ""},
	}
	for _, rec := range bad {
		_, err := s.Append(rec)
		assert.ErrorIs(t, err, ledger.ErrInvalidArgument)
	}

	_, err := os.Stat(s.Path())
	assert.True(t, os.IsNotExist(err), "rejected input must not touch the file")
}

func TestScan_truncatedPayload(t *testing.T) {
	s := newStore(t)
	rec := record(1, "CHECKEDIN")
	rec.Payload = []byte("0123456789")
	_, err := s.Append(rec)
	require.NoError(t, err)

	raw, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(s.Path(), raw[:len(raw)-4], 0o644))

	_, err = s.ReadAll()
	assert.ErrorIs(t, err, ledger.ErrCorruptLedger)

	_, _, err = s.Tip()
	assert.ErrorIs(t, err, ledger.ErrCorruptLedger)

	_, err = s.Append(record(2, "CHECKEDIN"))
	assert.ErrorIs(t, err, ledger.ErrCorruptLedger)
}

func TestScan_truncatedHeader(t *testing.T) {
	raw := append(ledger.Genesis().Bytes(), make([]byte, ledger.HeaderSize-1)...)

	sc := ledger.NewScanner(bytes.NewReader(raw))
	require.True(t, sc.Next())
	assert.True(t, sc.Block().IsGenesis())
	assert.False(t, sc.Next())
	assert.ErrorIs(t, sc.Err(), ledger.ErrCorruptLedger)
}

func TestScan_restartable(t *testing.T) {
	s := newStore(t)
	_, err := s.Append(record(1, "CHECKEDIN"))
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		sc, err := s.Scan()
		require.NoError(t, err)
		n := 0
		for sc.Next() {
			assert.Equal(t, n, sc.Index())
			n++
		}
		require.NoError(t, sc.Err())
		require.NoError(t, sc.Close())
		assert.Equal(t, 2, n)
	}
}

func TestScan_missingLedger(t *testing.T) {
	s := newStore(t)
	_, err := s.Scan()
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestScan_emptyStream(t *testing.T) {
	sc := ledger.NewScanner(bytes.NewReader(nil))
	assert.False(t, sc.Next())
	assert.NoError(t, sc.Err())
}

func TestAppend_emptyFileHasNoGenesis(t *testing.T) {
	s := newStore(t)
	require.NoError(t, os.WriteFile(s.Path(), nil, 0o644))

	_, err := s.Append(record(1, "CHECKEDIN"))
	assert.ErrorIs(t, err, ledger.ErrInvalidGenesis)

	info, err := os.Stat(s.Path())
	require.NoError(t, err)
	assert.Zero(t, info.Size(), "nothing may be written without a genesis block")
}
