package ledger

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderSize(t *testing.T) {
	assert.Equal(t, 144, HeaderSize)
	assert.Equal(t, 140, lengthOffset)
}

func TestHeader_packUnpack(t *testing.T) {
	state, _ := NewName("CHECKEDOUT")
	creator, _ := NewName("alice")
	owner, _ := NewName("twelve_bytes")

	in := Header{
		PrevHash:      Hash{1, 2, 3},
		Timestamp:     1700000000.123456,
		Case:          Field{0xaa},
		Item:          Field{0xbb, 0xcc},
		State:         state,
		Creator:       creator,
		Owner:         owner,
		PayloadLength: 9,
	}
	packed := in.Pack()
	out := packed.Unpack()
	assert.Equal(t, in, out)

	// little-endian length in the last four bytes
	assert.Equal(t, []byte{9, 0, 0, 0}, packed[HeaderSize-4:])
	assert.Equal(t, "twelve_bytes", out.Owner.String())
}

func TestGenesis_layout(t *testing.T) {
	g := Genesis()
	raw := g.Bytes()

	require.Len(t, raw, HeaderSize+len("Initial block\x00"))
	assert.True(t, g.IsGenesis())
	assert.True(t, g.Header.PrevHash.IsZero())
	assert.Equal(t, 0.0, g.Header.Timestamp)
	assert.Equal(t, bytes.Repeat([]byte("0"), 32), raw[caseOffset:itemOffset])
	assert.Equal(t, bytes.Repeat([]byte("0"), 32), raw[itemOffset:stateOffset])
	assert.Equal(t, "INITIAL", g.Header.State.String())
	assert.Equal(t, make([]byte, 24), raw[creatorOffset:lengthOffset])
	assert.Equal(t, []byte("Initial block\x00"), g.Payload)
	assert.True(t, g.Header.hasGenesisShape())
}

func TestGenesis_anyChangeIsNotGenesis(t *testing.T) {
	g := Genesis()
	g.Payload = []byte("Initial block")
	g.Header.PayloadLength = uint32(len(g.Payload))
	assert.False(t, g.IsGenesis())

	g = Genesis()
	g.Header.Timestamp = 1
	assert.False(t, g.IsGenesis())
	assert.True(t, g.Header.hasGenesisShape())
}

func TestBlockHash_changesWithAnyBit(t *testing.T) {
	g := Genesis()
	base := g.Hash()
	assert.Equal(t, base, Genesis().Hash(), "hash must be deterministic")

	mutated := Genesis()
	mutated.Payload[0] ^= 0x01
	assert.NotEqual(t, base, mutated.Hash())

	mutated = Genesis()
	mutated.Header.Owner[11] = 1
	assert.NotEqual(t, base, mutated.Hash())
}

func TestNewName(t *testing.T) {
	n, err := NewName("CHECKEDIN")
	require.NoError(t, err)
	assert.Equal(t, "CHECKEDIN", n.String())
	assert.Equal(t, byte(0), n[9])

	_, err = NewName("thirteen_char")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestHeader_time(t *testing.T) {
	h := Header{Timestamp: 1700000000.5}
	assert.Equal(t, time.Date(2023, 11, 14, 22, 13, 20, 500000000, time.UTC), h.Time())
}
