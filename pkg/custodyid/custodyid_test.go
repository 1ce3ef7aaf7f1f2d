package custodyid_test

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmerrifield20/bchoc/pkg/custodyid"
)

func TestCase_roundTrip(t *testing.T) {
	cases := []uuid.UUID{
		uuid.MustParse("65a8b5d4-3e0e-4b4e-8c4e-0c5f5b3b2a10"),
		uuid.MustParse("00000000-0000-0000-0000-000000000001"),
		uuid.MustParse("ffffffff-ffff-ffff-ffff-ffffffffff00"), // trailing zero byte
		uuid.Nil,
		uuid.New(),
	}

	for _, id := range cases {
		id := id
		t.Run(id.String(), func(t *testing.T) {
			field := custodyid.Default.EncodeCase(id)
			got, err := custodyid.Default.DecodeCase(field)
			require.NoError(t, err)
			assert.Equal(t, id, got)
		})
	}
}

func TestItem_roundTrip(t *testing.T) {
	for _, n := range []uint32{0, 1, 255, 256, 65536, 1004820154, math.MaxUint32} {
		field := custodyid.Default.EncodeItem(n)
		got, err := custodyid.Default.DecodeItem(field)
		require.NoError(t, err, "item %d", n)
		assert.Equal(t, n, got)
	}
}

func TestEncode_deterministic(t *testing.T) {
	id := uuid.MustParse("65a8b5d4-3e0e-4b4e-8c4e-0c5f5b3b2a10")
	a := custodyid.Default.EncodeCase(id)
	b := custodyid.Default.EncodeCase(id)
	assert.Equal(t, a, b)
	assert.Len(t, a[:], custodyid.FieldSize)

	i1 := custodyid.Default.EncodeItem(42)
	i2 := custodyid.Default.EncodeItem(42)
	assert.Equal(t, i1, i2)
	assert.NotEqual(t, i1, custodyid.Default.EncodeItem(43))
}

func TestEncode_halvesIndependent(t *testing.T) {
	// Both padding halves of an item field are zero blocks except the first
	// four bytes, so the second half of every item field is the same block.
	a := custodyid.Default.EncodeItem(1)
	b := custodyid.Default.EncodeItem(2)
	assert.True(t, bytes.Equal(a[16:], b[16:]))
	assert.False(t, bytes.Equal(a[:16], b[:16]))
}

func TestDecode_corruptField(t *testing.T) {
	var field [custodyid.FieldSize]byte
	for i := range field {
		field[i] = 0xff
	}

	_, err := custodyid.Default.DecodeCase(field)
	assert.True(t, errors.Is(err, custodyid.ErrCorruptIdentifierField), "got %v", err)

	_, err = custodyid.Default.DecodeItem(field)
	assert.True(t, errors.Is(err, custodyid.ErrCorruptIdentifierField), "got %v", err)
}

func TestDecode_caseFieldAsItem(t *testing.T) {
	field := custodyid.Default.EncodeCase(uuid.MustParse("65a8b5d4-3e0e-4b4e-8c4e-0c5f5b3b2a10"))
	_, err := custodyid.Default.DecodeItem(field)
	assert.ErrorIs(t, err, custodyid.ErrCorruptIdentifierField)
}

func TestNew_keyLength(t *testing.T) {
	_, err := custodyid.New([]byte("short"))
	assert.Error(t, err)

	other := custodyid.MustNew([]byte("0123456789abcdef"))
	assert.NotEqual(t, custodyid.Default.EncodeItem(7), other.EncodeItem(7))
}

func TestParseItemID(t *testing.T) {
	valid := map[string]uint32{
		"0":          0,
		"42":         42,
		" 7 ":        7,
		"4294967295": math.MaxUint32,
	}
	for in, want := range valid {
		got, err := custodyid.ParseItemID(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	for _, in := range []string{"-1", "4294967296", "abc", "", "1.5"} {
		in := in
		t.Run(in, func(t *testing.T) {
			_, err := custodyid.ParseItemID(in)
			assert.ErrorIs(t, err, custodyid.ErrInvalidIdentifier)
		})
	}
}

func TestParseCaseID(t *testing.T) {
	_, err := custodyid.ParseCaseID("65a8b5d4-3e0e-4b4e-8c4e-0c5f5b3b2a10")
	require.NoError(t, err)

	for _, in := range []string{"", "not-a-uuid", "65a8b5d4-3e0e-4b4e-8c4e"} {
		_, err := custodyid.ParseCaseID(in)
		assert.ErrorIs(t, err, custodyid.ErrInvalidIdentifier, in)
	}
}

func TestEncodeStrings(t *testing.T) {
	f, err := custodyid.Default.EncodeItemString("99")
	require.NoError(t, err)
	assert.Equal(t, custodyid.Default.EncodeItem(99), f)

	_, err = custodyid.Default.EncodeCaseString("nope")
	assert.ErrorIs(t, err, custodyid.ErrInvalidIdentifier)

	assert.Len(t, custodyid.Hex(f), 64)
}
