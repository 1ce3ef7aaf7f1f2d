// Package custodyid maps case and item identifiers onto the fixed 32-byte
// opaque fields stored in the custody ledger.
//
// Encoding pads the identifier's raw bytes with zeros to 32 bytes and runs
// each 16-byte half through AES-128 under a fixed key:
//
//	case: uuid (16 bytes) | 16 zero bytes
//	item: uint32 big-endian (4 bytes) | 28 zero bytes
//
// The key ships with the binary, so this is obfuscation rather than access
// control. Anyone holding the key can decode every field.
package custodyid

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// FieldSize is the width of an encoded identifier field.
const FieldSize = 32

const (
	caseSize = 16
	itemSize = 4
)

// defaultKey is the built-in transform key. It is used as raw ASCII bytes.
const defaultKey = "R0chLi4uLi4uLi4="

var (
	// ErrInvalidIdentifier is returned for human input outside the identifier domain.
	ErrInvalidIdentifier = errors.New("custodyid: invalid identifier")

	// ErrCorruptIdentifierField is returned when a decoded field does not carry
	// the expected zero padding.
	ErrCorruptIdentifierField = errors.New("custodyid: corrupt identifier field")
)

// Default is the codec keyed with the built-in key.
var Default = MustNew([]byte(defaultKey))

// Codec encodes and decodes identifier fields.
type Codec struct {
	block cipher.Block
}

// New creates a Codec with the given AES-128 key.
func New(key []byte) (*Codec, error) {
	if len(key) != aes.BlockSize {
		return nil, fmt.Errorf("custodyid: key must be %d bytes, got %d", aes.BlockSize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("custodyid: %w", err)
	}
	return &Codec{block: block}, nil
}

// MustNew is like New but panics on error. Useful in tests and package vars.
func MustNew(key []byte) *Codec {
	c, err := New(key)
	if err != nil {
		panic(err)
	}
	return c
}

// EncodeCase returns the ledger field for a case UUID.
func (c *Codec) EncodeCase(id uuid.UUID) [FieldSize]byte {
	var plain [FieldSize]byte
	copy(plain[:], id[:])
	return c.seal(plain)
}

// DecodeCase recovers the case UUID from a ledger field.
func (c *Codec) DecodeCase(field [FieldSize]byte) (uuid.UUID, error) {
	plain := c.open(field)
	if !zeroTail(plain[caseSize:]) {
		return uuid.Nil, fmt.Errorf("%w: case padding is not zero", ErrCorruptIdentifierField)
	}
	var id uuid.UUID
	copy(id[:], plain[:caseSize])
	return id, nil
}

// EncodeItem returns the ledger field for an item id.
func (c *Codec) EncodeItem(id uint32) [FieldSize]byte {
	var plain [FieldSize]byte
	binary.BigEndian.PutUint32(plain[:itemSize], id)
	return c.seal(plain)
}

// DecodeItem recovers the item id from a ledger field.
func (c *Codec) DecodeItem(field [FieldSize]byte) (uint32, error) {
	plain := c.open(field)
	if !zeroTail(plain[itemSize:]) {
		return 0, fmt.Errorf("%w: item padding is not zero", ErrCorruptIdentifierField)
	}
	return binary.BigEndian.Uint32(plain[:itemSize]), nil
}

// EncodeCaseString parses raw as a UUID and encodes it.
func (c *Codec) EncodeCaseString(raw string) ([FieldSize]byte, error) {
	id, err := ParseCaseID(raw)
	if err != nil {
		return [FieldSize]byte{}, err
	}
	return c.EncodeCase(id), nil
}

// EncodeItemString parses raw as an item id and encodes it.
func (c *Codec) EncodeItemString(raw string) ([FieldSize]byte, error) {
	id, err := ParseItemID(raw)
	if err != nil {
		return [FieldSize]byte{}, err
	}
	return c.EncodeItem(id), nil
}

// seal and open run the two 16-byte halves through the block cipher independently.
func (c *Codec) seal(plain [FieldSize]byte) [FieldSize]byte {
	var out [FieldSize]byte
	for i := 0; i < FieldSize; i += aes.BlockSize {
		c.block.Encrypt(out[i:i+aes.BlockSize], plain[i:i+aes.BlockSize])
	}
	return out
}

func (c *Codec) open(field [FieldSize]byte) [FieldSize]byte {
	var out [FieldSize]byte
	for i := 0; i < FieldSize; i += aes.BlockSize {
		c.block.Decrypt(out[i:i+aes.BlockSize], field[i:i+aes.BlockSize])
	}
	return out
}

func zeroTail(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

// ParseCaseID validates a case identifier string.
func ParseCaseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: case id %q is not a UUID", ErrInvalidIdentifier, raw)
	}
	return id, nil
}

// ParseItemID validates an item identifier string. Item ids are unsigned
// 32-bit integers.
func ParseItemID(raw string) (uint32, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: item id %q is not an integer", ErrInvalidIdentifier, raw)
	}
	return ItemFromInt(n)
}

// ItemFromInt range-checks an integer item id.
func ItemFromInt(n int64) (uint32, error) {
	if n < 0 || n > math.MaxUint32 {
		return 0, fmt.Errorf("%w: item id %d outside 0..%d", ErrInvalidIdentifier, n, uint32(math.MaxUint32))
	}
	return uint32(n), nil
}

// Hex renders a field that could not, or may not, be decoded.
func Hex(field [FieldSize]byte) string {
	return hex.EncodeToString(field[:])
}
