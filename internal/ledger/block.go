package ledger

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"time"
)

// byte sizes for the header fields
const (
	HashSize   = sha256.Size
	FieldSize  = 32
	NameSize   = 12
	stampSize  = 8
	lengthSize = 4
)

// offsets of the header fields. Numeric fields are little-endian.
const (
	prevHashOffset  = 0
	timestampOffset = prevHashOffset + HashSize
	caseOffset      = timestampOffset + stampSize
	itemOffset      = caseOffset + FieldSize
	stateOffset     = itemOffset + FieldSize
	creatorOffset   = stateOffset + NameSize
	ownerOffset     = creatorOffset + NameSize
	lengthOffset    = ownerOffset + NameSize

	// HeaderSize is the fixed number of bytes preceding every payload.
	HeaderSize = lengthOffset + lengthSize
)

// genesis block contents
const (
	GenesisState   = "INITIAL"
	genesisPayload = "Initial block\x00"
)

// GenesisMarker fills the case and item fields of the genesis block.
// It is ASCII '0', not zero bytes.
var GenesisMarker = Field(bytes.Repeat([]byte{'0'}, FieldSize))

// Hash is the SHA-256 content hash of a block.
type Hash [HashSize]byte

// String returns the hex encoding of the hash.
func (h Hash) String() string { return hex.EncodeToString(h[:]) }

// IsZero reports whether every byte is zero.
func (h Hash) IsZero() bool { return h == Hash{} }

// MarshalText implements encoding.TextMarshaler so hashes render as hex.
func (h Hash) MarshalText() ([]byte, error) { return []byte(h.String()), nil }

// Field is an opaque 32-byte identifier field.
type Field [FieldSize]byte

// String returns the hex encoding of the field.
func (f Field) String() string { return hex.EncodeToString(f[:]) }

// Name is a NUL-padded ASCII header field (state, creator, owner).
type Name [NameSize]byte

// NewName pads s to NameSize bytes. Longer values are rejected.
func NewName(s string) (Name, error) {
	var n Name
	if len(s) > NameSize {
		return n, fmt.Errorf("%w: %q is longer than %d bytes", ErrInvalidArgument, s, NameSize)
	}
	copy(n[:], s)
	return n, nil
}

// String returns the name with trailing NUL padding removed.
func (n Name) String() string { return string(bytes.TrimRight(n[:], "\x00")) }

// Header is the unpacked fixed-size block header.
type Header struct {
	PrevHash      Hash
	Timestamp     float64 // seconds since the Unix epoch, UTC
	Case          Field
	Item          Field
	State         Name
	Creator       Name
	Owner         Name
	PayloadLength uint32
}

// PackedHeader is the on-disk form of a Header.
type PackedHeader [HeaderSize]byte

// Pack encodes the header. Packing an unpacked header reproduces its bytes exactly.
func (h *Header) Pack() PackedHeader {
	var p PackedHeader
	copy(p[prevHashOffset:], h.PrevHash[:])
	binary.LittleEndian.PutUint64(p[timestampOffset:], math.Float64bits(h.Timestamp))
	copy(p[caseOffset:], h.Case[:])
	copy(p[itemOffset:], h.Item[:])
	copy(p[stateOffset:], h.State[:])
	copy(p[creatorOffset:], h.Creator[:])
	copy(p[ownerOffset:], h.Owner[:])
	binary.LittleEndian.PutUint32(p[lengthOffset:], h.PayloadLength)
	return p
}

// Unpack decodes a packed header.
func (p *PackedHeader) Unpack() Header {
	var h Header
	copy(h.PrevHash[:], p[prevHashOffset:timestampOffset])
	h.Timestamp = math.Float64frombits(binary.LittleEndian.Uint64(p[timestampOffset:caseOffset]))
	copy(h.Case[:], p[caseOffset:itemOffset])
	copy(h.Item[:], p[itemOffset:stateOffset])
	copy(h.State[:], p[stateOffset:creatorOffset])
	copy(h.Creator[:], p[creatorOffset:ownerOffset])
	copy(h.Owner[:], p[ownerOffset:lengthOffset])
	h.PayloadLength = binary.LittleEndian.Uint32(p[lengthOffset:])
	return h
}

// Time converts the header timestamp to a UTC time with microsecond precision.
func (h *Header) Time() time.Time {
	return time.UnixMicro(int64(math.Round(h.Timestamp * 1e6))).UTC()
}

// Block is one header plus its payload.
type Block struct {
	Header  Header
	Payload []byte
}

// Bytes returns the exact on-disk encoding of the block.
func (b *Block) Bytes() []byte {
	p := b.Header.Pack()
	out := make([]byte, 0, HeaderSize+len(b.Payload))
	out = append(out, p[:]...)
	return append(out, b.Payload...)
}

// Hash computes the content hash over the header and payload bytes.
func (b *Block) Hash() Hash {
	p := b.Header.Pack()
	h := sha256.New()
	h.Write(p[:])
	h.Write(b.Payload)
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

// Genesis returns the mandatory first block of every ledger.
func Genesis() *Block {
	state, _ := NewName(GenesisState)
	return &Block{
		Header: Header{
			Case:          GenesisMarker,
			Item:          GenesisMarker,
			State:         state,
			PayloadLength: uint32(len(genesisPayload)),
		},
		Payload: []byte(genesisPayload),
	}
}

// IsGenesis reports whether b matches the genesis block byte for byte.
func (b *Block) IsGenesis() bool {
	return bytes.Equal(b.Bytes(), Genesis().Bytes())
}

// hasGenesisShape is the weaker check applied when opening an existing ledger:
// only the state and the identifier markers are inspected.
func (h *Header) hasGenesisShape() bool {
	return h.State.String() == GenesisState && h.Case == GenesisMarker && h.Item == GenesisMarker
}
