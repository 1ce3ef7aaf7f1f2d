package ledger

import "errors"

var (
	// ErrInvalidArgument is returned for malformed append input. Nothing is written.
	ErrInvalidArgument = errors.New("ledger: invalid argument")

	// ErrInvalidGenesis is returned when an existing ledger does not begin with a genesis block.
	ErrInvalidGenesis = errors.New("ledger: invalid genesis block")

	// ErrCorruptLedger is returned when the byte stream ends inside a header or payload.
	ErrCorruptLedger = errors.New("ledger: corrupt ledger")

	// ErrNotFound is returned when reading a ledger file that does not exist.
	ErrNotFound = errors.New("ledger: not found")
)
