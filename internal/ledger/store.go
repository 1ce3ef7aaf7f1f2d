package ledger

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"time"

	"go.uber.org/zap"
)

// Record is the caller-supplied content of a new block.
type Record struct {
	Case    Field
	Item    Field
	State   string
	Creator string
	Owner   string
	Payload []byte
}

// Store owns one ledger file.
type Store struct {
	path   string
	logger *zap.Logger
	now    func() time.Time
}

// NewStore creates a Store for the ledger file at path. The file is not
// touched until the first operation.
func NewStore(path string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{path: path, logger: logger, now: time.Now}
}

// SetClock replaces the wall clock used to timestamp appended blocks.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// Path returns the ledger file location.
func (s *Store) Path() string { return s.path }

// Initialize creates the ledger with its genesis block if the file does not
// exist. For an existing file only the first header is checked. It reports
// whether a new ledger was created.
func (s *Store) Initialize() (bool, error) {
	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	switch {
	case err == nil:
		defer f.Close()
		if _, err := f.Write(Genesis().Bytes()); err != nil {
			_ = os.Remove(s.path)
			return false, fmt.Errorf("write genesis block: %w", err)
		}
		if err := f.Sync(); err != nil {
			return false, fmt.Errorf("sync ledger: %w", err)
		}
		s.logger.Info("ledger created", zap.String("path", s.path))
		return true, nil
	case !errors.Is(err, fs.ErrExist):
		return false, fmt.Errorf("create ledger: %w", err)
	}

	if err := s.checkGenesis(); err != nil {
		return false, err
	}
	s.logger.Debug("ledger found", zap.String("path", s.path))
	return false, nil
}

func (s *Store) checkGenesis() error {
	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()

	var packed PackedHeader
	if n, err := io.ReadFull(f, packed[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("%w: short genesis header (%d of %d bytes)", ErrCorruptLedger, n, HeaderSize)
		}
		return fmt.Errorf("read genesis header: %w", err)
	}

	hdr := packed.Unpack()
	if !hdr.hasGenesisShape() {
		return fmt.Errorf("%w: first block has state %q", ErrInvalidGenesis, hdr.State.String())
	}
	return nil
}

// Scan opens the ledger for sequential reading. Each call starts from the
// first block.
func (s *Store) Scan() (*Scanner, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, s.path)
		}
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	return NewScanner(f), nil
}

// ReadAll scans the whole ledger. On error no blocks are returned.
func (s *Store) ReadAll() ([]*Block, error) {
	sc, err := s.Scan()
	if err != nil {
		return nil, err
	}
	defer sc.Close()

	var blocks []*Block
	for sc.Next() {
		blocks = append(blocks, sc.Block())
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return blocks, nil
}

// Tip returns the hash of the last block and the number of blocks.
func (s *Store) Tip() (Hash, int, error) {
	sc, err := s.Scan()
	if err != nil {
		return Hash{}, 0, err
	}
	defer sc.Close()

	var tip Hash
	n := 0
	for sc.Next() {
		tip = sc.Block().Hash()
		n++
	}
	if err := sc.Err(); err != nil {
		return Hash{}, 0, err
	}
	return tip, n, nil
}

// Append links a new block to the current tail and writes it to the end of
// the ledger, creating the ledger first if needed.
//
// The whole file is read to find the tail hash. Header and payload go out
// in a single write; if that write fails the file is cut back to its
// previous length.
func (s *Store) Append(rec Record) (*Block, error) {
	hdr, err := rec.header()
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(s.path); errors.Is(err, fs.ErrNotExist) {
		if _, err := s.Initialize(); err != nil {
			return nil, err
		}
	}

	tip, n, err := s.Tip()
	if err != nil {
		return nil, fmt.Errorf("read ledger tail: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: %s has no genesis block", ErrInvalidGenesis, s.path)
	}

	hdr.PrevHash = tip
	hdr.Timestamp = float64(s.now().UTC().UnixNano()) / 1e9
	block := &Block{Header: hdr, Payload: rec.Payload}

	if err := s.write(block.Bytes()); err != nil {
		return nil, err
	}

	s.logger.Debug("block appended",
		zap.Int("index", n),
		zap.String("state", rec.State),
		zap.Stringer("prev_hash", tip),
		zap.Stringer("hash", block.Hash()),
	)
	return block, nil
}

func (s *Store) write(data []byte) error {
	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		return fmt.Errorf("open ledger for append: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat ledger: %w", err)
	}
	size := info.Size()

	if _, err := f.Write(data); err != nil {
		if terr := f.Truncate(size); terr != nil {
			s.logger.Error("failed to roll back partial append",
				zap.String("path", s.path), zap.Int64("size", size), zap.Error(terr))
		}
		return fmt.Errorf("append block: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync ledger: %w", err)
	}
	return nil
}

// header validates the record and builds an unlinked, untimed header.
func (r *Record) header() (Header, error) {
	var hdr Header
	if uint64(len(r.Payload)) > math.MaxUint32 {
		return hdr, fmt.Errorf("%w: payload of %d bytes exceeds %d", ErrInvalidArgument, len(r.Payload), uint32(math.MaxUint32))
	}

	state, err := NewName(r.State)
	if err != nil {
		return hdr, fmt.Errorf("state: %w", err)
	}
	if r.State == "" {
		return hdr, fmt.Errorf("%w: empty state", ErrInvalidArgument)
	}
	creator, err := NewName(r.Creator)
	if err != nil {
		return hdr, fmt.Errorf("creator: %w", err)
	}
	owner, err := NewName(r.Owner)
	if err != nil {
		return hdr, fmt.Errorf("owner: %w", err)
	}

	hdr.Case = r.Case
	hdr.Item = r.Item
	hdr.State = state
	hdr.Creator = creator
	hdr.Owner = owner
	hdr.PayloadLength = uint32(len(r.Payload))
	return hdr, nil
}
