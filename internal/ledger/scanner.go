package ledger

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
)

// Scanner reads blocks sequentially from a ledger stream.
//
//	sc, err := store.Scan()
//	...
//	defer sc.Close()
//	for sc.Next() {
//		b := sc.Block()
//	}
//	if err := sc.Err(); err != nil { ... }
//
// A stream that ends inside a header or payload stops the scan with
// ErrCorruptLedger; the partial block is never returned.
type Scanner struct {
	r      *bufio.Reader
	closer io.Closer
	block  *Block
	index  int
	err    error
}

// NewScanner returns a Scanner reading from r.
func NewScanner(r io.Reader) *Scanner {
	sc := &Scanner{r: bufio.NewReader(r), index: -1}
	if c, ok := r.(io.Closer); ok {
		sc.closer = c
	}
	return sc
}

// Next advances to the next block. It returns false at the end of the
// stream or on error.
func (s *Scanner) Next() bool {
	if s.err != nil {
		return false
	}
	s.block = nil

	var packed PackedHeader
	n, err := io.ReadFull(s.r, packed[:])
	switch {
	case errors.Is(err, io.EOF) && n == 0:
		return false
	case errors.Is(err, io.ErrUnexpectedEOF):
		s.err = fmt.Errorf("%w: block %d: short header (%d of %d bytes)", ErrCorruptLedger, s.index+1, n, HeaderSize)
		return false
	case err != nil:
		s.err = fmt.Errorf("read header of block %d: %w", s.index+1, err)
		return false
	}

	hdr := packed.Unpack()

	// CopyN grows the buffer as bytes arrive, so a corrupt length field
	// cannot force a huge allocation up front.
	var payload bytes.Buffer
	got, err := io.CopyN(&payload, s.r, int64(hdr.PayloadLength))
	if err != nil {
		if errors.Is(err, io.EOF) {
			s.err = fmt.Errorf("%w: block %d: truncated payload (%d of %d bytes)",
				ErrCorruptLedger, s.index+1, got, hdr.PayloadLength)
		} else {
			s.err = fmt.Errorf("read payload of block %d: %w", s.index+1, err)
		}
		return false
	}

	s.index++
	s.block = &Block{Header: hdr, Payload: payload.Bytes()}
	return true
}

// Block returns the block read by the last successful call to Next.
func (s *Scanner) Block() *Block { return s.block }

// Index returns the zero-based position of the current block.
func (s *Scanner) Index() int { return s.index }

// Err returns the first error encountered, if any.
func (s *Scanner) Err() error { return s.err }

// Close releases the underlying file, if the scanner owns one.
func (s *Scanner) Close() error {
	if s.closer == nil {
		return nil
	}
	err := s.closer.Close()
	s.closer = nil
	return err
}
