// Package integrity certifies a custody ledger: the genesis block, the hash
// links between blocks, and the state sequence of every item.
package integrity

import (
	"errors"

	"go.uber.org/zap"

	"github.com/jmerrifield20/bchoc/internal/ledger"
	"github.com/jmerrifield20/bchoc/internal/lifecycle"
)

// Verifier certifies the ledger behind a Store.
type Verifier struct {
	store  *ledger.Store
	logger *zap.Logger
}

// New creates a Verifier.
func New(store *ledger.Store, logger *zap.Logger) *Verifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Verifier{store: store, logger: logger}
}

// Verify reads the whole ledger and certifies it. An unhealthy ledger is
// reported through the Certification; the error is reserved for a ledger
// that cannot be read at all.
func (v *Verifier) Verify() (Certification, error) {
	blocks, err := v.store.ReadAll()
	if err != nil {
		return Certification{}, err
	}

	cert := Certify(blocks)
	if cert.OK() {
		v.logger.Debug("ledger verified", zap.Int("transactions", cert.Transactions))
	} else {
		v.logger.Warn("ledger failed verification",
			zap.String("kind", string(cert.Kind)),
			zap.Stringer("bad_block", cert.BadBlock),
			zap.Int("transactions", cert.Transactions),
		)
	}
	return cert, nil
}

// Certify runs the genesis, linkage and item-sequence phases in order over
// blocks. The first failing phase determines the result.
func Certify(blocks []*ledger.Block) Certification {
	n := len(blocks)
	hashes := make([]ledger.Hash, n)
	for i, b := range blocks {
		hashes[i] = b.Hash()
	}

	if c, ok := checkGenesis(blocks, hashes); !ok {
		return c
	}
	if c, ok := checkLinks(blocks, hashes); !ok {
		return c
	}
	if c, ok := checkSequences(blocks, hashes); !ok {
		return c
	}
	return clean(n)
}

func checkGenesis(blocks []*ledger.Block, hashes []ledger.Hash) (Certification, bool) {
	if len(blocks) == 0 {
		return failure(ContentMismatch, ledger.Hash{}, 0), false
	}
	if !blocks[0].IsGenesis() {
		return failure(ContentMismatch, hashes[0], len(blocks)), false
	}
	return Certification{}, true
}

// checkLinks requires every block after genesis to name an earlier block as
// its parent, and no parent to be claimed twice.
func checkLinks(blocks []*ledger.Block, hashes []ledger.Hash) (Certification, bool) {
	n := len(blocks)
	earlier := map[ledger.Hash]struct{}{hashes[0]: {}}
	claimed := make(map[ledger.Hash]struct{}, n)

	for i := 1; i < n; i++ {
		parent := blocks[i].Header.PrevHash
		if _, ok := earlier[parent]; !ok || parent.IsZero() {
			return failure(ParentNotFound, hashes[i], n), false
		}
		if _, dup := claimed[parent]; dup {
			c := failure(DuplicateParent, hashes[i], n)
			c.Parent = parent
			return c, false
		}
		claimed[parent] = struct{}{}
		earlier[hashes[i]] = struct{}{}
	}
	return Certification{}, true
}

func checkSequences(blocks []*ledger.Block, hashes []ledger.Hash) (Certification, bool) {
	n := len(blocks)
	tracker := lifecycle.NewTracker()

	for i := 1; i < n; i++ {
		hdr := &blocks[i].Header
		state := lifecycle.State(hdr.State.String())
		if state == lifecycle.Initial {
			continue
		}

		err := tracker.Apply(hdr.Item, state)
		switch {
		case err == nil:
		case errors.Is(err, lifecycle.ErrUnknownState):
			return failure(ContentMismatch, hashes[i], n), false
		default:
			return failure(IllegalSequence, hashes[i], n), false
		}
	}
	return Certification{}, true
}
