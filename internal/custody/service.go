// Package custody implements the chain-of-custody commands on top of the
// ledger: adding evidence items, checking them in and out, removing them,
// and the read-side views over the ledger history.
package custody

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/jmerrifield20/bchoc/internal/integrity"
	"github.com/jmerrifield20/bchoc/internal/ledger"
	"github.com/jmerrifield20/bchoc/internal/lifecycle"
	"github.com/jmerrifield20/bchoc/internal/metrics"
	"github.com/jmerrifield20/bchoc/internal/roles"
	"github.com/jmerrifield20/bchoc/pkg/custodyid"
)

var (
	ErrItemNotFound  = errors.New("item not found in ledger")
	ErrItemExists    = errors.New("item already exists in ledger")
	ErrOwnerRequired = errors.New("owner is required")
	ErrNotRemoval    = errors.New("state is not a removal state")
)

// Service runs custody commands against one ledger.
type Service struct {
	store    *ledger.Store
	verifier *integrity.Verifier
	auth     *roles.Authenticator
	codec    *custodyid.Codec
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewService creates a Service using the built-in identifier codec.
func NewService(store *ledger.Store, auth *roles.Authenticator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:    store,
		verifier: integrity.New(store, logger),
		auth:     auth,
		codec:    custodyid.Default,
		logger:   logger,
	}
}

// SetCodec replaces the identifier codec.
func (s *Service) SetCodec(c *custodyid.Codec) { s.codec = c }

// SetMetrics enables metric recording.
func (s *Service) SetMetrics(m *metrics.Metrics) { s.metrics = m }

// Init creates the ledger if it does not exist and reports whether it did.
func (s *Service) Init() (bool, error) {
	return s.store.Initialize()
}

// AddRequest adds new items to a case.
type AddRequest struct {
	CaseID   string
	ItemIDs  []string
	Creator  string
	Password string
}

// Add records a CHECKEDIN block for every item in req. Only the creator role
// may add items, and no item may already exist in the ledger.
func (s *Service) Add(req AddRequest) ([]Event, error) {
	if _, err := s.auth.Require(req.Password, roles.Creator); err != nil {
		return nil, err
	}
	caseID, err := custodyid.ParseCaseID(req.CaseID)
	if err != nil {
		return nil, err
	}
	if len(req.ItemIDs) == 0 {
		return nil, fmt.Errorf("%w: no item ids given", custodyid.ErrInvalidIdentifier)
	}

	items := make([]uint32, 0, len(req.ItemIDs))
	for _, raw := range req.ItemIDs {
		id, err := custodyid.ParseItemID(raw)
		if err != nil {
			return nil, err
		}
		items = append(items, id)
	}

	latest, err := s.latest()
	if err != nil {
		return nil, err
	}
	seen := make(map[uint32]struct{}, len(items))
	for _, id := range items {
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: item %d listed twice", ErrItemExists, id)
		}
		seen[id] = struct{}{}
		if _, ok := latest[s.codec.EncodeItem(id)]; ok {
			return nil, fmt.Errorf("%w: item %d", ErrItemExists, id)
		}
	}

	caseField := ledger.Field(s.codec.EncodeCase(caseID))
	events := make([]Event, 0, len(items))
	for _, id := range items {
		b, err := s.append(ledger.Record{
			Case:    caseField,
			Item:    s.codec.EncodeItem(id),
			State:   string(lifecycle.CheckedIn),
			Creator: truncate(req.Creator),
		})
		if err != nil {
			return events, err
		}
		events = append(events, s.event(b, true))
	}

	s.logger.Info("items added",
		zap.String("case", caseID.String()),
		zap.Int("count", len(items)),
	)
	return events, nil
}

// Checkout hands a checked-in item to a new owner. Any role may check out.
func (s *Service) Checkout(itemID, owner, password string) (Event, error) {
	if _, err := s.auth.Require(password); err != nil {
		return Event{}, err
	}
	if owner == "" {
		return Event{}, ErrOwnerRequired
	}
	return s.transition(itemID, lifecycle.CheckedOut, truncate(owner))
}

// Checkin returns a checked-out item. The owner is cleared.
func (s *Service) Checkin(itemID, password string) (Event, error) {
	if _, err := s.auth.Require(password); err != nil {
		return Event{}, err
	}
	return s.transition(itemID, lifecycle.CheckedIn, "")
}

// RemoveRequest takes an item out of custody permanently.
type RemoveRequest struct {
	ItemID   string
	State    string
	Owner    string
	Password string
}

// Remove moves a checked-in item to a terminal state. Only the creator role
// may remove items; RELEASED needs the name of the receiving owner.
func (s *Service) Remove(req RemoveRequest) (Event, error) {
	if _, err := s.auth.Require(req.Password, roles.Creator); err != nil {
		return Event{}, err
	}
	state, err := lifecycle.Parse(req.State)
	if err != nil {
		return Event{}, err
	}
	if !state.Terminal() {
		return Event{}, fmt.Errorf("%w: %s (use DISPOSED, DESTROYED or RELEASED)", ErrNotRemoval, state)
	}

	owner := ""
	if state == lifecycle.Released {
		if req.Owner == "" {
			return Event{}, fmt.Errorf("%w when releasing an item", ErrOwnerRequired)
		}
		owner = truncate(req.Owner)
	}
	return s.transition(req.ItemID, state, owner)
}

// Verify certifies the ledger.
func (s *Service) Verify() (integrity.Certification, error) {
	cert, err := s.verifier.Verify()
	if err != nil {
		s.metrics.RecordVerify("UNREADABLE", 0)
		return cert, err
	}
	s.metrics.RecordVerify(string(cert.Kind), cert.Transactions)
	return cert, nil
}

// transition appends next for an existing item after checking the lifecycle
// rules against the item's latest block. The case and creator carry over.
func (s *Service) transition(rawItem string, next lifecycle.State, owner string) (Event, error) {
	id, err := custodyid.ParseItemID(rawItem)
	if err != nil {
		return Event{}, err
	}
	item := ledger.Field(s.codec.EncodeItem(id))

	latest, err := s.latest()
	if err != nil {
		return Event{}, err
	}
	prev, ok := latest[item]
	if !ok {
		return Event{}, fmt.Errorf("%w: item %d", ErrItemNotFound, id)
	}
	if err := lifecycle.Transition(lifecycle.State(prev.State.String()), next); err != nil {
		return Event{}, fmt.Errorf("item %d: %w", id, err)
	}

	b, err := s.append(ledger.Record{
		Case:    prev.Case,
		Item:    item,
		State:   string(next),
		Creator: prev.Creator.String(),
		Owner:   owner,
	})
	if err != nil {
		return Event{}, err
	}

	s.logger.Info("item transitioned",
		zap.Uint32("item", id),
		zap.String("from", prev.State.String()),
		zap.String("to", string(next)),
	)
	return s.event(b, true), nil
}

func (s *Service) append(rec ledger.Record) (*ledger.Block, error) {
	b, err := s.store.Append(rec)
	if err != nil {
		return nil, fmt.Errorf("append %s block: %w", rec.State, err)
	}
	s.metrics.RecordAppend(rec.State)
	return b, nil
}

// latest folds the ledger into the most recent header per item field.
// Genesis and any INITIAL blocks are skipped.
func (s *Service) latest() (map[ledger.Field]*ledger.Header, error) {
	out := make(map[ledger.Field]*ledger.Header)
	err := s.each(func(b *ledger.Block) {
		out[b.Header.Item] = &b.Header
	})
	return out, err
}

// each calls fn for every non-genesis block in file order. A missing ledger
// has no blocks.
func (s *Service) each(fn func(*ledger.Block)) error {
	sc, err := s.store.Scan()
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return nil
		}
		return err
	}
	defer sc.Close()

	for sc.Next() {
		b := sc.Block()
		if sc.Index() == 0 || b.Header.State.String() == string(lifecycle.Initial) {
			continue
		}
		fn(b)
	}
	return sc.Err()
}

func truncate(name string) string {
	if len(name) > ledger.NameSize {
		return name[:ledger.NameSize]
	}
	return name
}
